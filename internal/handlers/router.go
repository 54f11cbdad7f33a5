package handlers

import (
	"net/http"
	"time"

	"nine-pos/internal/middleware"
	"nine-pos/internal/models"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RouterOptions are the parts of the route table that depend on config.
type RouterOptions struct {
	AllowedOrigins    []string
	AllowRegistration bool
}

// NewRouter builds the gin engine with every route mounted.
func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(h.Log))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     opts.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "online"}) })

	authGroup := r.Group("/auth")
	{
		// Feature flag: self-registration is only open when explicitly allowed.
		if opts.AllowRegistration {
			authGroup.POST("/register", h.Register)
			h.Log.Warn("registration route is OPEN; disable ALLOW_REGISTRATION in production")
		}
		authGroup.POST("/login", h.Login)
		authGroup.POST("/forgot-password", h.ForgotPassword)
		authGroup.POST("/reset-password/:token", h.ResetPassword)
	}

	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(h.Tokens))
	adminOnly := middleware.RequireRole(models.RoleAdmin)
	{
		api.GET("/auth/me", h.Me)

		products := api.Group("/products")
		products.GET("", h.GetProducts)
		products.POST("", adminOnly, h.AddProduct)
		products.PATCH("/restock", adminOnly, h.RestockProduct)
		products.GET("/stockreport", adminOnly, h.StockReport)
		products.GET("/salesreport", adminOnly, h.SalesReport)
		products.GET("/stockhistory", adminOnly, h.StockHistory)
		products.GET("/:id", h.GetProduct)
		products.PUT("/:id", adminOnly, h.UpdateProduct)
		products.DELETE("/:id", adminOnly, h.DeleteProduct)

		sales := api.Group("/sales")
		sales.POST("", h.ProcessSale)
		sales.GET("", h.GetSales)
		sales.GET("/cashier/:cashierId", h.GetSalesByCashier)
		sales.GET("/:id", h.GetSale)
		sales.DELETE("/:id", h.RefundSale)

		saleItems := api.Group("/saleitems")
		saleItems.POST("", h.AddSaleItem)
		saleItems.GET("/sale/:saleId", h.GetSaleItems)
		saleItems.DELETE("/:id", adminOnly, h.DeleteSaleItem)

		users := api.Group("/users")
		selfOrAdmin := middleware.RequireSelfOrAdmin("id")
		users.POST("", adminOnly, h.CreateUser)
		users.GET("", adminOnly, h.GetUsers)
		users.GET("/:id", selfOrAdmin, h.GetUser)
		users.PUT("/:id", selfOrAdmin, h.UpdateUser)
		users.DELETE("/:id", adminOnly, h.DeleteUser)

		api.GET("/dashboard", adminOnly, h.GetDashboard)
		api.POST("/ask", adminOnly, h.AskAI)
	}

	return r
}
