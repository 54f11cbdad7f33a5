package handlers

import (
	"net/http"

	"nine-pos/internal/service"

	"github.com/gin-gonic/gin"
)

type RestockRequest struct {
	ProductID uint `json:"productId"`
	Quantity  int  `json:"quantity"`
}

// --- GET: List products with optional filters ---
func (h *Handler) GetProducts(c *gin.Context) {
	q := queryParser{c: c}
	filter := service.ProductFilter{
		Search:   c.Query("search"),
		Category: c.Query("category"),
		MinPrice: q.optDecimal("minPrice"),
		MaxPrice: q.optDecimal("maxPrice"),
		MinStock: q.optInt("minStock"),
		MaxStock: q.optInt("maxStock"),
		Page:     pageQuery(c),
	}
	if !q.ok() {
		return
	}

	page, err := h.Products.List(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, "GetProducts", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) GetProduct(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	product, err := h.Products.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "GetProduct", err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// --- POST: Add a new product ---
func (h *Handler) AddProduct(c *gin.Context) {
	var input service.ProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Invalid input")
		return
	}

	product, err := h.Products.Create(c.Request.Context(), input)
	if err != nil {
		h.respondError(c, "AddProduct", err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

// --- PUT: Partial update. A stock change is ledgered as an adjustment ---
func (h *Handler) UpdateProduct(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input service.ProductUpdate
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Invalid input")
		return
	}

	product, err := h.Products.Update(c.Request.Context(), id, input)
	if err != nil {
		h.respondError(c, "UpdateProduct", err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) DeleteProduct(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.Products.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, "DeleteProduct", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

// --- PATCH: Restock ---
func (h *Handler) RestockProduct(c *gin.Context) {
	var input RestockRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Invalid product ID or quantity")
		return
	}

	product, err := h.Inventory.Restock(c.Request.Context(), input.ProductID, input.Quantity)
	if err != nil {
		h.respondError(c, "RestockProduct", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Stock updated successfully", "product": product})
}

func (h *Handler) StockReport(c *gin.Context) {
	report, err := h.Inventory.StockReport(c.Request.Context())
	if err != nil {
		h.respondError(c, "StockReport", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) StockHistory(c *gin.Context) {
	q := queryParser{c: c}
	productID := q.optUint("productId")
	if !q.ok() {
		return
	}
	history, err := h.Inventory.StockHistory(c.Request.Context(), productID)
	if err != nil {
		h.respondError(c, "StockHistory", err)
		return
	}
	c.JSON(http.StatusOK, history)
}
