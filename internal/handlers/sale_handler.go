package handlers

import (
	"net/http"

	"nine-pos/internal/middleware"
	"nine-pos/internal/service"

	"github.com/gin-gonic/gin"
)

// --- POST: Record a sale for the logged-in cashier ---
func (h *Handler) ProcessSale(c *gin.Context) {
	var req service.SaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data")
		return
	}

	sale, err := h.Sales.Create(c.Request.Context(), c.GetUint(middleware.CtxUserID), req)
	if err != nil {
		h.respondError(c, "ProcessSale", err)
		return
	}
	c.JSON(http.StatusCreated, sale)
}

func saleFilter(c *gin.Context) (service.SaleFilter, bool) {
	q := queryParser{c: c}
	f := service.SaleFilter{
		SaleID:    q.optUint("saleId"),
		CashierID: q.optUint("cashierId"),
		StartDate: q.optDate("startDate", false),
		EndDate:   q.optDate("endDate", true),
		MinAmount: q.optDecimal("minAmount"),
		MaxAmount: q.optDecimal("maxAmount"),
		Page:      pageQuery(c),
	}
	return f, q.ok()
}

func (h *Handler) GetSales(c *gin.Context) {
	f, ok := saleFilter(c)
	if !ok {
		return
	}
	page, err := h.Sales.List(c.Request.Context(), f)
	if err != nil {
		h.respondError(c, "GetSales", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) GetSale(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	sale, err := h.Sales.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "GetSale", err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

func (h *Handler) GetSalesByCashier(c *gin.Context) {
	cashierID, ok := idParam(c, "cashierId")
	if !ok {
		return
	}
	f, ok := saleFilter(c)
	if !ok {
		return
	}
	result, err := h.Sales.ListByCashier(c.Request.Context(), cashierID, f)
	if err != nil {
		h.respondError(c, "GetSalesByCashier", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// --- DELETE: Refund. The body always carries restoredItems ---
func (h *Handler) RefundSale(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	result, err := h.Sales.Refund(c.Request.Context(), id)
	if err == nil {
		c.JSON(http.StatusOK, result)
		return
	}

	status, body := h.errorResponse(c, "RefundSale", err)
	body["message"] = result.Message
	body["restoredItems"] = result.RestoredItems
	c.JSON(status, body)
}
