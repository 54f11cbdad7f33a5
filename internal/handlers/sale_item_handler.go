package handlers

import (
	"net/http"

	"nine-pos/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) AddSaleItem(c *gin.Context) {
	var req service.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data")
		return
	}

	item, err := h.Sales.AddItem(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, "AddSaleItem", err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *Handler) GetSaleItems(c *gin.Context) {
	saleID, ok := idParam(c, "saleId")
	if !ok {
		return
	}
	page, err := h.Sales.ListItems(c.Request.Context(), saleID, c.Query("search"), pageQuery(c))
	if err != nil {
		h.respondError(c, "GetSaleItems", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) DeleteSaleItem(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	restored, err := h.Sales.DeleteItem(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "DeleteSaleItem", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Sale item deleted, stock restored", "restoredItem": restored})
}
