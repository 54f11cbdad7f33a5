package handlers

import (
	"net/http"
	"time"

	"nine-pos/internal/service"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// --- GET: /api/products/salesreport?period=&startDate=&endDate=&format= ---
func (h *Handler) SalesReport(c *gin.Context) {
	format := c.DefaultQuery("format", "json")
	if format != "json" && format != "csv" && format != "xlsx" {
		badRequest(c, "format must be json, csv or xlsx")
		return
	}

	report, err := h.Reports.Sales(c.Request.Context(), service.ReportQuery{
		Period:    c.Query("period"),
		StartDate: c.Query("startDate"),
		EndDate:   c.Query("endDate"),
	})
	if err != nil {
		h.respondError(c, "SalesReport", err)
		return
	}

	switch format {
	case "csv":
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", "attachment; filename="+service.ReportFilename(time.Now(), "csv"))
		c.Status(http.StatusOK)
		if err := service.RenderCSV(c.Writer, report); err != nil {
			_ = c.Error(err)
		}
	case "xlsx":
		c.Header("Content-Type", xlsxContentType)
		c.Header("Content-Disposition", "attachment; filename="+service.ReportFilename(time.Now(), "xlsx"))
		c.Status(http.StatusOK)
		if err := service.RenderXLSX(c.Writer, report); err != nil {
			_ = c.Error(err)
		}
	default:
		c.JSON(http.StatusOK, report)
	}
}

// --- GET: /api/dashboard ---
func (h *Handler) GetDashboard(c *gin.Context) {
	summary, err := h.Dashboard.Summary(c.Request.Context())
	if err != nil {
		h.respondError(c, "GetDashboard", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
