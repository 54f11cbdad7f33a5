package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"nine-pos/internal/auth"
	"nine-pos/internal/logging"
	"nine-pos/internal/middleware"
	"nine-pos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Assistant answers free-text questions. nil disables /api/ask.
type Assistant interface {
	Ask(ctx context.Context, message string) (string, error)
}

// Handler holds the services the HTTP layer calls into.
type Handler struct {
	Products  *service.ProductService
	Inventory *service.InventoryService
	Sales     *service.SaleService
	Reports   *service.ReportService
	Users     *service.UserService
	Dashboard *service.DashboardService
	Assistant Assistant
	Tokens    *auth.TokenManager
	Log       *logrus.Logger
}

// errorResponse maps the service error taxonomy to a status code and body.
// Anything outside it is logged and reported as an opaque 500.
func (h *Handler) errorResponse(c *gin.Context, funcName string, err error) (int, gin.H) {
	var (
		ve  *service.ValidationError
		nf  *service.NotFoundError
		ins *service.InsufficientStockError
		az  *service.AuthorizationError
	)
	switch {
	case errors.As(err, &ve):
		body := gin.H{"error": ve.Message}
		if ve.Field != "" {
			body["field"] = ve.Field
		}
		return http.StatusBadRequest, body
	case errors.As(err, &nf):
		return http.StatusNotFound, gin.H{"error": nf.Error()}
	case errors.As(err, &ins):
		return http.StatusBadRequest, gin.H{
			"error":     ins.Error(),
			"productId": ins.ProductID,
			"available": ins.Available,
			"requested": ins.Requested,
		}
	case errors.As(err, &az):
		return http.StatusForbidden, gin.H{"error": az.Message}
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, gin.H{"error": "Invalid credentials"}
	}
	logging.LogError(h.Log, "handlers", funcName, c.FullPath(), nil, err)
	return http.StatusInternalServerError, gin.H{"error": "Internal server error"}
}

func (h *Handler) respondError(c *gin.Context, funcName string, err error) {
	status, body := h.errorResponse(c, funcName, err)
	c.JSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func currentActor(c *gin.Context) service.Actor {
	return service.Actor{ID: c.GetUint(middleware.CtxUserID), Role: c.GetString(middleware.CtxRole)}
}

func pageQuery(c *gin.Context) service.Page {
	number, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return service.Page{Number: number, Limit: limit}
}

// queryParser collects optional query values and remembers the first
// malformed one.
type queryParser struct {
	c   *gin.Context
	bad string
}

func (q *queryParser) optUint(key string) uint {
	v := q.c.Query(key)
	if v == "" {
		return 0
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		q.fail(key)
		return 0
	}
	return uint(n)
}

func (q *queryParser) optInt(key string) *int {
	v := q.c.Query(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		q.fail(key)
		return nil
	}
	return &n
}

func (q *queryParser) optDecimal(key string) *decimal.Decimal {
	v := q.c.Query(key)
	if v == "" {
		return nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		q.fail(key)
		return nil
	}
	return &d
}

// optDate accepts YYYY-MM-DD or RFC 3339. A date-only upper bound covers
// the whole day.
func (q *queryParser) optDate(key string, upper bool) *time.Time {
	v := q.c.Query(key)
	if v == "" {
		return nil
	}
	t, err := service.ParseDateBound(v, time.Local, upper)
	if err != nil {
		q.fail(key)
		return nil
	}
	return &t
}

func (q *queryParser) fail(key string) {
	if q.bad == "" {
		q.bad = key
	}
}

// ok writes a 400 naming the first bad parameter when there was one.
func (q *queryParser) ok() bool {
	if q.bad == "" {
		return true
	}
	badRequest(q.c, "Invalid query parameter: "+q.bad)
	return false
}
