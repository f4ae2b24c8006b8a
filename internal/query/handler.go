// Package query exposes the analytical operations over HTTP. Handlers map
// the engine's three-way outcome onto status codes: empty-result stays a 200
// with an empty envelope, schema errors become 422, internal failures 500.
package query

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/grubsight/grubsight/internal/core/analysis"
	"github.com/grubsight/grubsight/internal/core/dataset"
	httperr "github.com/grubsight/grubsight/internal/core/errors"
)

// Handler serves the direct query API.
type Handler struct {
	engine *analysis.Engine
}

// NewHandler creates the query handler.
func NewHandler(engine *analysis.Engine) *Handler {
	return &Handler{engine: engine}
}

// RegisterRoutes registers all query API routes on the given router.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/merchants/:merchant_id/popular-items", h.HandlePopularItems)
	r.GET("/v1/merchants/:merchant_id/low-performing-items", h.HandleLowPerformingItems)
	r.GET("/v1/merchants/:merchant_id/sales-summary", h.HandleSalesSummary)
	r.GET("/v1/cities/:city_id/popular-cuisines", h.HandlePopularCuisines)
}

// HandlePopularItems handles GET /v1/merchants/:merchant_id/popular-items?days=30
func (h *Handler) HandlePopularItems(c *gin.Context) {
	merchantID := c.Param("merchant_id")
	days, ok := intQuery(c, "days")
	if !ok {
		return
	}

	items, err := h.observe(analysis.OpPopularItems, func() (any, error) {
		return h.engine.PopularItems(merchantID, days)
	})
	if err != nil {
		h.writeOutcome(c, analysis.OpPopularItems, err, gin.H{
			"merchant_id": merchantID,
			"results":     []analysis.ItemRanking{},
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"merchant_id": merchantID, "results": items})
}

// HandleLowPerformingItems handles
// GET /v1/merchants/:merchant_id/low-performing-items?days=30&top_n=5
func (h *Handler) HandleLowPerformingItems(c *gin.Context) {
	merchantID := c.Param("merchant_id")
	days, ok := intQuery(c, "days")
	if !ok {
		return
	}
	topN, ok := intQuery(c, "top_n")
	if !ok {
		return
	}

	items, err := h.observe(analysis.OpLowPerformingItems, func() (any, error) {
		return h.engine.LowPerformingItems(merchantID, days, topN)
	})
	if err != nil {
		h.writeOutcome(c, analysis.OpLowPerformingItems, err, gin.H{
			"merchant_id": merchantID,
			"results":     []analysis.ItemRanking{},
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"merchant_id": merchantID, "results": items})
}

// HandleSalesSummary handles
// GET /v1/merchants/:merchant_id/sales-summary?period=last_30_days
func (h *Handler) HandleSalesSummary(c *gin.Context) {
	merchantID := c.Param("merchant_id")
	period := c.Query("period")

	summary, err := h.observe(analysis.OpSalesSummary, func() (any, error) {
		return h.engine.SalesSummary(merchantID, period)
	})
	if err != nil {
		h.writeOutcome(c, analysis.OpSalesSummary, err, gin.H{
			"merchant_id": merchantID,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"merchant_id": merchantID, "summary": summary})
}

// HandlePopularCuisines handles GET /v1/cities/:city_id/popular-cuisines?days=90
func (h *Handler) HandlePopularCuisines(c *gin.Context) {
	cityID := c.Param("city_id")
	days, ok := intQuery(c, "days")
	if !ok {
		return
	}

	cuisines, err := h.observe(analysis.OpPopularCuisines, func() (any, error) {
		return h.engine.PopularCuisines(cityID, days)
	})
	if err != nil {
		h.writeOutcome(c, analysis.OpPopularCuisines, err, gin.H{
			"city_id":  cityID,
			"cuisines": []string{},
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"city_id": cityID, "cuisines": cuisines})
}

// observe runs one engine call and records metrics for it.
func (h *Handler) observe(op string, fn func() (any, error)) (any, error) {
	start := time.Now()
	result, err := fn()
	queryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	queriesTotal.WithLabelValues(op, outcomeLabel(err)).Inc()
	return result, err
}

// writeOutcome maps a non-nil engine error onto the HTTP contract. emptyBody
// is the payload for the empty-result outcome.
func (h *Handler) writeOutcome(c *gin.Context, op string, err error, emptyBody gin.H) {
	var schemaErr *dataset.SchemaError
	switch {
	case errors.Is(err, analysis.ErrNoData):
		emptyBody["empty"] = true
		c.JSON(http.StatusOK, emptyBody)
	case errors.As(err, &schemaErr):
		c.JSON(http.StatusUnprocessableEntity, httperr.ErrorResponse{
			ErrorType: httperr.HttpSchemaError,
			Message:   "Dataset does not satisfy the analysis contract",
			Details:   schemaErr.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Analysis operation failed",
			Details:   op,
		})
	}
}

func outcomeLabel(err error) string {
	var schemaErr *dataset.SchemaError
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, analysis.ErrNoData):
		return outcomeEmpty
	case errors.As(err, &schemaErr):
		return outcomeSchemaError
	default:
		return outcomeInternalError
	}
}

// intQuery parses an optional positive integer query parameter. Zero means
// "not provided" and lets the engine apply its default. On a malformed value
// it writes a 400 and returns ok=false.
func intQuery(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidRequest,
			Message:   "Query parameter " + name + " must be a positive integer",
		})
		return 0, false
	}
	return n, true
}
