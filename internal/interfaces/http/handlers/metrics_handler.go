package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/compound-analysis/internal/application/query"
	"github.com/turtacn/compound-analysis/internal/interfaces/http/middleware"
)

// MetricsHandler computes efficiency metrics on demand.
type MetricsHandler struct {
	queries query.Service
}

func NewMetricsHandler(queries query.Service) *MetricsHandler {
	return &MetricsHandler{queries: queries}
}

func (h *MetricsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/metrics/compute", h.Compute)
}

// Compute handles POST /api/v1/metrics/compute.
func (h *MetricsHandler) Compute(c *gin.Context) {
	var req query.MetricsRequest
	if !bindJSON(c, &req) {
		return
	}
	m, err := h.queries.ComputeMetrics(req)
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

//Personal.AI order the ending
