package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/compound-analysis/internal/application/orchestrator"
	"github.com/turtacn/compound-analysis/internal/application/query"
	"github.com/turtacn/compound-analysis/internal/application/registry"
	"github.com/turtacn/compound-analysis/internal/interfaces/http/middleware"
)

const defaultListLimit = 20

// CompoundHandler serves compound lookups.
type CompoundHandler struct {
	registry registry.Service
	jobs     orchestrator.Service
	queries  query.Service
}

// NewCompoundHandler creates a new CompoundHandler.
func NewCompoundHandler(reg registry.Service, jobs orchestrator.Service, queries query.Service) *CompoundHandler {
	return &CompoundHandler{registry: reg, jobs: jobs, queries: queries}
}

// RegisterRoutes mounts the compound routes on rg.
func (h *CompoundHandler) RegisterRoutes(rg *gin.RouterGroup) {
	compounds := rg.Group("/compounds")
	compounds.GET("", h.List)
	compounds.GET("/:compoundID", h.Get)
	compounds.GET("/:compoundID/results", h.Results)
	compounds.GET("/:compoundID/jobs", h.Jobs)
}

// List handles GET /api/v1/compounds?owner=&limit=.
func (h *CompoundHandler) List(c *gin.Context) {
	limit, ok := queryInt(c, "limit", defaultListLimit)
	if !ok {
		return
	}
	compounds, err := h.registry.ListByOwner(c.Request.Context(), c.Query("owner"), limit)
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"compounds": compounds})
}

// Get handles GET /api/v1/compounds/:compoundID.
func (h *CompoundHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "compoundID")
	if !ok {
		return
	}
	cmp, err := h.registry.Get(c.Request.Context(), id)
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, cmp)
}

// Results handles GET /api/v1/compounds/:compoundID/results. The latest job
// is returned even when its results are not written yet.
func (h *CompoundHandler) Results(c *gin.Context) {
	id, ok := pathUUID(c, "compoundID")
	if !ok {
		return
	}
	res, err := h.queries.ResultsForCompound(c.Request.Context(), id)
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Jobs handles GET /api/v1/compounds/:compoundID/jobs?limit=.
func (h *CompoundHandler) Jobs(c *gin.Context) {
	id, ok := pathUUID(c, "compoundID")
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", defaultListLimit)
	if !ok {
		return
	}
	jobs, err := h.jobs.ListJobs(c.Request.Context(), id, limit)
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

//Personal.AI order the ending
