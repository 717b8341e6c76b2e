package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/turtacn/compound-analysis/internal/application/aggregator"
	"github.com/turtacn/compound-analysis/internal/application/orchestrator"
	"github.com/turtacn/compound-analysis/internal/application/query"
	"github.com/turtacn/compound-analysis/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/compound-analysis/internal/interfaces/http/middleware"
)

// JobHandler serves job submission, status and result endpoints.
type JobHandler struct {
	jobs    orchestrator.Service
	queries query.Service
	results aggregator.Service
	logger  logging.Logger
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(jobs orchestrator.Service, queries query.Service, results aggregator.Service, logger logging.Logger) *JobHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &JobHandler{
		jobs:    jobs,
		queries: queries,
		results: results,
		logger:  logger.Named("http.jobs"),
	}
}

// ExportResponse carries a presigned download link.
type ExportResponse struct {
	JobID  uuid.UUID `json:"job_id"`
	Format string    `json:"format"`
	URL    string    `json:"url"`
}

// RegisterRoutes mounts the job routes on rg.
func (h *JobHandler) RegisterRoutes(rg *gin.RouterGroup) {
	jobs := rg.Group("/jobs")
	jobs.POST("", h.Submit)
	jobs.GET("/:jobID", h.Get)
	jobs.GET("/:jobID/results", h.Results)
	jobs.GET("/:jobID/results/:compoundID", h.CompoundResult)
	jobs.GET("/:jobID/cliffs", h.Cliffs)
	jobs.GET("/:jobID/summary", h.Summary)
	jobs.GET("/:jobID/export", h.Export)
}

// Submit handles POST /api/v1/jobs. A new job answers 202, a reused one 200.
func (h *JobHandler) Submit(c *gin.Context) {
	var req orchestrator.SubmitRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.jobs.Submit(c.Request.Context(), req)
	if err != nil {
		middleware.WriteError(c, err)
		return
	}

	h.logger.Info("job submitted",
		logging.String("job_id", res.Job.ID.String()),
		logging.String("compound_id", res.Compound.ID.String()),
		logging.Bool("reused", res.Reused),
		logging.String("request_id", middleware.GetRequestID(c)))

	status := http.StatusAccepted
	if res.Reused {
		status = http.StatusOK
	}
	c.JSON(status, res)
}

// Get handles GET /api/v1/jobs/:jobID.
func (h *JobHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "jobID")
	if !ok {
		return
	}
	j, err := h.jobs.GetStatus(c.Request.Context(), id)
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, j)
}

// Results handles GET /api/v1/jobs/:jobID/results.
func (h *JobHandler) Results(c *gin.Context) {
	id, ok := pathUUID(c, "jobID")
	if !ok {
		return
	}
	doc, err := h.queries.JobResults(c.Request.Context(), id)
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// CompoundResult handles GET /api/v1/jobs/:jobID/results/:compoundID.
func (h *JobHandler) CompoundResult(c *gin.Context) {
	id, ok := pathUUID(c, "jobID")
	if !ok {
		return
	}
	entry, err := h.queries.CompoundResult(c.Request.Context(), id, c.Param("compoundID"))
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// Cliffs handles GET /api/v1/jobs/:jobID/cliffs?threshold=&significant_only=.
func (h *JobHandler) Cliffs(c *gin.Context) {
	id, ok := pathUUID(c, "jobID")
	if !ok {
		return
	}
	threshold, ok := queryFloat(c, "threshold")
	if !ok {
		return
	}
	sig, ok := queryBool(c, "significant_only")
	if !ok {
		return
	}

	report, err := h.queries.Cliffs(c.Request.Context(), id, query.CliffRequest{Threshold: threshold, SignificantOnly: sig})
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Summary handles GET /api/v1/jobs/:jobID/summary.
func (h *JobHandler) Summary(c *gin.Context) {
	id, ok := pathUUID(c, "jobID")
	if !ok {
		return
	}
	s, err := h.queries.Summary(c.Request.Context(), id)
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// Export handles GET /api/v1/jobs/:jobID/export?format=json|csv.
func (h *JobHandler) Export(c *gin.Context) {
	id, ok := pathUUID(c, "jobID")
	if !ok {
		return
	}
	format := strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", "json")))
	url, err := h.results.ExportURL(c.Request.Context(), id, format)
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, ExportResponse{JobID: id, Format: format, URL: url})
}

//Personal.AI order the ending
