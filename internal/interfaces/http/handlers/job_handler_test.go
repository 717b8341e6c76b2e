package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/compound-analysis/internal/application/orchestrator"
	"github.com/turtacn/compound-analysis/internal/application/query"
	"github.com/turtacn/compound-analysis/internal/domain/cliff"
	"github.com/turtacn/compound-analysis/internal/domain/compound"
	"github.com/turtacn/compound-analysis/internal/domain/efficiency"
	"github.com/turtacn/compound-analysis/internal/domain/job"
	"github.com/turtacn/compound-analysis/internal/domain/result"
	"github.com/turtacn/compound-analysis/internal/interfaces/http/middleware"
	"github.com/turtacn/compound-analysis/internal/testutil"
	"github.com/turtacn/compound-analysis/pkg/errors"
)

type HandlerTestSuite struct {
	suite.Suite
	jobs     *mockOrchestrator
	queries  *mockQuery
	results  *mockAggregator
	registry *mockRegistry
	router   *gin.Engine
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}

func (s *HandlerTestSuite) SetupTest() {
	s.jobs = new(mockOrchestrator)
	s.queries = new(mockQuery)
	s.results = new(mockAggregator)
	s.registry = new(mockRegistry)

	s.router = gin.New()
	s.router.Use(middleware.RequestID())
	api := s.router.Group("/api/v1")
	NewJobHandler(s.jobs, s.queries, s.results, testutil.NewMockLogger()).RegisterRoutes(api)
	NewCompoundHandler(s.registry, s.jobs, s.queries).RegisterRoutes(api)
	NewMetricsHandler(s.queries).RegisterRoutes(api)
}

func (s *HandlerTestSuite) TearDownTest() {
	s.jobs.AssertExpectations(s.T())
	s.queries.AssertExpectations(s.T())
	s.results.AssertExpectations(s.T())
	s.registry.AssertExpectations(s.T())
}

func (s *HandlerTestSuite) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			s.Require().NoError(json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerTestSuite) decodeError(rec *httptest.ResponseRecorder) middleware.ErrorResponse {
	var body middleware.ErrorResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func newJob(status job.Status) *job.Job {
	now := time.Now().UTC()
	return &job.Job{
		ID:                  uuid.New(),
		CompoundID:          uuid.New(),
		Status:              status,
		SimilarityThreshold: 80,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

// --- Submit ---

func (s *HandlerTestSuite) TestSubmit_NewJob() {
	j := newJob(job.StatusPending)
	c := &compound.Compound{ID: j.CompoundID, Structure: "CCO", Status: compound.StatusPending}
	req := orchestrator.SubmitRequest{Structure: "CCO", Name: "ethanol", Threshold: testutil.Float64Ptr(70)}
	s.jobs.On("Submit", mock.Anything, req).Return(&orchestrator.SubmitResult{Job: j, Compound: c}, nil)

	rec := s.do(http.MethodPost, "/api/v1/jobs", req)

	s.Equal(http.StatusAccepted, rec.Code)
	var body orchestrator.SubmitResult
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Equal(j.ID, body.Job.ID)
	s.False(body.Reused)
}

func (s *HandlerTestSuite) TestSubmit_Reused() {
	j := newJob(job.StatusProcessing)
	c := &compound.Compound{ID: j.CompoundID, Structure: "CCO"}
	s.jobs.On("Submit", mock.Anything, mock.Anything).Return(&orchestrator.SubmitResult{Job: j, Compound: c, Reused: true}, nil)

	rec := s.do(http.MethodPost, "/api/v1/jobs", map[string]string{"structure": "CCO"})

	s.Equal(http.StatusOK, rec.Code)
}

func (s *HandlerTestSuite) TestSubmit_MissingStructure() {
	rec := s.do(http.MethodPost, "/api/v1/jobs", map[string]string{"name": "x"})

	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal(string(errors.ErrCodeBadRequest), s.decodeError(rec).Code)
	s.jobs.AssertNotCalled(s.T(), "Submit", mock.Anything, mock.Anything)
}

func (s *HandlerTestSuite) TestSubmit_ThresholdOutOfRange() {
	rec := s.do(http.MethodPost, "/api/v1/jobs", `{"structure":"CCO","similarity_threshold":140}`)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerTestSuite) TestSubmit_MalformedBody() {
	rec := s.do(http.MethodPost, "/api/v1/jobs", `{"structure":`)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerTestSuite) TestSubmit_InvalidStructure() {
	s.jobs.On("Submit", mock.Anything, mock.Anything).
		Return(nil, errors.New(errors.ErrCodeCompoundInvalidStructure, "invalid compound structure"))

	rec := s.do(http.MethodPost, "/api/v1/jobs", map[string]string{"structure": "C(("})

	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal(string(errors.ErrCodeCompoundInvalidStructure), s.decodeError(rec).Code)
}

func (s *HandlerTestSuite) TestSubmit_QueueFailureIsMasked() {
	s.jobs.On("Submit", mock.Anything, mock.Anything).
		Return(nil, errors.Wrap(errors.New(errors.ErrCodeInternal, "broker gone"), errors.ErrCodeMessageQueueError, "failed to publish submission"))

	rec := s.do(http.MethodPost, "/api/v1/jobs", map[string]string{"structure": "CCO"})

	s.Equal(http.StatusInternalServerError, rec.Code)
	body := s.decodeError(rec)
	s.Equal("message queue error", body.Message)
	s.NotEmpty(body.RequestID)
	s.NotContains(rec.Body.String(), "broker gone")
}

// --- Status ---

func (s *HandlerTestSuite) TestGet() {
	j := newJob(job.StatusProcessing)
	j.Progress = 0.5
	s.jobs.On("GetStatus", mock.Anything, j.ID).Return(j, nil)

	rec := s.do(http.MethodGet, "/api/v1/jobs/"+j.ID.String(), nil)

	s.Equal(http.StatusOK, rec.Code)
	var body job.Job
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Equal(job.StatusProcessing, body.Status)
	s.Equal(0.5, body.Progress)
}

func (s *HandlerTestSuite) TestGet_BadID() {
	rec := s.do(http.MethodGet, "/api/v1/jobs/not-a-uuid", nil)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerTestSuite) TestGet_NotFound() {
	id := uuid.New()
	s.jobs.On("GetStatus", mock.Anything, id).Return(nil, errors.New(errors.ErrCodeJobNotFound, "job not found"))

	rec := s.do(http.MethodGet, "/api/v1/jobs/"+id.String(), nil)

	s.Equal(http.StatusNotFound, rec.Code)
	s.Equal(string(errors.ErrCodeJobNotFound), s.decodeError(rec).Code)
}

// --- Results ---

func (s *HandlerTestSuite) TestResults() {
	id := uuid.New()
	doc := &result.Document{JobID: id, PrimaryCompound: &result.CompoundResult{CompoundID: "p"}, SimilarCompounds: []result.CompoundResult{}}
	s.queries.On("JobResults", mock.Anything, id).Return(doc, nil)

	rec := s.do(http.MethodGet, "/api/v1/jobs/"+id.String()+"/results", nil)

	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"compound_id":"p"`)
}

func (s *HandlerTestSuite) TestCompoundResult_NotFound() {
	id := uuid.New()
	s.queries.On("CompoundResult", mock.Anything, id, "missing").
		Return(nil, errors.New(errors.ErrCodeResultNotFound, "analysis result not found"))

	rec := s.do(http.MethodGet, "/api/v1/jobs/"+id.String()+"/results/missing", nil)

	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlerTestSuite) TestCliffs_QueryParameters() {
	id := uuid.New()
	report := &cliff.Report{Threshold: 1.5, TotalPairs: 3, SignificantPairs: 1, Pairs: []cliff.Pair{}}
	s.queries.On("Cliffs", mock.Anything, id, query.CliffRequest{Threshold: testutil.Float64Ptr(1.5), SignificantOnly: true}).Return(report, nil)

	rec := s.do(http.MethodGet, "/api/v1/jobs/"+id.String()+"/cliffs?threshold=1.5&significant_only=true", nil)

	s.Equal(http.StatusOK, rec.Code)
	var body cliff.Report
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Equal(3, body.TotalPairs)
}

func (s *HandlerTestSuite) TestCliffs_Defaults() {
	id := uuid.New()
	s.queries.On("Cliffs", mock.Anything, id, query.CliffRequest{}).Return(&cliff.Report{Threshold: 1}, nil)

	rec := s.do(http.MethodGet, "/api/v1/jobs/"+id.String()+"/cliffs", nil)

	s.Equal(http.StatusOK, rec.Code)
}

func (s *HandlerTestSuite) TestCliffs_BadThreshold() {
	rec := s.do(http.MethodGet, "/api/v1/jobs/"+uuid.NewString()+"/cliffs?threshold=abc", nil)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/jobs/"+uuid.NewString()+"/cliffs?significant_only=maybe", nil)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerTestSuite) TestSummary() {
	id := uuid.New()
	s.queries.On("Summary", mock.Anything, id).Return(&result.Summary{JobID: id, CompoundsProcessed: 3}, nil)

	rec := s.do(http.MethodGet, "/api/v1/jobs/"+id.String()+"/summary", nil)

	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"compounds_processed":3`)
}

func (s *HandlerTestSuite) TestExport() {
	id := uuid.New()
	s.results.On("ExportURL", mock.Anything, id, "csv").Return("https://minio/jobs/x.csv?sig", nil)

	rec := s.do(http.MethodGet, "/api/v1/jobs/"+id.String()+"/export?format=CSV", nil)

	s.Equal(http.StatusOK, rec.Code)
	var body ExportResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Equal("csv", body.Format)
	s.Equal("https://minio/jobs/x.csv?sig", body.URL)
}

func (s *HandlerTestSuite) TestExport_DefaultsToJSON() {
	id := uuid.New()
	s.results.On("ExportURL", mock.Anything, id, "json").Return("u", nil)

	rec := s.do(http.MethodGet, "/api/v1/jobs/"+id.String()+"/export", nil)

	s.Equal(http.StatusOK, rec.Code)
}

func (s *HandlerTestSuite) TestExport_NotArchived() {
	id := uuid.New()
	s.results.On("ExportURL", mock.Anything, id, "json").Return("", errors.New(errors.ErrCodeResultNotFound, "archive not found"))

	rec := s.do(http.MethodGet, "/api/v1/jobs/"+id.String()+"/export", nil)

	s.Equal(http.StatusNotFound, rec.Code)
}

// --- Compounds ---

func (s *HandlerTestSuite) TestCompoundList() {
	listed := []*compound.Compound{testutil.NewTestCompound("CCO"), testutil.NewTestCompound("CCN")}
	s.registry.On("ListByOwner", mock.Anything, "alice", 2).Return(listed, nil)

	rec := s.do(http.MethodGet, "/api/v1/compounds?owner=alice&limit=2", nil)

	s.Equal(http.StatusOK, rec.Code)
	var body struct {
		Compounds []compound.Compound `json:"compounds"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Require().Len(body.Compounds, 2)
	s.Equal("CCO", body.Compounds[0].Structure)
}

func (s *HandlerTestSuite) TestCompoundList_MissingOwner() {
	s.registry.On("ListByOwner", mock.Anything, "", 20).
		Return(nil, errors.InvalidParam("owner id is required"))

	rec := s.do(http.MethodGet, "/api/v1/compounds", nil)

	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerTestSuite) TestCompoundResults_SimilarCompound() {
	j := newJob(job.StatusCompleted)
	similarID := uuid.New()
	s.queries.On("ResultsForCompound", mock.Anything, similarID).Return(&query.CompoundResults{
		Job:   j,
		Entry: &result.CompoundResult{CompoundID: similarID.String(), Structure: "CCCO"},
	}, nil)

	rec := s.do(http.MethodGet, "/api/v1/compounds/"+similarID.String()+"/results", nil)

	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"is_primary":false`)
	s.Contains(rec.Body.String(), `"result":{`)
	s.NotContains(rec.Body.String(), `"results"`)
}

func (s *HandlerTestSuite) TestCompoundGet() {
	c := testutil.NewTestCompound("c1ccccc1")
	s.registry.On("Get", mock.Anything, c.ID).Return(c, nil)

	rec := s.do(http.MethodGet, "/api/v1/compounds/"+c.ID.String(), nil)

	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"structure":"c1ccccc1"`)
}

func (s *HandlerTestSuite) TestCompoundGet_NotFound() {
	id := uuid.New()
	s.registry.On("Get", mock.Anything, id).Return(nil, errors.New(errors.ErrCodeCompoundNotFound, "compound not found"))

	rec := s.do(http.MethodGet, "/api/v1/compounds/"+id.String(), nil)

	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlerTestSuite) TestCompoundResults_PendingJob() {
	j := newJob(job.StatusPending)
	s.queries.On("ResultsForCompound", mock.Anything, j.CompoundID).Return(&query.CompoundResults{Job: j}, nil)

	rec := s.do(http.MethodGet, "/api/v1/compounds/"+j.CompoundID.String()+"/results", nil)

	s.Equal(http.StatusOK, rec.Code)
	s.NotContains(rec.Body.String(), `"results"`)
}

func (s *HandlerTestSuite) TestCompoundJobs() {
	id := uuid.New()
	s.jobs.On("ListJobs", mock.Anything, id, 5).Return([]*job.Job{newJob(job.StatusCompleted)}, nil)

	rec := s.do(http.MethodGet, "/api/v1/compounds/"+id.String()+"/jobs?limit=5", nil)

	s.Equal(http.StatusOK, rec.Code)
	var body struct {
		Jobs []job.Job `json:"jobs"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Len(body.Jobs, 1)
}

func (s *HandlerTestSuite) TestCompoundJobs_BadLimit() {
	rec := s.do(http.MethodGet, "/api/v1/compounds/"+uuid.NewString()+"/jobs?limit=-1", nil)
	s.Equal(http.StatusBadRequest, rec.Code)
}

// --- Metrics ---

func (s *HandlerTestSuite) TestComputeMetrics() {
	req := query.MetricsRequest{ValueNM: 100, MolecularWeight: 500, PolarSurfaceArea: 100, HeavyAtoms: 35}
	s.queries.On("ComputeMetrics", req).Return(efficiency.Metrics{PActivity: 7, SEI: 7, BEI: 14}, nil)

	rec := s.do(http.MethodPost, "/api/v1/metrics/compute", req)

	s.Equal(http.StatusOK, rec.Code)
	var body efficiency.Metrics
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Equal(7.0, body.PActivity)
	s.Equal(14.0, body.BEI)
}

func (s *HandlerTestSuite) TestComputeMetrics_Negative() {
	rec := s.do(http.MethodPost, "/api/v1/metrics/compute", `{"value_nm":-1,"molecular_weight":300}`)

	s.Equal(http.StatusBadRequest, rec.Code)
	s.queries.AssertNotCalled(s.T(), "ComputeMetrics", mock.Anything)
}

//Personal.AI order the ending
