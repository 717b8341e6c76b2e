package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/turtacn/compound-analysis/internal/application/orchestrator"
	"github.com/turtacn/compound-analysis/internal/application/query"
	"github.com/turtacn/compound-analysis/internal/domain/cliff"
	"github.com/turtacn/compound-analysis/internal/domain/compound"
	"github.com/turtacn/compound-analysis/internal/domain/efficiency"
	"github.com/turtacn/compound-analysis/internal/domain/job"
	"github.com/turtacn/compound-analysis/internal/domain/result"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// --- orchestrator.Service ---

type mockOrchestrator struct {
	mock.Mock
}

func (m *mockOrchestrator) Submit(ctx context.Context, req orchestrator.SubmitRequest) (*orchestrator.SubmitResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orchestrator.SubmitResult), args.Error(1)
}

func (m *mockOrchestrator) CreateJob(ctx context.Context, compoundID uuid.UUID, userID string, threshold float64) (*job.Job, bool, error) {
	args := m.Called(ctx, compoundID, userID, threshold)
	if args.Get(0) == nil {
		return nil, false, args.Error(2)
	}
	return args.Get(0).(*job.Job), args.Bool(1), args.Error(2)
}

func (m *mockOrchestrator) UpdateStatus(ctx context.Context, jobID uuid.UUID, status job.Status, progress *float64) (*job.Job, error) {
	args := m.Called(ctx, jobID, status, progress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*job.Job), args.Error(1)
}

func (m *mockOrchestrator) MarkFailed(ctx context.Context, jobID uuid.UUID, reason string) (*job.Job, error) {
	args := m.Called(ctx, jobID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*job.Job), args.Error(1)
}

func (m *mockOrchestrator) GetStatus(ctx context.Context, jobID uuid.UUID) (*job.Job, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*job.Job), args.Error(1)
}

func (m *mockOrchestrator) ListJobs(ctx context.Context, compoundID uuid.UUID, limit int) ([]*job.Job, error) {
	args := m.Called(ctx, compoundID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*job.Job), args.Error(1)
}

func (m *mockOrchestrator) LatestJobForCompound(ctx context.Context, compoundID uuid.UUID) (*job.Job, bool, error) {
	args := m.Called(ctx, compoundID)
	if args.Get(0) == nil {
		return nil, false, args.Error(2)
	}
	return args.Get(0).(*job.Job), args.Bool(1), args.Error(2)
}

// --- query.Service ---

type mockQuery struct {
	mock.Mock
}

func (m *mockQuery) JobResults(ctx context.Context, jobID uuid.UUID) (*result.Document, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*result.Document), args.Error(1)
}

func (m *mockQuery) CompoundResult(ctx context.Context, jobID uuid.UUID, compoundID string) (*result.CompoundResult, error) {
	args := m.Called(ctx, jobID, compoundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*result.CompoundResult), args.Error(1)
}

func (m *mockQuery) Summary(ctx context.Context, jobID uuid.UUID) (*result.Summary, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*result.Summary), args.Error(1)
}

func (m *mockQuery) Cliffs(ctx context.Context, jobID uuid.UUID, req query.CliffRequest) (*cliff.Report, error) {
	args := m.Called(ctx, jobID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cliff.Report), args.Error(1)
}

func (m *mockQuery) ResultsForCompound(ctx context.Context, compoundID uuid.UUID) (*query.CompoundResults, error) {
	args := m.Called(ctx, compoundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*query.CompoundResults), args.Error(1)
}

func (m *mockQuery) ComputeMetrics(req query.MetricsRequest) (efficiency.Metrics, error) {
	args := m.Called(req)
	return args.Get(0).(efficiency.Metrics), args.Error(1)
}

// --- aggregator.Service ---

type mockAggregator struct {
	mock.Mock
}

func (m *mockAggregator) Upsert(ctx context.Context, jobID uuid.UUID, entry result.CompoundResult, isPrimary bool) error {
	return m.Called(ctx, jobID, entry, isPrimary).Error(0)
}

func (m *mockAggregator) Fetch(ctx context.Context, jobID uuid.UUID) (*result.Document, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*result.Document), args.Error(1)
}

func (m *mockAggregator) FetchForCompound(ctx context.Context, jobID uuid.UUID, compoundID string) (*result.CompoundResult, error) {
	args := m.Called(ctx, jobID, compoundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*result.CompoundResult), args.Error(1)
}

func (m *mockAggregator) Archive(ctx context.Context, jobID uuid.UUID) error {
	return m.Called(ctx, jobID).Error(0)
}

func (m *mockAggregator) ExportURL(ctx context.Context, jobID uuid.UUID, format string) (string, error) {
	args := m.Called(ctx, jobID, format)
	return args.String(0), args.Error(1)
}

// --- registry.Service ---

type mockRegistry struct {
	mock.Mock
}

func (m *mockRegistry) RegisterOrReuse(ctx context.Context, structure, name, ownerID string) (*compound.Compound, bool, error) {
	args := m.Called(ctx, structure, name, ownerID)
	if args.Get(0) == nil {
		return nil, false, args.Error(2)
	}
	return args.Get(0).(*compound.Compound), args.Bool(1), args.Error(2)
}

func (m *mockRegistry) Get(ctx context.Context, id uuid.UUID) (*compound.Compound, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*compound.Compound), args.Error(1)
}

func (m *mockRegistry) AttachProperties(ctx context.Context, id uuid.UUID, props compound.Properties) error {
	return m.Called(ctx, id, props).Error(0)
}

func (m *mockRegistry) AttachExternalID(ctx context.Context, id uuid.UUID, externalID string) error {
	return m.Called(ctx, id, externalID).Error(0)
}

func (m *mockRegistry) SetStatus(ctx context.Context, id uuid.UUID, status compound.Status) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *mockRegistry) RelateToJob(ctx context.Context, compoundID, jobID uuid.UUID, isPrimary bool) error {
	return m.Called(ctx, compoundID, jobID, isPrimary).Error(0)
}

func (m *mockRegistry) ListNonPrimaryCompounds(ctx context.Context, jobID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *mockRegistry) ListByOwner(ctx context.Context, ownerID string, limit int) ([]*compound.Compound, error) {
	args := m.Called(ctx, ownerID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*compound.Compound), args.Error(1)
}

func (m *mockRegistry) LatestRelation(ctx context.Context, compoundID uuid.UUID) (*compound.Relation, error) {
	args := m.Called(ctx, compoundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*compound.Relation), args.Error(1)
}

//Personal.AI order the ending
