package testutil

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/turtacn/compound-analysis/internal/domain/bioactivity"
	"github.com/turtacn/compound-analysis/internal/domain/compound"
	"github.com/turtacn/compound-analysis/internal/domain/job"
	"github.com/turtacn/compound-analysis/internal/domain/result"
)

// ─────────────────────────────────────────────────────────────────────────────
// Repositories
// ─────────────────────────────────────────────────────────────────────────────

// MockCompoundRepository is a testify mock of compound.Repository.
type MockCompoundRepository struct {
	mock.Mock
}

var _ compound.Repository = (*MockCompoundRepository)(nil)

func (m *MockCompoundRepository) Create(ctx context.Context, c *compound.Compound) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockCompoundRepository) GetByID(ctx context.Context, id uuid.UUID) (*compound.Compound, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*compound.Compound), args.Error(1)
}

func (m *MockCompoundRepository) GetByStructure(ctx context.Context, structure string) (*compound.Compound, error) {
	args := m.Called(ctx, structure)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*compound.Compound), args.Error(1)
}

func (m *MockCompoundRepository) ListByOwner(ctx context.Context, ownerID string, limit int) ([]*compound.Compound, error) {
	args := m.Called(ctx, ownerID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*compound.Compound), args.Error(1)
}

func (m *MockCompoundRepository) UpdateProperties(ctx context.Context, id uuid.UUID, props compound.Properties) error {
	return m.Called(ctx, id, props).Error(0)
}

func (m *MockCompoundRepository) SetExternalID(ctx context.Context, id uuid.UUID, externalID string) (bool, error) {
	args := m.Called(ctx, id, externalID)
	return args.Bool(0), args.Error(1)
}

func (m *MockCompoundRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status compound.Status) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockCompoundRepository) Relate(ctx context.Context, compoundID, jobID uuid.UUID, isPrimary bool) error {
	return m.Called(ctx, compoundID, jobID, isPrimary).Error(0)
}

func (m *MockCompoundRepository) LatestRelation(ctx context.Context, compoundID uuid.UUID) (*compound.Relation, error) {
	args := m.Called(ctx, compoundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*compound.Relation), args.Error(1)
}

func (m *MockCompoundRepository) ListRelations(ctx context.Context, jobID uuid.UUID) ([]compound.Relation, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]compound.Relation), args.Error(1)
}

func (m *MockCompoundRepository) ListNonPrimary(ctx context.Context, jobID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

// MockJobRepository is a testify mock of job.Repository.
type MockJobRepository struct {
	mock.Mock
}

var _ job.Repository = (*MockJobRepository)(nil)

func (m *MockJobRepository) CreatePending(ctx context.Context, j *job.Job) (*job.Job, bool, error) {
	args := m.Called(ctx, j)
	var existing *job.Job
	if v := args.Get(0); v != nil {
		existing = v.(*job.Job)
	}
	return existing, args.Bool(1), args.Error(2)
}

func (m *MockJobRepository) GetByID(ctx context.Context, id uuid.UUID) (*job.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*job.Job), args.Error(1)
}

func (m *MockJobRepository) UpdateStatus(ctx context.Context, id uuid.UUID, u job.StatusUpdate) (*job.Job, error) {
	args := m.Called(ctx, id, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*job.Job), args.Error(1)
}

func (m *MockJobRepository) FindLatestByCompound(ctx context.Context, compoundID uuid.UUID, excludeFailed bool) (*job.Job, error) {
	args := m.Called(ctx, compoundID, excludeFailed)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*job.Job), args.Error(1)
}

func (m *MockJobRepository) ListByCompound(ctx context.Context, compoundID uuid.UUID, limit int) ([]*job.Job, error) {
	args := m.Called(ctx, compoundID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*job.Job), args.Error(1)
}

// ─────────────────────────────────────────────────────────────────────────────
// Result storage
// ─────────────────────────────────────────────────────────────────────────────

// MockResultStore is a testify mock of result.Store.
type MockResultStore struct {
	mock.Mock
}

var _ result.Store = (*MockResultStore)(nil)

func (m *MockResultStore) Upsert(ctx context.Context, jobID uuid.UUID, entry result.CompoundResult, isPrimary bool) error {
	return m.Called(ctx, jobID, entry, isPrimary).Error(0)
}

func (m *MockResultStore) Fetch(ctx context.Context, jobID uuid.UUID) (*result.Document, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*result.Document), args.Error(1)
}

// MockArchive is a testify mock of result.Archive. Put drains body so tests
// can assert on the uploaded bytes through Bodies.
type MockArchive struct {
	mock.Mock
	Bodies map[string][]byte
}

var _ result.Archive = (*MockArchive)(nil)

func (m *MockArchive) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	data, _ := io.ReadAll(body)
	if m.Bodies == nil {
		m.Bodies = map[string][]byte{}
	}
	m.Bodies[key] = data
	return m.Called(ctx, key, contentType, size).Error(0)
}

func (m *MockArchive) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, key, expiry)
	return args.String(0), args.Error(1)
}

// ─────────────────────────────────────────────────────────────────────────────
// Collaborators
// ─────────────────────────────────────────────────────────────────────────────

// MockSource mocks every bioactivity collaborator interface at once.
type MockSource struct {
	mock.Mock
}

var (
	_ bioactivity.SimilaritySource  = (*MockSource)(nil)
	_ bioactivity.BioactivitySource = (*MockSource)(nil)
	_ bioactivity.StructureToolkit  = (*MockSource)(nil)
	_ bioactivity.Resolver          = (*MockSource)(nil)
)

func (m *MockSource) FindSimilar(ctx context.Context, structure string, threshold float64) ([]bioactivity.CandidateRef, error) {
	args := m.Called(ctx, structure, threshold)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]bioactivity.CandidateRef), args.Error(1)
}

func (m *MockSource) FetchBioactivities(ctx context.Context, externalID string, types []string) ([]bioactivity.Measurement, error) {
	args := m.Called(ctx, externalID, types)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]bioactivity.Measurement), args.Error(1)
}

func (m *MockSource) StructureProps(ctx context.Context, structure, externalID string) (*compound.Properties, error) {
	args := m.Called(ctx, structure, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*compound.Properties), args.Error(1)
}

func (m *MockSource) Resolve(ctx context.Context, structure string) (*bioactivity.CandidateRef, error) {
	args := m.Called(ctx, structure)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bioactivity.CandidateRef), args.Error(1)
}

// ─────────────────────────────────────────────────────────────────────────────
// Fixtures
// ─────────────────────────────────────────────────────────────────────────────

func Float64Ptr(v float64) *float64 { return &v }
func IntPtr(v int) *int             { return &v }

// NewTestCompound builds a pending compound for structure.
func NewTestCompound(structure string) *compound.Compound {
	c, err := compound.NewCompound(structure, "", "tester")
	if err != nil {
		panic(err)
	}
	return c
}

//Personal.AI order the ending
