package redis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/compound-analysis/internal/domain/bioactivity"
	"github.com/turtacn/compound-analysis/internal/domain/efficiency"
	"github.com/turtacn/compound-analysis/internal/domain/result"
	"github.com/turtacn/compound-analysis/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/turtacn/compound-analysis/pkg/errors"
)

type ResultStoreTestSuite struct {
	suite.Suite
	mock  redismock.ClientMock
	store result.Store
	now   time.Time
	jobID uuid.UUID
}

func (s *ResultStoreTestSuite) SetupTest() {
	db, mock := redismock.NewClientMock()
	s.mock = mock
	s.now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.jobID = uuid.MustParse("8f14e45f-ceea-4c1e-9a3b-1f2d3c4b5a60")
	log := logging.NewNopLogger()
	s.store = NewResultStore(NewClientFromUniversal(db, "cpda:", log), log,
		WithClock(func() time.Time { return s.now }), WithResultTTL(24*time.Hour))
}

func (s *ResultStoreTestSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *ResultStoreTestSuite) key() string { return "cpda:results:" + s.jobID.String() }

func (s *ResultStoreTestSuite) encoded(entry result.CompoundResult) string {
	entry.UpdatedAt = s.now
	if entry.Results == nil {
		entry.Results = []bioactivity.ProcessedMeasurement{}
	}
	raw, err := json.Marshal(entry)
	s.Require().NoError(err)
	return string(raw)
}

func (s *ResultStoreTestSuite) TestUpsert_Similar() {
	sim := 91.5
	entry := result.CompoundResult{CompoundID: "c-2", ExternalID: "CHEMBL2", Similarity: &sim}
	ts := s.now.Format(time.RFC3339Nano)

	s.mock.ExpectTxPipeline()
	s.mock.ExpectHSet(s.key(), "similar:c-2", s.encoded(entry)).SetVal(1)
	s.mock.ExpectHSetNX(s.key(), "created_at", ts).SetVal(true)
	s.mock.ExpectHSet(s.key(), "updated_at", ts).SetVal(1)
	s.mock.ExpectExpire(s.key(), 24*time.Hour).SetVal(true)
	s.mock.ExpectTxPipelineExec()

	s.NoError(s.store.Upsert(context.Background(), s.jobID, entry, false))
}

func (s *ResultStoreTestSuite) TestUpsert_PrimaryUsesPrimaryField() {
	entry := result.CompoundResult{CompoundID: "c-1"}
	ts := s.now.Format(time.RFC3339Nano)

	s.mock.ExpectTxPipeline()
	s.mock.ExpectHSet(s.key(), "primary", s.encoded(entry)).SetVal(1)
	s.mock.ExpectHSetNX(s.key(), "created_at", ts).SetVal(false)
	s.mock.ExpectHSet(s.key(), "updated_at", ts).SetVal(0)
	s.mock.ExpectExpire(s.key(), 24*time.Hour).SetVal(true)
	s.mock.ExpectTxPipelineExec()

	s.NoError(s.store.Upsert(context.Background(), s.jobID, entry, true))
}

func (s *ResultStoreTestSuite) TestUpsert_RequiresCompoundID() {
	err := s.store.Upsert(context.Background(), s.jobID, result.CompoundResult{}, false)
	s.True(pkgerrors.IsValidation(err))
}

func (s *ResultStoreTestSuite) TestFetch_AssemblesDocument() {
	primary := result.CompoundResult{
		CompoundID: "c-1",
		Results: []bioactivity.ProcessedMeasurement{{
			TargetID: "CHEMBL240", ActivityType: "IC50", ValueNM: 10, Units: "nM",
			Metrics: efficiency.Compute(10, 300, 60, 20, 3),
		}},
	}
	ts := s.now.Format(time.RFC3339Nano)
	s.mock.ExpectHGetAll(s.key()).SetVal(map[string]string{
		"primary":       s.encoded(primary),
		"similar:c-3":   s.encoded(result.CompoundResult{CompoundID: "c-3"}),
		"similar:c-2":   s.encoded(result.CompoundResult{CompoundID: "c-2"}),
		"created_at":    ts,
		"updated_at":    ts,
		"unknown_field": "x",
	})

	doc, err := s.store.Fetch(context.Background(), s.jobID)
	s.Require().NoError(err)
	s.Equal(s.jobID, doc.JobID)
	s.Require().NotNil(doc.PrimaryCompound)
	s.Equal("c-1", doc.PrimaryCompound.CompoundID)
	s.InDelta(8.0, doc.PrimaryCompound.Results[0].Metrics.PActivity, 1e-9)
	s.Require().Len(doc.SimilarCompounds, 2)
	s.Equal("c-2", doc.SimilarCompounds[0].CompoundID)
	s.Equal("c-3", doc.SimilarCompounds[1].CompoundID)
	s.True(doc.CreatedAt.Equal(s.now))
}

func (s *ResultStoreTestSuite) TestFetch_NotFound() {
	s.mock.ExpectHGetAll(s.key()).SetVal(map[string]string{})

	_, err := s.store.Fetch(context.Background(), s.jobID)
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeResultNotFound))
}

func (s *ResultStoreTestSuite) TestFetch_StoreError() {
	s.mock.ExpectHGetAll(s.key()).SetErr(errors.New("timeout"))

	_, err := s.store.Fetch(context.Background(), s.jobID)
	s.True(pkgerrors.IsPersistence(err))
}

func TestResultStoreTestSuite(t *testing.T) {
	suite.Run(t, new(ResultStoreTestSuite))
}
