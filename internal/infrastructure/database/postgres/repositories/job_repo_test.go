package repositories

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/compound-analysis/internal/domain/job"
	"github.com/turtacn/compound-analysis/internal/infrastructure/database/postgres"
	"github.com/turtacn/compound-analysis/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/compound-analysis/pkg/errors"
)

var jobCols = []string{"id", "compound_id", "user_id", "status", "progress", "similarity_threshold", "error", "created_at", "updated_at"}

type JobRepoTestSuite struct {
	suite.Suite
	mock sqlmock.Sqlmock
	db   *sql.DB
	repo job.Repository
}

func (s *JobRepoTestSuite) SetupTest() {
	var err error
	s.db, s.mock, err = sqlmock.New()
	s.Require().NoError(err)

	log := logging.NewNopLogger()
	s.repo = NewPostgresJobRepo(postgres.NewConnectionWithDB(s.db, log), log)
}

func (s *JobRepoTestSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
	s.db.Close()
}

func jobRow(j *job.Job) *sqlmock.Rows {
	var msg interface{}
	if j.Error != "" {
		msg = j.Error
	}
	return sqlmock.NewRows(jobCols).AddRow(j.ID.String(), j.CompoundID.String(), j.UserID, string(j.Status),
		j.Progress, j.SimilarityThreshold, msg, j.CreatedAt, j.UpdatedAt)
}

func (s *JobRepoTestSuite) TestCreatePending_Created() {
	j, err := job.NewJob(uuid.New(), "user-1", 80)
	s.Require().NoError(err)

	s.mock.ExpectBegin()
	s.mock.ExpectQuery("INSERT INTO analysis_jobs").
		WithArgs(j.ID, j.CompoundID, "user-1", "pending", 0.0, 80.0).
		WillReturnRows(jobRow(j))
	s.mock.ExpectExec("SELECT pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectQuery("SELECT is_primary").WillReturnRows(sqlmock.NewRows([]string{"is_primary"}))
	s.mock.ExpectQuery("SELECT compound_id FROM compound_job_relations").WillReturnRows(sqlmock.NewRows([]string{"compound_id"}))
	s.mock.ExpectExec("INSERT INTO compound_job_relations").
		WithArgs(j.CompoundID, j.ID, true).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	got, created, err := s.repo.CreatePending(context.Background(), j)
	s.Require().NoError(err)
	s.True(created)
	s.Equal(j.ID, got.ID)
	s.Equal(job.StatusPending, got.Status)
}

func (s *JobRepoTestSuite) TestCreatePending_ReturnsActiveJob() {
	active, _ := job.NewJob(uuid.New(), "", 70)
	active.Status = job.StatusProcessing
	active.Progress = 0.5
	j, _ := job.NewJob(active.CompoundID, "", 80)

	s.mock.ExpectBegin()
	s.mock.ExpectQuery("INSERT INTO analysis_jobs").WillReturnRows(sqlmock.NewRows(jobCols))
	s.mock.ExpectQuery("SELECT (.+) FROM analysis_jobs").
		WithArgs(active.CompoundID).
		WillReturnRows(jobRow(active))
	s.mock.ExpectCommit()

	got, created, err := s.repo.CreatePending(context.Background(), j)
	s.Require().NoError(err)
	s.False(created)
	s.Equal(active.ID, got.ID)
	s.Equal(0.5, got.Progress)
}

func (s *JobRepoTestSuite) TestCreatePending_UnknownCompound() {
	j, _ := job.NewJob(uuid.New(), "", 80)

	s.mock.ExpectBegin()
	s.mock.ExpectQuery("INSERT INTO analysis_jobs").WillReturnError(&pq.Error{Code: "23503"})
	s.mock.ExpectRollback()

	_, _, err := s.repo.CreatePending(context.Background(), j)
	s.True(errors.IsValidation(err))
}

func (s *JobRepoTestSuite) TestUpdateStatus_Applied() {
	j, _ := job.NewJob(uuid.New(), "", 80)
	j.Status = job.StatusProcessing
	j.Progress = 0.3
	p := 0.3

	s.mock.ExpectQuery("UPDATE analysis_jobs SET").
		WithArgs(j.ID, "processing", 0.3, "", sqlmock.AnyArg()).
		WillReturnRows(jobRow(j))

	got, err := s.repo.UpdateStatus(context.Background(), j.ID, job.StatusUpdate{Status: job.StatusProcessing, Progress: &p})
	s.Require().NoError(err)
	s.Equal(job.StatusProcessing, got.Status)
}

func (s *JobRepoTestSuite) TestUpdateStatus_TerminalRowUntouched() {
	id := uuid.New()
	s.mock.ExpectQuery("UPDATE analysis_jobs SET").
		WithArgs(id, "processing", nil, "", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(jobCols))
	s.mock.ExpectQuery("SELECT status FROM analysis_jobs").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("completed"))

	_, err := s.repo.UpdateStatus(context.Background(), id, job.StatusUpdate{Status: job.StatusProcessing})
	s.True(errors.IsCode(err, errors.ErrCodeJobTransitionInvalid))
}

func (s *JobRepoTestSuite) TestUpdateStatus_NotFound() {
	id := uuid.New()
	s.mock.ExpectQuery("UPDATE analysis_jobs SET").WillReturnRows(sqlmock.NewRows(jobCols))
	s.mock.ExpectQuery("SELECT status FROM analysis_jobs").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"status"}))

	_, err := s.repo.UpdateStatus(context.Background(), id, job.StatusUpdate{Status: job.StatusFailed, Reason: "boom"})
	s.True(errors.IsCode(err, errors.ErrCodeJobNotFound))
}

func (s *JobRepoTestSuite) TestUpdateStatus_RejectsPendingTarget() {
	_, err := s.repo.UpdateStatus(context.Background(), uuid.New(), job.StatusUpdate{Status: job.StatusPending})
	s.True(errors.IsCode(err, errors.ErrCodeJobTransitionInvalid))
}

func (s *JobRepoTestSuite) TestUpdateStatus_RejectsProgressOutOfRange() {
	p := 1.5
	_, err := s.repo.UpdateStatus(context.Background(), uuid.New(), job.StatusUpdate{Status: job.StatusProcessing, Progress: &p})
	s.True(errors.IsValidation(err))
}

func (s *JobRepoTestSuite) TestFindLatestByCompound_ExcludesFailed() {
	j, _ := job.NewJob(uuid.New(), "", 80)
	j.Status = job.StatusCompleted
	j.Progress = 1

	s.mock.ExpectQuery("WHERE compound_id = \\$1 AND status <> 'failed' ORDER BY created_at DESC").
		WithArgs(j.CompoundID).
		WillReturnRows(jobRow(j))

	got, err := s.repo.FindLatestByCompound(context.Background(), j.CompoundID, true)
	s.Require().NoError(err)
	s.Equal(j.ID, got.ID)
}

func (s *JobRepoTestSuite) TestFindLatestByCompound_None() {
	cid := uuid.New()
	s.mock.ExpectQuery("SELECT (.+) FROM analysis_jobs WHERE compound_id").
		WithArgs(cid).
		WillReturnRows(sqlmock.NewRows(jobCols))

	_, err := s.repo.FindLatestByCompound(context.Background(), cid, false)
	s.True(errors.IsNotFound(err))
}

func (s *JobRepoTestSuite) TestListByCompound_DefaultLimit() {
	cid := uuid.New()
	failed, _ := job.NewJob(cid, "", 80)
	failed.Status = job.StatusFailed
	failed.Error = "similarity search failed"
	failed.CreatedAt = time.Now().Add(-time.Hour)

	s.mock.ExpectQuery("SELECT (.+) FROM analysis_jobs").
		WithArgs(cid, defaultJobListLimit).
		WillReturnRows(jobRow(failed))

	jobs, err := s.repo.ListByCompound(context.Background(), cid, 0)
	s.Require().NoError(err)
	s.Require().Len(jobs, 1)
	s.Equal("similarity search failed", jobs[0].Error)
}

func TestJobRepoTestSuite(t *testing.T) {
	suite.Run(t, new(JobRepoTestSuite))
}
