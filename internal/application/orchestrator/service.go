// Package orchestrator owns the analysis job lifecycle: submission, creation,
// status transitions and lookup. The relational store is the only source of
// job state; every transition is a single compare-and-swap there.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/turtacn/compound-analysis/internal/application/registry"
	"github.com/turtacn/compound-analysis/internal/domain/compound"
	"github.com/turtacn/compound-analysis/internal/domain/job"
	kafkainfra "github.com/turtacn/compound-analysis/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/compound-analysis/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/compound-analysis/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/compound-analysis/pkg/errors"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// SubmissionPublisher hands a created job to the workers.
type SubmissionPublisher interface {
	PublishSubmission(ctx context.Context, m kafkainfra.SubmissionMessage) error
}

// SubmitRequest is a user request to analyse a structure.
type SubmitRequest struct {
	Structure string   `json:"structure" validate:"required,max=4096"`
	Name      string   `json:"name,omitempty" validate:"max=255"`
	OwnerID   string   `json:"owner_id,omitempty" validate:"max=255"`
	Threshold *float64 `json:"similarity_threshold,omitempty" validate:"omitempty,gte=0,lte=100"`
}

// SubmitResult reports the job serving a submission. Reused is set when an
// earlier job for the same structure was returned instead of a new one.
type SubmitResult struct {
	Job      *job.Job           `json:"job"`
	Compound *compound.Compound `json:"compound"`
	Reused   bool               `json:"reused"`
}

// Service is the job orchestrator.
type Service interface {
	Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error)
	// CreateJob inserts a pending job for an already registered compound.
	// When an active job exists for the compound it is returned with
	// created=false.
	CreateJob(ctx context.Context, compoundID uuid.UUID, userID string, threshold float64) (j *job.Job, created bool, err error)
	UpdateStatus(ctx context.Context, jobID uuid.UUID, status job.Status, progress *float64) (*job.Job, error)
	MarkFailed(ctx context.Context, jobID uuid.UUID, reason string) (*job.Job, error)
	GetStatus(ctx context.Context, jobID uuid.UUID) (*job.Job, error)
	ListJobs(ctx context.Context, compoundID uuid.UUID, limit int) ([]*job.Job, error)
	// LatestJobForCompound returns the most recent job the compound took
	// part in, as primary or as a similar compound. primary reports the
	// role.
	LatestJobForCompound(ctx context.Context, compoundID uuid.UUID) (j *job.Job, primary bool, err error)
}

// Options holds orchestrator tunables.
type Options struct {
	DefaultThreshold float64
	Metrics          *prometheus.AppMetrics
}

type service struct {
	jobs      job.Repository
	registry  registry.Service
	publisher SubmissionPublisher
	opts      Options
	logger    logging.Logger
}

// NewService builds the orchestrator. publisher may be nil for processes that
// never submit, such as the worker.
func NewService(jobs job.Repository, reg registry.Service, publisher SubmissionPublisher, opts Options, log logging.Logger) Service {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if opts.DefaultThreshold <= 0 {
		opts.DefaultThreshold = kafkainfra.DefaultSubmissionThreshold
	}
	return &service{
		jobs:      jobs,
		registry:  reg,
		publisher: publisher,
		opts:      opts,
		logger:    log.Named("orchestrator"),
	}
}

func (s *service) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	threshold := s.opts.DefaultThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	if err := job.ValidateThreshold(threshold); err != nil {
		return nil, err
	}
	if s.publisher == nil {
		return nil, errors.New(errors.ErrCodeMessageQueueError, "job submission is not configured")
	}

	c, reused, err := s.registry.RegisterOrReuse(ctx, req.Structure, req.Name, req.OwnerID)
	if err != nil {
		return nil, err
	}

	if reused {
		existing, err := s.jobs.FindLatestByCompound(ctx, c.ID, true)
		switch {
		case err == nil:
			s.opts.Metrics.RecordJobSubmitted(true)
			s.logger.Info("submission served by existing job",
				logging.String("job_id", existing.ID.String()),
				logging.String("compound_id", c.ID.String()),
				logging.String("status", string(existing.Status)))
			return &SubmitResult{Job: existing, Compound: c, Reused: true}, nil
		case !errors.IsNotFound(err):
			return nil, err
		}
	}

	j, created, err := s.CreateJob(ctx, c.ID, req.OwnerID, threshold)
	if err != nil {
		return nil, err
	}
	if !created {
		s.opts.Metrics.RecordJobSubmitted(true)
		return &SubmitResult{Job: j, Compound: c, Reused: true}, nil
	}

	msg := kafkainfra.SubmissionMessage{
		JobID:               j.ID.String(),
		CompoundID:          c.ID.String(),
		Structure:           c.Structure,
		SimilarityThreshold: &threshold,
		UserID:              req.OwnerID,
	}
	if err := s.publisher.PublishSubmission(ctx, msg); err != nil {
		reason := "failed to enqueue job: " + err.Error()
		if _, ferr := s.MarkFailed(ctx, j.ID, reason); ferr != nil {
			s.logger.Error("failed to mark unpublished job as failed",
				logging.String("job_id", j.ID.String()), logging.Err(ferr))
		}
		return nil, errors.Wrap(err, errors.ErrCodeMessageQueueError, "failed to enqueue job").
			WithDetail("job_id=" + j.ID.String())
	}

	s.opts.Metrics.RecordJobSubmitted(false)
	s.logger.Info("job submitted",
		logging.String("job_id", j.ID.String()),
		logging.String("compound_id", c.ID.String()),
		logging.Float64("threshold", threshold))
	return &SubmitResult{Job: j, Compound: c, Reused: false}, nil
}

func (s *service) CreateJob(ctx context.Context, compoundID uuid.UUID, userID string, threshold float64) (*job.Job, bool, error) {
	j, err := job.NewJob(compoundID, userID, threshold)
	if err != nil {
		return nil, false, err
	}
	if _, err := s.registry.Get(ctx, compoundID); err != nil {
		if errors.IsNotFound(err) {
			return nil, false, errors.InvalidParam("unknown compound").
				WithDetail("compound_id=" + compoundID.String())
		}
		return nil, false, err
	}

	existing, created, err := s.jobs.CreatePending(ctx, j)
	if err != nil {
		return nil, false, err
	}
	if !created {
		s.logger.Info("active job already exists",
			logging.String("job_id", existing.ID.String()),
			logging.String("compound_id", compoundID.String()))
		return existing, false, nil
	}
	s.opts.Metrics.RecordTransition(string(job.StatusPending))
	return j, true, nil
}

func (s *service) UpdateStatus(ctx context.Context, jobID uuid.UUID, status job.Status, progress *float64) (*job.Job, error) {
	return s.update(ctx, jobID, job.StatusUpdate{Status: status, Progress: progress})
}

func (s *service) MarkFailed(ctx context.Context, jobID uuid.UUID, reason string) (*job.Job, error) {
	return s.update(ctx, jobID, job.StatusUpdate{Status: job.StatusFailed, Reason: reason})
}

func (s *service) update(ctx context.Context, jobID uuid.UUID, u job.StatusUpdate) (*job.Job, error) {
	if !u.Status.IsValid() || u.Status == job.StatusPending {
		return nil, errors.InvalidParam("invalid target status").WithDetail(fmt.Sprintf("status=%s", u.Status))
	}
	if u.Progress != nil {
		if err := job.ValidateProgress(*u.Progress); err != nil {
			return nil, err
		}
	}
	j, err := s.jobs.UpdateStatus(ctx, jobID, u)
	if err != nil {
		return nil, err
	}
	s.opts.Metrics.RecordTransition(string(u.Status))
	if u.Status.IsTerminal() {
		s.logger.Info("job finished",
			logging.String("job_id", jobID.String()),
			logging.String("status", string(u.Status)),
			logging.String("reason", u.Reason))
	}
	return j, nil
}

func (s *service) GetStatus(ctx context.Context, jobID uuid.UUID) (*job.Job, error) {
	if jobID == uuid.Nil {
		return nil, errors.InvalidParam("job id is required")
	}
	return s.jobs.GetByID(ctx, jobID)
}

func (s *service) ListJobs(ctx context.Context, compoundID uuid.UUID, limit int) ([]*job.Job, error) {
	if compoundID == uuid.Nil {
		return nil, errors.InvalidParam("compound id is required")
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return s.jobs.ListByCompound(ctx, compoundID, limit)
}

func (s *service) LatestJobForCompound(ctx context.Context, compoundID uuid.UUID) (*job.Job, bool, error) {
	rel, err := s.registry.LatestRelation(ctx, compoundID)
	if err != nil {
		return nil, false, err
	}
	j, err := s.jobs.GetByID(ctx, rel.JobID)
	if err != nil {
		return nil, false, err
	}
	return j, rel.IsPrimary, nil
}

//Personal.AI order the ending
