package job

import (
	"context"

	"github.com/google/uuid"
)

// StatusUpdate is a requested transition.
type StatusUpdate struct {
	Status   Status
	Progress *float64
	Reason   string
}

// Repository is the persistence contract of jobs. The relational store is the
// single source of truth for job state.
type Repository interface {
	// CreatePending inserts a pending job together with its primary relation
	// in one transaction. When an active job already exists for the compound
	// it is returned with created=false.
	CreatePending(ctx context.Context, j *Job) (existing *Job, created bool, err error)

	// GetByID returns errors.ErrCodeJobNotFound when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*Job, error)

	// UpdateStatus applies u as a single compare-and-swap statement. A job
	// that is absent yields ErrCodeJobNotFound; an illegal transition yields
	// ErrCodeJobTransitionInvalid and leaves the row untouched.
	UpdateStatus(ctx context.Context, id uuid.UUID, u StatusUpdate) (*Job, error)

	// FindLatestByCompound returns the most recent job whose primary compound
	// is compoundID, skipping failed jobs when excludeFailed is set.
	FindLatestByCompound(ctx context.Context, compoundID uuid.UUID, excludeFailed bool) (*Job, error)

	// ListByCompound returns jobs whose primary compound is compoundID,
	// newest first.
	ListByCompound(ctx context.Context, compoundID uuid.UUID, limit int) ([]*Job, error)
}

//Personal.AI order the ending
