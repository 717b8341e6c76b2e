// Package job defines the analysis job and its status state machine.
//
// Status only moves forward: pending → processing → completed | failed, with
// pending → failed allowed for submissions rejected during validation.
// Progress never decreases and a terminal job is never modified again.
package job

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/compound-analysis/pkg/errors"
)

// Status is the processing status of a job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Progress milestones reported by the worker.
const (
	ProgressQueued         = 0.0
	ProgressStarted        = 0.2
	ProgressPrimaryFetched = 0.3
	ProgressPrimaryStored  = 0.5
	ProgressSimilarDone    = 0.9
	ProgressDone           = 1.0
)

// MinThreshold and MaxThreshold bound the similarity threshold, a percentage.
const (
	MinThreshold = 0.0
	MaxThreshold = 100.0
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// IsActive reports whether the job still awaits or undergoes processing.
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusProcessing
}

// predecessors lists, for each target status, the states it may be entered
// from. processing → processing carries progress updates.
var predecessors = map[Status][]Status{
	StatusProcessing: {StatusPending, StatusProcessing},
	StatusCompleted:  {StatusProcessing},
	StatusFailed:     {StatusPending, StatusProcessing},
}

// AllowedPredecessors returns the states from which target may be entered.
// pending is only ever the initial state, so it has none.
func AllowedPredecessors(target Status) []Status {
	return append([]Status(nil), predecessors[target]...)
}

// CanTransition reports whether from → to is legal.
func CanTransition(from, to Status) bool {
	for _, s := range predecessors[to] {
		if s == from {
			return true
		}
	}
	return false
}

// ValidateThreshold rejects similarity thresholds outside [0, 100].
func ValidateThreshold(threshold float64) error {
	if threshold < MinThreshold || threshold > MaxThreshold || threshold != threshold {
		return errors.New(errors.ErrCodeJobThresholdInvalid, "similarity threshold must be between 0 and 100").
			WithDetail(fmt.Sprintf("threshold=%v", threshold))
	}
	return nil
}

// ValidateProgress rejects progress values outside [0, 1].
func ValidateProgress(progress float64) error {
	if progress < 0 || progress > 1 || progress != progress {
		return errors.InvalidParam("progress must be between 0 and 1").
			WithDetail(fmt.Sprintf("progress=%v", progress))
	}
	return nil
}

// Job is one analysis run for a primary compound.
type Job struct {
	ID                  uuid.UUID `json:"id"`
	CompoundID          uuid.UUID `json:"compound_id"`
	UserID              string    `json:"user_id,omitempty"`
	Status              Status    `json:"status"`
	Progress            float64   `json:"progress"`
	SimilarityThreshold float64   `json:"similarity_threshold"`
	Error               string    `json:"error,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// NewJob builds a pending job for compoundID.
func NewJob(compoundID uuid.UUID, userID string, threshold float64) (*Job, error) {
	if compoundID == uuid.Nil {
		return nil, errors.InvalidParam("compound id is required")
	}
	if err := ValidateThreshold(threshold); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &Job{
		ID:                  uuid.New(),
		CompoundID:          compoundID,
		UserID:              userID,
		Status:              StatusPending,
		Progress:            ProgressQueued,
		SimilarityThreshold: threshold,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

// Apply performs the transition in memory with the same rules the
// repository enforces in storage. A nil progress keeps the current value;
// completed always forces progress to 1.
func (j *Job) Apply(to Status, progress *float64, reason string) error {
	if !CanTransition(j.Status, to) {
		return errors.New(errors.ErrCodeJobTransitionInvalid, "job status transition rejected").
			WithDetail(fmt.Sprintf("id=%s from=%s to=%s", j.ID, j.Status, to))
	}
	if progress != nil {
		if err := ValidateProgress(*progress); err != nil {
			return err
		}
		if *progress > j.Progress {
			j.Progress = *progress
		}
	}
	if to == StatusCompleted {
		j.Progress = ProgressDone
	}
	if to == StatusFailed && reason != "" {
		j.Error = reason
	}
	j.Status = to
	j.UpdatedAt = time.Now().UTC()
	return nil
}

//Personal.AI order the ending
