package compound

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the persistence contract of the compound registry.
type Repository interface {
	// Create inserts c. A structure that is already registered yields
	// errors.CodeConflict.
	Create(ctx context.Context, c *Compound) error

	// GetByID returns errors.ErrCodeCompoundNotFound when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*Compound, error)

	// GetByStructure looks up the exact structure string.
	GetByStructure(ctx context.Context, structure string) (*Compound, error)

	// ListByOwner returns up to limit compounds registered by ownerID,
	// newest first.
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]*Compound, error)

	// UpdateProperties overwrites the derived descriptors.
	UpdateProperties(ctx context.Context, id uuid.UUID, props Properties) error

	// SetExternalID stores externalID when none is set yet. It reports
	// whether the value was written.
	SetExternalID(ctx context.Context, id uuid.UUID, externalID string) (bool, error)

	// UpdateStatus changes the compound lifecycle status.
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error

	// Relate records the compound-job relation, enforcing a single primary
	// per job and a single active job per non-primary compound. Relating the
	// same pair twice is a no-op.
	Relate(ctx context.Context, compoundID, jobID uuid.UUID, isPrimary bool) error

	// LatestRelation returns the most recent relation of the compound in
	// either role. errors.ErrCodeJobNotFound when it was never related.
	LatestRelation(ctx context.Context, compoundID uuid.UUID) (*Relation, error)

	// ListRelations returns all relations of a job, primary first.
	ListRelations(ctx context.Context, jobID uuid.UUID) ([]Relation, error)

	// ListNonPrimary returns the non-primary compounds of a job, excluding
	// compounds that are the primary of some other job.
	ListNonPrimary(ctx context.Context, jobID uuid.UUID) ([]uuid.UUID, error)
}

//Personal.AI order the ending
