// Package registry deduplicates compounds by structure and maintains their
// relations to analysis jobs.
package registry

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/turtacn/compound-analysis/internal/domain/compound"
	"github.com/turtacn/compound-analysis/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/compound-analysis/pkg/errors"
)

// Service is the compound registry.
type Service interface {
	// RegisterOrReuse returns the compound registered under the exact
	// structure, or registers a new pending one. reused reports the former.
	RegisterOrReuse(ctx context.Context, structure, name, ownerID string) (c *compound.Compound, reused bool, err error)
	Get(ctx context.Context, id uuid.UUID) (*compound.Compound, error)
	// ListByOwner returns the owner's compounds, newest first. A
	// non-positive limit uses the default.
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]*compound.Compound, error)
	AttachProperties(ctx context.Context, id uuid.UUID, props compound.Properties) error
	// AttachExternalID sets the external identifier once. Later calls are no-ops.
	AttachExternalID(ctx context.Context, id uuid.UUID, externalID string) error
	SetStatus(ctx context.Context, id uuid.UUID, status compound.Status) error
	RelateToJob(ctx context.Context, compoundID, jobID uuid.UUID, isPrimary bool) error
	ListNonPrimaryCompounds(ctx context.Context, jobID uuid.UUID) ([]uuid.UUID, error)
	// LatestRelation returns the compound's most recent job relation in
	// either role.
	LatestRelation(ctx context.Context, compoundID uuid.UUID) (*compound.Relation, error)
}

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type service struct {
	repo   compound.Repository
	logger logging.Logger
}

func NewService(repo compound.Repository, log logging.Logger) Service {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &service{repo: repo, logger: log.Named("registry")}
}

func (s *service) RegisterOrReuse(ctx context.Context, structure, name, ownerID string) (*compound.Compound, bool, error) {
	c, err := compound.NewCompound(structure, name, ownerID)
	if err != nil {
		return nil, false, err
	}

	existing, err := s.repo.GetByStructure(ctx, c.Structure)
	if err == nil {
		return existing, true, nil
	}
	if !errors.IsNotFound(err) {
		return nil, false, err
	}

	err = s.repo.Create(ctx, c)
	if err == nil {
		s.logger.Info("compound registered",
			logging.String("compound_id", c.ID.String()),
			logging.String("name", c.Name))
		return c, false, nil
	}
	if !errors.IsConflict(err) {
		return nil, false, err
	}

	// Lost an insert race on the structure index.
	existing, err = s.repo.GetByStructure(ctx, c.Structure)
	if err != nil {
		return nil, false, err
	}
	return existing, true, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*compound.Compound, error) {
	if id == uuid.Nil {
		return nil, errors.InvalidParam("compound id is required")
	}
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListByOwner(ctx context.Context, ownerID string, limit int) ([]*compound.Compound, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, errors.InvalidParam("owner id is required")
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return s.repo.ListByOwner(ctx, ownerID, limit)
}

func (s *service) AttachProperties(ctx context.Context, id uuid.UUID, props compound.Properties) error {
	if err := props.Validate(); err != nil {
		return err
	}
	return s.repo.UpdateProperties(ctx, id, props)
}

func (s *service) AttachExternalID(ctx context.Context, id uuid.UUID, externalID string) error {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return errors.InvalidParam("external id is required")
	}
	written, err := s.repo.SetExternalID(ctx, id, externalID)
	if err != nil {
		return err
	}
	if !written {
		s.logger.Debug("external id already set",
			logging.String("compound_id", id.String()),
			logging.String("external_id", externalID))
	}
	return nil
}

func (s *service) SetStatus(ctx context.Context, id uuid.UUID, status compound.Status) error {
	if !status.IsValid() {
		return errors.InvalidParam("invalid compound status").WithDetail("status=" + string(status))
	}
	return s.repo.UpdateStatus(ctx, id, status)
}

func (s *service) RelateToJob(ctx context.Context, compoundID, jobID uuid.UUID, isPrimary bool) error {
	if compoundID == uuid.Nil || jobID == uuid.Nil {
		return errors.InvalidParam("compound id and job id are required")
	}
	return s.repo.Relate(ctx, compoundID, jobID, isPrimary)
}

func (s *service) ListNonPrimaryCompounds(ctx context.Context, jobID uuid.UUID) ([]uuid.UUID, error) {
	return s.repo.ListNonPrimary(ctx, jobID)
}

func (s *service) LatestRelation(ctx context.Context, compoundID uuid.UUID) (*compound.Relation, error) {
	if compoundID == uuid.Nil {
		return nil, errors.InvalidParam("compound id is required")
	}
	return s.repo.LatestRelation(ctx, compoundID)
}

//Personal.AI order the ending
