package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/compound-analysis/internal/domain/compound"
	"github.com/turtacn/compound-analysis/internal/domain/job"
	"github.com/turtacn/compound-analysis/internal/domain/result"
	"github.com/turtacn/compound-analysis/pkg/errors"
)

// MemCompoundRepository is an in-memory compound.Repository with the same
// uniqueness and relation rules as the relational store.
type MemCompoundRepository struct {
	mu        sync.Mutex
	compounds map[uuid.UUID]*compound.Compound
	relations []compound.Relation
	jobs      *MemJobRepository
}

// MemJobRepository is an in-memory job.Repository enforcing the status
// state machine.
type MemJobRepository struct {
	mu        sync.Mutex
	jobs      map[uuid.UUID]*job.Job
	order     []uuid.UUID
	history   map[uuid.UUID][]job.Job
	compounds *MemCompoundRepository
}

// NewMemRepositories returns a linked compound and job repository pair.
func NewMemRepositories() (*MemCompoundRepository, *MemJobRepository) {
	c := &MemCompoundRepository{compounds: map[uuid.UUID]*compound.Compound{}}
	j := &MemJobRepository{jobs: map[uuid.UUID]*job.Job{}, history: map[uuid.UUID][]job.Job{}}
	c.jobs, j.compounds = j, c
	return c, j
}

// NewMemJobRepository returns a job repository that records no relations.
func NewMemJobRepository() *MemJobRepository {
	return &MemJobRepository{jobs: map[uuid.UUID]*job.Job{}, history: map[uuid.UUID][]job.Job{}}
}

var (
	_ compound.Repository = (*MemCompoundRepository)(nil)
	_ job.Repository      = (*MemJobRepository)(nil)
)

func compoundNotFound(id string) error {
	return errors.New(errors.ErrCodeCompoundNotFound, "compound not found").WithDetail(id)
}

func copyCompound(c *compound.Compound) *compound.Compound {
	out := *c
	if c.Properties != nil {
		p := *c.Properties
		out.Properties = &p
	}
	if c.ExternalID != nil {
		e := *c.ExternalID
		out.ExternalID = &e
	}
	return &out
}

func (r *MemCompoundRepository) Create(_ context.Context, c *compound.Compound) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.compounds {
		if existing.Structure == c.Structure {
			return errors.Conflict("structure already registered").WithDetail("structure=" + c.Structure)
		}
	}
	r.compounds[c.ID] = copyCompound(c)
	return nil
}

func (r *MemCompoundRepository) GetByID(_ context.Context, id uuid.UUID) (*compound.Compound, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.compounds[id]
	if !ok {
		return nil, compoundNotFound("id=" + id.String())
	}
	return copyCompound(c), nil
}

func (r *MemCompoundRepository) GetByStructure(_ context.Context, structure string) (*compound.Compound, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.compounds {
		if c.Structure == structure {
			return copyCompound(c), nil
		}
	}
	return nil, compoundNotFound("structure=" + structure)
}

func (r *MemCompoundRepository) ListByOwner(_ context.Context, ownerID string, limit int) ([]*compound.Compound, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*compound.Compound{}
	for _, c := range r.compounds {
		if c.OwnerID == ownerID {
			out = append(out, copyCompound(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemCompoundRepository) mutate(id uuid.UUID, fn func(c *compound.Compound)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.compounds[id]
	if !ok {
		return compoundNotFound("id=" + id.String())
	}
	fn(c)
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemCompoundRepository) UpdateProperties(_ context.Context, id uuid.UUID, props compound.Properties) error {
	return r.mutate(id, func(c *compound.Compound) { c.Properties = &props })
}

func (r *MemCompoundRepository) SetExternalID(_ context.Context, id uuid.UUID, externalID string) (bool, error) {
	written := false
	err := r.mutate(id, func(c *compound.Compound) {
		if c.ExternalID == nil {
			c.ExternalID = &externalID
			written = true
		}
	})
	return written, err
}

func (r *MemCompoundRepository) UpdateStatus(_ context.Context, id uuid.UUID, status compound.Status) error {
	return r.mutate(id, func(c *compound.Compound) { c.Status = status })
}

func (r *MemCompoundRepository) Relate(_ context.Context, compoundID, jobID uuid.UUID, isPrimary bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.compounds[compoundID]; !ok {
		return errors.New(errors.ErrCodeValidation, "unknown compound or job")
	}
	for _, rel := range r.relations {
		if rel.CompoundID == compoundID && rel.JobID == jobID {
			if rel.IsPrimary == isPrimary {
				return nil
			}
			return errors.Conflict("compound already related to job with another role")
		}
	}
	for _, rel := range r.relations {
		if isPrimary && rel.JobID == jobID && rel.IsPrimary {
			return errors.New(errors.ErrCodeJobPrimaryConflict, "job already has a primary compound")
		}
		if !isPrimary && !rel.IsPrimary && rel.CompoundID == compoundID && rel.JobID != jobID && r.jobActive(rel.JobID) {
			return errors.New(errors.ErrCodeCompoundRelationConflict, "compound is used by another active job")
		}
	}
	r.relations = append(r.relations, compound.Relation{
		CompoundID: compoundID, JobID: jobID, IsPrimary: isPrimary, CreatedAt: time.Now().UTC(),
	})
	return nil
}

func (r *MemCompoundRepository) jobActive(jobID uuid.UUID) bool {
	if r.jobs == nil {
		return true
	}
	r.jobs.mu.Lock()
	defer r.jobs.mu.Unlock()
	j, ok := r.jobs.jobs[jobID]
	return !ok || j.Status.IsActive()
}

func (r *MemCompoundRepository) LatestRelation(_ context.Context, compoundID uuid.UUID) (*compound.Relation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.relations) - 1; i >= 0; i-- {
		if r.relations[i].CompoundID == compoundID {
			rel := r.relations[i]
			return &rel, nil
		}
	}
	return nil, errors.New(errors.ErrCodeJobNotFound, "compound is not related to any job").
		WithDetail("compound_id=" + compoundID.String())
}

func (r *MemCompoundRepository) ListRelations(_ context.Context, jobID uuid.UUID) ([]compound.Relation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []compound.Relation{}
	for _, rel := range r.relations {
		if rel.JobID == jobID {
			out = append(out, rel)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].IsPrimary && !out[j].IsPrimary })
	return out, nil
}

func (r *MemCompoundRepository) ListNonPrimary(_ context.Context, jobID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	primaryElsewhere := map[uuid.UUID]bool{}
	for _, rel := range r.relations {
		if rel.IsPrimary && rel.JobID != jobID {
			primaryElsewhere[rel.CompoundID] = true
		}
	}
	out := []uuid.UUID{}
	for _, rel := range r.relations {
		if rel.JobID == jobID && !rel.IsPrimary && !primaryElsewhere[rel.CompoundID] {
			out = append(out, rel.CompoundID)
		}
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Jobs
// ─────────────────────────────────────────────────────────────────────────────

func jobNotFound(id uuid.UUID) error {
	return errors.New(errors.ErrCodeJobNotFound, "job not found").WithDetail("id=" + id.String())
}

func (r *MemJobRepository) CreatePending(ctx context.Context, j *job.Job) (*job.Job, bool, error) {
	r.mu.Lock()
	for _, id := range r.order {
		existing := r.jobs[id]
		if existing.CompoundID == j.CompoundID && existing.Status.IsActive() {
			cp := *existing
			r.mu.Unlock()
			return &cp, false, nil
		}
	}
	cp := *j
	r.jobs[j.ID] = &cp
	r.order = append(r.order, j.ID)
	r.history[j.ID] = append(r.history[j.ID], cp)
	r.mu.Unlock()

	if r.compounds != nil {
		if err := r.compounds.Relate(ctx, j.CompoundID, j.ID, true); err != nil {
			r.mu.Lock()
			delete(r.jobs, j.ID)
			r.order = r.order[:len(r.order)-1]
			r.mu.Unlock()
			return nil, false, err
		}
	}
	return j, true, nil
}

func (r *MemJobRepository) GetByID(_ context.Context, id uuid.UUID) (*job.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, jobNotFound(id)
	}
	cp := *j
	return &cp, nil
}

func (r *MemJobRepository) UpdateStatus(_ context.Context, id uuid.UUID, u job.StatusUpdate) (*job.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, jobNotFound(id)
	}
	next := *j
	if err := next.Apply(u.Status, u.Progress, u.Reason); err != nil {
		return nil, err
	}
	*j = next
	r.history[id] = append(r.history[id], next)
	return &next, nil
}

func (r *MemJobRepository) FindLatestByCompound(_ context.Context, compoundID uuid.UUID, excludeFailed bool) (*job.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.order) - 1; i >= 0; i-- {
		j := r.jobs[r.order[i]]
		if j.CompoundID != compoundID || (excludeFailed && j.Status == job.StatusFailed) {
			continue
		}
		cp := *j
		return &cp, nil
	}
	return nil, errors.New(errors.ErrCodeJobNotFound, "no job for compound").WithDetail("compound_id=" + compoundID.String())
}

func (r *MemJobRepository) ListByCompound(_ context.Context, compoundID uuid.UUID, limit int) ([]*job.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*job.Job{}
	for i := len(r.order) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		j := r.jobs[r.order[i]]
		if j.CompoundID == compoundID {
			cp := *j
			out = append(out, &cp)
		}
	}
	return out, nil
}

// History returns every stored state of the job, oldest first.
func (r *MemJobRepository) History(id uuid.UUID) []job.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]job.Job(nil), r.history[id]...)
}

// ─────────────────────────────────────────────────────────────────────────────
// Results
// ─────────────────────────────────────────────────────────────────────────────

// MemResultStore is an in-memory result.Store.
type MemResultStore struct {
	mu   sync.Mutex
	docs map[uuid.UUID]*result.Document
}

var _ result.Store = (*MemResultStore)(nil)

func NewMemResultStore() *MemResultStore {
	return &MemResultStore{docs: map[uuid.UUID]*result.Document{}}
}

func (s *MemResultStore) Upsert(_ context.Context, jobID uuid.UUID, entry result.CompoundResult, isPrimary bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	d, ok := s.docs[jobID]
	if !ok {
		d = &result.Document{JobID: jobID, SimilarCompounds: []result.CompoundResult{}, CreatedAt: now}
		s.docs[jobID] = d
	}
	d.UpdatedAt = now
	if isPrimary {
		d.PrimaryCompound = &entry
		return nil
	}
	for i := range d.SimilarCompounds {
		if d.SimilarCompounds[i].CompoundID == entry.CompoundID {
			d.SimilarCompounds[i] = entry
			return nil
		}
	}
	d.SimilarCompounds = append(d.SimilarCompounds, entry)
	return nil
}

func (s *MemResultStore) Fetch(_ context.Context, jobID uuid.UUID) (*result.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[jobID]
	if !ok {
		return nil, errors.New(errors.ErrCodeResultNotFound, "no results for job").WithDetail("job_id=" + jobID.String())
	}
	cp := *d
	cp.SimilarCompounds = append([]result.CompoundResult(nil), d.SimilarCompounds...)
	if d.PrimaryCompound != nil {
		p := *d.PrimaryCompound
		cp.PrimaryCompound = &p
	}
	cp.SortSimilar()
	return &cp, nil
}

//Personal.AI order the ending
