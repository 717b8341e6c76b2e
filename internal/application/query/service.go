// Package query serves the read side of the pipeline: job results, per
// compound entries, summaries, activity-cliff reports and ad hoc efficiency
// computations.
package query

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/compound-analysis/internal/application/aggregator"
	"github.com/turtacn/compound-analysis/internal/application/orchestrator"
	"github.com/turtacn/compound-analysis/internal/domain/cliff"
	"github.com/turtacn/compound-analysis/internal/domain/efficiency"
	"github.com/turtacn/compound-analysis/internal/domain/job"
	"github.com/turtacn/compound-analysis/internal/domain/result"
	"github.com/turtacn/compound-analysis/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/compound-analysis/pkg/errors"
)

// CacheTTLCliffReport bounds how long a cliff report of a completed job is
// served from cache.
const CacheTTLCliffReport = 30 * time.Minute

// ReportCache is the part of the Redis cache used for derived reports.
type ReportCache interface {
	GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, loader func(ctx context.Context) (interface{}, error)) error
}

// CliffRequest parameterises a cliff report.
type CliffRequest struct {
	// Threshold overrides the configured potency threshold when set.
	Threshold       *float64
	SignificantOnly bool
}

// MetricsRequest is an ad hoc efficiency computation. PolarAtoms is
// estimated from the polar surface area when absent.
type MetricsRequest struct {
	ValueNM          float64 `json:"value_nm" validate:"gte=0"`
	MolecularWeight  float64 `json:"molecular_weight" validate:"gte=0"`
	PolarSurfaceArea float64 `json:"polar_surface_area" validate:"gte=0"`
	HeavyAtoms       int     `json:"heavy_atoms" validate:"gte=0"`
	PolarAtoms       *int    `json:"polar_atoms,omitempty" validate:"omitempty,gte=0"`
}

// CompoundResults is the latest job a compound took part in with whatever
// it has produced so far. A primary compound gets the whole job document; a
// similar compound gets only its own entry. Both are nil until written.
type CompoundResults struct {
	Job       *job.Job               `json:"job"`
	IsPrimary bool                   `json:"is_primary"`
	Document  *result.Document       `json:"results,omitempty"`
	Entry     *result.CompoundResult `json:"result,omitempty"`
}

// Service is the query surface.
type Service interface {
	JobResults(ctx context.Context, jobID uuid.UUID) (*result.Document, error)
	CompoundResult(ctx context.Context, jobID uuid.UUID, compoundID string) (*result.CompoundResult, error)
	Summary(ctx context.Context, jobID uuid.UUID) (*result.Summary, error)
	Cliffs(ctx context.Context, jobID uuid.UUID, req CliffRequest) (*cliff.Report, error)
	ResultsForCompound(ctx context.Context, compoundID uuid.UUID) (*CompoundResults, error)
	ComputeMetrics(req MetricsRequest) (efficiency.Metrics, error)
}

type service struct {
	jobs           orchestrator.Service
	results        aggregator.Service
	cache          ReportCache
	cliffThreshold float64
	logger         logging.Logger
}

// NewService builds the query service. cache may be nil.
func NewService(jobs orchestrator.Service, results aggregator.Service, cache ReportCache, cliffThreshold float64, log logging.Logger) Service {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if cliffThreshold <= 0 {
		cliffThreshold = cliff.DefaultThreshold
	}
	return &service{
		jobs:           jobs,
		results:        results,
		cache:          cache,
		cliffThreshold: cliffThreshold,
		logger:         log.Named("query"),
	}
}

func (s *service) JobResults(ctx context.Context, jobID uuid.UUID) (*result.Document, error) {
	return s.results.Fetch(ctx, jobID)
}

func (s *service) CompoundResult(ctx context.Context, jobID uuid.UUID, compoundID string) (*result.CompoundResult, error) {
	return s.results.FetchForCompound(ctx, jobID, compoundID)
}

func (s *service) Summary(ctx context.Context, jobID uuid.UUID) (*result.Summary, error) {
	j, err := s.jobs.GetStatus(ctx, jobID)
	if err != nil {
		return nil, err
	}
	doc, err := s.results.Fetch(ctx, jobID)
	if err != nil {
		return nil, err
	}
	sum := result.Summarize(doc, j.SimilarityThreshold)
	return &sum, nil
}

// Cliffs analyses the compounds of a job. Reports of completed jobs are
// cached; their documents no longer change.
func (s *service) Cliffs(ctx context.Context, jobID uuid.UUID, req CliffRequest) (*cliff.Report, error) {
	threshold := s.cliffThreshold
	if req.Threshold != nil {
		if *req.Threshold <= 0 || math.IsNaN(*req.Threshold) || math.IsInf(*req.Threshold, 0) {
			return nil, errors.InvalidParam("cliff threshold must be positive").
				WithDetail(fmt.Sprintf("threshold=%v", *req.Threshold))
		}
		threshold = *req.Threshold
	}
	opts := cliff.Options{Threshold: threshold, SignificantOnly: req.SignificantOnly}

	j, err := s.jobs.GetStatus(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if s.cache == nil || j.Status != job.StatusCompleted {
		return s.analyze(ctx, jobID, opts)
	}

	var report cliff.Report
	key := fmt.Sprintf("cliffs:%s:%g:%t", jobID, threshold, req.SignificantOnly)
	err = s.cache.GetOrSet(ctx, key, &report, CacheTTLCliffReport, func(ctx context.Context) (interface{}, error) {
		return s.analyze(ctx, jobID, opts)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("cliff report served", logging.String("job_id", jobID.String()), logging.Int("pairs", report.TotalPairs))
	return &report, nil
}

func (s *service) analyze(ctx context.Context, jobID uuid.UUID, opts cliff.Options) (*cliff.Report, error) {
	doc, err := s.results.Fetch(ctx, jobID)
	if err != nil {
		return nil, err
	}
	report := cliff.Analyze(cliff.Aggregate(result.CliffSamples(doc)), opts)
	return &report, nil
}

func (s *service) ResultsForCompound(ctx context.Context, compoundID uuid.UUID) (*CompoundResults, error) {
	j, primary, err := s.jobs.LatestJobForCompound(ctx, compoundID)
	if err != nil {
		return nil, err
	}
	out := &CompoundResults{Job: j, IsPrimary: primary}
	if primary {
		out.Document, err = s.results.Fetch(ctx, j.ID)
	} else {
		out.Entry, err = s.results.FetchForCompound(ctx, j.ID, compoundID.String())
	}
	if err != nil && !errors.IsNotFound(err) {
		return nil, err
	}
	return out, nil
}

func (s *service) ComputeMetrics(req MetricsRequest) (efficiency.Metrics, error) {
	for name, v := range map[string]float64{
		"value_nm":           req.ValueNM,
		"molecular_weight":   req.MolecularWeight,
		"polar_surface_area": req.PolarSurfaceArea,
	} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return efficiency.Metrics{}, errors.InvalidParam(name + " must be a non-negative number")
		}
	}
	if req.HeavyAtoms < 0 || (req.PolarAtoms != nil && *req.PolarAtoms < 0) {
		return efficiency.Metrics{}, errors.InvalidParam("atom counts must be non-negative")
	}
	polar := efficiency.EstimatePolarAtoms(req.PolarSurfaceArea)
	if req.PolarAtoms != nil {
		polar = *req.PolarAtoms
	}
	return efficiency.ComputeInput(efficiency.Input{
		ValueNM:          req.ValueNM,
		MolecularWeight:  req.MolecularWeight,
		PolarSurfaceArea: req.PolarSurfaceArea,
		HeavyAtoms:       req.HeavyAtoms,
		PolarAtoms:       polar,
	}), nil
}

//Personal.AI order the ending
