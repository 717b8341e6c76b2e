// Package worker runs analysis jobs: it processes the primary compound,
// discovers and registers similar compounds, processes them with bounded
// concurrency and records everything through the aggregator.
package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/compound-analysis/internal/application/aggregator"
	"github.com/turtacn/compound-analysis/internal/application/orchestrator"
	"github.com/turtacn/compound-analysis/internal/application/registry"
	"github.com/turtacn/compound-analysis/internal/domain/bioactivity"
	"github.com/turtacn/compound-analysis/internal/domain/compound"
	"github.com/turtacn/compound-analysis/internal/domain/job"
	"github.com/turtacn/compound-analysis/internal/domain/result"
	kafkainfra "github.com/turtacn/compound-analysis/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/compound-analysis/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/compound-analysis/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/compound-analysis/pkg/errors"
)

const (
	defaultConcurrency         = 5
	defaultCollaboratorTimeout = 30 * time.Second
	failureWriteTimeout        = 10 * time.Second

	rolePrimary = "primary"
	roleSimilar = "similar"
)

// Sources bundles the external collaborators. Any of them may be nil, in
// which case the corresponding step is skipped.
type Sources struct {
	Similarity bioactivity.SimilaritySource
	Activities bioactivity.BioactivitySource
	Toolkit    bioactivity.StructureToolkit
	Resolver   bioactivity.Resolver
}

// VisualizationPublisher announces finished jobs.
type VisualizationPublisher interface {
	PublishVisualizationReady(ctx context.Context, m kafkainfra.VisualizationReadyMessage) error
}

// Options holds processing tunables.
type Options struct {
	WorkerID            string
	CompoundConcurrency int
	CollaboratorTimeout time.Duration
	// JobTimeout bounds a whole job; zero disables it.
	JobTimeout       time.Duration
	ArchiveResults   bool
	DefaultThreshold float64
	Filter           bioactivity.Filter
	Metrics          *prometheus.AppMetrics
}

// Processor executes submission messages.
type Processor struct {
	jobs      orchestrator.Service
	registry  registry.Service
	results   aggregator.Service
	sources   Sources
	publisher VisualizationPublisher
	opts      Options
	logger    logging.Logger
}

func NewProcessor(jobs orchestrator.Service, reg registry.Service, results aggregator.Service,
	sources Sources, publisher VisualizationPublisher, opts Options, log logging.Logger) *Processor {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if opts.CompoundConcurrency <= 0 {
		opts.CompoundConcurrency = defaultConcurrency
	}
	if opts.CollaboratorTimeout <= 0 {
		opts.CollaboratorTimeout = defaultCollaboratorTimeout
	}
	if opts.WorkerID == "" {
		opts.WorkerID = "worker"
	}
	return &Processor{
		jobs:      jobs,
		registry:  reg,
		results:   results,
		sources:   sources,
		publisher: publisher,
		opts:      opts,
		logger:    log.Named("worker"),
	}
}

// run carries the state of one job through the pipeline.
type run struct {
	job        *job.Job
	primary    *compound.Compound
	candidates map[uuid.UUID]bioactivity.CandidateRef
	log        logging.Logger
}

// Process runs the job described by msg. Failures that were recorded on the
// job return nil; an error means the job state itself could not be written
// and the message is worth redelivering. Cancellation of ctx, unlike the job
// timeout, leaves the job processing so a redelivery can finish it.
func (p *Processor) Process(ctx context.Context, msg kafkainfra.SubmissionMessage) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	j, err := p.resolveJob(ctx, msg)
	if err != nil {
		return err
	}
	log := p.logger.With(logging.String("job_id", j.ID.String()), logging.String("compound_id", j.CompoundID.String()))
	if j.Status.IsTerminal() {
		log.Info("job already finished, skipping redelivery", logging.String("status", string(j.Status)))
		return nil
	}

	parent := ctx
	if p.opts.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.JobTimeout)
		defer cancel()
	}
	done := p.opts.Metrics.JobStarted(p.opts.WorkerID)
	defer done()
	start := time.Now()
	outcome := string(job.StatusFailed)
	defer func() { p.opts.Metrics.RecordJobFinished(outcome, time.Since(start)) }()
	failJob := func(msg string, err error) error {
		if parent.Err() != nil {
			outcome = "interrupted"
			log.Warn("job interrupted, left for redelivery", logging.Err(err))
			return parent.Err()
		}
		return p.fail(ctx, j.ID, log, msg, err)
	}

	if _, err := p.jobs.UpdateStatus(ctx, j.ID, job.StatusProcessing, progress(job.ProgressStarted)); err != nil {
		if errors.IsConflict(err) {
			outcome = "skipped"
			log.Info("job left the active states, skipping", logging.Err(err))
			return nil
		}
		return failJob("failed to start job", err)
	}
	log.Info("job processing started", logging.Float64("threshold", j.SimilarityThreshold))

	r := &run{job: j, candidates: map[uuid.UUID]bioactivity.CandidateRef{}, log: log}
	if err := p.execute(ctx, r); err != nil {
		return failJob("job processing failed", err)
	}

	if _, err := p.jobs.UpdateStatus(ctx, j.ID, job.StatusCompleted, progress(job.ProgressDone)); err != nil {
		return failJob("failed to complete job", err)
	}
	outcome = string(job.StatusCompleted)
	log.Info("job completed", logging.Duration("elapsed", time.Since(start)))

	if p.opts.ArchiveResults {
		if err := p.results.Archive(ctx, j.ID); err != nil {
			log.Warn("result archive failed", logging.Err(err))
			p.opts.Metrics.RecordError("archive", string(errors.GetCode(err)))
		}
	}
	return nil
}

// resolveJob returns the job named in msg, creating one when the submitter
// did not.
func (p *Processor) resolveJob(ctx context.Context, msg kafkainfra.SubmissionMessage) (*job.Job, error) {
	if id := msg.ParsedJobID(); id != uuid.Nil {
		return p.jobs.GetStatus(ctx, id)
	}
	j, _, err := p.jobs.CreateJob(ctx, msg.ParsedCompoundID(), msg.UserID, msg.Threshold(p.opts.DefaultThreshold))
	return j, err
}

// execute runs every step between processing start and completion. A
// returned error fails the job.
func (p *Processor) execute(ctx context.Context, r *run) error {
	primary, err := p.registry.Get(ctx, r.job.CompoundID)
	if err != nil {
		if errors.IsNotFound(err) {
			return errors.Wrap(err, errors.ErrCodeCompoundNotFound, "primary compound not found")
		}
		return err
	}
	r.primary = primary

	entry, err := p.processCompound(ctx, r, primary, nil, rolePrimary)
	if err != nil {
		return err
	}
	p.advance(ctx, r, job.ProgressPrimaryFetched)
	if err := p.results.Upsert(ctx, r.job.ID, entry, true); err != nil {
		return err
	}
	p.advance(ctx, r, job.ProgressPrimaryStored)

	if err := p.discoverSimilar(ctx, r); err != nil {
		return err
	}
	if err := p.processSimilar(ctx, r); err != nil {
		return err
	}

	if p.publisher != nil {
		ready := kafkainfra.VisualizationReadyMessage{
			JobID:      r.job.ID.String(),
			CompoundID: r.job.CompoundID.String(),
			Timestamp:  time.Now().UTC(),
		}
		if err := p.publisher.PublishVisualizationReady(ctx, ready); err != nil {
			return errors.Wrap(err, errors.ErrCodeMessageQueueError, "failed to publish visualization event")
		}
	}
	return nil
}

// discoverSimilar registers the similarity candidates of the primary and
// relates them to the job. A failing similarity source leaves the job with
// no similar compounds.
func (p *Processor) discoverSimilar(ctx context.Context, r *run) error {
	if p.sources.Similarity == nil {
		return nil
	}
	cctx, cancel := p.collaboratorContext(ctx)
	start := time.Now()
	cands, err := p.sources.Similarity.FindSimilar(cctx, r.primary.Structure, r.job.SimilarityThreshold)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.log.Warn("similarity search failed, continuing without similar compounds",
			logging.Duration("elapsed", time.Since(start)), logging.Err(err))
		p.opts.Metrics.RecordError("similarity", string(errors.GetCode(err)))
		p.opts.Metrics.RecordSimilarFound(0)
		return nil
	}
	p.opts.Metrics.RecordSimilarFound(len(cands))
	r.log.Info("similar compounds found", logging.Int("count", len(cands)))

	for _, cand := range cands {
		if cand.Structure == r.primary.Structure || (cand.ExternalID != "" && cand.ExternalID == r.primary.ExternalRef()) {
			continue
		}
		c, _, err := p.registry.RegisterOrReuse(ctx, cand.Structure, cand.Name, r.job.UserID)
		if err != nil {
			if errors.IsPersistence(err) {
				return err
			}
			r.log.Warn("similar compound rejected", logging.String("external_id", cand.ExternalID), logging.Err(err))
			continue
		}
		if c.ID == r.primary.ID {
			continue
		}
		if err := p.registry.RelateToJob(ctx, c.ID, r.job.ID, false); err != nil {
			if errors.IsPersistence(err) {
				return err
			}
			r.log.Info("similar compound skipped",
				logging.String("similar_compound_id", c.ID.String()), logging.Err(err))
			continue
		}
		r.candidates[c.ID] = cand
	}
	return nil
}

// processSimilar processes every non-primary compound of the job with at most
// CompoundConcurrency in flight. Progress moves from 0.5 towards 0.9 as
// compounds finish.
func (p *Processor) processSimilar(ctx context.Context, r *run) error {
	ids, err := p.registry.ListNonPrimaryCompounds(ctx, r.job.ID)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		p.advance(ctx, r, job.ProgressSimilarDone)
		return nil
	}

	var (
		finished int64
		mu       sync.Mutex
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.CompoundConcurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if err := p.processOneSimilar(gctx, r, id); err != nil {
				return err
			}
			n := atomic.AddInt64(&finished, 1)
			span := job.ProgressSimilarDone - job.ProgressPrimaryStored
			mu.Lock()
			defer mu.Unlock()
			p.advance(gctx, r, job.ProgressPrimaryStored+span*float64(n)/float64(len(ids)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	r.log.Info("similar compounds processed", logging.Int("count", len(ids)))
	return nil
}

func (p *Processor) processOneSimilar(ctx context.Context, r *run, id uuid.UUID) error {
	c, err := p.registry.Get(ctx, id)
	if err != nil {
		if errors.IsPersistence(err) {
			return err
		}
		r.log.Warn("similar compound vanished", logging.String("similar_compound_id", id.String()), logging.Err(err))
		return nil
	}

	var cand *bioactivity.CandidateRef
	if ref, ok := r.candidates[id]; ok {
		cand = &ref
	}
	entry, err := p.processCompound(ctx, r, c, cand, roleSimilar)
	if err != nil {
		return err
	}
	return p.results.Upsert(ctx, r.job.ID, entry, false)
}

// processCompound gathers identifiers, descriptors and measurements of c and
// computes its efficiency indices. Collaborator failures end up in the
// entry's Error; only registry or store failures are returned.
func (p *Processor) processCompound(ctx context.Context, r *run, c *compound.Compound,
	cand *bioactivity.CandidateRef, role string) (result.CompoundResult, error) {
	log := r.log.With(logging.String("role", role), logging.String("target_compound_id", c.ID.String()))
	entry := result.CompoundResult{
		CompoundID: c.ID.String(),
		Name:       c.Name,
		Structure:  c.Structure,
		Results:    []bioactivity.ProcessedMeasurement{},
	}
	if cand != nil {
		sim := cand.Similarity
		entry.Similarity = &sim
	}

	var collabErr error
	externalID := c.ExternalRef()
	props := c.Properties
	if externalID == "" && cand != nil {
		externalID = cand.ExternalID
	}
	if props == nil && cand != nil {
		props = cand.Properties
	}

	if externalID == "" && p.sources.Resolver != nil {
		cctx, cancel := p.collaboratorContext(ctx)
		ref, err := p.sources.Resolver.Resolve(cctx, c.Structure)
		cancel()
		switch {
		case err != nil:
			collabErr = err
		case ref != nil:
			externalID = ref.ExternalID
			if props == nil {
				props = ref.Properties
			}
		}
	}
	if externalID != "" && externalID != c.ExternalRef() {
		if err := p.registry.AttachExternalID(ctx, c.ID, externalID); err != nil && errors.IsPersistence(err) {
			return entry, err
		}
	}

	if props == nil && collabErr == nil && p.sources.Toolkit != nil {
		cctx, cancel := p.collaboratorContext(ctx)
		fetched, err := p.sources.Toolkit.StructureProps(cctx, c.Structure, externalID)
		cancel()
		if err != nil {
			collabErr = err
		}
		props = fetched
	}
	if props != nil && !c.HasProperties() {
		if err := p.registry.AttachProperties(ctx, c.ID, *props); err != nil {
			if errors.IsPersistence(err) {
				return entry, err
			}
			log.Warn("descriptors rejected", logging.Err(err))
		}
	}
	entry.ExternalID = externalID
	entry.Properties = props

	switch {
	case collabErr != nil:
	case externalID == "":
		entry.Error = "compound is unknown to the bioactivity source"
	case p.sources.Activities != nil:
		cctx, cancel := p.collaboratorContext(ctx)
		ms, err := p.sources.Activities.FetchBioactivities(cctx, externalID, p.opts.Filter.ActivityTypes)
		cancel()
		if err != nil {
			collabErr = err
			break
		}
		outcome := bioactivity.Process(ms, props, p.opts.Filter)
		entry.Results = outcome.Results
		entry.Skipped = outcome.SkippedTotal()
		p.recordMeasurements(outcome)
	}

	status := compound.StatusCompleted
	if collabErr != nil {
		if ctx.Err() != nil {
			return entry, ctx.Err()
		}
		status = compound.StatusFailed
		entry.Error = collabErr.Error()
		log.Warn("collaborator call failed", logging.String("external_id", externalID), logging.Err(collabErr))
		p.opts.Metrics.RecordError("collaborator", string(errors.GetCode(collabErr)))
	}
	if err := p.registry.SetStatus(ctx, c.ID, status); err != nil && errors.IsPersistence(err) {
		return entry, err
	}
	p.opts.Metrics.RecordCompound(role, collabErr)

	entry.UpdatedAt = time.Now().UTC()
	log.Debug("compound processed",
		logging.Int("results", len(entry.Results)),
		logging.Int("skipped", entry.Skipped))
	return entry, nil
}

func (p *Processor) recordMeasurements(o bioactivity.Outcome) {
	kept := map[string]int{}
	for _, m := range o.Results {
		kept[m.ActivityType]++
	}
	skipped := make(map[string]int, len(o.Skipped))
	for reason, n := range o.Skipped {
		skipped[string(reason)] = n
	}
	p.opts.Metrics.RecordMeasurements(kept, skipped)
}

// advance reports progress. Rejections are logged only; the completion or
// failure transition that follows is authoritative.
func (p *Processor) advance(ctx context.Context, r *run, value float64) {
	if _, err := p.jobs.UpdateStatus(ctx, r.job.ID, job.StatusProcessing, progress(value)); err != nil {
		r.log.Warn("progress update rejected", logging.Float64("progress", value), logging.Err(err))
	}
}

func (p *Processor) collaboratorContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, p.opts.CollaboratorTimeout)
}

// fail records the failure on the job. The write outlives cancellation of ctx
// so jobs that hit their timeout are still closed.
func (p *Processor) fail(ctx context.Context, jobID uuid.UUID, log logging.Logger, msg string, cause error) error {
	reason := fmt.Sprintf("%s: %v", msg, cause)
	log.Error(msg, logging.Err(cause))
	p.opts.Metrics.RecordError("worker", string(errors.GetCode(cause)))

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failureWriteTimeout)
	defer cancel()
	if _, err := p.jobs.MarkFailed(wctx, jobID, reason); err != nil {
		if errors.IsConflict(err) {
			log.Info("job already finished, failure not recorded", logging.Err(err))
			return nil
		}
		log.Error("failed to record job failure", logging.Err(err))
		return err
	}
	return nil
}

func progress(v float64) *float64 { return &v }

//Personal.AI order the ending
