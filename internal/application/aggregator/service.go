// Package aggregator assembles per-job result documents from the entries the
// worker produces and publishes finished documents as archived snapshots.
package aggregator

import (
	"bytes"
	"context"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/compound-analysis/internal/domain/bioactivity"
	"github.com/turtacn/compound-analysis/internal/domain/result"
	"github.com/turtacn/compound-analysis/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/compound-analysis/pkg/errors"
)

// Service is the result aggregator.
type Service interface {
	// Upsert writes entry as the primary or a similar compound of jobID.
	Upsert(ctx context.Context, jobID uuid.UUID, entry result.CompoundResult, isPrimary bool) error
	Fetch(ctx context.Context, jobID uuid.UUID) (*result.Document, error)
	FetchForCompound(ctx context.Context, jobID uuid.UUID, compoundID string) (*result.CompoundResult, error)
	// Archive uploads JSON and CSV snapshots of the current document. It is
	// a no-op when no archive is configured.
	Archive(ctx context.Context, jobID uuid.UUID) error
	ExportURL(ctx context.Context, jobID uuid.UUID, format string) (string, error)
}

type service struct {
	store         result.Store
	archive       result.Archive
	presignExpiry time.Duration
	logger        logging.Logger
}

// NewService builds the aggregator. archive may be nil.
func NewService(store result.Store, archive result.Archive, presignExpiry time.Duration, log logging.Logger) Service {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &service{
		store:         store,
		archive:       archive,
		presignExpiry: presignExpiry,
		logger:        log.Named("aggregator"),
	}
}

func (s *service) Upsert(ctx context.Context, jobID uuid.UUID, entry result.CompoundResult, isPrimary bool) error {
	if jobID == uuid.Nil || entry.CompoundID == "" {
		return errors.InvalidParam("job id and compound id are required")
	}
	if entry.Results == nil {
		entry.Results = []bioactivity.ProcessedMeasurement{}
	}
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = time.Now().UTC()
	}
	return s.store.Upsert(ctx, jobID, entry, isPrimary)
}

func (s *service) Fetch(ctx context.Context, jobID uuid.UUID) (*result.Document, error) {
	if jobID == uuid.Nil {
		return nil, errors.InvalidParam("job id is required")
	}
	return s.store.Fetch(ctx, jobID)
}

func (s *service) FetchForCompound(ctx context.Context, jobID uuid.UUID, compoundID string) (*result.CompoundResult, error) {
	compoundID = strings.TrimSpace(compoundID)
	if compoundID == "" {
		return nil, errors.InvalidParam("compound id is required")
	}
	doc, err := s.Fetch(ctx, jobID)
	if err != nil {
		return nil, err
	}
	entry, ok := doc.Find(compoundID)
	if !ok {
		return nil, errors.New(errors.ErrCodeResultNotFound, "compound has no result in this job").
			WithDetail("job_id=" + jobID.String() + " compound_id=" + compoundID)
	}
	return entry, nil
}

func (s *service) Archive(ctx context.Context, jobID uuid.UUID) error {
	if s.archive == nil {
		return nil
	}
	doc, err := s.Fetch(ctx, jobID)
	if err != nil {
		return err
	}

	writers := []struct {
		format string
		write  func(io.Writer, *result.Document) error
	}{
		{result.FormatJSON, result.WriteJSON},
		{result.FormatCSV, result.WriteCSV},
	}
	for _, w := range writers {
		var buf bytes.Buffer
		if err := w.write(&buf, doc); err != nil {
			return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode result snapshot").
				WithDetail("format=" + w.format)
		}
		key := result.ArchiveKey(jobID, w.format)
		if err := s.archive.Put(ctx, key, result.ContentType(w.format), &buf, int64(buf.Len())); err != nil {
			return err
		}
	}
	s.logger.Info("result snapshot archived",
		logging.String("job_id", jobID.String()),
		logging.Int("compounds", len(doc.Compounds())))
	return nil
}

func (s *service) ExportURL(ctx context.Context, jobID uuid.UUID, format string) (string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = result.FormatJSON
	}
	if !result.ValidFormat(format) {
		return "", errors.InvalidParam("unsupported export format").WithDetail("format=" + format)
	}
	if jobID == uuid.Nil {
		return "", errors.InvalidParam("job id is required")
	}
	if s.archive == nil {
		return "", errors.New(errors.ErrCodeStorageError, "result archive is not configured")
	}
	return s.archive.PresignedURL(ctx, result.ArchiveKey(jobID, format), s.presignExpiry)
}

//Personal.AI order the ending
