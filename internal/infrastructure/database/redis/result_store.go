package redis

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/turtacn/compound-analysis/internal/domain/bioactivity"
	"github.com/turtacn/compound-analysis/internal/domain/result"
	"github.com/turtacn/compound-analysis/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/compound-analysis/pkg/errors"
)

// Hash layout of one job's document under <prefix>results:<jobID>. Each
// compound owns its own field so concurrent upserts never clobber each other.
const (
	fieldPrimary       = "primary"
	fieldSimilarPrefix = "similar:"
	fieldCreatedAt     = "created_at"
	fieldUpdatedAt     = "updated_at"
)

type resultStore struct {
	client *Client
	ttl    time.Duration
	now    func() time.Time
	log    logging.Logger
}

// ResultStoreOption customizes NewResultStore.
type ResultStoreOption func(*resultStore)

// WithResultTTL expires documents ttl after their last write. Zero keeps them.
func WithResultTTL(ttl time.Duration) ResultStoreOption {
	return func(s *resultStore) { s.ttl = ttl }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) ResultStoreOption {
	return func(s *resultStore) { s.now = now }
}

// NewResultStore returns the Redis-backed result.Store.
func NewResultStore(client *Client, log logging.Logger, opts ...ResultStoreOption) result.Store {
	s := &resultStore{client: client, log: log, now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *resultStore) key(jobID uuid.UUID) string {
	return s.client.Key("results", jobID.String())
}

func (s *resultStore) Upsert(ctx context.Context, jobID uuid.UUID, entry result.CompoundResult, isPrimary bool) error {
	if entry.CompoundID == "" {
		return errors.InvalidParam("result entry requires a compound id")
	}
	now := s.now()
	entry.UpdatedAt = now
	if entry.Results == nil {
		entry.Results = []bioactivity.ProcessedMeasurement{}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode result entry")
	}

	field := fieldSimilarPrefix + entry.CompoundID
	if isPrimary {
		field = fieldPrimary
	}
	key := s.key(jobID)
	ts := now.Format(time.RFC3339Nano)

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, field, string(data))
		pipe.HSetNX(ctx, key, fieldCreatedAt, ts)
		pipe.HSet(ctx, key, fieldUpdatedAt, ts)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeResultStoreFailed, "failed to store result entry").
			WithDetail("job=" + jobID.String() + " compound=" + entry.CompoundID)
	}
	return nil
}

func (s *resultStore) Fetch(ctx context.Context, jobID uuid.UUID) (*result.Document, error) {
	fields, err := s.client.HGetAll(ctx, s.key(jobID)).Result()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeResultStoreFailed, "failed to read result document")
	}
	if len(fields) == 0 {
		return nil, errors.New(errors.ErrCodeResultNotFound, "no results for job").WithDetail("job=" + jobID.String())
	}

	doc := &result.Document{JobID: jobID, SimilarCompounds: []result.CompoundResult{}}
	for name, raw := range fields {
		switch {
		case name == fieldCreatedAt:
			doc.CreatedAt = parseTimestamp(raw)
		case name == fieldUpdatedAt:
			doc.UpdatedAt = parseTimestamp(raw)
		case name == fieldPrimary:
			var entry result.CompoundResult
			if err := json.Unmarshal([]byte(raw), &entry); err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode primary result")
			}
			doc.PrimaryCompound = &entry
		case strings.HasPrefix(name, fieldSimilarPrefix):
			var entry result.CompoundResult
			if err := json.Unmarshal([]byte(raw), &entry); err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode similar result").
					WithDetail("field=" + name)
			}
			doc.SimilarCompounds = append(doc.SimilarCompounds, entry)
		default:
			s.log.Debug("ignoring unknown result field", logging.String("field", name))
		}
	}
	doc.SortSimilar()
	return doc, nil
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

//Personal.AI order the ending
