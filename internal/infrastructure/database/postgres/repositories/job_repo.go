package repositories

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/turtacn/compound-analysis/internal/domain/job"
	"github.com/turtacn/compound-analysis/internal/infrastructure/database/postgres"
	"github.com/turtacn/compound-analysis/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/compound-analysis/pkg/errors"
)

const jobColumns = `id, compound_id, user_id, status, progress, similarity_threshold, error, created_at, updated_at`

// defaultJobListLimit caps ListByCompound when no limit is given.
const defaultJobListLimit = 50

type postgresJobRepo struct {
	conn *postgres.Connection
	log  logging.Logger
}

// NewPostgresJobRepo returns the PostgreSQL job store.
func NewPostgresJobRepo(conn *postgres.Connection, log logging.Logger) job.Repository {
	return &postgresJobRepo{conn: conn, log: log}
}

// CreatePending relies on the partial unique index over active jobs: a
// concurrent submission for the same compound loses the insert and reads the
// winner instead.
func (r *postgresJobRepo) CreatePending(ctx context.Context, j *job.Job) (*job.Job, bool, error) {
	var (
		existing *job.Job
		created  bool
	)
	err := r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			INSERT INTO analysis_jobs (id, compound_id, user_id, status, progress, similarity_threshold)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (compound_id) WHERE status IN ('pending', 'processing') DO NOTHING
			RETURNING `+jobColumns,
			j.ID, j.CompoundID, j.UserID, string(job.StatusPending), j.Progress, j.SimilarityThreshold)
		inserted, err := scanJob(row)
		if stderrors.Is(err, sql.ErrNoRows) {
			active, err := scanJob(tx.QueryRowContext(ctx, `
				SELECT `+jobColumns+` FROM analysis_jobs
				WHERE compound_id = $1 AND status IN ('pending', 'processing')`, j.CompoundID))
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to read active job")
			}
			existing = active
			return nil
		}
		if err != nil {
			return translateJobWriteError(err, j)
		}

		if err := relateTx(ctx, tx, j.CompoundID, inserted.ID, true); err != nil {
			return err
		}
		existing, created = inserted, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if created {
		*j = *existing
		r.log.Debug("created analysis job",
			logging.Stringer("job_id", j.ID),
			logging.Stringer("compound_id", j.CompoundID),
		)
	}
	return existing, created, nil
}

func translateJobWriteError(err error, j *job.Job) error {
	detail := fmt.Sprintf("job=%s compound=%s", j.ID, j.CompoundID)
	switch {
	case isForeignKeyViolation(err):
		return errors.New(errors.ErrCodeValidation, "job references an unknown compound").WithDetail(detail)
	case isUniqueViolation(err):
		return errors.New(errors.ErrCodeConflict, "job already exists").WithDetail(detail)
	case isCheckViolation(err):
		return errors.New(errors.ErrCodeValidation, "job violates a field constraint").WithDetail(detail)
	}
	return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create job")
}

func (r *postgresJobRepo) GetByID(ctx context.Context, id uuid.UUID) (*job.Job, error) {
	j, err := scanJob(r.conn.DB().QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM analysis_jobs WHERE id = $1`, id))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.New(errors.ErrCodeJobNotFound, "job not found").WithDetail("id=" + id.String())
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to get job")
	}
	return j, nil
}

// UpdateStatus is a single compare-and-swap: the WHERE clause admits only the
// legal predecessors of the target, so terminal rows are never rewritten.
func (r *postgresJobRepo) UpdateStatus(ctx context.Context, id uuid.UUID, u job.StatusUpdate) (*job.Job, error) {
	if u.Status != job.StatusProcessing && u.Status != job.StatusCompleted && u.Status != job.StatusFailed {
		return nil, errors.New(errors.ErrCodeJobTransitionInvalid, "job status transition rejected").
			WithDetail(fmt.Sprintf("id=%s to=%s", id, u.Status))
	}
	var progress sql.NullFloat64
	if u.Progress != nil {
		if err := job.ValidateProgress(*u.Progress); err != nil {
			return nil, err
		}
		progress = sql.NullFloat64{Float64: *u.Progress, Valid: true}
	}

	from := job.AllowedPredecessors(u.Status)
	preds := make([]string, len(from))
	for i, s := range from {
		preds[i] = string(s)
	}

	row := r.conn.DB().QueryRowContext(ctx, `
		UPDATE analysis_jobs SET
			status = $2,
			progress = CASE WHEN $2 = 'completed' THEN 1.0
			                ELSE GREATEST(progress, COALESCE($3::double precision, progress)) END,
			error = CASE WHEN $2 = 'failed' AND $4 <> '' THEN $4 ELSE error END,
			updated_at = NOW()
		WHERE id = $1 AND status = ANY($5::text[])
		RETURNING `+jobColumns,
		id, string(u.Status), progress, u.Reason, pq.Array(preds))
	updated, err := scanJob(row)
	if err == nil {
		return updated, nil
	}
	if !stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update job status")
	}

	var current string
	err = r.conn.DB().QueryRowContext(ctx, `SELECT status FROM analysis_jobs WHERE id = $1`, id).Scan(&current)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.New(errors.ErrCodeJobNotFound, "job not found").WithDetail("id=" + id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to read job status")
	}
	return nil, errors.New(errors.ErrCodeJobTransitionInvalid, "job status transition rejected").
		WithDetail(fmt.Sprintf("id=%s from=%s to=%s", id, current, u.Status))
}

func (r *postgresJobRepo) FindLatestByCompound(ctx context.Context, compoundID uuid.UUID, excludeFailed bool) (*job.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM analysis_jobs WHERE compound_id = $1`
	if excludeFailed {
		query += ` AND status <> 'failed'`
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT 1`

	j, err := scanJob(r.conn.DB().QueryRowContext(ctx, query, compoundID))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.New(errors.ErrCodeJobNotFound, "no job found for compound").
				WithDetail("compound=" + compoundID.String())
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to find latest job")
	}
	return j, nil
}

func (r *postgresJobRepo) ListByCompound(ctx context.Context, compoundID uuid.UUID, limit int) ([]*job.Job, error) {
	if limit <= 0 {
		limit = defaultJobListLimit
	}
	rows, err := r.conn.DB().QueryContext(ctx, `
		SELECT `+jobColumns+` FROM analysis_jobs
		WHERE compound_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, compoundID, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list jobs")
	}
	defer rows.Close()

	var jobs []*job.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan job")
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate jobs")
	}
	return jobs, nil
}

func scanJob(row scanner) (*job.Job, error) {
	var (
		j       job.Job
		status  string
		message sql.NullString
	)
	if err := row.Scan(&j.ID, &j.CompoundID, &j.UserID, &status, &j.Progress, &j.SimilarityThreshold,
		&message, &j.CreatedAt, &j.UpdatedAt); err != nil {
		return nil, err
	}
	j.Status = job.Status(status)
	j.Error = message.String
	return &j, nil
}

//Personal.AI order the ending
