package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/turtacn/compound-analysis/internal/domain/compound"
	"github.com/turtacn/compound-analysis/internal/infrastructure/database/postgres"
	"github.com/turtacn/compound-analysis/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/compound-analysis/pkg/errors"
)

const (
	compoundColumns          = `id, structure, name, owner_id, external_id, properties, status, created_at, updated_at`
	defaultCompoundListLimit = 20
)

type postgresCompoundRepo struct {
	conn *postgres.Connection
	log  logging.Logger
}

// NewPostgresCompoundRepo returns the PostgreSQL compound registry store.
func NewPostgresCompoundRepo(conn *postgres.Connection, log logging.Logger) compound.Repository {
	return &postgresCompoundRepo{conn: conn, log: log}
}

func (r *postgresCompoundRepo) Create(ctx context.Context, c *compound.Compound) error {
	props, err := marshalProperties(c.Properties)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO compounds (id, structure, name, owner_id, external_id, properties, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	var ext sql.NullString
	if c.ExternalID != nil {
		ext = nullString(*c.ExternalID)
	}
	err = r.conn.DB().QueryRowContext(ctx, query,
		c.ID, c.Structure, c.Name, c.OwnerID, ext, props, string(c.Status),
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.New(errors.ErrCodeConflict, "compound structure already registered").
				WithDetail("structure=" + c.Structure)
		}
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create compound")
	}
	return nil
}

func (r *postgresCompoundRepo) GetByID(ctx context.Context, id uuid.UUID) (*compound.Compound, error) {
	query := `SELECT ` + compoundColumns + ` FROM compounds WHERE id = $1`
	c, err := scanCompound(r.conn.DB().QueryRowContext(ctx, query, id))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.New(errors.ErrCodeCompoundNotFound, "compound not found").WithDetail("id=" + id.String())
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to get compound")
	}
	return c, nil
}

func (r *postgresCompoundRepo) GetByStructure(ctx context.Context, structure string) (*compound.Compound, error) {
	query := `SELECT ` + compoundColumns + ` FROM compounds WHERE md5(structure) = md5($1) AND structure = $1`
	c, err := scanCompound(r.conn.DB().QueryRowContext(ctx, query, structure))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.New(errors.ErrCodeCompoundNotFound, "compound not found").WithDetail("structure=" + structure)
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to get compound by structure")
	}
	return c, nil
}

func (r *postgresCompoundRepo) UpdateProperties(ctx context.Context, id uuid.UUID, props compound.Properties) error {
	raw, err := marshalProperties(&props)
	if err != nil {
		return err
	}
	res, err := r.conn.DB().ExecContext(ctx,
		`UPDATE compounds SET properties = $2, updated_at = NOW() WHERE id = $1`, id, raw)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update compound properties")
	}
	return requireAffected(res, id)
}

func (r *postgresCompoundRepo) SetExternalID(ctx context.Context, id uuid.UUID, externalID string) (bool, error) {
	res, err := r.conn.DB().ExecContext(ctx,
		`UPDATE compounds SET external_id = $2, updated_at = NOW() WHERE id = $1 AND external_id IS NULL`,
		id, externalID)
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to set compound external id")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to read affected rows")
	}
	if n > 0 {
		return true, nil
	}

	var exists bool
	if err := r.conn.DB().QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM compounds WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to check compound existence")
	}
	if !exists {
		return false, errors.New(errors.ErrCodeCompoundNotFound, "compound not found").WithDetail("id=" + id.String())
	}
	return false, nil
}

func (r *postgresCompoundRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status compound.Status) error {
	if !status.IsValid() {
		return errors.InvalidParam("invalid compound status").WithDetail("status=" + string(status))
	}
	res, err := r.conn.DB().ExecContext(ctx,
		`UPDATE compounds SET status = $2, updated_at = NOW() WHERE id = $1`, id, string(status))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update compound status")
	}
	return requireAffected(res, id)
}

// Relate serializes writers per job with a transaction-scoped advisory lock
// so the primary and active-job checks cannot race the insert.
func (r *postgresCompoundRepo) Relate(ctx context.Context, compoundID, jobID uuid.UUID, isPrimary bool) error {
	return r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		return relateTx(ctx, tx, compoundID, jobID, isPrimary)
	})
}

func relateTx(ctx context.Context, tx queryExecutor, compoundID, jobID uuid.UUID, isPrimary bool) error {
	detail := fmt.Sprintf("compound=%s job=%s", compoundID, jobID)

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, jobID.String()); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to lock job relations")
	}

	var existing bool
	err := tx.QueryRowContext(ctx,
		`SELECT is_primary FROM compound_job_relations WHERE compound_id = $1 AND job_id = $2`,
		compoundID, jobID).Scan(&existing)
	switch {
	case err == nil:
		if existing == isPrimary {
			return nil
		}
		return errors.New(errors.ErrCodeConflict, "relation already exists with a different role").WithDetail(detail)
	case !stderrors.Is(err, sql.ErrNoRows):
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to read relation")
	}

	if isPrimary {
		var other uuid.UUID
		err := tx.QueryRowContext(ctx,
			`SELECT compound_id FROM compound_job_relations WHERE job_id = $1 AND is_primary`,
			jobID).Scan(&other)
		if err == nil {
			return errors.New(errors.ErrCodeJobPrimaryConflict, "job already has a primary compound").
				WithDetail(fmt.Sprintf("%s primary=%s", detail, other))
		}
		if !stderrors.Is(err, sql.ErrNoRows) {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to read primary relation")
		}
	} else {
		var otherJob uuid.UUID
		err := tx.QueryRowContext(ctx, `
			SELECT r.job_id
			FROM compound_job_relations r
			JOIN analysis_jobs j ON j.id = r.job_id
			WHERE r.compound_id = $1 AND r.job_id <> $2 AND NOT r.is_primary
			  AND j.status IN ('pending', 'processing')
			LIMIT 1`, compoundID, jobID).Scan(&otherJob)
		if err == nil {
			return errors.New(errors.ErrCodeCompoundRelationConflict, "compound is already related to another active job").
				WithDetail(fmt.Sprintf("%s active_job=%s", detail, otherJob))
		}
		if !stderrors.Is(err, sql.ErrNoRows) {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to check active relations")
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO compound_job_relations (compound_id, job_id, is_primary)
		VALUES ($1, $2, $3)
		ON CONFLICT (compound_id, job_id) DO NOTHING`, compoundID, jobID, isPrimary)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return errors.New(errors.ErrCodeConflict, "relation conflicts with an existing relation").WithDetail(detail)
		case isForeignKeyViolation(err):
			return errors.New(errors.ErrCodeValidation, "relation references an unknown compound or job").WithDetail(detail)
		}
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert relation")
	}
	return nil
}

func (r *postgresCompoundRepo) ListRelations(ctx context.Context, jobID uuid.UUID) ([]compound.Relation, error) {
	rows, err := r.conn.DB().QueryContext(ctx, `
		SELECT compound_id, job_id, is_primary, created_at
		FROM compound_job_relations
		WHERE job_id = $1
		ORDER BY is_primary DESC, created_at, compound_id`, jobID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list relations")
	}
	defer rows.Close()

	var out []compound.Relation
	for rows.Next() {
		var rel compound.Relation
		if err := rows.Scan(&rel.CompoundID, &rel.JobID, &rel.IsPrimary, &rel.CreatedAt); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan relation")
		}
		out = append(out, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate relations")
	}
	return out, nil
}

func (r *postgresCompoundRepo) ListNonPrimary(ctx context.Context, jobID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.conn.DB().QueryContext(ctx, `
		SELECT r.compound_id
		FROM compound_job_relations r
		WHERE r.job_id = $1 AND NOT r.is_primary
		  AND NOT EXISTS (
			SELECT 1 FROM compound_job_relations p
			WHERE p.compound_id = r.compound_id AND p.is_primary AND p.job_id <> r.job_id
		  )
		ORDER BY r.compound_id`, jobID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list similar compounds")
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan compound id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate similar compounds")
	}
	return ids, nil
}

// ListByOwner returns the owner's compounds, newest first.
func (r *postgresCompoundRepo) ListByOwner(ctx context.Context, ownerID string, limit int) ([]*compound.Compound, error) {
	if limit <= 0 {
		limit = defaultCompoundListLimit
	}
	rows, err := r.conn.DB().QueryContext(ctx, `
		SELECT `+compoundColumns+`
		FROM compounds
		WHERE owner_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2`, ownerID, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list compounds")
	}
	defer rows.Close()

	out := []*compound.Compound{}
	for rows.Next() {
		c, err := scanCompound(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan compound")
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate compounds")
	}
	return out, nil
}

func (r *postgresCompoundRepo) LatestRelation(ctx context.Context, compoundID uuid.UUID) (*compound.Relation, error) {
	var rel compound.Relation
	err := r.conn.DB().QueryRowContext(ctx, `
		SELECT compound_id, job_id, is_primary, created_at
		FROM compound_job_relations
		WHERE compound_id = $1
		ORDER BY created_at DESC, is_primary DESC
		LIMIT 1`, compoundID).Scan(&rel.CompoundID, &rel.JobID, &rel.IsPrimary, &rel.CreatedAt)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.New(errors.ErrCodeJobNotFound, "compound is not related to any job").
				WithDetail("compound_id=" + compoundID.String())
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to read latest relation")
	}
	return &rel, nil
}

func requireAffected(res sql.Result, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to read affected rows")
	}
	if n == 0 {
		return errors.New(errors.ErrCodeCompoundNotFound, "compound not found").WithDetail("id=" + id.String())
	}
	return nil
}

// marshalProperties yields a JSON string or nil so absent properties are
// stored as SQL NULL.
func marshalProperties(p *compound.Properties) (interface{}, error) {
	if p == nil {
		return nil, nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode compound properties")
	}
	return string(raw), nil
}

func scanCompound(row scanner) (*compound.Compound, error) {
	var (
		c      compound.Compound
		ext    sql.NullString
		props  []byte
		status string
	)
	if err := row.Scan(&c.ID, &c.Structure, &c.Name, &c.OwnerID, &ext, &props, &status, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if ext.Valid {
		v := ext.String
		c.ExternalID = &v
	}
	if len(props) > 0 {
		var p compound.Properties
		if err := json.Unmarshal(props, &p); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode compound properties")
		}
		c.Properties = &p
	}
	c.Status = compound.Status(status)
	return &c, nil
}

//Personal.AI order the ending
