package postgres

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/turtacn/compound-analysis/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/compound-analysis/pkg/errors"
)

// MigrationSource selects where migration files are read from. Dir wins over
// FS when both are set.
type MigrationSource struct {
	// Dir is a directory of *.sql files, read through the file:// driver.
	Dir string
	// FS is an embedded tree, typically migrations.FS.
	FS fs.FS
}

// Migrator applies golang-migrate migrations to the connection's database.
type Migrator struct {
	m      *migrate.Migrate
	logger logging.Logger
}

// NewMigrator prepares a migrator bound to conn.
func NewMigrator(conn *Connection, src MigrationSource, log logging.Logger) (*Migrator, error) {
	driver, err := migratepg.WithInstance(conn.DB(), &migratepg.Config{})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to create migration driver")
	}

	var m *migrate.Migrate
	switch {
	case src.Dir != "":
		m, err = migrate.NewWithDatabaseInstance("file://"+src.Dir, "postgres", driver)
	case src.FS != nil:
		source, srcErr := iofs.New(src.FS, ".")
		if srcErr != nil {
			return nil, apperrors.Wrap(srcErr, apperrors.ErrCodeDatabaseError, "failed to open embedded migrations")
		}
		m, err = migrate.NewWithInstance("iofs", source, "postgres", driver)
	default:
		return nil, apperrors.InvalidParam("migration source requires a directory or an embedded filesystem")
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to create migrate instance")
	}
	return &Migrator{m: m, logger: log}, nil
}

// Up applies every pending migration. No pending migration is not an error.
func (mg *Migrator) Up() error {
	if err := mg.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		version, _, _ := mg.m.Version()
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError,
			fmt.Sprintf("failed to run migrations (current version: %d)", version))
	}
	version, dirty, _ := mg.Version()
	mg.logger.Info("database migrations applied",
		logging.Int64("version", int64(version)),
		logging.Bool("dirty", dirty),
	)
	return nil
}

// Down rolls back steps migrations.
func (mg *Migrator) Down(steps int) error {
	if steps <= 0 {
		return apperrors.InvalidParam(fmt.Sprintf("steps must be greater than 0, got %d", steps))
	}
	if err := mg.m.Steps(-steps); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError,
			fmt.Sprintf("failed to roll back %d step(s)", steps))
	}
	mg.logger.Info("database migrations rolled back", logging.Int("steps", steps))
	return nil
}

// Version returns the applied version and dirty flag; 0 when nothing is applied.
func (mg *Migrator) Version() (uint, bool, error) {
	version, dirty, err := mg.m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to read migration version")
	}
	return version, dirty, nil
}

// Force sets the version without running migrations, clearing a dirty state.
func (mg *Migrator) Force(version int) error {
	if err := mg.m.Force(version); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, fmt.Sprintf("failed to force version %d", version))
	}
	return nil
}

// Close releases the source; the database connection stays open.
func (mg *Migrator) Close() error {
	srcErr, _ := mg.m.Close()
	return srcErr
}

//Personal.AI order the ending
