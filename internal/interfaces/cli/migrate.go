package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/compound-analysis/internal/config"
	"github.com/turtacn/compound-analysis/internal/infrastructure/database/postgres"
	"github.com/turtacn/compound-analysis/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/compound-analysis/migrations"
	"github.com/turtacn/compound-analysis/pkg/errors"
)

type schemaMigrator interface {
	Up() error
	Down(steps int) error
	Version() (uint, bool, error)
	Force(version int) error
	Close() error
}

// openMigrator connects to the configured database. Tests replace it.
var openMigrator = func(cfg config.DatabaseConfig, dir string, log logging.Logger) (schemaMigrator, func(), error) {
	conn, err := postgres.NewConnection(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	src := postgres.MigrationSource{FS: migrations.FS}
	if dir != "" {
		src = postgres.MigrationSource{Dir: dir}
	}
	mg, err := postgres.NewMigrator(conn, src, log)
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return mg, func() {
		_ = mg.Close()
		_ = conn.Close()
	}, nil
}

func newMigrateCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the relational schema",
		Long:  "Applies the embedded schema migrations, or those in --dir, to the configured database.",
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "", "migrations directory (default: embedded migrations)")

	withMigrator := func(cmd *cobra.Command, fn func(schemaMigrator) error) error {
		cliCtx, err := GetCLIContext(cmd)
		if err != nil {
			return err
		}
		mg, closeFn, err := openMigrator(cliCtx.Config.Database, dir, cliCtx.Logger.Named("migrate"))
		if err != nil {
			return err
		}
		defer closeFn()
		return fn(mg)
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(mg schemaMigrator) error {
				if err := mg.Up(); err != nil {
					return err
				}
				return printVersion(cmd, mg)
			})
		},
	}

	down := &cobra.Command{
		Use:   "down [STEPS]",
		Short: "Roll back migrations (default one step)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 1 {
					return errors.InvalidParam(fmt.Sprintf("steps must be a positive integer, got %q", args[0]))
				}
				steps = n
			}
			return withMigrator(cmd, func(mg schemaMigrator) error {
				if err := mg.Down(steps); err != nil {
					return err
				}
				return printVersion(cmd, mg)
			})
		},
	}

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(mg schemaMigrator) error { return printVersion(cmd, mg) })
		},
	}

	force := &cobra.Command{
		Use:   "force VERSION",
		Short: "Set the schema version without running migrations, clearing a dirty state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil || v < 0 {
				return errors.InvalidParam(fmt.Sprintf("version must be a non-negative integer, got %q", args[0]))
			}
			return withMigrator(cmd, func(mg schemaMigrator) error {
				if err := mg.Force(v); err != nil {
					return err
				}
				return printVersion(cmd, mg)
			})
		},
	}

	cmd.AddCommand(up, down, version, force)
	return cmd
}

type schemaVersion struct {
	Version uint `json:"version"`
	Dirty   bool `json:"dirty"`
}

func printVersion(cmd *cobra.Command, mg schemaMigrator) error {
	v, dirty, err := mg.Version()
	if err != nil {
		return err
	}
	sv := schemaVersion{Version: v, Dirty: dirty}
	cliCtx, err := GetCLIContext(cmd)
	if err == nil && cliCtx.OutputFormat == "json" {
		return printJSON(cmd.OutOrStdout(), sv)
	}
	msg := fmt.Sprintf("schema version %d", v)
	if dirty {
		msg += " (dirty)"
	}
	PrintSuccess(cmd, msg)
	return nil
}

//Personal.AI order the ending
