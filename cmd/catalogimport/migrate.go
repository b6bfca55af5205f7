package main

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/storefront/backend/internal/infrastructure/migration"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
)

func newMigrateCmd(a *app) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long: `Migrate applies the schema shipped inside the binary. Use --dir to work
with migration files on disk instead, e.g. while writing a new migration.`,
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "", "Migrations directory (default: embedded migrations)")

	withMigrator := func(fn func(cmd *cobra.Command, m *migration.Migrator, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			db, err := sql.Open("postgres", a.cfg.Database.DSN())
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			if err := db.PingContext(cmd.Context()); err != nil {
				_ = db.Close()
				return fmt.Errorf("ping database: %w", err)
			}
			m, err := migration.New(db, dir, a.log)
			if err != nil {
				_ = db.Close()
				return err
			}
			// Closing the migrator closes db as well.
			defer m.Close()
			return fn(cmd, m, args)
		}
	}
	report := func(cmd *cobra.Command, status migration.Status, err error) error {
		if err != nil {
			return err
		}
		return a.print(cmd.OutOrStdout(), map[string]any{
			"version": status.Version,
			"dirty":   status.Dirty,
			"changed": status.Changed,
		})
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(cmd *cobra.Command, m *migration.Migrator, _ []string) error {
				status, err := m.Up()
				return report(cmd, status, err)
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back every migration",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(cmd *cobra.Command, m *migration.Migrator, _ []string) error {
				status, err := m.Down()
				return report(cmd, status, err)
			}),
		},
		&cobra.Command{
			Use:   "steps <n>",
			Short: "Apply n migrations, or roll back when n is negative",
			Args:  cobra.ExactArgs(1),
			RunE: withMigrator(func(cmd *cobra.Command, m *migration.Migrator, args []string) error {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid step count %q", args[0])
				}
				status, err := m.Steps(n)
				return report(cmd, status, err)
			}),
		},
		&cobra.Command{
			Use:   "goto <version>",
			Short: "Migrate up or down to a version",
			Args:  cobra.ExactArgs(1),
			RunE: withMigrator(func(cmd *cobra.Command, m *migration.Migrator, args []string) error {
				v, err := strconv.ParseUint(args[0], 10, 32)
				if err != nil {
					return fmt.Errorf("invalid version %q", args[0])
				}
				status, err := m.GoTo(uint(v))
				return report(cmd, status, err)
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Show the applied schema version",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(cmd *cobra.Command, m *migration.Migrator, _ []string) error {
				status, err := m.Version()
				return report(cmd, status, err)
			}),
		},
		&cobra.Command{
			Use:   "force <version>",
			Short: "Mark a version as applied and clear the dirty flag",
			Args:  cobra.ExactArgs(1),
			RunE: withMigrator(func(cmd *cobra.Command, m *migration.Migrator, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q", args[0])
				}
				if err := m.Force(v); err != nil {
					return err
				}
				status, err := m.Version()
				return report(cmd, status, err)
			}),
		},
		&cobra.Command{
			Use:   "list",
			Short: "List the available migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				files, err := migration.Files(dir)
				if err != nil {
					return err
				}
				entries, err := migration.List(files)
				if err != nil {
					return err
				}
				return a.print(cmd.OutOrStdout(), entries)
			},
		},
		&cobra.Command{
			Use:   "create <name> [description]",
			Short: "Create an empty up/down migration pair in --dir",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				if dir == "" {
					return errors.New("create needs --dir, embedded migrations are read-only")
				}
				description := ""
				if len(args) > 1 {
					description = args[1]
				}
				nf, err := migration.Create(dir, args[0], description)
				if err != nil {
					return err
				}
				return a.print(cmd.OutOrStdout(), nf)
			},
		},
	)
	return cmd
}
