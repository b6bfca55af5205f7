// Package migration applies the catalog import schema (import profiles,
// import histories and products) with golang-migrate.
//
// The SQL files under sql/ are embedded into the binary so the server and
// the CLI can migrate without a checkout of the repository. A directory on
// disk can still be supplied to test migrations that are not yet embedded.
package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed sql/*.sql
var embedded embed.FS

const embeddedRoot = "sql"

// Status is the schema state reported after a command.
type Status struct {
	Version uint
	Dirty   bool
	// Changed is false when the command found nothing to apply.
	Changed bool
}

// Migrator runs schema migrations against a postgres database.
type Migrator struct {
	migrate *migrate.Migrate
	logger  *zap.Logger
}

// Files returns the migration files: the embedded set when dir is empty,
// otherwise the directory on disk.
func Files(dir string) (fs.FS, error) {
	if dir == "" {
		return fs.Sub(embedded, embeddedRoot)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("migrations directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("migrations path %s is not a directory", dir)
	}
	return os.DirFS(dir), nil
}

func sourceDriver(dir string) (source.Driver, error) {
	files, err := Files(dir)
	if err != nil {
		return nil, err
	}
	src, err := iofs.New(files, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to open migration source: %w", err)
	}
	return src, nil
}

// New builds a Migrator on an open connection. An empty dir selects the
// embedded migrations.
func New(db *sql.DB, dir string, logger *zap.Logger) (*Migrator, error) {
	src, err := sourceDriver(dir)
	if err != nil {
		return nil, err
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return newMigrator(m, logger), nil
}

// NewFromURL builds a Migrator from a postgres:// URL.
func NewFromURL(databaseURL, dir string, logger *zap.Logger) (*Migrator, error) {
	src, err := sourceDriver(dir)
	if err != nil {
		return nil, err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return newMigrator(m, logger), nil
}

func newMigrator(m *migrate.Migrate, logger *zap.Logger) *Migrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Migrator{migrate: m, logger: logger.Named("migration")}
}

// Up applies every pending migration.
func (m *Migrator) Up() (Status, error) {
	return m.run("up", m.migrate.Up)
}

// Down rolls back every applied migration.
func (m *Migrator) Down() (Status, error) {
	return m.run("down", m.migrate.Down)
}

// Steps applies n migrations forward, or rolls back -n when n is negative.
func (m *Migrator) Steps(n int) (Status, error) {
	if n == 0 {
		return m.Version()
	}
	return m.run(fmt.Sprintf("steps %d", n), func() error { return m.migrate.Steps(n) })
}

// GoTo migrates up or down to the given version.
func (m *Migrator) GoTo(version uint) (Status, error) {
	return m.run(fmt.Sprintf("goto %d", version), func() error { return m.migrate.Migrate(version) })
}

// Force records version as applied and clears the dirty flag without
// running any SQL. Used to recover from a failed migration.
func (m *Migrator) Force(version int) error {
	m.logger.Warn("Forcing schema version", zap.Int("version", version))
	if err := m.migrate.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	return nil
}

// Version reports the current schema version. Version 0 means nothing has
// been applied yet.
func (m *Migrator) Version() (Status, error) {
	version, dirty, err := m.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return Status{}, nil
	}
	if err != nil {
		return Status{}, fmt.Errorf("failed to read schema version: %w", err)
	}
	return Status{Version: version, Dirty: dirty}, nil
}

// Close releases the source and database handles.
func (m *Migrator) Close() error {
	srcErr, dbErr := m.migrate.Close()
	return errors.Join(srcErr, dbErr)
}

func (m *Migrator) run(name string, fn func() error) (Status, error) {
	m.logger.Info("Running migrations", zap.String("command", name))

	err := fn()
	if errors.Is(err, migrate.ErrNoChange) {
		status, verr := m.Version()
		if verr != nil {
			return Status{}, verr
		}
		m.logger.Info("Schema already up to date", zap.Uint("version", status.Version))
		return status, nil
	}
	if err != nil {
		return Status{}, fmt.Errorf("migration %s failed: %w", name, err)
	}

	status, err := m.Version()
	if err != nil {
		return Status{}, err
	}
	status.Changed = true
	m.logger.Info("Migrations applied",
		zap.String("command", name),
		zap.Uint("version", status.Version),
		zap.Bool("dirty", status.Dirty),
	)
	return status, nil
}
