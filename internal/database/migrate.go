package database

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/DennisWilmot/land-mapping-web/internal/logger"
)

// Each backend has its own migration directory with matching version numbers.
const (
	sqliteMigrations   = "migrations/sqlite"
	postgresMigrations = "migrations/postgres"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

func newMigrate(dir, driverName string, driver migratedb.Driver, log *logger.Logger) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, driverName, driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if log != nil {
		m.Log = &migrateLogger{log: log.WithComponent("migrate")}
	}
	return m, nil
}

// up applies all pending migrations. Returns nil if none were needed.
func up(m *migrate.Migrate) error {
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// version returns the current migration version and dirty state.
// Returns 0, false, nil if no migrations have been applied yet.
func version(m *migrate.Migrate) (uint, bool, error) {
	v, dirty, err := m.Version()
	if err != nil && errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

// migrateLogger implements migrate.Logger on top of the service logger.
type migrateLogger struct {
	log *logger.Logger
}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, v...), nil)
}

func (l *migrateLogger) Verbose() bool {
	return false
}
