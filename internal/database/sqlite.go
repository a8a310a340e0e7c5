package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "modernc.org/sqlite"

	"github.com/DennisWilmot/land-mapping-web/internal/logger"
)

// OpenSQLite opens (creating if needed) the SQLite database at path and
// applies all pending migrations.
func OpenSQLite(ctx context.Context, path string, log *logger.Logger) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	if err := MigrateUp(db, log); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// MigrateUp runs all embedded SQLite migrations up to the latest version.
// Returns nil if no migrations were needed.
func MigrateUp(db *sql.DB, log *logger.Logger) error {
	m, err := newSQLiteMigrate(db, log)
	if err != nil {
		return err
	}
	// Not closing m: it would close db.
	return up(m)
}

// MigrateVersion returns the current SQLite migration version and dirty state.
// Returns 0, false, nil if no migrations have been applied yet.
func MigrateVersion(db *sql.DB) (uint, bool, error) {
	m, err := newSQLiteMigrate(db, nil)
	if err != nil {
		return 0, false, err
	}
	return version(m)
}

func newSQLiteMigrate(db *sql.DB, log *logger.Logger) (*migrate.Migrate, error) {
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	return newMigrate(sqliteMigrations, "sqlite", driver, log)
}
