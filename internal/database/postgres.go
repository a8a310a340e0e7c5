package database

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/DennisWilmot/land-mapping-web/internal/config"
	"github.com/DennisWilmot/land-mapping-web/internal/logger"
)

// Database wraps the pgx connection pool and provides database operations.
type Database struct {
	Pool *pgxpool.Pool
}

// NewPostgresPool creates a new PostgreSQL connection pool using pgx.
// It configures the pool based on the provided database configuration,
// tests the connection, and returns a Database instance.
func NewPostgresPool(ctx context.Context, cfg config.DatabaseConfig) (*Database, error) {
	// Build connection string (DSN)
	return NewPostgresPoolFromDSN(ctx, cfg.DSN(), cfg.PoolMin, cfg.PoolMax)
}

// NewPostgresPoolFromDSN is NewPostgresPool for an explicit connection string.
func NewPostgresPoolFromDSN(ctx context.Context, dsn string, poolMin, poolMax int) (*Database, error) {
	// Parse connection string and create pool config
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// Configure connection pool settings
	if poolMin > 0 {
		poolConfig.MinConns = int32(poolMin)
	}
	if poolMax > 0 {
		poolConfig.MaxConns = int32(poolMax)
	}

	// Set connection timeouts
	poolConfig.ConnConfig.ConnectTimeout = 5 * time.Second
	poolConfig.MaxConnIdleTime = 30 * time.Second
	poolConfig.MaxConnLifetime = 1 * time.Hour

	// Health check period (how often to check idle connections)
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	// Create the connection pool
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test the connection immediately
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{Pool: pool}, nil
}

// MigrateUp runs all embedded Postgres migrations up to the latest version.
// Returns nil if no migrations were needed.
func (db *Database) MigrateUp(log *logger.Logger) error {
	m, err := db.newMigrate(log)
	if err != nil {
		return err
	}
	// Closing m releases its connection; the pool stays open.
	defer m.Close()

	return up(m)
}

// MigrateVersion returns the current Postgres migration version and dirty
// state. Returns 0, false, nil if no migrations have been applied yet.
func (db *Database) MigrateVersion() (uint, bool, error) {
	m, err := db.newMigrate(nil)
	if err != nil {
		return 0, false, err
	}
	defer m.Close()

	return version(m)
}

func (db *Database) newMigrate(log *logger.Logger) (*migrate.Migrate, error) {
	// The migrate driver speaks database/sql; borrow connections from the pool
	sqlDB := stdlib.OpenDBFromPool(db.Pool)

	driver, err := pgxmigrate.WithInstance(sqlDB, &pgxmigrate.Config{})
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to create postgres migrate driver: %w", err)
	}
	m, err := newMigrate(postgresMigrations, "pgx5", driver, log)
	if err != nil {
		_ = driver.Close()
		return nil, err
	}
	return m, nil
}

// Ping checks if the database connection is alive.
// It returns an error if the connection is not available.
func (db *Database) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// Close gracefully closes the database connection pool.
// It waits for all connections to be returned to the pool before closing.
func (db *Database) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// Stats returns statistics about the connection pool.
// This is useful for monitoring and debugging.
func (db *Database) Stats() *pgxpool.Stat {
	if db.Pool == nil {
		return nil
	}
	return db.Pool.Stat()
}
