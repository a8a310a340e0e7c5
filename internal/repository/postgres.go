package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/DennisWilmot/land-mapping-web/internal/database"
	"github.com/DennisWilmot/land-mapping-web/internal/logger"
	"github.com/DennisWilmot/land-mapping-web/internal/models"
)

// PostgresSelectionRepository stores selections in the saved_selections table.
type PostgresSelectionRepository struct {
	db *database.Database
}

// NewPostgresSelectionRepository creates the repository after applying the
// embedded schema migrations.
func NewPostgresSelectionRepository(db *database.Database, log *logger.Logger) (*PostgresSelectionRepository, error) {
	if err := db.MigrateUp(log); err != nil {
		return nil, fmt.Errorf("failed to migrate saved_selections schema: %w", err)
	}
	return &PostgresSelectionRepository{db: db}, nil
}

// Load returns all rows ordered by their stored position.
func (r *PostgresSelectionRepository) Load(ctx context.Context) ([]models.SavedSelection, error) {
	query := `
		SELECT id::text, name, parcel_ids, created_at, updated_at
		FROM saved_selections
		ORDER BY sort_order
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query saved selections: %w", err)
	}
	defer rows.Close()

	out := []models.SavedSelection{}
	for rows.Next() {
		var (
			s  models.SavedSelection
			id string
		)
		if err := rows.Scan(&id, &s.Name, &s.ParcelIDs, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan saved selection row: %w", err)
		}
		if s.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("%w: bad id %q: %v", ErrCorruptData, id, err)
		}
		s.CreatedAt = s.CreatedAt.UTC()
		s.UpdatedAt = s.UpdatedAt.UTC()
		out = append(out, s)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating saved selection rows: %w", err)
	}
	return out, nil
}

// SaveAll replaces the table contents in one transaction.
func (r *PostgresSelectionRepository) SaveAll(ctx context.Context, selections []models.SavedSelection) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM saved_selections`); err != nil {
		return fmt.Errorf("failed to clear saved selections: %w", err)
	}

	insert := `
		INSERT INTO saved_selections (id, name, parcel_ids, sort_order, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	batch := &pgx.Batch{}
	for i, s := range selections {
		ids, err := s.ParcelIDs.Value()
		if err != nil {
			return err
		}
		batch.Queue(insert, s.ID.String(), s.Name, ids, i, s.CreatedAt, s.UpdatedAt)
	}

	br := tx.SendBatch(ctx, batch)
	for i := range selections {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("failed to insert saved selection %s: %w", selections[i].ID, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to finish batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit saved selections: %w", err)
	}
	return nil
}

func (r *PostgresSelectionRepository) Name() string { return "postgres" }

// Ping checks the database connection.
func (r *PostgresSelectionRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
