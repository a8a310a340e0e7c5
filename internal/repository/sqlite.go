package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/DennisWilmot/land-mapping-web/internal/models"
)

// SQLiteSelectionRepository stores selections in an embedded SQLite database.
// The schema comes from the migrations applied by database.OpenSQLite.
type SQLiteSelectionRepository struct {
	db *sql.DB
}

// NewSQLiteSelectionRepository wraps an already migrated database.
func NewSQLiteSelectionRepository(db *sql.DB) *SQLiteSelectionRepository {
	return &SQLiteSelectionRepository{db: db}
}

func (r *SQLiteSelectionRepository) Load(ctx context.Context) ([]models.SavedSelection, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, parcel_ids, created_at, updated_at
		FROM saved_selections
		ORDER BY sort_order
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query saved selections: %w", err)
	}
	defer rows.Close()

	out := []models.SavedSelection{}
	for rows.Next() {
		var (
			s                    models.SavedSelection
			id, created, updated string
		)
		if err := rows.Scan(&id, &s.Name, &s.ParcelIDs, &created, &updated); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptData, err)
		}
		if s.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("%w: bad id %q: %v", ErrCorruptData, id, err)
		}
		if s.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("%w: bad created_at for %s: %v", ErrCorruptData, id, err)
		}
		if s.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
			return nil, fmt.Errorf("%w: bad updated_at for %s: %v", ErrCorruptData, id, err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating saved selection rows: %w", err)
	}
	return out, nil
}

func (r *SQLiteSelectionRepository) SaveAll(ctx context.Context, selections []models.SavedSelection) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM saved_selections`); err != nil {
		return fmt.Errorf("failed to clear saved selections: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO saved_selections (id, name, parcel_ids, sort_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, s := range selections {
		_, err := stmt.ExecContext(ctx,
			s.ID.String(),
			s.Name,
			s.ParcelIDs,
			i,
			s.CreatedAt.UTC().Format(time.RFC3339Nano),
			s.UpdatedAt.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("failed to insert saved selection %s: %w", s.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit saved selections: %w", err)
	}
	return nil
}

func (r *SQLiteSelectionRepository) Name() string { return "sqlite" }

// Ping checks the database handle.
func (r *SQLiteSelectionRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
