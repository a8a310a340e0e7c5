package repository

import (
	"context"
	"sync"

	"github.com/DennisWilmot/land-mapping-web/internal/models"
)

// MemorySelectionRepository keeps selections in process memory.
// It is used in tests and when STORAGE_BACKEND=memory.
type MemorySelectionRepository struct {
	mu    sync.Mutex
	items []models.SavedSelection
	saves int
}

// NewMemorySelectionRepository creates a store holding a copy of initial.
func NewMemorySelectionRepository(initial ...models.SavedSelection) *MemorySelectionRepository {
	return &MemorySelectionRepository{items: cloneAll(initial)}
}

func (r *MemorySelectionRepository) Load(ctx context.Context) ([]models.SavedSelection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneAll(r.items), nil
}

func (r *MemorySelectionRepository) SaveAll(ctx context.Context, selections []models.SavedSelection) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = cloneAll(selections)
	r.saves++
	return nil
}

func (r *MemorySelectionRepository) Name() string { return "memory" }

// Saves reports how many times SaveAll succeeded.
func (r *MemorySelectionRepository) Saves() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}
