// Package repository persists saved selections. Every store keeps the whole
// collection in order; SaveAll replaces it atomically where the backend allows.
package repository

import (
	"context"
	"errors"

	"github.com/DennisWilmot/land-mapping-web/internal/models"
)

// ErrCorruptData is returned by Load when stored data cannot be decoded.
var ErrCorruptData = errors.New("stored selections are corrupt")

// SelectionRepository loads and stores the full saved-selection collection.
type SelectionRepository interface {
	// Load returns every saved selection in stored order.
	// An empty store returns an empty slice, not an error.
	Load(ctx context.Context) ([]models.SavedSelection, error)

	// SaveAll replaces the stored collection with selections.
	SaveAll(ctx context.Context, selections []models.SavedSelection) error

	// Name identifies the backend in logs and metrics.
	Name() string
}

// Pinger is implemented by stores backed by a remote service.
type Pinger interface {
	Ping(ctx context.Context) error
}

func cloneAll(in []models.SavedSelection) []models.SavedSelection {
	out := make([]models.SavedSelection, len(in))
	for i, s := range in {
		out[i] = s.Clone()
	}
	return out
}
