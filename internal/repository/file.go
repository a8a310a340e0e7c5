package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/DennisWilmot/land-mapping-web/internal/models"
)

// FileSelectionRepository stores the collection as one JSON array on disk.
type FileSelectionRepository struct {
	path string
	mu   sync.Mutex
}

// NewFileSelectionRepository creates a store backed by the file at path.
// The file is created on first save.
func NewFileSelectionRepository(path string) *FileSelectionRepository {
	return &FileSelectionRepository{path: path}
}

// Load reads the file. A missing or empty file is an empty collection.
func (r *FileSelectionRepository) Load(ctx context.Context) ([]models.SavedSelection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []models.SavedSelection{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", r.path, err)
	}
	if len(data) == 0 {
		return []models.SavedSelection{}, nil
	}

	var out []models.SavedSelection
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptData, r.path, err)
	}
	if out == nil {
		out = []models.SavedSelection{}
	}
	return out, nil
}

// SaveAll writes to a temporary file and renames it over the target, so a
// crash never leaves a half-written collection behind.
func (r *FileSelectionRepository) SaveAll(ctx context.Context, selections []models.SavedSelection) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if selections == nil {
		selections = []models.SavedSelection{}
	}
	data, err := json.MarshalIndent(selections, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode selections: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write selections: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync selections: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", r.path, err)
	}
	return nil
}

func (r *FileSelectionRepository) Name() string { return "file" }

// Path returns the backing file path.
func (r *FileSelectionRepository) Path() string { return r.path }
