package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DennisWilmot/land-mapping-web/internal/logger"
	"github.com/DennisWilmot/land-mapping-web/internal/metrics"
	"github.com/DennisWilmot/land-mapping-web/internal/models"
	"github.com/DennisWilmot/land-mapping-web/internal/repository"
)

// ErrProjectNotFound is returned by lookups of unknown saved selections.
var ErrProjectNotFound = errors.New("project not found")

// ProjectService manages named saved selections. Every mutation writes the
// whole collection through to the repository before returning.
type ProjectService interface {
	// Save creates a record. A blank name becomes "Selection N".
	Save(ctx context.Context, name string, parcelIDs []int) (models.SavedSelection, error)

	// Update replaces the parcel ids of a record. Unknown ids are a no-op.
	Update(ctx context.Context, id uuid.UUID, parcelIDs []int) error

	// Rename changes a record's name. Blank names and unknown ids are a no-op.
	Rename(ctx context.Context, id uuid.UUID, name string) error

	// Delete removes a record. Unknown ids are a no-op.
	Delete(ctx context.Context, id uuid.UUID) error

	// Get returns a copy of a record.
	Get(ctx context.Context, id uuid.UUID) (models.SavedSelection, bool)

	// List returns copies of all records in creation order.
	List(ctx context.Context) []models.SavedSelection
}

// ProjectOption configures a ProjectService.
type ProjectOption func(*projectService)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) ProjectOption {
	return func(s *projectService) { s.now = now }
}

type projectService struct {
	repo  repository.SelectionRepository
	log   *logger.Logger
	now   func() time.Time
	mu    sync.Mutex
	items []models.SavedSelection
}

// NewProjectService loads the stored collection once. A load failure is
// logged and the service starts empty.
func NewProjectService(ctx context.Context, repo repository.SelectionRepository, log *logger.Logger, opts ...ProjectOption) ProjectService {
	if log == nil {
		log = logger.Nop()
	}
	s := &projectService{
		repo: repo,
		log:  log,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	items, err := repo.Load(ctx)
	if err != nil {
		s.log.Error("Failed to load saved selections, starting empty", err, map[string]interface{}{
			"backend": repo.Name(),
		})
		items = nil
	}
	s.items = make([]models.SavedSelection, 0, len(items))
	s.items = append(s.items, items...)

	s.log.Info("Saved selections loaded", map[string]interface{}{
		"backend": repo.Name(),
		"count":   len(s.items),
	})
	return s
}

// timestamp returns the current time at the precision every backend keeps.
func (s *projectService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// later returns a timestamp strictly after prev.
func (s *projectService) later(prev time.Time) time.Time {
	t := s.timestamp()
	if !t.After(prev) {
		t = prev.Add(time.Microsecond)
	}
	return t
}

func (s *projectService) indexOf(id uuid.UUID) int {
	for i, p := range s.items {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// persist writes the collection. The in-memory change is kept even if the
// write fails; the caller gets the error.
func (s *projectService) persist(ctx context.Context, op string) error {
	snapshot := make([]models.SavedSelection, len(s.items))
	for i, p := range s.items {
		snapshot[i] = p.Clone()
	}

	err := s.repo.SaveAll(ctx, snapshot)
	metrics.StoreWrite(s.repo.Name(), err)
	if err != nil {
		s.log.Error("Failed to persist saved selections", err, map[string]interface{}{
			"backend":   s.repo.Name(),
			"operation": op,
		})
		return fmt.Errorf("failed to persist saved selections: %w", err)
	}
	return nil
}

func (s *projectService) Save(ctx context.Context, name string, parcelIDs []int) (models.SavedSelection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("Selection %d", len(s.items)+1)
	}
	now := s.timestamp()
	rec := models.SavedSelection{
		ID:        uuid.New(),
		Name:      name,
		ParcelIDs: models.ParcelIDList(parcelIDs).Clone(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.items = append(s.items, rec)

	s.log.Info("Saved selection created", map[string]interface{}{
		"project_id": rec.ID.String(),
		"parcels":    len(rec.ParcelIDs),
	})
	return rec.Clone(), s.persist(ctx, "save")
}

func (s *projectService) Update(ctx context.Context, id uuid.UUID, parcelIDs []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		s.log.Debug("Update of unknown saved selection ignored", map[string]interface{}{
			"project_id": id.String(),
		})
		return nil
	}
	s.items[i].ParcelIDs = models.ParcelIDList(parcelIDs).Clone()
	s.items[i].UpdatedAt = s.later(s.items[i].UpdatedAt)
	return s.persist(ctx, "update")
}

func (s *projectService) Rename(ctx context.Context, id uuid.UUID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name = strings.TrimSpace(name)
	i := s.indexOf(id)
	if i < 0 || name == "" {
		return nil
	}
	s.items[i].Name = name
	s.items[i].UpdatedAt = s.later(s.items[i].UpdatedAt)
	return s.persist(ctx, "rename")
}

func (s *projectService) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	return s.persist(ctx, "delete")
}

func (s *projectService) Get(ctx context.Context, id uuid.UUID) (models.SavedSelection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return models.SavedSelection{}, false
	}
	return s.items[i].Clone(), true
}

func (s *projectService) List(ctx context.Context) []models.SavedSelection {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.SavedSelection, len(s.items))
	for i, p := range s.items {
		out[i] = p.Clone()
	}
	return out
}
