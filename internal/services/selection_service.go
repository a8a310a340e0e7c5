package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/DennisWilmot/land-mapping-web/internal/logger"
	"github.com/DennisWilmot/land-mapping-web/internal/models"
	"github.com/DennisWilmot/land-mapping-web/internal/selection"
)

// ErrInvalidPick is returned when a pick names neither a parcel nor a point.
var ErrInvalidPick = errors.New("pick requires a parcel id or a point")

// PickRequest is a click on the map. Either ParcelID or both Lat and Lng are set.
type PickRequest struct {
	ParcelID *int
	Lat      *float64
	Lng      *float64
	Multi    bool
}

// SelectionService holds the current parcel selection.
type SelectionService interface {
	Current() selection.Selection

	// Pick applies a click. A point that hits no parcel clears the list.
	Pick(ctx context.Context, req PickRequest) (selection.Selection, error)

	Remove(ctx context.Context, parcelID int) selection.Selection

	// Reorder replaces the list with parcelIDs in order.
	// Returns ErrParcelNotFound if an id is not in the dataset.
	Reorder(ctx context.Context, parcelIDs []int) (selection.Selection, error)

	// Clear empties the list and drops the project binding.
	Clear(ctx context.Context) selection.Selection

	// Restore loads a saved project. Returns ErrProjectNotFound.
	Restore(ctx context.Context, projectID uuid.UUID) (selection.Selection, error)
}

type selectionService struct {
	parcels  ParcelService
	projects ProjectService
	log      *logger.Logger

	mu  sync.Mutex
	cur selection.Selection
}

// NewSelectionService creates an empty selection over the given services.
func NewSelectionService(parcels ParcelService, projects ProjectService, log *logger.Logger) SelectionService {
	if log == nil {
		log = logger.Nop()
	}
	return &selectionService{
		parcels:  parcels,
		projects: projects,
		log:      log,
		cur:      selection.Empty(),
	}
}

func (s *selectionService) Current() selection.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

func (s *selectionService) Pick(ctx context.Context, req PickRequest) (selection.Selection, error) {
	var (
		id     int
		center [2]float64
	)
	switch {
	case req.ParcelID != nil:
		c, err := s.center(*req.ParcelID)
		if err != nil {
			return selection.Selection{}, err
		}
		id, center = *req.ParcelID, c

	case req.Lat != nil && req.Lng != nil:
		d, err := s.parcels.GetParcelAtPoint(ctx, *req.Lat, *req.Lng)
		if errors.Is(err, ErrParcelNotFound) {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.cur = selection.ClickEmpty(s.cur)
			return s.cur, nil
		}
		if err != nil {
			return selection.Selection{}, err
		}
		id, center = d.Parcel.Properties.ObjectID, [2]float64{d.Center[0], d.Center[1]}

	default:
		return selection.Selection{}, ErrInvalidPick
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = selection.Pick(s.cur, id, center, req.Multi)

	s.log.Debug("Parcel picked", map[string]interface{}{
		"parcel_id": id,
		"multi":     req.Multi,
		"selected":  s.cur.Len(),
	})
	return s.cur, nil
}

func (s *selectionService) Remove(ctx context.Context, parcelID int) selection.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = selection.Remove(s.cur, parcelID)
	return s.cur
}

func (s *selectionService) Reorder(ctx context.Context, parcelIDs []int) (selection.Selection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	known := make(map[int][2]float64, len(s.cur.Items))
	for _, it := range s.cur.Items {
		known[it.ParcelID] = it.Center
	}

	items := make([]models.SelectedParcel, 0, len(parcelIDs))
	for _, id := range parcelIDs {
		c, ok := known[id]
		if !ok {
			var err error
			if c, err = s.center(id); err != nil {
				return selection.Selection{}, err
			}
		}
		items = append(items, models.SelectedParcel{ParcelID: id, Center: c})
	}

	s.cur = selection.Reorder(s.cur, items)
	return s.cur, nil
}

func (s *selectionService) Clear(ctx context.Context) selection.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = selection.Clear(s.cur)
	return s.cur
}

func (s *selectionService) Restore(ctx context.Context, projectID uuid.UUID) (selection.Selection, error) {
	project, ok := s.projects.Get(ctx, projectID)
	if !ok {
		return selection.Selection{}, fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
	}
	// Without a dataset every saved id would be dropped.
	if !s.parcels.Ready() {
		return selection.Selection{}, ErrDatasetNotLoaded
	}

	restored := selection.Restore(project, s.parcels.Center)
	if dropped := len(project.ParcelIDs) - restored.Len(); dropped > 0 {
		s.log.Warn("Saved selection references parcels missing from the dataset", map[string]interface{}{
			"project_id": projectID.String(),
			"dropped":    dropped,
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = restored
	return s.cur, nil
}

// center looks up a parcel's selection center in the active dataset.
func (s *selectionService) center(id int) ([2]float64, error) {
	if !s.parcels.Ready() {
		return [2]float64{}, ErrDatasetNotLoaded
	}
	c, ok := s.parcels.Center(id)
	if !ok {
		return [2]float64{}, fmt.Errorf("%w: OBJECTID %d", ErrParcelNotFound, id)
	}
	return c, nil
}
