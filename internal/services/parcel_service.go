package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/paulmach/orb"

	"github.com/DennisWilmot/land-mapping-web/internal/config"
	"github.com/DennisWilmot/land-mapping-web/internal/dataset"
	"github.com/DennisWilmot/land-mapping-web/internal/division"
	"github.com/DennisWilmot/land-mapping-web/internal/filter"
	"github.com/DennisWilmot/land-mapping-web/internal/geometry"
	"github.com/DennisWilmot/land-mapping-web/internal/logger"
	"github.com/DennisWilmot/land-mapping-web/internal/models"
	"github.com/DennisWilmot/land-mapping-web/internal/preprocess"
)

// Coordinate validation constants
const (
	MinLatitude  = -90.0
	MaxLatitude  = 90.0
	MinLongitude = -180.0
	MaxLongitude = 180.0
)

// Service-level errors
var (
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	ErrParcelNotFound     = errors.New("parcel not found")
	ErrInvalidFilter      = errors.New("invalid filter")
	ErrDatasetNotLoaded   = errors.New("dataset not loaded")
)

// Snapshot is one loaded dataset together with its classification.
// Snapshots are immutable; Reload swaps in a new one.
type Snapshot struct {
	ReloadedAt time.Time
	Dataset    *dataset.Dataset
	Resolver   *division.Resolver
	Annotated  *preprocess.Result
}

// ParcelDetails is everything known about a single parcel.
type ParcelDetails struct {
	Parcel     *models.Parcel
	Owner      *models.Owner
	Center     orb.Point
	Annotation models.Annotation
}

// DivisionSummary describes one division for outline rendering.
type DivisionSummary struct {
	Name        models.DivisionName
	Outline     orb.MultiPolygon
	Communities int
	Parcels     int
}

// ParcelService defines the parcel map operations.
type ParcelService interface {
	// Reload loads the datasets and classifies them. The previous snapshot
	// stays active if anything fails.
	Reload(ctx context.Context) (*Snapshot, error)

	// Snapshot returns the active snapshot or ErrDatasetNotLoaded.
	Snapshot() (*Snapshot, error)

	// Ready reports whether a snapshot is active.
	Ready() bool

	// DefaultFilter returns a filter showing every parcel.
	DefaultFilter() (filter.Config, error)

	// Filter applies cfg to the classified parcels.
	// Returns ErrInvalidFilter if cfg can never match.
	Filter(ctx context.Context, cfg filter.Config) (filter.Result, error)

	// GetParcel returns details for one OBJECTID or ErrParcelNotFound.
	GetParcel(ctx context.Context, objectID int) (*ParcelDetails, error)

	// GetParcelAtPoint returns the parcel whose polygon contains the point.
	// Returns ErrInvalidCoordinates or ErrParcelNotFound.
	GetParcelAtPoint(ctx context.Context, lat, lng float64) (*ParcelDetails, error)

	// Divisions returns every division in priority order.
	Divisions(ctx context.Context) ([]DivisionSummary, error)

	// Center returns the representative point of a parcel as [lng, lat].
	Center(objectID int) ([2]float64, bool)
}

// parcelService is the concrete implementation of ParcelService.
type parcelService struct {
	loader     dataset.Loader
	classifier *division.Classifier
	pre        *preprocess.Preprocessor
	cfg        config.ClassificationConfig
	log        *logger.Logger

	reloadMu sync.Mutex
	current  atomic.Pointer[Snapshot]
}

// NewParcelService builds the classification pipeline from cfg. No data is
// loaded until Reload is called.
func NewParcelService(loader dataset.Loader, cfg config.ClassificationConfig, log *logger.Logger) (ParcelService, error) {
	if log == nil {
		log = logger.Nop()
	}
	fallback, err := division.NewFallback(cfg.Fallback)
	if err != nil {
		return nil, err
	}
	classifier, err := division.NewClassifier(cfg.Divisions, fallback)
	if err != nil {
		return nil, err
	}
	rep, err := geometry.NewRepresenter(cfg.RepresentativePoint)
	if err != nil {
		return nil, err
	}
	pre, err := preprocess.New(rep, cfg.CacheSize, log.WithComponent("preprocess"))
	if err != nil {
		return nil, err
	}

	return &parcelService{
		loader:     loader,
		classifier: classifier,
		pre:        pre,
		cfg:        cfg,
		log:        log,
	}, nil
}

func (s *parcelService) Reload(ctx context.Context) (*Snapshot, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	start := time.Now()
	ds, err := s.loader.Load(ctx)
	if err != nil {
		s.log.Error("Failed to load datasets", err, nil)
		return nil, fmt.Errorf("failed to load datasets: %w", err)
	}

	resolver, err := division.NewResolver(ds.Communities, s.classifier,
		division.WithLogger(s.log.WithComponent("division")),
		division.WithIndex(s.cfg.SpatialIndex, s.cfg.GridCells),
	)
	if err != nil {
		s.log.Error("Failed to build division resolver", err, nil)
		return nil, fmt.Errorf("failed to build division resolver: %w", err)
	}

	annotated, err := s.pre.Run(preprocess.Input{
		Parcels:             ds.Parcels,
		Boundary:            ds.Boundary,
		Divisions:           resolver,
		Owners:              ds.Owners,
		BoundaryFingerprint: ds.BoundaryFingerprint,
	})
	if err != nil {
		s.log.Error("Failed to classify parcels", err, nil)
		return nil, fmt.Errorf("failed to classify parcels: %w", err)
	}

	snap := &Snapshot{
		ReloadedAt: time.Now().UTC(),
		Dataset:    ds,
		Resolver:   resolver,
		Annotated:  annotated,
	}
	s.current.Store(snap)

	s.log.Info("Parcel snapshot active", map[string]interface{}{
		"parcels":     annotated.Stats.Total,
		"in_boundary": annotated.Stats.InBoundary,
		"divisions":   len(resolver.Divisions()),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return snap, nil
}

func (s *parcelService) Snapshot() (*Snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrDatasetNotLoaded
	}
	return snap, nil
}

func (s *parcelService) Ready() bool {
	return s.current.Load() != nil
}

func (s *parcelService) DefaultFilter() (filter.Config, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return filter.Config{}, err
	}
	return filter.DefaultConfig(snap.Resolver.Divisions()), nil
}

func (s *parcelService) Filter(ctx context.Context, cfg filter.Config) (filter.Result, error) {
	if err := cfg.Validate(); err != nil {
		s.log.Warn("Invalid filter provided", map[string]interface{}{
			"min_size": cfg.Size.Min,
			"max_size": cfg.Size.Max,
		})
		return filter.Result{}, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	snap, err := s.Snapshot()
	if err != nil {
		return filter.Result{}, err
	}
	return filter.Apply(snap.Annotated.Parcels, cfg), nil
}

func (s *parcelService) GetParcel(ctx context.Context, objectID int) (*ParcelDetails, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	a, ok := snap.Annotated.Get(objectID)
	if !ok {
		return nil, fmt.Errorf("%w: OBJECTID %d", ErrParcelNotFound, objectID)
	}
	return details(snap, a), nil
}

// GetParcelAtPoint scans parcels in dataset order and returns the first whose
// polygon contains the point. Broken parcel geometry never matches.
func (s *parcelService) GetParcelAtPoint(ctx context.Context, lat, lng float64) (*ParcelDetails, error) {
	if err := validateCoordinates(lat, lng); err != nil {
		s.log.Warn("Invalid coordinates provided", map[string]interface{}{
			"lat": lat,
			"lng": lng,
		})
		return nil, err
	}
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}

	pt := orb.Point{lng, lat}
	for _, a := range snap.Annotated.Parcels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		g := a.Parcel.Geometry
		if g == nil || !g.Bound().Contains(pt) {
			continue
		}
		if inside, _ := geometry.PointInPolygon(pt, g); inside {
			return details(snap, a), nil
		}
	}

	s.log.Debug("No parcel found at point", map[string]interface{}{
		"lat": lat,
		"lng": lng,
	})
	return nil, ErrParcelNotFound
}

func (s *parcelService) Divisions(ctx context.Context) ([]DivisionSummary, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}

	counts := make(map[models.DivisionName]int)
	for _, a := range snap.Annotated.Parcels {
		if a.Division != nil {
			counts[*a.Division]++
		}
	}

	divs := snap.Resolver.Divisions()
	out := make([]DivisionSummary, 0, len(divs))
	for _, d := range divs {
		out = append(out, DivisionSummary{
			Name:        d,
			Outline:     snap.Resolver.Outline(d),
			Communities: len(snap.Resolver.Communities(d)),
			Parcels:     counts[d],
		})
	}
	return out, nil
}

func (s *parcelService) Center(objectID int) ([2]float64, bool) {
	snap := s.current.Load()
	if snap == nil {
		return [2]float64{}, false
	}
	a, ok := snap.Annotated.Get(objectID)
	if !ok {
		return [2]float64{}, false
	}
	return [2]float64{a.Center[0], a.Center[1]}, true
}

func details(snap *Snapshot, a models.AnnotatedParcel) *ParcelDetails {
	d := &ParcelDetails{
		Parcel:     a.Parcel,
		Center:     a.Center,
		Annotation: a.Annotation,
	}
	if o, ok := snap.Dataset.Owners.Get(a.Parcel.Properties.LVNumber); ok {
		d.Owner = &o
	}
	return d
}

func validateCoordinates(lat, lng float64) error {
	if !(lat >= MinLatitude && lat <= MaxLatitude) {
		return fmt.Errorf("%w: latitude must be between %f and %f, got %f",
			ErrInvalidCoordinates, MinLatitude, MaxLatitude, lat)
	}
	if !(lng >= MinLongitude && lng <= MaxLongitude) {
		return fmt.Errorf("%w: longitude must be between %f and %f, got %f",
			ErrInvalidCoordinates, MinLongitude, MaxLongitude, lng)
	}
	return nil
}
