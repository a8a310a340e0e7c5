// Package preprocess runs the expensive per-parcel classification pass:
// representative point, boundary containment, division and owner presence.
// Results are memoized by input fingerprint so filter changes never re-run it.
package preprocess

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/paulmach/orb"

	"github.com/DennisWilmot/land-mapping-web/internal/fingerprint"
	"github.com/DennisWilmot/land-mapping-web/internal/geometry"
	"github.com/DennisWilmot/land-mapping-web/internal/logger"
	"github.com/DennisWilmot/land-mapping-web/internal/metrics"
	"github.com/DennisWilmot/land-mapping-web/internal/models"
)

// ErrMissingInput is returned when a required dataset is absent.
var ErrMissingInput = errors.New("missing preprocess input")

// DivisionResolver is the division lookup used during classification.
type DivisionResolver interface {
	DivisionOf(pt orb.Point) (models.DivisionName, bool)
	Fingerprint() uint64
}

// Input bundles the datasets a pass depends on. None of them is modified.
type Input struct {
	Parcels   *models.ParcelSet
	Boundary  orb.Geometry
	Divisions DivisionResolver
	Owners    *models.OwnerLookup
	// BoundaryFingerprint is computed from Boundary when zero.
	BoundaryFingerprint uint64
}

// Key returns the memo key for the input under the given representer.
func (in Input) Key(rep geometry.Representer) uint64 {
	bfp := in.BoundaryFingerprint
	if bfp == 0 {
		bfp = fingerprint.New().Geometry(in.Boundary).Sum()
	}
	return fingerprint.Combine(
		in.Parcels.Fingerprint,
		bfp,
		in.Divisions.Fingerprint(),
		in.Owners.Fingerprint,
		fingerprint.New().String(rep.Name()).Sum(),
	)
}

func (in Input) validate() error {
	switch {
	case in.Parcels == nil:
		return fmt.Errorf("%w: parcels", ErrMissingInput)
	case in.Divisions == nil:
		return fmt.Errorf("%w: divisions", ErrMissingInput)
	case in.Owners == nil:
		return fmt.Errorf("%w: owners", ErrMissingInput)
	}
	return nil
}

// Stats summarises one classification pass.
type Stats struct {
	Total          int `json:"total"`
	InBoundary     int `json:"inBoundary"`
	WithOwners     int `json:"withOwners"`
	WithDivision   int `json:"withDivision"`
	PointErrors    int `json:"pointErrors"`
	BoundaryErrors int `json:"boundaryErrors"`
}

// Result is the immutable output of a pass.
type Result struct {
	Parcels []models.AnnotatedParcel
	Stats   Stats
	Key     uint64
	byID    map[int]int
}

// Get returns the annotated parcel with the given OBJECTID.
func (r *Result) Get(objectID int) (models.AnnotatedParcel, bool) {
	if r == nil {
		return models.AnnotatedParcel{}, false
	}
	i, ok := r.byID[objectID]
	if !ok {
		return models.AnnotatedParcel{}, false
	}
	return r.Parcels[i], true
}

// Annotate classifies every parcel of in. Output order equals parcel order.
// Geometry errors are logged and counted; they never abort the pass.
func Annotate(in Input, rep geometry.Representer, log *logger.Logger) (*Result, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	// An invalid boundary, self-intersecting included, contains nothing.
	boundaryInvalid := geometry.Validate(in.Boundary)
	if boundaryInvalid != nil {
		log.Warn("Constituency boundary failed validation", map[string]interface{}{
			"error": boundaryInvalid.Error(),
		})
	}

	parcels := in.Parcels.Parcels
	res := &Result{
		Parcels: make([]models.AnnotatedParcel, len(parcels)),
		byID:    make(map[int]int, len(parcels)),
	}
	var boundaryErr error

	for i, p := range parcels {
		a := models.AnnotatedParcel{Parcel: p}
		id := p.Properties.ObjectID

		a.HasOwner = in.Owners.Has(p.Properties.LVNumber)

		pt, err := rep.RepresentativePoint(p.Geometry)
		if err != nil {
			res.Stats.PointErrors++
			log.Debug("Parcel has no representative point", map[string]interface{}{
				"object_id": id,
				"error":     err.Error(),
			})
		} else {
			a.Center = pt

			if boundaryInvalid != nil {
				res.Stats.BoundaryErrors++
				boundaryErr = boundaryInvalid
			} else {
				inside, err := geometry.PointInPolygon(pt, in.Boundary)
				if err != nil {
					res.Stats.BoundaryErrors++
					boundaryErr = err
				}
				a.IsInBoundary = inside
			}

			if div, ok := in.Divisions.DivisionOf(pt); ok {
				d := div
				a.Division = &d
			}
		}

		res.Parcels[i] = a
		res.byID[id] = i
		res.Stats.Total++
		if a.IsInBoundary {
			res.Stats.InBoundary++
		}
		if a.HasOwner {
			res.Stats.WithOwners++
		}
		if a.Division != nil {
			res.Stats.WithDivision++
		}
	}

	if res.Stats.PointErrors > 0 || res.Stats.BoundaryErrors > 0 {
		fields := map[string]interface{}{
			"point_errors":    res.Stats.PointErrors,
			"boundary_errors": res.Stats.BoundaryErrors,
		}
		if boundaryErr != nil {
			fields["boundary_error"] = boundaryErr.Error()
		}
		log.Warn("Recovered geometry errors during classification", fields)
	}
	metrics.GeometryErrors("representative_point", res.Stats.PointErrors)
	metrics.GeometryErrors("boundary", res.Stats.BoundaryErrors)

	return res, nil
}

// Preprocessor memoizes Annotate by input fingerprint.
type Preprocessor struct {
	rep    geometry.Representer
	log    *logger.Logger
	cache  *lru.Cache[uint64, *Result]
	mu     sync.Mutex
	passes atomic.Int64
}

// New creates a Preprocessor keeping up to cacheSize results.
func New(rep geometry.Representer, cacheSize int, log *logger.Logger) (*Preprocessor, error) {
	if rep == nil {
		rep = geometry.VertexMean{}
	}
	if cacheSize <= 0 {
		cacheSize = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	cache, err := lru.New[uint64, *Result](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create preprocess cache: %w", err)
	}
	return &Preprocessor{rep: rep, log: log, cache: cache}, nil
}

// Run returns the classification for in, computing it only when no pass with
// the same inputs is cached. Concurrent callers with the same inputs wait for
// the pass in flight instead of starting their own.
func (p *Preprocessor) Run(in Input) (*Result, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	key := in.Key(p.rep)

	p.mu.Lock()
	defer p.mu.Unlock()

	if res, ok := p.cache.Get(key); ok {
		metrics.PreprocessCache(true)
		return res, nil
	}
	metrics.PreprocessCache(false)

	start := time.Now()
	res, err := Annotate(in, p.rep, p.log)
	if err != nil {
		return nil, err
	}
	res.Key = key
	elapsed := time.Since(start)

	p.passes.Add(1)
	p.cache.Add(key, res)

	metrics.ObservePreprocess(elapsed.Seconds())
	metrics.SetParcelCounts(res.Stats.Total, res.Stats.InBoundary, res.Stats.WithOwners, res.Stats.WithDivision)

	p.log.Info("Parcel classification pass complete", map[string]interface{}{
		"parcels":       res.Stats.Total,
		"in_boundary":   res.Stats.InBoundary,
		"with_owner":    res.Stats.WithOwners,
		"with_division": res.Stats.WithDivision,
		"duration_ms":   elapsed.Milliseconds(),
		"representer":   p.rep.Name(),
	})

	return res, nil
}

// Passes reports how many full classification passes have run.
func (p *Preprocessor) Passes() int64 {
	return p.passes.Load()
}

// Representer returns the representative-point strategy in use.
func (p *Preprocessor) Representer() geometry.Representer {
	return p.rep
}
