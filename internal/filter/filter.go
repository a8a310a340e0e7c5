// Package filter applies the interactive parcel filters over an annotated set.
// Every predicate is a plain field comparison; no geometry work happens here.
package filter

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/DennisWilmot/land-mapping-web/internal/metrics"
	"github.com/DennisWilmot/land-mapping-web/internal/models"
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("invalid filter configuration")

// SizeRange is an inclusive area range in square meters.
type SizeRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether area lies within the range, bounds included.
func (r SizeRange) Contains(area float64) bool {
	return r.Min <= area && area <= r.Max
}

// Config is the set of active filters. A parcel is displayed only if it
// passes every predicate.
type Config struct {
	VisibleDivisions map[models.DivisionName]bool `json:"visibleDivisions"`
	Size             SizeRange                    `json:"size"`
	BoundaryOnly     bool                         `json:"boundaryOnly"`
	OwnersOnly       bool                         `json:"ownersOnly"`
}

// DefaultConfig shows every parcel: no toggles, unbounded size, all divisions.
func DefaultConfig(divisions []models.DivisionName) Config {
	visible := make(map[models.DivisionName]bool, len(divisions))
	for _, d := range divisions {
		visible[d] = true
	}
	return Config{
		VisibleDivisions: visible,
		Size:             SizeRange{Min: 0, Max: math.Inf(1)},
	}
}

// Validate rejects ranges that can never match.
func (c Config) Validate() error {
	if math.IsNaN(c.Size.Min) || math.IsNaN(c.Size.Max) {
		return fmt.Errorf("%w: size bounds must be numbers", ErrInvalidConfig)
	}
	if c.Size.Min > c.Size.Max {
		return fmt.Errorf("%w: minimum size %.2f exceeds maximum %.2f", ErrInvalidConfig, c.Size.Min, c.Size.Max)
	}
	return nil
}

// Counts are the aggregates shown next to the map. Total, InBoundary and
// WithOwners cover the whole annotated set; Displayed is after filtering.
type Counts struct {
	Total      int `json:"total"`
	InBoundary int `json:"inBoundary"`
	WithOwners int `json:"withOwners"`
	Displayed  int `json:"displayed"`
}

// Result is the filtered view. Displayed shares parcel pointers with the input.
type Result struct {
	Displayed []models.AnnotatedParcel
	Counts    Counts
}

// Passes reports whether a single parcel satisfies every active predicate.
//
// Size and division predicates fail open: a parcel without a usable area or
// without a resolved division is always kept, so data gaps stay visible.
func (c Config) Passes(p models.AnnotatedParcel) bool {
	if c.BoundaryOnly && !p.IsInBoundary {
		return false
	}
	if c.OwnersOnly && !p.HasOwner {
		return false
	}
	if p.Parcel != nil && p.Parcel.HasValidArea() && !c.Size.Contains(*p.Parcel.Properties.AreaSqM) {
		return false
	}
	if p.Division != nil && !c.VisibleDivisions[*p.Division] {
		return false
	}
	return true
}

// Apply filters annotated without modifying it and returns a new view.
func Apply(annotated []models.AnnotatedParcel, cfg Config) Result {
	start := time.Now()

	res := Result{Displayed: make([]models.AnnotatedParcel, 0, len(annotated))}
	res.Counts.Total = len(annotated)
	for _, p := range annotated {
		if p.IsInBoundary {
			res.Counts.InBoundary++
		}
		if p.HasOwner {
			res.Counts.WithOwners++
		}
		if cfg.Passes(p) {
			res.Displayed = append(res.Displayed, p)
		}
	}
	res.Counts.Displayed = len(res.Displayed)

	metrics.ObserveFilter(time.Since(start).Seconds())
	return res
}
