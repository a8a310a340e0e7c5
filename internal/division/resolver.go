package division

import (
	"sync/atomic"

	"github.com/paulmach/orb"

	"github.com/DennisWilmot/land-mapping-web/internal/fingerprint"
	"github.com/DennisWilmot/land-mapping-web/internal/geometry"
	"github.com/DennisWilmot/land-mapping-web/internal/logger"
	"github.com/DennisWilmot/land-mapping-web/internal/models"
)

// Community is a named polygon from the community dataset.
type Community struct {
	Geometry orb.Geometry
	Name     string
}

// ClassifiedCommunity is a community together with its assigned division.
type ClassifiedCommunity struct {
	Community
	Division models.DivisionName
	// Index is the community's position in the source dataset.
	Index int
	// Matched is true when a keyword, not the fallback, chose the division.
	Matched bool
}

// entry is a valid community in lookup order.
type entry struct {
	ClassifiedCommunity
	bound  orb.Bound
	errors *atomic.Int64
}

func (e *entry) contains(pt orb.Point) bool {
	if !e.bound.Contains(pt) {
		return false
	}
	inside, err := geometry.PointInPolygon(pt, e.Geometry)
	if err != nil {
		e.errors.Add(1)
		return false
	}
	return inside
}

// Option configures a Resolver.
type Option func(*resolverOptions)

type resolverOptions struct {
	log       *logger.Logger
	index     string
	gridCells int
}

// WithLogger sets the logger used for skipped communities and build stats.
func WithLogger(log *logger.Logger) Option {
	return func(o *resolverOptions) { o.log = log }
}

// WithIndex selects the lookup strategy ("linear" or "grid") and grid size.
func WithIndex(kind string, gridCells int) Option {
	return func(o *resolverOptions) {
		o.index = kind
		o.gridCells = gridCells
	}
}

// Resolver answers division membership for points.
// It is immutable after construction and safe for concurrent use.
type Resolver struct {
	locator     Locator
	divisions   []models.DivisionName
	groups      map[models.DivisionName][]ClassifiedCommunity
	unassigned  []ClassifiedCommunity
	skipped     []ClassifiedCommunity
	errors      atomic.Int64
	fingerprint uint64
}

// NewResolver classifies communities, drops invalid polygons and builds the
// lookup index. Invalid polygons are logged and skipped, never fatal.
func NewResolver(communities []Community, cls *Classifier, opts ...Option) (*Resolver, error) {
	o := resolverOptions{index: IndexLinear, gridCells: defaultGridCells}
	for _, opt := range opts {
		opt(&o)
	}

	r := &Resolver{
		divisions: cls.Divisions(),
		groups:    make(map[models.DivisionName][]ClassifiedCommunity),
	}

	h := fingerprint.New().String(cls.FallbackName())
	matchedCount := 0
	for i, c := range communities {
		div, ok, matched := cls.Classify(c.Name, i)
		cc := ClassifiedCommunity{Community: c, Division: div, Index: i, Matched: matched}
		h.Int(i).String(c.Name).String(string(div)).Geometry(c.Geometry)

		if err := geometry.Validate(c.Geometry); err != nil {
			r.skipped = append(r.skipped, cc)
			if o.log != nil {
				o.log.Warn("Skipping invalid community polygon", map[string]interface{}{
					"community": c.Name,
					"index":     i,
					"error":     err.Error(),
				})
			}
			continue
		}
		if !ok {
			r.unassigned = append(r.unassigned, cc)
			continue
		}
		if matched {
			matchedCount++
		}
		r.groups[div] = append(r.groups[div], cc)
	}
	r.fingerprint = h.Sum()

	// Lookup order: divisions by priority, communities by dataset order.
	var entries []*entry
	for _, div := range r.divisions {
		for _, cc := range r.groups[div] {
			entries = append(entries, &entry{
				ClassifiedCommunity: cc,
				bound:               cc.Geometry.Bound(),
				errors:              &r.errors,
			})
		}
	}

	loc, err := newLocator(o.index, entries, o.gridCells)
	if err != nil {
		return nil, err
	}
	r.locator = loc

	if o.log != nil {
		counts := make(map[string]interface{}, len(r.divisions))
		for _, div := range r.divisions {
			counts[string(div)] = len(r.groups[div])
		}
		o.log.Info("Division resolver built", map[string]interface{}{
			"communities": len(communities),
			"matched":     matchedCount,
			"unassigned":  len(r.unassigned),
			"skipped":     len(r.skipped),
			"fallback":    cls.FallbackName(),
			"index":       loc.Name(),
			"divisions":   counts,
		})
	}

	return r, nil
}

// DivisionOf returns the division of the first community polygon containing pt.
func (r *Resolver) DivisionOf(pt orb.Point) (models.DivisionName, bool) {
	return r.locator.Locate(pt)
}

// Divisions returns all division names in priority order.
func (r *Resolver) Divisions() []models.DivisionName {
	out := make([]models.DivisionName, len(r.divisions))
	copy(out, r.divisions)
	return out
}

// Communities returns the valid communities grouped under div.
func (r *Resolver) Communities(div models.DivisionName) []ClassifiedCommunity {
	return append([]ClassifiedCommunity(nil), r.groups[div]...)
}

// Unassigned returns valid communities the fallback left without a division.
func (r *Resolver) Unassigned() []ClassifiedCommunity {
	return append([]ClassifiedCommunity(nil), r.unassigned...)
}

// Skipped returns communities dropped because their geometry was invalid.
func (r *Resolver) Skipped() []ClassifiedCommunity {
	return append([]ClassifiedCommunity(nil), r.skipped...)
}

// Outline merges the polygons of all communities in div into one
// MultiPolygon for outline rendering. Shared edges are not dissolved.
func (r *Resolver) Outline(div models.DivisionName) orb.MultiPolygon {
	var out orb.MultiPolygon
	for _, cc := range r.groups[div] {
		switch g := cc.Geometry.(type) {
		case orb.Polygon:
			out = append(out, g)
		case orb.MultiPolygon:
			out = append(out, g...)
		}
	}
	return out
}

// GeometryErrors counts containment tests that failed at lookup time.
func (r *Resolver) GeometryErrors() int64 {
	return r.errors.Load()
}

// IndexName reports the lookup strategy in use.
func (r *Resolver) IndexName() string {
	return r.locator.Name()
}

// Fingerprint identifies the classified community dataset.
func (r *Resolver) Fingerprint() uint64 {
	return r.fingerprint
}
