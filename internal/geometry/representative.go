package geometry

import (
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
)

// Representer picks the single point used to classify a whole parcel.
type Representer interface {
	RepresentativePoint(g orb.Geometry) (orb.Point, error)
	Name() string
}

const (
	RepresenterVertexMean = "vertex_mean"
	RepresenterInterior   = "interior"
)

// NewRepresenter returns the representer registered under name.
func NewRepresenter(name string) (Representer, error) {
	switch name {
	case "", RepresenterVertexMean:
		return VertexMean{}, nil
	case RepresenterInterior:
		return InteriorPoint{}, nil
	default:
		return nil, fmt.Errorf("unknown representative point strategy %q", name)
	}
}

// VertexMean uses Centroid: cheap, but may land outside concave parcels.
type VertexMean struct{}

func (VertexMean) RepresentativePoint(g orb.Geometry) (orb.Point, error) {
	return Centroid(g)
}

func (VertexMean) Name() string { return RepresenterVertexMean }

// InteriorPoint returns the midpoint of the widest interior span along a
// horizontal scanline through the middle of the polygon. Holes are honoured
// here, so the point is inside the polygon's area for any valid ring set.
// When no span can be found it falls back to the vertex mean.
type InteriorPoint struct{}

func (InteriorPoint) Name() string { return RepresenterInterior }

func (InteriorPoint) RepresentativePoint(g orb.Geometry) (orb.Point, error) {
	var polys []orb.Polygon
	switch v := g.(type) {
	case orb.Polygon:
		polys = []orb.Polygon{v}
	case orb.MultiPolygon:
		polys = v
	default:
		return Centroid(g)
	}

	best := orb.Point{}
	bestWidth := -1.0
	for _, p := range polys {
		if len(p) == 0 || checkRing(p[0]) != nil {
			continue
		}
		pt, width, ok := widestSpan(p)
		if ok && width > bestWidth {
			best, bestWidth = pt, width
		}
	}
	if bestWidth < 0 {
		return Centroid(g)
	}
	return best, nil
}

// widestSpan intersects the polygon with a scanline chosen to avoid vertices.
func widestSpan(p orb.Polygon) (orb.Point, float64, bool) {
	y, ok := scanlineY(p)
	if !ok {
		return orb.Point{}, 0, false
	}

	var xs []float64
	for _, ring := range p {
		n := len(ring)
		for i, j := 0, n-1; i < n; j, i = i, i+1 {
			a, b := ring[j], ring[i]
			if (a[1] > y) != (b[1] > y) {
				xs = append(xs, a[0]+(y-a[1])*(b[0]-a[0])/(b[1]-a[1]))
			}
		}
	}
	if len(xs) < 2 {
		return orb.Point{}, 0, false
	}
	sort.Float64s(xs)

	bestMid, bestWidth := 0.0, -1.0
	for i := 0; i+1 < len(xs); i += 2 {
		if w := xs[i+1] - xs[i]; w > bestWidth {
			bestWidth = w
			bestMid = (xs[i] + xs[i+1]) / 2
		}
	}
	return orb.Point{bestMid, y}, bestWidth, bestWidth > 0
}

// scanlineY returns a y strictly between two distinct vertex ordinates, as
// close as possible to the middle of the outer ring's bounds.
func scanlineY(p orb.Polygon) (float64, bool) {
	b := p[0].Bound()
	centre := (b.Min[1] + b.Max[1]) / 2

	seen := make(map[float64]struct{})
	var ys []float64
	for _, ring := range p {
		for _, pt := range ring {
			if _, dup := seen[pt[1]]; !dup {
				seen[pt[1]] = struct{}{}
				ys = append(ys, pt[1])
			}
		}
	}
	if len(ys) < 2 {
		return 0, false
	}
	sort.Float64s(ys)

	bestY, bestDist := 0.0, math.Inf(1)
	for i := 0; i+1 < len(ys); i++ {
		mid := (ys[i] + ys[i+1]) / 2
		if d := math.Abs(mid - centre); d < bestDist {
			bestY, bestDist = mid, d
		}
	}
	return bestY, true
}
