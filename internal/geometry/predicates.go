// Package geometry holds the planar predicates used to classify parcels:
// point-in-polygon, vertex-mean centroids and representative points.
//
// Coordinates are treated as planar [x, y] = [lng, lat]. Only the outer ring of
// each polygon takes part in containment; holes are not excluded.
package geometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Geometry errors. Callers treat any of them as "does not contain".
var (
	ErrInvalidGeometry     = errors.New("invalid geometry")
	ErrEmptyGeometry       = fmt.Errorf("%w: empty", ErrInvalidGeometry)
	ErrTooFewPoints        = fmt.Errorf("%w: ring has fewer than 3 distinct vertices", ErrInvalidGeometry)
	ErrNonFiniteCoordinate = fmt.Errorf("%w: non-finite coordinate", ErrInvalidGeometry)
	ErrSelfIntersection    = fmt.Errorf("%w: outer ring self-intersects", ErrInvalidGeometry)
	ErrUnsupportedType     = fmt.Errorf("%w: unsupported geometry type", ErrInvalidGeometry)
)

// OuterRings returns the outer ring of every polygon in g.
func OuterRings(g orb.Geometry) ([]orb.Ring, error) {
	switch v := g.(type) {
	case orb.Polygon:
		if len(v) == 0 {
			return nil, ErrEmptyGeometry
		}
		return []orb.Ring{v[0]}, nil
	case orb.MultiPolygon:
		rings := make([]orb.Ring, 0, len(v))
		for _, p := range v {
			if len(p) > 0 {
				rings = append(rings, p[0])
			}
		}
		if len(rings) == 0 {
			return nil, ErrEmptyGeometry
		}
		return rings, nil
	case orb.Ring:
		return []orb.Ring{v}, nil
	case nil:
		return nil, ErrEmptyGeometry
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, g.GeoJSONType())
	}
}

// PointInPolygon reports whether pt lies inside the outer ring of any polygon
// of g. Points on the boundary count as inside. Degenerate rings return an
// error wrapping ErrInvalidGeometry together with false.
func PointInPolygon(pt orb.Point, g orb.Geometry) (inside bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			inside = false
			err = fmt.Errorf("%w: panic during containment test: %v", ErrInvalidGeometry, r)
		}
	}()

	if !isFinite(pt) {
		return false, ErrNonFiniteCoordinate
	}

	rings, err := OuterRings(g)
	if err != nil {
		return false, err
	}

	var firstErr error
	for _, ring := range rings {
		if err := checkRing(ring); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if planar.RingContains(ring, pt) {
			return true, nil
		}
	}
	return false, firstErr
}

// Validate runs the full validity check on g, including the quadratic
// self-intersection test. Use it once per polygon, not per query.
func Validate(g orb.Geometry) error {
	rings, err := OuterRings(g)
	if err != nil {
		return err
	}
	for _, ring := range rings {
		if err := checkRing(ring); err != nil {
			return err
		}
		if selfIntersects(ring) {
			return ErrSelfIntersection
		}
	}
	return nil
}

// Centroid returns the arithmetic mean of the outer-ring vertices of g, with
// the closing vertex of each ring counted once. This is not the area-weighted
// centroid: for concave shapes the result can fall outside the polygon.
func Centroid(g orb.Geometry) (orb.Point, error) {
	rings, err := OuterRings(g)
	if err != nil {
		return orb.Point{}, err
	}

	var sx, sy float64
	n := 0
	for _, ring := range rings {
		for _, p := range openRing(ring) {
			if !isFinite(p) {
				return orb.Point{}, ErrNonFiniteCoordinate
			}
			sx += p[0]
			sy += p[1]
			n++
		}
	}
	if n == 0 {
		return orb.Point{}, ErrEmptyGeometry
	}
	return orb.Point{sx / float64(n), sy / float64(n)}, nil
}

// openRing drops the closing vertex when the ring repeats its first point.
func openRing(r orb.Ring) orb.Ring {
	if len(r) > 1 && r[0].Equal(r[len(r)-1]) {
		return r[:len(r)-1]
	}
	return r
}

// distinctVertices returns the open ring with consecutive repeated vertices
// collapsed, so no zero-length edge remains.
func distinctVertices(r orb.Ring) []orb.Point {
	open := openRing(r)
	pts := make([]orb.Point, 0, len(open))
	for _, p := range open {
		if len(pts) > 0 && pts[len(pts)-1].Equal(p) {
			continue
		}
		pts = append(pts, p)
	}
	for len(pts) > 1 && pts[0].Equal(pts[len(pts)-1]) {
		pts = pts[:len(pts)-1]
	}
	return pts
}

func checkRing(r orb.Ring) error {
	open := distinctVertices(r)
	if len(open) < 3 {
		return ErrTooFewPoints
	}
	for _, p := range open {
		if !isFinite(p) {
			return ErrNonFiniteCoordinate
		}
	}
	return nil
}

func isFinite(p orb.Point) bool {
	return !math.IsNaN(p[0]) && !math.IsNaN(p[1]) && !math.IsInf(p[0], 0) && !math.IsInf(p[1], 0)
}

// selfIntersects tests every pair of non-adjacent edges of the closed ring.
// Repeated vertices are collapsed first.
func selfIntersects(r orb.Ring) bool {
	pts := distinctVertices(r)
	n := len(pts)
	for i := 0; i < n; i++ {
		a1, a2 := pts[i], pts[(i+1)%n]
		for j := i + 1; j < n; j++ {
			if j == i+1 || (i == 0 && j == n-1) {
				continue
			}
			b1, b2 := pts[j], pts[(j+1)%n]
			if segmentsIntersect(a1, a2, b1, b2) {
				return true
			}
		}
	}
	return false
}

func segmentsIntersect(p1, p2, q1, q2 orb.Point) bool {
	d1 := orientation(q1, q2, p1)
	d2 := orientation(q1, q2, p2)
	d3 := orientation(p1, p2, q1)
	d4 := orientation(p1, p2, q2)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return (d1 == 0 && onSegment(q1, q2, p1)) ||
		(d2 == 0 && onSegment(q1, q2, p2)) ||
		(d3 == 0 && onSegment(p1, p2, q1)) ||
		(d4 == 0 && onSegment(p1, p2, q2))
}

func orientation(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

func onSegment(a, b, p orb.Point) bool {
	return math.Min(a[0], b[0]) <= p[0] && p[0] <= math.Max(a[0], b[0]) &&
		math.Min(a[1], b[1]) <= p[1] && p[1] <= math.Max(a[1], b[1])
}
