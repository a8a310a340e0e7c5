package division

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/DennisWilmot/land-mapping-web/internal/models"
)

const (
	IndexLinear = "linear"
	IndexGrid   = "grid"

	defaultGridCells = 32
)

// Locator finds the division of a point. Every implementation must return
// the same answer as a linear scan in lookup order.
type Locator interface {
	Locate(pt orb.Point) (models.DivisionName, bool)
	Name() string
}

func newLocator(kind string, entries []*entry, gridCells int) (Locator, error) {
	switch kind {
	case "", IndexLinear:
		return &linearLocator{entries: entries}, nil
	case IndexGrid:
		return newGridLocator(entries, gridCells), nil
	default:
		return nil, fmt.Errorf("unknown spatial index %q", kind)
	}
}

// linearLocator tests every community in order: O(communities) per lookup.
type linearLocator struct {
	entries []*entry
}

func (l *linearLocator) Locate(pt orb.Point) (models.DivisionName, bool) {
	for _, e := range l.entries {
		if e.contains(pt) {
			return e.Division, true
		}
	}
	return "", false
}

func (l *linearLocator) Name() string { return IndexLinear }

// gridLocator buckets community bounding boxes into a uniform grid. Each
// bucket keeps its candidates in lookup order, so the first hit matches the
// linear scan.
type gridLocator struct {
	bound  orb.Bound
	cells  [][]*entry
	nx, ny int
	cw, ch float64
}

func newGridLocator(entries []*entry, n int) *gridLocator {
	if n <= 0 {
		n = defaultGridCells
	}
	g := &gridLocator{nx: n, ny: n}
	if len(entries) == 0 {
		g.nx, g.ny = 0, 0
		return g
	}

	g.bound = entries[0].bound
	for _, e := range entries[1:] {
		g.bound = g.bound.Union(e.bound)
	}

	g.cw = (g.bound.Max[0] - g.bound.Min[0]) / float64(g.nx)
	g.ch = (g.bound.Max[1] - g.bound.Min[1]) / float64(g.ny)
	if g.cw == 0 {
		g.nx = 1
	}
	if g.ch == 0 {
		g.ny = 1
	}

	g.cells = make([][]*entry, g.nx*g.ny)
	for _, e := range entries {
		x0, y0 := g.cellOf(e.bound.Min)
		x1, y1 := g.cellOf(e.bound.Max)
		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				i := y*g.nx + x
				g.cells[i] = append(g.cells[i], e)
			}
		}
	}
	return g
}

func (g *gridLocator) cellOf(pt orb.Point) (int, int) {
	return clampCell(pt[0], g.bound.Min[0], g.cw, g.nx), clampCell(pt[1], g.bound.Min[1], g.ch, g.ny)
}

func clampCell(v, origin, size float64, n int) int {
	if size == 0 || n <= 1 {
		return 0
	}
	i := int((v - origin) / size)
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func (g *gridLocator) Locate(pt orb.Point) (models.DivisionName, bool) {
	if len(g.cells) == 0 || !g.bound.Contains(pt) {
		return "", false
	}
	x, y := g.cellOf(pt)
	for _, e := range g.cells[y*g.nx+x] {
		if e.contains(pt) {
			return e.Division, true
		}
	}
	return "", false
}

func (g *gridLocator) Name() string { return IndexGrid }
