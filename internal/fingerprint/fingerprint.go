// Package fingerprint builds stable 64-bit content hashes for datasets.
// The preprocessor keys its memo cache on these values, so two inputs with the
// same content share a fingerprint regardless of where they were loaded from.
package fingerprint

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
	"github.com/paulmach/orb"
)

// Hasher accumulates typed values into an xxhash digest.
type Hasher struct {
	d   *xxhash.Digest
	buf [8]byte
}

// New returns an empty Hasher.
func New() *Hasher {
	return &Hasher{d: xxhash.New()}
}

// Bytes hashes raw bytes.
func Bytes(b []byte) uint64 {
	return xxhash.Sum64(b)
}

// Combine mixes several fingerprints into one, order-sensitive.
func Combine(parts ...uint64) uint64 {
	h := New()
	for _, p := range parts {
		h.Uint64(p)
	}
	return h.Sum()
}

func (h *Hasher) Uint64(v uint64) *Hasher {
	binary.LittleEndian.PutUint64(h.buf[:], v)
	_, _ = h.d.Write(h.buf[:])
	return h
}

func (h *Hasher) Int(v int) *Hasher {
	return h.Uint64(uint64(int64(v)))
}

func (h *Hasher) Float(v float64) *Hasher {
	return h.Uint64(math.Float64bits(v))
}

// String writes the length first so adjacent strings cannot collide.
func (h *Hasher) String(s string) *Hasher {
	h.Int(len(s))
	_, _ = h.d.WriteString(s)
	return h
}

func (h *Hasher) Bool(b bool) *Hasher {
	if b {
		return h.Uint64(1)
	}
	return h.Uint64(0)
}

// Geometry hashes the type tag and every coordinate of g.
func (h *Hasher) Geometry(g orb.Geometry) *Hasher {
	if g == nil {
		return h.String("nil")
	}
	h.String(g.GeoJSONType())
	switch v := g.(type) {
	case orb.Point:
		h.point(v)
	case orb.Ring:
		h.ring(v)
	case orb.Polygon:
		h.polygon(v)
	case orb.MultiPolygon:
		h.Int(len(v))
		for _, p := range v {
			h.polygon(p)
		}
	case orb.LineString:
		h.ring(orb.Ring(v))
	case orb.MultiPoint:
		h.ring(orb.Ring(v))
	}
	return h
}

func (h *Hasher) Sum() uint64 {
	return h.d.Sum64()
}

func (h *Hasher) point(p orb.Point) {
	h.Float(p[0]).Float(p[1])
}

func (h *Hasher) ring(r orb.Ring) {
	h.Int(len(r))
	for _, p := range r {
		h.point(p)
	}
}

func (h *Hasher) polygon(p orb.Polygon) {
	h.Int(len(p))
	for _, r := range p {
		h.ring(r)
	}
}
