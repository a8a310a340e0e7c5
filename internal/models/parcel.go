package models

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/DennisWilmot/land-mapping-web/internal/fingerprint"
)

// ParcelProperties is the fixed property record carried by every cadastral parcel.
// Nullable numeric fields use pointers to distinguish a missing value from zero.
type ParcelProperties struct {
	AreaSqM      *float64 `json:"areaSqM,omitempty"`
	PID          string   `json:"pid,omitempty"`
	LVNumber     string   `json:"lvNumber,omitempty"`
	VolFolio     string   `json:"volFolio,omitempty"`
	AddressLabel string   `json:"addressLabel,omitempty"`
	StreetName   string   `json:"streetName,omitempty"`
	Locality     string   `json:"locality,omitempty"`
	Parish       string   `json:"parish,omitempty"`
	ObjectID     int      `json:"objectId"`
}

// Parcel is a parcel polygon plus its property record.
// Parcels are loaded once and never modified afterwards.
type Parcel struct {
	Geometry   orb.Geometry     `json:"-"`
	Properties ParcelProperties `json:"properties"`
}

// HasValidArea reports whether the parcel carries a usable area value.
func (p *Parcel) HasValidArea() bool {
	a := p.Properties.AreaSqM
	return a != nil && !math.IsNaN(*a) && !math.IsInf(*a, 0)
}

// ParcelSet is an immutable collection of parcels keyed by OBJECTID.
type ParcelSet struct {
	Parcels     []*Parcel
	byID        map[int]*Parcel
	Fingerprint uint64
}

// NewParcelSet indexes parcels by OBJECTID and fingerprints their content.
// It returns an error if two parcels share an OBJECTID.
func NewParcelSet(parcels []*Parcel) (*ParcelSet, error) {
	byID := make(map[int]*Parcel, len(parcels))
	h := fingerprint.New()
	h.Int(len(parcels))
	for _, p := range parcels {
		id := p.Properties.ObjectID
		if _, dup := byID[id]; dup {
			return nil, fmt.Errorf("duplicate OBJECTID %d in parcel set", id)
		}
		byID[id] = p

		h.Int(id).String(p.Properties.LVNumber).Geometry(p.Geometry)
		if p.Properties.AreaSqM != nil {
			h.Float(*p.Properties.AreaSqM)
		} else {
			h.Bool(false)
		}
	}

	return &ParcelSet{
		Parcels:     parcels,
		byID:        byID,
		Fingerprint: h.Sum(),
	}, nil
}

// WithFingerprint returns a shallow copy of the set using the given fingerprint.
// Loaders use this to key the set on the raw source bytes instead of parsed content.
func (s *ParcelSet) WithFingerprint(fp uint64) *ParcelSet {
	out := *s
	out.Fingerprint = fp
	return &out
}

// Get returns the parcel with the given OBJECTID.
func (s *ParcelSet) Get(objectID int) (*Parcel, bool) {
	if s == nil {
		return nil, false
	}
	p, ok := s.byID[objectID]
	return p, ok
}

// Len returns the number of parcels in the set.
func (s *ParcelSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Parcels)
}
