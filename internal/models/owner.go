package models

import (
	"sort"
	"strings"

	"github.com/DennisWilmot/land-mapping-web/internal/fingerprint"
)

// Owner is a valuation-roll record for a property.
type Owner struct {
	LandValue       *float64 `json:"landValue,omitempty"`
	ValuationNumber string   `json:"valuationNumber"`
	Name            string   `json:"name"`
}

// OwnerLookup maps valuation numbers to owner records. It is read-only once built.
type OwnerLookup struct {
	byKey       map[string]Owner
	Fingerprint uint64
}

// NormalizeValuationKey trims surrounding whitespace from a valuation number.
func NormalizeValuationKey(key string) string {
	return strings.TrimSpace(key)
}

// NewOwnerLookup builds a lookup from owner records. Records with a blank
// valuation number are dropped; later duplicates overwrite earlier ones.
func NewOwnerLookup(owners []Owner) *OwnerLookup {
	byKey := make(map[string]Owner, len(owners))
	for _, o := range owners {
		key := NormalizeValuationKey(o.ValuationNumber)
		if key == "" {
			continue
		}
		o.ValuationNumber = key
		byKey[key] = o
	}

	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := fingerprint.New()
	for _, k := range keys {
		o := byKey[k]
		h.String(k).String(o.Name)
		if o.LandValue != nil {
			h.Float(*o.LandValue)
		}
	}

	return &OwnerLookup{byKey: byKey, Fingerprint: h.Sum()}
}

// Has reports whether an owner record exists for the key. Blank keys never match.
func (l *OwnerLookup) Has(key string) bool {
	_, ok := l.Get(key)
	return ok
}

// Get returns the owner record for the key.
func (l *OwnerLookup) Get(key string) (Owner, bool) {
	if l == nil {
		return Owner{}, false
	}
	key = NormalizeValuationKey(key)
	if key == "" {
		return Owner{}, false
	}
	o, ok := l.byKey[key]
	return o, ok
}

// Len returns the number of owner records.
func (l *OwnerLookup) Len() int {
	if l == nil {
		return 0
	}
	return len(l.byKey)
}
