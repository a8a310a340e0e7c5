package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SelectedParcel is one entry of the ordered parcel selection.
// Center is the parcel's representative point in [lng, lat] order.
type SelectedParcel struct {
	Center   [2]float64 `json:"center"`
	ParcelID int        `json:"parcelId"`
	Order    int        `json:"order"`
}

// ParcelIDList is an ordered list of parcel OBJECTIDs.
// It is stored as a JSON array in SQL databases.
type ParcelIDList []int

// Scan implements sql.Scanner for reading a JSON array column.
// Postgres jsonb arrives as []byte, SQLite TEXT may arrive as string.
func (l *ParcelIDList) Scan(value interface{}) error {
	if value == nil {
		*l = ParcelIDList{}
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("failed to scan ParcelIDList: expected []byte or string, got %T", value)
	}

	var ids []int
	if err := json.Unmarshal(raw, &ids); err != nil {
		return fmt.Errorf("failed to unmarshal parcel id list: %w", err)
	}
	if ids == nil {
		ids = []int{}
	}

	*l = ids
	return nil
}

// Value implements driver.Valuer and writes the list as a JSON array string.
func (l ParcelIDList) Value() (driver.Value, error) {
	ids := []int(l)
	if ids == nil {
		ids = []int{}
	}

	data, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal parcel id list: %w", err)
	}
	return string(data), nil
}

// Clone returns a copy that does not share backing storage.
func (l ParcelIDList) Clone() ParcelIDList {
	out := make(ParcelIDList, len(l))
	copy(out, l)
	return out
}

// SavedSelection is a named, ordered list of parcel ids saved by the user.
// Only identifiers are stored; parcel details are re-resolved at load time.
type SavedSelection struct {
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
	Name      string       `json:"name"`
	ParcelIDs ParcelIDList `json:"parcelIds"`
	ID        uuid.UUID    `json:"id"`
}

// Clone returns a deep copy of the record.
func (s SavedSelection) Clone() SavedSelection {
	s.ParcelIDs = s.ParcelIDs.Clone()
	return s
}
