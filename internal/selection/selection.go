// Package selection implements the ordered parcel selection as pure transitions.
// Every function returns a new Selection and leaves its argument untouched.
package selection

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/DennisWilmot/land-mapping-web/internal/models"
)

// ErrBrokenOrder is returned by Check when the order invariant does not hold.
var ErrBrokenOrder = errors.New("selection order invariant violated")

// Selection is the ordered list of selected parcels plus the saved project it
// was restored from, if any.
type Selection struct {
	ProjectID *uuid.UUID              `json:"projectId,omitempty"`
	Items     []models.SelectedParcel `json:"items"`
}

// Resolver maps a parcel id to its center in the live dataset.
type Resolver func(parcelID int) (center [2]float64, ok bool)

// Empty returns a selection with no items and no project binding.
func Empty() Selection {
	return Selection{Items: []models.SelectedParcel{}}
}

// Len returns the number of selected parcels.
func (s Selection) Len() int { return len(s.Items) }

// IDs returns the selected parcel ids in order.
func (s Selection) IDs() []int {
	ids := make([]int, len(s.Items))
	for i, it := range s.Items {
		ids[i] = it.ParcelID
	}
	return ids
}

// Contains reports whether parcelID is selected.
func (s Selection) Contains(parcelID int) bool {
	return s.indexOf(parcelID) >= 0
}

func (s Selection) indexOf(parcelID int) int {
	for i, it := range s.Items {
		if it.ParcelID == parcelID {
			return i
		}
	}
	return -1
}

// Check verifies that orders run 1..N by position and ids are unique.
func (s Selection) Check() error {
	seen := make(map[int]struct{}, len(s.Items))
	for i, it := range s.Items {
		if it.Order != i+1 {
			return fmt.Errorf("%w: item %d has order %d", ErrBrokenOrder, i, it.Order)
		}
		if _, dup := seen[it.ParcelID]; dup {
			return fmt.Errorf("%w: parcel %d selected twice", ErrBrokenOrder, it.ParcelID)
		}
		seen[it.ParcelID] = struct{}{}
	}
	return nil
}

func (s Selection) withItems(items []models.SelectedParcel) Selection {
	return Selection{ProjectID: s.ProjectID, Items: renumber(items)}
}

func renumber(items []models.SelectedParcel) []models.SelectedParcel {
	for i := range items {
		items[i].Order = i + 1
	}
	return items
}

// Pick handles a click on a parcel.
//
// Without multi, re-clicking the only selected parcel clears the list and any
// other click replaces the list with that parcel. With multi, a selected
// parcel is removed and an unselected one is appended.
func Pick(s Selection, parcelID int, center [2]float64, multi bool) Selection {
	if !multi {
		if len(s.Items) == 1 && s.Items[0].ParcelID == parcelID {
			return s.withItems([]models.SelectedParcel{})
		}
		return s.withItems([]models.SelectedParcel{{ParcelID: parcelID, Center: center}})
	}

	if s.Contains(parcelID) {
		return Remove(s, parcelID)
	}
	items := make([]models.SelectedParcel, len(s.Items), len(s.Items)+1)
	copy(items, s.Items)
	items = append(items, models.SelectedParcel{ParcelID: parcelID, Center: center})
	return s.withItems(items)
}

// ClickEmpty handles a click where no parcel is under the pointer.
func ClickEmpty(s Selection) Selection {
	return s.withItems([]models.SelectedParcel{})
}

// Remove drops parcelID and renumbers the rest. Unknown ids leave the list as is.
func Remove(s Selection, parcelID int) Selection {
	items := make([]models.SelectedParcel, 0, len(s.Items))
	for _, it := range s.Items {
		if it.ParcelID != parcelID {
			items = append(items, it)
		}
	}
	return s.withItems(items)
}

// Reorder replaces the list with items in their given order. Later duplicates
// of a parcel id are dropped.
func Reorder(s Selection, items []models.SelectedParcel) Selection {
	out := make([]models.SelectedParcel, 0, len(items))
	seen := make(map[int]struct{}, len(items))
	for _, it := range items {
		if _, dup := seen[it.ParcelID]; dup {
			continue
		}
		seen[it.ParcelID] = struct{}{}
		out = append(out, it)
	}
	return s.withItems(out)
}

// Clear empties the list and forgets the project binding.
func Clear(Selection) Selection {
	return Empty()
}

// Restore builds a selection from a saved project. Ids the resolver does not
// know are skipped, so the result reflects the current dataset.
func Restore(project models.SavedSelection, resolve Resolver) Selection {
	id := project.ID
	items := make([]models.SelectedParcel, 0, len(project.ParcelIDs))
	seen := make(map[int]struct{}, len(project.ParcelIDs))
	for _, pid := range project.ParcelIDs {
		if _, dup := seen[pid]; dup {
			continue
		}
		center, ok := resolve(pid)
		if !ok {
			continue
		}
		seen[pid] = struct{}{}
		items = append(items, models.SelectedParcel{ParcelID: pid, Center: center})
	}
	return Selection{ProjectID: &id, Items: renumber(items)}
}
