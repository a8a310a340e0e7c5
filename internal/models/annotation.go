package models

import "github.com/paulmach/orb"

// DivisionName names one electoral sub-division of the constituency.
type DivisionName string

// Annotation holds the flags derived for a parcel by preprocessing.
// Division is nil when no community polygon contains the parcel.
type Annotation struct {
	Division     *DivisionName `json:"division"`
	IsInBoundary bool          `json:"isInBoundary"`
	HasOwner     bool          `json:"hasOwner"`
}

// DivisionOrEmpty returns the division name, or "" when unresolved.
func (a Annotation) DivisionOrEmpty() DivisionName {
	if a.Division == nil {
		return ""
	}
	return *a.Division
}

// AnnotatedParcel pairs a parcel with its representative point and derived flags.
// The Parcel pointer is shared with the source set and must not be modified.
type AnnotatedParcel struct {
	Parcel *Parcel   `json:"parcel"`
	Center orb.Point `json:"center"`
	Annotation
}

// ObjectID is a shortcut for Parcel.Properties.ObjectID.
func (a AnnotatedParcel) ObjectID() int {
	return a.Parcel.Properties.ObjectID
}
