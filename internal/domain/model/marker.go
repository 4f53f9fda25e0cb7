// Package model contains domain models passed between layers.
package model

import (
	"maps"
	"slices"
)

// MarkerID identifies a fiducial marker. IDs form a contiguous range
// 0..N-1 for one session and are stable for its lifetime.
type MarkerID int

// MarkerState is the binary ground-truth state of a marker.
type MarkerState uint8

// Marker states.
const (
	StateNormal MarkerState = iota
	StateFlagged
)

// Textual forms of MarkerState. These round-trip through the assignment
// file byte-for-byte.
const (
	stateNormalName  = "normal"
	stateFlaggedName = "flagged"
)

// String returns the textual form used in the assignment file.
func (s MarkerState) String() string {
	if s == StateFlagged {
		return stateFlaggedName
	}
	return stateNormalName
}

// ParseState parses the textual form of a MarkerState.
func ParseState(name string) (MarkerState, error) {
	switch name {
	case stateNormalName:
		return StateNormal, nil
	case stateFlaggedName:
		return StateFlagged, nil
	default:
		return StateNormal, ErrUnknownState
	}
}

// Assignment maps every MarkerID of a session to its generated state.
// It is created once per session and read-only thereafter.
type Assignment map[MarkerID]MarkerState

// FlaggedCount returns the number of flagged markers.
func (a Assignment) FlaggedCount() int {
	n := 0
	for _, s := range a {
		if s == StateFlagged {
			n++
		}
	}
	return n
}

// AnyFlagged reports whether any marker is flagged. This is the derived
// ground truth reconciled against the participant's derived guess.
func (a Assignment) AnyFlagged() bool {
	return a.FlaggedCount() > 0
}

// IDs returns the marker identifiers in ascending order.
func (a Assignment) IDs() []MarkerID {
	ids := make([]MarkerID, 0, len(a))
	for id := range a {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Clone returns a copy of the assignment.
func (a Assignment) Clone() Assignment {
	return maps.Clone(a)
}

// Equal reports whether two assignments hold exactly the same mapping.
func (a Assignment) Equal(other Assignment) bool {
	return maps.Equal(a, other)
}
