// Package track maintains per-marker visibility intervals over a live
// detection stream. It is pure in-memory bookkeeping: the tracker never
// fails on stream input and performs no I/O.
package track

import (
	"time"

	"github.com/okian/marklab/internal/domain/model"
	"github.com/okian/marklab/pkg/metrics"
)

// Tracker records, for each marker, the time intervals during which it
// was continuously detected. A Tracker is not internally synchronized;
// the single capture loop that owns it must serialize OnFrame calls.
type Tracker struct {
	states map[model.MarkerID]*markerState
	closed bool
	final  map[model.MarkerID][]model.Interval
}

// markerState is the per-marker two-state machine. A marker is visible
// exactly when openedAt is set; closing an interval that was never
// opened is unrepresentable.
type markerState struct {
	openedAt  *time.Time
	intervals []model.Interval
	seen      int
}

// Option applies a configuration option to the Tracker.
type Option func(*Tracker)

// WithMarkers pre-registers the marker universe so that markers never
// detected still report an empty interval list on Close.
func WithMarkers(ids []model.MarkerID) Option {
	return func(t *Tracker) {
		for _, id := range ids {
			if _, ok := t.states[id]; !ok {
				t.states[id] = &markerState{}
			}
		}
	}
}

// New creates a tracker with every registered marker in the absent state.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		states: make(map[model.MarkerID]*markerState),
	}

	// Apply all options
	for _, opt := range opts {
		opt(t)
	}

	return t
}

// OnFrame consumes one frame of the detection stream: the set of markers
// visible at ts. A marker absent from visible is in its normal absent
// state, never an error; markers outside the registered universe are
// tracked lazily. Repeated presence or absence within the same state is
// a no-op, so detection flicker inside one state creates no spurious
// intervals (callers wanting flicker tolerance debounce before calling).
// OnFrame after Close is a no-op.
func (t *Tracker) OnFrame(visible []model.MarkerID, ts time.Time) {
	if t.closed {
		return
	}

	present := make(map[model.MarkerID]struct{}, len(visible))
	for _, id := range visible {
		present[id] = struct{}{}
		st, ok := t.states[id]
		if !ok {
			st = &markerState{}
			t.states[id] = st
		}
		st.seen++
		if st.openedAt == nil {
			// absent -> visible: open a new interval.
			start := ts
			st.openedAt = &start
		}
	}

	for id, st := range t.states {
		if _, ok := present[id]; ok {
			continue
		}
		if st.openedAt != nil {
			// visible -> absent: close the open interval.
			st.intervals = append(st.intervals, model.Interval{Start: *st.openedAt, End: ts})
			st.openedAt = nil
			metrics.RecordIntervalsClosed(1)
		}
	}

	metrics.RecordFrame()
	metrics.RecordMarkerDetections(len(visible))
	metrics.UpdateVisibleMarkers(len(visible))
}

// Close ends the session at final: any marker still visible gets its
// open interval closed at final. The returned mapping holds every
// registered marker, ordered intervals per marker, empty (non-nil)
// slices for markers never detected. Calling Close again returns the
// same result.
func (t *Tracker) Close(final time.Time) map[model.MarkerID][]model.Interval {
	if t.closed {
		return t.final
	}
	t.closed = true

	out := make(map[model.MarkerID][]model.Interval, len(t.states))
	for id, st := range t.states {
		if st.openedAt != nil {
			st.intervals = append(st.intervals, model.Interval{Start: *st.openedAt, End: final})
			st.openedAt = nil
			metrics.RecordIntervalsClosed(1)
		}
		if st.intervals == nil {
			st.intervals = []model.Interval{}
		}
		out[id] = st.intervals
	}
	t.final = out
	return out
}

// Snapshot returns the intervals recorded so far without closing the
// tracker. Open intervals are not included.
func (t *Tracker) Snapshot() map[model.MarkerID][]model.Interval {
	out := make(map[model.MarkerID][]model.Interval, len(t.states))
	for id, st := range t.states {
		ivs := make([]model.Interval, len(st.intervals))
		copy(ivs, st.intervals)
		out[id] = ivs
	}
	return out
}

// Seen returns how many frames each marker has appeared in so far.
func (t *Tracker) Seen() map[model.MarkerID]int {
	out := make(map[model.MarkerID]int, len(t.states))
	for id, st := range t.states {
		out[id] = st.seen
	}
	return out
}

// Visible reports whether the marker is currently in the visible state.
func (t *Tracker) Visible(id model.MarkerID) bool {
	st, ok := t.states[id]
	return ok && st.openedAt != nil
}
