package model

import "time"

// Frame is one element of the live detection stream: the set of markers
// visible in a single video frame plus the frame timestamp.
type Frame struct {
	Visible []MarkerID
	TS      time.Time
}

// Interval is a contiguous time range during which one marker was
// continuously detected. Intervals for a marker never overlap and are
// ordered by Start. An interval still open when the session ends is
// closed at the session's final timestamp.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Duration returns the length of the interval.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}
