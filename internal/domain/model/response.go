package model

// Response is a participant's recollection of one trial. Pointer fields
// and missing map keys represent unset answers so that completeness is a
// validation concern, not a parsing one: a response that decodes without
// a field stays visibly incomplete instead of defaulting to false.
type Response struct {
	Participant string
	Trial       string

	// External is the participant's guess for the independently-recorded
	// external truth (e.g. leak present).
	External *bool

	// Derived is the participant's guess for "any marker flagged".
	Derived *bool

	// Markers holds the participant's per-marker state guesses.
	Markers map[MarkerID]MarkerState
}

// Record pairs a session's assignment with its derived truth as loaded
// for scoring. Never mutated after construction.
type Record struct {
	Assignment Assignment
	Derived    bool
}

// NewRecord builds a Record from an assignment, computing the derived truth.
func NewRecord(a Assignment) Record {
	return Record{
		Assignment: a.Clone(),
		Derived:    a.AnyFlagged(),
	}
}
