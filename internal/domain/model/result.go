package model

import "time"

// Result is the terminal artifact of one scoring call: per-field
// correctness, the weighted score in [0,100], and echoes of all inputs.
// Created once, immutable, appended to the result log.
type Result struct {
	Participant string
	Trial       string
	ScoredAt    time.Time

	ExternalGuess   bool
	ExternalTruth   bool
	ExternalCorrect bool

	DerivedGuess   bool
	DerivedTruth   bool
	DerivedCorrect bool

	// MarkersCorrect is all-or-nothing: every marker guess must match the
	// assignment for this component to count.
	MarkersCorrect bool

	Score float64

	// MarkerGuesses echoes the per-marker guesses that were scored.
	MarkerGuesses map[MarkerID]MarkerState
}
