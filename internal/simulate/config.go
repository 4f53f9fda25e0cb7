package simulate

import "time"

// Config holds configuration for a simulated trial run.
type Config struct {
	Trials          int     // Number of trials to simulate
	Participants    int     // Number of participants per trial
	MarkerCount     int     // Number of markers in the arena
	FlagProbability float64 // Per-marker flag probability
	FlagCap         int     // Maximum flagged markers per assignment
	Frames          int     // Synthetic frames streamed per trial
	Workers         int     // Number of concurrent generation workers
	Seed            int64   // Seed for assignment and frame generation
	OutputDir       string  // Directory for trial artifacts
	LogFile         string  // Log file for simulation output
	Verbose         bool    // Enable verbose logging
}

// Stats holds simulation statistics.
type Stats struct {
	TrialsRun           int
	FramesStreamed      int
	ResponsesGenerated  int
	ResponsesScored     int
	ResponsesIncomplete int
	PerfectScores       int
	StartTime           time.Time
	EndTime             time.Time
	Duration            time.Duration
}
