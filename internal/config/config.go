// Package config defines process configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults; Load() layers file and env.
// - External errors must be wrapped via this package's error helpers.
package config

import "time"

// Frame source kinds accepted by the Source field.
const (
	SourceCamera    = "camera"
	SourceReplay    = "replay"
	SourceSynthetic = "synthetic"
)

// Result backend kinds accepted by the ResultsBackend field.
const (
	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
)

// Config contains process configuration shared by the session, scoring,
// and simulation binaries. Not every binary reads every field.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// MarkerCount is the number of fiducial markers in the trial arena.
	MarkerCount int `koanf:"marker_count"`

	// FlagProbability is the per-marker chance of being flagged.
	FlagProbability float64 `koanf:"flag_probability"`

	// FlagCap bounds the number of flagged markers per assignment.
	FlagCap int `koanf:"flag_cap"`

	// Source selects the frame source: camera, replay, or synthetic.
	Source string `koanf:"source"`

	// CameraIndex selects the capture device when Source is camera.
	CameraIndex int `koanf:"camera_index"`

	// ReplayFile is the detection log to play back when Source is replay.
	ReplayFile string `koanf:"replay_file"`

	// FrameIntervalMS paces synthetic frames.
	FrameIntervalMS int `koanf:"frame_interval_ms"`

	// SyntheticFrames bounds a synthetic session's length.
	SyntheticFrames int `koanf:"synthetic_frames"`

	// DataDir is the root directory for trial artifacts.
	DataDir string `koanf:"data_dir"`

	// AssignmentFile is where the ground-truth assignment is written and read.
	AssignmentFile string `koanf:"assignment_file"`

	// TruthFile holds the external observation truth bit.
	TruthFile string `koanf:"truth_file"`

	// ResponsesDir is watched for participant response files.
	ResponsesDir string `koanf:"responses_dir"`

	// ResultsFile is the append-only CSV result log.
	ResultsFile string `koanf:"results_file"`

	// ResultsBackend selects the result store: csv or sqlite.
	ResultsBackend string `koanf:"results_backend"`

	// ResultsDB is the SQLite database path when ResultsBackend is sqlite.
	ResultsDB string `koanf:"results_db"`

	// QueueSize bounds the in-memory submission queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of grading workers. Keep at 1 to
	// preserve result-log ordering.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds the duplicate-submission cache.
	DedupeSize int `koanf:"dedupe_size"`

	// DebounceMS collapses rapid-fire filesystem events per path.
	DebounceMS int `koanf:"debounce_ms"`

	// MetricsAddr exposes Prometheus metrics when non-empty, e.g. ":9090".
	MetricsAddr string `koanf:"metrics_addr"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		MarkerCount:     15,
		FlagProbability: 0.3,
		FlagCap:         3,
		Source:          SourceCamera,
		CameraIndex:     0,
		FrameIntervalMS: 33,
		SyntheticFrames: 300,
		DataDir:         "data",
		AssignmentFile:  "data/assignment.csv",
		TruthFile:       "data/external_truth.txt",
		ResponsesDir:    "data/responses",
		ResultsFile:     "data/results.csv",
		ResultsBackend:  BackendCSV,
		ResultsDB:       "data/results.db",
		QueueSize:       1024,
		WorkerCount:     1,
		DedupeSize:      10_000,
		DebounceMS:      200,
		MetricsAddr:     "",
	}
}

// FrameInterval returns FrameIntervalMS as a duration.
func (c *Config) FrameInterval() time.Duration {
	return time.Duration(c.FrameIntervalMS) * time.Millisecond
}

// Debounce returns DebounceMS as a duration.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}
