package simulate

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/okian/marklab/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	// Initialize the logger first
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "simulation_log_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the simulation tool.
func ShowHelp() {
	os.Stdout.WriteString(`Marklab Trial Simulator
=======================

Runs complete trials end to end without a camera or participants:
generates assignments, streams synthetic detections, fabricates
participant responses (including corrupted ones), scores them, and
verifies the results.

Usage:
  go run cmd/simulate/main.go [options]

Options:
  -trials int
        Number of trials to simulate (default 1)
  -participants int
        Number of participants per trial (default 20)
  -markers int
        Number of markers in the arena (default 15)
  -probability float
        Per-marker flag probability (default 0.3)
  -cap int
        Maximum flagged markers per assignment (default 3)
  -frames int
        Synthetic frames streamed per trial (default 300)
  -workers int
        Number of concurrent generation workers (default CPU cores * 2)
  -seed int
        Seed for assignment and frame generation (default: current time)
  -output string
        Directory for trial artifacts (default: simulation_TIMESTAMP)
  -log string
        Log file for simulation output (default: simulation_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Simulate one trial with default settings
  go run cmd/simulate/main.go

  # A reproducible eight-marker trial
  go run cmd/simulate/main.go -markers 8 -cap 3 -seed 42

  # Stress the scoring path
  go run cmd/simulate/main.go -trials 10 -participants 200 -verbose
`)
}
