package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/marklab/internal/simulate"
)

// Default configuration constants.
const (
	defaultTrials       = 1
	defaultParticipants = 20
	defaultMarkers      = 15
	defaultProbability  = 0.3
	defaultCap          = 3
	defaultFrames       = 300
	defaultWorkers      = 2 // multiplier for runtime.NumCPU()
	defaultRunTimeout   = 10 * time.Minute
)

func main() {
	var (
		trials       = flag.Int("trials", defaultTrials, "Number of trials to simulate")
		participants = flag.Int("participants", defaultParticipants, "Number of participants per trial")
		markers      = flag.Int("markers", defaultMarkers, "Number of markers in the arena")
		probability  = flag.Float64("probability", defaultProbability, "Per-marker flag probability")
		flagCap      = flag.Int("cap", defaultCap, "Maximum flagged markers per assignment")
		frames       = flag.Int("frames", defaultFrames, "Synthetic frames streamed per trial")
		workers      = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent generation workers")
		seed         = flag.Int64("seed", 0, "Seed for assignment and frame generation (default: current time)")
		outputDir    = flag.String("output", "", "Directory for trial artifacts (default: simulation_TIMESTAMP)")
		logFile      = flag.String("log", "", "Log file for simulation output (default: simulation_log_TIMESTAMP.log)")
		verbose      = flag.Bool("verbose", false, "Enable verbose logging")
		help         = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulate.ShowHelp()
		return
	}

	// Setup logging
	if err := simulate.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	if *outputDir == "" {
		*outputDir = "simulation_" + time.Now().Format("20060102_150405")
	}

	// Create simulation configuration
	config := &simulate.Config{
		Trials:          *trials,
		Participants:    *participants,
		MarkerCount:     *markers,
		FlagProbability: *probability,
		FlagCap:         *flagCap,
		Frames:          *frames,
		Workers:         *workers,
		Seed:            *seed,
		OutputDir:       *outputDir,
		LogFile:         *logFile,
		Verbose:         *verbose,
	}

	// Run the simulation
	if err := simulate.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		return
	}
}
