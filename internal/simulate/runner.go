package simulate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/marklab/internal/adapters/capture"
	"github.com/okian/marklab/internal/adapters/recorder"
	"github.com/okian/marklab/internal/adapters/storage"
	"github.com/okian/marklab/internal/domain/assign"
	"github.com/okian/marklab/internal/domain/model"
	"github.com/okian/marklab/internal/domain/score"
	"github.com/okian/marklab/internal/domain/track"
	"github.com/okian/marklab/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// truthBias is the chance the simulated external observation is true.
const truthBias = 0.5

// outcome pairs a generated response with what scoring made of it.
type outcome struct {
	gen    generated
	result model.Result
	err    error
}

// Run executes the complete simulation.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting trial simulation",
		logger.Int("trials", config.Trials),
		logger.Int("participants", config.Participants),
		logger.Int("markers", config.MarkerCount),
		logger.Float64("probability", config.FlagProbability),
		logger.Int("cap", config.FlagCap),
		logger.Int("frames", config.Frames),
		logger.String("output", config.OutputDir),
		logger.Any("verbose", config.Verbose))

	if err := os.MkdirAll(config.OutputDir, directoryPermission); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	for n := 0; n < config.Trials; n++ {
		if err := runTrial(ctx, config, n, stats); err != nil {
			return fmt.Errorf("trial %d failed: %w", n+1, err)
		}
		stats.TrialsRun++
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "simulation completed successfully")
	return nil
}

// runTrial simulates one trial end to end: assignment, detection
// stream, responses, scoring, and verification.
func runTrial(ctx context.Context, config *Config, n int, stats *Stats) error {
	trial := fmt.Sprintf("trial_%02d", n+1)
	dir := filepath.Join(config.OutputDir, trial)
	if err := os.MkdirAll(filepath.Join(dir, "responses"), directoryPermission); err != nil {
		return fmt.Errorf("failed to create trial directory: %w", err)
	}

	// Step 1: Generate and persist the ground truth
	seed := config.Seed + int64(n)
	ids := make([]model.MarkerID, config.MarkerCount)
	for i := range ids {
		ids[i] = model.MarkerID(i)
	}

	gen := assign.New(assign.WithSeed(seed))
	assignment, err := gen.Generate(ctx, ids, config.FlagProbability, config.FlagCap)
	if err != nil {
		return fmt.Errorf("assignment generation failed: %w", err)
	}
	if err := storage.WriteAssignment(filepath.Join(dir, "assignment.csv"), assignment); err != nil {
		return fmt.Errorf("assignment write failed: %w", err)
	}

	truth := getRandomFloat() < truthBias
	if err := storage.WriteTruth(filepath.Join(dir, "external_truth.txt"), truth); err != nil {
		return fmt.Errorf("truth write failed: %w", err)
	}

	logger.Get().Info(ctx, "ground truth persisted",
		logger.String("trial", trial),
		logger.Int("flagged", assignment.FlaggedCount()),
		logger.Bool("externalTruth", truth))

	// Step 2: Stream synthetic detections through the tracker
	if err := streamDetections(ctx, config, dir, ids, seed, stats); err != nil {
		return fmt.Errorf("detection streaming failed: %w", err)
	}

	// Step 3: Fabricate participant responses
	responses, err := generateResponses(ctx, config, trial, assignment, truth, stats)
	if err != nil {
		return fmt.Errorf("response generation failed: %w", err)
	}
	for _, g := range responses {
		path := filepath.Join(dir, "responses", g.response.Participant+".yaml")
		if err := storage.WriteResponse(path, g.response); err != nil {
			return fmt.Errorf("response write failed: %w", err)
		}
	}

	// Step 4: Score everything
	outcomes, err := scoreResponses(ctx, dir, assignment, truth, responses, stats)
	if err != nil {
		return fmt.Errorf("scoring failed: %w", err)
	}

	// Step 5: Verify results
	if err := verifyResults(ctx, config, assignment, outcomes); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	return nil
}

// streamDetections plays a seeded synthetic detection stream through a
// tracker and records it as a replayable log.
func streamDetections(ctx context.Context, config *Config, dir string, ids []model.MarkerID, seed int64, stats *Stats) error {
	source := capture.NewSyntheticSource(ids,
		capture.WithSyntheticSeed(seed),
		capture.WithFrameCount(config.Frames),
	)
	defer func() { _ = source.Close() }()

	tracker := track.New(track.WithMarkers(ids))

	var frames []model.Frame
	var lastTS time.Time
	for {
		frame, err := source.Next(ctx)
		if err != nil {
			if errors.Is(err, capture.ErrStreamEnd) {
				break
			}
			return err
		}
		tracker.OnFrame(frame.Visible, frame.TS)
		frames = append(frames, frame)
		lastTS = frame.TS
	}
	stats.FramesStreamed += len(frames)

	intervals := tracker.Close(lastTS)
	for id, ivs := range intervals {
		var total time.Duration
		for _, iv := range ivs {
			total += iv.Duration()
		}
		logger.Get().Debug(ctx, "marker visibility",
			logger.Int("marker", int(id)),
			logger.Int("intervals", len(ivs)),
			logger.Duration("total", total))
	}

	if err := capture.WriteReplayLog(filepath.Join(dir, "detections.jsonl"), frames); err != nil {
		return fmt.Errorf("replay log write failed: %w", err)
	}
	return nil
}

// scoreResponses grades every fabricated response and appends the
// results to the trial's log. Incomplete responses are expected and
// counted, not fatal.
func scoreResponses(ctx context.Context, dir string, assignment model.Assignment, truth bool, responses []generated, stats *Stats) ([]outcome, error) {
	engine := score.New()
	rec, err := recorder.NewCSVRecorder(filepath.Join(dir, "results.csv"))
	if err != nil {
		return nil, fmt.Errorf("result log open failed: %w", err)
	}
	defer func() { _ = rec.Close() }()

	outcomes := make([]outcome, 0, len(responses))
	for _, g := range responses {
		result, err := engine.Score(ctx, assignment, truth, g.response)
		if err != nil {
			if !errors.Is(err, score.ErrIncompleteResponse) {
				return nil, err
			}
			stats.ResponsesIncomplete++
			outcomes = append(outcomes, outcome{gen: g, err: err})
			continue
		}
		if err := rec.Append(ctx, result); err != nil {
			return nil, fmt.Errorf("result append failed: %w", err)
		}
		stats.ResponsesScored++
		if result.Score == maxScore {
			stats.PerfectScores++
		}
		outcomes = append(outcomes, outcome{gen: g, result: result})
	}
	return outcomes, nil
}

// displayFinalStats prints the final simulation statistics.
func displayFinalStats(stats *Stats) {
	var incompleteRate, responsesPerSecond float64

	if stats.ResponsesGenerated > 0 {
		incompleteRate = float64(stats.ResponsesIncomplete) / float64(stats.ResponsesGenerated) * PercentageMultiplier
	}

	if stats.Duration > 0 {
		responsesPerSecond = float64(stats.ResponsesGenerated) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("trialsRun", stats.TrialsRun),
		logger.Int("framesStreamed", stats.FramesStreamed),
		logger.Int("responsesGenerated", stats.ResponsesGenerated),
		logger.Int("responsesScored", stats.ResponsesScored),
		logger.Int("responsesIncomplete", stats.ResponsesIncomplete),
		logger.Int("perfectScores", stats.PerfectScores),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("incompleteRate", incompleteRate),
		logger.Float64("responsesPerSecond", responsesPerSecond))
}
