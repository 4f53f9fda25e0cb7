package simulate

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"

	"github.com/okian/marklab/internal/domain/model"
	"github.com/okian/marklab/internal/domain/score"
)

// maxScore is a perfect weighted score.
const maxScore = 100.0

// scoreEpsilon absorbs float accumulation in weighted sums.
const scoreEpsilon = 1e-6

// verifyResults checks every scoring outcome against what its
// corruption case predicts.
func verifyResults(ctx context.Context, config *Config, assignment model.Assignment, outcomes []outcome) error {
	log.Println("🔍 Verifying results...")

	if len(outcomes) == 0 {
		return fmt.Errorf("no outcomes to verify")
	}

	if assignment.FlaggedCount() > config.FlagCap {
		return fmt.Errorf("assignment has %d flagged markers, cap is %d",
			assignment.FlaggedCount(), config.FlagCap)
	}

	for _, o := range outcomes {
		if err := verifyOutcome(o); err != nil {
			return err
		}
	}
	log.Println("✅ All outcomes match their corruption cases")

	displayScoreSummary(outcomes, config.Verbose)

	log.Println("✅ Result verification completed")
	return nil
}

// verifyOutcome checks one response's scoring against its case.
func verifyOutcome(o outcome) error {
	participant := o.gen.response.Participant

	if o.gen.incomplete() {
		if o.err == nil {
			return fmt.Errorf("participant %s: incomplete response was scored anyway (%.1f)",
				participant, o.result.Score)
		}
		return nil
	}

	if o.err != nil {
		return fmt.Errorf("participant %s: complete response rejected: %w", participant, o.err)
	}
	if o.result.Score < 0 || o.result.Score > maxScore {
		return fmt.Errorf("participant %s: score %.3f out of range", participant, o.result.Score)
	}

	expected, ok := expectedScore(o.gen.kind)
	if !ok {
		return nil
	}
	if math.Abs(o.result.Score-expected) > scoreEpsilon {
		return fmt.Errorf("participant %s: case %d expected score %.1f, got %.3f",
			participant, o.gen.kind, expected, o.result.Score)
	}
	return nil
}

// expectedScore predicts the weighted score for a corruption case.
func expectedScore(kind int) (float64, bool) {
	switch kind {
	case casePerfect:
		return maxScore, true
	case caseWrongExternal:
		return maxScore - score.ExternalWeight, true
	case caseWrongDerived:
		return maxScore - score.DerivedWeight, true
	case caseWrongMarker:
		return maxScore - score.MarkersWeight, true
	case caseAllWrong:
		return 0, true
	default:
		return 0, false
	}
}

// displayScoreSummary shows the score distribution of the trial.
func displayScoreSummary(outcomes []outcome, verbose bool) {
	scores := make([]float64, 0, len(outcomes))
	for _, o := range outcomes {
		if o.err == nil {
			scores = append(scores, o.result.Score)
		}
	}
	if len(scores) == 0 {
		log.Println("⚠️  No responses were scored")
		return
	}

	sort.Sort(sort.Reverse(sort.Float64Slice(scores)))

	topN := 10
	if len(scores) < topN {
		topN = len(scores)
	}
	log.Printf("🏆 Top %d scores:", topN)
	for i := 0; i < topN; i++ {
		log.Printf("   %d. %.1f", i+1, scores[i])
	}

	if verbose {
		sum := 0.0
		for _, s := range scores {
			sum += s
		}
		log.Printf(`📊 Score statistics:
   Average: %.3f
   Maximum: %.3f
   Minimum: %.3f
`, sum/float64(len(scores)), scores[0], scores[len(scores)-1])
	}
}
