// Package assign generates the per-session marker ground truth: an
// independent probabilistic draw per marker with a hard cap on the
// flagged count.
package assign

import (
	"context"
	"math/rand"
	"time"

	"github.com/okian/marklab/internal/domain/model"
	"github.com/okian/marklab/pkg/errs"
)

// Generator produces randomized marker assignments. A Generator is not
// safe for concurrent use; each session builds its own.
type Generator struct {
	rng *rand.Rand
}

// New creates a generator with configuration options. The default source
// is time-seeded; tests pin it with WithSeed or WithRand.
func New(opts ...Option) *Generator {
	g := &Generator{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // experiment randomization, not cryptography
	}

	// Apply all options
	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Generate assigns a state to every marker. Each marker independently
// becomes a flagged candidate with probability flagProbability; when the
// candidates exceed flagCap, exactly flagCap of them stay flagged,
// chosen uniformly among the candidates so low-numbered markers carry no
// systematic bias. The result always satisfies FlaggedCount() <= flagCap.
//
// Invalid parameters fail with ErrInvalidConfig; they are never clamped.
func (g *Generator) Generate(ctx context.Context, ids []model.MarkerID, flagProbability float64, flagCap int) (model.Assignment, error) {
	const op = "assign.generate"

	if err := validate(ids, flagProbability, flagCap); err != nil {
		return nil, errs.Wrap(op, err)
	}

	assignment := make(model.Assignment, len(ids))
	candidates := make([]model.MarkerID, 0, len(ids))
	for _, id := range ids {
		assignment[id] = model.StateNormal
		if g.rng.Float64() < flagProbability {
			candidates = append(candidates, id)
		}
	}

	// Sample without replacement when the independent draws exceed the cap.
	if len(candidates) > flagCap {
		g.rng.Shuffle(len(candidates), func(i, j int) {
			candidates[i], candidates[j] = candidates[j], candidates[i]
		})
		candidates = candidates[:flagCap]
	}

	for _, id := range candidates {
		assignment[id] = model.StateFlagged
	}

	return assignment, nil
}

// validate rejects malformed parameters before any randomness is drawn.
func validate(ids []model.MarkerID, flagProbability float64, flagCap int) error {
	if len(ids) == 0 {
		return errs.Kindf("assign.validate", ErrInvalidConfig, "marker set is empty")
	}
	seen := make(map[model.MarkerID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return errs.Kindf("assign.validate", ErrInvalidConfig, "duplicate marker id %d", id)
		}
		seen[id] = struct{}{}
	}
	if flagProbability < 0 || flagProbability > 1 {
		return errs.Kindf("assign.validate", ErrInvalidConfig, "flag probability %v outside [0,1]", flagProbability)
	}
	if flagCap < 0 {
		return errs.Kindf("assign.validate", ErrInvalidConfig, "flag cap %d is negative", flagCap)
	}
	return nil
}
