// Package assign generates the per-session marker ground truth.
package assign

import "math/rand"

// Option applies a configuration option to the Generator.
type Option func(*Generator)

// WithSeed pins the random source to a fixed seed for reproducible
// assignments.
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // experiment randomization, not cryptography
	}
}

// WithRand replaces the random source entirely.
func WithRand(rng *rand.Rand) Option {
	return func(g *Generator) {
		if rng != nil {
			g.rng = rng
		}
	}
}
