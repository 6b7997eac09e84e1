package markov

import (
	"io"
	"log/slog"
	"math/rand/v2"
)

// Generator produces phrases by walking a Table. It holds the randomness
// source used for every choice it makes.
type Generator struct {
	rng    *rand.Rand
	logger *slog.Logger
}

// Option is a function that configures a Generator.
type Option func(*Generator)

// WithSeed makes the Generator deterministic by seeding a PCG source.
// Two Generators built with the same seed produce the same phrases from the
// same table.
func WithSeed(seed uint64) Option {
	return func(g *Generator) {
		g.rng = rand.New(rand.NewPCG(seed, seed))
	}
}

// WithRand sets the random source directly.
func WithRand(rng *rand.Rand) Option {
	return func(g *Generator) {
		if rng != nil {
			g.rng = rng
		}
	}
}

// NewGenerator creates a Generator. Without options it draws from a randomly
// seeded source.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// SetLogger sets the logger for the Generator. By default, all logs are discarded.
func (g *Generator) SetLogger(logger *slog.Logger) {
	if logger != nil {
		g.logger = logger
	}
}
