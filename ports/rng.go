package ports

import (
	"context"
	"math/rand"
)

// RNGPort provides seeded random number generation for deterministic resampling
type RNGPort interface {
	// SeededStream creates a deterministic random number generator for a named operation
	SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error)

	// Stream creates the generator for one resampling chunk of one test.
	// Identical arguments always produce identical sequences, so a seeded test
	// yields the same p-value no matter how its chunks are scheduled.
	Stream(ctx context.Context, testName, streamKey string, chunk int, baseSeed int64) (*rand.Rand, error)

	// ValidateSeed ensures the seed produces expected deterministic results
	ValidateSeed(ctx context.Context, name string, seed int64, expected []float64) error
}
