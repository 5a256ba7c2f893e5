package rng

import (
	"context"
	"fmt"
	"math/rand"

	"rctstats/domain/core"
	"rctstats/ports"
)

// validateTolerance bounds float drift when comparing recorded draws
const validateTolerance = 1e-12

// StreamAdapter implements ports.RNGPort with hash-derived, independently
// seeded math/rand sources. It holds no mutable state and is safe for
// concurrent use; each returned *rand.Rand belongs to a single caller.
type StreamAdapter struct{}

var _ ports.RNGPort = (*StreamAdapter)(nil)

// NewStreamAdapter creates a stream adapter
func NewStreamAdapter() *StreamAdapter {
	return &StreamAdapter{}
}

// SeededStream creates a deterministic random number generator for a named operation
func (a *StreamAdapter) SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return rand.New(rand.NewSource(DeriveSeed(seed, name, "", 0))), nil
}

// Stream creates the generator for one chunk of one test
func (a *StreamAdapter) Stream(ctx context.Context, testName, streamKey string, chunk int, baseSeed int64) (*rand.Rand, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if chunk < 0 {
		return nil, core.NewInvalidInputError("chunk", fmt.Sprintf("must be non-negative, got %d", chunk))
	}
	return rand.New(rand.NewSource(DeriveSeed(baseSeed, testName, streamKey, chunk))), nil
}

// ValidateSeed replays the named stream and compares it against recorded Float64 draws
func (a *StreamAdapter) ValidateSeed(ctx context.Context, name string, seed int64, expected []float64) error {
	r, err := a.SeededStream(ctx, name, seed)
	if err != nil {
		return err
	}
	for i, want := range expected {
		got := r.Float64()
		if diff := got - want; diff > validateTolerance || diff < -validateTolerance {
			return fmt.Errorf("%w: stream %q seed %d draw %d: got %v, want %v", core.ErrSeedMismatch, name, seed, i, got, want)
		}
	}
	return nil
}

// NewSeed returns a fresh base seed for callers that did not fix one.
// The global math/rand source is randomly seeded at process start.
func NewSeed() int64 {
	return rand.Int63()
}

// DeriveSeed combines a base seed with a test name, stream key and chunk index.
// Names are hashed with djb2 and the result is passed through a splitmix64
// finalizer so neighbouring chunks get unrelated sources.
func DeriveSeed(baseSeed int64, testName, streamKey string, chunk int) int64 {
	h := uint64(baseSeed)
	h = mix64(h ^ uint64(hashString(testName)))
	h = mix64(h ^ uint64(hashString(streamKey))<<32)
	h = mix64(h + uint64(chunk)*0x9e3779b97f4a7c15)
	return int64(h &^ (1 << 63))
}

// hashString creates a simple hash for deterministic seeding
func hashString(s string) uint32 {
	var hash uint32 = 5381
	for _, c := range s {
		hash = ((hash << 5) + hash) + uint32(c) // djb2 algorithm
	}
	return hash
}

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
