package rng

import (
	"context"
	"testing"

	"rctstats/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func draws(t *testing.T, a *StreamAdapter, key string, chunk int, seed int64, n int) []float64 {
	t.Helper()
	r, err := a.Stream(context.Background(), "pairwise", key, chunk, seed)
	require.NoError(t, err)
	out := make([]float64, n)
	for i := range out {
		out[i] = r.Float64()
	}
	return out
}

func TestStreamIsDeterministic(t *testing.T) {
	a := NewStreamAdapter()
	first := draws(t, a, "lesson|A|B", 3, 42, 16)
	second := draws(t, a, "lesson|A|B", 3, 42, 16)
	assert.Equal(t, first, second)
}

func TestStreamsDifferAcrossChunksKeysAndSeeds(t *testing.T) {
	a := NewStreamAdapter()
	base := draws(t, a, "k", 0, 42, 8)

	assert.NotEqual(t, base, draws(t, a, "k", 1, 42, 8), "chunk")
	assert.NotEqual(t, base, draws(t, a, "other", 0, 42, 8), "stream key")
	assert.NotEqual(t, base, draws(t, a, "k", 0, 43, 8), "seed")
}

func TestDeriveSeedIsNonNegative(t *testing.T) {
	for chunk := 0; chunk < 1000; chunk++ {
		seed := DeriveSeed(-7, "factorial", "x", chunk)
		if seed < 0 {
			t.Fatalf("chunk %d derived negative seed %d", chunk, seed)
		}
	}
}

func TestStreamRejectsNegativeChunk(t *testing.T) {
	_, err := NewStreamAdapter().Stream(context.Background(), "pairwise", "", -1, 1)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestStreamHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewStreamAdapter().Stream(ctx, "pairwise", "", 0, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestValidateSeed(t *testing.T) {
	ctx := context.Background()
	a := NewStreamAdapter()

	r, err := a.SeededStream(ctx, "calibration", 7)
	require.NoError(t, err)
	recorded := []float64{r.Float64(), r.Float64(), r.Float64()}

	assert.NoError(t, a.ValidateSeed(ctx, "calibration", 7, recorded))

	err = a.ValidateSeed(ctx, "calibration", 8, recorded)
	assert.ErrorIs(t, err, core.ErrSeedMismatch)
}
