package calibration

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"rctstats/adapters/rng"
	"rctstats/adapters/stats/bootstrap"
	"rctstats/domain/core"
	"rctstats/domain/stats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSimulator() *Simulator {
	port := rng.NewStreamAdapter()
	return NewSimulator(bootstrap.NewEngine(port), port, nil)
}

// driftingPort hands out a differently seeded data stream on every request
type driftingPort struct {
	*rng.StreamAdapter
	calls int64
}

func (d *driftingPort) SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error) {
	d.calls++
	return d.StreamAdapter.SeededStream(ctx, name, seed+d.calls)
}

func (d *driftingPort) ValidateSeed(ctx context.Context, name string, seed int64, expected []float64) error {
	r, err := d.SeededStream(ctx, name, seed)
	if err != nil {
		return err
	}
	for i, want := range expected {
		if got := r.Float64(); got != want {
			return fmt.Errorf("%w: draw %d", core.ErrSeedMismatch, i)
		}
	}
	return nil
}

// pairwiseCounter counts tests it is asked to run
type pairwiseCounter struct {
	calls int
}

func (p *pairwiseCounter) Pairwise(ctx context.Context, s1, s2 stats.Sample, opts ...bootstrap.Option) (*stats.BootstrapResult, error) {
	p.calls++
	return &stats.BootstrapResult{PValue: 1}, nil
}

func TestNormalApproxPValue(t *testing.T) {
	t.Run("identical samples", func(t *testing.T) {
		s := stats.Sample{1, 2, 3, 4}
		p, err := NormalApproxPValue(s, s)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, p, 1e-12)
	})

	t.Run("constant equal samples", func(t *testing.T) {
		p, err := NormalApproxPValue(stats.Sample{2, 2}, stats.Sample{2})
		require.NoError(t, err)
		assert.Equal(t, 1.0, p)
	})

	t.Run("known z", func(t *testing.T) {
		// Pool {0,0,2,2}: population variance 1, se = sqrt(1/2+1/2) = 1, z = 2
		p, err := NormalApproxPValue(stats.Sample{2, 2}, stats.Sample{0, 0})
		require.NoError(t, err)
		assert.InDelta(t, 0.0455, p, 1e-3)
	})

	t.Run("rejects empty input", func(t *testing.T) {
		_, err := NormalApproxPValue(nil, stats.Sample{1})
		assert.ErrorIs(t, err, core.ErrInvalidInput)
	})
}

func TestExpectedRate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Shift = 0
	assert.Equal(t, cfg.Alpha, expectedRate(cfg))

	cfg.Shift = 5
	assert.InDelta(t, 1.0, expectedRate(cfg), 1e-9)

	// delta = 0.5 / sqrt(2/100) ~ 3.54, power ~ 0.94
	cfg.Shift, cfg.SampleSize = 0.5, 100
	assert.InDelta(t, 0.94, expectedRate(cfg), 0.01)
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero trials", func(c *Config) { c.Trials = 0 }},
		{"zero sample size", func(c *Config) { c.SampleSize = 0 }},
		{"zero resamples", func(c *Config) { c.Resamples = 0 }},
		{"alpha of one", func(c *Config) { c.Alpha = 1 }},
		{"negative sigma", func(c *Config) { c.Sigma = -1 }},
		{"infinite shift", func(c *Config) { c.Shift = math.Inf(1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			report, err := newSimulator().Power(context.Background(), cfg)
			assert.Nil(t, report)
			assert.ErrorIs(t, err, core.ErrInvalidInput)
		})
	}
}

func TestRunIsReproducible(t *testing.T) {
	cfg := Config{Trials: 5, SampleSize: 20, Resamples: 300, Alpha: 0.05, Sigma: 1, Shift: 0.3, Seed: 9}

	first, err := newSimulator().Power(context.Background(), cfg)
	require.NoError(t, err)
	second, err := newSimulator().Power(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "power", first.Kind)
}

func TestRunChecksDeterminismFirst(t *testing.T) {
	tester := &pairwiseCounter{}
	sim := NewSimulator(tester, &driftingPort{StreamAdapter: rng.NewStreamAdapter()}, nil)

	report, err := sim.Power(context.Background(), Config{Trials: 3, SampleSize: 5, Resamples: 10, Alpha: 0.05, Sigma: 1, Shift: 1, Seed: 1})
	assert.Nil(t, report)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrSeedMismatch)
	assert.True(t, core.IsDeterminismError(err))
	assert.Contains(t, err.Error(), "calibration|power")
	assert.Zero(t, tester.calls)
}

func TestRunCallsTesterPerTrial(t *testing.T) {
	tester := &pairwiseCounter{}
	port := rng.NewStreamAdapter()
	cfg := Config{Trials: 4, SampleSize: 5, Resamples: 10, Alpha: 0.05, Sigma: 1, Shift: 1, Seed: 3}

	report, err := NewSimulator(tester, port, nil).Power(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 4, tester.calls)
	assert.Equal(t, 0, report.Rejections)
}

func TestNullCalibration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping calibration simulation in short mode")
	}

	cfg := Config{Trials: 300, SampleSize: 100, Resamples: 1000, Alpha: 0.05, Sigma: 1, Shift: 3, Seed: 42}
	report, err := newSimulator().NullCalibration(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, 0.0, report.Shift, "null runs ignore the configured shift")
	assert.GreaterOrEqual(t, report.RejectionRate, 0.01)
	assert.LessOrEqual(t, report.RejectionRate, 0.10)
	assert.InDelta(t, 0.5, report.MeanPValue, 0.07)
	assert.Less(t, report.MeanApproxGap, 0.03)
}

func TestPower(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping power simulation in short mode")
	}

	t.Run("large shift", func(t *testing.T) {
		cfg := Config{Trials: 50, SampleSize: 200, Resamples: 500, Alpha: 0.05, Sigma: 1, Shift: 5, Seed: 42}
		report, err := newSimulator().Power(context.Background(), cfg)
		require.NoError(t, err)
		assert.Equal(t, 1.0, report.RejectionRate)
		assert.Equal(t, 0.0, report.MeanPValue)
	})

	t.Run("moderate shift", func(t *testing.T) {
		cfg := Config{Trials: 100, SampleSize: 100, Resamples: 1000, Alpha: 0.05, Sigma: 1, Shift: 0.5, Seed: 7}
		report, err := newSimulator().Power(context.Background(), cfg)
		require.NoError(t, err)
		assert.Greater(t, report.RejectionRate, 0.8)
		assert.InDelta(t, report.ExpectedRate, report.RejectionRate, 0.1)
	})
}
