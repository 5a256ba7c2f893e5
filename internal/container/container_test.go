package container

import (
	"context"
	"testing"

	"rctstats/adapters/stats/bootstrap"
	"rctstats/domain/stats"
	"rctstats/internal"
	"rctstats/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Bootstrap: config.BootstrapConfig{Resamples: 300, ChunkSize: 100, Seed: 5, Seeded: true},
		Service:   config.ServiceConfig{MaxConcurrentTests: 2},
		Log:       config.LogConfig{Level: internal.LogLevelError},
	}
}

func TestNewRequiresConfig(t *testing.T) {
	c, err := New(nil)
	assert.Nil(t, c)
	assert.Error(t, err)
}

func TestNewWiresConfiguredEngine(t *testing.T) {
	c, err := New(testConfig())
	require.NoError(t, err)
	require.NotNil(t, c.Engine)
	require.NotNil(t, c.Significance)
	require.NotNil(t, c.Simulator)

	res, err := c.Engine.Pairwise(context.Background(), stats.Sample{1, 2, 3}, stats.Sample{2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, 300, res.Resamples)
	assert.Equal(t, int64(5), res.Seed)
}

func TestNewAppliesOverrides(t *testing.T) {
	c, err := New(testConfig(), bootstrap.WithResamples(50), bootstrap.WithSeed(11))
	require.NoError(t, err)

	res, err := c.Engine.Pairwise(context.Background(), stats.Sample{1}, stats.Sample{2})
	require.NoError(t, err)
	assert.Equal(t, 50, res.Resamples)
	assert.Equal(t, int64(11), res.Seed)
}
