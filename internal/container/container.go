package container

import (
	"fmt"

	"rctstats/adapters/rng"
	"rctstats/adapters/stats/bootstrap"
	"rctstats/app"
	"rctstats/internal"
	"rctstats/internal/calibration"
	"rctstats/internal/config"
	"rctstats/ports"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Randomness and tests
	RNG    ports.RNGPort
	Engine *bootstrap.Engine

	// Services
	Significance *app.SignificanceService
	Simulator    *calibration.Simulator
}

// New creates a new dependency injection container. overrides are applied
// after the configured engine defaults.
func New(cfg *config.Config, overrides ...bootstrap.Option) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	c := &Container{
		Config: cfg,
		Logger: internal.NewLogger(cfg.Log.Level),
		RNG:    rng.NewStreamAdapter(),
	}

	c.initEngine(overrides)
	c.Significance = app.NewSignificanceService(c.Engine, cfg.Service.MaxConcurrentTests, c.Logger)
	c.Simulator = calibration.NewSimulator(c.Engine, c.RNG, c.Logger)

	c.Logger.Debug("[container] resamples=%d workers=%d chunk=%d seeded=%t max_concurrent_tests=%d",
		cfg.Bootstrap.Resamples, cfg.Bootstrap.Workers, cfg.Bootstrap.ChunkSize, cfg.Bootstrap.Seeded,
		cfg.Service.MaxConcurrentTests)
	return c, nil
}

// initEngine builds the bootstrap engine from configuration
func (c *Container) initEngine(overrides []bootstrap.Option) {
	bc := c.Config.Bootstrap
	opts := []bootstrap.Option{
		bootstrap.WithResamples(bc.Resamples),
		bootstrap.WithWorkers(bc.Workers),
		bootstrap.WithChunkSize(bc.ChunkSize),
		bootstrap.WithLogger(c.Logger),
	}
	if bc.Seeded {
		opts = append(opts, bootstrap.WithSeed(bc.Seed))
	}
	c.Engine = bootstrap.NewEngine(c.RNG, append(opts, overrides...)...)
}
