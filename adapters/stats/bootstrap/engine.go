package bootstrap

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"

	"rctstats/adapters/rng"
	"rctstats/domain/core"
	"rctstats/internal"
	"rctstats/ports"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultResamples is the Monte Carlo precision used when no count is given
	DefaultResamples = 100000

	// DefaultChunkSize is the number of resamples drawn from one RNG stream.
	// Chunk boundaries never depend on the worker count.
	DefaultChunkSize = 4096
)

// Test names used to namespace RNG streams
const (
	testPairwise  = "pairwise"
	testFactorial = "difference_of_differences"
)

type settings struct {
	resamples int
	workers   int
	chunkSize int
	seed      int64
	seeded    bool
	streamKey string
	logger    *internal.Logger
}

// Option adjusts engine defaults at construction time or for a single call
type Option func(*settings)

// WithResamples sets the number of bootstrap resamples
func WithResamples(n int) Option {
	return func(s *settings) { s.resamples = n }
}

// WithSeed fixes the base seed, making results reproducible
func WithSeed(seed int64) Option {
	return func(s *settings) {
		s.seed = seed
		s.seeded = true
	}
}

// WithoutSeed clears a fixed seed so each call draws fresh randomness
func WithoutSeed() Option {
	return func(s *settings) { s.seeded = false }
}

// WithWorkers bounds how many chunks run concurrently. Zero means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(s *settings) { s.workers = n }
}

// WithChunkSize sets how many resamples each RNG stream serves
func WithChunkSize(n int) Option {
	return func(s *settings) { s.chunkSize = n }
}

// WithStreamKey namespaces the RNG streams of a call, so independent tests
// sharing a base seed do not replay each other's draws
func WithStreamKey(key string) Option {
	return func(s *settings) { s.streamKey = key }
}

// WithLogger sets the logger for call summaries
func WithLogger(l *internal.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// Engine runs bootstrap hypothesis tests. It holds no per-call state and is
// safe for concurrent use.
type Engine struct {
	rngPort  ports.RNGPort
	defaults settings
}

// NewEngine creates an engine drawing randomness from rngPort
func NewEngine(rngPort ports.RNGPort, opts ...Option) *Engine {
	if rngPort == nil {
		rngPort = rng.NewStreamAdapter()
	}
	defaults := settings{
		resamples: DefaultResamples,
		chunkSize: DefaultChunkSize,
		logger:    internal.DefaultLogger,
	}
	for _, opt := range opts {
		opt(&defaults)
	}
	return &Engine{rngPort: rngPort, defaults: defaults}
}

// resolve applies per-call options over the engine defaults and validates them
func (e *Engine) resolve(opts []Option) (settings, error) {
	s := e.defaults
	for _, opt := range opts {
		opt(&s)
	}
	if s.resamples <= 0 {
		return s, fmt.Errorf("%w (got %d)", core.ErrNonPositiveCount, s.resamples)
	}
	if s.chunkSize <= 0 {
		return s, core.NewInvalidInputError("chunk size", fmt.Sprintf("must be positive, got %d", s.chunkSize))
	}
	if s.workers < 0 {
		return s, core.NewInvalidInputError("workers", fmt.Sprintf("must be non-negative, got %d", s.workers))
	}
	if s.workers == 0 {
		s.workers = runtime.GOMAXPROCS(0)
	}
	if !s.seeded {
		s.seed = rng.NewSeed()
	}
	return s, nil
}

// chunkFunc runs n resamples on r and returns how many met the tail condition.
// Each invocation owns its scratch buffers.
type chunkFunc func(r *rand.Rand, n int) int

// statistic is a named observed value
type statistic struct {
	name  string
	value float64
}

// checkFinite rejects observed statistics that overflowed. A NaN statistic
// compares false against every resample and would report p = 0.
func checkFinite(values ...statistic) error {
	for _, v := range values {
		if math.IsNaN(v.value) || math.IsInf(v.value, 0) {
			return core.NewNonFiniteStatisticError(v.name, v.value)
		}
	}
	return nil
}

// countExtreme splits the resamples into chunks, runs them on a bounded
// errgroup and sums the per-chunk counts
func (e *Engine) countExtreme(ctx context.Context, testName string, s settings, run chunkFunc) (int, error) {
	numChunks := (s.resamples + s.chunkSize - 1) / s.chunkSize
	counts := make([]int, numChunks)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for c := 0; c < numChunks; c++ {
		n := s.chunkSize
		if c == numChunks-1 {
			n = s.resamples - c*s.chunkSize
		}
		c := c // per-iteration copy for the goroutine (go 1.21 loop semantics)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := e.rngPort.Stream(gctx, testName, s.streamKey, c, s.seed)
			if err != nil {
				return fmt.Errorf("rng stream for chunk %d: %w", c, err)
			}
			counts[c] = run(r, n)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	total := 0
	for _, c := range counts {
		total += c
	}
	return total, nil
}
