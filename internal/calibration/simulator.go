// Package calibration checks that the bootstrap tests behave as advertised:
// p-values are roughly uniform when both groups come from the same
// distribution, and small when the groups are clearly separated.
package calibration

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"rctstats/adapters/stats/bootstrap"
	"rctstats/domain/core"
	"rctstats/domain/stats"
	"rctstats/internal"
	"rctstats/ports"

	mstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

// PairwiseTester is the part of the bootstrap engine the simulator drives
type PairwiseTester interface {
	Pairwise(ctx context.Context, s1, s2 stats.Sample, opts ...bootstrap.Option) (*stats.BootstrapResult, error)
}

// Config controls a simulation run
type Config struct {
	Trials     int     // independent two-sample experiments
	SampleSize int     // observations per group
	Resamples  int     // bootstrap resamples per trial
	Alpha      float64 // rejection threshold
	Sigma      float64 // standard deviation of both groups
	Shift      float64 // mean of group 2 in Power runs (group 1 is centred at 0)
	Seed       int64
}

// DefaultConfig mirrors the textbook check: 200 points per group, 1000 trials
func DefaultConfig() Config {
	return Config{
		Trials:     1000,
		SampleSize: 200,
		Resamples:  1000,
		Alpha:      0.05,
		Sigma:      1,
		Shift:      5,
		Seed:       42,
	}
}

// Report summarises a simulation run
type Report struct {
	Kind          string  `json:"kind"`
	Trials        int     `json:"trials"`
	SampleSize    int     `json:"sample_size"`
	Resamples     int     `json:"resamples"`
	Alpha         float64 `json:"alpha"`
	Shift         float64 `json:"shift"`
	Rejections    int     `json:"rejections"`
	RejectionRate float64 `json:"rejection_rate"`
	MeanPValue    float64 `json:"mean_p_value"`
	MeanApproxGap float64 `json:"mean_approx_gap"` // mean |bootstrap p - normal approximation p|
	ExpectedRate  float64 `json:"expected_rate"`   // alpha for null runs, normal-theory power otherwise
}

// determinismDraws is how many values are replayed before a run starts
const determinismDraws = 16

// Simulator runs repeated pairwise tests on synthetic Normal data
type Simulator struct {
	tester PairwiseTester
	rng    ports.RNGPort
	logger *internal.Logger
}

// NewSimulator creates a simulator driving tester. Synthetic data is drawn
// from rngPort.
func NewSimulator(tester PairwiseTester, rngPort ports.RNGPort, logger *internal.Logger) *Simulator {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Simulator{tester: tester, rng: rngPort, logger: logger}
}

// NullCalibration draws both groups from Normal(0, sigma). The rejection
// rate should be close to Alpha.
func (s *Simulator) NullCalibration(ctx context.Context, cfg Config) (*Report, error) {
	cfg.Shift = 0
	return s.run(ctx, "null_calibration", cfg)
}

// Power draws group 2 from Normal(shift, sigma). The rejection rate
// estimates the test's power at that effect size.
func (s *Simulator) Power(ctx context.Context, cfg Config) (*Report, error) {
	return s.run(ctx, "power", cfg)
}

func (s *Simulator) run(ctx context.Context, kind string, cfg Config) (*Report, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}

	stream := "calibration|" + kind
	if err := s.checkDeterminism(ctx, stream, cfg.Seed); err != nil {
		return nil, err
	}
	r, err := s.rng.SeededStream(ctx, stream, cfg.Seed)
	if err != nil {
		return nil, err
	}
	group1 := distuv.Normal{Mu: 0, Sigma: cfg.Sigma}
	group2 := distuv.Normal{Mu: cfg.Shift, Sigma: cfg.Sigma}

	report := &Report{
		Kind:       kind,
		Trials:     cfg.Trials,
		SampleSize: cfg.SampleSize,
		Resamples:  cfg.Resamples,
		Alpha:      cfg.Alpha,
		Shift:      cfg.Shift,
	}

	sumP, sumGap := 0.0, 0.0
	for trial := 0; trial < cfg.Trials; trial++ {
		s1 := draw(r, group1, cfg.SampleSize)
		s2 := draw(r, group2, cfg.SampleSize)

		res, err := s.tester.Pairwise(ctx, s1, s2,
			bootstrap.WithResamples(cfg.Resamples),
			bootstrap.WithSeed(cfg.Seed),
			bootstrap.WithStreamKey(fmt.Sprintf("%s|%d", kind, trial)),
		)
		if err != nil {
			return nil, fmt.Errorf("trial %d: %w", trial, err)
		}
		approx, err := NormalApproxPValue(s1, s2)
		if err != nil {
			return nil, fmt.Errorf("trial %d: %w", trial, err)
		}

		if res.PValue < cfg.Alpha {
			report.Rejections++
		}
		sumP += res.PValue
		sumGap += math.Abs(res.PValue - approx)
	}

	n := float64(cfg.Trials)
	report.RejectionRate = float64(report.Rejections) / n
	report.MeanPValue = sumP / n
	report.MeanApproxGap = sumGap / n
	report.ExpectedRate = expectedRate(cfg)

	s.logger.Info("[calibration] %s trials=%d n=%d shift=%.3f rejection_rate=%.4f expected=%.4f mean_p=%.4f",
		kind, cfg.Trials, cfg.SampleSize, cfg.Shift, report.RejectionRate, report.ExpectedRate, report.MeanPValue)
	return report, nil
}

// checkDeterminism records a few draws of the data stream and replays them.
// A run on a port that cannot reproduce its own draws would not be repeatable.
func (s *Simulator) checkDeterminism(ctx context.Context, stream string, seed int64) error {
	r, err := s.rng.SeededStream(ctx, stream, seed)
	if err != nil {
		return err
	}
	recorded := make([]float64, determinismDraws)
	for i := range recorded {
		recorded[i] = r.Float64()
	}
	if err := s.rng.ValidateSeed(ctx, stream, seed, recorded); err != nil {
		return fmt.Errorf("%s stream is not reproducible: %w", stream, err)
	}
	return nil
}

// NormalApproxPValue is the large-sample two-sided p-value for a difference
// in means, using the pooled population variance as the bootstrap null does
func NormalApproxPValue(s1, s2 stats.Sample) (float64, error) {
	if err := s1.Validate("sample1"); err != nil {
		return 0, err
	}
	if err := s2.Validate("sample2"); err != nil {
		return 0, err
	}
	mean1, _ := s1.Mean()
	mean2, _ := s2.Mean()
	diff := math.Abs(mean1 - mean2)

	pooledVar, err := mstats.PopulationVariance(mstats.Float64Data(stats.Pool(s1, s2)))
	if err != nil {
		return 0, fmt.Errorf("pooled variance: %w", err)
	}
	se := math.Sqrt(pooledVar * (1/float64(len(s1))+1/float64(len(s2))))
	if se == 0 {
		if diff == 0 {
			return 1, nil
		}
		return 0, nil
	}
	return 2 * (1 - distuv.UnitNormal.CDF(diff/se)), nil
}

// expectedRate is alpha under the null, otherwise the normal-theory power
// of a two-sided z-test at the configured shift
func expectedRate(cfg Config) float64 {
	if cfg.Shift == 0 {
		return cfg.Alpha
	}
	z := distuv.UnitNormal.Quantile(1 - cfg.Alpha/2)
	delta := math.Abs(cfg.Shift) / (cfg.Sigma * math.Sqrt(2/float64(cfg.SampleSize)))
	return distuv.UnitNormal.CDF(delta-z) + distuv.UnitNormal.CDF(-delta-z)
}

// draw samples n values by inverse transform on dist
func draw(r *rand.Rand, dist distuv.Normal, n int) stats.Sample {
	out := make(stats.Sample, n)
	for i := range out {
		u := r.Float64()
		for u == 0 {
			u = r.Float64()
		}
		out[i] = dist.Quantile(u)
	}
	return out
}

func validate(cfg Config) error {
	switch {
	case cfg.Trials <= 0:
		return core.NewInvalidInputError("trials", "must be positive")
	case cfg.SampleSize <= 0:
		return core.NewInvalidInputError("sample size", "must be positive")
	case cfg.Resamples <= 0:
		return core.ErrNonPositiveCount
	case cfg.Alpha <= 0 || cfg.Alpha >= 1:
		return core.NewInvalidInputError("alpha", "must lie in (0, 1)")
	case cfg.Sigma <= 0 || math.IsNaN(cfg.Sigma) || math.IsInf(cfg.Sigma, 0):
		return core.NewInvalidInputError("sigma", "must be positive and finite")
	case math.IsNaN(cfg.Shift) || math.IsInf(cfg.Shift, 0):
		return core.NewInvalidInputError("shift", "must be finite")
	}
	return nil
}
