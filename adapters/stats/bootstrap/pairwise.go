package bootstrap

import (
	"context"
	"math"
	"math/rand"
	"time"

	"rctstats/domain/stats"
)

// Pairwise performs a two-tailed bootstrap hypothesis test for the difference
// in means of two independent samples.
//
// Under the null hypothesis group membership does not matter, so both groups
// are redrawn with replacement from the pooled sample s1 ++ s2, at their
// original sizes. The p-value is the fraction of resamples whose absolute
// mean difference is >= the observed absolute difference.
//
// Empty samples, a non-positive resample count and non-finite observations
// are rejected before any resampling happens.
func (e *Engine) Pairwise(ctx context.Context, s1, s2 stats.Sample, opts ...Option) (*stats.BootstrapResult, error) {
	s, err := e.resolve(opts)
	if err != nil {
		return nil, err
	}
	if err := s1.Validate("sample1"); err != nil {
		return nil, err
	}
	if err := s2.Validate("sample2"); err != nil {
		return nil, err
	}

	mean1, err := s1.Mean()
	if err != nil {
		return nil, err
	}
	mean2, err := s2.Mean()
	if err != nil {
		return nil, err
	}
	observed := math.Abs(mean1 - mean2)
	if err := checkFinite(
		statistic{"mean of sample1", mean1},
		statistic{"mean of sample2", mean2},
		statistic{"observed difference", observed},
	); err != nil {
		return nil, err
	}

	pool := stats.Pool(s1, s2)
	n, m := s1.Len(), s2.Len()

	start := time.Now()
	count, err := e.countExtreme(ctx, testPairwise, s, func(r *rand.Rand, iterations int) int {
		resample1 := make(stats.Sample, n)
		resample2 := make(stats.Sample, m)
		matched := 0
		for i := 0; i < iterations; i++ {
			resample1 = ResampleWithReplacement(pool, n, r, resample1)
			resample2 = ResampleWithReplacement(pool, m, r, resample2)
			if math.Abs(MeanDifference(resample1, resample2)) >= observed {
				matched++
			}
		}
		return matched
	})
	if err != nil {
		return nil, err
	}

	pValue := float64(count) / float64(s.resamples)
	s.logger.Debug("[bootstrap] pairwise key=%q n1=%d n2=%d resamples=%d seed=%d observed=%.6f p=%.5f in %s",
		s.streamKey, n, m, s.resamples, s.seed, observed, pValue, time.Since(start))

	return &stats.BootstrapResult{
		Mean1:              mean1,
		Mean2:              mean2,
		PValue:             pValue,
		ObservedDifference: observed,
		N1:                 n,
		N2:                 m,
		Resamples:          s.resamples,
		Seed:               s.seed,
	}, nil
}
