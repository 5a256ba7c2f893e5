package bootstrap

import (
	"context"
	"math/rand"
	"time"

	"rctstats/domain/stats"
)

// DifferenceOfDifferences tests whether the level effect (level 1 minus
// level 2) differs between conditions A and B of a 2x2 design.
//
// a1 and a2 are the two factor levels under condition A, b1 and b2 the same
// levels under condition B. Observations are pooled by level across
// conditions (a1 ++ b1 and a2 ++ b2), which encodes the null hypothesis that
// the level effect is the same in both conditions.
//
// The statistic is signed. When the observed difference of differences is
// negative, resamples with dd <= observed are counted; otherwise resamples
// with dd >= observed are counted. This is not equivalent to comparing
// absolute values and must not be unified with Pairwise.
func (e *Engine) DifferenceOfDifferences(ctx context.Context, a1, a2, b1, b2 stats.Sample, opts ...Option) (*stats.FactorialBootstrapResult, error) {
	s, err := e.resolve(opts)
	if err != nil {
		return nil, err
	}
	for _, in := range []struct {
		name   string
		sample stats.Sample
	}{{"a1", a1}, {"a2", a2}, {"b1", b1}, {"b2", b2}} {
		if err := in.sample.Validate(in.name); err != nil {
			return nil, err
		}
	}

	means := make([]float64, 4)
	for i, sample := range []stats.Sample{a1, a2, b1, b2} {
		if means[i], err = sample.Mean(); err != nil {
			return nil, err
		}
	}
	obsDiffA := means[0] - means[1]
	obsDiffB := means[2] - means[3]
	observedDD := obsDiffA - obsDiffB
	if err := checkFinite(
		statistic{"mean of a1", means[0]},
		statistic{"mean of a2", means[1]},
		statistic{"mean of b1", means[2]},
		statistic{"mean of b2", means[3]},
		statistic{"observed difference A", obsDiffA},
		statistic{"observed difference B", obsDiffB},
		statistic{"observed difference of differences", observedDD},
	); err != nil {
		return nil, err
	}

	level1 := stats.Pool(a1, b1)
	level2 := stats.Pool(a2, b2)
	nA1, nA2, nB1, nB2 := a1.Len(), a2.Len(), b1.Len(), b2.Len()

	start := time.Now()
	count, err := e.countExtreme(ctx, testFactorial, s, func(r *rand.Rand, iterations int) int {
		ra1 := make(stats.Sample, nA1)
		ra2 := make(stats.Sample, nA2)
		rb1 := make(stats.Sample, nB1)
		rb2 := make(stats.Sample, nB2)
		matched := 0
		for i := 0; i < iterations; i++ {
			ra1 = ResampleWithReplacement(level1, nA1, r, ra1)
			ra2 = ResampleWithReplacement(level2, nA2, r, ra2)
			rb1 = ResampleWithReplacement(level1, nB1, r, rb1)
			rb2 = ResampleWithReplacement(level2, nB2, r, rb2)

			dd := MeanDifference(ra1, ra2) - MeanDifference(rb1, rb2)
			if inObservedTail(dd, observedDD) {
				matched++
			}
		}
		return matched
	})
	if err != nil {
		return nil, err
	}

	pValue := float64(count) / float64(s.resamples)
	s.logger.Debug("[bootstrap] difference-of-differences key=%q n=%d/%d/%d/%d resamples=%d seed=%d dd=%.6f p=%.5f in %s",
		s.streamKey, nA1, nA2, nB1, nB2, s.resamples, s.seed, observedDD, pValue, time.Since(start))

	return &stats.FactorialBootstrapResult{
		ObservedDiffA: obsDiffA,
		ObservedDiffB: obsDiffB,
		ObservedDD:    observedDD,
		PValue:        pValue,
		Resamples:     s.resamples,
		Seed:          s.seed,
		SampleSizes:   [4]int{nA1, nA2, nB1, nB2},
	}, nil
}

// inObservedTail picks the tail by the sign of the observed statistic.
// Zero falls on the upper tail.
func inObservedTail(dd, observed float64) bool {
	if observed < 0 {
		return dd <= observed
	}
	return dd >= observed
}
