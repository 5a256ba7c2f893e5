// Package bootstrap implements resampling-based hypothesis tests for
// randomized experiments: a two-sample difference-in-means test and a 2x2
// difference-of-differences (interaction) test.
//
// Both tests resample with replacement from pooled data that encodes the
// null hypothesis, and both report Monte Carlo p-values. Work is split into
// fixed-size chunks, each drawing from its own RNG stream, and the chunks
// run in parallel. With a fixed seed the p-value is identical for any
// worker count.
package bootstrap

import (
	"context"

	"rctstats/adapters/rng"
)

var defaultEngine = NewEngine(rng.NewStreamAdapter())

// Bootstrap runs Pairwise on the process-default engine and returns
// (mean1, mean2, pvalue). Each call draws a fresh seed.
func Bootstrap(ctx context.Context, sample1, sample2 []float64, numResamples int) (float64, float64, float64, error) {
	res, err := defaultEngine.Pairwise(ctx, sample1, sample2, WithResamples(numResamples))
	if err != nil {
		return 0, 0, 0, err
	}
	return res.Mean1, res.Mean2, res.PValue, nil
}

// BootstrapDifferenceOfDifferences runs DifferenceOfDifferences on the
// process-default engine and returns (obsDiffA, obsDiffB, pvalue)
func BootstrapDifferenceOfDifferences(ctx context.Context, a1, a2, b1, b2 []float64, numResamples int) (float64, float64, float64, error) {
	res, err := defaultEngine.DifferenceOfDifferences(ctx, a1, a2, b1, b2, WithResamples(numResamples))
	if err != nil {
		return 0, 0, 0, err
	}
	return res.ObservedDiffA, res.ObservedDiffB, res.PValue, nil
}
