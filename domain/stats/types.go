package stats

import (
	"fmt"
	"math"

	"rctstats/domain/core"

	mstats "github.com/montanaflynn/stats"
)

// ============================================================================
// SAMPLES
// ============================================================================

// Sample is an ordered sequence of observations of one metric for one group.
// Order does not affect the statistic but is preserved so that seeded
// resampling is reproducible.
type Sample []float64

// Len returns the number of observations
func (s Sample) Len() int {
	return len(s)
}

// Mean returns the arithmetic mean. An empty sample is an invalid input.
func (s Sample) Mean() (float64, error) {
	if len(s) == 0 {
		return 0, core.ErrEmptySample
	}
	m, err := mstats.Mean(mstats.Float64Data(s))
	if err != nil {
		return 0, fmt.Errorf("mean: %w", err)
	}
	return m, nil
}

// Validate rejects empty samples and non-finite observations.
// name identifies the sample in the returned error.
func (s Sample) Validate(name string) error {
	if len(s) == 0 {
		return core.NewEmptySampleError(name)
	}
	for i, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return core.NewNonFiniteError(name, i, v)
		}
	}
	return nil
}

// Pool concatenates samples in argument order into a new universal sample.
// The inputs are never aliased.
func Pool(samples ...Sample) Sample {
	n := 0
	for _, s := range samples {
		n += len(s)
	}
	pooled := make(Sample, 0, n)
	for _, s := range samples {
		pooled = append(pooled, s...)
	}
	return pooled
}

// ============================================================================
// RESULTS
// ============================================================================

// TieRule names the comparison used when counting pairwise resamples
// against the observed difference.
type TieRule string

const (
	// TieInclusive counts resamples whose difference is >= the observed one.
	TieInclusive TieRule = ">="
)

// PairwiseTieRule is the rule applied by every pairwise bootstrap test.
const PairwiseTieRule = TieInclusive

// BootstrapResult is the outcome of a two-sample difference-in-means test
type BootstrapResult struct {
	Mean1              float64 `json:"mean1"`
	Mean2              float64 `json:"mean2"`
	PValue             float64 `json:"p_value"`
	ObservedDifference float64 `json:"observed_difference"` // |Mean1 - Mean2|
	N1                 int     `json:"n1"`
	N2                 int     `json:"n2"`
	Resamples          int     `json:"resamples"`
	Seed               int64   `json:"seed"`
}

// FactorialBootstrapResult is the outcome of a 2x2 difference-of-differences test
type FactorialBootstrapResult struct {
	ObservedDiffA float64 `json:"observed_diff_a"` // mean(A1) - mean(A2)
	ObservedDiffB float64 `json:"observed_diff_b"` // mean(B1) - mean(B2)
	ObservedDD    float64 `json:"observed_dd"`     // ObservedDiffA - ObservedDiffB, signed
	PValue        float64 `json:"p_value"`
	Resamples     int     `json:"resamples"`
	Seed          int64   `json:"seed"`
	SampleSizes   [4]int  `json:"sample_sizes"` // |A1|, |A2|, |B1|, |B2|
}
