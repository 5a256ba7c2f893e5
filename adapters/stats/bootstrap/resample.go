package bootstrap

import (
	"math/rand"

	"rctstats/domain/stats"
)

// ResampleWithReplacement draws size observations uniformly with replacement
// from pool into dst and returns it. dst is reused when it has enough
// capacity, so hot loops should pass back the returned slice.
// pool must be non-empty.
func ResampleWithReplacement(pool stats.Sample, size int, r *rand.Rand, dst stats.Sample) stats.Sample {
	if cap(dst) < size {
		dst = make(stats.Sample, size)
	}
	dst = dst[:size]
	n := len(pool)
	for i := range dst {
		dst[i] = pool[r.Intn(n)]
	}
	return dst
}

// MeanDifference returns mean(a) - mean(b). Both samples must be non-empty;
// callers validate before entering the resampling loop.
func MeanDifference(a, b stats.Sample) float64 {
	return mean(a) - mean(b)
}

// mean is the allocation-free arithmetic mean used inside resampling loops
func mean(s stats.Sample) float64 {
	sum := 0.0
	for _, v := range s {
		sum += v
	}
	return sum / float64(len(s))
}
