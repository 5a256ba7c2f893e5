package samples

import "rctstats/domain/stats"

// ColumnSet holds wide-format samples in header order
type ColumnSet struct {
	Names   []string
	Samples map[string]stats.Sample
}

// Observations holds long-format samples keyed by metric then group.
// Groups and Metrics keep first-appearance order.
type Observations struct {
	Groups  []string
	Metrics []string
	Samples map[string]map[string]stats.Sample
}

// Sample returns the observations of group for metric; missing pairs are empty
func (o *Observations) Sample(metric, group string) stats.Sample {
	return o.Samples[metric][group]
}

type rawTable struct {
	Headers []string
	Rows    [][]string
}
