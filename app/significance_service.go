package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"rctstats/adapters/stats/bootstrap"
	"rctstats/domain/core"
	"rctstats/domain/stats"
	"rctstats/internal"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Tester is the bootstrap engine surface the significance service drives
type Tester interface {
	Pairwise(ctx context.Context, s1, s2 stats.Sample, opts ...bootstrap.Option) (*stats.BootstrapResult, error)
	DifferenceOfDifferences(ctx context.Context, a1, a2, b1, b2 stats.Sample, opts ...bootstrap.Option) (*stats.FactorialBootstrapResult, error)
}

// GroupSamples holds one experimental group's observations per metric
type GroupSamples struct {
	Name    string
	Metrics map[string]stats.Sample
}

// SignificanceCell is one metric compared between two groups
type SignificanceCell struct {
	Metric  string                 `json:"metric"`
	Result  *stats.BootstrapResult `json:"result,omitempty"`
	Skipped bool                   `json:"skipped"`
	Reason  string                 `json:"reason,omitempty"`
}

// SignificanceRow holds every metric for one unordered group pair
type SignificanceRow struct {
	GroupA string             `json:"group_a"`
	GroupB string             `json:"group_b"`
	Cells  []SignificanceCell `json:"cells"`
}

// SignificanceTable is the all-pairs comparison of a set of groups
type SignificanceTable struct {
	RunID     core.RunID        `json:"run_id"`
	Metrics   []string          `json:"metrics"`
	Groups    []string          `json:"groups"`
	Rows      []SignificanceRow `json:"rows"`
	RuntimeMs int64             `json:"runtime_ms"`
}

// MetricComparison is one metric of a two-group comparison
type MetricComparison struct {
	Metric  string  `json:"metric"`
	MeanA   float64 `json:"mean_a"`
	MeanB   float64 `json:"mean_b"`
	PValue  float64 `json:"p_value"`
	Leader  string  `json:"leader,omitempty"` // group with the larger mean, empty on a tie
	Skipped bool    `json:"skipped"`
	Reason  string  `json:"reason,omitempty"`
}

// GroupComparison compares two groups across metrics
type GroupComparison struct {
	RunID   core.RunID         `json:"run_id"`
	GroupA  string             `json:"group_a"`
	GroupB  string             `json:"group_b"`
	Metrics []MetricComparison `json:"metrics"`
}

// InteractionResult is the 2x2 difference-of-differences of one metric
type InteractionResult struct {
	RunID  core.RunID                      `json:"run_id"`
	Metric string                          `json:"metric"`
	Result *stats.FactorialBootstrapResult `json:"result"`
}

// SignificanceService builds significance tables on top of the bootstrap engine
type SignificanceService struct {
	tester Tester
	sem    *semaphore.Weighted
	logger *internal.Logger
}

// NewSignificanceService creates a service running at most maxConcurrent
// tests at once. Each test is itself parallel across chunks.
func NewSignificanceService(tester Tester, maxConcurrent int, logger *internal.Logger) *SignificanceService {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &SignificanceService{
		tester: tester,
		sem:    semaphore.NewWeighted(int64(maxConcurrent)),
		logger: logger,
	}
}

// BuildTable runs a pairwise test for every metric and every unordered
// group pair (i < j in input order). A pair where either group has no
// observations for a metric is skipped; any other failure aborts the table.
func (s *SignificanceService) BuildTable(ctx context.Context, metrics []string, groups []GroupSamples, opts ...bootstrap.Option) (*SignificanceTable, error) {
	startTime := time.Now()
	if err := validateTableInput(metrics, groups); err != nil {
		return nil, err
	}

	table := &SignificanceTable{
		RunID:   core.NewRunID(),
		Metrics: append([]string(nil), metrics...),
	}
	for _, g := range groups {
		table.Groups = append(table.Groups, g.Name)
	}
	for i := 0; i < len(groups); i++ {
		for j := i + 1; j < len(groups); j++ {
			table.Rows = append(table.Rows, SignificanceRow{
				GroupA: groups[i].Name,
				GroupB: groups[j].Name,
				Cells:  make([]SignificanceCell, len(metrics)),
			})
		}
	}

	s.logger.Info("[SignificanceService] run %s: %d groups, %d metrics, %d cells",
		table.RunID, len(groups), len(metrics), len(table.Rows)*len(metrics))

	g, gctx := errgroup.WithContext(ctx)
	byName := indexGroups(groups)
	skipped := 0

cells:
	for r := range table.Rows {
		row := &table.Rows[r]
		a, b := byName[row.GroupA], byName[row.GroupB]
		for m, metric := range metrics {
			cell := &row.Cells[m]
			cell.Metric = metric

			s1, s2 := a.Metrics[metric], b.Metrics[metric]
			if len(s1) == 0 || len(s2) == 0 {
				cell.Skipped = true
				cell.Reason = core.ErrInsufficientData.Error()
				skipped++
				continue
			}

			if err := s.sem.Acquire(gctx, 1); err != nil {
				break cells
			}
			callOpts := withStreamKey(opts, streamKey(metric, row.GroupA, row.GroupB))
			metric := metric // per-iteration copy for the goroutine (go 1.21 loop semantics)
			g.Go(func() error {
				defer s.sem.Release(1)
				res, err := s.tester.Pairwise(gctx, s1, s2, callOpts...)
				if err != nil {
					return fmt.Errorf("%s: %s vs %s: %w", metric, row.GroupA, row.GroupB, err)
				}
				cell.Result = res
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	table.RuntimeMs = time.Since(startTime).Milliseconds()
	s.logger.Info("[SignificanceService] run %s finished in %dms (%d skipped)", table.RunID, table.RuntimeMs, skipped)
	return table, nil
}

// CompareGroups compares two groups on each metric and names the leader
func (s *SignificanceService) CompareGroups(ctx context.Context, a, b GroupSamples, metrics []string, opts ...bootstrap.Option) (*GroupComparison, error) {
	table, err := s.BuildTable(ctx, metrics, []GroupSamples{a, b}, opts...)
	if err != nil {
		return nil, err
	}

	out := &GroupComparison{RunID: table.RunID, GroupA: a.Name, GroupB: b.Name}
	for _, cell := range table.Rows[0].Cells {
		mc := MetricComparison{Metric: cell.Metric, Skipped: cell.Skipped, Reason: cell.Reason}
		if cell.Result != nil {
			mc.MeanA = cell.Result.Mean1
			mc.MeanB = cell.Result.Mean2
			mc.PValue = cell.Result.PValue
			switch {
			case mc.MeanA > mc.MeanB:
				mc.Leader = a.Name
			case mc.MeanB > mc.MeanA:
				mc.Leader = b.Name
			}
		}
		out.Metrics = append(out.Metrics, mc)
	}
	return out, nil
}

// CompareInteraction runs the difference-of-differences test for one metric.
// a1 and a2 are the two levels under condition A, b1 and b2 under condition B.
func (s *SignificanceService) CompareInteraction(ctx context.Context, metric string, a1, a2, b1, b2 stats.Sample, opts ...bootstrap.Option) (*InteractionResult, error) {
	if strings.TrimSpace(metric) == "" {
		return nil, core.NewInvalidInputError("metric", "name is blank")
	}
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.sem.Release(1)

	runID := core.NewRunID()
	res, err := s.tester.DifferenceOfDifferences(ctx, a1, a2, b1, b2,
		withStreamKey(opts, streamKey(metric, "interaction"))...)
	if err != nil {
		return nil, fmt.Errorf("%s interaction: %w", metric, err)
	}
	s.logger.Info("[SignificanceService] run %s: %s interaction dd=%.4f p=%.4f", runID, metric, res.ObservedDD, res.PValue)
	return &InteractionResult{RunID: runID, Metric: metric, Result: res}, nil
}

// Stars marks conventional significance levels for display
func Stars(p float64) string {
	switch {
	case p < 0.001:
		return "***"
	case p < 0.01:
		return "**"
	case p < 0.05:
		return "*"
	default:
		return ""
	}
}

// streamKey joins quoted parts so names containing the separator cannot
// collide with another cell's key
func streamKey(parts ...string) string {
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = strconv.Quote(p)
	}
	return strings.Join(quoted, "|")
}

// withStreamKey copies opts so concurrent cells never share a backing array
func withStreamKey(opts []bootstrap.Option, key string) []bootstrap.Option {
	out := make([]bootstrap.Option, 0, len(opts)+1)
	out = append(out, opts...)
	return append(out, bootstrap.WithStreamKey(key))
}

func indexGroups(groups []GroupSamples) map[string]GroupSamples {
	byName := make(map[string]GroupSamples, len(groups))
	for _, g := range groups {
		byName[g.Name] = g
	}
	return byName
}

func validateTableInput(metrics []string, groups []GroupSamples) error {
	if len(metrics) == 0 {
		return core.NewInvalidInputError("metrics", "at least one metric is required")
	}
	if len(groups) < 2 {
		return core.NewInvalidInputError("groups", fmt.Sprintf("at least two groups are required, got %d", len(groups)))
	}
	seen := make(map[string]bool, len(groups))
	for _, g := range groups {
		if strings.TrimSpace(g.Name) == "" {
			return core.NewInvalidInputError("groups", "group name is blank")
		}
		if seen[g.Name] {
			return core.NewInvalidInputError("groups", fmt.Sprintf("duplicate group %q", g.Name))
		}
		seen[g.Name] = true
	}
	metricSeen := make(map[string]bool, len(metrics))
	for _, m := range metrics {
		if metricSeen[m] {
			return core.NewInvalidInputError("metrics", fmt.Sprintf("duplicate metric %q", m))
		}
		metricSeen[m] = true
	}
	return nil
}
