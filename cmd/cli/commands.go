package main

import (
	"fmt"
	"strings"

	"rctstats/adapters/samples"
	"rctstats/app"
	"rctstats/domain/core"
	"rctstats/domain/stats"
	"rctstats/internal/calibration"

	"github.com/spf13/cobra"
)

func newPairwiseCmd(rt *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "pairwise [data-file] [column-1] [column-2]",
		Short: "Test whether two samples differ in mean",
		Long: `Run the two-sample bootstrap test on two columns of a wide CSV or XLSX file.
Each column header names a sample; blank cells are skipped.

Example: rctstats pairwise results.csv control treatment --resamples 50000 --seed 7`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := samples.NewReader(args[0], rt.Logger).ReadColumns()
			if err != nil {
				return err
			}
			s1, err := column(set, args[1])
			if err != nil {
				return err
			}
			s2, err := column(set, args[2])
			if err != nil {
				return err
			}

			res, err := rt.Engine.Pairwise(cmd.Context(), s1, s2)
			if err != nil {
				return err
			}
			if rt.flags.jsonOut {
				return printJSON(cmd.OutOrStdout(), res)
			}
			printPairwise(cmd.OutOrStdout(), args[1], args[2], res)
			return nil
		},
	}
}

func newFactorialCmd(rt *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "factorial [data-file] [a1] [a2] [b1] [b2]",
		Short: "Test whether a level effect differs between two conditions",
		Long: `Run the 2x2 difference-of-differences bootstrap test on four columns of a wide
CSV or XLSX file. a1 and a2 are the two levels under condition A, b1 and b2 the
same levels under condition B.

Example: rctstats factorial results.csv mobile_new mobile_old desktop_new desktop_old`,
		Args: cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := samples.NewReader(args[0], rt.Logger).ReadColumns()
			if err != nil {
				return err
			}
			var cells [4]stats.Sample
			for i, name := range args[1:] {
				if cells[i], err = column(set, name); err != nil {
					return err
				}
			}

			metric := strings.Join(args[1:], ",")
			res, err := rt.Significance.CompareInteraction(cmd.Context(), metric, cells[0], cells[1], cells[2], cells[3])
			if err != nil {
				return err
			}
			if rt.flags.jsonOut {
				return printJSON(cmd.OutOrStdout(), res)
			}
			printInteraction(cmd.OutOrStdout(), args[1:], res.Result)
			return nil
		},
	}
}

func newTableCmd(rt *cliApp) *cobra.Command {
	var groupCol, metricCol, valueCol string
	var metrics []string

	cmd := &cobra.Command{
		Use:   "table [data-file]",
		Short: "Compare every pair of groups on every metric",
		Long: `Build a significance table from a long-format CSV or XLSX file with one
observation per row. Pairs where a group has no observations for a metric are
reported as skipped.

Example: rctstats table events.csv --group-col arm --metric-col metric --value-col value`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			obs, err := samples.NewReader(args[0], rt.Logger).ReadObservations(groupCol, metricCol, valueCol)
			if err != nil {
				return err
			}
			if len(metrics) == 0 {
				metrics = obs.Metrics
			}

			groups := make([]app.GroupSamples, 0, len(obs.Groups))
			for _, name := range obs.Groups {
				g := app.GroupSamples{Name: name, Metrics: make(map[string]stats.Sample, len(metrics))}
				for _, m := range metrics {
					g.Metrics[m] = obs.Sample(m, name)
				}
				groups = append(groups, g)
			}

			table, err := rt.Significance.BuildTable(cmd.Context(), metrics, groups)
			if err != nil {
				return err
			}
			if rt.flags.jsonOut {
				return printJSON(cmd.OutOrStdout(), table)
			}
			printTable(cmd.OutOrStdout(), table)
			return nil
		},
	}

	cmd.Flags().StringVar(&groupCol, "group-col", "group", "Column holding the group label")
	cmd.Flags().StringVar(&metricCol, "metric-col", "", "Column holding the metric name (empty reads a single metric)")
	cmd.Flags().StringVar(&valueCol, "value-col", "value", "Column holding the observation")
	cmd.Flags().StringSliceVar(&metrics, "metrics", nil, "Metrics to include, in display order (default: all, in file order)")
	return cmd
}

func newCalibrateCmd(rt *cliApp) *cobra.Command {
	cfg := calibration.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Check bootstrap false-positive rate and power on simulated data",
		Long: `Simulate repeated experiments on Normal data. The null run draws both groups
from the same distribution and should reject close to alpha of the time; the
power run shifts group 2 and should reject nearly always for large shifts.

Example: rctstats calibrate --trials 500 --size 200 --shift 0.3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("resamples") {
				cfg.Resamples = rt.flags.resamples
			}
			if cmd.Flags().Changed("seed") {
				cfg.Seed = rt.flags.seed
			}

			null, err := rt.Simulator.NullCalibration(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			power, err := rt.Simulator.Power(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			reports := []*calibration.Report{null, power}
			if rt.flags.jsonOut {
				return printJSON(cmd.OutOrStdout(), reports)
			}
			printCalibration(cmd.OutOrStdout(), reports)
			return nil
		},
	}

	cmd.Flags().IntVar(&cfg.Trials, "trials", cfg.Trials, "Simulated experiments per run")
	cmd.Flags().IntVar(&cfg.SampleSize, "size", cfg.SampleSize, "Observations per group")
	cmd.Flags().Float64Var(&cfg.Alpha, "alpha", cfg.Alpha, "Rejection threshold")
	cmd.Flags().Float64Var(&cfg.Sigma, "sigma", cfg.Sigma, "Standard deviation of both groups")
	cmd.Flags().Float64Var(&cfg.Shift, "shift", cfg.Shift, "Mean shift of group 2 in the power run")
	return cmd
}

func column(set *samples.ColumnSet, name string) (stats.Sample, error) {
	s, ok := set.Samples[name]
	if !ok {
		return nil, core.NewInvalidInputError(name, fmt.Sprintf("column not found (have %s)", strings.Join(set.Names, ", ")))
	}
	return s, nil
}
