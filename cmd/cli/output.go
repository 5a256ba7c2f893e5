package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"rctstats/app"
	"rctstats/domain/stats"
	"rctstats/internal/calibration"
)

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printPairwise(w io.Writer, name1, name2 string, res *stats.BootstrapResult) {
	fmt.Fprintf(w, "%s: mean %.4f (n=%d)\n", name1, res.Mean1, res.N1)
	fmt.Fprintf(w, "%s: mean %.4f (n=%d)\n", name2, res.Mean2, res.N2)
	fmt.Fprintf(w, "|difference| %.4f, p = %.5f %s\n", res.ObservedDifference, res.PValue, app.Stars(res.PValue))
	fmt.Fprintf(w, "resamples %d, seed %d\n", res.Resamples, res.Seed)
}

func printInteraction(w io.Writer, names []string, res *stats.FactorialBootstrapResult) {
	fmt.Fprintf(w, "A: %s - %s = %.4f\n", names[0], names[1], res.ObservedDiffA)
	fmt.Fprintf(w, "B: %s - %s = %.4f\n", names[2], names[3], res.ObservedDiffB)
	fmt.Fprintf(w, "difference of differences %.4f, p = %.5f %s\n", res.ObservedDD, res.PValue, app.Stars(res.PValue))
	fmt.Fprintf(w, "resamples %d, seed %d\n", res.Resamples, res.Seed)
}

// printTable renders one line per group pair with a p-value column per metric
func printTable(w io.Writer, table *app.SignificanceTable) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "pair\t%s\n", strings.Join(table.Metrics, "\t"))
	for _, row := range table.Rows {
		cells := make([]string, len(row.Cells))
		for i, cell := range row.Cells {
			if cell.Skipped {
				cells[i] = "-"
				continue
			}
			cells[i] = strings.TrimSpace(fmt.Sprintf("%.4f %s", cell.Result.PValue, app.Stars(cell.Result.PValue)))
		}
		fmt.Fprintf(tw, "%s vs %s\t%s\n", row.GroupA, row.GroupB, strings.Join(cells, "\t"))
	}
	tw.Flush()
	fmt.Fprintf(w, "run %s (%dms)\n", table.RunID, table.RuntimeMs)
}

func printCalibration(w io.Writer, reports []*calibration.Report) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "run\ttrials\tn\tshift\trejection rate\texpected\tmean p\tmean |p - normal p|")
	for _, r := range reports {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.3f\t%.4f\t%.4f\t%.4f\t%.4f\n",
			r.Kind, r.Trials, r.SampleSize, r.Shift, r.RejectionRate, r.ExpectedRate, r.MeanPValue, r.MeanApproxGap)
	}
	tw.Flush()
}
