package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"rctstats/app"
	"rctstats/domain/stats"
	"rctstats/internal/calibration"
	"rctstats/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("BOOTSTRAP_RESAMPLES", "2000")
	t.Setenv("BOOTSTRAP_SEED", "")
	t.Setenv("LOG_LEVEL", "ERROR")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestPairwiseCommand(t *testing.T) {
	path := writeCSV(t, "control,treatment\n1,0\n1,0\n1,0\n1,0\n1,0\n0,0\n0,0\n0,0\n0,0\n0,0\n")

	out, err := runCLI(t, "pairwise", path, "control", "treatment", "--seed", "7", "--json")
	require.NoError(t, err)

	var res stats.BootstrapResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 0.5, res.Mean1)
	assert.Equal(t, 0.0, res.Mean2)
	assert.Equal(t, 2000, res.Resamples)
	assert.Equal(t, int64(7), res.Seed)
	assert.Less(t, res.PValue, 0.05)
}

func TestPairwiseCommand_TextOutput(t *testing.T) {
	path := writeCSV(t, "a,b\n1,2\n2,3\n")

	out, err := runCLI(t, "pairwise", path, "a", "b", "--resamples", "100")
	require.NoError(t, err)
	assert.Contains(t, out, "a: mean 1.5000 (n=2)")
	assert.Contains(t, out, "resamples 100")
}

func TestPairwiseCommand_MissingColumn(t *testing.T) {
	path := writeCSV(t, "a,b\n1,2\n")

	_, err := runCLI(t, "pairwise", path, "a", "c")
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(errors.FromDomain(err)))
	assert.Contains(t, err.Error(), "have a, b")
}

func TestPairwiseCommand_EmptyColumn(t *testing.T) {
	path := writeCSV(t, "a,b\n1,\n2,\n")

	_, err := runCLI(t, "pairwise", path, "a", "b")
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(errors.FromDomain(err)))
}

func TestFactorialCommand(t *testing.T) {
	path := writeCSV(t, "a1,a2,b1,b2\n9,1,4,4\n10,2,5,5\n11,3,6,6\n")

	out, err := runCLI(t, "factorial", path, "a1", "a2", "b1", "b2", "--seed", "1", "--json")
	require.NoError(t, err)

	var res app.InteractionResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.NotNil(t, res.Result)
	assert.Equal(t, 8.0, res.Result.ObservedDD)
	assert.Equal(t, [4]int{3, 3, 3, 3}, res.Result.SampleSizes)
}

func TestTableCommand(t *testing.T) {
	path := writeCSV(t, "arm,metric,value\n"+
		"control,clicked,0\ncontrol,clicked,1\n"+
		"treatment,clicked,1\ntreatment,clicked,1\n"+
		"holdout,minutes,3\ncontrol,minutes,4\n")

	out, err := runCLI(t, "table", path, "--group-col", "arm", "--metric-col", "metric", "--seed", "3", "--json")
	require.NoError(t, err)

	var table app.SignificanceTable
	require.NoError(t, json.Unmarshal([]byte(out), &table))
	assert.Equal(t, []string{"clicked", "minutes"}, table.Metrics)
	require.Len(t, table.Rows, 3)
	assert.False(t, table.Rows[0].Cells[0].Skipped)
	assert.True(t, table.Rows[0].Cells[1].Skipped, "treatment has no minutes")
	assert.True(t, table.Rows[1].Cells[0].Skipped, "holdout has no clicks")
	assert.False(t, table.Rows[1].Cells[1].Skipped)
}

func TestTableCommand_TextOutput(t *testing.T) {
	path := writeCSV(t, "group,value\na,1\na,2\nb,5\nb,6\n")

	out, err := runCLI(t, "table", path, "--seed", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "a vs b")
	assert.Contains(t, out, "run ")
}

func TestCalibrateCommand(t *testing.T) {
	out, err := runCLI(t, "calibrate", "--trials", "5", "--size", "20", "--resamples", "200", "--shift", "4", "--json")
	require.NoError(t, err)

	var reports []calibration.Report
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 2)
	assert.Equal(t, "null_calibration", reports[0].Kind)
	assert.Equal(t, "power", reports[1].Kind)
	assert.Equal(t, 1.0, reports[1].RejectionRate)
}

func TestInvalidConfigIsReported(t *testing.T) {
	t.Setenv("BOOTSTRAP_WORKERS", "-3")
	path := writeCSV(t, "a,b\n1,2\n")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"pairwise", path, "a", "b"})
	err := cmd.Execute()

	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}
