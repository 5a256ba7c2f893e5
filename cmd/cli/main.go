package main

import (
	"fmt"
	"os"

	"rctstats/adapters/stats/bootstrap"
	"rctstats/internal/config"
	"rctstats/internal/container"
	"rctstats/internal/errors"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// cliFlags are shared by every command
type cliFlags struct {
	resamples int
	seed      int64
	workers   int
	jsonOut   bool
}

// cliApp is built once flags are parsed
type cliApp struct {
	*container.Container
	flags *cliFlags
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		err = errors.FromDomain(err)
		fmt.Fprintf(os.Stderr, "error [%s]: %v\n", errors.GetCode(err), err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &cliFlags{}
	rt := &cliApp{flags: flags}

	rootCmd := &cobra.Command{
		Use:   "rctstats",
		Short: "Bootstrap significance tests for randomized experiments",
		Long: `Bootstrap significance tests for randomized experiments.

Defaults come from the environment (a .env file is loaded when present):
- BOOTSTRAP_RESAMPLES (default: 100000)
- BOOTSTRAP_WORKERS (default: 0, meaning GOMAXPROCS)
- BOOTSTRAP_CHUNK_SIZE (default: 4096)
- BOOTSTRAP_SEED (optional; unset draws a fresh seed per test)
- BOOTSTRAP_MAX_CONCURRENT_TESTS (default: 4)
- LOG_LEVEL (default: INFO)`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rt.setup(cmd)
		},
	}

	rootCmd.PersistentFlags().IntVar(&flags.resamples, "resamples", 0, "Bootstrap resamples per test (overrides BOOTSTRAP_RESAMPLES)")
	rootCmd.PersistentFlags().Int64Var(&flags.seed, "seed", 0, "Base seed for reproducible p-values (overrides BOOTSTRAP_SEED)")
	rootCmd.PersistentFlags().IntVar(&flags.workers, "workers", 0, "Concurrent chunks per test, 0 means GOMAXPROCS")
	rootCmd.PersistentFlags().BoolVar(&flags.jsonOut, "json", false, "Print results as JSON")

	rootCmd.AddCommand(
		newPairwiseCmd(rt),
		newFactorialCmd(rt),
		newTableCmd(rt),
		newCalibrateCmd(rt),
	)
	return rootCmd
}

func (rt *cliApp) setup(cmd *cobra.Command) error {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to load .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var overrides []bootstrap.Option
	flags := cmd.Flags()
	if flags.Changed("resamples") {
		overrides = append(overrides, bootstrap.WithResamples(rt.flags.resamples))
	}
	if flags.Changed("seed") {
		overrides = append(overrides, bootstrap.WithSeed(rt.flags.seed))
	}
	if flags.Changed("workers") {
		overrides = append(overrides, bootstrap.WithWorkers(rt.flags.workers))
	}

	c, err := container.New(cfg, overrides...)
	if err != nil {
		return errors.Wrap(err, "failed to build container")
	}
	rt.Container = c
	return nil
}
