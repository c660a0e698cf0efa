package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	dataDir    string
	logLevel   string
	configFile string
	preset     string
	controller string
	vehicle    string
	vehicles   int
	cycles     int
	seed       uint64
	simTime    float64
	mu         float64
	parallel   bool
	noStore    bool
	storePlots bool
	plotConfig string
	// sweep
	sweepParam string
	sweepMin   float64
	sweepMax   float64
	sweepSteps int
	// search
	searchParams []string
	searchMetric string
	// monte carlo
	trials    int
	radius    float64
	tolerance float64
)

var logger = slog.Default()

func setupLogger(cmd *cobra.Command, _ []string) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "run configuration (yaml or json)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().StringVar(&controller, "controller", "", "controller type")
	cmd.Flags().StringVar(&vehicle, "vehicle", "", "vehicle type (dubins, otter)")
	cmd.Flags().IntVar(&vehicles, "vehicles", 0, "number of vehicles")
	cmd.Flags().IntVar(&cycles, "cycles", 0, "number of independent cycles")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed for starting points")
	cmd.Flags().Float64Var(&simTime, "time", 0, "simulated seconds")
	cmd.Flags().Float64Var(&mu, "mu", 0, "switching gain")
	cmd.Flags().BoolVar(&parallel, "parallel", false, "step vehicles in parallel")
}

// main is the entry point for the slicksim CLI.
func main() {
	rootCmd := &cobra.Command{
		Use:               "slicksim",
		Short:             "extremum-seeking isoline tracking for autonomous catamarans",
		PersistentPreRunE: setupLogger,
		SilenceUsage:      true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "data directory (defaults to the configured output dir)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run an experiment and store every cycle",
		Args:  cobra.NoArgs,
		RunE:  runExperiment,
	}
	addConfigFlags(runCmd)
	runCmd.Flags().BoolVar(&noStore, "no-store", false, "do not write results to the data directory")
	runCmd.Flags().BoolVar(&storePlots, "plots", false, "render PNG plots next to stored runs")
	runCmd.Flags().StringVar(&plotConfig, "plot-config", "", "plot configuration (json)")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run one cycle and replay it in the terminal",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addConfigFlags(liveCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id] [series]",
		Short: "show a stored run, optionally charting one series",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  showRun,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a stored run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	fieldCmd := &cobra.Command{
		Use:   "field [x] [y]",
		Short: "evaluate the field relative to the target isoline",
		Args:  cobra.ExactArgs(2),
		RunE:  evalField,
	}
	addConfigFlags(fieldCmd)

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "sweep one parameter over an even grid",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	addConfigFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", "mu", "parameter to vary")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0.1, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 1, "last value")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 5, "number of values")

	searchCmd := &cobra.Command{
		Use:   "search",
		Short: "grid search over parameters minimising a summary figure",
		Args:  cobra.NoArgs,
		RunE:  runSearch,
	}
	addConfigFlags(searchCmd)
	searchCmd.Flags().StringArrayVar(&searchParams, "param", nil, "name=v1,v2,... (repeatable)")
	searchCmd.Flags().StringVar(&searchMetric, "metric", "mean_error", "figure to minimise")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a YAML scenario",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	addConfigFlags(scenarioCmd)

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "repeat a configuration from random starting points",
		Args:  cobra.NoArgs,
		RunE:  runMonteCarlo,
	}
	addConfigFlags(monteCarloCmd)
	monteCarloCmd.Flags().IntVar(&trials, "trials", 20, "number of trials")
	monteCarloCmd.Flags().Float64Var(&radius, "radius", 10, "start disc radius")
	monteCarloCmd.Flags().Float64Var(&tolerance, "tol", 1, "final contour distance counted as converged")

	chatterCmd := &cobra.Command{
		Use:   "chatter [run_id]",
		Short: "report switching rate and dominant sigma frequency per vehicle",
		Args:  cobra.ExactArgs(1),
		RunE:  showChatter,
	}

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, showCmd, chatterCmd, exportJSONCmd, presetsCmd, fieldCmd, sweepCmd, searchCmd, scenarioCmd, monteCarloCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
