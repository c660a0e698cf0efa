package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/slicksim/internal/analysis"
	"github.com/san-kum/slicksim/internal/automation"
	"github.com/san-kum/slicksim/internal/config"
	"github.com/san-kum/slicksim/internal/experiment"
	"github.com/san-kum/slicksim/internal/field"
	"github.com/san-kum/slicksim/internal/metrics"
	"github.com/san-kum/slicksim/internal/optim"
	"github.com/san-kum/slicksim/internal/plot"
	"github.com/san-kum/slicksim/internal/sim"
	"github.com/san-kum/slicksim/internal/storage"
	"github.com/san-kum/slicksim/internal/viz"
	"github.com/spf13/cobra"
)

// loadConfig resolves --config or --preset, then applies explicit flags on
// top. It returns the directory relative peak files resolve against.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	var (
		cfg  *config.Config
		base string
	)
	switch {
	case configFile != "":
		c, err := config.Load(configFile)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load config: %w", err)
		}
		cfg, base = c, filepath.Dir(configFile)
	case preset != "":
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, "", fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	default:
		cfg = config.DefaultConfig()
	}

	flags := cmd.Flags()
	if flags.Changed("controller") {
		cfg.Controller.Type = controller
	}
	if flags.Changed("vehicle") {
		cfg.Vehicles.Type = vehicle
	}
	if flags.Changed("vehicles") {
		cfg.Vehicles.Count = vehicles
		cfg.Vehicles.StartPoints = nil
	}
	if flags.Changed("cycles") {
		cfg.Cycles = cycles
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("time") {
		cfg.SimTimeSec = simTime
		cfg.Steps = 0
	}
	if flags.Changed("mu") {
		cfg.Controller.Mu = mu
	}
	if flags.Changed("parallel") {
		cfg.Parallel = parallel
	}
	return cfg, base, cfg.Validate()
}

func store(cfg *config.Config) *storage.Store {
	dir := dataDir
	if dir == "" && cfg != nil {
		dir = cfg.Output.Dir
	}
	if dir == "" {
		dir = config.DefaultOutputDir
	}
	return storage.New(dir)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func summaryRow(label string, s metrics.Summary) []string {
	return []string{label, viz.Num(s.MeanError), viz.Num(s.StdError), viz.Num(s.MeanQuality), viz.Num(s.FinalQuality), viz.Num(s.TimeInBand)}
}

var summaryHeaders = []string{"run", "mean_error", "std_error", "mean_quality", "final_quality", "time_in_band"}

func runExperiment(cmd *cobra.Command, args []string) error {
	cfg, base, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("plots") {
		cfg.Output.StorePlots = storePlots
	}
	if plotConfig != "" {
		cfg.Output.PlotConfig = plotConfig
	}

	exp, err := experiment.New(cfg, experiment.WithBaseDir(base), experiment.WithLogger(logger))
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	start := time.Now()
	runs, err := exp.Run(ctx)
	if err != nil {
		return err
	}
	logger.Info("experiment done", "cycles", len(runs), "elapsed", time.Since(start))

	var names []string
	if !noStore {
		st := store(cfg)
		if err := st.Init(); err != nil {
			return err
		}
		var table plot.Table
		if cfg.Output.StorePlots {
			if table, err = plotTable(cfg, base); err != nil {
				return err
			}
		}
		for _, run := range runs {
			name, err := st.Save(storage.Record{
				Cycle:   run.Cycle,
				Config:  cfg,
				Field:   exp.Field(),
				Result:  run.Result,
				Summary: run.Summary,
			})
			if err != nil {
				return err
			}
			names = append(names, name)
			if table != nil {
				if err := renderPlots(table, filepath.Join(st.Dir(), name, "plots"), exp.Field(), run); err != nil {
					return err
				}
			}
		}
	}

	rows := make([][]string, len(runs))
	for i, run := range runs {
		label := strconv.Itoa(run.Cycle)
		if i < len(names) {
			label = names[i]
		}
		rows[i] = summaryRow(label, run.Summary)
	}
	fmt.Println(viz.Table(summaryHeaders, rows))

	if src, ok := runs[0].Result.Controller.(sim.SeriesSource); ok {
		if e, err := src.Series("errors_norm"); err == nil {
			fmt.Println(viz.Chart(e, 60, 8, "errors_norm, cycle 0"))
		}
	}
	return nil
}

func plotTable(cfg *config.Config, base string) (plot.Table, error) {
	pc := plot.DefaultConfig()
	if path := cfg.Output.PlotConfig; path != "" {
		if !filepath.IsAbs(path) && base != "" {
			path = filepath.Join(base, path)
		}
		c, err := plot.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		pc = c
	}
	return plot.Build(pc)
}

func renderPlots(table plot.Table, dir string, f *field.Field, run experiment.Run) error {
	src, err := plot.FromResult(run.Result)
	if err != nil {
		return err
	}
	written, err := table.Render(dir, src)
	if err != nil {
		return err
	}
	if err := plot.Trajectory(filepath.Join(dir, "trajectory.png"), f, run.Result); err != nil {
		return err
	}
	logger.Debug("plots written", "dir", dir, "count", len(written)+1)
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, base, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Cycles = 1
	exp, err := experiment.New(cfg, experiment.WithBaseDir(base), experiment.WithLogger(logger))
	if err != nil {
		return err
	}
	runs, err := exp.Run(context.Background())
	if err != nil {
		return err
	}
	m := viz.NewReplay(runs[0].Result, exp.Field(), cfg.Field.AxisAbsMax)
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := store(nil).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	rows := make([][]string, len(runs))
	for i, r := range runs {
		rows[i] = []string{
			r.Name,
			r.ID[:8],
			r.Controller,
			fmt.Sprintf("%d x %s", r.Vehicles, r.VehicleType),
			viz.Num(r.Summary["mean_error"]),
			r.Timestamp.Format(time.DateTime),
		}
	}
	fmt.Println(viz.Table([]string{"name", "id", "controller", "fleet", "mean_error", "time"}, rows))
	return nil
}

func showRun(cmd *cobra.Command, args []string) error {
	st := store(nil)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	fmt.Println(viz.Title.Render(meta.Name))
	pairs := [][2]string{
		{"id", meta.ID},
		{"controller", meta.Controller},
		{"fleet", fmt.Sprintf("%d x %s", meta.Vehicles, meta.VehicleType)},
		{"field", fmt.Sprintf("%s, target %g", meta.FieldKind, meta.TargetIsoline)},
		{"steps", fmt.Sprintf("%d @ %gs", meta.Steps, meta.SampleTime)},
		{"cycle", strconv.Itoa(meta.Cycle)},
	}
	for _, p := range pairs {
		fmt.Println(viz.Label.Render(p[0]) + viz.Value.Render(p[1]))
	}
	rows := make([][]string, 0, len(meta.Summary)+len(meta.Metrics))
	for _, n := range metrics.SummaryNames() {
		if v, ok := meta.Summary[n]; ok {
			rows = append(rows, []string{n, viz.Num(v)})
		}
	}
	for n, v := range meta.Metrics {
		rows = append(rows, []string{n, viz.Num(v)})
	}
	fmt.Println(viz.Table([]string{"figure", "value"}, rows))

	if len(args) < 2 {
		return nil
	}
	series, err := st.LoadSeries(meta.Name)
	if err != nil {
		return err
	}
	data, err := series.Series(args[1])
	if err != nil {
		return fmt.Errorf("%w (available: %s)", err, strings.Join(series.SeriesNames(), ", "))
	}
	fmt.Println(viz.Chart(data, 70, 12, args[1]))
	return nil
}

func showChatter(cmd *cobra.Command, args []string) error {
	st := store(nil)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	series, err := st.LoadSeries(meta.Name)
	if err != nil {
		return err
	}
	report, err := analysis.Analyze(series, meta.SampleTime)
	if err != nil {
		return err
	}
	rows := make([][]string, len(report))
	for i, c := range report {
		rows[i] = []string{
			strconv.Itoa(c.Vehicle),
			strconv.Itoa(c.Switches),
			viz.Num(c.Rate),
			viz.Num(c.Dominant),
		}
	}
	fmt.Println(viz.Table([]string{"vehicle", "switches", "per_second", "dominant_hz"}, rows))
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	return store(nil).ExportJSON(os.Stdout, args[0])
}

func listPresets(cmd *cobra.Command, args []string) error {
	rows := make([][]string, 0)
	for _, name := range config.ListPresets() {
		p := config.GetPreset(name)
		rows = append(rows, []string{name, p.Controller.Type, fmt.Sprintf("%d x %s", p.Vehicles.Count, p.Vehicles.Type), p.Field.Kind})
	}
	fmt.Println(viz.Table([]string{"preset", "controller", "fleet", "field"}, rows))
	return nil
}

func evalField(cmd *cobra.Command, args []string) error {
	x, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid x: %w", err)
	}
	y, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid y: %w", err)
	}
	cfg, base, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	opts, err := cfg.FieldOptions(base)
	if err != nil {
		return err
	}
	f, err := field.New(opts)
	if err != nil {
		return err
	}
	fmt.Printf("%g\n", f.Intensity(x, y))
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()
	sweep := automation.Sweep{Param: sweepParam, Min: sweepMin, Max: sweepMax, Steps: sweepSteps}
	results, err := automation.RunSweep(ctx, cfg, sweep, logger)
	if err != nil {
		return err
	}
	rows := make([][]string, len(results))
	errs := make([]float64, len(results))
	for i, r := range results {
		rows[i] = []string{viz.Num(r.Value), viz.Num(r.MeanError), viz.Num(r.FinalQuality), viz.Num(r.Distance)}
		errs[i] = r.MeanError
	}
	fmt.Println(viz.Table([]string{sweepParam, "mean_error", "final_quality", "isoline_distance"}, rows))
	fmt.Println(viz.Chart([][]float64{errs}, 40, 6, "mean_error vs "+sweepParam))
	return nil
}

func parseSearchParams(specs []string) ([]string, [][]float64, error) {
	if len(specs) == 0 {
		return nil, nil, errors.New("at least one --param name=v1,v2 is required")
	}
	names := make([]string, 0, len(specs))
	ranges := make([][]float64, 0, len(specs))
	for _, spec := range specs {
		name, list, ok := strings.Cut(spec, "=")
		if !ok || name == "" {
			return nil, nil, fmt.Errorf("invalid --param %q, want name=v1,v2", spec)
		}
		var values []float64
		for _, s := range strings.Split(list, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("--param %s: %w", name, err)
			}
			values = append(values, v)
		}
		names = append(names, name)
		ranges = append(ranges, values)
	}
	return names, ranges, nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	names, ranges, err := parseSearchParams(searchParams)
	if err != nil {
		return err
	}
	g, err := optim.NewGridSearch(names, ranges)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()
	logger.Info("grid search", "points", g.Size(), "metric", searchMetric)
	best, score, evals, err := g.Search(ctx, cfg, searchMetric)
	for _, e := range evals {
		if e.Err != nil {
			logger.Warn("grid point failed", "params", e.Params, "err", e.Err)
		}
	}
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(names)+1)
	for _, n := range names {
		rows = append(rows, []string{n, viz.Num(best[n])})
	}
	rows = append(rows, []string{searchMetric, viz.Num(score)})
	fmt.Println(viz.Table([]string{"best", "value"}, rows))
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()
	results, err := automation.RunScenario(ctx, sc, cfg, logger)
	rows := make([][]string, len(results))
	for i, r := range results {
		rows[i] = summaryRow(r.Name, r.Summary)
	}
	if len(rows) > 0 {
		fmt.Println(viz.Table(summaryHeaders, rows))
	}
	return err
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()
	results, err := automation.RunMonteCarlo(ctx, cfg, automation.MonteCarloConfig{
		Trials:    trials,
		Seed:      cfg.Seed,
		Radius:    radius,
		Tolerance: tolerance,
	}, logger)
	if err != nil {
		return err
	}
	converged, diverged := automation.MonteCarloStats(results)
	fmt.Println(viz.Label.Render("converged") + viz.Value.Render(strconv.Itoa(converged)))
	fmt.Println(viz.Label.Render("diverged") + viz.Value.Render(strconv.Itoa(diverged)))
	return nil
}
