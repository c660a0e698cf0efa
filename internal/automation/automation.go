package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"

	"github.com/san-kum/slicksim/internal/config"
	"github.com/san-kum/slicksim/internal/experiment"
	"github.com/san-kum/slicksim/internal/field"
	"github.com/san-kum/slicksim/internal/metrics"
	"gopkg.in/yaml.v3"
)

// Scenario defines a scripted sequence of runs.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Base        string         `yaml:"base"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep overrides the base configuration for one entry.
type ScenarioStep struct {
	Name       string             `yaml:"name"`
	Preset     string             `yaml:"preset"`
	Controller string             `yaml:"controller"`
	Vehicle    string             `yaml:"vehicle"`
	Vehicles   int                `yaml:"vehicles"`
	Cycles     int                `yaml:"cycles"`
	SimTime    float64            `yaml:"sim_time_sec"`
	Params     map[string]float64 `yaml:"params"`
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q has no steps", scenario.Name)
	}
	return &scenario, nil
}

// Apply returns base with the step's overrides.
func (s ScenarioStep) Apply(base *config.Config) (*config.Config, error) {
	cfg := base.Clone()
	if s.Preset != "" {
		p := config.GetPreset(s.Preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s", s.Preset)
		}
		cfg = p
	}
	if s.Controller != "" {
		cfg.Controller.Type = s.Controller
	}
	if s.Vehicle != "" {
		cfg.Vehicles.Type = s.Vehicle
	}
	if s.Vehicles > 0 {
		cfg.Vehicles.Count = s.Vehicles
		cfg.Vehicles.StartPoints = nil
	}
	if s.Cycles > 0 {
		cfg.Cycles = s.Cycles
	}
	if s.SimTime > 0 {
		cfg.SimTimeSec = s.SimTime
	}
	for k, v := range s.Params {
		if err := cfg.Set(k, v); err != nil {
			return nil, err
		}
	}
	return cfg, cfg.Validate()
}

// StepResult is one finished scenario entry.
type StepResult struct {
	Name    string
	Config  *config.Config
	Field   *field.Field
	Runs    []experiment.Run
	Summary metrics.Summary
}

// RunScenario executes all steps in order. Completed steps are returned
// alongside the first error.
func RunScenario(ctx context.Context, scenario *Scenario, base *config.Config, logger *slog.Logger) ([]StepResult, error) {
	if scenario.Base != "" {
		if base = config.GetPreset(scenario.Base); base == nil {
			return nil, fmt.Errorf("unknown preset: %s", scenario.Base)
		}
	}
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		name := step.Name
		if name == "" {
			name = fmt.Sprintf("step_%d", i+1)
		}
		logger.Info("scenario step", slog.String("scenario", scenario.Name), slog.String("step", name),
			slog.Int("index", i+1), slog.Int("total", len(scenario.Steps)))

		cfg, err := step.Apply(base)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		exp, err := experiment.New(cfg, experiment.WithLogger(logger))
		if err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}
		runs, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}
		results = append(results, StepResult{
			Name:    name,
			Config:  cfg,
			Field:   exp.Field(),
			Runs:    runs,
			Summary: meanSummary(runs),
		})
	}
	return results, nil
}

func meanSummary(runs []experiment.Run) metrics.Summary {
	get := func(name string) float64 {
		v, _ := experiment.Figure(runs, name)
		return v
	}
	return metrics.Summary{
		MeanError:    get("mean_error"),
		StdError:     get("std_error"),
		MeanQuality:  get("mean_quality"),
		FinalQuality: get("final_quality"),
		TimeInBand:   get("time_in_band"),
	}
}

// Sweep varies one numeric configuration parameter over an even grid.
type Sweep struct {
	Param string
	Min   float64
	Max   float64
	Steps int
}

func (s Sweep) Values() ([]float64, error) {
	if s.Steps < 1 {
		return nil, fmt.Errorf("sweep needs at least one step, got %d", s.Steps)
	}
	if s.Steps == 1 {
		return []float64{s.Min}, nil
	}
	out := make([]float64, s.Steps)
	step := (s.Max - s.Min) / float64(s.Steps-1)
	for i := range out {
		out[i] = s.Min + float64(i)*step
	}
	return out, nil
}

type SweepResult struct {
	Value        float64
	MeanError    float64
	FinalQuality float64
	Distance     float64
}

// RunSweep runs base once per parameter value. Values the configuration
// rejects are reported as errors rather than skipped.
func RunSweep(ctx context.Context, base *config.Config, sweep Sweep, logger *slog.Logger) ([]SweepResult, error) {
	values, err := sweep.Values()
	if err != nil {
		return nil, err
	}
	if _, err := base.Get(sweep.Param); err != nil {
		return nil, err
	}

	results := make([]SweepResult, 0, len(values))
	for i, v := range values {
		cfg := base.Clone()
		if err := cfg.Set(sweep.Param, v); err != nil {
			return results, err
		}
		exp, err := experiment.New(cfg, experiment.WithLogger(logger))
		if err != nil {
			return results, fmt.Errorf("%s=%g: %w", sweep.Param, v, err)
		}
		runs, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("%s=%g: %w", sweep.Param, v, err)
		}
		r := SweepResult{Value: v}
		r.MeanError, _ = experiment.Figure(runs, "mean_error")
		r.FinalQuality, _ = experiment.Figure(runs, "final_quality")
		r.Distance, _ = experiment.Figure(runs, "isoline_distance")
		results = append(results, r)

		logger.Info("sweep", slog.Int("index", i+1), slog.Int("total", len(values)),
			slog.String("param", sweep.Param), slog.Float64("value", v), slog.Float64("mean_error", r.MeanError))
	}
	return results, nil
}

// MonteCarloConfig repeats a configuration with scattered starting points.
type MonteCarloConfig struct {
	Trials    int
	Seed      uint64
	Radius    float64
	Tolerance float64
}

type MonteCarloResult struct {
	TrialID      int
	Starts       [][2]float64
	FinalQuality float64
	Converged    bool
}

// RunMonteCarlo draws every vehicle's start uniformly from the disc of
// Radius per trial and marks a trial converged when its final contour
// distance is within Tolerance.
func RunMonteCarlo(ctx context.Context, base *config.Config, mc MonteCarloConfig, logger *slog.Logger) ([]MonteCarloResult, error) {
	if mc.Trials < 1 {
		return nil, errors.New("monte carlo needs at least one trial")
	}
	rng := rand.New(rand.NewPCG(mc.Seed, mc.Seed^0x9e3779b97f4a7c15))

	out := make([]MonteCarloResult, 0, mc.Trials)
	for trial := 0; trial < mc.Trials; trial++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		cfg := base.Clone()
		cfg.Cycles = 1
		cfg.Vehicles.StartPoints = make([][2]float64, cfg.Vehicles.Count)
		for i := range cfg.Vehicles.StartPoints {
			angle := rng.Float64() * 2 * math.Pi
			r := mc.Radius * math.Sqrt(rng.Float64())
			cfg.Vehicles.StartPoints[i] = [2]float64{r * math.Cos(angle), r * math.Sin(angle)}
		}

		exp, err := experiment.New(cfg, experiment.WithLogger(logger))
		if err != nil {
			return out, err
		}
		runs, err := exp.Run(ctx)
		if err != nil {
			return out, fmt.Errorf("trial %d: %w", trial, err)
		}
		q := runs[0].Summary.FinalQuality
		out = append(out, MonteCarloResult{
			TrialID:      trial,
			Starts:       cfg.Vehicles.StartPoints,
			FinalQuality: q,
			Converged:    !math.IsNaN(q) && q <= mc.Tolerance,
		})
		if (trial+1)%10 == 0 {
			logger.Info("monte carlo", slog.Int("done", trial+1), slog.Int("total", mc.Trials))
		}
	}
	return out, nil
}

func MonteCarloStats(results []MonteCarloResult) (converged, diverged int) {
	for _, r := range results {
		if r.Converged {
			converged++
		} else {
			diverged++
		}
	}
	return
}
