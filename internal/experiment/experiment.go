package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/san-kum/slicksim/internal/config"
	"github.com/san-kum/slicksim/internal/field"
	"github.com/san-kum/slicksim/internal/metrics"
	"github.com/san-kum/slicksim/internal/sim"
	"github.com/san-kum/slicksim/internal/vehicle"
)

// Run is the outcome of one cycle.
type Run struct {
	Cycle   int
	Starts  [][2]float64
	Result  *sim.Result
	Summary metrics.Summary
}

type Experiment struct {
	cfg      *config.Config
	base     string
	registry *Registry
	field    *field.Field
	logger   *slog.Logger
	observer func(cycle int) sim.Observer
	workers  int
}

type Option func(*Experiment)

// WithBaseDir resolves relative peak files against dir.
func WithBaseDir(dir string) Option {
	return func(e *Experiment) { e.base = dir }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Experiment) { e.logger = l }
}

func WithRegistry(r *Registry) Option {
	return func(e *Experiment) { e.registry = r }
}

// WithObserver attaches a progress observer to every cycle.
func WithObserver(fn func(cycle int) sim.Observer) Option {
	return func(e *Experiment) { e.observer = fn }
}

// WithWorkers bounds concurrently running cycles.
func WithWorkers(n int) Option {
	return func(e *Experiment) { e.workers = n }
}

// New validates cfg and builds the shared field with its contour set.
func New(cfg *config.Config, opts ...Option) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Experiment{cfg: cfg, registry: NewRegistry(), logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}

	fo, err := cfg.FieldOptions(e.base)
	if err != nil {
		return nil, err
	}
	f, err := field.New(fo)
	if err != nil {
		return nil, err
	}
	f.SetContourPoints(cfg.Field.ContourLevel, cfg.Field.ContourTolerance)
	e.logger.Debug("field ready",
		slog.String("kind", string(f.Kind())),
		slog.Int("peaks", len(fo.Peaks)),
		slog.Int("contour_points", len(f.ContourPoints())))
	e.field = f
	return e, nil
}

func (e *Experiment) Field() *field.Field    { return e.field }
func (e *Experiment) Config() *config.Config { return e.cfg }
func (e *Experiment) Registry() *Registry    { return e.registry }

func (e *Experiment) cycleSeed(cycle int) uint64 {
	return e.cfg.Seed + uint64(cycle)
}

// Vehicles creates the fleet for a cycle.
func (e *Experiment) Vehicles(cycle int) ([]vehicle.Vehicle, [][2]float64, error) {
	seed := e.cycleSeed(cycle)
	starts := e.cfg.StartingPoints(rand.New(rand.NewPCG(seed, seed+1)))
	vc := e.cfg.Vehicles
	current := vehicle.Current{Speed: vc.CurrentSpeed, Direction: e.cfg.CurrentRadians()}
	out := make([]vehicle.Vehicle, len(starts))
	for i, s := range starts {
		v, err := vehicle.New(vc.Type, vehicle.Params{
			Serial:     i,
			Start:      s,
			Shift:      vc.Shift,
			Current:    current,
			Integrator: vc.Integrator,
		})
		if err != nil {
			return nil, nil, err
		}
		out[i] = v
	}
	return out, starts, nil
}

// Build assembles the simulator for one cycle.
func (e *Experiment) Build(cycle int) (*sim.Simulator, [][2]float64, error) {
	vs, starts, err := e.Vehicles(cycle)
	if err != nil {
		return nil, nil, err
	}
	ctrl, err := e.registry.GetController(Build{
		Field:    e.field,
		Vehicles: vs,
		Config:   e.cfg,
		Seed:     e.cycleSeed(cycle),
	})
	if err != nil {
		return nil, nil, err
	}
	opts := []sim.Option{
		sim.WithParallel(e.cfg.Parallel),
		sim.WithLogger(e.logger.With(slog.Int("cycle", cycle))),
	}
	for _, m := range e.registry.DefaultMetrics(e.cfg, e.field) {
		opts = append(opts, sim.WithMetric(m))
	}
	if e.observer != nil {
		if o := e.observer(cycle); o != nil {
			opts = append(opts, sim.WithObserver(o))
		}
	}
	s, err := sim.New(ctrl, vs, opts...)
	if err != nil {
		return nil, nil, err
	}
	return s, starts, nil
}

// Run executes all configured cycles.
func (e *Experiment) Run(ctx context.Context) ([]Run, error) {
	starts := make([][][2]float64, e.cfg.Cycles)
	factory := func(cycle int) (*sim.Simulator, error) {
		s, st, err := e.Build(cycle)
		if err != nil {
			return nil, err
		}
		starts[cycle] = st
		e.logger.Info("cycle start",
			slog.Int("cycle", cycle),
			slog.String("controller", e.cfg.Controller.Type),
			slog.Int("vehicles", len(st)))
		return s, nil
	}

	results, err := sim.NewEnsemble(factory, e.cfg.Cycles).WithWorkers(e.workers).Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("experiment: %w", err)
	}

	runs := make([]Run, len(results))
	for i, res := range results {
		run := Run{Cycle: i, Starts: starts[i], Result: res}
		if src, ok := res.Controller.(sim.SeriesSource); ok {
			run.Summary = metrics.Summarize(src, e.cfg.Controller.Eps)
		}
		e.logger.Info("cycle done",
			slog.Int("cycle", i),
			slog.Float64("mean_error", run.Summary.MeanError),
			slog.Any("summary", run.Summary))
		runs[i] = run
	}
	return runs, nil
}

// Figure averages a summary figure or run metric over runs. Non-finite
// values are skipped; the result is NaN when none remain.
func Figure(runs []Run, name string) (float64, error) {
	sum, n := 0.0, 0
	known := false
	for _, r := range runs {
		v, err := r.Summary.Get(name)
		if err != nil {
			var ok bool
			if v, ok = r.Result.Metrics[name]; !ok {
				continue
			}
		}
		known = true
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			sum += v
			n++
		}
	}
	if !known && len(runs) > 0 {
		return math.NaN(), fmt.Errorf("experiment: unknown figure %q", name)
	}
	if n == 0 {
		return math.NaN(), nil
	}
	return sum / float64(n), nil
}
