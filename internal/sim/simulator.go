package sim

import (
	"fmt"
	"log/slog"

	"github.com/san-kum/slicksim/internal/dynamo"
	"github.com/san-kum/slicksim/internal/vehicle"
)

// Simulator runs a fixed-step closed loop over a fleet of vehicles.
type Simulator struct {
	controller Controller
	vehicles   []vehicle.Vehicle
	parallel   bool
	current    *vehicle.Current
	metrics    []Metric
	observers  []Observer
	logger     *slog.Logger
}

type Option func(*Simulator)

// WithParallel steps vehicles concurrently within each step.
func WithParallel(on bool) Option {
	return func(s *Simulator) { s.parallel = on }
}

// WithCurrent replaces the per-vehicle water current for every vehicle.
func WithCurrent(c vehicle.Current) Option {
	return func(s *Simulator) { s.current = &c }
}

func WithMetric(m Metric) Option {
	return func(s *Simulator) { s.metrics = append(s.metrics, m) }
}

func WithObserver(o Observer) Option {
	return func(s *Simulator) { s.observers = append(s.observers, o) }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Simulator) { s.logger = l }
}

func New(controller Controller, vehicles []vehicle.Vehicle, opts ...Option) (*Simulator, error) {
	if len(vehicles) == 0 {
		return nil, dynamo.ErrNoVehicles
	}
	if controller == nil {
		return nil, fmt.Errorf("sim: controller is required")
	}
	s := &Simulator{
		controller: controller,
		vehicles:   vehicles,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Simulator) currentFor(i int) vehicle.Current {
	if s.current != nil {
		return *s.current
	}
	return s.vehicles[i].Current()
}

// Run executes all steps of the controller. It either completes or stops at
// the first non-finite pose.
func (s *Simulator) Run() (*Result, error) {
	n := s.controller.Steps()
	ts := s.controller.SampleTime()
	nv := len(s.vehicles)

	poses := make([]dynamo.State, nv)
	vels := make([]dynamo.State, nv)
	actuals := make([]dynamo.Control, nv)
	tracks := make([]Track, nv)
	for i, v := range s.vehicles {
		poses[i] = v.InitialPose()
		vels[i] = v.InitialVelocity()
		actuals[i] = v.InitialActual()
		tracks[i] = newTrack(v.Serial(), v.Name(), v.Color(), v.ControlDim(), n)
	}

	for _, m := range s.metrics {
		m.Reset()
	}
	s.logger.Debug("simulation start",
		slog.String("controller", s.controller.Name()),
		slog.Int("vehicles", nv),
		slog.Int("steps", n),
		slog.Bool("parallel", s.parallel))

	nextPoses := make([]dynamo.State, nv)
	nextVels := make([]dynamo.State, nv)
	nextActuals := make([]dynamo.Control, nv)
	relative := make([]dynamo.State, nv)

	for k := 0; k < n; k++ {
		for i := range s.vehicles {
			relative[i] = s.currentFor(i).Relative(vels[i])
		}
		commands, err := s.controller.GenerateControl(poses, k, relative)
		if err != nil {
			return nil, &dynamo.SimulationError{Step: k, Vehicle: -1, Wrapped: err}
		}
		if len(commands) != nv {
			return nil, &dynamo.SimulationError{Step: k, Vehicle: -1,
				Wrapped: fmt.Errorf("%w: %d commands for %d vehicles", dynamo.ErrDimensionMismatch, len(commands), nv)}
		}

		advance := func(i int) {
			v := s.vehicles[i]
			tracks[i].record(k, poses[i], vels[i], commands[i], actuals[i])
			nu, actual := v.Dynamics(poses[i], vels[i], actuals[i], commands[i], ts)
			nextPoses[i] = v.Reposition(poses[i], nu, ts)
			nextVels[i] = nu
			nextActuals[i] = actual
		}
		if s.parallel && nv > 1 {
			dynamo.ParallelFor(nv, 1, func(start, end int) {
				for i := start; i < end; i++ {
					advance(i)
				}
			})
		} else {
			for i := 0; i < nv; i++ {
				advance(i)
			}
		}

		for i := 0; i < nv; i++ {
			if !nextPoses[i].IsValid() {
				return nil, &dynamo.SimulationError{Step: k, Vehicle: i, State: nextPoses[i], Wrapped: dynamo.ErrInvalidState}
			}
		}
		t := float64(k) * ts
		for _, m := range s.metrics {
			for i := 0; i < nv; i++ {
				m.Observe(i, nextPoses[i], nextVels[i], commands[i], t)
			}
		}

		poses, nextPoses = nextPoses, poses
		vels, nextVels = nextVels, vels
		actuals, nextActuals = nextActuals, actuals

		for _, o := range s.observers {
			o.OnStep(k, n)
		}
	}

	result := &Result{
		Tracks:     tracks,
		FinalPoses: poses,
		SampleTime: ts,
		Steps:      n,
		Metrics:    make(map[string]float64, len(s.metrics)),
		Controller: s.controller,
	}
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	s.logger.Debug("simulation done", slog.String("controller", s.controller.Name()), slog.Int("steps", n))
	return result, nil
}
