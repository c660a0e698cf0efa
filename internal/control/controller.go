package control

import (
	"fmt"
	"math"

	"github.com/san-kum/slicksim/internal/dynamo"
	"github.com/san-kum/slicksim/internal/field"
	"github.com/san-kum/slicksim/internal/vehicle"
)

const (
	DefaultSampleTime  = 0.02
	DefaultSimTime     = 10.0
	DefaultEps         = 0.1
	DefaultErrorMaxCap = 30.0
	DefaultSmoothing   = 0.99
)

type Config struct {
	SampleTime float64
	SimTime    float64

	// Steps overrides the count derived from SimTime when positive.
	Steps           int
	Eps             float64
	ErrorMaxCap     float64
	DynamicErrorMax bool
	Smoothing       float64
}

func DefaultConfig() Config {
	return Config{
		SampleTime:      DefaultSampleTime,
		SimTime:         DefaultSimTime,
		Eps:             DefaultEps,
		ErrorMaxCap:     DefaultErrorMaxCap,
		DynamicErrorMax: true,
		Smoothing:       DefaultSmoothing,
	}
}

// StepCount is round(SimTime/SampleTime)+1 unless Steps is set.
func (c Config) StepCount() int {
	if c.Steps > 0 {
		return c.Steps
	}
	if !(c.SampleTime > 0) {
		return 0
	}
	return int(math.Round(c.SimTime/c.SampleTime)) + 1
}

func (c Config) validate() error {
	if !(c.SampleTime > 0) {
		return fmt.Errorf("%w: sample_time must be positive, got %g", ErrInvalidConfig, c.SampleTime)
	}
	if c.Steps <= 0 && c.SimTime < 0 {
		return fmt.Errorf("%w: sim_time must not be negative, got %g", ErrInvalidConfig, c.SimTime)
	}
	if c.StepCount() < 1 {
		return fmt.Errorf("%w: step count %d", ErrInvalidConfig, c.StepCount())
	}
	if c.Smoothing < 0 || c.Smoothing > 1 {
		return fmt.Errorf("%w: smoothing must be in [0, 1], got %g", ErrInvalidConfig, c.Smoothing)
	}
	if c.ErrorMaxCap < 0 || c.Eps < 0 {
		return fmt.Errorf("%w: eps and error_max_cap must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Controller is the extremum-seeking controller for a fixed set of vehicles.
type Controller struct {
	field     *field.Field
	vehicles  []vehicle.Vehicle
	law       Law
	actuation Actuation
	cfg       Config
	steps     int

	fPrev       []float64
	ceilings    []*ErrorCeiling
	timeOutside []float64
	sumErrors   []float64
	recorded    int

	history *History
}

func New(f *field.Field, vehicles []vehicle.Vehicle, law Law, act Actuation, cfg Config) (*Controller, error) {
	if len(vehicles) == 0 {
		return nil, dynamo.ErrNoVehicles
	}
	if f == nil || law == nil || act == nil {
		return nil, fmt.Errorf("%w: field, law and actuation are required", ErrInvalidConfig)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	n := len(vehicles)
	c := &Controller{
		field:       f,
		vehicles:    vehicles,
		law:         law,
		actuation:   act,
		cfg:         cfg,
		steps:       cfg.StepCount(),
		fPrev:       make([]float64, n),
		ceilings:    make([]*ErrorCeiling, n),
		timeOutside: make([]float64, n),
		sumErrors:   make([]float64, n),
	}
	for i, v := range vehicles {
		c.fPrev[i] = f.Intensity(field.FromPose(v.InitialPose()))
		c.ceilings[i] = NewErrorCeiling(cfg.Eps, cfg.ErrorMaxCap, cfg.Smoothing, cfg.DynamicErrorMax)
	}
	c.history = newHistory(seriesNames, n, c.steps)
	return c, nil
}

func (c *Controller) Steps() int           { return c.steps }
func (c *Controller) SampleTime() float64  { return c.cfg.SampleTime }
func (c *Controller) Config() Config       { return c.cfg }
func (c *Controller) Law() Law             { return c.law }
func (c *Controller) Actuation() Actuation { return c.actuation }
func (c *Controller) History() *History    { return c.history }
func (c *Controller) Vehicles() int        { return len(c.vehicles) }

// PreviousSample is the field value each vehicle will compare against next.
func (c *Controller) PreviousSample() []float64 {
	return append([]float64(nil), c.fPrev...)
}

func (c *Controller) Name() string {
	return c.law.Name() + "+" + c.actuation.Name()
}

// GenerateControl computes one command per vehicle for step. velocities are
// the vehicle velocities relative to the water and may be nil, in which case
// velocity-coupled laws see zero speed.
func (c *Controller) GenerateControl(poses []dynamo.State, step int, velocities []dynamo.State) ([]dynamo.Control, error) {
	if step < 0 || step >= c.steps {
		return nil, fmt.Errorf("%w: step %d not in [0, %d]", dynamo.ErrStepOutOfRange, step, c.steps-1)
	}
	if len(poses) != len(c.vehicles) {
		return nil, fmt.Errorf("%w: %d poses for %d vehicles", dynamo.ErrDimensionMismatch, len(poses), len(c.vehicles))
	}
	if velocities != nil && len(velocities) != len(poses) {
		return nil, fmt.Errorf("%w: %d velocities for %d vehicles", dynamo.ErrDimensionMismatch, len(velocities), len(poses))
	}

	current := make([]float64, len(poses))
	controls := make([]dynamo.Control, len(poses))
	ts := c.cfg.SampleTime

	for i, eta := range poses {
		x, y := field.FromPose(eta)
		f := c.field.Intensity(x, y)
		current[i] = f

		ds := 0.0
		if velocities != nil {
			ds = velocities[i].PlanarSpeed()
		}
		dec := c.law.Switch(Sample{F: f, FPrev: c.fPrev[i], SampleTime: ts, Speed: ds})

		if math.Abs(f) < c.cfg.Eps {
			c.timeOutside[i] = 0
		} else {
			c.timeOutside[i] += ts
		}
		enorm, emax := c.ceilings[i].Update(f)
		c.sumErrors[i] += enorm

		controls[i] = c.actuation.Command(Input{
			F:           f,
			Sigma:       dec.Sigma,
			ErrorNorm:   enorm,
			TimeOutside: c.timeOutside[i],
			Limits:      c.vehicles[i].Limits(),
		})

		quality, err := c.field.NearestContourDistance(x, y)
		if err != nil {
			return nil, fmt.Errorf("control: vehicle %d: %w", i, err)
		}

		h := c.history
		h.set(SeriesIntensity, i, step, f)
		h.set(SeriesDer, i, step, dec.Der)
		h.set(SeriesMuTanh, i, step, dec.MuTanh)
		h.set(SeriesSigmas, i, step, dec.Sigma)
		h.set(SeriesErrorsNorm, i, step, enorm)
		h.set(SeriesErrorsMax, i, step, emax)
		h.set(SeriesQuality, i, step, quality)
		h.set(SeriesTimesOutside, i, step, c.timeOutside[i])
		h.set(SeriesDS, i, step, ds)
	}

	copy(c.fPrev, current)
	if step+1 > c.recorded {
		c.recorded = step + 1
	}
	return controls, nil
}

func (c *Controller) Series(name string) ([][]float64, error) {
	return c.history.Series(name)
}

func (c *Controller) SeriesNames() []string { return c.history.SeriesNames() }

// SumErrors is the per-vehicle sum of normalised errors so far.
func (c *Controller) SumErrors() []float64 {
	return append([]float64(nil), c.sumErrors...)
}

// MeanErrors divides SumErrors by the number of recorded steps.
func (c *Controller) MeanErrors() []float64 {
	out := make([]float64, len(c.sumErrors))
	if c.recorded == 0 {
		return out
	}
	for i, s := range c.sumErrors {
		out[i] = s / float64(c.recorded)
	}
	return out
}
