package control

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/san-kum/slicksim/internal/dynamo"
	"github.com/san-kum/slicksim/internal/field"
	"github.com/san-kum/slicksim/internal/vehicle"
)

const (
	DefaultSwarmInertia  = 0.05
	DefaultSwarmPersonal = 0.15
	DefaultSwarmGlobal   = 0.8
)

// Swarm steers every vehicle toward its own best sample and the best sample
// seen by the group, particle-swarm style. It maximises field intensity.
type Swarm struct {
	field      *field.Field
	vehicles   []vehicle.Vehicle
	sampleTime float64
	steps      int
	rng        *rand.Rand

	Inertia, Personal, Global float64

	positions []field.Point
	personal  []field.Point
	global    field.Point

	history *History
}

func NewSwarm(f *field.Field, vehicles []vehicle.Vehicle, cfg Config, seed uint64) (*Swarm, error) {
	if len(vehicles) == 0 {
		return nil, dynamo.ErrNoVehicles
	}
	if f == nil {
		return nil, fmt.Errorf("%w: field is required", ErrInvalidConfig)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	s := &Swarm{
		field:      f,
		vehicles:   vehicles,
		sampleTime: cfg.SampleTime,
		steps:      cfg.StepCount(),
		rng:        rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		Inertia:    DefaultSwarmInertia,
		Personal:   DefaultSwarmPersonal,
		Global:     DefaultSwarmGlobal,
		positions:  make([]field.Point, len(vehicles)),
		personal:   make([]field.Point, len(vehicles)),
	}
	best := math.Inf(-1)
	for i, v := range vehicles {
		x, y := field.FromPose(v.InitialPose())
		p := field.Point{X: x, Y: y}
		s.positions[i] = p
		s.personal[i] = p
		if val := f.Intensity(x, y); val > best {
			best = val
			s.global = p
		}
	}
	s.history = newHistory([]string{SeriesIntensity, SeriesQuality}, len(vehicles), s.steps)
	return s, nil
}

func (s *Swarm) Name() string        { return "swarm" }
func (s *Swarm) Steps() int          { return s.steps }
func (s *Swarm) SampleTime() float64 { return s.sampleTime }
func (s *Swarm) History() *History   { return s.history }

func (s *Swarm) value(p field.Point) float64 { return s.field.Intensity(p.X, p.Y) }

// GenerateControl ignores velocities; it estimates them from the change in
// position since the previous step.
func (s *Swarm) GenerateControl(poses []dynamo.State, step int, _ []dynamo.State) ([]dynamo.Control, error) {
	if step < 0 || step >= s.steps {
		return nil, fmt.Errorf("%w: step %d not in [0, %d]", dynamo.ErrStepOutOfRange, step, s.steps-1)
	}
	if len(poses) != len(s.vehicles) {
		return nil, fmt.Errorf("%w: %d poses for %d vehicles", dynamo.ErrDimensionMismatch, len(poses), len(s.vehicles))
	}

	current := make([]field.Point, len(poses))
	for i, eta := range poses {
		x, y := field.FromPose(eta)
		current[i] = field.Point{X: x, Y: y}
		if s.value(current[i]) > s.value(s.personal[i]) {
			s.personal[i] = current[i]
		}
		if s.value(current[i]) > s.value(s.global) {
			s.global = current[i]
		}
	}

	controls := make([]dynamo.Control, len(poses))
	for i, p := range current {
		vx := (p.X - s.positions[i].X) / s.sampleTime
		vy := (p.Y - s.positions[i].Y) / s.sampleTime
		rp, rg := s.rng.Float64(), s.rng.Float64()
		wantX := s.Inertia*vx + s.Personal*(s.personal[i].X-p.X)*rp + s.Global*(s.global.X-p.X)*rg
		wantY := s.Inertia*vy + s.Personal*(s.personal[i].Y-p.Y)*rp + s.Global*(s.global.Y-p.Y)*rg
		dx, dy := wantX-vx, wantY-vy

		radial := math.Hypot(dx, dy)
		angle := dynamo.WrapAngle(math.Atan2(dy, dx) - poses[i][dynamo.Yaw])
		nmax := s.vehicles[i].Limits().NMax
		fwd := 0.5 * nmax * math.Tanh(radial)
		turn := 0.1 * nmax * dynamo.Sign(angle)
		controls[i] = dynamo.Control{fwd - turn, fwd + turn}

		quality, err := s.field.NearestContourDistance(p.X, p.Y)
		if err != nil {
			return nil, fmt.Errorf("control: vehicle %d: %w", i, err)
		}
		s.history.set(SeriesIntensity, i, step, s.value(p))
		s.history.set(SeriesQuality, i, step, quality)
	}
	s.positions = current
	return controls, nil
}

func (s *Swarm) Series(name string) ([][]float64, error) { return s.history.Series(name) }
func (s *Swarm) SeriesNames() []string                   { return s.history.SeriesNames() }

// Best is the best point found by the group so far.
func (s *Swarm) Best() field.Point { return s.global }
