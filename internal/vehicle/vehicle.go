package vehicle

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/slicksim/internal/dynamo"
	"github.com/san-kum/slicksim/internal/integrators"
)

var ErrUnknownKind = errors.New("vehicle: unknown vehicle kind")

// Limits bounds each actuator command. Models never clamp themselves;
// controllers read these when shaping the differential command.
type Limits struct {
	NMin float64
	NMax float64
}

func (l Limits) Clamp(n float64) float64 {
	return dynamo.Clamp(n, l.NMin, l.NMax)
}

// Vehicle is a planar surface vehicle driven by two actuators.
//
// Dynamics and Reposition are pure: they never modify their arguments.
type Vehicle interface {
	Name() string
	Serial() int
	Color() string
	Limits() Limits
	ControlDim() int
	Current() Current

	// StartingPoint is the configured (x, y) start after the start shift.
	StartingPoint() [2]float64
	InitialPose() dynamo.State
	InitialVelocity() dynamo.State
	InitialActual() dynamo.Control

	Dynamics(eta, nu dynamo.State, actual, command dynamo.Control, dt float64) (dynamo.State, dynamo.Control)
	Reposition(eta, nu dynamo.State, dt float64) dynamo.State
	Allocate(tauX, tauN float64) dynamo.Control
}

// Params carries the per-instance settings shared by every model.
type Params struct {
	Serial     int
	Start      [2]float64
	Shift      [2]float64
	Color      string
	Current    Current
	Integrator string
}

type base struct {
	serial  int
	start   [2]float64
	color   string
	current Current
}

func newBase(p Params) base {
	c := p.Color
	if c == "" {
		c = DefaultColor(p.Serial)
	}
	return base{
		serial:  p.Serial,
		start:   [2]float64{p.Start[0] + p.Shift[0], p.Start[1] + p.Shift[1]},
		color:   c,
		current: p.Current,
	}
}

func (b base) Serial() int               { return b.serial }
func (b base) Color() string             { return b.color }
func (b base) StartingPoint() [2]float64 { return b.start }
func (b base) Current() Current          { return b.current }

// InitialPose places the vehicle at its start with zero attitude. Poses are
// (north, east, ...), so the start's y goes first.
func (b base) InitialPose() dynamo.State {
	eta := dynamo.NewState()
	eta[dynamo.North] = b.start[1]
	eta[dynamo.East] = b.start[0]
	return eta
}

func (b base) InitialVelocity() dynamo.State { return dynamo.NewState() }

func (b base) Reposition(eta, nu dynamo.State, dt float64) dynamo.State {
	return integrators.Advance(eta, nu, dt)
}

// Current is a uniform water current. Direction is measured from east,
// counter-clockwise, in radians.
type Current struct {
	Speed     float64
	Direction float64
}

// Vector is the current as a 6-DOF velocity in pose ordering.
func (c Current) Vector() dynamo.State {
	v := dynamo.NewState()
	v[dynamo.North] = c.Speed * math.Sin(c.Direction)
	v[dynamo.East] = c.Speed * math.Cos(c.Direction)
	return v
}

// Relative returns the vehicle velocity through the water.
func (c Current) Relative(nu dynamo.State) dynamo.State {
	if c.Speed == 0 {
		return nu.Clone()
	}
	return nu.Sub(c.Vector())
}

var factories = map[string]func(Params) (Vehicle, error){
	"dubins": func(p Params) (Vehicle, error) { return NewDubins(p), nil },
	"otter":  func(p Params) (Vehicle, error) { return NewOtter(p) },
}

// New builds a vehicle of the named kind.
func New(kind string, p Params) (Vehicle, error) {
	fn, ok := factories[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return fn(p)
}

func Kinds() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
