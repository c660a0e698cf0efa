package dynamo

import "math"

// DOF is the number of pose (and velocity) components carried for every vehicle.
const DOF = 6

// Pose component indices.
const (
	North = iota
	East
	Depth
	Roll
	Pitch
	Yaw
)

type State []float64

// NewState returns a zeroed 6-DOF vector.
func NewState() State {
	return make(State, DOF)
}

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Add(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] + other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

func (s State) Scale(factor float64) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] * factor
	}
	return result
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// PlanarSpeed is the horizontal magnitude sqrt(v0² + v1²) of a velocity vector.
func (s State) PlanarSpeed() float64 {
	if len(s) < 2 {
		return 0
	}
	return math.Hypot(s[0], s[1])
}

type Control []float64

func (c Control) Clone() Control {
	out := make(Control, len(c))
	copy(out, c)
	return out
}

// System is a first-order ODE dX/dt = f(X, u, t). Vehicle models with
// internal actuator or damping states expose one to an Integrator.
type System interface {
	Derive(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

type Integrator interface {
	Step(dyn System, x State, u Control, t float64, dt float64) State
}

// Configurable is implemented by components with tunable scalar parameters.
type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}
