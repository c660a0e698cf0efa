package vehicle

import (
	"fmt"
	"math"

	"github.com/san-kum/slicksim/internal/dynamo"
	"github.com/san-kum/slicksim/internal/integrators"
	"gonum.org/v1/gonum/mat"
)

const (
	DefaultOtterMass    = 80.0
	DefaultOtterInertia = 15.95
	DefaultOtterArm     = 0.395
	DefaultOtterKPos    = 0.0111
	DefaultOtterKNeg    = 0.0066
	DefaultOtterTn      = 0.1
	DefaultOtterXu      = 77.5
	DefaultOtterNr      = 40.0
	DefaultOtterNMin    = -101.0
	DefaultOtterNMax    = 103.0
)

// Otter is a twin-propeller catamaran reduced to surge and yaw. Propeller
// speeds lag the command with time constant Tn and produce thrust k·n|n|.
type Otter struct {
	base
	Mass, Inertia, Arm float64
	KPos, KNeg         float64
	Tn                 float64
	Xu, Nr             float64
	NMin, NMax         float64

	stepper dynamo.Integrator
}

func NewOtter(p Params) (*Otter, error) {
	o := &Otter{
		base:    newBase(p),
		Mass:    DefaultOtterMass,
		Inertia: DefaultOtterInertia,
		Arm:     DefaultOtterArm,
		KPos:    DefaultOtterKPos,
		KNeg:    DefaultOtterKNeg,
		Tn:      DefaultOtterTn,
		Xu:      DefaultOtterXu,
		Nr:      DefaultOtterNr,
		NMin:    DefaultOtterNMin,
		NMax:    DefaultOtterNMax,
	}
	switch p.Integrator {
	case "", "euler":
		o.stepper = integrators.NewEuler()
	case "rk4":
		o.stepper = integrators.NewRK4()
	default:
		return nil, fmt.Errorf("vehicle: unknown integrator %q", p.Integrator)
	}
	return o, nil
}

func (o *Otter) Name() string    { return "otter" }
func (o *Otter) ControlDim() int { return 2 }
func (o *Otter) Limits() Limits  { return Limits{NMin: o.NMin, NMax: o.NMax} }

func (o *Otter) InitialActual() dynamo.Control { return make(dynamo.Control, 2) }

func (o *Otter) thrust(n float64) float64 {
	if n > 0 {
		return o.KPos * n * math.Abs(n)
	}
	return o.KNeg * n * math.Abs(n)
}

// otterBody is the reduced state [surge, yaw rate, nL, nR] seen by the stepper.
type otterBody struct{ o *Otter }

func (b otterBody) StateDim() int   { return 4 }
func (b otterBody) ControlDim() int { return 2 }

func (b otterBody) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	o := b.o
	surge, r, nL, nR := x[0], x[1], x[2], x[3]
	tL, tR := o.thrust(nL), o.thrust(nR)
	return dynamo.State{
		(tL + tR - o.Xu*surge) / o.Mass,
		(o.Arm*(tR-tL) - o.Nr*r) / o.Inertia,
		(u[0] - nL) / o.Tn,
		(u[1] - nR) / o.Tn,
	}
}

func (o *Otter) Dynamics(eta, nu dynamo.State, actual, command dynamo.Control, dt float64) (dynamo.State, dynamo.Control) {
	psi := eta[dynamo.Yaw]
	surge := nu[dynamo.North]*math.Sin(psi) + nu[dynamo.East]*math.Cos(psi)

	cmd := dynamo.Control{0, 0}
	copy(cmd, command)
	nL, nR := 0.0, 0.0
	if len(actual) >= 2 {
		nL, nR = actual[0], actual[1]
	}

	x := o.stepper.Step(otterBody{o}, dynamo.State{surge, nu[dynamo.Yaw], nL, nR}, cmd, 0, dt)

	next := dynamo.NewState()
	next[dynamo.North] = x[0] * math.Sin(psi)
	next[dynamo.East] = x[0] * math.Cos(psi)
	next[dynamo.Yaw] = x[1]
	return next, dynamo.Control{x[2], x[3]}
}

// Allocate maps surge force tauX and yaw moment tauN to propeller speeds.
func (o *Otter) Allocate(tauX, tauN float64) dynamo.Control {
	b := mat.NewDense(2, 2, []float64{
		1, 1,
		-o.Arm, o.Arm,
	})
	var inv mat.Dense
	if err := inv.Inverse(b); err != nil {
		return make(dynamo.Control, 2)
	}
	var t mat.VecDense
	t.MulVec(&inv, mat.NewVecDense(2, []float64{tauX, tauN}))

	n := make(dynamo.Control, 2)
	for i := range n {
		ti := t.AtVec(i)
		k := o.KPos
		if ti < 0 {
			k = o.KNeg
		}
		n[i] = dynamo.SignedSqrt(ti / k)
	}
	return n
}

func (o *Otter) GetParams() map[string]float64 {
	return map[string]float64{
		"mass":    o.Mass,
		"inertia": o.Inertia,
		"arm":     o.Arm,
		"k_pos":   o.KPos,
		"k_neg":   o.KNeg,
		"tn":      o.Tn,
		"xu":      o.Xu,
		"nr":      o.Nr,
		"n_min":   o.NMin,
		"n_max":   o.NMax,
	}
}

func (o *Otter) SetParam(name string, value float64) error {
	positive := func(dst *float64) error {
		if !(value > 0) {
			return fmt.Errorf("%w: %s must be positive", dynamo.ErrParameterBounds, name)
		}
		*dst = value
		return nil
	}
	switch name {
	case "mass":
		return positive(&o.Mass)
	case "inertia":
		return positive(&o.Inertia)
	case "arm":
		return positive(&o.Arm)
	case "k_pos":
		return positive(&o.KPos)
	case "k_neg":
		return positive(&o.KNeg)
	case "tn":
		return positive(&o.Tn)
	case "xu":
		o.Xu = value
	case "nr":
		o.Nr = value
	case "n_min":
		o.NMin = value
	case "n_max":
		o.NMax = value
	default:
		return fmt.Errorf("%w: %s", dynamo.ErrUnknownParam, name)
	}
	return nil
}
