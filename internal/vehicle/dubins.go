package vehicle

import (
	"fmt"
	"math"

	"github.com/san-kum/slicksim/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

const (
	DefaultWheelRadius     = 0.315
	DefaultWheelSeparation = 1.0
	DefaultLength          = 2.0
	DefaultDubinsNMin      = -5.0
	DefaultDubinsNMax      = 10.0
)

// Dubins is a differential-drive kinematic model. Heading is the yaw
// component of the pose, measured from the east axis.
type Dubins struct {
	base
	R, B, L    float64
	NMin, NMax float64
}

func NewDubins(p Params) *Dubins {
	return &Dubins{
		base: newBase(p),
		R:    DefaultWheelRadius,
		B:    DefaultWheelSeparation,
		L:    DefaultLength,
		NMin: DefaultDubinsNMin,
		NMax: DefaultDubinsNMax,
	}
}

func (d *Dubins) Name() string    { return "dubins" }
func (d *Dubins) ControlDim() int { return 2 }
func (d *Dubins) Limits() Limits  { return Limits{NMin: d.NMin, NMax: d.NMax} }

func (d *Dubins) InitialActual() dynamo.Control { return make(dynamo.Control, 2) }

// Speeds maps wheel commands to forward speed and yaw rate.
func (d *Dubins) Speeds(nL, nR float64) (v, omega float64) {
	return d.R / 2 * (nL + nR), d.R / d.B * (nR - nL)
}

// Dynamics follows the command instantly; the returned actual equals it.
func (d *Dubins) Dynamics(eta, nu dynamo.State, actual, command dynamo.Control, dt float64) (dynamo.State, dynamo.Control) {
	var nL, nR float64
	if len(command) >= 2 {
		nL, nR = command[0], command[1]
	}
	v, omega := d.Speeds(nL, nR)
	psi := eta[dynamo.Yaw]

	next := dynamo.NewState()
	next[dynamo.North] = v * math.Sin(psi)
	next[dynamo.East] = v * math.Cos(psi)
	next[dynamo.Yaw] = omega
	return next, dynamo.Control{nL, nR}
}

// Allocate solves for wheel commands giving forward speed tauX and yaw rate tauN.
func (d *Dubins) Allocate(tauX, tauN float64) dynamo.Control {
	a := mat.NewDense(2, 2, []float64{
		d.R / 2, d.R / 2,
		-d.R / d.B, d.R / d.B,
	})
	var inv mat.Dense
	if err := inv.Inverse(a); err != nil {
		return make(dynamo.Control, 2)
	}
	var n mat.VecDense
	n.MulVec(&inv, mat.NewVecDense(2, []float64{tauX, tauN}))
	return dynamo.Control{n.AtVec(0), n.AtVec(1)}
}

func (d *Dubins) GetParams() map[string]float64 {
	return map[string]float64{
		"wheel_radius":     d.R,
		"wheel_separation": d.B,
		"length":           d.L,
		"n_min":            d.NMin,
		"n_max":            d.NMax,
	}
}

func (d *Dubins) SetParam(name string, value float64) error {
	switch name {
	case "wheel_radius":
		d.R = value
	case "wheel_separation":
		if value == 0 {
			return fmt.Errorf("%w: wheel_separation must be non-zero", dynamo.ErrParameterBounds)
		}
		d.B = value
	case "length":
		d.L = value
	case "n_min":
		d.NMin = value
	case "n_max":
		d.NMax = value
	default:
		return fmt.Errorf("%w: %s", dynamo.ErrUnknownParam, name)
	}
	return nil
}
