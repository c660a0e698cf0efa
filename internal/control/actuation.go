package control

import (
	"math"

	"github.com/san-kum/slicksim/internal/dynamo"
	"github.com/san-kum/slicksim/internal/vehicle"
)

// Input is what an actuation strategy sees for one vehicle at one step.
type Input struct {
	F           float64
	Sigma       float64
	ErrorNorm   float64
	TimeOutside float64
	Limits      vehicle.Limits
}

type Actuation interface {
	Name() string
	Command(in Input) dynamo.Control
}

// differential assigns (lo, hi) to the actuator slots by the sign of σ.
// σ = 0 always yields [0, 0].
func differential(sigma, lo, hi float64) dynamo.Control {
	switch {
	case sigma < 0:
		return dynamo.Control{lo, hi}
	case sigma > 0:
		return dynamo.Control{hi, lo}
	}
	return dynamo.Control{0, 0}
}

// BangBang drives the actuators to their limits.
type BangBang struct{}

func (BangBang) Name() string { return "bang_bang" }

func (BangBang) Command(in Input) dynamo.Control {
	return differential(in.Sigma, in.Limits.NMin, in.Limits.NMax)
}

const (
	DefaultPIDV0   = 20.0
	DefaultPIDKP   = 15.0
	DefaultPIDKI   = 30.0
	DefaultKRot    = 30.0
	DefaultNLBase  = 100.0
	DefaultNLDepth = 80.0
	DefaultNLWidth = 0.01
)

// PIDForward splits the command into a forward part growing with the
// normalised error and the time spent outside the band, plus a rotation
// part proportional to σ.
type PIDForward struct {
	V0, KP, KI, KRot float64
}

func NewPIDForward() PIDForward {
	return PIDForward{V0: DefaultPIDV0, KP: DefaultPIDKP, KI: DefaultPIDKI, KRot: DefaultKRot}
}

func (PIDForward) Name() string { return "pid" }

func (p PIDForward) Command(in Input) dynamo.Control {
	fwd := p.V0 + p.KP*in.ErrorNorm + p.KI*in.TimeOutside
	rot := p.KRot * in.Sigma
	lo := in.Limits.Clamp(rot - fwd)
	hi := in.Limits.Clamp(rot + fwd)
	return differential(in.Sigma, lo, hi)
}

// NonlinearForward slows down near the isoline: the forward part is
// Base - Depth·exp(-Width·f²).
type NonlinearForward struct {
	Base, Depth, Width, KRot float64
}

func NewNonlinearForward() NonlinearForward {
	return NonlinearForward{Base: DefaultNLBase, Depth: DefaultNLDepth, Width: DefaultNLWidth, KRot: DefaultKRot}
}

func (NonlinearForward) Name() string { return "nonlinear" }

func (n NonlinearForward) Command(in Input) dynamo.Control {
	fwd := n.Base - n.Depth*math.Exp(-n.Width*in.F*in.F)
	rot := n.KRot * in.Sigma
	return differential(in.Sigma, in.Limits.Clamp(rot-fwd), in.Limits.Clamp(fwd+rot))
}
