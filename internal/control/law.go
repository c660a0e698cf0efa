package control

import "math"

// Sample is what a law sees for one vehicle at one step.
type Sample struct {
	F          float64
	FPrev      float64
	SampleTime float64

	// Speed is the planar speed through the water; only velocity-coupled
	// laws read it.
	Speed float64
}

type Decision struct {
	Der    float64
	MuTanh float64
	Sigma  float64
}

type Law interface {
	Name() string
	Switch(s Sample) Decision
}

// switching returns -sign(arg) with sign(0) = 0. NaN is treated as zero.
func switching(arg float64) float64 {
	switch {
	case arg > 0:
		return -1
	case arg < 0:
		return 1
	}
	return 0
}

func derivative(s Sample) float64 {
	return (s.F - s.FPrev) / s.SampleTime
}

// Ivan is σ = -sign(d + μ·tanh(f - f0)).
type Ivan struct {
	Mu float64
	F0 float64
}

func (l Ivan) Name() string { return "ivan" }

func (l Ivan) Switch(s Sample) Decision {
	d := derivative(s)
	mt := l.Mu * math.Tanh(s.F-l.F0)
	return Decision{Der: d, MuTanh: mt, Sigma: switching(d + mt)}
}

// Berman is Ivan with the gain halved before use.
type Berman struct {
	Mu float64
	F0 float64
}

func (l Berman) Name() string { return "berman" }

func (l Berman) Switch(s Sample) Decision {
	d := derivative(s)
	mt := l.Mu / 2 * math.Tanh(s.F-l.F0)
	return Decision{Der: d, MuTanh: mt, Sigma: switching(d + mt)}
}

// Matveev scales the tanh term by the vehicle speed through the water:
// σ = -sign(d + ds·μ·tanh(f - f0)).
type Matveev struct {
	Mu float64
	F0 float64
}

func (l Matveev) Name() string { return "matveev" }

func (l Matveev) Switch(s Sample) Decision {
	d := derivative(s)
	mt := l.Mu * math.Tanh(s.F-l.F0)
	return Decision{Der: d, MuTanh: mt, Sigma: switching(d + s.Speed*mt)}
}
