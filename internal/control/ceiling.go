package control

import "math"

// ErrorCeiling tracks e_max, the bound used to normalise |f|.
//
// In dynamic mode e_max = min(max(Smoothing·e_max, |f|), Cap), starting from
// Eps. In static mode e_max is always Cap.
type ErrorCeiling struct {
	Cap       float64
	Smoothing float64
	Dynamic   bool

	emax float64
}

func NewErrorCeiling(eps, cap, smoothing float64, dynamic bool) *ErrorCeiling {
	return &ErrorCeiling{Cap: cap, Smoothing: smoothing, Dynamic: dynamic, emax: eps}
}

// Update folds in a new sample and returns (e_norm, e_max).
func (c *ErrorCeiling) Update(f float64) (float64, float64) {
	af := math.Abs(f)
	if c.Dynamic {
		c.emax = math.Min(math.Max(c.Smoothing*c.emax, af), c.Cap)
	} else {
		c.emax = c.Cap
	}
	if c.emax > 0 {
		return af / c.emax, c.emax
	}
	return 0, c.emax
}

func (c *ErrorCeiling) Value() float64 { return c.emax }
