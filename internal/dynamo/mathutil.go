package dynamo

import "math"

// Sign returns -1, 0 or +1. Zero and NaN both map to 0, so callers get a
// distinct neutral branch instead of a rounded one.
func Sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

// Clamp limits x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// SignedSqrt returns sign(u)*sqrt(|u|); it never produces a domain error.
func SignedSqrt(u float64) float64 {
	return Sign(u) * math.Sqrt(math.Abs(u))
}

// WrapAngle maps an angle in radians to the smallest signed angle in [-pi, pi).
func WrapAngle(a float64) float64 {
	w := math.Mod(a+math.Pi, 2*math.Pi)
	if w < 0 {
		w += 2 * math.Pi
	}
	return w - math.Pi
}
