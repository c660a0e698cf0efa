package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// ErrShort is returned when a signal holds too few finite samples.
var ErrShort = errors.New("analysis: signal too short")

// minSamples is the smallest signal a spectrum is computed for.
const minSamples = 4

// Source exposes recorded series by name.
type Source interface {
	Series(name string) ([][]float64, error)
}

// Chatter summarises the switching of one vehicle.
type Chatter struct {
	Vehicle  int
	Switches int
	// Rate is switches per second.
	Rate float64
	// Dominant is the strongest frequency of sigma in Hz.
	Dominant float64
}

// Switches counts sign changes of row. Zero and non-finite samples are
// skipped so a gap does not count as a switch.
func Switches(row []float64) int {
	n := 0
	prev := 0.0
	for _, v := range row {
		if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if prev != 0 && math.Signbit(v) != math.Signbit(prev) {
			n++
		}
		prev = v
	}
	return n
}

// Spectrum returns the one-sided power spectrum of row sampled every dt
// seconds. The mean is removed first and non-finite samples are zeroed.
func Spectrum(row []float64, dt float64) (freqs, power []float64, err error) {
	if dt <= 0 {
		return nil, nil, fmt.Errorf("analysis: sample time must be positive, got %g", dt)
	}
	seq, finite := centred(row)
	if finite < minSamples {
		return nil, nil, fmt.Errorf("%w: %d finite samples", ErrShort, finite)
	}

	fft := fourier.NewFFT(len(seq))
	coeff := fft.Coefficients(nil, seq)
	freqs = make([]float64, len(coeff))
	power = make([]float64, len(coeff))
	for i, c := range coeff {
		freqs[i] = fft.Freq(i) / dt
		a := cmplx.Abs(c)
		power[i] = a * a / float64(len(seq))
	}
	return freqs, power, nil
}

// DominantFrequency returns the non-DC frequency carrying the most power, or
// zero for a constant signal.
func DominantFrequency(row []float64, dt float64) (float64, error) {
	freqs, power, err := Spectrum(row, dt)
	if err != nil {
		return 0, err
	}
	best, idx := 0.0, 0
	for i := 1; i < len(power); i++ {
		if power[i] > best {
			best, idx = power[i], i
		}
	}
	return freqs[idx], nil
}

// Analyze reports the chattering of every vehicle from the "sigmas" series.
func Analyze(src Source, dt float64) ([]Chatter, error) {
	sigmas, err := src.Series("sigmas")
	if err != nil {
		return nil, err
	}
	out := make([]Chatter, len(sigmas))
	for i, row := range sigmas {
		c := Chatter{Vehicle: i, Switches: Switches(row)}
		if span := float64(len(row)) * dt; span > 0 {
			c.Rate = float64(c.Switches) / span
		}
		c.Dominant, err = DominantFrequency(row, dt)
		if err != nil && !errors.Is(err, ErrShort) {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

func centred(row []float64) ([]float64, int) {
	seq := make([]float64, len(row))
	sum, n := 0.0, 0
	for _, v := range row {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return seq, 0
	}
	mean := sum / float64(n)
	for i, v := range row {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		seq[i] = v - mean
	}
	return seq, n
}
