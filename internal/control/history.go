package control

import "fmt"

// Series names recorded by Controller. Each series is vehicles × steps.
const (
	SeriesIntensity    = "intensity"
	SeriesDer          = "der"
	SeriesMuTanh       = "mu_tanh"
	SeriesSigmas       = "sigmas"
	SeriesErrorsNorm   = "errors_norm"
	SeriesErrorsMax    = "errors_max"
	SeriesQuality      = "quality"
	SeriesTimesOutside = "times_outside"
	SeriesDS           = "ds"
)

var seriesNames = []string{
	SeriesIntensity, SeriesDer, SeriesMuTanh, SeriesSigmas, SeriesErrorsNorm,
	SeriesErrorsMax, SeriesQuality, SeriesTimesOutside, SeriesDS,
}

// SeriesNames lists every series a Controller records, in a stable order.
func SeriesNames() []string {
	return append([]string(nil), seriesNames...)
}

// History is a fixed set of pre-sized per-vehicle arrays.
type History struct {
	names  []string
	arrays map[string][][]float64
}

func newHistory(names []string, vehicles, steps int) *History {
	h := &History{names: names, arrays: make(map[string][][]float64, len(names))}
	for _, name := range names {
		rows := make([][]float64, vehicles)
		for i := range rows {
			rows[i] = make([]float64, steps)
		}
		h.arrays[name] = rows
	}
	return h
}

func (h *History) set(name string, vehicle, step int, v float64) {
	h.arrays[name][vehicle][step] = v
}

// Series returns the named array. The result is shared with the recorder.
func (h *History) Series(name string) ([][]float64, error) {
	s, ok := h.arrays[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSeries, name)
	}
	return s, nil
}

func (h *History) SeriesNames() []string {
	return append([]string(nil), h.names...)
}
