package metrics

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// SeriesSource is anything exposing named vehicles × steps arrays.
type SeriesSource interface {
	Series(name string) ([][]float64, error)
}

// Summary condenses controller history into tracking figures.
type Summary struct {
	MeanError    float64 `json:"mean_error" yaml:"mean_error"`
	StdError     float64 `json:"std_error" yaml:"std_error"`
	MeanQuality  float64 `json:"mean_quality" yaml:"mean_quality"`
	FinalQuality float64 `json:"final_quality" yaml:"final_quality"`
	TimeInBand   float64 `json:"time_in_band" yaml:"time_in_band"`
}

// Summarize reads errors_norm, quality and intensity from src. Missing series
// leave their figures at NaN. eps is the band half-width for TimeInBand.
func Summarize(src SeriesSource, eps float64) Summary {
	s := Summary{
		MeanError:    math.NaN(),
		StdError:     math.NaN(),
		MeanQuality:  math.NaN(),
		FinalQuality: math.NaN(),
		TimeInBand:   math.NaN(),
	}
	if e, err := src.Series("errors_norm"); err == nil {
		all := flatten(e, false)
		if len(all) > 0 {
			s.MeanError, s.StdError = stat.MeanStdDev(all, nil)
			if len(all) == 1 {
				s.StdError = 0
			}
		}
	}
	if q, err := src.Series("quality"); err == nil {
		finite := flatten(q, true)
		if len(finite) > 0 {
			s.MeanQuality = stat.Mean(finite, nil)
		}
		last := make([]float64, 0, len(q))
		for _, row := range q {
			if n := len(row); n > 0 && !math.IsInf(row[n-1], 0) {
				last = append(last, row[n-1])
			}
		}
		if len(last) > 0 {
			s.FinalQuality = stat.Mean(last, nil)
		}
	}
	if f, err := src.Series("intensity"); err == nil {
		all := flatten(f, false)
		if len(all) > 0 {
			in := 0
			for _, v := range all {
				if math.Abs(v) < eps {
					in++
				}
			}
			s.TimeInBand = float64(in) / float64(len(all))
		}
	}
	return s
}

func flatten(rows [][]float64, finiteOnly bool) []float64 {
	var out []float64
	for _, row := range rows {
		for _, v := range row {
			if finiteOnly && (math.IsInf(v, 0) || math.IsNaN(v)) {
				continue
			}
			out = append(out, v)
		}
	}
	return out
}

func (s Summary) values() map[string]float64 {
	return map[string]float64{
		"mean_error":    s.MeanError,
		"std_error":     s.StdError,
		"mean_quality":  s.MeanQuality,
		"final_quality": s.FinalQuality,
		"time_in_band":  s.TimeInBand,
	}
}

// Get returns a figure by its snake_case name.
func (s Summary) Get(name string) (float64, error) {
	v, ok := s.values()[name]
	if !ok {
		return 0, fmt.Errorf("metrics: unknown summary figure %q", name)
	}
	return v, nil
}

func SummaryNames() []string {
	names := make([]string, 0, 5)
	for name := range (Summary{}).values() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s Summary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Float64("mean_error", s.MeanError),
		slog.Float64("std_error", s.StdError),
		slog.Float64("mean_quality", s.MeanQuality),
		slog.Float64("final_quality", s.FinalQuality),
		slog.Float64("time_in_band", s.TimeInBand),
	)
}
