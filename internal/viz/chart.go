package viz

import (
	"math"

	"github.com/guptarohit/asciigraph"
)

var chartColors = []asciigraph.AnsiColor{
	asciigraph.DodgerBlue, asciigraph.Orange, asciigraph.Green, asciigraph.Red, asciigraph.Violet,
	asciigraph.Brown, asciigraph.HotPink, asciigraph.Yellow, asciigraph.Olive, asciigraph.Cyan,
}

// Chart plots one line per row, each row resampled to width points.
// Non-finite values become gaps.
func Chart(rows [][]float64, width, height int, caption string) string {
	data := make([][]float64, 0, len(rows))
	for _, row := range rows {
		if r := resample(row, width); len(r) > 0 {
			data = append(data, r)
		}
	}
	if len(data) == 0 {
		return Subtle.Render("(no data)")
	}
	colors := make([]asciigraph.AnsiColor, len(data))
	for i := range colors {
		colors[i] = chartColors[i%len(chartColors)]
	}
	return asciigraph.PlotMany(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Precision(2),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(colors...),
	)
}

func resample(row []float64, width int) []float64 {
	finite := false
	for _, v := range row {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = true
			break
		}
	}
	if !finite {
		return nil
	}
	n := len(row)
	if width <= 0 || n <= width {
		out := make([]float64, n)
		for i, v := range row {
			out[i] = clean(v)
		}
		return out
	}
	out := make([]float64, width)
	for i := range out {
		out[i] = clean(row[i*(n-1)/(width-1)])
	}
	return out
}

func clean(v float64) float64 {
	if math.IsInf(v, 0) {
		return math.NaN()
	}
	return v
}
