package plot

import (
	"fmt"
	"math"
	"slices"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/san-kum/slicksim/internal/control"
	"github.com/san-kum/slicksim/internal/sim"
	gonum "gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Source is the data a table renders from.
type Source struct {
	Series     sim.SeriesSource
	SampleTime float64
	Steps      int
	Labels     []string
	Colors     []string
}

// FromResult reads series, labels and colours off a finished run.
func FromResult(res *sim.Result) (Source, error) {
	src, ok := res.Controller.(sim.SeriesSource)
	if !ok {
		return Source{}, fmt.Errorf("plot: controller %T records no series", res.Controller)
	}
	s := Source{Series: src, SampleTime: res.SampleTime, Steps: res.Steps}
	for _, tr := range res.Tracks {
		s.Labels = append(s.Labels, fmt.Sprintf("%s %d", tr.Vehicle, tr.Serial))
		s.Colors = append(s.Colors, tr.Color)
	}
	return s, nil
}

// Selector turns a source into one line per vehicle.
type Selector func(src Source) ([]plotter.XYs, error)

// Renderer draws selected lines onto p.
type Renderer func(p *gonum.Plot, lines []plotter.XYs, src Source, legend bool) error

type Entry struct {
	Spec   Spec
	Select Selector
	Render Renderer
}

type Table map[string]Entry

func (t Table) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

var renderers = map[string]Renderer{
	"line":    renderLines,
	"scatter": renderScatter,
}

func knownAxis(a Axis) bool {
	if a.Literal() {
		return true
	}
	return a.Name == AxisTime || a.Name == AxisStep || slices.Contains(control.SeriesNames(), a.Name)
}

// Build checks cfg and resolves each entry to a selector and renderer.
func Build(cfg Config) (Table, error) {
	t := make(Table, len(cfg))
	for _, name := range cfg.Names() {
		spec := cfg[name]
		for _, a := range []Axis{spec.X, spec.Y} {
			if !knownAxis(a) {
				return nil, fmt.Errorf("%w: %q in plot %q", ErrUnknownSeries, a.Name, name)
			}
		}
		kind := spec.Kind
		if kind == "" {
			kind = "line"
		}
		r, ok := renderers[kind]
		if !ok {
			return nil, fmt.Errorf("%w: %q in plot %q", ErrUnknownKind, kind, name)
		}
		t[name] = Entry{Spec: spec, Select: selector(spec.X, spec.Y), Render: r}
	}
	return t, nil
}

func axisRows(a Axis, src Source) ([][]float64, error) {
	if a.Literal() {
		return [][]float64{a.Values}, nil
	}
	switch a.Name {
	case AxisTime, AxisStep:
		row := make([]float64, src.Steps)
		for k := range row {
			row[k] = float64(k)
			if a.Name == AxisTime {
				row[k] *= src.SampleTime
			}
		}
		return [][]float64{row}, nil
	}
	return src.Series.Series(a.Name)
}

func selector(x, y Axis) Selector {
	return func(src Source) ([]plotter.XYs, error) {
		xs, err := axisRows(x, src)
		if err != nil {
			return nil, err
		}
		ys, err := axisRows(y, src)
		if err != nil {
			return nil, err
		}
		n := max(len(xs), len(ys))
		lines := make([]plotter.XYs, n)
		for i := range lines {
			xr, yr := xs[min(i, len(xs)-1)], ys[min(i, len(ys)-1)]
			if len(xr) != len(yr) {
				return nil, fmt.Errorf("%w: %d vs %d", ErrLength, len(xr), len(yr))
			}
			pts := make(plotter.XYs, 0, len(xr))
			for k := range xr {
				if finite(xr[k]) && finite(yr[k]) {
					pts = append(pts, plotter.XY{X: xr[k], Y: yr[k]})
				}
			}
			lines[i] = pts
		}
		return lines, nil
	}
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func lineColor(src Source, i int) (colorful.Color, string) {
	label := fmt.Sprintf("vehicle %d", i)
	if i < len(src.Labels) {
		label = src.Labels[i]
	}
	c := colorful.Color{R: 0.2, G: 0.2, B: 0.2}
	if i < len(src.Colors) {
		if parsed, err := colorful.Hex(src.Colors[i]); err == nil {
			c = parsed
		}
	}
	return c, label
}

func renderLines(p *gonum.Plot, lines []plotter.XYs, src Source, legend bool) error {
	for i, pts := range lines {
		if len(pts) == 0 {
			continue
		}
		l, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		c, label := lineColor(src, i)
		l.Color = c
		l.Width = vg.Points(1)
		p.Add(l)
		if legend {
			p.Legend.Add(label, l)
		}
	}
	return nil
}

func renderScatter(p *gonum.Plot, lines []plotter.XYs, src Source, legend bool) error {
	for i, pts := range lines {
		if len(pts) == 0 {
			continue
		}
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return err
		}
		c, label := lineColor(src, i)
		s.GlyphStyle.Color = c
		s.GlyphStyle.Radius = vg.Points(1)
		p.Add(s)
		if legend {
			p.Legend.Add(label, s)
		}
	}
	return nil
}
