package plot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/san-kum/slicksim/internal/control"
	"github.com/san-kum/slicksim/internal/field"
	"github.com/san-kum/slicksim/internal/sim"
	gonum "gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

const (
	Width  = 8 * vg.Inch
	Height = 5 * vg.Inch
)

func newPlot(spec Spec) *gonum.Plot {
	p := gonum.New()
	p.Title.Text = spec.Title
	p.X.Label.Text = spec.XLabel
	p.Y.Label.Text = spec.YLabel
	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	return p
}

// RenderOne draws a single entry to path. The format follows the extension.
func (e Entry) RenderOne(path string, src Source) error {
	lines, err := e.Select(src)
	if err != nil {
		return err
	}
	p := newPlot(e.Spec)
	if err := e.Render(p, lines, src, e.Spec.Legend); err != nil {
		return err
	}
	return p.Save(Width, Height, path)
}

// Render writes <name>.png for every entry into dir. Entries whose series the
// source never recorded are skipped. It returns the files written.
func (t Table) Render(dir string, src Source) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	var written []string
	for _, name := range t.Names() {
		path := filepath.Join(dir, name+".png")
		err := t[name].RenderOne(path, src)
		if errors.Is(err, control.ErrUnknownSeries) {
			continue
		}
		if err != nil {
			return written, fmt.Errorf("plot %q: %w", name, err)
		}
		written = append(written, path)
	}
	return written, nil
}

// fieldGrid exposes a field grid as plotter.GridXYZ.
type fieldGrid struct{ g field.Grid }

func (f fieldGrid) Dims() (c, r int)   { return len(f.g.X), len(f.g.Y) }
func (f fieldGrid) Z(c, r int) float64 { return f.g.Z[r][c] }
func (f fieldGrid) X(c int) float64    { return f.g.X[c] }
func (f fieldGrid) Y(r int) float64    { return f.g.Y[r] }

// Trajectory draws the field as a heat map with the contour set and every
// vehicle track in the x/y plane on top.
func Trajectory(path string, f *field.Field, res *sim.Result) error {
	p := newPlot(Spec{Title: "trajectories", XLabel: "x, m", YLabel: "y, m"})

	hm := plotter.NewHeatMap(fieldGrid{f.Grid()}, palette.Heat(16, 0.6))
	if hm.Min < hm.Max {
		p.Add(hm)
	}

	if pts := f.ContourPoints(); len(pts) > 0 {
		xy := make(plotter.XYs, len(pts))
		for i, c := range pts {
			xy[i] = plotter.XY{X: c.X, Y: c.Y}
		}
		s, err := plotter.NewScatter(xy)
		if err != nil {
			return err
		}
		s.GlyphStyle.Radius = vg.Points(0.5)
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(s)
		p.Legend.Add("isoline", s)
	}

	src := Source{}
	for _, tr := range res.Tracks {
		src.Labels = append(src.Labels, fmt.Sprintf("%s %d", tr.Vehicle, tr.Serial))
		src.Colors = append(src.Colors, tr.Color)
	}
	lines := make([]plotter.XYs, len(res.Tracks))
	for i, tr := range res.Tracks {
		pts := make(plotter.XYs, tr.Len())
		for k := range pts {
			pts[k].X, pts[k].Y = field.FromPose(tr.Pose(k))
		}
		lines[i] = pts
	}
	if err := renderLines(p, lines, src, true); err != nil {
		return err
	}

	starts := make(plotter.XYs, 0, len(lines))
	for _, l := range lines {
		if len(l) > 0 {
			starts = append(starts, l[0])
		}
	}
	if len(starts) > 0 {
		s, err := plotter.NewScatter(starts)
		if err != nil {
			return err
		}
		s.GlyphStyle.Shape = draw.TriangleGlyph{}
		s.GlyphStyle.Radius = vg.Points(3)
		p.Add(s)
	}
	return p.Save(Width, Width, path)
}
