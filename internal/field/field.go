package field

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/slicksim/internal/dynamo"
	"gonum.org/v1/gonum/floats"
)

type Kind string

const (
	Gaussian  Kind = "gaussian"
	Parabolic Kind = "parabolic"
)

// ParseKind accepts the kind names used in configuration files.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case Gaussian:
		return Gaussian, nil
	case Parabolic:
		return Parabolic, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

const (
	DefaultAxisAbsMax = 30.0
	DefaultGridSize   = 500
)

// Shift moves every peak by (DX, DY) and lifts the surface by DZ.
type Shift struct {
	DX float64 `json:"dx" yaml:"dx"`
	DY float64 `json:"dy" yaml:"dy"`
	DZ float64 `json:"dz" yaml:"dz"`
}

type Options struct {
	Kind          Kind
	Peaks         []Peak
	Shift         Shift
	TargetIsoline float64
	AxisAbsMax    float64
	GridSize      int
}

type Point struct {
	X, Y float64
}

// Grid is a square sampling of the field; Z[j][i] is the value at (X[i], Y[j]).
type Grid struct {
	X []float64
	Y []float64
	Z [][]float64
}

type Field struct {
	kind    Kind
	peaks   []Peak
	shift   Shift
	target  float64
	grid    Grid
	contour []Point
	ready   bool
}

func New(opts Options) (*Field, error) {
	kind, err := ParseKind(string(opts.Kind))
	if err != nil {
		return nil, err
	}
	if opts.AxisAbsMax == 0 {
		opts.AxisAbsMax = DefaultAxisAbsMax
	}
	if opts.GridSize == 0 {
		opts.GridSize = DefaultGridSize
	}
	if opts.GridSize < 2 || !(opts.AxisAbsMax > 0) {
		return nil, fmt.Errorf("%w: size=%d axis=%g", ErrInvalidGrid, opts.GridSize, opts.AxisAbsMax)
	}
	for i, p := range opts.Peaks {
		if err := p.validate(); err != nil {
			return nil, fmt.Errorf("field: peak %d: %w", i, err)
		}
	}

	f := &Field{
		kind:   kind,
		peaks:  append([]Peak(nil), opts.Peaks...),
		shift:  opts.Shift,
		target: opts.TargetIsoline,
	}
	f.buildGrid(opts.AxisAbsMax, opts.GridSize)
	return f, nil
}

func (f *Field) buildGrid(axis float64, n int) {
	xs := make([]float64, n)
	ys := make([]float64, n)
	floats.Span(xs, -axis, axis)
	floats.Span(ys, -axis, axis)

	z := make([][]float64, n)
	for j, y := range ys {
		row := make([]float64, n)
		for i, x := range xs {
			row[i] = f.gridValue(x, y)
		}
		z[j] = row
	}
	f.grid = Grid{X: xs, Y: ys, Z: z}
}

func (f *Field) peakValue(p Peak, x, y float64) float64 {
	q := p.exponent(x-f.shift.DX, y-f.shift.DY)
	if f.kind == Parabolic {
		return (p.Amplitude - q) * math.Exp(-q)
	}
	return p.Amplitude * math.Exp(-q)
}

func (f *Field) gridValue(x, y float64) float64 {
	sum := 0.0
	for _, p := range f.peaks {
		v := f.peakValue(p, x, y)
		if f.kind == Parabolic && v < 0 {
			v = 0
		}
		sum += v
	}
	return sum + f.shift.DZ - f.target
}

// Intensity is the field value at (x, y). It is defined for every real
// coordinate, including points outside the grid range.
func (f *Field) Intensity(x, y float64) float64 {
	sum := 0.0
	for _, p := range f.peaks {
		sum += f.peakValue(p, x, y)
	}
	return sum + f.shift.DZ - f.target
}

// Sample evaluates Intensity over a batch of points.
func (f *Field) Sample(points []Point) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = f.Intensity(p.X, p.Y)
	}
	return out
}

// Grid returns the precomputed sampling. Callers must not modify it.
func (f *Field) Grid() Grid { return f.grid }

func (f *Field) Kind() Kind             { return f.kind }
func (f *Field) TargetIsoline() float64 { return f.target }
func (f *Field) Shift() Shift           { return f.shift }

func (f *Field) Peaks() []Peak {
	return append([]Peak(nil), f.peaks...)
}

// SetContourPoints collects every grid point whose value is within tol of level.
func (f *Field) SetContourPoints(level, tol float64) {
	pts := make([]Point, 0)
	for j, row := range f.grid.Z {
		for i, z := range row {
			if math.Abs(z-level) < tol {
				pts = append(pts, Point{X: f.grid.X[i], Y: f.grid.Y[j]})
			}
		}
	}
	f.contour = pts
	f.ready = true
}

// ContourPoints returns the collected contour set, or nil before SetContourPoints.
func (f *Field) ContourPoints() []Point {
	return f.contour
}

// NearestContourDistance is the Euclidean distance from (x, y) to the closest
// contour point. An empty contour set yields +Inf.
func (f *Field) NearestContourDistance(x, y float64) (float64, error) {
	if !f.ready {
		return 0, ErrContourUninitialized
	}
	best := math.Inf(1)
	for _, p := range f.contour {
		d := math.Hypot(p.X-x, p.Y-y)
		if d < best {
			best = d
		}
	}
	return best, nil
}

// FromPose converts a vehicle pose (north, east, ...) into field
// coordinates: x is east, y is north.
func FromPose(eta dynamo.State) (x, y float64) {
	return eta[dynamo.East], eta[dynamo.North]
}

// ToPose is the inverse of FromPose for the planar components.
func ToPose(x, y float64) dynamo.State {
	eta := dynamo.NewState()
	eta[dynamo.North] = y
	eta[dynamo.East] = x
	return eta
}
