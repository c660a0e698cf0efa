package field

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/san-kum/slicksim/internal/dynamo"
)

func singlePeak(kind Kind, target float64) Options {
	return Options{
		Kind:          kind,
		Peaks:         []Peak{{X0: 10, Y0: 10, Amplitude: 30, SigmaX: 5, SigmaY: 5}},
		TargetIsoline: target,
		AxisAbsMax:    30,
		GridSize:      121,
	}
}

func TestIntensity_PeakCenter(t *testing.T) {
	peaks := []Peak{
		{X0: 10, Y0: 10, Amplitude: 30, SigmaX: 5, SigmaY: 5},
		{X0: -4, Y0: 7, Amplitude: 12, SigmaX: 2, SigmaY: 3},
		{X0: 0, Y0: -20, Amplitude: 1, SigmaX: 0.5, SigmaY: 8},
	}
	for _, p := range peaks {
		f, err := New(Options{Kind: Gaussian, Peaks: []Peak{p}, TargetIsoline: 15, GridSize: 11})
		if err != nil {
			t.Fatalf("new field: %v", err)
		}
		got := f.Intensity(p.X0, p.Y0)
		if math.Abs(got-(p.Amplitude-15)) > 1e-12 {
			t.Errorf("peak %+v: intensity at center = %v, want %v", p, got, p.Amplitude-15)
		}
		for _, d := range []Point{{0.5, 0}, {0, 0.5}, {-0.3, 0.2}} {
			if f.Intensity(p.X0+d.X, p.Y0+d.Y) >= got {
				t.Errorf("peak %+v: center is not a local maximum", p)
			}
		}
	}
}

func TestIntensity_EmptyField(t *testing.T) {
	f, err := New(Options{Kind: Gaussian, TargetIsoline: 15, GridSize: 5})
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range []Point{{0, 0}, {1e6, -1e6}, {-3, 7}} {
		if got := f.Intensity(p.X, p.Y); got != -15 {
			t.Errorf("Intensity(%v) = %v, want -15", p, got)
		}
	}
}

func TestIntensity_Shift(t *testing.T) {
	opts := singlePeak(Gaussian, 0)
	opts.Shift = Shift{DX: 2, DY: -3, DZ: 1.5}
	f, err := New(opts)
	if err != nil {
		t.Fatal(err)
	}
	if got := f.Intensity(12, 7); math.Abs(got-31.5) > 1e-12 {
		t.Errorf("shifted center intensity = %v, want 31.5", got)
	}
}

func TestIntensity_DefinedOutsideGrid(t *testing.T) {
	f, err := New(singlePeak(Parabolic, 15))
	if err != nil {
		t.Fatal(err)
	}
	v := f.Intensity(1e4, -1e4)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		t.Errorf("intensity far outside grid is not finite: %v", v)
	}
}

func TestParabolic_GridClipsPointQueryDoesNot(t *testing.T) {
	opts := Options{
		Kind:       Parabolic,
		Peaks:      []Peak{{X0: 0, Y0: 0, Amplitude: 1, SigmaX: 1, SigmaY: 1}},
		AxisAbsMax: 4,
		GridSize:   9,
	}
	f, err := New(opts)
	if err != nil {
		t.Fatal(err)
	}
	g := f.Grid()
	// (3, 0): q = 4.5 > A, so the raw peak is negative.
	i, j := 7, 4
	if g.X[i] != 3 || g.Y[j] != 0 {
		t.Fatalf("unexpected grid axes: x=%v y=%v", g.X[i], g.Y[j])
	}
	if g.Z[j][i] != 0 {
		t.Errorf("grid value = %v, want 0 after clipping", g.Z[j][i])
	}
	if v := f.Intensity(3, 0); v >= 0 {
		t.Errorf("point intensity = %v, want negative (unclipped)", v)
	}
	if v := f.Intensity(0, 0); v != 1 {
		t.Errorf("parabolic center = %v, want 1", v)
	}
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want error
	}{
		{"unknown kind", Options{Kind: "cone"}, ErrUnknownKind},
		{"zero sigma", Options{Kind: Gaussian, Peaks: []Peak{{Amplitude: 1, SigmaX: 0, SigmaY: 1}}}, ErrInvalidSpread},
		{"tiny grid", Options{Kind: Gaussian, GridSize: 1}, ErrInvalidGrid},
		{"negative axis", Options{Kind: Gaussian, AxisAbsMax: -2}, ErrInvalidGrid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.opts); !errors.Is(err, tt.want) {
				t.Errorf("New() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNearestContourDistance_Uninitialized(t *testing.T) {
	f, err := New(singlePeak(Gaussian, 15))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.NearestContourDistance(0, 0); !errors.Is(err, ErrContourUninitialized) {
		t.Errorf("expected ErrContourUninitialized, got %v", err)
	}
}

func TestContourPoints_RingAroundPeak(t *testing.T) {
	f, err := New(singlePeak(Gaussian, 15))
	if err != nil {
		t.Fatal(err)
	}
	f.SetContourPoints(0, 0.5)
	pts := f.ContourPoints()
	if len(pts) == 0 {
		t.Fatal("no contour points collected")
	}

	radius := math.Sqrt(50 * math.Ln2)
	for _, p := range pts {
		r := math.Hypot(p.X-10, p.Y-10)
		if math.Abs(r-radius) > 0.5 {
			t.Errorf("contour point %v at radius %.3f, want ~%.3f", p, r, radius)
		}
	}

	d, err := f.NearestContourDistance(10, 10)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(d-radius) > 0.5 {
		t.Errorf("distance from center = %.3f, want ~%.3f", d, radius)
	}
}

func TestNearestContourDistance_EmptySet(t *testing.T) {
	f, err := New(singlePeak(Gaussian, 100))
	if err != nil {
		t.Fatal(err)
	}
	f.SetContourPoints(0, 0.1)
	d, err := f.NearestContourDistance(0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsInf(d, 1) {
		t.Errorf("distance to empty contour = %v, want +Inf", d)
	}
}

func TestPeaks_RoundTrip(t *testing.T) {
	opts := Options{
		Kind: Gaussian,
		Peaks: []Peak{
			{X0: 10, Y0: 10, Amplitude: 30, SigmaX: 5, SigmaY: 5},
			{X0: -8.25, Y0: 3.5, Amplitude: 12.125, SigmaX: 2.5, SigmaY: 4},
		},
		TargetIsoline: 15,
		GridSize:      21,
	}
	f, err := New(opts)
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "peaks.json")
	if err := SavePeaks(path, f.Peaks()); err != nil {
		t.Fatalf("save: %v", err)
	}
	peaks, err := LoadPeaks(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(opts.Peaks, peaks); diff != "" {
		t.Errorf("peaks mismatch (-want +got):\n%s", diff)
	}

	opts.Peaks = peaks
	g, err := New(opts)
	if err != nil {
		t.Fatal(err)
	}
	grid := f.Grid()
	for j := 0; j < len(grid.Y); j += 4 {
		for i := 0; i < len(grid.X); i += 4 {
			x, y := grid.X[i], grid.Y[j]
			if math.Abs(f.Intensity(x, y)-g.Intensity(x, y)) > 1e-12 {
				t.Errorf("intensity mismatch at (%v, %v)", x, y)
			}
		}
	}
}

func TestUnmarshalPeaks_Invalid(t *testing.T) {
	if _, err := UnmarshalPeaks([]byte(`[{"x0":1,"y0":1,"amplitude":3,"sigma_x":0,"sigma_y":1}]`)); !errors.Is(err, ErrInvalidSpread) {
		t.Errorf("expected ErrInvalidSpread, got %v", err)
	}
	if _, err := UnmarshalPeaks([]byte(`{"x0":1}`)); err == nil {
		t.Error("expected decode error for non-array document")
	}
}

func TestFromPose(t *testing.T) {
	eta := dynamo.State{3, 7, 0, 0, 0, 1}
	x, y := FromPose(eta)
	if x != 7 || y != 3 {
		t.Errorf("FromPose = (%v, %v), want (7, 3)", x, y)
	}
	back := ToPose(x, y)
	if back[dynamo.North] != 3 || back[dynamo.East] != 7 {
		t.Errorf("ToPose = %v", back)
	}
}

func TestParseKind(t *testing.T) {
	if k, err := ParseKind(" Gaussian "); err != nil || k != Gaussian {
		t.Errorf("ParseKind gaussian = %v, %v", k, err)
	}
	if _, err := ParseKind("triangle"); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
}
