package config

import (
	"errors"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/san-kum/slicksim/internal/field"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != CurrentVersion {
		t.Errorf("expected version %d, got %d", CurrentVersion, cfg.Version)
	}
	if cfg.SampleTime <= 0 {
		t.Error("sample_time should be positive")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
	if got := cfg.StepCount(); got != 501 {
		t.Errorf("expected 501 steps, got %d", got)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Vehicles.Count = 2
	cfg.Vehicles.StartPoints = [][2]float64{{1, 2}, {-3, 4}}
	cfg.Controller.Type = "pid"
	cfg.Field.Shift = field.Shift{DX: 1, DY: -1, DZ: 0.5}

	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	doc := `{
	"sample_time": 0.05,
	"sim_time_sec": 2,
	"vehicles": {"type": "otter", "count": 3, "radius": 4},
	"controller": {"type": "matveev", "mu": 0.5}
}`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SampleTime != 0.05 || cfg.Vehicles.Type != "otter" || cfg.Controller.Mu != 0.5 {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.Controller.Smoothing != DefaultSmoothing {
		t.Errorf("defaults not kept: smoothing=%v", cfg.Controller.Smoothing)
	}
	if cfg.StepCount() != 41 {
		t.Errorf("StepCount = %d, want 41", cfg.StepCount())
	}
}

func TestLoad_NonlinearBlock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	doc := "controller:\n  type: nonlinear\n  nonlinear:\n    depth: 5\n    width: 0.5\n"
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want := NLConfig{Base: 100, Depth: 5, Width: 0.5, KRot: 30}
	if diff := cmp.Diff(want, cfg.Controller.Nonlinear); diff != "" {
		t.Errorf("nonlinear block (-want +got):\n%s", diff)
	}
	if err := cfg.Set("nonlinear.base", 60); err != nil {
		t.Fatal(err)
	}
	if cfg.Controller.Nonlinear.Base != 60 {
		t.Errorf("base after Set = %g, want 60", cfg.Controller.Nonlinear.Base)
	}
}

func TestDefaultGainAndPresetCurrents(t *testing.T) {
	if got := DefaultConfig().Controller.Mu; got != DefaultMu {
		t.Errorf("default mu = %g, want %g", got, DefaultMu)
	}
	for _, name := range []string{"matveev", "nonlinear", "pid"} {
		if GetPreset(name).Vehicles.CurrentSpeed <= 0 {
			t.Errorf("preset %s has no current", name)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero sample time", func(c *Config) { c.SampleTime = 0 }},
		{"no vehicles", func(c *Config) { c.Vehicles.Count = 0 }},
		{"zero cycles", func(c *Config) { c.Cycles = 0 }},
		{"tiny grid", func(c *Config) { c.Field.GridSize = 1 }},
		{"bad smoothing", func(c *Config) { c.Controller.Smoothing = 2 }},
		{"future version", func(c *Config) { c.Version = 7 }},
		{"negative sim time", func(c *Config) { c.SimTimeSec = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestStartingPoints(t *testing.T) {
	cfg := DefaultConfig()
	rng := rand.New(rand.NewPCG(1, 2))

	if got := cfg.StartingPoints(rng); !cmp.Equal(got, [][2]float64{{0, 0}}) {
		t.Errorf("single vehicle start = %v", got)
	}

	cfg.Vehicles.Count = 2
	cfg.Vehicles.StartPoints = [][2]float64{{1, 1}, {2, 2}}
	if got := cfg.StartingPoints(rng); !cmp.Equal(got, cfg.Vehicles.StartPoints) {
		t.Errorf("explicit starts = %v", got)
	}

	cfg.Vehicles.Count = 50
	cfg.Vehicles.Radius = 10
	pts := cfg.StartingPoints(rng)
	if len(pts) != 50 {
		t.Fatalf("got %d points", len(pts))
	}
	for _, p := range pts {
		r := math.Hypot(p[0], p[1])
		if r < 1-1e-9 || r > 10+1e-9 {
			t.Errorf("point %v at radius %v outside [1, 10]", p, r)
		}
	}
	a := cfg.StartingPoints(rand.New(rand.NewPCG(9, 9)))
	b := cfg.StartingPoints(rand.New(rand.NewPCG(9, 9)))
	if !cmp.Equal(a, b) {
		t.Error("same seed produced different points")
	}
}

func TestSetGet(t *testing.T) {
	cfg := DefaultConfig()
	for _, name := range ParamNames() {
		if err := cfg.Set(name, 0.75); err != nil {
			t.Fatalf("Set(%q): %v", name, err)
		}
		v, err := cfg.Get(name)
		if err != nil || v != 0.75 {
			t.Errorf("Get(%q) = %v, %v", name, v, err)
		}
	}
	if err := cfg.Set("gravity", 1); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestPeaksFile(t *testing.T) {
	dir := t.TempDir()
	peaks := []field.Peak{{X0: 1, Y0: 2, Amplitude: 3, SigmaX: 4, SigmaY: 5}}
	if err := field.SavePeaks(filepath.Join(dir, "peaks.json"), peaks); err != nil {
		t.Fatal(err)
	}
	cfg := DefaultConfig()
	cfg.Field.PeaksFile = "peaks.json"
	opts, err := cfg.FieldOptions(dir)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(peaks, opts.Peaks); diff != "" {
		t.Errorf("peaks mismatch (-want +got):\n%s", diff)
	}

	cfg.Field.PeaksFile = "missing.json"
	if _, err := cfg.FieldOptions(dir); err == nil {
		t.Error("expected error for missing peak file")
	}
}

func TestGetPreset(t *testing.T) {
	for _, name := range ListPresets() {
		cfg := GetPreset(name)
		if cfg == nil {
			t.Fatalf("preset %q is nil", name)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("preset %q invalid: %v", name, err)
		}
	}
	a := GetPreset("fleet")
	a.Vehicles.Count = 99
	if GetPreset("fleet").Vehicles.Count == 99 {
		t.Error("presets must not share state")
	}
	if GetPreset("nonexistent") != nil {
		t.Error("expected nil for nonexistent preset")
	}
}
