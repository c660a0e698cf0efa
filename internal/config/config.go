package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/san-kum/slicksim/internal/field"
	"gopkg.in/yaml.v3"
)

const CurrentVersion = 1

const (
	DefaultSampleTime       = 0.02
	DefaultSimTime          = 10.0
	DefaultCycles           = 1
	DefaultVehicleType      = "dubins"
	DefaultVehicleCount     = 1
	DefaultRadius           = 10.0
	DefaultFieldKind        = "gaussian"
	DefaultTargetIsoline    = 15.0
	DefaultAxisAbsMax       = 30.0
	DefaultGridSize         = 500
	DefaultContourTolerance = 1.0
	DefaultController       = "intensity"
	DefaultMu               = 0.1
	DefaultEps              = 0.1
	DefaultErrorMaxCap      = 30.0
	DefaultSmoothing        = 0.99
	DefaultOutputDir        = "data"
	DefaultFPS              = 30
)

var ErrInvalid = errors.New("config: invalid configuration")

type Config struct {
	Version    int              `yaml:"version" json:"version"`
	SampleTime float64          `yaml:"sample_time" json:"sample_time"`
	SimTimeSec float64          `yaml:"sim_time_sec" json:"sim_time_sec"`
	Steps      int              `yaml:"steps,omitempty" json:"steps,omitempty"`
	Cycles     int              `yaml:"cycles" json:"cycles"`
	Seed       uint64           `yaml:"seed" json:"seed"`
	Parallel   bool             `yaml:"parallel" json:"parallel"`
	Vehicles   VehicleConfig    `yaml:"vehicles" json:"vehicles"`
	Field      FieldConfig      `yaml:"field" json:"field"`
	Controller ControllerConfig `yaml:"controller" json:"controller"`
	Output     OutputConfig     `yaml:"output" json:"output"`
}

type VehicleConfig struct {
	Type        string       `yaml:"type" json:"type"`
	Count       int          `yaml:"count" json:"count"`
	StartPoints [][2]float64 `yaml:"start_points,omitempty" json:"start_points,omitempty"`
	Radius      float64      `yaml:"radius" json:"radius"`
	Shift       [2]float64   `yaml:"shift" json:"shift"`
	Integrator  string       `yaml:"integrator,omitempty" json:"integrator,omitempty"`

	// CurrentDirection is in degrees, counter-clockwise from east.
	CurrentSpeed     float64 `yaml:"current_speed" json:"current_speed"`
	CurrentDirection float64 `yaml:"current_direction" json:"current_direction"`
}

type FieldConfig struct {
	Kind             string       `yaml:"kind" json:"kind"`
	PeaksFile        string       `yaml:"peaks_file,omitempty" json:"peaks_file,omitempty"`
	Peaks            []field.Peak `yaml:"peaks,omitempty" json:"peaks,omitempty"`
	TargetIsoline    float64      `yaml:"target_isoline" json:"target_isoline"`
	AxisAbsMax       float64      `yaml:"axis_abs_max" json:"axis_abs_max"`
	GridSize         int          `yaml:"grid_size" json:"grid_size"`
	Shift            field.Shift  `yaml:"shift" json:"shift"`
	ContourLevel     float64      `yaml:"contour_level" json:"contour_level"`
	ContourTolerance float64      `yaml:"contour_tolerance" json:"contour_tolerance"`
}

type ControllerConfig struct {
	Type            string    `yaml:"type" json:"type"`
	Law             string    `yaml:"law,omitempty" json:"law,omitempty"`
	Actuation       string    `yaml:"actuation,omitempty" json:"actuation,omitempty"`
	Mu              float64   `yaml:"mu" json:"mu"`
	F0              float64   `yaml:"f0" json:"f0"`
	Eps             float64   `yaml:"eps" json:"eps"`
	ErrorMaxCap     float64   `yaml:"error_max_cap" json:"error_max_cap"`
	DynamicErrorMax bool      `yaml:"dynamic_error_max" json:"dynamic_error_max"`
	Smoothing       float64   `yaml:"smoothing" json:"smoothing"`
	PID             PIDConfig `yaml:"pid" json:"pid"`
	Nonlinear       NLConfig  `yaml:"nonlinear" json:"nonlinear"`
}

type PIDConfig struct {
	V0   float64 `yaml:"v0" json:"v0"`
	KP   float64 `yaml:"kp" json:"kp"`
	KI   float64 `yaml:"ki" json:"ki"`
	KRot float64 `yaml:"k_rot" json:"k_rot"`
}

// NLConfig shapes the nonlinear forward actuation: the forward part is
// Base - Depth*exp(-Width*f^2), the rotation part KRot*sigma.
type NLConfig struct {
	Base  float64 `yaml:"base" json:"base"`
	Depth float64 `yaml:"depth" json:"depth"`
	Width float64 `yaml:"width" json:"width"`
	KRot  float64 `yaml:"k_rot" json:"k_rot"`
}

type OutputConfig struct {
	Dir        string `yaml:"dir" json:"dir"`
	PlotConfig string `yaml:"plot_config,omitempty" json:"plot_config,omitempty"`
	StorePlots bool   `yaml:"store_plots" json:"store_plots"`
	FPS        int    `yaml:"fps" json:"fps"`
}

func DefaultConfig() *Config {
	return &Config{
		Version:    CurrentVersion,
		SampleTime: DefaultSampleTime,
		SimTimeSec: DefaultSimTime,
		Cycles:     DefaultCycles,
		Vehicles: VehicleConfig{
			Type:   DefaultVehicleType,
			Count:  DefaultVehicleCount,
			Radius: DefaultRadius,
		},
		Field: FieldConfig{
			Kind:             DefaultFieldKind,
			Peaks:            []field.Peak{{X0: 10, Y0: 10, Amplitude: 30, SigmaX: 5, SigmaY: 5}},
			TargetIsoline:    DefaultTargetIsoline,
			AxisAbsMax:       DefaultAxisAbsMax,
			GridSize:         DefaultGridSize,
			ContourTolerance: DefaultContourTolerance,
		},
		Controller: ControllerConfig{
			Type:            DefaultController,
			Mu:              DefaultMu,
			Eps:             DefaultEps,
			ErrorMaxCap:     DefaultErrorMaxCap,
			DynamicErrorMax: true,
			Smoothing:       DefaultSmoothing,
			PID: PIDConfig{
				V0:   20,
				KP:   15,
				KI:   30,
				KRot: 30,
			},
			Nonlinear: NLConfig{
				Base:  100,
				Depth: 80,
				Width: 0.01,
				KRot:  30,
			},
		},
		Output: OutputConfig{
			Dir: DefaultOutputDir,
			FPS: DefaultFPS,
		},
	}
}

// Load reads a YAML or JSON (by .json extension) run configuration over the
// defaults and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Clone() *Config {
	out := *c
	out.Vehicles.StartPoints = append([][2]float64(nil), c.Vehicles.StartPoints...)
	out.Field.Peaks = append([]field.Peak(nil), c.Field.Peaks...)
	return &out
}

func (c *Config) Validate() error {
	if c.Version == 0 {
		c.Version = CurrentVersion
	}
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}
	check(c.Version == CurrentVersion, "version %d is not supported", c.Version)
	check(c.SampleTime > 0, "sample_time must be positive, got %g", c.SampleTime)
	check(c.Steps > 0 || c.SimTimeSec >= 0, "sim_time_sec must not be negative, got %g", c.SimTimeSec)
	check(c.Cycles >= 1, "cycles must be at least 1, got %d", c.Cycles)
	check(c.Vehicles.Count >= 1, "vehicles.count must be at least 1, got %d", c.Vehicles.Count)
	check(c.Vehicles.Radius >= 0, "vehicles.radius must not be negative")
	check(c.Field.GridSize >= 2, "field.grid_size must be at least 2, got %d", c.Field.GridSize)
	check(c.Field.AxisAbsMax > 0, "field.axis_abs_max must be positive, got %g", c.Field.AxisAbsMax)
	check(c.Field.ContourTolerance > 0, "field.contour_tolerance must be positive")
	check(c.Controller.Smoothing >= 0 && c.Controller.Smoothing <= 1, "controller.smoothing must be in [0, 1], got %g", c.Controller.Smoothing)
	check(c.Controller.Eps >= 0, "controller.eps must not be negative")
	check(c.Controller.ErrorMaxCap >= 0, "controller.error_max_cap must not be negative")
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// StepCount mirrors the controller's round(sim_time/sample_time)+1 rule.
func (c *Config) StepCount() int {
	if c.Steps > 0 {
		return c.Steps
	}
	if !(c.SampleTime > 0) {
		return 0
	}
	return int(math.Round(c.SimTimeSec/c.SampleTime)) + 1
}

// StartingPoints returns one (x, y) per vehicle. Explicit points are used
// when their count matches; a single vehicle otherwise starts at the
// origin; larger fleets are scattered inside a disc of Radius.
func (c *Config) StartingPoints(rng *rand.Rand) [][2]float64 {
	n := c.Vehicles.Count
	if len(c.Vehicles.StartPoints) == n {
		return append([][2]float64(nil), c.Vehicles.StartPoints...)
	}
	if n == 1 {
		return [][2]float64{{0, 0}}
	}
	pts := make([][2]float64, n)
	for i := range pts {
		angle := rng.Float64() * 2 * math.Pi
		r := c.Vehicles.Radius * (0.1 + 0.9*rng.Float64())
		pts[i] = [2]float64{r * math.Cos(angle), r * math.Sin(angle)}
	}
	return pts
}

// Peaks returns the literal peaks, or the contents of PeaksFile when set.
// Relative peak files resolve against base.
func (c *Config) Peaks(base string) ([]field.Peak, error) {
	if c.Field.PeaksFile == "" {
		return c.Field.Peaks, nil
	}
	path := c.Field.PeaksFile
	if !filepath.IsAbs(path) && base != "" {
		path = filepath.Join(base, path)
	}
	return field.LoadPeaks(path)
}

// FieldOptions assembles field construction options from the configuration.
func (c *Config) FieldOptions(base string) (field.Options, error) {
	kind, err := field.ParseKind(c.Field.Kind)
	if err != nil {
		return field.Options{}, err
	}
	peaks, err := c.Peaks(base)
	if err != nil {
		return field.Options{}, err
	}
	return field.Options{
		Kind:          kind,
		Peaks:         peaks,
		Shift:         c.Field.Shift,
		TargetIsoline: c.Field.TargetIsoline,
		AxisAbsMax:    c.Field.AxisAbsMax,
		GridSize:      c.Field.GridSize,
	}, nil
}

// CurrentRadians is the current direction converted to radians.
func (c *Config) CurrentRadians() float64 {
	return c.Vehicles.CurrentDirection * math.Pi / 180
}

func (c *Config) params() map[string]*float64 {
	return map[string]*float64{
		"mu":              &c.Controller.Mu,
		"f0":              &c.Controller.F0,
		"eps":             &c.Controller.Eps,
		"smoothing":       &c.Controller.Smoothing,
		"error_max_cap":   &c.Controller.ErrorMaxCap,
		"pid.v0":          &c.Controller.PID.V0,
		"pid.kp":          &c.Controller.PID.KP,
		"pid.ki":          &c.Controller.PID.KI,
		"pid.k_rot":       &c.Controller.PID.KRot,
		"nonlinear.base":  &c.Controller.Nonlinear.Base,
		"nonlinear.depth": &c.Controller.Nonlinear.Depth,
		"nonlinear.width": &c.Controller.Nonlinear.Width,
		"nonlinear.k_rot": &c.Controller.Nonlinear.KRot,
		"target_isoline":  &c.Field.TargetIsoline,
		"sample_time":     &c.SampleTime,
		"current_speed":   &c.Vehicles.CurrentSpeed,
	}
}

// ParamNames lists the numeric parameters accepted by Set and Get.
func ParamNames() []string {
	names := make([]string, 0, 16)
	for name := range (&Config{}).params() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Set assigns a numeric parameter by name, used by sweeps and searches.
func (c *Config) Set(name string, v float64) error {
	p, ok := c.params()[name]
	if !ok {
		return fmt.Errorf("%w: unknown parameter %q", ErrInvalid, name)
	}
	*p = v
	return nil
}

func (c *Config) Get(name string) (float64, error) {
	p, ok := c.params()[name]
	if !ok {
		return 0, fmt.Errorf("%w: unknown parameter %q", ErrInvalid, name)
	}
	return *p, nil
}
