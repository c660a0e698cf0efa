package plot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/san-kum/slicksim/internal/control"
)

var (
	ErrUnknownSeries = errors.New("plot: unknown series")
	ErrUnknownKind   = errors.New("plot: unknown plot kind")
	ErrLength        = errors.New("plot: axis lengths differ")
)

const (
	AxisTime = "time"
	AxisStep = "step"
)

// Axis is either a named series or a literal array.
type Axis struct {
	Name   string
	Values []float64
}

func (a Axis) Literal() bool { return a.Name == "" }

func (a Axis) MarshalJSON() ([]byte, error) {
	if a.Literal() {
		return json.Marshal(a.Values)
	}
	return json.Marshal(a.Name)
}

func (a *Axis) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		a.Values = nil
		return json.Unmarshal(data, &a.Name)
	}
	a.Name = ""
	return json.Unmarshal(data, &a.Values)
}

type Spec struct {
	X      Axis   `json:"x"`
	Y      Axis   `json:"y"`
	XLabel string `json:"x_label"`
	YLabel string `json:"y_label"`
	Title  string `json:"title"`
	Legend bool   `json:"legend"`
	Kind   string `json:"kind,omitempty"`
}

// Config maps an output name to what it plots.
type Config map[string]Spec

func series(name string) Spec {
	return Spec{
		X:      Axis{Name: AxisTime},
		Y:      Axis{Name: name},
		XLabel: "t, s",
		YLabel: name,
		Title:  name,
		Legend: true,
	}
}

func DefaultConfig() Config {
	return Config{
		"intensity":   series(control.SeriesIntensity),
		"errors_norm": series(control.SeriesErrorsNorm),
		"sigmas":      series(control.SeriesSigmas),
		"der":         series(control.SeriesDer),
		"mu_tanh":     series(control.SeriesMuTanh),
		"quality":     series(control.SeriesQuality),
	}
}

func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("plot: %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
