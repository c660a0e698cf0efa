package config

import (
	"sort"

	"github.com/san-kum/slicksim/internal/field"
)

var Presets = map[string]func() *Config{
	"single": DefaultConfig,
	"gentle": func() *Config {
		c := DefaultConfig()
		c.Controller.Mu = 0.05
		c.SimTimeSec = 30
		return c
	},
	"fleet": func() *Config {
		c := DefaultConfig()
		c.Vehicles.Count = 5
		c.Vehicles.Radius = 12
		c.Parallel = true
		c.SimTimeSec = 30
		return c
	},
	"matveev": func() *Config {
		c := DefaultConfig()
		c.Controller.Type = "matveev"
		driftCurrent(c)
		c.Vehicles.StartPoints = [][2]float64{{0, 0}}
		c.SimTimeSec = 30
		return c
	},
	"pid": func() *Config {
		c := DefaultConfig()
		c.Controller.Type = "pid"
		driftCurrent(c)
		c.Vehicles.Type = "otter"
		c.Vehicles.Integrator = "rk4"
		c.SimTimeSec = 60
		return c
	},
	"nonlinear": func() *Config {
		c := DefaultConfig()
		c.Controller.Type = "nonlinear"
		driftCurrent(c)
		c.Vehicles.Type = "otter"
		c.SimTimeSec = 60
		return c
	},
	"parabolic": func() *Config {
		c := DefaultConfig()
		c.Field.Kind = "parabolic"
		c.Field.Peaks = []field.Peak{
			{X0: 8, Y0: 8, Amplitude: 20, SigmaX: 6, SigmaY: 4},
			{X0: -10, Y0: 5, Amplitude: 12, SigmaX: 3, SigmaY: 3},
		}
		c.Field.TargetIsoline = 5
		c.Controller.Mu = 0.2
		c.SimTimeSec = 30
		return c
	},
	"swarm": func() *Config {
		c := DefaultConfig()
		c.Controller.Type = "swarm"
		c.Vehicles.Count = 6
		c.Vehicles.Radius = 15
		c.Seed = 42
		c.SimTimeSec = 30
		return c
	},
	"current": func() *Config {
		c := DefaultConfig()
		c.Controller.Type = "matveev"
		c.Vehicles.CurrentSpeed = 0.3
		c.Vehicles.CurrentDirection = 90
		c.SimTimeSec = 30
		return c
	},
}

// driftCurrent gives velocity-coupled presets a slow northward current. A
// vehicle at rest in still water sees d = 0 and ds = 0, so sigma = 0 and it
// never leaves its start point.
func driftCurrent(c *Config) {
	c.Vehicles.CurrentSpeed = 0.2
	c.Vehicles.CurrentDirection = 90
}

// GetPreset returns a fresh copy of the named preset, or nil.
func GetPreset(name string) *Config {
	fn, ok := Presets[name]
	if !ok {
		return nil
	}
	return fn()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
