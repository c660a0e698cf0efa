package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/slicksim/internal/config"
	"github.com/san-kum/slicksim/internal/control"
	"github.com/san-kum/slicksim/internal/field"
	"github.com/san-kum/slicksim/internal/metrics"
	"github.com/san-kum/slicksim/internal/sim"
	"github.com/san-kum/slicksim/internal/vehicle"
)

// Build is everything a controller factory may draw on.
type Build struct {
	Field    *field.Field
	Vehicles []vehicle.Vehicle
	Config   *config.Config
	Seed     uint64
}

type ControllerFactory func(b Build) (sim.Controller, error)

// Preset pairs a law with an actuation under one controller name.
type Preset struct {
	Law       string
	Actuation string
}

type Registry struct {
	laws        map[string]func(config.ControllerConfig) control.Law
	actuations  map[string]func(config.ControllerConfig) control.Actuation
	presets     map[string]Preset
	controllers map[string]ControllerFactory
}

func NewRegistry() *Registry {
	r := &Registry{
		laws:        make(map[string]func(config.ControllerConfig) control.Law),
		actuations:  make(map[string]func(config.ControllerConfig) control.Actuation),
		presets:     make(map[string]Preset),
		controllers: make(map[string]ControllerFactory),
	}

	r.laws["ivan"] = func(c config.ControllerConfig) control.Law { return control.Ivan{Mu: c.Mu, F0: c.F0} }
	r.laws["berman"] = func(c config.ControllerConfig) control.Law { return control.Berman{Mu: c.Mu, F0: c.F0} }
	r.laws["matveev"] = func(c config.ControllerConfig) control.Law { return control.Matveev{Mu: c.Mu, F0: c.F0} }

	r.actuations["bang_bang"] = func(config.ControllerConfig) control.Actuation { return control.BangBang{} }
	r.actuations["pid"] = func(c config.ControllerConfig) control.Actuation {
		return control.PIDForward{V0: c.PID.V0, KP: c.PID.KP, KI: c.PID.KI, KRot: c.PID.KRot}
	}
	r.actuations["nonlinear"] = func(c config.ControllerConfig) control.Actuation {
		nl := c.Nonlinear
		return control.NonlinearForward{Base: nl.Base, Depth: nl.Depth, Width: nl.Width, KRot: nl.KRot}
	}

	r.presets["intensity"] = Preset{Law: "ivan", Actuation: "bang_bang"}
	r.presets["berman"] = Preset{Law: "berman", Actuation: "bang_bang"}
	r.presets["matveev"] = Preset{Law: "matveev", Actuation: "bang_bang"}
	r.presets["nonlinear"] = Preset{Law: "matveev", Actuation: "nonlinear"}
	r.presets["pid"] = Preset{Law: "matveev", Actuation: "pid"}

	r.controllers["swarm"] = func(b Build) (sim.Controller, error) {
		return control.NewSwarm(b.Field, b.Vehicles, controlConfig(b.Config), b.Seed)
	}

	return r
}

func controlConfig(c *config.Config) control.Config {
	return control.Config{
		SampleTime:      c.SampleTime,
		SimTime:         c.SimTimeSec,
		Steps:           c.Steps,
		Eps:             c.Controller.Eps,
		ErrorMaxCap:     c.Controller.ErrorMaxCap,
		DynamicErrorMax: c.Controller.DynamicErrorMax,
		Smoothing:       c.Controller.Smoothing,
	}
}

// GetController builds the controller named by b.Config.Controller.Type.
// For law-based controllers the law and actuation fields override the
// preset's choice.
func (r *Registry) GetController(b Build) (sim.Controller, error) {
	cc := b.Config.Controller
	if fn, ok := r.controllers[cc.Type]; ok {
		return fn(b)
	}
	p, ok := r.presets[cc.Type]
	if !ok {
		return nil, fmt.Errorf("unknown controller: %s", cc.Type)
	}
	if cc.Law != "" {
		p.Law = cc.Law
	}
	if cc.Actuation != "" {
		p.Actuation = cc.Actuation
	}
	lawFn, ok := r.laws[p.Law]
	if !ok {
		return nil, fmt.Errorf("unknown law: %s", p.Law)
	}
	actFn, ok := r.actuations[p.Actuation]
	if !ok {
		return nil, fmt.Errorf("unknown actuation: %s", p.Actuation)
	}
	return control.New(b.Field, b.Vehicles, lawFn(cc), actFn(cc), controlConfig(b.Config))
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) ListControllers() []string {
	names := sortedKeys(r.presets)
	names = append(names, sortedKeys(r.controllers)...)
	sort.Strings(names)
	return names
}

func (r *Registry) ListLaws() []string       { return sortedKeys(r.laws) }
func (r *Registry) ListActuations() []string { return sortedKeys(r.actuations) }

func (r *Registry) DefaultMetrics(cfg *config.Config, f *field.Field) []sim.Metric {
	return []sim.Metric{
		metrics.NewControlEffort(),
		metrics.NewPathLength(),
		metrics.NewContainment(cfg.Field.AxisAbsMax),
		metrics.NewIsolineDistance(f),
	}
}
