package automation

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/san-kum/slicksim/internal/config"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func base() *config.Config {
	c := config.DefaultConfig()
	c.Field.GridSize = 41
	c.Controller.Mu = 0.1
	c.SimTimeSec = 0.2
	return c
}

func TestLoadScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	data := `name: compare
description: laws side by side
steps:
  - name: ivan
    controller: intensity
    params:
      mu: 0.2
  - controller: matveev
    vehicles: 3
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	sc, err := LoadScenario(path)
	if err != nil {
		t.Fatal(err)
	}
	if sc.Name != "compare" || len(sc.Steps) != 2 {
		t.Fatalf("scenario = %+v", sc)
	}
	if sc.Steps[0].Params["mu"] != 0.2 || sc.Steps[1].Vehicles != 3 {
		t.Errorf("steps = %+v", sc.Steps)
	}
}

func TestLoadScenarioEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, []byte("name: empty\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadScenario(path); err == nil {
		t.Error("expected error for scenario without steps")
	}
}

func TestStepApply(t *testing.T) {
	b := base()
	cfg, err := ScenarioStep{Controller: "pid", Vehicle: "otter", Vehicles: 2, SimTime: 3, Params: map[string]float64{"pid.kp": 7}}.Apply(b)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Controller.Type != "pid" || cfg.Vehicles.Type != "otter" || cfg.Vehicles.Count != 2 {
		t.Errorf("cfg = %+v", cfg.Vehicles)
	}
	if cfg.SimTimeSec != 3 || cfg.Controller.PID.KP != 7 {
		t.Errorf("sim time %g kp %g", cfg.SimTimeSec, cfg.Controller.PID.KP)
	}
	if b.Controller.Type != "intensity" {
		t.Error("Apply modified the base configuration")
	}

	if _, err := (ScenarioStep{Params: map[string]float64{"nope": 1}}).Apply(b); err == nil {
		t.Error("expected error for unknown parameter")
	}
	if _, err := (ScenarioStep{Preset: "nope"}).Apply(b); err == nil {
		t.Error("expected error for unknown preset")
	}
}

func TestRunScenario(t *testing.T) {
	sc := &Scenario{Name: "pair", Steps: []ScenarioStep{
		{Name: "a", Controller: "intensity"},
		{Controller: "matveev", Cycles: 2},
	}}
	results, err := RunScenario(context.Background(), sc, base(), quiet)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results", len(results))
	}
	if results[0].Name != "a" || results[1].Name != "step_2" {
		t.Errorf("names %q %q", results[0].Name, results[1].Name)
	}
	if len(results[1].Runs) != 2 {
		t.Errorf("second step ran %d cycles", len(results[1].Runs))
	}
}

func TestRunScenarioStopsOnError(t *testing.T) {
	sc := &Scenario{Steps: []ScenarioStep{
		{Controller: "intensity"},
		{Controller: "bogus"},
		{Controller: "intensity"},
	}}
	results, err := RunScenario(context.Background(), sc, base(), quiet)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(results) != 1 {
		t.Errorf("completed %d steps before failing, want 1", len(results))
	}
}

func TestSweepValues(t *testing.T) {
	got, err := Sweep{Param: "mu", Min: 0, Max: 1, Steps: 5}.Values()
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0, 0.25, 0.5, 0.75, 1}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("values (-want +got):\n%s", diff)
	}
	if one, _ := (Sweep{Min: 3, Max: 9, Steps: 1}).Values(); len(one) != 1 || one[0] != 3 {
		t.Errorf("single step = %v", one)
	}
	if _, err := (Sweep{Steps: 0}).Values(); err == nil {
		t.Error("expected error for zero steps")
	}
}

func TestRunSweep(t *testing.T) {
	results, err := RunSweep(context.Background(), base(), Sweep{Param: "mu", Min: 0.1, Max: 1, Steps: 3}, quiet)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results", len(results))
	}
	if results[2].Value != 1 {
		t.Errorf("last value = %g", results[2].Value)
	}
	for _, r := range results {
		if !(r.MeanError > 0) {
			t.Errorf("mu=%g mean error %g", r.Value, r.MeanError)
		}
	}
}

func TestRunSweepUnknownParam(t *testing.T) {
	if _, err := RunSweep(context.Background(), base(), Sweep{Param: "nope", Steps: 2}, quiet); err == nil {
		t.Error("expected error for unknown parameter")
	}
}

func TestRunMonteCarlo(t *testing.T) {
	b := base()
	b.Vehicles.Count = 2
	res, err := RunMonteCarlo(context.Background(), b, MonteCarloConfig{Trials: 3, Seed: 7, Radius: 5, Tolerance: 100}, quiet)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 3 {
		t.Fatalf("got %d trials", len(res))
	}
	for _, r := range res {
		if len(r.Starts) != 2 {
			t.Errorf("trial %d starts = %v", r.TrialID, r.Starts)
		}
		for _, s := range r.Starts {
			if s[0]*s[0]+s[1]*s[1] > 25+1e-9 {
				t.Errorf("start %v outside radius", s)
			}
		}
	}
	if cmp.Equal(res[0].Starts, res[1].Starts) {
		t.Error("trials should draw different starts")
	}

	again, err := RunMonteCarlo(context.Background(), b, MonteCarloConfig{Trials: 3, Seed: 7, Radius: 5, Tolerance: 100}, quiet)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(res[2].Starts, again[2].Starts); diff != "" {
		t.Errorf("same seed differs:\n%s", diff)
	}
}

func TestMonteCarloStats(t *testing.T) {
	c, d := MonteCarloStats([]MonteCarloResult{{Converged: true}, {Converged: false}, {Converged: true}})
	if c != 2 || d != 1 {
		t.Errorf("stats = %d, %d", c, d)
	}
}
