package sim

import (
	"fmt"

	"github.com/san-kum/slicksim/internal/dynamo"
)

// Controller produces one command per vehicle each step.
type Controller interface {
	Name() string
	Steps() int
	SampleTime() float64
	GenerateControl(poses []dynamo.State, step int, velocities []dynamo.State) ([]dynamo.Control, error)
}

// SeriesSource is implemented by controllers that record named history arrays.
type SeriesSource interface {
	Series(name string) ([][]float64, error)
	SeriesNames() []string
}

// Metric accumulates a scalar over a run. Observe is called once per vehicle
// per step, in vehicle order, after the step has been applied.
type Metric interface {
	Name() string
	Observe(vehicle int, pose, velocity dynamo.State, command dynamo.Control, t float64)
	Value() float64
	Reset()
}

// Observer is told about progress. It must not affect the run.
type Observer interface {
	OnStep(step, total int)
}

type ObserverFunc func(step, total int)

func (f ObserverFunc) OnStep(step, total int) { f(step, total) }

// Track is the per-step signal record of one vehicle. Each row holds
// pose, velocity, command and actual actuator state.
type Track struct {
	Serial     int
	Vehicle    string
	Color      string
	ControlDim int
	Rows       [][]float64
}

func newTrack(serial int, name, color string, dimU, steps int) Track {
	width := 2*dynamo.DOF + 2*dimU
	rows := make([][]float64, steps)
	buf := make([]float64, steps*width)
	for k := range rows {
		rows[k] = buf[k*width : (k+1)*width : (k+1)*width]
	}
	return Track{Serial: serial, Vehicle: name, Color: color, ControlDim: dimU, Rows: rows}
}

func (t Track) record(k int, eta, nu dynamo.State, command, actual dynamo.Control) {
	row := t.Rows[k]
	copy(row[0:dynamo.DOF], eta)
	copy(row[dynamo.DOF:2*dynamo.DOF], nu)
	copy(row[2*dynamo.DOF:2*dynamo.DOF+t.ControlDim], command)
	copy(row[2*dynamo.DOF+t.ControlDim:], actual)
}

func (t Track) Len() int { return len(t.Rows) }

func (t Track) Pose(k int) dynamo.State {
	return dynamo.State(t.Rows[k][0:dynamo.DOF]).Clone()
}

func (t Track) Velocity(k int) dynamo.State {
	return dynamo.State(t.Rows[k][dynamo.DOF : 2*dynamo.DOF]).Clone()
}

func (t Track) Command(k int) dynamo.Control {
	return dynamo.Control(t.Rows[k][2*dynamo.DOF : 2*dynamo.DOF+t.ControlDim]).Clone()
}

func (t Track) Actual(k int) dynamo.Control {
	return dynamo.Control(t.Rows[k][2*dynamo.DOF+t.ControlDim:]).Clone()
}

var poseColumns = []string{"north", "east", "depth", "roll", "pitch", "yaw"}

// Columns names the row layout.
func (t Track) Columns() []string {
	cols := make([]string, 0, 2*dynamo.DOF+2*t.ControlDim)
	cols = append(cols, poseColumns...)
	for _, c := range poseColumns {
		cols = append(cols, "v_"+c)
	}
	for i := 0; i < t.ControlDim; i++ {
		cols = append(cols, fmt.Sprintf("u_control_%d", i))
	}
	for i := 0; i < t.ControlDim; i++ {
		cols = append(cols, fmt.Sprintf("u_actual_%d", i))
	}
	return cols
}

type Result struct {
	Tracks     []Track
	FinalPoses []dynamo.State
	SampleTime float64
	Steps      int
	Metrics    map[string]float64
	Controller Controller
}

// Time is the simulated time at step k.
func (r *Result) Time(k int) float64 { return float64(k) * r.SampleTime }
