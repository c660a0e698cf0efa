package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/slicksim/internal/field"
	"github.com/san-kum/slicksim/internal/sim"
)

const (
	mapWidth    = 60
	mapHeight   = 24
	chartWidth  = 48
	chartHeight = 8
	inkIsoline  = 1
	frameRate   = time.Second / 30
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Replay plays back a finished run over the field's contour set.
type Replay struct {
	res     *sim.Result
	series  sim.SeriesSource
	names   []string
	chart   int
	xs, ys  [][]float64
	contour []field.Point
	m       *Map
	step    int
	speed   int
	running bool
	title   string
}

func NewReplay(res *sim.Result, f *field.Field, extent float64) Replay {
	r := Replay{
		res:     res,
		contour: f.ContourPoints(),
		m:       NewMap(mapWidth, mapHeight, extent),
		speed:   1,
		running: true,
		title:   "run",
	}
	if res.Controller != nil {
		r.title = res.Controller.Name()
	}
	if src, ok := res.Controller.(sim.SeriesSource); ok {
		r.series = src
		r.names = src.SeriesNames()
	}
	r.xs = make([][]float64, len(res.Tracks))
	r.ys = make([][]float64, len(res.Tracks))
	for i, tr := range res.Tracks {
		r.xs[i] = make([]float64, tr.Len())
		r.ys[i] = make([]float64, tr.Len())
		for k := range r.xs[i] {
			r.xs[i][k], r.ys[i][k] = field.FromPose(tr.Pose(k))
		}
	}
	return r
}

func (r Replay) Step() int      { return r.step }
func (r Replay) Running() bool  { return r.running }
func (r Replay) Speed() int     { return r.speed }
func (r Replay) Series() string { return r.currentSeries() }

func (r Replay) last() int { return max(r.res.Steps-1, 0) }

func (r Replay) currentSeries() string {
	if len(r.names) == 0 {
		return ""
	}
	return r.names[r.chart%len(r.names)]
}

func (r Replay) Init() tea.Cmd { return tick() }

func (r Replay) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return r, tea.Quit
		case " ":
			r.running = !r.running
			if r.running && r.step >= r.last() {
				r.step = 0
			}
		case "r":
			r.step = 0
		case "[":
			r.running = false
			r.step = max(r.step-1, 0)
		case "]":
			r.running = false
			r.step = min(r.step+1, r.last())
		case "+", "=":
			r.speed = min(r.speed*2, 64)
		case "-", "_":
			r.speed = max(r.speed/2, 1)
		case "tab":
			r.chart++
		}
	case TickMsg:
		if r.running {
			r.step += r.speed
			if r.step >= r.last() {
				r.step = r.last()
				r.running = false
			}
		}
		return r, tick()
	}
	return r, nil
}

func (r Replay) draw() string {
	r.m.Clear()
	for _, p := range r.contour {
		r.m.Plot(p.X, p.Y, inkIsoline)
	}
	for i := range r.xs {
		end := min(r.step+1, len(r.xs[i]))
		r.m.Path(r.xs[i][:end], r.ys[i][:end], inkIsoline+1+i)
	}
	return r.m.Render(func(ink int, s string) string {
		if ink == inkIsoline {
			return Isoline.Render(s)
		}
		if i := ink - inkIsoline - 1; i >= 0 && i < len(r.res.Tracks) {
			return VehicleStyle(r.res.Tracks[i].Color).Render(s)
		}
		return s
	})
}

func (r Replay) seriesAt(name string, vehicle int) string {
	if r.series == nil {
		return "-"
	}
	rows, err := r.series.Series(name)
	if err != nil || vehicle >= len(rows) || r.step >= len(rows[vehicle]) {
		return "-"
	}
	return fmt.Sprintf("%.3f", rows[vehicle][r.step])
}

func (r Replay) View() string {
	var s strings.Builder
	s.WriteString(GradientText(strings.ToUpper(r.title), "#00ccff", "#ff00ff") + "\n\n")

	status := StatusRunning.Render("PLAYING")
	if !r.running {
		status = StatusPaused.Render("PAUSED")
	}
	fmt.Fprintf(&s, "%s  x%d\n", status, r.speed)
	s.WriteString(ProgressBar(float64(r.step)/float64(max(r.last(), 1)), 30) + "\n\n")
	s.WriteString(Label.Render("step") + Value.Render(fmt.Sprintf("%d/%d", r.step, r.last())) + "\n")
	s.WriteString(Label.Render("time") + Value.Render(fmt.Sprintf("%.2fs", r.res.Time(r.step))) + "\n\n")

	for i, tr := range r.res.Tracks {
		name := VehicleStyle(tr.Color).Render(fmt.Sprintf("%s %d", tr.Vehicle, tr.Serial))
		fmt.Fprintf(&s, "%s  f=%s σ=%s\n", name, r.seriesAt("intensity", i), r.seriesAt("sigmas", i))
	}

	if name := r.currentSeries(); name != "" {
		rows, _ := r.series.Series(name)
		upto := make([][]float64, len(rows))
		for i, row := range rows {
			upto[i] = row[:min(r.step+1, len(row))]
		}
		s.WriteString("\n" + Chart(upto, chartWidth, chartHeight, name) + "\n")
	}

	s.WriteString(KeyHint.Render("\nSP:Pause R:Restart Q:Quit\n[ ]:Step +-:Speed Tab:Series"))
	return lipgloss.JoinHorizontal(lipgloss.Top, Panel.Render(r.draw()), Panel.Render(s.String()))
}
