package storage

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"github.com/san-kum/slicksim/internal/config"
	"github.com/san-kum/slicksim/internal/control"
	"github.com/san-kum/slicksim/internal/dynamo"
	"github.com/san-kum/slicksim/internal/field"
	"github.com/san-kum/slicksim/internal/metrics"
	"github.com/san-kum/slicksim/internal/sim"
)

const (
	metadataFile = "metadata.json"
	configFile   = "config.yaml"
	fieldFile    = "field.json"
	seriesFile   = "series.csv"
	tracksDir    = "tracks"
	runPrefix    = "experiment_"
	stampLayout  = "20060102_150405"
)

var ErrNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
	now     func() time.Time
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, now: time.Now}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

// Record is one finished cycle together with what produced it.
type Record struct {
	Cycle   int
	Config  *config.Config
	Field   *field.Field
	Result  *sim.Result
	Summary metrics.Summary
}

type RunMetadata struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	Timestamp     time.Time          `json:"timestamp"`
	Cycle         int                `json:"cycle"`
	Controller    string             `json:"controller"`
	VehicleType   string             `json:"vehicle_type"`
	Vehicles      int                `json:"vehicles"`
	FieldKind     string             `json:"field_kind"`
	TargetIsoline float64            `json:"target_isoline"`
	SampleTime    float64            `json:"sample_time"`
	Steps         int                `json:"steps"`
	Seed          uint64             `json:"seed"`
	Series        []string           `json:"series"`
	Metrics       map[string]float64 `json:"metrics"`
	Summary       map[string]float64 `json:"summary"`
}

// TrackRecord is one CSV row of tracks/vehicle_<serial>.csv.
type TrackRecord struct {
	Step     int     `csv:"step"`
	Time     float64 `csv:"time"`
	North    float64 `csv:"north"`
	East     float64 `csv:"east"`
	Depth    float64 `csv:"depth"`
	Roll     float64 `csv:"roll"`
	Pitch    float64 `csv:"pitch"`
	Yaw      float64 `csv:"yaw"`
	VNorth   float64 `csv:"v_north"`
	VEast    float64 `csv:"v_east"`
	VDepth   float64 `csv:"v_depth"`
	VRoll    float64 `csv:"v_roll"`
	VPitch   float64 `csv:"v_pitch"`
	VYaw     float64 `csv:"v_yaw"`
	Control0 float64 `csv:"u_control_0"`
	Control1 float64 `csv:"u_control_1"`
	Actual0  float64 `csv:"u_actual_0"`
	Actual1  float64 `csv:"u_actual_1"`
}

// Pose returns the row's η.
func (r TrackRecord) Pose() dynamo.State {
	return dynamo.State{r.North, r.East, r.Depth, r.Roll, r.Pitch, r.Yaw}
}

// SeriesRecord is one CSV row of series.csv. Series the controller did not
// record are NaN.
type SeriesRecord struct {
	Step         int     `csv:"step"`
	Time         float64 `csv:"time"`
	Vehicle      int     `csv:"vehicle"`
	Intensity    float64 `csv:"intensity"`
	Der          float64 `csv:"der"`
	MuTanh       float64 `csv:"mu_tanh"`
	Sigmas       float64 `csv:"sigmas"`
	ErrorsNorm   float64 `csv:"errors_norm"`
	ErrorsMax    float64 `csv:"errors_max"`
	Quality      float64 `csv:"quality"`
	TimesOutside float64 `csv:"times_outside"`
	DS           float64 `csv:"ds"`
}

func (r *SeriesRecord) slots() map[string]*float64 {
	return map[string]*float64{
		control.SeriesIntensity:    &r.Intensity,
		control.SeriesDer:          &r.Der,
		control.SeriesMuTanh:       &r.MuTanh,
		control.SeriesSigmas:       &r.Sigmas,
		control.SeriesErrorsNorm:   &r.ErrorsNorm,
		control.SeriesErrorsMax:    &r.ErrorsMax,
		control.SeriesQuality:      &r.Quality,
		control.SeriesTimesOutside: &r.TimesOutside,
		control.SeriesDS:           &r.DS,
	}
}

func finite(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[k] = v
		}
	}
	return out
}

func (s *Store) runDir(name string) string {
	return filepath.Join(s.baseDir, name)
}

func (s *Store) allocate(cycle int) (string, error) {
	name := fmt.Sprintf("%s%s_%d", runPrefix, s.now().Format(stampLayout), cycle)
	if _, err := os.Stat(s.runDir(name)); err == nil {
		name = fmt.Sprintf("%s_%s", name, uuid.NewString()[:8])
	}
	if err := os.MkdirAll(filepath.Join(s.runDir(name), tracksDir), 0755); err != nil {
		return "", err
	}
	return name, nil
}

// Save writes one run directory and returns its name.
func (s *Store) Save(rec Record) (string, error) {
	if rec.Result == nil || rec.Config == nil {
		return "", errors.New("storage: record needs a result and a config")
	}
	name, err := s.allocate(rec.Cycle)
	if err != nil {
		return "", err
	}
	dir := s.runDir(name)

	summary := make(map[string]float64)
	for _, n := range metrics.SummaryNames() {
		v, _ := rec.Summary.Get(n)
		summary[n] = v
	}

	meta := RunMetadata{
		ID:          uuid.New().String(),
		Name:        name,
		Timestamp:   s.now(),
		Cycle:       rec.Cycle,
		VehicleType: rec.Config.Vehicles.Type,
		Vehicles:    len(rec.Result.Tracks),
		SampleTime:  rec.Result.SampleTime,
		Steps:       rec.Result.Steps,
		Seed:        rec.Config.Seed,
		Metrics:     finite(rec.Result.Metrics),
		Summary:     finite(summary),
	}
	if rec.Result.Controller != nil {
		meta.Controller = rec.Result.Controller.Name()
	}
	if rec.Field != nil {
		meta.FieldKind = string(rec.Field.Kind())
		meta.TargetIsoline = rec.Field.TargetIsoline()
	}
	if src, ok := rec.Result.Controller.(sim.SeriesSource); ok {
		meta.Series = src.SeriesNames()
	}

	if err := writeJSON(filepath.Join(dir, metadataFile), meta); err != nil {
		return "", fmt.Errorf("writing metadata: %w", err)
	}
	if err := config.Save(filepath.Join(dir, configFile), rec.Config); err != nil {
		return "", fmt.Errorf("writing config: %w", err)
	}
	if rec.Field != nil {
		if err := field.SavePeaks(filepath.Join(dir, fieldFile), rec.Field.Peaks()); err != nil {
			return "", fmt.Errorf("writing field: %w", err)
		}
	}
	for _, tr := range rec.Result.Tracks {
		if err := writeTrack(filepath.Join(dir, tracksDir, trackFile(tr.Serial)), tr, rec.Result); err != nil {
			return "", fmt.Errorf("writing track %d: %w", tr.Serial, err)
		}
	}
	if src, ok := rec.Result.Controller.(sim.SeriesSource); ok {
		if err := writeSeries(filepath.Join(dir, seriesFile), src, rec.Result); err != nil {
			return "", fmt.Errorf("writing series: %w", err)
		}
	}
	return name, nil
}

func trackFile(serial int) string {
	return fmt.Sprintf("vehicle_%d.csv", serial)
}

func trackRecords(tr sim.Track, res *sim.Result) ([]TrackRecord, error) {
	if tr.ControlDim > 2 {
		return nil, fmt.Errorf("%w: control dimension %d", dynamo.ErrDimensionMismatch, tr.ControlDim)
	}
	out := make([]TrackRecord, tr.Len())
	for k := range out {
		eta, nu := tr.Pose(k), tr.Velocity(k)
		u, a := make([]float64, 2), make([]float64, 2)
		copy(u, tr.Command(k))
		copy(a, tr.Actual(k))
		out[k] = TrackRecord{
			Step:     k,
			Time:     res.Time(k),
			North:    eta[dynamo.North],
			East:     eta[dynamo.East],
			Depth:    eta[dynamo.Depth],
			Roll:     eta[dynamo.Roll],
			Pitch:    eta[dynamo.Pitch],
			Yaw:      eta[dynamo.Yaw],
			VNorth:   nu[dynamo.North],
			VEast:    nu[dynamo.East],
			VDepth:   nu[dynamo.Depth],
			VRoll:    nu[dynamo.Roll],
			VPitch:   nu[dynamo.Pitch],
			VYaw:     nu[dynamo.Yaw],
			Control0: u[0],
			Control1: u[1],
			Actual0:  a[0],
			Actual1:  a[1],
		}
	}
	return out, nil
}

func writeTrack(path string, tr sim.Track, res *sim.Result) error {
	records, err := trackRecords(tr, res)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gocsv.MarshalFile(&records, f)
}

func writeSeries(path string, src sim.SeriesSource, res *sim.Result) error {
	vehicles := len(res.Tracks)
	records := make([]SeriesRecord, 0, vehicles*res.Steps)
	arrays := make(map[string][][]float64)
	for _, name := range src.SeriesNames() {
		if a, err := src.Series(name); err == nil {
			arrays[name] = a
		}
	}
	for k := 0; k < res.Steps; k++ {
		for i := 0; i < vehicles; i++ {
			r := SeriesRecord{Step: k, Time: res.Time(k), Vehicle: i}
			for name, slot := range r.slots() {
				*slot = math.NaN()
				if a, ok := arrays[name]; ok && i < len(a) && k < len(a[i]) {
					*slot = a[i][k]
				}
			}
			records = append(records, r)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gocsv.MarshalFile(&records, f)
}

// List returns every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), runPrefix) {
			continue
		}
		var meta RunMetadata
		if err := readJSON(filepath.Join(s.runDir(entry.Name()), metadataFile), &meta); err != nil {
			continue
		}
		runs = append(runs, meta)
	}
	sort.SliceStable(runs, func(i, j int) bool {
		if !runs[i].Timestamp.Equal(runs[j].Timestamp) {
			return runs[i].Timestamp.Before(runs[j].Timestamp)
		}
		return runs[i].Name < runs[j].Name
	})
	return runs, nil
}

// resolve accepts a directory name, a uuid, or a unique uuid prefix.
func (s *Store) resolve(id string) (string, error) {
	if _, err := os.Stat(filepath.Join(s.runDir(id), metadataFile)); err == nil {
		return id, nil
	}
	runs, err := s.List()
	if err != nil {
		return "", err
	}
	match := ""
	for _, r := range runs {
		if r.ID == id {
			return r.Name, nil
		}
		if strings.HasPrefix(r.ID, id) {
			if match != "" {
				return "", fmt.Errorf("storage: ambiguous run id %q", id)
			}
			match = r.Name
		}
	}
	if match == "" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return match, nil
}

func (s *Store) Load(id string) (*RunMetadata, error) {
	name, err := s.resolve(id)
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := readJSON(filepath.Join(s.runDir(name), metadataFile), &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) LoadConfig(id string) (*config.Config, error) {
	name, err := s.resolve(id)
	if err != nil {
		return nil, err
	}
	return config.Load(filepath.Join(s.runDir(name), configFile))
}

func (s *Store) LoadPeaks(id string) ([]field.Peak, error) {
	name, err := s.resolve(id)
	if err != nil {
		return nil, err
	}
	return field.LoadPeaks(filepath.Join(s.runDir(name), fieldFile))
}

func (s *Store) LoadTrack(id string, serial int) ([]TrackRecord, error) {
	name, err := s.resolve(id)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.runDir(name), tracksDir, trackFile(serial)))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var records []TrackRecord
	if err := gocsv.UnmarshalFile(f, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// LoadSeries reads series.csv back into vehicles × steps arrays.
func (s *Store) LoadSeries(id string) (*Series, error) {
	meta, err := s.Load(id)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.runDir(meta.Name), seriesFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var records []SeriesRecord
	if err := gocsv.UnmarshalFile(f, &records); err != nil {
		return nil, err
	}

	out := &Series{names: meta.Series, arrays: make(map[string][][]float64, len(meta.Series))}
	for _, name := range meta.Series {
		rows := make([][]float64, meta.Vehicles)
		for i := range rows {
			rows[i] = make([]float64, meta.Steps)
		}
		out.arrays[name] = rows
	}
	for _, r := range records {
		if r.Vehicle < 0 || r.Vehicle >= meta.Vehicles || r.Step < 0 || r.Step >= meta.Steps {
			return nil, fmt.Errorf("%w: row step %d vehicle %d", dynamo.ErrStepOutOfRange, r.Step, r.Vehicle)
		}
		for name, slot := range r.slots() {
			if a, ok := out.arrays[name]; ok {
				a[r.Vehicle][r.Step] = *slot
			}
		}
	}
	return out, nil
}

// Series is a stored controller history.
type Series struct {
	names  []string
	arrays map[string][][]float64
}

func (s *Series) Series(name string) ([][]float64, error) {
	a, ok := s.arrays[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", control.ErrUnknownSeries, name)
	}
	return a, nil
}

func (s *Series) SeriesNames() []string {
	return append([]string(nil), s.names...)
}
