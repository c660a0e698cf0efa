package storage

import (
	"encoding/json"
	"io"
	"math"
	"os"
)

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// ExportData is the single-document form of a stored run.
type ExportData struct {
	Metadata RunMetadata             `json:"metadata"`
	Tracks   map[int][]TrackRecord   `json:"tracks"`
	Series   map[string][][]*float64 `json:"series,omitempty"`
}

// ExportJSON writes a stored run as one JSON document. Non-finite series
// values become null.
func (s *Store) ExportJSON(w io.Writer, id string) error {
	meta, err := s.Load(id)
	if err != nil {
		return err
	}
	data := ExportData{Metadata: *meta, Tracks: make(map[int][]TrackRecord, meta.Vehicles)}
	for i := 0; i < meta.Vehicles; i++ {
		tr, err := s.LoadTrack(meta.Name, i)
		if err != nil {
			return err
		}
		data.Tracks[i] = tr
	}
	if len(meta.Series) > 0 {
		series, err := s.LoadSeries(meta.Name)
		if err != nil {
			return err
		}
		data.Series = make(map[string][][]*float64, len(meta.Series))
		for _, name := range series.SeriesNames() {
			a, _ := series.Series(name)
			data.Series[name] = nullable(a)
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func nullable(rows [][]float64) [][]*float64 {
	out := make([][]*float64, len(rows))
	for i, row := range rows {
		out[i] = make([]*float64, len(row))
		for k := range row {
			if !math.IsNaN(row[k]) && !math.IsInf(row[k], 0) {
				out[i][k] = &row[k]
			}
		}
	}
	return out
}
