package field

import (
	"encoding/json"
	"fmt"
	"os"
)

// Peak is one source of signal in the field.
type Peak struct {
	X0        float64 `json:"x0" yaml:"x0"`
	Y0        float64 `json:"y0" yaml:"y0"`
	Amplitude float64 `json:"amplitude" yaml:"amplitude"`
	SigmaX    float64 `json:"sigma_x" yaml:"sigma_x"`
	SigmaY    float64 `json:"sigma_y" yaml:"sigma_y"`
}

func (p Peak) validate() error {
	if !(p.SigmaX > 0) || !(p.SigmaY > 0) {
		return fmt.Errorf("%w: sigma_x=%g sigma_y=%g", ErrInvalidSpread, p.SigmaX, p.SigmaY)
	}
	return nil
}

// exponent returns q for a point already corrected by the field shift.
func (p Peak) exponent(x, y float64) float64 {
	ddx := x - p.X0
	ddy := y - p.Y0
	return ddx*ddx/(2*p.SigmaX*p.SigmaX) + ddy*ddy/(2*p.SigmaY*p.SigmaY)
}

// MarshalPeaks encodes peaks as the JSON array used by peak files.
func MarshalPeaks(peaks []Peak) ([]byte, error) {
	if peaks == nil {
		peaks = []Peak{}
	}
	return json.MarshalIndent(peaks, "", "  ")
}

// UnmarshalPeaks decodes a JSON peak array.
func UnmarshalPeaks(data []byte) ([]Peak, error) {
	var peaks []Peak
	if err := json.Unmarshal(data, &peaks); err != nil {
		return nil, fmt.Errorf("field: decode peaks: %w", err)
	}
	for i, p := range peaks {
		if err := p.validate(); err != nil {
			return nil, fmt.Errorf("field: peak %d: %w", i, err)
		}
	}
	return peaks, nil
}

// LoadPeaks reads a peak file.
func LoadPeaks(path string) ([]Peak, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("field: read peaks: %w", err)
	}
	return UnmarshalPeaks(data)
}

// SavePeaks writes peaks to path as an indented JSON array.
func SavePeaks(path string, peaks []Peak) error {
	data, err := MarshalPeaks(peaks)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
