package vehicle

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

var palette = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

// DefaultColor picks a stable colour for vehicle i. The fixed palette is used
// first; later vehicles get hues spaced by the golden angle.
func DefaultColor(i int) string {
	if i < 0 {
		i = -i
	}
	if i < len(palette) {
		return palette[i]
	}
	hue := math.Mod(float64(i)*137.508, 360)
	return colorful.Hsl(hue, 0.65, 0.5).Clamped().Hex()
}
