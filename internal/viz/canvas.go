package viz

import (
	"math"
	"strings"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
const brailleBase = 0x2800

var pixelMap = [4][2]rune{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

// Canvas is Width x Height cells of Braille, each cell 2x4 sub-pixels. Every
// cell carries an optional style index so tracks keep their colours.
type Canvas struct {
	Width, Height int
	Grid          [][]rune
	Ink           [][]int
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{Width: w, Height: h, Grid: make([][]rune, h), Ink: make([][]int, h)}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
		c.Ink[i] = make([]int, w)
	}
	c.Clear()
	return c
}

func (c *Canvas) cell(x, y int) (row, col int, ok bool) {
	if x < 0 || y < 0 {
		return 0, 0, false
	}
	col, row = x/2, y/4
	return row, col, col < c.Width && row < c.Height
}

// Set lights sub-pixel (x, y) with ink; the canvas is (Width*2) x (Height*4).
func (c *Canvas) Set(x, y, ink int) {
	row, col, ok := c.cell(x, y)
	if !ok {
		return
	}
	c.Grid[row][col] |= pixelMap[y%4][x%2]
	if ink > 0 {
		c.Ink[row][col] = ink
	}
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = brailleBase
			c.Ink[i][j] = 0
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm
func (c *Canvas) DrawLine(x0, y0, x1, y1, ink int) {
	dx, dy := absInt(x1-x0), absInt(y1-y0)
	sx, sy := -1, -1
	if x0 < x1 {
		sx = 1
	}
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy
	for {
		c.Set(x0, y0, ink)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// Render joins the rows, passing each inked cell through paint.
func (c *Canvas) Render(paint func(ink int, s string) string) string {
	var b strings.Builder
	for i, row := range c.Grid {
		for j, r := range row {
			if ink := c.Ink[i][j]; ink > 0 && paint != nil {
				b.WriteString(paint(ink, string(r)))
				continue
			}
			b.WriteRune(r)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func (c *Canvas) String() string { return c.Render(nil) }

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Map projects the square [-Extent, Extent]² of the field plane onto a canvas
// with y pointing up.
type Map struct {
	*Canvas
	Extent float64
}

func NewMap(w, h int, extent float64) *Map {
	return &Map{Canvas: NewCanvas(w, h), Extent: extent}
}

func (m *Map) project(x, y float64) (int, int, bool) {
	if math.IsNaN(x) || math.IsNaN(y) || math.Abs(x) > m.Extent || math.Abs(y) > m.Extent {
		return 0, 0, false
	}
	pw, ph := float64(m.Width*2-1), float64(m.Height*4-1)
	px := (x + m.Extent) / (2 * m.Extent) * pw
	py := (m.Extent - y) / (2 * m.Extent) * ph
	return int(math.Round(px)), int(math.Round(py)), true
}

// Plot lights the sub-pixel nearest to (x, y). Off-map points are dropped.
func (m *Map) Plot(x, y float64, ink int) {
	if px, py, ok := m.project(x, y); ok {
		m.Set(px, py, ink)
	}
}

// Path connects consecutive points; segments leaving the map are dropped.
func (m *Map) Path(xs, ys []float64, ink int) {
	for k := 1; k < len(xs) && k < len(ys); k++ {
		x0, y0, ok0 := m.project(xs[k-1], ys[k-1])
		x1, y1, ok1 := m.project(xs[k], ys[k])
		if ok0 && ok1 {
			m.DrawLine(x0, y0, x1, y1, ink)
		}
	}
	if len(xs) == 1 && len(ys) == 1 {
		m.Plot(xs[0], ys[0], ink)
	}
}
