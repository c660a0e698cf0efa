package metrics

import (
	"math"

	"github.com/san-kum/slicksim/internal/dynamo"
	"github.com/san-kum/slicksim/internal/field"
)

// PathLength is the mean planar distance travelled per vehicle, measured
// from the first observed pose.
type PathLength struct {
	name string
	last map[int]dynamo.State
	dist map[int]float64
}

func NewPathLength() *PathLength {
	return &PathLength{name: "path_length", last: map[int]dynamo.State{}, dist: map[int]float64{}}
}

func (p *PathLength) Name() string { return p.name }

func (p *PathLength) Observe(vehicle int, pose, _ dynamo.State, _ dynamo.Control, _ float64) {
	prev, ok := p.last[vehicle]
	if !ok {
		p.dist[vehicle] = 0
	} else {
		p.dist[vehicle] += math.Hypot(pose[dynamo.North]-prev[dynamo.North], pose[dynamo.East]-prev[dynamo.East])
	}
	p.last[vehicle] = pose.Clone()
}

func (p *PathLength) Value() float64 {
	if len(p.dist) == 0 {
		return 0
	}
	sum := 0.0
	for _, d := range p.dist {
		sum += d
	}
	return sum / float64(len(p.dist))
}

func (p *PathLength) Reset() {
	p.last = map[int]dynamo.State{}
	p.dist = map[int]float64{}
}

// Containment is the fraction of samples with the vehicle inside the square
// |x|, |y| <= bound.
type Containment struct {
	name    string
	bound   float64
	outside int
	samples int
}

func NewContainment(bound float64) *Containment {
	return &Containment{
		name:  "containment",
		bound: bound,
	}
}

func (c *Containment) Name() string {
	return c.name
}

func (c *Containment) Observe(_ int, pose, _ dynamo.State, _ dynamo.Control, _ float64) {
	c.samples++
	x, y := field.FromPose(pose)
	if math.Abs(x) > c.bound || math.Abs(y) > c.bound {
		c.outside++
	}
}

func (c *Containment) Value() float64 {
	if c.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(c.outside)/float64(c.samples)
}

func (c *Containment) Reset() {
	c.outside = 0
	c.samples = 0
}

// IsolineDistance is the mean distance to the contour set over the run.
// Samples with no contour in range are skipped.
type IsolineDistance struct {
	name    string
	field   *field.Field
	sum     float64
	samples int
}

func NewIsolineDistance(f *field.Field) *IsolineDistance {
	return &IsolineDistance{name: "isoline_distance", field: f}
}

func (d *IsolineDistance) Name() string { return d.name }

func (d *IsolineDistance) Observe(_ int, pose, _ dynamo.State, _ dynamo.Control, _ float64) {
	dist, err := d.field.NearestContourDistance(field.FromPose(pose))
	if err != nil || math.IsInf(dist, 1) {
		return
	}
	d.sum += dist
	d.samples++
}

func (d *IsolineDistance) Value() float64 {
	if d.samples == 0 {
		return math.Inf(1)
	}
	return d.sum / float64(d.samples)
}

func (d *IsolineDistance) Reset() {
	d.sum = 0
	d.samples = 0
}
