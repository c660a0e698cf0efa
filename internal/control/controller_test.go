package control_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/slicksim/internal/control"
	"github.com/san-kum/slicksim/internal/dynamo"
	"github.com/san-kum/slicksim/internal/field"
	"github.com/san-kum/slicksim/internal/vehicle"
)

func gaussianField(target float64) *field.Field {
	f, err := field.New(field.Options{
		Kind:          field.Gaussian,
		Peaks:         []field.Peak{{X0: 10, Y0: 10, Amplitude: 30, SigmaX: 5, SigmaY: 5}},
		TargetIsoline: target,
		GridSize:      121,
	})
	Expect(err).NotTo(HaveOccurred())
	f.SetContourPoints(0, 1)
	return f
}

func dubinsFleet(starts ...[2]float64) []vehicle.Vehicle {
	out := make([]vehicle.Vehicle, len(starts))
	for i, s := range starts {
		out[i] = vehicle.NewDubins(vehicle.Params{Serial: i, Start: s})
	}
	return out
}

func smallConfig() control.Config {
	cfg := control.DefaultConfig()
	cfg.Steps = 20
	return cfg
}

var _ = Describe("Controller", func() {
	Describe("construction", func() {
		It("rejects an empty fleet", func() {
			_, err := control.New(gaussianField(15), nil, control.Ivan{Mu: 1}, control.BangBang{}, control.DefaultConfig())
			Expect(err).To(MatchError(dynamo.ErrNoVehicles))
		})

		It("rejects a non-positive sample time", func() {
			cfg := control.DefaultConfig()
			cfg.SampleTime = 0
			_, err := control.New(gaussianField(15), dubinsFleet([2]float64{}), control.Ivan{Mu: 1}, control.BangBang{}, cfg)
			Expect(err).To(MatchError(control.ErrInvalidConfig))
		})

		It("rejects smoothing outside [0, 1]", func() {
			cfg := control.DefaultConfig()
			cfg.Smoothing = 1.5
			_, err := control.New(gaussianField(15), dubinsFleet([2]float64{}), control.Ivan{Mu: 1}, control.BangBang{}, cfg)
			Expect(err).To(MatchError(control.ErrInvalidConfig))
		})

		It("derives the step count from sim and sample time", func() {
			cfg := control.DefaultConfig()
			cfg.SimTime = 10
			cfg.SampleTime = 0.02
			Expect(cfg.StepCount()).To(Equal(501))
			cfg.Steps = 500
			Expect(cfg.StepCount()).To(Equal(500))
		})

		It("primes the previous sample at the starting poses", func() {
			f := gaussianField(15)
			c, err := control.New(f, dubinsFleet([2]float64{0, 0}, [2]float64{3, 4}), control.Ivan{Mu: 1}, control.BangBang{}, smallConfig())
			Expect(err).NotTo(HaveOccurred())
			Expect(c.PreviousSample()).To(Equal([]float64{f.Intensity(0, 0), f.Intensity(3, 4)}))
		})
	})

	Describe("GenerateControl", func() {
		var (
			f     *field.Field
			fleet []vehicle.Vehicle
			c     *control.Controller
		)

		BeforeEach(func() {
			f = gaussianField(15)
			fleet = dubinsFleet([2]float64{0, 0}, [2]float64{20, -5})
			var err error
			c, err = control.New(f, fleet, control.Matveev{Mu: 1}, control.BangBang{}, smallConfig())
			Expect(err).NotTo(HaveOccurred())
		})

		poses := func() []dynamo.State {
			out := make([]dynamo.State, len(fleet))
			for i, v := range fleet {
				out[i] = v.InitialPose()
			}
			return out
		}

		It("guards the history index", func() {
			_, err := c.GenerateControl(poses(), -1, nil)
			Expect(err).To(MatchError(dynamo.ErrStepOutOfRange))
			_, err = c.GenerateControl(poses(), c.Steps(), nil)
			Expect(err).To(MatchError(dynamo.ErrStepOutOfRange))
			_, err = c.GenerateControl(poses(), c.Steps()-1, nil)
			Expect(err).NotTo(HaveOccurred())
		})

		It("rejects a pose count that does not match the fleet", func() {
			_, err := c.GenerateControl(poses()[:1], 0, nil)
			Expect(err).To(MatchError(dynamo.ErrDimensionMismatch))
		})

		It("fails when the contour set was never initialised", func() {
			bare, err := field.New(field.Options{Kind: field.Gaussian, GridSize: 11})
			Expect(err).NotTo(HaveOccurred())
			c, err := control.New(bare, fleet, control.Ivan{Mu: 1}, control.BangBang{}, smallConfig())
			Expect(err).NotTo(HaveOccurred())
			_, err = c.GenerateControl(poses(), 0, nil)
			Expect(err).To(MatchError(field.ErrContourUninitialized))
		})

		It("samples the field through the pose transform", func() {
			p := poses()
			p[1] = dynamo.State{-5, 20, 0, 0, 0, 0}
			_, err := c.GenerateControl(p, 0, nil)
			Expect(err).NotTo(HaveOccurred())
			intensity, err := c.Series(control.SeriesIntensity)
			Expect(err).NotTo(HaveOccurred())
			Expect(intensity[1][0]).To(Equal(f.Intensity(20, -5)))
		})

		It("replaces every previous sample only after the batch", func() {
			p := poses()
			p[0] = dynamo.State{1, 1, 0, 0, 0, 0}
			_, err := c.GenerateControl(p, 0, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.PreviousSample()).To(Equal([]float64{f.Intensity(1, 1), f.Intensity(20, -5)}))

			der, _ := c.Series(control.SeriesDer)
			Expect(der[1][0]).To(Equal(0.0))
			Expect(der[0][0]).To(BeNumerically("~", (f.Intensity(1, 1)-f.Intensity(0, 0))/0.02, 1e-9))
		})

		It("matches independent single-vehicle controllers", func() {
			single := make([]*control.Controller, len(fleet))
			for i, v := range fleet {
				var err error
				single[i], err = control.New(f, []vehicle.Vehicle{v}, control.Matveev{Mu: 1}, control.BangBang{}, smallConfig())
				Expect(err).NotTo(HaveOccurred())
			}

			p := poses()
			vel := []dynamo.State{{0.1, 0.2, 0, 0, 0, 0}, {-0.3, 0, 0, 0, 0, 0}}
			for k := 0; k < c.Steps(); k++ {
				both, err := c.GenerateControl(p, k, vel)
				Expect(err).NotTo(HaveOccurred())
				for i := range fleet {
					one, err := single[i].GenerateControl([]dynamo.State{p[i]}, k, []dynamo.State{vel[i]})
					Expect(err).NotTo(HaveOccurred())
					Expect(both[i]).To(Equal(one[0]))
				}
				p[0] = dynamo.State{p[0][0] + 0.05, p[0][1] + 0.1, 0, 0, 0, 0}
				p[1] = dynamo.State{p[1][0] - 0.07, p[1][1], 0, 0, 0, 0}
			}

			for _, name := range control.SeriesNames() {
				both, _ := c.Series(name)
				for i := range fleet {
					one, _ := single[i].Series(name)
					Expect(both[i]).To(Equal(one[0]), name)
				}
			}
		})

		It("records every named series with the fleet shape", func() {
			_, err := c.GenerateControl(poses(), 0, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.SeriesNames()).To(ConsistOf(
				"intensity", "der", "mu_tanh", "sigmas", "errors_norm",
				"errors_max", "quality", "times_outside", "ds",
			))
			for _, name := range c.SeriesNames() {
				s, err := c.Series(name)
				Expect(err).NotTo(HaveOccurred())
				Expect(s).To(HaveLen(2))
				Expect(s[0]).To(HaveLen(c.Steps()))
			}
			_, err = c.Series("velocity")
			Expect(err).To(MatchError(control.ErrUnknownSeries))
		})

		It("averages normalised errors over recorded steps", func() {
			for k := 0; k < 4; k++ {
				_, err := c.GenerateControl(poses(), k, nil)
				Expect(err).NotTo(HaveOccurred())
			}
			sums := c.SumErrors()
			means := c.MeanErrors()
			for i := range sums {
				Expect(means[i]).To(BeNumerically("~", sums[i]/4, 1e-12))
				Expect(sums[i]).To(BeNumerically(">", 0))
			}
		})
	})

	It("commands [0, 0] everywhere on a flat field", func() {
		flat, err := field.New(field.Options{
			Kind:     field.Gaussian,
			Peaks:    []field.Peak{{X0: 10, Y0: 10, Amplitude: 0, SigmaX: 5, SigmaY: 5}},
			GridSize: 11,
		})
		Expect(err).NotTo(HaveOccurred())
		flat.SetContourPoints(0, 1)

		fleet := dubinsFleet([2]float64{0, 0})
		c, err := control.New(flat, fleet, control.Ivan{Mu: 1}, control.BangBang{}, smallConfig())
		Expect(err).NotTo(HaveOccurred())
		for k := 0; k < c.Steps(); k++ {
			u, err := c.GenerateControl([]dynamo.State{fleet[0].InitialPose()}, k, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(u).To(Equal([]dynamo.Control{{0, 0}}))
		}
	})

	It("accumulates and resets time outside the band per vehicle", func() {
		f := gaussianField(15)
		cfg := smallConfig()
		cfg.Eps = 1
		fleet := dubinsFleet([2]float64{0, 0})
		c, err := control.New(f, fleet, control.Matveev{Mu: 1}, control.NewPIDForward(), cfg)
		Expect(err).NotTo(HaveOccurred())

		far := []dynamo.State{fleet[0].InitialPose()}
		for k := 0; k < 3; k++ {
			_, err := c.GenerateControl(far, k, nil)
			Expect(err).NotTo(HaveOccurred())
		}
		// Close to the isoline: radius sqrt(50 ln 2) around (10, 10).
		r := math.Sqrt(50 * math.Ln2)
		on := []dynamo.State{field.ToPose(10+r, 10)}
		_, err = c.GenerateControl(on, 3, nil)
		Expect(err).NotTo(HaveOccurred())

		tout, _ := c.Series(control.SeriesTimesOutside)
		Expect(tout[0][0]).To(BeNumerically("~", 0.02, 1e-12))
		Expect(tout[0][2]).To(BeNumerically("~", 0.06, 1e-12))
		Expect(tout[0][3]).To(Equal(0.0))
	})
})

var _ = Describe("Swarm", func() {
	It("is deterministic for a seed and produces finite commands", func() {
		f := gaussianField(15)
		run := func() [][]dynamo.Control {
			fleet := dubinsFleet([2]float64{0, 0}, [2]float64{-5, 3}, [2]float64{4, -8})
			s, err := control.NewSwarm(f, fleet, smallConfig(), 7)
			Expect(err).NotTo(HaveOccurred())
			poses := make([]dynamo.State, len(fleet))
			for i, v := range fleet {
				poses[i] = v.InitialPose()
			}
			var out [][]dynamo.Control
			for k := 0; k < s.Steps(); k++ {
				u, err := s.GenerateControl(poses, k, nil)
				Expect(err).NotTo(HaveOccurred())
				for _, cmd := range u {
					Expect(dynamo.State(cmd).IsValid()).To(BeTrue())
				}
				out = append(out, u)
			}
			return out
		}
		Expect(run()).To(Equal(run()))
	})

	It("tracks the best sample of the group", func() {
		f := gaussianField(15)
		fleet := dubinsFleet([2]float64{0, 0}, [2]float64{8, 8})
		s, err := control.NewSwarm(f, fleet, smallConfig(), 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Best()).To(Equal(field.Point{X: 8, Y: 8}))

		_, err = s.GenerateControl([]dynamo.State{field.ToPose(10, 10), field.ToPose(8, 8)}, 0, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Best()).To(Equal(field.Point{X: 10, Y: 10}))

		_, err = s.Series(control.SeriesSigmas)
		Expect(err).To(MatchError(control.ErrUnknownSeries))
		q, err := s.Series(control.SeriesQuality)
		Expect(err).NotTo(HaveOccurred())
		Expect(q[0][0]).To(BeNumerically(">", 0))
	})

	It("rejects an empty fleet", func() {
		_, err := control.NewSwarm(gaussianField(15), nil, smallConfig(), 1)
		Expect(err).To(MatchError(dynamo.ErrNoVehicles))
	})
})
