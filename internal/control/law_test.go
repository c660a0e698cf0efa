package control_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/slicksim/internal/control"
	"github.com/san-kum/slicksim/internal/dynamo"
	"github.com/san-kum/slicksim/internal/vehicle"
)

var dubinsLimits = vehicle.Limits{NMin: -5, NMax: 10}

var _ = Describe("Laws", func() {
	laws := []control.Law{
		control.Ivan{Mu: 1},
		control.Berman{Mu: 1},
		control.Matveev{Mu: 1},
	}

	It("yields sigma = 0 when the switching argument is exactly zero", func() {
		for _, law := range laws {
			dec := law.Switch(control.Sample{F: 0, FPrev: 0, SampleTime: 0.02, Speed: 1})
			Expect(dec.Sigma).To(Equal(0.0), law.Name())
			Expect(math.Signbit(dec.Sigma)).To(BeFalse(), law.Name())
			Expect(control.BangBang{}.Command(control.Input{Sigma: dec.Sigma, Limits: dubinsLimits})).
				To(Equal(dynamo.Control{0, 0}), law.Name())
		}
	})

	It("treats a stationary velocity-coupled vehicle as the derivative alone", func() {
		law := control.Matveev{Mu: 3, F0: 0}
		dec := law.Switch(control.Sample{F: 4, FPrev: 4, SampleTime: 0.02, Speed: 0})
		Expect(dec.Der).To(Equal(0.0))
		Expect(dec.MuTanh).To(BeNumerically("~", 3*math.Tanh(4), 1e-12))
		Expect(dec.Sigma).To(Equal(0.0))
	})

	DescribeTable("Ivan switching",
		func(f, fPrev, f0, wantSigma float64) {
			dec := control.Ivan{Mu: 1, F0: f0}.Switch(control.Sample{F: f, FPrev: fPrev, SampleTime: 0.02})
			Expect(dec.Der).To(BeNumerically("~", (f-fPrev)/0.02, 1e-9))
			Expect(dec.MuTanh).To(BeNumerically("~", math.Tanh(f-f0), 1e-12))
			Expect(dec.Sigma).To(Equal(wantSigma))
		},
		Entry("rising field", 2.0, 1.0, 0.0, -1.0),
		Entry("falling field", 1.0, 2.0, 0.0, 1.0),
		Entry("on the isoline and still", 0.5, 0.5, 0.5, 0.0),
		Entry("still but above the bias", 1.0, 1.0, 0.0, -1.0),
	)

	It("halves the gain in the Berman law", func() {
		s := control.Sample{F: 1.5, FPrev: 1.5, SampleTime: 0.1}
		ivan := control.Ivan{Mu: 2}.Switch(s)
		berman := control.Berman{Mu: 2}.Switch(s)
		Expect(berman.MuTanh).To(BeNumerically("~", ivan.MuTanh/2, 1e-12))
	})

	It("scales the tanh term by relative speed in the Matveev law", func() {
		// d = -1, mu_tanh ≈ 0.76: the speed decides the branch.
		s := control.Sample{F: 1, FPrev: 1.02, SampleTime: 0.02}
		law := control.Matveev{Mu: 1}
		s.Speed = 0.5
		Expect(law.Switch(s).Sigma).To(Equal(1.0))
		s.Speed = 2
		Expect(law.Switch(s).Sigma).To(Equal(-1.0))
	})
})

var _ = Describe("Actuation", func() {
	DescribeTable("BangBang branches",
		func(sigma float64, want dynamo.Control) {
			Expect(control.BangBang{}.Command(control.Input{Sigma: sigma, Limits: dubinsLimits})).To(Equal(want))
		},
		Entry("negative", -1.0, dynamo.Control{-5, 10}),
		Entry("positive", 1.0, dynamo.Control{10, -5}),
		Entry("zero", 0.0, dynamo.Control{0, 0}),
	)

	DescribeTable("PIDForward clamps forward and rotation parts",
		func(sigma float64, want dynamo.Control) {
			in := control.Input{Sigma: sigma, ErrorNorm: 0.5, TimeOutside: 0.1, Limits: dubinsLimits}
			got := control.NewPIDForward().Command(in)
			Expect(got).To(HaveLen(2))
			Expect(got[0]).To(BeNumerically("~", want[0], 1e-12))
			Expect(got[1]).To(BeNumerically("~", want[1], 1e-12))
		},
		Entry("negative", -1.0, dynamo.Control{-5, 0.5}),
		Entry("positive", 1.0, dynamo.Control{10, -0.5}),
		Entry("zero", 0.0, dynamo.Control{0, 0}),
	)

	DescribeTable("NonlinearForward slows near the isoline",
		func(f, sigma float64, want dynamo.Control) {
			in := control.Input{F: f, Sigma: sigma, Limits: vehicle.Limits{NMin: -101, NMax: 103}}
			got := control.NewNonlinearForward().Command(in)
			Expect(got[0]).To(BeNumerically("~", want[0], 1e-9))
			Expect(got[1]).To(BeNumerically("~", want[1], 1e-9))
		},
		Entry("on the isoline turning left", 0.0, -1.0, dynamo.Control{-50, -10}),
		Entry("on the isoline turning right", 0.0, 1.0, dynamo.Control{50, 10}),
		Entry("far away is clamped", 100.0, -1.0, dynamo.Control{-101, 70}),
		Entry("neutral", 3.0, 0.0, dynamo.Control{0, 0}),
	)
})

var _ = Describe("ErrorCeiling", func() {
	It("is non-decreasing for increasing samples and never exceeds the cap", func() {
		c := control.NewErrorCeiling(0.1, 30, 0.9, true)
		prev := 0.0
		for f := 1.0; f <= 100; f++ {
			enorm, emax := c.Update(-f)
			Expect(emax).To(BeNumerically(">=", prev))
			Expect(emax).To(BeNumerically("<=", 30.0))
			Expect(enorm).To(BeNumerically(">=", 0.0))
			prev = emax
		}
		Expect(prev).To(Equal(30.0))
	})

	DescribeTable("first update from eps",
		func(eps, smoothing, capV, f float64) {
			c := control.NewErrorCeiling(eps, capV, smoothing, true)
			_, emax := c.Update(f)
			Expect(emax).To(Equal(math.Min(math.Max(smoothing*eps, math.Abs(f)), capV)))
		},
		Entry("sample below smoothed eps", 1.0, 0.9, 30.0, 0.2),
		Entry("sample dominates", 0.1, 0.99, 30.0, -7.0),
		Entry("sample above cap", 0.1, 0.99, 30.0, 55.0),
	)

	It("uses the cap in static mode", func() {
		c := control.NewErrorCeiling(0.1, 20, 0.5, false)
		enorm, emax := c.Update(5)
		Expect(emax).To(Equal(20.0))
		Expect(enorm).To(Equal(0.25))
	})

	It("reports zero normalised error for a zero ceiling", func() {
		c := control.NewErrorCeiling(0, 0, 0.5, false)
		enorm, _ := c.Update(12)
		Expect(enorm).To(Equal(0.0))
	})
})
