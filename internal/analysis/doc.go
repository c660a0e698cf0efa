// Package analysis characterises the switching behaviour of sliding mode
// controllers from recorded series.
//
//   - [Switches]: sign changes of the switching function
//   - [Spectrum]: one-sided power spectrum of a sampled signal
//   - [DominantFrequency]: strongest non-DC component of a spectrum
//   - [Analyze]: per-vehicle chattering report from a run's sigmas
//
// # Chattering
//
// A bang-bang law that tracks an isoline switches sign every time the vehicle
// crosses its sliding surface. The switch rate and the dominant frequency of
// the sigma signal show how hard the actuation is chattering:
//
//	report, err := analysis.Analyze(series, 0.1)
//	for _, c := range report {
//	    fmt.Println(c.Vehicle, c.Rate, c.Dominant)
//	}
package analysis
