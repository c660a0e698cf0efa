// Package control implements sign-based extremum-seeking control for
// vehicles tracking an isoline of a scalar field.
//
// A [Controller] combines two strategies supplied at construction:
//
//   - a [Law] turns the field sample and its discrete derivative into a
//     switching signal σ ∈ {-1, 0, +1}: [Ivan], [Berman], [Matveev]
//   - an [Actuation] turns σ into a two-actuator differential command:
//     [BangBang], [PIDForward], [NonlinearForward]
//
// Each vehicle owns an [ErrorCeiling], the running bound used to normalise
// its tracking error. The previous field sample of every vehicle is replaced
// only after the whole batch for a step has been processed, so vehicles never
// see each other's samples.
//
// History arrays are exposed by name through [Controller.Series]; see
// [SeriesNames] for the stable list. [Swarm] is an alternative
// particle-swarm controller that records a subset of the same series.
package control
