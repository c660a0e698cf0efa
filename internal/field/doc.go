// Package field models the scalar concentration field the vehicles sample.
//
// A [Field] is a sum of peaks of one [Kind]:
//
//   - [Gaussian]: A·exp(-q)
//   - [Parabolic]: (A - q)·exp(-q), a compactly supported bump
//
// with q = (x-x0-dx)²/(2σx²) + (y-y0-dy)²/(2σy²). The configured target
// isoline is subtracted and the vertical shift DZ added, so the isoline the
// vehicles track is the zero level of [Field.Intensity].
//
// The precomputed [Grid] used for plotting and contour extraction clips each
// parabolic peak to non-negative values before summing. The point query does
// not clip. Far from a parabolic peak the two disagree: the grid reads zero
// while Intensity reads a small negative tail.
//
// A Field is immutable after [New] except for the contour cache populated by
// [Field.SetContourPoints]; it is safe for concurrent reads once that call
// has returned.
package field
