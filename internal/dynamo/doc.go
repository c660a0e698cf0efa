// Package dynamo provides the shared numeric primitives of the simulator.
//
// The package defines the vector types and helpers that every other layer
// speaks:
//
//   - [State]: pose or velocity vector, 6 components for surface vehicles
//     ordered (north, east, depth, roll, pitch, yaw)
//   - [Control]: actuator vector (propeller or wheel commands)
//   - [Sign], [Clamp], [SignedSqrt], [WrapAngle]: numeric edge-case helpers
//     with explicit tie-break behaviour
//   - [ParallelFor]: chunked fan-out used by the per-vehicle inner loop
//
// # Example
//
//	eta := dynamo.State{0, 0, 0, 0, 0, 0}
//	nu := dynamo.State{0.5, 0.5, 0, 0, 0, 0.1}
//	next := eta.Add(nu.Scale(0.02))
//
// # Thread Safety
//
// The helpers are pure functions. State and Control values are plain slices
// and must not be shared between goroutines while being mutated.
package dynamo
