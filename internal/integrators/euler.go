package integrators

import "github.com/san-kum/slicksim/internal/dynamo"

type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t float64, dt float64) dynamo.State {
	return Advance(x, dyn.Derive(x, u, t), dt)
}

// Advance is the explicit Euler update x + dx*dt applied component-wise.
// Components of x without a matching derivative are carried unchanged.
func Advance(x, dx dynamo.State, dt float64) dynamo.State {
	result := make(dynamo.State, len(x))
	for i := range x {
		if i < len(dx) {
			result[i] = x[i] + dt*dx[i]
		} else {
			result[i] = x[i]
		}
	}
	return result
}
