package integrators

import "github.com/san-kum/slicksim/internal/dynamo"

// RK4 is the classic fourth-order Runge-Kutta stepper. The Otter body uses it
// for its surge, yaw rate and propeller lag states when configured with
// integrator "rk4". Stage buffers are reused between steps of equal size.
type RK4 struct {
	k     [4]dynamo.State
	probe dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) resize(n int) {
	if len(r.probe) == n {
		return
	}
	for i := range r.k {
		r.k[i] = make(dynamo.State, n)
	}
	r.probe = make(dynamo.State, n)
}

// offset writes x + h*k into r.probe.
func (r *RK4) offset(x, k dynamo.State, h float64) dynamo.State {
	for i := range x {
		r.probe[i] = x[i] + h*k[i]
	}
	return r.probe
}

// Step advances x by dt holding the actuator state u fixed over the interval.
// The derivative may return a shared slice; each stage is copied out.
func (r *RK4) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	r.resize(len(x))
	half := dt / 2

	copy(r.k[0], dyn.Derive(x, u, t))
	copy(r.k[1], dyn.Derive(r.offset(x, r.k[0], half), u, t+half))
	copy(r.k[2], dyn.Derive(r.offset(x, r.k[1], half), u, t+half))
	copy(r.k[3], dyn.Derive(r.offset(x, r.k[2], dt), u, t+dt))

	next := make(dynamo.State, len(x))
	for i := range x {
		next[i] = x[i] + dt/6*(r.k[0][i]+2*r.k[1][i]+2*r.k[2][i]+r.k[3][i])
	}
	return next
}
