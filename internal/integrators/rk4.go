package integrators

import "github.com/san-kum/dyngraph/internal/dynamo"

// RK4 is the classical fourth-order Runge-Kutta stepper. The control is held
// constant over the step, matching the zero-order hold of a graph stamp.
type RK4 struct{}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) (dynamo.State, error) {
	if err := checkDim(dyn, x, "state"); err != nil {
		return nil, err
	}
	half := dt / 2

	k1, err := derive(dyn, x, u, t)
	if err != nil {
		return nil, err
	}
	k2, err := derive(dyn, offset(x, k1, half), u, t+half)
	if err != nil {
		return nil, err
	}
	k3, err := derive(dyn, offset(x, k2, half), u, t+half)
	if err != nil {
		return nil, err
	}
	k4, err := derive(dyn, offset(x, k3, dt), u, t+dt)
	if err != nil {
		return nil, err
	}

	next := make(dynamo.State, len(x))
	dt6 := dt / 6
	for i := range x {
		next[i] = x[i] + dt6*(k1[i]+2*k2[i]+2*k3[i]+k4[i])
	}
	return next, nil
}
