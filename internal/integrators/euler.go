package integrators

import "github.com/san-kum/dyngraph/internal/dynamo"

// Euler is the explicit (forward) Euler stepper. It is exact for ẋ = u with
// u held constant over the step.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t float64, dt float64) (dynamo.State, error) {
	if err := checkDim(dyn, x, "state"); err != nil {
		return nil, err
	}
	dx, err := derive(dyn, x, u, t)
	if err != nil {
		return nil, err
	}
	return offset(x, dx, dt), nil
}
