package integrators

import (
	"fmt"

	"github.com/san-kum/dyngraph/internal/dynamo"
)

func checkDim(dyn dynamo.System, v dynamo.State, what string) error {
	if n := dyn.StateDim(); len(v) != n {
		return fmt.Errorf("%w: %s has %d components, want %d", dynamo.ErrDimensionMismatch, what, len(v), n)
	}
	return nil
}

// derive evaluates dyn at x and checks the derivative length.
func derive(dyn dynamo.System, x dynamo.State, u dynamo.Control, t float64) (dynamo.State, error) {
	dx := dyn.Derive(x, u, t)
	if err := checkDim(dyn, dx, "derivative"); err != nil {
		return nil, err
	}
	return dx, nil
}

// offset returns x + h·k.
func offset(x, k dynamo.State, h float64) dynamo.State {
	out := make(dynamo.State, len(x))
	for i := range x {
		out[i] = x[i] + h*k[i]
	}
	return out
}
