package control

import (
	"fmt"

	"github.com/san-kum/dyngraph/internal/dynamo"
	"github.com/san-kum/dyngraph/internal/physics"
)

// Law computes a control vector from a state at simulation time t.
type Law interface {
	Compute(x dynamo.State, t float64) dynamo.Control
}

// Constant returns the same control whatever the state.
type Constant struct {
	u dynamo.Control
}

func NewConstant(u dynamo.Control) *Constant {
	return &Constant{u: u.Clone()}
}

// NewNone returns a zero control of the given dimension.
func NewNone(dim int) *Constant {
	return &Constant{u: make(dynamo.Control, dim)}
}

func (c *Constant) Compute(x dynamo.State, t float64) dynamo.Control {
	return c.u.Clone()
}

// New builds a law by name for a model class. Known names are "none",
// "constant", "manual", "pid" and "lqr". u is the constant (or initial
// manual) control, target the position tracked by pid and lqr on a table
// cart.
func New(name, class string, u dynamo.Control, target float64) (Law, error) {
	switch name {
	case "", "none":
		return NewNone(len(u)), nil
	case "constant":
		return NewConstant(u), nil
	case "manual":
		m := NewManual(len(u))
		if err := m.SetControl(u); err != nil {
			return nil, err
		}
		return m, nil
	case "pid":
		return NewCartPID(target), nil
	case "lqr":
		if class == physics.ClassInvertedPendulum {
			return NewPendulumLQR(), nil
		}
		return NewCartLQR(target), nil
	}
	return nil, fmt.Errorf("%w: unknown controller %q", dynamo.ErrInvalidParameter, name)
}

// Names lists the laws known to New.
func Names() []string {
	return []string{"constant", "lqr", "manual", "none", "pid"}
}
