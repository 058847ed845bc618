package control

import (
	"fmt"

	"github.com/san-kum/dyngraph/internal/dynamo"
)

// Manual passes a control vector set by the user, e.g. from the keyboard in
// the live view.
type Manual struct {
	u dynamo.Control
}

func NewManual(dim int) *Manual {
	return &Manual{u: make(dynamo.Control, dim)}
}

// SetControl replaces the control vector. Its dimension cannot change.
func (m *Manual) SetControl(u dynamo.Control) error {
	if len(u) != len(m.u) {
		return fmt.Errorf("%w: got %d components, want %d", dynamo.ErrDimensionMismatch, len(u), len(m.u))
	}
	copy(m.u, u)
	return nil
}

// Nudge adds delta to component i.
func (m *Manual) Nudge(i int, delta float64) {
	if i >= 0 && i < len(m.u) {
		m.u[i] += delta
	}
}

func (m *Manual) Compute(state dynamo.State, t float64) dynamo.Control {
	return m.u.Clone()
}
