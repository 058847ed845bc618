package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/dyngraph/internal/dynamo"
)

const (
	ClassInvertedPendulum = "InvertedPendulum"
	PortCartPosition      = "cartPosition"
)

// InvertedPendulum is a pole hinged on a cart moving along a rail. The state
// is (x, θ, ẋ, θ̇) with θ measured from the upright position, and the control
// is the horizontal force applied to the cart. Viscous damping acts on both
// coordinates:
//
//	(M+m)ẍ + m l cosθ θ̈ = u + F + m l θ̇² sinθ − λẋ
//	m l cosθ ẍ + m l² θ̈ = m g l sinθ − λθ̇
type InvertedPendulum struct {
	*body
	cartPosition dynamo.Output[float64]

	cartMass       float64
	pendulumMass   float64
	pendulumLength float64
	viscosity      float64
}

func NewInvertedPendulum(reg *dynamo.Registry, name string) (*InvertedPendulum, error) {
	b, err := newBody(reg, ClassInvertedPendulum, name, make(dynamo.State, 4), 1)
	if err != nil {
		return nil, err
	}
	p := &InvertedPendulum{
		body:           b,
		cartMass:       1.0,
		pendulumMass:   1.0,
		pendulumLength: 0.5,
		viscosity:      0.1,
	}
	if p.cartPosition, err = dynamo.NewOutput(b.graph, b.signalName(dynamo.KindOutput, "double", PortCartPosition), p.evalCartPosition); err != nil {
		return nil, b.abort(err)
	}
	b.ports[PortCartPosition] = p.cartPosition.ID()

	if err := reg.Register(p); err != nil {
		return nil, b.abort(err)
	}
	return p, nil
}

func (p *InvertedPendulum) StateDim() int {
	return 4
}

func (p *InvertedPendulum) ControlDim() int {
	return 1
}

// Derive includes the disturbance in u[0]; IncrAt folds it in before
// integrating.
func (p *InvertedPendulum) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	theta := x[1]
	vel := x[2]
	omega := x[3]

	force := 0.0
	if len(u) > 0 {
		force = u[0]
	}

	M := p.cartMass
	m := p.pendulumMass
	l := p.pendulumLength
	lambda := p.viscosity

	sint := math.Sin(theta)
	cost := math.Cos(theta)

	a11 := M + m
	a12 := m * l * cost
	a22 := m * l * l
	b1 := force + m*l*omega*omega*sint - lambda*vel
	b2 := m*Gravity*l*sint - lambda*omega

	det := a11*a22 - a12*a12
	xacc := (a22*b1 - a12*b2) / det
	thetaacc := (a11*b2 - a12*b1) / det

	return dynamo.State{vel, omega, xacc, thetaacc}
}

func (p *InvertedPendulum) Incr(dt float64) error {
	return p.IncrAt(p.stamp+1, dt)
}

// IncrAt integrates over dt and commits at stamp t. On error nothing is
// modified.
func (p *InvertedPendulum) IncrAt(t dynamo.Time, dt float64) error {
	if err := p.checkStep(t, dt); err != nil {
		return p.fail("incr", err)
	}
	u, f, err := p.pullInputs(t)
	if err != nil {
		return p.fail("incr", err)
	}

	x, err := p.integrate(p, dynamo.Control{u[0] + f}, dt)
	if err != nil {
		return p.fail("incr", err)
	}
	if !x.IsValid() {
		return p.fail("incr", dynamo.ErrInvalidState)
	}

	if err := p.commit(t, dt, x, u); err != nil {
		return p.fail("incr", err)
	}
	if err := p.cartPosition.Set(x[0], t); err != nil {
		return p.fail("incr", err)
	}
	return nil
}

func (p *InvertedPendulum) evalCartPosition(dynamo.Time) (float64, error) {
	return p.x[0], nil
}

// SetState sets the initial (x, θ, ẋ, θ̇). It fails once the pendulum has
// stepped.
func (p *InvertedPendulum) SetState(x dynamo.State) error { return p.setState(x) }

func (p *InvertedPendulum) CartPositionOutput() dynamo.Output[float64] { return p.cartPosition }

func (p *InvertedPendulum) CartMass() float64       { return p.cartMass }
func (p *InvertedPendulum) PendulumMass() float64   { return p.pendulumMass }
func (p *InvertedPendulum) PendulumLength() float64 { return p.pendulumLength }
func (p *InvertedPendulum) Viscosity() float64      { return p.viscosity }

func (p *InvertedPendulum) SetCartMass(m float64) error {
	if err := positive("cart mass", m); err != nil {
		return p.fail("set cartMass", err)
	}
	p.cartMass = m
	return p.invalidate()
}

func (p *InvertedPendulum) SetPendulumMass(m float64) error {
	if err := positive("pendulum mass", m); err != nil {
		return p.fail("set pendulumMass", err)
	}
	p.pendulumMass = m
	return p.invalidate()
}

func (p *InvertedPendulum) SetPendulumLength(l float64) error {
	if err := positive("pendulum length", l); err != nil {
		return p.fail("set pendulumLength", err)
	}
	p.pendulumLength = l
	return p.invalidate()
}

func (p *InvertedPendulum) SetViscosity(v float64) error {
	if err := nonNegative("viscosity", v); err != nil {
		return p.fail("set viscosity", err)
	}
	p.viscosity = v
	return p.invalidate()
}

func (p *InvertedPendulum) Params() map[string]float64 {
	return map[string]float64{
		"cartMass":       p.cartMass,
		"pendulumMass":   p.pendulumMass,
		"pendulumLength": p.pendulumLength,
		"viscosity":      p.viscosity,
	}
}

func (p *InvertedPendulum) SetParam(name string, value float64) error {
	switch name {
	case "cartMass":
		return p.SetCartMass(value)
	case "pendulumMass":
		return p.SetPendulumMass(value)
	case "pendulumLength":
		return p.SetPendulumLength(value)
	case "viscosity":
		return p.SetViscosity(value)
	}
	return p.fail("set param", unknownParam(ClassInvertedPendulum, name))
}

func (p *InvertedPendulum) String() string {
	return fmt.Sprintf("%s(%s) x=%v", ClassInvertedPendulum, p.name, p.x)
}
