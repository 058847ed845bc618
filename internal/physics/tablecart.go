package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/dyngraph/internal/dynamo"
)

const (
	ClassTableCart = "TableCart"
	PortZMP        = "zmp"
)

// TableCart is the table-cart model used as a simplified model of a humanoid
// robot. The control is the horizontal velocity of the cart:
//
//	ẋ = u
//
// and the observable is the center of pressure of the ground reaction force:
//
//	z = x − (h/g)·(ẍ + F/m)
//
// where h is the cart height, m the cart mass and F a perturbation force.
// ẍ is estimated by the backward difference (u − u_prev)/Δt.
type TableCart struct {
	*body
	zmp dynamo.Output[float64]

	cartMass   float64
	cartHeight float64
	viscosity  float64
	accel      float64
}

// NewTableCart creates a table cart at x = 0 and registers it with reg.
func NewTableCart(reg *dynamo.Registry, name string) (*TableCart, error) {
	b, err := newBody(reg, ClassTableCart, name, dynamo.State{0}, 1)
	if err != nil {
		return nil, err
	}
	c := &TableCart{
		body:       b,
		cartMass:   1.0,
		cartHeight: 0.8,
	}
	if c.zmp, err = dynamo.NewOutput(b.graph, b.signalName(dynamo.KindOutput, "double", PortZMP), c.evalZMP); err != nil {
		return nil, b.abort(err)
	}
	b.ports[PortZMP] = c.zmp.ID()

	if err := reg.Register(c); err != nil {
		return nil, b.abort(err)
	}
	return c, nil
}

func (c *TableCart) StateDim() int   { return 1 }
func (c *TableCart) ControlDim() int { return 1 }

func (c *TableCart) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	v := 0.0
	if len(u) > 0 {
		v = u[0]
	}
	return dynamo.State{v}
}

// Incr integrates over dt and commits at the stamp following the last one.
func (c *TableCart) Incr(dt float64) error {
	return c.IncrAt(c.stamp+1, dt)
}

// IncrAt integrates over dt and commits at stamp t, which must be after the
// last committed stamp. On error nothing is modified.
func (c *TableCart) IncrAt(t dynamo.Time, dt float64) error {
	if err := c.checkStep(t, dt); err != nil {
		return c.fail("incr", err)
	}
	u, f, err := c.pullInputs(t)
	if err != nil {
		return c.fail("incr", err)
	}

	x, err := c.integrate(c, u, dt)
	if err != nil {
		return c.fail("incr", err)
	}
	accel := (u[0] - c.prevControl[0]) / dt
	z := c.zmpAt(x[0], accel, f)
	if !x.IsValid() || math.IsNaN(z) || math.IsInf(z, 0) {
		return c.fail("incr", dynamo.ErrInvalidState)
	}

	c.accel = accel
	if err := c.commit(t, dt, x, u); err != nil {
		return c.fail("incr", err)
	}
	if err := c.zmp.Set(z, t); err != nil {
		return c.fail("incr", err)
	}
	return nil
}

func (c *TableCart) zmpAt(x, accel, force float64) float64 {
	return x - (c.cartHeight/Gravity)*(accel+force/c.cartMass)
}

// evalZMP projects the stored state; it never advances time.
func (c *TableCart) evalZMP(t dynamo.Time) (float64, error) {
	f, err := c.force.Get(t)
	if err != nil {
		return 0, err
	}
	return c.zmpAt(c.x[0], c.accel, f), nil
}

// SetState sets the initial position. It fails once the cart has stepped.
func (c *TableCart) SetState(x dynamo.State) error { return c.setState(x) }

func (c *TableCart) ZMPOutput() dynamo.Output[float64] { return c.zmp }

// Acceleration returns the acceleration estimated by the last step.
func (c *TableCart) Acceleration() float64 { return c.accel }

func (c *TableCart) CartMass() float64   { return c.cartMass }
func (c *TableCart) CartHeight() float64 { return c.cartHeight }
func (c *TableCart) Viscosity() float64  { return c.viscosity }

func (c *TableCart) SetCartMass(m float64) error {
	if err := positive("cart mass", m); err != nil {
		return c.fail("set cartMass", err)
	}
	c.cartMass = m
	return c.invalidate()
}

func (c *TableCart) SetCartHeight(h float64) error {
	if err := positive("cart height", h); err != nil {
		return c.fail("set cartHeight", err)
	}
	c.cartHeight = h
	return c.invalidate()
}

// SetViscosity stores the damping coefficient. The first-order table-cart
// model imposes ẋ directly, so viscosity does not enter its equations.
func (c *TableCart) SetViscosity(v float64) error {
	if err := nonNegative("viscosity", v); err != nil {
		return c.fail("set viscosity", err)
	}
	c.viscosity = v
	return nil
}

func (c *TableCart) Params() map[string]float64 {
	return map[string]float64{
		"cartMass":   c.cartMass,
		"cartHeight": c.cartHeight,
		"viscosity":  c.viscosity,
	}
}

func (c *TableCart) SetParam(name string, value float64) error {
	switch name {
	case "cartMass":
		return c.SetCartMass(value)
	case "cartHeight":
		return c.SetCartHeight(value)
	case "viscosity":
		return c.SetViscosity(value)
	}
	return c.fail("set param", unknownParam(ClassTableCart, name))
}

func (c *TableCart) String() string {
	return fmt.Sprintf("%s(%s) x=%v accel=%g", ClassTableCart, c.name, c.x, c.accel)
}
