package control

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/dyngraph/internal/dynamo"
	"github.com/san-kum/dyngraph/internal/physics"
)

func TestNone(t *testing.T) {
	ctrl := NewNone(2)
	u := ctrl.Compute(dynamo.State{1.0, 2.0}, 0.0)

	if len(u) != 2 {
		t.Errorf("expected 2 controls, got %d", len(u))
	}
	for i, v := range u {
		if v != 0 {
			t.Errorf("control[%d] should be 0, got %f", i, v)
		}
	}
}

func TestConstantIsCopied(t *testing.T) {
	src := dynamo.Control{1.5}
	c := NewConstant(src)
	src[0] = 9
	u := c.Compute(nil, 0)
	u[0] = 7
	if got := c.Compute(nil, 1)[0]; got != 1.5 {
		t.Errorf("constant changed to %v", got)
	}
}

func TestPID(t *testing.T) {
	ctrl := NewPID(10.0, 0.1, 5.0, 0.0)
	u := ctrl.Compute(dynamo.State{1.0}, 0.0)
	if len(u) != 1 {
		t.Fatalf("expected 1 control, got %d", len(u))
	}
	if u[0] >= 0 {
		t.Error("PID should output negative control for positive error")
	}

	u = ctrl.Compute(dynamo.State{0.5}, 0.1)
	want := 10*-0.5 + 0.1*(-0.5*0.1) + 5*(0.5/0.1)
	if math.Abs(u[0]-want) > 1e-9 {
		t.Errorf("second step = %v, want %v", u[0], want)
	}

	ctrl.Reset()
	if got := ctrl.Compute(dynamo.State{1.0}, 0.2)[0]; got != -10 {
		t.Errorf("after reset = %v, want -10", got)
	}
}

func TestPIDParams(t *testing.T) {
	ctrl := NewCartPID(1)
	require.NoError(t, ctrl.SetParam("Kp", 4))
	assert.Equal(t, 4.0, ctrl.Params()["Kp"])
	assert.ErrorIs(t, ctrl.SetParam("Kx", 1), dynamo.ErrInvalidParameter)
}

func TestLQR(t *testing.T) {
	l := NewLQR([][]float64{{2, 3}}, dynamo.State{1, 0})
	u := l.Compute(dynamo.State{2, 1}, 0)
	assert.Equal(t, dynamo.Control{-5}, u)

	require.NoError(t, l.SetParam("K01", 1))
	assert.Equal(t, map[string]float64{"K00": 2, "K01": 1}, l.Params())
	assert.ErrorIs(t, l.SetParam("K10", 1), dynamo.ErrInvalidParameter)
}

func TestNew(t *testing.T) {
	for _, name := range Names() {
		law, err := New(name, physics.ClassTableCart, dynamo.Control{0.5}, 1)
		require.NoError(t, err, name)
		assert.Len(t, law.Compute(dynamo.State{0}, 0), 1, name)
	}
	lqr, err := New("lqr", physics.ClassInvertedPendulum, dynamo.Control{0}, 0)
	require.NoError(t, err)
	assert.Len(t, lqr.(*LQR).K[0], 4)

	_, err = New("mpc", physics.ClassTableCart, nil, 0)
	assert.ErrorIs(t, err, dynamo.ErrInvalidParameter)
}

func TestManual(t *testing.T) {
	m := NewManual(1)
	require.NoError(t, m.SetControl(dynamo.Control{2}))
	m.Nudge(0, 0.5)
	m.Nudge(3, 1)
	assert.Equal(t, dynamo.Control{2.5}, m.Compute(nil, 0))
	assert.ErrorIs(t, m.SetControl(dynamo.Control{1, 2}), dynamo.ErrDimensionMismatch)
}

type countingLaw struct {
	calls int
	inner Law
}

func (c *countingLaw) Compute(x dynamo.State, t float64) dynamo.Control {
	c.calls++
	return c.inner.Compute(x, t)
}

func TestProducer_PulledOncePerStamp(t *testing.T) {
	reg := dynamo.NewRegistry(nil, nil)
	cart, err := physics.NewTableCart(reg, "cart")
	require.NoError(t, err)

	law := &countingLaw{inner: NewConstant(dynamo.Control{1})}
	p, err := NewProducer(reg.Graph(), "ctl", law, 0.1)
	require.NoError(t, err)
	require.NoError(t, p.Attach(cart))
	require.NoError(t, reg.Register(p))

	for i := 0; i < 5; i++ {
		require.NoError(t, cart.Incr(0.1))
		_, err := p.ControlOutput().Get(cart.Time())
		require.NoError(t, err)
		_, err = reg.Pull("ctl", PortControl, cart.Time())
		require.NoError(t, err)
	}
	assert.Equal(t, 5, law.calls)
	assert.InDelta(t, 0.5, cart.State()[0], 1e-12)
}

func TestProducer_PIDTracksTarget(t *testing.T) {
	reg := dynamo.NewRegistry(nil, nil)
	cart, err := physics.NewTableCart(reg, "cart")
	require.NoError(t, err)

	p, err := NewProducer(reg.Graph(), "pid", NewCartPID(1), 0.01)
	require.NoError(t, err)
	require.NoError(t, p.Attach(cart))

	for i := 0; i < 1000; i++ {
		require.NoError(t, cart.Incr(0.01))
	}
	assert.InDelta(t, 1.0, cart.State()[0], 0.05)
}

func TestProducer_LQRBalancesPendulum(t *testing.T) {
	reg := dynamo.NewRegistry(nil, nil)
	pend, err := physics.NewInvertedPendulum(reg, "pendulum")
	require.NoError(t, err)
	require.NoError(t, pend.SetState(dynamo.State{0, 0.1, 0, 0}))

	p, err := NewProducer(reg.Graph(), "lqr", NewPendulumLQR(), 0.01)
	require.NoError(t, err)
	require.NoError(t, p.Attach(pend))

	for i := 0; i < 1000; i++ {
		require.NoError(t, pend.Incr(0.01))
		require.Less(t, math.Abs(pend.State()[1]), 0.2)
	}
	assert.InDelta(t, 0, pend.State()[1], 1e-3)
	assert.InDelta(t, 0, pend.State()[0], 1e-2)
}

func TestProducer_Validation(t *testing.T) {
	g := dynamo.NewGraph()
	_, err := NewProducer(g, "x", nil, 0.1)
	assert.ErrorIs(t, err, dynamo.ErrConstruction)
	_, err = NewProducer(g, "x", NewNone(1), 0)
	assert.ErrorIs(t, err, dynamo.ErrInvalidParameter)

	p, err := NewProducer(g, "x", NewNone(1), 0.1)
	require.NoError(t, err)
	_, err = p.ControlOutput().Get(1)
	assert.ErrorIs(t, err, dynamo.ErrConfiguration, "unplugged state input")

	_, err = p.Signal("nope")
	assert.ErrorIs(t, err, dynamo.ErrConfiguration)
	assert.ErrorIs(t, p.SetParam("Kp", 1), dynamo.ErrInvalidParameter)

	require.NoError(t, p.Release())
	assert.Equal(t, 0, g.Len())
}
