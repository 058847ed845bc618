package physics

import (
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/dyngraph/internal/dynamo"
	"github.com/san-kum/dyngraph/internal/integrators"
)

// Gravity is the gravitational constant used by every model, in m/s².
const Gravity = 9.81

const (
	PortForce   = "force"
	PortControl = "control"
	PortState   = "state"
)

// body holds what every cart-like entity shares: identity, the signals common
// to all models, the committed state and the previous control.
type body struct {
	name       string
	class      string
	graph      *dynamo.Graph
	ports      map[string]dynamo.SignalID
	integrator dynamo.Integrator
	released   bool

	force   dynamo.Input[float64]
	control dynamo.Input[dynamo.Vector]
	state   dynamo.Output[dynamo.Vector]

	x           dynamo.State
	prevControl dynamo.Control
	stamp       dynamo.Time
	elapsed     float64
	stepped     bool
}

func newBody(reg *dynamo.Registry, class, name string, x0 dynamo.State, controlDim int) (*body, error) {
	if err := reg.CheckName(name); err != nil {
		return nil, err
	}
	b := &body{
		name:        name,
		class:       class,
		graph:       reg.Graph(),
		ports:       make(map[string]dynamo.SignalID),
		integrator:  integrators.NewEuler(),
		x:           x0.Clone(),
		prevControl: make(dynamo.Control, controlDim),
	}

	var err error
	if b.force, err = dynamo.NewInputWithDefault(b.graph, b.signalName(dynamo.KindInput, "double", PortForce), 0.0); err != nil {
		return nil, b.abort(err)
	}
	b.ports[PortForce] = b.force.ID()

	if b.control, err = dynamo.NewInputWithDefault(b.graph, b.signalName(dynamo.KindInput, "vector", PortControl), make(dynamo.Vector, controlDim)); err != nil {
		return nil, b.abort(err)
	}
	b.ports[PortControl] = b.control.ID()

	if b.state, err = dynamo.NewOutput(b.graph, b.signalName(dynamo.KindOutput, "vector", PortState), b.evalState); err != nil {
		return nil, b.abort(err)
	}
	b.ports[PortState] = b.state.ID()

	return b, nil
}

func (b *body) signalName(kind dynamo.Kind, typ, port string) string {
	return dynamo.SignalName(b.class, b.name, kind, typ, port)
}

// abort releases the signals allocated so far by a failed constructor.
func (b *body) abort(err error) error {
	_ = b.Release()
	return err
}

func (b *body) Name() string  { return b.name }
func (b *body) Class() string { return b.class }

func (b *body) Ports() []string {
	names := make([]string, 0, len(b.ports))
	for name := range b.ports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (b *body) Signal(port string) (dynamo.SignalID, error) {
	id, ok := b.ports[port]
	if !ok {
		return 0, fmt.Errorf("%w: %s(%s) has no port %q", dynamo.ErrConfiguration, b.class, b.name, port)
	}
	return id, nil
}

// Release frees every signal of the entity. The entity cannot step afterwards.
func (b *body) Release() error {
	if b.released {
		return nil
	}
	b.released = true
	var first error
	for _, id := range b.ports {
		if err := b.graph.Release(id); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Time returns the stamp of the last committed step (0 before the first).
func (b *body) Time() dynamo.Time { return b.stamp }

// Elapsed returns the integrated simulation time in seconds.
func (b *body) Elapsed() float64 { return b.elapsed }

func (b *body) State() dynamo.State { return b.x.Clone() }

func (b *body) PreviousControl() dynamo.Control { return b.prevControl.Clone() }

func (b *body) ForceInput() dynamo.Input[float64] { return b.force }

func (b *body) ControlInput() dynamo.Input[dynamo.Vector] { return b.control }

func (b *body) StateOutput() dynamo.Output[dynamo.Vector] { return b.state }

// SetIntegrator replaces the stepper; explicit Euler is the default.
func (b *body) SetIntegrator(integ dynamo.Integrator) { b.integrator = integ }

func (b *body) evalState(dynamo.Time) (dynamo.Vector, error) { return b.x.Clone(), nil }

// setState replaces the initial condition. It is refused once the entity has
// stepped.
func (b *body) setState(x dynamo.State) error {
	if b.stepped {
		return b.fail("set state", fmt.Errorf("%w: state is only settable before the first step", dynamo.ErrInvalidParameter))
	}
	if len(x) != len(b.x) {
		return b.fail("set state", fmt.Errorf("%w: got %d components, want %d", dynamo.ErrDimensionMismatch, len(x), len(b.x)))
	}
	if !x.IsValid() {
		return b.fail("set state", dynamo.ErrInvalidState)
	}
	b.x = x.Clone()
	return b.invalidate()
}

func (b *body) invalidate() error {
	for _, id := range b.ports {
		if err := b.graph.Invalidate(id); err != nil {
			return err
		}
	}
	return nil
}

// checkStep validates a step request without touching any state.
func (b *body) checkStep(t dynamo.Time, dt float64) error {
	if b.released {
		return fmt.Errorf("%w: entity released", dynamo.ErrConfiguration)
	}
	if !(dt > 0) || math.IsInf(dt, 0) {
		return fmt.Errorf("%w: time step must be positive, got %g", dynamo.ErrInvalidParameter, dt)
	}
	if t <= b.stamp {
		return fmt.Errorf("%w: time stamp %d not after %d", dynamo.ErrInvalidParameter, t, b.stamp)
	}
	return nil
}

// pullInputs reads control and force at t.
func (b *body) pullInputs(t dynamo.Time) (dynamo.Control, float64, error) {
	u, err := b.control.Get(t)
	if err != nil {
		return nil, 0, err
	}
	if len(u) != len(b.prevControl) {
		return nil, 0, fmt.Errorf("%w: control has %d components, want %d", dynamo.ErrDimensionMismatch, len(u), len(b.prevControl))
	}
	f, err := b.force.Get(t)
	if err != nil {
		return nil, 0, err
	}
	return u, f, nil
}

// integrate steps sys from the committed state and checks the result length.
func (b *body) integrate(sys dynamo.System, u dynamo.Control, dt float64) (dynamo.State, error) {
	x, err := b.integrator.Step(sys, b.x, u, b.elapsed, dt)
	if err != nil {
		return nil, err
	}
	if len(x) != len(b.x) {
		return nil, fmt.Errorf("%w: integrator returned %d components, want %d", dynamo.ErrDimensionMismatch, len(x), len(b.x))
	}
	return x, nil
}

// commit stores the new state and control and pushes the state output at t.
func (b *body) commit(t dynamo.Time, dt float64, x dynamo.State, u dynamo.Control) error {
	b.x = x
	b.prevControl = u.Clone()
	b.stamp = t
	b.elapsed += dt
	b.stepped = true
	return b.state.Set(x, t)
}

func (b *body) fail(op string, err error) error {
	return &dynamo.EntityError{Entity: b.name, Op: op, Err: err}
}

func positive(name string, v float64) error {
	if !(v > 0) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s must be positive, got %g", dynamo.ErrInvalidParameter, name, v)
	}
	return nil
}

func nonNegative(name string, v float64) error {
	if !(v >= 0) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s must be non-negative, got %g", dynamo.ErrInvalidParameter, name, v)
	}
	return nil
}

func unknownParam(class, name string) error {
	return fmt.Errorf("%w: %s has no parameter %q", dynamo.ErrInvalidParameter, class, name)
}
