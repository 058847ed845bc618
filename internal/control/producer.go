package control

import (
	"fmt"

	"github.com/san-kum/dyngraph/internal/dynamo"
)

const (
	ClassController = "Controller"
	PortState       = "state"
	PortControl     = "control"
)

// Plant is the part of a model a Producer attaches to.
type Plant interface {
	StateOutput() dynamo.Output[dynamo.Vector]
	ControlInput() dynamo.Input[dynamo.Vector]
}

// Producer exposes a Law as a node of the signal graph. Its control output
// pulls the state input at the requested stamp and evaluates the law once per
// stamp; stateful laws such as PID therefore advance once per step however
// many consumers pull the output.
type Producer struct {
	name    string
	graph   *dynamo.Graph
	law     Law
	step    float64
	state   dynamo.Input[dynamo.Vector]
	control dynamo.Output[dynamo.Vector]
}

// NewProducer creates a producer whose stamps are step seconds apart.
func NewProducer(g *dynamo.Graph, name string, law Law, step float64) (*Producer, error) {
	if law == nil {
		return nil, fmt.Errorf("%w: nil control law", dynamo.ErrConstruction)
	}
	if !(step > 0) {
		return nil, fmt.Errorf("%w: step must be positive, got %g", dynamo.ErrInvalidParameter, step)
	}
	p := &Producer{name: name, graph: g, law: law, step: step}

	var err error
	p.state, err = dynamo.NewInput[dynamo.Vector](g, dynamo.SignalName(ClassController, name, dynamo.KindInput, "vector", PortState))
	if err != nil {
		return nil, err
	}
	p.control, err = dynamo.NewOutput(g, dynamo.SignalName(ClassController, name, dynamo.KindOutput, "vector", PortControl), p.eval)
	if err != nil {
		_ = g.Release(p.state.ID())
		return nil, err
	}
	return p, nil
}

// Attach plugs the plant's state into the producer and the producer into the
// plant's control.
func (p *Producer) Attach(plant Plant) error {
	if err := p.state.Plug(plant.StateOutput()); err != nil {
		return err
	}
	return plant.ControlInput().Plug(p.control)
}

func (p *Producer) eval(t dynamo.Time) (dynamo.Vector, error) {
	x, err := p.state.Get(t)
	if err != nil {
		return nil, err
	}
	u := p.law.Compute(x, float64(t)*p.step)
	if !u.IsValid() {
		return nil, dynamo.ErrInvalidState
	}
	return u, nil
}

func (p *Producer) Law() Law { return p.law }

func (p *Producer) StateInput() dynamo.Input[dynamo.Vector] { return p.state }

func (p *Producer) ControlOutput() dynamo.Output[dynamo.Vector] { return p.control }

func (p *Producer) Name() string  { return p.name }
func (p *Producer) Class() string { return ClassController }

func (p *Producer) Ports() []string { return []string{PortControl, PortState} }

func (p *Producer) Signal(port string) (dynamo.SignalID, error) {
	switch port {
	case PortState:
		return p.state.ID(), nil
	case PortControl:
		return p.control.ID(), nil
	}
	return 0, fmt.Errorf("%w: %s(%s) has no port %q", dynamo.ErrConfiguration, ClassController, p.name, port)
}

// Incr is a no-op: a producer only changes when its output is pulled.
func (p *Producer) Incr(dt float64) error {
	if !(dt > 0) {
		return fmt.Errorf("%w: time step must be positive, got %g", dynamo.ErrInvalidParameter, dt)
	}
	return nil
}

func (p *Producer) Release() error {
	err := p.graph.Release(p.state.ID())
	if cerr := p.graph.Release(p.control.ID()); err == nil {
		err = cerr
	}
	return err
}

// Params exposes the law's tunable parameters, if any.
func (p *Producer) Params() map[string]float64 {
	if c, ok := p.law.(dynamo.Configurable); ok {
		return c.Params()
	}
	return map[string]float64{}
}

func (p *Producer) SetParam(name string, value float64) error {
	if c, ok := p.law.(dynamo.Configurable); ok {
		return c.SetParam(name, value)
	}
	return fmt.Errorf("%w: %s has no parameter %q", dynamo.ErrInvalidParameter, p.name, name)
}

var (
	_ dynamo.Entity       = (*Producer)(nil)
	_ dynamo.Configurable = (*Producer)(nil)
	_ dynamo.Configurable = (*PID)(nil)
	_ dynamo.Configurable = (*LQR)(nil)
)
