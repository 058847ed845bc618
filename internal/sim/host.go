package sim

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/san-kum/dyngraph/internal/control"
	"github.com/san-kum/dyngraph/internal/dynamo"
	"github.com/san-kum/dyngraph/internal/physics"
)

// Host owns one signal graph and the registry of its entities. It is the
// only component that advances time: it calls Incr on a model, then pulls
// the model's outputs at the new stamp.
type Host struct {
	graph     *dynamo.Graph
	reg       *dynamo.Registry
	logger    *slog.Logger
	metrics   []Metric
	observers []Observer
}

func New(logger *slog.Logger) (*Host, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	g := dynamo.NewGraph()
	reg := dynamo.NewRegistry(g, logger)
	if err := physics.RegisterClasses(reg); err != nil {
		return nil, err
	}
	return &Host{
		graph:     g,
		reg:       reg,
		logger:    logger,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
	}, nil
}

func (h *Host) Graph() *dynamo.Graph       { return h.graph }
func (h *Host) Registry() *dynamo.Registry { return h.reg }

func (h *Host) AddMetric(m Metric)     { h.metrics = append(h.metrics, m) }
func (h *Host) AddObserver(o Observer) { h.observers = append(h.observers, o) }

// SetGraphObserver forwards every signal pull to o.
func (h *Host) SetGraphObserver(o dynamo.Observer) { h.graph.SetObserver(o) }

// Spawn creates a model of class under name.
func (h *Host) Spawn(class, name string) (physics.Model, error) {
	if _, err := h.reg.Create(class, name); err != nil {
		return nil, err
	}
	return h.Model(name)
}

// Model returns the registered model called name.
func (h *Host) Model(name string) (physics.Model, error) {
	e, err := h.reg.Lookup(name)
	if err != nil {
		return nil, err
	}
	m, ok := e.(physics.Model)
	if !ok {
		return nil, fmt.Errorf("%w: %s is a %s, not a model", dynamo.ErrConfiguration, name, e.Class())
	}
	return m, nil
}

func controllerName(name string) string { return name + "-ctl" }

// Attach drives the model's control input with law. The producer is
// registered as name + "-ctl" and its stamps are dt seconds apart.
func (h *Host) Attach(name string, law control.Law, dt float64) (*control.Producer, error) {
	m, err := h.Model(name)
	if err != nil {
		return nil, err
	}
	ctlName := controllerName(name)
	if err := h.reg.CheckName(ctlName); err != nil {
		return nil, err
	}
	p, err := control.NewProducer(h.graph, ctlName, law, dt)
	if err != nil {
		return nil, err
	}
	if err := p.Attach(m); err != nil {
		_ = p.Release()
		return nil, err
	}
	if err := h.reg.Register(p); err != nil {
		_ = p.Release()
		return nil, err
	}
	h.logger.Debug("controller attached", "entity", name, "controller", ctlName)
	return p, nil
}

// Detach unregisters the controller attached to the named model, if any.
// The model's control input keeps the last value it pulled.
func (h *Host) Detach(name string) error {
	ctlName := controllerName(name)
	if _, err := h.reg.Lookup(ctlName); err != nil {
		return nil
	}
	return h.reg.Unregister(ctlName)
}

// Remove detaches the model's controller and unregisters the model, so the
// name can be spawned and attached again.
func (h *Host) Remove(name string) error {
	if err := h.Detach(name); err != nil {
		return err
	}
	return h.reg.Unregister(name)
}

// Step advances the model by dt and pulls outputs at the new stamp. Observers
// see the step whether it succeeded or not.
func (h *Host) Step(name string, dt float64, outputs []string) (Step, error) {
	m, err := h.Model(name)
	if err != nil {
		return Step{}, err
	}
	return h.step(m, dt, outputs)
}

func (h *Host) step(m physics.Model, dt float64, outputs []string) (Step, error) {
	start := time.Now()
	err := m.Incr(dt)
	s := Step{
		Entity:   m.Name(),
		Stamp:    m.Time(),
		Time:     m.Elapsed(),
		State:    m.State(),
		Control:  m.PreviousControl(),
		Duration: time.Since(start),
		Err:      err,
	}
	if err == nil {
		s.Outputs, err = h.pullOutputs(m, outputs)
		s.Err = err
	}
	for _, obs := range h.observers {
		obs.OnStep(s)
	}
	return s, err
}

func (h *Host) pullOutputs(m physics.Model, ports []string) (map[string]float64, error) {
	if len(ports) == 0 {
		ports = physics.OutputPorts(m.Class())
	}
	out := make(map[string]float64, len(ports))
	for _, port := range ports {
		v, err := h.reg.Pull(m.Name(), port, m.Time())
		if err != nil {
			return nil, err
		}
		f, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("%w: port %s of %s is %T, not a scalar", dynamo.ErrConfiguration, port, m.Name(), v)
		}
		out[port] = f
	}
	return out, nil
}

// Run steps the named model cfg.Steps times. On a failed step it returns the
// steps recorded so far together with the error.
func (h *Host) Run(ctx context.Context, name string, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m, err := h.Model(name)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Entity:   name,
		Stamps:   make([]dynamo.Time, 0, cfg.Steps+1),
		Times:    make([]float64, 0, cfg.Steps+1),
		States:   make([]dynamo.State, 0, cfg.Steps+1),
		Controls: make([]dynamo.Control, 0, cfg.Steps),
		Outputs:  make(map[string][]float64),
		Metrics:  make(map[string]float64),
	}

	for _, mt := range h.metrics {
		mt.Reset()
		if st, ok := mt.(Starter); ok {
			st.Start(m.Elapsed())
		}
	}

	result.Stamps = append(result.Stamps, m.Time())
	result.Times = append(result.Times, m.Elapsed())
	result.States = append(result.States, m.State())

	h.logger.Info("run started", "entity", name, "class", m.Class(), "dt", cfg.Dt, "steps", cfg.Steps)

	for i := 0; i < cfg.Steps; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		s, err := h.step(m, cfg.Dt, cfg.Outputs)
		if err != nil {
			h.logger.Warn("step failed", "entity", name, "step", i, "error", err)
			return result, fmt.Errorf("step %d: %w", i, err)
		}

		for _, mt := range h.metrics {
			mt.Observe(s.State, s.Control, s.Time)
		}

		result.StepsTaken++
		result.Stamps = append(result.Stamps, s.Stamp)
		result.Times = append(result.Times, s.Time)
		result.States = append(result.States, s.State)
		result.Controls = append(result.Controls, s.Control)
		for port, v := range s.Outputs {
			result.Outputs[port] = append(result.Outputs[port], v)
		}
	}

	for _, mt := range h.metrics {
		result.Metrics[mt.Name()] = mt.Value()
	}

	h.logger.Info("run finished", "entity", name, "steps", result.StepsTaken, "final", m.State())
	return result, nil
}
