package dynamo

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
)

// SignalID is the stable arena index of a signal in a Graph.
// IDs are never reused within a Graph, even after Release.
type SignalID int

const noSource SignalID = -1

type Kind int

const (
	KindInput Kind = iota
	KindOutput
)

func (k Kind) String() string {
	if k == KindOutput {
		return "output"
	}
	return "input"
}

// Observer is notified of every pull. Hits are pulls served from the cache or
// from a held value; computes are calls to an evaluation function or to an
// upstream source.
type Observer interface {
	OnHit(signal string, t Time)
	OnCompute(signal string, t Time, err error)
}

type record struct {
	name       string
	kind       Kind
	typ        reflect.Type
	value      any
	stamp      Time
	hasValue   bool
	def        any
	hasDef     bool
	eval       func(Time) (any, error)
	source     SignalID
	evaluating bool
	released   bool
}

// Graph is an arena of signal records. Evaluation is synchronous on the
// caller's goroutine; a Graph is not safe for concurrent use.
type Graph struct {
	records  []*record
	byName   map[string]SignalID
	observer Observer
}

func NewGraph() *Graph {
	return &Graph{
		records: make([]*record, 0),
		byName:  make(map[string]SignalID),
	}
}

func (g *Graph) SetObserver(o Observer) { g.observer = o }

func (g *Graph) add(r *record) (SignalID, error) {
	if r.name == "" {
		return noSource, fmt.Errorf("%w: empty signal name", ErrConstruction)
	}
	if _, ok := g.byName[r.name]; ok {
		return noSource, fmt.Errorf("%w: signal %s already exists", ErrConstruction, r.name)
	}
	id := SignalID(len(g.records))
	g.records = append(g.records, r)
	g.byName[r.name] = id
	return id, nil
}

func (g *Graph) record(id SignalID) (*record, error) {
	if id < 0 || int(id) >= len(g.records) || g.records[id].released {
		return nil, fmt.Errorf("%w: unknown signal id %d", ErrConfiguration, id)
	}
	return g.records[id], nil
}

// Lookup returns the ID of the live signal with the given full name.
func (g *Graph) Lookup(name string) (SignalID, error) {
	id, ok := g.byName[name]
	if !ok {
		return noSource, fmt.Errorf("%w: no signal named %s", ErrConfiguration, name)
	}
	return id, nil
}

// Names returns the names of all live signals, sorted.
func (g *Graph) Names() []string {
	names := make([]string, 0, len(g.byName))
	for name := range g.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (g *Graph) Len() int { return len(g.byName) }

// Stamp returns the stamp of the last value stored in the signal, or NoTime.
func (g *Graph) Stamp(id SignalID) (Time, error) {
	r, err := g.record(id)
	if err != nil {
		return NoTime, err
	}
	return r.stamp, nil
}

// Release frees a signal. Inputs plugged into it revert to their held value
// or default.
func (g *Graph) Release(id SignalID) error {
	r, err := g.record(id)
	if err != nil {
		return err
	}
	for _, other := range g.records {
		if !other.released && other.source == id {
			other.source = noSource
		}
	}
	r.released = true
	r.value, r.def, r.eval = nil, nil, nil
	delete(g.byName, r.name)
	return nil
}

// Invalidate drops the cached value of an output so that the next pull
// recomputes it. Held values of inputs are kept.
func (g *Graph) Invalidate(id SignalID) error {
	r, err := g.record(id)
	if err != nil {
		return err
	}
	if r.kind == KindOutput && r.eval != nil {
		r.hasValue = false
		r.stamp = NoTime
	}
	return nil
}

// Pull is the untyped form of Get, used by hosts that address signals by name.
func (g *Graph) Pull(id SignalID, t Time) (any, error) {
	return g.pull(id, t)
}

func (g *Graph) pull(id SignalID, t Time) (any, error) {
	r, err := g.record(id)
	if err != nil {
		return nil, err
	}

	if r.evaluating {
		return nil, &SignalError{Signal: r.name, Time: t, Err: fmt.Errorf("%w: dependency cycle", ErrConfiguration)}
	}

	switch {
	case r.kind == KindOutput && r.eval != nil:
		if r.hasValue && r.stamp == t {
			g.hit(r.name, t)
			return r.value, nil
		}
		return g.compute(r, t, r.eval)

	case r.kind == KindInput && r.source != noSource:
		if r.hasValue && r.stamp == t {
			g.hit(r.name, t)
			return r.value, nil
		}
		src := r.source
		return g.compute(r, t, func(t Time) (any, error) { return g.pull(src, t) })

	case r.hasValue:
		g.hit(r.name, t)
		return r.value, nil

	case r.hasDef:
		g.hit(r.name, t)
		return r.def, nil
	}

	err = &SignalError{Signal: r.name, Time: t, Err: fmt.Errorf("%w: %s has no value, source or evaluation function", ErrConfiguration, r.kind)}
	if g.observer != nil {
		g.observer.OnCompute(r.name, t, err)
	}
	return nil, err
}

func (g *Graph) compute(r *record, t Time, fn func(Time) (any, error)) (any, error) {
	v, err := invoke(r, t, fn)
	if err != nil {
		var se *SignalError
		if !errors.As(err, &se) {
			err = &SignalError{Signal: r.name, Time: t, Err: err}
		}
	} else if reflect.TypeOf(v) != r.typ {
		err = &SignalError{Signal: r.name, Time: t, Err: fmt.Errorf("%w: got %T, want %s", ErrConfiguration, v, r.typ)}
	}
	if g.observer != nil {
		g.observer.OnCompute(r.name, t, err)
	}
	if err != nil {
		return nil, err
	}
	r.value, r.stamp, r.hasValue = v, t, true
	return v, nil
}

func invoke(r *record, t Time, fn func(Time) (any, error)) (any, error) {
	r.evaluating = true
	defer func() { r.evaluating = false }()
	return fn(t)
}

func (g *Graph) hit(name string, t Time) {
	if g.observer != nil {
		g.observer.OnHit(name, t)
	}
}

func (g *Graph) set(id SignalID, v any, t Time) error {
	r, err := g.record(id)
	if err != nil {
		return err
	}
	r.value, r.stamp, r.hasValue = v, t, true
	return nil
}

func (g *Graph) plug(dst, src SignalID) error {
	d, err := g.record(dst)
	if err != nil {
		return err
	}
	s, err := g.record(src)
	if err != nil {
		return err
	}
	if d.kind != KindInput {
		return fmt.Errorf("%w: cannot plug into %s %s", ErrConfiguration, d.kind, d.name)
	}
	if d.typ != s.typ {
		return fmt.Errorf("%w: cannot plug %s (%s) into %s (%s)", ErrConfiguration, s.name, s.typ, d.name, d.typ)
	}
	for cur := src; cur != noSource; cur = g.records[cur].source {
		if cur == dst {
			return fmt.Errorf("%w: plugging %s into %s creates a cycle", ErrConfiguration, s.name, d.name)
		}
	}
	d.source = src
	d.hasValue = false
	d.stamp = NoTime
	return nil
}

// PlugByName wires the input named dst to the signal named src.
func (g *Graph) PlugByName(dst, src string) error {
	d, err := g.Lookup(dst)
	if err != nil {
		return err
	}
	s, err := g.Lookup(src)
	if err != nil {
		return err
	}
	return g.plug(d, s)
}

// Unplug disconnects an input from its source; it keeps the last value it
// pulled, or falls back to its default.
func (g *Graph) Unplug(id SignalID) error {
	r, err := g.record(id)
	if err != nil {
		return err
	}
	r.source = noSource
	return nil
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func cloneValue[T any](v T) T {
	if c, ok := any(v).(interface{ Clone() T }); ok {
		return c.Clone()
	}
	return v
}

func get[T any](g *Graph, id SignalID, t Time) (T, error) {
	var zero T
	v, err := g.pull(id, t)
	if err != nil {
		return zero, err
	}
	tv, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: signal %d holds %T", ErrConfiguration, id, v)
	}
	return cloneValue(tv), nil
}

// Input is a typed handle to a signal fed by an upstream source, by an
// external push, or by its default.
type Input[T any] struct {
	g  *Graph
	id SignalID
}

// NewInput creates an input with no default; pulling it before it is set or
// plugged is a configuration error.
func NewInput[T any](g *Graph, name string) (Input[T], error) {
	id, err := g.add(&record{name: name, kind: KindInput, typ: typeOf[T](), stamp: NoTime, source: noSource})
	return Input[T]{g: g, id: id}, err
}

func NewInputWithDefault[T any](g *Graph, name string, def T) (Input[T], error) {
	id, err := g.add(&record{name: name, kind: KindInput, typ: typeOf[T](), stamp: NoTime, source: noSource, def: def, hasDef: true})
	return Input[T]{g: g, id: id}, err
}

func (s Input[T]) ID() SignalID { return s.id }

func (s Input[T]) Name() string {
	if r, err := s.g.record(s.id); err == nil {
		return r.name
	}
	return ""
}

func (s Input[T]) Get(t Time) (T, error) { return get[T](s.g, s.id, t) }

func (s Input[T]) Set(v T, t Time) error { return s.g.set(s.id, cloneValue(v), t) }

func (s Input[T]) Plug(src Output[T]) error { return s.g.plug(s.id, src.id) }

func (s Input[T]) Unplug() error { return s.g.Unplug(s.id) }

// Output is a typed handle to a signal computed on demand by an evaluation
// function and cached against the stamp of the last computation.
type Output[T any] struct {
	g  *Graph
	id SignalID
}

// NewOutput creates an output. eval may be nil for outputs that are only ever
// pushed with Set; pulling such an output before any push is a configuration
// error.
func NewOutput[T any](g *Graph, name string, eval func(Time) (T, error)) (Output[T], error) {
	r := &record{name: name, kind: KindOutput, typ: typeOf[T](), stamp: NoTime, source: noSource}
	if eval != nil {
		r.eval = func(t Time) (any, error) {
			v, err := eval(t)
			if err != nil {
				return nil, err
			}
			return v, nil
		}
	}
	id, err := g.add(r)
	return Output[T]{g: g, id: id}, err
}

func (s Output[T]) ID() SignalID { return s.id }

func (s Output[T]) Name() string {
	if r, err := s.g.record(s.id); err == nil {
		return r.name
	}
	return ""
}

func (s Output[T]) Get(t Time) (T, error) { return get[T](s.g, s.id, t) }

// Set stores v as the value computed at t.
func (s Output[T]) Set(v T, t Time) error { return s.g.set(s.id, cloneValue(v), t) }

// SignalName builds the conventional full name of an entity's signal:
// Class(entity)::kind(type)::port.
func SignalName(class, entity string, kind Kind, typ, port string) string {
	return fmt.Sprintf("%s(%s)::%s(%s)::%s", class, entity, kind, typ, port)
}
