package dynamo

import (
	"fmt"
	"log/slog"
	"sort"
)

// Entity is a named node of the host graph that owns signals and parameters.
type Entity interface {
	Name() string
	Class() string
	// Ports lists the short names of the entity's signals.
	Ports() []string
	Signal(port string) (SignalID, error)
	// Incr integrates the entity over dt and commits the result at the next stamp.
	Incr(dt float64) error
	// Release frees the entity's signals from the graph.
	Release() error
}

// Factory constructs an entity of one class. Factories register the entity
// with reg before returning it.
type Factory func(reg *Registry, name string) (Entity, error)

// Registry indexes the live entities of one host context by name. It is owned
// by the host and shares the lifetime of its Graph.
type Registry struct {
	graph     *Graph
	entities  map[string]Entity
	factories map[string]Factory
	logger    *slog.Logger
}

func NewRegistry(g *Graph, logger *slog.Logger) *Registry {
	if g == nil {
		g = NewGraph()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		graph:     g,
		entities:  make(map[string]Entity),
		factories: make(map[string]Factory),
		logger:    logger,
	}
}

func (r *Registry) Graph() *Graph { return r.graph }

func (r *Registry) Logger() *slog.Logger { return r.logger }

// RegisterClass makes a class constructible with Create.
func (r *Registry) RegisterClass(class string, f Factory) error {
	if class == "" || f == nil {
		return fmt.Errorf("%w: invalid class registration", ErrConstruction)
	}
	if _, ok := r.factories[class]; ok {
		return fmt.Errorf("%w: class %s already registered", ErrConstruction, class)
	}
	r.factories[class] = f
	return nil
}

func (r *Registry) Classes() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create constructs and registers an entity of the given class.
func (r *Registry) Create(class, name string) (Entity, error) {
	f, ok := r.factories[class]
	if !ok {
		return nil, fmt.Errorf("%w: unknown class %s", ErrConstruction, class)
	}
	return f(r, name)
}

// CheckName reports whether name can be registered.
func (r *Registry) CheckName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty entity name", ErrConstruction)
	}
	if _, ok := r.entities[name]; ok {
		return fmt.Errorf("%w: entity %s already exists", ErrConstruction, name)
	}
	return nil
}

// Register adds e under its name. A duplicate name is rejected and the
// existing entity stays registered.
func (r *Registry) Register(e Entity) error {
	if err := r.CheckName(e.Name()); err != nil {
		return err
	}
	r.entities[e.Name()] = e
	r.logger.Debug("entity registered", "entity", e.Name(), "class", e.Class())
	return nil
}

// Unregister removes the entity and releases its signals.
func (r *Registry) Unregister(name string) error {
	e, ok := r.entities[name]
	if !ok {
		return fmt.Errorf("%w: no entity named %s", ErrConfiguration, name)
	}
	delete(r.entities, name)
	r.logger.Debug("entity unregistered", "entity", name)
	return e.Release()
}

func (r *Registry) Lookup(name string) (Entity, error) {
	e, ok := r.entities[name]
	if !ok {
		return nil, fmt.Errorf("%w: no entity named %s", ErrConfiguration, name)
	}
	return e, nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entities))
	for name := range r.entities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Pull evaluates an entity's signal at t.
func (r *Registry) Pull(entity, port string, t Time) (any, error) {
	e, err := r.Lookup(entity)
	if err != nil {
		return nil, err
	}
	id, err := e.Signal(port)
	if err != nil {
		return nil, err
	}
	return r.graph.Pull(id, t)
}

// Incr advances an entity by dt.
func (r *Registry) Incr(entity string, dt float64) error {
	e, err := r.Lookup(entity)
	if err != nil {
		return err
	}
	return e.Incr(dt)
}

// Plug wires entity dst's input port to entity src's port.
func (r *Registry) Plug(dst, dstPort, src, srcPort string) error {
	de, err := r.Lookup(dst)
	if err != nil {
		return err
	}
	se, err := r.Lookup(src)
	if err != nil {
		return err
	}
	did, err := de.Signal(dstPort)
	if err != nil {
		return err
	}
	sid, err := se.Signal(srcPort)
	if err != nil {
		return err
	}
	return r.graph.plug(did, sid)
}
