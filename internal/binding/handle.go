package binding

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"

	"github.com/mitchellh/mapstructure"

	"github.com/san-kum/dyngraph/internal/dynamo"
	"github.com/san-kum/dyngraph/internal/physics"
)

// ErrInvalidHandle is returned for zero, stale or foreign handles, and for
// handles whose model lacks the requested accessor.
var ErrInvalidHandle = errors.New("binding: invalid handle")

// Handle is an opaque reference to a model held by a Table. The zero Handle
// is never valid.
type Handle struct {
	table uint32
	index uint32
	gen   uint32
}

func (h Handle) IsZero() bool { return h == Handle{} }

func (h Handle) String() string { return fmt.Sprintf("handle(%d:%d@%d)", h.table, h.index, h.gen) }

var tableIDs atomic.Uint32

type slot struct {
	model physics.Model
	gen   uint32
}

// Table maps handles to the models of one registry. A slot's generation is
// bumped when its model is destroyed, so handles to a reused slot stay
// invalid. Table is not safe for concurrent use.
type Table struct {
	id     uint32
	reg    *dynamo.Registry
	slots  []slot
	free   []uint32
	logger *slog.Logger
}

func NewTable(reg *dynamo.Registry, logger *slog.Logger) *Table {
	if reg == nil {
		reg = dynamo.NewRegistry(nil, logger)
	}
	if logger == nil {
		logger = reg.Logger()
	}
	return &Table{id: tableIDs.Add(1), reg: reg, logger: logger}
}

func (t *Table) Registry() *dynamo.Registry { return t.reg }

// Len returns the number of live handles.
func (t *Table) Len() int { return len(t.slots) - len(t.free) }

// Create constructs a model of class under name.
func (t *Table) Create(class, name string) (Handle, error) {
	m, err := physics.New(t.reg, class, name)
	if err != nil {
		return Handle{}, err
	}
	var idx uint32
	if n := len(t.free); n > 0 {
		idx = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		idx = uint32(len(t.slots))
		t.slots = append(t.slots, slot{gen: 1})
	}
	t.slots[idx].model = m
	h := Handle{table: t.id, index: idx, gen: t.slots[idx].gen}
	t.logger.Debug("handle created", "handle", h.String(), "class", class, "entity", name)
	return h, nil
}

// Destroy unregisters the model and invalidates h.
func (t *Table) Destroy(h Handle) error {
	m, err := t.Lookup(h)
	if err != nil {
		return err
	}
	s := &t.slots[h.index]
	s.model = nil
	s.gen++
	t.free = append(t.free, h.index)
	t.logger.Debug("handle destroyed", "handle", h.String(), "entity", m.Name())
	return t.reg.Unregister(m.Name())
}

// Lookup resolves h to its model.
func (t *Table) Lookup(h Handle) (physics.Model, error) {
	if h.IsZero() || h.table != t.id || int(h.index) >= len(t.slots) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidHandle, h)
	}
	s := t.slots[h.index]
	if s.model == nil || s.gen != h.gen {
		return nil, fmt.Errorf("%w: %s is stale", ErrInvalidHandle, h)
	}
	return s.model, nil
}

func (t *Table) Get(h Handle, param string) (float64, error) {
	m, err := t.Lookup(h)
	if err != nil {
		return 0, err
	}
	v, ok := m.Params()[param]
	if !ok {
		return 0, fmt.Errorf("%w: %s has no parameter %q", dynamo.ErrInvalidParameter, m.Class(), param)
	}
	return v, nil
}

func (t *Table) Set(h Handle, param string, value float64) error {
	m, err := t.Lookup(h)
	if err != nil {
		return err
	}
	return m.SetParam(param, value)
}

// SetParams decodes params into numbers and applies them in name order. Values
// may be any type mapstructure can weakly convert to float64. Either every
// parameter is applied or none is.
func (t *Table) SetParams(h Handle, params map[string]any) error {
	m, err := t.Lookup(h)
	if err != nil {
		return err
	}

	var values map[string]float64
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &values,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(params); err != nil {
		return fmt.Errorf("%w: %v", dynamo.ErrInvalidParameter, err)
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	saved := m.Params()
	for _, name := range names {
		if err := m.SetParam(name, values[name]); err != nil {
			restore(m, saved)
			return err
		}
	}
	return nil
}

func restore(m physics.Model, saved map[string]float64) {
	for name, v := range saved {
		_ = m.SetParam(name, v)
	}
}

// Incr steps the model behind h.
func (t *Table) Incr(h Handle, dt float64) error {
	m, err := t.Lookup(h)
	if err != nil {
		return err
	}
	return m.Incr(dt)
}

// State returns the model's committed state.
func (t *Table) State(h Handle) (dynamo.State, error) {
	m, err := t.Lookup(h)
	if err != nil {
		return nil, err
	}
	return m.State(), nil
}
