package physics

import (
	"fmt"
	"sort"

	"github.com/san-kum/dyngraph/internal/dynamo"
)

// Model is the surface shared by TableCart and InvertedPendulum.
type Model interface {
	dynamo.Entity
	dynamo.System
	dynamo.Configurable

	IncrAt(t dynamo.Time, dt float64) error
	SetState(x dynamo.State) error
	SetIntegrator(integ dynamo.Integrator)
	State() dynamo.State
	Time() dynamo.Time
	Elapsed() float64
	PreviousControl() dynamo.Control
	ForceInput() dynamo.Input[float64]
	ControlInput() dynamo.Input[dynamo.Vector]
	StateOutput() dynamo.Output[dynamo.Vector]
}

var (
	_ Model = (*TableCart)(nil)
	_ Model = (*InvertedPendulum)(nil)
)

// New creates a model of the given class and registers it with reg.
func New(reg *dynamo.Registry, class, name string) (Model, error) {
	switch class {
	case ClassTableCart:
		return NewTableCart(reg, name)
	case ClassInvertedPendulum:
		return NewInvertedPendulum(reg, name)
	}
	return nil, fmt.Errorf("%w: unknown class %s", dynamo.ErrConstruction, class)
}

// Classes lists the model classes known to New.
func Classes() []string {
	names := []string{ClassTableCart, ClassInvertedPendulum}
	sort.Strings(names)
	return names
}

// RegisterClasses makes every model class constructible with reg.Create.
func RegisterClasses(reg *dynamo.Registry) error {
	for _, class := range Classes() {
		err := reg.RegisterClass(class, func(reg *dynamo.Registry, name string) (dynamo.Entity, error) {
			return New(reg, class, name)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// DefaultParams returns the construction-time parameters of a class.
func DefaultParams(class string) (map[string]float64, error) {
	reg := dynamo.NewRegistry(nil, nil)
	m, err := New(reg, class, "defaults")
	if err != nil {
		return nil, err
	}
	return m.Params(), nil
}

// OutputPorts lists the observable ports of a class besides state.
func OutputPorts(class string) []string {
	switch class {
	case ClassTableCart:
		return []string{PortZMP}
	case ClassInvertedPendulum:
		return []string{PortCartPosition}
	}
	return nil
}
