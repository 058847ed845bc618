package integrators

import (
	"fmt"
	"sort"

	"github.com/san-kum/dyngraph/internal/dynamo"
)

var constructors = map[string]func() dynamo.Integrator{
	"euler": func() dynamo.Integrator { return NewEuler() },
	"rk4":   func() dynamo.Integrator { return NewRK4() },
}

// New returns a fresh integrator by name.
func New(name string) (dynamo.Integrator, error) {
	fn, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown integrator %q", dynamo.ErrInvalidParameter, name)
	}
	return fn(), nil
}

func Names() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
