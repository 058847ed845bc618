package dynamo

import (
	"fmt"
	"math"
)

// Time is a logical, monotonically increasing stamp used to key signal
// caches. It is unrelated to wall-clock time.
type Time int64

// NoTime marks a signal that has never been computed.
const NoTime Time = -1

type Vector []float64

func (v Vector) Clone() Vector {
	if v == nil {
		return nil
	}
	c := make(Vector, len(v))
	copy(c, v)
	return c
}

func (v Vector) IsValid() bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func (v Vector) Norm() float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

func (v Vector) Add(other Vector) Vector {
	result := make(Vector, len(v))
	for i := range v {
		if i < len(other) {
			result[i] = v[i] + other[i]
		} else {
			result[i] = v[i]
		}
	}
	return result
}

func (v Vector) Sub(other Vector) Vector {
	result := make(Vector, len(v))
	for i := range v {
		if i < len(other) {
			result[i] = v[i] - other[i]
		} else {
			result[i] = v[i]
		}
	}
	return result
}

func (v Vector) Scale(factor float64) Vector {
	result := make(Vector, len(v))
	for i := range v {
		result[i] = v[i] * factor
	}
	return result
}

func (v Vector) String() string {
	return fmt.Sprintf("%v", []float64(v))
}

type (
	State   = Vector
	Control = Vector
)

// System is a continuous-time model dX/dt = f(X, u, t).
type System interface {
	Derive(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

// Integrator advances x by dt. It fails with ErrDimensionMismatch when x or
// a derivative does not have dyn.StateDim() components, and never modifies x.
// Implementations hold no per-call state, so one value may serve many
// entities.
type Integrator interface {
	Step(dyn System, x State, u Control, t float64, dt float64) (State, error)
}

// Configurable exposes named scalar parameters for scripting and live tuning.
type Configurable interface {
	Params() map[string]float64
	SetParam(name string, value float64) error
}
