package sim

import (
	"fmt"
	"time"

	"github.com/san-kum/dyngraph/internal/dynamo"
)

// Metric accumulates a scalar over the steps of a run.
type Metric interface {
	Name() string
	Observe(x dynamo.State, u dynamo.Control, t float64)
	Value() float64
	Reset()
}

// Starter is implemented by metrics that need the elapsed time at which a
// run begins. Host.Run calls Start after Reset.
type Starter interface {
	Start(t float64)
}

// Observer is notified after every attempted step.
type Observer interface {
	OnStep(s Step)
}

// Step describes one Incr of an entity as seen by the host.
type Step struct {
	Entity   string
	Stamp    dynamo.Time
	Time     float64
	State    dynamo.State
	Control  dynamo.Control
	Outputs  map[string]float64
	Duration time.Duration
	Err      error
}

type Config struct {
	Dt    float64 `yaml:"dt" validate:"gt=0"`
	Steps int     `yaml:"steps" validate:"gt=0"`
	// Outputs lists the scalar ports pulled after each step. Empty means the
	// model's default observable.
	Outputs []string `yaml:"outputs"`
}

func (c Config) Validate() error {
	if !(c.Dt > 0) {
		return fmt.Errorf("%w: dt must be positive, got %f", dynamo.ErrInvalidParameter, c.Dt)
	}
	if c.Steps <= 0 {
		return fmt.Errorf("%w: steps must be positive, got %d", dynamo.ErrInvalidParameter, c.Steps)
	}
	return nil
}

type Result struct {
	Entity     string
	Stamps     []dynamo.Time
	Times      []float64
	States     []dynamo.State
	Controls   []dynamo.Control
	Outputs    map[string][]float64
	Metrics    map[string]float64
	StepsTaken int
}

// Final returns the last recorded state.
func (r *Result) Final() dynamo.State {
	if len(r.States) == 0 {
		return nil
	}
	return r.States[len(r.States)-1]
}

// Column returns component i of every recorded state.
func (r *Result) Column(i int) []float64 {
	col := make([]float64, 0, len(r.States))
	for _, x := range r.States {
		if i < len(x) {
			col = append(col, x[i])
		}
	}
	return col
}
