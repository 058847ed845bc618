package metrics

import (
	"fmt"
	"math"

	"github.com/san-kum/dyngraph/internal/dynamo"
)

// Stability is the fraction of steps whose watched components all stay within
// threshold. With no components given every component is watched.
type Stability struct {
	name       string
	threshold  float64
	components []int
	violations int
	samples    int
}

func NewStability(threshold float64, components ...int) *Stability {
	return &Stability{
		name:       "stability",
		threshold:  threshold,
		components: components,
	}
}

// NewUprightStability watches the pendulum angle.
func NewUprightStability(maxAngle float64) *Stability {
	s := NewStability(maxAngle, 1)
	s.name = fmt.Sprintf("upright(|θ|<%.2g)", maxAngle)
	return s
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(x dynamo.State, u dynamo.Control, t float64) {
	s.samples++
	for i, val := range x {
		if !s.watches(i) {
			continue
		}
		if math.Abs(val) > s.threshold {
			s.violations++
			break
		}
	}
}

func (s *Stability) watches(i int) bool {
	if len(s.components) == 0 {
		return true
	}
	for _, c := range s.components {
		if c == i {
			return true
		}
	}
	return false
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
