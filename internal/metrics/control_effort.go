package metrics

import (
	"math"

	"github.com/san-kum/dyngraph/internal/dynamo"
)

// ControlEffort is the mean absolute control per step.
type ControlEffort struct {
	name    string
	sum     float64
	peak    float64
	samples int
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{
		name: "control_effort",
	}
}

func (c *ControlEffort) Name() string {
	return c.name
}

func (c *ControlEffort) Observe(x dynamo.State, u dynamo.Control, t float64) {
	for _, val := range u {
		c.sum += math.Abs(val)
		c.peak = math.Max(c.peak, math.Abs(val))
	}
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

// Peak is the largest control magnitude seen.
func (c *ControlEffort) Peak() float64 { return c.peak }

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.peak = 0
	c.samples = 0
}
