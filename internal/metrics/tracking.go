package metrics

import (
	"fmt"
	"math"

	"github.com/san-kum/dyngraph/internal/dynamo"
)

// TrackingError is the integral of |x[component] − target| over the run.
type TrackingError struct {
	name      string
	component int
	target    float64
	sum       float64
	lastT     float64
}

func NewTrackingError(component int, target float64) *TrackingError {
	return &TrackingError{name: fmt.Sprintf("iae(x%d→%g)", component, target), component: component, target: target}
}

func (e *TrackingError) Name() string { return e.name }

func (e *TrackingError) Observe(x dynamo.State, u dynamo.Control, t float64) {
	if e.component >= len(x) {
		return
	}
	e.sum += math.Abs(x[e.component]-e.target) * (t - e.lastT)
	e.lastT = t
}

func (e *TrackingError) Value() float64 { return e.sum }

func (e *TrackingError) Reset() {
	e.sum = 0
	e.lastT = 0
}

// Start sets the time the first observation integrates from.
func (e *TrackingError) Start(t float64) { e.lastT = t }
