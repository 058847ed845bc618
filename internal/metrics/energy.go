package metrics

import (
	"math"

	"github.com/san-kum/dyngraph/internal/dynamo"
	"github.com/san-kum/dyngraph/internal/physics"
)

// EnergyFunc returns the mechanical energy of a state.
type EnergyFunc func(x dynamo.State) float64

// PendulumEnergy reads the pendulum's parameters at every call, so it follows
// live tuning. The potential is zero with the pole horizontal.
func PendulumEnergy(p *physics.InvertedPendulum) EnergyFunc {
	return func(x dynamo.State) float64 {
		if len(x) < 4 {
			return 0
		}
		M, m, l := p.CartMass(), p.PendulumMass(), p.PendulumLength()
		theta, vel, omega := x[1], x[2], x[3]
		ke := 0.5*(M+m)*vel*vel + m*l*vel*omega*math.Cos(theta) + 0.5*m*l*l*omega*omega
		pe := m * physics.Gravity * l * math.Cos(theta)
		return ke + pe
	}
}

// Energy is the mean energy over the observed states.
type Energy struct {
	name        string
	fn          EnergyFunc
	samples     int
	totalEnergy float64
}

func NewEnergy(fn EnergyFunc) *Energy {
	return &Energy{name: "energy", fn: fn}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(x dynamo.State, u dynamo.Control, t float64) {
	e.totalEnergy += e.fn(x)
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.totalEnergy / float64(e.samples)
}

func (e *Energy) Reset() {
	e.totalEnergy = 0
	e.samples = 0
}

// EnergyDrift is the largest relative change of energy from the first
// observed state.
type EnergyDrift struct {
	name          string
	fn            EnergyFunc
	initialEnergy float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift(fn EnergyFunc) *EnergyDrift {
	return &EnergyDrift{name: "energy_drift", fn: fn}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(x dynamo.State, u dynamo.Control, t float64) {
	energy := e.fn(x)
	if e.samples == 0 {
		e.initialEnergy = energy
	}
	e.samples++

	if e.initialEnergy != 0 {
		drift := math.Abs(energy-e.initialEnergy) / math.Abs(e.initialEnergy)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}
