package control

import (
	"fmt"

	"github.com/san-kum/dyngraph/internal/dynamo"
)

// LQR is full state feedback u = −K(x − Target).
type LQR struct {
	K      [][]float64
	Target dynamo.State
}

// NewLQR copies k and target.
func NewLQR(k [][]float64, target dynamo.State) *LQR {
	gains := make([][]float64, len(k))
	for i, row := range k {
		gains[i] = append([]float64(nil), row...)
	}
	return &LQR{K: gains, Target: target.Clone()}
}

func (l *LQR) Compute(x dynamo.State, t float64) dynamo.Control {
	u := make(dynamo.Control, len(l.K))
	for i := range u {
		for j := range x {
			target := 0.0
			if j < len(l.Target) {
				target = l.Target[j]
			}
			if j < len(l.K[i]) {
				u[i] -= l.K[i][j] * (x[j] - target)
			}
		}
	}
	return u
}

// Gains for the default parameters, state ordered (x, θ, ẋ, θ̇).
var (
	pendulumGains = [][]float64{{-6.12, -59.77, -8.07, -10.59}}
	cartGains     = [][]float64{{1.5}}
)

// NewPendulumLQR balances the default inverted pendulum upright at x = 0.
func NewPendulumLQR() *LQR {
	return NewLQR(pendulumGains, dynamo.State{0, 0, 0, 0})
}

// NewCartLQR brings a table cart to target.
func NewCartLQR(target float64) *LQR {
	return NewLQR(cartGains, dynamo.State{target})
}

func (l *LQR) Params() map[string]float64 {
	params := make(map[string]float64)
	for i, row := range l.K {
		for j, k := range row {
			params[gainName(i, j)] = k
		}
	}
	return params
}

func (l *LQR) SetParam(name string, value float64) error {
	for i, row := range l.K {
		for j := range row {
			if gainName(i, j) == name {
				l.K[i][j] = value
				return nil
			}
		}
	}
	return fmt.Errorf("%w: LQR has no gain %q", dynamo.ErrInvalidParameter, name)
}

func gainName(i, j int) string {
	return fmt.Sprintf("K%d%d", i, j)
}
