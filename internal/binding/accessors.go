package binding

import "fmt"

type cartMasser interface {
	CartMass() float64
	SetCartMass(float64) error
}

type cartHeighter interface {
	CartHeight() float64
	SetCartHeight(float64) error
}

type pendulumMasser interface {
	PendulumMass() float64
	SetPendulumMass(float64) error
}

// as resolves h and asserts that its model has accessor T.
func as[T any](t *Table, h Handle, what string) (T, error) {
	var zero T
	m, err := t.Lookup(h)
	if err != nil {
		return zero, err
	}
	v, ok := m.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s(%s) has no %s", ErrInvalidHandle, m.Class(), m.Name(), what)
	}
	return v, nil
}

func (t *Table) CartMass(h Handle) (float64, error) {
	m, err := as[cartMasser](t, h, "cart mass")
	if err != nil {
		return 0, err
	}
	return m.CartMass(), nil
}

func (t *Table) SetCartMass(h Handle, v float64) error {
	m, err := as[cartMasser](t, h, "cart mass")
	if err != nil {
		return err
	}
	return m.SetCartMass(v)
}

func (t *Table) CartHeight(h Handle) (float64, error) {
	m, err := as[cartHeighter](t, h, "cart height")
	if err != nil {
		return 0, err
	}
	return m.CartHeight(), nil
}

func (t *Table) SetCartHeight(h Handle, v float64) error {
	m, err := as[cartHeighter](t, h, "cart height")
	if err != nil {
		return err
	}
	return m.SetCartHeight(v)
}

func (t *Table) PendulumMass(h Handle) (float64, error) {
	m, err := as[pendulumMasser](t, h, "pendulum mass")
	if err != nil {
		return 0, err
	}
	return m.PendulumMass(), nil
}

func (t *Table) SetPendulumMass(h Handle, v float64) error {
	m, err := as[pendulumMasser](t, h, "pendulum mass")
	if err != nil {
		return err
	}
	return m.SetPendulumMass(v)
}
