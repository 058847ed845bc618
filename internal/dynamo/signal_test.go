package dynamo

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingObserver struct {
	hits, computes, errs int
}

func (o *countingObserver) OnHit(string, Time) { o.hits++ }
func (o *countingObserver) OnCompute(_ string, _ Time, err error) {
	o.computes++
	if err != nil {
		o.errs++
	}
}

func TestOutput_CachesPerStamp(t *testing.T) {
	g := NewGraph()
	calls := 0
	out, err := NewOutput(g, "out", func(t Time) (float64, error) {
		calls++
		return float64(t) * 1.5, nil
	})
	require.NoError(t, err)

	v1, err := out.Get(3)
	require.NoError(t, err)
	v2, err := out.Get(3)
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, calls)

	v3, err := out.Get(4)
	require.NoError(t, err)
	assert.Equal(t, 6.0, v3)
	assert.Equal(t, 2, calls)
}

func TestOutput_VectorValuesAreCopied(t *testing.T) {
	g := NewGraph()
	out, err := NewOutput(g, "vec", func(Time) (Vector, error) { return Vector{1, 2}, nil })
	require.NoError(t, err)

	v, err := out.Get(0)
	require.NoError(t, err)
	v[0] = 99

	again, err := out.Get(0)
	require.NoError(t, err)
	assert.Equal(t, Vector{1, 2}, again)
}

func TestOutput_WithoutEvalFailsLoudly(t *testing.T) {
	g := NewGraph()
	out, err := NewOutput[float64](g, "orphan", nil)
	require.NoError(t, err)

	_, err = out.Get(0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfiguration))

	var se *SignalError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "orphan", se.Signal)

	require.NoError(t, out.Set(2.5, 1))
	v, err := out.Get(1)
	require.NoError(t, err)
	assert.Equal(t, 2.5, v)
}

func TestOutput_EvalErrorKeepsPreviousCache(t *testing.T) {
	g := NewGraph()
	fail := false
	out, err := NewOutput(g, "flaky", func(t Time) (float64, error) {
		if fail {
			return 0, errors.New("boom")
		}
		return float64(t), nil
	})
	require.NoError(t, err)

	_, err = out.Get(1)
	require.NoError(t, err)

	fail = true
	_, err = out.Get(2)
	require.Error(t, err)

	stamp, err := g.Stamp(out.ID())
	require.NoError(t, err)
	assert.Equal(t, Time(1), stamp)
}

func TestInput_DefaultSetAndMissing(t *testing.T) {
	g := NewGraph()

	withDef, err := NewInputWithDefault(g, "force", 0.0)
	require.NoError(t, err)
	v, err := withDef.Get(5)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)

	require.NoError(t, withDef.Set(3.0, 6))
	v, err = withDef.Get(7)
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)

	bare, err := NewInput[Vector](g, "control")
	require.NoError(t, err)
	_, err = bare.Get(0)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestInput_PluggedPullsSourceOncePerStamp(t *testing.T) {
	g := NewGraph()
	obs := &countingObserver{}
	g.SetObserver(obs)

	calls := 0
	src, err := NewOutput(g, "src", func(t Time) (Vector, error) {
		calls++
		return Vector{float64(t)}, nil
	})
	require.NoError(t, err)

	a, err := NewInput[Vector](g, "a")
	require.NoError(t, err)
	b, err := NewInput[Vector](g, "b")
	require.NoError(t, err)
	require.NoError(t, a.Plug(src))
	require.NoError(t, b.Plug(src))

	va, err := a.Get(2)
	require.NoError(t, err)
	vb, err := b.Get(2)
	require.NoError(t, err)
	_, err = a.Get(2)
	require.NoError(t, err)

	assert.Equal(t, Vector{2}, va)
	assert.Equal(t, va, vb)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, obs.hits)
	assert.Equal(t, 3, obs.computes)

	require.NoError(t, a.Unplug())
	held, err := a.Get(9)
	require.NoError(t, err)
	assert.Equal(t, Vector{2}, held)
}

func TestGraph_DetectsEvaluationCycle(t *testing.T) {
	g := NewGraph()
	in, err := NewInput[float64](g, "in")
	require.NoError(t, err)
	out, err := NewOutput(g, "out", func(t Time) (float64, error) {
		v, err := in.Get(t)
		return v + 1, err
	})
	require.NoError(t, err)

	require.NoError(t, in.Plug(out))

	_, err = out.Get(0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)

	// the graph recovers once the loop is broken
	require.NoError(t, in.Unplug())
	require.NoError(t, in.Set(1, 1))
	v, err := out.Get(1)
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)
}

func TestGraph_PlugValidation(t *testing.T) {
	g := NewGraph()
	_, err := NewOutput(g, "f", func(Time) (float64, error) { return 0, nil })
	require.NoError(t, err)
	_, err = NewInput[Vector](g, "vec")
	require.NoError(t, err)

	err = g.PlugByName("vec", "f")
	assert.ErrorIs(t, err, ErrConfiguration)

	err = g.PlugByName("f", "vec")
	assert.ErrorIs(t, err, ErrConfiguration)

	err = g.PlugByName("missing", "f")
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = NewInput[float64](g, "a")
	require.NoError(t, err)
	_, err = NewInput[float64](g, "b")
	require.NoError(t, err)
	require.NoError(t, g.PlugByName("a", "b"))
	assert.ErrorIs(t, g.PlugByName("b", "a"), ErrConfiguration)
}

func TestGraph_DuplicateNamesAndRelease(t *testing.T) {
	g := NewGraph()
	first, err := NewInputWithDefault(g, "x", 1.0)
	require.NoError(t, err)

	_, err = NewInputWithDefault(g, "x", 2.0)
	assert.ErrorIs(t, err, ErrConstruction)

	v, err := first.Get(0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)

	require.NoError(t, g.Release(first.ID()))
	_, err = first.Get(0)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Equal(t, 0, g.Len())

	again, err := NewInputWithDefault(g, "x", 3.0)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID(), again.ID())
}

func TestSignalName(t *testing.T) {
	got := SignalName("TableCart", "cart", KindOutput, "double", "zmp")
	assert.Equal(t, "TableCart(cart)::output(double)::zmp", got)
}
