package analysis

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/dyngraph/internal/dynamo"
)

func TestSpectrum_FindsSineFrequency(t *testing.T) {
	const dt = 0.01
	samples := make([]float64, 500)
	for i := range samples {
		samples[i] = 3 + math.Sin(2*math.Pi*2*float64(i)*dt)
	}

	bins, err := Spectrum(samples, dt)
	require.NoError(t, err)
	assert.Len(t, bins, 251)
	assert.InDelta(t, 0, bins[0].Power, 1e-9)

	peak := DominantFrequency(bins)
	assert.InDelta(t, 2.0, peak.Freq, 1e-9)
	assert.InDelta(t, 0.5, peak.Power, 1e-6)
	assert.Len(t, Powers(bins), len(bins))
}

func TestSpectrum_RejectsBadInput(t *testing.T) {
	_, err := Spectrum([]float64{1}, 0.01)
	assert.ErrorIs(t, err, dynamo.ErrInvalidParameter)

	_, err = Spectrum([]float64{1, 2}, 0)
	assert.ErrorIs(t, err, dynamo.ErrInvalidParameter)
}

func TestPhasePortrait(t *testing.T) {
	xs := make([]float64, 200)
	ys := make([]float64, 200)
	for i := range xs {
		a := 2 * math.Pi * float64(i) / 50
		xs[i], ys[i] = math.Sin(a), math.Cos(a)
	}

	p, err := NewPhasePortrait("x1", xs, "x3", ys)
	require.NoError(t, err)
	assert.Len(t, p.Crossings(0.5), 4)

	art := p.ASCII(40, 20)
	assert.Equal(t, 20, strings.Count(art, "\n"))
	assert.Contains(t, art, "•")

	_, err = NewPhasePortrait("a", xs, "b", ys[:10])
	assert.ErrorIs(t, err, dynamo.ErrDimensionMismatch)
}
