package analysis

import (
	"fmt"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"

	"github.com/san-kum/dyngraph/internal/dynamo"
)

// Bin is one frequency bin of a power spectrum.
type Bin struct {
	Freq  float64
	Power float64
}

// Spectrum returns the one-sided amplitude spectrum of samples taken dt
// seconds apart. The mean is removed first so that a drifting cart does not
// swamp the oscillation.
func Spectrum(samples []float64, dt float64) ([]Bin, error) {
	if len(samples) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 samples, got %d", dynamo.ErrInvalidParameter, len(samples))
	}
	if !(dt > 0) {
		return nil, fmt.Errorf("%w: sample spacing must be positive, got %g", dynamo.ErrInvalidParameter, dt)
	}

	mean := 0.0
	for _, v := range samples {
		mean += v
	}
	mean /= float64(len(samples))

	centred := make([]float64, len(samples))
	for i, v := range samples {
		centred[i] = v - mean
	}

	coeffs := fft.FFTReal(centred)
	n := len(coeffs)
	bins := make([]Bin, n/2+1)
	for k := range bins {
		bins[k] = Bin{
			Freq:  float64(k) / (float64(n) * dt),
			Power: cmplx.Abs(coeffs[k]) / float64(n),
		}
	}
	return bins, nil
}

// DominantFrequency returns the non-zero bin with the largest amplitude.
func DominantFrequency(bins []Bin) Bin {
	best := Bin{}
	for _, b := range bins[1:] {
		if b.Power > best.Power {
			best = b
		}
	}
	return best
}

// Powers extracts the amplitudes, e.g. for plotting.
func Powers(bins []Bin) []float64 {
	out := make([]float64, len(bins))
	for i, b := range bins {
		out[i] = b.Power
	}
	return out
}
