// Package dsp holds the signal-processing steps behind the plots: a
// continuous wavelet transform and a Butterworth band-pass filter.
package dsp

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

var (
	// ErrEmptySignal is returned for a zero-length input
	ErrEmptySignal = errors.New("dsp: empty signal")
	// ErrNoScales is returned when no scales are requested
	ErrNoScales = errors.New("dsp: no scales")
)

// Morlet is the complex Morlet wavelet cmor<Bandwidth>-<Center>.
// In the frequency domain it is exp(-pi^2 * B * (f - C)^2).
type Morlet struct {
	Bandwidth float64
	Center    float64
}

// DefaultMorlet is cmor1.0-1.0
func DefaultMorlet() Morlet {
	return Morlet{Bandwidth: 1, Center: 1}
}

// spectrum evaluates the Fourier transform of the wavelet at frequency f
// (cycles per sample).
func (m Morlet) spectrum(f float64) float64 {
	d := f - m.Center
	return math.Exp(-math.Pi * math.Pi * m.Bandwidth * d * d)
}

func (m Morlet) validate() error {
	if m.Bandwidth <= 0 || m.Center <= 0 {
		return fmt.Errorf("dsp: invalid Morlet parameters B=%g C=%g", m.Bandwidth, m.Center)
	}
	return nil
}

// CWTResult holds one coefficient row per scale and the matching
// pseudo-frequencies in Hz.
type CWTResult struct {
	Coefficients [][]complex128
	Frequencies  []float64
}

// Power returns |coefficient|^2 for every scale and sample
func (r *CWTResult) Power() [][]float64 {
	out := make([][]float64, len(r.Coefficients))
	for i, row := range r.Coefficients {
		out[i] = make([]float64, len(row))
		for j, c := range row {
			a := cmplx.Abs(c)
			out[i][j] = a * a
		}
	}
	return out
}

// Periods returns 1/frequency for every scale, in seconds
func (r *CWTResult) Periods() []float64 {
	out := make([]float64, len(r.Frequencies))
	for i, f := range r.Frequencies {
		out[i] = 1 / f
	}
	return out
}

// CWT computes the continuous wavelet transform of sig at the given scales
// (in samples). dt is the sampling period in seconds. The frequency at
// scale a is Center / (a * dt).
func CWT(sig []float64, scales []float64, dt float64, w Morlet) (*CWTResult, error) {
	n := len(sig)
	if n == 0 {
		return nil, ErrEmptySignal
	}
	if len(scales) == 0 {
		return nil, ErrNoScales
	}
	if dt <= 0 {
		return nil, fmt.Errorf("dsp: sampling period must be positive, got %g", dt)
	}
	if err := w.validate(); err != nil {
		return nil, err
	}

	fft := fourier.NewCmplxFFT(n)
	src := make([]complex128, n)
	for i, v := range sig {
		src[i] = complex(v, 0)
	}
	spectrum := fft.Coefficients(nil, src)

	freqs := make([]float64, n)
	for k := range freqs {
		if k <= n/2 {
			freqs[k] = float64(k) / float64(n)
		} else {
			freqs[k] = float64(k-n) / float64(n)
		}
	}

	res := &CWTResult{
		Coefficients: make([][]complex128, len(scales)),
		Frequencies:  make([]float64, len(scales)),
	}
	prod := make([]complex128, n)
	for i, a := range scales {
		if a <= 0 {
			return nil, fmt.Errorf("dsp: scale %d must be positive, got %g", i, a)
		}

		norm := math.Sqrt(a)
		for k, f := range freqs {
			prod[k] = spectrum[k] * complex(norm*w.spectrum(a*f), 0)
		}
		row := fft.Sequence(nil, prod)
		// Sequence is unnormalized
		inv := complex(1/float64(n), 0)
		for j := range row {
			row[j] *= inv
		}

		res.Coefficients[i] = row
		res.Frequencies[i] = w.Center / (a * dt)
	}
	return res, nil
}

// Linspace returns n evenly spaced values from start to stop inclusive
func Linspace(start, stop float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{start}
	}
	out := make([]float64, n)
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[n-1] = stop
	return out
}
