package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tone(n int, cyclesPerSample float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Cos(2 * math.Pi * cyclesPerSample * float64(i))
	}
	return out
}

func argmax(v []float64) int {
	best := 0
	for i := range v {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

func TestCWT_PeaksAtMatchingScale(t *testing.T) {
	w := DefaultMorlet()
	sig := tone(256, w.Center/8)
	scales := Linspace(1, 16, 16)

	res, err := CWT(sig, scales, 1.0/500, w)
	require.NoError(t, err)
	require.Len(t, res.Coefficients, len(scales))

	power := res.Power()
	mean := make([]float64, len(scales))
	for i, row := range power {
		require.Len(t, row, len(sig))
		for _, p := range row {
			mean[i] += p
		}
		mean[i] /= float64(len(row))
	}
	assert.Equal(t, 8.0, scales[argmax(mean)])
}

func TestCWT_Frequencies(t *testing.T) {
	res, err := CWT([]float64{0, 1, 0, -1}, []float64{1, 2, 4}, 1.0/500, Morlet{Bandwidth: 1.5, Center: 1})
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{500, 250, 125}, res.Frequencies, 1e-9)
	assert.InDeltaSlice(t, []float64{0.002, 0.004, 0.008}, res.Periods(), 1e-12)
}

func TestCWT_ZeroSignal(t *testing.T) {
	res, err := CWT(make([]float64, 32), []float64{2, 4}, 0.01, DefaultMorlet())
	require.NoError(t, err)
	for _, row := range res.Power() {
		for _, p := range row {
			assert.InDelta(t, 0, p, 1e-20)
		}
	}
}

func TestCWT_Errors(t *testing.T) {
	tests := []struct {
		name   string
		sig    []float64
		scales []float64
		dt     float64
		w      Morlet
		want   error
	}{
		{"empty signal", nil, []float64{1}, 1, DefaultMorlet(), ErrEmptySignal},
		{"no scales", []float64{1}, nil, 1, DefaultMorlet(), ErrNoScales},
		{"bad dt", []float64{1}, []float64{1}, 0, DefaultMorlet(), nil},
		{"bad scale", []float64{1, 2}, []float64{1, -2}, 1, DefaultMorlet(), nil},
		{"bad wavelet", []float64{1}, []float64{1}, 1, Morlet{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CWT(tt.sig, tt.scales, tt.dt, tt.w)
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestLinspace(t *testing.T) {
	assert.Nil(t, Linspace(0, 1, 0))
	assert.Equal(t, []float64{2}, Linspace(2, 5, 1))
	assert.InDeltaSlice(t, []float64{0.1, 0.55, 1, 1.45, 1.9}, Linspace(0.1, 1.9, 5), 1e-12)

	levels := Linspace(0.1, 3, 40)
	assert.Len(t, levels, 40)
	assert.Equal(t, 3.0, levels[39])
}

func TestBandPass_RemovesBaseline(t *testing.T) {
	sig := make([]float64, 4000)
	for i := range sig {
		sig[i] = 1.0
	}

	out, err := BandPass(sig, 500, 0.5, 40)
	require.NoError(t, err)
	require.Len(t, out, len(sig))
	assert.InDelta(t, 0, out[len(out)-1], 0.01)
}

func TestBandPass_PassesMidBand(t *testing.T) {
	const fs = 500.0
	sig := tone(5000, 10/fs)

	out, err := BandPass(sig, fs, 0.5, 40)
	require.NoError(t, err)

	peak := 0.0
	for _, v := range out[4000:] {
		peak = math.Max(peak, math.Abs(v))
	}
	assert.Greater(t, peak, 0.7)
	assert.Less(t, peak, 1.1)
}

func TestBandPass_Errors(t *testing.T) {
	tests := []struct {
		name         string
		sig          []float64
		fs, low, hig float64
	}{
		{"empty", nil, 500, 0.5, 40},
		{"bad rate", []float64{1}, 0, 0.5, 40},
		{"inverted band", []float64{1}, 500, 40, 0.5},
		{"low-pass above nyquist", []float64{1}, 500, 0.5, 300},
		{"high-pass too low", []float64{1}, 500, 1e-6, 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BandPass(tt.sig, tt.fs, tt.low, tt.hig)
			assert.Error(t, err)
		})
	}
}
