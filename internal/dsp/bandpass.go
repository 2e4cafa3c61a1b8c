package dsp

import (
	"fmt"
	"math"

	"github.com/jfcg/butter"
)

// BandPass runs sig through a first-order Butterworth low-pass at highHz
// followed by a first-order high-pass at lowHz. fs is the sampling rate.
// The filters start from rest, so the first samples carry the transient.
func BandPass(sig []float64, fs, lowHz, highHz float64) ([]float64, error) {
	if len(sig) == 0 {
		return nil, ErrEmptySignal
	}
	if fs <= 0 {
		return nil, fmt.Errorf("dsp: sampling rate must be positive, got %g", fs)
	}
	if lowHz >= highHz {
		return nil, fmt.Errorf("dsp: band %g-%g Hz is empty", lowHz, highHz)
	}

	wcBase := 2 * math.Pi / fs

	hp := butter.NewHighPass1(lowHz * wcBase)
	if hp == nil {
		return nil, fmt.Errorf("dsp: invalid high-pass cutoff %g Hz (wc=%f, want .0001 < wc < pi)", lowHz, lowHz*wcBase)
	}
	lp := butter.NewLowPass1(highHz * wcBase)
	if lp == nil {
		return nil, fmt.Errorf("dsp: invalid low-pass cutoff %g Hz (wc=%f, want .0001 < wc < pi)", highHz, highHz*wcBase)
	}

	out := make([]float64, len(sig))
	for i, v := range sig {
		out[i] = hp.Next(lp.Next(v))
	}
	return out, nil
}
