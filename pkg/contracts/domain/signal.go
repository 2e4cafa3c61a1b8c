package domain

import "fmt"

// Signal is a samples × channels array stored row-major: sample t of
// channel c lives at Data[t*Channels+c].
type Signal struct {
	Data     []float64
	Samples  int
	Channels int
}

// NewSignal allocates a zeroed signal
func NewSignal(samples, channels int) Signal {
	return Signal{
		Data:     make([]float64, samples*channels),
		Samples:  samples,
		Channels: channels,
	}
}

// SignalFromChannels builds a signal from per-channel slices of equal length
func SignalFromChannels(channels [][]float64) (Signal, error) {
	if len(channels) == 0 {
		return Signal{}, nil
	}
	n := len(channels[0])
	s := NewSignal(n, len(channels))
	for c, ch := range channels {
		if len(ch) != n {
			return Signal{}, fmt.Errorf("channel %d has %d samples, want %d", c, len(ch), n)
		}
		for t, v := range ch {
			s.Data[t*s.Channels+c] = v
		}
	}
	return s, nil
}

// At returns sample t of channel c
func (s Signal) At(t, c int) float64 {
	return s.Data[t*s.Channels+c]
}

// Set stores v at sample t of channel c
func (s Signal) Set(t, c int, v float64) {
	s.Data[t*s.Channels+c] = v
}

// Channel copies one channel out as a contiguous slice
func (s Signal) Channel(c int) []float64 {
	out := make([]float64, s.Samples)
	for t := range out {
		out[t] = s.Data[t*s.Channels+c]
	}
	return out
}

// Shape returns (samples, channels)
func (s Signal) Shape() (int, int) {
	return s.Samples, s.Channels
}
