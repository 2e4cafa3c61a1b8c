package wfdb

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"ptbxl/pkg/contracts/domain"
)

// WriteOptions controls how a record is written
type WriteOptions struct {
	Frequency float64
	Gain      float64
	Units     string
	Leads     []string
}

// WriteRecord writes sig as a single-file format 16 record:
// <base>.hea and <base>.dat.
func WriteRecord(base string, sig domain.Signal, opts WriteOptions) error {
	if opts.Frequency <= 0 {
		opts.Frequency = defaultFrequency
	}
	if opts.Gain <= 0 {
		opts.Gain = 1000
	}
	if opts.Units == "" {
		opts.Units = "mV"
	}
	if len(opts.Leads) != 0 && len(opts.Leads) != sig.Channels {
		return fmt.Errorf("got %d lead names for %d channels", len(opts.Leads), sig.Channels)
	}

	if err := os.MkdirAll(filepath.Dir(base), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	name := filepath.Base(base)
	dat := make([]byte, 2*len(sig.Data))
	for i, v := range sig.Data {
		binary.LittleEndian.PutUint16(dat[2*i:], uint16(int16(toDigital(v, opts.Gain))))
	}

	h := &Header{
		RecordName: name,
		NumSignals: sig.Channels,
		Frequency:  opts.Frequency,
		NumSamples: sig.Samples,
	}
	for c := 0; c < sig.Channels; c++ {
		desc := fmt.Sprintf("ch%d", c+1)
		if len(opts.Leads) > 0 {
			desc = opts.Leads[c]
		}
		h.Signals = append(h.Signals, SignalSpec{
			FileName:    name + ".dat",
			Format:      16,
			Gain:        opts.Gain,
			Units:       opts.Units,
			ADCRes:      16,
			Description: desc,
		})
	}

	if err := os.WriteFile(base+".dat", dat, 0644); err != nil {
		return fmt.Errorf("failed to write signal file: %w", err)
	}
	if err := os.WriteFile(base+".hea", []byte(h.Format()), 0644); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	return nil
}

func toDigital(v, gain float64) int {
	if math.IsNaN(v) {
		return invalid16
	}
	d := math.Round(v * gain)
	// keep the invalid sentinel out of the valid range
	if d < invalid16+1 {
		d = invalid16 + 1
	}
	if d > math.MaxInt16 {
		d = math.MaxInt16
	}
	return int(d)
}
