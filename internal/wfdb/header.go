package wfdb

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	apperrors "ptbxl/internal/errors"
)

const (
	defaultFrequency = 250.0
	defaultGain      = 200.0
)

// Header is the parsed content of a .hea file
type Header struct {
	RecordName string
	NumSignals int
	Frequency  float64
	NumSamples int
	Signals    []SignalSpec
	Comments   []string
}

// SignalSpec describes one signal line of a header
type SignalSpec struct {
	FileName     string
	Format       int
	ByteOffset   int64
	Gain         float64
	Baseline     int
	Units        string
	ADCRes       int
	ADCZero      int
	InitialValue int
	Checksum     int
	BlockSize    int
	Description  string
}

// ReadHeader parses <base>.hea
func ReadHeader(base string) (*Header, error) {
	path := base + ".hea"
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewNotFoundError(path).WithCause(err)
	}
	defer f.Close()

	h, err := ParseHeader(f)
	if err != nil {
		return nil, apperrors.NewParsingError("invalid WFDB header "+path, err)
	}
	return h, nil
}

// ParseHeader parses header text from r
func ParseHeader(r io.Reader) (*Header, error) {
	sc := bufio.NewScanner(r)
	h := &Header{}
	haveRecord := false
	lineNo := 0

	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			h.Comments = append(h.Comments, strings.TrimSpace(strings.TrimPrefix(line, "#")))
			continue
		}

		if !haveRecord {
			if err := h.parseRecordLine(line); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			haveRecord = true
			continue
		}

		if len(h.Signals) == h.NumSignals {
			return nil, fmt.Errorf("line %d: more signal lines than the %d declared", lineNo, h.NumSignals)
		}
		spec, err := parseSignalLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		h.Signals = append(h.Signals, spec)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	if !haveRecord {
		return nil, fmt.Errorf("missing record line")
	}
	if len(h.Signals) != h.NumSignals {
		return nil, fmt.Errorf("declared %d signals, found %d signal lines", h.NumSignals, len(h.Signals))
	}
	return h, nil
}

func (h *Header) parseRecordLine(line string) error {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return fmt.Errorf("record line needs a name and a signal count")
	}
	if strings.Contains(fields[0], "/") {
		return fmt.Errorf("multi-segment record %q is not supported", fields[0])
	}
	h.RecordName = fields[0]

	n, err := strconv.Atoi(fields[1])
	if err != nil || n < 0 {
		return fmt.Errorf("invalid signal count %q", fields[1])
	}
	h.NumSignals = n

	h.Frequency = defaultFrequency
	if len(fields) > 2 {
		// "fs/counterfreq(basecounter)": only the sampling frequency is used
		fs := fields[2]
		if i := strings.IndexByte(fs, '/'); i >= 0 {
			fs = fs[:i]
		}
		v, err := strconv.ParseFloat(fs, 64)
		if err != nil || v <= 0 {
			return fmt.Errorf("invalid sampling frequency %q", fields[2])
		}
		h.Frequency = v
	}

	if len(fields) > 3 {
		v, err := strconv.Atoi(fields[3])
		if err != nil || v < 0 {
			return fmt.Errorf("invalid sample count %q", fields[3])
		}
		h.NumSamples = v
	}
	return nil
}

func parseSignalLine(line string) (SignalSpec, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return SignalSpec{}, fmt.Errorf("signal line needs a file name and a format")
	}
	spec := SignalSpec{FileName: fields[0], Gain: defaultGain}

	// format[xsamps][:skew][+offset]
	format := fields[1]
	if i := strings.IndexByte(format, '+'); i >= 0 {
		off, err := strconv.ParseInt(format[i+1:], 10, 64)
		if err != nil {
			return spec, fmt.Errorf("invalid byte offset in %q", fields[1])
		}
		spec.ByteOffset = off
		format = format[:i]
	}
	if i := strings.IndexByte(format, ':'); i >= 0 {
		format = format[:i]
	}
	if i := strings.IndexByte(format, 'x'); i >= 0 {
		if format[i+1:] != "1" {
			return spec, fmt.Errorf("multi-frequency signals are not supported (%q)", fields[1])
		}
		format = format[:i]
	}
	f, err := strconv.Atoi(format)
	if err != nil {
		return spec, fmt.Errorf("invalid format %q", fields[1])
	}
	spec.Format = f

	baselineSet := false
	if len(fields) > 2 {
		gain := fields[2]
		if i := strings.IndexByte(gain, '/'); i >= 0 {
			spec.Units = gain[i+1:]
			gain = gain[:i]
		}
		if i := strings.IndexByte(gain, '('); i >= 0 {
			j := strings.IndexByte(gain, ')')
			if j < i {
				return spec, fmt.Errorf("unbalanced baseline in %q", fields[2])
			}
			b, err := strconv.Atoi(gain[i+1 : j])
			if err != nil {
				return spec, fmt.Errorf("invalid baseline in %q", fields[2])
			}
			spec.Baseline = b
			baselineSet = true
			gain = gain[:i]
		}
		g, err := strconv.ParseFloat(gain, 64)
		if err != nil {
			return spec, fmt.Errorf("invalid gain %q", fields[2])
		}
		if g != 0 {
			spec.Gain = g
		}
	}

	ints := []*int{&spec.ADCRes, &spec.ADCZero, &spec.InitialValue, &spec.Checksum, &spec.BlockSize}
	for k, dst := range ints {
		idx := 3 + k
		if idx >= len(fields) {
			break
		}
		v, err := strconv.Atoi(fields[idx])
		if err != nil {
			return spec, fmt.Errorf("invalid integer field %q", fields[idx])
		}
		*dst = v
	}
	if len(fields) > 8 {
		spec.Description = strings.Join(fields[8:], " ")
	}
	if !baselineSet {
		spec.Baseline = spec.ADCZero
	}
	return spec, nil
}

// Format renders the header in .hea syntax
func (h *Header) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d %s %d\n", h.RecordName, h.NumSignals, strconv.FormatFloat(h.Frequency, 'f', -1, 64), h.NumSamples)
	for _, s := range h.Signals {
		gain := strconv.FormatFloat(s.Gain, 'f', 1, 64)
		fmt.Fprintf(&b, "%s %d %s(%d)/%s %d %d %d %d %d %s\n",
			s.FileName, s.Format, gain, s.Baseline, s.Units,
			s.ADCRes, s.ADCZero, s.InitialValue, s.Checksum, s.BlockSize, s.Description)
	}
	for _, c := range h.Comments {
		fmt.Fprintf(&b, "# %s\n", c)
	}
	return b.String()
}
