package wfdb

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"

	apperrors "ptbxl/internal/errors"
	"ptbxl/pkg/contracts/domain"
)

// Sentinel digital values WFDB uses for missing samples
const (
	invalid16  = -32768
	invalid80  = -128
	invalid212 = -2048
)

// ReadRecord reads the record at base (path without extension) and returns
// the physical signal together with its header.
func ReadRecord(base string) (domain.Signal, *Header, error) {
	h, err := ReadHeader(base)
	if err != nil {
		return domain.Signal{}, nil, err
	}

	dir := filepath.Dir(base)
	nsamp := h.NumSamples
	groups := groupByFile(h.Signals)

	// Sample count is optional in the header; derive it from the first file if absent.
	if nsamp == 0 && len(groups) > 0 {
		nsamp, err = inferSamples(filepath.Join(dir, groups[0].file), h.Signals[groups[0].idx[0]], len(groups[0].idx))
		if err != nil {
			return domain.Signal{}, nil, err
		}
	}

	// every file must hold nsamp frames before anything is allocated
	for _, g := range groups {
		if err := checkSize(filepath.Join(dir, g.file), h.Signals[g.idx[0]], len(g.idx), nsamp); err != nil {
			return domain.Signal{}, nil, err
		}
	}
	if h.NumSignals > 0 && nsamp > math.MaxInt/h.NumSignals {
		return domain.Signal{}, nil, apperrors.NewParsingError(fmt.Sprintf("sample count %d too large for %d signals", nsamp, h.NumSignals), nil)
	}

	sig := domain.NewSignal(nsamp, h.NumSignals)
	for _, g := range groups {
		path := filepath.Join(dir, g.file)
		raw, err := os.ReadFile(path)
		if err != nil {
			return domain.Signal{}, nil, apperrors.NewNotFoundError(path).WithCause(err)
		}

		first := h.Signals[g.idx[0]]
		if first.ByteOffset > int64(len(raw)) {
			return domain.Signal{}, nil, apperrors.NewParsingError(fmt.Sprintf("byte offset %d beyond end of %s", first.ByteOffset, path), nil)
		}
		digital, err := decode(raw[first.ByteOffset:], first.Format, nsamp*len(g.idx))
		if err != nil {
			return domain.Signal{}, nil, apperrors.NewParsingError("decode "+path, err)
		}

		invalid := invalidValue(first.Format)
		for t := 0; t < nsamp; t++ {
			for k, c := range g.idx {
				d := digital[t*len(g.idx)+k]
				if d == invalid {
					sig.Set(t, c, math.NaN())
					continue
				}
				spec := h.Signals[c]
				sig.Set(t, c, float64(d-spec.Baseline)/spec.Gain)
			}
		}
	}

	return sig, h, nil
}

// ReadSamples reads a record and keeps only the sample array
func ReadSamples(base string) (domain.Signal, error) {
	sig, _, err := ReadRecord(base)
	return sig, err
}

type fileGroup struct {
	file string
	idx  []int
}

// groupByFile keeps signals of the same .dat together, in header order
func groupByFile(specs []SignalSpec) []fileGroup {
	var groups []fileGroup
	pos := make(map[string]int)
	for i, s := range specs {
		g, ok := pos[s.FileName]
		if !ok {
			pos[s.FileName] = len(groups)
			groups = append(groups, fileGroup{file: s.FileName, idx: []int{i}})
			continue
		}
		groups[g].idx = append(groups[g].idx, i)
	}
	return groups
}

// checkSize verifies path holds nsamp frames of nsig signals in the signal's format
func checkSize(path string, spec SignalSpec, nsig, nsamp int) error {
	info, err := os.Stat(path)
	if err != nil {
		return apperrors.NewNotFoundError(path).WithCause(err)
	}
	if nsig > 0 && nsamp > math.MaxInt/(3*nsig) {
		return apperrors.NewParsingError(fmt.Sprintf("%s: sample count %d too large", path, nsamp), nil)
	}

	n := int64(nsamp) * int64(nsig)
	var need int64
	switch spec.Format {
	case 16:
		need = 2 * n
	case 80:
		need = n
	case 212:
		need = (3*n + 1) / 2
	default:
		return apperrors.NewParsingError(fmt.Sprintf("unsupported format %d", spec.Format), nil)
	}
	if have := info.Size() - spec.ByteOffset; have < need {
		return apperrors.NewParsingError(fmt.Sprintf("%s: format %d: need %d bytes, have %d", path, spec.Format, need, have), nil)
	}
	return nil
}

func inferSamples(path string, spec SignalSpec, nsig int) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, apperrors.NewNotFoundError(path).WithCause(err)
	}
	size := info.Size() - spec.ByteOffset
	switch spec.Format {
	case 16:
		return int(size / int64(2*nsig)), nil
	case 80:
		return int(size / int64(nsig)), nil
	case 212:
		return int(size * 2 / 3 / int64(nsig)), nil
	default:
		return 0, apperrors.NewParsingError(fmt.Sprintf("unsupported format %d", spec.Format), nil)
	}
}

func invalidValue(format int) int {
	switch format {
	case 16:
		return invalid16
	case 80:
		return invalid80
	case 212:
		return invalid212
	}
	return math.MinInt
}

// decode unpacks n digital samples from b
func decode(b []byte, format, n int) ([]int, error) {
	out := make([]int, n)
	switch format {
	case 16:
		if len(b) < 2*n {
			return nil, fmt.Errorf("format 16: need %d bytes, have %d", 2*n, len(b))
		}
		for i := range out {
			out[i] = int(int16(binary.LittleEndian.Uint16(b[2*i:])))
		}
	case 80:
		if len(b) < n {
			return nil, fmt.Errorf("format 80: need %d bytes, have %d", n, len(b))
		}
		for i := range out {
			out[i] = int(b[i]) - 128
		}
	case 212:
		need := (3*n + 1) / 2
		if len(b) < need {
			return nil, fmt.Errorf("format 212: need %d bytes, have %d", need, len(b))
		}
		for i := 0; i < n; i += 2 {
			j := 3 * (i / 2)
			out[i] = signExtend12(int(b[j]) | int(b[j+1]&0x0f)<<8)
			if i+1 < n {
				out[i+1] = signExtend12(int(b[j+2]) | int(b[j+1]&0xf0)<<4)
			}
		}
	default:
		return nil, fmt.Errorf("unsupported format %d", format)
	}
	return out, nil
}

func signExtend12(v int) int {
	if v&0x800 != 0 {
		return v - 0x1000
	}
	return v
}
