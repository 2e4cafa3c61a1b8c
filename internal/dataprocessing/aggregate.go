package dataprocessing

import (
	"sort"

	"ptbxl/pkg/contracts/domain"
)

// Level selects which statement column a diagnostic label comes from
type Level int

const (
	// LevelSuperclass aggregates to diagnostic_class (NORM, MI, STTC, CD, HYP)
	LevelSuperclass Level = iota
	// LevelSubclass aggregates to diagnostic_subclass
	LevelSubclass
)

func (l Level) String() string {
	switch l {
	case LevelSuperclass:
		return "diagnostic_superclass"
	case LevelSubclass:
		return "diagnostic_subclass"
	default:
		return "unknown"
	}
}

func (l Level) label(s *domain.SCPStatement) string {
	if l == LevelSubclass {
		return s.DiagnosticSubclass
	}
	return s.DiagnosticClass
}

// AggregateCodes maps one record's SCP codes to its distinct diagnostic
// labels. Codes missing from subset are ignored. The result is sorted and
// never nil.
func AggregateCodes(codes map[string]float64, subset map[string]*domain.SCPStatement, level Level) []string {
	seen := make(map[string]struct{}, len(codes))
	labels := make([]string, 0, len(codes))
	for code := range codes {
		s, ok := subset[code]
		if !ok {
			continue
		}
		label := level.label(s)
		if label == "" {
			continue
		}
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// AddDiagnosticLabels derives the label column for level on every record,
// overwriting any previous value. The statement table is not modified.
func AddDiagnosticLabels(meta *Meta, level Level) {
	if meta == nil || meta.Records == nil || meta.Statements == nil {
		return
	}

	subset := meta.Statements.DiagnosticSubset()
	for _, rec := range meta.Records.Records {
		labels := AggregateCodes(rec.SCPCodes, subset, level)
		switch level {
		case LevelSubclass:
			rec.DiagnosticSubclass = labels
		default:
			rec.DiagnosticSuperclass = labels
		}
	}
}

// AddSuperclass attaches diagnostic_superclass to every record in place
func AddSuperclass(meta *Meta) {
	AddDiagnosticLabels(meta, LevelSuperclass)
}
