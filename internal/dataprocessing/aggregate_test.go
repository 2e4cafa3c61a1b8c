package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ptbxl/internal/shared/testutil"
	"ptbxl/pkg/contracts/domain"
)

func newMeta(t *testing.T, statements []*domain.SCPStatement, codes ...map[string]float64) *Meta {
	t.Helper()

	records := make([]*domain.Record, len(codes))
	for i, c := range codes {
		records[i] = &domain.Record{ECGID: i + 1, SCPCodes: c}
	}
	rt, err := domain.NewRecordTable([]string{"ecg_id", "scp_codes"}, records)
	require.NoError(t, err)
	st, err := domain.NewStatementTable([]string{"", "diagnostic", "diagnostic_class"}, statements)
	require.NoError(t, err)
	return &Meta{Records: rt, Statements: st}
}

func superclasses(meta *Meta) [][]string {
	out := make([][]string, meta.Records.Len())
	for i, r := range meta.Records.Records {
		out[i] = r.DiagnosticSuperclass
	}
	return out
}

func TestAddSuperclass_NonDiagnosticCodesDropped(t *testing.T) {
	meta := newMeta(t,
		[]*domain.SCPStatement{
			{Code: "NORM", Diagnostic: true, DiagnosticClass: "NORM"},
			{Code: "MI", Diagnostic: false, DiagnosticClass: "STTC"},
		},
		map[string]float64{"NORM": 1.0},
		map[string]float64{"MI": 0.5},
		map[string]float64{"NORM": 1.0, "MI": 0.5},
	)

	AddSuperclass(meta)

	assert.Equal(t, [][]string{{"NORM"}, {}, {"NORM"}}, superclasses(meta))
}

func TestAddSuperclass_Idempotent(t *testing.T) {
	f := testutil.NewDatasetFixture(t, 8)
	meta, err := LoadMeta(f.Root)
	require.NoError(t, err)

	AddSuperclass(meta)
	once := superclasses(meta)
	AddSuperclass(meta)

	assert.Equal(t, once, superclasses(meta))
	assert.Equal(t, []string{"NORM"}, once[0])
	assert.Equal(t, []string{"MI"}, once[1], "IMI and ASMI collapse to one MI")
	assert.Equal(t, []string{"HYP", "STTC"}, once[2])
	assert.Equal(t, []string{}, once[3], "rhythm-only record has no label")
}

func TestAddSuperclass_LabelsComeFromDiagnosticSubset(t *testing.T) {
	f := testutil.NewDatasetFixture(t, 12)
	meta, err := LoadMeta(f.Root)
	require.NoError(t, err)
	AddSuperclass(meta)

	subset := meta.Statements.DiagnosticSubset()
	valid := make(map[string]bool)
	for _, s := range subset {
		valid[s.DiagnosticClass] = true
	}

	for _, rec := range meta.Records.Records {
		for _, label := range rec.DiagnosticSuperclass {
			assert.True(t, valid[label], "ecg_id %d label %q", rec.ECGID, label)
		}
		// every matching code contributes its class
		for code := range rec.SCPCodes {
			if s, ok := subset[code]; ok {
				assert.Contains(t, rec.DiagnosticSuperclass, s.DiagnosticClass)
			}
		}
	}
}

func TestAddSuperclass_LeavesStatementsUntouched(t *testing.T) {
	meta := newMeta(t,
		[]*domain.SCPStatement{
			{Code: "NORM", Diagnostic: true, DiagnosticClass: "NORM"},
			{Code: "SR", Rhythm: true},
		},
		map[string]float64{"NORM": 100, "SR": 0},
	)

	AddSuperclass(meta)
	assert.Equal(t, 2, meta.Statements.Len())
}

func TestAddDiagnosticLabels_Subclass(t *testing.T) {
	meta := newMeta(t,
		[]*domain.SCPStatement{
			{Code: "IMI", Diagnostic: true, DiagnosticClass: "MI", DiagnosticSubclass: "IMI"},
			{Code: "ASMI", Diagnostic: true, DiagnosticClass: "MI", DiagnosticSubclass: "AMI"},
		},
		map[string]float64{"IMI": 80, "ASMI": 15},
	)

	AddDiagnosticLabels(meta, LevelSubclass)

	rec := meta.Records.Records[0]
	assert.Equal(t, []string{"AMI", "IMI"}, rec.DiagnosticSubclass)
	assert.Nil(t, rec.DiagnosticSuperclass, "superclass column untouched")
}

func TestAggregateCodes(t *testing.T) {
	subset := map[string]*domain.SCPStatement{
		"NORM": {Code: "NORM", Diagnostic: true, DiagnosticClass: "NORM"},
		"NDT":  {Code: "NDT", Diagnostic: true, DiagnosticClass: "STTC"},
		"EMPT": {Code: "EMPT", Diagnostic: true},
	}

	tests := []struct {
		name  string
		codes map[string]float64
		want  []string
	}{
		{"nil codes", nil, []string{}},
		{"unknown code dropped", map[string]float64{"XYZ": 100}, []string{}},
		{"sorted", map[string]float64{"NORM": 100, "NDT": 50}, []string{"NORM", "STTC"}},
		{"zero likelihood still counts", map[string]float64{"NDT": 0}, []string{"STTC"}},
		{"empty class skipped", map[string]float64{"EMPT": 100}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AggregateCodes(tt.codes, subset, LevelSuperclass))
		})
	}
}

func TestAddSuperclass_NilMeta(t *testing.T) {
	assert.NotPanics(t, func() {
		AddSuperclass(nil)
		AddSuperclass(&Meta{})
	})
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "diagnostic_superclass", LevelSuperclass.String())
	assert.Equal(t, "diagnostic_subclass", LevelSubclass.String())
	assert.Equal(t, "unknown", Level(9).String())
}
