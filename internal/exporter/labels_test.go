package exporter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ptbxl/internal/config"
	"ptbxl/internal/dataprocessing"
	"ptbxl/internal/shared/testutil"
	"ptbxl/pkg/contracts/domain"
)

func labelledMeta(t *testing.T, n int) *dataprocessing.Meta {
	t.Helper()
	f := testutil.NewDatasetFixture(t, n)
	meta, err := dataprocessing.LoadMeta(f.Root)
	require.NoError(t, err)
	dataprocessing.AddSuperclass(meta)
	return meta
}

func TestLabelExporter_ExportLabels(t *testing.T) {
	meta := labelledMeta(t, 4)
	paths := config.GetPaths(t.TempDir())
	logger, handler := testutil.NewTestLogger(t)

	exporter := NewLabelExporter(paths, logger)
	require.NoError(t, exporter.ExportLabels(meta.Records, config.LabelsFileName))
	assert.True(t, handler.ContainsMessage("Exported labels"))

	all := readCSV(t, paths.LabelsCSV)
	require.Len(t, all, 5)

	header := all[0]
	assert.Equal(t, "diagnostic_superclass", header[len(header)-1])
	assert.Equal(t, testutil.DatabaseHeader, header[:len(header)-1])

	last := len(header) - 1
	assert.Equal(t, "['NORM']", all[1][last])
	assert.Equal(t, "['MI']", all[2][last])
	assert.Equal(t, "['HYP', 'STTC']", all[3][last])
	assert.Equal(t, "[]", all[4][last])
	assert.Equal(t, "{'ASMI': 15.0, 'IMI': 80.0, 'SR': 0.0}", all[2][11])
}

func TestLabelExporter_RoundTrip(t *testing.T) {
	meta := labelledMeta(t, 6)
	paths := config.GetPaths(t.TempDir())

	require.NoError(t, NewLabelExporter(paths, nil).ExportLabels(meta.Records, paths.LabelsCSV))

	back, err := dataprocessing.LoadRecords(paths.LabelsCSV)
	require.NoError(t, err)
	require.Equal(t, meta.Records.Len(), back.Len())
	for i, rec := range meta.Records.Records {
		got := back.Records[i]
		assert.Equal(t, rec.ECGID, got.ECGID)
		assert.Equal(t, rec.SCPCodes, got.SCPCodes)
		assert.Equal(t, rec.PatientID, got.PatientID)
		assert.Equal(t, rec.FilenameHR, got.FilenameHR)
		assert.Equal(t, rec.Age, got.Age)
	}
}

func TestLabelExporter_TypedRecordsWithoutRaw(t *testing.T) {
	age := 40.0
	records, err := domain.NewRecordTable(nil, []*domain.Record{{
		ECGID:                7,
		PatientID:            1234,
		Age:                  &age,
		SCPCodes:             map[string]float64{"NORM": 100},
		StratFold:            3,
		FilenameLR:           "records100/00000/00007_lr",
		FilenameHR:           "records500/00000/00007_hr",
		DiagnosticSuperclass: []string{"NORM"},
		DiagnosticSubclass:   []string{"NORM"},
	}})
	require.NoError(t, err)

	paths := config.GetPaths(t.TempDir())
	require.NoError(t, NewLabelExporter(paths, nil).ExportLabels(records, "typed.csv"))

	all := readCSV(t, paths.GetReportPath("typed.csv"))
	assert.Equal(t, []string{
		"ecg_id", "patient_id", "scp_codes", "strat_fold", "filename_lr", "filename_hr",
		"diagnostic_superclass", "diagnostic_subclass",
	}, all[0])
	assert.Equal(t, []string{
		"7", "1234.0", "{'NORM': 100.0}", "3", "records100/00000/00007_lr", "records500/00000/00007_hr",
		"['NORM']", "['NORM']",
	}, all[1])
}

func TestLabelExporter_ExportClean(t *testing.T) {
	meta := labelledMeta(t, 8)
	clean := dataprocessing.BuildCleanView(meta.Records)
	paths := config.GetPaths(t.TempDir())

	exporter := NewLabelExporter(paths, nil)
	require.NoError(t, exporter.ExportClean(clean, paths.CleanCSV))

	all := readCSV(t, paths.CleanCSV)
	assert.Equal(t, dataprocessing.CleanHeader, all[0])
	assert.Len(t, all, clean.Len()+1)

	back, err := dataprocessing.LoadClean(paths.CleanCSV)
	require.NoError(t, err)
	require.Equal(t, clean.Len(), back.Len())
	for i := range clean.Rows {
		assert.Equal(t, clean.Rows[i].PatientID, back.Rows[i].PatientID)
		assert.Equal(t, clean.Rows[i].Diag, back.Rows[i].Diag)
		assert.Equal(t, clean.Rows[i].Extra, back.Rows[i].Extra)
	}
}

func TestLabelExporter_NilInput(t *testing.T) {
	exporter := NewLabelExporter(config.GetPaths(t.TempDir()), nil)
	assert.Error(t, exporter.ExportLabels(nil, "x.csv"))
	assert.Error(t, exporter.ExportClean(nil, "y.csv"))
}
