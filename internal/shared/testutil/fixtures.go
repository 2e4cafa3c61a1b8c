package testutil

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"ptbxl/internal/config"
	"ptbxl/internal/wfdb"
	"ptbxl/pkg/contracts/domain"
)

// Fixture waveform shapes. The high-rate file is five times longer.
const (
	FixtureChannels   = 2
	FixtureLowSamples = 10
	FixtureHRSamples  = 50
)

// DatabaseHeader is the column layout of the generated ptbxl_database.csv
var DatabaseHeader = []string{
	"ecg_id", "patient_id", "age", "sex", "height", "weight", "nurse", "site",
	"device", "recording_date", "report", "scp_codes", "heart_axis", "strat_fold",
	"filename_lr", "filename_hr",
}

// StatementsHeader is the column layout of the generated scp_statements.csv;
// the first column is the unnamed code index.
var StatementsHeader = []string{
	"", "description", "diagnostic", "form", "rhythm",
	"diagnostic_class", "diagnostic_subclass", "Statement Category",
}

// StatementRows maps seven SCP codes onto four superclasses. AFIB and SR
// are rhythm statements and never yield a label.
var StatementRows = [][]string{
	{"NORM", "normal ECG", "1.0", "", "", "NORM", "NORM", "Normal/abnormal"},
	{"IMI", "inferior myocardial infarction", "1.0", "", "", "MI", "IMI", "Myocardial Infarction"},
	{"ASMI", "anteroseptal myocardial infarction", "1.0", "", "", "MI", "AMI", "Myocardial Infarction"},
	{"LVH", "left ventricular hypertrophy", "1.0", "", "", "HYP", "LVH", "Hypertrophy"},
	{"NDT", "non-diagnostic T abnormalities", "1.0", "1.0", "", "STTC", "STTC", "Basic roots"},
	{"AFIB", "atrial fibrillation", "", "", "1.0", "", "", "Rhythm"},
	{"SR", "sinus rhythm", "", "", "1.0", "", "", "Rhythm"},
}

// fixtureCodes cycles through four label outcomes:
// NORM, MI, HYP+STTC and no diagnostic label.
var fixtureCodes = []string{
	"{'NORM': 100.0, 'SR': 0.0}",
	"{'IMI': 80.0, 'ASMI': 15.0, 'SR': 0.0}",
	"{'LVH': 50.0, 'NDT': 100.0}",
	"{'AFIB': 100.0}",
}

// DatasetFixture is a miniature PTB-XL tree under a temporary root
type DatasetFixture struct {
	Root  string
	Paths *config.DatasetPaths
	// DatabaseRows are the data rows last written to ptbxl_database.csv
	DatabaseRows [][]string
}

// NewDatasetFixture writes n records (ecg_id 1..n, patient_id 1000+ecg_id),
// the statement table and a low- and high-rate WFDB record per ecg_id.
func NewDatasetFixture(t *testing.T, n int) *DatasetFixture {
	t.Helper()

	root := t.TempDir()
	f := &DatasetFixture{
		Root:  root,
		Paths: config.NewDatasetPaths(root),
	}
	require.NoError(t, os.MkdirAll(f.Paths.MetaDir, 0755))

	for id := 1; id <= n; id++ {
		f.DatabaseRows = append(f.DatabaseRows, DatabaseRow(id))
		f.writeSignal(t, id, LowRef(id), FixtureLowSamples)
		f.writeSignal(t, id, HighRef(id), FixtureHRSamples)
	}

	f.WriteDatabase(t)
	WriteCSV(t, f.Paths.StatementsCSV, StatementsHeader, StatementRows)
	return f
}

// DatabaseRow builds the metadata row for ecg_id id
func DatabaseRow(id int) []string {
	return []string{
		strconv.Itoa(id),
		fmt.Sprintf("%d.0", 1000+id),
		"56.0",
		strconv.Itoa(id % 2),
		"",
		"63.0",
		"2.0",
		"0.0",
		"CS-12   E",
		"1984-11-09 09:17:34",
		"sinusrhythmus",
		fixtureCodes[(id-1)%len(fixtureCodes)],
		"",
		strconv.Itoa((id-1)%10 + 1),
		LowRef(id),
		HighRef(id),
	}
}

// LowRef is the filename_lr value of ecg_id id
func LowRef(id int) string {
	return fmt.Sprintf("records100/%02d000/%05d_lr", id/1000, id)
}

// HighRef is the filename_hr value of ecg_id id
func HighRef(id int) string {
	return fmt.Sprintf("records500/%02d000/%05d_hr", id/1000, id)
}

// SampleValue is the physical value stored at sample s of channel c for
// ecg_id id, so callers can tell records apart after loading.
func SampleValue(id, s, c int) float64 {
	return float64(id) + float64(c)*0.5 + float64(s)*0.001
}

// WriteDatabase rewrites ptbxl_database.csv from DatabaseRows
func (f *DatasetFixture) WriteDatabase(t *testing.T) {
	t.Helper()
	WriteCSV(t, f.Paths.DatabaseCSV, DatabaseHeader, f.DatabaseRows)
}

func (f *DatasetFixture) writeSignal(t *testing.T, id int, ref string, samples int) {
	t.Helper()

	sig := domain.NewSignal(samples, FixtureChannels)
	for s := 0; s < samples; s++ {
		for c := 0; c < FixtureChannels; c++ {
			sig.Set(s, c, SampleValue(id, s, c))
		}
	}

	base := f.Paths.RecordPath(ref)
	require.NoError(t, os.MkdirAll(filepath.Dir(base), 0755))
	require.NoError(t, wfdb.WriteRecord(base, sig, wfdb.WriteOptions{
		Frequency: float64(samples * 10),
		Leads:     []string{"I", "II"},
	}))
}

// WriteCSV writes header and rows to path, creating parent directories
func WriteCSV(t *testing.T, path string, header []string, rows [][]string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()

	w := csv.NewWriter(file)
	require.NoError(t, w.Write(header))
	require.NoError(t, w.WriteAll(rows))
}
