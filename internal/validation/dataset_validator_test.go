package validation

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "ptbxl/internal/errors"
	"ptbxl/internal/shared/testutil"
)

func TestNewDatasetValidator(t *testing.T) {
	v := NewDatasetValidator(nil)
	assert.NotNil(t, v.logger)

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	assert.Same(t, logger, NewDatasetValidator(logger).logger)
}

func TestDatasetValidator_ValidateDatasetRoot(t *testing.T) {
	tests := []struct {
		name      string
		setupFunc func(t *testing.T) string
		errType   apperrors.ErrorType
	}{
		{
			name: "complete tree",
			setupFunc: func(t *testing.T) string {
				return testutil.NewDatasetFixture(t, 2).Root
			},
		},
		{
			name: "missing root",
			setupFunc: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "absent")
			},
			errType: apperrors.ErrTypeNotFound,
		},
		{
			name: "root is a file",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "root")
				require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
				return path
			},
			errType: apperrors.ErrTypeValidation,
		},
		{
			name: "missing statements",
			setupFunc: func(t *testing.T) string {
				f := testutil.NewDatasetFixture(t, 1)
				require.NoError(t, os.Remove(f.Paths.StatementsCSV))
				return f.Root
			},
			errType: apperrors.ErrTypeNotFound,
		},
		{
			name: "missing waveforms",
			setupFunc: func(t *testing.T) string {
				f := testutil.NewDatasetFixture(t, 1)
				require.NoError(t, os.RemoveAll(f.Paths.ECGDir))
				return f.Root
			},
			errType: apperrors.ErrTypeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, handler := testutil.NewTestLogger(t)
			v := NewDatasetValidator(logger)

			err := v.ValidateDatasetRoot(tt.setupFunc(t))
			if tt.errType == "" {
				require.NoError(t, err)
				assert.True(t, handler.ContainsMessage("Dataset root validated"))
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, tt.errType), err.Error())
		})
	}
}

func TestDatasetValidator_NotFoundKeepsCause(t *testing.T) {
	err := NewDatasetValidator(nil).ValidateFile(filepath.Join(t.TempDir(), "nope.csv"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestDatasetValidator_ValidateOutputDirectory(t *testing.T) {
	v := NewDatasetValidator(nil)

	dir := filepath.Join(t.TempDir(), "reports", "tables")
	require.NoError(t, v.ValidateOutputDirectory(dir))
	assert.DirExists(t, dir)
	assert.NoFileExists(t, filepath.Join(dir, ".write_test"))

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	assert.Error(t, v.ValidateOutputDirectory(filepath.Join(file, "sub")))
}

func TestDatasetValidator_ValidateTableFile(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"clean.csv", "clean.xlsx", "clean.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
	v := NewDatasetValidator(nil)

	tests := []struct {
		name    string
		path    string
		errType apperrors.ErrorType
	}{
		{"csv", filepath.Join(dir, "clean.csv"), ""},
		{"xlsx", filepath.Join(dir, "clean.xlsx"), ""},
		{"wrong extension", filepath.Join(dir, "clean.txt"), apperrors.ErrTypeValidation},
		{"missing", filepath.Join(dir, "other.csv"), apperrors.ErrTypeNotFound},
		{"directory", dir, apperrors.ErrTypeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateTableFile(tt.path)
			if tt.errType == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, apperrors.IsType(err, tt.errType))
		})
	}
}

func TestDatasetValidator_InspectRecords(t *testing.T) {
	f := testutil.NewDatasetFixture(t, 3)
	require.NoError(t, os.Remove(f.Paths.RecordPath(testutil.HighRef(3))+".dat"))

	logger, handler := testutil.NewTestLogger(t)
	report, err := NewDatasetValidator(logger).InspectRecords(f.Root)
	require.NoError(t, err)

	assert.Equal(t, f.Root, report.Root)
	assert.Equal(t, 3, report.LowRateRecords)
	assert.Equal(t, 3, report.HighRateRecords)
	assert.Equal(t, []string{testutil.HighRef(3)}, report.MissingData)
	assert.True(t, handler.ContainsAttr("records100", int64(3)))
}

func TestDatasetValidator_InspectRecordsWithoutHighRate(t *testing.T) {
	f := testutil.NewDatasetFixture(t, 2)
	require.NoError(t, os.RemoveAll(filepath.Join(f.Paths.ECGDir, "records500")))

	logger, handler := testutil.NewTestLogger(t)
	report, err := NewDatasetValidator(logger).InspectRecords(f.Root)
	require.NoError(t, err)

	assert.Equal(t, 2, report.LowRateRecords)
	assert.Zero(t, report.HighRateRecords)
	assert.Empty(t, report.MissingData)
	assert.True(t, handler.ContainsMessage("Waveform directory missing"))
}
