package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"ptbxl/internal/config"
	apperrors "ptbxl/internal/errors"
	"ptbxl/internal/files"
)

// DatasetReport summarises a dataset tree
type DatasetReport struct {
	Root string `json:"root"`
	// LowRateRecords and HighRateRecords count WFDB headers per resolution
	LowRateRecords  int `json:"records100"`
	HighRateRecords int `json:"records500"`
	// MissingData lists record references whose .dat file is absent
	MissingData []string `json:"missing_data"`
}

// DatasetValidator checks dataset and output locations before the
// loaders run, so failures surface with the offending path.
type DatasetValidator struct {
	logger *slog.Logger
}

// NewDatasetValidator creates a new dataset validator
func NewDatasetValidator(logger *slog.Logger) *DatasetValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &DatasetValidator{
		logger: logger,
	}
}

// ValidateDatasetRoot checks that both metadata tables exist and are
// readable and that the waveform directory is present.
func (v *DatasetValidator) ValidateDatasetRoot(root string) error {
	if err := v.ValidateDirectory(root); err != nil {
		return err
	}

	paths := config.NewDatasetPaths(root)
	for _, f := range []string{paths.DatabaseCSV, paths.StatementsCSV} {
		if err := v.ValidateFile(f); err != nil {
			return err
		}
	}
	if err := v.ValidateDirectory(paths.ECGDir); err != nil {
		return err
	}

	v.logger.Info("Dataset root validated",
		slog.String("root", root))
	return nil
}

// ValidateDirectory checks that dir exists and is a directory
func (v *DatasetValidator) ValidateDirectory(dir string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		v.logger.Error("Directory does not exist",
			slog.String("directory", dir))
		return apperrors.NewNotFoundError(dir).WithCause(err)
	}
	if err != nil {
		v.logger.Error("Failed to stat directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to stat directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		v.logger.Error("Path is not a directory",
			slog.String("path", dir))
		return apperrors.NewAppValidationError(fmt.Sprintf("%s is not a directory", dir))
	}
	return nil
}

// ValidateOutputDirectory ensures output directory exists or can be created
func (v *DatasetValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	// Verify it's writable by creating a test file
	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	file.Close()
	os.Remove(testFile)

	v.logger.Debug("Output directory validated",
		slog.String("directory", dir))
	return nil
}

// ValidateFile checks if a specific file exists and is readable
func (v *DatasetValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist",
			slog.String("file", path))
		return apperrors.NewNotFoundError(path).WithCause(err)
	}
	if err != nil {
		v.logger.Error("Failed to stat file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a file",
			slog.String("path", path))
		return apperrors.NewAppValidationError(fmt.Sprintf("%s is a directory, not a file", path))
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateTableFile checks a clean-dataset or metadata table: it must
// exist and carry a .csv or .xlsx extension.
func (v *DatasetValidator) ValidateTableFile(path string) error {
	if err := v.ValidateFile(path); err != nil {
		return err
	}
	if !files.IsTable(path) {
		v.logger.Error("File is not a CSV or Excel table",
			slog.String("file", path),
			slog.String("extension", filepath.Ext(path)))
		return apperrors.NewAppValidationError(fmt.Sprintf("file %s is not a .csv or .xlsx table", path))
	}
	return nil
}

// InspectRecords counts the WFDB records of both resolutions under the
// dataset root and lists headers that have no data file.
func (v *DatasetValidator) InspectRecords(root string) (*DatasetReport, error) {
	paths := config.NewDatasetPaths(root)
	discovery := files.NewDiscovery(paths.ECGDir)
	report := &DatasetReport{Root: root}

	for _, sub := range []struct {
		dir   string
		count *int
	}{
		{"records100", &report.LowRateRecords},
		{"records500", &report.HighRateRecords},
	} {
		if _, err := os.Stat(filepath.Join(paths.ECGDir, sub.dir)); os.IsNotExist(err) {
			v.logger.Warn("Waveform directory missing",
				slog.String("directory", sub.dir))
			continue
		}
		records, err := discovery.FindRecords(sub.dir)
		if err != nil {
			return nil, err
		}
		*sub.count = len(records)
		for _, r := range files.MissingData(records) {
			report.MissingData = append(report.MissingData, r.Ref)
		}
	}

	v.logger.Info("Records inspected",
		slog.String("root", root),
		slog.Int("records100", report.LowRateRecords),
		slog.Int("records500", report.HighRateRecords),
		slog.Int("missing_data", len(report.MissingData)))
	return report, nil
}
