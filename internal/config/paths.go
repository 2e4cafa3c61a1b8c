package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// DatasetPaths is the single source of truth for where the PTB-XL files
// live under a dataset root.
type DatasetPaths struct {
	Root          string
	MetaDir       string
	DatabaseCSV   string
	StatementsCSV string
	ECGDir        string
}

// NewDatasetPaths resolves the fixed layout under root:
//
//	root/
//	  └── raw_data/
//	      ├── meta_data/ptbxl_database.csv
//	      ├── meta_data/scp_statements.csv
//	      └── ecg_data/records100|records500/...
func NewDatasetPaths(root string) *DatasetPaths {
	raw := filepath.Join(root, RawDataDir)
	meta := filepath.Join(raw, MetaDataDir)
	return &DatasetPaths{
		Root:          root,
		MetaDir:       meta,
		DatabaseCSV:   filepath.Join(meta, DatabaseFileName),
		StatementsCSV: filepath.Join(meta, StatementsFileName),
		ECGDir:        filepath.Join(raw, ECGDataDir),
	}
}

// RecordPath resolves a filename_lr/filename_hr reference (slash separated,
// no extension) to a WFDB base path.
func (p *DatasetPaths) RecordPath(ref string) string {
	return filepath.Join(p.ECGDir, filepath.FromSlash(ref))
}

// ValidateRequiredFiles checks that both metadata tables are present
func (p *DatasetPaths) ValidateRequiredFiles() error {
	for _, f := range []string{p.DatabaseCSV, p.StatementsCSV} {
		if !FileExists(f) {
			return fmt.Errorf("required dataset file missing: %s", f)
		}
	}
	return nil
}

// LogPathResolution logs the resolved layout for debugging
func (p *DatasetPaths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("Resolved dataset paths",
		slog.String("root", p.Root),
		slog.String("database_csv", p.DatabaseCSV),
		slog.String("statements_csv", p.StatementsCSV),
		slog.String("ecg_dir", p.ECGDir),
		slog.Bool("database_exists", FileExists(p.DatabaseCSV)),
		slog.Bool("statements_exists", FileExists(p.StatementsCSV)))
}

// Paths contains the output locations for reports and figures
type Paths struct {
	OutputDir  string
	ReportsDir string
	PlotsDir   string
	LogsDir    string

	// Well-known report files
	LabelsCSV       string
	CleanCSV        string
	DescriptionXLSX string
}

// GetPaths resolves the output layout under dir
func GetPaths(dir string) *Paths {
	reports := filepath.Join(dir, ReportsSubdir)
	return &Paths{
		OutputDir:       dir,
		ReportsDir:      reports,
		PlotsDir:        filepath.Join(dir, PlotsSubdir),
		LogsDir:         filepath.Join(dir, "logs"),
		LabelsCSV:       filepath.Join(reports, LabelsFileName),
		CleanCSV:        filepath.Join(reports, CleanFileName),
		DescriptionXLSX: filepath.Join(reports, DescriptionFileName),
	}
}

// EnsureDirectories creates all output directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.OutputDir, p.ReportsDir, p.PlotsDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// GetReportPath returns the full path for a report file
func (p *Paths) GetReportPath(filename string) string {
	return filepath.Join(p.ReportsDir, filename)
}

// GetPlotPath returns the full path for a figure
func (p *Paths) GetPlotPath(filename string) string {
	return filepath.Join(p.PlotsDir, filename)
}

// GetLogPath returns the full path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
