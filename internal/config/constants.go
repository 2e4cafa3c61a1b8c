package config

// Toolkit constants
const (
	ServiceName = "ptbxl"
	EnvPrefix   = "PTBXL"

	// Sampling-rate selectors. 100 picks filename_lr, anything else filename_hr.
	LowSamplingRate     = 100
	HighSamplingRate    = 500
	DefaultSamplingRate = LowSamplingRate

	// Dataset layout, relative to the dataset root
	RawDataDir         = "raw_data"
	MetaDataDir        = "meta_data"
	ECGDataDir         = "ecg_data"
	DatabaseFileName   = "ptbxl_database.csv"
	StatementsFileName = "scp_statements.csv"

	// Output layout, relative to the output directory
	DefaultOutputDir = "reports"
	ReportsSubdir    = "tables"
	PlotsSubdir      = "figures"

	LabelsFileName      = "diagnostic_labels.csv"
	CleanFileName       = "clean_dataset.csv"
	DescriptionFileName = "description.xlsx"

	DefaultPlotWidth  = 800
	DefaultPlotHeight = 600
)
