// Package config provides centralized configuration for the PTB-XL toolkit.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//  1. Environment variables (highest priority), including a local .env file
//  2. YAML configuration file (ptbxl.yaml, configs/ptbxl.yaml or $PTBXL_CONFIG_FILE)
//  3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern PTBXL_<SECTION>_<FIELD>:
//
//	PTBXL_DATASET_ROOT=/data/ptb-xl
//	PTBXL_DATASET_SAMPLING_RATE=500
//	PTBXL_LOGGING_LEVEL=debug
//	PTBXL_OUTPUT_DIR=reports
//	PTBXL_TELEMETRY_METRICS_ADDR=:9090
//
// # Path Management
//
// DatasetPaths resolves the fixed raw_data layout under the dataset root and
// is the only place the loaders get file locations from:
//
//	paths := config.NewDatasetPaths(cfg.Dataset.Root)
//	base := paths.RecordPath("records100/00000/00001_lr")
//
// Paths resolves the output layout (tables, figures, logs).
package config
