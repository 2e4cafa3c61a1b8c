package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnvVars = []string{
	"PTBXL_DATASET_ROOT", "PTBXL_DATASET_SAMPLING_RATE", "PTBXL_DATASET_CLEAN_FILE",
	"PTBXL_LOGGING_LEVEL", "PTBXL_LOGGING_FORMAT", "PTBXL_LOGGING_OUTPUT", "PTBXL_LOGGING_FILE_PATH",
	"PTBXL_OUTPUT_DIR", "PTBXL_OUTPUT_PLOT_FORMAT", "PTBXL_OUTPUT_WIDTH", "PTBXL_OUTPUT_HEIGHT",
	"PTBXL_TELEMETRY_ENABLE_TRACING", "PTBXL_TELEMETRY_METRICS_ADDR", "PTBXL_TELEMETRY_SERVICE_NAME",
}

// clearConfigEnv unsets every variable the loader reads; t.Setenv restores them afterwards
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, v := range configEnvVars {
		t.Setenv(v, "")
		os.Unsetenv(v)
	}
}

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ptbxl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadFrom(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		file        string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults with no env vars or file",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, ".", cfg.Dataset.Root)
				assert.Equal(t, 100, cfg.Dataset.SamplingRate)
				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, "console", cfg.Logging.Output)
				assert.Equal(t, "reports", cfg.Output.Dir)
				assert.Equal(t, "png", cfg.Output.PlotFormat)
				assert.Equal(t, ServiceName, cfg.Telemetry.ServiceName)
				assert.False(t, cfg.Telemetry.EnableTracing)
			},
		},
		{
			name: "env vars override defaults",
			env: map[string]string{
				"PTBXL_DATASET_ROOT":             "/data/ptb-xl",
				"PTBXL_DATASET_SAMPLING_RATE":    "500",
				"PTBXL_LOGGING_LEVEL":            "debug",
				"PTBXL_TELEMETRY_ENABLE_TRACING": "true",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/data/ptb-xl", cfg.Dataset.Root)
				assert.Equal(t, 500, cfg.Dataset.SamplingRate)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.True(t, cfg.Telemetry.EnableTracing)
			},
		},
		{
			name: "file values survive when env is unset",
			file: "dataset:\n  root: /mnt/ptbxl\n  sampling_rate: 500\noutput:\n  plot_format: svg\n",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/mnt/ptbxl", cfg.Dataset.Root)
				assert.Equal(t, 500, cfg.Dataset.SamplingRate)
				assert.Equal(t, "svg", cfg.Output.PlotFormat)
				// untouched sections keep defaults
				assert.Equal(t, "info", cfg.Logging.Level)
			},
		},
		{
			name: "env takes precedence over file",
			env:  map[string]string{"PTBXL_DATASET_ROOT": "/from/env"},
			file: "dataset:\n  root: /from/file\n",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/from/env", cfg.Dataset.Root)
			},
		},
		{
			name:    "unsupported sampling rate",
			env:     map[string]string{"PTBXL_DATASET_SAMPLING_RATE": "250"},
			wantErr: true,
		},
		{
			name:    "non numeric sampling rate",
			env:     map[string]string{"PTBXL_DATASET_SAMPLING_RATE": "fast"},
			wantErr: true,
		},
		{
			name:    "unknown plot format",
			env:     map[string]string{"PTBXL_OUTPUT_PLOT_FORMAT": "gif"},
			wantErr: true,
		},
		{
			name:    "file logging without a path",
			file:    "logging:\n  output: file\n  file_path: \"\"\n",
			wantErr: true,
		},
		{
			name:    "malformed yaml",
			file:    "dataset: [unclosed\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			path := ""
			if tt.file != "" {
				path = writeConfigFile(t, tt.file)
			}

			cfg, err := LoadFrom(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestLoadFrom_MissingFile(t *testing.T) {
	clearConfigEnv(t)
	_, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg)
	assert.NoError(t, cfg.validate())
}

func TestLoadFrom_ExampleFile(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := LoadFrom(filepath.Join("..", "..", "configs", "ptbxl.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "./data", cfg.Dataset.Root)
	assert.Equal(t, 100, cfg.Dataset.SamplingRate)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "./reports", cfg.Output.Dir)
	assert.Equal(t, 800, cfg.Output.Width)
}
