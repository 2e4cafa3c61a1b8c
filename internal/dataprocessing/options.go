package dataprocessing

import (
	"context"
	"log/slog"

	"ptbxl/internal/infrastructure"
	"ptbxl/internal/wfdb"
	"ptbxl/pkg/contracts/domain"
)

// SignalReader reads the sample array of the WFDB record at base
// (path without extension).
type SignalReader func(base string) (domain.Signal, error)

// Option configures the loaders
type Option func(*options)

type options struct {
	ctx          context.Context
	logger       *slog.Logger
	reader       SignalReader
	filenameHook func([]string)
	metrics      *infrastructure.LoaderMetrics
}

func newOptions(opts []Option) *options {
	o := &options{
		ctx:    context.Background(),
		reader: wfdb.ReadSamples,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// WithContext sets the parent context for spans and cancellation
func WithContext(ctx context.Context) Option {
	return func(o *options) {
		if ctx != nil {
			o.ctx = ctx
		}
	}
}

// WithLogger sets the logger; slog.Default() otherwise
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithReader replaces the waveform reader (wfdb.ReadSamples by default)
func WithReader(r SignalReader) Option {
	return func(o *options) {
		if r != nil {
			o.reader = r
		}
	}
}

// WithFilenameHook receives the resolved waveform references, in load
// order, before any file is read.
func WithFilenameHook(hook func([]string)) Option {
	return func(o *options) {
		o.filenameHook = hook
	}
}

// WithMetrics records loader counters on m
func WithMetrics(m *infrastructure.LoaderMetrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}
