package infrastructure

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Instrument names. The prometheus exporter appends _total to counters and
// _seconds to the histogram.
const (
	RecordsLoadedMetric  = "ptbxl_records_loaded"
	SignalsLoadedMetric  = "ptbxl_signals_loaded"
	LoadErrorsMetric     = "ptbxl_load_errors"
	SignalLoadTimeMetric = "ptbxl_signal_load"
)

// LoaderMetrics holds the dataset loading instruments. A nil *LoaderMetrics
// is valid and records nothing.
type LoaderMetrics struct {
	RecordsLoaded      metric.Int64Counter
	SignalsLoaded      metric.Int64Counter
	LoadErrors         metric.Int64Counter
	SignalLoadDuration metric.Float64Histogram
}

// NewLoaderMetrics creates the loader instruments on meter
func NewLoaderMetrics(meter metric.Meter) (*LoaderMetrics, error) {
	recordsLoaded, err := meter.Int64Counter(
		RecordsLoadedMetric,
		metric.WithDescription("Metadata rows parsed, by table"),
	)
	if err != nil {
		return nil, err
	}

	signalsLoaded, err := meter.Int64Counter(
		SignalsLoadedMetric,
		metric.WithDescription("WFDB records decoded, by sampling rate"),
	)
	if err != nil {
		return nil, err
	}

	loadErrors, err := meter.Int64Counter(
		LoadErrorsMetric,
		metric.WithDescription("Failed load operations, by stage"),
	)
	if err != nil {
		return nil, err
	}

	signalLoadDuration, err := meter.Float64Histogram(
		SignalLoadTimeMetric,
		metric.WithDescription("Time to read one WFDB record"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &LoaderMetrics{
		RecordsLoaded:      recordsLoaded,
		SignalsLoaded:      signalsLoaded,
		LoadErrors:         loadErrors,
		SignalLoadDuration: signalLoadDuration,
	}, nil
}

// AddRecords counts n parsed rows of table
func (m *LoaderMetrics) AddRecords(ctx context.Context, table string, n int) {
	if m == nil {
		return
	}
	m.RecordsLoaded.Add(ctx, int64(n), metric.WithAttributes(attribute.String("table", table)))
}

// ObserveSignal counts one decoded record and its read time
func (m *LoaderMetrics) ObserveSignal(ctx context.Context, samplingRate int, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.Int("sampling_rate", samplingRate))
	m.SignalsLoaded.Add(ctx, 1, attrs)
	m.SignalLoadDuration.Record(ctx, d.Seconds(), attrs)
}

// AddError counts a failure in stage
func (m *LoaderMetrics) AddError(ctx context.Context, stage string) {
	if m == nil {
		return
	}
	m.LoadErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}
