package dataprocessing

import (
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"ptbxl/internal/config"
	apperrors "ptbxl/internal/errors"
	"ptbxl/internal/infrastructure"
	"ptbxl/pkg/contracts/domain"
)

// LoadECG reads the raw waveforms of the selected records from
// root/raw_data/ecg_data. A sampling rate of 100 selects filename_lr, any
// other value filename_hr. Empty ecgIDs loads every record in table order;
// otherwise the result follows ecgIDs. The first failure aborts the load.
func LoadECG(records *domain.RecordTable, root string, samplingRate int, ecgIDs []int, opts ...Option) ([]domain.Signal, error) {
	o := newOptions(opts)
	if records == nil {
		return nil, apperrors.NewAppValidationError("record table is nil")
	}

	ctx, span := infrastructure.StartSpan(o.ctx, "dataprocessing.LoadECG",
		attribute.Int("sampling_rate", samplingRate),
		attribute.Int("requested", len(ecgIDs)))
	defer span.End()
	o.ctx = ctx

	selected, err := records.Select(ecgIDs)
	if err != nil {
		err = apperrors.NewNotFoundError("record").WithCause(err)
		o.fail("signals", err)
		return nil, fmt.Errorf("select records: %w", err)
	}

	refs := make([]string, len(selected))
	for i, rec := range selected {
		refs[i] = rec.Filename(samplingRate)
	}

	return o.readSignals(root, refs, samplingRate)
}

// LoadECGFromClean reads the high-rate waveforms of the clean view rows
// whose patient_id is in patientIDs, in table order, and returns them with
// the matching patient ids. Empty patientIDs selects every row.
func LoadECGFromClean(clean *domain.CleanTable, root string, patientIDs []float64, opts ...Option) ([]domain.Signal, []float64, error) {
	o := newOptions(opts)
	if clean == nil {
		return nil, nil, apperrors.NewAppValidationError("clean table is nil")
	}

	ctx, span := infrastructure.StartSpan(o.ctx, "dataprocessing.LoadECGFromClean",
		attribute.Int("requested", len(patientIDs)))
	defer span.End()
	o.ctx = ctx

	wanted := make(map[float64]struct{}, len(patientIDs))
	for _, id := range patientIDs {
		wanted[id] = struct{}{}
	}

	var (
		refs     []string
		patients []float64
	)
	for _, row := range clean.Rows {
		if len(wanted) > 0 {
			if _, ok := wanted[row.PatientID]; !ok {
				continue
			}
		}
		refs = append(refs, row.FilenameHR)
		patients = append(patients, row.PatientID)
	}

	signals, err := o.readSignals(root, refs, config.HighSamplingRate)
	if err != nil {
		return nil, nil, err
	}

	o.logger.InfoContext(ctx, "Clean view signals loaded",
		slog.Int("signals", len(signals)),
		slog.String("shape", shapeSummary(signals)))
	return signals, patients, nil
}

// readSignals resolves refs under the ecg_data directory and reads them in
// order. samplingRate only labels the metrics.
func (o *options) readSignals(root string, refs []string, samplingRate int) ([]domain.Signal, error) {
	if o.filenameHook != nil {
		o.filenameHook(append([]string(nil), refs...))
	}
	o.logger.DebugContext(o.ctx, "Resolved ECG filenames",
		slog.Int("count", len(refs)),
		slog.Any("filenames", refs))

	paths := config.NewDatasetPaths(root)
	signals := make([]domain.Signal, 0, len(refs))
	for _, ref := range refs {
		if err := o.ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		sig, err := o.reader(paths.RecordPath(ref))
		if err != nil {
			o.fail("signals", err)
			return nil, fmt.Errorf("load ecg %s: %w", ref, err)
		}
		o.metrics.ObserveSignal(o.ctx, samplingRate, time.Since(start))
		signals = append(signals, sig)
	}
	return signals, nil
}

// shapeSummary renders "n x samples x channels" when all shapes agree
func shapeSummary(signals []domain.Signal) string {
	if len(signals) == 0 {
		return "0"
	}
	samples, channels := signals[0].Shape()
	for _, s := range signals[1:] {
		if n, c := s.Shape(); n != samples || c != channels {
			return fmt.Sprintf("%d (ragged)", len(signals))
		}
	}
	return fmt.Sprintf("%d x %d x %d", len(signals), samples, channels)
}
