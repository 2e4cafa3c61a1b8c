package services

import (
	"context"
	"fmt"
	"log/slog"

	"ptbxl/internal/config"
	"ptbxl/internal/dataprocessing"
	apperrors "ptbxl/internal/errors"
	"ptbxl/internal/infrastructure"
	"ptbxl/internal/validation"
	"ptbxl/pkg/contracts/domain"
)

// DatasetService answers questions about the configured dataset root
type DatasetService struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *infrastructure.LoaderMetrics
}

// NewDatasetService creates a dataset service; metrics may be nil
func NewDatasetService(cfg *config.Config, logger *slog.Logger, metrics *infrastructure.LoaderMetrics) *DatasetService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DatasetService{
		cfg:     cfg,
		logger:  logger.With(slog.String("service", "dataset")),
		metrics: metrics,
	}
}

func (s *DatasetService) loaderOptions(ctx context.Context) []dataprocessing.Option {
	return []dataprocessing.Option{
		dataprocessing.WithContext(ctx),
		dataprocessing.WithLogger(s.logger),
		dataprocessing.WithMetrics(s.metrics),
	}
}

// Inspect validates the root and counts its WFDB records
func (s *DatasetService) Inspect(ctx context.Context) (*validation.DatasetReport, error) {
	v := validation.NewDatasetValidator(s.logger)
	if err := v.ValidateDatasetRoot(s.cfg.Dataset.Root); err != nil {
		return nil, err
	}
	return v.InspectRecords(s.cfg.Dataset.Root)
}

// Meta loads both metadata tables with superclass and subclass labels attached
func (s *DatasetService) Meta(ctx context.Context) (*dataprocessing.Meta, error) {
	meta, err := dataprocessing.LoadMeta(s.cfg.Dataset.Root, s.loaderOptions(ctx)...)
	if err != nil {
		return nil, err
	}
	dataprocessing.AddDiagnosticLabels(meta, dataprocessing.LevelSuperclass)
	dataprocessing.AddDiagnosticLabels(meta, dataprocessing.LevelSubclass)
	return meta, nil
}

// Record returns one labelled record by ecg_id
func (s *DatasetService) Record(ctx context.Context, ecgID int) (*domain.Record, error) {
	if ecgID <= 0 {
		return nil, apperrors.NewAppValidationError(fmt.Sprintf("invalid ecg_id %d", ecgID))
	}
	meta, err := s.Meta(ctx)
	if err != nil {
		return nil, err
	}
	rec, ok := meta.Records.ByID(ecgID)
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("ecg_id %d", ecgID))
	}
	return rec, nil
}

// Signal loads the waveform of one record at the configured sampling rate
func (s *DatasetService) Signal(ctx context.Context, ecgID int) (domain.Signal, error) {
	rec, err := s.Record(ctx, ecgID)
	if err != nil {
		return domain.Signal{}, err
	}
	table, err := domain.NewRecordTable(nil, []*domain.Record{rec})
	if err != nil {
		return domain.Signal{}, err
	}
	signals, err := dataprocessing.LoadECG(table, s.cfg.Dataset.Root, s.cfg.Dataset.SamplingRate, nil, s.loaderOptions(ctx)...)
	if err != nil {
		return domain.Signal{}, err
	}
	return signals[0], nil
}

// SamplingRate is the rate Signal loads at, 100 or 500 Hz
func (s *DatasetService) SamplingRate() int {
	if s.cfg.Dataset.SamplingRate == config.LowSamplingRate {
		return config.LowSamplingRate
	}
	return config.HighSamplingRate
}
