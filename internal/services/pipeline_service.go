package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"ptbxl/internal/config"
	"ptbxl/internal/dataprocessing"
	apperrors "ptbxl/internal/errors"
	"ptbxl/internal/exporter"
	"ptbxl/internal/infrastructure"
	"ptbxl/internal/operations"
	"ptbxl/internal/plot"
	"ptbxl/internal/validation"
	"ptbxl/pkg/contracts/domain"
)

// Context keys shared by the pipeline steps
const (
	keyMeta  = "meta"
	keyClean = "clean"
)

// PipelineFigure is the trace figure name, without extension
const PipelineFigure = "pipeline_signals"

// MaxTrackedRuns bounds the operations kept for Status; the oldest finished
// runs are forgotten first.
const MaxTrackedRuns = 32

// ProgressHub receives pipeline progress, typically a websocket hub
type ProgressHub interface {
	BroadcastStep(ev operations.StepEvent)
	BroadcastStatus(ctx context.Context, operationID string, status operations.OperationStatus, err error)
}

// PipelineOptions selects the optional parts of a run
type PipelineOptions struct {
	// PerDiag > 0 adds a figure of that many high-rate signals per class
	PerDiag int
	Format  plot.Format
}

// PipelineService runs check, metadata, labels, clean view, description
// and the optional trace figure as one operation.
type PipelineService struct {
	dataset *DatasetService
	cfg     *config.Config
	paths   *config.Paths
	logger  *slog.Logger
	hub     ProgressHub

	// runs write to the same report files, so only one may be active
	running atomic.Bool

	mu    sync.RWMutex
	runs  map[string]*operations.OperationState
	order []string
}

// NewPipelineService creates a pipeline service; hub may be nil
func NewPipelineService(dataset *DatasetService, hub ProgressHub) *PipelineService {
	return &PipelineService{
		dataset: dataset,
		cfg:     dataset.cfg,
		paths:   config.GetPaths(dataset.cfg.Output.Dir),
		logger:  dataset.logger.With(slog.String("service", "pipeline")),
		hub:     hub,
		runs:    make(map[string]*operations.OperationState),
	}
}

// Registry builds the step graph for opts
func (s *PipelineService) Registry(opts PipelineOptions) (*operations.Registry, error) {
	if opts.PerDiag < 0 {
		return nil, fmt.Errorf("per-diag must not be negative, got %d", opts.PerDiag)
	}
	exp := exporter.NewLabelExporter(s.paths, s.logger)

	steps := []operations.Step{
		operations.NewStep("check", "Validate dataset", nil, s.check),
		operations.NewStep("meta", "Load metadata", []string{"check"},
			func(ctx context.Context, state *operations.OperationState) error {
				meta, err := s.dataset.Meta(ctx)
				if err != nil {
					return err
				}
				state.SetContext(keyMeta, meta)
				return nil
			}),
		operations.NewStep("labels", "Export diagnostic labels", []string{"meta"},
			func(ctx context.Context, state *operations.OperationState) error {
				meta, err := operations.ContextValue[*dataprocessing.Meta](state, keyMeta)
				if err != nil {
					return err
				}
				return exp.ExportLabels(meta.Records, config.LabelsFileName)
			}),
		operations.NewStep("clean", "Build clean view", []string{"labels"},
			func(ctx context.Context, state *operations.OperationState) error {
				meta, err := operations.ContextValue[*dataprocessing.Meta](state, keyMeta)
				if err != nil {
					return err
				}
				clean := dataprocessing.BuildCleanView(meta.Records)
				state.SetContext(keyClean, clean)
				return exp.ExportClean(clean, config.CleanFileName)
			}),
		operations.NewStep("describe", "Describe clean view", []string{"clean"},
			func(ctx context.Context, state *operations.OperationState) error {
				clean, err := operations.ContextValue[*domain.CleanTable](state, keyClean)
				if err != nil {
					return err
				}
				d := dataprocessing.Describe(dataprocessing.FrameFromClean(clean))
				return exporter.WriteDescriptionWorkbook(s.paths.DescriptionXLSX, d)
			}),
	}
	if opts.PerDiag > 0 {
		steps = append(steps, operations.NewStep("plot", "Plot class traces", []string{"clean"},
			func(ctx context.Context, state *operations.OperationState) error {
				return s.plotClasses(ctx, state, opts)
			}))
	}

	registry := operations.NewRegistry()
	for _, step := range steps {
		if err := registry.Register(step); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func (s *PipelineService) check(ctx context.Context, _ *operations.OperationState) error {
	report, err := s.dataset.Inspect(ctx)
	if err != nil {
		return err
	}
	if n := len(report.MissingData); n > 0 {
		s.logger.WarnContext(ctx, "Records without signal data", slog.Int("count", n))
	}
	if err := validation.NewDatasetValidator(s.logger).ValidateOutputDirectory(s.paths.ReportsDir); err != nil {
		return err
	}
	return s.paths.EnsureDirectories()
}

func (s *PipelineService) plotClasses(ctx context.Context, state *operations.OperationState, opts PipelineOptions) error {
	clean, err := operations.ContextValue[*domain.CleanTable](state, keyClean)
	if err != nil {
		return err
	}
	patients := dataprocessing.PatientsByDiag(clean, opts.PerDiag)
	signals, _, err := dataprocessing.LoadECGFromClean(clean, s.cfg.Dataset.Root, patients, s.dataset.loaderOptions(ctx)...)
	if err != nil {
		return err
	}
	vectors := make([][]float64, len(signals))
	for i, sig := range signals {
		vectors[i] = sig.Channel(0)
	}

	format := opts.Format
	if format == "" {
		format = plot.FormatPNG
	}
	path := s.paths.GetPlotPath(PipelineFigure + "." + string(format))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	err = plot.Traces(f, vectors, plot.TraceOptions{
		Title:  fmt.Sprintf("%d signals per diagnostic class", opts.PerDiag),
		Format: format,
		Width:  s.cfg.Output.Width,
		Height: s.cfg.Output.Height,
	})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

// Run executes the pipeline synchronously. The returned state is nil only
// when the step graph could not be built.
func (s *PipelineService) Run(ctx context.Context, id string, opts PipelineOptions, observers ...operations.Observer) (*operations.OperationState, error) {
	registry, err := s.Registry(opts)
	if err != nil {
		return nil, err
	}
	if err := s.acquire(); err != nil {
		return nil, err
	}
	state := operations.NewOperationState(id)
	s.track(state)
	return state, s.run(ctx, registry, state, observers)
}

// acquire claims the single run slot; run releases it
func (s *PipelineService) acquire() error {
	if !s.running.CompareAndSwap(false, true) {
		return apperrors.NewConflictError("a pipeline run is already in progress")
	}
	return nil
}

// Running reports whether a pipeline run is in progress
func (s *PipelineService) Running() bool {
	return s.running.Load()
}

func (s *PipelineService) run(ctx context.Context, registry *operations.Registry, state *operations.OperationState, observers []operations.Observer) error {
	ctx = infrastructure.EnsureRunID(ctx)

	runner := operations.NewRunner(registry, s.logger)
	if s.hub != nil {
		runner.Observe(s.hub.BroadcastStep)
		s.hub.BroadcastStatus(ctx, state.ID, operations.OperationStatusRunning, nil)
	}
	for _, fn := range observers {
		runner.Observe(fn)
	}

	err := runner.RunState(ctx, state)
	s.running.Store(false)
	if s.hub != nil {
		s.hub.BroadcastStatus(ctx, state.ID, state.GetStatus(), err)
	}
	return err
}

func (s *PipelineService) track(state *operations.OperationState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[state.ID]; !ok {
		s.order = append(s.order, state.ID)
	}
	s.runs[state.ID] = state

	for i := 0; len(s.runs) > MaxTrackedRuns && i < len(s.order); {
		id := s.order[i]
		if !isTerminal(s.runs[id].GetStatus()) {
			i++
			continue
		}
		delete(s.runs, id)
		s.order = append(s.order[:i], s.order[i+1:]...)
	}
}

func isTerminal(status operations.OperationStatus) bool {
	switch status {
	case operations.OperationStatusCompleted, operations.OperationStatusFailed, operations.OperationStatusCancelled:
		return true
	}
	return false
}

// Start runs the pipeline in the background and returns its operation id.
// done, when non-nil, receives the final error. A Conflict error is returned
// while another run is in progress.
func (s *PipelineService) Start(ctx context.Context, opts PipelineOptions, done func(error)) (string, error) {
	registry, err := s.Registry(opts)
	if err != nil {
		return "", err
	}
	if err := s.acquire(); err != nil {
		return "", err
	}
	state := operations.NewOperationState("pipeline-" + infrastructure.GenerateRunID())
	s.track(state)

	// the run outlives the request that started it
	runCtx := context.WithoutCancel(ctx)
	go func() {
		err := s.run(runCtx, registry, state, nil)
		if done != nil {
			done(err)
		}
	}()
	return state.ID, nil
}

// Status returns the live state of an operation started by this service
func (s *PipelineService) Status(id string) (*operations.OperationState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.runs[id]
	return state, ok
}
