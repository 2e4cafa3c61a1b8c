package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"ptbxl/internal/infrastructure"
)

// StepEvent reports a step status change to observers
type StepEvent struct {
	OperationID string     `json:"operation_id"`
	StepID      string     `json:"step"`
	Name        string     `json:"name"`
	Status      StepStatus `json:"status"`
	Index       int        `json:"index"`
	Total       int        `json:"total"`
	Error       string     `json:"error,omitempty"`
}

// Observer receives step events; it runs on the runner goroutine
type Observer func(StepEvent)

// Runner executes the steps of a registry in dependency order
type Runner struct {
	registry  *Registry
	logger    *slog.Logger
	observers []Observer
}

// NewRunner creates a runner; a nil logger falls back to slog.Default
func NewRunner(registry *Registry, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		registry: registry,
		logger:   logger.With(slog.String("component", "operations")),
	}
}

// Observe registers fn for step events of subsequent runs
func (r *Runner) Observe(fn Observer) *Runner {
	r.observers = append(r.observers, fn)
	return r
}

func (r *Runner) notify(id string, index int, state *OperationState) {
	if len(r.observers) == 0 {
		return
	}
	s := state.Steps[index]
	ev := StepEvent{
		OperationID: id,
		StepID:      s.ID,
		Name:        s.Name,
		Status:      s.GetStatus(),
		Index:       index,
		Total:       len(state.Steps),
	}
	if s.Error != nil {
		ev.Error = s.Error.Error()
	}
	for _, fn := range r.observers {
		fn(ev)
	}
}

// Run executes every step sequentially. It stops at the first failure and
// marks the remaining steps skipped. The returned state is never nil once
// the step order is resolved.
func (r *Runner) Run(ctx context.Context, id string) (*OperationState, error) {
	state := NewOperationState(id)
	if err := r.RunState(ctx, state); err != nil {
		if state.Steps == nil {
			return nil, err
		}
		return state, err
	}
	return state, nil
}

// RunState executes into a caller-owned state, so the caller can observe
// it through Snapshot while the run is in progress.
func (r *Runner) RunState(ctx context.Context, state *OperationState) error {
	id := state.ID
	steps, err := r.registry.GetDependencyOrder()
	if err != nil {
		return fmt.Errorf("resolve step order: %w", err)
	}

	stepStates := make([]*StepState, 0, len(steps))
	for _, step := range steps {
		stepStates = append(stepStates, NewStepState(step.ID(), step.Name()))
	}
	state.setSteps(stepStates)

	ctx, span := infrastructure.StartSpan(ctx, "operations.run",
		attribute.String("operation.id", id),
		attribute.Int("operation.steps", len(steps)))
	defer span.End()

	state.Start()
	r.logger.InfoContext(ctx, "Operation started",
		slog.String("operation_id", id),
		slog.Int("steps", len(steps)))

	for i, step := range steps {
		stepState := state.Steps[i]

		if err := ctx.Err(); err != nil {
			opErr := NewCancellationError(step.ID(), err)
			r.skipFrom(state, i, "operation cancelled")
			state.Cancel(opErr)
			infrastructure.RecordError(ctx, opErr)
			r.logger.WarnContext(ctx, "Operation cancelled",
				slog.String("operation_id", id),
				slog.String("step", step.ID()))
			return opErr
		}

		stepState.Start()
		r.notify(id, i, state)
		err := r.runStep(ctx, step, stepState, state)
		r.notify(id, i, state)
		if err != nil {
			var opErr *OperationError
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				opErr = NewCancellationError(step.ID(), err)
				state.Cancel(opErr)
			} else {
				opErr = NewExecutionError(step.ID(), err)
				state.Fail(opErr)
			}
			r.skipFrom(state, i+1, fmt.Sprintf("step %s failed", step.ID()))
			infrastructure.RecordError(ctx, opErr)
			return opErr
		}
	}

	state.Complete()
	r.logger.InfoContext(ctx, "Operation completed",
		slog.String("operation_id", id),
		slog.Duration("duration", state.Duration()))
	return nil
}

func (r *Runner) runStep(ctx context.Context, step Step, stepState *StepState, state *OperationState) error {
	ctx, span := infrastructure.StartSpan(ctx, "operations.step",
		attribute.String("step.id", step.ID()))
	defer span.End()

	start := time.Now()
	r.logger.DebugContext(ctx, "Step started", slog.String("step", step.ID()))

	if err := step.Execute(ctx, state); err != nil {
		stepState.Fail(err)
		infrastructure.RecordError(ctx, err)
		r.logger.ErrorContext(ctx, "Step failed",
			slog.String("step", step.ID()),
			slog.String("error", err.Error()))
		return err
	}

	stepState.Complete(fmt.Sprintf("%s done", step.Name()))
	r.logger.InfoContext(ctx, "Step completed",
		slog.String("step", step.ID()),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func (r *Runner) skipFrom(state *OperationState, from int, reason string) {
	for i := from; i < len(state.Steps); i++ {
		state.Steps[i].Skip(reason)
		r.notify(state.ID, i, state)
	}
}
