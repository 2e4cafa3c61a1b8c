package operations

import (
	"context"
	"sync"
	"time"
)

// Step represents a single step in the operation
type Step interface {
	// ID returns the unique identifier for this step
	ID() string

	// Name returns the human-readable name for this step
	Name() string

	// GetDependencies returns the IDs of steps that must complete first
	GetDependencies() []string

	// Execute runs the step with the given context and operation state
	Execute(ctx context.Context, state *OperationState) error
}

// StepFunc is the body of a function-backed step
type StepFunc func(ctx context.Context, state *OperationState) error

type funcStep struct {
	id   string
	name string
	deps []string
	fn   StepFunc
}

// NewStep wraps fn as a Step
func NewStep(id, name string, deps []string, fn StepFunc) Step {
	return &funcStep{id: id, name: name, deps: deps, fn: fn}
}

func (s *funcStep) ID() string                { return s.id }
func (s *funcStep) Name() string              { return s.name }
func (s *funcStep) GetDependencies() []string { return s.deps }

func (s *funcStep) Execute(ctx context.Context, state *OperationState) error {
	return s.fn(ctx, state)
}

// StepStatus represents the current status of a step
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusActive    StepStatus = "active"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
)

// StepState represents the runtime state of a step
type StepState struct {
	mu        sync.RWMutex
	ID        string
	Name      string
	Status    StepStatus
	StartTime *time.Time
	EndTime   *time.Time
	Message   string
	Error     error
}

// NewStepState creates a new step state with default values
func NewStepState(id, name string) *StepState {
	return &StepState{
		ID:     id,
		Name:   name,
		Status: StepStatusPending,
	}
}

// Start marks the step as active and sets the start time
func (s *StepState) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.StartTime = &now
	s.Status = StepStatusActive
}

// Complete marks the step as completed with a summary message
func (s *StepState) Complete(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.EndTime = &now
	s.Status = StepStatusCompleted
	s.Message = message
}

// Fail marks the step as failed with the given error
func (s *StepState) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.EndTime = &now
	s.Status = StepStatusFailed
	s.Error = err
}

// Skip marks the step as skipped
func (s *StepState) Skip(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Status = StepStatusSkipped
	s.Message = reason
}

// GetStatus returns the current status
func (s *StepState) GetStatus() StepStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Status
}

// Duration returns how long the step ran; zero until it has ended
func (s *StepState) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.StartTime == nil || s.EndTime == nil {
		return 0
	}
	return s.EndTime.Sub(*s.StartTime)
}

func (s *StepState) snapshot() StepSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := StepSnapshot{
		ID:      s.ID,
		Name:    s.Name,
		Status:  s.Status,
		Message: s.Message,
	}
	if s.Error != nil {
		snap.Error = s.Error.Error()
	}
	if s.StartTime != nil && s.EndTime != nil {
		snap.Duration = s.EndTime.Sub(*s.StartTime)
	}
	return snap
}
