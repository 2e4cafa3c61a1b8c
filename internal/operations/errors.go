package operations

import (
	"errors"
	"fmt"
)

// Sentinel errors for registry and runner failures
var (
	ErrStepNotFound       = errors.New("step not found")
	ErrDuplicateStep      = errors.New("step already registered")
	ErrCircularDependency = errors.New("circular dependency detected")
	ErrNoSteps            = errors.New("no steps registered")
	ErrMissingDependency  = errors.New("missing dependency")
)

// ErrorType categorizes operation errors
type ErrorType string

const (
	ErrorTypeExecution    ErrorType = "execution"
	ErrorTypeCancellation ErrorType = "cancellation"
	ErrorTypeDependency   ErrorType = "dependency"
)

// OperationError carries the failing step and the underlying cause
type OperationError struct {
	Type    ErrorType
	Step    string
	Message string
	Cause   error
}

// Error implements the error interface
func (e *OperationError) Error() string {
	if e.Step != "" {
		if e.Cause != nil {
			return fmt.Sprintf("[%s] step %s: %s: %v", e.Type, e.Step, e.Message, e.Cause)
		}
		return fmt.Sprintf("[%s] step %s: %s", e.Type, e.Step, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *OperationError) Unwrap() error {
	return e.Cause
}

// NewExecutionError creates an error for a step that failed
func NewExecutionError(step string, cause error) *OperationError {
	return &OperationError{
		Type:    ErrorTypeExecution,
		Step:    step,
		Message: "execution failed",
		Cause:   cause,
	}
}

// NewCancellationError creates an error for a run stopped by its context
func NewCancellationError(step string, cause error) *OperationError {
	return &OperationError{
		Type:    ErrorTypeCancellation,
		Step:    step,
		Message: "operation cancelled",
		Cause:   cause,
	}
}

// NewDependencyError creates an error for missing upstream output
func NewDependencyError(key, message string) *OperationError {
	return &OperationError{
		Type:    ErrorTypeDependency,
		Message: fmt.Sprintf("%s: %s", key, message),
		Cause:   ErrMissingDependency,
	}
}

// IsCancellation reports whether err stopped a run through cancellation
func IsCancellation(err error) bool {
	var opErr *OperationError
	return errors.As(err, &opErr) && opErr.Type == ErrorTypeCancellation
}
