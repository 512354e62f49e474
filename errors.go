// Package parbench structured error types for harness failures
package parbench

import (
	"errors"
	"fmt"
)

// ErrorType represents categories of errors
type ErrorType int

const (
	// Buffer could not be sized. Fatal.
	ErrTypeAllocation ErrorType = iota
	// Partitioner chunks overlapped or left a gap. Fatal, always a harness bug.
	ErrTypeCoverage
	// Parallel result disagreed with the reference. Recorded, never fatal.
	ErrTypeTolerance
	// N, thread count or trial count was zero.
	ErrTypeDegenerateInput
	// Invalid argument errors
	ErrTypeInvalidArg
	// A kernel or prepare hook failed while being timed
	ErrTypeExecution
)

// BenchError represents a structured error with context
type BenchError struct {
	Type    ErrorType
	Op      string      // Operation that failed
	Message string      // Human-readable message
	Err     error       // Underlying error if any
	Context interface{} // Additional context
}

// Error implements the error interface
func (e *BenchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parbench %s error in %s: %s (caused by: %v)",
			e.Type.String(), e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("parbench %s error in %s: %s",
		e.Type.String(), e.Op, e.Message)
}

// Unwrap allows error chain inspection
func (e *BenchError) Unwrap() error {
	return e.Err
}

// String returns the error type as a string
func (t ErrorType) String() string {
	switch t {
	case ErrTypeAllocation:
		return "AllocationFailure"
	case ErrTypeCoverage:
		return "PartitionCoverageViolation"
	case ErrTypeTolerance:
		return "ToleranceExceeded"
	case ErrTypeDegenerateInput:
		return "DegenerateInput"
	case ErrTypeInvalidArg:
		return "InvalidArgument"
	case ErrTypeExecution:
		return "Execution"
	default:
		return "Unknown"
	}
}

// Common error constructors

// NewAllocationError creates a buffer sizing error
func NewAllocationError(op string, message string, err error) error {
	return &BenchError{
		Type:    ErrTypeAllocation,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// NewCoverageError creates a partition coverage error. Context carries the
// offending chunk or the claimed/expected counts.
func NewCoverageError(op string, message string, context interface{}) error {
	return &BenchError{
		Type:    ErrTypeCoverage,
		Op:      op,
		Message: message,
		Context: context,
	}
}

// NewToleranceError creates a correctness check error
func NewToleranceError(op string, message string, context interface{}) error {
	return &BenchError{
		Type:    ErrTypeTolerance,
		Op:      op,
		Message: message,
		Context: context,
	}
}

// NewDegenerateInputError creates an error for inputs rejected before timing
func NewDegenerateInputError(op string, message string) error {
	return &BenchError{
		Type:    ErrTypeDegenerateInput,
		Op:      op,
		Message: message,
	}
}

// NewInvalidArgError creates an invalid argument error
func NewInvalidArgError(op string, message string) error {
	return &BenchError{
		Type:    ErrTypeInvalidArg,
		Op:      op,
		Message: message,
	}
}

// NewExecutionError creates an execution error
func NewExecutionError(op string, message string, err error) error {
	return &BenchError{
		Type:    ErrTypeExecution,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// Common pre-defined errors

var (
	// ErrZeroThreads indicates a team or run configured with no threads
	ErrZeroThreads = NewDegenerateInputError("NewTeam", "thread count must be positive")

	// ErrEmptyIterationSpace indicates a kernel with N=0
	ErrEmptyIterationSpace = NewDegenerateInputError("Validate", "problem size must be positive")

	// ErrHarnessClosed indicates use of a harness after Close released its buffers
	ErrHarnessClosed = NewInvalidArgError("Run", "harness is closed")
)

func errorType(err error) (ErrorType, bool) {
	var e *BenchError
	if errors.As(err, &e) {
		return e.Type, true
	}
	return 0, false
}

// IsAllocationError checks if an error is an allocation failure
func IsAllocationError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeAllocation
}

// IsCoverageError checks if an error is a partition coverage violation
func IsCoverageError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeCoverage
}

// IsToleranceError checks if an error is a failed correctness check
func IsToleranceError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeTolerance
}

// IsDegenerateInput checks if an error rejected a degenerate configuration
func IsDegenerateInput(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeDegenerateInput
}

// IsInvalidArgError checks if an error is an invalid argument error
func IsInvalidArgError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeInvalidArg
}

// IsFatal reports whether err must abort a run. Tolerance failures are
// recorded alongside the metrics instead.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	t, ok := errorType(err)
	if !ok {
		return true
	}
	return t != ErrTypeTolerance
}
