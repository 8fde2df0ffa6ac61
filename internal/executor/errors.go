package executor

import (
	"errors"
	"fmt"
)

// Sentinel errors for typed error checking.
var (
	ErrEmptyCommand = errors.New("command is empty")
	ErrTimeout      = errors.New("execution timed out")
	ErrSpawnFailed  = errors.New("process failed to start")
)

// Failure kinds recorded on a Result. Stable identifiers: the outer layer maps
// them onto error codes, and persisted records carry them verbatim.
const (
	FailureTimeout = "timeout"
	FailureSpawn   = "spawn_failed"
	FailureInvalid = "invalid_command"
)

// Failure is the recorded cause of an execution that could not run or
// complete normally. A non-zero exit is not a Failure.
type Failure struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (f *Failure) Error() string {
	return f.Message
}

// Unwrap exposes the sentinel so errors.Is works on a Failure itself.
func (f *Failure) Unwrap() error {
	return f.Sentinel()
}

// Sentinel maps a failure kind back to its sentinel error.
func (f *Failure) Sentinel() error {
	switch f.Kind {
	case FailureTimeout:
		return ErrTimeout
	case FailureSpawn:
		return ErrSpawnFailed
	case FailureInvalid:
		return ErrEmptyCommand
	default:
		return errors.New(f.Kind)
	}
}

// ExecutionError wraps errors with execution context.
type ExecutionError struct {
	ID  string
	Op  string // The operation that failed
	Err error
}

func (e *ExecutionError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("execution %s: %s: %s", e.ID, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// IsTimeout returns true if the error is a timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsSpawnFailure returns true if the error is a failure to start the process.
func IsSpawnFailure(err error) bool {
	return errors.Is(err, ErrSpawnFailed)
}
