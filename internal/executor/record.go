package executor

import "time"

// Result is the stored outcome of one subprocess run. Created when execution
// starts, mutated only by the owning execution while output streams in, and
// frozen once it lands in the registry.
type Result struct {
	ID               string         `json:"id"`
	Command          string         `json:"command"`
	WorkingDirectory string         `json:"working_directory"`
	StartTime        time.Time      `json:"start_time"`
	EndTime          time.Time      `json:"end_time"`
	Duration         time.Duration  `json:"duration"`
	ExitCode         *int           `json:"exit_code,omitempty"` // nil: process did not terminate normally
	Stdout           string         `json:"stdout"`
	Stderr           string         `json:"stderr"`
	Success          bool           `json:"success"`
	Failure          *Failure       `json:"error,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// OutputSize returns the combined length of captured stdout and stderr.
func (r *Result) OutputSize() int {
	return len(r.Stdout) + len(r.Stderr)
}

// Status is a one-word classification used by the monitor, metrics and list
// filters: "success", "failed", "timeout" or "error".
func (r *Result) Status() string {
	switch {
	case r.Failure != nil && r.Failure.Kind == FailureTimeout:
		return "timeout"
	case r.Failure != nil:
		return "error"
	case r.Success:
		return "success"
	default:
		return "failed"
	}
}

// Options control a single Execute call.
type Options struct {
	WorkingDirectory string            `json:"working_directory,omitempty"`
	Timeout          time.Duration     `json:"timeout,omitempty"`
	Env              map[string]string `json:"env,omitempty"` // merged over the inherited environment
	MaxBuffer        int               `json:"max_buffer,omitempty"`
	Encoding         string            `json:"encoding,omitempty"`
	Shell            bool              `json:"shell,omitempty"` // run via "sh -c" instead of tokenizing
}

const (
	// DefaultTimeout bounds executions when the caller does not set one.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBuffer caps each captured stream at 10MB. Exceeding it
	// truncates the stream and flags the truncation in Result.Metadata.
	DefaultMaxBuffer = 10 << 20
)
