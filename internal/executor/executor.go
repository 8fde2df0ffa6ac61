// Package executor owns the subprocess lifecycle: spawn, concurrent output
// capture, timeout enforcement and forced termination. Every Execute call
// produces exactly one Result, failed or not, so downstream analysis and
// report stages always have a record to work with.
package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	goruntime "runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"scriptflow/internal/store"
)

// Observer receives best-effort lifecycle notifications. A nil observer is
// valid; observer failures must never affect execution outcomes.
type Observer interface {
	StartExecution(id, command string, timeout time.Duration)
	CompleteExecution(id string, result *Result)
	FailExecution(id string, err error)
}

// Engine executes commands and keeps completed Results in an injected store.
type Engine struct {
	results        store.Store[*Result]
	observer       Observer
	counter        atomic.Int64
	defaultTimeout time.Duration
	maxTimeout     time.Duration // caller-requested timeouts are clamped to this
	maxBuffer      int           // caller-requested buffer caps are clamped to this
}

// Option configures an Engine.
type Option func(*Engine)

// WithObserver attaches a lifecycle observer (typically the monitor).
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithDefaultTimeout overrides the engine-wide default timeout.
func WithDefaultTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.defaultTimeout = d
		}
	}
}

// WithMaxTimeout caps caller-requested timeouts. Requests above the cap are
// clamped, not rejected.
func WithMaxTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.maxTimeout = d
		}
	}
}

// WithMaxBuffer caps caller-requested per-stream capture limits.
func WithMaxBuffer(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxBuffer = n
		}
	}
}

// NewEngine creates an execution engine backed by the given result store.
func NewEngine(results store.Store[*Result], opts ...Option) *Engine {
	e := &Engine{
		results:        results,
		defaultTimeout: DefaultTimeout,
		maxBuffer:      DefaultMaxBuffer,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// nextID assigns a monotonically increasing script id. Ids are never reused,
// even after DeleteResult.
func (e *Engine) nextID() string {
	return fmt.Sprintf("script_%03d", e.counter.Add(1))
}

// Execute runs a command as a managed subprocess and returns its Result.
//
// The command is tokenized by splitting on runs of whitespace; quoted
// arguments are not honored (known limitation, see Options.Shell for the
// shell-interpreted path). Execute never returns a nil Result: spawn failures
// and timeouts are recorded on the Result, and the returned error mirrors the
// recorded failure for errors.Is checks. A non-zero exit is a normal outcome
// (Success=false, no Failure, nil error).
func (e *Engine) Execute(ctx context.Context, command string, opts Options) (*Result, error) {
	id := e.nextID()
	start := time.Now()

	res := &Result{
		ID:               id,
		Command:          command,
		WorkingDirectory: opts.WorkingDirectory,
		StartTime:        start,
		Metadata: map[string]any{
			"platform": goruntime.GOOS,
			"arch":     goruntime.GOARCH,
			"shell":    opts.Shell,
		},
	}
	if res.WorkingDirectory == "" {
		if wd, err := os.Getwd(); err == nil {
			res.WorkingDirectory = wd
		}
	}

	logger := log.With().Str("script_id", id).Str("command", command).Logger()

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = e.defaultTimeout
	}
	if e.maxTimeout > 0 && timeout > e.maxTimeout {
		logger.Warn().
			Dur("requested", timeout).
			Dur("max", e.maxTimeout).
			Msg("requested timeout clamped to configured maximum")
		timeout = e.maxTimeout
	}

	if e.observer != nil {
		e.observer.StartExecution(id, command, timeout)
	}

	name, args, err := tokenize(command, opts.Shell)
	if err != nil {
		return e.fail(res, FailureInvalid, "tokenize", err, logger)
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	maxBuffer := opts.MaxBuffer
	if maxBuffer <= 0 || maxBuffer > e.maxBuffer {
		maxBuffer = e.maxBuffer
	}
	stdout := newCappedBuffer(maxBuffer)
	stderr := newCappedBuffer(maxBuffer)

	cmd := exec.CommandContext(execCtx, name, args...) // #nosec G204 -- running caller commands is the point of this engine
	cmd.Dir = opts.WorkingDirectory
	cmd.Env = mergeEnv(opts.Env)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	logger.Info().Dur("timeout", timeout).Msg("execution started")

	if startErr := cmd.Start(); startErr != nil {
		return e.fail(res, FailureSpawn, "start", startErr, logger)
	}

	// Wait returns only after both stream copies have hit EOF, so stdout and
	// stderr are complete before the record is finalized.
	waitErr := cmd.Wait()

	res.EndTime = time.Now()
	res.Duration = res.EndTime.Sub(res.StartTime)
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	if stdout.Truncated() {
		res.Metadata["stdout_truncated"] = true
	}
	if stderr.Truncated() {
		res.Metadata["stderr_truncated"] = true
	}

	// The deadline firing wins over whatever exit state the kill produced.
	if execCtx.Err() == context.DeadlineExceeded {
		res.Failure = &Failure{
			Kind:    FailureTimeout,
			Message: fmt.Sprintf("execution exceeded %s timeout", timeout),
		}
		e.finish(res, logger)
		return res, &ExecutionError{ID: id, Op: "wait", Err: ErrTimeout}
	}

	exitCode := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			exitCode = exitErr.ExitCode()
			if exitCode < 0 {
				// Killed by a signal: no normal termination status.
				res.Success = false
				e.finish(res, logger)
				return res, nil
			}
		} else {
			return e.fail(res, FailureSpawn, "wait", waitErr, logger)
		}
	}

	res.ExitCode = &exitCode
	res.Success = exitCode == 0 && res.Failure == nil
	e.finish(res, logger)
	return res, nil
}

// fail finalizes a record that could not run or complete normally. The
// returned error wraps the failure sentinel with the script id and the
// operation that failed.
func (e *Engine) fail(res *Result, kind, op string, cause error, logger zerolog.Logger) (*Result, error) {
	res.EndTime = time.Now()
	res.Duration = res.EndTime.Sub(res.StartTime)
	res.Failure = &Failure{Kind: kind, Message: cause.Error()}
	res.Success = false
	e.results.Put(res.ID, res)

	logger.Error().Err(cause).Str("kind", kind).Str("op", op).Msg("execution failed")
	if e.observer != nil {
		e.observer.FailExecution(res.ID, cause)
	}
	return res, &ExecutionError{ID: res.ID, Op: op, Err: res.Failure.Sentinel()}
}

// finish stores a completed record and notifies the observer.
func (e *Engine) finish(res *Result, logger zerolog.Logger) {
	e.results.Put(res.ID, res)

	evt := logger.Info().
		Dur("duration", res.Duration).
		Bool("success", res.Success).
		Int("output_bytes", res.OutputSize())
	if res.ExitCode != nil {
		evt = evt.Int("exit_code", *res.ExitCode)
	}
	evt.Msg("execution completed")

	if e.observer != nil {
		if res.Failure != nil {
			e.observer.FailExecution(res.ID, res.Failure)
		} else {
			e.observer.CompleteExecution(res.ID, res)
		}
	}
}

// GetResult returns a stored record by id.
func (e *Engine) GetResult(id string) (*Result, error) {
	return e.results.Get(id)
}

// GetAllResults returns all stored records in creation order.
func (e *Engine) GetAllResults() []*Result {
	return e.results.List()
}

// DeleteResult removes a record from the registry. Ids are not reused.
func (e *Engine) DeleteResult(id string) bool {
	return e.results.Delete(id)
}

// ClearResults drops all stored records.
func (e *Engine) ClearResults() {
	e.results.Clear()
}

// tokenize resolves the command string into an executable name and argument
// list. Plain mode splits on runs of whitespace with no quote awareness; shell
// mode hands the whole string to "sh -c".
func tokenize(command string, shell bool) (string, []string, error) {
	if strings.TrimSpace(command) == "" {
		return "", nil, ErrEmptyCommand
	}
	if shell {
		return "sh", []string{"-c", command}, nil
	}
	fields := strings.Fields(command)
	return fields[0], fields[1:], nil
}

// mergeEnv layers caller overrides on top of the inherited environment.
func mergeEnv(overrides map[string]string) []string {
	env := os.Environ()
	if len(overrides) == 0 {
		return env
	}
	for k, v := range overrides {
		env = append(env, k+"="+v)
	}
	return env
}
