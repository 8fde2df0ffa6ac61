// Package monitor provides best-effort observability over in-flight
// executions: an active set, a bounded history ring, Prometheus metrics and
// OpenTelemetry tracing. Nothing here gates or alters execution outcomes.
package monitor

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"scriptflow/internal/executor"
)

// DefaultHistorySize bounds the history ring when no capacity is given.
const DefaultHistorySize = 100

// ActiveExecution describes an execution currently in flight.
type ActiveExecution struct {
	ID        string        `json:"id"`
	Command   string        `json:"command"`
	StartTime time.Time     `json:"start_time"`
	Timeout   time.Duration `json:"timeout"`
	Progress  float64       `json:"progress"` // 0-100, advisory
}

// HistoryEntry is the retained trace of a finished execution.
type HistoryEntry struct {
	ID        string        `json:"id"`
	Command   string        `json:"command"`
	Status    string        `json:"status"` // success, failed, timeout, error
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
}

// Monitor tracks in-flight executions and keeps a bounded history of finished
// ones, evicting oldest entries on overflow. It satisfies executor.Observer.
type Monitor struct {
	mu       sync.Mutex
	active   map[string]*ActiveExecution
	history  []HistoryEntry // ring, oldest first
	capacity int
	metrics  *Metrics // optional
}

// New creates a Monitor with the given history capacity (<=0 uses the default).
func New(historySize int) *Monitor {
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	return &Monitor{
		active:   make(map[string]*ActiveExecution),
		capacity: historySize,
	}
}

// WithMetrics attaches a Prometheus metrics set and returns the monitor.
func (m *Monitor) WithMetrics(metrics *Metrics) *Monitor {
	m.metrics = metrics
	return m
}

// StartExecution registers an execution as in flight.
func (m *Monitor) StartExecution(id, command string, timeout time.Duration) {
	m.mu.Lock()
	m.active[id] = &ActiveExecution{
		ID:        id,
		Command:   command,
		StartTime: time.Now(),
		Timeout:   timeout,
	}
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.ActiveExecutions.Inc()
	}
}

// CompleteExecution moves an execution from the active set into history.
func (m *Monitor) CompleteExecution(id string, result *executor.Result) {
	entry := HistoryEntry{
		ID:        id,
		Command:   result.Command,
		Status:    result.Status(),
		StartTime: result.StartTime,
		EndTime:   result.EndTime,
		Duration:  result.Duration,
	}
	if result.Failure != nil {
		entry.Error = result.Failure.Message
	}
	m.retire(id, entry)

	if m.metrics != nil {
		m.metrics.RecordExecution(entry.Status, result.Duration.Seconds())
		m.metrics.OutputSizeBytes.Observe(float64(result.OutputSize()))
	}
}

// FailExecution records an execution that could not run or complete normally.
func (m *Monitor) FailExecution(id string, err error) {
	m.mu.Lock()
	entry := HistoryEntry{ID: id, EndTime: time.Now(), Status: "error"}
	if act, ok := m.active[id]; ok {
		entry.Command = act.Command
		entry.StartTime = act.StartTime
		entry.Duration = entry.EndTime.Sub(act.StartTime)
	}
	m.mu.Unlock()

	if err != nil {
		entry.Error = err.Error()
		if executor.IsTimeout(err) {
			entry.Status = "timeout"
		}
	}

	m.retire(id, entry)

	if m.metrics != nil {
		m.metrics.RecordExecution(entry.Status, entry.Duration.Seconds())
		m.metrics.RecordError(entry.Status)
	}
}

// UpdateProgress sets the advisory progress percentage for an active
// execution. Unknown ids are ignored.
func (m *Monitor) UpdateProgress(id string, percent float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if act, ok := m.active[id]; ok {
		if percent < 0 {
			percent = 0
		}
		if percent > 100 {
			percent = 100
		}
		act.Progress = percent
	}
}

func (m *Monitor) retire(id string, entry HistoryEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, wasActive := m.active[id]
	if !wasActive {
		log.Debug().Str("script_id", id).Msg("retiring execution the monitor never saw start")
	}
	delete(m.active, id)

	if m.metrics != nil && wasActive {
		m.metrics.ActiveExecutions.Dec()
	}

	m.history = append(m.history, entry)
	if len(m.history) > m.capacity {
		m.history = m.history[len(m.history)-m.capacity:]
	}
}

// GetActiveExecutions returns a snapshot of in-flight executions.
func (m *Monitor) GetActiveExecutions() []ActiveExecution {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ActiveExecution, 0, len(m.active))
	for _, act := range m.active {
		out = append(out, *act)
	}
	return out
}

// GetExecutionHistory returns up to limit most recent finished executions,
// newest first. limit <= 0 returns the full retained history.
func (m *Monitor) GetExecutionHistory(limit int) []HistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.history)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]HistoryEntry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, m.history[i])
	}
	return out
}

// GetExecutionStatus reports "running" for active executions, the recorded
// status for historical ones, and "unknown" otherwise.
func (m *Monitor) GetExecutionStatus(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.active[id]; ok {
		return "running"
	}
	for i := len(m.history) - 1; i >= 0; i-- {
		if m.history[i].ID == id {
			return m.history[i].Status
		}
	}
	return "unknown"
}
