package monitor

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"scriptflow/internal/executor"
)

func completedResult(id string) *executor.Result {
	exit := 0
	now := time.Now()
	return &executor.Result{
		ID:        id,
		Command:   "echo hi",
		StartTime: now.Add(-time.Second),
		EndTime:   now,
		Duration:  time.Second,
		ExitCode:  &exit,
		Success:   true,
	}
}

func TestActiveLifecycle(t *testing.T) {
	m := New(10)

	m.StartExecution("script_001", "sleep 10", 30*time.Second)

	active := m.GetActiveExecutions()
	if len(active) != 1 {
		t.Fatalf("expected 1 active execution, got %d", len(active))
	}
	if active[0].ID != "script_001" || active[0].Command != "sleep 10" {
		t.Errorf("unexpected active entry: %+v", active[0])
	}
	if got := m.GetExecutionStatus("script_001"); got != "running" {
		t.Errorf("expected status running, got %q", got)
	}

	m.CompleteExecution("script_001", completedResult("script_001"))

	if len(m.GetActiveExecutions()) != 0 {
		t.Error("expected active set to empty after completion")
	}
	if got := m.GetExecutionStatus("script_001"); got != "success" {
		t.Errorf("expected status success, got %q", got)
	}
}

func TestFailExecutionStatus(t *testing.T) {
	m := New(10)

	m.StartExecution("script_001", "sleep 10", time.Second)
	m.FailExecution("script_001", executor.ErrTimeout)

	if got := m.GetExecutionStatus("script_001"); got != "timeout" {
		t.Errorf("expected status timeout, got %q", got)
	}

	m.StartExecution("script_002", "nope", time.Second)
	m.FailExecution("script_002", errors.New("exec: not found"))

	if got := m.GetExecutionStatus("script_002"); got != "error" {
		t.Errorf("expected status error, got %q", got)
	}
}

func TestHistoryEviction(t *testing.T) {
	m := New(3)

	for i := 1; i <= 5; i++ {
		id := fmt.Sprintf("script_%03d", i)
		m.StartExecution(id, "true", time.Second)
		m.CompleteExecution(id, completedResult(id))
	}

	history := m.GetExecutionHistory(0)
	if len(history) != 3 {
		t.Fatalf("expected history capped at 3, got %d", len(history))
	}
	// Newest first.
	if history[0].ID != "script_005" || history[2].ID != "script_003" {
		t.Errorf("unexpected history window: %v", history)
	}
	// Evicted entries report unknown.
	if got := m.GetExecutionStatus("script_001"); got != "unknown" {
		t.Errorf("expected unknown for evicted entry, got %q", got)
	}
}

func TestHistoryLimit(t *testing.T) {
	m := New(10)
	for i := 1; i <= 4; i++ {
		id := fmt.Sprintf("script_%03d", i)
		m.StartExecution(id, "true", time.Second)
		m.CompleteExecution(id, completedResult(id))
	}

	history := m.GetExecutionHistory(2)
	if len(history) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(history))
	}
	if history[0].ID != "script_004" || history[1].ID != "script_003" {
		t.Errorf("expected newest first, got %v", history)
	}
}

func TestUpdateProgressClamping(t *testing.T) {
	m := New(10)
	m.StartExecution("script_001", "true", time.Second)

	m.UpdateProgress("script_001", 150)
	if got := m.GetActiveExecutions()[0].Progress; got != 100 {
		t.Errorf("expected progress clamped to 100, got %f", got)
	}

	m.UpdateProgress("script_001", -5)
	if got := m.GetActiveExecutions()[0].Progress; got != 0 {
		t.Errorf("expected progress clamped to 0, got %f", got)
	}

	// Unknown ids are ignored, not created.
	m.UpdateProgress("script_999", 50)
	if len(m.GetActiveExecutions()) != 1 {
		t.Error("progress update must not create active entries")
	}
}

func TestUnknownStatus(t *testing.T) {
	m := New(10)
	if got := m.GetExecutionStatus("never-seen"); got != "unknown" {
		t.Errorf("expected unknown, got %q", got)
	}
}
