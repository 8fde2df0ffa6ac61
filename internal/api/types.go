package api

import (
	"time"

	"scriptflow/internal/analysis"
	"scriptflow/internal/executor"
	"scriptflow/internal/monitor"
)

// ExecuteRequest is the API-level request to run a command.
type ExecuteRequest struct {
	Command          string            `json:"command"`
	Shell            bool              `json:"shell,omitempty"`
	Timeout          Duration          `json:"timeout,omitempty"`
	WorkingDirectory string            `json:"working_directory,omitempty"`
	Env              map[string]string `json:"env,omitempty"`
	Analyze          bool              `json:"analyze,omitempty"` // run a basic analysis inline
}

// Duration wraps time.Duration for JSON marshaling as a string like "10s".
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = dur
	return nil
}

// ExecuteResponse is the API-level view of an execution record.
type ExecuteResponse struct {
	ID        string            `json:"id"`
	Command   string            `json:"command"`
	Success   bool              `json:"success"`
	ExitCode  *int              `json:"exit_code"`
	Duration  string            `json:"duration"`
	Stdout    string            `json:"stdout"`
	Stderr    string            `json:"stderr"`
	Error     *executor.Failure `json:"error,omitempty"`
	Analysis  *analysis.Record  `json:"analysis,omitempty"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time"`
}

// AnalyzeRequest analyzes a previously stored result by id.
type AnalyzeRequest struct {
	ScriptID     string `json:"script_id"`
	AnalysisType string `json:"analysis_type,omitempty"` // default "basic"
	EnableAI     bool   `json:"enable_ai,omitempty"`
	Context      string `json:"context,omitempty"`
}

// ReportRequest renders a report for a stored result (+ optional analysis).
type ReportRequest struct {
	ScriptID               string         `json:"script_id"`
	AnalysisID             string         `json:"analysis_id,omitempty"`
	Format                 string         `json:"format,omitempty"`   // default "markdown"
	Template               string         `json:"template,omitempty"` // default "default"
	OutputPath             string         `json:"output_path,omitempty"`
	IncludeDetails         *bool          `json:"include_details,omitempty"` // default true
	IncludeAnalysis        *bool          `json:"include_analysis,omitempty"`
	IncludeRecommendations *bool          `json:"include_recommendations,omitempty"`
	IncludeNextSteps       *bool          `json:"include_next_steps,omitempty"`
	CustomStyles           string         `json:"custom_styles,omitempty"`
	Metadata               map[string]any `json:"metadata,omitempty"`
}

// ReportResponse carries a rendered report.
type ReportResponse struct {
	ScriptID   string `json:"script_id"`
	AnalysisID string `json:"analysis_id,omitempty"`
	Format     string `json:"format"`
	Report     string `json:"report"`
	SavedTo    string `json:"saved_to,omitempty"`
}

// ListResponse wraps a filtered result listing.
type ListResponse struct {
	Results []*executor.Result `json:"results"`
	Total   int                `json:"total"`
	Limit   int                `json:"limit"`
	Offset  int                `json:"offset"`
}

// MonitorResponse reports in-flight executions and recent history.
type MonitorResponse struct {
	Active  []monitor.ActiveExecution `json:"active"`
	History []monitor.HistoryEntry    `json:"history"`
}

// ErrorResponse is the structured error envelope.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}
