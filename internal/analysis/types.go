package analysis

import "time"

// Type selects which sub-analyses an AnalyzeScriptResult call computes.
type Type string

const (
	TypeBasic         Type = "basic"
	TypeDetailed      Type = "detailed"
	TypeAI            Type = "ai"
	TypeComprehensive Type = "comprehensive"
)

// Valid reports whether t is one of the known analysis types.
func (t Type) Valid() bool {
	switch t {
	case TypeBasic, TypeDetailed, TypeAI, TypeComprehensive:
		return true
	}
	return false
}

// Options control a single analysis run.
type Options struct {
	Type     Type   `json:"analysis_type"`
	EnableAI bool   `json:"enable_ai"`
	Context  string `json:"context,omitempty"` // free text forwarded into the AI prompt
}

// Record is the comprehensive analysis of one execution record. It references
// the execution by id only; there is no live pointer back to the Result.
type Record struct {
	ID             string    `json:"id"`
	ScriptResultID string    `json:"script_result_id"`
	AnalysisType   Type      `json:"analysis_type"`
	Timestamp      time.Time `json:"timestamp"`

	Details Details `json:"details"`

	Summary         string   `json:"summary"`
	Recommendations []string `json:"recommendations"`
	NextSteps       []string `json:"next_steps"`
	Confidence      float64  `json:"confidence"` // from AI sub-analysis, else 0
}

// Details holds the sub-analyses present on a Record. Which keys are set
// depends on the requested type and whether AI was enabled.
type Details struct {
	Basic    *BasicAnalysis    `json:"basic,omitempty"`
	Detailed *DetailedAnalysis `json:"detailed,omitempty"`
	AI       *AIAnalysis       `json:"ai,omitempty"`
}

// Output classifications assigned by the basic analyzer.
const (
	OutputText    = "text"
	OutputError   = "error"
	OutputMixed   = "mixed"
	OutputLarge   = "large"
	OutputUnknown = "unknown"
)

// Performance bands assigned by the basic analyzer.
const (
	PerformanceExcellent = "excellent" // < 1s
	PerformanceGood      = "good"      // < 5s
	PerformancePoor      = "poor"      // >= 5s
)

// BasicAnalysis carries the fast numeric and boolean signals.
type BasicAnalysis struct {
	Success         bool          `json:"success"`
	ExecutionTime   time.Duration `json:"execution_time"`
	ExitCode        *int          `json:"exit_code,omitempty"`
	OutputSize      int           `json:"output_size"`
	ErrorCount      int           `json:"error_count"`
	WarningCount    int           `json:"warning_count"`
	OutputType      string        `json:"output_type"`
	Performance     string        `json:"performance"`
	HasErrors       bool          `json:"has_errors"`
	HasWarnings     bool          `json:"has_warnings"`
	IsLargeOutput   bool          `json:"is_large_output"`
	IsFastExecution bool          `json:"is_fast_execution"`
}

// PatternMatch is one keyword hit in stderr, tagged with its 1-based line.
type PatternMatch struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Line    int    `json:"line"`
}

// SecurityIssue is one sensitive-data pattern found in the combined output.
type SecurityIssue struct {
	Type     string `json:"type"`
	Detail   string `json:"detail"`
	Severity string `json:"severity"`
}

// Optimization is a heuristic improvement suggestion.
type Optimization struct {
	Type       string `json:"type"`
	Suggestion string `json:"suggestion"`
}

// ExecutionMetrics holds derived throughput figures.
type ExecutionMetrics struct {
	OutputBytes    int     `json:"output_bytes"`
	DurationMS     int64   `json:"duration_ms"`
	BytesPerSecond float64 `json:"bytes_per_second"`
}

// DetailedAnalysis carries pattern extraction over the captured streams.
type DetailedAnalysis struct {
	ErrorPatterns             []PatternMatch   `json:"error_patterns"`
	WarningPatterns           []PatternMatch   `json:"warning_patterns"`
	OutputTypes               []string         `json:"output_types"`
	OutputPatterns            []string         `json:"output_patterns"`
	SecurityIssues            []SecurityIssue  `json:"security_issues"`
	OptimizationOpportunities []Optimization   `json:"optimization_opportunities"`
	ExecutionMetrics          ExecutionMetrics `json:"execution_metrics"`
}

// Risk levels assigned by the AI analyzer.
const (
	RiskLow     = "low"
	RiskMedium  = "medium"
	RiskHigh    = "high"
	RiskUnknown = "unknown"
)

// AIAnalysis is the LLM-backed narrative insight. A degraded instance
// (Confidence 0, explanatory Insights) stands in when the backend is
// unavailable or its response cannot be parsed.
type AIAnalysis struct {
	Insights            []string `json:"insights"`
	Recommendations     []string `json:"recommendations"`
	NextSteps           []string `json:"next_steps"`
	BestPractices       []string `json:"best_practices"`
	RelatedCommands     []string `json:"related_commands"`
	RiskAssessment      string   `json:"risk_assessment"`
	Confidence          float64  `json:"confidence"`
	PerformanceAnalysis string   `json:"performance_analysis"`
	SecurityAnalysis    string   `json:"security_analysis"`
}
