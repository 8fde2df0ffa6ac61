package analysis

import (
	"strings"
	"time"

	"scriptflow/internal/executor"
)

// Classification thresholds. LargeOutputThreshold also gates the "large"
// output type, which wins over the content-based classifications.
const (
	LargeOutputThreshold = 50_000
	fastThreshold        = 1 * time.Second
	goodThreshold        = 5 * time.Second
)

// Keyword sets counted against stderr only, case-insensitive.
var (
	errorKeywords   = []string{"error:", "exception:", "failed", "fatal", "critical"}
	warningKeywords = []string{"warning:", "warn", "deprecated"}
)

// analyzeBasic computes the numeric and boolean signals for a record.
func analyzeBasic(res *executor.Result) *BasicAnalysis {
	outputSize := res.OutputSize()
	stderrLower := strings.ToLower(res.Stderr)

	errorCount := countKeywords(stderrLower, errorKeywords)
	warningCount := countKeywords(stderrLower, warningKeywords)

	b := &BasicAnalysis{
		Success:         res.Success,
		ExecutionTime:   res.Duration,
		ExitCode:        res.ExitCode,
		OutputSize:      outputSize,
		ErrorCount:      errorCount,
		WarningCount:    warningCount,
		OutputType:      classifyOutput(res, outputSize),
		Performance:     classifyPerformance(res.Duration),
		HasErrors:       errorCount > 0,
		HasWarnings:     warningCount > 0,
		IsLargeOutput:   outputSize > LargeOutputThreshold,
		IsFastExecution: res.Duration < fastThreshold,
	}
	return b
}

func countKeywords(lower string, keywords []string) int {
	count := 0
	for _, kw := range keywords {
		count += strings.Count(lower, kw)
	}
	return count
}

// classifyOutput resolves the output type. "large" takes precedence over the
// content-based kinds.
func classifyOutput(res *executor.Result, outputSize int) string {
	switch {
	case outputSize > LargeOutputThreshold:
		return OutputLarge
	case res.Stdout != "" && res.Stderr != "":
		return OutputMixed
	case res.Stderr != "":
		return OutputError
	case res.Stdout != "":
		return OutputText
	default:
		return OutputUnknown
	}
}

func classifyPerformance(d time.Duration) string {
	switch {
	case d < fastThreshold:
		return PerformanceExcellent
	case d < goodThreshold:
		return PerformanceGood
	default:
		return PerformancePoor
	}
}
