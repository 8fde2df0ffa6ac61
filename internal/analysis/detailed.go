package analysis

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"scriptflow/internal/executor"
)

// Optimization heuristic thresholds.
const (
	slowCommandThreshold = 5 * time.Second
	bulkyOutputThreshold = 10_000
)

// outputShapePatterns detect the rough structure of stdout.
var outputShapePatterns = []struct {
	name  string
	regex *regexp.Regexp
}{
	{"timestamped-log", regexp.MustCompile(`(?m)^\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}`)},
	{"file-listing", regexp.MustCompile(`(?m)^[-dlbcps][rwxsStT-]{9}\s`)},
	{"tabular", regexp.MustCompile(`(?m)^[^\t\n]+\t[^\t\n]+`)},
}

// analyzeDetailed runs pattern extraction over the captured streams.
func analyzeDetailed(res *executor.Result) *DetailedAnalysis {
	d := &DetailedAnalysis{
		ErrorPatterns:             extractPatterns(res.Stderr, errorKeywords),
		WarningPatterns:           extractPatterns(res.Stderr, warningKeywords),
		SecurityIssues:            detectSecurityIssues(res.Stdout + "\n" + res.Stderr),
		OutputTypes:               detectOutputTypes(res.Stdout),
		OutputPatterns:            detectOutputPatterns(res.Stdout),
		OptimizationOpportunities: findOptimizations(res),
		ExecutionMetrics:          computeMetrics(res),
	}
	return d
}

// extractPatterns scans stderr line-oriented, tagging each keyword hit with
// its 1-based line number. A line matching several keywords yields one entry
// per keyword.
func extractPatterns(stderr string, keywords []string) []PatternMatch {
	var matches []PatternMatch
	if stderr == "" {
		return matches
	}

	lines := strings.Split(stderr, "\n")
	for i, line := range lines {
		lower := strings.ToLower(line)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				matches = append(matches, PatternMatch{
					Type:    strings.TrimSuffix(kw, ":"),
					Message: strings.TrimSpace(line),
					Line:    i + 1,
				})
			}
		}
	}
	return matches
}

// detectOutputTypes classifies the overall shape of stdout.
func detectOutputTypes(stdout string) []string {
	var types []string
	trimmed := strings.TrimSpace(stdout)
	if trimmed == "" {
		return types
	}

	if (strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}")) ||
		(strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]")) {
		types = append(types, "json")
	}
	if strings.Contains(trimmed, "\n") {
		types = append(types, "multiline")
	} else {
		types = append(types, "single-line")
	}
	return types
}

// detectOutputPatterns applies the structural regexes to stdout. Each pattern
// is reported at most once.
func detectOutputPatterns(stdout string) []string {
	var patterns []string
	if stdout == "" {
		return patterns
	}
	for _, p := range outputShapePatterns {
		if p.regex.MatchString(stdout) {
			patterns = append(patterns, p.name)
		}
	}
	return patterns
}

// findOptimizations applies the duration and output-size threshold rules.
func findOptimizations(res *executor.Result) []Optimization {
	var opts []Optimization

	if res.Duration > slowCommandThreshold {
		opts = append(opts, Optimization{
			Type: "slow-execution",
			Suggestion: fmt.Sprintf(
				"command took %s; consider optimizing it or running it asynchronously",
				res.Duration.Round(time.Millisecond)),
		})
	}
	if res.OutputSize() > bulkyOutputThreshold {
		opts = append(opts, Optimization{
			Type: "bulky-output",
			Suggestion: fmt.Sprintf(
				"command produced %d bytes of output; consider filtering or redirecting to a file",
				res.OutputSize()),
		})
	}
	return opts
}

// computeMetrics derives output throughput from the record.
func computeMetrics(res *executor.Result) ExecutionMetrics {
	m := ExecutionMetrics{
		OutputBytes: res.OutputSize(),
		DurationMS:  res.Duration.Milliseconds(),
	}
	if secs := res.Duration.Seconds(); secs > 0 {
		m.BytesPerSecond = float64(m.OutputBytes) / secs
	}
	return m
}
