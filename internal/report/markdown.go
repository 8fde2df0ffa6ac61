package report

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// maxInlineOutput caps how much raw stdout/stderr a rendered report inlines.
const maxInlineOutput = 2000

func renderMarkdownDefault(in input) (string, error) {
	return markdownDocument(in), nil
}

// renderMarkdownDetailed is the default layout with the raw output and
// analysis sections forced on.
func renderMarkdownDetailed(in input) (string, error) {
	in.Options.IncludeDetails = true
	in.Options.IncludeAnalysis = true
	in.Options.IncludeRecommendations = true
	in.Options.IncludeNextSteps = true
	return markdownDocument(in), nil
}

func renderMarkdownSummary(in input) (string, error) {
	var b strings.Builder
	res := in.Result

	fmt.Fprintf(&b, "# Execution Summary: %s\n\n", res.ID)
	fmt.Fprintf(&b, "- **Command**: `%s`\n", res.Command)
	fmt.Fprintf(&b, "- **Success**: %t\n", res.Success)
	fmt.Fprintf(&b, "- **Duration**: %s\n", res.Duration.Round(time.Millisecond))
	if res.ExitCode != nil {
		fmt.Fprintf(&b, "- **Exit code**: %d\n", *res.ExitCode)
	}
	if in.Analysis != nil && in.Analysis.Summary != "" {
		fmt.Fprintf(&b, "\n%s\n", in.Analysis.Summary)
	}
	markdownFooter(&b, in)
	return b.String(), nil
}

func renderMarkdownSimple(in input) (string, error) {
	res := in.Result
	exit := "none"
	if res.ExitCode != nil {
		exit = fmt.Sprintf("%d", *res.ExitCode)
	}
	return fmt.Sprintf("%s: `%s` — success=%t exit=%s duration=%s\n",
		res.ID, res.Command, res.Success, exit, res.Duration.Round(time.Millisecond)), nil
}

func markdownDocument(in input) string {
	var b strings.Builder
	res := in.Result

	fmt.Fprintf(&b, "# Script Execution Report: %s\n\n", res.ID)
	fmt.Fprintf(&b, "Generated at %s\n\n", in.GeneratedAt.Format(time.RFC3339))

	b.WriteString("## Execution Summary\n\n")
	b.WriteString("| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Command | `%s` |\n", res.Command)
	fmt.Fprintf(&b, "| Working directory | %s |\n", res.WorkingDirectory)
	fmt.Fprintf(&b, "| Started | %s |\n", res.StartTime.Format(time.RFC3339))
	fmt.Fprintf(&b, "| Finished | %s |\n", res.EndTime.Format(time.RFC3339))
	fmt.Fprintf(&b, "| Duration | %s |\n", res.Duration.Round(time.Millisecond))
	if res.ExitCode != nil {
		fmt.Fprintf(&b, "| Exit code | %d |\n", *res.ExitCode)
	} else {
		b.WriteString("| Exit code | none |\n")
	}
	fmt.Fprintf(&b, "| Success | %t |\n", res.Success)
	if res.Failure != nil {
		fmt.Fprintf(&b, "| Error | %s (%s) |\n", res.Failure.Message, res.Failure.Kind)
	}

	if in.Options.IncludeAnalysis && in.Analysis != nil {
		markdownAnalysis(&b, in)
	}
	if in.Options.IncludeRecommendations && in.Analysis != nil && len(in.Analysis.Recommendations) > 0 {
		b.WriteString("\n## Recommendations\n\n")
		for _, r := range in.Analysis.Recommendations {
			fmt.Fprintf(&b, "- %s\n", r)
		}
	}
	if in.Options.IncludeNextSteps && in.Analysis != nil && len(in.Analysis.NextSteps) > 0 {
		b.WriteString("\n## Next Steps\n\n")
		for _, s := range in.Analysis.NextSteps {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}
	if in.Options.IncludeDetails {
		markdownRawOutput(&b, in)
	}

	markdownFooter(&b, in)
	return b.String()
}

func markdownAnalysis(b *strings.Builder, in input) {
	an := in.Analysis

	fmt.Fprintf(b, "\n## Analysis (%s)\n\n", an.ID)
	if an.Summary != "" {
		fmt.Fprintf(b, "%s\n", an.Summary)
	}

	if basic := an.Details.Basic; basic != nil {
		b.WriteString("\n### Basic\n\n")
		fmt.Fprintf(b, "- Output size: %d bytes (%s)\n", basic.OutputSize, basic.OutputType)
		fmt.Fprintf(b, "- Performance: %s\n", basic.Performance)
		fmt.Fprintf(b, "- Errors: %d, warnings: %d\n", basic.ErrorCount, basic.WarningCount)
	}

	if det := an.Details.Detailed; det != nil {
		b.WriteString("\n### Detailed\n\n")
		if len(det.ErrorPatterns) > 0 {
			b.WriteString("Error patterns:\n\n")
			for _, p := range det.ErrorPatterns {
				fmt.Fprintf(b, "- line %d [%s]: %s\n", p.Line, p.Type, p.Message)
			}
		}
		if len(det.WarningPatterns) > 0 {
			b.WriteString("\nWarning patterns:\n\n")
			for _, p := range det.WarningPatterns {
				fmt.Fprintf(b, "- line %d [%s]: %s\n", p.Line, p.Type, p.Message)
			}
		}
		if len(det.SecurityIssues) > 0 {
			b.WriteString("\nSecurity issues:\n\n")
			for _, s := range det.SecurityIssues {
				fmt.Fprintf(b, "- **%s** (%s): %s\n", s.Type, s.Severity, s.Detail)
			}
		}
		if len(det.OptimizationOpportunities) > 0 {
			b.WriteString("\nOptimization opportunities:\n\n")
			for _, o := range det.OptimizationOpportunities {
				fmt.Fprintf(b, "- [%s] %s\n", o.Type, o.Suggestion)
			}
		}
		fmt.Fprintf(b, "\nThroughput: %.1f bytes/s over %d ms\n",
			det.ExecutionMetrics.BytesPerSecond, det.ExecutionMetrics.DurationMS)
	}

	if ai := an.Details.AI; ai != nil {
		b.WriteString("\n### AI Insights\n\n")
		fmt.Fprintf(b, "Risk: %s, confidence: %.2f\n\n", ai.RiskAssessment, ai.Confidence)
		for _, insight := range ai.Insights {
			fmt.Fprintf(b, "- %s\n", insight)
		}
		if ai.PerformanceAnalysis != "" {
			fmt.Fprintf(b, "\n**Performance**: %s\n", ai.PerformanceAnalysis)
		}
		if ai.SecurityAnalysis != "" {
			fmt.Fprintf(b, "\n**Security**: %s\n", ai.SecurityAnalysis)
		}
		if len(ai.RelatedCommands) > 0 {
			b.WriteString("\nRelated commands:\n\n")
			for _, c := range ai.RelatedCommands {
				fmt.Fprintf(b, "- `%s`\n", c)
			}
		}
	}
}

func markdownRawOutput(b *strings.Builder, in input) {
	res := in.Result

	b.WriteString("\n## Output\n\n")
	b.WriteString("### Stdout\n\n```\n")
	b.WriteString(truncateForDisplay(res.Stdout))
	b.WriteString("\n```\n\n### Stderr\n\n```\n")
	b.WriteString(truncateForDisplay(res.Stderr))
	b.WriteString("\n```\n")
}

func markdownFooter(b *strings.Builder, in input) {
	fmt.Fprintf(b, "\n---\n\nReport %s · format %s · generated %s\n",
		in.ReportID, in.Options.Format, in.GeneratedAt.Format(time.RFC3339))

	if len(in.Options.Metadata) > 0 {
		keys := make([]string, 0, len(in.Options.Metadata))
		for k := range in.Options.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(b, "- %s: %v\n", k, in.Options.Metadata[k])
		}
	}
}

func truncateForDisplay(s string) string {
	if s == "" {
		return "(empty)"
	}
	if len(s) <= maxInlineOutput {
		return s
	}
	return s[:maxInlineOutput] + "\n... [output truncated for display]"
}
