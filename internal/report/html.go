package report

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"
)

const baseStylesheet = `body { font-family: -apple-system, sans-serif; margin: 2rem auto; max-width: 60rem; color: #1a1a1a; }
h1, h2, h3 { color: #0b3d91; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ddd; padding: 0.4rem 0.6rem; text-align: left; }
pre { background: #f5f5f5; padding: 1rem; overflow-x: auto; border-radius: 4px; }
.success { color: #1a7f37; } .failure { color: #b91c1c; }
footer { margin-top: 2rem; color: #666; font-size: 0.85rem; }`

func renderHTMLDefault(in input) (string, error) {
	var b strings.Builder
	res := in.Result

	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>Script Execution Report: %s</title>\n", html.EscapeString(res.ID))
	b.WriteString("<style>\n" + baseStylesheet + "\n")
	if in.Options.CustomStyles != "" {
		// Caller overrides append after the base rules so they win the cascade.
		b.WriteString(in.Options.CustomStyles + "\n")
	}
	b.WriteString("</style>\n</head>\n<body>\n")

	fmt.Fprintf(&b, "<h1>Script Execution Report: %s</h1>\n", html.EscapeString(res.ID))

	b.WriteString("<h2>Execution Summary</h2>\n<table>\n")
	htmlRow(&b, "Command", "<code>"+html.EscapeString(res.Command)+"</code>")
	htmlRow(&b, "Working directory", html.EscapeString(res.WorkingDirectory))
	htmlRow(&b, "Started", res.StartTime.Format(time.RFC3339))
	htmlRow(&b, "Finished", res.EndTime.Format(time.RFC3339))
	htmlRow(&b, "Duration", res.Duration.Round(time.Millisecond).String())
	if res.ExitCode != nil {
		htmlRow(&b, "Exit code", fmt.Sprintf("%d", *res.ExitCode))
	} else {
		htmlRow(&b, "Exit code", "none")
	}
	if res.Success {
		htmlRow(&b, "Success", `<span class="success">true</span>`)
	} else {
		htmlRow(&b, "Success", `<span class="failure">false</span>`)
	}
	if res.Failure != nil {
		htmlRow(&b, "Error", html.EscapeString(res.Failure.Message)+" ("+html.EscapeString(res.Failure.Kind)+")")
	}
	b.WriteString("</table>\n")

	if in.Options.IncludeAnalysis && in.Analysis != nil {
		htmlAnalysis(&b, in)
	}
	if in.Options.IncludeRecommendations && in.Analysis != nil && len(in.Analysis.Recommendations) > 0 {
		b.WriteString("<h2>Recommendations</h2>\n")
		htmlList(&b, in.Analysis.Recommendations)
	}
	if in.Options.IncludeNextSteps && in.Analysis != nil && len(in.Analysis.NextSteps) > 0 {
		b.WriteString("<h2>Next Steps</h2>\n")
		htmlList(&b, in.Analysis.NextSteps)
	}
	if in.Options.IncludeDetails {
		b.WriteString("<h2>Output</h2>\n<h3>Stdout</h3>\n<pre>")
		b.WriteString(html.EscapeString(truncateForDisplay(res.Stdout)))
		b.WriteString("</pre>\n<h3>Stderr</h3>\n<pre>")
		b.WriteString(html.EscapeString(truncateForDisplay(res.Stderr)))
		b.WriteString("</pre>\n")
	}

	htmlFooter(&b, in)
	b.WriteString("</body>\n</html>\n")
	return b.String(), nil
}

func renderHTMLSimple(in input) (string, error) {
	res := in.Result
	exit := "none"
	if res.ExitCode != nil {
		exit = fmt.Sprintf("%d", *res.ExitCode)
	}
	return fmt.Sprintf(
		"<!DOCTYPE html>\n<html><body><p><strong>%s</strong>: <code>%s</code> — success=%t exit=%s duration=%s</p></body></html>\n",
		html.EscapeString(res.ID), html.EscapeString(res.Command),
		res.Success, exit, res.Duration.Round(time.Millisecond)), nil
}

func htmlAnalysis(b *strings.Builder, in input) {
	an := in.Analysis

	fmt.Fprintf(b, "<h2>Analysis (%s)</h2>\n", html.EscapeString(an.ID))
	if an.Summary != "" {
		fmt.Fprintf(b, "<p>%s</p>\n", html.EscapeString(an.Summary))
	}

	if basic := an.Details.Basic; basic != nil {
		b.WriteString("<h3>Basic</h3>\n<table>\n")
		htmlRow(b, "Output size", fmt.Sprintf("%d bytes (%s)", basic.OutputSize, basic.OutputType))
		htmlRow(b, "Performance", basic.Performance)
		htmlRow(b, "Errors / warnings", fmt.Sprintf("%d / %d", basic.ErrorCount, basic.WarningCount))
		b.WriteString("</table>\n")
	}

	if det := an.Details.Detailed; det != nil {
		b.WriteString("<h3>Detailed</h3>\n")
		if len(det.ErrorPatterns) > 0 {
			b.WriteString("<h4>Error patterns</h4>\n<ul>\n")
			for _, p := range det.ErrorPatterns {
				fmt.Fprintf(b, "<li>line %d [%s]: %s</li>\n", p.Line, html.EscapeString(p.Type), html.EscapeString(p.Message))
			}
			b.WriteString("</ul>\n")
		}
		if len(det.WarningPatterns) > 0 {
			b.WriteString("<h4>Warning patterns</h4>\n<ul>\n")
			for _, p := range det.WarningPatterns {
				fmt.Fprintf(b, "<li>line %d [%s]: %s</li>\n", p.Line, html.EscapeString(p.Type), html.EscapeString(p.Message))
			}
			b.WriteString("</ul>\n")
		}
		if len(det.SecurityIssues) > 0 {
			b.WriteString("<h4>Security issues</h4>\n<ul>\n")
			for _, s := range det.SecurityIssues {
				fmt.Fprintf(b, "<li><strong>%s</strong> (%s): %s</li>\n",
					html.EscapeString(s.Type), html.EscapeString(s.Severity), html.EscapeString(s.Detail))
			}
			b.WriteString("</ul>\n")
		}
	}

	if ai := an.Details.AI; ai != nil {
		b.WriteString("<h3>AI Insights</h3>\n")
		fmt.Fprintf(b, "<p>Risk: %s, confidence: %.2f</p>\n", html.EscapeString(ai.RiskAssessment), ai.Confidence)
		htmlList(b, ai.Insights)
		if ai.PerformanceAnalysis != "" {
			fmt.Fprintf(b, "<p><strong>Performance:</strong> %s</p>\n", html.EscapeString(ai.PerformanceAnalysis))
		}
		if ai.SecurityAnalysis != "" {
			fmt.Fprintf(b, "<p><strong>Security:</strong> %s</p>\n", html.EscapeString(ai.SecurityAnalysis))
		}
	}
}

func htmlRow(b *strings.Builder, key, valueHTML string) {
	fmt.Fprintf(b, "<tr><th>%s</th><td>%s</td></tr>\n", html.EscapeString(key), valueHTML)
}

func htmlList(b *strings.Builder, items []string) {
	b.WriteString("<ul>\n")
	for _, item := range items {
		fmt.Fprintf(b, "<li>%s</li>\n", html.EscapeString(item))
	}
	b.WriteString("</ul>\n")
}

func htmlFooter(b *strings.Builder, in input) {
	fmt.Fprintf(b, "<footer>Report %s · format %s · generated %s",
		html.EscapeString(in.ReportID), html.EscapeString(in.Options.Format),
		in.GeneratedAt.Format(time.RFC3339))

	if len(in.Options.Metadata) > 0 {
		keys := make([]string, 0, len(in.Options.Metadata))
		for k := range in.Options.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("<ul>\n")
		for _, k := range keys {
			fmt.Fprintf(b, "<li>%s: %s</li>\n",
				html.EscapeString(k), html.EscapeString(fmt.Sprintf("%v", in.Options.Metadata[k])))
		}
		b.WriteString("</ul>\n")
	}
	b.WriteString("</footer>\n")
}
