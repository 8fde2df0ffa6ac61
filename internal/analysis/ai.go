package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"scriptflow/internal/executor"
	"scriptflow/internal/llm"
)

// promptOutputLimit caps how much of each stream is embedded in the prompt.
const promptOutputLimit = 4000

// AIAnalyzer produces LLM-backed narrative insight for an execution record.
// Analyze never fails: backend errors and unparseable responses degrade to a
// confidence-0 record with an explanatory insight.
type AIAnalyzer struct {
	client llm.Client
}

func NewAIAnalyzer(client llm.Client) *AIAnalyzer {
	return &AIAnalyzer{client: client}
}

// Available reports whether an LLM backend is configured.
func (a *AIAnalyzer) Available() bool {
	return a != nil && a.client != nil
}

// Analyze renders the prompt, calls the backend and parses its response.
func (a *AIAnalyzer) Analyze(ctx context.Context, res *executor.Result, extraContext string) *AIAnalysis {
	if !a.Available() {
		return degraded("AI analysis unavailable: no LLM provider configured")
	}

	prompt := buildPrompt(res, extraContext)

	text, err := a.client.GenerateText(ctx, prompt)
	if err != nil {
		log.Error().Err(err).Str("script_id", res.ID).Msg("LLM request failed")
		return degraded(fmt.Sprintf("AI analysis unavailable: %v", err))
	}

	parsed, err := ParseResponse(text)
	if err != nil {
		log.Warn().Err(err).Str("script_id", res.ID).Msg("unparseable LLM response")
		return degraded(fmt.Sprintf("AI analysis degraded: response could not be parsed (%v)", err))
	}
	return parsed
}

// degraded builds the fallback record used when the backend or parse fails.
func degraded(reason string) *AIAnalysis {
	return &AIAnalysis{
		Insights:       []string{reason},
		RiskAssessment: RiskUnknown,
		Confidence:     0,
	}
}

// buildPrompt renders the fixed analysis prompt for a record.
func buildPrompt(res *executor.Result, extraContext string) string {
	var b strings.Builder

	b.WriteString("You are an expert at analyzing shell command executions.\n\n")
	fmt.Fprintf(&b, "Command: %s\n", res.Command)
	fmt.Fprintf(&b, "Success: %t\n", res.Success)
	fmt.Fprintf(&b, "Duration: %s\n", res.Duration)
	if res.ExitCode != nil {
		fmt.Fprintf(&b, "Exit code: %d\n", *res.ExitCode)
	} else {
		b.WriteString("Exit code: none (process did not terminate normally)\n")
	}
	if res.Failure != nil {
		fmt.Fprintf(&b, "Failure: %s (%s)\n", res.Failure.Message, res.Failure.Kind)
	}

	fmt.Fprintf(&b, "\nStdout:\n%s\n", truncateForPrompt(res.Stdout))
	fmt.Fprintf(&b, "\nStderr:\n%s\n", truncateForPrompt(res.Stderr))

	if extraContext != "" {
		fmt.Fprintf(&b, "\nAdditional context from the caller:\n%s\n", extraContext)
	}

	b.WriteString(`
Analyze this execution and respond in JSON with exactly this structure:
{
  "insights": ["observation about what happened"],
  "recommendations": ["actionable improvement"],
  "next_steps": ["concrete follow-up action"],
  "best_practices": ["relevant best practice"],
  "related_commands": ["command worth knowing about"],
  "risk_assessment": "low|medium|high",
  "confidence": 0.0,
  "performance_analysis": "free text on execution performance",
  "security_analysis": "free text on security implications"
}
If you cannot respond in JSON, use "## <section name>" markdown headings with
one list item per line instead.`)

	return b.String()
}

func truncateForPrompt(s string) string {
	if s == "" {
		return "(empty)"
	}
	if len(s) <= promptOutputLimit {
		return s
	}
	return s[:promptOutputLimit] + "\n... [truncated]"
}
