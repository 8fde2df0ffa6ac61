// Package analysis classifies and summarizes execution records through three
// layered analyzers: basic (numeric/boolean signals), detailed (pattern
// extraction) and AI (LLM-backed narrative insight).
package analysis

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"scriptflow/internal/executor"
	"scriptflow/internal/monitor"
	"scriptflow/internal/store"
)

// Engine composes the analyzers and keeps completed Records in an injected
// store keyed by generated analysis ids.
type Engine struct {
	analyses store.Store[*Record]
	ai       *AIAnalyzer
	metrics  *monitor.Metrics // optional
	counter  atomic.Int64
}

// NewEngine creates an analysis engine. ai may wrap a nil client; AI analyses
// then degrade instead of failing.
func NewEngine(analyses store.Store[*Record], ai *AIAnalyzer) *Engine {
	return &Engine{analyses: analyses, ai: ai}
}

// WithMetrics attaches a Prometheus metrics set and returns the engine.
func (e *Engine) WithMetrics(m *monitor.Metrics) *Engine {
	e.metrics = m
	return e
}

func (e *Engine) nextID() string {
	return fmt.Sprintf("analysis_%03d", e.counter.Add(1))
}

// AnalyzeScriptResult analyzes a completed execution record.
//
// Basic analysis always runs. Detailed runs for the detailed and comprehensive
// types. AI runs when enabled and the type is not detailed; detailed-only is
// the fast, no-network path. The call never fails on AI backend problems;
// those degrade inside the AI sub-analysis.
func (e *Engine) AnalyzeScriptResult(ctx context.Context, res *executor.Result, opts Options) (*Record, error) {
	if res == nil {
		return nil, fmt.Errorf("nil execution record")
	}
	if opts.Type == "" {
		opts.Type = TypeBasic
	}
	if !opts.Type.Valid() {
		return nil, fmt.Errorf("unknown analysis type %q", opts.Type)
	}

	rec := &Record{
		ID:             e.nextID(),
		ScriptResultID: res.ID,
		AnalysisType:   opts.Type,
		Timestamp:      time.Now(),
	}

	rec.Details.Basic = analyzeBasic(res)

	if opts.Type == TypeDetailed || opts.Type == TypeComprehensive {
		rec.Details.Detailed = analyzeDetailed(res)
	}

	if opts.EnableAI && opts.Type != TypeDetailed {
		rec.Details.AI = e.ai.Analyze(ctx, res, opts.Context)
	}

	rec.Summary = composeSummary(res, rec.Details)
	rec.Recommendations = composeRecommendations(rec.Details)
	rec.NextSteps = composeNextSteps(res, rec.Details)
	if rec.Details.AI != nil {
		rec.Confidence = rec.Details.AI.Confidence
	}

	e.analyses.Put(rec.ID, rec)

	log.Info().
		Str("analysis_id", rec.ID).
		Str("script_id", res.ID).
		Str("type", string(opts.Type)).
		Float64("confidence", rec.Confidence).
		Msg("analysis completed")

	if e.metrics != nil {
		e.metrics.RecordAnalysis(string(opts.Type))
	}
	return rec, nil
}

// composeSummary derives the one-line natural-language summary. Deterministic
// given the sub-analyses.
func composeSummary(res *executor.Result, d Details) string {
	var verdict string
	switch {
	case res.Failure != nil && res.Failure.Kind == executor.FailureTimeout:
		verdict = "timed out"
	case res.Failure != nil:
		verdict = "failed to run"
	case res.Success:
		verdict = "succeeded"
	default:
		verdict = "failed"
	}

	summary := fmt.Sprintf("Command %s in %s", verdict, res.Duration.Round(time.Millisecond))
	if res.ExitCode != nil {
		summary += fmt.Sprintf(" (exit code %d)", *res.ExitCode)
	}
	summary += "."

	if d.Basic != nil && (d.Basic.ErrorCount > 0 || d.Basic.WarningCount > 0) {
		summary += fmt.Sprintf(" Stderr contains %d error and %d warning keyword(s).",
			d.Basic.ErrorCount, d.Basic.WarningCount)
	}
	if d.Detailed != nil && len(d.Detailed.SecurityIssues) > 0 {
		summary += fmt.Sprintf(" %d potential security issue(s) detected in output.",
			len(d.Detailed.SecurityIssues))
	}
	return summary
}

// composeRecommendations concatenates the fixed rule-based suggestions with
// any AI-supplied ones, rule-based first.
func composeRecommendations(d Details) []string {
	var recs []string

	if b := d.Basic; b != nil {
		if !b.Success && b.ExitCode != nil && *b.ExitCode != 0 {
			recs = append(recs, fmt.Sprintf(
				"Command exited with code %d; investigate the error message in stderr", *b.ExitCode))
		}
		if b.Performance == PerformancePoor {
			recs = append(recs, "Execution was slow; consider optimizing the command or raising the timeout")
		}
		if b.IsLargeOutput {
			recs = append(recs, "Output is very large; consider filtering it or writing it to a file")
		}
	}
	if det := d.Detailed; det != nil && len(det.SecurityIssues) > 0 {
		recs = append(recs, "Security issues found in output; redact sensitive values before sharing")
	}
	if ai := d.AI; ai != nil {
		recs = append(recs, ai.Recommendations...)
	}
	return recs
}

// composeNextSteps mirrors the recommendation composition for follow-ups.
func composeNextSteps(res *executor.Result, d Details) []string {
	var steps []string

	switch {
	case res.Failure != nil && res.Failure.Kind == executor.FailureTimeout:
		steps = append(steps, "Re-run with a longer timeout or break the command into smaller steps")
	case res.Failure != nil:
		steps = append(steps, "Verify the executable exists and is on PATH, then re-run")
	case !res.Success:
		steps = append(steps, "Re-run the command with verbose output to narrow down the failure")
	}
	if d.Basic != nil && d.Basic.HasWarnings {
		steps = append(steps, "Review the warnings in stderr; they may hide future failures")
	}
	if ai := d.AI; ai != nil {
		steps = append(steps, ai.NextSteps...)
	}
	return steps
}

// GetAnalysis returns a stored analysis by id.
func (e *Engine) GetAnalysis(id string) (*Record, error) {
	return e.analyses.Get(id)
}

// GetAllAnalyses returns all stored analyses in creation order.
func (e *Engine) GetAllAnalyses() []*Record {
	return e.analyses.List()
}

// DeleteAnalysis removes an analysis from the registry.
func (e *Engine) DeleteAnalysis(id string) bool {
	return e.analyses.Delete(id)
}

// ClearAnalyses drops all stored analyses.
func (e *Engine) ClearAnalyses() {
	e.analyses.Clear()
}

// SaveAnalysis writes a record into the registry under its own id, assigning
// one if the record has none.
func (e *Engine) SaveAnalysis(rec *Record) {
	if rec.ID == "" {
		rec.ID = e.nextID()
	}
	e.analyses.Put(rec.ID, rec)
}
