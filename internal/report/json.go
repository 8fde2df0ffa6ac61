package report

import (
	"encoding/json"
	"time"

	"scriptflow/internal/analysis"
)

// Document is the stable top-level shape of a JSON report. Sections gated by
// options are nulled out rather than omitted, so consumers see the same
// schema regardless of flags.
type Document struct {
	Metadata        DocumentMetadata `json:"metadata"`
	ScriptResult    scriptResultJSON `json:"scriptResult"`
	Analysis        *analysis.Record `json:"analysis"`
	Recommendations []string         `json:"recommendations"`
	NextSteps       []string         `json:"nextSteps"`
	CustomMetadata  map[string]any   `json:"customMetadata"`
}

// DocumentMetadata identifies one generated report.
type DocumentMetadata struct {
	GeneratedAt time.Time `json:"generatedAt"`
	ReportID    string    `json:"reportId"`
	ScriptID    string    `json:"scriptId"`
	Format      string    `json:"format"`
	Version     string    `json:"version"`
}

// scriptResultJSON mirrors executor.Result with nullable output streams so
// IncludeDetails=false nulls them instead of dropping the keys.
type scriptResultJSON struct {
	ID               string         `json:"id"`
	Command          string         `json:"command"`
	WorkingDirectory string         `json:"working_directory"`
	StartTime        time.Time      `json:"start_time"`
	EndTime          time.Time      `json:"end_time"`
	DurationMS       int64          `json:"duration_ms"`
	ExitCode         *int           `json:"exit_code"`
	Stdout           *string        `json:"stdout"`
	Stderr           *string        `json:"stderr"`
	Success          bool           `json:"success"`
	Error            any            `json:"error"`
	Metadata         map[string]any `json:"metadata"`
}

func renderJSON(in input) (string, error) {
	res := in.Result

	sr := scriptResultJSON{
		ID:               res.ID,
		Command:          res.Command,
		WorkingDirectory: res.WorkingDirectory,
		StartTime:        res.StartTime,
		EndTime:          res.EndTime,
		DurationMS:       res.Duration.Milliseconds(),
		ExitCode:         res.ExitCode,
		Success:          res.Success,
		Metadata:         res.Metadata,
	}
	if res.Failure != nil {
		sr.Error = res.Failure
	}
	if in.Options.IncludeDetails {
		sr.Stdout = &res.Stdout
		sr.Stderr = &res.Stderr
	}

	doc := Document{
		Metadata: DocumentMetadata{
			GeneratedAt: in.GeneratedAt,
			ReportID:    in.ReportID,
			ScriptID:    res.ID,
			Format:      FormatJSON,
			Version:     Version,
		},
		ScriptResult:   sr,
		CustomMetadata: in.Options.Metadata,
	}
	if in.Options.IncludeAnalysis {
		doc.Analysis = in.Analysis
	}
	if in.Analysis != nil {
		if in.Options.IncludeRecommendations {
			doc.Recommendations = in.Analysis.Recommendations
		}
		if in.Options.IncludeNextSteps {
			doc.NextSteps = in.Analysis.NextSteps
		}
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}
