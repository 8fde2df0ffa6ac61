// Package report renders an execution record plus optional analysis into a
// human-readable document. Three formats share one data model; within each
// format, named template variants select the level of detail.
package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"scriptflow/internal/analysis"
	"scriptflow/internal/executor"
	"scriptflow/internal/monitor"
)

// Version is stamped into report metadata blocks.
const Version = "1.0.0"

// Report formats.
const (
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
	FormatJSON     = "json"
)

// Built-in template names. Unknown names degrade to TemplateDefault.
const (
	TemplateDefault  = "default"
	TemplateDetailed = "detailed"
	TemplateSummary  = "summary"
	TemplateSimple   = "simple"
)

// ErrUnsupportedFormat is the hard error for an unknown report format.
// Unknown template names are not errors; they fall back to the default.
var ErrUnsupportedFormat = errors.New("unsupported report format")

// Options configure one GenerateReport call.
type Options struct {
	Format                 string         `json:"format"`
	Template               string         `json:"template,omitempty"`
	OutputPath             string         `json:"output_path,omitempty"`
	IncludeDetails         bool           `json:"include_details"`
	IncludeAnalysis        bool           `json:"include_analysis"`
	IncludeRecommendations bool           `json:"include_recommendations"`
	IncludeNextSteps       bool           `json:"include_next_steps"`
	CustomStyles           string         `json:"custom_styles,omitempty"` // HTML only
	Metadata               map[string]any `json:"metadata,omitempty"`      // echoed into the footer
}

// DefaultOptions returns the options most callers want: markdown with
// everything included.
func DefaultOptions() Options {
	return Options{
		Format:                 FormatMarkdown,
		Template:               TemplateDefault,
		IncludeDetails:         true,
		IncludeAnalysis:        true,
		IncludeRecommendations: true,
		IncludeNextSteps:       true,
	}
}

// input is the resolved data a renderer works from.
type input struct {
	Result      *executor.Result
	Analysis    *analysis.Record // may be nil
	Options     Options
	ReportID    string
	GeneratedAt time.Time
}

// renderFn turns resolved input into a serialized report.
type renderFn func(in input) (string, error)

// Engine dispatches to a renderer by format, then to a template variant by
// name within the format.
type Engine struct {
	templates *templateRegistry
	metrics   *monitor.Metrics // optional
}

func NewEngine() *Engine {
	return &Engine{templates: newTemplateRegistry()}
}

// WithMetrics attaches a Prometheus metrics set and returns the engine.
func (e *Engine) WithMetrics(m *monitor.Metrics) *Engine {
	e.metrics = m
	return e
}

// GenerateReport renders the record (and optional analysis) into a string.
// An unknown format is a hard error; an unknown template name degrades to the
// format's default with a warning. If Options.OutputPath is set the rendered
// report is also persisted.
func (e *Engine) GenerateReport(res *executor.Result, an *analysis.Record, opts Options) (string, error) {
	if res == nil {
		return "", fmt.Errorf("nil execution record")
	}

	render, err := e.resolve(opts.Format, opts.Template)
	if err != nil {
		return "", err
	}

	in := input{
		Result:      res,
		Analysis:    an,
		Options:     opts,
		ReportID:    uuid.New().String(),
		GeneratedAt: time.Now(),
	}

	out, err := render(in)
	if err != nil {
		log.Error().Err(err).Str("script_id", res.ID).Str("format", opts.Format).Msg("report rendering failed")
		return "", err
	}

	log.Info().
		Str("report_id", in.ReportID).
		Str("script_id", res.ID).
		Str("format", opts.Format).
		Int("bytes", len(out)).
		Msg("report generated")

	if e.metrics != nil {
		e.metrics.RecordReport(opts.Format)
	}

	if opts.OutputPath != "" {
		if _, err := SaveReport(out, opts.OutputPath, opts.Format); err != nil {
			return out, err
		}
	}
	return out, nil
}

// resolve picks the render function for a format/template pair.
func (e *Engine) resolve(format, template string) (renderFn, error) {
	if template == "" {
		template = TemplateDefault
	}

	if custom, ok := e.templates.get(format, template); ok {
		return custom.render, nil
	}

	builtin, ok := builtinTemplates[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	render, ok := builtin[template]
	if !ok {
		log.Warn().
			Str("format", format).
			Str("template", template).
			Msg("unknown template, falling back to default")
		render = builtin[TemplateDefault]
	}
	return render, nil
}

// builtinTemplates maps format -> template name -> renderer.
var builtinTemplates = map[string]map[string]renderFn{
	FormatMarkdown: {
		TemplateDefault:  renderMarkdownDefault,
		TemplateDetailed: renderMarkdownDetailed,
		TemplateSummary:  renderMarkdownSummary,
		TemplateSimple:   renderMarkdownSimple,
	},
	FormatHTML: {
		TemplateDefault: renderHTMLDefault,
		TemplateSimple:  renderHTMLSimple,
	},
	FormatJSON: {
		TemplateDefault: renderJSON,
	},
}

// GetSupportedFormats lists the formats the engine can render.
func (e *Engine) GetSupportedFormats() []string {
	return []string{FormatMarkdown, FormatHTML, FormatJSON}
}

// GetSupportedTemplates lists the template names available for a format,
// built-in plus registered custom ones.
func (e *Engine) GetSupportedTemplates(format string) []string {
	builtin, ok := builtinTemplates[format]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	names = append(names, e.templates.names(format)...)
	return names
}

// RegisterTemplate adds a caller-supplied template after validation.
func (e *Engine) RegisterTemplate(t CustomTemplate) error {
	return e.templates.register(t)
}

// extensions maps formats to their file extensions for SaveReport.
var extensions = map[string]string{
	FormatMarkdown: ".md",
	FormatHTML:     ".html",
	FormatJSON:     ".json",
}

// FinalPath resolves the on-disk path SaveReport will write for the given
// path and format: unchanged when the path already has an extension, the
// format's extension appended otherwise.
func FinalPath(path, format string) string {
	if filepath.Ext(path) == "" {
		if ext, ok := extensions[format]; ok {
			return path + ext
		}
	}
	return path
}

// SaveReport writes a rendered report to path, creating the parent directory
// and appending a format-appropriate extension when the path has none. It
// returns the path actually written. Write failures are logged and returned,
// never swallowed.
func SaveReport(report, path, format string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty report path")
	}
	path = FinalPath(path, format)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Error().Err(err).Str("path", path).Msg("creating report directory failed")
			return "", fmt.Errorf("creating report directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(report), 0o644); err != nil { // #nosec G306 -- reports are shareable artifacts
		log.Error().Err(err).Str("path", path).Msg("writing report failed")
		return "", fmt.Errorf("writing report: %w", err)
	}

	log.Info().Str("path", path).Int("bytes", len(report)).Msg("report saved")
	return path, nil
}
