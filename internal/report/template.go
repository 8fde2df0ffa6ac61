package report

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	texttemplate "text/template"
)

// CustomTemplate is a caller-supplied template variant. Content is a
// text/template body evaluated against TemplateData.
type CustomTemplate struct {
	Name    string
	Format  string
	Content string
}

// TemplateData is the evaluation context for custom templates.
type TemplateData struct {
	Result      any
	Analysis    any
	Options     Options
	ReportID    string
	GeneratedAt string
}

var templateNameRegex = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,63}$`)

type compiledTemplate struct {
	tmpl *texttemplate.Template
}

func (c *compiledTemplate) render(in input) (string, error) {
	var b strings.Builder
	data := TemplateData{
		Result:      in.Result,
		Analysis:    in.Analysis,
		Options:     in.Options,
		ReportID:    in.ReportID,
		GeneratedAt: in.GeneratedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if err := c.tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("executing custom template: %w", err)
	}
	return b.String(), nil
}

type templateRegistry struct {
	mu        sync.RWMutex
	templates map[string]*compiledTemplate // key: format "/" name
}

func newTemplateRegistry() *templateRegistry {
	return &templateRegistry{templates: make(map[string]*compiledTemplate)}
}

// register validates and compiles a custom template. Built-in names cannot be
// shadowed.
func (r *templateRegistry) register(t CustomTemplate) error {
	if !templateNameRegex.MatchString(t.Name) {
		return fmt.Errorf("invalid template name %q", t.Name)
	}
	builtin, ok := builtinTemplates[t.Format]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, t.Format)
	}
	if _, exists := builtin[t.Name]; exists {
		return fmt.Errorf("template %q is built in and cannot be replaced", t.Name)
	}
	if strings.TrimSpace(t.Content) == "" {
		return fmt.Errorf("template %q has empty content", t.Name)
	}

	tmpl, err := texttemplate.New(t.Name).Parse(t.Content)
	if err != nil {
		return fmt.Errorf("parsing template %q: %w", t.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[t.Format+"/"+t.Name] = &compiledTemplate{tmpl: tmpl}
	return nil
}

func (r *templateRegistry) get(format, name string) (*compiledTemplate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.templates[format+"/"+name]
	return c, ok
}

func (r *templateRegistry) names(format string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	prefix := format + "/"
	for key := range r.templates {
		if strings.HasPrefix(key, prefix) {
			out = append(out, strings.TrimPrefix(key, prefix))
		}
	}
	return out
}
