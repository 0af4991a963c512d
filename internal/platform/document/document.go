// Package document renders standalone printable HTML documents (invoices,
// prescriptions) from plain record data.
package document

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/practice/practice/internal/platform/form"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

var (
	notesPolicyOnce sync.Once
	notesPolicy     *bluemonday.Policy
)

func notesSanitizer() *bluemonday.Policy {
	notesPolicyOnce.Do(func() {
		p := bluemonday.StrictPolicy()
		p.AllowElements("b", "strong", "i", "em", "u", "p", "br", "ul", "ol", "li")
		notesPolicy = p
	})
	return notesPolicy
}

// SanitizeNotes strips every tag except basic formatting from free text.
func SanitizeNotes(raw string) string {
	return strings.TrimSpace(notesSanitizer().Sanitize(raw))
}

// Renderer produces HTML documents by kind.
type Renderer struct {
	clinic    string
	templates map[string]*template.Template
}

// NewRenderer parses the embedded templates. clinic is printed in every
// document header.
func NewRenderer(clinic string) (*Renderer, error) {
	funcs := template.FuncMap{
		"clinic": func() string { return clinic },
		"money":  func(v any) string { return strconv.FormatFloat(form.CoerceNumber(v), 'f', 2, 64) },
		"num":    func(v any) string { return strconv.FormatFloat(form.CoerceNumber(v), 'f', -1, 64) },
		"notes":  func(v any) template.HTML { return template.HTML(SanitizeNotes(fmt.Sprint(v))) },
		"rows":   rows,
	}
	entries, err := templateFS.ReadDir("templates")
	if err != nil {
		return nil, fmt.Errorf("read templates: %w", err)
	}
	r := &Renderer{clinic: clinic, templates: make(map[string]*template.Template, len(entries))}
	for _, e := range entries {
		kind := strings.TrimSuffix(e.Name(), ".html.tmpl")
		t, err := template.New(e.Name()).Option("missingkey=zero").Funcs(funcs).ParseFS(templateFS, "templates/"+e.Name())
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", kind, err)
		}
		r.templates[kind] = t
	}
	return r, nil
}

// Kinds returns the renderable document kinds.
func (r *Renderer) Kinds() []string {
	out := make([]string, 0, len(r.templates))
	for k := range r.templates {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Render executes the template for kind with data. The output is not
// inspected further.
func (r *Renderer) Render(kind string, data map[string]any) ([]byte, error) {
	t, ok := r.templates[kind]
	if !ok {
		return nil, fmt.Errorf("unknown document kind %q", kind)
	}
	if data == nil {
		data = map[string]any{}
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", kind, err)
	}
	return buf.Bytes(), nil
}

// rows normalizes an array value (JSON-decoded or snapshot rows) for range.
func rows(v any) []map[string]any {
	switch t := v.(type) {
	case []map[string]any:
		return t
	case form.Rows:
		out := make([]map[string]any, len(t))
		for i, r := range t {
			out[i] = r
		}
		return out
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, el := range t {
			if m, ok := el.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}
