// Package velox wires the bundled admin templates and template helpers
// into a gin engine.
package velox

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"maps"

	"github.com/gin-gonic/gin"

	"github.com/thisissoon/velox/formatters"
	"github.com/thisissoon/velox/forms"
)

//go:embed templates
var templateFS embed.FS

var bundled = []string{"templates/admin/*.html", "templates/admin/forms/*.html"}

// Velox holds the template configuration installed on an engine.
type Velox struct {
	funcs template.FuncMap
	globs []string
	fsys  []fsTemplates
}

type fsTemplates struct {
	fsys     fs.FS
	patterns []string
}

type Option func(*Velox)

// WithFuncs adds template funcs. They win over the bundled ones.
func WithFuncs(fm template.FuncMap) Option {
	return func(v *Velox) { maps.Copy(v.funcs, fm) }
}

// WithGlobs adds application templates, parsed after the bundled ones so
// they can redefine them (e.g. "admin/header.html").
func WithGlobs(patterns ...string) Option {
	return func(v *Velox) { v.globs = append(v.globs, patterns...) }
}

// WithFS adds application templates from fsys, parsed after the globs.
func WithFS(fsys fs.FS, patterns ...string) Option {
	return func(v *Velox) { v.fsys = append(v.fsys, fsTemplates{fsys: fsys, patterns: patterns}) }
}

func New(opts ...Option) *Velox {
	v := &Velox{funcs: FuncMap()}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// FuncMap returns the helpers available to every template: the
// formatters plus humanize.
func FuncMap() template.FuncMap {
	fm := formatters.FuncMap()
	fm["humanize"] = forms.Humanize
	return fm
}

// Templates parses the bundled templates followed by the configured globs.
func (v *Velox) Templates() (*template.Template, error) {
	t, err := template.New("velox").Funcs(v.funcs).ParseFS(templateFS, bundled...)
	if err != nil {
		return nil, fmt.Errorf("parse bundled templates: %w", err)
	}
	for _, pattern := range v.globs {
		if t, err = t.ParseGlob(pattern); err != nil {
			return nil, fmt.Errorf("parse templates %q: %w", pattern, err)
		}
	}
	for _, ft := range v.fsys {
		if t, err = t.ParseFS(ft.fsys, ft.patterns...); err != nil {
			return nil, fmt.Errorf("parse templates %v: %w", ft.patterns, err)
		}
	}
	return t, nil
}

// InitApp installs the templates on engine.
func (v *Velox) InitApp(engine *gin.Engine) error {
	t, err := v.Templates()
	if err != nil {
		return err
	}
	engine.SetHTMLTemplate(t)
	return nil
}

// InitApp installs the bundled templates plus the templates matching
// patterns on engine.
func InitApp(engine *gin.Engine, patterns ...string) error {
	return New(WithGlobs(patterns...)).InitApp(engine)
}
