package admin

import (
	"github.com/gin-gonic/gin"

	"github.com/thisissoon/velox/mixins"
	"github.com/thisissoon/velox/routing"
)

const adminKey = "velox.admin"

// Default rules, resolved against the section's endpoint namespace.
const (
	IndexRule  = ".index"
	CreateRule = ".create"
	UpdateRule = ".update"
	DeleteRule = ".delete"
)

// Attach binds a to r so the request renders through the panel.
func Attach(r *mixins.Request, a Admin) {
	r.Set(adminKey, a)
	r.Renderer = mixins.RendererFunc(func(c *gin.Context, _ int, name string, data map[string]any) error {
		return a.Render(c, name, data)
	})
}

// From returns the admin attached to r.
func From(r *mixins.Request) (Admin, bool) {
	v, ok := r.Value(adminKey)
	if !ok {
		return nil, false
	}
	a, ok := v.(Admin)
	return a, ok
}

// AdminTemplateMixin renders through the attached admin.
type AdminTemplateMixin struct {
	mixins.TemplateMixin
}

func (m *AdminTemplateMixin) Admin(r *mixins.Request) (Admin, error) {
	a, ok := From(r)
	if !ok {
		return nil, mixins.NotImplemented("_admin has not been declared")
	}
	return a, nil
}

func (m *AdminTemplateMixin) Render(r *mixins.Request) error {
	return m.RenderOr(r, "")
}

// RenderOr renders Template, or fallback when Template is empty.
func (m *AdminTemplateMixin) RenderOr(r *mixins.Request, fallback string) error {
	a, err := m.Admin(r)
	if err != nil {
		return err
	}
	name := m.Template
	if name == "" {
		name = fallback
	}
	if name == "" {
		return mixins.NotImplemented("template attribute is not defined")
	}
	if err := mixins.AddMessages(r); err != nil {
		return err
	}
	return a.Render(r.C, name, r.Context.Get())
}

func orDefault(rule, def string) string {
	if rule == "" {
		return def
	}
	return rule
}

// AdminBaseFormMixin adds cancel and delete links to admin forms.
type AdminBaseFormMixin struct {
	// CancelURLRule defaults to ".index".
	CancelURLRule string
	// DeleteURLRule defaults to ".delete".
	DeleteURLRule string
}

func (m *AdminBaseFormMixin) CancelRule() string { return orDefault(m.CancelURLRule, IndexRule) }

func (m *AdminBaseFormMixin) DeleteRule() string { return orDefault(m.DeleteURLRule, DeleteRule) }

func (m *AdminBaseFormMixin) CancelURL(r *mixins.Request, params map[string]any) (string, error) {
	return routing.URLFor(r.C, m.CancelRule(), params)
}

func (m *AdminBaseFormMixin) DeleteURL(r *mixins.Request, params map[string]any) (string, error) {
	return routing.URLFor(r.C, m.DeleteRule(), params)
}

// ApplyContext adds "cancel_url_rule" and the "cancel_url" helper.
func (m *AdminBaseFormMixin) ApplyContext(r *mixins.Request) {
	r.Context.Merge(map[string]any{
		"cancel_url_rule": m.CancelRule(),
		"cancel_url":      routing.URLFunc(r.C, m.CancelRule()),
	})
}

// AdminDeleteBaseMixin adds the cancel link to admin delete pages.
type AdminDeleteBaseMixin struct {
	// CancelURLRule defaults to ".index".
	CancelURLRule string
}

func (m *AdminDeleteBaseMixin) CancelRule() string { return orDefault(m.CancelURLRule, IndexRule) }

func (m *AdminDeleteBaseMixin) CancelURL(r *mixins.Request, params map[string]any) (string, error) {
	return routing.URLFor(r.C, m.CancelRule(), params)
}

// RedirectURL builds the post-delete target from rule, ".index" when empty.
func (m *AdminDeleteBaseMixin) RedirectURL(r *mixins.Request, rule string, params map[string]any) (string, error) {
	return routing.URLFor(r.C, orDefault(rule, IndexRule), params)
}

// ApplyContext adds the "cancel_url" helper.
func (m *AdminDeleteBaseMixin) ApplyContext(r *mixins.Request) {
	r.Context.Add("cancel_url", routing.URLFunc(r.C, m.CancelRule()))
}
