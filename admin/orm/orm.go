// Package orm provides the gorm-backed admin panel views.
package orm

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thisissoon/velox/admin"
	"github.com/thisissoon/velox/forms"
	"github.com/thisissoon/velox/mixins"
	ormmixins "github.com/thisissoon/velox/mixins/orm"
	"github.com/thisissoon/velox/pkg/logger"
	"github.com/thisissoon/velox/routing"
)

// Bundled templates used when a view sets no Template.
const (
	ListTemplate   = "admin/forms/list.html"
	TableTemplate  = "admin/forms/table.html"
	CreateTemplate = "admin/forms/create.html"
	UpdateTemplate = "admin/forms/update.html"
	MultiTemplate  = "admin/forms/update_multi.html"
	DeleteTemplate = "admin/forms/delete.html"
)

// Disabled turns off a link rule that otherwise has a default.
const Disabled = "-"

var (
	getOnly    = []string{http.MethodGet}
	getAndPost = []string{http.MethodGet, http.MethodPost}
)

func rule(r, def string) string {
	switch r {
	case "":
		return def
	case Disabled:
		return ""
	}
	return r
}

// AdminTableModelMixin adds create, update, delete and bulk action links
// to a table.
type AdminTableModelMixin[T any] struct {
	ormmixins.TableModelMixin[T]
	// CreateURLRule, UpdateURLRule and DeleteURLRule default to ".create",
	// ".update" and ".delete"; Disabled removes the link.
	CreateURLRule string
	UpdateURLRule string
	DeleteURLRule string
	// WithSelected maps bulk action labels to endpoints.
	WithSelected map[string]string
}

func (m *AdminTableModelMixin[T]) CreateRule() string { return rule(m.CreateURLRule, admin.CreateRule) }
func (m *AdminTableModelMixin[T]) UpdateRule() string { return rule(m.UpdateURLRule, admin.UpdateRule) }
func (m *AdminTableModelMixin[T]) DeleteRule() string { return rule(m.DeleteURLRule, admin.DeleteRule) }

// ApplyContext adds the table plus the link rules and their URL helpers.
func (m *AdminTableModelMixin[T]) ApplyContext(r *mixins.Request) error {
	if err := m.TableModelMixin.ApplyContext(r); err != nil {
		return err
	}
	selected := map[string]string{}
	for label, endpoint := range m.WithSelected {
		url, err := routing.URLFor(r.C, endpoint, nil)
		if err != nil {
			return err
		}
		selected[label] = url
	}
	r.Context.Merge(map[string]any{
		"create_url_rule": m.CreateRule(),
		"create_url":      routing.URLFunc(r.C, m.CreateRule()),
		"update_url_rule": m.UpdateRule(),
		"update_url":      routing.URLFunc(r.C, m.UpdateRule()),
		"delete_url_rule": m.DeleteRule(),
		"delete_url":      routing.URLFunc(r.C, m.DeleteRule()),
		"with_selected":   selected,
	})
	return nil
}

// AdminModelListView lists T inside the panel.
type AdminModelListView[T any] struct {
	mixins.ContextMixin
	admin.AdminTemplateMixin
	ormmixins.ListModelMixin[T]
	Log *logger.Logger
}

func (v *AdminModelListView[T]) Methods() []string { return getOnly }

func (v *AdminModelListView[T]) ServeAdmin(a admin.Admin, c *gin.Context) {
	admin.Serve(a, c, v.Log, v.Serve)
}

func (v *AdminModelListView[T]) Serve(r *mixins.Request) error {
	v.ApplyDefaults(r)
	if err := v.ListModelMixin.ApplyContext(r); err != nil {
		return err
	}
	if err := v.ApplyHook(r); err != nil {
		return err
	}
	return v.RenderOr(r, ListTemplate)
}

// AdminModelTableView renders T as a table inside the panel.
type AdminModelTableView[T any] struct {
	mixins.ContextMixin
	admin.AdminTemplateMixin
	AdminTableModelMixin[T]
	Log *logger.Logger
}

func (v *AdminModelTableView[T]) Methods() []string { return getOnly }

func (v *AdminModelTableView[T]) ServeAdmin(a admin.Admin, c *gin.Context) {
	admin.Serve(a, c, v.Log, v.Serve)
}

func (v *AdminModelTableView[T]) Serve(r *mixins.Request) error {
	v.ApplyDefaults(r)
	if err := v.AdminTableModelMixin.ApplyContext(r); err != nil {
		return err
	}
	if err := v.ApplyHook(r); err != nil {
		return err
	}
	return v.RenderOr(r, TableTemplate)
}

// AdminCreateModelView creates a T from form F inside the panel.
type AdminCreateModelView[T, F any] struct {
	mixins.ContextMixin
	admin.AdminTemplateMixin
	admin.AdminBaseFormMixin
	ormmixins.CreateModelFormMixin[T, F]
	Log *logger.Logger
}

func (v *AdminCreateModelView[T, F]) Methods() []string { return getAndPost }

func (v *AdminCreateModelView[T, F]) ServeAdmin(a admin.Admin, c *gin.Context) {
	admin.Serve(a, c, v.Log, v.Serve)
}

func (v *AdminCreateModelView[T, F]) Serve(r *mixins.Request) error {
	v.ApplyDefaults(r)
	if err := v.ModelMixin.ApplyContext(r); err != nil {
		return err
	}
	v.AdminBaseFormMixin.ApplyContext(r)
	return v.Dispatch(r, func(f *forms.Form[F]) error {
		return v.Succeed(r, f, admin.IndexRule)
	}, func() error {
		if err := v.ApplyHook(r); err != nil {
			return err
		}
		return v.RenderOr(r, CreateTemplate)
	})
}

// AdminUpdateModelView edits the looked-up T with form F inside the panel.
type AdminUpdateModelView[T, F any] struct {
	mixins.ContextMixin
	admin.AdminTemplateMixin
	admin.AdminBaseFormMixin
	ormmixins.UpdateModelFormMixin[T, F]
	Log *logger.Logger
}

func (v *AdminUpdateModelView[T, F]) Methods() []string { return getAndPost }

func (v *AdminUpdateModelView[T, F]) ServeAdmin(a admin.Admin, c *gin.Context) {
	admin.Serve(a, c, v.Log, v.Serve)
}

func (v *AdminUpdateModelView[T, F]) Serve(r *mixins.Request) error {
	v.ApplyDefaults(r)
	if err := v.ModelMixin.ApplyContext(r); err != nil {
		return err
	}
	v.AdminBaseFormMixin.ApplyContext(r)
	if _, err := v.Prepare(r); err != nil {
		return err
	}
	return v.Dispatch(r, func(f *forms.Form[F]) error {
		return v.Succeed(r, f, admin.IndexRule)
	}, func() error {
		obj, err := v.Object(r)
		if err != nil {
			return err
		}
		r.Context.Merge(map[string]any{
			"object":          obj,
			"delete_url_rule": v.AdminBaseFormMixin.DeleteRule(),
			"delete_url":      routing.URLFunc(r.C, v.AdminBaseFormMixin.DeleteRule()),
		})
		if err := v.ApplyHook(r); err != nil {
			return err
		}
		return v.RenderOr(r, UpdateTemplate)
	})
}

// AdminUpdateModelMultiFormView edits the looked-up T with several forms
// inside the panel, each saved on its own submit.
type AdminUpdateModelMultiFormView[T any] struct {
	mixins.ContextMixin
	admin.AdminTemplateMixin
	admin.AdminBaseFormMixin
	ormmixins.UpdateModelMultiFormMixin[T]
	Log *logger.Logger
}

func (v *AdminUpdateModelMultiFormView[T]) Methods() []string { return getAndPost }

func (v *AdminUpdateModelMultiFormView[T]) ServeAdmin(a admin.Admin, c *gin.Context) {
	admin.Serve(a, c, v.Log, v.Serve)
}

func (v *AdminUpdateModelMultiFormView[T]) Serve(r *mixins.Request) error {
	v.ApplyDefaults(r)
	if err := v.ModelMixin.ApplyContext(r); err != nil {
		return err
	}
	v.AdminBaseFormMixin.ApplyContext(r)
	if _, err := v.Prepare(r); err != nil {
		return err
	}
	return v.Dispatch(r, func(lf *mixins.LabeledForm) error {
		return v.Succeed(r, lf, admin.IndexRule)
	}, func() error {
		obj, err := v.Object(r)
		if err != nil {
			return err
		}
		r.Context.Add("object", obj)
		if err := v.ApplyHook(r); err != nil {
			return err
		}
		return v.RenderOr(r, MultiTemplate)
	})
}

// AdminDeleteObjectView confirms and deletes the looked-up T inside the
// panel.
type AdminDeleteObjectView[T any] struct {
	mixins.ContextMixin
	admin.AdminTemplateMixin
	admin.AdminDeleteBaseMixin
	ormmixins.DeleteObjectMixin[T]
	Log *logger.Logger
}

func (v *AdminDeleteObjectView[T]) Methods() []string { return getOnly }

func (v *AdminDeleteObjectView[T]) ServeAdmin(a admin.Admin, c *gin.Context) {
	admin.Serve(a, c, v.Log, v.Serve)
}

func (v *AdminDeleteObjectView[T]) Serve(r *mixins.Request) error {
	if done, err := v.Delete(r, admin.IndexRule); err != nil || done {
		return err
	}
	v.ApplyDefaults(r)
	if err := v.DeleteObjectMixin.ApplyContext(r); err != nil {
		return err
	}
	v.AdminDeleteBaseMixin.ApplyContext(r)
	if err := v.ApplyHook(r); err != nil {
		return err
	}
	return v.RenderOr(r, DeleteTemplate)
}

// AdminMultiDeleteObjectView confirms and deletes several T inside the
// panel.
type AdminMultiDeleteObjectView[T any] struct {
	mixins.ContextMixin
	admin.AdminTemplateMixin
	admin.AdminDeleteBaseMixin
	ormmixins.MultiDeleteObjectMixin[T]
	Log *logger.Logger
}

func (v *AdminMultiDeleteObjectView[T]) Methods() []string { return getAndPost }

func (v *AdminMultiDeleteObjectView[T]) ServeAdmin(a admin.Admin, c *gin.Context) {
	admin.Serve(a, c, v.Log, v.Serve)
}

func (v *AdminMultiDeleteObjectView[T]) Serve(r *mixins.Request) error {
	if done, err := v.Delete(r, admin.IndexRule); err != nil || done {
		return err
	}
	v.ApplyDefaults(r)
	if err := v.MultiDeleteObjectMixin.ApplyContext(r); err != nil {
		return err
	}
	v.AdminDeleteBaseMixin.ApplyContext(r)
	if err := v.ApplyHook(r); err != nil {
		return err
	}
	return v.RenderOr(r, DeleteTemplate)
}
