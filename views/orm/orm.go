// Package orm provides gorm-backed listing, table, object, create, update
// and delete views.
package orm

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thisissoon/velox/forms"
	"github.com/thisissoon/velox/mixins"
	ormmixins "github.com/thisissoon/velox/mixins/orm"
	"github.com/thisissoon/velox/pkg/logger"
)

var (
	getOnly    = []string{http.MethodGet}
	getAndPost = []string{http.MethodGet, http.MethodPost}
)

func handle(c *gin.Context, log *logger.Logger, serve func(r *mixins.Request) error) {
	r := mixins.NewRequest(c, log)
	if err := serve(r); err != nil {
		mixins.Fail(r, err)
	}
}

// ModelListView renders a (paginated) list of T.
type ModelListView[T any] struct {
	mixins.ContextMixin
	mixins.TemplateMixin
	ormmixins.ListModelMixin[T]
	Log *logger.Logger
}

func (v *ModelListView[T]) Methods() []string { return getOnly }

func (v *ModelListView[T]) Handle(c *gin.Context) { handle(c, v.Log, v.Serve) }

func (v *ModelListView[T]) Serve(r *mixins.Request) error {
	v.ApplyDefaults(r)
	if err := v.ListModelMixin.ApplyContext(r); err != nil {
		return err
	}
	if err := v.ApplyHook(r); err != nil {
		return err
	}
	return v.Render(r)
}

// TableModelView renders T as a table of columns.
type TableModelView[T any] struct {
	mixins.ContextMixin
	mixins.TemplateMixin
	ormmixins.TableModelMixin[T]
	Log *logger.Logger
}

func (v *TableModelView[T]) Methods() []string { return getOnly }

func (v *TableModelView[T]) Handle(c *gin.Context) { handle(c, v.Log, v.Serve) }

func (v *TableModelView[T]) Serve(r *mixins.Request) error {
	v.ApplyDefaults(r)
	if err := v.TableModelMixin.ApplyContext(r); err != nil {
		return err
	}
	if err := v.ApplyHook(r); err != nil {
		return err
	}
	return v.Render(r)
}

// ObjectView renders a single T.
type ObjectView[T any] struct {
	mixins.ContextMixin
	mixins.TemplateMixin
	ormmixins.ObjectMixin[T]
	Log *logger.Logger
}

func (v *ObjectView[T]) Methods() []string { return getOnly }

func (v *ObjectView[T]) Handle(c *gin.Context) { handle(c, v.Log, v.Serve) }

func (v *ObjectView[T]) Serve(r *mixins.Request) error {
	v.ApplyDefaults(r)
	if err := v.ObjectMixin.ApplyContext(r); err != nil {
		return err
	}
	if err := v.ApplyHook(r); err != nil {
		return err
	}
	return v.Render(r)
}

// CreateModelView creates a T from form F.
type CreateModelView[T, F any] struct {
	mixins.ContextMixin
	mixins.TemplateMixin
	ormmixins.CreateModelFormMixin[T, F]
	Log *logger.Logger
}

func (v *CreateModelView[T, F]) Methods() []string { return getAndPost }

func (v *CreateModelView[T, F]) Handle(c *gin.Context) { handle(c, v.Log, v.Serve) }

func (v *CreateModelView[T, F]) Serve(r *mixins.Request) error {
	v.ApplyDefaults(r)
	if err := v.ModelMixin.ApplyContext(r); err != nil {
		return err
	}
	return v.Dispatch(r, func(f *forms.Form[F]) error {
		return v.Succeed(r, f, "")
	}, func() error {
		if err := v.ApplyHook(r); err != nil {
			return err
		}
		return v.Render(r)
	})
}

// UpdateModelView edits the looked-up T with form F.
type UpdateModelView[T, F any] struct {
	mixins.ContextMixin
	mixins.TemplateMixin
	ormmixins.UpdateModelFormMixin[T, F]
	Log *logger.Logger
}

func (v *UpdateModelView[T, F]) Methods() []string { return getAndPost }

func (v *UpdateModelView[T, F]) Handle(c *gin.Context) { handle(c, v.Log, v.Serve) }

func (v *UpdateModelView[T, F]) Serve(r *mixins.Request) error {
	v.ApplyDefaults(r)
	if err := v.ModelMixin.ApplyContext(r); err != nil {
		return err
	}
	if _, err := v.Prepare(r); err != nil {
		return err
	}
	return v.Dispatch(r, func(f *forms.Form[F]) error {
		return v.Succeed(r, f, "")
	}, func() error {
		obj, err := v.Object(r)
		if err != nil {
			return err
		}
		r.Context.Add("object", obj)
		if err := v.ApplyHook(r); err != nil {
			return err
		}
		return v.Render(r)
	})
}

// UpdateModelMultiFormView edits the looked-up T with several forms.
type UpdateModelMultiFormView[T any] struct {
	mixins.ContextMixin
	mixins.TemplateMixin
	ormmixins.UpdateModelMultiFormMixin[T]
	Log *logger.Logger
}

func (v *UpdateModelMultiFormView[T]) Methods() []string { return getAndPost }

func (v *UpdateModelMultiFormView[T]) Handle(c *gin.Context) { handle(c, v.Log, v.Serve) }

func (v *UpdateModelMultiFormView[T]) Serve(r *mixins.Request) error {
	v.ApplyDefaults(r)
	if err := v.ModelMixin.ApplyContext(r); err != nil {
		return err
	}
	if _, err := v.Prepare(r); err != nil {
		return err
	}
	return v.Dispatch(r, func(lf *mixins.LabeledForm) error {
		return v.Succeed(r, lf, "")
	}, func() error {
		obj, err := v.Object(r)
		if err != nil {
			return err
		}
		r.Context.Add("object", obj)
		if err := v.ApplyHook(r); err != nil {
			return err
		}
		return v.Render(r)
	})
}

// DeleteObjectView asks for confirmation, then deletes the looked-up T.
type DeleteObjectView[T any] struct {
	mixins.ContextMixin
	mixins.TemplateMixin
	ormmixins.DeleteObjectMixin[T]
	Log *logger.Logger
}

func (v *DeleteObjectView[T]) Methods() []string { return getOnly }

func (v *DeleteObjectView[T]) Handle(c *gin.Context) { handle(c, v.Log, v.Serve) }

func (v *DeleteObjectView[T]) Serve(r *mixins.Request) error {
	if done, err := v.Delete(r, ""); err != nil || done {
		return err
	}
	v.ApplyDefaults(r)
	if err := v.DeleteObjectMixin.ApplyContext(r); err != nil {
		return err
	}
	if err := v.ApplyHook(r); err != nil {
		return err
	}
	return v.Render(r)
}

// MultiDeleteObjectView deletes every T named by the objects parameter.
type MultiDeleteObjectView[T any] struct {
	mixins.ContextMixin
	mixins.TemplateMixin
	ormmixins.MultiDeleteObjectMixin[T]
	Log *logger.Logger
}

func (v *MultiDeleteObjectView[T]) Methods() []string { return getAndPost }

func (v *MultiDeleteObjectView[T]) Handle(c *gin.Context) { handle(c, v.Log, v.Serve) }

func (v *MultiDeleteObjectView[T]) Serve(r *mixins.Request) error {
	if done, err := v.Delete(r, ""); err != nil || done {
		return err
	}
	v.ApplyDefaults(r)
	if err := v.MultiDeleteObjectMixin.ApplyContext(r); err != nil {
		return err
	}
	if err := v.ApplyHook(r); err != nil {
		return err
	}
	return v.Render(r)
}
