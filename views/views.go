// Package views assembles mixins into ready-made gin handlers. Each view
// satisfies routing.View and is safe to share between requests.
package views

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thisissoon/velox/forms"
	"github.com/thisissoon/velox/mixins"
	"github.com/thisissoon/velox/pkg/logger"
)

var (
	getOnly     = []string{http.MethodGet}
	getAndPost  = []string{http.MethodGet, http.MethodPost}
	redirecting = []string{http.MethodGet, http.MethodHead}
)

// TemplateView renders a template with its context.
type TemplateView struct {
	mixins.ContextMixin
	mixins.TemplateMixin
	Log *logger.Logger
}

func (v *TemplateView) Methods() []string { return getOnly }

func (v *TemplateView) Handle(c *gin.Context) {
	r := mixins.NewRequest(c, v.Log)
	if err := v.Serve(r); err != nil {
		mixins.Fail(r, err)
	}
}

func (v *TemplateView) Serve(r *mixins.Request) error {
	if err := v.ApplyContext(r); err != nil {
		return err
	}
	return v.Render(r)
}

// RedirectView redirects to a named route.
type RedirectView struct {
	mixins.RedirectMixin
	Log *logger.Logger
}

func (v *RedirectView) Methods() []string { return redirecting }

func (v *RedirectView) Handle(c *gin.Context) {
	r := mixins.NewRequest(c, v.Log)
	if err := v.Redirect(r); err != nil {
		mixins.Fail(r, err)
	}
}

// FormView renders form F on GET and processes it on POST.
type FormView[F any] struct {
	mixins.ContextMixin
	mixins.TemplateMixin
	mixins.FormMixin[F]
	Log *logger.Logger
}

func (v *FormView[F]) Methods() []string { return getAndPost }

func (v *FormView[F]) Handle(c *gin.Context) {
	r := mixins.NewRequest(c, v.Log)
	if err := v.Serve(r); err != nil {
		mixins.Fail(r, err)
	}
}

func (v *FormView[F]) Serve(r *mixins.Request) error {
	v.ApplyDefaults(r)
	return v.Dispatch(r, func(f *forms.Form[F]) error {
		return v.Success(r, f, "")
	}, func() error {
		if err := v.ApplyHook(r); err != nil {
			return err
		}
		return v.Render(r)
	})
}

// MultiFormView renders several forms, processing whichever is submitted.
type MultiFormView struct {
	mixins.ContextMixin
	mixins.TemplateMixin
	mixins.MultiFormMixin
	Log *logger.Logger
}

func (v *MultiFormView) Methods() []string { return getAndPost }

func (v *MultiFormView) Handle(c *gin.Context) {
	r := mixins.NewRequest(c, v.Log)
	if err := v.Serve(r); err != nil {
		mixins.Fail(r, err)
	}
}

func (v *MultiFormView) Serve(r *mixins.Request) error {
	v.ApplyDefaults(r)
	return v.Dispatch(r, func(f *mixins.LabeledForm) error {
		return v.Success(r, f, "")
	}, func() error {
		if err := v.ApplyHook(r); err != nil {
			return err
		}
		return v.Render(r)
	})
}
