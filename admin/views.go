package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thisissoon/velox/forms"
	"github.com/thisissoon/velox/mixins"
	"github.com/thisissoon/velox/pkg/logger"
)

var (
	getOnly    = []string{http.MethodGet}
	getAndPost = []string{http.MethodGet, http.MethodPost}
)

// Serve runs serve for a request attached to a, failing the request on
// error.
func Serve(a Admin, c *gin.Context, log *logger.Logger, serve func(r *mixins.Request) error) {
	r := mixins.NewRequest(c, log)
	if a != nil {
		Attach(r, a)
	}
	if err := serve(r); err != nil {
		mixins.Fail(r, err)
	}
}

// AdminTemplateView renders a template inside the panel.
type AdminTemplateView struct {
	mixins.ContextMixin
	AdminTemplateMixin
	Log *logger.Logger
}

func (v *AdminTemplateView) Methods() []string { return getOnly }

func (v *AdminTemplateView) ServeAdmin(a Admin, c *gin.Context) { Serve(a, c, v.Log, v.Serve) }

func (v *AdminTemplateView) Serve(r *mixins.Request) error {
	if err := v.ApplyContext(r); err != nil {
		return err
	}
	return v.Render(r)
}

// AdminFormView renders and processes form F inside the panel.
type AdminFormView[F any] struct {
	mixins.ContextMixin
	AdminTemplateMixin
	AdminBaseFormMixin
	mixins.FormMixin[F]
	Log *logger.Logger
}

func (v *AdminFormView[F]) Methods() []string { return getAndPost }

func (v *AdminFormView[F]) ServeAdmin(a Admin, c *gin.Context) { Serve(a, c, v.Log, v.Serve) }

func (v *AdminFormView[F]) Serve(r *mixins.Request) error {
	v.ApplyDefaults(r)
	v.AdminBaseFormMixin.ApplyContext(r)
	return v.Dispatch(r, func(f *forms.Form[F]) error {
		return v.Success(r, f, IndexRule)
	}, func() error {
		if err := v.ApplyHook(r); err != nil {
			return err
		}
		return v.Render(r)
	})
}

// AdminMultiFormView renders several forms inside the panel.
type AdminMultiFormView struct {
	mixins.ContextMixin
	AdminTemplateMixin
	AdminBaseFormMixin
	mixins.MultiFormMixin
	Log *logger.Logger
}

func (v *AdminMultiFormView) Methods() []string { return getAndPost }

func (v *AdminMultiFormView) ServeAdmin(a Admin, c *gin.Context) { Serve(a, c, v.Log, v.Serve) }

func (v *AdminMultiFormView) Serve(r *mixins.Request) error {
	v.ApplyDefaults(r)
	v.AdminBaseFormMixin.ApplyContext(r)
	return v.Dispatch(r, func(f *mixins.LabeledForm) error {
		return v.Success(r, f, IndexRule)
	}, func() error {
		if err := v.ApplyHook(r); err != nil {
			return err
		}
		return v.Render(r)
	})
}
