package mixins

import (
	"fmt"

	"github.com/thisissoon/velox/forms"
)

const (
	formKey  = "velox.form"
	formsKey = "velox.forms"
)

// FormMixin renders a form and processes its submission.
type FormMixin[F any] struct {
	// New returns a pre-configured form value. Nil means a zero F.
	New func() *F
	// RedirectURLRule is where a valid submit redirects to.
	RedirectURLRule string
	// RedirectCode defaults to 302.
	RedirectCode int
	// OnSuccess replaces the default redirect on a valid submit.
	OnSuccess func(r *Request, f *forms.Form[F]) error
}

// Form returns the request's form, building it with opts on first use.
func (m *FormMixin[F]) Form(r *Request, opts ...forms.Option) (*forms.Form[F], error) {
	return Memo(r, formKey, func() (*forms.Form[F], error) {
		var proto *F
		if m.New != nil {
			proto = m.New()
		}
		return forms.New(proto, opts...)
	})
}

// Dispatch adds the form to the context. A valid submit runs success;
// anything else renders.
func (m *FormMixin[F]) Dispatch(r *Request, success func(f *forms.Form[F]) error, render func() error) error {
	f, err := m.Form(r)
	if err != nil {
		return err
	}
	r.Context.Add("form", f)
	if f.ValidateOnSubmit(r.C) {
		return success(f)
	}
	if f.HasErrors() {
		r.Log.Debug("form invalid", "errors", f.Errors())
	}
	return render()
}

// Success runs OnSuccess or redirects to RedirectURLRule, or fallback when
// that is empty.
func (m *FormMixin[F]) Success(r *Request, f *forms.Form[F], fallback string) error {
	if m.OnSuccess != nil {
		return m.OnSuccess(r, f)
	}
	return RedirectTo(r, m.RedirectURLRule, fallback, m.RedirectCode)
}

// NamedForm is one entry of a multi-form view.
type NamedForm struct {
	Label string
	New   func(opts ...forms.Option) (forms.Instance, error)
}

// FormOf describes a form of struct type F for MultiFormMixin. proto may
// be nil.
func FormOf[F any](label string, proto func() *F) NamedForm {
	return NamedForm{
		Label: label,
		New: func(opts ...forms.Option) (forms.Instance, error) {
			var p *F
			if proto != nil {
				p = proto()
			}
			return forms.New(p, opts...)
		},
	}
}

// LabeledForm is an instantiated NamedForm as exposed to templates.
type LabeledForm struct {
	Label  string
	Prefix string
	Form   forms.Instance
}

// MultiFormMixin renders several forms on one page. Each is prefixed with
// the slug of its label and only the submitted one is validated.
type MultiFormMixin struct {
	Forms           []NamedForm
	RedirectURLRule string
	RedirectCode    int
	OnSuccess       func(r *Request, f *LabeledForm) error
}

// Instances builds every form with opts on first use.
func (m *MultiFormMixin) Instances(r *Request, opts ...forms.Option) ([]*LabeledForm, error) {
	return Memo(r, formsKey, func() ([]*LabeledForm, error) {
		if len(m.Forms) == 0 {
			return nil, NotImplemented("forms must be defined")
		}
		out := make([]*LabeledForm, 0, len(m.Forms))
		taken := make(map[string]bool, len(m.Forms))
		for i, nf := range m.Forms {
			prefix := formPrefix(nf.Label, i, taken)
			inst, err := nf.New(append([]forms.Option{forms.WithPrefix(prefix)}, opts...)...)
			if err != nil {
				return nil, err
			}
			out = append(out, &LabeledForm{Label: nf.Label, Prefix: prefix, Form: inst})
		}
		return out, nil
	})
}

// formPrefix slugifies label. A blank slug falls back to "form-<n>" and a
// slug already in use gets "-2", "-3", ... appended.
func formPrefix(label string, i int, taken map[string]bool) string {
	base := forms.Slugify(label)
	if base == "" {
		base = fmt.Sprintf("form-%d", i+1)
	}
	prefix := base
	for n := 2; taken[prefix]; n++ {
		prefix = fmt.Sprintf("%s-%d", base, n)
	}
	taken[prefix] = true
	return prefix
}

// Submitted returns the form named by the request's form key, or nil.
func (m *MultiFormMixin) Submitted(r *Request) (*LabeledForm, error) {
	all, err := m.Instances(r)
	if err != nil {
		return nil, err
	}
	for _, lf := range all {
		if lf.Form.Submitted(r.C) {
			return lf, nil
		}
	}
	return nil, nil
}

// Dispatch adds forms to the context and validates the submitted one.
func (m *MultiFormMixin) Dispatch(r *Request, success func(f *LabeledForm) error, render func() error) error {
	all, err := m.Instances(r)
	if err != nil {
		return err
	}
	r.Context.Add("forms", all)
	lf, err := m.Submitted(r)
	if err != nil {
		return err
	}
	if lf != nil && lf.Form.ValidateOnSubmit(r.C) {
		return success(lf)
	}
	return render()
}

// Success runs OnSuccess or redirects.
func (m *MultiFormMixin) Success(r *Request, f *LabeledForm, fallback string) error {
	if m.OnSuccess != nil {
		return m.OnSuccess(r, f)
	}
	return RedirectTo(r, m.RedirectURLRule, fallback, m.RedirectCode)
}
