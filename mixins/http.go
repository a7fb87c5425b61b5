package mixins

import (
	"net/http"

	"github.com/thisissoon/velox/routing"
)

// RedirectMixin answers every request with a redirect to a named route.
type RedirectMixin struct {
	Rule   string
	Params map[string]any
	// Code defaults to 302.
	Code int
	// PreDispatch runs before the redirect is issued.
	PreDispatch func(r *Request) error
}

// URL builds the redirect target from Rule.
func (m *RedirectMixin) URL(r *Request) (string, error) {
	if m.Rule == "" {
		return "", NotImplemented("rule attr must be defined")
	}
	return routing.URLFor(r.C, m.Rule, m.Params)
}

func (m *RedirectMixin) StatusCode() int {
	if m.Code == 0 {
		return http.StatusFound
	}
	return m.Code
}

// Redirect runs PreDispatch and issues the redirect.
func (m *RedirectMixin) Redirect(r *Request) error {
	if m.PreDispatch != nil {
		if err := m.PreDispatch(r); err != nil {
			return err
		}
	}
	url, err := m.URL(r)
	if err != nil {
		return err
	}
	r.C.Redirect(m.StatusCode(), url)
	return nil
}

// RedirectTo resolves rule, falling back when it is empty, and redirects
// with code (302 when zero).
func RedirectTo(r *Request, rule, fallback string, code int) error {
	if rule == "" {
		rule = fallback
	}
	if rule == "" {
		return NotImplemented("redirect_url_rule must be defined")
	}
	url, err := routing.URLFor(r.C, rule, nil)
	if err != nil {
		return err
	}
	if code == 0 {
		code = http.StatusFound
	}
	r.C.Redirect(code, url)
	return nil
}
