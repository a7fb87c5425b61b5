package mixins

import (
	"net/http"

	"github.com/thisissoon/velox/flash"
)

// MessagesKey is the context key holding pending flash messages.
const MessagesKey = "messages"

// TemplateMixin renders a single configured template.
type TemplateMixin struct {
	Template string
	// Status defaults to 200.
	Status int
}

// TemplateName returns the configured template.
func (m *TemplateMixin) TemplateName() (string, error) {
	if m.Template == "" {
		return "", NotImplemented("template attribute is not defined")
	}
	return m.Template, nil
}

// StatusCode returns the configured status or 200.
func (m *TemplateMixin) StatusCode() int {
	if m.Status == 0 {
		return http.StatusOK
	}
	return m.Status
}

// Render writes the template with r's context. Pending flash messages are
// drained into the messages key.
func (m *TemplateMixin) Render(r *Request) error {
	name, err := m.TemplateName()
	if err != nil {
		return err
	}
	if err := AddMessages(r); err != nil {
		return err
	}
	return r.Render(m.StatusCode(), name)
}

// AddMessages pops pending flash messages into the context when a store
// is installed.
func AddMessages(r *Request) error {
	if flash.FromContext(r.C) == nil {
		return nil
	}
	msgs, err := flash.Pop(r.C)
	if err != nil {
		return err
	}
	r.Context.Add(MessagesKey, msgs)
	return nil
}
