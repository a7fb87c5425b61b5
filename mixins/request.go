// Package mixins holds the building blocks views are assembled from: the
// per-request state, template context, template rendering, redirects and
// form handling.
package mixins

import (
	"github.com/gin-gonic/gin"

	"github.com/thisissoon/velox/pkg/logger"
)

// Renderer writes a named template with data as the response.
type Renderer interface {
	Render(c *gin.Context, status int, name string, data map[string]any) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(c *gin.Context, status int, name string, data map[string]any) error

func (f RendererFunc) Render(c *gin.Context, status int, name string, data map[string]any) error {
	return f(c, status, name, data)
}

// GinRenderer renders through the engine's HTML templates.
type GinRenderer struct{}

func (GinRenderer) Render(c *gin.Context, status int, name string, data map[string]any) error {
	c.HTML(status, name, gin.H(data))
	return nil
}

// Request is the state of one request flowing through a view. Views are
// shared between goroutines; anything request-scoped lives here.
type Request struct {
	C        *gin.Context
	Context  *Context
	Renderer Renderer
	Log      *logger.Logger

	values map[string]any
}

// Gin context keys the HTTP layer stores request-scoped ids under.
const (
	RequestIDKey = "velox.request_id"
	TraceIDKey   = "velox.trace_id"
)

// NewRequest wraps c for one view call. The logger is scoped with the
// request and trace ids when the HTTP layer set them.
func NewRequest(c *gin.Context, log *logger.Logger) *Request {
	log = logger.OrNop(log)
	if id := c.GetString(RequestIDKey); id != "" {
		log = log.With("request_id", id)
	}
	if id := c.GetString(TraceIDKey); id != "" {
		log = log.With("trace_id", id)
	}
	return &Request{
		C:        c,
		Context:  NewContext(nil),
		Renderer: GinRenderer{},
		Log:      log,
		values:   map[string]any{},
	}
}

// Param returns the URL path parameter name, or "".
func (r *Request) Param(name string) string {
	return r.C.Param(name)
}

// Set stores a request-scoped value.
func (r *Request) Set(key string, v any) { r.values[key] = v }

// Value returns a value stored with Set.
func (r *Request) Value(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Render writes the named template with the request context.
func (r *Request) Render(status int, name string) error {
	return r.Renderer.Render(r.C, status, name, r.Context.Get())
}

// Memo returns the value cached under key, computing it with fn on first
// use. Errors are not cached.
func Memo[V any](r *Request, key string, fn func() (V, error)) (V, error) {
	if v, ok := r.values[key]; ok {
		if typed, ok := v.(V); ok {
			return typed, nil
		}
	}
	v, err := fn()
	if err != nil {
		return v, err
	}
	r.values[key] = v
	return v, nil
}
