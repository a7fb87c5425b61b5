// Package routing gives gin routes names so handlers can build URLs to each
// other by endpoint instead of hard-coding paths.
//
// Endpoints are dotted names. Groups ("blueprints") prefix both the path and
// the endpoint of everything registered through them, so a view registered
// as "index" on the "admin.author" group has the endpoint "admin.author.index".
// URLFor accepts endpoints starting with "." which resolve against the
// blueprint of the endpoint currently being served.
package routing

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

const (
	// EndpointKey is the gin context key holding the endpoint being served.
	EndpointKey = "velox.endpoint"
	registryKey = "velox.registry"
)

// ErrBuildURL is returned when a URL cannot be built for an endpoint.
var ErrBuildURL = errors.New("could not build url")

// View is a handler that knows which HTTP methods it answers.
type View interface {
	Methods() []string
	Handle(c *gin.Context)
}

// Registry maps endpoint names to full route patterns.
type Registry struct {
	mu     sync.RWMutex
	routes map[string]string
}

func NewRegistry() *Registry {
	return &Registry{routes: map[string]string{}}
}

// Register records the pattern for an endpoint. Registering the same
// endpoint twice with a different pattern is an error.
func (r *Registry) Register(endpoint, pattern string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.routes[endpoint]; ok && existing != pattern {
		return fmt.Errorf("endpoint %q already registered for %q", endpoint, existing)
	}
	r.routes[endpoint] = pattern
	return nil
}

func (r *Registry) Pattern(endpoint string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.routes[endpoint]
	return p, ok
}

// Endpoints lists registered endpoint names in sorted order.
func (r *Registry) Endpoints() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.routes))
	for k := range r.routes {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Build fills the route pattern of endpoint with params. Path parameters
// (":id", "*path") are substituted; any params left over are encoded into
// the query string.
func (r *Registry) Build(endpoint string, params map[string]any) (string, error) {
	pattern, ok := r.Pattern(endpoint)
	if !ok {
		return "", fmt.Errorf("%w: unknown endpoint %q", ErrBuildURL, endpoint)
	}
	used := map[string]bool{}
	segments := strings.Split(pattern, "/")
	for i, seg := range segments {
		if seg == "" || (seg[0] != ':' && seg[0] != '*') {
			continue
		}
		name := seg[1:]
		val, ok := params[name]
		if !ok || val == nil {
			return "", fmt.Errorf("%w: endpoint %q needs param %q", ErrBuildURL, endpoint, name)
		}
		used[name] = true
		s := fmt.Sprint(val)
		if seg[0] == '*' {
			segments[i] = strings.TrimPrefix(s, "/")
			continue
		}
		segments[i] = url.PathEscape(s)
	}
	out := strings.Join(segments, "/")

	query := url.Values{}
	for k, v := range params {
		if used[k] || v == nil {
			continue
		}
		switch vv := v.(type) {
		case []string:
			for _, s := range vv {
				query.Add(k, s)
			}
		default:
			query.Add(k, fmt.Sprint(v))
		}
	}
	if len(query) > 0 {
		out += "?" + query.Encode()
	}
	return out, nil
}

// Router registers named routes on a gin router group.
type Router struct {
	group *gin.RouterGroup
	reg   *Registry
	name  string
}

// New wraps the root group of engine with a fresh registry.
func New(engine *gin.Engine) *Router {
	return &Router{group: &engine.RouterGroup, reg: NewRegistry()}
}

func (r *Router) Registry() *Registry { return r.reg }

// Name is the endpoint prefix of the group, "" for the root router.
func (r *Router) Name() string { return r.name }

// BasePath is the path prefix of the group.
func (r *Router) BasePath() string { return r.group.BasePath() }

// Group creates a blueprint: a child router whose routes are mounted under
// relativePath and whose endpoints are prefixed with name.
func (r *Router) Group(name, relativePath string, handlers ...gin.HandlerFunc) *Router {
	return &Router{
		group: r.group.Group(relativePath, handlers...),
		reg:   r.reg,
		name:  r.endpoint(name),
	}
}

// Add registers a View under the given endpoint name.
func (r *Router) Add(name, relativePath string, v View) error {
	return r.Handle(name, relativePath, v.Methods(), v.Handle)
}

// Handle registers h for each method under the endpoint name.
func (r *Router) Handle(name, relativePath string, methods []string, h gin.HandlerFunc) error {
	endpoint := r.endpoint(name)
	full := joinPaths(r.group.BasePath(), relativePath)
	if err := r.reg.Register(endpoint, full); err != nil {
		return err
	}
	reg := r.reg
	wrapped := func(c *gin.Context) {
		c.Set(EndpointKey, endpoint)
		c.Set(registryKey, reg)
		h(c)
	}
	if len(methods) == 0 {
		methods = []string{http.MethodGet}
	}
	for _, m := range methods {
		r.group.Handle(strings.ToUpper(m), relativePath, wrapped)
	}
	return nil
}

func (r *Router) endpoint(name string) string {
	if r.name == "" {
		return name
	}
	if name == "" {
		return r.name
	}
	return r.name + "." + name
}

// Endpoint returns the endpoint being served by c, or "".
func Endpoint(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(EndpointKey)
}

// Resolve expands a relative endpoint (".index") against the blueprint of
// current. Absolute endpoints are returned unchanged.
func Resolve(current, endpoint string) string {
	if !strings.HasPrefix(endpoint, ".") {
		return endpoint
	}
	idx := strings.LastIndex(current, ".")
	if idx < 0 {
		return strings.TrimPrefix(endpoint, ".")
	}
	return current[:idx] + endpoint
}

// URLFor builds the URL of endpoint for the request c.
func URLFor(c *gin.Context, endpoint string, params map[string]any) (string, error) {
	if endpoint == "" {
		return "", fmt.Errorf("%w: empty endpoint", ErrBuildURL)
	}
	if c == nil {
		return "", fmt.Errorf("%w: no request", ErrBuildURL)
	}
	v, ok := c.Get(registryKey)
	if !ok {
		return "", fmt.Errorf("%w: no route registry on request", ErrBuildURL)
	}
	reg, _ := v.(*Registry)
	if reg == nil {
		return "", fmt.Errorf("%w: no route registry on request", ErrBuildURL)
	}
	return reg.Build(Resolve(Endpoint(c), endpoint), params)
}

func joinPaths(base, relative string) string {
	if relative == "" {
		return base
	}
	joined := path.Join(base, relative)
	if strings.HasSuffix(relative, "/") && !strings.HasSuffix(joined, "/") {
		return joined + "/"
	}
	return joined
}

// Params turns key/value pairs into URL params.
func Params(kv ...any) (map[string]any, error) {
	if len(kv)%2 != 0 {
		return nil, fmt.Errorf("%w: odd number of url params", ErrBuildURL)
	}
	params := make(map[string]any, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			return nil, fmt.Errorf("%w: url param key %v is not a string", ErrBuildURL, kv[i])
		}
		params[k] = kv[i+1]
	}
	return params, nil
}

// URLFunc returns a template helper building URLs of endpoint for c, taking
// key/value pairs: {{call .update_url "id" .ID}}. An empty endpoint builds
// "".
func URLFunc(c *gin.Context, endpoint string) func(kv ...any) (string, error) {
	return func(kv ...any) (string, error) {
		if endpoint == "" {
			return "", nil
		}
		params, err := Params(kv...)
		if err != nil {
			return "", err
		}
		return URLFor(c, endpoint, params)
	}
}
