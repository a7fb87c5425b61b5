package mixins

// Context is the key/value data handed to a template.
type Context struct {
	data map[string]any
}

// NewContext returns a context holding a copy of defaults.
func NewContext(defaults map[string]any) *Context {
	c := &Context{data: make(map[string]any, len(defaults))}
	for k, v := range defaults {
		c.data[k] = v
	}
	return c
}

// Get returns the current data. It is never nil.
func (c *Context) Get() map[string]any {
	if c.data == nil {
		c.data = map[string]any{}
	}
	return c.data
}

// Update replaces the data wholesale.
func (c *Context) Update(data map[string]any) map[string]any {
	if data == nil {
		data = map[string]any{}
	}
	c.data = data
	return c.data
}

// Merge copies subject over the current data; subject wins on conflicts.
func (c *Context) Merge(subject map[string]any) map[string]any {
	data := c.Get()
	for k, v := range subject {
		data[k] = v
	}
	return data
}

func (c *Context) Add(key string, val any) map[string]any {
	data := c.Get()
	data[key] = val
	return data
}

func (c *Context) Del(key string) map[string]any {
	data := c.Get()
	delete(data, key)
	return data
}

// ContextMixin contributes static defaults and a per-request hook to the
// template context.
type ContextMixin struct {
	Context map[string]any
	// SetContext adds per-request data. It runs after every other mixin
	// has contributed, so its keys win.
	SetContext func(r *Request) (map[string]any, error)
}

// ApplyDefaults merges the static defaults into r's context.
func (m *ContextMixin) ApplyDefaults(r *Request) {
	r.Context.Merge(m.Context)
}

// ApplyHook merges the SetContext result, if a hook is set.
func (m *ContextMixin) ApplyHook(r *Request) error {
	if m.SetContext == nil {
		return nil
	}
	extra, err := m.SetContext(r)
	if err != nil {
		return err
	}
	r.Context.Merge(extra)
	return nil
}

// ApplyContext merges the defaults and then the hook.
func (m *ContextMixin) ApplyContext(r *Request) error {
	m.ApplyDefaults(r)
	return m.ApplyHook(r)
}
