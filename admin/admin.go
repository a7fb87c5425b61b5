// Package admin hosts views inside an admin panel. A BaseView groups
// exposed views under one endpoint namespace and renders them with the
// panel's layout data.
package admin

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/thisissoon/velox/pkg/logger"
	"github.com/thisissoon/velox/routing"
)

// Admin renders templates for views mounted in a panel.
type Admin interface {
	Render(c *gin.Context, template string, data map[string]any) error
	// Endpoint is the endpoint namespace of the panel's views.
	Endpoint() string
	Name() string
}

// AdminView is a handler served inside a panel.
type AdminView interface {
	Methods() []string
	ServeAdmin(a Admin, c *gin.Context)
}

// DefaultBaseTemplate is the layout name handed to admin templates.
const DefaultBaseTemplate = "admin/base.html"

type exposed struct {
	path string
	name string
	view AdminView
}

// MenuItem is one entry of the panel navigation.
type MenuItem struct {
	Name     string
	Category string
	URL      string
	Active   bool
}

// BaseView is a panel section, e.g. "Authors" mounted at /admin/authors.
type BaseView struct {
	name     string
	url      string
	endpoint string

	Category     string
	BaseTemplate string
	Log          *logger.Logger

	exposed []exposed
	index   *Index
}

// NewBaseView creates a section named name, mounted at url, whose views
// are registered under endpoint.
func NewBaseView(name, url, endpoint string) *BaseView {
	return &BaseView{name: name, url: url, endpoint: endpoint, BaseTemplate: DefaultBaseTemplate}
}

func (b *BaseView) Name() string { return b.name }
func (b *BaseView) URL() string { return b.url }
func (b *BaseView) Endpoint() string { return b.endpoint }

// Expose mounts v at path under endpoint "<Endpoint>.<name>".
func (b *BaseView) Expose(path, name string, v AdminView) *BaseView {
	b.exposed = append(b.exposed, exposed{path: path, name: name, view: v})
	return b
}

// Register mounts every exposed view on rt.
func (b *BaseView) Register(rt *routing.Router) error {
	g := rt.Group(b.endpoint, b.url)
	for _, e := range b.exposed {
		v := e.view
		if err := g.Handle(e.name, e.path, v.Methods(), func(c *gin.Context) {
			v.ServeAdmin(b, c)
		}); err != nil {
			return err
		}
	}
	return nil
}

// Render adds the panel data to data and renders template.
func (b *BaseView) Render(c *gin.Context, template string, data map[string]any) error {
	if data == nil {
		data = map[string]any{}
	}
	data["admin_view"] = b
	data["admin_base_template"] = b.BaseTemplate
	if b.index != nil {
		data["admin_name"] = b.index.Name
		data["admin_menu"] = b.index.Menu(c)
	} else {
		data["admin_menu"] = []MenuItem{}
	}
	c.HTML(http.StatusOK, template, gin.H(data))
	return nil
}

// Index is the panel: a named collection of BaseViews sharing a menu.
type Index struct {
	Name  string
	views []*BaseView
}

func NewIndex(name string) *Index {
	return &Index{Name: name}
}

// Add attaches views to the panel menu.
func (ix *Index) Add(views ...*BaseView) *Index {
	for _, v := range views {
		v.index = ix
		ix.views = append(ix.views, v)
	}
	return ix
}

// Views returns the attached sections in order.
func (ix *Index) Views() []*BaseView { return ix.views }

// Register mounts every attached section on rt.
func (ix *Index) Register(rt *routing.Router) error {
	for _, v := range ix.views {
		if err := v.Register(rt); err != nil {
			return err
		}
	}
	return nil
}

// Menu lists the sections, marking the one serving c as active. Sections
// link to their "index" endpoint when one is exposed.
func (ix *Index) Menu(c *gin.Context) []MenuItem {
	current := routing.Endpoint(c)
	items := make([]MenuItem, 0, len(ix.views))
	for _, v := range ix.views {
		url, err := routing.URLFor(c, v.endpoint+".index", nil)
		if err != nil {
			url = v.url
		}
		items = append(items, MenuItem{
			Name:     v.name,
			Category: v.Category,
			URL:      url,
			Active:   current == v.endpoint || strings.HasPrefix(current, v.endpoint+"."),
		})
	}
	return items
}
