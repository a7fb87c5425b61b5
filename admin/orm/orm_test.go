package orm

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/thisissoon/velox"
	"github.com/thisissoon/velox/admin"
	"github.com/thisissoon/velox/flash"
	"github.com/thisissoon/velox/formatters"
	ormmixins "github.com/thisissoon/velox/mixins/orm"
	"github.com/thisissoon/velox/routing"
)

type Article struct {
	ID        uint `gorm:"primaryKey"`
	Title     string
	Published bool
}

func (a *Article) String() string { return a.Title }

type articleForm struct {
	Title     string `form:"title" binding:"required"`
	Published bool   `form:"published"`
}

type panel struct {
	db      *gorm.DB
	engine  *gin.Engine
	cookies []*http.Cookie
}

func newDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&Article{}))
	for _, title := range []string{"First", "Second", "Third"} {
		require.NoError(t, db.Create(&Article{Title: title, Published: title != "Second"}).Error)
	}
	return db
}

func newPanel(t *testing.T) *panel {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := newDB(t)
	e := gin.New()
	require.NoError(t, velox.InitApp(e))
	store, err := flash.NewCookieStore([]byte("test-secret"))
	require.NoError(t, err)
	e.Use(flash.Middleware(store))

	model := ormmixins.ModelMixin[Article]{DB: db}
	single := ormmixins.SingleObjectMixin[Article]{ModelMixin: model}
	base := ormmixins.BaseCreateUpdateMixin[Article]{SingleObjectMixin: single}

	table := &AdminModelTableView[Article]{AdminTableModelMixin: AdminTableModelMixin[Article]{
		TableModelMixin: ormmixins.TableModelMixin[Article]{
			ListModelMixin: ormmixins.ListModelMixin[Article]{ModelMixin: model, PerPage: 2},
			Columns:        []string{"Title", "Published"},
			Formatters:     map[string]formatters.Func{"Published": formatters.YesNo},
		},
		WithSelected: map[string]string{"Delete selected": "articles.bulk"},
	}}
	list := &AdminModelListView[Article]{ListModelMixin: ormmixins.ListModelMixin[Article]{ModelMixin: model, NoPaginate: true}}
	create := &AdminCreateModelView[Article, articleForm]{
		CreateModelFormMixin: ormmixins.CreateModelFormMixin[Article, articleForm]{BaseCreateUpdateMixin: base},
	}
	update := &AdminUpdateModelView[Article, articleForm]{
		UpdateModelFormMixin: ormmixins.UpdateModelFormMixin[Article, articleForm]{BaseCreateUpdateMixin: base},
	}
	del := &AdminDeleteObjectView[Article]{DeleteObjectMixin: ormmixins.DeleteObjectMixin[Article]{SingleObjectMixin: single}}
	bulk := &AdminMultiDeleteObjectView[Article]{MultiDeleteObjectMixin: ormmixins.MultiDeleteObjectMixin[Article]{
		DeleteObjectMixin: ormmixins.DeleteObjectMixin[Article]{SingleObjectMixin: single},
	}}

	articles := admin.NewBaseView("Articles", "/admin/articles", "articles").
		Expose("/", "index", table).
		Expose("/list", "list", list).
		Expose("/new", "create", create).
		Expose("/:id/edit", "update", update).
		Expose("/:id/delete", "delete", del).
		Expose("/delete", "bulk", bulk)
	require.NoError(t, admin.NewIndex("Panel").Add(articles).Register(routing.New(e)))
	return &panel{db: db, engine: e}
}

func (p *panel) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for _, ck := range p.cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	p.engine.ServeHTTP(w, req)
	p.cookies = w.Result().Cookies()
	return w
}

func (p *panel) count(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, p.db.Model(&Article{}).Count(&n).Error)
	return n
}

func TestTableView(t *testing.T) {
	p := newPanel(t)
	w := p.do(http.MethodGet, "/admin/articles/", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()

	assert.Contains(t, body, "<title>Panel</title>")
	assert.Contains(t, body, `<li class="active"><a href="/admin/articles/">Articles</a></li>`)
	assert.Contains(t, body, "<h1>Article</h1>")
	assert.Contains(t, body, `href="/admin/articles/new"`)
	assert.Contains(t, body, "<th>Title</th><th>Published</th>")
	assert.Contains(t, body, "<td>First</td><td>Yes</td>")
	assert.Contains(t, body, "<td>Second</td><td>No</td>")
	assert.NotContains(t, body, "Third")
	assert.Contains(t, body, `href="/admin/articles/1/edit"`)
	assert.Contains(t, body, `href="/admin/articles/2/delete"`)
	assert.Contains(t, body, `<input type="checkbox" name="objects" value="1">`)
	assert.Contains(t, body, `formaction="/admin/articles/delete"`)
	assert.Contains(t, body, `<a href="?page=2">2</a>`)

	w = p.do(http.MethodGet, "/admin/articles/?page=2", "")
	assert.Contains(t, w.Body.String(), "<td>Third</td>")
}

func TestTableRules(t *testing.T) {
	var m AdminTableModelMixin[Article]
	assert.Equal(t, ".create", m.CreateRule())
	assert.Equal(t, ".update", m.UpdateRule())
	assert.Equal(t, ".delete", m.DeleteRule())

	m.CreateURLRule = Disabled
	m.UpdateURLRule = "articles.edit"
	assert.Equal(t, "", m.CreateRule())
	assert.Equal(t, "articles.edit", m.UpdateRule())
}

func TestListView(t *testing.T) {
	p := newPanel(t)
	w := p.do(http.MethodGet, "/admin/articles/list", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<li>First</li>")
	assert.Contains(t, w.Body.String(), "<li>Third</li>")
	assert.NotContains(t, w.Body.String(), `class="pagination"`)
}

func TestCreateView(t *testing.T) {
	p := newPanel(t)
	w := p.do(http.MethodGet, "/admin/articles/new", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<h1>Create Article</h1>")
	assert.Contains(t, w.Body.String(), `<input type="text" id="title" name="title" value="">`)
	assert.Contains(t, w.Body.String(), `href="/admin/articles/">Cancel`)

	w = p.do(http.MethodPost, "/admin/articles/new", "published=true")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "This field is required.")
	assert.EqualValues(t, 3, p.count(t))

	w = p.do(http.MethodPost, "/admin/articles/new", "title=Fourth&published=true")
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin/articles/", w.Header().Get("Location"))
	assert.EqualValues(t, 4, p.count(t))

	w = p.do(http.MethodGet, "/admin/articles/", "")
	assert.Contains(t, w.Body.String(), `<div class="alert alert-success">Successfully created Fourth</div>`)
}

func TestUpdateView(t *testing.T) {
	p := newPanel(t)
	w := p.do(http.MethodGet, "/admin/articles/1/edit", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "<h1>Update First</h1>")
	assert.Contains(t, body, `value="First"`)
	assert.Contains(t, body, `href="/admin/articles/1/delete">Delete`)

	w = p.do(http.MethodPost, "/admin/articles/1/edit", "title=Renamed")
	require.Equal(t, http.StatusFound, w.Code)
	var a Article
	require.NoError(t, p.db.First(&a, 1).Error)
	assert.Equal(t, "Renamed", a.Title)
	assert.False(t, a.Published)

	assert.Equal(t, http.StatusNotFound, p.do(http.MethodGet, "/admin/articles/99/edit", "").Code)
}

func TestDeleteView(t *testing.T) {
	p := newPanel(t)
	w := p.do(http.MethodGet, "/admin/articles/2/delete", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Are you sure you want to delete Second?")
	assert.EqualValues(t, 3, p.count(t))

	w = p.do(http.MethodGet, "/admin/articles/2/delete?confirm=1", "")
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin/articles/", w.Header().Get("Location"))
	assert.EqualValues(t, 2, p.count(t))

	w = p.do(http.MethodGet, "/admin/articles/", "")
	assert.Contains(t, w.Body.String(), "Second was successfully deleted")
}

func TestMultiDeleteView(t *testing.T) {
	p := newPanel(t)
	w := p.do(http.MethodPost, "/admin/articles/delete", "objects=1&objects=3")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "<li>First</li><li>Third</li>")
	assert.Contains(t, body, `<input type="hidden" name="objects" value="3">`)

	w = p.do(http.MethodPost, "/admin/articles/delete?confirm=1", "objects=1&objects=3")
	require.Equal(t, http.StatusFound, w.Code)
	assert.EqualValues(t, 1, p.count(t))

	w = p.do(http.MethodGet, "/admin/articles/", "")
	assert.Contains(t, w.Body.String(), "2 objects successfully deleted")
}
