package orm

import (
	"fmt"
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

	"github.com/thisissoon/velox/flash"
	"github.com/thisissoon/velox/formatters"
	"github.com/thisissoon/velox/forms"
	"github.com/thisissoon/velox/mixins"
	"github.com/thisissoon/velox/routing"
)

type author struct {
	ID     uint   `gorm:"primaryKey"`
	Name   string `label:"Full Name"`
	Email  string
	Active bool
}

func (a *author) String() string { return a.Name }

type tag struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func newDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&author{}, &tag{}))
	return db
}

func seedAuthors(t *testing.T, db *gorm.DB, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		require.NoError(t, db.Create(&author{Name: fmt.Sprintf("author-%02d", i), Email: fmt.Sprintf("a%d@example.com", i)}).Error)
	}
}

func newRequest(t *testing.T, target string, params ...gin.Param) *mixins.Request {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	c.Params = params
	return mixins.NewRequest(c, nil)
}

func TestModelInfo(t *testing.T) {
	m := &ModelMixin[author]{DB: newDB(t)}
	info, err := m.Model()
	require.NoError(t, err)
	assert.Equal(t, "author", info.Name)
	assert.Equal(t, "authors", info.Table)
	assert.Equal(t, "id", info.PrimaryKey)
	assert.Contains(t, info.Fields, FieldInfo{Name: "Name", Column: "name", Label: "Full Name"})
	assert.Equal(t, "id", m.PK())

	_, err = (&ModelMixin[author]{}).Session()
	require.ErrorIs(t, err, mixins.ErrNotImplemented)
	assert.Contains(t, err.Error(), "session attribute required")
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "Ada", (&ModelMixin[author]{}).Describe(&author{ID: 1, Name: "Ada"}))
	assert.Equal(t, "tag 3", (&ModelMixin[tag]{}).Describe(&tag{ID: 3}))
	assert.EqualValues(t, 3, (&ModelMixin[tag]{}).PrimaryKey(&tag{ID: 3}))
}

func TestObjectLookupPrecedence(t *testing.T) {
	db := newDB(t)
	seedAuthors(t, db, 3)
	newMixin := func() *ObjectMixin[author] {
		return &ObjectMixin[author]{SingleObjectMixin[author]{ModelMixin: ModelMixin[author]{DB: db}, LookupValue: 3}}
	}

	obj, err := newMixin().Object(newRequest(t, "/?id=2", gin.Param{Key: "id", Value: "1"}))
	require.NoError(t, err)
	assert.Equal(t, "author-01", obj.Name)

	obj, err = newMixin().Object(newRequest(t, "/?id=2"))
	require.NoError(t, err)
	assert.Equal(t, "author-02", obj.Name)

	obj, err = newMixin().Object(newRequest(t, "/"))
	require.NoError(t, err)
	assert.Equal(t, "author-03", obj.Name)

	blank := &SingleObjectMixin[author]{ModelMixin: ModelMixin[author]{DB: db}}
	obj, err = blank.Object(newRequest(t, "/"))
	require.NoError(t, err)
	assert.Equal(t, author{}, *obj)
}

func TestObjectLookupMissIsNotFound(t *testing.T) {
	db := newDB(t)
	m := &SingleObjectMixin[author]{ModelMixin: ModelMixin[author]{DB: db}}
	_, err := m.Object(newRequest(t, "/?id=99"))
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, mixins.StatusOf(err))

	bad := &SingleObjectMixin[author]{ModelMixin: ModelMixin[author]{DB: db}, LookupField: "nickname"}
	_, err = bad.Object(newRequest(t, "/?nickname=x"))
	assert.ErrorIs(t, err, mixins.ErrUnknownField)
}

func TestObjectIsMemoized(t *testing.T) {
	db := newDB(t)
	seedAuthors(t, db, 1)
	m := &ObjectMixin[author]{SingleObjectMixin[author]{ModelMixin: ModelMixin[author]{DB: db}, LookupField: "email"}}
	r := newRequest(t, "/?email=a1@example.com")

	first, err := m.Object(r)
	require.NoError(t, err)
	require.NoError(t, db.Where("1 = 1").Delete(&author{}).Error)
	second, err := m.Object(r)
	require.NoError(t, err)
	assert.Same(t, first, second)

	require.NoError(t, m.ApplyContext(r))
	assert.Same(t, first, r.Context.Get()["object"])
}

func TestListPagination(t *testing.T) {
	db := newDB(t)
	seedAuthors(t, db, 25)
	newMixin := func() *ListModelMixin[author] {
		return &ListModelMixin[author]{
			ModelMixin: ModelMixin[author]{DB: db},
			PerPage:    10,
			BaseQuery:  func(q *gorm.DB) *gorm.DB { return q.Order("id") },
		}
	}

	items, p, err := newMixin().Objects(newRequest(t, "/"))
	require.NoError(t, err)
	require.Len(t, items, 10)
	assert.Equal(t, int64(25), p.Total)
	assert.Equal(t, 3, p.Pages())
	assert.False(t, p.HasPrev())
	assert.True(t, p.HasNext())
	assert.Equal(t, 2, p.NextNum())

	items, p, err = newMixin().Objects(newRequest(t, "/?page=3"))
	require.NoError(t, err)
	require.Len(t, items, 5)
	assert.Equal(t, "author-21", items[0].Name)
	assert.False(t, p.HasNext())
	assert.Equal(t, 2, p.PrevNum())

	_, _, err = newMixin().Objects(newRequest(t, "/?page=4"))
	assert.Equal(t, http.StatusNotFound, mixins.StatusOf(err))
	_, _, err = newMixin().Objects(newRequest(t, "/?page=0"))
	assert.Equal(t, http.StatusNotFound, mixins.StatusOf(err))
	_, _, err = newMixin().Objects(newRequest(t, "/?page=two"))
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, mixins.StatusOf(err))
	assert.Equal(t, "page GET param must be number", err.Error())
	_, _, err = newMixin().Objects(newRequest(t, "/?page="))
	assert.Equal(t, http.StatusBadRequest, mixins.StatusOf(err))
	_, _, err = newMixin().Objects(newRequest(t, "/?page=400000000000000000"))
	assert.Equal(t, http.StatusNotFound, mixins.StatusOf(err))

	all := newMixin()
	all.NoPaginate = true
	items, p, err = all.Objects(newRequest(t, "/?page=9"))
	require.NoError(t, err)
	assert.Len(t, items, 25)
	assert.Nil(t, p)
	assert.Equal(t, 30, (&ListModelMixin[author]{}).PerPageCount())
}

func TestEmptyFirstPageIsFine(t *testing.T) {
	m := &ListModelMixin[author]{ModelMixin: ModelMixin[author]{DB: newDB(t)}}
	items, p, err := m.Objects(newRequest(t, "/"))
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 0, p.Pages())
}

func TestIterPages(t *testing.T) {
	p := &Pagination[author]{Page: 10, PerPage: 1, Total: 20}
	assert.Equal(t, []int{1, 2, 0, 8, 9, 10, 11, 12, 13, 14, 0, 19, 20}, p.Iter())

	short := &Pagination[author]{Page: 1, PerPage: 10, Total: 25}
	assert.Equal(t, []int{1, 2, 3}, short.Iter())
	assert.Equal(t, []int{1, 0, 3}, short.IterPages(1, 0, 1, 1))
}

func TestTableModelMixin(t *testing.T) {
	db := newDB(t)
	seedAuthors(t, db, 2)
	m := &TableModelMixin[author]{ListModelMixin: ListModelMixin[author]{ModelMixin: ModelMixin[author]{DB: db}}}

	r := newRequest(t, "/")
	err := m.ApplyContext(r)
	require.ErrorIs(t, err, mixins.ErrNotImplemented)
	assert.Contains(t, err.Error(), "columns is not defined")

	m.Columns = []string{"Name", "email", "Active"}
	m.Formatters = map[string]formatters.Func{"Active": formatters.YesNo}
	r = newRequest(t, "/")
	require.NoError(t, m.ApplyContext(r))
	ctx := r.Context.Get()
	assert.Equal(t, m.Columns, ctx["columns"])
	assert.Len(t, ctx["objects"], 2)

	assert.Equal(t, "Full Name", m.ColumnName("Name"))
	assert.Equal(t, "Email", m.ColumnName("email"))
	assert.Equal(t, "Created At", m.ColumnName("created_at"))

	a := &author{Name: "Ada", Email: "ada@example.com", Active: true}
	assert.Equal(t, "ada@example.com", m.FormatValue("email", a))
	assert.Equal(t, "Yes", m.FormatValue("Active", a))
	assert.Equal(t, "Invalid Attribute: nope", m.FormatValue("nope", a))
}

type memoryStore struct{ msgs []flash.Message }

func (s *memoryStore) Add(_ *gin.Context, m flash.Message) error {
	s.msgs = append(s.msgs, m)
	return nil
}

func (s *memoryStore) Pop(*gin.Context) ([]flash.Message, error) {
	out := s.msgs
	s.msgs = nil
	return out, nil
}

func (s *memoryStore) texts() []string {
	var out []string
	for _, m := range s.msgs {
		out = append(out, m.Text)
	}
	return out
}

func newEngine(t *testing.T) (*gin.Engine, *routing.Router, *memoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	e := gin.New()
	store := &memoryStore{}
	e.Use(flash.Middleware(store))
	rt := routing.New(e)
	require.NoError(t, rt.Handle("index", "/", nil, func(c *gin.Context) { c.String(http.StatusOK, "index") }))
	return e, rt, store
}

func serve(e *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	return w
}

func TestDeleteObjectMixin(t *testing.T) {
	db := newDB(t)
	seedAuthors(t, db, 2)
	e, rt, store := newEngine(t)
	m := &DeleteObjectMixin[author]{SingleObjectMixin: SingleObjectMixin[author]{ModelMixin: ModelMixin[author]{DB: db}}}
	require.NoError(t, rt.Handle("delete", "/authors/:id/delete", nil, func(c *gin.Context) {
		r := mixins.NewRequest(c, nil)
		done, err := m.Delete(r, ".index")
		if err != nil {
			mixins.Abort(c, err)
			return
		}
		if !done {
			require.NoError(t, m.ApplyContext(r))
			c.String(http.StatusOK, "confirm %v", r.Context.Get()["object"])
		}
	}))

	w := serve(e, http.MethodGet, "/authors/1/delete", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "confirm author-01", w.Body.String())

	w = serve(e, http.MethodGet, "/authors/1/delete?confirm=1", "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.Equal(t, []string{"author-01 was successfully deleted"}, store.texts())

	var count int64
	require.NoError(t, db.Model(&author{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	w = serve(e, http.MethodGet, "/authors/1/delete?confirm=1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMultiDeleteObjectMixin(t *testing.T) {
	db := newDB(t)
	seedAuthors(t, db, 3)
	e, rt, store := newEngine(t)
	m := &MultiDeleteObjectMixin[author]{DeleteObjectMixin[author]{
		SingleObjectMixin: SingleObjectMixin[author]{ModelMixin: ModelMixin[author]{DB: db}},
		RedirectCode:      http.StatusSeeOther,
	}}
	require.NoError(t, rt.Handle("delete", "/authors/delete", []string{http.MethodGet, http.MethodPost}, func(c *gin.Context) {
		r := mixins.NewRequest(c, nil)
		done, err := m.Delete(r, ".index")
		if err != nil {
			mixins.Abort(c, err)
			return
		}
		if !done {
			require.NoError(t, m.ApplyContext(r))
			c.String(http.StatusOK, "confirm %d", len(r.Context.Get()["objects"].([]*author)))
		}
	}))

	w := serve(e, http.MethodPost, "/authors/delete?objects=1", "objects=2")
	assert.Equal(t, "confirm 2", w.Body.String())

	w = serve(e, http.MethodPost, "/authors/delete?confirm=yes", "objects=1&objects=3")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, []string{"2 objects successfully deleted"}, store.texts())

	var left []author
	require.NoError(t, db.Find(&left).Error)
	require.Len(t, left, 1)
	assert.Equal(t, "author-02", left[0].Name)
}

type authorForm struct {
	Name  string `form:"name" binding:"required"`
	Email string `form:"email" binding:"omitempty,email"`
}

func TestCreateAndUpdateModelFormMixins(t *testing.T) {
	db := newDB(t)
	e, rt, store := newEngine(t)
	base := BaseCreateUpdateMixin[author]{SingleObjectMixin[author]{ModelMixin: ModelMixin[author]{DB: db}}}

	create := &CreateModelFormMixin[author, authorForm]{BaseCreateUpdateMixin: base}
	require.NoError(t, rt.Handle("create", "/authors/new", []string{http.MethodGet, http.MethodPost}, func(c *gin.Context) {
		r := mixins.NewRequest(c, nil)
		err := create.Dispatch(r, func(f *forms.Form[authorForm]) error {
			return create.Succeed(r, f, ".index")
		}, func() error {
			f, _ := create.Form(r)
			c.String(http.StatusOK, "errors=%v", f.Errors())
			return nil
		})
		if err != nil {
			mixins.Abort(c, err)
		}
	}))

	update := &UpdateModelFormMixin[author, authorForm]{BaseCreateUpdateMixin: base}
	require.NoError(t, rt.Handle("update", "/authors/:id", []string{http.MethodGet, http.MethodPost}, func(c *gin.Context) {
		r := mixins.NewRequest(c, nil)
		if _, err := update.Prepare(r); err != nil {
			mixins.Abort(c, err)
			return
		}
		err := update.Dispatch(r, func(f *forms.Form[authorForm]) error {
			return update.Succeed(r, f, ".index")
		}, func() error {
			f, _ := update.Form(r)
			c.String(http.StatusOK, "name=%s", f.Value().Name)
			return nil
		})
		if err != nil {
			mixins.Abort(c, err)
		}
	}))

	w := serve(e, http.MethodPost, "/authors/new", "email=bad")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "name:[This field is required.]")

	w = serve(e, http.MethodPost, "/authors/new", "name=Ada&email=ada@example.com")
	assert.Equal(t, http.StatusFound, w.Code)
	var saved author
	require.NoError(t, db.First(&saved).Error)
	assert.Equal(t, "ada@example.com", saved.Email)

	w = serve(e, http.MethodGet, fmt.Sprintf("/authors/%d", saved.ID), "")
	assert.Equal(t, "name=Ada", w.Body.String())

	w = serve(e, http.MethodPost, fmt.Sprintf("/authors/%d", saved.ID), "name=Ada+Lovelace")
	assert.Equal(t, http.StatusFound, w.Code)
	require.NoError(t, db.First(&saved, saved.ID).Error)
	assert.Equal(t, "Ada Lovelace", saved.Name)
	assert.Equal(t, "ada@example.com", saved.Email)

	assert.Equal(t, []string{"Successfully created Ada", "Successfully updated Ada Lovelace"}, store.texts())

	w = serve(e, http.MethodGet, "/authors/42", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type contactForm struct {
	Email string `form:"email" binding:"required,email"`
}

type nameForm struct {
	Name string `form:"name" binding:"required"`
}

func TestUpdateModelMultiFormMixin(t *testing.T) {
	db := newDB(t)
	seedAuthors(t, db, 1)
	e, rt, store := newEngine(t)
	m := &UpdateModelMultiFormMixin[author]{
		BaseCreateUpdateMixin: BaseCreateUpdateMixin[author]{SingleObjectMixin[author]{ModelMixin: ModelMixin[author]{DB: db}}},
		MultiFormMixin: mixins.MultiFormMixin{Forms: []mixins.NamedForm{
			mixins.FormOf[nameForm]("Name", nil),
			mixins.FormOf[contactForm]("Contact", nil),
		}},
	}
	require.NoError(t, rt.Handle("edit", "/authors/:id/edit", []string{http.MethodGet, http.MethodPost}, func(c *gin.Context) {
		r := mixins.NewRequest(c, nil)
		if _, err := m.Prepare(r); err != nil {
			mixins.Abort(c, err)
			return
		}
		err := m.Dispatch(r, func(lf *mixins.LabeledForm) error {
			return m.Succeed(r, lf, ".index")
		}, func() error {
			all, _ := m.Instances(r)
			c.String(http.StatusOK, "%s", all[1].Form.Data().(*contactForm).Email)
			return nil
		})
		if err != nil {
			mixins.Abort(c, err)
		}
	}))

	w := serve(e, http.MethodGet, "/authors/1/edit", "")
	assert.Equal(t, "a1@example.com", w.Body.String())

	w = serve(e, http.MethodPost, "/authors/1/edit", "_form=contact&contact-email=new@example.com&name-name=ignored")
	assert.Equal(t, http.StatusFound, w.Code)

	var saved author
	require.NoError(t, db.First(&saved, 1).Error)
	assert.Equal(t, "new@example.com", saved.Email)
	assert.Equal(t, "author-01", saved.Name)
	assert.Equal(t, []string{"Successfully updated author-01"}, store.texts())
}
