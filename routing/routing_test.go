package routing

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoView struct {
	target string
	params map[string]any
}

func (v *echoView) Methods() []string { return []string{http.MethodGet} }

func (v *echoView) Handle(c *gin.Context) {
	u, err := URLFor(c, v.target, v.params)
	if err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	c.String(http.StatusOK, u)
}

func TestRegistryBuild(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("author.update", "/admin/authors/:id/edit"))
	require.NoError(t, reg.Register("static", "/static/*filepath"))

	got, err := reg.Build("author.update", map[string]any{"id": 7, "next": "/x"})
	require.NoError(t, err)
	assert.Equal(t, "/admin/authors/7/edit?next=%2Fx", got)

	got, err = reg.Build("static", map[string]any{"filepath": "/css/site.css"})
	require.NoError(t, err)
	assert.Equal(t, "/static/css/site.css", got)

	_, err = reg.Build("author.update", nil)
	assert.True(t, errors.Is(err, ErrBuildURL))

	_, err = reg.Build("missing", nil)
	assert.True(t, errors.Is(err, ErrBuildURL))
}

func TestRegistryRejectsConflictingPatterns(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("index", "/"))
	require.NoError(t, reg.Register("index", "/"))
	assert.Error(t, reg.Register("index", "/other"))
	assert.Equal(t, []string{"index"}, reg.Endpoints())
}

func TestResolve(t *testing.T) {
	cases := []struct {
		current, endpoint, want string
	}{
		{"admin.author.create", ".index", "admin.author.index"},
		{"home", ".index", "index"},
		{"admin.author.create", "site.home", "site.home"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Resolve(tc.current, tc.endpoint))
	}
}

func TestURLForWithinBlueprint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	r := New(engine)

	authors := r.Group("admin.author", "/admin/authors")
	require.NoError(t, authors.Add("index", "/", &echoView{target: ".update", params: map[string]any{"id": 3}}))
	require.NoError(t, authors.Add("update", "/:id", &echoView{target: ".index"}))
	require.NoError(t, r.Add("home", "/", &echoView{target: "admin.author.index", params: map[string]any{"page": 2}}))

	cases := map[string]string{
		"/admin/authors/":  "/admin/authors/3",
		"/admin/authors/9": "/admin/authors/",
		"/":                "/admin/authors/?page=2",
	}
	for path, want := range cases {
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, want, rec.Body.String(), path)
	}
}

func TestURLForWithoutRegistry(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, err := URLFor(c, "index", nil)
	assert.True(t, errors.Is(err, ErrBuildURL))
}
