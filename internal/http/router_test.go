package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpH "github.com/thisissoon/velox/internal/http/handlers"
	"github.com/thisissoon/velox/pkg/logger"
	"github.com/thisissoon/velox/routing"
)

func TestNewRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r, err := NewRouter(RouterConfig{
		Log:           logger.Nop(),
		HealthHandler: httpH.NewHealthHandler(map[string]httpH.Check{"noop": func(context.Context) error { return nil }}),
		Site: func(rt *routing.Router) error {
			return rt.Handle("home", "/", nil, func(c *gin.Context) {
				url, err := routing.URLFor(c, "home", map[string]any{"q": "x"})
				require.NoError(t, err)
				c.String(http.StatusOK, url)
			})
		},
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "/?q=x", rec.Body.String())
}
