package http

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/thisissoon/velox"
	"github.com/thisissoon/velox/admin"
	"github.com/thisissoon/velox/flash"
	httpH "github.com/thisissoon/velox/internal/http/handlers"
	httpMW "github.com/thisissoon/velox/internal/http/middleware"
	"github.com/thisissoon/velox/pkg/logger"
	"github.com/thisissoon/velox/routing"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	CORSOrigins []string

	Templates *velox.Velox
	Flash     flash.Store

	HealthHandler *httpH.HealthHandler

	// MediaURL serves MediaRoot when both are set.
	MediaURL  string
	MediaRoot string

	Admin *admin.Index
	// Site registers the public views.
	Site func(rt *routing.Router) error
}

func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.CORSOrigins))
	if cfg.Flash != nil {
		r.Use(flash.Middleware(cfg.Flash))
	}

	tmpl := cfg.Templates
	if tmpl == nil {
		tmpl = velox.New()
	}
	if err := tmpl.InitApp(r); err != nil {
		return nil, fmt.Errorf("init templates: %w", err)
	}

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.HealthCheck)
	}

	// Media
	if cfg.MediaURL != "" && cfg.MediaRoot != "" {
		r.Static(cfg.MediaURL, cfg.MediaRoot)
	}

	rt := routing.New(r)
	if cfg.Admin != nil {
		if err := cfg.Admin.Register(rt); err != nil {
			return nil, fmt.Errorf("register admin: %w", err)
		}
	}
	if cfg.Site != nil {
		if err := cfg.Site(rt); err != nil {
			return nil, fmt.Errorf("register site: %w", err)
		}
	}
	return r, nil
}
