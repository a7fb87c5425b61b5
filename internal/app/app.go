package app

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/thisissoon/velox"
	"github.com/thisissoon/velox/fields"
	"github.com/thisissoon/velox/flash"
	"github.com/thisissoon/velox/internal/clients/redis"
	"github.com/thisissoon/velox/internal/db"
	"github.com/thisissoon/velox/internal/domain"
	httpx "github.com/thisissoon/velox/internal/http"
	httpH "github.com/thisissoon/velox/internal/http/handlers"
	"github.com/thisissoon/velox/internal/observability"
	"github.com/thisissoon/velox/pkg/logger"
)

//go:embed templates
var templateFS embed.FS

type App struct {
	Log     *logger.Logger
	Cfg     Config
	DB      *db.Service
	Redis   *goredis.Client
	Storage fields.Storage
	Router  *gin.Engine
	Server  *httpx.Server

	otelShutdown func(context.Context) error
}

// New connects every dependency and builds the router. Close releases
// whatever New managed to open, also when New fails.
func New(ctx context.Context, log *logger.Logger, cfg Config) (*App, error) {
	a := &App{Log: logger.OrNop(log), Cfg: cfg}
	if err := a.init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	a.otelShutdown = observability.InitOTel(ctx, a.Log, a.Cfg.Otel)

	dbService, err := db.New(a.Cfg.DB, a.Log)
	if err != nil {
		return fmt.Errorf("init db: %w", err)
	}
	a.DB = dbService
	if err := a.DB.AutoMigrate(domain.Models()...); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	if a.Redis, err = redis.New(ctx, a.Cfg.Redis, a.Log); err != nil {
		return fmt.Errorf("init redis: %w", err)
	}

	store, err := a.flashStore()
	if err != nil {
		return err
	}
	if a.Storage, err = a.mediaStorage(ctx); err != nil {
		return err
	}
	if err := a.ping(ctx); err != nil {
		return err
	}

	routerCfg := httpx.RouterConfig{
		Log:           a.Log,
		CORSOrigins:   a.Cfg.CORSOrigins,
		Templates:     velox.New(velox.WithFS(templateFS, "templates/admin/*.html", "templates/site/*.html")),
		Flash:         store,
		HealthHandler: httpH.NewHealthHandler(a.checks()),
		Admin: NewAdmin(AdminDeps{
			Log:     a.Log,
			DB:      a.DB.DB(),
			Storage: a.Storage,
			Cfg:     a.Cfg,
		}),
		Site: Site(a.Log, a.DB.DB()),
	}
	if a.Cfg.Otel.Enabled {
		routerCfg.ServiceName = a.Cfg.Otel.ServiceName
	}
	if _, ok := a.Storage.(fields.DiskStorage); ok {
		routerCfg.MediaURL = a.Cfg.Media.URL
		routerCfg.MediaRoot = a.Cfg.Media.Root
	}
	if a.Router, err = httpx.NewRouter(routerCfg); err != nil {
		return fmt.Errorf("init router: %w", err)
	}
	a.Server = httpx.NewServer(a.Cfg.Addr, a.Router)
	return nil
}

func (a *App) flashStore() (flash.Store, error) {
	switch strings.ToLower(a.Cfg.Flash.Backend) {
	case "", "cookie":
		if a.Cfg.Flash.Secret == "" {
			return nil, errors.New("FLASH_SECRET is required for the cookie flash backend")
		}
		store, err := flash.NewCookieStore([]byte(a.Cfg.Flash.Secret))
		if err != nil {
			return nil, fmt.Errorf("init flash: %w", err)
		}
		return store, nil
	case "redis":
		if a.Redis == nil {
			return nil, errors.New("the redis flash backend needs REDIS_ADDR")
		}
		return flash.NewRedisStore(a.Redis), nil
	case "none":
		a.Log.Warn("flash messages disabled")
		return nil, nil
	}
	return nil, fmt.Errorf("unknown flash backend %q", a.Cfg.Flash.Backend)
}

func (a *App) mediaStorage(ctx context.Context) (fields.Storage, error) {
	if a.Cfg.Media.Bucket == "" {
		return fields.DiskStorage{}, nil
	}
	gcs, err := fields.NewGCSStorage(ctx, a.Cfg.Media.Bucket)
	if err != nil {
		return nil, fmt.Errorf("init media bucket: %w", err)
	}
	a.Log.Info("storing uploads in cloud storage", "bucket", a.Cfg.Media.Bucket)
	return gcs, nil
}

func (a *App) ping(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for name, check := range a.checks() {
		name, check := name, check
		g.Go(func() error {
			if err := check(gctx); err != nil {
				return fmt.Errorf("ping %s: %w", name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (a *App) checks() map[string]httpH.Check {
	checks := map[string]httpH.Check{"db": a.DB.Ping}
	if a.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.Redis.Ping(ctx).Err() }
	}
	return checks
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.Log.Info("listening", "addr", a.Cfg.Addr)
	return a.Server.Run(ctx)
}

func (a *App) Close() {
	if a.otelShutdown != nil {
		if err := a.otelShutdown(context.Background()); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	if c, ok := a.Storage.(io.Closer); ok {
		if err := c.Close(); err != nil {
			a.Log.Warn("media storage close failed", "error", err)
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Log.Warn("redis close failed", "error", err)
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Log.Warn("db close failed", "error", err)
		}
	}
}
