package app

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/thisissoon/velox/internal/clients/redis"
	"github.com/thisissoon/velox/internal/db"
	"github.com/thisissoon/velox/internal/observability"
	"github.com/thisissoon/velox/internal/utils"
	"github.com/thisissoon/velox/pkg/logger"
)

// ConfigFileEnv names an optional YAML file overlaid on the environment.
const ConfigFileEnv = "VELOX_CONFIG"

type FlashConfig struct {
	// Backend is "cookie" or "redis".
	Backend string `yaml:"backend"`
	Secret  string `yaml:"secret"`
}

type MediaConfig struct {
	Root string `yaml:"root"`
	URL  string `yaml:"url"`
	// Bucket stores uploads in Cloud Storage instead of Root.
	Bucket string `yaml:"bucket"`
}

type AdminConfig struct {
	Name    string `yaml:"name"`
	PerPage int    `yaml:"per_page"`
}

type Config struct {
	Addr        string                   `yaml:"addr"`
	CORSOrigins []string                 `yaml:"cors_origins"`
	DB          db.Config                `yaml:"db"`
	Redis       redis.Config             `yaml:"redis"`
	Flash       FlashConfig              `yaml:"flash"`
	Media       MediaConfig              `yaml:"media"`
	Admin       AdminConfig              `yaml:"admin"`
	Otel        observability.OtelConfig `yaml:"otel"`
}

func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := Config{
		Addr: utils.GetEnv("VELOX_ADDR", ":8080", log),
		DB: db.Config{
			Driver:   utils.GetEnv("DB_DRIVER", "sqlite", log),
			Path:     utils.GetEnv("SQLITE_PATH", "velox.db", log),
			Host:     utils.GetEnv("POSTGRES_HOST", "localhost", log),
			Port:     utils.GetEnv("POSTGRES_PORT", "5432", log),
			User:     utils.GetEnv("POSTGRES_USER", "postgres", log),
			Password: utils.GetEnv("POSTGRES_PASSWORD", "", log),
			Name:     utils.GetEnv("POSTGRES_NAME", "velox", log),
			Debug:    utils.GetEnvAsBool("DB_DEBUG", false, log),
		},
		Redis: redis.Config{
			Addr:     utils.GetEnv("REDIS_ADDR", "", log),
			Password: utils.GetEnv("REDIS_PASSWORD", "", log),
			DB:       utils.GetEnvAsInt("REDIS_DB", 0, log),
		},
		Flash: FlashConfig{
			Backend: utils.GetEnv("FLASH_BACKEND", "cookie", log),
			Secret:  utils.GetEnv("FLASH_SECRET", "", log),
		},
		Media: MediaConfig{
			Root:   utils.GetEnv("MEDIA_ROOT", "media", log),
			URL:    utils.GetEnv("MEDIA_URL", "/media", log),
			Bucket: utils.GetEnv("MEDIA_BUCKET", "", log),
		},
		Admin: AdminConfig{
			Name:    utils.GetEnv("ADMIN_NAME", "Velox Admin", log),
			PerPage: utils.GetEnvAsInt("ADMIN_PER_PAGE", 20, log),
		},
		Otel: observability.OtelConfig{
			Enabled:     utils.GetEnvAsBool("OTEL_ENABLED", false, log),
			ServiceName: utils.GetEnv("OTEL_SERVICE_NAME", "velox-demo", log),
			Environment: utils.GetEnv("VELOX_ENV", "development", log),
			Endpoint:    utils.GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "", log),
			Insecure:    utils.GetEnvAsBool("OTEL_EXPORTER_OTLP_INSECURE", false, log),
			Headers:     observability.ParseHeaders(utils.GetEnv("OTEL_EXPORTER_OTLP_HEADERS", "", log)),
		},
	}
	if origins := utils.GetEnv("CORS_ORIGINS", "", log); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}

	if path := utils.GetEnv(ConfigFileEnv, "", log); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	return cfg, nil
}
