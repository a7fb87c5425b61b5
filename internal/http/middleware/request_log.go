package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/thisissoon/velox/pkg/logger"
	"github.com/thisissoon/velox/routing"
)

func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if log == nil {
			return
		}

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		fields := []interface{}{
			"method", strings.ToUpper(c.Request.Method),
			"path", path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if endpoint := routing.Endpoint(c); endpoint != "" {
			fields = append(fields, "endpoint", endpoint)
		}
		if id := c.GetString(TraceIDKey); id != "" {
			fields = append(fields, "trace_id", id)
		}
		if id := c.GetString(RequestIDKey); id != "" {
			fields = append(fields, "request_id", id)
		}

		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400:
			log.Warn("HTTP request", fields...)
		default:
			log.Info("HTTP request", fields...)
		}
	}
}
