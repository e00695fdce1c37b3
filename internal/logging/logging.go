// Package logging provides the structured logger shared by the server,
// services and middleware.
package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger is a slog logger scoped to a component.
type Logger struct {
	*slog.Logger
	component string
}

// Config controls level, format and destination.
type Config struct {
	Level     string
	Format    string // json or text
	Output    io.Writer
	Component string
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New creates a logger from cfg.
func New(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	l := slog.New(handler)
	if cfg.Component != "" {
		l = l.With(slog.String("component", cfg.Component))
	}
	return &Logger{Logger: l, component: cfg.Component}
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *Logger {
	return New(Config{Output: io.Discard})
}

// Named returns a child logger for another component.
func (l *Logger) Named(component string) *Logger {
	return &Logger{
		Logger:    l.Logger.With(slog.String("component", component)),
		component: component,
	}
}

// WithError adds the error text.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return &Logger{
		Logger:    l.Logger.With(slog.String("error", err.Error())),
		component: l.component,
	}
}

// HTTPRequestLog records one served request.
func (l *Logger) HTTPRequestLog(method, path string, status int, duration time.Duration, clientIP string) {
	l.Logger.Info("HTTP request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("duration_ms", float64(duration.Microseconds())/1000),
		slog.String("client_ip", clientIP),
	)
}

// GinMiddleware logs every request after it completes.
func (l *Logger) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		l.HTTPRequestLog(c.Request.Method, path, c.Writer.Status(), time.Since(start), c.ClientIP())
	}
}
