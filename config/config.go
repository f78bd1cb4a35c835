// Package config loads folio settings from the environment.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Page box used when the style sheets set no @page size or margin.
	PageWidth  float64
	PageHeight float64
	PageMargin float64

	MaxPages int

	// Logging
	LogLevel  string
	LogFormat string

	// HTTP server
	Addr           string
	MaxUploadBytes int64
	RenderTimeout  time.Duration
	AllowScripts   bool
}

func Load() Config {
	cfg := Config{
		PageWidth:  envFloat("FOLIO_PAGE_WIDTH", 559.37),
		PageHeight: envFloat("FOLIO_PAGE_HEIGHT", 793.7),
		PageMargin: envFloat("FOLIO_PAGE_MARGIN", 72),

		MaxPages: envInt("FOLIO_MAX_PAGES", 500),

		LogLevel:  strings.ToLower(envOr("FOLIO_LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(envOr("FOLIO_LOG_FORMAT", "text")),

		Addr:           envOr("FOLIO_ADDR", ":8095"),
		MaxUploadBytes: envInt64("FOLIO_MAX_UPLOAD_BYTES", 10<<20), // 10MB
		RenderTimeout:  envDuration("FOLIO_RENDER_TIMEOUT", 30*time.Second),
		AllowScripts:   envBool("FOLIO_ALLOW_SCRIPTS", false),
	}

	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 500
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	if cfg.RenderTimeout <= 0 {
		cfg.RenderTimeout = 30 * time.Second
	}

	return cfg
}

var levels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func (c Config) Validate() error {
	if c.PageWidth <= 0 || c.PageHeight <= 0 {
		return fmt.Errorf("page size %vx%v must be positive", c.PageWidth, c.PageHeight)
	}
	if c.PageMargin < 0 || 2*c.PageMargin >= min(c.PageWidth, c.PageHeight) {
		return fmt.Errorf("page margin %v leaves no page area", c.PageMargin)
	}
	if _, ok := levels[c.LogLevel]; !ok {
		return fmt.Errorf("FOLIO_LOG_LEVEL %q is not one of debug, info, warn, error", c.LogLevel)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("FOLIO_LOG_FORMAT %q is not text or json", c.LogFormat)
	}
	return nil
}

// Logger builds the logger described by the configuration, writing to w.
func (c Config) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: levels[c.LogLevel]}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
