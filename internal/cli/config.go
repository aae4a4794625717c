package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds settings read from the environment. Command-line flags
// override them.
type Config struct {
	Database    string `env:"PROMO_DB"           envDefault:"promotions.db"`
	MaxPasses   int    `env:"PROMO_MAX_PASSES"   envDefault:"999"`
	LogLevel    string `env:"PROMO_LOG_LEVEL"    envDefault:"info"`
	MetricsAddr string `env:"PROMO_METRICS_ADDR"`
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// ParseLogLevel maps debug|info|warn|error to a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: must be debug, info, warn or error", s)
	}
	return level, nil
}

// configureLogging installs a text handler on w as the default logger.
// Verbose forces debug level.
func configureLogging(w io.Writer, level slog.Level, verbose bool) {
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}
