package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the process configuration, read from the environment.
type Config struct {
	HTTPAddr        string        `env:"RALLY_HTTP_ADDR" envDefault:":8080"`
	RedisAddr       string        `env:"REDIS_CONNSTRING" envDefault:"localhost:6379"`
	SQLitePath      string        `env:"RALLY_SQLITE_PATH" envDefault:"./master.db"`
	OtelEndpoint    string        `env:"RALLY_OTEL_ENDPOINT" envDefault:"otel-collector:4317"`
	OtelEnabled     bool          `env:"RALLY_OTEL_ENABLED" envDefault:"true"`
	TraceStdout     bool          `env:"RALLY_TRACE_STDOUT" envDefault:"false"`
	SnapshotTTL     time.Duration `env:"RALLY_SNAPSHOT_TTL" envDefault:"24h"`
	LogLevel        slog.Level    `env:"RALLY_LOG_LEVEL" envDefault:"debug"`
	ShutdownTimeout time.Duration `env:"RALLY_SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// Load reads the configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.SnapshotTTL < 0 {
		return Config{}, fmt.Errorf("RALLY_SNAPSHOT_TTL must not be negative, got %s", cfg.SnapshotTTL)
	}
	return cfg, nil
}
