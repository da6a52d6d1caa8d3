package queue

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config — настройки очереди, загружаемые из переменных окружения.
type Config struct {
	PollInterval time.Duration `env:"DTX_RUNLOOP_POLL_INTERVAL" envDefault:"10ms"`
	LogLevel     slog.Level    `env:"DTX_RUNLOOP_LOG_LEVEL" envDefault:"INFO"`
}

// LoadConfig загружает конфигурацию из переменных окружения.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.PollInterval <= 0 {
		return Config{}, fmt.Errorf("DTX_RUNLOOP_POLL_INTERVAL должен быть положительным, получено %s", cfg.PollInterval)
	}
	return cfg, nil
}

// Options преобразует конфигурацию в опции очереди.
func (c Config) Options() []Option {
	return []Option{
		WithPollInterval(c.PollInterval),
		WithLogLevel(c.LogLevel),
	}
}
