package command

import "log/slog"

// config содержит неэкспортируемую конфигурацию команды.
type config struct {
	logger *slog.Logger
	label  string
}

// Option определяет тип для функциональных опций, которые изменяют конфигурацию команды.
type Option func(*config)

// WithLogger возвращает опцию, которая устанавливает логгер для диагностики команды.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithLabel возвращает опцию, которая переопределяет метку типа команды.
func WithLabel(label string) Option {
	return func(c *config) {
		c.label = label
	}
}

func newConfig(opts []Option) *config {
	cfg := &config{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	return cfg
}
