package queue

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// DefaultPollInterval — период, с которым потребитель проверяет очередь,
// если его не разбудила срочная команда.
const DefaultPollInterval = 10 * time.Millisecond

// config содержит неэкспортируемую конфигурацию очереди.
type config struct {
	logger         *slog.Logger
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	propagator     propagation.TextMapPropagator
	middlewares    []Middleware
	pollInterval   time.Duration
	logLevel       slog.Leveler
}

// Option определяет тип для функциональных опций, которые изменяют конфигурацию очереди.
type Option func(*config)

// WithLogger возвращает опцию, которая устанавливает логгер для очереди.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithTracerProvider возвращает опцию, которая устанавливает провайдер трассировки.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(c *config) {
		c.tracerProvider = provider
	}
}

// WithMeterProvider возвращает опцию, которая устанавливает провайдер метрик.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(c *config) {
		c.meterProvider = provider
	}
}

// WithPropagator возвращает опцию, которая устанавливает механизм распространения
// контекста трассировки от производителя к потребителю.
func WithPropagator(propagator propagation.TextMapPropagator) Option {
	return func(c *config) {
		c.propagator = propagator
	}
}

// WithMiddleware возвращает опцию, которая добавляет один или несколько middleware в цепочку обработки.
func WithMiddleware(mw ...Middleware) Option {
	return func(c *config) {
		c.middlewares = append(c.middlewares, mw...)
	}
}

// WithPollInterval возвращает опцию, которая задает период опроса очереди потребителем.
// Неположительное значение заменяется на DefaultPollInterval.
func WithPollInterval(d time.Duration) Option {
	return func(c *config) {
		c.pollInterval = d
	}
}

// WithLogLevel возвращает опцию, которая задает минимальный уровень записей
// логгера очереди. Применяется поверх логгера из WithLogger.
func WithLogLevel(level slog.Leveler) Option {
	return func(c *config) {
		c.logLevel = level
	}
}

func newConfig(opts []Option) *config {
	cfg := &config{
		logger:       slog.Default(),
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.pollInterval <= 0 {
		cfg.pollInterval = DefaultPollInterval
	}
	if cfg.logLevel != nil {
		cfg.logger = slog.New(levelHandler{level: cfg.logLevel, Handler: cfg.logger.Handler()})
	}
	return cfg
}

// levelHandler отсекает записи ниже заданного уровня.
type levelHandler struct {
	slog.Handler
	level slog.Leveler
}

func (h levelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level.Level() && h.Handler.Enabled(ctx, level)
}

func (h levelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return levelHandler{Handler: h.Handler.WithAttrs(attrs), level: h.level}
}

func (h levelHandler) WithGroup(name string) slog.Handler {
	return levelHandler{Handler: h.Handler.WithGroup(name), level: h.level}
}
