package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-reflect"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/x-research-team/dtx-runloop/bus/command"
)

const (
	instrumentationName    = "github.com/x-research-team/dtx-runloop/bus/queue"
	instrumentationVersion = "0.1.0"
	metricKeyPrefix        = "runloop."
)

// Middleware определяет интерфейс для middleware очереди команд.
type Middleware interface {
	Wrap(next Provider) Provider
}

// MiddlewareFunc является адаптером, позволяющим использовать обычные функции как middleware.
type MiddlewareFunc func(next Provider) Provider

// Wrap реализует интерфейс Middleware.
func (f MiddlewareFunc) Wrap(next Provider) Provider {
	return f(next)
}

// loggingMiddleware реализует Middleware для логирования операций с командами.
type loggingMiddleware struct {
	logger *slog.Logger
}

// NewLoggingMiddleware создает новое middleware для логирования.
func NewLoggingMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		return &noopMiddleware{}
	}
	return &loggingMiddleware{logger: logger}
}

// Wrap оборачивает провайдер для добавления логирования.
func (m *loggingMiddleware) Wrap(next Provider) Provider {
	return &loggingProvider{
		next:   next,
		logger: m.logger,
	}
}

// loggingProvider - это обертка над провайдером очереди, которая добавляет логирование.
type loggingProvider struct {
	next   Provider
	logger *slog.Logger
}

// Push логирует постановку команды.
func (p *loggingProvider) Push(ctx context.Context, cmd command.Command, urgent bool) error {
	cmdType, cmdID := commandTypeAndID(cmd)
	err := p.next.Push(ctx, cmd, urgent)
	if err != nil {
		p.logger.ErrorContext(ctx, "ошибка постановки команды в очередь",
			slog.String("command_type", cmdType),
			slog.String("command_id", cmdID),
			slog.Any("error", err),
		)
		return err
	}

	p.logger.DebugContext(ctx, "команда поставлена в очередь",
		slog.String("command_type", cmdType),
		slog.String("command_id", cmdID),
		slog.Bool("urgent", urgent),
	)
	return nil
}

// Execute логирует выполнение команды.
func (p *loggingProvider) Execute(ctx context.Context, cmd command.Command) error {
	cmdType, cmdID := commandTypeAndID(cmd)

	startTime := time.Now()
	err := p.next.Execute(ctx, cmd)
	duration := time.Since(startTime)

	if err != nil {
		p.logger.ErrorContext(ctx, "ошибка выполнения команды",
			slog.String("command_type", cmdType),
			slog.String("command_id", cmdID),
			slog.Any("error", err),
			slog.Duration("duration", duration),
		)
		return err
	}

	p.logger.DebugContext(ctx, "команда выполнена",
		slog.String("command_type", cmdType),
		slog.String("command_id", cmdID),
		slog.Duration("duration", duration),
	)
	return nil
}

// metricsMiddleware реализует Middleware для сбора метрик OpenTelemetry.
type metricsMiddleware struct {
	pushCounter         metric.Int64Counter
	executeCounter      metric.Int64Counter
	executeDurationHist metric.Float64Histogram
}

// NewMetricsMiddleware создает новое middleware для сбора метрик.
func NewMetricsMiddleware(provider metric.MeterProvider) Middleware {
	if provider == nil {
		return &noopMiddleware{}
	}

	meter := provider.Meter(instrumentationName)

	pushCounter, err := meter.Int64Counter(
		metricKeyPrefix+"push.count",
		metric.WithDescription("Количество команд, поставленных в очередь"),
		metric.WithUnit("{commands}"),
	)
	if err != nil {
		panic(fmt.Sprintf("не удалось создать счетчик push.count: %v", err))
	}

	executeCounter, err := meter.Int64Counter(
		metricKeyPrefix+"execute.count",
		metric.WithDescription("Количество выполненных команд"),
		metric.WithUnit("{commands}"),
	)
	if err != nil {
		panic(fmt.Sprintf("не удалось создать счетчик execute.count: %v", err))
	}

	executeDurationHist, err := meter.Float64Histogram(
		metricKeyPrefix+"execute.duration",
		metric.WithDescription("Длительность выполнения команды"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		panic(fmt.Sprintf("не удалось создать гистограмму execute.duration: %v", err))
	}

	return &metricsMiddleware{
		pushCounter:         pushCounter,
		executeCounter:      executeCounter,
		executeDurationHist: executeDurationHist,
	}
}

// Wrap оборачивает провайдер для добавления сбора метрик.
func (m *metricsMiddleware) Wrap(next Provider) Provider {
	return &metricsProvider{
		next:                next,
		pushCounter:         m.pushCounter,
		executeCounter:      m.executeCounter,
		executeDurationHist: m.executeDurationHist,
	}
}

// metricsProvider - это обертка над провайдером очереди, которая собирает метрики.
type metricsProvider struct {
	next                Provider
	pushCounter         metric.Int64Counter
	executeCounter      metric.Int64Counter
	executeDurationHist metric.Float64Histogram
}

// Push собирает метрики постановки команды.
func (p *metricsProvider) Push(ctx context.Context, cmd command.Command, urgent bool) error {
	err := p.next.Push(ctx, cmd, urgent)

	cmdType, _ := commandTypeAndID(cmd)
	p.pushCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("command.type", cmdType),
		attribute.Bool("urgent", urgent),
		attribute.String("status", status(err)),
	))

	return err
}

// Execute собирает метрики выполнения команды.
func (p *metricsProvider) Execute(ctx context.Context, cmd command.Command) error {
	startTime := time.Now()
	err := p.next.Execute(ctx, cmd)
	duration := float64(time.Since(startTime).Milliseconds())

	cmdType, _ := commandTypeAndID(cmd)
	attrs := metric.WithAttributes(
		attribute.String("command.type", cmdType),
		attribute.String("status", status(err)),
	)
	p.executeCounter.Add(ctx, 1, attrs)
	p.executeDurationHist.Record(ctx, duration, attrs)

	return err
}

// tracingMiddleware реализует Middleware для распределенной трассировки OpenTelemetry.
type tracingMiddleware struct {
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

// NewTracingMiddleware создает новое middleware для трассировки.
func NewTracingMiddleware(tp trace.TracerProvider, p propagation.TextMapPropagator) Middleware {
	if tp == nil {
		return &noopMiddleware{}
	}

	if p == nil {
		p = propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})
	}

	return &tracingMiddleware{
		tracer: tp.Tracer(
			instrumentationName,
			trace.WithInstrumentationVersion(instrumentationVersion),
		),
		propagator: p,
	}
}

// Wrap оборачивает провайдер для добавления логики трассировки.
func (m *tracingMiddleware) Wrap(next Provider) Provider {
	return &tracingProvider{
		next:       next,
		tracer:     m.tracer,
		propagator: m.propagator,
	}
}

// tracingProvider - это обертка над провайдером очереди, которая управляет спанами трассировки.
type tracingProvider struct {
	next       Provider
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

// Push создает спан производителя и инъецирует контекст трассировки в метаданные команды.
func (p *tracingProvider) Push(ctx context.Context, cmd command.Command, urgent bool) error {
	cmdType, cmdID := commandTypeAndID(cmd)

	ctx, span := p.tracer.Start(ctx, fmt.Sprintf("%s publish", cmdType),
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("command.id", cmdID),
			attribute.Bool("urgent", urgent),
		),
	)
	defer span.End()

	if md, ok := cmd.(command.Metadatable); ok && md.Metadata() != nil {
		p.propagator.Inject(ctx, propagation.MapCarrier(md.Metadata()))
	}

	err := p.next.Push(ctx, cmd, urgent)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// Execute извлекает контекст трассировки из метаданных команды и создает спан потребителя.
func (p *tracingProvider) Execute(ctx context.Context, cmd command.Command) error {
	if md, ok := cmd.(command.Metadatable); ok && md.Metadata() != nil {
		ctx = p.propagator.Extract(ctx, propagation.MapCarrier(md.Metadata()))
	}

	cmdType, cmdID := commandTypeAndID(cmd)
	ctx, span := p.tracer.Start(ctx, fmt.Sprintf("%s process", cmdType),
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(attribute.String("command.id", cmdID)),
	)
	defer span.End()

	err := p.next.Execute(ctx, cmd)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// applyMiddlewares применяет цепочку middleware к базовому провайдеру.
func applyMiddlewares(provider Provider, middlewares ...Middleware) Provider {
	p := provider
	for i := len(middlewares) - 1; i >= 0; i-- {
		p = middlewares[i].Wrap(p)
	}
	return p
}

// noopMiddleware представляет собой пустое middleware.
type noopMiddleware struct{}

// Wrap просто возвращает следующий провайдер без изменений.
func (m *noopMiddleware) Wrap(next Provider) Provider {
	return next
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// commandTypeAndID извлекает метку и идентификатор команды. Если метка пуста,
// используется имя типа команды.
func commandTypeAndID(cmd command.Command) (string, string) {
	cmdType := cmd.Type()
	if cmdType == "" {
		t := reflect.TypeOf(cmd)
		if t.Kind() == reflect.Ptr {
			t = t.Elem()
		}
		cmdType = t.Name()
	}

	cmdID := "unknown"
	if ident, ok := cmd.(command.Identifiable); ok {
		cmdID = ident.ID()
	}

	return cmdType, cmdID
}
