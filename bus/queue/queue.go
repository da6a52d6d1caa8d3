// Package queue реализует очередь команд цикла выполнения: неограниченную
// FIFO, в которую любые горутины помещают команды и из которой единственный
// потребитель извлекает и выполняет их строго по одной.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-reflect"

	"github.com/x-research-team/dtx-runloop/bus/command"
)

var (
	// ErrQueueClosed возвращается при постановке команды в закрытую очередь.
	ErrQueueClosed = errors.New("очередь команд закрыта")

	// ErrConsumerRunning возвращается при попытке запустить второго потребителя.
	ErrConsumerRunning = errors.New("потребитель очереди уже запущен")

	errNilCommand = errors.New("команда не может быть nil")
)

// Queue — очередь команд одного владельца.
//
// Push потокобезопасен и сохраняет порядок команд одного производителя.
// Run — цикл единственного потребителя: он извлекает команды в порядке
// поступления и вызывает Execute в своей горутине, никогда не параллельно.
// Очередь должна пережить всех производителей и потребителя, которые на нее
// ссылаются; Shutdown выполняет оставшиеся команды и закрывает очередь.
//
// Из горутины потребителя, то есть из Execute команды, нельзя вызывать
// блокирующую отправку в ту же очередь и Shutdown: потребитель ждал бы сам себя.
type Queue struct {
	provider Provider
	cfg      *config

	mu     sync.Mutex
	items  []command.Command
	closed bool

	wake      chan struct{}
	closing   chan struct{}
	stopped   chan struct{}
	running   atomic.Bool
	closeOnce sync.Once
}

// New создает очередь с цепочкой middleware: логирование, метрики,
// трассировка и пользовательские middleware.
func New(opts ...Option) *Queue {
	cfg := newConfig(opts)

	q := &Queue{
		cfg:     cfg,
		wake:    make(chan struct{}, 1),
		closing: make(chan struct{}),
		stopped: make(chan struct{}),
	}

	allMiddlewares := []Middleware{
		NewLoggingMiddleware(cfg.logger),
		NewMetricsMiddleware(cfg.meterProvider),
		NewTracingMiddleware(cfg.tracerProvider, cfg.propagator),
	}
	allMiddlewares = append(allMiddlewares, cfg.middlewares...)
	q.provider = applyMiddlewares(&localProvider{q: q}, allMiddlewares...)

	return q
}

// Push помещает команду в очередь. Срочная команда будит простаивающего
// потребителя немедленно, остальные забираются по таймеру опроса.
// Если команда не принята, ее ресурсы освобождаются.
func (q *Queue) Push(ctx context.Context, cmd command.Command, urgent bool) error {
	if isNil(cmd) {
		return errNilCommand
	}
	if err := q.provider.Push(ctx, cmd, urgent); err != nil {
		release(cmd)
		return err
	}
	return nil
}

// Len возвращает число команд, ожидающих выполнения.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Run запускает цикл потребителя и блокируется до остановки очереди
// через Shutdown или отмены ctx. Отмена ctx закрывает очередь. Перед
// возвратом выполняются все команды, оставшиеся в очереди. Очередь
// допускает единственный запуск Run; после закрытия Run возвращает
// ErrQueueClosed.
func (q *Queue) Run(ctx context.Context) error {
	if !q.running.CompareAndSwap(false, true) {
		if q.isClosed() {
			return ErrQueueClosed
		}
		return ErrConsumerRunning
	}
	defer close(q.stopped)

	ticker := time.NewTicker(q.cfg.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			q.close()
			q.drain(context.WithoutCancel(ctx))
			return ctx.Err()
		case <-q.closing:
			q.drain(ctx)
			return nil
		case <-q.wake:
			q.drain(ctx)
		case <-ticker.C:
			q.drain(ctx)
		}
	}
}

// Shutdown закрывает очередь для новых команд и дожидается, пока потребитель
// выполнит оставшиеся. Если потребитель не запускался, оставшиеся команды
// выполняются в вызывающей горутине, чтобы освободить ждущих производителей.
//
// Вызов из горутины потребителя возвращает управление только по истечении ctx.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.close()

	if q.running.CompareAndSwap(false, true) {
		q.drain(ctx)
		close(q.stopped)
		return nil
	}

	select {
	case <-q.stopped:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("ожидание остановки потребителя: %w", ctx.Err())
	}
}

// close запрещает постановку новых команд.
func (q *Queue) close() {
	q.closeOnce.Do(func() {
		q.mu.Lock()
		q.closed = true
		q.mu.Unlock()
		close(q.closing)
	})
}

func (q *Queue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// enqueue добавляет команду в хвост очереди.
func (q *Queue) enqueue(cmd command.Command, urgent bool) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.items = append(q.items, cmd)
	q.mu.Unlock()

	if urgent {
		select {
		case q.wake <- struct{}{}:
		default:
		}
	}
	return nil
}

// pop извлекает команду из головы очереди.
func (q *Queue) pop() (command.Command, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, false
	}
	cmd := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return cmd, true
}

// drain выполняет команды, пока очередь не опустеет.
func (q *Queue) drain(ctx context.Context) {
	for {
		cmd, ok := q.pop()
		if !ok {
			return
		}
		// Ошибка уже записана middleware логирования.
		_ = q.provider.Execute(ctx, cmd)
	}
}

// isNil распознает и nil-интерфейс, и типизированный nil-указатель.
func isNil(cmd command.Command) bool {
	if cmd == nil {
		return true
	}
	v := reflect.ValueOf(cmd)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}
