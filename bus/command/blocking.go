package command

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/goccy/go-reflect"
)

// LabelBlockingDispatch — метка блокирующей команды по умолчанию.
const LabelBlockingDispatch = "blocking dispatch"

// BlockingFunc вызывается в горутине потребителя, пока производитель ждет.
type BlockingFunc[D, T any] func(ctx context.Context, d D, target *T)

// Blocking — команда-рандеву: производитель ставит ее в очередь и блокируется,
// пока потребитель не выполнит функцию.
//
// Состояния: Idle -> SubmitAndWait -> Waiting -> Execute -> Idle.
// Одновременно ждать может не более одного производителя. Повторная отправка
// в состоянии Waiting и выполнение в состоянии Idle отклоняются с ErrInvalidCall,
// записью в лог и без изменения состояния.
//
// Экземпляр не переиспользуется: после возврата из SubmitAndWait его
// следует отбросить.
type Blocking[D, T any] struct {
	Base
	dispatcher D
	target     *T
	fn         BlockingFunc[D, T]
	label      string
	logger     *slog.Logger

	// mu защищает только done: канал существует, пока производитель ждет.
	mu   sync.Mutex
	done chan struct{}
}

// NewBlocking создает блокирующую команду в состоянии Idle.
func NewBlocking[D, T any](d D, target *T, fn BlockingFunc[D, T], opts ...Option) *Blocking[D, T] {
	cfg := newConfig(opts)
	label := cfg.label
	if label == "" {
		label = LabelBlockingDispatch
	}

	return &Blocking[D, T]{
		Base:       NewBase(),
		dispatcher: d,
		target:     target,
		fn:         fn,
		label:      label,
		logger:     cfg.logger,
	}
}

// SubmitAndWait помещает команду в очередь q и блокирует вызывающую горутину
// до выполнения команды потребителем. Отмены и таймаута нет: потребитель
// должен быть жив и рано или поздно опустошить очередь.
//
// Ошибки вызова, включая панику при постановке, записываются в лог
// и не возвращаются.
//
// Вызов из горутины потребителя той же очереди никогда не вернется.
func (b *Blocking[D, T]) SubmitAndWait(ctx context.Context, q Pusher) {
	done, ok := b.submit(ctx, q)
	if !ok {
		return
	}
	<-done
}

// submit переводит команду в Waiting и ставит ее в очередь.
// При любой неудаче состояние возвращается в Idle.
func (b *Blocking[D, T]) submit(ctx context.Context, q Pusher) (done chan struct{}, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if q == nil || b.target == nil || b.fn == nil || b.done != nil {
		b.logInvalidCall(ctx, "submit")
		return nil, false
	}

	done = make(chan struct{})
	b.done = done

	defer func() {
		if r := recover(); r != nil {
			b.done = nil
			done, ok = nil, false
			b.logPushFailure(ctx, fmt.Errorf("паника при постановке в очередь: %v", r))
		}
	}()

	if err := q.Push(ctx, b, false); err != nil {
		b.done = nil
		b.logPushFailure(ctx, err)
		return nil, false
	}
	return done, true
}

func (b *Blocking[D, T]) logPushFailure(ctx context.Context, err error) {
	b.logger.ErrorContext(ctx, "не удалось поставить блокирующую команду в очередь",
		slog.String("command_type", b.label),
		slog.String("command_id", b.ID()),
		slog.Any("error", err),
	)
}

// Execute вызывает функцию и будит ожидающего производителя.
// Вызов без ожидающего производителя отклоняется.
func (b *Blocking[D, T]) Execute(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.target == nil || b.fn == nil || b.done == nil {
		b.logInvalidCall(ctx, "execute")
		return
	}

	// Производитель будится и при панике в fn.
	defer func() {
		close(b.done)
		b.done = nil
	}()

	b.fn(ctx, b.dispatcher, b.target)
}

// Type возвращает метку команды.
func (b *Blocking[D, T]) Type() string {
	return b.label
}

// Waiting сообщает, ждет ли производитель выполнения команды.
func (b *Blocking[D, T]) Waiting() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.done != nil
}

func (b *Blocking[D, T]) logInvalidCall(ctx context.Context, op string) {
	b.logger.ErrorContext(ctx, ErrInvalidCall.Error(),
		slog.String("command_type", b.label),
		slog.String("command_id", b.ID()),
		slog.String("operation", op),
		slog.String("handler_name", funcName(b.fn)),
		slog.Any("error", fmt.Errorf("%s: %w", op, ErrInvalidCall)),
	)
}

// funcName извлекает имя функции для диагностики.
func funcName(fn any) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return "<nil>"
	}
	if f := runtime.FuncForPC(v.Pointer()); f != nil {
		return f.Name()
	}
	return v.Type().String()
}
