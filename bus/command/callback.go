package command

import (
	"context"
	"log/slog"

	"github.com/x-research-team/dtx-runloop/bus/resource"
)

// Метки команд обратного вызова для фиксированного набора видов ресурсов.
const (
	LabelInputCallback       = resource.KindInput + " callback"
	LabelVideoOutputCallback = resource.KindVideoOutput + " callback"
	LabelAudioOutputCallback = resource.KindAudioOutput + " callback"
)

// CallbackFunc вызывается в горутине потребителя с контекстом диспетчеризации d,
// удерживаемым ресурсом target и значением value.
type CallbackFunc[D, T, V any] func(ctx context.Context, d D, target *T, value V)

// Callback — команда, вызывающая сохраненную функцию над удерживаемым
// ресурсом с сохраненным значением. Ресурс удерживается с момента создания
// команды и до Release, поэтому владелец не может уничтожить его, пока
// команда стоит в очереди или выполняется.
type Callback[D, T, V any] struct {
	Base
	dispatcher D
	target     *resource.Handle[T]
	value      V
	fn         CallbackFunc[D, T, V]
	label      string
	logger     *slog.Logger
}

// NewCallback создает команду обратного вызова. Пустая метка заменяется
// на "<вид ресурса> callback".
func NewCallback[D, T, V any](
	d D,
	kind resource.Kind[T],
	target *T,
	value V,
	fn CallbackFunc[D, T, V],
	label string,
	opts ...Option,
) *Callback[D, T, V] {
	cfg := newConfig(opts)
	if label == "" {
		label = kind.Name + " callback"
	}
	if cfg.label != "" {
		label = cfg.label
	}

	return &Callback[D, T, V]{
		Base:       NewBase(),
		dispatcher: d,
		target:     resource.NewHandle(kind, target),
		value:      value,
		fn:         fn,
		label:      label,
		logger:     cfg.logger,
	}
}

// Execute вызывает функцию с ресурсом и значением. Если ресурс или функция
// отсутствуют, команда ничего не делает.
func (c *Callback[D, T, V]) Execute(ctx context.Context) {
	target := c.target.Get()
	if target == nil || c.fn == nil {
		c.logger.DebugContext(ctx, "цель команды отсутствует",
			slog.String("command_type", c.label),
			slog.String("command_id", c.ID()),
			slog.Any("error", ErrMissingTarget),
		)
		return
	}

	c.fn(ctx, c.dispatcher, target, c.value)
}

// Type возвращает метку команды.
func (c *Callback[D, T, V]) Type() string {
	return c.label
}

// Release освобождает удерживаемый ресурс.
func (c *Callback[D, T, V]) Release() {
	c.target.Release()
}
