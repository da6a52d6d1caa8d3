// Package command определяет отложенные команды, которые любая горутина
// ставит в очередь единственного потребителя цикла выполнения.
//
// Команда создается производителем, помещается в очередь один раз,
// выполняется потребителем один раз и затем отбрасывается.
package command

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrMissingTarget означает, что у команды нет цели или функции.
	// Это не сбой: команда может пережить необходимость в ней.
	ErrMissingTarget = errors.New("у команды отсутствует цель или функция")

	// ErrInvalidCall означает нарушение контракта вызова: повторную отправку
	// блокирующей команды или выполнение, которого никто не ждет.
	ErrInvalidCall = errors.New("unexpected command call")
)

// Command — единица отложенной работы, выполняемая в горутине потребителя.
type Command interface {
	// Execute выполняет работу. Вызывается только потребителем, не более
	// одного раза. Ошибки обрабатываются внутри и не выходят наружу.
	Execute(ctx context.Context)

	// Type возвращает стабильную метку для диагностики и трассировки.
	Type() string
}

// Pusher — контракт очереди команд, потребляемый блокирующими командами.
type Pusher interface {
	// Push помещает команду в очередь. urgent может разбудить простаивающего
	// потребителя вне очереди таймера.
	Push(ctx context.Context, cmd Command, urgent bool) error
}

// Releaser реализуется командами, которые удерживают внешние ресурсы.
// Очередь вызывает Release сразу после Execute или при отказе в постановке.
type Releaser interface {
	Release()
}

// Identifiable реализуется командами с уникальным идентификатором.
type Identifiable interface {
	ID() string
}

// Metadatable определяет интерфейс для команд, которые могут нести метаданные.
type Metadatable interface {
	Metadata() map[string]string
}

// Base содержит общие для всех команд поля: идентификатор и метаданные
// для распространения контекста трассировки между производителем и потребителем.
type Base struct {
	id       string
	metadata map[string]string
}

// NewBase создает Base с новым идентификатором.
func NewBase() Base {
	return Base{
		id:       uuid.NewString(),
		metadata: make(map[string]string),
	}
}

// ID возвращает идентификатор команды.
func (b *Base) ID() string {
	return b.id
}

// Metadata возвращает метаданные команды.
func (b *Base) Metadata() map[string]string {
	return b.metadata
}
