package queue

import (
	"context"
	"fmt"

	"github.com/x-research-team/dtx-runloop/bus/command"
)

// Provider определяет контракт конвейера очереди: постановку команды
// производителем и ее выполнение потребителем. Middleware оборачивают Provider.
type Provider interface {
	// Push помещает команду в очередь.
	Push(ctx context.Context, cmd command.Command, urgent bool) error

	// Execute выполняет команду в горутине потребителя. Ошибка возвращается
	// только для паники, перехваченной при выполнении.
	Execute(ctx context.Context, cmd command.Command) error
}

// localProvider — внутрипроцессная реализация Provider поверх FIFO очереди.
type localProvider struct {
	q *Queue
}

// Push добавляет команду в хвост очереди.
func (p *localProvider) Push(ctx context.Context, cmd command.Command, urgent bool) error {
	return p.q.enqueue(cmd, urgent)
}

// Execute выполняет команду, перехватывает панику и освобождает ресурсы команды.
func (p *localProvider) Execute(ctx context.Context, cmd command.Command) (err error) {
	defer release(cmd)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("паника при выполнении команды '%s': %v", cmd.Type(), r)
		}
	}()

	cmd.Execute(ctx)
	return nil
}

// release освобождает ресурсы команды, если она их удерживает.
func release(cmd command.Command) {
	if r, ok := cmd.(command.Releaser); ok {
		r.Release()
	}
}
