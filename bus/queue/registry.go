package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Registry — потокобезопасный реестр очередей, по одной на владельца.
// Очередь создается лениво при первом обращении и уничтожается вместе
// с владельцем через Teardown. Реестр должен пережить всех производителей
// и потребителей его очередей.
type Registry struct {
	queues map[string]*Queue
	mu     sync.RWMutex
}

// NewRegistry создает новый экземпляр реестра очередей.
func NewRegistry() *Registry {
	return &Registry{
		queues: make(map[string]*Queue),
	}
}

// Queue возвращает очередь владельца owner, создавая ее при первом обращении.
// Опции применяются только при создании.
func (r *Registry) Queue(owner string, opts ...Option) (*Queue, error) {
	if owner == "" {
		return nil, fmt.Errorf("владелец очереди не может быть пустым")
	}

	r.mu.RLock()
	q, exists := r.queues[owner]
	r.mu.RUnlock()
	if exists {
		return q, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if q, exists := r.queues[owner]; exists {
		return q, nil
	}

	q = New(opts...)
	r.queues[owner] = q
	return q, nil
}

// Teardown закрывает очередь владельца и удаляет ее из реестра.
// Для неизвестного владельца ничего не делает.
func (r *Registry) Teardown(ctx context.Context, owner string) error {
	r.mu.Lock()
	q, exists := r.queues[owner]
	delete(r.queues, owner)
	r.mu.Unlock()

	if !exists {
		return nil
	}
	if err := q.Shutdown(ctx); err != nil {
		return fmt.Errorf("не удалось остановить очередь '%s': %w", owner, err)
	}
	return nil
}

// Shutdown корректно закрывает все очереди реестра.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	queues := r.queues
	r.queues = make(map[string]*Queue)
	r.mu.Unlock()

	var errs []error
	for owner, q := range queues {
		if err := q.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("не удалось остановить очередь '%s': %w", owner, err))
		}
	}
	return errors.Join(errs...)
}
