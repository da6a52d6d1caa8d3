package resource_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/x-research-team/dtx-runloop/bus/resource"
)

// Тестовая сессия с собственным счетчиком вызовов.
type session struct {
	holds    atomic.Int64
	releases atomic.Int64
}

func (s *session) Hold()    { s.holds.Add(1) }
func (s *session) Release() { s.releases.Add(1) }

// Тестовая сессия на базе Counted.
type countedSession struct {
	*resource.Counted
}

// Тест баланса удержаний и освобождений для ненулевой ссылки.
func TestHandle_HoldReleaseBalanced(t *testing.T) {
	t.Parallel()

	s := &session{}
	h := resource.NewHandle(resource.KindOf[session](resource.KindInput), s)

	assert.Equal(t, int64(1), s.holds.Load(), "Создание обертки должно удерживать ресурс ровно один раз")
	assert.Equal(t, int64(0), s.releases.Load())
	assert.Same(t, s, h.Get())
	assert.Equal(t, resource.KindInput, h.Kind().Name)

	h.Release()
	h.Release()

	assert.Equal(t, int64(1), s.holds.Load())
	assert.Equal(t, int64(1), s.releases.Load(), "Повторное освобождение не должно вызывать Release")
	assert.Nil(t, h.Get(), "После освобождения ссылка недоступна")
}

// Тест обертки над nil-ссылкой.
func TestHandle_NilReference(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	kind := resource.Kind[session]{
		Name:    resource.KindAudioOutput,
		Hold:    func(*session) { calls.Add(1) },
		Release: func(*session) { calls.Add(1) },
	}

	h := resource.NewHandle(kind, nil)
	assert.Nil(t, h.Get())
	h.Release()

	assert.Equal(t, int64(0), calls.Load(), "Для nil-ссылки не должно быть ни удержания, ни освобождения")
}

// Тест вида ресурса без пары операций.
func TestHandle_IncompleteKind(t *testing.T) {
	t.Parallel()

	var holds atomic.Int64
	kind := resource.Kind[session]{
		Name: resource.KindVideoOutput,
		Hold: func(*session) { holds.Add(1) },
	}

	h := resource.NewHandle(kind, &session{})
	h.Release()

	assert.Equal(t, int64(0), holds.Load(), "Без Release удержание не выполняется, чтобы пара оставалась сбалансированной")
}

// Тест конкурентного освобождения одной обертки.
func TestHandle_ConcurrentRelease(t *testing.T) {
	t.Parallel()

	s := &session{}
	h := resource.NewHandle(resource.KindOf[session](resource.KindInput), s)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Release()
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), s.releases.Load())
}

// Тест жизненного цикла Counted.
func TestCounted_Lifecycle(t *testing.T) {
	t.Parallel()

	var destroyed atomic.Int64
	cs := &countedSession{Counted: resource.NewCounted(func() { destroyed.Add(1) })}
	kind := resource.Kind[countedSession]{
		Name:    resource.KindInput,
		Hold:    func(s *countedSession) { s.Hold() },
		Release: func(s *countedSession) { s.Release() },
	}

	h := resource.NewHandle(kind, cs)
	require.Equal(t, int64(2), cs.Refs())

	// Владелец отпускает свою ссылку, ресурс жив за счет обертки.
	cs.Release()
	assert.False(t, cs.Destroyed())
	assert.Equal(t, int64(0), destroyed.Load())

	h.Release()
	assert.True(t, cs.Destroyed())
	assert.Equal(t, int64(1), destroyed.Load())

	assert.Panics(t, func() { cs.Hold() }, "Удержание уничтоженного ресурса должно паниковать")
}
