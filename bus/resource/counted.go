package resource

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Counted — потокобезопасный счетчик ссылок, который подсистемы встраивают
// в свои сессии. Владелец создает объект с одной ссылкой; когда счетчик
// падает до нуля, вызывается onDestroy и объект считается уничтоженным.
type Counted struct {
	refs      atomic.Int64
	destroyed atomic.Bool
	once      sync.Once
	onDestroy func()
}

// NewCounted создает счетчик с одной ссылкой, принадлежащей владельцу.
func NewCounted(onDestroy func()) *Counted {
	c := &Counted{onDestroy: onDestroy}
	c.refs.Store(1)
	return c
}

// Hold увеличивает счетчик ссылок. Удержание уже уничтоженного ресурса —
// нарушение контракта владельца и приводит к панике.
func (c *Counted) Hold() {
	for {
		n := c.refs.Load()
		if n <= 0 {
			panic(fmt.Sprintf("resource: удержание уничтоженного ресурса (refs=%d)", n))
		}
		if c.refs.CompareAndSwap(n, n+1) {
			return
		}
	}
}

// Release уменьшает счетчик ссылок и уничтожает ресурс на последней ссылке.
func (c *Counted) Release() {
	n := c.refs.Add(-1)
	switch {
	case n == 0:
		c.once.Do(func() {
			c.destroyed.Store(true)
			if c.onDestroy != nil {
				c.onDestroy()
			}
		})
	case n < 0:
		panic("resource: освобождение без парного удержания")
	}
}

// Refs возвращает текущее значение счетчика ссылок.
func (c *Counted) Refs() int64 {
	return c.refs.Load()
}

// Destroyed сообщает, был ли ресурс уничтожен.
func (c *Counted) Destroyed() bool {
	return c.destroyed.Load()
}
