package resource

import "sync/atomic"

// Handle — тонкая обертка владения над ресурсом со счетчиком ссылок.
// При создании с ненулевой ссылкой выполняется ровно один Hold, при
// освобождении — ровно один Release. Для nil-ссылки не выполняется ни то, ни другое.
type Handle[T any] struct {
	ref      *T
	kind     Kind[T]
	held     bool
	released atomic.Bool
}

// NewHandle создает обертку и удерживает ресурс, если ссылка не nil.
func NewHandle[T any](kind Kind[T], ref *T) *Handle[T] {
	h := &Handle[T]{
		ref:  ref,
		kind: kind,
	}
	if ref != nil && kind.Hold != nil && kind.Release != nil {
		kind.Hold(ref)
		h.held = true
	}
	return h
}

// Get возвращает обернутую ссылку. После Release возвращает nil.
func (h *Handle[T]) Get() *T {
	if h == nil || h.released.Load() {
		return nil
	}
	return h.ref
}

// Kind возвращает вид обернутого ресурса.
func (h *Handle[T]) Kind() Kind[T] {
	return h.kind
}

// Release освобождает ресурс. Повторные вызовы ничего не делают.
func (h *Handle[T]) Release() {
	if h == nil || !h.released.CompareAndSwap(false, true) {
		return
	}
	if h.held {
		h.kind.Release(h.ref)
	}
}
