// Package resource описывает внешние ресурсы со счетчиком ссылок, время жизни
// которых продлевается командами, стоящими в очереди цикла выполнения.
//
// Сами ресурсы (сессия входного потока, сессия видеовывода, сессия аудиовывода)
// принадлежат внешним подсистемам. Пакету нужна лишь пара операций
// удержания и освобождения, которую подсистема предоставляет через Kind.
package resource

// Kind описывает вид ресурса: имя для диагностики и пару операций
// удержания/освобождения. Обе функции должны быть потокобезопасными и
// атомарными, так как вызываются из любых горутин.
type Kind[T any] struct {
	// Name — человекочитаемое имя вида ресурса, например "input".
	Name string
	// Hold увеличивает внешний счетчик ссылок ресурса.
	Hold func(ref *T)
	// Release уменьшает внешний счетчик ссылок ресурса.
	Release func(ref *T)
}

// Refcounter реализуется ресурсами, которые сами ведут счетчик ссылок.
type Refcounter interface {
	Hold()
	Release()
}

// KindOf возвращает Kind для типа, указатель на который реализует Refcounter.
func KindOf[T any, P interface {
	*T
	Refcounter
}](name string) Kind[T] {
	return Kind[T]{
		Name:    name,
		Hold:    func(ref *T) { P(ref).Hold() },
		Release: func(ref *T) { P(ref).Release() },
	}
}

// Предопределенные имена видов ресурсов цикла выполнения.
const (
	KindInput       = "input"
	KindVideoOutput = "video-output"
	KindAudioOutput = "audio-output"
)
