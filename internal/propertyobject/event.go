package propertyobject

import (
	"sync"

	"github.com/openDAQ/openDAQ-sub004/internal/property"
	"github.com/openDAQ/openDAQ-sub004/internal/value"
)

// ChangeKind tells write handlers what happened to a value.
type ChangeKind int

// Change kinds.
const (
	ChangeUpdate ChangeKind = iota
	ChangeClear
	ChangeRead
)

// String returns the kind name.
func (k ChangeKind) String() string {
	switch k {
	case ChangeUpdate:
		return "update"
	case ChangeClear:
		return "clear"
	case ChangeRead:
		return "read"
	}
	return "unknown"
}

// PropertyValueEventArgs is passed to read and write handlers. Handlers
// may replace the value: for writes the replacement is stored, for reads
// it is returned to the caller.
type PropertyValueEventArgs struct {
	Property   *property.Property
	Kind       ChangeKind
	IsUpdating bool

	value    any
	replaced bool
}

// Value returns the value being written or read. It is nil for clears.
func (a *PropertyValueEventArgs) Value() any { return a.value }

// SetValue replaces the value.
func (a *PropertyValueEventArgs) SetValue(v any) {
	a.value = value.Normalize(v)
	a.replaced = true
}

// EndUpdateEventArgs is passed to end-of-update handlers.
type EndUpdateEventArgs struct {
	// Properties lists the properties changed by the transaction in the
	// order they first changed.
	Properties []string
	// Values maps each changed property to its final value.
	Values *value.Dict
	// ParentUpdating is set when the transaction ended as part of the
	// owning object's transaction.
	ParentUpdating bool
}

// Handler receives events raised by an object.
type Handler[T any] func(sender *Object, args T)

// HandlerID identifies a subscription for removal.
type HandlerID uint64

type handlerEntry[T any] struct {
	id HandlerID
	fn Handler[T]
}

// Event is a list of handlers. Handlers run synchronously on the
// goroutine that raised the event, in subscription order.
type Event[T any] struct {
	mu       sync.Mutex
	handlers []handlerEntry[T]
	nextID   HandlerID
	muted    bool
}

func newEvent[T any]() *Event[T] { return &Event[T]{} }

// Add subscribes fn.
func (e *Event[T]) Add(fn Handler[T]) HandlerID {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	e.handlers = append(e.handlers, handlerEntry[T]{id: e.nextID, fn: fn})
	return e.nextID
}

// Remove unsubscribes id and reports whether it was subscribed.
func (e *Event[T]) Remove(id HandlerID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, h := range e.handlers {
		if h.id == id {
			e.handlers = append(e.handlers[:i], e.handlers[i+1:]...)
			return true
		}
	}
	return false
}

// Clear removes every handler.
func (e *Event[T]) Clear() {
	e.mu.Lock()
	e.handlers = nil
	e.mu.Unlock()
}

// Mute suppresses delivery until Unmute.
func (e *Event[T]) Mute() {
	e.mu.Lock()
	e.muted = true
	e.mu.Unlock()
}

// Unmute resumes delivery.
func (e *Event[T]) Unmute() {
	e.mu.Lock()
	e.muted = false
	e.mu.Unlock()
}

// Len returns the number of handlers.
func (e *Event[T]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.handlers)
}

func (e *Event[T]) trigger(sender *Object, args T) {
	e.mu.Lock()
	if e.muted || len(e.handlers) == 0 {
		e.mu.Unlock()
		return
	}
	handlers := append([]handlerEntry[T](nil), e.handlers...)
	e.mu.Unlock()

	for _, h := range handlers {
		h.fn(sender, args)
	}
}

// clone copies the subscriptions so they fire on a cloned object too.
func (e *Event[T]) clone() *Event[T] {
	e.mu.Lock()
	defer e.mu.Unlock()
	return &Event[T]{
		handlers: append([]handlerEntry[T](nil), e.handlers...),
		nextID:   e.nextID,
		muted:    e.muted,
	}
}
