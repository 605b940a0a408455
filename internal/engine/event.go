package engine

import (
	"github.com/getsentry/sentry-go"
)

// ListenerID identifies a listener so it can be removed later.
type ListenerID uint64

// OnListenerPanic, when set, is called with the recovered value after a
// listener panics. The panic is also reported to the current Sentry hub.
var OnListenerPanic func(recovered any)

func guard(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			sentry.CurrentHub().Recover(r)
			if OnListenerPanic != nil {
				OnListenerPanic(r)
			}
		}
	}()
	fn()
}

type listener[F any] struct {
	id ListenerID
	fn F
}

// Event is a multi-cast event. Listeners run in registration order and a
// panicking listener does not stop the others.
type Event struct {
	listeners []listener[func()]
	next      ListenerID
}

// AddListener adds a callback to be invoked when the event fires
func (e *Event) AddListener(callback func()) ListenerID {
	if callback == nil {
		return 0
	}
	e.next++
	e.listeners = append(e.listeners, listener[func()]{id: e.next, fn: callback})
	return e.next
}

func (e *Event) RemoveListener(id ListenerID) {
	for i, l := range e.listeners {
		if l.id == id {
			e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
			return
		}
	}
}

func (e *Event) RemoveAllListeners() {
	e.listeners = nil
}

// Invoke calls all registered listeners. Listeners added or removed while
// invoking take effect on the next call.
func (e *Event) Invoke() {
	snapshot := e.listeners
	for _, l := range snapshot {
		guard(l.fn)
	}
}

func (e *Event) GetListenerCount() int {
	return len(e.listeners)
}

// EventWithArg is a generic event with one argument
type EventWithArg[T any] struct {
	listeners []listener[func(T)]
	next      ListenerID
}

func (e *EventWithArg[T]) AddListener(callback func(T)) ListenerID {
	if callback == nil {
		return 0
	}
	e.next++
	e.listeners = append(e.listeners, listener[func(T)]{id: e.next, fn: callback})
	return e.next
}

func (e *EventWithArg[T]) RemoveListener(id ListenerID) {
	for i, l := range e.listeners {
		if l.id == id {
			e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
			return
		}
	}
}

func (e *EventWithArg[T]) RemoveAllListeners() {
	e.listeners = nil
}

func (e *EventWithArg[T]) Invoke(arg T) {
	snapshot := e.listeners
	for _, l := range snapshot {
		fn := l.fn
		guard(func() { fn(arg) })
	}
}

func (e *EventWithArg[T]) GetListenerCount() int {
	return len(e.listeners)
}
