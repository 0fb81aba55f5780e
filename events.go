package wspulse

import (
	"sync"
)

// EventType labels a session lifecycle transition.
type EventType uint8

const (
	EventConnected EventType = iota + 1
	EventReconnecting
	EventDisconnected
	EventTerminated
)

func (e EventType) String() string {
	switch e {
	case EventConnected:
		return "connected"
	case EventReconnecting:
		return "reconnecting"
	case EventDisconnected:
		return "disconnected"
	case EventTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Event is the payload delivered to lifecycle listeners.
type Event struct {
	Type    EventType
	State   SessionState
	Attempt int
	Err     error
}

type callback[T any] func(T)

// EventEmitter maps events (of type K) to listener callbacks invoked
// synchronously on Emit.
type EventEmitter[K comparable, V any] struct {
	listeners map[K][]callback[V]
	lock      sync.RWMutex
}

func NewEventEmitter[K comparable, V any]() *EventEmitter[K, V] {
	return &EventEmitter[K, V]{
		listeners: make(map[K][]callback[V]),
	}
}

// On registers a new listener for the given event.
func (e *EventEmitter[K, V]) On(event K, listener func(V)) {
	e.lock.Lock()
	defer e.lock.Unlock()

	e.listeners[event] = append(e.listeners[event], listener)
}

// Emit triggers all listeners registered for the given event synchronously.
// The method returns once every listener has run.
func (e *EventEmitter[K, V]) Emit(event K, data V) {
	e.lock.RLock()
	defer e.lock.RUnlock()

	listeners, found := e.listeners[event]
	if !found {
		return
	}

	for _, listener := range listeners {
		listener(data)
	}
}

// Close removes all listeners to prevent leaks. Emit after Close is a no-op.
func (e *EventEmitter[K, V]) Close() {
	e.lock.Lock()
	defer e.lock.Unlock()

	e.listeners = make(map[K][]callback[V])
}
