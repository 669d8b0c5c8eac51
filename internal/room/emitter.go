package room

import "sync"

// Listener receives the payload of a named local event.
type Listener func(payload any)

// emitter is the coordinator's local event bus: named events fanned out to
// registered listeners, at-most-once per emission, no replay.
type emitter struct {
	mu        sync.RWMutex
	listeners map[string][]*listenerEntry
}

type listenerEntry struct {
	fn Listener
}

func newEmitter() *emitter {
	return &emitter{listeners: make(map[string][]*listenerEntry)}
}

// on registers a listener and returns its unsubscribe func. Unsubscribing
// twice is harmless.
func (e *emitter) on(event string, fn Listener) func() {
	entry := &listenerEntry{fn: fn}

	e.mu.Lock()
	e.listeners[event] = append(e.listeners[event], entry)
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		subs := e.listeners[event]
		for i, s := range subs {
			if s == entry {
				e.listeners[event] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}
}

// emit calls every listener registered for event, outside the registry lock
// so listeners may subscribe or unsubscribe reentrantly.
func (e *emitter) emit(event string, payload any) {
	e.mu.RLock()
	subs := e.listeners[event]
	snapshot := make([]*listenerEntry, len(subs))
	copy(snapshot, subs)
	e.mu.RUnlock()

	for _, s := range snapshot {
		s.fn(payload)
	}
}
