package channel

import (
	"sync"

	"main/internal/model"

	"github.com/yanun0323/logs"
)

// Wildcard subscribes a handler to every dispatched envelope.
const Wildcard = "*"

// Handler receives a dispatched envelope.
type Handler func(ev model.Envelope)

type listener struct {
	id uint64
	fn Handler
}

// Registry maps event-type keys to ordered handler lists.
// Its lifetime is independent of the connection; subscriptions survive
// reconnects. Dispatch iterates a snapshot, so registration and removal
// during an in-progress dispatch never corrupt iteration.
type Registry struct {
	mu        sync.Mutex
	nextID    uint64
	listeners map[string][]listener
}

func NewRegistry() *Registry {
	return &Registry{listeners: make(map[string][]listener)}
}

// Subscribe appends fn to the list for eventType and returns its remover.
// The same handler may be registered multiple times and will then be invoked
// multiple times; the remover removes exactly its own registration and is
// a no-op once removed.
func (r *Registry) Subscribe(eventType string, fn Handler) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}

	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.listeners[eventType] = append(r.listeners[eventType], listener{id: id, fn: fn})
	r.mu.Unlock()

	return func() {
		r.remove(eventType, id)
	}
}

func (r *Registry) remove(eventType string, id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.listeners[eventType]
	for i, entry := range list {
		if entry.id != id {
			continue
		}
		list = append(list[:i:i], list[i+1:]...)
		if len(list) == 0 {
			delete(r.listeners, eventType)
		} else {
			r.listeners[eventType] = list
		}
		return
	}
}

// Dispatch invokes the handlers registered for ev.Type, then the wildcard
// handlers, each in registration order. A handler panic is isolated so the
// remaining handlers still run.
func (r *Registry) Dispatch(ev model.Envelope) {
	for _, entry := range r.snapshot(ev.Type) {
		invoke(entry, ev)
	}
	if ev.Type == Wildcard {
		return
	}
	for _, entry := range r.snapshot(Wildcard) {
		invoke(entry, ev)
	}
}

// Len returns the number of handlers registered for eventType.
func (r *Registry) Len(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners[eventType])
}

func (r *Registry) snapshot(eventType string) []listener {
	r.mu.Lock()
	list := r.listeners[eventType]
	if len(list) == 0 {
		r.mu.Unlock()
		return nil
	}
	snapshot := make([]listener, len(list))
	copy(snapshot, list)
	r.mu.Unlock()
	return snapshot
}

func invoke(entry listener, ev model.Envelope) {
	defer func() {
		if rec := recover(); rec != nil {
			logs.Errorf("listener panic on %q: %v", ev.Type, rec)
		}
	}()
	entry.fn(ev)
}
