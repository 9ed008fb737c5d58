package queue

import (
	"sync"

	"github.com/keepsakehq/keepsake/core/internal/models"
)

// ChangeKind classifies a queue mutation.
type ChangeKind string

const (
	ChangeAdded   ChangeKind = "added"
	ChangeUpdated ChangeKind = "updated"
	ChangeRemoved ChangeKind = "removed"
)

// ChangeEvent notifies observers that the queue mutated. Events are ephemeral
// and delivered synchronously; they are never persisted.
type ChangeEvent struct {
	LocalID    string            `json:"local_id"`
	MemoryType models.MemoryType `json:"memory_type"`
	Kind       ChangeKind        `json:"kind"`
}

// observerRegistry fans change events out to subscribed callbacks. The store
// owns one registry; consumers get it injected rather than reaching for a
// global bus.
type observerRegistry struct {
	mu        sync.Mutex
	nextID    int
	observers map[int]func(ChangeEvent)
}

func newObserverRegistry() *observerRegistry {
	return &observerRegistry{observers: make(map[int]func(ChangeEvent))}
}

// subscribe registers fn and returns an unsubscribe func.
func (r *observerRegistry) subscribe(fn func(ChangeEvent)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	r.observers[id] = fn

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.observers, id)
	}
}

// emit delivers ev to every observer, synchronously, in registration order
// not guaranteed.
func (r *observerRegistry) emit(ev ChangeEvent) {
	r.mu.Lock()
	fns := make([]func(ChangeEvent), 0, len(r.observers))
	for _, fn := range r.observers {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
