package notify

import (
	"slices"
	"sync"
)

type entry[H any] struct {
	id      uint64
	handler H
}

// registry is an append-ordered list of handlers. Dispatch iterates a copy,
// so removals during a pass only affect later passes.
type registry[H any] struct {
	mu      sync.Mutex
	nextID  uint64
	entries []entry[H]
}

func (r *registry[H]) add(h H) func() {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.entries = append(r.entries, entry[H]{id: id, handler: h})
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.remove(id)
		})
	}
}

func (r *registry[H]) remove(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, e := range r.entries {
		if e.id == id {
			r.entries = slices.Delete(r.entries, i, i+1)
			return
		}
	}
}

func (r *registry[H]) snapshot() []H {
	r.mu.Lock()
	defer r.mu.Unlock()

	handlers := make([]H, len(r.entries))
	for i, e := range r.entries {
		handlers[i] = e.handler
	}
	return handlers
}

func (r *registry[H]) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
