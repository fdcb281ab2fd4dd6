package pubsub

import "sync"

// Hub fans a published value out to in-process subscribers. Handlers run synchronously on
// the publishing goroutine, outside the hub's lock, so they may subscribe or unsubscribe.
type Hub[T any] struct {
	topic string

	mu   sync.RWMutex
	next int
	subs map[int]func(T)
}

// NewHub returns an empty hub for topic.
func NewHub[T any](topic string) *Hub[T] {
	return &Hub[T]{topic: topic, subs: make(map[int]func(T))}
}

// Topic is the name the hub publishes under.
func (h *Hub[T]) Topic() string {
	return h.topic
}

// Subscribe registers fn and returns a function that removes it. Calling the returned
// function more than once is harmless.
func (h *Hub[T]) Subscribe(fn func(T)) func() {
	if fn == nil {
		return func() {}
	}
	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// Publish delivers value to every current subscriber.
func (h *Hub[T]) Publish(value T) {
	h.mu.RLock()
	fns := make([]func(T), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		fn(value)
	}
}

// Len reports the number of subscribers.
func (h *Hub[T]) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
