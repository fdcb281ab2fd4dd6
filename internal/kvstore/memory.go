package kvstore

import (
	"context"
	"sync"
)

type memoryStore struct {
	mu       sync.RWMutex
	data     map[string][]byte
	watchers map[int]func(Change)
	nextID   int
}

// NewMemory returns a process-local store. Several gamification stores sharing one memory
// store observe each other's writes through Watch, the way browser tabs share storage.
func NewMemory() Store {
	return &memoryStore{
		data:     make(map[string][]byte),
		watchers: make(map[int]func(Change)),
	}
}

func (s *memoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(value), nil
}

func (s *memoryStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	s.data[key] = clone(value)
	s.mu.Unlock()

	s.publish(Change{Key: key, Op: OpSet, Value: clone(value)})
	return nil
}

func (s *memoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	_, existed := s.data[key]
	delete(s.data, key)
	s.mu.Unlock()

	if existed {
		s.publish(Change{Key: key, Op: OpDelete})
	}
	return nil
}

func (s *memoryStore) Close() error {
	return nil
}

func (s *memoryStore) Watch(ctx context.Context, fn func(Change)) error {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = fn
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}()
	return nil
}

func (s *memoryStore) publish(change Change) {
	s.mu.RLock()
	fns := make([]func(Change), 0, len(s.watchers))
	for _, fn := range s.watchers {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(change)
	}
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
