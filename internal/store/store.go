// Package store holds observable values that are replaced wholesale.
package store

import "sync"

// Observer is notified with the new value after every Set
type Observer[T any] func(value T)

// Store holds exactly one current value of T and notifies subscribers when
// it is replaced. Values are never merged or diffed.
type Store[T any] struct {
	mu        sync.Mutex
	value     T
	observers map[uint64]Observer[T]
	order     []uint64
	nextID    uint64
}

// New creates a store holding initial
func New[T any](initial T) *Store[T] {
	return &Store[T]{
		value:     initial,
		observers: make(map[uint64]Observer[T]),
	}
}

// Get returns the latest value
func (s *Store[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Set replaces the value and synchronously notifies every observer in
// subscription order. Concurrent Set calls are serialized, so observers
// always see replacements in the order they were applied.
func (s *Store[T]) Set(value T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.value = value
	for _, id := range s.order {
		if fn, ok := s.observers[id]; ok {
			fn(value)
		}
	}
}

// Subscribe registers fn and returns a function that removes it.
// fn must not call back into the store.
func (s *Store[T]) Subscribe(fn Observer[T]) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	s.order = append(s.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.observers, id)
			for i, v := range s.order {
				if v == id {
					s.order = append(s.order[:i], s.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Subscribers returns the number of registered observers
func (s *Store[T]) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.observers)
}
