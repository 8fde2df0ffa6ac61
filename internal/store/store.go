// Package store provides the id-keyed record stores shared by the execution
// and analysis engines. A single-process deployment uses the in-memory
// implementation; anything that satisfies Store can be injected instead.
package store

import (
	"errors"
	"sync"
)

// ErrNotFound is returned when no record exists under the requested id.
var ErrNotFound = errors.New("record not found")

// Store is an id-keyed registry. Entries are written once at creation and
// never mutated afterwards, so implementations only need to make individual
// operations safe for concurrent use.
type Store[T any] interface {
	Put(id string, record T)
	Get(id string) (T, error)
	List() []T
	Delete(id string) bool
	Clear()
	Len() int
}

// MemoryStore is a mutex-guarded in-memory Store.
type MemoryStore[T any] struct {
	mu      sync.RWMutex
	records map[string]T
	order   []string // insertion order, for stable listing
}

func NewMemoryStore[T any]() *MemoryStore[T] {
	return &MemoryStore[T]{records: make(map[string]T)}
}

func (s *MemoryStore[T]) Put(id string, record T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[id]; !exists {
		s.order = append(s.order, id)
	}
	s.records[id] = record
}

func (s *MemoryStore[T]) Get(id string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	return record, nil
}

// List returns all records in insertion order.
func (s *MemoryStore[T]) List() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, 0, len(s.records))
	for _, id := range s.order {
		if record, ok := s.records[id]; ok {
			out = append(out, record)
		}
	}
	return out
}

func (s *MemoryStore[T]) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return false
	}
	delete(s.records, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *MemoryStore[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]T)
	s.order = nil
}

func (s *MemoryStore[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
