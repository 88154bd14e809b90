// Package formstate holds the single fieldId→value mapping that the rest of
// the engine reads and writes. The store is the sole source of truth for
// visibility checks, validation scoring, and formula recomputation.
package formstate

import (
	"reflect"
	"strings"
	"sync"
)

// Change is a batched set of field writes applied atomically. Consumers never
// observe a partially applied batch.
type Change map[string]any

// Listener receives each applied batch.
type Listener func(Change)

// Store owns the form values. Ordinary edits come from a single owner, but
// async option fetches reconcile through ApplyBatch from their own
// goroutines, so access is serialized internally.
type Store struct {
	mu        sync.RWMutex
	values    map[string]any
	listeners map[int]Listener
	nextID    int
	closed    bool
}

// New builds a store seeded with the given values. The seed map is copied.
func New(seed map[string]any) *Store {
	values := make(map[string]any, len(seed))
	for k, v := range seed {
		values[k] = v
	}
	return &Store{
		values:    values,
		listeners: make(map[int]Listener),
	}
}

// Get returns the stored value for a field.
func (s *Store) Get(fieldID string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[fieldID]
	return v, ok
}

// Snapshot returns a copy of the current values.
func (s *Store) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Set writes a single field.
func (s *Store) Set(fieldID string, value any) {
	s.ApplyBatch(Change{fieldID: value})
}

// ApplyBatch applies every entry of the change as one atomic write and
// notifies listeners once. Writes that would not alter the stored value are
// dropped; an entirely redundant batch produces no notification. Batches
// arriving after Close are discarded.
func (s *Store) ApplyBatch(change Change) bool {
	if len(change) == 0 {
		return false
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	applied := make(Change, len(change))
	for k, v := range change {
		current, ok := s.values[k]
		if ok && Equal(current, v) {
			continue
		}
		s.values[k] = v
		applied[k] = v
	}
	var listeners []Listener
	if len(applied) > 0 {
		listeners = make([]Listener, 0, len(s.listeners))
		for _, fn := range s.listeners {
			listeners = append(listeners, fn)
		}
	}
	s.mu.Unlock()

	if len(applied) == 0 {
		return false
	}
	for _, fn := range listeners {
		fn(applied)
	}
	return true
}

// Subscribe registers a listener and returns its remover.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Close discards the store. Subsequent writes are dropped so late results
// from cancelled work cannot resurrect a disposed form.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.listeners = make(map[int]Listener)
}

// Unset reports whether a value counts as "not provided": nil, a blank
// string, or an empty slice. Zero and false are real values.
func Unset(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	default:
		return false
	}
}

// Equal compares two field values, treating numerics of different widths as
// equal when they represent the same number.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if an, ok := asFloat(a); ok {
		if bn, ok := asFloat(b); ok {
			return an == bn
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}
