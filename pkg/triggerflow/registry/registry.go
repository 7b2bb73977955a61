package registry

import (
	"slices"
	"sync"
)

// Registry is a thread-safe registry for values indexed by key.
// Keys are remembered in the order they were first registered, and every
// listing (Keys, Range) follows that order.
type Registry[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
	order   []K
}

// New creates a new empty registry.
func New[K comparable, V any]() *Registry[K, V] {
	return &Registry[K, V]{
		entries: make(map[K]V),
	}
}

// Register adds or updates a value in the registry.
// Updating an existing key keeps its original position.
func (r *Registry[K, V]) Register(key K, value V) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.set(key, value)
}

// set stores the value. Caller must hold the write lock.
func (r *Registry[K, V]) set(key K, value V) {
	if _, ok := r.entries[key]; !ok {
		r.order = append(r.order, key)
	}
	r.entries[key] = value
}

// Get returns the value for a key and whether it exists.
func (r *Registry[K, V]) Get(key K) (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.entries[key]
	return v, ok
}

// Has returns true if the key exists in the registry.
func (r *Registry[K, V]) Has(key K) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[key]
	return ok
}

// Delete removes a key from the registry.
// Deleting a missing key is a no-op.
func (r *Registry[K, V]) Delete(key K) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[key]; !ok {
		return
	}
	delete(r.entries, key)
	if i := slices.Index(r.order, key); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
}

// Clear removes every entry.
func (r *Registry[K, V]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.entries)
	r.order = r.order[:0]
}

// Keys returns all keys in insertion order. The result is never nil.
func (r *Registry[K, V]) Keys() []K {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.keysLocked()
}

func (r *Registry[K, V]) keysLocked() []K {
	keys := make([]K, len(r.order))
	copy(keys, r.order)
	return keys
}

// Len returns the number of entries in the registry.
func (r *Registry[K, V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Range iterates over all entries in insertion order.
// The function fn is called for each entry. If fn returns false,
// iteration stops.
//
// Range iterates over a snapshot of the registry, so it is safe
// to call Register or Delete during iteration without affecting
// the current iteration.
func (r *Registry[K, V]) Range(fn func(K, V) bool) {
	// Take a snapshot under read lock
	r.mu.RLock()
	keys := slices.Clone(r.order)
	values := make([]V, len(keys))
	for i, k := range keys {
		values[i] = r.entries[k]
	}
	r.mu.RUnlock()

	for i, k := range keys {
		if !fn(k, values[i]) {
			return
		}
	}
}

// GetOrCreate returns the value for a key, creating it with the factory
// function if it doesn't exist. This operation is atomic - the factory
// is called at most once per key, even under concurrent access.
func (r *Registry[K, V]) GetOrCreate(key K, factory func() V) V {
	// Fast path: check if already exists
	r.mu.RLock()
	v, ok := r.entries[key]
	r.mu.RUnlock()
	if ok {
		return v
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if v, ok := r.entries[key]; ok {
		return v
	}

	v = factory()
	r.set(key, v)
	return v
}

// Update applies fn to the current value of key (the zero value and false
// when missing) and stores the result, all under a single write lock.
func (r *Registry[K, V]) Update(key K, fn func(V, bool) V) V {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.entries[key]
	v := fn(old, ok)
	r.set(key, v)
	return v
}

// Locked runs fn while holding the write lock, with direct access to
// mutation helpers. It is how callers make several changes appear atomic.
func (r *Registry[K, V]) Locked(fn func(tx *Tx[K, V])) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&Tx[K, V]{r: r})
}

// Tx exposes registry mutations inside Locked. It must not escape fn.
type Tx[K comparable, V any] struct {
	r *Registry[K, V]
}

// Get returns the value for a key and whether it exists.
func (t *Tx[K, V]) Get(key K) (V, bool) {
	v, ok := t.r.entries[key]
	return v, ok
}

// Register adds or updates a value.
func (t *Tx[K, V]) Register(key K, value V) {
	t.r.set(key, value)
}

// Clear removes every entry.
func (t *Tx[K, V]) Clear() {
	clear(t.r.entries)
	t.r.order = t.r.order[:0]
}

// Keys returns all keys in insertion order.
func (t *Tx[K, V]) Keys() []K {
	return t.r.keysLocked()
}
