package weakref

import (
	"runtime"
	"sync"
)

// Map is an owner-keyed map whose entries disappear when the key object is
// collected. Values are held strongly; a value that references its own key
// keeps that key alive.
//
// Map keeps insertion order. It is safe for concurrent use, which matters
// because collection cleanups run on the runtime's cleanup goroutine.
type Map[V any] struct {
	mu      sync.Mutex
	entries map[Ref]*entry[V]
	order   []Ref
}

type entry[V any] struct {
	value   V
	cleanup runtime.Cleanup
}

// NewMap creates an empty Map.
func NewMap[V any]() *Map[V] {
	return &Map[V]{
		entries: make(map[Ref]*entry[V]),
	}
}

// Store sets the value for key. It returns false if key is nil or its
// referent is already gone.
func (m *Map[V]) Store(key Ref, value V) bool {
	if key == nil {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[key]; ok {
		e.value = value
		return true
	}
	return m.insertLocked(key, value)
}

// insertLocked adds a new entry and registers its collection cleanup.
func (m *Map[V]) insertLocked(key Ref, value V) bool {
	cleanup, ok := key.onCollect(m.forget)
	if !ok {
		return false
	}
	m.entries[key] = &entry[V]{value: value, cleanup: cleanup}
	m.order = append(m.order, key)
	return true
}

// Load returns the value stored for key if its referent is still alive.
func (m *Map[V]) Load(key Ref) (V, bool) {
	var zero V
	if key == nil || !key.Alive() {
		return zero, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return zero, false
	}
	return e.value, true
}

// LoadOrStore returns the existing value for key, or stores and returns the
// result of create. The loaded result reports whether the value existed.
// If key is dead, create's result is returned without being stored.
func (m *Map[V]) LoadOrStore(key Ref, create func() V) (value V, loaded bool) {
	if key == nil || !key.Alive() {
		return create(), false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[key]; ok {
		return e.value, true
	}
	value = create()
	m.insertLocked(key, value)
	return value, false
}

// Delete removes the entry for key. It reports whether an entry existed.
func (m *Map[V]) Delete(key Ref) bool {
	if key == nil {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return false
	}
	e.cleanup.Stop()
	m.removeLocked(key)
	return true
}

// Range calls fn for every live entry in insertion order, stopping early if
// fn returns false. fn runs on a snapshot without the lock held, so it may
// mutate the map; such changes are not seen by the running iteration.
func (m *Map[V]) Range(fn func(owner any, value V) bool) {
	type item struct {
		key   Ref
		value V
	}

	m.mu.Lock()
	items := make([]item, 0, len(m.order))
	for _, k := range m.order {
		items = append(items, item{key: k, value: m.entries[k].value})
	}
	m.mu.Unlock()

	for _, it := range items {
		owner := it.key.Value()
		if owner == nil {
			continue
		}
		if !fn(owner, it.value) {
			return
		}
	}
}

// Len returns the number of entries whose keys are still alive.
func (m *Map[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, k := range m.order {
		if k.Alive() {
			n++
		}
	}
	return n
}

// Clear removes all entries.
func (m *Map[V]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.entries {
		e.cleanup.Stop()
	}
	m.entries = make(map[Ref]*entry[V])
	m.order = nil
}

// forget is the collection cleanup for a key.
func (m *Map[V]) forget(key Ref) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[key]; ok {
		m.removeLocked(key)
	}
}

func (m *Map[V]) removeLocked(key Ref) {
	delete(m.entries, key)
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}
