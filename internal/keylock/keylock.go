// Package keylock provides per-key exclusive locks so operations on one
// session serialize without blocking unrelated sessions.
package keylock

import "sync"

type lockRef struct {
	mu   sync.Mutex
	refs int
}

// Map hands out one mutex per key on demand and reclaims it once no caller
// holds or waits on it.
type Map struct {
	mu    sync.Mutex
	locks map[string]*lockRef
}

func New() *Map {
	return &Map{locks: make(map[string]*lockRef)}
}

// Lock acquires the exclusive lock for key, creating it if needed.
func (m *Map) Lock(key string) {
	m.mu.Lock()
	ref, ok := m.locks[key]
	if !ok {
		ref = &lockRef{}
		m.locks[key] = ref
	}
	ref.refs++
	m.mu.Unlock()

	ref.mu.Lock()
}

// Unlock releases the lock for key. The entry is dropped once the last
// holder releases, keeping the map bounded by the number of keys in use.
func (m *Map) Unlock(key string) {
	m.mu.Lock()
	ref, ok := m.locks[key]
	if ok {
		ref.refs--
		if ref.refs == 0 {
			delete(m.locks, key)
		}
	}
	m.mu.Unlock()

	if ok {
		ref.mu.Unlock()
	}
}

// Len reports how many keys currently have holders or waiters.
func (m *Map) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
