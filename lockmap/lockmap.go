// Package lockmap provides non-blocking, per-key mutual exclusion. A Map
// issues at most one Guard per key at a time; contended acquisition fails
// immediately rather than queueing. It backs the mutually-exclusive handler
// execution of the component package, keyed by the shared UI surface.
package lockmap

import "sync"

// Map issues non-blocking per-key locks. The zero value is not usable;
// create one with New. It is safe for concurrent use.
//
// Entries are ephemeral: a key occupies memory only while its lock is held.
type Map[K comparable] struct {
	mu   sync.Mutex
	held map[K]struct{}
}

// New creates an empty lock map.
func New[K comparable]() *Map[K] {
	return &Map[K]{held: make(map[K]struct{})}
}

// TryAcquire attempts to atomically claim key. It returns nil immediately if
// the key is already held; it never blocks or queues. On success the caller
// MUST release the returned Guard, preferably through ReleaseAfter.
func (m *Map[K]) TryAcquire(key K) *Guard[K] {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.held[key]; ok {
		return nil
	}
	m.held[key] = struct{}{}
	return &Guard[K]{m: m, key: key}
}

// Held reports whether key is currently locked.
func (m *Map[K]) Held(key K) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.held[key]
	return ok
}

func (m *Map[K]) release(key K) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, key)
}

// Guard is a held lock on one key. A Guard releases at most once; extra
// Release calls are no-ops.
type Guard[K comparable] struct {
	m    *Map[K]
	key  K
	once sync.Once
}

// Release returns the key to the map.
func (g *Guard[K]) Release() {
	g.once.Do(func() { g.m.release(g.key) })
}

// ReleaseAfter runs op and releases the guard when it settles, on every exit
// path: success, error, or panic. This is the standard idiom in place of
// explicit acquire/release pairs.
func (g *Guard[K]) ReleaseAfter(op func() error) error {
	defer g.Release()
	return op()
}
