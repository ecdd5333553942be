package component

import (
	"context"

	"github.com/tmarback/interact/lockmap"
)

// Guard is a held mutual-exclusion lock. It is released by running an
// operation through ReleaseAfter, which frees the lock when the operation
// returns (or panics).
type Guard interface {
	// ReleaseAfter runs op and releases the guard afterwards, returning
	// op's error unchanged.
	ReleaseAfter(op func() error) error
}

// Locker grants exclusive locks keyed by string, typically a message
// identifier. Acquisition never blocks: when the key is already held,
// TryAcquire returns (nil, nil) and the caller is expected to back off.
type Locker interface {
	TryAcquire(ctx context.Context, key string) (Guard, error)
}

// LockerFunc adapts a function to the Locker interface. It is the wiring
// point for lock stores with concrete guard types, which must take care to
// return an untyped nil on contention:
//
//	locks := redislock.New(client)
//	locker := component.LockerFunc(func(ctx context.Context, key string) (component.Guard, error) {
//	    g, err := locks.TryAcquire(ctx, key)
//	    if g == nil || err != nil {
//	        return nil, err
//	    }
//	    return g, nil
//	})
type LockerFunc func(ctx context.Context, key string) (Guard, error)

// TryAcquire calls f.
func (f LockerFunc) TryAcquire(ctx context.Context, key string) (Guard, error) {
	return f(ctx, key)
}

// MapLocker is a process-local Locker backed by a [lockmap.Map]. It is the
// right choice when a single process handles all events for a surface;
// multi-process deployments should use a shared lock store instead, such
// as the Redis-backed one in lockmap/redis.
type MapLocker struct {
	m *lockmap.Map[string]
}

// NewMapLocker creates an empty process-local locker.
func NewMapLocker() *MapLocker {
	return &MapLocker{m: lockmap.New[string]()}
}

// TryAcquire implements Locker. The context is unused: acquisition is a
// map lookup and never blocks.
func (l *MapLocker) TryAcquire(_ context.Context, key string) (Guard, error) {
	g := l.m.TryAcquire(key)
	if g == nil {
		// Return an untyped nil so callers can compare against nil directly.
		return nil, nil
	}
	return g, nil
}
