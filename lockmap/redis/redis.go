// Package redis implements the non-blocking lock-map contract across
// processes, for deployments where replicas of the same application may
// receive interactions targeting the same UI surface. Locks are plain keys
// acquired with SET NX and a TTL; release is token-checked so an expired
// guard cannot free a lock someone else has since claimed.
//
// Usage:
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	locks := redislock.New(client)
//	g, err := locks.TryAcquire(ctx, event.SurfaceKey())
//
// The TTL is a liveness backstop for crashed holders, not a lease to renew:
// handler executions are expected to finish well within it.
package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL is the default lock expiry. A holder that dies without
// releasing frees its surfaces after this long.
const DefaultTTL = 30 * time.Second

// releaseTimeout bounds the detached context used when a guard releases
// inside ReleaseAfter.
const releaseTimeout = 5 * time.Second

const keyPrefix = "interact:lock:"

// releaseScript deletes the lock only if the stored token still matches the
// guard's, so a guard whose TTL lapsed cannot release a re-acquired lock.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Option configures a Map.
type Option func(*Map)

// WithTTL sets the lock expiry.
func WithTTL(ttl time.Duration) Option {
	return func(m *Map) { m.ttl = ttl }
}

// WithKeyPrefix overrides the key namespace.
func WithKeyPrefix(prefix string) Option {
	return func(m *Map) { m.prefix = prefix }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Map) { m.logger = l }
}

// Map issues non-blocking distributed locks backed by Redis. The caller owns
// the Redis client lifecycle.
type Map struct {
	client redis.Cmdable
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

// New creates a Redis-backed lock map.
func New(client redis.Cmdable, opts ...Option) *Map {
	m := &Map{
		client: client,
		ttl:    DefaultTTL,
		prefix: keyPrefix,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Ping verifies the Redis connection is alive.
func (m *Map) Ping(ctx context.Context) error {
	return m.client.Ping(ctx).Err()
}

// TryAcquire attempts to atomically claim key. It returns (nil, nil) if the
// key is already held elsewhere, without blocking or queueing. A non-nil
// error means the claim could not be attempted at all; callers should treat
// that the same as contention (fail closed).
func (m *Map) TryAcquire(ctx context.Context, key string) (*Guard, error) {
	token := newToken()
	ok, err := m.client.SetNX(ctx, m.prefix+key, token, m.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &Guard{m: m, key: key, token: token}, nil
}

// Held reports whether key is currently locked by any holder.
func (m *Map) Held(ctx context.Context, key string) (bool, error) {
	n, err := m.client.Exists(ctx, m.prefix+key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Guard is a held distributed lock. A Guard releases at most once.
type Guard struct {
	m     *Map
	key   string
	token string
	once  sync.Once
}

// Release frees the lock if this guard still holds it. Releasing a guard
// whose TTL already expired (and whose key may have a new holder) is a
// no-op because the stored token no longer matches.
func (g *Guard) Release(ctx context.Context) error {
	var err error
	g.once.Do(func() {
		err = releaseScript.Run(ctx, g.m.client, []string{g.m.prefix + g.key}, g.token).Err()
	})
	return err
}

// ReleaseAfter runs op and releases the lock when it settles, on every exit
// path. The release uses its own bounded context so a cancelled dispatch
// still frees the surface.
func (g *Guard) ReleaseAfter(op func() error) error {
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		if err := g.Release(ctx); err != nil {
			g.m.logger.Warn("failed to release distributed lock",
				slog.String("key", g.key),
				slog.String("error", err.Error()),
			)
		}
	}()
	return op()
}

func newToken() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand does not fail on supported platforms.
		panic(err)
	}
	return hex.EncodeToString(b[:])
}
