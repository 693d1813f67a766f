// Package presence wraps a Redis/DragonflyDB connection shared by the API
// layer's rate limiter and the Pipeline Orchestrator's cross-process
// in-flight dedupe lock. It was a "Phase 2" stub in the original tree; it is
// built out here because both of its callers (internal/api's rate limit
// middleware and internal/orchestrator's dedupe lock) need a real client.
package presence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key-space prefixes, namespacing every key this package writes so a single
// Redis/DragonflyDB instance can be shared across concerns without collision.
const (
	PrefixSession   = "session:"
	PrefixRateLimit = "ratelimit:"
	PrefixCache     = "cache:"
	PrefixDedupe    = "dedupe:"
)

// SessionData is the minimal payload stored under PrefixSession for bearer
// session lookups (internal/auth owns issuing/validating the token itself;
// this package only stores the server-side record).
type SessionData struct {
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RateLimitResult is returned by CheckRateLimitInfo.
type RateLimitResult struct {
	Allowed   bool
	Limit     int
	Remaining int
	Count     int
}

// ErrLockHeld is returned by TryLock when another process already holds the
// requested lock.
var ErrLockHeld = errors.New("lock already held")

// Cache wraps a Redis client with the operations AmityVox needs: rate
// limiting and distributed locking. Despite the package name it is no
// longer a presence/online-status tracker — that feature was never built
// out past its stub and is not part of this system's scope.
type Cache struct {
	client *redis.Client
}

// New connects to the Redis/DragonflyDB instance at the given URL.
func New(redisURL string, logger *slog.Logger) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	c := &Cache{client: client}
	if logger != nil {
		logger.Info("redis connection established", slog.String("addr", opts.Addr))
	}
	return c, nil
}

// HealthCheck verifies connectivity with a PING.
func (c *Cache) HealthCheck(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check: %w", err)
	}
	return nil
}

// Close closes the underlying Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}

// CheckRateLimitInfo implements a fixed-window counter: INCR the window's
// key, set its expiry on first increment, and compare against limit.
func (c *Cache) CheckRateLimitInfo(ctx context.Context, key string, limit int, window time.Duration) (RateLimitResult, error) {
	fullKey := PrefixRateLimit + key
	count, err := c.client.Incr(ctx, fullKey).Result()
	if err != nil {
		return RateLimitResult{}, fmt.Errorf("incrementing rate limit counter: %w", err)
	}
	if count == 1 {
		if err := c.client.Expire(ctx, fullKey, window).Err(); err != nil {
			return RateLimitResult{}, fmt.Errorf("setting rate limit window expiry: %w", err)
		}
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return RateLimitResult{
		Allowed:   int(count) <= limit,
		Limit:     limit,
		Remaining: remaining,
		Count:     int(count),
	}, nil
}

// TryLock attempts to acquire a TTL-bounded distributed lock under
// PrefixDedupe via SETNX. It returns ErrLockHeld (not a wrapped error) when
// another process already holds it — callers should treat that as "someone
// else is already handling this", not a fault.
func (c *Cache) TryLock(ctx context.Context, key string, ttl time.Duration) error {
	ok, err := c.client.SetNX(ctx, PrefixDedupe+key, "1", ttl).Result()
	if err != nil {
		return fmt.Errorf("acquiring lock %s: %w", key, err)
	}
	if !ok {
		return ErrLockHeld
	}
	return nil
}

// Unlock releases a lock acquired with TryLock. Safe to call even if the
// lock already expired.
func (c *Cache) Unlock(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, PrefixDedupe+key).Err(); err != nil {
		return fmt.Errorf("releasing lock %s: %w", key, err)
	}
	return nil
}

// Revoke records a session ID as logged-out under PrefixSession until ttl
// elapses (the remaining lifetime of the JWT it belongs to) — internal/auth
// calls this from Logout so a token can be rejected before its own
// expiration without a database round trip per request.
func (c *Cache) Revoke(ctx context.Context, sessionID string, ttl time.Duration) error {
	if err := c.client.Set(ctx, PrefixSession+"revoked:"+sessionID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoking session %s: %w", sessionID, err)
	}
	return nil
}

// IsRevoked reports whether sessionID was logged out via Revoke.
func (c *Cache) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	n, err := c.client.Exists(ctx, PrefixSession+"revoked:"+sessionID).Result()
	if err != nil {
		return false, fmt.Errorf("checking session %s: %w", sessionID, err)
	}
	return n > 0, nil
}
