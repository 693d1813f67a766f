// Integration tests against a real Redis/DragonflyDB container, following
// the same dockertest lifecycle as internal/messagestore's Postgres suite
// and internal/integration's combined stack. Skipped if Docker is
// unavailable.
package presence

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
)

var testCache *Cache

func TestMain(m *testing.M) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		fmt.Printf("skipping presence tests: docker not available: %v\n", err)
		os.Exit(0)
	}
	if err := pool.Client.Ping(); err != nil {
		fmt.Printf("skipping presence tests: docker not reachable: %v\n", err)
		os.Exit(0)
	}
	pool.MaxWait = 60 * time.Second

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "redis",
		Tag:        "7-alpine",
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		fmt.Printf("could not start redis: %v\n", err)
		os.Exit(1)
	}

	redisURL := fmt.Sprintf("redis://localhost:%s", resource.GetPort("6379/tcp"))
	if err := pool.Retry(func() error {
		c, err := New(redisURL, nil)
		if err != nil {
			return err
		}
		testCache = c
		return c.HealthCheck(context.Background())
	}); err != nil {
		fmt.Printf("could not connect to redis: %v\n", err)
		resource.Close()
		os.Exit(1)
	}

	code := m.Run()

	testCache.Close()
	resource.Close()
	os.Exit(code)
}

func TestTryLockThenUnlock(t *testing.T) {
	ctx := context.Background()
	if err := testCache.TryLock(ctx, "msg-1:es", time.Minute); err != nil {
		t.Fatalf("expected first TryLock to succeed, got %v", err)
	}
	if err := testCache.TryLock(ctx, "msg-1:es", time.Minute); err != ErrLockHeld {
		t.Fatalf("expected ErrLockHeld on contended lock, got %v", err)
	}
	if err := testCache.Unlock(ctx, "msg-1:es"); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if err := testCache.TryLock(ctx, "msg-1:es", time.Minute); err != nil {
		t.Fatalf("expected lock to be acquirable again after Unlock, got %v", err)
	}
	_ = testCache.Unlock(ctx, "msg-1:es")
}

func TestTryLockExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	key := "msg-2:fr"
	if err := testCache.TryLock(ctx, key, 20*time.Millisecond); err != nil {
		t.Fatalf("TryLock: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if err := testCache.TryLock(ctx, key, time.Minute); err != nil {
		t.Fatalf("expected lock to be acquirable after TTL expiry, got %v", err)
	}
	_ = testCache.Unlock(ctx, key)
}

func TestCheckRateLimitInfoAllowsUnderLimitThenBlocks(t *testing.T) {
	ctx := context.Background()
	key := "test-rate-key"
	for i := 0; i < 3; i++ {
		result, err := testCache.CheckRateLimitInfo(ctx, key, 3, time.Minute)
		if err != nil {
			t.Fatalf("CheckRateLimitInfo: %v", err)
		}
		if !result.Allowed {
			t.Fatalf("expected request %d to be allowed under limit 3", i+1)
		}
	}
	result, err := testCache.CheckRateLimitInfo(ctx, key, 3, time.Minute)
	if err != nil {
		t.Fatalf("CheckRateLimitInfo: %v", err)
	}
	if result.Allowed {
		t.Fatal("expected 4th request to exceed limit of 3")
	}
	if result.Remaining != 0 {
		t.Fatalf("expected 0 remaining, got %d", result.Remaining)
	}
}

func TestRevokeThenIsRevoked(t *testing.T) {
	ctx := context.Background()
	sessionID := "sess-revoke-1"

	revoked, err := testCache.IsRevoked(ctx, sessionID)
	if err != nil {
		t.Fatalf("IsRevoked: %v", err)
	}
	if revoked {
		t.Fatal("expected session to start unrevoked")
	}

	if err := testCache.Revoke(ctx, sessionID, time.Minute); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	revoked, err = testCache.IsRevoked(ctx, sessionID)
	if err != nil {
		t.Fatalf("IsRevoked after Revoke: %v", err)
	}
	if !revoked {
		t.Fatal("expected session to be revoked")
	}
}

func TestRevokeExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	sessionID := "sess-revoke-2"
	if err := testCache.Revoke(ctx, sessionID, 20*time.Millisecond); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	revoked, err := testCache.IsRevoked(ctx, sessionID)
	if err != nil {
		t.Fatalf("IsRevoked: %v", err)
	}
	if revoked {
		t.Fatal("expected revocation record to have expired")
	}
}
