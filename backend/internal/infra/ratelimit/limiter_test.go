package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(server.Close)

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return server, client
}

func TestRedisLimiterFixedWindow(t *testing.T) {
	server, client := newTestRedis(t)
	limiter := NewRedisLimiter(client, "")
	ctx := context.Background()

	const limit = 3
	window := time.Minute

	for i := 0; i < limit; i++ {
		res, err := limiter.Allow(ctx, "pkg:1", limit, window)
		if err != nil {
			t.Fatalf("allow #%d: %v", i+1, err)
		}
		if !res.Allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
		if want := limit - i - 1; res.Remaining != want {
			t.Fatalf("request %d: remaining = %d, want %d", i+1, res.Remaining, want)
		}
	}

	res, err := limiter.Allow(ctx, "pkg:1", limit, window)
	if err != nil {
		t.Fatalf("allow over limit: %v", err)
	}
	if res.Allowed {
		t.Fatalf("request over limit should be blocked")
	}
	if res.RetryAfter <= 0 {
		t.Fatalf("blocked result should carry retry-after, got %v", res.RetryAfter)
	}

	// 窗口过期后计数清零，重新放行。
	server.FastForward(window + time.Second)

	res, err = limiter.Allow(ctx, "pkg:1", limit, window)
	if err != nil {
		t.Fatalf("allow after window: %v", err)
	}
	if !res.Allowed {
		t.Fatalf("request after window should be allowed")
	}
}

func TestRedisLimiterIsolatesKeys(t *testing.T) {
	_, client := newTestRedis(t)
	limiter := NewRedisLimiter(client, "")
	ctx := context.Background()

	if _, err := limiter.Allow(ctx, "comment:1", 1, time.Minute); err != nil {
		t.Fatalf("allow first key: %v", err)
	}

	res, err := limiter.Allow(ctx, "comment:2", 1, time.Minute)
	if err != nil {
		t.Fatalf("allow second key: %v", err)
	}
	if !res.Allowed {
		t.Fatalf("second key should have its own counter")
	}
}

func TestLimiterZeroLimitDisablesChecks(t *testing.T) {
	_, client := newTestRedis(t)
	ctx := context.Background()

	for _, limiter := range []Limiter{NewRedisLimiter(client, ""), NewMemoryLimiter()} {
		res, err := limiter.Allow(ctx, "any", 0, time.Minute)
		if err != nil {
			t.Fatalf("allow with zero limit: %v", err)
		}
		if !res.Allowed || res.Remaining != -1 {
			t.Fatalf("zero limit should always allow, got %+v", res)
		}
	}
}

func TestMemoryLimiterWindowExpiry(t *testing.T) {
	limiter := NewMemoryLimiter()
	ctx := context.Background()
	window := 30 * time.Millisecond

	for i := 0; i < 2; i++ {
		res, err := limiter.Allow(ctx, "user:1", 2, window)
		if err != nil {
			t.Fatalf("allow #%d: %v", i+1, err)
		}
		if !res.Allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	res, err := limiter.Allow(ctx, "user:1", 2, window)
	if err != nil {
		t.Fatalf("allow over limit: %v", err)
	}
	if res.Allowed {
		t.Fatalf("third request should be blocked")
	}

	time.Sleep(window + 10*time.Millisecond)

	res, err = limiter.Allow(ctx, "user:1", 2, window)
	if err != nil {
		t.Fatalf("allow after expiry: %v", err)
	}
	if !res.Allowed {
		t.Fatalf("request after window expiry should be allowed")
	}
}
