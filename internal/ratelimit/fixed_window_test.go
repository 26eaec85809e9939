package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newLimiter(t *testing.T, mr *miniredis.Miniredis, limit int) *FixedWindowLimiter {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	l, err := NewFixedWindowLimiter(rdb, "test:ratelimit", limit, time.Minute)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	now := time.Date(2026, 5, 1, 12, 0, 10, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l
}

func TestFixedWindowLimiterRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	l := newLimiter(t, mr, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "10.0.0.1")
		if err != nil || !ok {
			t.Fatalf("request %d should pass: %v %v", i+1, ok, err)
		}
	}
	if ok, _ := l.Allow(ctx, "10.0.0.1"); ok {
		t.Fatalf("third request should be blocked")
	}
	if ok, _ := l.Allow(ctx, "10.0.0.2"); !ok {
		t.Fatalf("other keys keep their own budget")
	}
}

func TestFixedWindowLimiterResetsNextWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	l := newLimiter(t, mr, 1)
	ctx := context.Background()

	if ok, _ := l.Allow(ctx, "k"); !ok {
		t.Fatalf("first request should pass")
	}
	if ok, _ := l.Allow(ctx, "k"); ok {
		t.Fatalf("second request should be blocked")
	}
	later := l.now().Add(time.Minute)
	l.now = func() time.Time { return later }
	if ok, _ := l.Allow(ctx, "k"); !ok {
		t.Fatalf("new window should pass")
	}
}

func TestFixedWindowLimiterSetsExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	l := newLimiter(t, mr, 5)
	if _, err := l.Allow(context.Background(), "k"); err != nil {
		t.Fatalf("allow: %v", err)
	}
	keys := mr.Keys()
	if len(keys) != 1 {
		t.Fatalf("keys = %v", keys)
	}
	if ttl := mr.TTL(keys[0]); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("ttl = %v", ttl)
	}
}

func TestFixedWindowLimiterFailsClosed(t *testing.T) {
	mr := miniredis.RunT(t)
	l := newLimiter(t, mr, 1)
	mr.Close()
	ok, err := l.Allow(context.Background(), "k")
	if ok || err == nil {
		t.Fatalf("limiter should fail closed, got %v %v", ok, err)
	}
}

func TestNewFixedWindowLimiterValidates(t *testing.T) {
	if _, err := NewFixedWindowLimiter(nil, "", 1, time.Second); err == nil {
		t.Fatalf("expected error for nil client")
	}
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer rdb.Close()
	if _, err := NewFixedWindowLimiter(rdb, "", 0, time.Second); err == nil {
		t.Fatalf("expected error for zero limit")
	}
}

func TestSubMillisecondWindowIsRejected(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	if _, err := NewFixedWindowLimiter(rdb, "", 10, 500*time.Microsecond); err == nil {
		t.Fatalf("expected error for a 500us window")
	}

	// a limiter built around the constructor must deny instead of dividing by zero
	l := &FixedWindowLimiter{limit: 10, window: 500 * time.Microsecond, prefix: "p", rdb: rdb, now: time.Now}
	ok, err := l.Allow(context.Background(), "k")
	if ok || err == nil {
		t.Fatalf("expected denial with error, got %v %v", ok, err)
	}
}
