package infra

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestCacheSetGet(t *testing.T) {
	c := NewCache[string](time.Minute)
	c.Set("key1", "value1")
	v, ok := c.Get("key1")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if v != "value1" {
		t.Fatalf("got %v, want value1", v)
	}
	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected cache miss")
	}
}

func TestCacheExpiry(t *testing.T) {
	c := NewCache[int](time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("k", 1)
	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected cache miss after TTL expiry")
	}

}

func TestCacheSetPrunesExpired(t *testing.T) {
	c := NewCache[int](time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	for i := 0; i < pruneLimit; i++ {
		c.Set(fmt.Sprintf("old-%d", i), i)
	}
	now = now.Add(2 * time.Minute)
	c.Set("fresh", 1)
	if c.Len() != 1 {
		t.Errorf("Len() = %d after pruning, want 1", c.Len())
	}
	if v, ok := c.Get("fresh"); !ok || v != 1 {
		t.Errorf("Get(fresh) = %v, %v", v, ok)
	}
}

func TestCacheDisabled(t *testing.T) {
	c := NewCache[int](0)
	c.Set("k", 1)
	if _, ok := c.Get("k"); ok {
		t.Fatal("zero-TTL cache must not store values")
	}
	var nilCache *Cache[int]
	if nilCache.Enabled() {
		t.Fatal("nil cache must be disabled")
	}
	nilCache.Set("k", 1)
	if _, ok := nilCache.Get("k"); ok {
		t.Fatal("nil cache must miss")
	}
}

func TestRateLimiterAllowsBurst(t *testing.T) {
	rl := NewRateLimiter(3, time.Hour)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := rl.Wait(ctx); err != nil {
			t.Fatalf("Wait %d: %v", i, err)
		}
	}
}

func TestRateLimiterHonoursContext(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)
	_ = rl.Wait(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx); err == nil {
		t.Fatal("expected context error once the bucket is empty")
	}
}
