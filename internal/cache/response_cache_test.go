package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/spec-kit/support-engine/internal/config"
)

func newTestCache(maxEntries, evictBatch int, ttl time.Duration) (*ResponseCache, *time.Time) {
	cache := NewResponseCache(config.CacheConfig{
		MaxEntries: maxEntries,
		TTLHours:   int(ttl / time.Hour),
		EvictBatch: evictBatch,
	})
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return clock }
	return cache, &clock
}

func TestResponseCacheHitAndMiss(t *testing.T) {
	cache, _ := newTestCache(10, 2, 24*time.Hour)

	problem := Fingerprint("app keeps buffering")
	ctx := Fingerprint("some prior context")

	if _, hit := cache.Get(problem, ctx); hit {
		t.Fatal("expected miss on empty cache")
	}

	cache.Set(problem, ctx, "clear the app cache")
	reply, hit := cache.Get(problem, ctx)
	if !hit {
		t.Fatal("expected hit after set")
	}
	if reply != "clear the app cache" {
		t.Fatalf("got %q", reply)
	}

	// Same problem under a different context is a distinct entry.
	if _, hit := cache.Get(problem, Fingerprint("other context")); hit {
		t.Fatal("context fingerprint should partition entries")
	}
}

func TestResponseCacheTTLExpiry(t *testing.T) {
	cache, clock := newTestCache(10, 2, 24*time.Hour)

	cache.Set("p", "c", "stale answer")
	*clock = clock.Add(24*time.Hour - time.Second)
	if _, hit := cache.Get("p", "c"); !hit {
		t.Fatal("entry should survive just under the TTL")
	}

	*clock = clock.Add(2 * time.Second)
	if _, hit := cache.Get("p", "c"); hit {
		t.Fatal("entry should expire at the TTL")
	}
	if got := cache.Len(); got != 0 {
		t.Fatalf("expired entry should be removed, len=%d", got)
	}
}

func TestResponseCacheBatchEviction(t *testing.T) {
	cache, clock := newTestCache(10, 3, 24*time.Hour)

	for i := 0; i < 10; i++ {
		cache.Set(fmt.Sprintf("p%d", i), "c", fmt.Sprintf("r%d", i))
		*clock = clock.Add(time.Minute)
	}
	if got := cache.Len(); got != 10 {
		t.Fatalf("expected full cache, len=%d", got)
	}

	// The 11th insert evicts the three oldest in one batch.
	cache.Set("p10", "c", "r10")
	if got := cache.Len(); got != 8 {
		t.Fatalf("expected 8 entries after batch eviction, len=%d", got)
	}
	for i := 0; i < 3; i++ {
		if _, hit := cache.Get(fmt.Sprintf("p%d", i), "c"); hit {
			t.Fatalf("oldest entry p%d should have been evicted", i)
		}
	}
	if _, hit := cache.Get("p3", "c"); !hit {
		t.Fatal("entry p3 should have survived eviction")
	}
	if _, hit := cache.Get("p10", "c"); !hit {
		t.Fatal("new entry should be present after eviction")
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	if Fingerprint("abc") != Fingerprint("abc") {
		t.Fatal("fingerprint must be deterministic")
	}
	if Fingerprint("abc") == Fingerprint("abd") {
		t.Fatal("distinct content must not collide")
	}
}
