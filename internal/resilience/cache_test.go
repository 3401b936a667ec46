package resilience

import (
	"fmt"
	"testing"
	"time"
)

func TestCache_GetPut(t *testing.T) {
	cache := NewCache(10, time.Hour)

	if _, ok := cache.Get("missing"); ok {
		t.Fatal("expected miss for absent fingerprint")
	}

	cache.Put("fp1", "bonjour")
	value, ok := cache.Get("fp1")
	if !ok {
		t.Fatal("expected hit after Put")
	}
	if value != "bonjour" {
		t.Errorf("expected cached value bonjour, got %q", value)
	}

	stats := cache.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("expected 1 hit / 1 miss, got %d / %d", stats.Hits, stats.Misses)
	}
}

func TestCache_TTLExpiry(t *testing.T) {
	cache := NewCache(10, time.Minute)

	current := time.Now()
	cache.now = func() time.Time { return current }

	cache.Put("fp", "value")
	if _, ok := cache.Get("fp"); !ok {
		t.Fatal("expected hit before expiry")
	}

	// Advance past the TTL; the entry is still physically present but must
	// never be returned as a valid hit.
	current = current.Add(2 * time.Minute)
	if _, ok := cache.Get("fp"); ok {
		t.Fatal("expected miss for an expired entry")
	}

	if stats := cache.Stats(); stats.Size != 0 {
		t.Errorf("expired entry should be removed, size = %d", stats.Size)
	}
}

func TestCache_CapacityEviction(t *testing.T) {
	cache := NewCache(3, time.Hour)

	current := time.Now()
	cache.now = func() time.Time { return current }

	for i := 0; i < 3; i++ {
		cache.Put(fmt.Sprintf("fp%d", i), "v")
		current = current.Add(time.Second)
	}

	// Touch fp0 so fp1 becomes the least recently accessed.
	cache.Get("fp0")
	current = current.Add(time.Second)

	cache.Put("fp3", "v")

	if _, ok := cache.Get("fp1"); ok {
		t.Error("expected fp1 to be evicted")
	}
	if _, ok := cache.Get("fp0"); !ok {
		t.Error("expected fp0 to survive eviction")
	}
	if _, ok := cache.Get("fp3"); !ok {
		t.Error("expected fp3 to be present")
	}
	if stats := cache.Stats(); stats.Evictions != 1 {
		t.Errorf("expected 1 eviction, got %d", stats.Evictions)
	}
}

func TestCache_OverwriteDoesNotEvict(t *testing.T) {
	cache := NewCache(2, time.Hour)
	cache.Put("a", "1")
	cache.Put("b", "2")
	cache.Put("a", "3")

	if value, ok := cache.Get("a"); !ok || value != "3" {
		t.Errorf("expected overwritten value 3, got %q (hit=%v)", value, ok)
	}
	if _, ok := cache.Get("b"); !ok {
		t.Error("overwrite of an existing key must not evict others")
	}
}
