package graph

import (
	"testing"
	"time"
)

func TestCache_PutAndGet(t *testing.T) {
	c := NewCache(10, 0, EvictLRU)
	c.Put("a", "value-a")
	v, ok := c.Get("a")
	if !ok || v != "value-a" {
		t.Fatalf("Get(a) = %v, %v; want value-a, true", v, ok)
	}
	stats := c.Stats()
	if stats.Hits != 1 || stats.Entries != 1 {
		t.Errorf("Stats = %+v", stats)
	}
}

func TestCache_MissIncrementsStats(t *testing.T) {
	c := NewCache(10, 0, EvictLRU)
	if _, ok := c.Get("missing"); ok {
		t.Error("expected a miss for an absent key")
	}
	if c.Stats().Misses != 1 {
		t.Errorf("Misses = %d, want 1", c.Stats().Misses)
	}
}

func TestCache_TTLExpiry(t *testing.T) {
	c := NewCache(10, 0, EvictLRU)
	c.Put("a", "v", time.Nanosecond)
	time.Sleep(time.Millisecond)
	if _, ok := c.Get("a"); ok {
		t.Error("expected entry to have expired")
	}
	if c.Stats().Misses != 1 {
		t.Errorf("expected expiry to count as a miss, got %d", c.Stats().Misses)
	}
}

func TestCache_FIFOEviction(t *testing.T) {
	c := NewCache(2, 0, EvictFIFO)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)
	if _, ok := c.Get("a"); ok {
		t.Error("expected the first-inserted entry to be evicted under FIFO")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("expected the most recent entry to survive")
	}
	if c.Stats().Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", c.Stats().Evictions)
	}
}

func TestCache_LRUEviction(t *testing.T) {
	c := NewCache(2, 0, EvictLRU)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Get("a") // touch a, making b the least recently used
	c.Put("c", 3)
	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted as the least recently used")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("expected a to survive since it was recently touched")
	}
}

func TestCache_LFUEviction(t *testing.T) {
	c := NewCache(2, 0, EvictLFU)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Get("a")
	c.Get("a")
	c.Put("c", 3)
	if _, ok := c.Get("b"); ok {
		t.Error("expected b (fewer hits) to be evicted under LFU")
	}
}

func TestCache_OverwriteExistingKeyDoesNotGrowOrder(t *testing.T) {
	c := NewCache(1, 0, EvictFIFO)
	c.Put("a", 1)
	c.Put("a", 2)
	v, ok := c.Get("a")
	if !ok || v != 2 {
		t.Fatalf("Get(a) = %v, %v; want 2, true", v, ok)
	}
	if c.Stats().Evictions != 0 {
		t.Errorf("expected no eviction when overwriting an existing key, got %d", c.Stats().Evictions)
	}
}
