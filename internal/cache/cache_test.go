package cache

import (
	"sync"
	"testing"
)

func TestCache_GetSet(t *testing.T) {
	c := New[string, int](4)

	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss on empty cache")
	}
	c.Set("a", 1)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v; want 1, true", v, ok)
	}

	c.Set("a", 2)
	if v, _ := c.Get("a"); v != 2 {
		t.Errorf("Get(a) after update = %d, want 2", v)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := New[int, int](3)
	c.Set(1, 1)
	c.Set(2, 2)
	c.Set(3, 3)

	// Touch 1 so 2 becomes the oldest.
	c.Get(1)
	c.Set(4, 4)

	if _, ok := c.Get(2); ok {
		t.Error("expected 2 to be evicted")
	}
	for _, k := range []int{1, 3, 4} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("expected %d to be cached", k)
		}
	}
	if s := c.Stats(); s.Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", s.Evictions)
	}
}

func TestCache_DeleteAndClear(t *testing.T) {
	c := New[string, int](0)
	if c.Stats().Capacity != DefaultCapacity {
		t.Errorf("Capacity = %d, want %d", c.Stats().Capacity, DefaultCapacity)
	}

	c.Set("a", 1)
	c.Set("b", 2)
	if !c.Delete("a") {
		t.Error("Delete(a) = false, want true")
	}
	if c.Delete("a") {
		t.Error("second Delete(a) = true, want false")
	}
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len after Clear = %d", c.Len())
	}

	// The list must be consistent after Clear.
	c.Set("c", 3)
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Errorf("Get(c) = %d, %v", v, ok)
	}
}

func TestCache_Stats(t *testing.T) {
	c := New[string, int](10)
	c.Set("a", 1)
	c.Get("a")
	c.Get("a")
	c.Get("b")

	s := c.Stats()
	if s.Hits != 2 || s.Misses != 1 {
		t.Errorf("hits=%d misses=%d, want 2 and 1", s.Hits, s.Misses)
	}
	if s.HitRate < 0.66 || s.HitRate > 0.67 {
		t.Errorf("HitRate = %v, want ~0.667", s.HitRate)
	}
}

func TestCache_Concurrent(t *testing.T) {
	c := New[int, int](64)
	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 200 {
				k := (g*200 + i) % 100
				c.Set(k, i)
				c.Get(k)
			}
		}()
	}
	wg.Wait()

	if c.Len() > 64 {
		t.Errorf("Len = %d, exceeds capacity 64", c.Len())
	}
}

func TestStringHash(t *testing.T) {
	if StringHash("fn main() {}") != StringHash("fn main() {}") {
		t.Error("hash is not deterministic")
	}
	if StringHash("a") == StringHash("b") {
		t.Error("distinct inputs collided")
	}
}
