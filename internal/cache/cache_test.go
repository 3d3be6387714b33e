package cache

import (
	"fmt"
	"sync"
	"testing"
)

func TestPutGet(t *testing.T) {
	c := NewBounded[string, int](10)

	c.Put("a", 1)
	c.Put("b", 2)

	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v; want 1, true", v, ok)
	}
	if v, ok := c.Get("b"); !ok || v != 2 {
		t.Errorf("Get(b) = %d, %v; want 2, true", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("Get(missing) reported a hit")
	}
}

func TestPutOverwrite(t *testing.T) {
	c := NewBounded[string, int](10)

	c.Put("a", 1)
	c.Put("a", 2)

	if v, _ := c.Get("a"); v != 2 {
		t.Errorf("Get(a) = %d after overwrite, want 2", v)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d after overwrite, want 1", c.Len())
	}
}

func TestCapacityClearsAllEntries(t *testing.T) {
	c := NewBounded[int, int](3)

	for i := 0; i < 3; i++ {
		c.Put(i, i)
	}
	if c.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", c.Len())
	}

	// Inserting a new key at capacity drops everything first.
	c.Put(99, 99)

	if c.Len() != 1 {
		t.Errorf("Len() = %d after capacity flush, want 1", c.Len())
	}
	if _, ok := c.Get(0); ok {
		t.Error("entry 0 survived capacity flush")
	}
	if v, ok := c.Get(99); !ok || v != 99 {
		t.Errorf("Get(99) = %d, %v; want 99, true", v, ok)
	}
}

func TestOverwriteAtCapacityDoesNotFlush(t *testing.T) {
	c := NewBounded[int, int](2)

	c.Put(1, 1)
	c.Put(2, 2)
	c.Put(1, 10) // existing key, no flush

	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
	if v, _ := c.Get(2); v != 2 {
		t.Errorf("Get(2) = %d, want 2", v)
	}
}

func TestClear(t *testing.T) {
	c := NewBounded[string, string](10)

	c.Put("a", "x")
	c.Put("b", "y")
	c.Clear()

	if c.Len() != 0 {
		t.Errorf("Len() = %d after Clear, want 0", c.Len())
	}
	if _, ok := c.Get("a"); ok {
		t.Error("Get(a) hit after Clear")
	}
}

func TestDelete(t *testing.T) {
	c := NewBounded[string, int](10)

	c.Put("a", 1)
	c.Delete("a")
	c.Delete("never-existed")

	if _, ok := c.Get("a"); ok {
		t.Error("Get(a) hit after Delete")
	}
}

func TestDefaultCapacity(t *testing.T) {
	for _, capacity := range []int{0, -5} {
		c := NewBounded[int, int](capacity)
		for i := 0; i < DefaultCapacity; i++ {
			c.Put(i, i)
		}
		if c.Len() != DefaultCapacity {
			t.Errorf("NewBounded(%d): Len() = %d, want %d", capacity, c.Len(), DefaultCapacity)
		}
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := NewBounded[string, int](50)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("key-%d", i%20)
				c.Put(key, g*1000+i)
				c.Get(key)
				if i%50 == 0 {
					c.Clear()
				}
			}
		}(g)
	}
	wg.Wait()
}
