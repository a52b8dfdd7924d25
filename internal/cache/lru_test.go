package cache

import (
	"testing"
	"time"

	"nomina/internal/log"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestLRUCacheExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](10, time.Minute).WithClock(clock.now)

	c.Set("a", "1")
	c.SetWithTTL("b", "2", time.Hour)
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("expected a=1, got %q %v", v, ok)
	}

	clock.t = clock.t.Add(2 * time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("a should have expired")
	}
	if _, ok := c.Get("b"); !ok {
		t.Fatalf("b has its own ttl and should still be live")
	}

	clock.t = clock.t.Add(2 * time.Hour)
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("expected one expired entry cleaned, got %d", n)
	}
	if c.Size() != 0 {
		t.Fatalf("cache should be empty, size %d", c.Size())
	}
}

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatalf("b was least recently used and should be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("a should survive")
	}
	c.Delete("a")
	if c.Size() != 1 {
		t.Fatalf("expected size 1, got %d", c.Size())
	}
}

func TestManagerCleanAll(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	c := NewLRUCache[int](5, time.Second).WithClock(clock.now)
	c.Set("x", 1)
	c.Set("y", 2)

	m := NewManager(log.Discard())
	m.Register("sessions", c)
	clock.t = clock.t.Add(time.Minute)
	if n := m.CleanAll(); n != 2 {
		t.Fatalf("expected 2 removed, got %d", n)
	}
	m.Stop()
	m.Stop()
}
