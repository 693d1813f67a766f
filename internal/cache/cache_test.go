package cache

import (
	"testing"
	"time"
)

func TestGetSetRoundTrip(t *testing.T) {
	c := New(time.Minute, 10)
	key := Key("Hello world", "es")
	c.Set(key, "Hola mundo")

	got, ok := c.Get(key)
	if !ok || got != "Hola mundo" {
		t.Fatalf("Get() = %q, %v; want Hola mundo, true", got, ok)
	}
}

func TestNormalizeKeyIgnoresCaseAndWhitespace(t *testing.T) {
	a := Key("  Hello   World  ", "es")
	b := Key("hello world", "es")
	if a != b {
		t.Fatalf("expected normalized keys to match: %q != %q", a, b)
	}
}

func TestDifferentTargetLanguagesDoNotCollide(t *testing.T) {
	c := New(time.Minute, 10)
	c.Set(Key("hello", "es"), "hola")
	c.Set(Key("hello", "fr"), "bonjour")

	es, _ := c.Get(Key("hello", "es"))
	fr, _ := c.Get(Key("hello", "fr"))
	if es != "hola" || fr != "bonjour" {
		t.Fatalf("expected distinct entries per target language, got es=%q fr=%q", es, fr)
	}
}

func TestMiss(t *testing.T) {
	c := New(time.Minute, 10)
	if _, ok := c.Get("nonexistent"); ok {
		t.Fatal("expected miss for absent key")
	}
	stats := c.Stats()
	if stats.Misses != 1 {
		t.Fatalf("expected 1 miss recorded, got %d", stats.Misses)
	}
}

func TestExpiryWinsOverPresence(t *testing.T) {
	c := New(10*time.Millisecond, 10)
	key := Key("hello", "es")
	c.Set(key, "hola")

	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get(key); ok {
		t.Fatal("expected expired entry to be a miss")
	}
	if c.Stats().Entries != 0 {
		t.Fatal("expected expired entry to be evicted lazily")
	}
}

func TestLRUEvictionOnPressure(t *testing.T) {
	c := New(time.Minute, 2)
	c.Set("a", "1")
	time.Sleep(time.Millisecond)
	c.Set("b", "2")
	time.Sleep(time.Millisecond)

	// Touch "a" so it is more recently accessed than "b".
	c.Get("a")
	time.Sleep(time.Millisecond)

	c.Set("c", "3") // at capacity: should evict "b" (least recently accessed)
	if _, ok := c.Get("b"); ok {
		t.Fatal("expected 'b' to be evicted as least-recently-accessed")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected 'a' to survive eviction")
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatal("expected newly-set 'c' to be present")
	}
}

func TestCleanupRemovesExpiredAndReturnsCount(t *testing.T) {
	c := New(10*time.Millisecond, 10)
	c.Set("a", "1")
	c.Set("b", "2")
	time.Sleep(20 * time.Millisecond)

	removed := c.Cleanup()
	if removed != 2 {
		t.Fatalf("expected 2 entries cleaned up, got %d", removed)
	}
	if c.Stats().Entries != 0 {
		t.Fatal("expected cache empty after cleanup")
	}
}

func TestHitRateMonotonicForIdenticalInputs(t *testing.T) {
	c := New(time.Minute, 10)
	key := Key("same content", "de")
	c.Set(key, "gleicher Inhalt")

	var prevRate float64
	for i := 0; i < 5; i++ {
		c.Get(key)
		rate := c.Stats().HitRate
		if rate < prevRate {
			t.Fatalf("hit rate decreased: %v -> %v", prevRate, rate)
		}
		prevRate = rate
	}
}

func TestClearResetsStatsAndEntries(t *testing.T) {
	c := New(time.Minute, 10)
	c.Set("a", "1")
	c.Get("a")
	c.Get("missing")
	c.Clear()

	stats := c.Stats()
	if stats.Hits != 0 || stats.Misses != 0 || stats.Entries != 0 {
		t.Fatalf("expected cleared stats, got %+v", stats)
	}
}

func TestConcurrentAccessDoesNotDropEntries(t *testing.T) {
	c := New(time.Minute, 1000)
	done := make(chan struct{})
	for i := 0; i < 50; i++ {
		go func(i int) {
			key := Key(string(rune('a'+i%26)), "en")
			c.Set(key, "v")
			c.Get(key)
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < 50; i++ {
		<-done
	}
}
