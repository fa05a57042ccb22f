package metadata

import (
	"testing"
	"time"
)

func TestCache_GetSet(t *testing.T) {
	cache := NewCache(time.Minute)

	if _, ok := cache.Get("http://a:8000"); ok {
		t.Fatal("Get() on empty cache returned a hit")
	}

	meta := &AgentMetadata{Name: "A"}
	cache.Set("http://a:8000", meta)

	got, ok := cache.Get("http://a:8000")
	if !ok {
		t.Fatal("Get() missed a fresh entry")
	}
	if got.Name != "A" {
		t.Errorf("Get() Name = %s, want A", got.Name)
	}
}

func TestCache_TTLExpiry(t *testing.T) {
	cache := NewCache(time.Minute)

	current := time.Now()
	cache.now = func() time.Time { return current }

	cache.Set("http://a:8000", &AgentMetadata{Name: "A"})

	current = current.Add(59 * time.Second)
	if _, ok := cache.Get("http://a:8000"); !ok {
		t.Error("entry expired before the TTL elapsed")
	}

	current = current.Add(2 * time.Second)
	if _, ok := cache.Get("http://a:8000"); ok {
		t.Error("entry served past its TTL")
	}
}

func TestCache_Invalidate(t *testing.T) {
	cache := NewCache(time.Minute)
	cache.Set("http://a:8000", &AgentMetadata{Name: "A"})
	cache.Set("http://b:8000", &AgentMetadata{Name: "B"})

	cache.Invalidate("http://a:8000")

	if _, ok := cache.Get("http://a:8000"); ok {
		t.Error("invalidated entry still served")
	}
	if _, ok := cache.Get("http://b:8000"); !ok {
		t.Error("unrelated entry was dropped")
	}
}

func TestCache_DefaultTTL(t *testing.T) {
	cache := NewCache(0)
	if cache.ttl != DefaultTTL {
		t.Errorf("ttl = %v, want %v", cache.ttl, DefaultTTL)
	}
}
