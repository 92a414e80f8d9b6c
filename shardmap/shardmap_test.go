package shardmap

import (
	"testing"
	"time"
)

func TestGetOrCreateReturnsSameValueOnSecondCall(t *testing.T) {
	m := New(4, 16, time.Minute)
	calls := 0
	create := func() interface{} {
		calls++
		return calls
	}
	v1 := m.GetOrCreate(42, "a", create)
	v2 := m.GetOrCreate(42, "a", create)
	if v1 != v2 {
		t.Fatalf("expected same value on second call, got %v and %v", v1, v2)
	}
	if calls != 1 {
		t.Fatalf("expected create to be called once, got %d", calls)
	}
}

func TestGetMissingKey(t *testing.T) {
	m := New(4, 16, time.Minute)
	if _, ok := m.Get(1, "missing"); ok {
		t.Fatal("expected miss for absent key")
	}
}

func TestDeleteRemovesEntry(t *testing.T) {
	m := New(1, 16, time.Minute)
	m.GetOrCreate(1, "a", func() interface{} { return 1 })
	m.Delete(1, "a")
	if _, ok := m.Get(1, "a"); ok {
		t.Fatal("expected entry to be gone after Delete")
	}
}

func TestEvictionDropsStalestGeneration(t *testing.T) {
	m := New(1, 2, time.Minute)
	m.GetOrCreate(1, "a", func() interface{} { return "a" })
	m.Bump()
	m.GetOrCreate(1, "b", func() interface{} { return "b" })
	// "a" is now generation 0, "b" is generation 1; inserting a third
	// distinct key should evict "a" since the shard is at capacity.
	m.GetOrCreate(1, "c", func() interface{} { return "c" })

	if _, ok := m.Get(1, "a"); ok {
		t.Fatal("expected stalest entry \"a\" to be evicted")
	}
	if _, ok := m.Get(1, "b"); !ok {
		t.Fatal("expected \"b\" to survive eviction")
	}
	if _, ok := m.Get(1, "c"); !ok {
		t.Fatal("expected newly inserted \"c\" to be present")
	}
}

func TestLenCountsAcrossShards(t *testing.T) {
	m := New(3, 16, time.Minute)
	for i := 0; i < 5; i++ {
		key := i
		m.GetOrCreate(uint64(i), key, func() interface{} { return key })
	}
	if got := m.Len(); got != 5 {
		t.Fatalf("Len() = %d, want 5", got)
	}
}

func TestShardForIsDeterministic(t *testing.T) {
	m := New(8, 16, time.Minute)
	s1 := m.shardFor(100)
	s2 := m.shardFor(100)
	if s1 != s2 {
		t.Fatal("shardFor must be deterministic for the same hash")
	}
}
