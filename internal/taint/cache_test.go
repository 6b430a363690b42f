package taint

import (
	"testing"
	"time"

	"github.com/rawblock/wallet-forensics/pkg/models"
)

func TestCache_PutGet(t *testing.T) {
	c := NewCache(DefaultTTL, 10, "")
	key := CacheKey{SlotRangeStart: 1, SlotRangeEnd: 2, IncidentSetHash: "h1", GraphHash: "g1"}
	results := map[string]models.TaintResult{"a": {Address: "a", Share: 0.5}}

	c.Put(key, results)
	got, ok := c.Get(key)
	if !ok {
		t.Fatalf("expected cache hit")
	}
	if got["a"].Share != 0.5 {
		t.Fatalf("expected share 0.5, got %v", got["a"].Share)
	}
}

func TestCache_MissOnDifferentKey(t *testing.T) {
	c := NewCache(DefaultTTL, 10, "")
	c.Put(CacheKey{SlotRangeStart: 1, SlotRangeEnd: 2, IncidentSetHash: "h1", GraphHash: "g1"}, nil)
	_, ok := c.Get(CacheKey{SlotRangeStart: 1, SlotRangeEnd: 2, IncidentSetHash: "h2", GraphHash: "g1"})
	if ok {
		t.Fatalf("expected miss on differing incidentSetHash")
	}
}

func TestCache_TTLExpiry(t *testing.T) {
	c := NewCache(time.Nanosecond, 10, "")
	key := CacheKey{SlotRangeStart: 1, SlotRangeEnd: 2, IncidentSetHash: "h1", GraphHash: "g1"}
	c.Put(key, map[string]models.TaintResult{"a": {Address: "a"}})
	time.Sleep(time.Millisecond)
	_, ok := c.Get(key)
	if ok {
		t.Fatalf("expected expired entry to miss")
	}
}

func TestCache_LRUEviction(t *testing.T) {
	c := NewCache(DefaultTTL, 1, "")
	k1 := CacheKey{SlotRangeStart: 1, IncidentSetHash: "a", GraphHash: "g"}
	k2 := CacheKey{SlotRangeStart: 2, IncidentSetHash: "b", GraphHash: "g"}

	c.Put(k1, map[string]models.TaintResult{})
	c.Put(k2, map[string]models.TaintResult{})

	if _, ok := c.Get(k1); ok {
		t.Fatalf("expected k1 evicted once size exceeds maxSize")
	}
	if _, ok := c.Get(k2); !ok {
		t.Fatalf("expected k2 retained as most recently inserted")
	}
}

func TestCache_InvalidateByIncidents(t *testing.T) {
	c := NewCache(DefaultTTL, 10, "")
	key := CacheKey{SlotRangeStart: 1, IncidentSetHash: "h1", GraphHash: "g1"}
	c.Put(key, map[string]models.TaintResult{"a": {Address: "a", IncidentID: "inc-1"}})

	c.InvalidateByIncidents([]string{"inc-1"})
	if _, ok := c.Get(key); ok {
		t.Fatalf("expected entry invalidated by matching incident")
	}
}

func TestIncidentSetHash_OrderIndependent(t *testing.T) {
	a := []models.TaintSeed{
		{IncidentID: "x", Address: "1", InitialTaint: 0.5},
		{IncidentID: "y", Address: "2", InitialTaint: 0.3},
	}
	b := []models.TaintSeed{a[1], a[0]}

	if IncidentSetHash(a) != IncidentSetHash(b) {
		t.Fatalf("expected hash to be independent of input order")
	}
}
