package taint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rawblock/wallet-forensics/internal/graph"
	"github.com/rawblock/wallet-forensics/pkg/models"
)

// CacheKey is the composite key a stored propagation run is looked up by.
type CacheKey struct {
	SlotRangeStart  int64
	SlotRangeEnd    int64
	IncidentSetHash string
	GraphHash       string
}

// String renders the key as a filesystem-safe identifier for on-disk
// persistence.
func (k CacheKey) String() string {
	return fmt.Sprintf("%d-%d-%s-%s", k.SlotRangeStart, k.SlotRangeEnd, k.IncidentSetHash, k.GraphHash)
}

// IncidentSetHash hashes the sorted (incidentId, address, initialTaint)
// tuples of a seed set.
func IncidentSetHash(seeds []models.TaintSeed) string {
	type tuple struct {
		IncidentID string
		Address    string
		Initial    float64
	}
	tuples := make([]tuple, len(seeds))
	for i, s := range seeds {
		tuples[i] = tuple{IncidentID: s.IncidentID, Address: s.Address, Initial: s.InitialTaint}
	}
	sort.Slice(tuples, func(i, j int) bool {
		if tuples[i].IncidentID != tuples[j].IncidentID {
			return tuples[i].IncidentID < tuples[j].IncidentID
		}
		return tuples[i].Address < tuples[j].Address
	})
	h := sha256.New()
	for _, t := range tuples {
		fmt.Fprintf(h, "%s|%s|%f;", t.IncidentID, t.Address, t.Initial)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// GraphHash hashes |E|, |V|, and the first N sorted addresses of a graph.
func GraphHash(g *graph.TxGraph, n int) string {
	nodes := g.Nodes()
	sort.Strings(nodes)
	if len(nodes) > n {
		nodes = nodes[:n]
	}
	h := sha256.New()
	fmt.Fprintf(h, "%d|%d|", g.EdgeCount(), g.NodeCount())
	for _, addr := range nodes {
		fmt.Fprintf(h, "%s;", addr)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// cacheEntry is one stored propagation result plus bookkeeping for TTL/LRU
// eviction.
type cacheEntry struct {
	Results      map[string]models.TaintResult `json:"results"`
	StoredAt     time.Time                     `json:"storedAt"`
	LastAccessed time.Time                     `json:"lastAccessed"`
}

// Cache is the process-wide taint propagation cache. A zero Cache is
// not usable; construct with NewCache.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry

	ttl     time.Duration
	maxSize int
	dir     string // empty disables on-disk persistence
}

// NewCache constructs a Cache with the given TTL and max in-memory size. If
// dir is non-empty, entries also persist to one JSON file per key under
// dir.
func NewCache(ttl time.Duration, maxSize int, dir string) *Cache {
	return &Cache{
		entries: make(map[string]*cacheEntry),
		ttl:     ttl,
		maxSize: maxSize,
		dir:     dir,
	}
}

// DefaultTTL is the default entry lifetime.
const DefaultTTL = 24 * time.Hour

// Get returns the cached propagation result for key, if present and not
// expired, updating lastAccessed on hit.
func (c *Cache) Get(key CacheKey) (map[string]models.TaintResult, bool) {
	k := key.String()

	c.mu.Lock()
	entry, ok := c.entries[k]
	if ok && time.Since(entry.StoredAt) <= c.ttl {
		entry.LastAccessed = time.Now()
		result := entry.Results
		c.mu.Unlock()
		return result, true
	}
	c.mu.Unlock()

	if !ok && c.dir != "" {
		if loaded, err := c.loadFromDisk(key); err == nil && time.Since(loaded.StoredAt) <= c.ttl {
			c.mu.Lock()
			loaded.LastAccessed = time.Now()
			c.entries[k] = loaded
			c.mu.Unlock()
			return loaded.Results, true
		}
	}
	return nil, false
}

// Put stores results under key, evicting if the cache is over maxSize.
func (c *Cache) Put(key CacheKey, results map[string]models.TaintResult) {
	now := time.Now()
	entry := &cacheEntry{Results: results, StoredAt: now, LastAccessed: now}

	c.mu.Lock()
	c.entries[key.String()] = entry
	c.evictLocked()
	c.mu.Unlock()

	if c.dir != "" {
		if err := c.saveToDisk(key, entry); err != nil {
			log.Printf("[Cache] disk persist failed for key %s: %v", key.String(), err)
		}
	}
}

// InvalidateByIncidents deletes any entry whose stored result set covers
// any incident in ids.
func (c *Cache) InvalidateByIncidents(ids []string) {
	idSet := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		idSet[id] = struct{}{}
	}

	c.mu.Lock()
	for k, entry := range c.entries {
		if entryCoversAny(entry, idSet) {
			delete(c.entries, k)
			if c.dir != "" {
				_ = os.Remove(filepath.Join(c.dir, k+".json"))
			}
		}
	}
	c.mu.Unlock()
}

func entryCoversAny(entry *cacheEntry, ids map[string]struct{}) bool {
	for _, r := range entry.Results {
		if _, ok := ids[r.IncidentID]; ok {
			return true
		}
	}
	return false
}

// Cleanup evicts TTL-expired entries, then LRU-evicts down to maxSize.
func (c *Cache) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, entry := range c.entries {
		if time.Since(entry.StoredAt) > c.ttl {
			delete(c.entries, k)
		}
	}
	c.evictLocked()
}

// evictLocked must be called with c.mu held. It removes the least-recently
// accessed entries until len(c.entries) <= c.maxSize.
func (c *Cache) evictLocked() {
	if c.maxSize <= 0 || len(c.entries) <= c.maxSize {
		return
	}
	type keyed struct {
		key      string
		accessed time.Time
	}
	ordered := make([]keyed, 0, len(c.entries))
	for k, entry := range c.entries {
		ordered = append(ordered, keyed{key: k, accessed: entry.LastAccessed})
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].accessed.Before(ordered[j].accessed) })

	excess := len(c.entries) - c.maxSize
	for i := 0; i < excess; i++ {
		delete(c.entries, ordered[i].key)
	}
}

func (c *Cache) diskPath(key CacheKey) string {
	return filepath.Join(c.dir, key.String()+".json")
}

func (c *Cache) saveToDisk(key CacheKey, entry *cacheEntry) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("taint cache: mkdir: %w", err)
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("taint cache: marshal: %w", err)
	}
	if err := os.WriteFile(c.diskPath(key), data, 0o644); err != nil {
		return fmt.Errorf("taint cache: write: %w", err)
	}
	return nil
}

func (c *Cache) loadFromDisk(key CacheKey) (*cacheEntry, error) {
	data, err := os.ReadFile(c.diskPath(key))
	if err != nil {
		return nil, fmt.Errorf("taint cache: read: %w", err)
	}
	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("taint cache: unmarshal: %w", err)
	}
	return &entry, nil
}
