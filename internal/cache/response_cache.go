package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/support-engine/internal/config"
)

// Fingerprint returns the deterministic content-derived key used for
// cache lookups.
func Fingerprint(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

type responseEntry struct {
	reply      string
	insertedAt time.Time
}

// ResponseCache is a time-bounded, size-bounded store mapping a
// (problem, context) fingerprint pair to a previously computed
// assistant reply. It is process-wide shared state: one instance is
// created at startup and handed to the pipeline. All mutation happens
// under a single lock, independent of per-ticket locks.
type ResponseCache struct {
	mu      sync.Mutex
	entries map[string]responseEntry

	maxEntries int
	evictBatch int
	ttl        time.Duration
	now        func() time.Time
}

// NewResponseCache builds the cache from config bounds.
func NewResponseCache(cfg config.CacheConfig) *ResponseCache {
	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = 500
	}
	evictBatch := cfg.EvictBatch
	if evictBatch <= 0 {
		evictBatch = 50
	}
	ttl := cfg.TTL()
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ResponseCache{
		entries:    make(map[string]responseEntry),
		maxEntries: maxEntries,
		evictBatch: evictBatch,
		ttl:        ttl,
		now:        time.Now,
	}
}

// Get returns the cached reply for the fingerprint pair. Expired
// entries are removed lazily and reported as a miss.
func (c *ResponseCache) Get(problemFP, contextFP string) (string, bool) {
	key := problemFP + ":" + contextFP
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if c.now().Sub(entry.insertedAt) >= c.ttl {
		delete(c.entries, key)
		return "", false
	}
	return entry.reply, true
}

// Set stores a reply. When the cache is full the oldest-inserted
// entries are evicted in one batch rather than one at a time.
func (c *ResponseCache) Set(problemFP, contextFP, reply string) {
	key := problemFP + ":" + contextFP
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.entries[key] = responseEntry{reply: reply, insertedAt: c.now()}
}

// Len returns the live entry count.
func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *ResponseCache) evictOldestLocked() {
	type aged struct {
		key string
		at  time.Time
	}
	all := make([]aged, 0, len(c.entries))
	for key, entry := range c.entries {
		all = append(all, aged{key: key, at: entry.insertedAt})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].at.Before(all[j].at) })

	batch := c.evictBatch
	if batch > len(all) {
		batch = len(all)
	}
	for _, victim := range all[:batch] {
		delete(c.entries, victim.key)
	}
}
