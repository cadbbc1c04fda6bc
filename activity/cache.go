package activity

import (
	"sync"
	"time"

	"github.com/hazyhaar/hourmaster/proto"
)

// SummaryCache memoizes evaluation results per subject for a short window,
// so bursts of requests (the web client and the driver polling at once)
// trigger one provider round-trip instead of several. Safe for concurrent
// use; one entry per subject, overwritten on every put.
type SummaryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[int64]cacheEntry
}

type cacheEntry struct {
	summary    proto.Summary
	computedAt time.Time
}

// NewSummaryCache creates a cache with the given TTL (<= 0 defaults to one
// minute, the provider response freshness window).
func NewSummaryCache(ttl time.Duration) *SummaryCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &SummaryCache{ttl: ttl, entries: make(map[int64]cacheEntry)}
}

// Get returns the cached summary if it was computed less than the TTL ago.
func (c *SummaryCache) Get(userID int64, now time.Time) (proto.Summary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[userID]
	if !ok || now.Sub(e.computedAt) >= c.ttl {
		return proto.Summary{}, false
	}
	return e.summary, true
}

// Put stores a freshly computed summary, unconditionally replacing any
// previous entry for the subject.
func (c *SummaryCache) Put(userID int64, summary proto.Summary, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[userID] = cacheEntry{summary: summary, computedAt: now}
}
