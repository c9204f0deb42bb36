package retrieve

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// cacheKey hashes every input that affects a retrieval's outcome, so two
// calls that differ in any of them never collide.
func cacheKey(query string, window Window, filters Filters, kFinal int, flags Flags) string {
	sources := append([]string{}, filters.Sources...)
	sort.Strings(sources)

	var b strings.Builder
	fmt.Fprintf(&b, "q=%s|lang=%s|sources=%s|intent=%s|k=%d|cache_disabled=%v",
		strings.ToLower(strings.TrimSpace(query)), filters.Language,
		strings.Join(sources, ","), filters.Intent, kFinal, flags.DisableCache)
	if window.After != nil {
		fmt.Fprintf(&b, "|after=%d", window.After.Unix())
	}
	if window.Before != nil {
		fmt.Fprintf(&b, "|before=%d", window.Before.Unix())
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

type cacheEntry struct {
	result  *Result
	expires time.Time
}

// Cache is a small in-process TTL cache keyed by cacheKey. The
// conversational QA path must construct callers with DisableCache set
// rather than bypassing this type, so the bypass is observable in
// Diagnostics.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{ttl: ttl, entries: make(map[string]cacheEntry)}
}

func (c *Cache) get(key string, now time.Time) (*Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok || now.After(entry.expires) {
		return nil, false
	}
	return entry.result, true
}

func (c *Cache) set(key string, result *Result, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{result: result, expires: now.Add(c.ttl)}
}

// Size reports how many entries the cache currently holds, stale or not.
// Exists for the health endpoint's retrieval_cache check; the retriever
// itself never needs a count.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
