package cache

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/standardbeagle/rci/internal/candidx"
)

// DefaultMaxEntries bounds the cache when no explicit size is configured
const DefaultMaxEntries = 4096

// cachedCandidates is one memoized query result
type cachedCandidates[T any] struct {
	key         string // canonical identifiers, guards against hash collisions
	candidates  []T
	AccessCount int64 // atomic
}

// CandidateCache memoizes candidate lists per observed identifier set.
// Code units frequently share the same identifier set (generated code,
// small classes), so repeated queries skip the trie walk entirely.
//
// Lookups are lock-free via sync.Map. The cache belongs to one frozen index
// and is discarded with it; entries never expire. When the entry budget is
// exhausted the whole cache is cleared.
//
// The budget is approximate under concurrency: Puts racing past the check
// can overshoot it by at most the number of concurrent writers. The entry
// count may run high after a racing Clear but never below the real size.
type CandidateCache[T any] struct {
	entries    sync.Map // map[uint64]*cachedCandidates[T]
	maxEntries int64

	// Atomic counters
	count     int64
	hits      int64
	misses    int64
	evictions int64

	createdAt time.Time
}

// CacheStats is a point-in-time snapshot of the counters
type CacheStats struct {
	Entries   int64
	Hits      int64
	Misses    int64
	Evictions int64
	HitRate   float64
	Age       time.Duration
}

// NewCandidateCache creates a cache holding at most maxEntries results.
// maxEntries <= 0 uses DefaultMaxEntries.
func NewCandidateCache[T any](maxEntries int) *CandidateCache[T] {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &CandidateCache[T]{
		maxEntries: int64(maxEntries),
		createdAt:  time.Now(),
	}
}

func hashKey(key string) uint64 {
	return xxhash.Sum64String(key)
}

// Get returns the cached candidates for observed. The returned slice is a
// copy owned by the caller.
func (c *CandidateCache[T]) Get(observed candidx.Combination) ([]T, bool) {
	key := observed.Key()
	if v, ok := c.entries.Load(hashKey(key)); ok {
		cached := v.(*cachedCandidates[T])
		if cached.key == key {
			atomic.AddInt64(&cached.AccessCount, 1)
			atomic.AddInt64(&c.hits, 1)
			return slices.Clone(cached.candidates), true
		}
	}
	atomic.AddInt64(&c.misses, 1)
	return nil, false
}

// Put stores candidates for observed, replacing any entry with the same hash.
func (c *CandidateCache[T]) Put(observed candidx.Combination, candidates []T) {
	if atomic.LoadInt64(&c.count) >= c.maxEntries {
		c.Clear()
		atomic.AddInt64(&c.evictions, 1)
	}

	key := observed.Key()
	entry := &cachedCandidates[T]{key: key, candidates: slices.Clone(candidates)}
	if _, loaded := c.entries.Swap(hashKey(key), entry); !loaded {
		atomic.AddInt64(&c.count, 1)
	}
}

// Clear drops every entry; counters other than the entry count are kept.
func (c *CandidateCache[T]) Clear() {
	// Reset before dropping so a racing Put can only leave count too high
	atomic.StoreInt64(&c.count, 0)
	c.entries.Clear()
}

// Stats returns the current counters
func (c *CandidateCache[T]) Stats() CacheStats {
	hits := atomic.LoadInt64(&c.hits)
	misses := atomic.LoadInt64(&c.misses)
	stats := CacheStats{
		Entries:   atomic.LoadInt64(&c.count),
		Hits:      hits,
		Misses:    misses,
		Evictions: atomic.LoadInt64(&c.evictions),
		Age:       time.Since(c.createdAt),
	}
	if total := hits + misses; total > 0 {
		stats.HitRate = float64(hits) / float64(total)
	}
	return stats
}
