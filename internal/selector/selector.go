package selector

import (
	"slices"
	"strings"

	"github.com/standardbeagle/rci/internal/cache"
	"github.com/standardbeagle/rci/internal/candidx"
	"github.com/standardbeagle/rci/internal/catalog"
	"github.com/standardbeagle/rci/internal/debug"
)

// Selector answers "which rules should be matched against this unit" for one
// catalog. It is immutable apart from its cache and safe for concurrent use.
type Selector struct {
	catalog *catalog.Catalog
	index   *candidx.Index[*catalog.Rule]
	cache   *cache.CandidateCache[*catalog.Rule] // nil when caching is off
}

// Stats combines index shape and cache counters
type Stats struct {
	Rules       int               `json:"rules"`
	Fingerprint uint64            `json:"fingerprint"`
	Index       candidx.Stats     `json:"index"`
	Cache       *cache.CacheStats `json:"cache,omitempty"`
}

// New creates a Selector over cat. cacheEntries <= 0 disables the cache.
func New(cat *catalog.Catalog, cacheEntries int) *Selector {
	s := &Selector{
		catalog: cat,
		index:   cat.Index(),
	}
	if cacheEntries > 0 {
		s.cache = cache.NewCandidateCache[*catalog.Rule](cacheEntries)
	}
	return s
}

// Catalog returns the catalog the selector was built from
func (s *Selector) Catalog() *catalog.Catalog {
	return s.catalog
}

// Candidates returns the distinct rules worth matching against a unit whose
// identifiers are given, sorted by rule name. identifiers need not be sorted
// or unique.
func (s *Selector) Candidates(identifiers []string) []*catalog.Rule {
	observed := candidx.Canonicalize(identifiers...)

	if s.cache != nil {
		if rules, ok := s.cache.Get(observed); ok {
			return rules
		}
	}

	rules := candidx.Unique(s.index.Query(observed))
	slices.SortFunc(rules, func(a, b *catalog.Rule) int { return strings.Compare(a.Name, b.Name) })
	debug.LogQuery("%d identifiers -> %d candidates\n", len(observed), len(rules))

	if s.cache != nil {
		s.cache.Put(observed, rules)
	}
	return rules
}

// CandidateNames is Candidates reduced to rule names
func (s *Selector) CandidateNames(identifiers []string) []string {
	rules := s.Candidates(identifiers)
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.Name
	}
	return names
}

// Stats reports the selector's index and cache state
func (s *Selector) Stats() Stats {
	stats := Stats{
		Rules:       s.catalog.Len(),
		Fingerprint: s.catalog.Fingerprint(),
		Index:       s.index.Stats(),
	}
	if s.cache != nil {
		cs := s.cache.Stats()
		stats.Cache = &cs
	}
	return stats
}
