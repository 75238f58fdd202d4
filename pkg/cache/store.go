package cache

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for cache operations.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "github_cache_hits_total",
		Help: "Total cache lookups that found a revalidatable entry",
	})

	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "github_cache_misses_total",
		Help: "Total cache lookups that found nothing",
	})

	cacheRevalidationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "github_cache_revalidations_total",
		Help: "Total 304 Not Modified responses served from cache",
	})
)

// DefaultMaxEntries bounds the store when no explicit size is configured.
const DefaultMaxEntries = 1024

// Store is a bounded in-memory cache of upstream responses.
type Store struct {
	mu         sync.RWMutex
	entries    map[string]*Entry
	maxEntries int
}

// NewStore creates a store holding at most maxEntries entries.
// Non-positive values fall back to DefaultMaxEntries.
func NewStore(maxEntries int) *Store {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Store{
		entries:    make(map[string]*Entry),
		maxEntries: maxEntries,
	}
}

// Get returns the cached entry for key, or nil.
func (s *Store) Get(key Key) *Entry {
	s.mu.RLock()
	entry := s.entries[key.String()]
	s.mu.RUnlock()

	if entry == nil {
		cacheMissesTotal.Inc()
		return nil
	}
	cacheHitsTotal.Inc()
	return entry
}

// Set stores an entry under key. When the store is full an arbitrary entry
// is evicted first; with revalidation the cost of losing an entry is one
// full-body fetch, so anything smarter than that is not worth the
// bookkeeping here.
func (s *Store) Set(key Key, data []byte, etag string, statusCode int) {
	if etag == "" {
		// Nothing to revalidate against later.
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) >= s.maxEntries {
		for k := range s.entries {
			delete(s.entries, k)
			break
		}
	}

	s.entries[key.String()] = &Entry{
		Data:       data,
		ETag:       etag,
		StatusCode: statusCode,
		CachedAt:   time.Now(),
	}
}

// MarkRevalidated records a 304 served from this store.
func (s *Store) MarkRevalidated() {
	cacheRevalidationsTotal.Inc()
}

// Len returns the number of cached entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
