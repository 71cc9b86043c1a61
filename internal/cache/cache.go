// Package cache memoizes gateway lookups for the lifetime of an explorer
// session. Entries are never evicted or expired; an empty result is a real
// entry, distinct from a key that was never fetched.
package cache

import (
	"strings"
	"sync"

	"github.com/ziadkadry99/evodex/internal/evolution"
)

// Namespace partitions the cache by kind of lookup.
type Namespace string

const (
	SearchResults Namespace = "search"
	ForwardEdges  Namespace = "forward"
	ReverseEdges  Namespace = "reverse"
	Images        Namespace = "images"
)

// Namespaces lists every namespace in a stable order.
var Namespaces = []Namespace{SearchResults, ForwardEdges, ReverseEdges, Images}

// Recorder receives hit/miss notifications.
type Recorder interface {
	CacheHit(ns string)
	CacheMiss(ns string)
}

// Option configures a Cache.
type Option func(*Cache)

// WithRecorder reports lookups to r.
func WithRecorder(r Recorder) Option {
	return func(c *Cache) {
		if r != nil {
			c.recorder = r
		}
	}
}

// Stats is a point-in-time view of the cache.
type Stats struct {
	Entries map[Namespace]int `json:"entries"`
	Hits    int64             `json:"hits"`
	Misses  int64             `json:"misses"`
}

// Cache is a namespaced key/value store safe for concurrent use.
type Cache struct {
	mu       sync.RWMutex
	data     map[Namespace]map[string]any
	hits     int64
	misses   int64
	recorder Recorder
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{data: make(map[Namespace]map[string]any, len(Namespaces))}
	for _, ns := range Namespaces {
		c.data[ns] = make(map[string]any)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NormalizeKey trims whitespace. An empty result means the key is invalid.
func NormalizeKey(key string) string {
	return strings.TrimSpace(key)
}

// Get returns the entry for key in ns. Invalid keys and unknown namespaces
// report absent.
func (c *Cache) Get(ns Namespace, key string) (any, bool) {
	key = NormalizeKey(key)
	if key == "" {
		return nil, false
	}

	c.mu.RLock()
	bucket, known := c.data[ns]
	var v any
	var ok bool
	if known {
		v, ok = bucket[key]
	}
	c.mu.RUnlock()

	if !known {
		return nil, false
	}
	c.record(ns, ok)
	return v, ok
}

// Set stores value under key in ns. Invalid keys and unknown namespaces are
// ignored.
func (c *Cache) Set(ns Namespace, key string, value any) {
	key = NormalizeKey(key)
	if key == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if bucket, ok := c.data[ns]; ok {
		bucket[key] = value
	}
}

// Len returns the number of entries in ns.
func (c *Cache) Len(ns Namespace) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data[ns])
}

// Stats returns entry counts and lookup totals.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := Stats{Entries: make(map[Namespace]int, len(c.data)), Hits: c.hits, Misses: c.misses}
	for ns, bucket := range c.data {
		s.Entries[ns] = len(bucket)
	}
	return s
}

func (c *Cache) record(ns Namespace, hit bool) {
	c.mu.Lock()
	if hit {
		c.hits++
	} else {
		c.misses++
	}
	c.mu.Unlock()

	if c.recorder == nil {
		return
	}
	if hit {
		c.recorder.CacheHit(string(ns))
	} else {
		c.recorder.CacheMiss(string(ns))
	}
}

// SearchResults returns the cached results for a search query.
func (c *Cache) SearchResults(query string) ([]evolution.SpeciesRef, bool) {
	v, ok := c.Get(SearchResults, query)
	if !ok {
		return nil, false
	}
	refs, _ := v.([]evolution.SpeciesRef)
	return copyRefs(refs), true
}

// SetSearchResults caches results for a search query.
func (c *Cache) SetSearchResults(query string, refs []evolution.SpeciesRef) {
	c.Set(SearchResults, query, copyRefs(refs))
}

// ForwardEdges returns the cached forward evolutions of a species.
func (c *Cache) ForwardEdges(name string) ([]evolution.Edge, bool) {
	return c.edges(ForwardEdges, name)
}

// SetForwardEdges caches the forward evolutions of a species.
func (c *Cache) SetForwardEdges(name string, edges []evolution.Edge) {
	c.Set(ForwardEdges, name, copyEdges(edges))
}

// ReverseEdges returns the cached reverse evolutions of a species.
func (c *Cache) ReverseEdges(name string) ([]evolution.Edge, bool) {
	return c.edges(ReverseEdges, name)
}

// SetReverseEdges caches the reverse evolutions of a species.
func (c *Cache) SetReverseEdges(name string, edges []evolution.Edge) {
	c.Set(ReverseEdges, name, copyEdges(edges))
}

// Image returns the cached image URL of a species. A cached "" means the
// species is known to have no image.
func (c *Cache) Image(name string) (string, bool) {
	v, ok := c.Get(Images, name)
	if !ok {
		return "", false
	}
	url, _ := v.(string)
	return url, true
}

// SetImage caches the image URL of a species; "" records "no image".
func (c *Cache) SetImage(name, url string) {
	c.Set(Images, name, url)
}

func (c *Cache) edges(ns Namespace, name string) ([]evolution.Edge, bool) {
	v, ok := c.Get(ns, name)
	if !ok {
		return nil, false
	}
	edges, _ := v.([]evolution.Edge)
	return copyEdges(edges), true
}

// copyEdges always returns a non-nil slice so cached empties stay empty.
func copyEdges(in []evolution.Edge) []evolution.Edge {
	out := make([]evolution.Edge, len(in))
	copy(out, in)
	return out
}

func copyRefs(in []evolution.SpeciesRef) []evolution.SpeciesRef {
	out := make([]evolution.SpeciesRef, len(in))
	copy(out, in)
	return out
}
