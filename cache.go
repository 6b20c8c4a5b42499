package tola

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// CacheEntry is one page's persisted compile result: the Phase 1
// rendered HTML (before the Phase 2 transforms) plus the freshness
// hashes that decided it didn't need recompiling (spec §4.G, "persistent VDOM cache").
type CacheEntry struct {
	SourceHash string `json:"source_hash"`
	DepsHash   string `json:"deps_hash"`
	HTML       string `json:"html"`
	Title      string `json:"title"`
}

// PageCache is a persistent, on-disk cache of compiled pages keyed by
// source path, so a dev-server restart doesn't force a full rebuild.
// Grounded on the teacher's template caching (templates.go's "don't
// reparse templates that haven't changed" idiom) generalized to whole
// pages and backed by JSON rather than in-memory only, since here the
// cache must survive process restarts (spec §4.G explicitly: the cache
// is persistent, not just per-process).
type PageCache struct {
	path string
	mu   sync.Mutex
	data map[string]CacheEntry
}

// LoadPageCache reads path (a JSON file) into a PageCache, starting
// empty if the file doesn't exist or fails to parse — a corrupt cache
// is never a fatal error, just a full rebuild.
func LoadPageCache(path string) *PageCache {
	c := &PageCache{path: path, data: make(map[string]CacheEntry)}
	raw, err := os.ReadFile(path)
	if err != nil {
		return c
	}
	_ = json.Unmarshal(raw, &c.data)
	return c
}

// Get returns the cached entry for source, matching it against the
// currently-computed source/deps hashes (spec §4.B: a stale entry is
// as good as absent).
func (c *PageCache) Get(source, sourceHash, depsHash string) (CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.data[source]
	if !ok || entry.SourceHash != sourceHash || entry.DepsHash != depsHash {
		return CacheEntry{}, false
	}
	return entry, true
}

// Put stores (or replaces) the cache entry for source.
func (c *PageCache) Put(source string, entry CacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[source] = entry
}

// Invalidate removes source's cached entry, used when its content or
// a dependency changes and the hash check alone isn't trusted (e.g. a
// forced --clean rebuild).
func (c *PageCache) Invalidate(source string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, source)
}

// Save persists the cache to its backing file.
func (c *PageCache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, err := json.Marshal(c.data)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return err
	}
	return os.WriteFile(c.path, raw, 0644)
}

// Len reports how many entries are currently cached, mainly for tests
// and build-summary logging.
func (c *PageCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}
