package tola

import (
	"path/filepath"
	"testing"
)

func TestPageCachePutGetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	c := LoadPageCache(path)
	c.Put("content/index.md", CacheEntry{SourceHash: "abc", DepsHash: "def", HTML: "<p>hi</p>", Title: "Home"})

	entry, ok := c.Get("content/index.md", "abc", "def")
	if !ok || entry.HTML != "<p>hi</p>" {
		t.Fatalf("expected cache hit, got ok=%v entry=%+v", ok, entry)
	}
}

func TestPageCacheStaleHashMisses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	c := LoadPageCache(path)
	c.Put("content/index.md", CacheEntry{SourceHash: "abc", DepsHash: "def", HTML: "<p>hi</p>"})

	if _, ok := c.Get("content/index.md", "changed", "def"); ok {
		t.Fatal("expected cache miss on changed source hash")
	}
}

func TestPageCacheSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	c := LoadPageCache(path)
	c.Put("content/about.md", CacheEntry{SourceHash: "h1", DepsHash: "h2", HTML: "<p>about</p>"})
	if err := c.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	reloaded := LoadPageCache(path)
	entry, ok := reloaded.Get("content/about.md", "h1", "h2")
	if !ok || entry.HTML != "<p>about</p>" {
		t.Fatalf("expected entry to survive reload, got ok=%v entry=%+v", ok, entry)
	}
}

func TestPageCacheMissingFileStartsEmpty(t *testing.T) {
	c := LoadPageCache(filepath.Join(t.TempDir(), "does-not-exist.json"))
	if c.Len() != 0 {
		t.Fatalf("expected empty cache, got %d entries", c.Len())
	}
}
