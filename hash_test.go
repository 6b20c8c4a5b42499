package tola

import (
	"os"
	"path/filepath"
	"testing"
)

func TestHashFileStableAndSensitive(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(p, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	h1 := HashFile(p)
	h2 := HashFile(p)
	if !h1.Equal(h2) {
		t.Fatal("expected stable hash for unchanged file")
	}

	InvalidateFileHash(p)
	if err := os.WriteFile(p, []byte("world"), 0o644); err != nil {
		t.Fatal(err)
	}
	h3 := HashFile(p)
	if h1.Equal(h3) {
		t.Fatal("expected different hash after content change")
	}
}

func TestHashFileMissingIsEmpty(t *testing.T) {
	h := HashFile(filepath.Join(t.TempDir(), "nope.txt"))
	if !h.IsEmpty() {
		t.Fatal("expected empty hash for missing file")
	}
}

func TestBuildAndParseHashMarker(t *testing.T) {
	src := HashFile(mustWriteTemp(t, "content"))
	marker := BuildHashMarker(src, ContentHash{}, false)
	body := []byte("<html></html>\n" + marker)
	src16, deps16, ok := ParseHashMarker(body)
	if !ok {
		t.Fatal("expected marker to parse")
	}
	if src16 != src.Short() || deps16 != "0" {
		t.Fatalf("got %q %q", src16, deps16)
	}
}

func TestIsFreshRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "hello.typ")
	out := filepath.Join(dir, "hello", "index.html")
	if err := os.WriteFile(src, []byte("= Hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		t.Fatal(err)
	}
	srcHash := HashFile(src)
	marker := BuildHashMarker(srcHash, ContentHash{}, false)
	body := "<html><body>Hello</body></html>\n" + marker
	if err := os.WriteFile(out, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	if !IsFresh(src, out, ContentHash{}, false) {
		t.Fatal("expected fresh immediately after write")
	}

	InvalidateFileHash(src)
	if err := os.WriteFile(src, []byte("= Hello again"), 0o644); err != nil {
		t.Fatal(err)
	}
	if IsFresh(src, out, ContentHash{}, false) {
		t.Fatal("expected stale after source change")
	}
}

func TestArchCacheFilename(t *testing.T) {
	name := ArchCacheFilename("vdom", "bin")
	if !MatchesCurrentArch(name) {
		t.Fatalf("expected %q to match current arch", name)
	}
	if MatchesCurrentArch("vdom_bogusarch_bogusos.bin") {
		t.Fatal("expected mismatch for foreign arch")
	}
}

func mustWriteTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}
