package tola

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestServeRuntime(t *testing.T) (*ServeRuntime, string) {
	t.Helper()
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html><body>hi</body></html>"), 0644)
	os.WriteFile(filepath.Join(dir, "video.mp4"), []byte("0123456789"), 0644)
	s := &ServeRuntime{OutputDir: dir, PathPrefix: "/", HotReload: true, HotReloadJS: "x=1"}
	s.MarkServing()
	return s, dir
}

func TestServeContentSetsReadyHeader(t *testing.T) {
	s, _ := newTestServeRuntime(t)
	req := httptest.NewRequest(http.MethodGet, "/index.html", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Header().Get("X-Tola-Ready") != "true" {
		t.Fatalf("expected X-Tola-Ready header, got %v", rec.Header())
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestServeContentInjectsHotReloadScript(t *testing.T) {
	s, _ := newTestServeRuntime(t)
	req := httptest.NewRequest(http.MethodGet, "/index.html", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if got := rec.Body.String(); !strings.Contains(got, "x=1") {
		t.Fatalf("expected hot reload script injected, got %s", got)
	}
}

func TestServeContentPathTraversalRejected(t *testing.T) {
	s, _ := newTestServeRuntime(t)
	req := httptest.NewRequest(http.MethodGet, "/../../../etc/passwd", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code == http.StatusOK {
		t.Fatalf("expected traversal attempt to be rejected, got 200")
	}
}

func TestServeContentRangeRequest(t *testing.T) {
	s, _ := newTestServeRuntime(t)
	req := httptest.NewRequest(http.MethodGet, "/video.mp4", nil)
	req.Header.Set("Range", "bytes=2-5")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusPartialContent {
		t.Fatalf("expected 206, got %d", rec.Code)
	}
	if rec.Body.String() != "2345" {
		t.Fatalf("expected body '2345', got %q", rec.Body.String())
	}
	if rec.Header().Get("Content-Range") != "bytes 2-5/10" {
		t.Fatalf("unexpected Content-Range: %s", rec.Header().Get("Content-Range"))
	}
}

func TestServeContentNotFoundFallsBackToPlain(t *testing.T) {
	s, _ := newTestServeRuntime(t)
	req := httptest.NewRequest(http.MethodGet, "/missing.html", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestParseRangeHeaderVariants(t *testing.T) {
	cases := []struct {
		header           string
		size             int64
		wantStart, wantEnd int64
		wantOk           bool
	}{
		{"bytes=0-499", 1000, 0, 499, true},
		{"bytes=500-", 1000, 500, 999, true},
		{"bytes=-100", 1000, 900, 999, true},
		{"bytes=2000-3000", 1000, 0, 0, false},
	}
	for _, c := range cases {
		start, end, ok := parseRangeHeader(c.header, c.size)
		if ok != c.wantOk {
			t.Fatalf("%s: ok=%v, want %v", c.header, ok, c.wantOk)
		}
		if ok && (start != c.wantStart || end != c.wantEnd) {
			t.Fatalf("%s: got [%d,%d], want [%d,%d]", c.header, start, end, c.wantStart, c.wantEnd)
		}
	}
}
