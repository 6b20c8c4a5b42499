package tola

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
)

// ReadyChecker reports whether a requested path's page has finished
// at least one compile, and triggers an on-demand Active compile for
// it if not. The dev server consults this on every request before
// falling through to the filesystem (spec §4.J: "serve-time on-demand
// compilation").
type ReadyChecker interface {
	// EnsureReady blocks (bounded) until urlPath's page has been built
	// at least once, compiling it now if necessary. Returns an error if
	// the compile failed; the caller serves a compile-error page in
	// that case.
	EnsureReady(ctx context.Context, urlPath string) error
}

// Broadcaster pushes a reload/error notification to every connected
// hot-reload client (spec §4.L, implemented by the websocket
// coordinator in actors.go).
type Broadcaster interface {
	BroadcastReload()
	BroadcastError(message string)
}

// ServeRuntime is the dev HTTP server: request routing, range
// responses, hot-reload script injection, and path-traversal safety.
// Grounded on the teacher's Site.Serve/Handler/withLogger (mux +
// httpsnoop) and on original_source's cli/serve/response.rs for the
// exact response shapes (X-Tola-Ready header, HEAD semantics, Range
// handling, welcome/loading pages).
type ServeRuntime struct {
	OutputDir   string
	ContentDir  string
	PathPrefix  string
	HotReload   bool
	HotReloadJS string
	Ready       ReadyChecker
	Broadcast   Broadcaster
	WebSocket   http.HandlerFunc

	serving      atomic.Bool
	shuttingDown atomic.Bool
}

// MarkServing flips the not-serving -> loading gate open, done once the
// first full build has completed (spec §4.J: every request before that
// point gets the loading page instead of a 404).
func (s *ServeRuntime) MarkServing() { s.serving.Store(true) }

func (s *ServeRuntime) isServing() bool { return s.serving.Load() }

// isContentEmpty reports whether the content directory holds nothing
// worth compiling: missing, unreadable, no entries, or exactly one
// index.typ whose trimmed contents are blank (grounded on
// content.rs's is_content_empty). A runtime with no ContentDir set
// (e.g. a unit test exercising serveContent directly) always reports
// non-empty so existing file/404/range behavior is unaffected.
func (s *ServeRuntime) isContentEmpty() bool {
	if s.ContentDir == "" {
		return false
	}
	entries, err := os.ReadDir(s.ContentDir)
	if err != nil {
		return true
	}
	if len(entries) == 0 {
		return true
	}
	if len(entries) == 1 && !entries[0].IsDir() && entries[0].Name() == "index.typ" {
		data, err := os.ReadFile(filepath.Join(s.ContentDir, "index.typ"))
		if err != nil {
			return true
		}
		return strings.TrimSpace(string(data)) == ""
	}
	return false
}

// Handler builds the mux.Router serving this runtime, gated by a
// shutdown check that runs before even the hotreload.js special case
// (mirroring mod.rs's handle_request checking is_shutdown() first).
func (s *ServeRuntime) Handler() http.Handler {
	router := mux.NewRouter()
	if s.HotReload {
		router.HandleFunc("/__tola/hotreload.js", s.serveHotReloadJS)
	}
	if s.WebSocket != nil {
		router.HandleFunc("/__tola/ws", s.WebSocket)
	}
	prefix := s.PathPrefix
	router.PathPrefix(prefix).Handler(http.StripPrefix(prefix, http.HandlerFunc(s.serveContent)))
	return withAccessLog(s.withShutdownGate(router))
}

func (s *ServeRuntime) withShutdownGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.shuttingDown.Load() {
			s.respondUnavailable(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ListenAndServe starts the HTTP server and blocks until ctx is
// cancelled, then shuts down gracefully.
func (s *ServeRuntime) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.shuttingDown.Store(true)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *ServeRuntime) serveHotReloadJS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("X-Tola-Ready", "true")
	w.Write([]byte(s.HotReloadJS))
}

// serveContent implements the request-handling state machine of spec
// §4.J, grounded on mod.rs's handle_request: not-serving -> loading
// page, empty content -> welcome page, resolved from disk -> file
// response, else an on-demand compile attempt (success -> file, error
// -> compile-error page), falling through to 404.
func (s *ServeRuntime) serveContent(w http.ResponseWriter, r *http.Request) {
	urlPath := r.URL.Path

	if !s.isServing() {
		s.respondLoading(w, r)
		return
	}

	if s.isContentEmpty() {
		s.respondWelcome(w, r)
		return
	}

	if fsPath, info, ok := s.resolveFromDisk(urlPath); ok {
		s.respondFile(w, r, fsPath, info)
		return
	}

	if s.Ready != nil {
		if err := s.Ready.EnsureReady(r.Context(), urlPath); err != nil {
			s.respondCompileError(w, r, err)
			return
		}
		if fsPath, info, ok := s.resolveFromDisk(urlPath); ok {
			s.respondFile(w, r, fsPath, info)
			return
		}
	}

	s.respondNotFound(w, r)
}

// resolveFromDisk maps a request path to an already-built file under
// OutputDir, falling back to that directory's index.html. A path that
// fails safeJoin (traversal attempt) or that doesn't exist on disk both
// report ok=false, so either case flows into the same on-demand-compile
// / 404 fallback (spec review: no distinct 403 branch, matching
// path::resolve_path simply returning None for an unsafe path).
func (s *ServeRuntime) resolveFromDisk(urlPath string) (string, os.FileInfo, bool) {
	fsPath, ok := s.safeJoin(urlPath)
	if !ok {
		return "", nil, false
	}
	info, err := os.Stat(fsPath)
	if err != nil || info.IsDir() {
		candidate := filepath.Join(fsPath, "index.html")
		info2, err2 := os.Stat(candidate)
		if err2 != nil || info2.IsDir() {
			return "", nil, false
		}
		return candidate, info2, true
	}
	return fsPath, info, true
}

func (s *ServeRuntime) respondFile(w http.ResponseWriter, r *http.Request, fsPath string, info os.FileInfo) {
	contentType := mimeFromPath(fsPath)

	if r.Method == http.MethodHead {
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("X-Tola-Ready", "true")
		w.WriteHeader(http.StatusOK)
		return
	}

	if rangeHeader := r.Header.Get("Range"); rangeHeader != "" {
		s.respondRange(w, r, fsPath, contentType, rangeHeader, info.Size())
		return
	}

	body, err := os.ReadFile(fsPath)
	if err != nil {
		s.respondNotFound(w, r)
		return
	}
	if s.HotReload && contentType == "text/html; charset=utf-8" {
		body = injectHotReloadScript(body, s.HotReloadJS)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Tola-Ready", "true")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// safeJoin resolves an URL path against OutputDir, rejecting any
// attempt to escape it via ".." components (path traversal safety,
// spec §4.J).
func (s *ServeRuntime) safeJoin(urlPath string) (string, bool) {
	clean := filepath.Clean("/" + strings.TrimPrefix(urlPath, s.PathPrefix))
	full := filepath.Join(s.OutputDir, clean)
	rootAbs, err := filepath.Abs(s.OutputDir)
	if err != nil {
		return "", false
	}
	fullAbs, err := filepath.Abs(full)
	if err != nil {
		return "", false
	}
	if fullAbs != rootAbs && !strings.HasPrefix(fullAbs, rootAbs+string(os.PathSeparator)) {
		return "", false
	}
	return fullAbs, true
}

// loadingHTML is served while the first build hasn't completed yet.
const loadingHTML = `<html><head><title>tola</title></head><body><h1>Building...</h1><p>The site is being built. This page will refresh automatically.</p></body></html>`

// welcomeHTML is served when the content directory is effectively
// empty, before the poll script is injected.
const welcomeHTML = `<html><head><title>Welcome</title></head><body><h1>Welcome to tola</h1><p>Create content/index.typ to get started.</p></body></html>`

// welcomePollScript polls this same URL via HEAD until X-Tola-Ready
// flips true, then reloads (grounded on response.rs's respond_welcome).
const welcomePollScript = `<script>
(function(){
    var url = location.origin + location.pathname + location.search;
    var poll = function() {
        fetch(url, { method: 'HEAD' })
            .then(function(r) {
                if (r.ok && r.headers.get('X-Tola-Ready') === 'true') location.reload();
            })
            .catch(function() {});
    };
    poll();
    setInterval(poll, 1000);
})();
</script>`

// sendHTML writes an HTML response without X-Tola-Ready, the loading
// and welcome pages' deliberate omission so a client-side poller can
// distinguish them from a real, ready response.
func sendHTML(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}

func (s *ServeRuntime) respondLoading(w http.ResponseWriter, r *http.Request) {
	sendHTML(w, loadingHTML)
}

func (s *ServeRuntime) respondWelcome(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodHead {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		return
	}
	body := insertBeforeBodyClose([]byte(welcomeHTML), []byte(welcomePollScript))
	sendHTML(w, string(body))
}

func (s *ServeRuntime) respondUnavailable(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Tola-Ready", "true")
	w.WriteHeader(http.StatusServiceUnavailable)
	w.Write([]byte("503 Service Unavailable"))
}

func (s *ServeRuntime) respondNotFound(w http.ResponseWriter, r *http.Request) {
	custom := filepath.Join(s.OutputDir, "404.html")
	contentType := "text/plain; charset=utf-8"
	body := []byte("404 Not Found")
	if data, err := os.ReadFile(custom); err == nil {
		contentType = "text/html; charset=utf-8"
		if s.HotReload {
			data = injectHotReloadScript(data, s.HotReloadJS)
		}
		body = data
	}
	if r.Method == http.MethodHead {
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("X-Tola-Ready", "true")
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Tola-Ready", "true")
	w.WriteHeader(http.StatusNotFound)
	w.Write(body)
}

func (s *ServeRuntime) respondCompileError(w http.ResponseWriter, r *http.Request, err error) {
	if s.Broadcast != nil {
		s.Broadcast.BroadcastError(err.Error())
	}
	msg := html.EscapeString(fmt.Sprintf("%v", err))
	body := []byte(fmt.Sprintf("<html><body><h1>Compilation Error</h1><pre>%s</pre></body></html>", msg))
	if s.HotReload {
		body = injectHotReloadScript(body, s.HotReloadJS)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Tola-Ready", "true")
	w.WriteHeader(http.StatusInternalServerError)
	w.Write(body)
}

// respondRange implements HTTP Range (video/audio seeking), mirroring
// original_source's respond_range/parse_range byte-for-byte in intent.
func (s *ServeRuntime) respondRange(w http.ResponseWriter, r *http.Request, fsPath, contentType, rangeHeader string, size int64) {
	start, end, ok := parseRangeHeader(rangeHeader, size)
	if !ok {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return
	}
	f, err := os.Open(fsPath)
	if err != nil {
		s.respondNotFound(w, r)
		return
	}
	defer f.Close()
	if _, err := f.Seek(start, 0); err != nil {
		s.respondNotFound(w, r)
		return
	}

	length := end - start + 1
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, size))
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Length", strconv.FormatInt(length, 10))
	w.Header().Set("X-Tola-Ready", "true")
	w.WriteHeader(http.StatusPartialContent)
	writeN(w, f, length)
}

func writeN(w http.ResponseWriter, f *os.File, n int64) {
	buf := make([]byte, 32*1024)
	remaining := n
	for remaining > 0 {
		toRead := int64(len(buf))
		if remaining < toRead {
			toRead = remaining
		}
		read, err := f.Read(buf[:toRead])
		if read > 0 {
			w.Write(buf[:read])
			remaining -= int64(read)
		}
		if err != nil {
			return
		}
	}
}

// parseRangeHeader parses "bytes=start-end", "bytes=start-", and
// "bytes=-suffix" forms.
func parseRangeHeader(header string, size int64) (start, end int64, ok bool) {
	spec := strings.TrimPrefix(header, "bytes=")
	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 {
		return 0, size - 1, true
	}
	s, e := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	switch {
	case s != "" && e != "":
		start, _ = strconv.ParseInt(s, 10, 64)
		end, _ = strconv.ParseInt(e, 10, 64)
		if end > size-1 {
			end = size - 1
		}
	case s != "" && e == "":
		start, _ = strconv.ParseInt(s, 10, 64)
		end = size - 1
	case s == "" && e != "":
		suffix, _ := strconv.ParseInt(e, 10, 64)
		start = size - suffix
		if start < 0 {
			start = 0
		}
		end = size - 1
	default:
		return 0, size - 1, true
	}
	if start < 0 || start > end || end >= size {
		return 0, 0, false
	}
	return start, end, true
}

func injectHotReloadScript(body []byte, script string) []byte {
	if script == "" {
		return body
	}
	tag := []byte("<script>" + script + "</script>")
	return insertBeforeBodyClose(body, tag)
}

// insertBeforeBodyClose splices insert immediately before the last
// case-insensitive "</body>" in content, or appends it to the end if
// no such tag is present (grounded on content.rs's
// inject_hotreload_script: a reverse byte-window search, never the
// first/case-sensitive match, with an append-to-end fallback since
// browsers tolerate a trailing script tag outside </html>).
func insertBeforeBodyClose(content, insert []byte) []byte {
	pos := rfindCaseInsensitive(content, []byte("</body>"))
	out := make([]byte, 0, len(content)+len(insert))
	if pos < 0 {
		out = append(out, content...)
		out = append(out, insert...)
		return out
	}
	out = append(out, content[:pos]...)
	out = append(out, insert...)
	out = append(out, content[pos:]...)
	return out
}

// rfindCaseInsensitive returns the start index of the last
// case-insensitive occurrence of pattern in content, or -1.
func rfindCaseInsensitive(content, pattern []byte) int {
	if len(pattern) > len(content) {
		return -1
	}
	for i := len(content) - len(pattern); i >= 0; i-- {
		if bytes.EqualFold(content[i:i+len(pattern)], pattern) {
			return i
		}
	}
	return -1
}

func mimeFromPath(path string) string {
	ext := filepath.Ext(path)
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func withAccessLog(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(handler, w, r)
		slog.Debug("http", "status", m.Code, "duration", m.Duration, "path", r.URL.Path)
	})
}
