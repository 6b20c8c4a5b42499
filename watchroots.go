package tola

import (
	"log/slog"
	"os"

	"github.com/radovskyb/watcher"
)

// WatchRoots manages a set of desired watch roots against a
// radovskyb/watcher.Watcher, attaching tolerantly at startup and
// periodically re-attaching roots that disappeared and came back (spec
// §4.I).
type WatchRoots struct {
	desired  []string
	attached map[string]struct{}
}

// NewWatchRoots builds a WatchRoots for the given desired paths; none
// are attached until AttachExisting is called.
func NewWatchRoots(paths []string) *WatchRoots {
	return &WatchRoots{desired: paths, attached: make(map[string]struct{})}
}

// AttachExisting attaches each desired path that currently exists.
// Errors during attach (the root disappeared between the exists check
// and the watch call, or a recursive watch hit a transient missing
// descendant) are logged and swallowed — startup must not fail because
// one root briefly misbehaves; maintain() keeps trying.
func (w *WatchRoots) AttachExisting(w2 *watcher.Watcher) {
	for _, path := range w.desired {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := w2.AddRecursive(path); err != nil {
			existsNow := true
			if _, statErr := os.Stat(path); statErr != nil {
				existsNow = false
			}
			if !existsNow || isTransientWatchError(err) {
				slog.Debug("skip transient watch attach error on startup", "path", path, "err", err)
			} else {
				slog.Debug("skip non-transient watch attach error on startup", "path", path, "err", err)
			}
			continue
		}
		w.attached[path] = struct{}{}
	}
}

// Maintain drops stale attached handles for roots that no longer exist
// and retries attaching desired roots that currently exist but aren't
// attached. Called periodically from the watch loop.
func (w *WatchRoots) Maintain(w2 *watcher.Watcher) {
	for path := range w.attached {
		if _, err := os.Stat(path); err != nil {
			delete(w.attached, path)
		}
	}
	for _, path := range w.desired {
		if _, ok := w.attached[path]; ok {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := w2.AddRecursive(path); err == nil {
			w.attached[path] = struct{}{}
			slog.Debug("re-attached watch", "path", path)
		}
	}
}

// Attached returns a snapshot of currently attached roots, mainly for
// tests and diagnostics.
func (w *WatchRoots) Attached() []string {
	out := make([]string, 0, len(w.attached))
	for p := range w.attached {
		out = append(out, p)
	}
	return out
}

// isTransientWatchError classifies a watch-attach error as transient
// (safe to ignore at startup) versus one worth a louder log line. Both
// are swallowed per spec §4.I — this only changes the log message.
func isTransientWatchError(err error) bool {
	if err == nil {
		return true
	}
	return os.IsNotExist(err)
}
