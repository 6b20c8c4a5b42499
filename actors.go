package tola

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/radovskyb/watcher"
)

// Coordinator wires the file-watch debouncer, the priority scheduler,
// and the hot-reload websocket broadcaster together (spec §4.L). It is
// the Go analogue of the original's actor system: rather than separate
// OS threads passing messages over channels, each "actor" here is a
// goroutine reading from a channel, matching the concurrency idiom the
// teacher uses for its watcher-driven Rebuild (site.go) but generalized
// to the three-actor shape (fs watcher, compiler, hot reload) spec'd
// for tola.
type Coordinator struct {
	debouncer  *Debouncer
	watchRoots *WatchRoots
	scheduler  *Scheduler
	watcher    *watcher.Watcher

	upgrader websocket.Upgrader
	clients  map[*websocket.Conn]struct{}
	mu       sync.Mutex

	pollInterval time.Duration
}

// NewCoordinator builds a Coordinator over the given roots, whose
// compile work is dispatched through compile.
func NewCoordinator(roots []string, compile CompileFunc, workers int) *Coordinator {
	return &Coordinator{
		debouncer:    NewDebouncer(),
		watchRoots:   NewWatchRoots(roots),
		scheduler:    NewScheduler(workers, compile),
		watcher:      watcher.New(),
		upgrader:     websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		clients:      make(map[*websocket.Conn]struct{}),
		pollInterval: 100 * time.Millisecond,
	}
}

// Run starts the fs-watch and debounce-drain loops, blocking until ctx
// is cancelled.
func (c *Coordinator) Run(ctx context.Context) error {
	c.watchRoots.AttachExisting(c.watcher)
	c.watcher.SetMaxEvents(0)

	go func() {
		if err := c.watcher.Start(c.pollInterval); err != nil {
			slog.Error("fs watcher stopped", "err", err)
		}
	}()
	defer c.watcher.Close()

	drainTicker := time.NewTicker(DebounceMs / 3 * time.Millisecond)
	defer drainTicker.Stop()
	maintainTicker := time.NewTicker(5 * time.Second)
	defer maintainTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.scheduler.Shutdown()
			return nil
		case ev := <-c.watcher.Event:
			if ev.Op == watcher.Chmod {
				// metadata-only change: dropped so chmod/touch noise
				// never triggers a rebuild
				continue
			}
			c.debouncer.AddEvent(ev.Path, changeKindFromOp(ev.Op), time.Now())
		case err := <-c.watcher.Error:
			slog.Error("fs watcher error", "err", err)
		case <-maintainTicker.C:
			c.watchRoots.Maintain(c.watcher)
		case <-drainTicker.C:
			changes := c.debouncer.TakeIfReady(time.Now())
			if len(changes) == 0 {
				continue
			}
			c.dispatchChanges(changes)
		}
	}
}

func (c *Coordinator) dispatchChanges(changes map[string]ChangeKind) {
	var files []string
	removed := 0
	for path, kind := range changes {
		if kind == ChangeRemoved {
			removed++
			continue
		}
		files = append(files, path)
	}
	if len(files) > 0 {
		c.scheduler.SubmitBackground(files)
	}
	c.BroadcastReload()
}

func changeKindFromOp(op watcher.Op) ChangeKind {
	switch op {
	case watcher.Create:
		return ChangeCreated
	case watcher.Remove:
		return ChangeRemoved
	default:
		return ChangeModified
	}
}

// SubmitActive submits an Active compile for the given source file and
// blocks until it completes. serveReadyChecker.EnsureReady (the dev
// server's ReadyChecker) maps a request URL to its source file through
// the AddressSpace before calling this; here we just run it through
// the scheduler at Active priority.
func (c *Coordinator) SubmitActive(source string) error {
	return c.scheduler.SubmitActive(source)
}

// ServeWebsocket upgrades the request to a websocket and registers the
// connection as a hot-reload client until it disconnects.
func (c *Coordinator) ServeWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("hot reload upgrade failed", "err", err)
		return
	}
	c.mu.Lock()
	c.clients[conn] = struct{}{}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.clients, conn)
		c.mu.Unlock()
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// BroadcastReload tells every connected client to reload the page.
func (c *Coordinator) BroadcastReload() {
	c.broadcast([]byte(`{"type":"reload"}`))
}

// BroadcastError tells every connected client a compile failed, passing
// the error message; the client script logs it to the browser console
// rather than forcing a reload.
func (c *Coordinator) BroadcastError(message string) {
	c.broadcast([]byte(fmt.Sprintf(`{"type":"error","message":%q}`, message)))
}

func (c *Coordinator) broadcast(payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for conn := range c.clients {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			conn.Close()
			delete(c.clients, conn)
		}
	}
}

// HotReloadClientScript is the JS injected into served HTML pages; it
// opens the websocket, reloads on a reload message and logs an error
// message's text to the console.
const HotReloadClientScript = `(function(){
  var proto = location.protocol === 'https:' ? 'wss:' : 'ws:';
  var ws = new WebSocket(proto + '//' + location.host + '/__tola/ws');
  ws.onmessage = function(ev) {
    var msg = JSON.parse(ev.data);
    if (msg.type === 'reload') { location.reload(); }
    else if (msg.type === 'error') { console.error('tola compile error:', msg.message); }
  };
})();`
