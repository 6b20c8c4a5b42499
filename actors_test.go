package tola

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestCoordinatorBroadcastReloadReachesClient(t *testing.T) {
	coord := NewCoordinator(nil, func(string) error { return nil }, 1)
	defer coord.scheduler.Shutdown()

	srv := httptest.NewServer(http.HandlerFunc(coord.ServeWebsocket))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// give the server a moment to register the connection
	time.Sleep(20 * time.Millisecond)
	coord.BroadcastReload()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(msg), `"reload"`) {
		t.Fatalf("expected reload message, got %s", msg)
	}
}

func TestCoordinatorBroadcastErrorIncludesMessage(t *testing.T) {
	coord := NewCoordinator(nil, func(string) error { return nil }, 1)
	defer coord.scheduler.Shutdown()

	srv := httptest.NewServer(http.HandlerFunc(coord.ServeWebsocket))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	time.Sleep(20 * time.Millisecond)
	coord.BroadcastError("boom")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(msg), "boom") {
		t.Fatalf("expected error message to include 'boom', got %s", msg)
	}
}
