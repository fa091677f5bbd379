package server

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/irplan/internal/link"
)

func dialEvents(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("hub has %d clients, want %d", h.Clients(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_BroadcastsEvents(t *testing.T) {
	hub := NewHub()
	ts := httptest.NewServer(New(Config{Hub: hub}))
	defer ts.Close()

	a := dialEvents(t, ts)
	b := dialEvents(t, ts)
	waitForClients(t, hub, 2)

	if err := hub.PublishPointer(link.PointerEvent{Type: link.TypePointer, X: 10, Y: 20, Timestamp: 1}); err != nil {
		t.Fatalf("PublishPointer() error = %v", err)
	}
	if err := hub.PublishGesture(link.GestureEvent{Type: link.TypeGesture, Category: "shake", Timestamp: 2}); err != nil {
		t.Fatalf("PublishGesture() error = %v", err)
	}

	for _, conn := range []*websocket.Conn{a, b} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))

		var p link.PointerEvent
		if err := conn.ReadJSON(&p); err != nil {
			t.Fatalf("read pointer event: %v", err)
		}
		if p.Type != link.TypePointer || p.X != 10 || p.Y != 20 {
			t.Errorf("pointer event = %+v", p)
		}

		var g link.GestureEvent
		if err := conn.ReadJSON(&g); err != nil {
			t.Fatalf("read gesture event: %v", err)
		}
		if g.Type != link.TypeGesture || g.Category != "shake" {
			t.Errorf("gesture event = %+v", g)
		}
	}
}

func TestHub_DropsClosedClients(t *testing.T) {
	hub := NewHub()
	ts := httptest.NewServer(New(Config{Hub: hub}))
	defer ts.Close()

	conn := dialEvents(t, ts)
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)

	if err := hub.Broadcast(map[string]string{"type": "noop"}); err != nil {
		t.Errorf("Broadcast() with no clients error = %v", err)
	}
}

func TestHub_BroadcastMarshalError(t *testing.T) {
	if err := NewHub().Broadcast(make(chan int)); err == nil {
		t.Error("Broadcast() should fail for unmarshalable values")
	}
}
