package webhook

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nextharvest/agribot/internal/bus"
)

func TestEventHub_BroadcastReachesObserver(t *testing.T) {
	hub := NewEventHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Wait for the hub to register the connection.
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("observer never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.Broadcast(bus.Event{Name: "pipeline.started", Payload: map[string]interface{}{"sender": "1@c.us"}})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got bus.Event
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Name != "pipeline.started" {
		t.Fatalf("event name = %q", got.Name)
	}
}

func TestEventHub_DisconnectedObserverDropped(t *testing.T) {
	hub := NewEventHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.Close()

	// After the close is noticed, broadcasts must not hang or grow the
	// client set.
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("observer still registered: %d", hub.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
	hub.Broadcast(bus.Event{Name: "noop"})
}
