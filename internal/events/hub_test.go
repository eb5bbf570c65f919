package events

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"lc2gh/internal/model"
)

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.AddClient(conn)
	}))
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readSnapshot(t *testing.T, conn *websocket.Conn) model.StatusSnapshot {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg struct {
		Type    string               `json:"type"`
		Payload model.StatusSnapshot `json:"payload"`
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if msg.Type != MessageTypeStatus {
		t.Fatalf("unexpected message type %q", msg.Type)
	}
	return msg.Payload
}

func waitClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, got %d", n, hub.ClientCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHub_BroadcastsSnapshots(t *testing.T) {
	hub, url := startHub(t)
	first := dial(t, url)
	second := dial(t, url)
	waitClients(t, hub, 2)

	snap := model.StatusSnapshot{Slug: "two-sum", State: model.StatusSubmitted, Generation: 3}
	hub.Publish(snap)

	for _, conn := range []*websocket.Conn{first, second} {
		if got := readSnapshot(t, conn); got != snap {
			t.Fatalf("got %+v, want %+v", got, snap)
		}
	}
}

func TestHub_NewClientReceivesLatest(t *testing.T) {
	hub, url := startHub(t)
	early := dial(t, url)
	waitClients(t, hub, 1)

	snap := model.StatusSnapshot{Slug: "two-sum", State: model.StatusNotSubmitted}
	hub.Publish(snap)
	readSnapshot(t, early)

	late := dial(t, url)
	if got := readSnapshot(t, late); got != snap {
		t.Fatalf("late client got %+v, want %+v", got, snap)
	}
}

func TestHub_RemovesClosedClient(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)
	waitClients(t, hub, 1)

	conn.Close()
	waitClients(t, hub, 0)
}
