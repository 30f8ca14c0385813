package sink

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/llrpd/internal/testutil/testlog"
	"github.com/gorilla/websocket"
)

func dialHub(t *testing.T, h *Hub) (*websocket.Conn, func()) {
	t.Helper()
	srv := httptest.NewServer(h)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("dial hub: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for h.Clients() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if h.Clients() != 1 {
		t.Fatalf("client not registered")
	}
	return conn, func() {
		_ = conn.Close()
		srv.Close()
	}
}

func TestHubBroadcastsReadings(t *testing.T) {
	testlog.Start(t)
	h := NewHub(DefaultHubConfig())
	conn, done := dialHub(t, h)
	defer done()

	if err := h.Emit(context.Background(), sampleReading("e2801234")); err != nil {
		t.Fatalf("emit: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var env struct {
		Kind string `json:"kind"`
		Data struct {
			TransmitterID string `json:"transmitterId"`
			RSSI          int    `json:"rssi"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Kind != "reading" || env.Data.TransmitterID != "e2801234" || env.Data.RSSI != -50 {
		t.Fatalf("unexpected envelope: %s", payload)
	}
}

func TestHubPublishesEvents(t *testing.T) {
	testlog.Start(t)
	h := NewHub(DefaultHubConfig())
	conn, done := dialHub(t, h)
	defer done()

	if err := h.Publish("reader.connected", map[string]string{"origin": "host:5084"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(payload), `"kind":"reader.connected"`) {
		t.Fatalf("unexpected payload: %s", payload)
	}
}

func TestHubClose(t *testing.T) {
	testlog.Start(t)
	h := NewHub(DefaultHubConfig())
	conn, done := dialHub(t, h)
	defer done()

	if err := h.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if h.Clients() != 0 {
		t.Fatalf("clients should be dropped")
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected the connection to close")
	}
	if err := h.Publish("late", nil); err != ErrHubClosed {
		t.Fatalf("expected ErrHubClosed, got %v", err)
	}
}
