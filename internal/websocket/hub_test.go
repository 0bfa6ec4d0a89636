package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub(testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub, cancel
}

// dial opens a stream connection; query is appended verbatim to the URL.
func dial(t *testing.T, hub *Hub, query string) *websocket.Conn {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	t.Cleanup(server.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+query, nil)
	if err != nil {
		t.Fatalf("dialing log stream: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, got %d", want, hub.ClientCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) LogEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, message, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("reading event: %v", err)
	}
	var ev LogEvent
	if err := json.Unmarshal(message, &ev); err != nil {
		t.Fatalf("message is not a LogEvent: %v", err)
	}
	return ev
}

func appended(channel, data string) LogEvent {
	return LogEvent{
		Type:      "log_appended",
		Channel:   channel,
		Timestamp: "2026-03-01T12:00:00.000Z",
		Data:      json.RawMessage(data),
	}
}

func TestHub_ConnectAndDisconnect(t *testing.T) {
	hub, _ := startHub(t)
	if count := hub.ClientCount(); count != 0 {
		t.Fatalf("expected 0 clients initially, got %d", count)
	}

	conn := dial(t, hub, "")
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)
}

func TestHub_BroadcastReachesEveryClient(t *testing.T) {
	hub, _ := startHub(t)
	conns := []*websocket.Conn{dial(t, hub, ""), dial(t, hub, "")}
	waitForClients(t, hub, 2)

	hub.Broadcast(appended("whatsapp", `{"object":"whatsapp_business_account"}`))

	for i, conn := range conns {
		ev := readEvent(t, conn)
		if ev.Type != "log_appended" || ev.Channel != "whatsapp" {
			t.Errorf("client %d: unexpected event %+v", i+1, ev)
		}
		if string(ev.Data) != `{"object":"whatsapp_business_account"}` {
			t.Errorf("client %d: data %s", i+1, ev.Data)
		}
	}
}

func TestHub_ChannelFilter(t *testing.T) {
	hub, _ := startHub(t)
	filtered := dial(t, hub, "?channel=instagram")
	waitForClients(t, hub, 1)

	hub.Broadcast(appended("whatsapp", `{"seq":1}`))
	hub.Broadcast(appended("instagram", `{"seq":2}`))

	ev := readEvent(t, filtered)
	if ev.Channel != "instagram" || string(ev.Data) != `{"seq":2}` {
		t.Errorf("filtered client got %+v, want only the instagram event", ev)
	}
}

func TestHub_StopDisconnectsClients(t *testing.T) {
	hub, cancel := startHub(t)
	conn := dial(t, hub, "")
	waitForClients(t, hub, 1)

	cancel()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected connection to be closed after hub stopped")
	}
	if count := hub.ClientCount(); count != 0 {
		t.Errorf("expected 0 clients after stop, got %d", count)
	}
}
