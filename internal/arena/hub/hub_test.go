package hub_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"codeclash/internal/arena/hub"
)

type testConn struct {
	conn *websocket.Conn
}

func dial(t *testing.T, server *httptest.Server, roomID, playerID string) *testConn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?room_id=" + roomID + "&player_id=" + playerID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s/%s: %v", roomID, playerID, err)
	}
	t.Cleanup(func() { conn.Close() })
	return &testConn{conn: conn}
}

func (c *testConn) readEnvelope(t *testing.T) hub.Envelope {
	t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env hub.Envelope
	if err := c.conn.ReadJSON(&env); err != nil {
		t.Fatalf("read envelope: %v", err)
	}
	return env
}

func (c *testConn) expectSilence(t *testing.T) {
	t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var env hub.Envelope
	if err := c.conn.ReadJSON(&env); err == nil {
		t.Fatalf("unexpected message: %+v", env)
	}
}

func newServer(t *testing.T) (*hub.Hub, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := hub.New()
	router := gin.New()
	h.Register(router)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return h, server
}

func waitForClients(t *testing.T, h *hub.Hub, roomID string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.RoomClients(roomID) != want {
		if time.Now().After(deadline) {
			t.Fatalf("room %s: expected %d clients, have %d", roomID, want, h.RoomClients(roomID))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestBroadcastReachesEveryRoomClient(t *testing.T) {
	h, server := newServer(t)
	alice := dial(t, server, "room-1", "alice")
	bob := dial(t, server, "room-1", "bob")
	waitForClients(t, h, "room-1", 2)

	h.Broadcast(context.Background(), "room-1", "round_progress", map[string]int{"round": 2})

	for _, tc := range []*testConn{alice, bob} {
		env := tc.readEnvelope(t)
		if env.Event != "round_progress" {
			t.Fatalf("expected round_progress, got %s", env.Event)
		}
	}
}

func TestNotifyPlayerTargetsOnePlayer(t *testing.T) {
	h, server := newServer(t)
	alice := dial(t, server, "room-1", "alice")
	bob := dial(t, server, "room-1", "bob")
	waitForClients(t, h, "room-1", 2)

	h.NotifyPlayer(context.Background(), "room-1", "alice", "integrity_warning", map[string]int{"warnings": 1})

	env := alice.readEnvelope(t)
	if env.Event != "integrity_warning" {
		t.Fatalf("expected integrity_warning, got %s", env.Event)
	}
	bob.expectSilence(t)
}

func TestBroadcastScopedToRoom(t *testing.T) {
	h, server := newServer(t)
	alice := dial(t, server, "room-1", "alice")
	carol := dial(t, server, "room-2", "carol")
	waitForClients(t, h, "room-1", 1)
	waitForClients(t, h, "room-2", 1)

	h.Broadcast(context.Background(), "room-1", "disqualified", nil)

	env := alice.readEnvelope(t)
	if env.Event != "disqualified" {
		t.Fatalf("expected disqualified, got %s", env.Event)
	}
	carol.expectSilence(t)
}

func TestDisconnectRemovesClient(t *testing.T) {
	h, server := newServer(t)
	alice := dial(t, server, "room-1", "alice")
	waitForClients(t, h, "room-1", 1)

	alice.conn.Close()
	waitForClients(t, h, "room-1", 0)
}

func TestRejectsMissingIdentity(t *testing.T) {
	_, server := newServer(t)
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?room_id=room-1"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatalf("expected dial rejection")
	}
	if resp == nil || resp.StatusCode != 400 {
		t.Fatalf("expected 400 response, got %+v", resp)
	}
}
