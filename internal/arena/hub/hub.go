package hub

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"codeclash/pkg/utils/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second

	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Envelope is the frame pushed to clients.
type Envelope struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

type client struct {
	roomID   string
	playerID string
	conn     *websocket.Conn
	send     chan Envelope

	closeOnce sync.Once
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// Hub fans room events out to connected websocket clients. Sends never block
// the caller; a client whose buffer is full is dropped.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*client]struct{}
}

// New creates an empty hub.
func New() *Hub {
	return &Hub{rooms: make(map[string]map[*client]struct{})}
}

// Register adds the /ws route.
func (h *Hub) Register(r *gin.Engine) {
	r.GET("/ws", h.handleWS)
}

func (h *Hub) handleWS(c *gin.Context) {
	roomID := c.Query("room_id")
	playerID := c.Query("player_id")
	if roomID == "" || playerID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "room_id and player_id are required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn(c.Request.Context(), "websocket upgrade failed", zap.Error(err))
		return
	}

	cl := &client{
		roomID:   roomID,
		playerID: playerID,
		conn:     conn,
		send:     make(chan Envelope, sendBuffer),
	}
	h.add(cl)

	go h.writePump(cl)
	go h.readPump(cl)
}

func (h *Hub) add(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.rooms[cl.roomID]
	if !ok {
		clients = make(map[*client]struct{})
		h.rooms[cl.roomID] = clients
	}
	clients[cl] = struct{}{}
}

func (h *Hub) remove(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.rooms[cl.roomID]
	if !ok {
		return
	}
	if _, ok := clients[cl]; !ok {
		return
	}
	delete(clients, cl)
	if len(clients) == 0 {
		delete(h.rooms, cl.roomID)
	}
	cl.close()
}

func (h *Hub) readPump(cl *client) {
	defer func() {
		h.remove(cl)
		cl.conn.Close()
	}()
	cl.conn.SetReadLimit(512)
	cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		cl.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cl.conn.Close()
	}()
	for {
		select {
		case env, ok := <-cl.send:
			if !ok {
				cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
				cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteJSON(env); err != nil {
				return
			}
		case <-ticker.C:
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// NotifyPlayer pushes an event to one player's connections in the room.
func (h *Hub) NotifyPlayer(ctx context.Context, roomID, playerID, event string, payload interface{}) {
	h.dispatch(ctx, roomID, event, payload, func(cl *client) bool {
		return cl.playerID == playerID
	})
}

// Broadcast pushes an event to every connection in the room.
func (h *Hub) Broadcast(ctx context.Context, roomID, event string, payload interface{}) {
	h.dispatch(ctx, roomID, event, payload, func(*client) bool { return true })
}

func (h *Hub) dispatch(ctx context.Context, roomID, event string, payload interface{}, match func(*client) bool) {
	env := Envelope{Event: event, Payload: payload}

	h.mu.RLock()
	var slow []*client
	for cl := range h.rooms[roomID] {
		if !match(cl) {
			continue
		}
		select {
		case cl.send <- env:
		default:
			slow = append(slow, cl)
		}
	}
	h.mu.RUnlock()

	for _, cl := range slow {
		logger.Warn(ctx, "dropping slow websocket client",
			zap.String("room_id", cl.roomID),
			zap.String("player_id", cl.playerID),
			zap.String("event", event))
		h.remove(cl)
	}
}

// RoomClients reports the number of connections attached to a room.
func (h *Hub) RoomClients(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}
