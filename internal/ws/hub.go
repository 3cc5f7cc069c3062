package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/domain"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/dto"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/logging"
)

const (
	EventPanic      = "panic"
	EventPanicAlert = "panic_alert"

	sendBuffer = 16
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// TokenVerifier resolves the bearer token a socket client connects with.
type TokenVerifier interface {
	VerifyToken(token string) (dto.Claims, error)
}

type client struct {
	conn   *websocket.Conn
	userID uint
	role   string
	send   chan []byte
	once   sync.Once
}

func (c *client) rooms() []string {
	return []string{UserRoom(c.userID), RoleRoom(c.role), "broadcast"}
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

func UserRoom(id uint) string    { return "user:" + strconv.FormatUint(uint64(id), 10) }
func RoleRoom(role string) string { return "role:" + role }

// Hub keeps track of authenticated socket connections and fans events out to
// rooms. It implements interfaces.Broadcaster.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[*client]struct{}
	closed  bool
	auth    TokenVerifier
	log     logging.Logger
	now     func() time.Time
	upgrade websocket.Upgrader
}

func NewHub(auth TokenVerifier, log logging.Logger) *Hub {
	if log == nil {
		log = logging.Nop()
	}
	return &Hub{
		rooms:   make(map[string]map[*client]struct{}),
		auth:    auth,
		log:     log,
		now:     time.Now,
		upgrade: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	for _, room := range c.rooms() {
		members, ok := h.rooms[room]
		if !ok {
			members = make(map[*client]struct{})
			h.rooms[room] = members
		}
		members[c] = struct{}{}
	}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, room := range c.rooms() {
		if members, ok := h.rooms[room]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	c.close()
}

// Count returns the number of connections in room.
func (h *Hub) Count(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) emit(room, event string, data any) {
	payload, err := json.Marshal(dto.SocketEvent{
		Event:     event,
		Data:      data,
		Timestamp: h.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		h.log.Error(context.Background(), "socket event marshal failed", "event", event, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[room] {
		select {
		case c.send <- payload:
		default:
			// slow consumer, drop the frame rather than block emitters
			h.log.Warn(context.Background(), "socket send buffer full", "room", room, "user_id", c.userID)
		}
	}
}

func (h *Hub) NotifyUser(userID uint, event string, data any) {
	h.emit(UserRoom(userID), event, data)
}

func (h *Hub) NotifyRole(role, event string, data any) {
	h.emit(RoleRoom(role), event, data)
}

func (h *Hub) Broadcast(event string, data any) {
	h.emit("broadcast", event, data)
}

// ServeHTTP upgrades GET /ws?token=<jwt>.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, err := h.auth.VerifyToken(r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrade.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn(r.Context(), "websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, userID: claims.UserID, role: claims.Role, send: make(chan []byte, sendBuffer)}
	if !h.register(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	h.log.Debug(r.Context(), "socket connected", "user_id", c.userID, "role", c.role)

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
		h.log.Debug(context.Background(), "socket disconnected", "user_id", c.userID)
	}()

	c.conn.SetReadLimit(64 << 10)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		mt, message, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug(context.Background(), "socket read error", "user_id", c.userID, "error", err)
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}

		var in dto.SocketInbound
		if err := json.Unmarshal(message, &in); err != nil {
			h.log.Debug(context.Background(), "invalid socket frame", "user_id", c.userID, "error", err)
			continue
		}

		switch in.Type {
		case EventPanic:
			alert := map[string]any{"from": c.userID}
			for k, v := range in.Data {
				alert[k] = v
			}
			h.log.Info(context.Background(), "panic alert relayed", "user_id", c.userID)
			h.NotifyRole(domain.RoleAdmin, EventPanicAlert, alert)
		default:
			h.log.Debug(context.Background(), "unknown socket frame", "user_id", c.userID, "type", in.Type)
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close disconnects every client. The hub rejects new connections afterwards.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for _, members := range h.rooms {
		for c := range members {
			c.close()
		}
	}
	h.rooms = make(map[string]map[*client]struct{})
}
