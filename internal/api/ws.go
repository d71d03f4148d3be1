package api

import (
	"net/http"
	"sync"
	"time"

	"rewards_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type wsEvent struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

// wsConn serializes writes; gorilla/websocket allows only one concurrent
// writer per connection.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub tracks the open websocket connections per user and fans events
// out to them. Delivery is best effort: a connection that fails a
// write is dropped, and publishing to a user with no connections is a
// no-op.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]map[*wsConn]struct{}
}

func NewHub() *Hub {
	return &Hub{
		conns: make(map[string]map[*wsConn]struct{}),
	}
}

func (h *Hub) HandleConnection(c *gin.Context) {
	uid := c.Param("uid")
	if uid == "" {
		respondBadRequest(c, "uid is required", "missing_uid")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Logger().Error("websocket upgrade failed",
			zap.String("uid", uid),
			zap.Error(err))
		return
	}

	wc := &wsConn{conn: conn}
	h.add(uid, wc)
	logger.Logger().Debug("websocket connected", zap.String("uid", uid))

	go h.readLoop(uid, wc)
}

// readLoop drains incoming frames so control messages are handled and
// a closed peer is noticed promptly.
func (h *Hub) readLoop(uid string, wc *wsConn) {
	defer func() {
		h.remove(uid, wc)
		wc.conn.Close()
		logger.Logger().Debug("websocket disconnected", zap.String("uid", uid))
	}()

	for {
		if _, _, err := wc.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) add(uid string, wc *wsConn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.conns[uid] == nil {
		h.conns[uid] = make(map[*wsConn]struct{})
	}
	h.conns[uid][wc] = struct{}{}
}

func (h *Hub) remove(uid string, wc *wsConn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.conns[uid]; ok {
		delete(set, wc)
		if len(set) == 0 {
			delete(h.conns, uid)
		}
	}
}

// Publish sends the event to every open connection of the user.
func (h *Hub) Publish(userUID, event string, payload interface{}) {
	data, err := json.Marshal(wsEvent{Event: event, Payload: payload})
	if err != nil {
		logger.Logger().Error("failed to marshal websocket event",
			zap.String("event", event),
			zap.Error(err))
		return
	}

	h.mu.RLock()
	targets := make([]*wsConn, 0, len(h.conns[userUID]))
	for wc := range h.conns[userUID] {
		targets = append(targets, wc)
	}
	h.mu.RUnlock()

	for _, wc := range targets {
		if err := wc.write(data); err != nil {
			logger.Logger().Debug("dropping websocket connection",
				zap.String("uid", userUID),
				zap.Error(err))
			h.remove(userUID, wc)
			wc.conn.Close()
		}
	}
}
