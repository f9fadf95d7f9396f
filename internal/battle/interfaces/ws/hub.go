package ws

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"KingdomWars/internal/battle/app"
	"KingdomWars/modules/kit/logx"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	sendBufferSize = 16
)

// event 是推给观战端的统一消息形态。
type event struct {
	Type string `json:"type"` // territory / resolution
	Data any    `json:"data"`
}

type client struct {
	conn *websocket.Conn
	send chan event
}

// Hub 维护每场战斗的观战连接，实现领地与终局的实时推送。
//
// Publish* 必须非阻塞：发送缓冲打满的慢连接直接丢弃本条消息，
// 观战端靠下一条或重连后的快照补齐。
type Hub struct {
	mu    sync.RWMutex
	rooms map[int64]map[*client]struct{}

	upgrader websocket.Upgrader
	log      logx.Logger
}

func NewHub(log logx.Logger) *Hub {
	return &Hub{
		rooms: make(map[int64]map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// 观战是只读公开数据，跨域放开
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

// Watch 把 HTTP 连接升级为观战长连接。
func (h *Hub) Watch(c *gin.Context) {
	battleID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || battleID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "msg": "invalid battle id"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("watch upgrade failed", zap.Int64("battle_id", battleID), zap.Error(err))
		return
	}

	cl := &client{conn: conn, send: make(chan event, sendBufferSize)}
	h.register(battleID, cl)

	go h.writePump(battleID, cl)
	go h.readPump(battleID, cl)
}

func (h *Hub) register(battleID int64, cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[battleID]
	if !ok {
		room = make(map[*client]struct{})
		h.rooms[battleID] = room
	}
	room[cl] = struct{}{}
}

func (h *Hub) unregister(battleID int64, cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[battleID]
	if !ok {
		return
	}
	if _, ok := room[cl]; !ok {
		return
	}
	delete(room, cl)
	close(cl.send)
	if len(room) == 0 {
		delete(h.rooms, battleID)
	}
}

// readPump 只用于探测对端关闭与 pong 保活，观战连接不接受上行消息。
func (h *Hub) readPump(battleID int64, cl *client) {
	defer func() {
		h.unregister(battleID, cl)
		_ = cl.conn.Close()
	}()
	cl.conn.SetReadLimit(512)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(battleID int64, cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = cl.conn.Close()
	}()
	for {
		select {
		case ev, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) broadcast(battleID int64, ev event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for cl := range h.rooms[battleID] {
		select {
		case cl.send <- ev:
		default:
			// 慢连接丢弃本条
		}
	}
}

func (h *Hub) PublishTerritory(battleID int64, upd app.TerritoryUpdate) {
	h.broadcast(battleID, event{Type: "territory", Data: upd})
}

func (h *Hub) PublishResolution(battleID int64, upd app.ResolutionUpdate) {
	h.broadcast(battleID, event{Type: "resolution", Data: upd})
}
