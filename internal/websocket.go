package internal

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// WebSocket 傳輸適配層
//
// 核心邏輯只依賴抽象的 Conn 能力，這裡把 gorilla/websocket
// 連接包裝成 Conn，並在連接事件發生時驅動核心：
//   - 升級成功 → Core.Connect
//   - 讀取失敗（斷線）→ Core.Disconnect
//   - 收到訊息 → Core.HandleEvent
//
// 心跳設計：
//   - writePump 每 54 秒發 Ping（避開常見的 60 秒代理逾時）
//   - readPump 60 秒讀逾時，收到 Pong 重置
//   - 應用層另有 ping/pong 事件與閒置清理兜底

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// envelope 線上訊息封裝：{"event": "...", "data": {...}}
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Hub WebSocket 連接中心
type Hub struct {
	core     *Core
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[string]*wsConn
}

// NewHub 創建 WebSocket Hub
func NewHub(core *Core, logger *slog.Logger) *Hub {
	return &Hub{
		core:   core,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// 匿名聊天對來源不設限
				return true
			},
		},
		conns: make(map[string]*wsConn),
	}
}

// ServeWS 處理 WebSocket 連接
//
// 可選查詢參數 username：客戶端指定顯示名稱（衝突時加後綴）。
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("升級 WebSocket 失敗", "error", err)
		return
	}

	conn := &wsConn{
		id:     uuid.New().String(),
		ws:     ws,
		send:   make(chan []byte, 256),
		logger: h.logger,
	}

	h.mu.Lock()
	h.conns[conn.id] = conn
	h.mu.Unlock()

	h.core.Connect(conn, r.URL.Query().Get("username"))

	go conn.writePump()
	go h.readPump(conn)

	h.logger.Info("WebSocket 連接建立",
		"conn_id", conn.id,
		"remote", ws.RemoteAddr().String())
}

// readPump 讀取客戶端訊息並驅動核心
func (h *Hub) readPump(conn *wsConn) {
	defer func() {
		h.mu.Lock()
		delete(h.conns, conn.id)
		h.mu.Unlock()

		h.core.Disconnect(conn.id)
		_ = conn.Close()
	}()

	if err := conn.ws.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		h.logger.Error("設置讀取期限失敗", "error", err)
	}
	conn.ws.SetPongHandler(func(string) error {
		return conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, message, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("WebSocket 讀取錯誤",
					"error", err,
					"conn_id", conn.id)
			}
			return
		}

		if messageType != websocket.TextMessage {
			continue
		}

		var env envelope
		if err := json.Unmarshal(message, &env); err != nil || env.Event == "" {
			h.logger.Debug("丟棄無法解析的訊息", "conn_id", conn.id)
			continue
		}

		h.core.HandleEvent(conn.id, env.Event, env.Data)
	}
}

// Stop 關閉所有連接
func (h *Hub) Stop() {
	h.mu.Lock()
	conns := make([]*wsConn, 0, len(h.conns))
	for _, conn := range h.conns {
		conns = append(conns, conn)
	}
	h.conns = make(map[string]*wsConn)
	h.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close()
	}

	h.logger.Info("WebSocket Hub 已停止")
}

// wsConn gorilla 連接的 Conn 實作
type wsConn struct {
	id     string
	ws     *websocket.Conn
	send   chan []byte
	logger *slog.Logger

	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
}

// ID 返回連接 ID
func (c *wsConn) ID() string {
	return c.id
}

// Send 發送事件（非阻塞）
//
// 緩衝區滿時丟棄：慢客戶端不能拖慢廣播方。
func (c *wsConn) Send(event string, payload any) {
	var data []byte
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			c.logger.Error("序列化事件失敗", "event", event, "error", err)
			return
		}
		data = raw
	}

	message, err := json.Marshal(envelope{Event: event, Data: data})
	if err != nil {
		c.logger.Error("序列化事件失敗", "event", event, "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- message:
	default:
		c.logger.Warn("連接緩衝區滿，丟棄事件",
			"conn_id", c.id,
			"event", event)
	}
}

// Close 關閉連接
func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()
	})
	return c.ws.Close()
}

// writePump 寫入訊息到客戶端
func (c *wsConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("設置寫入期限失敗", "error", err)
			}
			if !ok {
				// 連接已關閉，嘗試發送關閉訊息（忽略錯誤）
				_ = c.ws.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

			// 批量發送隊列中的訊息
			n := len(c.send)
			for i := 0; i < n; i++ {
				if err := c.ws.WriteMessage(websocket.TextMessage, <-c.send); err != nil {
					return
				}
			}

		case <-ticker.C:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("設置寫入期限失敗", "error", err)
			}
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
