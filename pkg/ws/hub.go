package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 64
)

// Hub 按用户维护 WebSocket 连接，同一用户可有多个终端在线
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	logger  *zap.Logger
}

// NewHub 创建连接中心
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		logger:  logger,
	}
}

// Register 登记连接
func (h *Hub) Register(c *Client) {
	if c == nil || c.userID == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[c.userID]
	if set == nil {
		set = make(map[*Client]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
}

// Unregister 注销并关闭连接
func (h *Hub) Unregister(c *Client) {
	if c == nil || c.userID == "" {
		return
	}
	h.mu.Lock()
	if set := h.clients[c.userID]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.userID)
		}
	}
	h.mu.Unlock()
	c.Close()
}

// Online 返回用户当前连接数
func (h *Hub) Online(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Send 向用户的所有连接投递消息，返回是否至少投递到一个连接
// 发送缓冲区已满的连接视为失联，直接注销
func (h *Hub) Send(userID string, payload []byte) bool {
	if userID == "" || len(payload) == 0 {
		return false
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients[userID]))
	for c := range h.clients[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	delivered := false
	var stale []*Client
	for _, c := range targets {
		if c.enqueue(payload) {
			delivered = true
		} else {
			stale = append(stale, c)
		}
	}
	for _, c := range stale {
		h.logger.Warn("WebSocket 发送缓冲已满，断开连接", zap.String("user_id", userID))
		h.Unregister(c)
	}
	return delivered
}

// SendJSON 序列化后投递
func (h *Hub) SendJSON(userID string, v interface{}) (bool, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return false, err
	}
	return h.Send(userID, b), nil
}

// Client 单个 WebSocket 连接
type Client struct {
	userID string
	conn   *websocket.Conn
	send   chan []byte

	mu     sync.Mutex
	closed bool
}

// NewClient 创建连接封装；conn 可为 nil（测试场景）
func NewClient(userID string, conn *websocket.Conn) *Client {
	return &Client{
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
	}
}

// UserID 连接所属用户
func (c *Client) UserID() string { return c.userID }

func (c *Client) enqueue(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// Close 关闭发送队列与底层连接，可重复调用
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// WritePump 将发送队列写入连接，并定期发送 ping
func (c *Client) WritePump(logger *zap.Logger) {
	if c.conn == nil {
		return
	}
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Debug("WebSocket 写入失败", zap.String("user_id", c.userID), zap.Error(err))
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

// ReadPump 丢弃客户端消息，只用于感知断开与维持心跳；返回即表示连接已断开
func (c *Client) ReadPump() {
	if c.conn == nil {
		return
	}
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
