package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"lc2gh/internal/model"
	"lc2gh/pkg/logger"
)

// Config WebSocket配置
type Config struct {
	PingInterval   time.Duration // 心跳间隔
	WriteWait      time.Duration // 写超时
	MaxMessageSize int64         // 最大消息大小
}

// Message 推送给客户端的消息
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// MessageTypeStatus 状态快照消息
const MessageTypeStatus = "status"

// client 单个连接，写操作只在自己的协程里进行
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub 把状态快照推送给所有已连接的界面
type Hub struct {
	mu        sync.RWMutex
	clients   map[*client]struct{}
	broadcast chan model.StatusSnapshot
	latest    *model.StatusSnapshot
	config    Config
}

// NewHub 创建推送中心
func NewHub(config *Config) *Hub {
	cfg := Config{
		PingInterval:   30 * time.Second,
		WriteWait:      10 * time.Second,
		MaxMessageSize: 1024,
	}
	if config != nil {
		if config.PingInterval > 0 {
			cfg.PingInterval = config.PingInterval
		}
		if config.WriteWait > 0 {
			cfg.WriteWait = config.WriteWait
		}
		if config.MaxMessageSize > 0 {
			cfg.MaxMessageSize = config.MaxMessageSize
		}
	}
	return &Hub{
		clients:   make(map[*client]struct{}),
		broadcast: make(chan model.StatusSnapshot, 100), // 缓冲区大小为100
		config:    cfg,
	}
}

// Run 分发快照，直到 ctx 结束
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case snap := <-h.broadcast:
			h.fanOut(snap)
		case <-ctx.Done():
			h.closeAll()
			return
		}
	}
}

// Publish 实现 service.Publisher，缓冲区满时丢弃
func (h *Hub) Publish(snap model.StatusSnapshot) {
	select {
	case h.broadcast <- snap:
	default:
		logger.Warn("events buffer full, snapshot for slug=%s dropped", snap.Slug)
	}
}

// AddClient 接管一个已升级的连接，并先推送最近一次快照
func (h *Hub) AddClient(conn *websocket.Conn) {
	c := &client{conn: conn, send: make(chan []byte, 16)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	if h.latest != nil {
		if data, err := encode(*h.latest); err == nil {
			c.send <- data
		}
	}
	h.mu.Unlock()

	go h.writePump(c)
	go h.readPump(c)
}

// ClientCount 当前连接数
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) fanOut(snap model.StatusSnapshot) {
	data, err := encode(snap)
	if err != nil {
		logger.Error("failed to marshal websocket message: %v", err)
		return
	}

	h.mu.Lock()
	h.latest = &snap
	var slow []*client
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	for _, c := range slow {
		logger.Warn("websocket client too slow, disconnecting")
		h.removeClient(c)
	}
}

func (h *Hub) removeClient(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// writePump 写消息与心跳
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(h.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Warn("failed to write to websocket: %v", err)
				h.removeClient(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.removeClient(c)
				return
			}
		}
	}
}

// readPump 读取客户端消息（主要用于检测连接状态）
func (h *Hub) readPump(c *client) {
	defer h.removeClient(c)

	c.conn.SetReadLimit(h.config.MaxMessageSize)
	readWait := h.config.PingInterval * 2
	_ = c.conn.SetReadDeadline(time.Now().Add(readWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(readWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket error: %v", err)
			}
			return
		}
	}
}

func encode(snap model.StatusSnapshot) ([]byte, error) {
	return json.Marshal(Message{Type: MessageTypeStatus, Payload: snap})
}
