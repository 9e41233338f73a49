// Package websocket 通过 WebSocket 推送会话快照与通知，并接收命令帧。
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"tempmail/playground/internal/domain"
)

// Commander 会话命令入口，通常是 session.Service
type Commander interface {
	Snapshot(ctx context.Context) (domain.Snapshot, error)
	Dispatch(ctx context.Context, cmd domain.Command) error
	Shortcut(ctx context.Context, sc domain.Shortcut) (domain.Command, error)
}

// ErrorMessager 将错误转换为面向用户的提示
type ErrorMessager func(err error) string

// upgraderFactory 创建带有 Origin 验证的 WebSocket 升级器
func upgraderFactory(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			for _, origin := range allowedOrigins {
				if origin == "*" {
					return true
				}
			}

			requestOrigin := r.Header.Get("Origin")
			if requestOrigin == "" {
				return true
			}
			for _, origin := range allowedOrigins {
				if requestOrigin == origin {
					return true
				}
			}
			return false
		},
	}
}

// MessageType 定义WebSocket消息类型
type MessageType string

const (
	MessageTypeSessionUpdate MessageType = "session_update"
	MessageTypeNotification  MessageType = "notification"
	MessageTypeCommand       MessageType = "command"
	MessageTypeShortcut      MessageType = "shortcut"
	MessageTypeAck           MessageType = "ack"
	MessageTypePing          MessageType = "ping"
	MessageTypePong          MessageType = "pong"
	MessageTypeError         MessageType = "error"
)

// Message 定义WebSocket消息结构
type Message struct {
	Type      MessageType      `json:"type"`
	Command   domain.Command   `json:"command,omitempty"`
	Shortcut  *domain.Shortcut `json:"shortcut,omitempty"`
	Data      json.RawMessage  `json:"data,omitempty"`
	Error     string           `json:"error,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// Client 代表一个WebSocket客户端连接
type Client struct {
	ID   string
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
	log  *zap.Logger

	mu     sync.Mutex
	closed bool
}

// Hub 管理所有WebSocket连接
type Hub struct {
	clients        map[string]*Client
	register       chan *Client
	unregister     chan *Client
	broadcast      chan []byte
	done           chan struct{} // Run 退出后关闭
	pumps          sync.WaitGroup // 仍在运行的读协程
	mu             sync.RWMutex
	log            *zap.Logger
	allowedOrigins []string
	commander      Commander
	errorMessage   ErrorMessager
	onCount        func(int)
	commandTimeout time.Duration
}

// Options Hub 选项
type Options struct {
	AllowedOrigins []string
	Logger         *zap.Logger
	ErrorMessage   ErrorMessager // 为 nil 时直接使用 err.Error()
	OnClientCount  func(int)     // 连接数变化回调，用于指标
}

// NewHub 创建WebSocket Hub
func NewHub(commander Commander, opts Options) *Hub {
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.ErrorMessage == nil {
		opts.ErrorMessage = func(err error) string { return err.Error() }
	}

	return &Hub{
		clients:        make(map[string]*Client),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		broadcast:      make(chan []byte, 256),
		done:           make(chan struct{}),
		log:            opts.Logger,
		allowedOrigins: opts.AllowedOrigins,
		commander:      commander,
		errorMessage:   opts.ErrorMessage,
		onCount:        opts.OnClientCount,
		commandTimeout: 5 * time.Second,
	}
}

// Run 启动Hub，直到 ctx 取消
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.log.Info("websocket hub stopped")
			h.closeAllClients()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			count := len(h.clients)
			h.mu.Unlock()
			h.log.Info("client registered", zap.String("id", client.ID))
			h.reportCount(count)

		case client := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[client.ID]
			if ok {
				delete(h.clients, client.ID)
			}
			count := len(h.clients)
			h.mu.Unlock()
			if ok {
				client.close()
				h.log.Info("client unregistered", zap.String("id", client.ID))
				h.reportCount(count)
			}

		case data := <-h.broadcast:
			h.broadcastAll(data)

		case <-ticker.C:
			h.broadcastAll(mustEncode(&Message{Type: MessageTypePing, Timestamp: time.Now()}))
		}
	}
}

// Wait 等待 Run 退出且全部客户端读协程结束
func (h *Hub) Wait() {
	<-h.done
	h.mu.Lock()
	h.mu.Unlock()
	h.pumps.Wait()
}

// trackPump Hub 未停止时登记一个读协程
func (h *Hub) trackPump() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	select {
	case <-h.done:
		return false
	default:
		h.pumps.Add(1)
		return true
	}
}

// ClientCount 当前连接数
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SessionChanged 实现 session.Observer，在事件循环内调用，不阻塞
func (h *Hub) SessionChanged(snapshot domain.Snapshot) {
	h.publish(MessageTypeSessionUpdate, snapshot)
}

// NotificationPublished 推送新通知，不阻塞
func (h *Hub) NotificationPublished(n domain.Notification) {
	h.publish(MessageTypeNotification, n)
}

func (h *Hub) publish(msgType MessageType, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Error("failed to marshal payload", zap.String("type", string(msgType)), zap.Error(err))
		return
	}
	encoded := mustEncode(&Message{Type: msgType, Data: data, Timestamp: time.Now()})

	select {
	case h.broadcast <- encoded:
	default:
		h.log.Warn("broadcast queue full, dropping message", zap.String("type", string(msgType)))
	}
}

// broadcastAll 向全部客户端广播
func (h *Hub) broadcastAll(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		if !client.enqueue(data) {
			h.log.Warn("client channel blocked, skipping", zap.String("clientID", client.ID))
		}
	}
}

// closeAllClients 关闭所有客户端连接
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		client.close()
	}
	h.clients = make(map[string]*Client)
}

func (h *Hub) reportCount(count int) {
	if h.onCount != nil {
		h.onCount(count)
	}
}

// HandleWebSocket 处理WebSocket连接
func HandleWebSocket(hub *Hub) gin.HandlerFunc {
	upgrader := upgraderFactory(hub.allowedOrigins)

	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			hub.log.Error("failed to upgrade connection",
				zap.Error(err),
				zap.String("origin", c.Request.Header.Get("Origin")),
				zap.String("remote_addr", c.ClientIP()))
			return
		}

		client := &Client{
			ID:   uuid.New().String(),
			conn: conn,
			hub:  hub,
			send: make(chan []byte, 256),
			log:  hub.log,
		}

		// 首帧：当前会话快照
		ctx, cancel := context.WithTimeout(c.Request.Context(), hub.commandTimeout)
		snapshot, err := hub.commander.Snapshot(ctx)
		cancel()
		if err == nil {
			client.sendPayload(MessageTypeSessionUpdate, snapshot)
		}

		if !hub.trackPump() {
			client.close()
			conn.Close()
			return
		}
		select {
		case hub.register <- client:
		case <-hub.done:
			client.close()
			conn.Close()
			hub.pumps.Done()
			return
		}

		go client.writePump()
		go client.readPump()
	}
}

// readPump 处理客户端消息
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
		c.hub.pumps.Done()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Error("websocket error", zap.Error(err))
			}
			break
		}

		c.handleMessage(&msg)
	}
}

// writePump 发送消息给客户端
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage 处理接收到的消息
func (c *Client) handleMessage(msg *Message) {
	ctx, cancel := context.WithTimeout(context.Background(), c.hub.commandTimeout)
	defer cancel()

	switch msg.Type {
	case MessageTypeCommand:
		cmd, err := domain.ParseCommand(string(msg.Command))
		if err == nil {
			err = c.hub.commander.Dispatch(ctx, cmd)
		}
		c.reply(cmd, err)

	case MessageTypeShortcut:
		if msg.Shortcut == nil {
			c.sendError("shortcut is required")
			return
		}
		cmd, err := c.hub.commander.Shortcut(ctx, *msg.Shortcut)
		c.reply(cmd, err)

	case MessageTypePong:
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))

	default:
		c.log.Warn("unknown message type", zap.String("type", string(msg.Type)))
		c.sendError("unknown message type")
	}
}

func (c *Client) reply(cmd domain.Command, err error) {
	if err != nil {
		c.log.Debug("command rejected", zap.String("command", string(cmd)), zap.Error(err))
		c.sendMessage(&Message{
			Type:      MessageTypeError,
			Command:   cmd,
			Error:     c.hub.errorMessage(err),
			Timestamp: time.Now(),
		})
		return
	}
	c.sendMessage(&Message{Type: MessageTypeAck, Command: cmd, Timestamp: time.Now()})
}

// sendError 发送错误消息给客户端
func (c *Client) sendError(errMsg string) {
	c.sendMessage(&Message{
		Type:      MessageTypeError,
		Error:     errMsg,
		Timestamp: time.Now(),
	})
}

func (c *Client) sendPayload(msgType MessageType, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		c.log.Error("failed to marshal payload", zap.Error(err))
		return
	}
	c.sendMessage(&Message{Type: msgType, Data: data, Timestamp: time.Now()})
}

// sendMessage 发送消息给客户端
func (c *Client) sendMessage(msg *Message) {
	if !c.enqueue(mustEncode(msg)) {
		c.log.Warn("client channel blocked", zap.String("clientID", c.ID))
	}
}

// enqueue 非阻塞写入发送队列，连接已关闭时丢弃
func (c *Client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// errEncode 仅在 Message 结构无法编码时出现
var errEncode = errors.New("websocket: encode message")

func mustEncode(msg *Message) []byte {
	data, err := json.Marshal(msg)
	if err != nil {
		panic(errors.Join(errEncode, err))
	}
	return data
}
