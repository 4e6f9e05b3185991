package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/wfunc/klyra-server/internal/config"
	"go.uber.org/zap"
)

// MessageHandler 客户端消息处理器
type MessageHandler interface {
	HandleClientMessage(client *Client, data []byte)
	HandleClientDisconnect(client *Client)
}

// Envelope WebSocket消息信封
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Hub WebSocket连接管理中心
// 客户端ID同时作为玩家连接ID贯穿整个会话
type Hub struct {
	// 客户端连接池
	clients   map[string]*Client
	clientsMu sync.RWMutex

	// 注册/注销通道
	register   chan *Client
	unregister chan *Client

	cfg    *config.WebSocketConfig
	logger *zap.Logger

	messageHandler MessageHandler
}

// NewHub 创建Hub
func NewHub(cfg *config.WebSocketConfig, logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		cfg:        cfg,
		logger:     logger,
	}
}

// SetMessageHandler 设置消息处理器
func (h *Hub) SetMessageHandler(handler MessageHandler) {
	h.messageHandler = handler
}

// Run 运行Hub，随 ctx 取消而退出
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)
		}
	}
}

// registerClient 注册客户端
func (h *Hub) registerClient(client *Client) {
	h.clientsMu.Lock()
	h.clients[client.ID] = client
	h.clientsMu.Unlock()

	h.logger.Info("WebSocket客户端连接",
		zap.String("client_id", client.ID))
}

// unregisterClient 注销客户端
func (h *Hub) unregisterClient(client *Client) {
	h.clientsMu.Lock()
	_, ok := h.clients[client.ID]
	if ok {
		delete(h.clients, client.ID)
		close(client.Send)
	}
	h.clientsMu.Unlock()

	if !ok {
		return
	}

	h.logger.Info("WebSocket客户端断开",
		zap.String("client_id", client.ID))

	if h.messageHandler != nil {
		h.messageHandler.HandleClientDisconnect(client)
	}
}

// closeAll 关停时注销全部客户端
func (h *Hub) closeAll() {
	h.clientsMu.Lock()
	for id, client := range h.clients {
		delete(h.clients, id)
		close(client.Send)
	}
	h.clientsMu.Unlock()

	h.logger.Info("Hub已停止")
}

// SendToClient 发送事件给指定客户端
func (h *Hub) SendToClient(clientID, event string, data interface{}) error {
	payload, err := marshalEnvelope(event, data)
	if err != nil {
		return err
	}

	h.clientsMu.RLock()
	client, ok := h.clients[clientID]
	h.clientsMu.RUnlock()

	if !ok {
		return ErrClientNotFound
	}

	select {
	case client.Send <- payload:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// PushToPlayers 发送事件给一组连接，缓冲区满的连接丢弃该条消息
func (h *Hub) PushToPlayers(playerIDs []string, event string, data interface{}) {
	if len(playerIDs) == 0 {
		return
	}

	payload, err := marshalEnvelope(event, data)
	if err != nil {
		h.logger.Error("序列化推送消息失败",
			zap.String("event", event),
			zap.Error(err))
		return
	}

	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()

	for _, id := range playerIDs {
		client, ok := h.clients[id]
		if !ok {
			continue
		}
		select {
		case client.Send <- payload:
		default:
			h.logger.Warn("客户端发送缓冲区满",
				zap.String("client_id", client.ID),
				zap.String("event", event))
		}
	}
}

// GetOnlineCount 获取在线连接数
func (h *Hub) GetOnlineCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// Register 注册客户端（公开方法）
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister 注销客户端（公开方法）
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// marshalEnvelope 序列化消息信封
func marshalEnvelope(event string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(&Envelope{
		Event: event,
		Data:  raw,
	})
}
