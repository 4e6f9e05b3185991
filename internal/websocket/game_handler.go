package websocket

import (
	"encoding/json"

	"github.com/wfunc/klyra-server/internal/game"
	"github.com/wfunc/klyra-server/internal/logger"
	"go.uber.org/zap"
)

// GameHandler 把客户端事件转发给大厅管理器并回发推送
type GameHandler struct {
	manager *game.Manager
	hub     *Hub
	logger  *zap.Logger
}

// NewGameHandler 创建游戏消息处理器并完成双向挂接
func NewGameHandler(manager *game.Manager, hub *Hub, log *zap.Logger) *GameHandler {
	h := &GameHandler{
		manager: manager,
		hub:     hub,
		logger:  log,
	}
	hub.SetMessageHandler(h)
	manager.SetPusher(hub)
	return h
}

// joinRequest player:join 负载
type joinRequest struct {
	Username       string `json:"username"`
	CharacterClass string `json:"characterClass"`
}

// moveRequest player:move 负载
type moveRequest struct {
	Position game.Position `json:"position"`
}

// attackRequest player:attack 负载
type attackRequest struct {
	Target string `json:"target"`
	Damage int    `json:"damage"`
}

// enemyHitRequest enemy:hit 负载
type enemyHitRequest struct {
	EnemyID string `json:"enemyId"`
	Damage  int    `json:"damage"`
}

// itemPickupRequest item:pickup 负载
type itemPickupRequest struct {
	ItemID string `json:"itemId"`
}

// chatRequest chat:message 负载
type chatRequest struct {
	Message string `json:"message"`
}

// HandleClientMessage 解析信封并按事件分发
// 格式错误的消息只记日志不回执
func (h *GameHandler) HandleClientMessage(client *Client, data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		h.logger.Warn("解析WebSocket消息失败",
			zap.String("client_id", client.ID),
			zap.Error(err))
		return
	}

	logger.LogWebSocketMessage("in", env.Event, len(data))

	switch env.Event {
	case game.EventPlayerJoin:
		h.handleJoin(client, env.Data)

	case game.EventPlayerMove:
		var req moveRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			return
		}
		h.deliver(h.manager.Move(client.ID, req.Position))

	case game.EventPlayerAttack:
		var req attackRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			return
		}
		h.deliver(h.manager.Attack(client.ID, req.Target, req.Damage))

	case game.EventEnemyHit:
		var req enemyHitRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			return
		}
		h.deliver(h.manager.EnemyHit(client.ID, req.EnemyID, req.Damage))

	case game.EventItemPickup:
		var req itemPickupRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			return
		}
		h.deliver(h.manager.ItemPickup(client.ID, req.ItemID))

	case game.EventChatMessage:
		var req chatRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			return
		}
		h.deliver(h.manager.Chat(client.ID, req.Message))

	case game.EventPlayerReady:
		h.deliver(h.manager.Ready(client.ID))

	default:
		h.logger.Warn("收到不支持的事件",
			zap.String("client_id", client.ID),
			zap.String("event", env.Event))
	}
}

// handleJoin 处理加入请求，应答只发给调用方
func (h *GameHandler) handleJoin(client *Client, data json.RawMessage) {
	var req joinRequest
	if len(data) > 0 {
		// 负载可为空，沿用默认用户名和职业
		json.Unmarshal(data, &req)
	}

	resp, pushes, err := h.manager.Join(client.ID, req.Username, req.CharacterClass)
	if err != nil {
		h.logger.Warn("玩家加入失败",
			zap.String("client_id", client.ID),
			zap.Error(err))
		return
	}

	if err := client.SendEvent(game.EventLobbyJoined, resp); err != nil {
		h.logger.Warn("发送加入应答失败",
			zap.String("client_id", client.ID),
			zap.Error(err))
	}

	h.deliver(pushes)
}

// HandleClientDisconnect 连接断开时同步大厅状态
func (h *GameHandler) HandleClientDisconnect(client *Client) {
	h.deliver(h.manager.Disconnect(client.ID))
}

// deliver 下发推送列表
func (h *GameHandler) deliver(pushes []*game.PushMessage) {
	for _, push := range pushes {
		h.hub.PushToPlayers(push.Targets, push.Event, push.Data)
	}
}
