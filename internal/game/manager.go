package game

import (
	"context"
	"sync"
	"time"

	"github.com/wfunc/klyra-server/internal/config"
	"github.com/wfunc/klyra-server/internal/errors"
	"github.com/wfunc/klyra-server/internal/models"
	"github.com/wfunc/klyra-server/internal/repository"
	"go.uber.org/zap"
)

// Pusher 异步推送接口，倒计时触发的广播通过它下发
// 由WebSocket层实现
type Pusher interface {
	PushToPlayers(playerIDs []string, event string, data interface{})
}

// Manager 大厅与玩家的内存存储，所有匹配和对局操作的入口
// 通过构造函数注入依赖，进程重启后状态清空
type Manager struct {
	mu      sync.RWMutex
	lobbies map[string]*Lobby
	players map[string]*Player

	cfg    *config.GameConfig
	logger *zap.Logger
	pusher Pusher

	// 归档仓储，可为空（纯内存模式）
	lobbyRepo repository.LobbyRecordRepository
	chatRepo  repository.ChatLogRepository

	closed bool
}

// NewManager 创建大厅管理器
func NewManager(cfg *config.GameConfig, logger *zap.Logger) *Manager {
	return &Manager{
		lobbies: make(map[string]*Lobby),
		players: make(map[string]*Player),
		cfg:     cfg,
		logger:  logger,
	}
}

// SetPusher 设置异步推送实现
func (m *Manager) SetPusher(p Pusher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pusher = p
}

// SetRepositories 设置归档仓储
func (m *Manager) SetRepositories(lobbyRepo repository.LobbyRecordRepository, chatRepo repository.ChatLogRepository) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lobbyRepo = lobbyRepo
	m.chatRepo = chatRepo
}

// Join 玩家加入：匹配或创建大厅，分配出生点
// 返回给调用方的应答和需要推送给同大厅其他玩家的消息
func (m *Manager) Join(playerID, username, characterClass string) (*JoinResponse, []*PushMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, nil, errors.New(errors.ErrUnknown, "服务已关闭")
	}

	player := NewPlayer(playerID, username)
	if characterClass != "" {
		player.Class = characterClass
	}
	m.players[playerID] = player

	lobby := m.findOrCreateLobbyLocked()
	joined, becameFull := lobby.AddPlayer(player)
	if !joined {
		return nil, nil, errors.New(errors.ErrLobbyFull, "")
	}

	// 满员后延迟开局
	if becameFull {
		lobbyID := lobby.ID
		timer := time.AfterFunc(m.cfg.StartDelay, func() {
			m.startGame(lobbyID)
		})
		lobby.SetStartTimer(timer)
	}

	resp := &JoinResponse{
		LobbyID:     lobby.ID,
		Player:      player,
		Players:     lobby.Roster(),
		LobbyStatus: lobby.Status(),
		PlayerCount: lobby.PlayerCount(),
		MaxPlayers:  lobby.MaxPlayers,
	}

	pushes := []*PushMessage{{
		Targets: lobby.PeerIDs(playerID),
		Event:   EventPlayerJoined,
		Data: &PlayerJoinedPush{
			Player:      player,
			PlayerCount: lobby.PlayerCount(),
		},
	}}

	return resp, pushes, nil
}

// findOrCreateLobbyLocked 查找有空位的等待中大厅，没有则新建
func (m *Manager) findOrCreateLobbyLocked() *Lobby {
	for _, lobby := range m.lobbies {
		if lobby.Status() == StatusWaiting && lobby.PlayerCount() < lobby.MaxPlayers {
			return lobby
		}
	}

	lobby := NewLobby(m.cfg.MaxPlayersPerLobby, m.logger)
	m.lobbies[lobby.ID] = lobby
	m.logger.Info("创建新大厅", zap.String("lobby_id", lobby.ID))
	return lobby
}

// startGame 倒计时结束回调，开局并广播 game:start
func (m *Manager) startGame(lobbyID string) {
	m.mu.Lock()
	lobby, ok := m.lobbies[lobbyID]
	if !ok || !lobby.Start(&m.cfg.Dungeon) {
		m.mu.Unlock()
		return
	}

	data := &GameStartPush{
		LobbyID:   lobby.ID,
		Players:   lobby.Roster(),
		GameState: lobby.GameState,
	}
	targets := lobby.MemberIDs()
	pusher := m.pusher
	m.mu.Unlock()

	if pusher != nil {
		pusher.PushToPlayers(targets, EventGameStart, data)
	}
}

// Move 更新玩家位置并通知同大厅其他玩家
// 玩家不在进行中的大厅时静默忽略
func (m *Manager) Move(playerID string, position Position) []*PushMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	player, lobby := m.activeLobbyLocked(playerID)
	if player == nil {
		return nil
	}

	player.Position = position

	return []*PushMessage{{
		Targets: lobby.PeerIDs(playerID),
		Event:   EventPlayerMoved,
		Data: &PlayerMovedPush{
			PlayerID: player.ID,
			Position: player.Position,
		},
	}}
}

// Attack 广播玩家攻击动作给全大厅
func (m *Manager) Attack(playerID, target string, damage int) []*PushMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	player, lobby := m.activeLobbyLocked(playerID)
	if player == nil {
		return nil
	}

	return []*PushMessage{{
		Targets: lobby.MemberIDs(),
		Event:   EventPlayerAttacked,
		Data: &PlayerAttackedPush{
			PlayerID: player.ID,
			Target:   target,
			Damage:   damage,
		},
	}}
}

// EnemyHit 结算对敌人的伤害，死亡时移除并广播击杀
func (m *Manager) EnemyHit(playerID, enemyID string, damage int) []*PushMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	player, lobby := m.activeLobbyLocked(playerID)
	if player == nil {
		return nil
	}

	enemy := lobby.FindEnemy(enemyID)
	if enemy == nil {
		return nil
	}

	enemy.Health -= damage

	if enemy.Health <= 0 {
		lobby.RemoveEnemy(enemyID)
		return []*PushMessage{{
			Targets: lobby.MemberIDs(),
			Event:   EventEnemyKilled,
			Data: &EnemyKilledPush{
				EnemyID:  enemyID,
				KilledBy: player.ID,
			},
		}}
	}

	return []*PushMessage{{
		Targets: lobby.MemberIDs(),
		Event:   EventEnemyDamaged,
		Data: &EnemyDamagedPush{
			EnemyID: enemyID,
			Health:  enemy.Health,
			Damage:  damage,
		},
	}}
}

// ItemPickup 拾取道具：从地面移除并放入玩家背包
func (m *Manager) ItemPickup(playerID, itemID string) []*PushMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	player, lobby := m.activeLobbyLocked(playerID)
	if player == nil {
		return nil
	}

	item := lobby.TakeItem(itemID)
	if item == nil {
		return nil
	}

	player.Inventory = append(player.Inventory, item)

	return []*PushMessage{{
		Targets: lobby.MemberIDs(),
		Event:   EventItemPicked,
		Data: &ItemPickedPush{
			ItemID:   itemID,
			PlayerID: player.ID,
		},
	}}
}

// Chat 聊天消息广播给全大厅，任何状态的大厅均可聊天
func (m *Manager) Chat(playerID, message string) []*PushMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	player, lobby := m.memberLobbyLocked(playerID)
	if player == nil {
		return nil
	}

	now := time.Now().UnixMilli()

	// 落库不阻塞广播
	if m.chatRepo != nil {
		log := &models.ChatLog{
			LobbyID:  lobby.ID,
			PlayerID: player.ID,
			Username: player.Username,
			Message:  message,
			SentAt:   now,
		}
		chatRepo := m.chatRepo
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := chatRepo.Create(ctx, log); err != nil {
				m.logger.Warn("聊天记录写入失败", zap.Error(err))
			}
		}()
	}

	return []*PushMessage{{
		Targets: lobby.MemberIDs(),
		Event:   EventChatMessage,
		Data: &ChatPush{
			PlayerID:  player.ID,
			Username:  player.Username,
			Message:   message,
			Timestamp: now,
		},
	}}
}

// Ready 准备状态通知同大厅其他玩家
func (m *Manager) Ready(playerID string) []*PushMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	player, lobby := m.memberLobbyLocked(playerID)
	if player == nil {
		return nil
	}

	return []*PushMessage{{
		Targets: lobby.PeerIDs(playerID),
		Event:   EventPlayerReady,
		Data: &PlayerReadyPush{
			PlayerID: player.ID,
			Username: player.Username,
		},
	}}
}

// Disconnect 连接断开：移出大厅并通知其余玩家
// 大厅随之清空时立即归档并删除
func (m *Manager) Disconnect(playerID string) []*PushMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	player, ok := m.players[playerID]
	delete(m.players, playerID)
	if !ok || player.LobbyID == "" {
		return nil
	}

	lobby, ok := m.lobbies[player.LobbyID]
	if !ok {
		return nil
	}

	lobby.RemovePlayer(playerID)

	var pushes []*PushMessage
	if lobby.PlayerCount() > 0 {
		pushes = []*PushMessage{{
			Targets: lobby.MemberIDs(),
			Event:   EventPlayerLeft,
			Data: &PlayerLeftPush{
				PlayerID:    player.ID,
				Username:    player.Username,
				PlayerCount: lobby.PlayerCount(),
			},
		}}
	}

	if lobby.Status() == StatusFinished {
		m.deleteLobbyLocked(lobby)
	}

	return pushes
}

// memberLobbyLocked 查找玩家及其所在大厅
func (m *Manager) memberLobbyLocked(playerID string) (*Player, *Lobby) {
	player, ok := m.players[playerID]
	if !ok || player.LobbyID == "" {
		return nil, nil
	}
	lobby, ok := m.lobbies[player.LobbyID]
	if !ok {
		return nil, nil
	}
	return player, lobby
}

// activeLobbyLocked 查找玩家及其所在的进行中大厅
func (m *Manager) activeLobbyLocked(playerID string) (*Player, *Lobby) {
	player, lobby := m.memberLobbyLocked(playerID)
	if player == nil || lobby.Status() != StatusActive {
		return nil, nil
	}
	return player, lobby
}

// deleteLobbyLocked 归档并删除大厅
func (m *Manager) deleteLobbyLocked(lobby *Lobby) {
	lobby.StopStartTimer()
	delete(m.lobbies, lobby.ID)
	m.archiveLobby(lobby)
	m.logger.Info("大厅已删除", zap.String("lobby_id", lobby.ID))
}

// archiveLobby 异步写入归档记录，失败只记日志
func (m *Manager) archiveLobby(lobby *Lobby) {
	if m.lobbyRepo == nil {
		return
	}

	record := &models.LobbyRecord{
		LobbyID:        lobby.ID,
		Status:         string(StatusFinished),
		PeakPlayers:    lobby.PeakPlayers,
		Floor:          lobby.GameState.Floor,
		LobbyCreatedAt: lobby.CreatedAt,
		FinishedAt:     lobby.FinishedAt,
	}

	lobbyRepo := m.lobbyRepo
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := lobbyRepo.Create(ctx, record); err != nil {
			m.logger.Warn("大厅归档失败",
				zap.String("lobby_id", record.LobbyID),
				zap.Error(err))
		}
	}()
}

// CleanupFinished 回收创建时间超过宽限期的已结束大厅，返回回收数量
// 等待中和进行中的大厅不受影响
func (m *Manager) CleanupFinished(grace time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	count := 0
	for _, lobby := range m.lobbies {
		if lobby.Status() == StatusFinished && now.Sub(lobby.CreatedAt) > grace {
			m.deleteLobbyLocked(lobby)
			count++
		}
	}
	return count
}

// Counts 当前大厅数与在线玩家数
func (m *Manager) Counts() (lobbies, players int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.lobbies), len(m.players)
}

// LobbyStatsList 全部大厅的统计信息
func (m *Manager) LobbyStatsList() []LobbyStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := make([]LobbyStats, 0, len(m.lobbies))
	for _, lobby := range m.lobbies {
		stats = append(stats, lobby.Stats())
	}
	return stats
}

// GetLobby 按ID查找大厅
func (m *Manager) GetLobby(lobbyID string) (*Lobby, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lobby, ok := m.lobbies[lobbyID]
	return lobby, ok
}

// GetPlayer 按连接ID查找玩家
func (m *Manager) GetPlayer(playerID string) (*Player, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	player, ok := m.players[playerID]
	return player, ok
}

// Close 停止所有倒计时定时器，拒绝后续加入
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	for _, lobby := range m.lobbies {
		lobby.StopStartTimer()
	}
}
