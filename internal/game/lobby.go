package game

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/wfunc/klyra-server/internal/config"
	"go.uber.org/zap"
)

// Lobby 游戏大厅
// 并发访问由 Manager 的锁保护，自身不加锁
type Lobby struct {
	ID          string
	Players     map[string]*Player
	MaxPlayers  int
	GameState   *Snapshot
	CreatedAt   time.Time
	FinishedAt  *time.Time
	PeakPlayers int

	sm         *StateMachine
	order      []string // 按加入顺序记录玩家ID
	startTimer *time.Timer
	logger     *zap.Logger
}

// NewLobby 创建大厅
func NewLobby(maxPlayers int, logger *zap.Logger) *Lobby {
	id := uuid.New().String()
	l := &Lobby{
		ID:         id,
		Players:    make(map[string]*Player),
		MaxPlayers: maxPlayers,
		GameState: &Snapshot{
			Floor:   1,
			Enemies: make([]*Enemy, 0),
			Items:   make([]*Item, 0),
		},
		CreatedAt: time.Now(),
		sm:        NewStateMachine(id, logger),
		logger:    logger,
	}

	l.sm.OnStateChange(func(from, to LobbyStatus) {
		if to == StatusFinished {
			now := time.Now()
			l.FinishedAt = &now
		}
	})

	return l
}

// Status 当前状态
func (l *Lobby) Status() LobbyStatus {
	return l.sm.GetState()
}

// PlayerCount 当前人数
func (l *Lobby) PlayerCount() int {
	return len(l.Players)
}

// IsEmpty 大厅是否已清空
func (l *Lobby) IsEmpty() bool {
	return len(l.Players) == 0
}

// AddPlayer 加入玩家并分配出生点
// 返回是否加入成功，以及本次加入是否使大厅满员进入倒计时
func (l *Lobby) AddPlayer(player *Player) (joined, becameFull bool) {
	if len(l.Players) >= l.MaxPlayers {
		return false, false
	}

	l.Players[player.ID] = player
	l.order = append(l.order, player.ID)
	player.LobbyID = l.ID

	if len(l.Players) > l.PeakPlayers {
		l.PeakPlayers = len(l.Players)
	}

	// 分配出生点
	spawnPoints := l.SpawnPoints()
	player.Position = spawnPoints[len(l.Players)-1]

	l.logger.Info("玩家加入大厅",
		zap.String("lobby_id", l.ID),
		zap.String("username", player.Username),
		zap.Int("player_count", len(l.Players)),
		zap.Int("max_players", l.MaxPlayers))

	// 满员触发倒计时
	if len(l.Players) == l.MaxPlayers && l.sm.GetState() == StatusWaiting {
		if err := l.sm.Trigger(TriggerLobbyFull); err == nil {
			becameFull = true
		}
	}

	return true, becameFull
}

// RemovePlayer 移除玩家，大厅清空时转入 finished
func (l *Lobby) RemovePlayer(playerID string) *Player {
	player, ok := l.Players[playerID]
	if !ok {
		return nil
	}

	delete(l.Players, playerID)
	for i, id := range l.order {
		if id == playerID {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}

	l.logger.Info("玩家离开大厅",
		zap.String("lobby_id", l.ID),
		zap.String("username", player.Username),
		zap.Int("player_count", len(l.Players)),
		zap.Int("max_players", l.MaxPlayers))

	if len(l.Players) == 0 && l.sm.GetState() != StatusFinished {
		l.sm.Trigger(TriggerLastPlayerLeft)
	}

	return player
}

// SpawnPoints 以半径5的圆周均匀分布出生点
func (l *Lobby) SpawnPoints() []Position {
	const radius = 5.0
	points := make([]Position, 0, l.MaxPlayers)
	for i := 0; i < l.MaxPlayers; i++ {
		angle := 2 * math.Pi * float64(i) / float64(l.MaxPlayers)
		points = append(points, Position{
			X: int(math.Round(radius * math.Cos(angle))),
			Y: int(math.Round(radius * math.Sin(angle))),
		})
	}
	return points
}

// Start 倒计时结束后开局，生成地牢并进入 active
// 状态不是 starting 时不生效
func (l *Lobby) Start(cfg *config.DungeonConfig) bool {
	if l.sm.GetState() != StatusStarting {
		return false
	}
	if err := l.sm.Trigger(TriggerStartGame); err != nil {
		return false
	}

	l.GameState.Dungeon = GenerateDungeon(cfg.Width, cfg.Height, cfg.WallDensity)
	l.GameState.Enemies = SpawnEnemies(cfg.EnemyCount)
	l.GameState.Items = SpawnItems(cfg.ItemCount)

	l.logger.Info("大厅开局",
		zap.String("lobby_id", l.ID),
		zap.Int("player_count", len(l.Players)))

	return true
}

// Roster 按加入顺序返回玩家列表
func (l *Lobby) Roster() []*Player {
	roster := make([]*Player, 0, len(l.Players))
	for _, id := range l.order {
		if p, ok := l.Players[id]; ok {
			roster = append(roster, p)
		}
	}
	return roster
}

// MemberIDs 全体成员的连接ID
func (l *Lobby) MemberIDs() []string {
	ids := make([]string, 0, len(l.Players))
	for _, id := range l.order {
		if _, ok := l.Players[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// PeerIDs 除指定玩家外的成员连接ID
func (l *Lobby) PeerIDs(exclude string) []string {
	ids := make([]string, 0, len(l.Players))
	for _, id := range l.order {
		if id == exclude {
			continue
		}
		if _, ok := l.Players[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// FindEnemy 按ID查找敌人
func (l *Lobby) FindEnemy(enemyID string) *Enemy {
	for _, e := range l.GameState.Enemies {
		if e.ID == enemyID {
			return e
		}
	}
	return nil
}

// RemoveEnemy 按ID移除敌人
func (l *Lobby) RemoveEnemy(enemyID string) {
	enemies := l.GameState.Enemies[:0]
	for _, e := range l.GameState.Enemies {
		if e.ID != enemyID {
			enemies = append(enemies, e)
		}
	}
	l.GameState.Enemies = enemies
}

// TakeItem 按ID取走道具，不存在时返回nil
func (l *Lobby) TakeItem(itemID string) *Item {
	for i, item := range l.GameState.Items {
		if item.ID == itemID {
			l.GameState.Items = append(l.GameState.Items[:i], l.GameState.Items[i+1:]...)
			return item
		}
	}
	return nil
}

// Stats 大厅统计信息
func (l *Lobby) Stats() LobbyStats {
	return LobbyStats{
		ID:          l.ID,
		PlayerCount: len(l.Players),
		MaxPlayers:  l.MaxPlayers,
		Status:      string(l.sm.GetState()),
		Floor:       l.GameState.Floor,
	}
}

// SetStartTimer 记录倒计时定时器，便于关停时取消
func (l *Lobby) SetStartTimer(t *time.Timer) {
	l.startTimer = t
}

// StopStartTimer 取消倒计时定时器
func (l *Lobby) StopStartTimer() {
	if l.startTimer != nil {
		l.startTimer.Stop()
		l.startTimer = nil
	}
}
