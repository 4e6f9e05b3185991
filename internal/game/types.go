package game

// 客户端上行事件
const (
	EventPlayerJoin   = "player:join"
	EventPlayerMove   = "player:move"
	EventPlayerAttack = "player:attack"
	EventEnemyHit     = "enemy:hit"
	EventItemPickup   = "item:pickup"
	EventChatMessage  = "chat:message"
	EventPlayerReady  = "player:ready"
)

// 服务端下行事件
const (
	EventLobbyJoined    = "lobby:joined"
	EventPlayerJoined   = "player:joined"
	EventPlayerMoved    = "player:moved"
	EventPlayerAttacked = "player:attacked"
	EventEnemyDamaged   = "enemy:damaged"
	EventEnemyKilled    = "enemy:killed"
	EventItemPicked     = "item:picked"
	EventPlayerLeft     = "player:left"
	EventGameStart      = "game:start"
)

// Position 坐标
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Stats 角色属性
type Stats struct {
	Strength int `json:"strength"`
	Defense  int `json:"defense"`
	Speed    int `json:"speed"`
}

// Item 地面道具
type Item struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Position Position `json:"position"`
}

// Enemy 敌人
type Enemy struct {
	ID        string   `json:"id"`
	Type      string   `json:"type"`
	Position  Position `json:"position"`
	Health    int      `json:"health"`
	MaxHealth int      `json:"maxHealth"`
	Damage    int      `json:"damage"`
}

// Dungeon 地牢地图，tiles 中 0 为地板、1 为墙
type Dungeon struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Tiles  [][]int `json:"tiles"`
	Rooms  []Room  `json:"rooms"`
}

// Room 地牢房间（预留）
type Room struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Snapshot 大厅内的游戏状态快照
type Snapshot struct {
	Floor   int      `json:"floor"`
	Enemies []*Enemy `json:"enemies"`
	Items   []*Item  `json:"items"`
	Dungeon *Dungeon `json:"dungeon"`
}

// LobbyStats 大厅统计信息
type LobbyStats struct {
	ID          string `json:"id"`
	PlayerCount int    `json:"playerCount"`
	MaxPlayers  int    `json:"maxPlayers"`
	Status      string `json:"status"`
	Floor       int    `json:"floor"`
}

// PushMessage 需要推送给指定连接的消息
type PushMessage struct {
	Targets []string    // 接收者连接ID列表
	Event   string      // 事件名
	Data    interface{} // 负载
}

// JoinResponse lobby:joined 负载
type JoinResponse struct {
	LobbyID     string      `json:"lobbyId"`
	Player      *Player     `json:"player"`
	Players     []*Player   `json:"players"`
	LobbyStatus LobbyStatus `json:"lobbyStatus"`
	PlayerCount int         `json:"playerCount"`
	MaxPlayers  int         `json:"maxPlayers"`
}

// PlayerJoinedPush player:joined 负载
type PlayerJoinedPush struct {
	Player      *Player `json:"player"`
	PlayerCount int     `json:"playerCount"`
}

// PlayerMovedPush player:moved 负载
type PlayerMovedPush struct {
	PlayerID string   `json:"playerId"`
	Position Position `json:"position"`
}

// PlayerAttackedPush player:attacked 负载
type PlayerAttackedPush struct {
	PlayerID string `json:"playerId"`
	Target   string `json:"target"`
	Damage   int    `json:"damage"`
}

// EnemyDamagedPush enemy:damaged 负载
type EnemyDamagedPush struct {
	EnemyID string `json:"enemyId"`
	Health  int    `json:"health"`
	Damage  int    `json:"damage"`
}

// EnemyKilledPush enemy:killed 负载
type EnemyKilledPush struct {
	EnemyID  string `json:"enemyId"`
	KilledBy string `json:"killedBy"`
}

// ItemPickedPush item:picked 负载
type ItemPickedPush struct {
	ItemID   string `json:"itemId"`
	PlayerID string `json:"playerId"`
}

// ChatPush chat:message 负载
type ChatPush struct {
	PlayerID  string `json:"playerId"`
	Username  string `json:"username"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// PlayerReadyPush player:ready 负载
type PlayerReadyPush struct {
	PlayerID string `json:"playerId"`
	Username string `json:"username"`
}

// PlayerLeftPush player:left 负载
type PlayerLeftPush struct {
	PlayerID    string `json:"playerId"`
	Username    string `json:"username"`
	PlayerCount int    `json:"playerCount"`
}

// GameStartPush game:start 负载
type GameStartPush struct {
	LobbyID   string    `json:"lobbyId"`
	Players   []*Player `json:"players"`
	GameState *Snapshot `json:"gameState"`
}
