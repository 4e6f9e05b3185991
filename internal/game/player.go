package game

import (
	"fmt"
	"math/rand"
)

// Player 在线玩家，ID 即 WebSocket 连接ID
// LobbyID 与所属大厅的成员表保持双向一致，由 Manager 维护
type Player struct {
	ID        string   `json:"id"`
	Username  string   `json:"username"`
	LobbyID   string   `json:"-"`
	Position  Position `json:"position"`
	Health    int      `json:"health"`
	MaxHealth int      `json:"maxHealth"`
	Level     int      `json:"level"`
	Class     string   `json:"class"`
	IsAlive   bool     `json:"isAlive"`
	Inventory []*Item  `json:"-"`
	Stats     Stats    `json:"stats"`
}

// NewPlayer 创建玩家，username 为空时生成随机用户名
func NewPlayer(id, username string) *Player {
	if username == "" {
		username = fmt.Sprintf("Player_%d", rand.Intn(9999))
	}
	return &Player{
		ID:        id,
		Username:  username,
		Health:    100,
		MaxHealth: 100,
		Level:     1,
		Class:     "warrior",
		IsAlive:   true,
		Inventory: make([]*Item, 0),
		Stats: Stats{
			Strength: 10,
			Defense:  10,
			Speed:    10,
		},
	}
}
