package models

import (
	"time"
)

// LobbyRecord 大厅归档表
// 清理器回收已结束的大厅前写入一条归档记录，运行时状态不依赖此表
type LobbyRecord struct {
	BaseModel
	LobbyID        string     `gorm:"uniqueIndex;size:64;not null" json:"lobby_id"`
	Status         string     `gorm:"size:20;not null" json:"status"` // finished
	PeakPlayers    int        `gorm:"default:0" json:"peak_players"`
	Floor          int        `gorm:"default:1" json:"floor"`
	LobbyCreatedAt time.Time  `json:"lobby_created_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
	Summary        JSONMap    `gorm:"type:json" json:"summary"`
}

// ChatLog 聊天记录表
type ChatLog struct {
	BaseModel
	LobbyID  string `gorm:"index;size:64;not null" json:"lobby_id"`
	PlayerID string `gorm:"size:64;not null" json:"player_id"`
	Username string `gorm:"size:100" json:"username"`
	Message  string `gorm:"size:500" json:"message"`
	SentAt   int64  `json:"sent_at"` // 毫秒时间戳
}
