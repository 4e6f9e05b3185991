package repository

import (
	"context"

	"github.com/wfunc/klyra-server/internal/models"
	"gorm.io/gorm"
)

// ChatLogRepository 聊天记录仓储接口
type ChatLogRepository interface {
	Create(ctx context.Context, log *models.ChatLog) error
	FindByLobbyID(ctx context.Context, lobbyID string, limit int) ([]*models.ChatLog, error)
}

// chatLogRepo 聊天记录仓储实现
type chatLogRepo struct {
	*BaseRepo
}

// NewChatLogRepository 创建聊天记录仓储
func NewChatLogRepository(db *gorm.DB) ChatLogRepository {
	return &chatLogRepo{
		BaseRepo: NewBaseRepo(db),
	}
}

// Create 写入聊天记录
func (r *chatLogRepo) Create(ctx context.Context, log *models.ChatLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// FindByLobbyID 查询指定大厅的聊天记录
func (r *chatLogRepo) FindByLobbyID(ctx context.Context, lobbyID string, limit int) ([]*models.ChatLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var logs []*models.ChatLog
	err := r.db.WithContext(ctx).
		Where("lobby_id = ?", lobbyID).
		Order("sent_at desc").
		Limit(limit).
		Find(&logs).Error

	return logs, err
}
