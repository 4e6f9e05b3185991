package repository

import (
	"context"
	"time"

	"github.com/wfunc/klyra-server/internal/models"
	"gorm.io/gorm"
)

// LobbyRecordRepository 大厅归档仓储接口
type LobbyRecordRepository interface {
	Create(ctx context.Context, record *models.LobbyRecord) error
	FindByLobbyID(ctx context.Context, lobbyID string) (*models.LobbyRecord, error)
	List(ctx context.Context, p *Pagination) ([]*models.LobbyRecord, error)
	CleanupBefore(ctx context.Context, before time.Time) (int64, error)
}

// lobbyRecordRepo 大厅归档仓储实现
type lobbyRecordRepo struct {
	*BaseRepo
}

// NewLobbyRecordRepository 创建大厅归档仓储
func NewLobbyRecordRepository(db *gorm.DB) LobbyRecordRepository {
	return &lobbyRecordRepo{
		BaseRepo: NewBaseRepo(db),
	}
}

// Create 创建归档记录
func (r *lobbyRecordRepo) Create(ctx context.Context, record *models.LobbyRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// FindByLobbyID 根据大厅ID查找
func (r *lobbyRecordRepo) FindByLobbyID(ctx context.Context, lobbyID string) (*models.LobbyRecord, error) {
	var record models.LobbyRecord
	err := r.db.WithContext(ctx).
		Where("lobby_id = ?", lobbyID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// List 分页查询归档记录
func (r *lobbyRecordRepo) List(ctx context.Context, p *Pagination) ([]*models.LobbyRecord, error) {
	var records []*models.LobbyRecord

	// 查询总数
	r.db.WithContext(ctx).
		Model(&models.LobbyRecord{}).
		Count(&p.Total)

	// 查询数据
	err := r.db.WithContext(ctx).
		Order("created_at desc").
		Scopes(Paginate(p)).
		Find(&records).Error

	return records, err
}

// CleanupBefore 清理指定时间之前的归档记录
func (r *lobbyRecordRepo) CleanupBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Unscoped().
		Where("created_at < ?", before).
		Delete(&models.LobbyRecord{})
	return result.RowsAffected, result.Error
}
