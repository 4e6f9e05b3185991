package game

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sweeper 定期回收已结束的大厅
type Sweeper struct {
	manager  *Manager
	interval time.Duration
	grace    time.Duration
	logger   *zap.Logger
	wg       sync.WaitGroup
}

// NewSweeper 创建清理器
func NewSweeper(manager *Manager, interval, grace time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		manager:  manager,
		interval: interval,
		grace:    grace,
		logger:   logger,
	}
}

// Start 启动清理循环，随 ctx 取消而退出
func (s *Sweeper) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("清理器已停止")
				return
			case <-ticker.C:
				s.sweep()
			}
		}
	}()
}

// sweep 执行一次回收
func (s *Sweeper) sweep() {
	count := s.manager.CleanupFinished(s.grace)
	if count > 0 {
		s.logger.Info("回收过期大厅", zap.Int("count", count))
	}
}

// Wait 等待清理循环退出
func (s *Sweeper) Wait() {
	s.wg.Wait()
}
