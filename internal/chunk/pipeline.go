package chunk

import (
	"context"
	"sync"
	"time"

	"github.com/wfunc/klyra-server/internal/config"
	"github.com/wfunc/klyra-server/internal/logger"
	"go.uber.org/zap"
)

// Pipeline 区块加载管线：固定数量的worker消费任务队列
// 每个任务依次经过拉取和预处理两个阶段，失败的区块只上报一次，不做重试
type Pipeline struct {
	loader  *Loader
	workers int

	jobs    chan Job
	results chan *Result

	logger *zap.Logger
	wg     sync.WaitGroup
	once   sync.Once
}

// NewPipeline 创建管线
func NewPipeline(cfg *config.ChunkConfig, log *zap.Logger) *Pipeline {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = workers
	}

	return &Pipeline{
		loader:  NewLoader(cfg),
		workers: workers,
		jobs:    make(chan Job, queueSize),
		results: make(chan *Result, queueSize),
		logger:  log,
	}
}

// Start 启动worker，随 ctx 取消而停止
// 全部worker退出后结果通道关闭
func (p *Pipeline) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}

	go func() {
		p.wg.Wait()
		close(p.results)
	}()
}

// worker 消费任务直到队列关闭或 ctx 取消
func (p *Pipeline) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	p.logger.Debug("区块worker启动", zap.Int("worker", id))

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			result := p.handle(ctx, job)

			select {
			case p.results <- result:
			case <-ctx.Done():
				return
			}
		}
	}
}

// handle 执行单个任务的两个阶段
func (p *Pipeline) handle(ctx context.Context, job Job) *Result {
	start := time.Now()

	result := &Result{
		ChunkKey: job.ChunkKey,
		ChunkX:   job.ChunkX,
		ChunkY:   job.ChunkY,
	}

	data, err := p.loader.Fetch(ctx, job.FilePath)
	if err != nil {
		result.Err = err
		logger.LogChunkResult(job.ChunkKey, false, time.Since(start), err)
		return result
	}

	processed, err := Process(data, job.WorldX, job.WorldY)
	if err != nil {
		result.Err = err
		logger.LogChunkResult(job.ChunkKey, false, time.Since(start), err)
		return result
	}

	result.Layers = processed.Layers
	result.Collisions = processed.Collisions
	result.Tilesets = processed.Tilesets
	result.NPCSpawns = processed.NPCSpawns

	logger.LogChunkResult(job.ChunkKey, true, time.Since(start), nil)
	return result
}

// Submit 提交任务，队列满时阻塞直到有空位或 ctx 取消
func (p *Pipeline) Submit(ctx context.Context, job Job) error {
	select {
	case p.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Results 结果通道
func (p *Pipeline) Results() <-chan *Result {
	return p.results
}

// Close 关闭任务队列，已提交的任务处理完后worker退出
func (p *Pipeline) Close() {
	p.once.Do(func() {
		close(p.jobs)
	})
}
