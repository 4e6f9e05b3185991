package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/klyra-server/internal/game"
	"github.com/wfunc/klyra-server/internal/logger"
	"go.uber.org/zap"
)

// Router API路由器
type Router struct {
	engine    *gin.Engine
	manager   *game.Manager
	wsHandler *WebSocketHandler
	startedAt time.Time
	log       *zap.Logger
}

// NewRouter 创建路由器
func NewRouter(manager *game.Manager, wsHandler *WebSocketHandler, log *zap.Logger) *Router {
	// 创建Gin引擎
	engine := gin.New()

	// 全局中间件
	engine.Use(gin.Recovery())
	engine.Use(requestLogger())

	router := &Router{
		engine:    engine,
		manager:   manager,
		wsHandler: wsHandler,
		startedAt: time.Now(),
		log:       log,
	}

	// 设置路由
	router.setupRoutes()

	return router
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	// 健康检查
	r.engine.GET("/health", r.healthCheck)

	// 服务统计
	r.engine.GET("/stats", r.stats)

	// WebSocket路由
	r.engine.GET("/ws", r.wsHandler.GameWebSocket)

	// 404处理
	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{
			"code":    "NOT_FOUND",
			"message": "接口不存在",
		})
	})
}

// requestLogger 请求日志中间件
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.LogRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start), c.ClientIP())
	}
}

// healthCheck 健康检查
func (r *Router) healthCheck(c *gin.Context) {
	lobbies, players := r.manager.Counts()

	c.JSON(200, gin.H{
		"status":    "healthy",
		"uptime":    time.Since(r.startedAt).Seconds(),
		"lobbies":   lobbies,
		"players":   players,
		"timestamp": time.Now().UnixMilli(),
	})
}

// stats 服务统计
func (r *Router) stats(c *gin.Context) {
	lobbies, players := r.manager.Counts()

	c.JSON(200, gin.H{
		"totalLobbies": lobbies,
		"totalPlayers": players,
		"lobbies":      r.manager.LobbyStatsList(),
		"serverUptime": time.Since(r.startedAt).Seconds(),
		"timestamp":    time.Now().UnixMilli(),
	})
}

// Run 运行服务器
func (r *Router) Run(addr string) error {
	r.log.Info("Starting API server", zap.String("address", addr))
	return r.engine.Run(addr)
}

// GetEngine 获取Gin引擎（用于测试）
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
