package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/klyra-server/internal/config"
	"github.com/wfunc/klyra-server/internal/game"
	ws "github.com/wfunc/klyra-server/internal/websocket"
	"go.uber.org/zap"
)

func testWSConfig() *config.WebSocketConfig {
	return &config.WebSocketConfig{
		Path:            "/ws",
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		MaxMessageSize:  8192,
		PingInterval:    25 * time.Second,
		PongTimeout:     60 * time.Second,
		WriteTimeout:    10 * time.Second,
		SendBufferSize:  64,
	}
}

func testGameConfig() *config.GameConfig {
	return &config.GameConfig{
		MaxPlayersPerLobby: 2,
		StartDelay:         20 * time.Millisecond,
		SweepInterval:      time.Minute,
		GracePeriod:        5 * time.Minute,
		Dungeon: config.DungeonConfig{
			Width:       50,
			Height:      50,
			WallDensity: 0.2,
			EnemyCount:  5,
			ItemCount:   10,
		},
	}
}

// setupRouter 组装完整的API栈
func setupRouter(t *testing.T) (*Router, *game.Manager, context.CancelFunc) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := zap.NewNop()
	manager := game.NewManager(testGameConfig(), log)
	hub := ws.NewHub(testWSConfig(), log)
	ws.NewGameHandler(manager, hub, log)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	wsHandler := NewWebSocketHandler(hub, testWSConfig(), log)
	router := NewRouter(manager, wsHandler, log)
	return router, manager, cancel
}

func TestHealthEndpoint(t *testing.T) {
	router, manager, cancel := setupRouter(t)
	defer cancel()

	_, _, err := manager.Join("conn-1", "alice", "")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.GetEngine().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status    string  `json:"status"`
		Uptime    float64 `json:"uptime"`
		Lobbies   int     `json:"lobbies"`
		Players   int     `json:"players"`
		Timestamp int64   `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, 1, resp.Lobbies)
	assert.Equal(t, 1, resp.Players)
	assert.Greater(t, resp.Timestamp, int64(0))
}

func TestStatsEndpoint(t *testing.T) {
	router, manager, cancel := setupRouter(t)
	defer cancel()

	_, _, err := manager.Join("conn-1", "alice", "")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	router.GetEngine().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		TotalLobbies int               `json:"totalLobbies"`
		TotalPlayers int               `json:"totalPlayers"`
		Lobbies      []game.LobbyStats `json:"lobbies"`
		ServerUptime float64           `json:"serverUptime"`
		Timestamp    int64             `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.TotalLobbies)
	assert.Equal(t, 1, resp.TotalPlayers)
	require.Len(t, resp.Lobbies, 1)
	assert.Equal(t, 1, resp.Lobbies[0].PlayerCount)
	assert.Equal(t, 2, resp.Lobbies[0].MaxPlayers)
	assert.Equal(t, "waiting", resp.Lobbies[0].Status)
	assert.Equal(t, 1, resp.Lobbies[0].Floor)
}

func TestNotFound(t *testing.T) {
	router, _, cancel := setupRouter(t)
	defer cancel()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	router.GetEngine().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebSocketJoinRoundTrip(t *testing.T) {
	router, _, cancel := setupRouter(t)
	defer cancel()

	server := httptest.NewServer(router.GetEngine())
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	err = conn.WriteJSON(map[string]interface{}{
		"event": "player:join",
		"data":  map[string]string{"username": "alice"},
	})
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&env))
	assert.Equal(t, "lobby:joined", env.Event)

	var joined game.JoinResponse
	require.NoError(t, json.Unmarshal(env.Data, &joined))
	assert.Equal(t, "alice", joined.Player.Username)
	assert.Equal(t, game.StatusWaiting, joined.LobbyStatus)
}
