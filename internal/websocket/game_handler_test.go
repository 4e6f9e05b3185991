package websocket

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/klyra-server/internal/config"
	"github.com/wfunc/klyra-server/internal/game"
	"go.uber.org/zap"
)

func testWSConfig() *config.WebSocketConfig {
	return &config.WebSocketConfig{
		Path:           "/ws",
		MaxMessageSize: 8192,
		PingInterval:   25 * time.Second,
		PongTimeout:    60 * time.Second,
		WriteTimeout:   10 * time.Second,
		SendBufferSize: 64,
	}
}

func testManagerConfig() *config.GameConfig {
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

// newTestHandler 组装不带真实连接的处理链
func newTestHandler(t *testing.T) (*GameHandler, *Hub, *game.Manager) {
	t.Helper()
	hub := NewHub(testWSConfig(), zap.NewNop())
	manager := game.NewManager(testManagerConfig(), zap.NewNop())
	handler := NewGameHandler(manager, hub, zap.NewNop())
	return handler, hub, manager
}

// addFakeClient 直接挂入连接池，跳过网络层
func addFakeClient(hub *Hub, id string) *Client {
	client := &Client{
		ID:   id,
		Hub:  hub,
		Send: make(chan []byte, 64),
	}
	hub.clientsMu.Lock()
	hub.clients[id] = client
	hub.clientsMu.Unlock()
	return client
}

// recvEvent 等待客户端收到指定事件
func recvEvent(t *testing.T, client *Client, event string) json.RawMessage {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case raw := <-client.Send:
			var env Envelope
			require.NoError(t, json.Unmarshal(raw, &env))
			if env.Event == event {
				return env.Data
			}
		case <-deadline:
			t.Fatalf("客户端 %s 未收到事件 %s", client.ID, event)
			return nil
		}
	}
}

// assertNoEvent 校验客户端没有收到任何消息
func assertNoEvent(t *testing.T, client *Client) {
	t.Helper()
	select {
	case raw := <-client.Send:
		t.Fatalf("客户端 %s 收到了意外消息: %s", client.ID, raw)
	case <-time.After(50 * time.Millisecond):
	}
}

func joinPayload(username string) []byte {
	return []byte(fmt.Sprintf(`{"event":"player:join","data":{"username":"%s"}}`, username))
}

func TestGameHandler_JoinFlow(t *testing.T) {
	handler, hub, _ := newTestHandler(t)
	c1 := addFakeClient(hub, "conn-1")
	c2 := addFakeClient(hub, "conn-2")

	handler.HandleClientMessage(c1, joinPayload("alice"))

	data := recvEvent(t, c1, game.EventLobbyJoined)
	var joined game.JoinResponse
	require.NoError(t, json.Unmarshal(data, &joined))
	assert.Equal(t, "alice", joined.Player.Username)
	assert.Equal(t, game.StatusWaiting, joined.LobbyStatus)
	assert.Equal(t, 1, joined.PlayerCount)

	// 第二人加入，第一人收到通知
	handler.HandleClientMessage(c2, joinPayload("bob"))
	data = recvEvent(t, c1, game.EventPlayerJoined)
	var notice game.PlayerJoinedPush
	require.NoError(t, json.Unmarshal(data, &notice))
	assert.Equal(t, "bob", notice.Player.Username)
	assert.Equal(t, 2, notice.PlayerCount)

	// 满员倒计时后双方收到开局
	recvEvent(t, c1, game.EventGameStart)
	data = recvEvent(t, c2, game.EventGameStart)
	var start game.GameStartPush
	require.NoError(t, json.Unmarshal(data, &start))
	assert.Len(t, start.Players, 2)
	require.NotNil(t, start.GameState)
	assert.Len(t, start.GameState.Enemies, 5)
}

func TestGameHandler_JoinWithoutPayload(t *testing.T) {
	handler, hub, manager := newTestHandler(t)
	c1 := addFakeClient(hub, "conn-1")

	handler.HandleClientMessage(c1, []byte(`{"event":"player:join"}`))
	recvEvent(t, c1, game.EventLobbyJoined)

	p, ok := manager.GetPlayer("conn-1")
	require.True(t, ok)
	assert.Contains(t, p.Username, "Player_")
	assert.Equal(t, "warrior", p.Class)
}

func TestGameHandler_MoveBroadcast(t *testing.T) {
	handler, hub, _ := newTestHandler(t)
	c1 := addFakeClient(hub, "conn-1")
	c2 := addFakeClient(hub, "conn-2")

	handler.HandleClientMessage(c1, joinPayload("alice"))
	handler.HandleClientMessage(c2, joinPayload("bob"))
	recvEvent(t, c1, game.EventGameStart)
	recvEvent(t, c2, game.EventGameStart)

	handler.HandleClientMessage(c1, []byte(`{"event":"player:move","data":{"position":{"x":7,"y":8}}}`))

	data := recvEvent(t, c2, game.EventPlayerMoved)
	var moved game.PlayerMovedPush
	require.NoError(t, json.Unmarshal(data, &moved))
	assert.Equal(t, "conn-1", moved.PlayerID)
	assert.Equal(t, game.Position{X: 7, Y: 8}, moved.Position)
}

func TestGameHandler_ChatBroadcastsToAll(t *testing.T) {
	handler, hub, _ := newTestHandler(t)
	c1 := addFakeClient(hub, "conn-1")

	handler.HandleClientMessage(c1, joinPayload("alice"))
	recvEvent(t, c1, game.EventLobbyJoined)

	handler.HandleClientMessage(c1, []byte(`{"event":"chat:message","data":{"message":"hello"}}`))

	data := recvEvent(t, c1, game.EventChatMessage)
	var chat game.ChatPush
	require.NoError(t, json.Unmarshal(data, &chat))
	assert.Equal(t, "alice", chat.Username)
	assert.Equal(t, "hello", chat.Message)
	assert.Greater(t, chat.Timestamp, int64(0))
}

func TestGameHandler_DisconnectNotifiesLobby(t *testing.T) {
	handler, hub, manager := newTestHandler(t)
	c1 := addFakeClient(hub, "conn-1")
	c2 := addFakeClient(hub, "conn-2")

	handler.HandleClientMessage(c1, joinPayload("alice"))
	handler.HandleClientMessage(c2, joinPayload("bob"))
	recvEvent(t, c1, game.EventGameStart)
	recvEvent(t, c2, game.EventGameStart)

	handler.HandleClientDisconnect(c1)

	data := recvEvent(t, c2, game.EventPlayerLeft)
	var left game.PlayerLeftPush
	require.NoError(t, json.Unmarshal(data, &left))
	assert.Equal(t, "conn-1", left.PlayerID)
	assert.Equal(t, 1, left.PlayerCount)

	_, ok := manager.GetPlayer("conn-1")
	assert.False(t, ok)
}

func TestGameHandler_MalformedMessageIgnored(t *testing.T) {
	handler, hub, _ := newTestHandler(t)
	c1 := addFakeClient(hub, "conn-1")

	handler.HandleClientMessage(c1, []byte(`{not json`))
	handler.HandleClientMessage(c1, []byte(`{"event":"unknown:event","data":{}}`))
	handler.HandleClientMessage(c1, []byte(`{"event":"player:move","data":"oops"}`))

	assertNoEvent(t, c1)
}

func TestGameHandler_OpsBeforeJoinIgnored(t *testing.T) {
	handler, hub, _ := newTestHandler(t)
	c1 := addFakeClient(hub, "conn-1")

	handler.HandleClientMessage(c1, []byte(`{"event":"player:move","data":{"position":{"x":1,"y":1}}}`))
	handler.HandleClientMessage(c1, []byte(`{"event":"chat:message","data":{"message":"hi"}}`))
	handler.HandleClientMessage(c1, []byte(`{"event":"player:ready"}`))

	assertNoEvent(t, c1)
}
