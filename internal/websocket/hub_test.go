package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHub_SendToClient(t *testing.T) {
	hub := NewHub(testWSConfig(), zap.NewNop())
	client := addFakeClient(hub, "conn-1")

	err := hub.SendToClient("conn-1", "chat:message", map[string]string{"message": "hi"})
	require.NoError(t, err)

	raw := <-client.Send
	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, "chat:message", env.Event)

	// 未知客户端
	err = hub.SendToClient("ghost", "chat:message", nil)
	assert.ErrorIs(t, err, ErrClientNotFound)
}

func TestHub_SendBufferFull(t *testing.T) {
	hub := NewHub(testWSConfig(), zap.NewNop())
	client := &Client{ID: "conn-1", Hub: hub, Send: make(chan []byte, 1)}
	hub.clients[client.ID] = client

	require.NoError(t, hub.SendToClient("conn-1", "a", nil))
	err := hub.SendToClient("conn-1", "b", nil)
	assert.ErrorIs(t, err, ErrSendBufferFull)

	// 群发时缓冲区满的连接被跳过，不阻塞
	hub.PushToPlayers([]string{"conn-1", "ghost"}, "c", nil)
	assert.Len(t, client.Send, 1)
}

func TestHub_PushToPlayersSubset(t *testing.T) {
	hub := NewHub(testWSConfig(), zap.NewNop())
	c1 := addFakeClient(hub, "conn-1")
	c2 := addFakeClient(hub, "conn-2")
	c3 := addFakeClient(hub, "conn-3")

	hub.PushToPlayers([]string{"conn-1", "conn-3"}, "player:ready", nil)

	assert.Len(t, c1.Send, 1)
	assert.Len(t, c2.Send, 0)
	assert.Len(t, c3.Send, 1)
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub(testWSConfig(), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	client := &Client{ID: "conn-1", Hub: hub, Send: make(chan []byte, 4)}
	hub.Register(client)

	require.Eventually(t, func() bool {
		return hub.GetOnlineCount() == 1
	}, time.Second, 5*time.Millisecond)

	hub.Unregister(client)

	require.Eventually(t, func() bool {
		return hub.GetOnlineCount() == 0
	}, time.Second, 5*time.Millisecond)

	// 注销后发送通道已关闭
	_, open := <-client.Send
	assert.False(t, open)
}
