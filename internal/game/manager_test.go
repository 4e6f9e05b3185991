package game

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/klyra-server/internal/config"
	"go.uber.org/zap"
)

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

// fakePusher 记录异步推送
type fakePusher struct {
	mu     sync.Mutex
	pushed chan *PushMessage
}

func newFakePusher() *fakePusher {
	return &fakePusher{pushed: make(chan *PushMessage, 16)}
}

func (f *fakePusher) PushToPlayers(playerIDs []string, event string, data interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushed <- &PushMessage{Targets: playerIDs, Event: event, Data: data}
}

func (f *fakePusher) waitFor(t *testing.T, event string) *PushMessage {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-f.pushed:
			if msg.Event == event {
				return msg
			}
		case <-deadline:
			t.Fatalf("未收到推送: %s", event)
			return nil
		}
	}
}

// startActiveLobby 加满一个大厅并等待开局
func startActiveLobby(t *testing.T, m *Manager, pusher *fakePusher) (string, []string) {
	t.Helper()

	ids := []string{"conn-a", "conn-b"}
	var lobbyID string
	for _, id := range ids {
		resp, _, err := m.Join(id, "", "")
		require.NoError(t, err)
		lobbyID = resp.LobbyID
	}

	pusher.waitFor(t, EventGameStart)
	return lobbyID, ids
}

func TestManager_JoinMatchmaking(t *testing.T) {
	m := NewManager(testGameConfig(), zap.NewNop())

	resp1, pushes, err := m.Join("conn-1", "alice", "mage")
	require.NoError(t, err)
	assert.Equal(t, "alice", resp1.Player.Username)
	assert.Equal(t, "mage", resp1.Player.Class)
	assert.Equal(t, StatusWaiting, resp1.LobbyStatus)
	assert.Equal(t, 1, resp1.PlayerCount)
	assert.Equal(t, 2, resp1.MaxPlayers)
	// 第一个玩家没有可通知的同伴
	require.Len(t, pushes, 1)
	assert.Empty(t, pushes[0].Targets)

	// 第二个玩家进入同一大厅
	resp2, pushes, err := m.Join("conn-2", "", "")
	require.NoError(t, err)
	assert.Equal(t, resp1.LobbyID, resp2.LobbyID)
	assert.Equal(t, StatusStarting, resp2.LobbyStatus)
	require.Len(t, pushes, 1)
	assert.Equal(t, EventPlayerJoined, pushes[0].Event)
	assert.Equal(t, []string{"conn-1"}, pushes[0].Targets)

	// 满员后新玩家进入新大厅
	resp3, _, err := m.Join("conn-3", "", "")
	require.NoError(t, err)
	assert.NotEqual(t, resp1.LobbyID, resp3.LobbyID)

	lobbies, players := m.Counts()
	assert.Equal(t, 2, lobbies)
	assert.Equal(t, 3, players)
}

func TestManager_CountdownStartsGame(t *testing.T) {
	m := NewManager(testGameConfig(), zap.NewNop())
	pusher := newFakePusher()
	m.SetPusher(pusher)

	lobbyID, ids := startActiveLobby(t, m, pusher)

	lobby, ok := m.GetLobby(lobbyID)
	require.True(t, ok)
	assert.Equal(t, StatusActive, lobby.Status())
	require.NotNil(t, lobby.GameState.Dungeon)
	assert.Len(t, lobby.GameState.Enemies, 5)
	assert.Len(t, lobby.GameState.Items, 10)

	// game:start 推给全体成员
	for _, id := range ids {
		p, ok := m.GetPlayer(id)
		require.True(t, ok)
		assert.Equal(t, lobbyID, p.LobbyID)
	}
}

func TestManager_MoveOnlyWhenActive(t *testing.T) {
	m := NewManager(testGameConfig(), zap.NewNop())

	_, _, err := m.Join("conn-1", "", "")
	require.NoError(t, err)

	// 等待中的大厅忽略移动
	pushes := m.Move("conn-1", Position{X: 3, Y: 4})
	assert.Nil(t, pushes)

	p, _ := m.GetPlayer("conn-1")
	assert.NotEqual(t, Position{X: 3, Y: 4}, p.Position)
}

func TestManager_MoveBroadcastsToPeers(t *testing.T) {
	m := NewManager(testGameConfig(), zap.NewNop())
	pusher := newFakePusher()
	m.SetPusher(pusher)

	_, _ = startActiveLobby(t, m, pusher)

	pushes := m.Move("conn-a", Position{X: 7, Y: 8})
	require.Len(t, pushes, 1)
	assert.Equal(t, EventPlayerMoved, pushes[0].Event)
	assert.Equal(t, []string{"conn-b"}, pushes[0].Targets)

	moved := pushes[0].Data.(*PlayerMovedPush)
	assert.Equal(t, Position{X: 7, Y: 8}, moved.Position)

	p, _ := m.GetPlayer("conn-a")
	assert.Equal(t, Position{X: 7, Y: 8}, p.Position)
}

func TestManager_AttackBroadcastsToLobby(t *testing.T) {
	m := NewManager(testGameConfig(), zap.NewNop())
	pusher := newFakePusher()
	m.SetPusher(pusher)

	_, ids := startActiveLobby(t, m, pusher)

	pushes := m.Attack("conn-a", "enemy-1", 15)
	require.Len(t, pushes, 1)
	assert.Equal(t, EventPlayerAttacked, pushes[0].Event)
	assert.ElementsMatch(t, ids, pushes[0].Targets)
}

func TestManager_EnemyHitDamageAndKill(t *testing.T) {
	m := NewManager(testGameConfig(), zap.NewNop())
	pusher := newFakePusher()
	m.SetPusher(pusher)

	lobbyID, _ := startActiveLobby(t, m, pusher)
	lobby, _ := m.GetLobby(lobbyID)
	enemy := lobby.GameState.Enemies[0]

	// 未致死时广播伤害
	pushes := m.EnemyHit("conn-a", enemy.ID, 20)
	require.Len(t, pushes, 1)
	assert.Equal(t, EventEnemyDamaged, pushes[0].Event)
	damaged := pushes[0].Data.(*EnemyDamagedPush)
	assert.Equal(t, 30, damaged.Health)
	assert.Equal(t, 20, damaged.Damage)

	// 致死时移除并广播击杀
	pushes = m.EnemyHit("conn-a", enemy.ID, 30)
	require.Len(t, pushes, 1)
	assert.Equal(t, EventEnemyKilled, pushes[0].Event)
	killed := pushes[0].Data.(*EnemyKilledPush)
	assert.Equal(t, enemy.ID, killed.EnemyID)
	assert.Equal(t, "conn-a", killed.KilledBy)
	assert.Len(t, lobby.GameState.Enemies, 4)

	// 未知敌人静默忽略
	pushes = m.EnemyHit("conn-a", "missing", 10)
	assert.Nil(t, pushes)
}

func TestManager_ItemPickupRoundTrip(t *testing.T) {
	m := NewManager(testGameConfig(), zap.NewNop())
	pusher := newFakePusher()
	m.SetPusher(pusher)

	lobbyID, _ := startActiveLobby(t, m, pusher)
	lobby, _ := m.GetLobby(lobbyID)
	item := lobby.GameState.Items[0]

	pushes := m.ItemPickup("conn-a", item.ID)
	require.Len(t, pushes, 1)
	assert.Equal(t, EventItemPicked, pushes[0].Event)

	// 道具只存在于背包，不再留在地面
	assert.Len(t, lobby.GameState.Items, 9)
	p, _ := m.GetPlayer("conn-a")
	require.Len(t, p.Inventory, 1)
	assert.Equal(t, item.ID, p.Inventory[0].ID)

	// 重复拾取静默忽略
	pushes = m.ItemPickup("conn-b", item.ID)
	assert.Nil(t, pushes)
	assert.Len(t, p.Inventory, 1)
}

func TestManager_ChatAnyStatus(t *testing.T) {
	m := NewManager(testGameConfig(), zap.NewNop())

	// 等待中的大厅也能聊天
	_, _, err := m.Join("conn-1", "alice", "")
	require.NoError(t, err)

	before := time.Now().UnixMilli()
	pushes := m.Chat("conn-1", "hello")
	require.Len(t, pushes, 1)
	assert.Equal(t, EventChatMessage, pushes[0].Event)

	chat := pushes[0].Data.(*ChatPush)
	assert.Equal(t, "alice", chat.Username)
	assert.Equal(t, "hello", chat.Message)
	assert.GreaterOrEqual(t, chat.Timestamp, before)
}

func TestManager_ReadyNotifiesPeers(t *testing.T) {
	m := NewManager(testGameConfig(), zap.NewNop())

	_, _, err := m.Join("conn-1", "", "")
	require.NoError(t, err)
	_, _, err = m.Join("conn-2", "", "")
	require.NoError(t, err)

	pushes := m.Ready("conn-1")
	require.Len(t, pushes, 1)
	assert.Equal(t, EventPlayerReady, pushes[0].Event)
	assert.Equal(t, []string{"conn-2"}, pushes[0].Targets)
}

func TestManager_DisconnectDeletesEmptyLobby(t *testing.T) {
	m := NewManager(testGameConfig(), zap.NewNop())

	resp, _, err := m.Join("conn-1", "", "")
	require.NoError(t, err)

	pushes := m.Disconnect("conn-1")
	assert.Nil(t, pushes)

	_, ok := m.GetLobby(resp.LobbyID)
	assert.False(t, ok)

	lobbies, players := m.Counts()
	assert.Equal(t, 0, lobbies)
	assert.Equal(t, 0, players)
}

func TestManager_DisconnectNotifiesRemaining(t *testing.T) {
	m := NewManager(testGameConfig(), zap.NewNop())
	pusher := newFakePusher()
	m.SetPusher(pusher)

	lobbyID, _ := startActiveLobby(t, m, pusher)

	pushes := m.Disconnect("conn-a")
	require.Len(t, pushes, 1)
	assert.Equal(t, EventPlayerLeft, pushes[0].Event)
	assert.Equal(t, []string{"conn-b"}, pushes[0].Targets)

	left := pushes[0].Data.(*PlayerLeftPush)
	assert.Equal(t, "conn-a", left.PlayerID)
	assert.Equal(t, 1, left.PlayerCount)

	// 还有人时大厅保留
	lobby, ok := m.GetLobby(lobbyID)
	require.True(t, ok)
	assert.Equal(t, StatusActive, lobby.Status())
}

func TestManager_UnknownPlayerOpsAreNoops(t *testing.T) {
	m := NewManager(testGameConfig(), zap.NewNop())

	assert.Nil(t, m.Move("ghost", Position{X: 1, Y: 1}))
	assert.Nil(t, m.Attack("ghost", "e", 1))
	assert.Nil(t, m.EnemyHit("ghost", "e", 1))
	assert.Nil(t, m.ItemPickup("ghost", "i"))
	assert.Nil(t, m.Chat("ghost", "hi"))
	assert.Nil(t, m.Ready("ghost"))
	assert.Nil(t, m.Disconnect("ghost"))
}

func TestManager_CleanupFinished(t *testing.T) {
	m := NewManager(testGameConfig(), zap.NewNop())

	// 构造一个已结束但未删除的大厅
	lobby := NewLobby(2, zap.NewNop())
	lobby.AddPlayer(NewPlayer("p0", ""))
	lobby.RemovePlayer("p0")
	require.Equal(t, StatusFinished, lobby.Status())
	lobby.CreatedAt = time.Now().Add(-10 * time.Minute)
	m.lobbies[lobby.ID] = lobby

	// 宽限期内不回收
	fresh := NewLobby(2, zap.NewNop())
	fresh.AddPlayer(NewPlayer("p1", ""))
	fresh.RemovePlayer("p1")
	m.lobbies[fresh.ID] = fresh

	// 等待中的大厅不回收
	waiting := NewLobby(2, zap.NewNop())
	waiting.CreatedAt = time.Now().Add(-time.Hour)
	m.lobbies[waiting.ID] = waiting

	count := m.CleanupFinished(5 * time.Minute)
	assert.Equal(t, 1, count)

	_, ok := m.GetLobby(lobby.ID)
	assert.False(t, ok)
	_, ok = m.GetLobby(fresh.ID)
	assert.True(t, ok)
	_, ok = m.GetLobby(waiting.ID)
	assert.True(t, ok)
}

func TestManager_LobbyStatsList(t *testing.T) {
	m := NewManager(testGameConfig(), zap.NewNop())

	for i := 0; i < 3; i++ {
		_, _, err := m.Join(fmt.Sprintf("conn-%d", i), "", "")
		require.NoError(t, err)
	}

	stats := m.LobbyStatsList()
	require.Len(t, stats, 2)
	for _, s := range stats {
		assert.Equal(t, 2, s.MaxPlayers)
		assert.Equal(t, 1, s.Floor)
	}
}

func TestManager_CloseRejectsJoin(t *testing.T) {
	m := NewManager(testGameConfig(), zap.NewNop())
	m.Close()

	_, _, err := m.Join("conn-1", "", "")
	assert.Error(t, err)
}
