package game

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSweeper_RemovesExpiredFinishedLobbies(t *testing.T) {
	m := NewManager(testGameConfig(), zap.NewNop())

	expired := NewLobby(2, zap.NewNop())
	expired.AddPlayer(NewPlayer("p0", ""))
	expired.RemovePlayer("p0")
	expired.CreatedAt = time.Now().Add(-time.Hour)
	m.lobbies[expired.ID] = expired

	sweeper := NewSweeper(m, 10*time.Millisecond, 5*time.Minute, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	sweeper.Start(ctx)

	require.Eventually(t, func() bool {
		_, ok := m.GetLobby(expired.ID)
		return !ok
	}, time.Second, 5*time.Millisecond)

	cancel()
	sweeper.Wait()
}

func TestSweeper_StopsOnContextCancel(t *testing.T) {
	m := NewManager(testGameConfig(), zap.NewNop())
	sweeper := NewSweeper(m, time.Hour, time.Hour, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	sweeper.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		sweeper.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		assert.Fail(t, "清理器未随上下文退出")
	}
}
