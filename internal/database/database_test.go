package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/klyra-server/internal/config"
	"github.com/wfunc/klyra-server/internal/models"
)

func testDatabaseConfig(t *testing.T) *config.DatabaseConfig {
	t.Helper()
	return &config.DatabaseConfig{
		Driver:          "sqlite",
		DSN:             filepath.Join(t.TempDir(), "test.db"),
		MaxIdleConns:    2,
		MaxOpenConns:    4,
		ConnMaxLifetime: time.Hour,
		LogLevel:        "silent",
	}
}

func TestInitAndMigrate(t *testing.T) {
	require.NoError(t, Init(testDatabaseConfig(t)))
	defer Close()

	assert.True(t, IsConnected())
	require.NoError(t, AutoMigrate())

	// 迁移后可以直接写入
	record := &models.LobbyRecord{
		LobbyID:        "lobby_db_test",
		Status:         "finished",
		LobbyCreatedAt: time.Now(),
	}
	require.NoError(t, GetDB().Create(record).Error)
	assert.NotZero(t, record.ID)
}

func TestInitUnknownDriver(t *testing.T) {
	err := Init(&config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}
