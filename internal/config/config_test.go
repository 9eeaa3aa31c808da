package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 60, cfg.Game.ThinkingSeconds)
	assert.Equal(t, 30, cfg.Game.TurnSeconds)
	assert.Equal(t, time.Second, cfg.Game.TimeUnit)
	assert.Equal(t, 100, cfg.RoomConfig().LogCapacity)
	assert.Equal(t, 13, cfg.RoomConfig().PracticeHandSize)
	assert.Equal(t, 24*time.Hour, cfg.Redis.LogTTL)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PG_HOST", "db.internal")
	t.Setenv("GUANDAN_POSTGRES_HOST", "")
	t.Setenv("PORT", "9000")
	t.Setenv("GUANDAN_GAME_TURN_SECONDS", "15")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Postgres.Host)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 15, cfg.Timing().TurnUnits)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guandan.yaml")
	body := "port: 7000\ngame:\n  thinking_seconds: 10\n  time_unit: 100ms\nredis:\n  addr: cache:6380\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, 10, cfg.Game.ThinkingSeconds)
	assert.Equal(t, 100*time.Millisecond, cfg.Game.TimeUnit)
	assert.Equal(t, "cache:6380", cfg.Redis.Addr)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("GUANDAN_GAME_TURN_SECONDS", "0")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}
