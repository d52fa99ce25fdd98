package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rolewarden/rolewarden/internal/setup/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o600))
	t.Chdir(dir)
}

func TestLoadConfig(t *testing.T) {
	writeConfig(t, `
version = 1

[debug]
log_level = "debug"

[discord]
token = "test-token"

[postgresql]
host = "localhost"
port = 5432
user = "rolewarden"
password = "secret"
db_name = "rolewarden"

[redis]
host = "localhost"
port = 6379

[reconcile]
interval_seconds = 30
members_per_tick = 50
`)

	cfg, path, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ".", path)
	assert.Equal(t, "test-token", cfg.Discord.Token)
	assert.Equal(t, "debug", cfg.Debug.LogLevel)
	assert.Equal(t, "localhost", cfg.PostgreSQL.Host)
	assert.Equal(t, 30, cfg.Reconcile.IntervalSeconds)
	assert.Equal(t, 50, cfg.Reconcile.MembersPerTick)

	// Unset reconcile values fall back to defaults.
	assert.Equal(t, 250, cfg.Reconcile.MemberDelayMillis)
	assert.Equal(t, 600, cfg.Reconcile.BanCooldownSeconds)
	assert.Equal(t, 100, cfg.Reconcile.SweepBatchSize)
	assert.Equal(t, 10, cfg.Reconcile.RequestTimeoutSeconds)
}

func TestLoadConfigMembersPerTickCapped(t *testing.T) {
	// The member list endpoint serves at most 1000 users per page. A batch
	// above that would silently truncate and reset the rotation cursor after
	// every page, so the loader caps it.
	writeConfig(t, `
version = 1

[discord]
token = "test-token"

[reconcile]
members_per_tick = 1500
`)

	cfg, _, err := config.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.Reconcile.MembersPerTick)
}

func TestLoadConfigVersionMismatch(t *testing.T) {
	writeConfig(t, `
version = 99

[discord]
token = "test-token"
`)

	_, _, err := config.LoadConfig()
	require.ErrorIs(t, err, config.ErrConfigVersionMismatch)
}

func TestLoadConfigMissingToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")

	writeConfig(t, `
version = 1
`)

	_, _, err := config.LoadConfig()
	require.ErrorIs(t, err, config.ErrDiscordTokenMissing)
}

func TestLoadConfigTokenFromEnv(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "env-token")

	writeConfig(t, `
version = 1
`)

	cfg, _, err := config.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.Discord.Token)
}

func TestLoadConfigNotFound(t *testing.T) {
	t.Chdir(t.TempDir())

	_, _, err := config.LoadConfig()
	require.ErrorIs(t, err, config.ErrConfigFileNotFound)
}
