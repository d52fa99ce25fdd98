package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/rolewarden/rolewarden/internal/database/types"
)

var (
	ErrConfigFileNotFound    = errors.New("could not find config file in any config path")
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
	ErrDiscordTokenMissing   = errors.New("discord bot token is not configured")
)

// CurrentVersion is the expected version of the config file.
const CurrentVersion = 1

// maxMembersPerTick caps the per-guild batch at one member list page. The
// endpoint returns at most 1000 users per request; a larger batch would make
// the cursor wrap after every page and never reach the rest of the guild.
const maxMembersPerTick = 1000

// Config represents the entire application configuration.
type Config struct {
	// Version of the config file.
	Version    int        `koanf:"version"`
	Debug      Debug      `koanf:"debug"`
	Discord    Discord    `koanf:"discord"`
	PostgreSQL PostgreSQL `koanf:"postgresql"`
	Redis      Redis      `koanf:"redis"`
	Reconcile  Reconcile  `koanf:"reconcile"`
}

// Debug contains debug-related configuration.
type Debug struct {
	// Log level (debug, info, warn, error).
	LogLevel string `koanf:"log_level"`
}

// Discord contains Discord bot configuration.
type Discord struct {
	// Discord bot token for authentication.
	Token string `koanf:"token"`
}

// PostgreSQL contains database connection configuration.
type PostgreSQL struct {
	// Database hostname.
	Host string `koanf:"host"`
	// Database port.
	Port int `koanf:"port"`
	// Database username.
	User string `koanf:"user"`
	// Database password.
	Password string `koanf:"password"`
	// Database name.
	DBName string `koanf:"db_name"`
	// Maximum open connections.
	MaxOpenConns int `koanf:"max_open_conns"`
	// Maximum idle connections.
	MaxIdleConns int `koanf:"max_idle_conns"`
	// Connection lifetime in minutes.
	MaxLifetime int `koanf:"max_lifetime"`
	// Idle timeout in minutes.
	MaxIdleTime int `koanf:"max_idle_time"`
}

// Redis contains Redis connection configuration.
type Redis struct {
	// Redis hostname.
	Host string `koanf:"host"`
	// Redis port.
	Port int `koanf:"port"`
	// Redis username.
	Username string `koanf:"username"`
	// Redis password.
	Password string `koanf:"password"`
}

// Reconcile contains reconciliation engine configuration.
type Reconcile struct {
	// Seconds between ticks.
	IntervalSeconds int `koanf:"interval_seconds"`
	// Milliseconds to wait between members within a tick.
	MemberDelayMillis int `koanf:"member_delay_millis"`
	// Jitter applied to the inter-member delay, in milliseconds.
	MemberJitterMillis int `koanf:"member_jitter_millis"`
	// Seconds a non-compliant member stays banned before auto-unban.
	BanCooldownSeconds int `koanf:"ban_cooldown_seconds"`
	// Maximum members evaluated per guild per tick, capped at one member
	// list page (1000). The cursor rotates so all members are covered over
	// successive ticks.
	MembersPerTick int `koanf:"members_per_tick"`
	// Maximum expired ban rows processed per sweep.
	SweepBatchSize int `koanf:"sweep_batch_size"`
	// Per-call timeout for platform requests, in seconds.
	RequestTimeoutSeconds int `koanf:"request_timeout_seconds"`
}

// LoadConfig loads the config file from the search paths and validates it.
// Returns the config and the directory it was loaded from.
func LoadConfig() (*Config, string, error) {
	k := koanf.New(".")

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get home directory: %w", err)
	}

	configPaths := []string{
		".rolewarden",
		homeDir + "/.rolewarden/config",
		"/etc/rolewarden/config",
		"/app/config",
		"config",
		".",
	}

	var usedConfigPath string

	for _, path := range configPaths {
		configPath := fmt.Sprintf("%s/config.toml", path)
		if err := k.Load(file.Provider(configPath), toml.Parser()); err == nil {
			usedConfigPath = path
			break
		}
	}

	if usedConfigPath == "" {
		return nil, "", fmt.Errorf("%w: config.toml", ErrConfigFileNotFound)
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, "", fmt.Errorf("error unmarshaling config: %w", err)
	}

	if config.Version != CurrentVersion {
		return nil, "", fmt.Errorf("%w: expected version %d, got %d",
			ErrConfigVersionMismatch, CurrentVersion, config.Version)
	}

	// A missing token can never produce a working bot, so fail at startup.
	if config.Discord.Token == "" {
		config.Discord.Token = os.Getenv("DISCORD_TOKEN")
	}

	if config.Discord.Token == "" {
		return nil, "", ErrDiscordTokenMissing
	}

	applyDefaults(&config)

	return &config, usedConfigPath, nil
}

func applyDefaults(config *Config) {
	if config.Debug.LogLevel == "" {
		config.Debug.LogLevel = "info"
	}

	if config.Reconcile.IntervalSeconds <= 0 {
		config.Reconcile.IntervalSeconds = 60
	}

	if config.Reconcile.MemberDelayMillis <= 0 {
		config.Reconcile.MemberDelayMillis = 250
	}

	if config.Reconcile.MemberJitterMillis <= 0 {
		config.Reconcile.MemberJitterMillis = 50
	}

	if config.Reconcile.BanCooldownSeconds <= 0 {
		config.Reconcile.BanCooldownSeconds = int(types.DefaultBanCooldown / time.Second)
	}

	if config.Reconcile.MembersPerTick <= 0 {
		config.Reconcile.MembersPerTick = 200
	}

	if config.Reconcile.MembersPerTick > maxMembersPerTick {
		config.Reconcile.MembersPerTick = maxMembersPerTick
	}

	if config.Reconcile.SweepBatchSize <= 0 {
		config.Reconcile.SweepBatchSize = 100
	}

	if config.Reconcile.RequestTimeoutSeconds <= 0 {
		config.Reconcile.RequestTimeoutSeconds = 10
	}
}
