package config

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"
)

// ApplyDefaults sets default values for any unspecified configuration
// fields. Zero values (0, "", false, nil) are replaced with defaults;
// explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyDatabaseDefaults(&cfg.Database)
	applyListenerDefaults(&cfg.Listener)
	applyBroadcasterDefaults(&cfg.Broadcaster)
	applyMessengerDefaults(&cfg.Messenger)
	applySchedulerDefaults(&cfg.Scheduler)
	applyMetricsDefaults(&cfg.Metrics)

	// No defaults for MMPS.Banks: a process with no banks configured is
	// a configuration error, caught by Validate, not silently patched.
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyDatabaseDefaults(cfg *DatabaseConfig) {
	if cfg.PoolSize == 0 {
		cfg.PoolSize = 8
	}
	if cfg.StatementTimeout == 0 {
		cfg.StatementTimeout = 30 * time.Second
	}
}

func applyListenerDefaults(cfg *ListenerConfig) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	// MaxConnections defaults to 0 (unlimited).
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = generateRandomSecret()
	}
}

// generateRandomSecret produces a fresh 64-character hex secret
// (32 bytes of entropy) for development use, the same size the teacher
// tells operators to generate for production via `openssl rand -hex 32`.
// Falls back to a fixed placeholder only if the system RNG is
// unavailable, which would itself indicate a broken host.
func generateRandomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "CHANGE-ME-insecure-default-secret-replace-before-production"
	}
	return hex.EncodeToString(buf)
}

func applyBroadcasterDefaults(cfg *BroadcasterConfig) {
	if cfg.BatchCap == 0 {
		cfg.BatchCap = defaultBatchCap
	}
}

func applyMessengerDefaults(cfg *MessengerConfig) {
	if cfg.BatchMode == "" {
		cfg.BatchMode = "frame"
	}
}

func applySchedulerDefaults(cfg *SchedulerConfig) {
	if cfg.ModifiedPlaquesIdleInterval == 0 {
		cfg.ModifiedPlaquesIdleInterval = defaultIdleInterval
	}
	if cfg.ModifiedPlaquesBusyInterval == 0 {
		cfg.ModifiedPlaquesBusyInterval = defaultBusyInterval
	}
	if cfg.DeviceDisplacementIdleInterval == 0 {
		cfg.DeviceDisplacementIdleInterval = defaultIdleInterval
	}
	if cfg.DeviceDisplacementBusyInterval == 0 {
		cfg.DeviceDisplacementBusyInterval = defaultBusyInterval
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// defaultBatchCap, defaultIdleInterval, and defaultBusyInterval mirror
// internal/broadcaster's and internal/scheduler's own package defaults;
// config deliberately keeps its own copies rather than importing those
// packages, so pkg/config has no dependency on the daemons it configures.
const (
	defaultBatchCap     = 64
	defaultIdleInterval = 1 * time.Second
	defaultBusyInterval = 100 * time.Millisecond
)

// GetDefaultConfig returns a Config with all default values applied,
// useful for generating a sample config file or as a fallback when no
// config file exists.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Database: DatabaseConfig{
			DSN: "postgres://vp:vp@localhost:5432/vp",
		},
		Listener: ListenerConfig{
			Addr: ":7000",
		},
		MMPS: MMPSConfig{
			Banks: []BankConfig{
				{ID: 0, BufferSize: 32 * 1024, Count: 64},
			},
		},
		Broadcaster: BroadcasterConfig{
			Addr: "127.0.0.1:7100",
		},
		Messenger: MessengerConfig{
			Host: "gateway.push.apple.com",
			Port: "2195",
		},
	}
	ApplyDefaults(cfg)
	return cfg
}
