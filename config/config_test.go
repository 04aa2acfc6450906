package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"SETTINGS_BACKEND", "BATCH_SIZE", "BATCH_DELAY", "BRIDGE_TIMEOUT", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.SettingsBackend != SettingsBackendMemory {
		t.Errorf("SettingsBackend = %q", cfg.SettingsBackend)
	}
	if cfg.BatchSize != 10 {
		t.Errorf("BatchSize = %d, want 10", cfg.BatchSize)
	}
	if cfg.BatchDelay != time.Second {
		t.Errorf("BatchDelay = %v, want 1s", cfg.BatchDelay)
	}
	if cfg.BridgeTimeout != 15*time.Second {
		t.Errorf("BridgeTimeout = %v, want 15s", cfg.BridgeTimeout)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SETTINGS_BACKEND", "Valkey")
	t.Setenv("BATCH_SIZE", "25")
	t.Setenv("BATCH_DELAY", "250ms")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Load()
	if cfg.SettingsBackend != SettingsBackendValkey {
		t.Errorf("SettingsBackend = %q, want %q", cfg.SettingsBackend, SettingsBackendValkey)
	}
	if cfg.BatchSize != 25 {
		t.Errorf("BatchSize = %d, want 25", cfg.BatchSize)
	}
	if cfg.BatchDelay != 250*time.Millisecond {
		t.Errorf("BatchDelay = %v, want 250ms", cfg.BatchDelay)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want debug", cfg.LogLevel)
	}
}
