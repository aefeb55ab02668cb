package model

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	want := DefaultAppConfig()
	if cfg.Notifications != want.Notifications {
		t.Fatalf("notifications = %+v, want %+v", cfg.Notifications, want.Notifications)
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("log level = %q", cfg.Log.Level)
	}
	if cfg.Notifications.CoalesceRepeats {
		t.Fatalf("repeat reminders must accumulate unless coalescing is switched on")
	}
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
database:
  path: /tmp/x.db
notifications:
  reminder_interval_sec: 60
  lookahead_hours: 0
  webhook_url: http://localhost:9000/hook
  mailbox:
    host: imap.example.com
    username: me
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("TASKFLOW_LOG_LEVEL", "debug")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Database.Path != "/tmp/x.db" || cfg.Notifications.ReminderIntervalSec != 60 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Notifications.LookaheadHours != 24 {
		t.Fatalf("non-positive lookahead should fall back to 24; got %d", cfg.Notifications.LookaheadHours)
	}
	if !cfg.Notifications.Mailbox.Enabled() || cfg.Notifications.Mailbox.Port != "993" {
		t.Fatalf("mailbox = %+v", cfg.Notifications.Mailbox)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("env override not applied; level = %q", cfg.Log.Level)
	}
}

func TestLoadConfig_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("database: [unclosed"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultAppConfig()
	cfg.Database.Path = "/data/tasks.db"
	cfg.Notifications.MaxItems = 20
	cfg.Realtime.RedisAddr = "localhost:6379"

	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got.Database.Path != "/data/tasks.db" || got.Notifications.MaxItems != 20 || got.Realtime.RedisAddr != "localhost:6379" {
		t.Fatalf("round trip lost values: %+v", got)
	}
}
