package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// DatabaseConfig locates the local gateway database.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// MailboxConfig holds the IMAP mailbox that reminder mail is appended to.
type MailboxConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     string `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
	TLS      bool   `mapstructure:"tls" yaml:"tls"`
	Mailbox  string `mapstructure:"mailbox" yaml:"mailbox"`
}

// Enabled reports whether enough of the mailbox is configured to use it.
func (m MailboxConfig) Enabled() bool {
	return m.Host != "" && m.Username != ""
}

// NotificationsConfig tunes the reminder scheduler and display channels.
type NotificationsConfig struct {
	ReminderIntervalSec int    `mapstructure:"reminder_interval_sec" yaml:"reminder_interval_sec"`
	LookaheadHours      int    `mapstructure:"lookahead_hours" yaml:"lookahead_hours"`
	// CoalesceRepeats records one due reminder per (type, task, due date)
	// instead of one per poll. Off by default, so repeats accumulate in the
	// log and only collapse at the desktop notification tag.
	CoalesceRepeats     bool   `mapstructure:"coalesce_repeats" yaml:"coalesce_repeats"`
	MaxItems            int    `mapstructure:"max_items" yaml:"max_items"`
	DisplayRatePerMin   int    `mapstructure:"display_rate_per_min" yaml:"display_rate_per_min"`
	WebhookURL          string `mapstructure:"webhook_url" yaml:"webhook_url"`

	Mailbox MailboxConfig `mapstructure:"mailbox" yaml:"mailbox"`
}

// RealtimeConfig optionally bridges the change feed over Redis.
type RealtimeConfig struct {
	RedisAddr     string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password" yaml:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db" yaml:"redis_db"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Development bool   `mapstructure:"development" yaml:"development"`
	File        string `mapstructure:"file" yaml:"file"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Database      DatabaseConfig      `mapstructure:"database" yaml:"database"`
	Notifications NotificationsConfig `mapstructure:"notifications" yaml:"notifications"`
	Realtime      RealtimeConfig      `mapstructure:"realtime" yaml:"realtime"`
	Log           LogConfig           `mapstructure:"log" yaml:"log"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/taskflow/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// DefaultLogPath returns ~/.config/taskflow/taskflow.log, used while the
// terminal UI owns the screen.
func DefaultLogPath() string {
	return filepath.Join(configDir(), "taskflow.log")
}

// DefaultDatabasePath returns ~/.config/taskflow/taskflow.db.
func DefaultDatabasePath() string {
	return filepath.Join(configDir(), "taskflow.db")
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "taskflow")
}

// DefaultAppConfig returns a sensible default configuration.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Database: DatabaseConfig{Path: DefaultDatabasePath()},
		Notifications: NotificationsConfig{
			ReminderIntervalSec: 300,
			LookaheadHours:      24,
			CoalesceRepeats:     false,
			MaxItems:            50,
			DisplayRatePerMin:   30,
			Mailbox: MailboxConfig{
				Port:    "993",
				TLS:     true,
				Mailbox: "INBOX",
			},
		},
		Log: LogConfig{Level: "info"},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultAppConfig()
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("notifications.reminder_interval_sec", d.Notifications.ReminderIntervalSec)
	v.SetDefault("notifications.lookahead_hours", d.Notifications.LookaheadHours)
	v.SetDefault("notifications.coalesce_repeats", d.Notifications.CoalesceRepeats)
	v.SetDefault("notifications.max_items", d.Notifications.MaxItems)
	v.SetDefault("notifications.display_rate_per_min", d.Notifications.DisplayRatePerMin)
	v.SetDefault("notifications.mailbox.port", d.Notifications.Mailbox.Port)
	v.SetDefault("notifications.mailbox.tls", d.Notifications.Mailbox.TLS)
	v.SetDefault("notifications.mailbox.mailbox", d.Notifications.Mailbox.Mailbox)
	v.SetDefault("log.level", d.Log.Level)
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Environment variables prefixed with TASKFLOW_ override file values
// (e.g. TASKFLOW_LOG_LEVEL). If the file does not exist, defaults are used.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("taskflow")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := DefaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Notifications.ReminderIntervalSec <= 0 {
		cfg.Notifications.ReminderIntervalSec = 300
	}
	if cfg.Notifications.LookaheadHours <= 0 {
		cfg.Notifications.LookaheadHours = 24
	}
	if cfg.Notifications.MaxItems <= 0 {
		cfg.Notifications.MaxItems = 50
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("database", cfg.Database)
	v.Set("notifications", cfg.Notifications)
	v.Set("realtime", cfg.Realtime)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
