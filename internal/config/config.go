// Package config loads app settings from ~/.config/tasker/config.json,
// creating a default file on first run.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds process-level settings. Behavioural knobs like the
// materialize window live in the database settings table instead, where the
// settings screen edits them.
type Config struct {
	Database            string // sqlite file path
	ReminderPollSeconds int
	NotifyCommand       string // external command for desktop notifications, optional
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".config", "tasker")
}

// Load reads the config file, writing defaults when none exists. An explicit
// dbPath overrides both the default and the file.
func Load(dbPath string) (Config, error) {
	dir := configDir()
	cfg := Config{
		Database:            filepath.Join(dir, "tasker.db"),
		ReminderPollSeconds: 30,
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(dir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		// First run: persist the defaults so they are discoverable.
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return cfg, err
		}
		v.Set("database", cfg.Database)
		v.Set("reminder_poll_seconds", cfg.ReminderPollSeconds)
		v.Set("notify_command", "")
		if err := v.WriteConfigAs(filepath.Join(dir, "config.json")); err != nil {
			return cfg, fmt.Errorf("write default config: %w", err)
		}
	}

	if v.IsSet("database") {
		cfg.Database = v.GetString("database")
	}
	if v.IsSet("reminder_poll_seconds") {
		cfg.ReminderPollSeconds = v.GetInt("reminder_poll_seconds")
	}
	if v.IsSet("notify_command") {
		cfg.NotifyCommand = v.GetString("notify_command")
	}

	if dbPath != "" {
		cfg.Database = dbPath
	}
	return cfg, nil
}
