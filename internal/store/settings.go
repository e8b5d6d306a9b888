package store

import (
	"fmt"
	"strconv"
	"time"
)

func (s *Store) GetSetting(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

// GetSettingInt returns the setting as an integer, or fallback when the key
// is missing or not numeric.
func (s *Store) GetSettingInt(key string, fallback int) int {
	v, err := s.GetSetting(key)
	if err != nil {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// ReminderDefaults resolves the reminder fallbacks from the settings table.
// Missing or malformed values fall back to the built-in constants.
func (s *Store) ReminderDefaults() ReminderDefaults {
	d := ReminderDefaults{
		OffsetMinutes: s.GetSettingInt("reminder_offset_minutes", DefaultReminderOffsetMinutes),
		DueTime:       DefaultReminderTime,
	}
	if v, err := s.GetSetting("default_due_time"); err == nil {
		if _, perr := time.Parse("15:04", v); perr == nil {
			d.DueTime = v
		}
	}
	return d
}

func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

func (s *Store) GetAllSettings() ([]Setting, error) {
	rows, err := s.db.Query(`SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var settings []Setting
	for rows.Next() {
		var s Setting
		if err := rows.Scan(&s.Key, &s.Value); err != nil {
			return nil, err
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}
