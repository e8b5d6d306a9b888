package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const currentVersion = 1

// Sentinel errors surfaced by store operations.
var (
	ErrNotFound      = errors.New("not found")
	ErrSessionActive = errors.New("a tracking session is already active")
)

type Store struct {
	db *sql.DB

	// now is swapped out in tests to drive the session clock.
	now func() time.Time
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	// Configure pragmas.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewMemory creates an in-memory store for testing.
func NewMemory() (*Store, error) {
	return New(":memory:")
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	var version int
	err := s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	if version >= currentVersion {
		return nil
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}

	_, err = s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion))
	return err
}

func (s *Store) migrateV1() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS categories (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		name        TEXT NOT NULL,
		parent_id   INTEGER REFERENCES categories(id) ON DELETE CASCADE,
		color       TEXT NOT NULL DEFAULT '#6C63FF',
		icon        TEXT NOT NULL DEFAULT '',
		sort_order  INTEGER NOT NULL DEFAULT 0,
		is_default  INTEGER NOT NULL DEFAULT 0,
		created_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id                      INTEGER PRIMARY KEY AUTOINCREMENT,
		title                   TEXT NOT NULL,
		description             TEXT NOT NULL DEFAULT '',
		priority                TEXT NOT NULL DEFAULT 'NONE',
		is_completed            INTEGER NOT NULL DEFAULT 0,
		completed_at            TEXT,
		due_date                TEXT,
		due_time                TEXT,
		estimated_minutes       INTEGER,
		actual_minutes          INTEGER,
		repeat_type             TEXT NOT NULL DEFAULT 'NONE',
		repeat_weekdays         TEXT NOT NULL DEFAULT '',
		repeat_interval         INTEGER NOT NULL DEFAULT 0,
		repeat_end_date         TEXT,
		repeat_count            INTEGER,
		reminder_enabled        INTEGER NOT NULL DEFAULT 0,
		reminder_offset_minutes INTEGER,
		created_at              TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
		updated_at              TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_due       ON tasks(due_date);
	CREATE INDEX IF NOT EXISTS idx_tasks_completed ON tasks(is_completed);

	CREATE TABLE IF NOT EXISTS task_categories (
		task_id     INTEGER NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		category_id INTEGER NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
		PRIMARY KEY (task_id, category_id)
	);

	CREATE TABLE IF NOT EXISTS task_occurrences (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id        INTEGER NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		scheduled_date TEXT NOT NULL,
		is_completed   INTEGER NOT NULL DEFAULT 0,
		completed_at   TEXT,
		actual_minutes INTEGER,
		UNIQUE(task_id, scheduled_date)
	);

	CREATE INDEX IF NOT EXISTS idx_occurrences_date ON task_occurrences(scheduled_date);

	CREATE TABLE IF NOT EXISTS tracking_sessions (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id       INTEGER NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		started_at    TEXT NOT NULL,
		ended_at      TEXT,
		paused_at     TEXT,
		total_seconds INTEGER NOT NULL DEFAULT 0,
		status        TEXT NOT NULL DEFAULT 'IN_PROGRESS'
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_task ON tracking_sessions(task_id);

	-- Invariant: at most one non-completed session system-wide. The partial
	-- unique index makes a concurrent double-start lose at insert time.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_single_active
		ON tracking_sessions(status != 'COMPLETED') WHERE status != 'COMPLETED';

	CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	INSERT OR IGNORE INTO settings (key, value) VALUES
		('reminder_offset_minutes', '30'),
		('default_due_time',        '09:00'),
		('materialize_window_days', '60'),
		('week_start',              'monday');
	`
	if _, err := s.db.Exec(ddl); err != nil {
		return err
	}
	return s.seedDefaultCategories()
}

// seedDefaultCategories inserts the starter category tree on first run.
func (s *Store) seedDefaultCategories() error {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM categories WHERE is_default = 1`).Scan(&n); err != nil {
		return fmt.Errorf("count default categories: %w", err)
	}
	if n > 0 {
		return nil
	}

	type seed struct {
		id     int64
		name   string
		parent *int64
		color  string
		icon   string
	}
	pid := func(id int64) *int64 { return &id }
	seeds := []seed{
		{1, "Study", nil, "#4CAF50", "school"},
		{2, "University", pid(1), "#4CAF50", "account_balance"},
		{3, "Courses", pid(1), "#4CAF50", "menu_book"},
		{4, "Self-study", pid(1), "#4CAF50", "psychology"},
		{5, "Chores", nil, "#2196F3", "cleaning_services"},
		{6, "Daily", pid(5), "#2196F3", "today"},
		{7, "Deep clean", pid(5), "#2196F3", "home"},
		{8, "Laundry", pid(5), "#2196F3", "local_laundry_service"},
		{9, "Shopping", nil, "#FF9800", "shopping_cart"},
		{10, "Groceries", pid(9), "#FF9800", "local_grocery_store"},
		{11, "Household", pid(9), "#FF9800", "hardware"},
		{12, "Work", nil, "#9C27B0", "work"},
		{13, "Health", nil, "#E91E63", "favorite"},
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()

	for i, c := range seeds {
		_, err := tx.Exec(
			`INSERT OR IGNORE INTO categories (id, name, parent_id, color, icon, sort_order, is_default)
			 VALUES (?, ?, ?, ?, ?, ?, 1)`,
			c.id, c.name, c.parent, c.color, c.icon, i,
		)
		if err != nil {
			return fmt.Errorf("seed category %q: %w", c.name, err)
		}
	}
	return tx.Commit()
}

// DefaultDBPath returns ~/.config/tasker/tasker.db
func DefaultDBPath() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "tasker", "tasker.db"), nil
}
