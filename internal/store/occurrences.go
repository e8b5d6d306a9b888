package store

import (
	"database/sql"
	"fmt"
	"time"
)

const occurrenceColumns = `id, task_id, scheduled_date, is_completed, completed_at, actual_minutes`

// InsertMissingOccurrences diffs the given dates against what is already
// persisted for the task and inserts only the new ones, inside a single
// transaction so readers never observe a half-materialized window.
// Existing rows, completed or not, are left untouched. Returns the number
// of rows inserted; calling again with the same dates inserts nothing.
func (s *Store) InsertMissingOccurrences(taskID int64, dates []time.Time) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin materialize: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query(
		`SELECT scheduled_date FROM task_occurrences WHERE task_id = ?`, taskID,
	)
	if err != nil {
		return 0, fmt.Errorf("existing occurrence dates: %w", err)
	}
	existing := make(map[string]bool)
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			rows.Close()
			return 0, err
		}
		existing[d] = true
	}
	if err := rows.Close(); err != nil {
		return 0, err
	}

	inserted := 0
	for _, d := range dates {
		key := d.Format(time.DateOnly)
		if existing[key] {
			continue
		}
		if _, err := tx.Exec(
			`INSERT INTO task_occurrences (task_id, scheduled_date) VALUES (?, ?)`,
			taskID, key,
		); err != nil {
			return 0, fmt.Errorf("insert occurrence %s: %w", key, err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit materialize: %w", err)
	}
	return inserted, nil
}

// DeleteFutureIncompleteOccurrences removes incomplete occurrences scheduled
// on or after the given date. Completed occurrences stay as history.
func (s *Store) DeleteFutureIncompleteOccurrences(taskID int64, from time.Time) error {
	_, err := s.db.Exec(
		`DELETE FROM task_occurrences WHERE task_id = ? AND is_completed = 0 AND scheduled_date >= ?`,
		taskID, from.Format(time.DateOnly),
	)
	if err != nil {
		return fmt.Errorf("delete future occurrences: %w", err)
	}
	return nil
}

// DeleteOccurrencesForTask removes every occurrence of a task unconditionally.
func (s *Store) DeleteOccurrencesForTask(taskID int64) error {
	if _, err := s.db.Exec(`DELETE FROM task_occurrences WHERE task_id = ?`, taskID); err != nil {
		return fmt.Errorf("delete occurrences for task %d: %w", taskID, err)
	}
	return nil
}

func (s *Store) GetOccurrence(id int64) (*Occurrence, error) {
	row := s.db.QueryRow(`SELECT `+occurrenceColumns+` FROM task_occurrences WHERE id = ?`, id)
	o, err := scanOccurrence(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("get occurrence %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get occurrence %d: %w", id, err)
	}
	return o, nil
}

func (s *Store) ListOccurrences(taskID int64) ([]Occurrence, error) {
	rows, err := s.db.Query(
		`SELECT `+occurrenceColumns+` FROM task_occurrences WHERE task_id = ? ORDER BY scheduled_date`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("list occurrences: %w", err)
	}
	defer rows.Close()
	return collectOccurrences(rows)
}

// OccurrencesByDateRange returns all occurrences (any task) scheduled within
// [from, to], for calendar-style views.
func (s *Store) OccurrencesByDateRange(from, to time.Time) ([]Occurrence, error) {
	rows, err := s.db.Query(
		`SELECT `+occurrenceColumns+` FROM task_occurrences
		 WHERE scheduled_date BETWEEN ? AND ? ORDER BY scheduled_date, task_id`,
		from.Format(time.DateOnly), to.Format(time.DateOnly),
	)
	if err != nil {
		return nil, fmt.Errorf("occurrences by range: %w", err)
	}
	defer rows.Close()
	return collectOccurrences(rows)
}

// CompleteOccurrence marks one dated occurrence done, recording time spent
// on that date independently of the parent task's aggregate.
func (s *Store) CompleteOccurrence(id int64, actualMinutes *int) error {
	now := s.now().UTC().Format(time.RFC3339)
	res, err := s.db.Exec(
		`UPDATE task_occurrences SET is_completed = 1, completed_at = ?, actual_minutes = ? WHERE id = ?`,
		now, actualMinutes, id,
	)
	if err != nil {
		return fmt.Errorf("complete occurrence %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("complete occurrence %d: %w", id, ErrNotFound)
	}
	return nil
}

func collectOccurrences(rows *sql.Rows) ([]Occurrence, error) {
	var out []Occurrence
	for rows.Next() {
		o, err := scanOccurrence(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func scanOccurrence(r rowScanner) (*Occurrence, error) {
	o := &Occurrence{}
	var (
		scheduled   string
		completed   int
		completedAt sql.NullString
		actMinutes  sql.NullInt64
	)
	if err := r.Scan(&o.ID, &o.TaskID, &scheduled, &completed, &completedAt, &actMinutes); err != nil {
		return nil, err
	}
	o.ScheduledDate, _ = time.Parse(time.DateOnly, scheduled)
	o.Completed = completed == 1
	o.CompletedAt = parseNullDateTime(completedAt)
	o.ActualMinutes = intPtr(actMinutes)
	return o, nil
}
