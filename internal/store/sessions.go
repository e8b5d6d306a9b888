package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const sessionColumns = `id, task_id, started_at, ended_at, paused_at, total_seconds, status`

// StartSession opens a tracking session for the task. At most one
// non-completed session may exist system-wide; the check and the insert run
// in one transaction, and the partial unique index backstops the invariant
// if two starts ever race.
func (s *Store) StartSession(taskID int64) (*Session, error) {
	nowStr := s.now().UTC().Format(time.RFC3339)

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin start session: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRow(`SELECT COUNT(*) FROM tasks WHERE id = ?`, taskID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check task %d: %w", taskID, err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("start session for task %d: %w", taskID, ErrNotFound)
	}

	var active int
	err = tx.QueryRow(
		`SELECT COUNT(*) FROM tracking_sessions WHERE status != 'COMPLETED'`,
	).Scan(&active)
	if err != nil {
		return nil, fmt.Errorf("check active session: %w", err)
	}
	if active > 0 {
		return nil, ErrSessionActive
	}

	res, err := tx.Exec(
		`INSERT INTO tracking_sessions (task_id, started_at, total_seconds, status)
		 VALUES (?, ?, 0, 'IN_PROGRESS')`,
		taskID, nowStr,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrSessionActive
		}
		return nil, fmt.Errorf("insert session: %w", err)
	}
	id, _ := res.LastInsertId()

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit start session: %w", err)
	}
	return s.GetSession(id)
}

// PauseSession banks the running segment (whole seconds, truncated) and
// freezes the timer. A no-op for sessions that are not in progress or that
// no longer exist.
func (s *Store) PauseSession(id int64) error {
	sess, err := s.GetSession(id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if sess.Status != StatusInProgress {
		return nil
	}

	now := s.now().UTC()
	elapsed := int64(now.Sub(sess.StartedAt).Seconds())
	_, err = s.db.Exec(
		`UPDATE tracking_sessions SET total_seconds = total_seconds + ?, paused_at = ?, status = 'PAUSED'
		 WHERE id = ?`,
		elapsed, now.Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("pause session %d: %w", id, err)
	}
	return nil
}

// ResumeSession restarts the running reference point. Banked time is already
// captured in total_seconds, so started_at simply resets to now.
func (s *Store) ResumeSession(id int64) error {
	sess, err := s.GetSession(id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if sess.Status != StatusPaused {
		return nil
	}

	now := s.now().UTC()
	_, err = s.db.Exec(
		`UPDATE tracking_sessions SET started_at = ?, paused_at = NULL, status = 'IN_PROGRESS'
		 WHERE id = ?`,
		now.Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("resume session %d: %w", id, err)
	}
	return nil
}

// StopSession banks any final running segment, completes the session, and
// rolls the accumulated whole minutes into the parent task's actual-minutes
// aggregate, all in one transaction.
func (s *Store) StopSession(id int64) error {
	sess, err := s.GetSession(id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if sess.Status == StatusCompleted {
		return nil
	}

	now := s.now().UTC()
	total := sess.TotalSeconds
	if sess.Status == StatusInProgress {
		total += int64(now.Sub(sess.StartedAt).Seconds())
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin stop session: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`UPDATE tracking_sessions
		 SET ended_at = ?, paused_at = NULL, total_seconds = ?, status = 'COMPLETED'
		 WHERE id = ?`,
		now.Format(time.RFC3339), total, id,
	)
	if err != nil {
		return fmt.Errorf("stop session %d: %w", id, err)
	}

	minutes := total / 60
	_, err = tx.Exec(
		`UPDATE tasks SET actual_minutes = COALESCE(actual_minutes, 0) + ?, updated_at = ? WHERE id = ?`,
		minutes, now.Format(time.RFC3339), sess.TaskID,
	)
	if err != nil {
		return fmt.Errorf("roll up minutes for task %d: %w", sess.TaskID, err)
	}

	return tx.Commit()
}

func (s *Store) GetSession(id int64) (*Session, error) {
	row := s.db.QueryRow(`SELECT `+sessionColumns+` FROM tracking_sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("get session %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get session %d: %w", id, err)
	}
	return sess, nil
}

// ActiveSession returns the single non-completed session, or nil when the
// timer is idle.
func (s *Store) ActiveSession() (*Session, error) {
	row := s.db.QueryRow(
		`SELECT ` + sessionColumns + ` FROM tracking_sessions WHERE status != 'COMPLETED' LIMIT 1`,
	)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active session: %w", err)
	}
	return sess, nil
}

func (s *Store) ListSessionsByTask(taskID int64) ([]Session, error) {
	rows, err := s.db.Query(
		`SELECT `+sessionColumns+` FROM tracking_sessions WHERE task_id = ? ORDER BY started_at DESC`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *sess)
	}
	return sessions, rows.Err()
}

func scanSession(r rowScanner) (*Session, error) {
	sess := &Session{}
	var (
		startedAt         string
		endedAt, pausedAt sql.NullString
	)
	err := r.Scan(&sess.ID, &sess.TaskID, &startedAt, &endedAt, &pausedAt,
		&sess.TotalSeconds, (*string)(&sess.Status))
	if err != nil {
		return nil, err
	}
	sess.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
	sess.EndedAt = parseNullDateTime(endedAt)
	sess.PausedAt = parseNullDateTime(pausedAt)
	return sess, nil
}
