package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"tasker/internal/recur"
)

// Validation limits, matching what the edit form enforces.
const (
	MaxTitleLen       = 200
	MaxDescriptionLen = 2000
)

const taskColumns = `id, title, description, priority, is_completed, completed_at,
	due_date, due_time, estimated_minutes, actual_minutes,
	repeat_type, repeat_weekdays, repeat_interval, repeat_end_date, repeat_count,
	reminder_enabled, reminder_offset_minutes, created_at, updated_at`

// ValidateTask checks a task before it touches storage.
func ValidateTask(t *Task) error {
	title := strings.TrimSpace(t.Title)
	if title == "" {
		return errors.New("title must not be empty")
	}
	if len(title) > MaxTitleLen {
		return fmt.Errorf("title exceeds %d characters", MaxTitleLen)
	}
	if len(t.Description) > MaxDescriptionLen {
		return fmt.Errorf("description exceeds %d characters", MaxDescriptionLen)
	}
	if _, err := ParsePriority(string(t.Priority)); err != nil {
		return err
	}
	if t.DueTime != nil {
		if t.DueDate == nil {
			return errors.New("due time requires a due date")
		}
		if _, err := time.Parse("15:04", *t.DueTime); err != nil {
			return fmt.Errorf("due time %q is not HH:MM", *t.DueTime)
		}
	}
	if err := t.Repeat.Validate(); err != nil {
		return err
	}
	return nil
}

func (s *Store) CreateTask(t Task) (*Task, error) {
	if err := ValidateTask(&t); err != nil {
		return nil, fmt.Errorf("validate task: %w", err)
	}

	now := s.now().UTC().Format(time.RFC3339)
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin create task: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO tasks (title, description, priority, is_completed, completed_at,
			due_date, due_time, estimated_minutes, actual_minutes,
			repeat_type, repeat_weekdays, repeat_interval, repeat_end_date, repeat_count,
			reminder_enabled, reminder_offset_minutes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		strings.TrimSpace(t.Title), t.Description, string(t.Priority),
		boolInt(t.Completed), nullDateTime(t.CompletedAt),
		nullDate(t.DueDate), t.DueTime, t.EstimatedMinutes, t.ActualMinutes,
		string(t.Repeat.Type), recur.EncodeWeekdays(t.Repeat.Weekdays), t.Repeat.Interval,
		nullDate(t.Repeat.EndDate), nullCount(t.Repeat.MaxCount),
		boolInt(t.ReminderEnabled), t.ReminderOffsetMinutes, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, _ := res.LastInsertId()

	for _, cid := range t.CategoryIDs {
		if _, err := tx.Exec(
			`INSERT INTO task_categories (task_id, category_id) VALUES (?, ?)`, id, cid,
		); err != nil {
			return nil, fmt.Errorf("link category %d: %w", cid, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create task: %w", err)
	}
	return s.GetTask(id)
}

func (s *Store) GetTask(id int64) (*Task, error) {
	row := s.db.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("get task %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get task %d: %w", id, err)
	}
	ids, err := s.categoryIDsForTask(id)
	if err != nil {
		return nil, err
	}
	t.CategoryIDs = ids
	return t, nil
}

// UpdateTask replaces all user-editable fields and the category links.
func (s *Store) UpdateTask(t Task) error {
	if err := ValidateTask(&t); err != nil {
		return fmt.Errorf("validate task: %w", err)
	}

	now := s.now().UTC().Format(time.RFC3339)
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin update task: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`UPDATE tasks SET title = ?, description = ?, priority = ?,
			is_completed = ?, completed_at = ?,
			due_date = ?, due_time = ?, estimated_minutes = ?, actual_minutes = ?,
			repeat_type = ?, repeat_weekdays = ?, repeat_interval = ?,
			repeat_end_date = ?, repeat_count = ?,
			reminder_enabled = ?, reminder_offset_minutes = ?, updated_at = ?
		 WHERE id = ?`,
		strings.TrimSpace(t.Title), t.Description, string(t.Priority),
		boolInt(t.Completed), nullDateTime(t.CompletedAt),
		nullDate(t.DueDate), t.DueTime, t.EstimatedMinutes, t.ActualMinutes,
		string(t.Repeat.Type), recur.EncodeWeekdays(t.Repeat.Weekdays), t.Repeat.Interval,
		nullDate(t.Repeat.EndDate), nullCount(t.Repeat.MaxCount),
		boolInt(t.ReminderEnabled), t.ReminderOffsetMinutes, now, t.ID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update task %d: %w", t.ID, ErrNotFound)
	}

	if _, err := tx.Exec(`DELETE FROM task_categories WHERE task_id = ?`, t.ID); err != nil {
		return fmt.Errorf("clear category links: %w", err)
	}
	for _, cid := range t.CategoryIDs {
		if _, err := tx.Exec(
			`INSERT INTO task_categories (task_id, category_id) VALUES (?, ?)`, t.ID, cid,
		); err != nil {
			return fmt.Errorf("link category %d: %w", cid, err)
		}
	}
	return tx.Commit()
}

// ToggleCompletion flips the completion flag, keeping completed_at in lockstep.
func (s *Store) ToggleCompletion(id int64) (*Task, error) {
	t, err := s.GetTask(id)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	nowStr := now.Format(time.RFC3339)

	var completedAt any
	completed := !t.Completed
	if completed {
		completedAt = nowStr
	}
	_, err = s.db.Exec(
		`UPDATE tasks SET is_completed = ?, completed_at = ?, updated_at = ? WHERE id = ?`,
		boolInt(completed), completedAt, nowStr, id,
	)
	if err != nil {
		return nil, fmt.Errorf("toggle task %d: %w", id, err)
	}
	return s.GetTask(id)
}

// DeleteTask removes the task; category links, occurrences, and tracking
// sessions go with it via foreign keys.
func (s *Store) DeleteTask(id int64) error {
	res, err := s.db.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete task %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *Store) ListTasks(f TaskFilter) ([]Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE 1=1`
	var args []any

	if f.Date != nil {
		query += ` AND due_date = ?`
		args = append(args, f.Date.Format(time.DateOnly))
	}
	if f.From != nil {
		query += ` AND due_date >= ?`
		args = append(args, f.From.Format(time.DateOnly))
	}
	if f.To != nil {
		query += ` AND due_date <= ?`
		args = append(args, f.To.Format(time.DateOnly))
	}
	if f.Completed != nil {
		query += ` AND is_completed = ?`
		args = append(args, boolInt(*f.Completed))
	}
	if f.CategoryID != nil {
		query += ` AND id IN (SELECT task_id FROM task_categories WHERE category_id = ?)`
		args = append(args, *f.CategoryID)
	}
	if f.Search != "" {
		query += ` AND (title LIKE ? OR description LIKE ?)`
		pattern := "%" + f.Search + "%"
		args = append(args, pattern, pattern)
	}
	query += ` ORDER BY due_date IS NULL, due_date ASC,
		CASE priority WHEN 'HIGH' THEN 3 WHEN 'MEDIUM' THEN 2 WHEN 'LOW' THEN 1 ELSE 0 END DESC,
		id ASC`
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, f.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.attachCategoryIDs(tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *Store) categoryIDsForTask(taskID int64) ([]int64, error) {
	rows, err := s.db.Query(
		`SELECT category_id FROM task_categories WHERE task_id = ? ORDER BY category_id`, taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("category links for task %d: %w", taskID, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) attachCategoryIDs(tasks []Task) error {
	if len(tasks) == 0 {
		return nil
	}
	rows, err := s.db.Query(`SELECT task_id, category_id FROM task_categories ORDER BY category_id`)
	if err != nil {
		return fmt.Errorf("list category links: %w", err)
	}
	defer rows.Close()

	links := make(map[int64][]int64)
	for rows.Next() {
		var tid, cid int64
		if err := rows.Scan(&tid, &cid); err != nil {
			return err
		}
		links[tid] = append(links[tid], cid)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for i := range tasks {
		tasks[i].CategoryIDs = links[tasks[i].ID]
	}
	return nil
}

// --- scanning helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(r rowScanner) (*Task, error) {
	t := &Task{}
	var (
		completed, reminderEnabled        int
		completedAt, dueDate, dueTime     sql.NullString
		estMinutes, actMinutes            sql.NullInt64
		repeatType, repeatWeekdays        string
		repeatInterval                    int
		repeatEndDate                     sql.NullString
		repeatCount, reminderOffset       sql.NullInt64
		createdAt, updatedAt              string
	)
	err := r.Scan(
		&t.ID, &t.Title, &t.Description, (*string)(&t.Priority), &completed, &completedAt,
		&dueDate, &dueTime, &estMinutes, &actMinutes,
		&repeatType, &repeatWeekdays, &repeatInterval, &repeatEndDate, &repeatCount,
		&reminderEnabled, &reminderOffset, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Completed = completed == 1
	t.ReminderEnabled = reminderEnabled == 1
	t.CompletedAt = parseNullDateTime(completedAt)
	t.DueDate = parseNullDate(dueDate)
	if dueTime.Valid {
		v := dueTime.String
		t.DueTime = &v
	}
	t.EstimatedMinutes = intPtr(estMinutes)
	t.ActualMinutes = intPtr(actMinutes)
	t.ReminderOffsetMinutes = intPtr(reminderOffset)

	typ, err := recur.ParseType(repeatType)
	if err != nil {
		return nil, fmt.Errorf("task %d: %w", t.ID, err)
	}
	weekdays, err := recur.ParseWeekdays(repeatWeekdays)
	if err != nil {
		return nil, fmt.Errorf("task %d: %w", t.ID, err)
	}
	t.Repeat = recur.Rule{
		Type:     typ,
		Weekdays: weekdays,
		Interval: repeatInterval,
		EndDate:  parseNullDate(repeatEndDate),
	}
	if repeatCount.Valid {
		t.Repeat.MaxCount = int(repeatCount.Int64)
	}

	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	t.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return t, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.DateOnly)
}

func nullDateTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func nullCount(n int) any {
	if n == 0 {
		return nil
	}
	return n
}

func parseNullDate(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(time.DateOnly, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func parseNullDateTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
