package store

import (
	"fmt"
	"strings"
	"time"

	"tasker/internal/recur"
)

// Snapshot is a self-contained copy of all tasks and categories, used by the
// export/import boundary. Ids inside a snapshot are only meaningful for
// resolving parent and category references during restore.
type Snapshot struct {
	Tasks      []Task
	Categories []Category
}

// TakeSnapshot reads every category and task.
func (s *Store) TakeSnapshot() (*Snapshot, error) {
	cats, err := s.ListCategories()
	if err != nil {
		return nil, err
	}
	tasks, err := s.ListTasks(TaskFilter{})
	if err != nil {
		return nil, err
	}
	return &Snapshot{Tasks: tasks, Categories: cats}, nil
}

// RestoreSnapshot inserts all categories and tasks from the snapshot in a
// single transaction: either everything lands or nothing does. Snapshot ids
// are remapped to freshly assigned ones; parent links and task-category
// links follow the remap. Category links referencing ids absent from the
// snapshot are dropped.
func (s *Store) RestoreSnapshot(snap Snapshot) error {
	// Validate everything up front so no partial write can happen.
	for i := range snap.Tasks {
		if err := ValidateTask(&snap.Tasks[i]); err != nil {
			return fmt.Errorf("task %q: %w", snap.Tasks[i].Title, err)
		}
	}
	for _, c := range snap.Categories {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("category %d: name must not be empty", c.ID)
		}
	}

	byID := make(map[int64]Category, len(snap.Categories))
	for _, c := range snap.Categories {
		byID[c.ID] = c
	}
	for _, c := range snap.Categories {
		if c.ParentID == nil {
			continue
		}
		parent, ok := byID[*c.ParentID]
		if !ok {
			return fmt.Errorf("category %q: parent %d not in snapshot", c.Name, *c.ParentID)
		}
		if !parent.Root() {
			return fmt.Errorf("category %q: parent %q is not a root category", c.Name, parent.Name)
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin restore: %w", err)
	}
	defer tx.Rollback()

	// Roots before children so the remap always has the parent.
	remap := make(map[int64]int64, len(snap.Categories))
	for _, pass := range []bool{true, false} {
		for _, c := range snap.Categories {
			if c.Root() != pass {
				continue
			}
			var parent any
			if c.ParentID != nil {
				parent = remap[*c.ParentID]
			}
			res, err := tx.Exec(
				`INSERT INTO categories (name, parent_id, color, icon, sort_order, is_default)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				strings.TrimSpace(c.Name), parent, c.Color, c.Icon, c.SortOrder, boolInt(c.IsDefault),
			)
			if err != nil {
				return fmt.Errorf("restore category %q: %w", c.Name, err)
			}
			newID, _ := res.LastInsertId()
			remap[c.ID] = newID
		}
	}

	now := s.now().UTC()
	for _, t := range snap.Tasks {
		createdAt, updatedAt := t.CreatedAt, t.UpdatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		if updatedAt.IsZero() {
			updatedAt = now
		}
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
			boolInt(t.ReminderEnabled), t.ReminderOffsetMinutes,
			createdAt.Format(time.RFC3339), updatedAt.Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("restore task %q: %w", t.Title, err)
		}
		taskID, _ := res.LastInsertId()

		for _, cid := range t.CategoryIDs {
			newCID, ok := remap[cid]
			if !ok {
				continue
			}
			if _, err := tx.Exec(
				`INSERT INTO task_categories (task_id, category_id) VALUES (?, ?)`, taskID, newCID,
			); err != nil {
				return fmt.Errorf("restore link for task %q: %w", t.Title, err)
			}
		}
	}

	return tx.Commit()
}
