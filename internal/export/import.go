package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"tasker/internal/recur"
	"tasker/internal/store"
)

// Parse decodes a JSON export into a snapshot, rejecting unknown versions.
// Field-level validation happens later, inside the restore.
func Parse(data []byte) (store.Snapshot, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return store.Snapshot{}, fmt.Errorf("parse export: %w", err)
	}
	if doc.Version > FormatVersion || doc.Version < 1 {
		return store.Snapshot{}, fmt.Errorf("unsupported export version %d", doc.Version)
	}

	var snap store.Snapshot
	for _, r := range doc.Categories {
		snap.Categories = append(snap.Categories, store.Category{
			ID:        r.ID,
			Name:      r.Name,
			ParentID:  r.ParentID,
			Color:     r.Color,
			Icon:      r.Icon,
			SortOrder: r.SortOrder,
			IsDefault: r.IsDefault,
		})
	}
	for _, r := range doc.Tasks {
		t, err := decodeTask(r)
		if err != nil {
			return store.Snapshot{}, fmt.Errorf("task %q: %w", r.Title, err)
		}
		snap.Tasks = append(snap.Tasks, t)
	}
	return snap, nil
}

func decodeTask(r taskRecord) (store.Task, error) {
	priority, err := store.ParsePriority(r.Priority)
	if err != nil {
		return store.Task{}, err
	}
	repeatType, err := recur.ParseType(r.RepeatType)
	if err != nil {
		return store.Task{}, err
	}
	weekdays, err := recur.ParseWeekdays(r.RepeatWeekdays)
	if err != nil {
		return store.Task{}, err
	}

	t := store.Task{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		CategoryIDs: r.CategoryIDs,
		Priority:    priority,
		Completed:   r.IsCompleted,
		Repeat: recur.Rule{
			Type:     repeatType,
			Weekdays: weekdays,
			Interval: r.RepeatInterval,
			MaxCount: r.RepeatCount,
		},
		EstimatedMinutes:      r.EstimatedMinutes,
		ActualMinutes:         r.ActualMinutes,
		ReminderEnabled:       r.ReminderEnabled,
		ReminderOffsetMinutes: r.ReminderOffsetMinutes,
	}

	if r.CompletedAt != "" {
		at, err := time.Parse(time.RFC3339, r.CompletedAt)
		if err != nil {
			return store.Task{}, fmt.Errorf("completed_at: %w", err)
		}
		t.CompletedAt = &at
	}
	if r.DueDate != "" {
		d, err := time.Parse(time.DateOnly, r.DueDate)
		if err != nil {
			return store.Task{}, fmt.Errorf("due_date: %w", err)
		}
		t.DueDate = &d
	}
	if r.DueTime != "" {
		dt := r.DueTime
		t.DueTime = &dt
	}
	if r.RepeatEndDate != "" {
		d, err := time.Parse(time.DateOnly, r.RepeatEndDate)
		if err != nil {
			return store.Task{}, fmt.Errorf("repeat_end_date: %w", err)
		}
		t.Repeat.EndDate = &d
	}
	if r.CreatedAt != "" {
		t.CreatedAt, _ = time.Parse(time.RFC3339, r.CreatedAt)
	}
	if r.UpdatedAt != "" {
		t.UpdatedAt, _ = time.Parse(time.RFC3339, r.UpdatedAt)
	}
	return t, nil
}

// ImportJSON reads a JSON export file and restores it into the store. The
// restore is all-or-nothing: any invalid record leaves the database exactly
// as it was. Returns how many tasks and categories were imported.
func ImportJSON(s *store.Store, path string) (tasks, categories int, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, fmt.Errorf("read import file: %w", err)
	}
	snap, err := Parse(data)
	if err != nil {
		return 0, 0, err
	}
	if err := s.RestoreSnapshot(snap); err != nil {
		return 0, 0, fmt.Errorf("import: %w", err)
	}
	return len(snap.Tasks), len(snap.Categories), nil
}
