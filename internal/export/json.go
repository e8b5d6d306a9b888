// Package export moves the full task database across the JSON and CSV file
// boundaries.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"tasker/internal/recur"
	"tasker/internal/store"
)

// FormatVersion guards the JSON document layout. Importers reject documents
// written by a newer layout.
const FormatVersion = 1

type Document struct {
	Version    int              `json:"version"`
	ExportedAt string           `json:"exported_at"`
	Tasks      []taskRecord     `json:"tasks"`
	Categories []categoryRecord `json:"categories"`
}

type taskRecord struct {
	ID                    int64   `json:"id"`
	Title                 string  `json:"title"`
	Description           string  `json:"description,omitempty"`
	CategoryIDs           []int64 `json:"category_ids,omitempty"`
	Priority              string  `json:"priority"`
	IsCompleted           bool    `json:"is_completed"`
	CompletedAt           string  `json:"completed_at,omitempty"`
	DueDate               string  `json:"due_date,omitempty"`
	DueTime               string  `json:"due_time,omitempty"`
	EstimatedMinutes      *int    `json:"estimated_minutes,omitempty"`
	ActualMinutes         *int    `json:"actual_minutes,omitempty"`
	RepeatType            string  `json:"repeat_type"`
	RepeatWeekdays        string  `json:"repeat_weekdays,omitempty"`
	RepeatInterval        int     `json:"repeat_interval,omitempty"`
	RepeatEndDate         string  `json:"repeat_end_date,omitempty"`
	RepeatCount           int     `json:"repeat_count,omitempty"`
	ReminderEnabled       bool    `json:"reminder_enabled"`
	ReminderOffsetMinutes *int    `json:"reminder_offset_minutes,omitempty"`
	CreatedAt             string  `json:"created_at"`
	UpdatedAt             string  `json:"updated_at"`
}

type categoryRecord struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ParentID  *int64 `json:"parent_id,omitempty"`
	Color     string `json:"color"`
	Icon      string `json:"icon,omitempty"`
	SortOrder int    `json:"sort_order"`
	IsDefault bool   `json:"is_default"`
}

// BuildDocument converts a snapshot into the exportable document.
func BuildDocument(snap *store.Snapshot, now time.Time) Document {
	doc := Document{
		Version:    FormatVersion,
		ExportedAt: now.UTC().Format(time.RFC3339),
	}
	for _, t := range snap.Tasks {
		doc.Tasks = append(doc.Tasks, encodeTask(t))
	}
	for _, c := range snap.Categories {
		doc.Categories = append(doc.Categories, categoryRecord{
			ID:        c.ID,
			Name:      c.Name,
			ParentID:  c.ParentID,
			Color:     c.Color,
			Icon:      c.Icon,
			SortOrder: c.SortOrder,
			IsDefault: c.IsDefault,
		})
	}
	return doc
}

func encodeTask(t store.Task) taskRecord {
	r := taskRecord{
		ID:                    t.ID,
		Title:                 t.Title,
		Description:           t.Description,
		CategoryIDs:           t.CategoryIDs,
		Priority:              string(t.Priority),
		IsCompleted:           t.Completed,
		EstimatedMinutes:      t.EstimatedMinutes,
		ActualMinutes:         t.ActualMinutes,
		RepeatType:            string(t.Repeat.Type),
		RepeatWeekdays:        recur.EncodeWeekdays(t.Repeat.Weekdays),
		RepeatInterval:        t.Repeat.Interval,
		RepeatCount:           t.Repeat.MaxCount,
		ReminderEnabled:       t.ReminderEnabled,
		ReminderOffsetMinutes: t.ReminderOffsetMinutes,
		CreatedAt:             t.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:             t.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if t.CompletedAt != nil {
		r.CompletedAt = t.CompletedAt.UTC().Format(time.RFC3339)
	}
	if t.DueDate != nil {
		r.DueDate = t.DueDate.Format(time.DateOnly)
	}
	if t.DueTime != nil {
		r.DueTime = *t.DueTime
	}
	if t.Repeat.EndDate != nil {
		r.RepeatEndDate = t.Repeat.EndDate.Format(time.DateOnly)
	}
	return r
}

// WriteJSON snapshots the store and writes the pretty-printed document.
func WriteJSON(s *store.Store, path string, now time.Time) error {
	snap, err := s.TakeSnapshot()
	if err != nil {
		return fmt.Errorf("snapshot for export: %w", err)
	}

	data, err := json.MarshalIndent(BuildDocument(snap, now), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}
