package store

import (
	"fmt"
	"strings"
	"time"

	"tasker/internal/recur"
)

// Priority of a task.
type Priority string

const (
	PriorityNone   Priority = "NONE"
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// Rank orders priorities for sorting (higher is more urgent).
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// ParsePriority converts a stored string into a Priority.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToUpper(strings.TrimSpace(s)))
	switch p {
	case PriorityNone, PriorityLow, PriorityMedium, PriorityHigh:
		return p, nil
	case "":
		return PriorityNone, nil
	}
	return PriorityNone, fmt.Errorf("unknown priority %q", s)
}

// TrackingStatus of a time-tracking session.
type TrackingStatus string

const (
	StatusInProgress TrackingStatus = "IN_PROGRESS"
	StatusPaused     TrackingStatus = "PAUSED"
	StatusCompleted  TrackingStatus = "COMPLETED"
)

type Task struct {
	ID                    int64
	Title                 string
	Description           string
	CategoryIDs           []int64
	Priority              Priority
	Completed             bool
	CompletedAt           *time.Time
	DueDate               *time.Time // calendar date, midnight UTC
	DueTime               *string    // "15:04", meaningful only with DueDate
	EstimatedMinutes      *int
	ActualMinutes         *int
	Repeat                recur.Rule
	ReminderEnabled       bool
	ReminderOffsetMinutes *int
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

type Category struct {
	ID        int64
	Name      string
	ParentID  *int64 // nil = root category
	Color     string
	Icon      string
	SortOrder int
	IsDefault bool
	CreatedAt time.Time
}

// Root reports whether the category is a top-level one.
func (c Category) Root() bool { return c.ParentID == nil }

// Occurrence is one dated materialization of a recurring task.
type Occurrence struct {
	ID            int64
	TaskID        int64
	ScheduledDate time.Time
	Completed     bool
	CompletedAt   *time.Time
	ActualMinutes *int
}

// Session is one continuous-or-paused timer run against a task.
type Session struct {
	ID           int64
	TaskID       int64
	StartedAt    time.Time
	EndedAt      *time.Time
	PausedAt     *time.Time
	TotalSeconds int64 // banked time, excluding the running segment
	Status       TrackingStatus
}

// DisplayedSeconds is the live read model: banked time plus the running
// segment. Recomputed per tick so it stays correct across restarts given
// only the persisted row.
func (s Session) DisplayedSeconds(now time.Time) int64 {
	if s.Status == StatusInProgress {
		return s.TotalSeconds + int64(now.Sub(s.StartedAt).Seconds())
	}
	return s.TotalSeconds
}

type Setting struct {
	Key   string
	Value string
}

// TaskFilter narrows ListTasks results. Zero value lists everything.
type TaskFilter struct {
	Date       *time.Time // exact due date
	From       *time.Time // due date range start
	To         *time.Time // due date range end (inclusive)
	Completed  *bool
	CategoryID *int64
	Search     string // LIKE over title and description
	Limit      int
}
