package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"tasker/internal/store"
)

// viewState represents the currently active view.
type viewState int

const (
	viewTasks viewState = iota
	viewToday
	viewCategories
	viewStatistics
	viewSettings
)

var viewNames = []string{"Tasks", "Today", "Categories", "Statistics", "Settings"}

// --- Messages ---

type trackingStartedMsg struct {
	session *store.Session
}

type trackingStoppedMsg struct{}

type taskSavedMsg struct {
	task *store.Task
}

type statusMsg struct {
	text    string
	isError bool
}

type tickMsg time.Time

type exportDoneMsg struct {
	path string
}

type importDoneMsg struct {
	tasks      int
	categories int
}

// taskSettledMsg reports a completed or deleted task whose pending reminder
// should no longer fire.
type taskSettledMsg struct {
	taskID int64
}

func settledCmd(taskID int64) tea.Cmd {
	return func() tea.Msg { return taskSettledMsg{taskID: taskID} }
}

// ReminderMsg is sent into the program from the reminder scheduler.
type ReminderMsg struct {
	Task store.Task
	At   time.Time
}

// --- Helpers ---

func formatSeconds(secs int64) string {
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func formatMinutes(mins int) string {
	if mins < 60 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%dh%02dm", mins/60, mins%60)
}

func formatDue(t store.Task) string {
	if t.DueDate == nil {
		return ""
	}
	s := t.DueDate.Format("Jan 02")
	if t.DueTime != nil {
		s += " " + *t.DueTime
	}
	return s
}

func priorityLabel(p store.Priority) string {
	switch p {
	case store.PriorityHigh:
		return "!!!"
	case store.PriorityMedium:
		return "!! "
	case store.PriorityLow:
		return "!  "
	}
	return "   "
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
