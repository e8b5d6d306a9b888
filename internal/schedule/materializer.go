// Package schedule turns recurrence rules into persisted dated occurrences.
package schedule

import (
	"fmt"
	"time"

	"tasker/internal/recur"
	"tasker/internal/store"
)

// DefaultWindowDays bounds how far ahead occurrences are materialized when
// the setting is absent.
const DefaultWindowDays = 60

// Materializer projects each repeating task's rule onto a rolling window of
// occurrence rows. Materialization is idempotent: completed occurrences and
// already-present dates are never disturbed.
type Materializer struct {
	store *store.Store
}

func New(s *store.Store) *Materializer {
	return &Materializer{store: s}
}

// anchor is the first date the rule generates from: the due date when the
// task has one, otherwise the calendar date it was created.
func anchor(t store.Task) time.Time {
	if t.DueDate != nil {
		return recur.Midnight(*t.DueDate)
	}
	return recur.Midnight(t.CreatedAt)
}

// Materialize inserts the task's missing occurrences within [from, to] and
// returns how many rows were added. Non-repeating tasks materialize nothing.
func (m *Materializer) Materialize(t store.Task, from, to time.Time) (int, error) {
	if !t.Repeat.Repeats() {
		return 0, nil
	}
	dates := t.Repeat.Dates(anchor(t), from, to)
	if len(dates) == 0 {
		return 0, nil
	}
	n, err := m.store.InsertMissingOccurrences(t.ID, dates)
	if err != nil {
		return 0, fmt.Errorf("materialize task %d: %w", t.ID, err)
	}
	return n, nil
}

// MaterializeUpcoming extends every repeating task's occurrences from today
// through the configured window. Called on startup and by the periodic scan.
func (m *Materializer) MaterializeUpcoming(now time.Time) (int, error) {
	window := m.store.GetSettingInt("materialize_window_days", DefaultWindowDays)
	from := recur.Midnight(now)
	to := from.AddDate(0, 0, window)

	tasks, err := m.store.ListTasks(store.TaskFilter{})
	if err != nil {
		return 0, fmt.Errorf("list tasks for materialization: %w", err)
	}

	total := 0
	for _, t := range tasks {
		n, err := m.Materialize(t, from, to)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// RuleChanged rebuilds the task's future schedule after its recurrence rule
// was edited: pending occurrences from today onward are dropped (completed
// ones stay as history) and the window is re-materialized under the new rule.
func (m *Materializer) RuleChanged(t store.Task, now time.Time) error {
	today := recur.Midnight(now)
	if err := m.store.DeleteFutureIncompleteOccurrences(t.ID, today); err != nil {
		return err
	}
	window := m.store.GetSettingInt("materialize_window_days", DefaultWindowDays)
	_, err := m.Materialize(t, today, today.AddDate(0, 0, window))
	return err
}
