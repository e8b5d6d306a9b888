package store

import "time"

// Built-in fallbacks for the reminder settings. The settings table overrides
// them; load the effective values with Store.ReminderDefaults.
const (
	DefaultReminderOffsetMinutes = 30
	DefaultReminderTime          = "09:00"
)

// ReminderDefaults are the fallbacks applied when a task leaves its reminder
// fields unset.
type ReminderDefaults struct {
	OffsetMinutes int
	DueTime       string
}

// Derived predicates are recomputed on read and never persisted.

// IsRepeating reports whether the task carries a recurrence rule.
func (t Task) IsRepeating() bool { return t.Repeat.Repeats() }

// DueAt combines the due date and due time into a wall-clock instant in loc.
// Without a due time the task is due until end of day. Nil without a due date.
func (t Task) DueAt(loc *time.Location) *time.Time {
	if t.DueDate == nil {
		return nil
	}
	y, m, d := t.DueDate.Date()
	hour, minute, sec := 23, 59, 59
	if t.DueTime != nil {
		if parsed, err := time.Parse("15:04", *t.DueTime); err == nil {
			hour, minute, sec = parsed.Hour(), parsed.Minute(), 0
		}
	}
	at := time.Date(y, m, d, hour, minute, sec, 0, loc)
	return &at
}

// IsOverdue is true when the task is incomplete and now is strictly past the
// due instant.
func (t Task) IsOverdue(now time.Time) bool {
	if t.Completed || t.DueDate == nil {
		return false
	}
	due := t.DueAt(now.Location())
	return now.After(*due)
}

// IsDueToday compares calendar dates only.
func (t Task) IsDueToday(now time.Time) bool {
	if t.DueDate == nil {
		return false
	}
	return t.DueDate.Format(time.DateOnly) == now.Format(time.DateOnly)
}

// ReminderAt is the instant the reminder should fire: the due time (the
// configured default when unset) minus the offset (likewise). Nil when
// reminders are disabled or there is no due date.
func (t Task) ReminderAt(loc *time.Location, d ReminderDefaults) *time.Time {
	if !t.ReminderEnabled || t.DueDate == nil {
		return nil
	}
	y, m, day := t.DueDate.Date()
	base := d.DueTime
	if base == "" {
		base = DefaultReminderTime
	}
	if t.DueTime != nil {
		base = *t.DueTime
	}
	parsed, err := time.Parse("15:04", base)
	if err != nil {
		parsed, _ = time.Parse("15:04", DefaultReminderTime)
	}
	offset := d.OffsetMinutes
	if t.ReminderOffsetMinutes != nil {
		offset = *t.ReminderOffsetMinutes
	}
	at := time.Date(y, m, day, parsed.Hour(), parsed.Minute(), 0, 0, loc).
		Add(-time.Duration(offset) * time.Minute)
	return &at
}
