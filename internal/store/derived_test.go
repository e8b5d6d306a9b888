package store

import (
	"testing"
	"time"
)

func TestDueAt(t *testing.T) {
	loc := time.UTC
	due := date(2024, 6, 10)

	timed := Task{DueDate: &due, DueTime: ptr("14:30")}
	at := timed.DueAt(loc)
	if at == nil || !at.Equal(time.Date(2024, 6, 10, 14, 30, 0, 0, loc)) {
		t.Fatalf("timed DueAt = %v", at)
	}

	// No due time: due until end of day.
	allDay := Task{DueDate: &due}
	at = allDay.DueAt(loc)
	if at == nil || !at.Equal(time.Date(2024, 6, 10, 23, 59, 59, 0, loc)) {
		t.Fatalf("all-day DueAt = %v", at)
	}

	if (Task{}).DueAt(loc) != nil {
		t.Fatal("dateless task has no due instant")
	}
}

func TestIsOverdue(t *testing.T) {
	due := date(2024, 6, 10)
	now := time.Date(2024, 6, 10, 15, 0, 0, 0, time.UTC)

	timed := Task{DueDate: &due, DueTime: ptr("14:30")}
	if !timed.IsOverdue(now) {
		t.Fatal("14:30 task should be overdue at 15:00")
	}

	allDay := Task{DueDate: &due}
	if allDay.IsOverdue(now) {
		t.Fatal("all-day task is not overdue before end of day")
	}
	if !allDay.IsOverdue(time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("all-day task is overdue the next day")
	}

	completed := Task{DueDate: &due, DueTime: ptr("14:30"), Completed: true}
	if completed.IsOverdue(now) {
		t.Fatal("completed tasks are never overdue")
	}
	if (Task{}).IsOverdue(now) {
		t.Fatal("dateless tasks are never overdue")
	}
}

func TestIsDueToday(t *testing.T) {
	due := date(2024, 6, 10)
	task := Task{DueDate: &due}
	if !task.IsDueToday(time.Date(2024, 6, 10, 23, 0, 0, 0, time.UTC)) {
		t.Fatal("same calendar day should match")
	}
	if task.IsDueToday(time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("next day should not match")
	}
}

func TestReminderAt(t *testing.T) {
	loc := time.UTC
	due := date(2024, 6, 10)
	defaults := ReminderDefaults{OffsetMinutes: DefaultReminderOffsetMinutes, DueTime: DefaultReminderTime}

	explicit := Task{DueDate: &due, DueTime: ptr("14:00"), ReminderEnabled: true, ReminderOffsetMinutes: ptr(10)}
	at := explicit.ReminderAt(loc, defaults)
	if at == nil || !at.Equal(time.Date(2024, 6, 10, 13, 50, 0, 0, loc)) {
		t.Fatalf("explicit ReminderAt = %v", at)
	}

	// No due time and no offset: 09:00 minus 30 minutes.
	defaulted := Task{DueDate: &due, ReminderEnabled: true}
	at = defaulted.ReminderAt(loc, defaults)
	if at == nil || !at.Equal(time.Date(2024, 6, 10, 8, 30, 0, 0, loc)) {
		t.Fatalf("defaulted ReminderAt = %v", at)
	}

	disabled := Task{DueDate: &due}
	if disabled.ReminderAt(loc, defaults) != nil {
		t.Fatal("disabled reminder should be nil")
	}
	dateless := Task{ReminderEnabled: true}
	if dateless.ReminderAt(loc, defaults) != nil {
		t.Fatal("dateless reminder should be nil")
	}
}

func TestReminderDefaultsFromSettings(t *testing.T) {
	s := newTestStore(t)
	due := date(2024, 6, 10)
	task := Task{DueDate: &due, ReminderEnabled: true}

	// Seeded settings: 09:00 minus 30 minutes.
	at := task.ReminderAt(time.UTC, s.ReminderDefaults())
	if at == nil || !at.Equal(time.Date(2024, 6, 10, 8, 30, 0, 0, time.UTC)) {
		t.Fatalf("seeded defaults ReminderAt = %v", at)
	}

	if err := s.SetSetting("reminder_offset_minutes", "120"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetSetting("default_due_time", "08:00"); err != nil {
		t.Fatal(err)
	}
	at = task.ReminderAt(time.UTC, s.ReminderDefaults())
	if at == nil || !at.Equal(time.Date(2024, 6, 10, 6, 0, 0, 0, time.UTC)) {
		t.Fatalf("configured defaults ReminderAt = %v", at)
	}

	// Task-level fields still win over the configured defaults.
	explicit := Task{DueDate: &due, DueTime: ptr("14:00"), ReminderEnabled: true, ReminderOffsetMinutes: ptr(10)}
	at = explicit.ReminderAt(time.UTC, s.ReminderDefaults())
	if at == nil || !at.Equal(time.Date(2024, 6, 10, 13, 50, 0, 0, time.UTC)) {
		t.Fatalf("explicit fields ReminderAt = %v", at)
	}

	// A malformed due time falls back to the built-in 09:00.
	if err := s.SetSetting("default_due_time", "late"); err != nil {
		t.Fatal(err)
	}
	at = task.ReminderAt(time.UTC, s.ReminderDefaults())
	if at == nil || !at.Equal(time.Date(2024, 6, 10, 7, 0, 0, 0, time.UTC)) {
		t.Fatalf("malformed due time ReminderAt = %v", at)
	}
}
