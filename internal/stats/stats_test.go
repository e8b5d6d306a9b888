package stats

import (
	"testing"
	"time"

	"tasker/internal/store"
)

var now = time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC) // a Wednesday

func completedOn(t time.Time) store.Task {
	at := t
	return store.Task{Completed: true, CompletedAt: &at}
}

func TestComputeCounters(t *testing.T) {
	overdueDate := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	tasks := []store.Task{
		completedOn(now.Add(-2 * time.Hour)),                 // today
		completedOn(now.AddDate(0, 0, -3)),                   // this week
		completedOn(now.AddDate(0, 0, -20)),                  // this month only
		completedOn(now.AddDate(0, 0, -90)),                  // older
		{Priority: store.PriorityHigh},                       // pending, high
		{DueDate: &overdueDate, Priority: store.PriorityLow}, // pending, overdue
	}

	s := Compute(tasks, now)
	if s.TotalTasks != 6 || s.CompletedTasks != 4 || s.PendingTasks != 2 {
		t.Fatalf("totals: %+v", s)
	}
	if s.CompletedToday != 1 {
		t.Fatalf("completed today = %d", s.CompletedToday)
	}
	if s.CompletedThisWeek != 2 {
		t.Fatalf("completed this week = %d", s.CompletedThisWeek)
	}
	if s.CompletedThisMonth != 3 {
		t.Fatalf("completed this month = %d", s.CompletedThisMonth)
	}
	if s.CompletionRate != 66 { // 4 of 6
		t.Fatalf("completion rate = %d", s.CompletionRate)
	}
	if s.OverdueTasks != 1 || s.HighPriorityPending != 1 {
		t.Fatalf("pending breakdown: overdue=%d high=%d", s.OverdueTasks, s.HighPriorityPending)
	}
}

func TestComputeEmpty(t *testing.T) {
	s := Compute(nil, now)
	if s.CompletionRate != 0 || s.AvgCompletionTime != 0 || s.CurrentStreak != 0 {
		t.Fatalf("empty input should yield zeroes: %+v", s)
	}
}

func TestAvgCompletionTime(t *testing.T) {
	m20, m40 := 20, 40
	at := now
	tasks := []store.Task{
		{Completed: true, CompletedAt: &at, ActualMinutes: &m20},
		{Completed: true, CompletedAt: &at, ActualMinutes: &m40},
		{Completed: true, CompletedAt: &at}, // untracked, excluded from the average
	}
	s := Compute(tasks, now)
	if s.AvgCompletionTime != 30 {
		t.Fatalf("avg = %d, want 30", s.AvgCompletionTime)
	}
}

func TestStreak(t *testing.T) {
	tasks := []store.Task{
		completedOn(now),
		completedOn(now.AddDate(0, 0, -1)),
		completedOn(now.AddDate(0, 0, -2)),
		completedOn(now.AddDate(0, 0, -5)), // gap at -3 breaks the streak
	}
	if s := Compute(tasks, now); s.CurrentStreak != 3 {
		t.Fatalf("streak = %d, want 3", s.CurrentStreak)
	}
}

func TestStreakStartsYesterdayWhenTodayEmpty(t *testing.T) {
	tasks := []store.Task{
		completedOn(now.AddDate(0, 0, -1)),
		completedOn(now.AddDate(0, 0, -2)),
	}
	if s := Compute(tasks, now); s.CurrentStreak != 2 {
		t.Fatalf("streak = %d, want 2", s.CurrentStreak)
	}
}

func TestCategoryAndWeekdayBreakdowns(t *testing.T) {
	done := completedOn(now) // Wednesday
	done.CategoryIDs = []int64{1, 2}
	pending := store.Task{CategoryIDs: []int64{2}}

	s := Compute([]store.Task{done, pending}, now)
	if s.TasksByCategory[1] != 1 || s.TasksByCategory[2] != 2 {
		t.Fatalf("by category: %v", s.TasksByCategory)
	}
	if s.ProductiveWeekdays[time.Wednesday] != 1 {
		t.Fatalf("by weekday: %v", s.ProductiveWeekdays)
	}

	top := s.TopCategories()
	if len(top) != 2 || top[0].CategoryID != 2 || top[0].Count != 2 {
		t.Fatalf("top categories: %v", top)
	}
}

func TestWeekdaySeriesOrder(t *testing.T) {
	s := Compute([]store.Task{completedOn(now)}, now)
	series := s.WeekdaySeries(time.Monday)
	if len(series) != 7 || series[0].Weekday != time.Monday || series[6].Weekday != time.Sunday {
		t.Fatalf("series order: %v", series)
	}
	if series[2].Weekday != time.Wednesday || series[2].Count != 1 {
		t.Fatalf("wednesday slot: %v", series[2])
	}
}

func TestRecentDays(t *testing.T) {
	s := Compute([]store.Task{completedOn(now), completedOn(now.AddDate(0, 0, -1))}, now)
	days := s.RecentDays(now, 7)
	if len(days) != 7 {
		t.Fatalf("len = %d", len(days))
	}
	if !days[6].Date.Equal(time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)) || days[6].Count != 1 {
		t.Fatalf("today slot: %+v", days[6])
	}
	if days[5].Count != 1 {
		t.Fatalf("yesterday slot: %+v", days[5])
	}
}
