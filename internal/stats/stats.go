// Package stats computes aggregate task statistics as a pure fold over the
// loaded task list, so the numbers are cheap to recompute on every refresh.
package stats

import (
	"sort"
	"time"

	"tasker/internal/store"
)

type Summary struct {
	CompletedToday     int
	CompletedThisWeek  int // rolling 7 days, inclusive
	CompletedThisMonth int // rolling 30 days, inclusive
	TotalTasks         int
	CompletedTasks     int
	CompletionRate     int // percent, 0 when there are no tasks
	AvgCompletionTime  int // minutes, over completed tasks with tracked time

	TasksByDay         map[string]int       // completion date (DateOnly) -> count, last 7 days
	ProductiveWeekdays map[time.Weekday]int // completion weekday -> count, all time
	TasksByCategory    map[int64]int        // category id -> tasks carrying it

	CurrentStreak       int // consecutive days with at least one completion
	OverdueTasks        int
	PendingTasks        int
	HighPriorityPending int
}

// Compute folds the task list into a Summary relative to now.
func Compute(tasks []store.Task, now time.Time) Summary {
	today := dateOf(now)
	weekAgo := today.AddDate(0, 0, -7)
	monthAgo := today.AddDate(0, 0, -30)

	sum := Summary{
		TotalTasks:         len(tasks),
		TasksByDay:         make(map[string]int),
		ProductiveWeekdays: make(map[time.Weekday]int),
		TasksByCategory:    make(map[int64]int),
	}

	var trackedTotal, trackedCount int
	completedDates := make(map[string]bool)

	for _, t := range tasks {
		for _, cid := range t.CategoryIDs {
			sum.TasksByCategory[cid]++
		}

		if !t.Completed {
			sum.PendingTasks++
			if t.IsOverdue(now) {
				sum.OverdueTasks++
			}
			if t.Priority == store.PriorityHigh {
				sum.HighPriorityPending++
			}
			continue
		}

		sum.CompletedTasks++
		if t.ActualMinutes != nil {
			trackedTotal += *t.ActualMinutes
			trackedCount++
		}
		if t.CompletedAt == nil {
			continue
		}

		done := dateOf(t.CompletedAt.In(now.Location()))
		key := done.Format(time.DateOnly)
		completedDates[key] = true
		sum.ProductiveWeekdays[done.Weekday()]++

		if done.Equal(today) {
			sum.CompletedToday++
		}
		if !done.Before(weekAgo) {
			sum.CompletedThisWeek++
		}
		if !done.Before(monthAgo) {
			sum.CompletedThisMonth++
		}
		if done.After(weekAgo) {
			sum.TasksByDay[key]++
		}
	}

	if sum.TotalTasks > 0 {
		sum.CompletionRate = sum.CompletedTasks * 100 / sum.TotalTasks
	}
	if trackedCount > 0 {
		sum.AvgCompletionTime = trackedTotal / trackedCount
	}
	sum.CurrentStreak = streak(completedDates, today)

	return sum
}

// streak walks backwards day by day from today. A day without completions
// ends the streak, except today itself, which only hasn't happened yet.
func streak(completedDates map[string]bool, today time.Time) int {
	if len(completedDates) == 0 {
		return 0
	}
	day := today
	if !completedDates[day.Format(time.DateOnly)] {
		day = day.AddDate(0, 0, -1)
	}
	n := 0
	for completedDates[day.Format(time.DateOnly)] {
		n++
		day = day.AddDate(0, 0, -1)
	}
	return n
}

// WeekdaySeries orders the productive-weekday counts for charting, starting
// from the given first day of the week.
func (s Summary) WeekdaySeries(weekStart time.Weekday) []WeekdayCount {
	out := make([]WeekdayCount, 0, 7)
	for i := 0; i < 7; i++ {
		wd := time.Weekday((int(weekStart) + i) % 7)
		out = append(out, WeekdayCount{Weekday: wd, Count: s.ProductiveWeekdays[wd]})
	}
	return out
}

type WeekdayCount struct {
	Weekday time.Weekday
	Count   int
}

// RecentDays lists the last n days oldest-first with their completion counts,
// for the daily activity view.
func (s Summary) RecentDays(now time.Time, n int) []DayCount {
	out := make([]DayCount, 0, n)
	start := dateOf(now).AddDate(0, 0, -(n - 1))
	for i := 0; i < n; i++ {
		d := start.AddDate(0, 0, i)
		out = append(out, DayCount{Date: d, Count: s.TasksByDay[d.Format(time.DateOnly)]})
	}
	return out
}

type DayCount struct {
	Date  time.Time
	Count int
}

// TopCategories returns category counts sorted descending, ties by id.
func (s Summary) TopCategories() []CategoryCount {
	out := make([]CategoryCount, 0, len(s.TasksByCategory))
	for id, n := range s.TasksByCategory {
		out = append(out, CategoryCount{CategoryID: id, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].CategoryID < out[j].CategoryID
	})
	return out
}

type CategoryCount struct {
	CategoryID int64
	Count      int
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
