package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tasker/internal/stats"
	"tasker/internal/store"
)

type statisticsModel struct {
	store  *store.Store
	width  int
	height int

	summary    stats.Summary
	categories map[int64]store.Category
	weekStart  time.Weekday

	chart barchart.Model
}

func newStatisticsModel(s *store.Store) statisticsModel {
	return statisticsModel{
		store:      s,
		categories: make(map[int64]store.Category),
		weekStart:  time.Monday,
		chart:      barchart.New(60, 10),
	}
}

func (s *statisticsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

type statisticsDataMsg struct {
	summary    stats.Summary
	categories map[int64]store.Category
	weekStart  time.Weekday
}

func (s statisticsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		tasks, _ := s.store.ListTasks(store.TaskFilter{})
		summary := stats.Compute(tasks, time.Now())

		cats, _ := s.store.ListCategories()
		byID := make(map[int64]store.Category, len(cats))
		for _, c := range cats {
			byID[c.ID] = c
		}

		weekStart := time.Monday
		if v, err := s.store.GetSetting("week_start"); err == nil && v == "sunday" {
			weekStart = time.Sunday
		}

		return statisticsDataMsg{summary: summary, categories: byID, weekStart: weekStart}
	}
}

func (s statisticsModel) update(msg tea.Msg) (statisticsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case statisticsDataMsg:
		s.summary = msg.summary
		s.categories = msg.categories
		s.weekStart = msg.weekStart
		s.buildChart()
		return s, nil
	}
	return s, nil
}

// buildChart plots completions per weekday.
func (s *statisticsModel) buildChart() {
	chartWidth := s.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	chartHeight := 10
	if s.height > 30 {
		chartHeight = 14
	}
	s.chart = barchart.New(chartWidth, chartHeight)

	var bars []barchart.BarData
	for _, wc := range s.summary.WeekdaySeries(s.weekStart) {
		style := lipgloss.NewStyle().Foreground(colorPrimary)
		if wc.Count == 0 {
			style = lipgloss.NewStyle().Foreground(colorSubtle)
		}
		bars = append(bars, barchart.BarData{
			Label: wc.Weekday.String()[:3],
			Values: []barchart.BarValue{
				{Name: wc.Weekday.String(), Value: float64(wc.Count), Style: style},
			},
		})
	}

	s.chart.PushAll(bars)
	s.chart.Draw()
}

func (s statisticsModel) view() string {
	w := s.width - 4
	sum := s.summary

	title := titleStyle.Render("Statistics")

	counters := []string{
		fmt.Sprintf("  Completed today: %s   this week: %s   this month: %s",
			highlightStyle.Render(fmt.Sprintf("%d", sum.CompletedToday)),
			highlightStyle.Render(fmt.Sprintf("%d", sum.CompletedThisWeek)),
			highlightStyle.Render(fmt.Sprintf("%d", sum.CompletedThisMonth)),
		),
		fmt.Sprintf("  Total: %d   done: %d (%d%%)   pending: %d",
			sum.TotalTasks, sum.CompletedTasks, sum.CompletionRate, sum.PendingTasks),
		fmt.Sprintf("  Overdue: %s   high priority pending: %s",
			errorStyle.Render(fmt.Sprintf("%d", sum.OverdueTasks)),
			warningStyle.Render(fmt.Sprintf("%d", sum.HighPriorityPending)),
		),
	}
	if sum.AvgCompletionTime > 0 {
		counters = append(counters,
			fmt.Sprintf("  Avg time per task: %s", highlightStyle.Render(formatMinutes(sum.AvgCompletionTime))))
	}

	streak := fmt.Sprintf("  Streak: %s", successStyle.Render(fmt.Sprintf("%d day(s)", sum.CurrentStreak)))

	chartTitle := mutedStyle.Render("  Completions by weekday")
	chartView := s.chart.View()

	catTable := s.renderCategoryTable(w)

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			title, "",
			strings.Join(counters, "\n"),
			streak, "",
			chartTitle,
			chartView, "",
			catTable,
		),
	)
}

func (s statisticsModel) renderCategoryTable(w int) string {
	top := s.summary.TopCategories()
	if len(top) == 0 {
		return mutedStyle.Render("  No categorized tasks yet")
	}

	var rows []string
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-24s %8s", "Category", "Tasks")))
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 34))))

	shown := min(len(top), 8)
	for _, cc := range top[:shown] {
		name := "?"
		dot := "●"
		if c, ok := s.categories[cc.CategoryID]; ok {
			name = c.Name
			dot = lipgloss.NewStyle().Foreground(lipgloss.Color(c.Color)).Render("●")
		}
		rows = append(rows, fmt.Sprintf("  %s %-22s %8d", dot, name, cc.Count))
	}
	return strings.Join(rows, "\n")
}
