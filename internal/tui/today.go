package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tasker/internal/store"
)

// todayModel is the daily dashboard: the active timer, tasks due today, the
// day's recurring occurrences and whatever is overdue.
type todayModel struct {
	store   *store.Store
	tracker trackingModel

	width  int
	height int

	todayTasks  []store.Task
	overdue     []store.Task
	occurrences []store.Occurrence
	occTasks    map[int64]store.Task
	cursor      int
}

func newTodayModel(s *store.Store) todayModel {
	return todayModel{
		store:    s,
		tracker:  newTrackingModel(s),
		occTasks: make(map[int64]store.Task),
	}
}

func (d todayModel) Init() tea.Cmd {
	return d.loadData()
}

func (d *todayModel) setSize(w, h int) {
	d.width = w
	d.height = h
}

func (d todayModel) isRunning() bool       { return d.tracker.running() }
func (d todayModel) isPaused() bool        { return d.tracker.paused() }
func (d todayModel) elapsedSeconds() int64 { return d.tracker.elapsedSeconds() }
func (d todayModel) trackedTitle() string  { return d.tracker.taskTitle }

type todayDataMsg struct {
	todayTasks  []store.Task
	overdue     []store.Task
	occurrences []store.Occurrence
	occTasks    map[int64]store.Task
}

func (d todayModel) loadData() tea.Cmd {
	return func() tea.Msg {
		now := time.Now()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

		incomplete := false
		todayTasks, _ := d.store.ListTasks(store.TaskFilter{Date: &today, Completed: &incomplete})

		all, _ := d.store.ListTasks(store.TaskFilter{Completed: &incomplete})
		var overdue []store.Task
		for _, t := range all {
			if t.IsOverdue(now) {
				overdue = append(overdue, t)
			}
		}

		occs, _ := d.store.OccurrencesByDateRange(today, today)
		occTasks := make(map[int64]store.Task)
		for _, o := range occs {
			if _, ok := occTasks[o.TaskID]; !ok {
				if t, err := d.store.GetTask(o.TaskID); err == nil {
					occTasks[o.TaskID] = *t
				}
			}
		}

		return todayDataMsg{
			todayTasks:  todayTasks,
			overdue:     overdue,
			occurrences: occs,
			occTasks:    occTasks,
		}
	}
}

func (d todayModel) update(msg tea.Msg) (todayModel, tea.Cmd) {
	switch msg := msg.(type) {
	case todayDataMsg:
		d.todayTasks = msg.todayTasks
		d.overdue = msg.overdue
		d.occurrences = msg.occurrences
		d.occTasks = msg.occTasks
		if d.cursor >= d.rowCount() {
			d.cursor = max(0, d.rowCount()-1)
		}
		return d, nil

	case tickMsg:
		d.tracker.tick()
		return d, nil

	case trackRequestMsg:
		return d.startTracking(msg.task)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if d.cursor > 0 {
				d.cursor--
			}
		case key.Matches(msg, keys.Down):
			if d.cursor < d.rowCount()-1 {
				d.cursor++
			}
		case key.Matches(msg, keys.Toggle):
			return d.completeSelected()
		case key.Matches(msg, keys.Track):
			if t, ok := d.selectedTask(); ok {
				return d.startTracking(t)
			}
		case key.Matches(msg, keys.Pause):
			if err := d.tracker.toggle(); err != nil {
				return d, errStatus(err)
			}
			return d, nil
		case key.Matches(msg, keys.Stop):
			if !d.tracker.running() {
				return d, nil
			}
			if err := d.tracker.stop(); err != nil {
				return d, errStatus(err)
			}
			return d, tea.Batch(
				d.loadData(),
				func() tea.Msg { return trackingStoppedMsg{} },
			)
		}
	}
	return d, nil
}

// Rows are the today list followed by the day's occurrences.
func (d todayModel) rowCount() int {
	return len(d.todayTasks) + len(d.occurrences)
}

func (d todayModel) selectedTask() (store.Task, bool) {
	if d.cursor < len(d.todayTasks) {
		return d.todayTasks[d.cursor], true
	}
	i := d.cursor - len(d.todayTasks)
	if i < len(d.occurrences) {
		if t, ok := d.occTasks[d.occurrences[i].TaskID]; ok {
			return t, true
		}
	}
	return store.Task{}, false
}

func (d todayModel) completeSelected() (todayModel, tea.Cmd) {
	if d.cursor < len(d.todayTasks) {
		id := d.todayTasks[d.cursor].ID
		toggled, err := d.store.ToggleCompletion(id)
		if err != nil {
			return d, errStatus(err)
		}
		if toggled.Completed {
			return d, tea.Batch(d.loadData(), settledCmd(id))
		}
		return d, d.loadData()
	}
	i := d.cursor - len(d.todayTasks)
	if i < len(d.occurrences) {
		occ := d.occurrences[i]
		if occ.Completed {
			return d, nil
		}
		// Bank the task's tracked minutes against this occurrence when the
		// timer for it is running.
		var minutes *int
		if d.tracker.running() && d.tracker.session.TaskID == occ.TaskID {
			n := int(d.tracker.elapsedSeconds() / 60)
			minutes = &n
		}
		if err := d.store.CompleteOccurrence(occ.ID, minutes); err != nil {
			return d, errStatus(err)
		}
		return d, d.loadData()
	}
	return d, nil
}

func (d todayModel) startTracking(t store.Task) (todayModel, tea.Cmd) {
	if err := d.tracker.start(t); err != nil {
		return d, errStatus(err)
	}
	sess := d.tracker.session
	return d, func() tea.Msg { return trackingStartedMsg{session: sess} }
}

func (d todayModel) view() string {
	if d.width < 20 {
		return "Terminal too small"
	}
	w := d.width - 4

	timerPanel := d.renderTimerPanel(w)
	listPanel := d.renderTodayPanel(w)
	overduePanel := d.renderOverduePanel(w)

	return lipgloss.JoinVertical(lipgloss.Left, timerPanel, listPanel, overduePanel)
}

func (d todayModel) renderTimerPanel(w int) string {
	if d.tracker.running() {
		timeStr := formatSeconds(d.tracker.elapsedSeconds())

		var timeDisplay, indicator string
		if d.tracker.paused() {
			timeDisplay = timerPausedStyle.Width(w - 6).Render(timeStr)
			indicator = warningStyle.Render("⏸  PAUSED")
		} else {
			timeDisplay = timerRunningStyle.Width(w - 6).Render(timeStr)
			indicator = successStyle.Render("●  TRACKING")
		}
		taskLine := highlightStyle.Render(d.tracker.taskTitle)

		content := lipgloss.JoinVertical(lipgloss.Center, timeDisplay, indicator, taskLine)
		return activePanelStyle.Width(w).Render(content)
	}

	timeDisplay := timerStyle.Width(w - 6).Render("00:00:00")
	indicator := mutedStyle.Render("■  IDLE")
	hint := mutedStyle.Render("Select a task and press s to start tracking")

	content := lipgloss.JoinVertical(lipgloss.Center, timeDisplay, indicator, hint)
	return panelStyle.Width(w).Render(content)
}

func (d todayModel) renderTodayPanel(w int) string {
	title := titleStyle.Render("Today") + "  " +
		mutedStyle.Render(time.Now().Format("Mon, Jan 02"))

	if d.rowCount() == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title, "", mutedStyle.Render("Nothing scheduled for today."))
		return panelStyle.Width(w).Render(content)
	}

	var rows []string
	rows = append(rows, title, "")

	for i, t := range d.todayTasks {
		cursor, style := "  ", normalItemStyle
		if i == d.cursor {
			cursor, style = "> ", selectedItemStyle
		}
		prio := priorityStyle(t.Priority).Render(priorityLabel(t.Priority))
		timePart := ""
		if t.DueTime != nil {
			timePart = mutedStyle.Render("  " + *t.DueTime)
		}
		rows = append(rows, fmt.Sprintf("%s[ ] %s %s%s", cursor, prio, style.Render(t.Title), timePart))
	}

	for i, o := range d.occurrences {
		idx := len(d.todayTasks) + i
		cursor, style := "  ", normalItemStyle
		if idx == d.cursor {
			cursor, style = "> ", selectedItemStyle
		}
		check := "[ ]"
		name := "?"
		if t, ok := d.occTasks[o.TaskID]; ok {
			name = t.Title
		}
		if o.Completed {
			check = "[x]"
			style = doneStyle
		}
		rows = append(rows, fmt.Sprintf("%s%s ↻  %s", cursor, check, style.Render(name)))
	}

	rows = append(rows, "", mutedStyle.Render("  space: done  s: track  p: pause  x: stop"))
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (d todayModel) renderOverduePanel(w int) string {
	if len(d.overdue) == 0 {
		return ""
	}
	var rows []string
	rows = append(rows, overdueStyle.Render(fmt.Sprintf("Overdue (%d)", len(d.overdue))))
	shown := min(len(d.overdue), 5)
	for _, t := range d.overdue[:shown] {
		rows = append(rows, fmt.Sprintf("  %s %s  %s",
			priorityStyle(t.Priority).Render(priorityLabel(t.Priority)),
			t.Title,
			mutedStyle.Render(formatDue(t)),
		))
	}
	if len(d.overdue) > shown {
		rows = append(rows, mutedStyle.Render(fmt.Sprintf("  …and %d more", len(d.overdue)-shown)))
	}
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
