package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"tasker/internal/recur"
	"tasker/internal/schedule"
	"tasker/internal/store"
)

type taskListFilter int

const (
	filterPending taskListFilter = iota
	filterAll
	filterOverdue
	filterDone
)

var taskFilterNames = []string{"Pending", "All", "Overdue", "Done"}

type tasksModel struct {
	store *store.Store
	mat   *schedule.Materializer

	width  int
	height int

	tasks      []store.Task
	categories map[int64]store.Category
	cursor     int
	filter     taskListFilter

	searching bool
	search    textinput.Model
	query     string

	formActive bool
	form       *huh.Form
	editingID  int64 // 0 = creating

	// Form field pointers (survive value copies)
	formTitle    *string
	formDesc     *string
	formDueDate  *string
	formDueTime  *string
	formEstimate *string
	formPriority *string
	formCats     *[]int64
	formRepeat   *string
	formWeekdays *string
	formInterval *string
	formEndDate  *string
	formReminder *bool
	formOffset   *string
}

func newTasksModel(s *store.Store, mat *schedule.Materializer) tasksModel {
	search := textinput.New()
	search.Placeholder = "search title or description"
	search.CharLimit = 80

	title, desc, dueDate, dueTime, estimate := "", "", "", "", ""
	priority, repeat, weekdays, interval, endDate, offset := "", "", "", "", "", ""
	reminder := false
	cats := []int64{}

	return tasksModel{
		store:        s,
		mat:          mat,
		categories:   make(map[int64]store.Category),
		search:       search,
		formTitle:    &title,
		formDesc:     &desc,
		formDueDate:  &dueDate,
		formDueTime:  &dueTime,
		formEstimate: &estimate,
		formPriority: &priority,
		formCats:     &cats,
		formRepeat:   &repeat,
		formWeekdays: &weekdays,
		formInterval: &interval,
		formEndDate:  &endDate,
		formReminder: &reminder,
		formOffset:   &offset,
	}
}

func (m *tasksModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

type tasksDataMsg struct {
	tasks      []store.Task
	categories map[int64]store.Category
}

// trackRequestMsg asks the app to start tracking the given task.
type trackRequestMsg struct {
	task store.Task
}

func (m tasksModel) refresh() tea.Cmd {
	filter := m.filter
	query := m.query
	return func() tea.Msg {
		f := store.TaskFilter{Search: query}
		switch filter {
		case filterPending, filterOverdue:
			incomplete := false
			f.Completed = &incomplete
		case filterDone:
			done := true
			f.Completed = &done
		}
		tasks, _ := m.store.ListTasks(f)
		if filter == filterOverdue {
			now := time.Now()
			overdue := tasks[:0]
			for _, t := range tasks {
				if t.IsOverdue(now) {
					overdue = append(overdue, t)
				}
			}
			tasks = overdue
		}

		cats, _ := m.store.ListCategories()
		byID := make(map[int64]store.Category, len(cats))
		for _, c := range cats {
			byID[c.ID] = c
		}
		return tasksDataMsg{tasks: tasks, categories: byID}
	}
}

func (m tasksModel) update(msg tea.Msg) (tasksModel, tea.Cmd) {
	if m.formActive && m.form != nil {
		return m.updateForm(msg)
	}

	switch msg := msg.(type) {
	case tasksDataMsg:
		m.tasks = msg.tasks
		m.categories = msg.categories
		if m.cursor >= len(m.tasks) {
			m.cursor = max(0, len(m.tasks)-1)
		}
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m tasksModel) updateSearch(msg tea.KeyMsg) (tasksModel, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searching = false
		m.query = m.search.Value()
		return m, m.refresh()
	case "esc":
		m.searching = false
		m.search.SetValue("")
		m.query = ""
		return m, m.refresh()
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m tasksModel) updateList(msg tea.KeyMsg) (tasksModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.tasks)-1 {
			m.cursor++
		}
	case key.Matches(msg, keys.Filter):
		m.filter = (m.filter + 1) % 4
		m.cursor = 0
		return m, m.refresh()
	case key.Matches(msg, keys.Search):
		m.searching = true
		m.search.Focus()
		return m, textinput.Blink
	case key.Matches(msg, keys.Toggle):
		if len(m.tasks) > 0 {
			id := m.tasks[m.cursor].ID
			toggled, err := m.store.ToggleCompletion(id)
			if err != nil {
				return m, errStatus(err)
			}
			if toggled.Completed {
				return m, tea.Batch(m.refresh(), settledCmd(id))
			}
			return m, m.refresh()
		}
	case key.Matches(msg, keys.New):
		return m.showForm(nil)
	case key.Matches(msg, keys.Edit):
		if len(m.tasks) > 0 {
			t := m.tasks[m.cursor]
			return m.showForm(&t)
		}
	case key.Matches(msg, keys.Delete):
		if len(m.tasks) > 0 {
			id := m.tasks[m.cursor].ID
			if err := m.store.DeleteTask(id); err != nil {
				return m, errStatus(err)
			}
			return m, tea.Batch(m.refresh(), settledCmd(id))
		}
	case key.Matches(msg, keys.Track):
		if len(m.tasks) > 0 {
			t := m.tasks[m.cursor]
			return m, func() tea.Msg { return trackRequestMsg{task: t} }
		}
	}
	return m, nil
}

func errStatus(err error) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{text: fmt.Sprintf("Error: %v", err), isError: true}
	}
}

func (m tasksModel) showForm(t *store.Task) (tasksModel, tea.Cmd) {
	if t == nil {
		*m.formTitle, *m.formDesc = "", ""
		*m.formDueDate, *m.formDueTime, *m.formEstimate = "", "", ""
		*m.formPriority = string(store.PriorityNone)
		*m.formCats = nil
		*m.formRepeat = string(recur.None)
		*m.formWeekdays, *m.formInterval, *m.formEndDate = "", "", ""
		*m.formReminder = false
		*m.formOffset = ""
		m.editingID = 0
	} else {
		*m.formTitle = t.Title
		*m.formDesc = t.Description
		*m.formDueDate, *m.formDueTime = "", ""
		if t.DueDate != nil {
			*m.formDueDate = t.DueDate.Format(time.DateOnly)
		}
		if t.DueTime != nil {
			*m.formDueTime = *t.DueTime
		}
		*m.formEstimate = ""
		if t.EstimatedMinutes != nil {
			*m.formEstimate = strconv.Itoa(*t.EstimatedMinutes)
		}
		*m.formPriority = string(t.Priority)
		*m.formCats = append([]int64(nil), t.CategoryIDs...)
		*m.formRepeat = string(t.Repeat.Type)
		*m.formWeekdays = recur.EncodeWeekdays(t.Repeat.Weekdays)
		*m.formInterval = ""
		if t.Repeat.Interval > 0 {
			*m.formInterval = strconv.Itoa(t.Repeat.Interval)
		}
		*m.formEndDate = ""
		if t.Repeat.EndDate != nil {
			*m.formEndDate = t.Repeat.EndDate.Format(time.DateOnly)
		}
		*m.formReminder = t.ReminderEnabled
		*m.formOffset = ""
		if t.ReminderOffsetMinutes != nil {
			*m.formOffset = strconv.Itoa(*t.ReminderOffsetMinutes)
		}
		m.editingID = t.ID
	}

	priorityOptions := []huh.Option[string]{
		huh.NewOption("None", string(store.PriorityNone)),
		huh.NewOption("Low", string(store.PriorityLow)),
		huh.NewOption("Medium", string(store.PriorityMedium)),
		huh.NewOption("High", string(store.PriorityHigh)),
	}
	repeatOptions := []huh.Option[string]{
		huh.NewOption("None", string(recur.None)),
		huh.NewOption("Daily", string(recur.Daily)),
		huh.NewOption("Weekly", string(recur.Weekly)),
		huh.NewOption("Monthly", string(recur.Monthly)),
		huh.NewOption("Custom weekdays", string(recur.CustomDays)),
		huh.NewOption("Every N days", string(recur.EveryNDays)),
		huh.NewOption("Biweekly (odd weeks)", string(recur.BiweeklyOdd)),
		huh.NewOption("Biweekly (even weeks)", string(recur.BiweeklyEven)),
	}
	catOptions := m.categoryOptions()

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Title").Value(m.formTitle),
			huh.NewText().Title("Description").Value(m.formDesc).Lines(3),
			huh.NewSelect[string]().Title("Priority").Options(priorityOptions...).Value(m.formPriority),
			huh.NewMultiSelect[int64]().Title("Categories").Options(catOptions...).Value(m.formCats),
		).Title("Task"),
		huh.NewGroup(
			huh.NewInput().Title("Due date (YYYY-MM-DD)").Value(m.formDueDate),
			huh.NewInput().Title("Due time (HH:MM)").Value(m.formDueTime),
			huh.NewInput().Title("Estimate (minutes)").Value(m.formEstimate),
			huh.NewConfirm().Title("Reminder").Value(m.formReminder),
			huh.NewInput().Title("Reminder offset (minutes)").Value(m.formOffset),
		).Title("Schedule"),
		huh.NewGroup(
			huh.NewSelect[string]().Title("Repeat").Options(repeatOptions...).Value(m.formRepeat),
			huh.NewInput().Title("Weekdays (e.g. MON,WED,FRI)").Value(m.formWeekdays),
			huh.NewInput().Title("Interval (days)").Value(m.formInterval),
			huh.NewInput().Title("Repeat until (YYYY-MM-DD)").Value(m.formEndDate),
		).Title("Recurrence"),
	).WithShowHelp(true).WithShowErrors(true)

	m.formActive = true
	return m, m.form.Init()
}

func (m tasksModel) categoryOptions() []huh.Option[int64] {
	cats, _ := m.store.ListCategories()
	opts := make([]huh.Option[int64], 0, len(cats))
	for _, c := range cats {
		label := c.Name
		if c.ParentID != nil {
			if parent, ok := m.categories[*c.ParentID]; ok {
				label = parent.Name + " / " + c.Name
			}
		}
		opts = append(opts, huh.NewOption(label, c.ID))
	}
	return opts
}

func (m tasksModel) updateForm(msg tea.Msg) (tasksModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			m.formActive = false
			m.form = nil
			return m, nil
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.formActive = false
		return m.saveForm()
	}
	return m, cmd
}

func (m tasksModel) saveForm() (tasksModel, tea.Cmd) {
	task, err := m.taskFromForm()
	if err != nil {
		return m, errStatus(err)
	}

	var saved *store.Task
	if m.editingID == 0 {
		saved, err = m.store.CreateTask(*task)
	} else {
		task.ID = m.editingID
		err = m.store.UpdateTask(*task)
		if err == nil {
			saved, err = m.store.GetTask(m.editingID)
		}
	}
	if err != nil {
		return m, errStatus(err)
	}

	// A changed or new rule reshapes the upcoming occurrence rows.
	if saved.Repeat.Repeats() {
		if err := m.mat.RuleChanged(*saved, time.Now()); err != nil {
			return m, errStatus(err)
		}
	}

	return m, tea.Batch(
		m.refresh(),
		func() tea.Msg { return taskSavedMsg{task: saved} },
	)
}

func (m tasksModel) taskFromForm() (*store.Task, error) {
	task := &store.Task{
		Title:       *m.formTitle,
		Description: *m.formDesc,
		CategoryIDs: append([]int64(nil), *m.formCats...),
	}

	p, err := store.ParsePriority(*m.formPriority)
	if err != nil {
		return nil, err
	}
	task.Priority = p

	if v := strings.TrimSpace(*m.formDueDate); v != "" {
		d, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return nil, fmt.Errorf("due date: %w", err)
		}
		task.DueDate = &d
	}
	if v := strings.TrimSpace(*m.formDueTime); v != "" {
		task.DueTime = &v
	}
	if v := strings.TrimSpace(*m.formEstimate); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("estimate must be a non-negative number")
		}
		task.EstimatedMinutes = &n
	}

	rt, err := recur.ParseType(*m.formRepeat)
	if err != nil {
		return nil, err
	}
	task.Repeat.Type = rt
	if v := strings.TrimSpace(*m.formWeekdays); v != "" {
		days, err := recur.ParseWeekdays(v)
		if err != nil {
			return nil, err
		}
		task.Repeat.Weekdays = days
	}
	if v := strings.TrimSpace(*m.formInterval); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("interval must be a number")
		}
		task.Repeat.Interval = n
	}
	if v := strings.TrimSpace(*m.formEndDate); v != "" {
		d, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return nil, fmt.Errorf("repeat end date: %w", err)
		}
		task.Repeat.EndDate = &d
	}

	task.ReminderEnabled = *m.formReminder
	if v := strings.TrimSpace(*m.formOffset); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("reminder offset must be a non-negative number")
		}
		task.ReminderOffsetMinutes = &n
	}

	return task, nil
}

func (m tasksModel) view() string {
	w := m.width - 4

	if m.formActive && m.form != nil {
		title := titleStyle.Render("New Task")
		if m.editingID != 0 {
			title = titleStyle.Render("Edit Task")
		}
		content := lipgloss.JoinVertical(lipgloss.Left, title, "", m.form.View())
		return panelStyle.Width(w).Render(content)
	}

	header := titleStyle.Render("Tasks") + "  " + m.renderFilterTabs()
	var rows []string
	rows = append(rows, header)

	if m.searching {
		rows = append(rows, "", m.search.View())
	} else if m.query != "" {
		rows = append(rows, "", mutedStyle.Render("  search: "+m.query+"  (/ to change, esc clears)"))
	}
	rows = append(rows, "")

	if len(m.tasks) == 0 {
		rows = append(rows, mutedStyle.Render("No tasks here. Press n to create one."))
	} else {
		now := time.Now()
		visible := m.visibleRange()
		for i := visible[0]; i < visible[1]; i++ {
			rows = append(rows, m.renderTaskRow(m.tasks[i], i == m.cursor, now))
		}
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  space: done  n: new  e: edit  d: delete  s: track  f: filter  /: search"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (m tasksModel) renderFilterTabs() string {
	var tabs []string
	for i, name := range taskFilterNames {
		if taskListFilter(i) == m.filter {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)
}

// visibleRange keeps the cursor on screen for long lists.
func (m tasksModel) visibleRange() [2]int {
	limit := m.height - 10
	if limit < 5 {
		limit = 5
	}
	if len(m.tasks) <= limit {
		return [2]int{0, len(m.tasks)}
	}
	start := m.cursor - limit/2
	if start < 0 {
		start = 0
	}
	end := start + limit
	if end > len(m.tasks) {
		end = len(m.tasks)
		start = end - limit
	}
	return [2]int{start, end}
}

func (m tasksModel) renderTaskRow(t store.Task, selected bool, now time.Time) string {
	cursor := "  "
	style := normalItemStyle
	if selected {
		cursor = "> "
		style = selectedItemStyle
	}

	check := "[ ]"
	if t.Completed {
		check = "[x]"
		style = doneStyle
	}

	prio := priorityStyle(t.Priority).Render(priorityLabel(t.Priority))

	due := formatDue(t)
	if due != "" && t.IsOverdue(now) {
		due = overdueStyle.Render(due)
	} else if due != "" {
		due = mutedStyle.Render(due)
	}

	title := t.Title
	if t.IsRepeating() {
		title += " ↻"
	}

	var catNames []string
	for _, cid := range t.CategoryIDs {
		if c, ok := m.categories[cid]; ok {
			catNames = append(catNames, c.Name)
		}
	}
	catPart := ""
	if len(catNames) > 0 {
		catPart = mutedStyle.Render(" [" + strings.Join(catNames, ", ") + "]")
	}

	return fmt.Sprintf("%s%s %s %s%s  %s", cursor, check, prio, style.Render(title), catPart, due)
}
