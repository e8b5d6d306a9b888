package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"tasker/internal/recur"
	"tasker/internal/schedule"
	"tasker/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func ptr[T any](v T) *T { return &v }

// ============================================================
// Tracking model
// ============================================================

func TestTrackingStartStop(t *testing.T) {
	s := newTestStore(t)
	task, _ := s.CreateTask(store.Task{Title: "Write docs"})

	tm := newTrackingModel(s)
	if tm.running() {
		t.Fatal("tracker should start idle")
	}

	if err := tm.start(*task); err != nil {
		t.Fatal(err)
	}
	if !tm.running() || tm.paused() {
		t.Fatal("tracker should be running after start")
	}
	if tm.taskTitle != "Write docs" {
		t.Fatalf("task title = %q", tm.taskTitle)
	}

	if err := tm.stop(); err != nil {
		t.Fatal(err)
	}
	if tm.running() {
		t.Fatal("tracker should be idle after stop")
	}

	// The session landed in the store as completed.
	sessions, _ := s.ListSessionsByTask(task.ID)
	if len(sessions) != 1 || sessions[0].Status != store.StatusCompleted {
		t.Fatalf("sessions: %+v", sessions)
	}
}

func TestTrackingStopWhenIdle(t *testing.T) {
	s := newTestStore(t)
	tm := newTrackingModel(s)
	if err := tm.stop(); err != nil {
		t.Fatal(err)
	}
}

func TestTrackingToggle(t *testing.T) {
	s := newTestStore(t)
	task, _ := s.CreateTask(store.Task{Title: "Focus"})

	tm := newTrackingModel(s)
	if err := tm.start(*task); err != nil {
		t.Fatal(err)
	}

	if err := tm.toggle(); err != nil { // running -> paused
		t.Fatal(err)
	}
	if !tm.paused() {
		t.Fatal("toggle should pause")
	}

	if err := tm.toggle(); err != nil { // paused -> running
		t.Fatal(err)
	}
	if tm.paused() {
		t.Fatal("toggle should resume")
	}

	tm.stop()
}

func TestTrackingLoadActive(t *testing.T) {
	s := newTestStore(t)
	task, _ := s.CreateTask(store.Task{Title: "Carryover"})
	if _, err := s.StartSession(task.ID); err != nil {
		t.Fatal(err)
	}

	// A fresh tracker adopts the session persisted by a previous run.
	tm := newTrackingModel(s)
	if err := tm.loadActive(); err != nil {
		t.Fatal(err)
	}
	if !tm.running() || tm.taskTitle != "Carryover" {
		t.Fatalf("tracker did not adopt the active session: %+v", tm)
	}
}

func TestTrackingStartConflictSurfaces(t *testing.T) {
	s := newTestStore(t)
	a, _ := s.CreateTask(store.Task{Title: "first"})
	b, _ := s.CreateTask(store.Task{Title: "second"})

	tm := newTrackingModel(s)
	if err := tm.start(*a); err != nil {
		t.Fatal(err)
	}
	if err := tm.start(*b); err == nil {
		t.Fatal("second start should fail while a session is active")
	}
	if tm.taskTitle != "first" {
		t.Fatal("failed start must not clobber the running session")
	}
}

// ============================================================
// Tasks view
// ============================================================

func newTestTasksModel(t *testing.T) (tasksModel, *store.Store) {
	t.Helper()
	s := newTestStore(t)
	m := newTasksModel(s, schedule.New(s))
	m.setSize(100, 40)
	return m, s
}

func TestTasksRefreshFilters(t *testing.T) {
	m, s := newTestTasksModel(t)
	a, _ := s.CreateTask(store.Task{Title: "open"})
	s.CreateTask(store.Task{Title: "done"})
	done, _ := s.ListTasks(store.TaskFilter{Search: "done"})
	s.ToggleCompletion(done[0].ID)

	msg := m.refresh()()
	data, ok := msg.(tasksDataMsg)
	if !ok {
		t.Fatalf("unexpected msg %T", msg)
	}
	if len(data.tasks) != 1 || data.tasks[0].ID != a.ID {
		t.Fatalf("pending filter: %+v", data.tasks)
	}

	m.filter = filterDone
	data = m.refresh()().(tasksDataMsg)
	if len(data.tasks) != 1 || data.tasks[0].Title != "done" {
		t.Fatalf("done filter: %+v", data.tasks)
	}

	m.filter = filterAll
	data = m.refresh()().(tasksDataMsg)
	if len(data.tasks) != 2 {
		t.Fatalf("all filter: %+v", data.tasks)
	}
}

func TestTasksOverdueFilter(t *testing.T) {
	m, s := newTestTasksModel(t)
	past := time.Now().AddDate(0, 0, -3)
	s.CreateTask(store.Task{Title: "late", DueDate: &past})
	s.CreateTask(store.Task{Title: "undated"})

	m.filter = filterOverdue
	data := m.refresh()().(tasksDataMsg)
	if len(data.tasks) != 1 || data.tasks[0].Title != "late" {
		t.Fatalf("overdue filter: %+v", data.tasks)
	}
}

func TestTasksSearchQuery(t *testing.T) {
	m, s := newTestTasksModel(t)
	s.CreateTask(store.Task{Title: "buy milk"})
	s.CreateTask(store.Task{Title: "call mom"})

	m.filter = filterAll
	m.query = "milk"
	data := m.refresh()().(tasksDataMsg)
	if len(data.tasks) != 1 || data.tasks[0].Title != "buy milk" {
		t.Fatalf("search: %+v", data.tasks)
	}
}

func TestTaskFromFormParsing(t *testing.T) {
	m, _ := newTestTasksModel(t)
	*m.formTitle = "planned"
	*m.formPriority = "HIGH"
	*m.formDueDate = "2024-08-01"
	*m.formDueTime = "14:00"
	*m.formEstimate = "90"
	*m.formRepeat = "CUSTOM_DAYS"
	*m.formWeekdays = "MON,FRI"
	*m.formReminder = true
	*m.formOffset = "10"

	task, err := m.taskFromForm()
	if err != nil {
		t.Fatal(err)
	}
	if task.Priority != store.PriorityHigh {
		t.Fatalf("priority = %s", task.Priority)
	}
	if task.DueDate == nil || task.DueDate.Format(time.DateOnly) != "2024-08-01" {
		t.Fatalf("due date = %v", task.DueDate)
	}
	if task.Repeat.Type != recur.CustomDays || len(task.Repeat.Weekdays) != 2 {
		t.Fatalf("rule = %+v", task.Repeat)
	}
	if task.EstimatedMinutes == nil || *task.EstimatedMinutes != 90 {
		t.Fatalf("estimate = %v", task.EstimatedMinutes)
	}
	if !task.ReminderEnabled || *task.ReminderOffsetMinutes != 10 {
		t.Fatalf("reminder = %+v", task)
	}
}

func TestTaskFromFormRejectsBadInput(t *testing.T) {
	m, _ := newTestTasksModel(t)
	*m.formTitle = "x"
	*m.formDueDate = "tomorrow"
	if _, err := m.taskFromForm(); err == nil {
		t.Fatal("bad due date should be rejected")
	}

	*m.formDueDate = ""
	*m.formEstimate = "-5"
	if _, err := m.taskFromForm(); err == nil {
		t.Fatal("negative estimate should be rejected")
	}
}

func TestTasksViewRendersRows(t *testing.T) {
	m, s := newTestTasksModel(t)
	due := time.Now().AddDate(0, 0, 1)
	s.CreateTask(store.Task{Title: "visible task", DueDate: &due, Priority: store.PriorityHigh})

	data := m.refresh()().(tasksDataMsg)
	m, _ = m.update(data)

	out := m.view()
	if !strings.Contains(out, "visible task") {
		t.Fatal("view should contain the task title")
	}
}

// ============================================================
// Today view
// ============================================================

func TestTodayLoadData(t *testing.T) {
	s := newTestStore(t)
	d := newTodayModel(s)

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	past := today.AddDate(0, 0, -2)
	s.CreateTask(store.Task{Title: "due today", DueDate: &today})
	s.CreateTask(store.Task{Title: "way late", DueDate: &past})

	rec, _ := s.CreateTask(store.Task{
		Title: "daily habit", DueDate: &today,
		Repeat: recur.Rule{Type: recur.Daily},
	})
	s.InsertMissingOccurrences(rec.ID, []time.Time{today})

	msg := d.loadData()().(todayDataMsg)
	if len(msg.todayTasks) != 2 { // "due today" and "daily habit"
		t.Fatalf("today tasks: %+v", msg.todayTasks)
	}
	if len(msg.overdue) != 1 || msg.overdue[0].Title != "way late" {
		t.Fatalf("overdue: %+v", msg.overdue)
	}
	if len(msg.occurrences) != 1 {
		t.Fatalf("occurrences: %+v", msg.occurrences)
	}
	if msg.occTasks[rec.ID].Title != "daily habit" {
		t.Fatal("occurrence task lookup missing")
	}
}

func TestTodayCompleteOccurrence(t *testing.T) {
	s := newTestStore(t)
	d := newTodayModel(s)
	d.setSize(100, 40)

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	rec, _ := s.CreateTask(store.Task{Title: "habit", Repeat: recur.Rule{Type: recur.Daily}})
	s.InsertMissingOccurrences(rec.ID, []time.Time{today})

	msg := d.loadData()().(todayDataMsg)
	d, _ = d.update(msg)

	// The only row is the occurrence.
	d.cursor = 0
	d, _ = d.completeSelected()

	occs, _ := s.ListOccurrences(rec.ID)
	if len(occs) != 1 || !occs[0].Completed {
		t.Fatalf("occurrence not completed: %+v", occs)
	}
	// The parent task itself stays incomplete.
	got, _ := s.GetTask(rec.ID)
	if got.Completed {
		t.Fatal("completing an occurrence must not complete the task")
	}
}

// ============================================================
// App
// ============================================================

func newTestApp(t *testing.T) App {
	t.Helper()
	s := newTestStore(t)
	app := NewApp(s, schedule.New(s))
	m, _ := app.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return m.(App)
}

func TestAppTabSwitching(t *testing.T) {
	app := newTestApp(t)
	if app.activeView != viewTasks {
		t.Fatal("should start on tasks")
	}

	m, _ := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'2'}})
	app = m.(App)
	if app.activeView != viewToday {
		t.Fatalf("view = %d, want today", app.activeView)
	}

	m, _ = app.Update(tea.KeyMsg{Type: tea.KeyTab})
	app = m.(App)
	if app.activeView != viewCategories {
		t.Fatalf("tab should advance to categories, got %d", app.activeView)
	}
}

func TestAppStatusMessages(t *testing.T) {
	app := newTestApp(t)

	m, _ := app.Update(statusMsg{text: "hello"})
	app = m.(App)
	if app.status != "hello" {
		t.Fatalf("status = %q", app.status)
	}

	due := time.Now()
	m, _ = app.Update(ReminderMsg{Task: store.Task{Title: "standup", DueDate: &due}, At: due})
	app = m.(App)
	if !strings.Contains(app.status, "standup") {
		t.Fatalf("reminder status = %q", app.status)
	}
}

func TestAppExportPicker(t *testing.T) {
	app := newTestApp(t)

	m, _ := app.Update(tea.KeyMsg{Type: tea.KeyCtrlE})
	app = m.(App)
	if !app.exportPicking {
		t.Fatal("ctrl+e should open the export picker")
	}

	m, _ = app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	app = m.(App)
	if app.exportPicking {
		t.Fatal("esc should close the picker")
	}
}

func TestAppViewRenders(t *testing.T) {
	app := newTestApp(t)
	out := app.View()
	if !strings.Contains(out, "tasker") {
		t.Fatal("header should name the app")
	}
	for _, name := range viewNames {
		if !strings.Contains(out, name) {
			t.Fatalf("missing tab %q", name)
		}
	}
}

func TestNewAppReportsSessionResumeFailure(t *testing.T) {
	s := newTestStore(t)
	s.Close()

	app := NewApp(s, schedule.New(s))
	if !strings.Contains(app.status, "resuming session") {
		t.Fatalf("status = %q", app.status)
	}
}

// collectMsgs flattens a command (including batches) into its messages.
func collectMsgs(t *testing.T, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collectMsgs(t, c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func settledIn(msgs []tea.Msg) (int64, bool) {
	for _, msg := range msgs {
		if m, ok := msg.(taskSettledMsg); ok {
			return m.taskID, true
		}
	}
	return 0, false
}

func TestCompletingTaskSettlesReminder(t *testing.T) {
	m, s := newTestTasksModel(t)
	task, _ := s.CreateTask(store.Task{Title: "pay rent"})
	m.filter = filterAll
	m, _ = m.update(m.refresh()())

	m, cmd := m.update(tea.KeyMsg{Type: tea.KeySpace})
	if id, ok := settledIn(collectMsgs(t, cmd)); !ok || id != task.ID {
		t.Fatalf("completing should settle task %d, got (%d, %v)", task.ID, id, ok)
	}

	// Re-opening the task must not settle it again.
	m, _ = m.update(m.refresh()())
	_, cmd = m.update(tea.KeyMsg{Type: tea.KeySpace})
	if _, ok := settledIn(collectMsgs(t, cmd)); ok {
		t.Fatal("re-opening a task should not settle it")
	}
}

func TestDeletingTaskSettlesReminder(t *testing.T) {
	m, s := newTestTasksModel(t)
	task, _ := s.CreateTask(store.Task{Title: "old chore"})
	m.filter = filterAll
	m, _ = m.update(m.refresh()())

	_, cmd := m.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'d'}})
	if id, ok := settledIn(collectMsgs(t, cmd)); !ok || id != task.ID {
		t.Fatalf("deleting should settle task %d, got (%d, %v)", task.ID, id, ok)
	}
}

func TestTaskSettledCallsCancelReminder(t *testing.T) {
	app := newTestApp(t)
	var got int64
	app.CancelReminder = func(id int64) { got = id }

	app.Update(taskSettledMsg{taskID: 7})
	if got != 7 {
		t.Fatalf("canceled task = %d, want 7", got)
	}
}

// ============================================================
// Helpers
// ============================================================

func TestFormatSeconds(t *testing.T) {
	cases := []struct {
		secs int64
		want string
	}{
		{0, "00:00:00"},
		{59, "00:00:59"},
		{61, "00:01:01"},
		{3661, "01:01:01"},
	}
	for _, c := range cases {
		if got := formatSeconds(c.secs); got != c.want {
			t.Errorf("formatSeconds(%d) = %q, want %q", c.secs, got, c.want)
		}
	}
}

func TestFormatMinutes(t *testing.T) {
	if got := formatMinutes(45); got != "45m" {
		t.Errorf("formatMinutes(45) = %q", got)
	}
	if got := formatMinutes(135); got != "2h15m" {
		t.Errorf("formatMinutes(135) = %q", got)
	}
}

func TestFormatDue(t *testing.T) {
	d := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	task := store.Task{DueDate: &d, DueTime: ptr("14:30")}
	if got := formatDue(task); got != "Jun 10 14:30" {
		t.Errorf("formatDue = %q", got)
	}
	if got := formatDue(store.Task{}); got != "" {
		t.Errorf("dateless formatDue = %q", got)
	}
}
