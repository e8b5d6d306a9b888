package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tasker/internal/export"
	"tasker/internal/schedule"
	"tasker/internal/store"
)

// App is the root Bubble Tea model.
type App struct {
	store  *store.Store
	mat    *schedule.Materializer
	width  int
	height int

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int

	tasks      tasksModel
	today      todayModel
	categories categoriesModel
	statistics statisticsModel
	settings   settingsModel

	help   help.Model
	status string

	// CancelReminder, when set, suppresses the pending reminder of a task
	// that was completed or deleted. main wires it to the scheduler.
	CancelReminder func(taskID int64)
}

func NewApp(s *store.Store, mat *schedule.Materializer) App {
	h := help.New()
	h.ShowAll = false

	app := App{
		store:      s,
		mat:        mat,
		activeView: viewTasks,
		tasks:      newTasksModel(s, mat),
		today:      newTodayModel(s),
		categories: newCategoriesModel(s),
		statistics: newStatisticsModel(s),
		settings:   newSettingsModel(s),
		help:       h,
	}
	// A session left running by a previous run resumes on the timer.
	if err := app.today.tracker.loadActive(); err != nil {
		app.status = fmt.Sprintf("Error resuming session: %v", err)
	}
	return app
}

func (a App) Init() tea.Cmd {
	return tea.Batch(
		a.tasks.refresh(),
		a.today.Init(),
		tickCmd(),
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.tasks.setSize(a.width, contentHeight)
		a.today.setSize(a.width, contentHeight)
		a.categories.setSize(a.width, contentHeight)
		a.statistics.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		return a, nil

	case tea.KeyMsg:
		// Export picker
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// If a child view is capturing input (form or search), delegate first.
		if a.isCapturing() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab1):
			a.activeView = viewTasks
			return a, a.tasks.refresh()
		case key.Matches(msg, keys.Tab2):
			a.activeView = viewToday
			return a, a.today.loadData()
		case key.Matches(msg, keys.Tab3):
			a.activeView = viewCategories
			return a, a.categories.refresh()
		case key.Matches(msg, keys.Tab4):
			a.activeView = viewStatistics
			return a, a.statistics.refresh()
		case key.Matches(msg, keys.Tab5):
			a.activeView = viewSettings
			return a, a.settings.refresh()
		case key.Matches(msg, keys.Tab):
			a.activeView = (a.activeView + 1) % 5
			return a, a.refreshCurrentView()
		}

	case tickMsg:
		cmds = append(cmds, tickCmd())
		// Ticks always reach the timer, whatever view is active.
		var cmd tea.Cmd
		a.today, cmd = a.today.update(msg)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
		return a, tea.Batch(cmds...)

	case trackRequestMsg:
		// Tracking can be requested from the task list; the today view owns
		// the timer.
		var cmd tea.Cmd
		a.today, cmd = a.today.update(msg)
		return a, cmd

	case trackingStartedMsg:
		a.status = "Tracking " + a.today.trackedTitle()
		return a, nil

	case trackingStoppedMsg:
		a.status = "Tracking stopped"
		return a, a.tasks.refresh()

	case taskSavedMsg:
		a.status = fmt.Sprintf("Saved %q", msg.task.Title)
		return a, nil

	case taskSettledMsg:
		if a.CancelReminder != nil {
			a.CancelReminder(msg.taskID)
		}
		return a, nil

	case statusMsg:
		a.status = msg.text
		return a, nil

	case ReminderMsg:
		a.status = fmt.Sprintf("⏰ %s is due %s", msg.Task.Title, formatDue(msg.Task))
		return a, nil

	case exportDoneMsg:
		a.status = "Exported to " + msg.path
		a.exportPicking = false
		return a, nil

	case importDoneMsg:
		a.status = fmt.Sprintf("Imported %d tasks, %d categories", msg.tasks, msg.categories)
		return a, tea.Batch(a.tasks.refresh(), a.categories.refresh())
	}

	return a.updateActiveView(msg)
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewTasks:
		a.tasks, cmd = a.tasks.update(msg)
	case viewToday:
		a.today, cmd = a.today.update(msg)
	case viewCategories:
		a.categories, cmd = a.categories.update(msg)
	case viewStatistics:
		a.statistics, cmd = a.statistics.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

func (a App) isCapturing() bool {
	switch a.activeView {
	case viewTasks:
		return a.tasks.formActive || a.tasks.searching
	case viewCategories:
		return a.categories.formActive
	case viewSettings:
		return a.settings.formActive
	}
	return false
}

func (a App) refreshCurrentView() tea.Cmd {
	switch a.activeView {
	case viewTasks:
		return a.tasks.refresh()
	case viewToday:
		return a.today.loadData()
	case viewCategories:
		return a.categories.refresh()
	case viewStatistics:
		return a.statistics.refresh()
	case viewSettings:
		return a.settings.refresh()
	}
	return nil
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewTasks:
		content = a.tasks.view()
	case viewToday:
		content = a.today.view()
	case viewCategories:
		content = a.categories.view()
	case viewStatistics:
		content = a.statistics.view()
	case viewSettings:
		content = a.settings.view()
	}

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := a.height - headerHeight - footerHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	if a.exportPicking {
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("tasker")
	gap := a.width - lipgloss.Width(title) - lipgloss.Width(tabRow) - 4
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		status = mutedStyle.Render(" " + a.status)
	}

	// Timer indicator in footer
	timerInfo := ""
	if a.today.isRunning() {
		elapsed := formatSeconds(a.today.elapsedSeconds())
		timerInfo = successStyle.Render(" ● " + elapsed)
		if a.today.isPaused() {
			timerInfo = warningStyle.Render(" ⏸ " + elapsed)
		}
	}

	left := footerStyle.Render(helpView)
	right := timerInfo + status

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

var exportFormats = []string{"JSON", "CSV", "Import JSON"}

func (a App) renderExportPicker() string {
	title := titleStyle.Render("Export / Import")
	var rows []string
	rows = append(rows, title, "")
	for i, f := range exportFormats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f))
	}
	rows = append(rows, "", mutedStyle.Render("  enter: run  esc: cancel"))

	w := a.width - 4
	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < len(exportFormats)-1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.runExport(a.exportCursor)
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

func (a App) runExport(choice int) tea.Cmd {
	return func() tea.Msg {
		home, _ := os.UserHomeDir()
		dateStr := time.Now().Format("2006-01-02")

		switch choice {
		case 0:
			path := filepath.Join(home, fmt.Sprintf("tasker-export-%s.json", dateStr))
			if err := export.WriteJSON(a.store, path, time.Now()); err != nil {
				return statusMsg{text: fmt.Sprintf("JSON error: %v", err), isError: true}
			}
			return exportDoneMsg{path: path}

		case 1:
			tasks, err := a.store.ListTasks(store.TaskFilter{})
			if err != nil {
				return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
			}
			cats, _ := a.store.ListCategories()
			byID := make(map[int64]store.Category, len(cats))
			for _, c := range cats {
				byID[c.ID] = c
			}
			path := filepath.Join(home, fmt.Sprintf("tasker-export-%s.csv", dateStr))
			if err := export.ToCSV(tasks, byID, path); err != nil {
				return statusMsg{text: fmt.Sprintf("CSV error: %v", err), isError: true}
			}
			return exportDoneMsg{path: path}

		default:
			path := filepath.Join(home, "tasker-import.json")
			nTasks, nCats, err := export.ImportJSON(a.store, path)
			if err != nil {
				return statusMsg{text: fmt.Sprintf("Import error: %v", err), isError: true}
			}
			return importDoneMsg{tasks: nTasks, categories: nCats}
		}
	}
}
