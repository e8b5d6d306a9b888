package tui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"tasker/internal/store"
)

type settingsModel struct {
	store  *store.Store
	width  int
	height int

	settings   []store.Setting
	formActive bool
	form       *huh.Form

	// Form values as pointers (survive value copies)
	reminderOffset *string
	defaultDueTime *string
	windowDays     *string
	weekStart      *string
}

func newSettingsModel(s *store.Store) settingsModel {
	ro, ddt, wd, ws := "", "", "", ""
	return settingsModel{
		store:          s,
		reminderOffset: &ro,
		defaultDueTime: &ddt,
		windowDays:     &wd,
		weekStart:      &ws,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

type settingsDataMsg struct {
	settings []store.Setting
}

func (s settingsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		settings, _ := s.store.GetAllSettings()
		return settingsDataMsg{settings: settings}
	}
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	switch msg := msg.(type) {
	case settingsDataMsg:
		s.settings = msg.settings
		return s, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Enter), key.Matches(msg, keys.New):
			return s.showForm()
		}
	}
	return s, nil
}

func (s settingsModel) showForm() (settingsModel, tea.Cmd) {
	*s.reminderOffset = s.getVal("reminder_offset_minutes", "30")
	*s.defaultDueTime = s.getVal("default_due_time", "09:00")
	*s.windowDays = s.getVal("materialize_window_days", "60")
	*s.weekStart = s.getVal("week_start", "monday")

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Reminder offset (min before due)").Value(s.reminderOffset),
			huh.NewInput().Title("Default due time (HH:MM)").Value(s.defaultDueTime),
			huh.NewInput().Title("Recurrence window (days ahead)").Value(s.windowDays),
			huh.NewSelect[string]().Title("Week starts on").
				Options(
					huh.NewOption("Monday", "monday"),
					huh.NewOption("Sunday", "sunday"),
				).Value(s.weekStart),
		),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		s.saveSettings()
		return s, s.refresh()
	}

	return s, cmd
}

func (s settingsModel) saveSettings() {
	if _, err := strconv.Atoi(*s.reminderOffset); err == nil {
		s.store.SetSetting("reminder_offset_minutes", *s.reminderOffset)
	}
	s.store.SetSetting("default_due_time", *s.defaultDueTime)
	if _, err := strconv.Atoi(*s.windowDays); err == nil {
		s.store.SetSetting("materialize_window_days", *s.windowDays)
	}
	s.store.SetSetting("week_start", *s.weekStart)
}

func (s settingsModel) getVal(k, fallback string) string {
	v, err := s.store.GetSetting(k)
	if err != nil {
		return fallback
	}
	return v
}

func (s settingsModel) view() string {
	w := s.width - 4

	if s.formActive && s.form != nil {
		title := titleStyle.Render("Settings")
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", s.form.View()),
		)
	}

	title := titleStyle.Render("Settings")
	hint := mutedStyle.Render("Press enter to edit settings")

	var rows []string
	rows = append(rows, title, "")

	for _, setting := range s.settings {
		label := lipgloss.NewStyle().Width(28).Render(setting.Key)
		value := highlightStyle.Render(formatSettingValue(setting.Key, setting.Value))
		rows = append(rows, fmt.Sprintf("  %s %s", label, value))
	}

	rows = append(rows, "", hint)
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func formatSettingValue(k, v string) string {
	switch k {
	case "reminder_offset_minutes":
		return v + " min"
	case "materialize_window_days":
		return v + " days"
	}
	return v
}
