package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"tasker/internal/config"
	"tasker/internal/remind"
	"tasker/internal/schedule"
	"tasker/internal/store"
	"tasker/internal/tui"
)

func main() {
	dbFlag := flag.String("db", "", "path to the database file (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*dbFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}

	s, err := store.New(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening database: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()

	mat := schedule.New(s)
	if _, err := mat.MaterializeUpcoming(time.Now()); err != nil {
		fmt.Fprintf(os.Stderr, "error materializing occurrences: %v\n", err)
		os.Exit(1)
	}

	// Reminders surface in the status bar through the program's message loop,
	// and optionally through an external notify command.
	var p *tea.Program
	var notifier remind.Notifier = remind.NotifierFunc(func(task store.Task, at time.Time) {
		p.Send(tui.ReminderMsg{Task: task, At: at})
	})
	if cfg.NotifyCommand != "" {
		notifier = remind.Multi(notifier, remind.CommandNotifier(cfg.NotifyCommand))
	}
	scheduler := remind.New(s, notifier, time.Local)

	app := tui.NewApp(s, mat)
	app.CancelReminder = scheduler.Cancel
	p = tea.NewProgram(app, tea.WithAltScreen())

	if err := scheduler.Start(time.Duration(cfg.ReminderPollSeconds) * time.Second); err != nil {
		fmt.Fprintf(os.Stderr, "error starting reminders: %v\n", err)
		os.Exit(1)
	}
	defer scheduler.Stop()

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
