// Package remind fires due-task notifications off a periodic scan.
package remind

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"tasker/internal/store"
)

// DefaultPollInterval between reminder scans.
const DefaultPollInterval = 30 * time.Second

// staleCutoff drops reminders that were missed by more than a day, so an
// old database does not dump months of notifications on startup.
const staleCutoff = 24 * time.Hour

// Notifier receives fired reminders.
type Notifier interface {
	Notify(task store.Task, at time.Time)
}

// NotifierFunc adapts a plain function to the Notifier interface.
type NotifierFunc func(task store.Task, at time.Time)

func (f NotifierFunc) Notify(task store.Task, at time.Time) { f(task, at) }

// Scheduler scans incomplete tasks on a cron tick and notifies once per
// task-and-instant. Each reminder instant fires at most once for the
// scheduler's lifetime, no matter how many scans observe it.
type Scheduler struct {
	store    *store.Store
	notifier Notifier
	cron     *cron.Cron
	loc      *time.Location
	now      func() time.Time
	onError  func(error)

	mu    sync.Mutex
	fired map[string]bool
}

func New(s *store.Store, n Notifier, loc *time.Location) *Scheduler {
	return &Scheduler{
		store:    s,
		notifier: n,
		cron:     cron.New(cron.WithLocation(loc)),
		loc:      loc,
		now:      time.Now,
		onError:  func(err error) { log.Printf("remind: %v", err) },
		fired:    make(map[string]bool),
	}
}

// OnError replaces the handler for scan failures, which are logged to stderr
// by default.
func (s *Scheduler) OnError(f func(error)) {
	if f != nil {
		s.onError = f
	}
}

// Start registers the periodic scan and starts the cron loop.
func (s *Scheduler) Start(poll time.Duration) error {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	spec := fmt.Sprintf("@every %ds", int(poll.Seconds()))
	if _, err := s.cron.AddFunc(spec, s.runScan); err != nil {
		return fmt.Errorf("register reminder scan: %w", err)
	}
	s.cron.Start()
	return nil
}

func (s *Scheduler) runScan() {
	if err := s.Scan(); err != nil {
		s.onError(err)
	}
}

// Stop halts the cron loop and waits for a running scan to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Scan fires every pending reminder whose instant has arrived. Errors are
// returned rather than logged so the caller owns reporting.
func (s *Scheduler) Scan() error {
	now := s.now()
	incomplete := false
	tasks, err := s.store.ListTasks(store.TaskFilter{Completed: &incomplete})
	if err != nil {
		return fmt.Errorf("reminder scan: %w", err)
	}
	defaults := s.store.ReminderDefaults()

	for _, t := range tasks {
		at := t.ReminderAt(s.loc, defaults)
		if at == nil || now.Before(*at) || now.Sub(*at) > staleCutoff {
			continue
		}
		key := firedKey(t.ID, *at)

		s.mu.Lock()
		seen := s.fired[key]
		if !seen {
			s.fired[key] = true
		}
		s.mu.Unlock()

		if !seen {
			s.notifier.Notify(t, *at)
		}
	}
	return nil
}

// Cancel suppresses the task's currently scheduled reminder, e.g. after the
// user dismisses it. Editing the task to a new due instant re-arms it.
func (s *Scheduler) Cancel(taskID int64) {
	t, err := s.store.GetTask(taskID)
	if err != nil {
		return
	}
	at := t.ReminderAt(s.loc, s.store.ReminderDefaults())
	if at == nil {
		return
	}
	s.mu.Lock()
	s.fired[firedKey(taskID, *at)] = true
	s.mu.Unlock()
}

func firedKey(taskID int64, at time.Time) string {
	return fmt.Sprintf("%d|%s", taskID, at.UTC().Format(time.RFC3339))
}
