package tui

import (
	"time"

	"tasker/internal/store"
)

// trackingModel drives the time-tracking timer. Unlike a purely in-memory
// timer, all state lives in the session row, so a restart picks the timer
// back up exactly where the database left it.
type trackingModel struct {
	store *store.Store

	session   *store.Session
	taskTitle string
	displayed int64
}

func newTrackingModel(s *store.Store) trackingModel {
	return trackingModel{store: s}
}

// loadActive adopts a session left over from a previous run.
func (t *trackingModel) loadActive() error {
	sess, err := t.store.ActiveSession()
	if err != nil {
		return err
	}
	t.session = sess
	if sess != nil {
		if task, err := t.store.GetTask(sess.TaskID); err == nil {
			t.taskTitle = task.Title
		}
		t.displayed = sess.DisplayedSeconds(time.Now())
	}
	return nil
}

func (t *trackingModel) start(task store.Task) error {
	sess, err := t.store.StartSession(task.ID)
	if err != nil {
		return err
	}
	t.session = sess
	t.taskTitle = task.Title
	t.displayed = 0
	return nil
}

// toggle pauses a running session or resumes a paused one.
func (t *trackingModel) toggle() error {
	if t.session == nil {
		return nil
	}
	var err error
	if t.session.Status == store.StatusInProgress {
		err = t.store.PauseSession(t.session.ID)
	} else {
		err = t.store.ResumeSession(t.session.ID)
	}
	if err != nil {
		return err
	}
	t.session, err = t.store.GetSession(t.session.ID)
	return err
}

func (t *trackingModel) stop() error {
	if t.session == nil {
		return nil
	}
	if err := t.store.StopSession(t.session.ID); err != nil {
		return err
	}
	t.session = nil
	t.taskTitle = ""
	t.displayed = 0
	return nil
}

func (t *trackingModel) tick() {
	if t.session != nil {
		t.displayed = t.session.DisplayedSeconds(time.Now())
	}
}

func (t trackingModel) running() bool {
	return t.session != nil
}

func (t trackingModel) paused() bool {
	return t.session != nil && t.session.Status == store.StatusPaused
}

func (t trackingModel) elapsedSeconds() int64 {
	return t.displayed
}
