package store

import (
	"errors"
	"testing"
	"time"
)

// fakeClock pins the store's clock to a settable instant.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClockedStore(t *testing.T) (*Store, *fakeClock) {
	t.Helper()
	s := newTestStore(t)
	clock := &fakeClock{t: time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)}
	s.now = func() time.Time { return clock.t }
	return s, clock
}

func TestSessionLifecycle(t *testing.T) {
	s, clock := newClockedStore(t)
	task := mustCreateTask(t, s, "deep work")

	sess, err := s.StartSession(task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if sess.Status != StatusInProgress || sess.TotalSeconds != 0 {
		t.Fatalf("fresh session: %+v", sess)
	}

	// Run 10s, pause 5s, run 20s, stop. Paused time must not count.
	clock.advance(10 * time.Second)
	if err := s.PauseSession(sess.ID); err != nil {
		t.Fatal(err)
	}
	paused, _ := s.GetSession(sess.ID)
	if paused.Status != StatusPaused || paused.TotalSeconds != 10 {
		t.Fatalf("after pause: status=%s total=%d", paused.Status, paused.TotalSeconds)
	}

	clock.advance(5 * time.Second)
	if err := s.ResumeSession(sess.ID); err != nil {
		t.Fatal(err)
	}

	clock.advance(20 * time.Second)
	if err := s.StopSession(sess.ID); err != nil {
		t.Fatal(err)
	}

	final, _ := s.GetSession(sess.ID)
	if final.Status != StatusCompleted {
		t.Fatalf("status = %s", final.Status)
	}
	if final.TotalSeconds != 30 {
		t.Fatalf("total seconds = %d, want 30", final.TotalSeconds)
	}
	if final.EndedAt == nil {
		t.Fatal("ended_at should be set")
	}

	// 30s is under a minute, so nothing rolls into the task aggregate.
	got, _ := s.GetTask(task.ID)
	if got.ActualMinutes == nil || *got.ActualMinutes != 0 {
		t.Fatalf("actual minutes = %v, want 0", got.ActualMinutes)
	}
}

func TestStopRollsWholeMinutesIntoTask(t *testing.T) {
	s, clock := newClockedStore(t)
	task := mustCreateTask(t, s, "long haul")

	sess, _ := s.StartSession(task.ID)
	clock.advance(150 * time.Second)
	if err := s.StopSession(sess.ID); err != nil {
		t.Fatal(err)
	}

	got, _ := s.GetTask(task.ID)
	if got.ActualMinutes == nil || *got.ActualMinutes != 2 {
		t.Fatalf("actual minutes = %v, want 2", got.ActualMinutes)
	}

	// A second session accumulates on top.
	sess2, _ := s.StartSession(task.ID)
	clock.advance(60 * time.Second)
	s.StopSession(sess2.ID)
	got, _ = s.GetTask(task.ID)
	if *got.ActualMinutes != 3 {
		t.Fatalf("actual minutes = %d, want 3", *got.ActualMinutes)
	}
}

func TestStartSessionConflict(t *testing.T) {
	s, _ := newClockedStore(t)
	a := mustCreateTask(t, s, "first")
	b := mustCreateTask(t, s, "second")

	first, err := s.StartSession(a.ID)
	if err != nil {
		t.Fatal(err)
	}

	_, err = s.StartSession(b.ID)
	if !errors.Is(err, ErrSessionActive) {
		t.Fatalf("expected ErrSessionActive, got %v", err)
	}

	// The original session is untouched and still the only active one.
	active, err := s.ActiveSession()
	if err != nil {
		t.Fatal(err)
	}
	if active == nil || active.ID != first.ID || active.Status != StatusInProgress {
		t.Fatalf("active session disturbed: %+v", active)
	}

	var count int
	s.db.QueryRow(`SELECT COUNT(*) FROM tracking_sessions`).Scan(&count)
	if count != 1 {
		t.Fatalf("expected 1 session row, got %d", count)
	}
}

func TestStartSessionMissingTask(t *testing.T) {
	s, _ := newClockedStore(t)
	_, err := s.StartSession(404)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionTransitionsAreIdempotent(t *testing.T) {
	s, clock := newClockedStore(t)
	task := mustCreateTask(t, s, "idempotent")
	sess, _ := s.StartSession(task.ID)

	// Resume while running: no-op.
	if err := s.ResumeSession(sess.ID); err != nil {
		t.Fatal(err)
	}

	clock.advance(8 * time.Second)
	s.PauseSession(sess.ID)
	// Pause while paused: no-op, total unchanged.
	clock.advance(100 * time.Second)
	if err := s.PauseSession(sess.ID); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetSession(sess.ID)
	if got.TotalSeconds != 8 {
		t.Fatalf("double pause changed total: %d", got.TotalSeconds)
	}

	s.StopSession(sess.ID)
	// Stop while completed: no-op.
	if err := s.StopSession(sess.ID); err != nil {
		t.Fatal(err)
	}
	// Pause, resume and stop on a deleted session are benign too.
	if err := s.PauseSession(9999); err != nil {
		t.Fatal(err)
	}
	if err := s.ResumeSession(9999); err != nil {
		t.Fatal(err)
	}
	if err := s.StopSession(9999); err != nil {
		t.Fatal(err)
	}
}

func TestActiveSessionIdle(t *testing.T) {
	s := newTestStore(t)
	active, err := s.ActiveSession()
	if err != nil {
		t.Fatal(err)
	}
	if active != nil {
		t.Fatalf("expected no active session, got %+v", active)
	}
}

func TestDisplayedSeconds(t *testing.T) {
	now := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)

	running := Session{Status: StatusInProgress, TotalSeconds: 40, StartedAt: now.Add(-25 * time.Second)}
	if got := running.DisplayedSeconds(now); got != 65 {
		t.Fatalf("running displayed = %d, want 65", got)
	}

	paused := Session{Status: StatusPaused, TotalSeconds: 40, StartedAt: now.Add(-25 * time.Second)}
	if got := paused.DisplayedSeconds(now); got != 40 {
		t.Fatalf("paused displayed = %d, want 40", got)
	}

	done := Session{Status: StatusCompleted, TotalSeconds: 300}
	if got := done.DisplayedSeconds(now); got != 300 {
		t.Fatalf("completed displayed = %d, want 300", got)
	}
}
