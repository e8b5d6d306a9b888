package remind

import (
	"os/exec"
	"strings"
	"time"

	"tasker/internal/store"
)

// Multi fans each reminder out to several notifiers in order.
func Multi(notifiers ...Notifier) Notifier {
	return NotifierFunc(func(task store.Task, at time.Time) {
		for _, n := range notifiers {
			n.Notify(task, at)
		}
	})
}

// CommandNotifier runs an external command for each fired reminder, e.g.
// notify-send. The command line is split on whitespace and the task title
// and reminder instant (HH:MM) are appended as arguments. A failing command
// must not break the scan loop, so its error is discarded.
func CommandNotifier(cmdline string) Notifier {
	parts := strings.Fields(cmdline)
	return NotifierFunc(func(task store.Task, at time.Time) {
		if len(parts) == 0 {
			return
		}
		args := append(append([]string(nil), parts[1:]...), task.Title, at.Format("15:04"))
		exec.Command(parts[0], args...).Run()
	})
}
