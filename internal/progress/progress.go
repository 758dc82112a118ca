// Package progress tracks how far a batch run has advanced and publishes
// the state to interested sinks such as the log or a redis hash.
package progress

import (
	"fmt"
	"log/slog"
	"sync"
)

// Updater receives progress updates during a batch run.
type Updater interface {
	// Reset starts a new run with the given number of total tasks.
	Reset(totalTasks int)
	// Advance marks numTasks additional tasks as finished. The finished
	// count must never exceed the total.
	Advance(numTasks int) error
	// SetText publishes a short status text, typically the name of the
	// item currently being processed.
	SetText(text string) error
	TotalTasks() int
	FinishedTasks() int
}

// LogUpdater is the default Updater. It keeps the task counters in memory
// and reports every update through slog.
type LogUpdater struct {
	mu            sync.Mutex
	totalTasks    int
	finishedTasks int
}

func NewLogUpdater() *LogUpdater {
	return &LogUpdater{}
}

func (u *LogUpdater) Reset(totalTasks int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.totalTasks = totalTasks
	u.finishedTasks = 0
	slog.Debug("progress reset", "total_tasks", totalTasks)
}

func (u *LogUpdater) Advance(numTasks int) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.finishedTasks+numTasks > u.totalTasks {
		return fmt.Errorf("number of finished tasks (%d) would exceed the total (%d)",
			u.finishedTasks+numTasks, u.totalTasks)
	}
	u.finishedTasks += numTasks
	slog.Debug("progress advanced", "finished_tasks", u.finishedTasks, "total_tasks", u.totalTasks)
	return nil
}

func (u *LogUpdater) SetText(text string) error {
	slog.Info("progress", "text", text)
	return nil
}

func (u *LogUpdater) TotalTasks() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.totalTasks
}

func (u *LogUpdater) FinishedTasks() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.finishedTasks
}
