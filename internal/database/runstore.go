// Package database persists batch runs and their outcomes.
package database

// RunStore stores batch runs and their outcomes.
type RunStore interface {
	// CreateSchema creates the run tables if they do not exist yet.
	CreateSchema() error
	// Healthy reports whether the underlying database is reachable.
	Healthy() bool
	Close() error

	// CreateRun inserts a new pending run and returns its generated id.
	CreateRun(source string) (string, error)
	// SetStatus updates the run state and its optional message.
	SetStatus(id string, status string, message string) error
	// SetCounts stores the item counters of a run.
	SetCounts(id string, items, exported, skipped, failed int) error
	// AddExportedFiles appends exported file paths to a run.
	AddExportedFiles(id string, paths []string) error
	// GetRun returns the run with the given id, or nil if there is none.
	GetRun(id string) (*Run, error)
	// GetAllRuns returns all runs, newest first.
	GetAllRuns() ([]*Run, error)
	DeleteRun(id string) error
}
