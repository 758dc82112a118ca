package database

import "time"

// Run status values stored with each run.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Run is one recorded batch run.
type Run struct {
	ID        string    `db:"id"`
	Source    string    `db:"source"` // name of the processed file or directory
	Status    string    `db:"status"`
	Message   string    `db:"message"` // failure reason for failed runs
	CreatedAt time.Time `db:"created_at"`

	ItemCount     int `db:"item_count"`
	ExportedCount int `db:"exported_count"`
	SkippedCount  int `db:"skipped_count"`
	FailedCount   int `db:"failed_count"`

	// ExportedFiles lists the file paths the run wrote, in export order.
	ExportedFiles []string
}
