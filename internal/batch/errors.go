package batch

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors recognized by the batcher during a run.
var (
	// ErrCancelled reports that processing stopped before completion,
	// either through Batcher.Stop, context cancellation or an overwrite
	// chooser returning ModeCancel.
	ErrCancelled = errors.New("batch processing cancelled")

	// ErrSkipAction makes the batcher skip the current action for the
	// current item instead of aborting the run. Actions return errors
	// wrapping it, e.g. through SkipActionf.
	ErrSkipAction = errors.New("action skipped")
)

// SkipActionf returns an error that skips the current action for the
// current item. The formatted message is recorded in the run summary.
func SkipActionf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrSkipAction)
}

// ActionError reports an action that failed while processing an item.
// The batcher records the failure and aborts the run with this error.
type ActionError struct {
	ActionName string
	ItemName   string
	Err        error
}

func (e *ActionError) Error() string {
	if e.ItemName == "" {
		return fmt.Sprintf("action %q failed: %v", e.ActionName, e.Err)
	}
	return fmt.Sprintf("action %q failed for item %q: %v", e.ActionName, e.ItemName, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// ExportError reports a failed file export.
type ExportError struct {
	Message       string
	ItemName      string
	FileExtension string
	Err           error
}

func (e *ExportError) Error() string {
	message := e.Message
	if message == "" && e.Err != nil {
		message = e.Err.Error()
	}

	parts := []string{message}
	if e.ItemName != "" {
		parts = append(parts, fmt.Sprintf("item: %s", e.ItemName))
	}
	if e.FileExtension != "" {
		parts = append(parts, fmt.Sprintf("file extension: %s", e.FileExtension))
	}
	return strings.Join(parts, ", ")
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// InvalidOutputDirectoryError reports an output directory that could not
// be created or written to.
type InvalidOutputDirectoryError struct {
	Dirpath  string
	ItemName string
	Err      error
}

func (e *InvalidOutputDirectoryError) Error() string {
	return fmt.Sprintf("cannot use output directory %q for item %q: %v", e.Dirpath, e.ItemName, e.Err)
}

func (e *InvalidOutputDirectoryError) Unwrap() error {
	return e.Err
}
