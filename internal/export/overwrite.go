package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jo-hoe/layerbatch/internal/pathutil"
)

// Mode indicates how to handle a file that already exists at an export
// destination.
type Mode int

const (
	// ModeSkip leaves the existing file alone and does not export.
	ModeSkip Mode = iota
	// ModeReplace overwrites the existing file.
	ModeReplace
	// ModeRenameNew renames the file being exported.
	ModeRenameNew
	// ModeRenameExisting renames the existing file on disk.
	ModeRenameExisting
	// ModeCancel aborts the whole batch run.
	ModeCancel
	// ModeDoNothing is returned by HandleOverwrite when no conflicting
	// file exists and the export can proceed unchanged.
	ModeDoNothing
)

var modeNames = map[Mode]string{
	ModeSkip:           "skip",
	ModeReplace:        "replace",
	ModeRenameNew:      "rename_new",
	ModeRenameExisting: "rename_existing",
	ModeCancel:         "cancel",
	ModeDoNothing:      "do_nothing",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("overwrite mode %d", int(m))
}

// ParseOverwriteMode returns the overwrite mode with the given name, as
// used in configuration files.
func ParseOverwriteMode(name string) (Mode, error) {
	for mode, modeName := range modeNames {
		if modeName == name {
			return mode, nil
		}
	}
	return ModeSkip, fmt.Errorf("unknown overwrite mode %q", name)
}

// OverwriteChooser decides how to handle files that already exist.
type OverwriteChooser interface {
	// Choose is called with the absolute path of a conflicting file and
	// returns the mode to apply to it.
	Choose(path string) Mode
	// Mode returns the most recently chosen mode.
	Mode() Mode
}

// NoninteractiveChooser always chooses the same fixed mode. It is the
// chooser for unattended batch runs.
type NoninteractiveChooser struct {
	mode Mode
}

func NewNoninteractiveChooser(mode Mode) *NoninteractiveChooser {
	return &NoninteractiveChooser{mode: mode}
}

func (c *NoninteractiveChooser) Choose(path string) Mode { return c.mode }

func (c *NoninteractiveChooser) Mode() Mode { return c.mode }

// HandleOverwrite resolves a conflict between the file about to be
// written at path and a file already on disk. Without a conflict it
// returns ModeDoNothing and the path unchanged. Otherwise the chooser
// picks the mode; for ModeRenameNew the returned path carries a " (n)"
// suffix inserted at the given position, for ModeRenameExisting the
// existing file is renamed on disk instead.
func HandleOverwrite(path string, chooser OverwriteChooser, position *int) (Mode, string, error) {
	if _, err := os.Stat(path); err != nil {
		return ModeDoNothing, path, nil
	}

	chosenPath := path
	if abs, err := filepath.Abs(path); err == nil {
		chosenPath = abs
	}
	mode := chooser.Choose(chosenPath)

	switch mode {
	case ModeRenameNew:
		path = pathutil.UniquifyFilepath(path, position)
	case ModeRenameExisting:
		renamed := pathutil.UniquifyFilepath(path, position)
		if err := os.Rename(path, renamed); err != nil {
			return mode, path, fmt.Errorf("failed to rename existing file: %w", err)
		}
	}
	return mode, path, nil
}
