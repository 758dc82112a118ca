package export

import (
	"os"
	"path/filepath"
	"testing"
)

type recordingChooser struct {
	mode  Mode
	paths []string
}

func (c *recordingChooser) Choose(path string) Mode {
	c.paths = append(c.paths, path)
	return c.mode
}

func (c *recordingChooser) Mode() Mode { return c.mode }

func writeTestFile(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("content"), 0o600); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
}

func TestHandleOverwriteNoConflict(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.png")

	mode, resolved, err := HandleOverwrite(path, NewNoninteractiveChooser(ModeSkip), nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if mode != ModeDoNothing {
		t.Errorf("Expected mode %v, got %v", ModeDoNothing, mode)
	}
	if resolved != path {
		t.Errorf("Expected path %q, got %q", path, resolved)
	}
}

func TestHandleOverwriteConflict(t *testing.T) {
	tests := []struct {
		name string
		mode Mode
	}{
		{"skip", ModeSkip},
		{"replace", ModeReplace},
		{"cancel", ModeCancel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out.png")
			writeTestFile(t, path)

			mode, resolved, err := HandleOverwrite(path, NewNoninteractiveChooser(tt.mode), nil)
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if mode != tt.mode {
				t.Errorf("Expected mode %v, got %v", tt.mode, mode)
			}
			if resolved != path {
				t.Errorf("Expected path %q, got %q", path, resolved)
			}
		})
	}
}

func TestHandleOverwriteRenameNew(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.png")
	writeTestFile(t, path)

	position := len(path) - len(".png")
	mode, resolved, err := HandleOverwrite(path, NewNoninteractiveChooser(ModeRenameNew), &position)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if mode != ModeRenameNew {
		t.Errorf("Expected mode %v, got %v", ModeRenameNew, mode)
	}
	expected := filepath.Join(dir, "out (1).png")
	if resolved != expected {
		t.Errorf("Expected path %q, got %q", expected, resolved)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected the existing file to remain, got %v", err)
	}
}

func TestHandleOverwriteRenameExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.png")
	writeTestFile(t, path)

	position := len(path) - len(".png")
	mode, resolved, err := HandleOverwrite(path, NewNoninteractiveChooser(ModeRenameExisting), &position)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if mode != ModeRenameExisting {
		t.Errorf("Expected mode %v, got %v", ModeRenameExisting, mode)
	}
	if resolved != path {
		t.Errorf("Expected path %q, got %q", path, resolved)
	}

	renamed := filepath.Join(dir, "out (1).png")
	if _, err := os.Stat(renamed); err != nil {
		t.Errorf("Expected the existing file at %q, got %v", renamed, err)
	}
	if _, err := os.Stat(path); err == nil {
		t.Error("Expected the original path to be free after renaming")
	}
}

func TestHandleOverwriteChoosesOnlyOnConflict(t *testing.T) {
	chooser := &recordingChooser{mode: ModeReplace}

	missing := filepath.Join(t.TempDir(), "missing.png")
	if _, _, err := HandleOverwrite(missing, chooser, nil); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(chooser.paths) != 0 {
		t.Errorf("Expected no chooser calls, got %d", len(chooser.paths))
	}

	existing := filepath.Join(t.TempDir(), "existing.png")
	writeTestFile(t, existing)
	if _, _, err := HandleOverwrite(existing, chooser, nil); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(chooser.paths) != 1 {
		t.Fatalf("Expected 1 chooser call, got %d", len(chooser.paths))
	}
	if chooser.paths[0] != existing {
		t.Errorf("Expected chooser to receive %q, got %q", existing, chooser.paths[0])
	}
}

func TestParseOverwriteMode(t *testing.T) {
	tests := []struct {
		name     string
		expected Mode
	}{
		{"skip", ModeSkip},
		{"replace", ModeReplace},
		{"rename_new", ModeRenameNew},
		{"rename_existing", ModeRenameExisting},
		{"cancel", ModeCancel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, err := ParseOverwriteMode(tt.name)
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if mode != tt.expected {
				t.Errorf("Expected mode %v, got %v", tt.expected, mode)
			}
			if got := mode.String(); got != tt.name {
				t.Errorf("Expected %q, got %q", tt.name, got)
			}
		})
	}

	if _, err := ParseOverwriteMode("bogus"); err == nil {
		t.Error("Expected an error, got nil")
	}
}
