package export

import "strings"

// ExtensionState holds the export bookkeeping for one file format.
type ExtensionState struct {
	// Valid is false once an export with this extension failed; the
	// export procedure then falls back to the default extension.
	Valid bool
	// ProcessedCount is the number of items exported with this
	// extension so far.
	ProcessedCount int
}

// FileExtensionProperties tracks per-extension validity and processed
// counts during an export run. Extensions belonging to the same format
// share one entry, so marking "jpg" invalid also affects "jpeg".
type FileExtensionProperties struct {
	states map[string]*ExtensionState
}

func NewFileExtensionProperties() *FileExtensionProperties {
	states := map[string]*ExtensionState{}
	for _, format := range Formats {
		state := &ExtensionState{Valid: true}
		for _, extension := range format.Extensions {
			states[strings.ToLower(extension)] = state
		}
	}
	return &FileExtensionProperties{states: states}
}

// Get returns the state for a file extension, creating a valid entry for
// extensions outside the format table.
func (p *FileExtensionProperties) Get(extension string) *ExtensionState {
	key := strings.ToLower(extension)
	if state, ok := p.states[key]; ok {
		return state
	}
	state := &ExtensionState{Valid: true}
	p.states[key] = state
	return state
}
