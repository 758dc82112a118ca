// Package builtin registers the built-in procedures and constraints into
// the default batch registries. Importing the package is enough to make
// them available to configuration by name:
//
//	import _ "github.com/jo-hoe/layerbatch/internal/builtin"
package builtin

import (
	"fmt"

	"github.com/jo-hoe/layerbatch/internal/batch"
	"github.com/jo-hoe/layerbatch/internal/invoke"
)

// NewRename creates the rename step from configuration parameters. The
// step renames every processed item according to a filename pattern and
// optionally renames the folders the items are nested in.
func NewRename(params map[string]any) (invoke.Command, error) {
	pattern := batch.GetStringParam(params, "pattern", "[name]")
	renameLayers := batch.GetBoolParam(params, "rename_layers", true)
	renameFolders := batch.GetBoolParam(params, "rename_folders", false)

	return batch.NewRenameStep(pattern, renameLayers, renameFolders), nil
}

func init() {
	// Register the procedure in the default registry
	if err := batch.DefaultProcedures.Register(batch.RenameProcedureName, batch.ProcedureSpec{
		DisplayName: "Rename",
		NameOnly:    true,
		Factory:     NewRename,
	}); err != nil {
		panic(fmt.Sprintf("failed to register rename procedure: %v", err))
	}
}
