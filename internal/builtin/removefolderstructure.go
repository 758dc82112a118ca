package builtin

import (
	"fmt"

	"github.com/jo-hoe/layerbatch/internal/batch"
	"github.com/jo-hoe/layerbatch/internal/invoke"
)

// NewRemoveFolderStructure creates the step detaching each processed item
// from its folders, so all items end up directly in the output directory.
func NewRemoveFolderStructure(params map[string]any) (invoke.Command, error) {
	run := func(args invoke.Args, kwargs invoke.Kwargs) error {
		batcher, err := batch.BatcherFromArgs(args)
		if err != nil {
			return err
		}

		item := batcher.CurrentItem()
		item.SetParents(nil)
		item.SetChildren(nil)
		return nil
	}
	return run, nil
}

func init() {
	// Register the procedure in the default registry
	if err := batch.DefaultProcedures.Register("remove_folder_structure", batch.ProcedureSpec{
		DisplayName: "Remove folder structure",
		NameOnly:    true,
		Factory:     NewRemoveFolderStructure,
	}); err != nil {
		panic(fmt.Sprintf("failed to register remove_folder_structure procedure: %v", err))
	}
}
