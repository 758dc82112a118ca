package builtin

import (
	"fmt"

	"github.com/jo-hoe/layerbatch/internal/batch"
	"github.com/jo-hoe/layerbatch/internal/invoke"
)

// NewUseLayerSize creates the step shrinking the exported canvas of each
// item to the extent of its working layer. Exported images then contain
// exactly the layer pixels instead of the layer placed on the full canvas.
func NewUseLayerSize(params map[string]any) (invoke.Command, error) {
	run := func(args invoke.Args, kwargs invoke.Kwargs) error {
		batcher, err := batch.BatcherFromArgs(args)
		if err != nil {
			return err
		}

		layer := batcher.CurrentLayer()
		if layer == nil {
			return fmt.Errorf("item %q has no layer to resize to", batcher.CurrentItem().Name)
		}

		batcher.SetCurrentCanvasSize(layer.Width(), layer.Height())
		layer.SetOffset(0, 0)
		return nil
	}
	return run, nil
}

func init() {
	// Register the procedure in the default registry
	if err := batch.DefaultProcedures.Register("use_layer_size", batch.ProcedureSpec{
		DisplayName: "Use layer size",
		Factory:     NewUseLayerSize,
	}); err != nil {
		panic(fmt.Sprintf("failed to register use_layer_size procedure: %v", err))
	}
}
