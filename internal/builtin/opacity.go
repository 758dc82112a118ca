package builtin

import (
	"fmt"
	"math"

	"github.com/jo-hoe/layerbatch/internal/batch"
	"github.com/jo-hoe/layerbatch/internal/invoke"
	"github.com/jo-hoe/layerbatch/internal/source"
)

// NewApplyGroupOpacity creates the step multiplying the opacity of each
// parent layer group into the working layer. Without it, group opacity is
// lost when layers are exported individually.
func NewApplyGroupOpacity(params map[string]any) (invoke.Command, error) {
	run := func(args invoke.Args, kwargs invoke.Kwargs) error {
		batcher, err := batch.BatcherFromArgs(args)
		if err != nil {
			return err
		}

		layer := batcher.CurrentLayer()
		if layer == nil {
			return fmt.Errorf("item %q has no layer to apply opacity to", batcher.CurrentItem().Name)
		}

		opacity := float64(layer.Opacity())
		for _, parent := range batcher.CurrentItem().Parents() {
			if raw, ok := parent.Node().(*source.Layer); ok {
				opacity *= float64(raw.Opacity()) / float64(source.FullOpacity)
			}
		}
		layer.SetOpacity(uint8(math.Round(opacity)))
		return nil
	}
	return run, nil
}

func init() {
	// Register the procedure in the default registry
	if err := batch.DefaultProcedures.Register("apply_opacity_from_layer_groups", batch.ProcedureSpec{
		DisplayName: "Apply opacity from layer groups",
		Factory:     NewApplyGroupOpacity,
	}); err != nil {
		panic(fmt.Sprintf("failed to register apply_opacity_from_layer_groups procedure: %v", err))
	}
}
