package builtin

import (
	"fmt"
	"strings"

	"github.com/jo-hoe/layerbatch/internal/batch"
	"github.com/jo-hoe/layerbatch/internal/itemtree"
	"github.com/jo-hoe/layerbatch/internal/pathutil"
	"github.com/jo-hoe/layerbatch/internal/source"
)

// NewLayersConstraint matches regular layers, excluding layer groups.
func NewLayersConstraint(params map[string]any) (batch.ConstraintFunc, error) {
	return func(batcher *batch.Batcher, item *itemtree.Item) bool {
		return item.Type() == itemtree.TypeItem
	}, nil
}

// NewLayerGroupsConstraint matches layer groups with at least one child.
func NewLayerGroupsConstraint(params map[string]any) (batch.ConstraintFunc, error) {
	return func(batcher *batch.Batcher, item *itemtree.Item) bool {
		return item.Type() == itemtree.TypeGroup && len(item.Node().Children()) > 0
	}, nil
}

// NewMatchingFileExtensionConstraint matches items whose name ends with
// the output file extension of the batcher.
func NewMatchingFileExtensionConstraint(params map[string]any) (batch.ConstraintFunc, error) {
	return func(batcher *batch.Batcher, item *itemtree.Item) bool {
		return strings.EqualFold(pathutil.FileExtension(item.Name), batcher.FileExtension())
	}, nil
}

// NewTopLevelConstraint matches items that are not nested in any folder.
func NewTopLevelConstraint(params map[string]any) (batch.ConstraintFunc, error) {
	return func(batcher *batch.Batcher, item *itemtree.Item) bool {
		return item.Depth() == 0
	}, nil
}

// NewVisibleConstraint matches items whose source layer is visible.
// Items backed by other node types are treated as visible.
func NewVisibleConstraint(params map[string]any) (batch.ConstraintFunc, error) {
	return func(batcher *batch.Batcher, item *itemtree.Item) bool {
		if layer, ok := item.Node().(*source.Layer); ok {
			return layer.Visible()
		}
		return true
	}, nil
}

func init() {
	// Register the constraints in the default registry
	constraints := []struct {
		name string
		spec batch.ConstraintSpec
	}{
		{"layers", batch.ConstraintSpec{DisplayName: "Layers", Factory: NewLayersConstraint}},
		{"layer_groups", batch.ConstraintSpec{DisplayName: "Layer groups", Factory: NewLayerGroupsConstraint}},
		{"matching_file_extension", batch.ConstraintSpec{DisplayName: "Matching file extension", Factory: NewMatchingFileExtensionConstraint}},
		{"top_level", batch.ConstraintSpec{DisplayName: "Top-level", Factory: NewTopLevelConstraint}},
		{"visible", batch.ConstraintSpec{DisplayName: "Visible", Factory: NewVisibleConstraint}},
	}
	for _, constraint := range constraints {
		if err := batch.DefaultConstraints.Register(constraint.name, constraint.spec); err != nil {
			panic(fmt.Sprintf("failed to register %s constraint: %v", constraint.name, err))
		}
	}
}
