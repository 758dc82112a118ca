package builtin

import (
	"path/filepath"
	"testing"

	"github.com/jo-hoe/layerbatch/internal/batch"
	"github.com/jo-hoe/layerbatch/internal/itemtree"
	"github.com/jo-hoe/layerbatch/internal/source"
)

func findItem(t *testing.T, tree *itemtree.Tree, name string, itemType itemtree.ItemType) *itemtree.Item {
	t.Helper()

	for _, item := range tree.List(itemtree.ListOptions{
		WithFolders:     true,
		WithEmptyGroups: true,
		Unfiltered:      true,
	}) {
		if item.Name == name && item.Type() == itemType {
			return item
		}
	}
	t.Fatalf("Item %q not found in tree", name)
	return nil
}

func newConstraint(t *testing.T, name string) batch.ConstraintFunc {
	t.Helper()

	constraint, err := batch.DefaultConstraints.Create(name, nil)
	if err != nil {
		t.Fatalf("Failed to create %s constraint: %v", name, err)
	}
	return constraint
}

func TestLayersConstraint(t *testing.T) {
	canvas := newTestCanvas(
		source.NewGroupLayer("album", []*source.Layer{newTestLayer("a", 2, 2)}),
	)
	tree := newTestTree(t, canvas)
	constraint := newConstraint(t, "layers")

	if !constraint(nil, findItem(t, tree, "a", itemtree.TypeItem)) {
		t.Error("Expected layer item to match")
	}
	if constraint(nil, findItem(t, tree, "album", itemtree.TypeGroup)) {
		t.Error("Expected group item to not match")
	}
}

func TestLayerGroupsConstraint(t *testing.T) {
	canvas := newTestCanvas(
		source.NewGroupLayer("album", []*source.Layer{newTestLayer("a", 2, 2)}),
		source.NewGroupLayer("empty", nil),
	)
	tree := newTestTree(t, canvas)
	constraint := newConstraint(t, "layer_groups")

	if !constraint(nil, findItem(t, tree, "album", itemtree.TypeGroup)) {
		t.Error("Expected group with children to match")
	}
	if constraint(nil, findItem(t, tree, "a", itemtree.TypeItem)) {
		t.Error("Expected layer item to not match")
	}
	if constraint(nil, findItem(t, tree, "empty", itemtree.TypeGroup)) {
		t.Error("Expected empty group to not match")
	}
}

func TestMatchingFileExtensionConstraint(t *testing.T) {
	canvas := newTestCanvas(
		newTestLayer("photo.png", 2, 2),
		newTestLayer("photo.PNG", 2, 2),
		newTestLayer("doc.txt", 2, 2),
		newTestLayer("noext", 2, 2),
	)
	tree := newTestTree(t, canvas)
	batcher, err := batch.NewBatcher(batch.Options{Tree: tree, Canvas: canvas})
	if err != nil {
		t.Fatalf("Failed to create batcher: %v", err)
	}
	constraint := newConstraint(t, "matching_file_extension")

	tests := []struct {
		itemName string
		expected bool
	}{
		{"photo.png", true},
		{"photo.PNG", true},
		{"doc.txt", false},
		{"noext", false},
	}

	for _, test := range tests {
		t.Run(test.itemName, func(t *testing.T) {
			item := findItem(t, tree, test.itemName, itemtree.TypeItem)
			if got := constraint(batcher, item); got != test.expected {
				t.Errorf("Expected %v, got %v", test.expected, got)
			}
		})
	}
}

func TestTopLevelConstraint(t *testing.T) {
	canvas := newTestCanvas(
		source.NewGroupLayer("album", []*source.Layer{newTestLayer("a", 2, 2)}),
		newTestLayer("b", 2, 2),
	)
	tree := newTestTree(t, canvas)
	constraint := newConstraint(t, "top_level")

	if constraint(nil, findItem(t, tree, "a", itemtree.TypeItem)) {
		t.Error("Expected nested item to not match")
	}
	if !constraint(nil, findItem(t, tree, "b", itemtree.TypeItem)) {
		t.Error("Expected top-level item to match")
	}
}

func TestVisibleConstraint(t *testing.T) {
	hidden := newTestLayer("hidden", 2, 2)
	hidden.SetVisible(false)
	canvas := newTestCanvas(newTestLayer("shown", 2, 2), hidden)
	tree := newTestTree(t, canvas)
	constraint := newConstraint(t, "visible")

	if !constraint(nil, findItem(t, tree, "shown", itemtree.TypeItem)) {
		t.Error("Expected visible layer to match")
	}
	if constraint(nil, findItem(t, tree, "hidden", itemtree.TypeItem)) {
		t.Error("Expected hidden layer to not match")
	}
}

func TestVisibleConstraint_SkipsHiddenLayersInRun(t *testing.T) {
	outputDir := t.TempDir()
	hidden := newTestLayer("hidden", 2, 2)
	hidden.SetVisible(false)
	canvas := newTestCanvas(newTestLayer("shown", 2, 2), hidden)

	batcher := runBatcher(t, batch.Options{
		Tree:            newTestTree(t, canvas),
		Canvas:          canvas,
		OutputDirectory: outputDir,
		Constraints:     batch.NewActionList(newConstraintAction(t, "visible", nil)),
	})

	assertFileExists(t, filepath.Join(outputDir, "shown.png"))
	assertFileNotExists(t, filepath.Join(outputDir, "hidden.png"))

	if len(batcher.MatchingItems()) != 1 {
		t.Errorf("Expected 1 matching item, got %d", len(batcher.MatchingItems()))
	}
}
