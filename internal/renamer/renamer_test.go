package renamer

import (
	"testing"
	"time"

	"github.com/jo-hoe/layerbatch/internal/itemtree"
)

type layerNode struct {
	name     string
	group    bool
	children []itemtree.Node

	width   int
	height  int
	offsetX int
	offsetY int
}

func (n *layerNode) Name() string              { return n.name }
func (n *layerNode) IsGroup() bool             { return n.group }
func (n *layerNode) Children() []itemtree.Node { return n.children }
func (n *layerNode) Width() int                { return n.width }
func (n *layerNode) Height() int               { return n.height }
func (n *layerNode) OffsetX() int              { return n.offsetX }
func (n *layerNode) OffsetY() int              { return n.offsetY }

type fakeEnv struct {
	tree          *itemtree.Tree
	current       *itemtree.Item
	canvasName    string
	canvasWidth   int
	canvasHeight  int
	fileExtension string
}

func (e *fakeEnv) CurrentItem() *itemtree.Item { return e.current }
func (e *fakeEnv) MatchingItems() []*itemtree.Item {
	return e.tree.List(itemtree.ListOptions{})
}
func (e *fakeEnv) CanvasName() string    { return e.canvasName }
func (e *fakeEnv) CanvasWidth() int      { return e.canvasWidth }
func (e *fakeEnv) CanvasHeight() int     { return e.canvasHeight }
func (e *fakeEnv) FileExtension() string { return e.fileExtension }

func buildTree(t *testing.T, nodes ...itemtree.Node) *itemtree.Tree {
	t.Helper()
	tree := itemtree.NewTree()
	if err := tree.Add(nodes, nil, nil); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	return tree
}

func itemNamed(t *testing.T, tree *itemtree.Tree, name string) *itemtree.Item {
	t.Helper()
	for _, item := range tree.List(itemtree.ListOptions{WithFolders: true, WithEmptyGroups: true, Unfiltered: true}) {
		if item.Name == name && item.Type() == itemtree.TypeItem {
			return item
		}
	}
	t.Fatalf("Expected item %q to exist", name)
	return nil
}

func TestRenameNameField(t *testing.T) {
	tests := []struct {
		name      string
		layerName string
		pattern   string
		expected  string
	}{
		{"extension stripped by default", "Frame.png", "[name]", "Frame"},
		{"extension kept with %e", "Frame.png", "[name, %e]", "Frame.png"},
		{"matching extension kept with %i", "Frame.png", "[name, %i]", "Frame.png"},
		{"mismatched extension stripped with %i", "Frame.jpg", "[name, %i]", "Frame"},
		{"mismatched extension kept with %e", "Frame.jpg", "[name, %e]", "Frame.jpg"},
		{"no extension", "Frame", "[name, %e]", "Frame"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := buildTree(t, &layerNode{name: tt.layerName})
			env := &fakeEnv{tree: tree, fileExtension: "png"}

			got := New(env, tt.pattern).Rename(itemNamed(t, tree, tt.layerName))
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestRenamePathField(t *testing.T) {
	tree := buildTree(t, &layerNode{
		name:  "Body",
		group: true,
		children: []itemtree.Node{
			&layerNode{
				name:     "Hands",
				group:    true,
				children: []itemtree.Node{&layerNode{name: "Left"}},
			},
		},
	})
	env := &fakeEnv{tree: tree, fileExtension: "png"}
	left := itemNamed(t, tree, "Left")

	tests := []struct {
		name     string
		pattern  string
		expected string
	}{
		{"default separator", "[path]", "Body-Hands-Left"},
		{"custom separator", "[path, _]", "Body_Hands_Left"},
		{"wrapper", "[path, _, (%c)]", "(Body)_(Hands)_(Left)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := New(env, tt.pattern).Rename(left); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestRenameNumberField(t *testing.T) {
	tree := buildTree(t,
		&layerNode{name: "a"},
		&layerNode{name: "b"},
		&layerNode{
			name:  "g",
			group: true,
			children: []itemtree.Node{
				&layerNode{name: "c"},
				&layerNode{name: "d"},
			},
		},
	)
	env := &fakeEnv{tree: tree}
	r := New(env, "image[001]")

	expected := map[string]string{
		"a": "image001",
		"b": "image002",
		// The counter resets for items under a different parent.
		"c": "image001",
		"d": "image002",
	}
	for _, name := range []string{"a", "b", "c", "d"} {
		if got := r.Rename(itemNamed(t, tree, name)); got != expected[name] {
			t.Errorf("Expected %q for %q, got %q", expected[name], name, got)
		}
	}
}

func TestRenameNumberFieldContinuous(t *testing.T) {
	tree := buildTree(t,
		&layerNode{name: "a"},
		&layerNode{
			name:     "g",
			group:    true,
			children: []itemtree.Node{&layerNode{name: "b"}},
		},
	)
	env := &fakeEnv{tree: tree}
	r := New(env, "image[001, %n]")

	if got := r.Rename(itemNamed(t, tree, "a")); got != "image001" {
		t.Errorf("Expected %q, got %q", "image001", got)
	}
	if got := r.Rename(itemNamed(t, tree, "b")); got != "image002" {
		t.Errorf("Expected %q, got %q", "image002", got)
	}
}

func TestRenameNumberFieldDescending(t *testing.T) {
	tree := buildTree(t,
		&layerNode{name: "a"},
		&layerNode{name: "b"},
		&layerNode{name: "c"},
	)
	env := &fakeEnv{tree: tree}

	r := New(env, "image[000, %d]")
	expected := []string{"image003", "image002", "image001"}
	for i, name := range []string{"a", "b", "c"} {
		if got := r.Rename(itemNamed(t, tree, name)); got != expected[i] {
			t.Errorf("Expected %q for %q, got %q", expected[i], name, got)
		}
	}
}

func TestRenameNumberFieldDescendingWithPadding(t *testing.T) {
	tree := buildTree(t, &layerNode{name: "a"}, &layerNode{name: "b"})
	env := &fakeEnv{tree: tree}

	r := New(env, "image[10, %d2]")
	if got := r.Rename(itemNamed(t, tree, "a")); got != "image10" {
		t.Errorf("Expected %q, got %q", "image10", got)
	}
	if got := r.Rename(itemNamed(t, tree, "b")); got != "image09" {
		t.Errorf("Expected %q, got %q", "image09", got)
	}
}

func TestRenameImageNameField(t *testing.T) {
	tree := buildTree(t, &layerNode{name: "layer"})
	item := itemNamed(t, tree, "layer")

	tests := []struct {
		name       string
		canvasName string
		pattern    string
		expected   string
	}{
		{"extension stripped by default", "Image.xcf", "[image name]", "Image"},
		{"extension kept with %e", "Image.xcf", "[image name, %e]", "Image.xcf"},
		{"unnamed canvas", "", "[image name]", "Untitled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := &fakeEnv{tree: tree, canvasName: tt.canvasName}
			if got := New(env, tt.pattern).Rename(item); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestRenameDateField(t *testing.T) {
	tree := buildTree(t, &layerNode{name: "layer"})
	env := &fakeEnv{tree: tree}

	expected := time.Now().Format("2006-01-02")
	if got := New(env, "[date]").Rename(itemNamed(t, tree, "layer")); got != expected {
		t.Errorf("Expected %q, got %q", expected, got)
	}

	expectedYear := time.Now().Format("2006")
	if got := New(env, "[date, %Y]").Rename(itemNamed(t, tree, "layer")); got != expectedYear {
		t.Errorf("Expected %q, got %q", expectedYear, got)
	}
}

func TestRenameAttributesField(t *testing.T) {
	tree := buildTree(t, &layerNode{name: "layer", width: 1000, height: 270, offsetX: 0, offsetY: 40})
	env := &fakeEnv{tree: tree, canvasWidth: 1000, canvasHeight: 500}
	item := itemNamed(t, tree, "layer")

	tests := []struct {
		name     string
		pattern  string
		expected string
	}{
		{"pixel measures", "[attributes, %w-%h-%x-%y]", "1000-270-0-40"},
		{"percentage measures", "[attributes, %w-%h-%x-%y, %pc]", "1.0-0.54-0.0-0.08"},
		{"percentage with one digit", "[attributes, %w-%h-%x-%y, %pc1]", "1.0-0.5-0.0-0.1"},
		{"canvas measures", "[attributes, %iw-%ih]", "1000-500"},
		{"unknown token kept", "[attributes, %w-%unknown]", "1000-%unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := New(env, tt.pattern).Rename(item); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestRenameReplaceField(t *testing.T) {
	tests := []struct {
		name      string
		layerName string
		pattern   string
		expected  string
	}{
		{
			"plain replacement",
			"Animal copy #1",
			"[replace, [name], [a], [b] ]",
			"Animbl copy #1",
		},
		{
			"regular expression",
			"Animal copy #1",
			"[replace, [name], [ copy(?: #[[0-9]]+)*$], [] ]",
			"Animal",
		},
		{
			"count and flags",
			"Animal copy #1",
			"[replace, [name], [a], [b], 1, ignorecase]",
			"bnimal copy #1",
		},
		{
			"unknown referenced field yields empty string",
			"Animal",
			"[replace, [bogus], [a], [b] ]",
			"",
		},
		{
			"unknown flag keeps field text",
			"Animal",
			"[replace, [name], [a], [b], 1, bogusflag]",
			"[replace, [name], [a], [b], 1, bogusflag]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := buildTree(t, &layerNode{name: tt.layerName})
			env := &fakeEnv{tree: tree}

			got := New(env, tt.pattern).Rename(itemNamed(t, tree, tt.layerName))
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestRenameUnknownFieldKept(t *testing.T) {
	tree := buildTree(t, &layerNode{name: "layer"})
	env := &fakeEnv{tree: tree}

	if got := New(env, "img_[bogus]").Rename(itemNamed(t, tree, "layer")); got != "img_[bogus]" {
		t.Errorf("Expected %q, got %q", "img_[bogus]", got)
	}
}

func TestRenameCurrentItem(t *testing.T) {
	tree := buildTree(t, &layerNode{name: "layer.png"})
	item := itemNamed(t, tree, "layer.png")
	env := &fakeEnv{tree: tree, current: item}

	if got := New(env, "[name]").Rename(nil); got != "layer" {
		t.Errorf("Expected %q, got %q", "layer", got)
	}
}
