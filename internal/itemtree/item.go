// Package itemtree stores host objects such as image layers in a
// tree-like structure with stable iteration order, optional filtering and
// per-item working state.
package itemtree

import "slices"

// Node is the minimal view of a host object stored in an item tree.
// Sources supply implementations, e.g. image layers or directory entries.
type Node interface {
	Name() string
	IsGroup() bool
	Children() []Node
}

// ItemType distinguishes how a node appears in a tree.
type ItemType int

const (
	// TypeItem is a regular item.
	TypeItem ItemType = iota
	// TypeGroup is a group node acting as a single item without children,
	// e.g. a group layer treated as one merged layer.
	TypeGroup
	// TypeFolder is a group node acting as a parent of child items.
	TypeFolder
)

// Key identifies an item within a tree. A group node appears under two
// keys, once as a folder and once as a group item.
type Key struct {
	Node   Node
	Folder bool
}

// State holds the mutable item attributes captured by PushState and
// SaveState.
type State struct {
	Name     string
	Parents  []*Item
	Children []*Item
}

// Item wraps a Node with a mutable working name, a tree position and
// state bookkeeping. Attributes are not kept in sync with changes made to
// the underlying node after the item is created.
type Item struct {
	node     Node
	itemType ItemType

	// Name is the working name, initially equal to the node name.
	// Processing steps may modify it freely without touching the
	// underlying node.
	Name string

	parents  []*Item
	children []*Item
	prev     *Item
	next     *Item

	origName     string
	origParents  []*Item
	origChildren []*Item

	savedStates      []State
	savedNamedStates map[string]State
}

func newItem(node Node, itemType ItemType, parents []*Item) *Item {
	name := node.Name()
	return &Item{
		node:        node,
		itemType:    itemType,
		Name:        name,
		parents:     parents,
		origName:    name,
		origParents: slices.Clone(parents),
	}
}

// NewItem creates a standalone item outside any tree, e.g. to represent a
// whole canvas as a single exportable item.
func NewItem(node Node, itemType ItemType) *Item {
	return newItem(node, itemType, nil)
}

// Node returns the underlying node.
func (it *Item) Node() Node {
	return it.node
}

// Type returns the item type.
func (it *Item) Type() ItemType {
	return it.itemType
}

// Key returns the identifier of this item within its tree.
func (it *Item) Key() Key {
	return Key{Node: it.node, Folder: it.itemType == TypeFolder}
}

// Parents returns the item's parents, sorted from the topmost to the
// immediate parent.
func (it *Item) Parents() []*Item {
	return it.parents
}

// SetParents replaces the item's parents.
func (it *Item) SetParents(parents []*Item) {
	it.parents = parents
}

// Parent returns the immediate parent, or nil for top-level items.
func (it *Item) Parent() *Item {
	if len(it.parents) == 0 {
		return nil
	}
	return it.parents[len(it.parents)-1]
}

// Children returns the item's child items.
func (it *Item) Children() []*Item {
	return it.children
}

// SetChildren replaces the item's child items.
func (it *Item) SetChildren(children []*Item) {
	it.children = children
}

// Depth returns the number of parents. 0 means the item is at the top
// level.
func (it *Item) Depth() int {
	return len(it.parents)
}

// Prev returns the previous item in the tree, or nil.
func (it *Item) Prev() *Item {
	return it.prev
}

// Next returns the next item in the tree, or nil.
func (it *Item) Next() *Item {
	return it.next
}

// OrigName returns the item name as derived from the node at creation.
func (it *Item) OrigName() string {
	return it.origName
}

// OrigParents returns the parents assigned at creation.
func (it *Item) OrigParents() []*Item {
	return slices.Clone(it.origParents)
}

// OrigChildren returns the children assigned at creation.
func (it *Item) OrigChildren() []*Item {
	return slices.Clone(it.origChildren)
}

// AllChildren returns all child items of a folder, including items from
// nested folders. Non-folder items yield an empty result.
func (it *Item) AllChildren() []*Item {
	if it.itemType != TypeFolder {
		return nil
	}
	var all []*Item
	queue := slices.Clone(it.children)
	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]
		all = append(all, item)
		if item.itemType == TypeFolder {
			queue = append(queue, item.children...)
		}
	}
	return all
}

// PushState saves the current name, parents and children. PopState
// restores the most recently pushed state.
func (it *Item) PushState() {
	it.savedStates = append(it.savedStates, it.currentState())
}

// PopState restores the attributes saved by the last PushState call.
// Without a saved state, it does nothing.
func (it *Item) PopState() {
	if len(it.savedStates) == 0 {
		return
	}
	state := it.savedStates[len(it.savedStates)-1]
	it.savedStates = it.savedStates[:len(it.savedStates)-1]
	it.restoreState(state)
}

// SaveState saves the current name, parents and children under the given
// name, overriding a previously saved state of the same name.
func (it *Item) SaveState(name string) {
	if it.savedNamedStates == nil {
		it.savedNamedStates = make(map[string]State)
	}
	it.savedNamedStates[name] = it.currentState()
}

// NamedState returns the state saved under the given name.
func (it *Item) NamedState(name string) (State, bool) {
	state, ok := it.savedNamedStates[name]
	return state, ok
}

// DeleteNamedState deletes the state saved under the given name, if any.
func (it *Item) DeleteNamedState(name string) {
	delete(it.savedNamedStates, name)
}

// Reset restores the name, parents and children to their values upon
// creation.
func (it *Item) Reset() {
	it.Name = it.origName
	it.parents = slices.Clone(it.origParents)
	it.children = slices.Clone(it.origChildren)
}

func (it *Item) currentState() State {
	return State{
		Name:     it.Name,
		Parents:  slices.Clone(it.parents),
		Children: slices.Clone(it.children),
	}
}

func (it *Item) restoreState(state State) {
	it.Name = state.Name
	it.parents = state.Parents
	it.children = state.Children
}
