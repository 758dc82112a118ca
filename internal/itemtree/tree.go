package itemtree

import (
	"errors"
	"fmt"
	"slices"

	"github.com/jo-hoe/layerbatch/internal/objectfilter"
)

// ListOptions controls which items List, Len, Next and Prev consider.
// The zero value matches the common processing view: no folders, no empty
// groups, filter applied, forward order.
type ListOptions struct {
	// WithFolders includes folder items. A folder is always listed before
	// the items it contains.
	WithFolders bool
	// WithEmptyGroups includes group items whose node has no children.
	WithEmptyGroups bool
	// Unfiltered disables the tree filter for this listing.
	Unfiltered bool
	// Reverse lists items starting from the last item in the tree.
	Reverse bool
}

// Tree stores items in a tree-like structure with a stable, linked
// iteration order. Group nodes are inserted twice, as a folder item
// parenting their children and as a group item acting as a single item.
//
// The tree does not track changes made to the underlying nodes after
// items are added.
type Tree struct {
	// Filtered applies the filter when listing items. Individual listings
	// can override this via ListOptions.Unfiltered.
	Filtered bool

	matchType objectfilter.MatchType
	filter    *objectfilter.Filter[*Item]

	first *Item
	last  *Item
	items map[Key]*Item
}

// NewTree creates an empty filtered tree with a match-all filter.
func NewTree() *Tree {
	return &Tree{
		Filtered:  true,
		matchType: objectfilter.MatchAll,
		filter:    objectfilter.New[*Item](objectfilter.MatchAll),
		items:     make(map[Key]*Item),
	}
}

// Filter returns the filter applied when listing items.
func (t *Tree) Filter() *objectfilter.Filter[*Item] {
	return t.filter
}

// ResetFilter replaces the filter with a new empty one.
func (t *Tree) ResetFilter() {
	t.filter = objectfilter.New[*Item](t.matchType)
}

// Get returns the item stored under the given key.
func (t *Tree) Get(key Key) (*Item, bool) {
	item, ok := t.items[key]
	return item, ok
}

// Contains reports whether an item is stored under the given key,
// regardless of filtering.
func (t *Tree) Contains(key Key) bool {
	_, ok := t.items[key]
	return ok
}

// Add adds the given nodes as items. Group nodes contribute a folder item,
// their children recursively and a group item. parent, when non-nil, is an
// existing item the new items are placed under; insertAfter, when non-nil,
// is the existing item after which the new items are linked, and must be a
// child of parent or parent itself when both are given. With insertAfter
// nil, items are linked after the last existing item.
func (t *Tree) Add(nodes []Node, parent, insertAfter *Item) error {
	if len(nodes) == 0 {
		return nil
	}
	if parent != nil && insertAfter != nil &&
		parent != insertAfter && !slices.Contains(parent.children, insertAfter) {
		return errors.New("insertAfter must be a child of parent or equal to parent")
	}
	if parent != nil && !t.Contains(parent.Key()) {
		return fmt.Errorf("parent item %q does not exist within this item tree", parent.Name)
	}
	if insertAfter != nil && !t.Contains(insertAfter.Key()) {
		return fmt.Errorf("insertAfter item %q does not exist within this item tree", insertAfter.Name)
	}

	var baseParents []*Item
	if parent != nil {
		baseParents = append(slices.Clone(parent.parents), parent)
	}

	var queue []*Item
	for _, node := range nodes {
		queue = appendNodeItems(queue, node, slices.Clone(baseParents))
	}

	var linked []*Item
	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]
		linked = append(linked, item)
		t.items[item.Key()] = item

		if item.itemType != TypeFolder {
			continue
		}
		parentsForChild := append(slices.Clone(item.parents), item)
		var children []*Item
		for _, child := range item.node.Children() {
			children = appendNodeItems(children, child, slices.Clone(parentsForChild))
		}
		item.origChildren = slices.Clone(children)
		item.children = children
		// Children are processed right after their folder, before any
		// remaining siblings and before the folder's group item.
		queue = append(slices.Clone(children), queue...)
	}

	for i := 1; i < len(linked)-1; i++ {
		linked[i].prev = linked[i-1]
		linked[i].next = linked[i+1]
	}
	if len(linked) > 1 {
		linked[0].next = linked[1]
		linked[len(linked)-1].prev = linked[len(linked)-2]
	}

	if t.first == nil && t.last == nil {
		t.first = linked[0]
		t.last = linked[len(linked)-1]
		return nil
	}

	if insertAfter == nil {
		switch {
		case parent == nil:
			insertAfter = t.last
		case len(parent.children) > 0:
			insertAfter = parent.children[len(parent.children)-1]
		default:
			insertAfter = parent
		}
	}
	lastLinked := linked[len(linked)-1]
	lastLinked.next = insertAfter.next
	if insertAfter.next != nil {
		insertAfter.next.prev = lastLinked
	} else {
		t.last = lastLinked
	}
	linked[0].prev = insertAfter
	insertAfter.next = linked[0]
	return nil
}

// Remove removes the given items. Removing a folder also removes all of
// its children, and folder and group items of the same node are always
// removed together. Items not present in the tree are ignored.
func (t *Tree) Remove(items []*Item) {
	for _, item := range items {
		keys := []Key{{Node: item.node}}
		if item.itemType != TypeItem {
			keys = append(keys, Key{Node: item.node, Folder: true})
		}

		var toRemove []*Item
		for _, key := range keys {
			if found, ok := t.items[key]; ok {
				toRemove = append(toRemove, found)
				toRemove = append(toRemove, found.AllChildren()...)
			}
		}

		for _, rem := range toRemove {
			delete(t.items, Key{Node: rem.node})
			delete(t.items, Key{Node: rem.node, Folder: true})

			next, prev := rem.next, rem.prev
			if prev != nil {
				prev.next = next
			}
			if next != nil {
				next.prev = prev
			}
			if p := rem.Parent(); p != nil {
				if i := slices.Index(p.children, rem); i >= 0 {
					p.children = slices.Delete(p.children, i, i+1)
				}
			}
			if rem == t.first {
				t.first = next
			}
			if rem == t.last {
				t.last = prev
			}
		}
	}
}

// List returns the items selected by opts in iteration order.
func (t *Tree) List(opts ListOptions) []*Item {
	current := t.first
	if opts.Reverse {
		current = t.last
	}

	var items []*Item
	counter := 0
	for current != nil {
		if counter >= len(t.items) {
			panic("item count exceeded (possible cycle in item links)")
		}
		if t.shouldList(current, opts) {
			items = append(items, current)
		}
		if opts.Reverse {
			current = current.prev
		} else {
			current = current.next
		}
		counter++
	}
	return items
}

// Len returns the number of items selected by opts.
func (t *Tree) Len(opts ListOptions) int {
	return len(t.List(opts))
}

// Next returns the nearest item after the given one that opts select, or
// nil.
func (t *Tree) Next(item *Item, opts ListOptions) *Item {
	return t.adjacent(item, opts, true)
}

// Prev returns the nearest item before the given one that opts select, or
// nil.
func (t *Tree) Prev(item *Item, opts ListOptions) *Item {
	return t.adjacent(item, opts, false)
}

func (t *Tree) shouldList(item *Item, opts ListOptions) bool {
	if !opts.WithFolders && item.itemType == TypeFolder {
		return false
	}
	if !opts.WithEmptyGroups && isEmptyGroup(item) {
		return false
	}
	if !opts.Unfiltered && t.Filtered && !t.filter.IsMatch(item) {
		return false
	}
	return true
}

func (t *Tree) adjacent(item *Item, opts ListOptions, forward bool) *Item {
	adj := item
	for {
		if forward {
			adj = adj.next
		} else {
			adj = adj.prev
		}
		if adj == nil {
			return nil
		}
		if adj.itemType == TypeFolder {
			if opts.WithFolders {
				return adj
			}
			continue
		}
		if isEmptyGroup(adj) {
			if opts.WithEmptyGroups {
				return adj
			}
			continue
		}
		if !opts.Unfiltered && t.Filtered {
			if t.filter.IsMatch(adj) {
				return adj
			}
			continue
		}
		return adj
	}
}

func isEmptyGroup(item *Item) bool {
	return item.itemType == TypeGroup && len(item.node.Children()) == 0
}

func appendNodeItems(items []*Item, node Node, parents []*Item) []*Item {
	if node == nil {
		return items
	}
	if node.IsGroup() {
		items = append(items, newItem(node, TypeFolder, parents))
		// Each item keeps its own parents list.
		items = append(items, newItem(node, TypeGroup, slices.Clone(parents)))
		return items
	}
	return append(items, newItem(node, TypeItem, parents))
}
