package renamer

import (
	"github.com/jo-hoe/layerbatch/internal/itemtree"
	"github.com/jo-hoe/layerbatch/internal/pathutil"
)

// ItemUniquifier renames items to be unique among items under the same
// parent by appending " (1)", " (2)", ... to the item name.
//
// Passing the same item again has no effect until Reset is called.
type ItemUniquifier struct {
	// Both maps are keyed by the parent item, with nil for top-level
	// items.
	visited map[*itemtree.Item]map[*itemtree.Item]struct{}
	names   map[*itemtree.Item]map[string]struct{}
}

func NewItemUniquifier() *ItemUniquifier {
	return &ItemUniquifier{
		visited: map[*itemtree.Item]map[*itemtree.Item]struct{}{},
		names:   map[*itemtree.Item]map[string]struct{}{},
	}
}

// Uniquify renames item if its name collides with a previously visited
// item under the same parent. The unique substring is inserted at
// position, or appended if position is nil.
func (u *ItemUniquifier) Uniquify(item *itemtree.Item, position *int) {
	parent := item.Parent()

	if u.visited[parent] == nil {
		u.visited[parent] = map[*itemtree.Item]struct{}{}
		u.names[parent] = map[string]struct{}{}
	}

	if _, alreadyVisited := u.visited[parent][item]; alreadyVisited {
		return
	}
	u.visited[parent][item] = struct{}{}

	if _, taken := u.names[parent][item.Name]; taken {
		item.Name = pathutil.UniquifyStringFunc(item.Name, func(candidate string) bool {
			_, exists := u.names[parent][candidate]
			return !exists
		}, position)
	}
	u.names[parent][item.Name] = struct{}{}
}

// Reset clears the cache of visited items and names.
func (u *ItemUniquifier) Reset() {
	u.visited = map[*itemtree.Item]map[*itemtree.Item]struct{}{}
	u.names = map[*itemtree.Item]map[string]struct{}{}
}
