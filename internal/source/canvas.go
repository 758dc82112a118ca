package source

import "github.com/jo-hoe/layerbatch/internal/itemtree"

// Canvas is a named set of layers with a fixed pixel size. Layers are
// ordered top-most first, matching the XCF layer order.
type Canvas struct {
	Name   string
	Width  int
	Height int
	Layers []*Layer
}

// Nodes returns the top-level layers as tree nodes, e.g. for building an
// item tree over the canvas.
func (c *Canvas) Nodes() []itemtree.Node {
	nodes := make([]itemtree.Node, len(c.Layers))
	for i, layer := range c.Layers {
		nodes[i] = layer
	}
	return nodes
}
