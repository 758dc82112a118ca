// Package source loads image layers from XCF files, plain raster files,
// SVG files and directory trees, and composites them onto RGBA canvases.
package source

import (
	"fmt"
	"image"

	"github.com/jo-hoe/layerbatch/internal/itemtree"
)

// FullOpacity is the opacity value of a fully opaque layer.
const FullOpacity uint8 = 255

// Layer is a single layer or layer group. File-backed layers decode
// their pixel data on the first Image call, while dimensions and offsets
// are available without decoding.
type Layer struct {
	name     string
	group    bool
	visible  bool
	opacity  uint8
	offsetX  int
	offsetY  int
	width    int
	height   int
	children []*Layer

	img  image.Image
	load func() (image.Image, error)
}

// NewLayer creates a visible, fully opaque leaf layer from an image.
func NewLayer(name string, img image.Image) *Layer {
	bounds := img.Bounds()
	return &Layer{
		name:    name,
		visible: true,
		opacity: FullOpacity,
		width:   bounds.Dx(),
		height:  bounds.Dy(),
		img:     img,
	}
}

// NewGroupLayer creates a visible, fully opaque layer group.
func NewGroupLayer(name string, children []*Layer) *Layer {
	return &Layer{
		name:     name,
		group:    true,
		visible:  true,
		opacity:  FullOpacity,
		children: children,
	}
}

// newFileLayer creates a leaf layer whose image is produced by load on
// the first Image call.
func newFileLayer(name string, width, height int, load func() (image.Image, error)) *Layer {
	return &Layer{
		name:    name,
		visible: true,
		opacity: FullOpacity,
		width:   width,
		height:  height,
		load:    load,
	}
}

// Name returns the layer name.
func (l *Layer) Name() string {
	return l.name
}

// SetName renames the layer.
func (l *Layer) SetName(name string) {
	l.name = name
}

// IsGroup reports whether the layer is a layer group.
func (l *Layer) IsGroup() bool {
	return l.group
}

// Children returns the child layers as tree nodes.
func (l *Layer) Children() []itemtree.Node {
	nodes := make([]itemtree.Node, len(l.children))
	for i, child := range l.children {
		nodes[i] = child
	}
	return nodes
}

// Layers returns the child layers, ordered top-most first.
func (l *Layer) Layers() []*Layer {
	return l.children
}

// Visible reports whether the layer is visible.
func (l *Layer) Visible() bool {
	return l.visible
}

// SetVisible sets the layer visibility.
func (l *Layer) SetVisible(visible bool) {
	l.visible = visible
}

// Opacity returns the layer opacity from 0 (transparent) to 255.
func (l *Layer) Opacity() uint8 {
	return l.opacity
}

// SetOpacity sets the layer opacity.
func (l *Layer) SetOpacity(opacity uint8) {
	l.opacity = opacity
}

// Width returns the layer width in pixels without decoding the image.
func (l *Layer) Width() int {
	return l.width
}

// Height returns the layer height in pixels without decoding the image.
func (l *Layer) Height() int {
	return l.height
}

// OffsetX returns the horizontal layer position on the canvas.
func (l *Layer) OffsetX() int {
	return l.offsetX
}

// OffsetY returns the vertical layer position on the canvas.
func (l *Layer) OffsetY() int {
	return l.offsetY
}

// SetOffset moves the layer to the given canvas position.
func (l *Layer) SetOffset(x, y int) {
	l.offsetX = x
	l.offsetY = y
}

// Image returns the layer's pixel data, decoding it on the first call
// for file-backed layers. Layer groups have no image of their own.
func (l *Layer) Image() (image.Image, error) {
	if l.group {
		return nil, fmt.Errorf("layer group %q has no image data", l.name)
	}
	if l.img != nil {
		return l.img, nil
	}
	if l.load == nil {
		return nil, fmt.Errorf("layer %q has no image data", l.name)
	}

	img, err := l.load()
	if err != nil {
		return nil, fmt.Errorf("failed to load image of layer %q: %w", l.name, err)
	}
	l.img = img
	l.load = nil
	bounds := img.Bounds()
	l.width = bounds.Dx()
	l.height = bounds.Dy()
	return img, nil
}

// SetImage replaces the layer's pixel data and updates the dimensions.
func (l *Layer) SetImage(img image.Image) {
	bounds := img.Bounds()
	l.img = img
	l.load = nil
	l.width = bounds.Dx()
	l.height = bounds.Dy()
}
