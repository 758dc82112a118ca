package source

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/jo-hoe/layerbatch/internal/export"
)

type xcfTestLayer struct {
	name    string
	offsetX int
	offsetY int
	visible bool
	opacity uint8
	pixel   color.RGBA
}

// buildXCF assembles a minimal RLE compressed RGB image file with 1x1
// pixel layers, top-most first.
func buildXCF(t *testing.T, canvasWidth, canvasHeight int, layers ...xcfTestLayer) []byte {
	t.Helper()

	var buf bytes.Buffer
	write := func(v any) {
		if err := binary.Write(&buf, binary.BigEndian, v); err != nil {
			t.Fatalf("Expected fixture write to succeed, got %v", err)
		}
	}

	buf.WriteString("gimp xcf ")
	buf.WriteString("file\x00")
	write(uint32(canvasWidth))
	write(uint32(canvasHeight))
	write(uint32(0)) // RGB color mode
	write(uint32(17))
	write(uint32(1))
	buf.WriteByte(1) // RLE compression
	write(uint32(0))
	write(uint32(0))

	// Layer pointer list with terminator. Each layer block has a fixed
	// size apart from its name.
	offset := buf.Len() + 4*len(layers) + 4
	for _, layer := range layers {
		write(uint32(offset))
		offset += 117 + len(layer.name)
	}
	write(uint32(0))

	for _, layer := range layers {
		write(uint32(1)) // layer width
		write(uint32(1)) // layer height
		write(uint32(1)) // RGBA layer type
		write(uint32(len(layer.name) + 1))
		buf.WriteString(layer.name)
		buf.WriteByte(0)

		write(uint32(15)) // offsets property
		write(uint32(8))
		write(int32(layer.offsetX))
		write(int32(layer.offsetY))
		write(uint32(6)) // opacity property
		write(uint32(4))
		write(uint32(layer.opacity))
		write(uint32(8)) // visibility property
		write(uint32(4))
		visible := uint32(0)
		if layer.visible {
			visible = 1
		}
		write(visible)
		write(uint32(0))
		write(uint32(0))

		hierarchyOffset := buf.Len() + 8
		write(uint32(hierarchyOffset))
		write(uint32(0)) // no layer mask

		write(uint32(1)) // hierarchy width
		write(uint32(1)) // hierarchy height
		write(uint32(4)) // bytes per pixel
		levelOffset := hierarchyOffset + 16 + 4
		write(uint32(levelOffset))
		write(uint32(0)) // no smaller levels

		write(uint32(1)) // level width
		write(uint32(1)) // level height
		write(uint32(levelOffset + 16))
		write(uint32(0))

		for _, channel := range []uint8{layer.pixel.R, layer.pixel.G, layer.pixel.B, layer.pixel.A} {
			buf.WriteByte(0) // run of length 1
			buf.WriteByte(channel)
		}
	}
	return buf.Bytes()
}

func TestLoadXCF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "art.xcf")
	data := buildXCF(t, 8, 6,
		xcfTestLayer{name: "Top", offsetX: 2, offsetY: 3, visible: false, opacity: 128, pixel: color.RGBA{10, 20, 30, 255}},
		xcfTestLayer{name: "Background", visible: true, opacity: 255, pixel: color.RGBA{200, 100, 50, 255}},
	)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("Expected fixture file to be written, got %v", err)
	}

	canvas, err := LoadXCF(path)
	if err != nil {
		t.Fatalf("Expected canvas, got error %v", err)
	}
	if canvas.Name != "art.xcf" {
		t.Errorf("Expected canvas name 'art.xcf', got %q", canvas.Name)
	}
	if canvas.Width != 8 || canvas.Height != 6 {
		t.Errorf("Expected canvas size 8x6, got %dx%d", canvas.Width, canvas.Height)
	}
	if len(canvas.Layers) != 2 {
		t.Fatalf("Expected 2 layers, got %d", len(canvas.Layers))
	}

	top := canvas.Layers[0]
	if top.Name() != "Top" {
		t.Errorf("Expected top-most layer 'Top', got %q", top.Name())
	}
	if top.Visible() {
		t.Error("Expected layer 'Top' to be invisible")
	}
	if top.Opacity() != 128 {
		t.Errorf("Expected opacity 128, got %d", top.Opacity())
	}
	if top.OffsetX() != 2 || top.OffsetY() != 3 {
		t.Errorf("Expected offset (2, 3), got (%d, %d)", top.OffsetX(), top.OffsetY())
	}
	if top.Width() != 1 || top.Height() != 1 {
		t.Errorf("Expected layer size 1x1, got %dx%d", top.Width(), top.Height())
	}

	background := canvas.Layers[1]
	if background.Name() != "Background" {
		t.Errorf("Expected bottom layer 'Background', got %q", background.Name())
	}
	img, err := background.Image()
	if err != nil {
		t.Fatalf("Expected layer image, got error %v", err)
	}
	if got := img.At(0, 0); got != (color.RGBA{200, 100, 50, 255}) {
		t.Errorf("Expected pixel {200 100 50 255}, got %v", got)
	}
}

func TestLoadXCFGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "art.xcf.gz")
	data := buildXCF(t, 2, 2,
		xcfTestLayer{name: "Background", visible: true, opacity: 255, pixel: color.RGBA{1, 2, 3, 255}},
	)

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(data); err != nil {
		t.Fatalf("Expected gzip write to succeed, got %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("Expected gzip close to succeed, got %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatalf("Expected fixture file to be written, got %v", err)
	}

	canvas, err := LoadXCF(path)
	if err != nil {
		t.Fatalf("Expected canvas, got error %v", err)
	}
	if canvas.Width != 2 || canvas.Height != 2 {
		t.Errorf("Expected canvas size 2x2, got %dx%d", canvas.Width, canvas.Height)
	}
	if len(canvas.Layers) != 1 || canvas.Layers[0].Name() != "Background" {
		t.Fatalf("Expected a single 'Background' layer, got %d layers", len(canvas.Layers))
	}
}

func TestLoadRaster(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.png")
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	img.SetRGBA(1, 1, color.RGBA{10, 20, 30, 255})
	if err := export.WriteFile(path, img, "png"); err != nil {
		t.Fatalf("Expected fixture file to be written, got %v", err)
	}

	canvas, err := LoadRaster(path)
	if err != nil {
		t.Fatalf("Expected canvas, got error %v", err)
	}
	if canvas.Name != "img.png" {
		t.Errorf("Expected canvas name 'img.png', got %q", canvas.Name)
	}
	if canvas.Width != 4 || canvas.Height != 2 {
		t.Errorf("Expected canvas size 4x2, got %dx%d", canvas.Width, canvas.Height)
	}
	if len(canvas.Layers) != 1 {
		t.Fatalf("Expected 1 layer, got %d", len(canvas.Layers))
	}

	layer := canvas.Layers[0]
	if layer.Width() != 4 || layer.Height() != 2 {
		t.Errorf("Expected layer size 4x2, got %dx%d", layer.Width(), layer.Height())
	}
	decoded, err := layer.Image()
	if err != nil {
		t.Fatalf("Expected layer image, got error %v", err)
	}
	r, g, b, a := decoded.At(1, 1).RGBA()
	want := color.RGBA{10, 20, 30, 255}
	if uint8(r>>8) != want.R || uint8(g>>8) != want.G || uint8(b>>8) != want.B || uint8(a>>8) != want.A {
		t.Errorf("Expected pixel %v, got %v", want, decoded.At(1, 1))
	}
}

func TestLoadRasterDecodesOnDemand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.png")
	if err := export.WriteFile(path, image.NewRGBA(image.Rect(0, 0, 2, 2)), "png"); err != nil {
		t.Fatalf("Expected fixture file to be written, got %v", err)
	}

	canvas, err := LoadRaster(path)
	if err != nil {
		t.Fatalf("Expected canvas, got error %v", err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatalf("Expected fixture file to be removed, got %v", err)
	}

	if _, err := canvas.Layers[0].Image(); err == nil {
		t.Error("Expected image load to fail after file removal, got nil")
	}
}

func TestLoadSVG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "icon.svg")
	svg := `<svg xmlns="http://www.w3.org/2000/svg" width="20" height="10"><rect width="20" height="10" fill="#ff0000"/></svg>`
	if err := os.WriteFile(path, []byte(svg), 0o600); err != nil {
		t.Fatalf("Expected fixture file to be written, got %v", err)
	}

	canvas, err := LoadSVG(path, 64, 64)
	if err != nil {
		t.Fatalf("Expected canvas, got error %v", err)
	}
	if canvas.Width != 20 || canvas.Height != 10 {
		t.Errorf("Expected canvas size 20x10, got %dx%d", canvas.Width, canvas.Height)
	}

	img, err := canvas.Layers[0].Image()
	if err != nil {
		t.Fatalf("Expected rasterized image, got error %v", err)
	}
	if bounds := img.Bounds(); bounds.Dx() != 20 || bounds.Dy() != 10 {
		t.Errorf("Expected rasterized size 20x10, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := export.WriteFile(filepath.Join(dir, "a.png"), image.NewRGBA(image.Rect(0, 0, 3, 2)), "png"); err != nil {
		t.Fatalf("Expected fixture file to be written, got %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not an image"), 0o600); err != nil {
		t.Fatalf("Expected fixture file to be written, got %v", err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatalf("Expected fixture directory to be created, got %v", err)
	}
	if err := export.WriteFile(filepath.Join(dir, "sub", "b.png"), image.NewRGBA(image.Rect(0, 0, 5, 1)), "png"); err != nil {
		t.Fatalf("Expected fixture file to be written, got %v", err)
	}

	canvas, err := LoadDirectory(dir, LoadOptions{})
	if err != nil {
		t.Fatalf("Expected canvas, got error %v", err)
	}
	if canvas.Name != filepath.Base(dir) {
		t.Errorf("Expected canvas name %q, got %q", filepath.Base(dir), canvas.Name)
	}
	if canvas.Width != 5 || canvas.Height != 2 {
		t.Errorf("Expected canvas size 5x2, got %dx%d", canvas.Width, canvas.Height)
	}
	if len(canvas.Layers) != 2 {
		t.Fatalf("Expected 2 top-level layers, got %d", len(canvas.Layers))
	}

	if canvas.Layers[0].Name() != "a.png" || canvas.Layers[0].IsGroup() {
		t.Errorf("Expected leaf layer 'a.png', got %q", canvas.Layers[0].Name())
	}
	sub := canvas.Layers[1]
	if sub.Name() != "sub" || !sub.IsGroup() {
		t.Fatalf("Expected group layer 'sub', got %q", sub.Name())
	}
	if len(sub.Layers()) != 1 || sub.Layers()[0].Name() != "b.png" {
		t.Fatalf("Expected group 'sub' to contain 'b.png', got %d layers", len(sub.Layers()))
	}
}

func TestLoadDispatch(t *testing.T) {
	dir := t.TempDir()
	if err := export.WriteFile(filepath.Join(dir, "img.png"), image.NewRGBA(image.Rect(0, 0, 2, 2)), "png"); err != nil {
		t.Fatalf("Expected fixture file to be written, got %v", err)
	}

	canvas, err := Load(filepath.Join(dir, "img.png"), LoadOptions{})
	if err != nil {
		t.Fatalf("Expected canvas for image file, got error %v", err)
	}
	if len(canvas.Layers) != 1 || canvas.Layers[0].IsGroup() {
		t.Error("Expected a single leaf layer for an image file")
	}

	canvas, err = Load(dir, LoadOptions{})
	if err != nil {
		t.Fatalf("Expected canvas for directory, got error %v", err)
	}
	if len(canvas.Layers) != 1 || canvas.Layers[0].Name() != "img.png" {
		t.Error("Expected directory canvas with the image file as layer")
	}

	if _, err := Load(filepath.Join(dir, "missing.png"), LoadOptions{}); err == nil {
		t.Error("Expected error for missing source, got nil")
	}
}
