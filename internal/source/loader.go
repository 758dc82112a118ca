package source

import (
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gonutz/xcf"

	"github.com/jo-hoe/layerbatch/internal/export"
	"github.com/jo-hoe/layerbatch/internal/pathutil"
)

// LoadOptions control how image sources are read.
type LoadOptions struct {
	// SVGWidth and SVGHeight are the render size for SVG files that
	// carry neither explicit dimensions nor a usable viewBox. Zero
	// values fall back to export.DefaultSVGSize.
	SVGWidth  int
	SVGHeight int
}

func (o LoadOptions) svgWidth() int {
	if o.SVGWidth > 0 {
		return o.SVGWidth
	}
	return export.DefaultSVGSize
}

func (o LoadOptions) svgHeight() int {
	if o.SVGHeight > 0 {
		return o.SVGHeight
	}
	return export.DefaultSVGSize
}

// Load reads a canvas from the given path. Directories become layer
// trees, XCF files keep their layer structure and any other supported
// image file becomes a canvas with a single layer.
func Load(path string, opts LoadOptions) (*Canvas, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read source %q: %w", path, err)
	}
	if info.IsDir() {
		return LoadDirectory(path, opts)
	}

	switch strings.ToLower(pathutil.FileExtension(path)) {
	case "xcf", "xcf.gz", "xcfgz", "xcf.bz2", "xcfbz2":
		return LoadXCF(path)
	case "svg":
		return LoadSVG(path, opts.svgWidth(), opts.svgHeight())
	default:
		return LoadRaster(path)
	}
}

// LoadXCF reads an XCF file, including the gzip and bzip2 compressed
// variants, keeping the layer structure intact.
func LoadXCF(path string) (*Canvas, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open XCF file: %w", err)
	}
	defer file.Close()

	stream, err := xcfStream(file, pathutil.FileExtension(path))
	if err != nil {
		return nil, err
	}
	reader, ok := stream.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(stream)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress XCF data: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	decoded, err := xcf.Decode(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to decode XCF file %q: %w", path, err)
	}

	layers := make([]*Layer, 0, len(decoded.Layers))
	for _, xcfLayer := range decoded.Layers {
		bounds := xcfLayer.Bounds()
		layer := NewLayer(xcfLayer.Name, xcfLayer.RGBA)
		layer.SetVisible(xcfLayer.Visible)
		layer.SetOpacity(xcfLayer.Opacity)
		layer.SetOffset(bounds.Min.X, bounds.Min.Y)
		layers = append(layers, layer)
	}

	return &Canvas{
		Name:   filepath.Base(path),
		Width:  int(decoded.Width),
		Height: int(decoded.Height),
		Layers: layers,
	}, nil
}

// LoadRaster reads a raster image file into a single-layer canvas. Only
// the header is decoded up front, the pixel data follows on the first
// image access.
func LoadRaster(path string) (*Canvas, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image file: %w", err)
	}
	defer file.Close()

	config, _, err := image.DecodeConfig(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read image header of %q: %w", path, err)
	}

	name := filepath.Base(path)
	layer := newFileLayer(name, config.Width, config.Height, func() (image.Image, error) {
		return export.DecodeFile(path)
	})
	return &Canvas{
		Name:   name,
		Width:  config.Width,
		Height: config.Height,
		Layers: []*Layer{layer},
	}, nil
}

// LoadSVG reads an SVG file into a single-layer canvas. The vector data
// is rasterized on the first image access.
func LoadSVG(path string, fallbackWidth, fallbackHeight int) (*Canvas, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read SVG file: %w", err)
	}
	width, height, err := export.SVGSize(data, fallbackWidth, fallbackHeight)
	if err != nil {
		return nil, fmt.Errorf("failed to size SVG file %q: %w", path, err)
	}

	name := filepath.Base(path)
	layer := newFileLayer(name, width, height, func() (image.Image, error) {
		return export.RasterizeSVG(data, fallbackWidth, fallbackHeight)
	})
	return &Canvas{
		Name:   name,
		Width:  width,
		Height: height,
		Layers: []*Layer{layer},
	}, nil
}

// LoadDirectory builds a canvas from a directory tree. Subdirectories
// become layer groups, image files become leaf layers and any other file
// is skipped. The canvas size is the maximum size over all leaf layers.
func LoadDirectory(path string, opts LoadOptions) (*Canvas, error) {
	layers, err := loadDirectoryLayers(path, opts)
	if err != nil {
		return nil, err
	}

	canvas := &Canvas{Name: filepath.Base(path), Layers: layers}
	var walk func(layers []*Layer)
	walk = func(layers []*Layer) {
		for _, layer := range layers {
			if layer.IsGroup() {
				walk(layer.Layers())
				continue
			}
			if layer.Width() > canvas.Width {
				canvas.Width = layer.Width()
			}
			if layer.Height() > canvas.Height {
				canvas.Height = layer.Height()
			}
		}
	}
	walk(layers)
	return canvas, nil
}

func loadDirectoryLayers(dir string, opts LoadOptions) ([]*Layer, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %q: %w", dir, err)
	}

	var layers []*Layer
	for _, entry := range entries {
		entryPath := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			children, err := loadDirectoryLayers(entryPath, opts)
			if err != nil {
				return nil, err
			}
			layers = append(layers, NewGroupLayer(entry.Name(), children))
			continue
		}

		layer, err := loadFileLayer(entryPath, opts)
		if err != nil {
			slog.Debug("skipping file with unreadable image header",
				"path", entryPath,
				"error", err)
			continue
		}
		if layer == nil {
			continue
		}
		layers = append(layers, layer)
	}
	return layers, nil
}

// loadFileLayer creates a lazily decoded leaf layer for a supported
// image file, or nil for files of unknown formats.
func loadFileLayer(path string, opts LoadOptions) (*Layer, error) {
	extension := strings.ToLower(pathutil.FileExtension(path))
	if !export.CanDecode(extension) {
		return nil, nil
	}

	name := filepath.Base(path)
	switch extension {
	case "svg":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		width, height, err := export.SVGSize(data, opts.svgWidth(), opts.svgHeight())
		if err != nil {
			return nil, err
		}
		return newFileLayer(name, width, height, func() (image.Image, error) {
			return export.RasterizeSVG(data, opts.svgWidth(), opts.svgHeight())
		}), nil
	case "xcf", "xcf.gz", "xcfgz", "xcf.bz2", "xcfbz2":
		width, height, err := xcfCanvasSize(path, extension)
		if err != nil {
			return nil, err
		}
		return newFileLayer(name, width, height, func() (image.Image, error) {
			return export.DecodeFile(path)
		}), nil
	default:
		file, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer file.Close()
		config, _, err := image.DecodeConfig(file)
		if err != nil {
			return nil, err
		}
		return newFileLayer(name, config.Width, config.Height, func() (image.Image, error) {
			return export.DecodeFile(path)
		}), nil
	}
}

// xcfStream wraps an XCF file in a decompressing reader when the
// extension indicates a compressed variant.
func xcfStream(file *os.File, extension string) (io.Reader, error) {
	switch strings.ToLower(extension) {
	case "xcf.gz", "xcfgz":
		gz, err := gzip.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		return gz, nil
	case "xcf.bz2", "xcfbz2":
		return bzip2.NewReader(file), nil
	default:
		return file, nil
	}
}

// xcfCanvasSize reads the canvas dimensions from the XCF header without
// decoding any layer data.
func xcfCanvasSize(path, extension string) (int, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer file.Close()

	stream, err := xcfStream(file, extension)
	if err != nil {
		return 0, 0, err
	}

	var header struct {
		Magic   [9]byte
		Version [5]byte
		Width   uint32
		Height  uint32
	}
	if err := binary.Read(stream, binary.BigEndian, &header); err != nil {
		return 0, 0, fmt.Errorf("failed to read XCF header: %w", err)
	}
	if string(header.Magic[:]) != "gimp xcf " {
		return 0, 0, fmt.Errorf("not an XCF file: %q", path)
	}
	return int(header.Width), int(header.Height), nil
}
