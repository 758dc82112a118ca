// Package export writes processed items to image files. It holds the
// file format table, per-extension export bookkeeping and the handling
// of conflicts with existing files.
package export

import (
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"strings"

	"github.com/gonutz/xcf"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"

	"github.com/jo-hoe/layerbatch/internal/pathutil"
)

// DecodeFunc reads a single image from r.
type DecodeFunc func(r io.Reader) (image.Image, error)

// EncodeFunc writes img to w.
type EncodeFunc func(w io.Writer, img image.Image) error

// Format describes one supported file format. A nil Encode means the
// format can only be read, a nil Decode that it can only be written.
type Format struct {
	Description string
	// Extensions lists the file extensions of the format, canonical
	// extension first. Extensions are matched case-insensitively.
	Extensions []string
	Decode     DecodeFunc
	Encode     EncodeFunc
}

const jpegQuality = 90

// Formats lists all supported file formats.
var Formats = []*Format{
	{
		Description: "bzip-compressed GIMP XCF image",
		Extensions:  []string{"xcf.bz2", "xcfbz2"},
		Decode:      decodeXCFBzip2,
	},
	{
		Description: "GIF image",
		Extensions:  []string{"gif"},
		Decode:      gif.Decode,
		Encode: func(w io.Writer, img image.Image) error {
			return gif.Encode(w, img, nil)
		},
	},
	{
		Description: "GIMP XCF image",
		Extensions:  []string{"xcf"},
		Decode:      decodeXCF,
	},
	{
		Description: "gzip-compressed GIMP XCF image",
		Extensions:  []string{"xcf.gz", "xcfgz"},
		Decode:      decodeXCFGzip,
	},
	{
		Description: "JPEG image",
		Extensions:  []string{"jpg", "jpeg"},
		Decode:      jpeg.Decode,
		Encode: func(w io.Writer, img image.Image) error {
			return jpeg.Encode(w, img, &jpeg.Options{Quality: jpegQuality})
		},
	},
	{
		Description: "PNG image",
		Extensions:  []string{"png"},
		Decode:      png.Decode,
		Encode:      png.Encode,
	},
	{
		Description: "SVG vector image",
		Extensions:  []string{"svg"},
		Decode:      decodeSVG,
	},
	{
		Description: "TIFF image",
		Extensions:  []string{"tif", "tiff"},
		Decode:      tiff.Decode,
		Encode: func(w io.Writer, img image.Image) error {
			return tiff.Encode(w, img, nil)
		},
	},
	{
		Description: "WebP image",
		Extensions:  []string{"webp"},
		Decode:      webp.Decode,
	},
	{
		Description: "Windows BMP image",
		Extensions:  []string{"bmp"},
		Decode:      bmp.Decode,
		Encode:      bmp.Encode,
	},
}

var formatsByExtension = map[string]*Format{}

func init() {
	for _, format := range Formats {
		for _, extension := range format.Extensions {
			key := strings.ToLower(extension)
			if _, exists := formatsByExtension[key]; !exists {
				formatsByExtension[key] = format
			}
			if strings.Contains(key, ".") {
				pathutil.RegisterMultipartExtension(key)
			}
		}
	}
}

// ForExtension returns the format registered for the file extension.
func ForExtension(extension string) (*Format, bool) {
	format, ok := formatsByExtension[strings.ToLower(extension)]
	return format, ok
}

// CanDecode reports whether files with the given extension can be read.
func CanDecode(extension string) bool {
	format, ok := ForExtension(extension)
	return ok && format.Decode != nil
}

// CanEncode reports whether files with the given extension can be
// written.
func CanEncode(extension string) bool {
	format, ok := ForExtension(extension)
	return ok && format.Encode != nil
}

// KnownExtensions returns all registered file extensions in the order of
// the format table.
func KnownExtensions() []string {
	var extensions []string
	for _, format := range Formats {
		extensions = append(extensions, format.Extensions...)
	}
	return extensions
}

// Decode reads an image from r using the decoder registered for the file
// extension.
func Decode(r io.Reader, extension string) (image.Image, error) {
	format, ok := ForExtension(extension)
	if !ok || format.Decode == nil {
		return nil, fmt.Errorf("no decoder for file extension %q", extension)
	}
	return format.Decode(r)
}

// DecodeFile reads the image stored at path, choosing the decoder by the
// file extension.
func DecodeFile(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", path, err)
	}
	defer file.Close()
	return Decode(file, pathutil.FileExtension(path))
}

// Encode writes img to w using the encoder registered for the file
// extension.
func Encode(w io.Writer, img image.Image, extension string) error {
	format, ok := ForExtension(extension)
	if !ok || format.Encode == nil {
		return fmt.Errorf("no encoder for file extension %q", extension)
	}
	return format.Encode(w, img)
}

// WriteFile encodes img into a file at path, choosing the encoder by the
// given file extension.
func WriteFile(path string, img image.Image, extension string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %q: %w", path, err)
	}
	if err := Encode(file, img, extension); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func decodeXCF(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read XCF data: %w", err)
	}
	canvas, err := xcf.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return flattenXCF(canvas), nil
}

func decodeXCFGzip(r io.Reader) (image.Image, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read gzip stream: %w", err)
	}
	defer zr.Close()
	return decodeXCF(zr)
}

func decodeXCFBzip2(r io.Reader) (image.Image, error) {
	return decodeXCF(bzip2.NewReader(r))
}

// flattenXCF composites all visible layers onto a transparent canvas,
// bottom-most layer first, masking in each layer's opacity.
func flattenXCF(canvas xcf.Canvas) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, int(canvas.Width), int(canvas.Height)))

	for i := len(canvas.Layers) - 1; i >= 0; i-- {
		layer := canvas.Layers[i]
		if !layer.Visible {
			continue
		}
		mask := image.NewUniform(color.Alpha{A: layer.Opacity})
		draw.DrawMask(img, layer.Bounds(), layer, layer.Bounds().Min, mask, image.Point{}, draw.Over)
	}
	return img
}
