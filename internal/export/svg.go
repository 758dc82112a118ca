package export

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// DefaultSVGSize is the render size in pixels for SVG files that carry
// neither explicit dimensions nor a usable viewBox.
const DefaultSVGSize = 512

var (
	svgWidthRegex  = regexp.MustCompile(`\swidth\s*=\s*["']([0-9.]+)(?:px)?["']`)
	svgHeightRegex = regexp.MustCompile(`\sheight\s*=\s*["']([0-9.]+)(?:px)?["']`)
)

func decodeSVG(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read SVG data: %w", err)
	}
	return RasterizeSVG(data, DefaultSVGSize, DefaultSVGSize)
}

// SVGSize determines the render size for SVG data without rasterizing
// it. The size is taken from explicit width and height attributes, then
// from the viewBox, then from the fallback dimensions.
func SVGSize(data []byte, fallbackWidth, fallbackHeight int) (int, int, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to parse SVG: %w", err)
	}
	width, height := svgRenderSize(icon, data, fallbackWidth, fallbackHeight)
	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("invalid SVG render size %dx%d", width, height)
	}
	return width, height, nil
}

// RasterizeSVG renders SVG data onto an RGBA image. The render size is
// taken from explicit width and height attributes, then from the
// viewBox, then from the fallback dimensions.
func RasterizeSVG(data []byte, fallbackWidth, fallbackHeight int) (image.Image, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse SVG: %w", err)
	}

	width, height := svgRenderSize(icon, data, fallbackWidth, fallbackHeight)
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid SVG render size %dx%d", width, height)
	}

	// A zero viewBox would degenerate the target transform.
	if icon.ViewBox.W <= 0 || icon.ViewBox.H <= 0 {
		icon.ViewBox.X = 0
		icon.ViewBox.Y = 0
		icon.ViewBox.W = float64(width)
		icon.ViewBox.H = float64(height)
	}
	icon.SetTarget(0, 0, float64(width), float64(height))

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	scanner := rasterx.NewScannerGV(width, height, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(width, height, scanner), 1)
	return img, nil
}

func svgRenderSize(icon *oksvg.SvgIcon, data []byte, fallbackWidth, fallbackHeight int) (int, int) {
	if width, height, ok := svgExplicitSize(data); ok {
		return width, height
	}
	if icon.ViewBox.W > 0 && icon.ViewBox.H > 0 {
		return int(math.Ceil(icon.ViewBox.W)), int(math.Ceil(icon.ViewBox.H))
	}
	return fallbackWidth, fallbackHeight
}

// svgExplicitSize extracts pixel width and height attributes from the
// opening svg tag.
func svgExplicitSize(data []byte) (int, int, bool) {
	head := data
	if len(head) > 8192 {
		head = head[:8192]
	}
	tag := strings.ToLower(string(head))

	start := strings.Index(tag, "<svg")
	if start < 0 {
		return 0, 0, false
	}
	tag = tag[start:]
	if end := strings.IndexByte(tag, '>'); end >= 0 {
		tag = tag[:end]
	}

	width, widthOK := matchSVGLength(tag, svgWidthRegex)
	height, heightOK := matchSVGLength(tag, svgHeightRegex)
	if !widthOK || !heightOK {
		return 0, 0, false
	}
	return width, height, true
}

func matchSVGLength(tag string, re *regexp.Regexp) (int, bool) {
	match := re.FindStringSubmatch(tag)
	if match == nil {
		return 0, false
	}
	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil || value <= 0 {
		return 0, false
	}
	return int(math.Ceil(value)), true
}
