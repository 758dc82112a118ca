package builtin

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/jo-hoe/layerbatch/internal/batch"
	"github.com/jo-hoe/layerbatch/internal/invoke"
)

// dimensionUnit determines how a configured scale dimension is converted
// to pixels.
type dimensionUnit int

const (
	unitPercentageOfLayerWidth dimensionUnit = iota
	unitPercentageOfLayerHeight
	unitPercentageOfImageWidth
	unitPercentageOfImageHeight
	unitPixels
)

func parseDimensionUnit(name string) (dimensionUnit, error) {
	switch name {
	case "percentage_of_layer_width":
		return unitPercentageOfLayerWidth, nil
	case "percentage_of_layer_height":
		return unitPercentageOfLayerHeight, nil
	case "percentage_of_image_width":
		return unitPercentageOfImageWidth, nil
	case "percentage_of_image_height":
		return unitPercentageOfImageHeight, nil
	case "pixels":
		return unitPixels, nil
	default:
		return 0, fmt.Errorf("unknown dimension unit: %s", name)
	}
}

func parseInterpolation(name string) (draw.Interpolator, error) {
	switch name {
	case "none", "nearest":
		return draw.NearestNeighbor, nil
	case "linear", "bilinear":
		return draw.BiLinear, nil
	case "approx_bilinear":
		return draw.ApproxBiLinear, nil
	case "cubic", "catmull_rom":
		return draw.CatmullRom, nil
	default:
		return nil, fmt.Errorf("unknown interpolation: %s", name)
	}
}

// scaleStep resizes the working layer of each processed item.
type scaleStep struct {
	newWidth     float64
	widthUnit    dimensionUnit
	newHeight    float64
	heightUnit   dimensionUnit
	interpolator draw.Interpolator
	localOrigin  bool
}

// NewScale creates the scale step from configuration parameters. Width and
// height each carry a unit, relative to the layer size, relative to the
// image size or in absolute pixels.
func NewScale(params map[string]any) (invoke.Command, error) {
	widthUnit, err := parseDimensionUnit(
		batch.GetStringParam(params, "width_unit", "percentage_of_layer_width"))
	if err != nil {
		return nil, err
	}
	heightUnit, err := parseDimensionUnit(
		batch.GetStringParam(params, "height_unit", "percentage_of_layer_height"))
	if err != nil {
		return nil, err
	}
	interpolator, err := parseInterpolation(
		batch.GetStringParam(params, "interpolation", "none"))
	if err != nil {
		return nil, err
	}

	step := &scaleStep{
		newWidth:     batch.GetFloatParam(params, "new_width", 100),
		widthUnit:    widthUnit,
		newHeight:    batch.GetFloatParam(params, "new_height", 100),
		heightUnit:   heightUnit,
		interpolator: interpolator,
		localOrigin:  batch.GetBoolParam(params, "local_origin", false),
	}
	return step.run, nil
}

func (s *scaleStep) run(args invoke.Args, kwargs invoke.Kwargs) error {
	batcher, err := batch.BatcherFromArgs(args)
	if err != nil {
		return err
	}

	layer := batcher.CurrentLayer()
	if layer == nil {
		return fmt.Errorf("item %q has no layer to scale", batcher.CurrentItem().Name)
	}

	oldWidth, oldHeight := layer.Width(), layer.Height()
	canvasWidth, canvasHeight := batcher.CurrentCanvasSize()
	newWidth := toPixels(s.newWidth, s.widthUnit, oldWidth, oldHeight, canvasWidth, canvasHeight)
	newHeight := toPixels(s.newHeight, s.heightUnit, oldWidth, oldHeight, canvasWidth, canvasHeight)
	if newWidth < 1 {
		newWidth = 1
	}
	if newHeight < 1 {
		newHeight = 1
	}

	img, err := layer.Image()
	if err != nil {
		return err
	}

	scaled := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	s.interpolator.Scale(scaled, scaled.Bounds(), img, img.Bounds(), draw.Src, nil)

	// Keep either the layer center or the scaled position relative to the
	// image origin fixed, then swap in the scaled pixels.
	if s.localOrigin {
		layer.SetOffset(
			layer.OffsetX()+(oldWidth-newWidth)/2,
			layer.OffsetY()+(oldHeight-newHeight)/2,
		)
	} else if oldWidth > 0 && oldHeight > 0 {
		layer.SetOffset(
			layer.OffsetX()*newWidth/oldWidth,
			layer.OffsetY()*newHeight/oldHeight,
		)
	}
	layer.SetImage(scaled)
	return nil
}

func toPixels(value float64, unit dimensionUnit, layerWidth, layerHeight, imageWidth, imageHeight int) int {
	switch unit {
	case unitPercentageOfLayerWidth:
		return int(value / 100 * float64(layerWidth))
	case unitPercentageOfLayerHeight:
		return int(value / 100 * float64(layerHeight))
	case unitPercentageOfImageWidth:
		return int(value / 100 * float64(imageWidth))
	case unitPercentageOfImageHeight:
		return int(value / 100 * float64(imageHeight))
	default:
		return int(value)
	}
}

func init() {
	// Register the procedure in the default registry
	if err := batch.DefaultProcedures.Register("scale", batch.ProcedureSpec{
		DisplayName: "Scale",
		Factory:     NewScale,
	}); err != nil {
		panic(fmt.Sprintf("failed to register scale procedure: %v", err))
	}
}
