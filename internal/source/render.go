package source

import (
	"image"
	"image/draw"
	"runtime"
	"sync"
)

// parallelFor runs fn for every index in [0, n) using up to GOMAXPROCS
// goroutines.
func parallelFor(n int, fn func(i int)) {
	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(start int) {
			defer wg.Done()
			for i := start; i < n; i += workers {
				fn(i)
			}
		}(w)
	}
	wg.Wait()
}

// CompositeOver draws src over dst with a uniform opacity. The source's
// top-left pixel lands at (offsetX, offsetY) in dst coordinates. Rows are
// processed in parallel for partially transparent sources.
func CompositeOver(dst *image.RGBA, src image.Image, offsetX, offsetY int, opacity uint8) {
	if opacity == 0 {
		return
	}

	srcBounds := src.Bounds()
	target := image.Rect(offsetX, offsetY, offsetX+srcBounds.Dx(), offsetY+srcBounds.Dy())
	if opacity == FullOpacity {
		draw.Draw(dst, target, src, srcBounds.Min, draw.Over)
		return
	}

	target = target.Intersect(dst.Bounds())
	if target.Empty() {
		return
	}

	// Source-over blend in 16 bit premultiplied space with the uniform
	// opacity folded into the source channels.
	const m = 1<<16 - 1
	ma := uint32(opacity) * 0x101

	parallelFor(target.Dy(), func(row int) {
		y := target.Min.Y + row
		srcY := srcBounds.Min.Y + y - offsetY
		i := dst.PixOffset(target.Min.X, y)
		for x := target.Min.X; x < target.Max.X; x++ {
			sr, sg, sb, sa := src.At(srcBounds.Min.X+x-offsetX, srcY).RGBA()
			sr = sr * ma / m
			sg = sg * ma / m
			sb = sb * ma / m
			sa = sa * ma / m

			a := (m - sa) * 0x101
			dst.Pix[i+0] = uint8((uint32(dst.Pix[i+0])*a/m + sr) >> 8)
			dst.Pix[i+1] = uint8((uint32(dst.Pix[i+1])*a/m + sg) >> 8)
			dst.Pix[i+2] = uint8((uint32(dst.Pix[i+2])*a/m + sb) >> 8)
			dst.Pix[i+3] = uint8((uint32(dst.Pix[i+3])*a/m + sa) >> 8)
			i += 4
		}
	})
}

// RenderCanvas composites all visible layers bottom-up onto a
// transparent RGBA image of the canvas size.
func RenderCanvas(canvas *Canvas) (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, canvas.Width, canvas.Height))
	if err := compositeLayers(img, canvas.Layers, FullOpacity); err != nil {
		return nil, err
	}
	return img, nil
}

// RenderLayer composites a single layer onto a transparent RGBA image of
// the given size. The layer's own visibility is ignored since the caller
// selected it explicitly, while the visibility of group contents applies
// as usual.
func RenderLayer(layer *Layer, width, height int) (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	if layer.IsGroup() {
		if err := compositeLayers(img, layer.Layers(), layer.Opacity()); err != nil {
			return nil, err
		}
		return img, nil
	}

	src, err := layer.Image()
	if err != nil {
		return nil, err
	}
	CompositeOver(img, src, layer.OffsetX(), layer.OffsetY(), layer.Opacity())
	return img, nil
}

// compositeLayers draws layers onto dst from the last (bottom-most) to
// the first, multiplying group opacity into descendants.
func compositeLayers(dst *image.RGBA, layers []*Layer, opacity uint8) error {
	for i := len(layers) - 1; i >= 0; i-- {
		layer := layers[i]
		if !layer.Visible() {
			continue
		}
		effective := uint8(uint16(layer.Opacity()) * uint16(opacity) / 255)
		if layer.IsGroup() {
			if err := compositeLayers(dst, layer.Layers(), effective); err != nil {
				return err
			}
			continue
		}

		src, err := layer.Image()
		if err != nil {
			return err
		}
		CompositeOver(dst, src, layer.OffsetX(), layer.OffsetY(), effective)
	}
	return nil
}
