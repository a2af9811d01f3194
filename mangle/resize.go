package mangle

import (
	"image"
	"log/slog"
	"math"

	"golang.org/x/image/draw"
)

// Thumbnail scales img down to fit within maxWidth x maxHeight while
// preserving its aspect ratio. A zero dimension is unconstrained; img
// is returned unchanged if it already fits.
func Thumbnail(logger *slog.Logger, img image.Image, maxWidth, maxHeight int) (image.Image, error) {
	srcBounds := img.Bounds()
	srcWidth := float64(srcBounds.Dx())
	srcHeight := float64(srcBounds.Dy())

	destWidth := float64(maxWidth)
	if destWidth == 0 {
		destWidth = srcWidth
	}
	destHeight := float64(maxHeight)
	if destHeight == 0 {
		destHeight = srcHeight
	}

	if srcWidth <= destWidth && srcHeight <= destHeight {
		return img, nil
	}

	scale := math.Min(destWidth/srcWidth, destHeight/srcHeight)
	w := int(math.Round(srcWidth * scale))
	h := int(math.Round(srcHeight * scale))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	logger.Info("resizing thumbnail", "width", w, "height", h)
	dest := image.NewRGBA64(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dest, dest.Bounds(), img, srcBounds, draw.Over, nil)

	return dest, nil
}
