package mangle

import (
	"image"
	"image/color"
	"log/slog"

	"flare16x/palette"
)

// Preview quantizes img against pal for human inspection (a decoded
// thermal export rendered with a palette other than the three exact
// device ones flare16x can invert), nearest-matching in Oklab space.
func Preview(logger *slog.Logger, img image.Image, pal color.Palette, dither bool) (image.Image, error) {
	logger.Info("applying preview palette", "colors", len(pal), "dither", dither)
	return palette.PreviewQuantize(img, pal, dither)
}
