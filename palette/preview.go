package palette

import (
	"image"
	"image/color"

	"flare16x/ferror"
	"flare16x/okcolor"
)

// PreviewQuantize renders img against an arbitrary-length palette
// (typically one round-tripped through RIFF rather than one of the
// three fixed device palettes) by matching each pixel to its nearest
// color in Oklab space, optionally diffusing the quantization error
// Floyd-Steinberg style. This is a different contract than FindColor:
// FindColor is an exact match against a closed palette of known
// device colors, while PreviewQuantize always returns a result by
// picking the closest available color, which is what a human preview
// needs and an exact-match lookup does not support.
func PreviewQuantize(img image.Image, pal color.Palette, dither bool) (image.Image, error) {
	if len(pal) == 0 {
		return nil, ferror.New(ferror.ReasonOutOfRange, ferror.SourcePalettes)
	}

	lab := &Lab{}
	lab.From(pal)

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	dest := image.NewPaletted(bounds, pal)

	errRow := make([][3]float64, w)
	var nextRow [][3]float64
	if dither {
		nextRow = make([][3]float64, w)
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			lc := okcolor.LabModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(okcolor.Lab)
			if dither {
				lc.L += errRow[x][0]
				lc.A += errRow[x][1]
				lc.B += errRow[x][2]
			}

			idx := lab.Index(lc)
			dest.SetColorIndex(bounds.Min.X+x, bounds.Min.Y+y, uint8(idx))

			if !dither {
				continue
			}

			matched := (*lab)[idx]
			eL, eA, eB := lc.L-matched.L, lc.A-matched.A, lc.B-matched.B
			if x+1 < w {
				errRow[x+1][0] += eL * 7.0 / 16
				errRow[x+1][1] += eA * 7.0 / 16
				errRow[x+1][2] += eB * 7.0 / 16
				nextRow[x+1][0] += eL * 1.0 / 16
				nextRow[x+1][1] += eA * 1.0 / 16
				nextRow[x+1][2] += eB * 1.0 / 16
			}
			nextRow[x][0] += eL * 5.0 / 16
			nextRow[x][1] += eA * 5.0 / 16
			nextRow[x][2] += eB * 5.0 / 16
			if x > 0 {
				nextRow[x-1][0] += eL * 3.0 / 16
				nextRow[x-1][1] += eA * 3.0 / 16
				nextRow[x-1][2] += eB * 3.0 / 16
			}
		}

		if dither {
			errRow, nextRow = nextRow, errRow
			for i := range nextRow {
				nextRow[i] = [3]float64{}
			}
		}
	}

	return dest, nil
}
