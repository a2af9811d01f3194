package palette

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"flare16x/okcolor"
)

// Lab is a palette represented in Oklab space instead of sRGB, so
// nearest-color matching (Index) compares perceptual distance rather
// than raw channel distance. It backs PreviewQuantize's lookup and the
// `flare16x palette export --space=lab` RIFF variant.
type Lab []okcolor.Lab

var (
	_ PaletteRIFFReaderWriter = &Lab{}
	_ PaletteConverter        = &Lab{}
)

// NewLabPalette converts an sRGB color.Palette into Oklab space.
func NewLabPalette(p color.Palette) *Lab {
	pal := &Lab{}
	pal.From(p)
	return pal
}

// Convert returns the palette entry nearest lc in Oklab space.
func (p *Lab) Convert(lc okcolor.Lab) okcolor.Lab {
	if len(*p) == 0 {
		return okcolor.Lab{}
	}
	return (*p)[p.Index(lc)]
}

// Index returns the index of the palette entry nearest lc, by squared
// Euclidean distance over (L, a, b, alpha).
func (p *Lab) Index(lc okcolor.Lab) int {
	ret, bestSum := 0, math.MaxFloat64
	for i, v := range *p {
		dL := lc.L - v.L
		da := lc.A - v.A
		db := lc.B - v.B
		dA := lc.Alpha - v.Alpha
		sum := dL*dL + da*da + db*db + float64(dA*dA)
		if sum < bestSum {
			if sum == 0 {
				return i
			}
			ret, bestSum = i, sum
		}
	}
	return ret
}

// From appends pal's colors to p, converted to Oklab, and reports how
// many entries were added.
func (p *Lab) From(pal color.Palette) int64 {
	for _, col := range pal {
		*p = append(*p, okcolor.LabModel.Convert(col).(okcolor.Lab))
	}
	return int64(len(pal))
}

// To renders p back out to an sRGB color.Palette under model m.
func (p *Lab) To(m color.Model) (int64, color.Palette) {
	pal := make(color.Palette, len(*p))
	for i, lc := range *p {
		pal[i] = m.Convert(lc)
	}
	return int64(len(pal)), pal
}

// ReadRIFF loads every palette chunk from r and appends them to p.
func (p *Lab) ReadRIFF(r io.Reader) (int64, error) {
	pals, err := ReadFrom(r)
	if err != nil {
		return 0, fmt.Errorf("could not load palettes: %w", err)
	}

	var n int64
	for _, pal := range pals {
		n += p.From(pal)
	}
	return n, nil
}

// WriteRIFF writes p out as a single RIFF PAL chunk, converting back
// to sRGB first.
func (p *Lab) WriteRIFF(w io.Writer) (int64, error) {
	pal := make(color.Palette, len(*p))
	for i, lc := range *p {
		pal[i] = color.RGBAModel.Convert(lc)
	}

	n, err := WriteTo(w, []color.Palette{pal})
	if err != nil {
		return n, fmt.Errorf("could not save palette: %w", err)
	}
	return n, nil
}
