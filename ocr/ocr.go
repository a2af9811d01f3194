// Package ocr recognizes the on-screen digits and unit glyphs the
// device overlays onto a screenshot, by sampling eight fixed points
// per glyph cell into an 8-bit signature and looking it up in a
// closed table.
package ocr

import (
	"strings"

	"flare16x/canvas"
	"flare16x/ferror"
)

const (
	LargeWidth, LargeHeight = 18, 23
	SmallWidth, SmallHeight = 10, 12
)

var glyphColor = canvas.RGB565(0xff, 0xff, 0xff)

type samplePoint struct{ dx, dy int }

var largeSamples = [8]samplePoint{
	{10, 1}, {16, 1}, {3, 4}, {15, 4}, {12, 7}, {8, 11}, {16, 14}, {8, 18},
}

var smallSamples = [8]samplePoint{
	{3, 1}, {5, 2}, {1, 4}, {6, 5}, {4, 8}, {7, 8}, {5, 10}, {7, 10},
}

var largeTable = map[uint8]byte{
	0x41: '0', 0x11: '1', 0x8d: '2', 0x35: '3', 0x51: '4',
	0x01: '5', 0x69: '6', 0xbb: '7', 0x7d: '8', 0x25: '9',
	0x00: ' ', 0x28: 'C', 0x30: 'F', 0x80: '.', 0x84: 'L',
	0x20: '-', 0xcc: 'O',
}

var smallTable = map[uint8]byte{
	0x25: '0', 0x52: '1', 0xd0: '2', 0x89: '3', 0xb2: '4',
	0x29: '5', 0x6d: '6', 0x19: '7', 0x21: '8', 0xc0: '9',
	0x00: ' ', 0x40: '.', 0x12: ':', 0xc9: 'E',
}

func signature(c *canvas.Canvas, offsetX, offsetY int, samples [8]samplePoint) uint8 {
	var sig uint8
	for i, p := range samples {
		if c.At(offsetX+p.dx, offsetY+p.dy) == glyphColor {
			sig |= 1 << uint(i)
		}
	}
	return sig
}

// LargeChar recognizes a single large-font glyph cell at (offsetX, offsetY).
func LargeChar(c *canvas.Canvas, offsetX, offsetY int) (byte, error) {
	return char(c, offsetX, offsetY, LargeWidth, LargeHeight, largeSamples, largeTable)
}

// SmallChar recognizes a single small-font glyph cell at (offsetX, offsetY).
func SmallChar(c *canvas.Canvas, offsetX, offsetY int) (byte, error) {
	return char(c, offsetX, offsetY, SmallWidth, SmallHeight, smallSamples, smallTable)
}

func char(c *canvas.Canvas, offsetX, offsetY, width, height int, samples [8]samplePoint, table map[uint8]byte) (byte, error) {
	if c == nil || c.Pixels == nil {
		return 0, ferror.New(ferror.ReasonNullInput, ferror.SourceOCR)
	}
	if c.Width == 0 || c.Height == 0 {
		return 0, ferror.New(ferror.ReasonFormat, ferror.SourceOCR)
	}
	if offsetX+width > c.Width || offsetY+height > c.Height {
		return 0, ferror.New(ferror.ReasonImageShape, ferror.SourceOCR)
	}

	sig := signature(c, offsetX, offsetY, samples)
	ch, ok := table[sig]
	if !ok {
		return 0, ferror.New(ferror.ReasonUnknownValue, ferror.SourceOCR)
	}
	return ch, nil
}

// LargeString recognizes length large-font glyphs starting at (offsetX,
// offsetY), spaced by pitch, tolerating up to maxUnknown unrecognized
// glyphs by omitting them from the result.
func LargeString(c *canvas.Canvas, offsetX, offsetY, pitch, length, maxUnknown int) (string, error) {
	return str(c, offsetX, offsetY, pitch, length, maxUnknown, LargeWidth, LargeChar)
}

// SmallString recognizes length small-font glyphs starting at (offsetX,
// offsetY), spaced by pitch, tolerating up to maxUnknown unrecognized
// glyphs by omitting them from the result.
func SmallString(c *canvas.Canvas, offsetX, offsetY, pitch, length, maxUnknown int) (string, error) {
	return str(c, offsetX, offsetY, pitch, length, maxUnknown, SmallWidth, SmallChar)
}

func str(c *canvas.Canvas, offsetX, offsetY, pitch, length, maxUnknown, glyphWidth int, charFn func(*canvas.Canvas, int, int) (byte, error)) (string, error) {
	if c == nil || c.Pixels == nil {
		return "", ferror.New(ferror.ReasonNullInput, ferror.SourceOCR)
	}
	if c.Width == 0 || c.Height == 0 {
		return "", ferror.New(ferror.ReasonFormat, ferror.SourceOCR)
	}
	// Strict bound: offsetX + length*glyphWidth + (length-1)*pitch <= c.Width.
	// The original's check reads "...*pitch)*length+offsetX > c.Width+pitch",
	// which allows a one-pitch overhang past the canvas edge; that quirk is
	// not ported here.
	if length == 0 || offsetX+length*glyphWidth+(length-1)*pitch > c.Width {
		return "", ferror.New(ferror.ReasonOutOfRange, ferror.SourceOCR)
	}

	var out strings.Builder
	remaining := maxUnknown
	for i := 0; i < length; i++ {
		ch, err := charFn(c, (glyphWidth+pitch)*i+offsetX, offsetY)
		if err == nil {
			out.WriteByte(ch)
			continue
		}
		var fe *ferror.Error
		if e, ok := err.(*ferror.Error); ok {
			fe = e
		}
		if fe == nil || fe.Reason != ferror.ReasonUnknownValue {
			return "", err
		}
		if remaining == 0 {
			return "", err
		}
		remaining--
	}

	return out.String(), nil
}
