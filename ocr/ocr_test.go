package ocr

import (
	"testing"

	"flare16x/canvas"
)

func paintSignature(c *canvas.Canvas, offsetX, offsetY int, samples [8]samplePoint, sig uint8) {
	for i, p := range samples {
		if sig&(1<<uint(i)) != 0 {
			c.Set(offsetX+p.dx, offsetY+p.dy, glyphColor)
		}
	}
}

func TestLargeCharRecognizesZero(t *testing.T) {
	c, err := canvas.New(LargeWidth+4, LargeHeight+4)
	if err != nil {
		t.Fatal(err)
	}
	paintSignature(c, 1, 1, largeSamples, 0x41)

	ch, err := LargeChar(c, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if ch != '0' {
		t.Fatalf("expected '0', got %q", ch)
	}
}

func TestSmallCharRecognizesColon(t *testing.T) {
	c, err := canvas.New(SmallWidth+4, SmallHeight+4)
	if err != nil {
		t.Fatal(err)
	}
	paintSignature(c, 0, 0, smallSamples, 0x12)

	ch, err := SmallChar(c, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if ch != ':' {
		t.Fatalf("expected ':', got %q", ch)
	}
}

func TestLargeStringToleratesUnknownDigits(t *testing.T) {
	c, err := canvas.New(LargeWidth*3+4, LargeHeight+4)
	if err != nil {
		t.Fatal(err)
	}
	paintSignature(c, 0, 0, largeSamples, 0x41)       // '0'
	paintSignature(c, LargeWidth, 0, largeSamples, 0xff) // unknown signature
	paintSignature(c, LargeWidth*2, 0, largeSamples, 0x11) // '1'

	s, err := LargeString(c, 0, 0, 0, 3, 1)
	if err != nil {
		t.Fatal(err)
	}
	if s != "01" {
		t.Fatalf("expected the unknown glyph to be dropped, got %q", s)
	}
}

func TestLargeStringFailsWhenUnknownBudgetExhausted(t *testing.T) {
	c, err := canvas.New(LargeWidth*2+4, LargeHeight+4)
	if err != nil {
		t.Fatal(err)
	}
	paintSignature(c, 0, 0, largeSamples, 0xff)

	if _, err := LargeString(c, 0, 0, 0, 2, 0); err == nil {
		t.Fatal("expected an error when no unknown glyphs are tolerated")
	}
}
