package locator

import (
	"testing"

	"flare16x/canvas"
)

func buildIRCanvasWithTG165() *Locator {
	l := &Locator{}
	ir, _ := canvas.New(irWidth, irHeight)
	l.IRCanvas = ir
	text, _ := canvas.New(textWidth, textHeight)
	l.TextCanvas = text

	for y := 0; y < ir.Height; y++ {
		for x := 0; x < ir.Width; x++ {
			ir.Set(x, y, canvas.RGB565(0x40, 0x40, 0x40))
		}
	}

	// lay out the scan-line pattern on the target row so the detected
	// crosshair's top-left origin ends up at (20, 30).
	const originX, originY = 20, 30
	row := originY + tg165TargetRow
	x := originX
	paint := func(n int, c canvas.Color) {
		for i := 0; i < n; i++ {
			ir.Set(x, row, c)
			x++
		}
	}
	paint(1, crosshairBorder)
	paint(tg165FillWidth, crosshairFill)
	paint(1, crosshairBorder)
	paint(tg165CenterWidth, canvas.RGB565(0x12, 0x34, 0x56))
	paint(1, crosshairBorder)
	paint(tg165FillWidth, crosshairFill)
	paint(1, crosshairBorder)

	return l
}

func TestProcessDetectsTG165(t *testing.T) {
	l := buildIRCanvasWithTG165()
	if err := Process(l); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if l.Model != ModelTG165 {
		t.Fatalf("expected ModelTG165, got %v", l.Model)
	}
	if l.CrosshairWidth != crosshairBorderWidth+tg165CenterWidth+tg165FillWidth*2 {
		t.Fatalf("unexpected crosshair width %d", l.CrosshairWidth)
	}
	if l.CrosshairX != 20 || l.CrosshairY != 30 {
		t.Fatalf("expected crosshair origin (20,30), got (%d,%d)", l.CrosshairX, l.CrosshairY)
	}
}

func TestDetectClassifiesOutsideCrosshairAsImage(t *testing.T) {
	l := buildIRCanvasWithTG165()
	if err := Process(l); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if got := l.Detect(0, 0); got != DetectImage {
		t.Fatalf("expected DetectImage far from the crosshair, got %v", got)
	}
	if got := l.Detect(-1, -1); got != DetectBounds {
		t.Fatalf("expected DetectBounds for a negative coordinate, got %v", got)
	}
}

func TestDetectFlagsCrosshairInterior(t *testing.T) {
	l := buildIRCanvasWithTG165()
	if err := Process(l); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	// rectangle {6,6,11,3} relative to the crosshair origin.
	if got := l.Detect(l.CrosshairX+6, l.CrosshairY+6); got != DetectCrosshair {
		t.Fatalf("expected DetectCrosshair inside the known opaque rectangle, got %v", got)
	}
}
