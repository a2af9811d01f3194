package thermal

import (
	"testing"

	"flare16x/canvas"
	"flare16x/locator"
	"flare16x/palette"
)

// buildThermal assembles a minimal Thermal directly from a visible-image
// canvas and a classification mask, bypassing Create/locator entirely —
// Process only ever looks at VisibleImage and Mask.
func buildThermal(t *testing.T, img *canvas.Canvas, mask []locator.Detection) *Thermal {
	t.Helper()
	if mask == nil {
		mask = make([]locator.Detection, img.Width*img.Height)
		for i := range mask {
			mask[i] = locator.DetectImage
		}
	}
	return &Thermal{
		VisibleImage: img,
		Mask:         mask,
		MaskWidth:    img.Width,
		MaskHeight:   img.Height,
	}
}

func TestProcessExactModeRejectsWideEntries(t *testing.T) {
	// None of the three fixed palettes has width-1 entries (IRON/RAINBOW
	// use width 16, GRAYSCALE width 4), so EXACT mode's width==1 assertion
	// must reject every one of them rather than silently truncate.
	entries := palette.Get(palette.Iron)
	img, err := canvas.New(1, 1)
	if err != nil {
		t.Fatal(err)
	}
	// entries[0] is pure black, which Determine skips as a crosshair color.
	img.Set(0, 0, entries[1].Color)

	th := buildThermal(t, img, nil)
	if err := th.Process(InterpolationZero, QuantizationExact); err == nil {
		t.Fatal("expected EXACT mode to reject a width>1 palette entry")
	}
}

func TestProcessFloorRoundTripAndExport(t *testing.T) {
	entries := palette.Get(palette.Iron)

	img, err := canvas.New(len(entries), 1)
	if err != nil {
		t.Fatal(err)
	}
	for x, e := range entries {
		img.Set(x, 0, e.Color)
	}

	th := buildThermal(t, img, nil)
	if err := th.Process(InterpolationZero, QuantizationFloor); err != nil {
		t.Fatal(err)
	}
	for x, e := range entries {
		p := th.IntensityImage.at(x, 0)
		if p.Value != e.Base || p.Uncertainty != e.Width {
			t.Fatalf("pixel %d: got (%d,%d), want (%d,%d)", x, p.Value, p.Uncertainty, e.Base, e.Width)
		}
	}

	out, err := th.Export(palette.Iron)
	if err != nil {
		t.Fatal(err)
	}
	for x, e := range entries {
		if out.At(x, 0) != e.Color {
			t.Fatalf("exported pixel %d: got %#x, want %#x", x, out.At(x, 0), e.Color)
		}
	}
}

func TestProcessQuantizedStaysWithinEntryRange(t *testing.T) {
	entries := palette.Get(palette.Iron)

	img, err := canvas.New(len(entries), 1)
	if err != nil {
		t.Fatal(err)
	}
	for x, e := range entries {
		img.Set(x, 0, e.Color)
	}

	modes := []QuantizationMode{QuantizationCeiling, QuantizationMedianLow, QuantizationMedianHigh}
	for _, mode := range modes {
		th := buildThermal(t, img, nil)
		if err := th.Process(InterpolationZero, mode); err != nil {
			t.Fatalf("mode %v: %v", mode, err)
		}
		for x, e := range entries {
			p := th.IntensityImage.at(x, 0)
			if p.Value < e.Base || int(p.Value) >= int(e.Base)+int(e.Width) {
				t.Fatalf("mode %v pixel %d: value %d outside [%d,%d)", mode, x, p.Value, e.Base, int(e.Base)+int(e.Width))
			}
		}
	}
}

func TestProcessSquareSmallFillsSingleCrosshairPixel(t *testing.T) {
	entries := palette.Get(palette.Iron)
	solid := entries[len(entries)/2]

	const size = 5
	img, err := canvas.New(size, size)
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, solid.Color)
		}
	}

	mask := make([]locator.Detection, size*size)
	for i := range mask {
		mask[i] = locator.DetectImage
	}
	center := 2*size + 2
	mask[center] = locator.DetectCrosshair

	th := buildThermal(t, img, mask)
	if err := th.Process(InterpolationSquareSmall, QuantizationFloor); err != nil {
		t.Fatal(err)
	}

	p := th.IntensityImage.at(2, 2)
	if p.Value != solid.Base {
		t.Fatalf("center value: got %d, want %d", p.Value, solid.Base)
	}
	if p.Uncertainty != 1 {
		t.Fatalf("center uncertainty: got %d, want 1", p.Uncertainty)
	}
	// A CROSSHAIR mask entry is filled with a repaired intensity but, unlike
	// INVALID, is not promoted to IMAGE: Crosshair (the restamp operation)
	// relies on the mask still recording where the crosshair was.
	if th.maskAt(2, 2) != locator.DetectCrosshair {
		t.Fatalf("expected the repaired crosshair pixel's mask entry to stay DetectCrosshair")
	}
}

func TestProcessSquareWeightFillsSingleCrosshairPixel(t *testing.T) {
	// SQUARE_WEIGHT combines the [-1,+1] square counted with weight 4 with the unit-weight
	// [-2,+2] square (original_source/thermal.c's SQUARE_LARGE -> SQUARE_WEIGHT
	// -> SQUARE_SMALL fallthrough, minus the outermost [-6,+6] ring). Over a
	// solid-intensity canvas both contributions average back to the same
	// value, so this mainly guards against the unit-weight term being
	// dropped and starving the pixel of samples.
	entries := palette.Get(palette.Iron)
	solid := entries[len(entries)/2]

	const size = 9
	img, err := canvas.New(size, size)
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, solid.Color)
		}
	}

	mask := make([]locator.Detection, size*size)
	for i := range mask {
		mask[i] = locator.DetectImage
	}
	center := 4*size + 4
	mask[center] = locator.DetectCrosshair

	th := buildThermal(t, img, mask)
	if err := th.Process(InterpolationSquareWeight, QuantizationFloor); err != nil {
		t.Fatal(err)
	}

	p := th.IntensityImage.at(4, 4)
	if p.Value != solid.Base {
		t.Fatalf("center value: got %d, want %d", p.Value, solid.Base)
	}
	if p.Uncertainty != 1 {
		t.Fatalf("center uncertainty: got %d, want 1", p.Uncertainty)
	}
}

func TestProcessInterpolationZeroSkipsSecondPass(t *testing.T) {
	entries := palette.Get(palette.Iron)
	solid := entries[1]

	const size = 3
	img, err := canvas.New(size, size)
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, solid.Color)
		}
	}
	mask := make([]locator.Detection, size*size)
	for i := range mask {
		mask[i] = locator.DetectImage
	}
	mask[4] = locator.DetectCrosshair

	th := buildThermal(t, img, mask)
	if err := th.Process(InterpolationZero, QuantizationFloor); err != nil {
		t.Fatal(err)
	}

	p := th.IntensityImage.at(1, 1)
	if p.Value != 0 || p.Uncertainty != 1 {
		t.Fatalf("ZERO-interpolated pixel: got (%d,%d), want (0,1)", p.Value, p.Uncertainty)
	}
	// Pass one leaves a ZERO-interpolated crosshair pixel's mask entry as
	// DetectCrosshair, since the second pass never runs to promote it.
	if th.maskAt(1, 1) != locator.DetectCrosshair {
		t.Fatalf("expected the ZERO-mode crosshair pixel's mask entry to stay DetectCrosshair")
	}
}

func TestProcessRejectsDoubleRun(t *testing.T) {
	img, err := canvas.New(2, 2)
	if err != nil {
		t.Fatal(err)
	}
	th := buildThermal(t, img, nil)
	for x := 0; x < 2; x++ {
		for y := 0; y < 2; y++ {
			img.Set(x, y, palette.Get(palette.Iron)[1].Color)
		}
	}
	if err := th.Process(InterpolationZero, QuantizationFloor); err != nil {
		t.Fatal(err)
	}
	if err := th.Process(InterpolationZero, QuantizationFloor); err == nil {
		t.Fatal("expected an error re-running Process on a Thermal with an existing intensity image")
	}
}

func TestOCRParsesFahrenheitAndEmissivity(t *testing.T) {
	// exercise the regex/arithmetic directly: -10.5C should parse to -105
	// and 023.0F should convert to -50 tenths of a degree celsius, per
	// spec.md's worked examples.
	m := temperaturePattern.FindStringSubmatch("-10.5C")
	if m == nil || m[1] != "-10" || m[2] != "5" || m[3] != "C" {
		t.Fatalf("unexpected submatches for -10.5C: %v", m)
	}

	tenths := (23-32)*10 + 0
	scaled := tenths * 5
	if scaled%9 >= 5 {
		scaled += 8
	}
	got := scaled / 9
	if got != -50 {
		t.Fatalf("023.0F conversion: got %d, want -50", got)
	}

	em := emissivityPattern.FindStringSubmatch("E:0.95")
	if em == nil || em[1] != "95" {
		t.Fatalf("unexpected emissivity submatch: %v", em)
	}
	if emissivityPattern.MatchString("E:0.00") == false {
		t.Fatal("E:0.00 should still match the pattern; zero-rejection happens after parsing")
	}
}
