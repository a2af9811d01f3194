// Package thermal composes the locator, ocr and palette packages into
// the core pipeline: it builds a crosshair mask from a Locator, reads
// the on-screen spot temperature and emissivity, inverts the rendered
// palette back into a relative intensity image with crosshair-pixel
// interpolation, and re-renders the result with any palette.
package thermal

import (
	"regexp"
	"strconv"

	"flare16x/canvas"
	"flare16x/ferror"
	"flare16x/locator"
	"flare16x/ocr"
	"flare16x/palette"
)

// QuantizationMode selects how a matched palette entry's [base,
// base+width) interval collapses to a single recovered intensity.
type QuantizationMode uint8

const (
	QuantizationExact QuantizationMode = iota
	QuantizationFloor
	QuantizationCeiling
	QuantizationMedianLow
	QuantizationMedianHigh
)

// InterpolationMode selects how crosshair-occluded intensities are
// filled in during Process's second pass.
type InterpolationMode uint8

const (
	InterpolationZero InterpolationMode = iota
	InterpolationMin
	InterpolationMax
	InterpolationMed
	InterpolationSquareSmall
	InterpolationSquareWeight
	InterpolationSquareLarge
)

// Point is a single recovered relative intensity and its uncertainty
// (the width of the palette entry it was matched against; 1 for
// interpolated pixels).
type Point struct {
	Value       uint8
	Uncertainty uint8
}

// Image is the width x height grid of recovered intensities produced
// by Process, tagged with the quantization mode that produced it.
type Image struct {
	Width, Height int
	Mode          QuantizationMode
	Points        []Point
}

func (img *Image) at(x, y int) *Point {
	return &img.Points[y*img.Width+x]
}

// Thermal is the pipeline's working context: the split text/IR
// canvases from a Locator, the per-pixel classification mask derived
// from its crosshair geometry, OCR'd spot readings, and (once Process
// has run) the recovered intensity image.
type Thermal struct {
	VisibleImage *canvas.Canvas
	TextImage    *canvas.Canvas

	Mask       []locator.Detection
	MaskWidth  int
	MaskHeight int

	IntensityImage *Image

	TemperatureSpot int16 // tenths of a degree Celsius
	Emissivity      uint8 // percent

	Model Model

	ApertureX, ApertureY          int
	ApertureWidth, ApertureHeight int

	ValueMin, ValueMax, ValueMedian uint8
}

// Model mirrors locator.Model so callers need not import locator just
// to read Thermal.Model.
type Model = locator.Model

const (
	temperatureOffsetX, temperatureOffsetY = 0, 0
	temperatureDigits                      = 6
	temperaturePitch                       = 0

	emissivityOffsetX, emissivityOffsetY = 110, 3
	emissivityDigits                     = 6
	emissivityPitch                      = 0
)

// Create validates locator l, builds the crosshair mask over its IR
// canvas, and takes ownership of both of its sub-canvases. The
// caller's l is left with nil canvases afterward, mirroring the
// original's pointer-move semantics.
func Create(l *locator.Locator) (*Thermal, error) {
	if l == nil || l.IRCanvas == nil || l.TextCanvas == nil {
		return nil, ferror.New(ferror.ReasonNullInput, ferror.SourceThermal)
	}
	if l.IRCanvas.Width == 0 || l.IRCanvas.Height == 0 ||
		l.TextCanvas.Width == 0 || l.TextCanvas.Height == 0 {
		return nil, ferror.New(ferror.ReasonOutOfRange, ferror.SourceThermal)
	}

	switch l.Model {
	case locator.ModelTG165, locator.ModelTG167:
		if l.CrosshairWidth == 0 || l.ApertureWidth == 0 ||
			l.CrosshairHeight == 0 || l.ApertureHeight == 0 {
			return nil, ferror.New(ferror.ReasonOutOfRange, ferror.SourceThermal)
		}
	case locator.ModelUnknown:
	default:
		return nil, ferror.New(ferror.ReasonOutOfRange, ferror.SourceThermal)
	}

	width, height := l.IRCanvas.Width, l.IRCanvas.Height
	mask := make([]locator.Detection, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			mask[y*width+x] = l.Detect(x, y)
		}
	}

	t := &Thermal{
		VisibleImage:  l.IRCanvas,
		TextImage:     l.TextCanvas,
		Mask:          mask,
		MaskWidth:     width,
		MaskHeight:    height,
		Model:         l.Model,
		ApertureX:     l.ApertureX,
		ApertureY:     l.ApertureY,
		ApertureWidth: l.ApertureWidth,
		ApertureHeight: l.ApertureHeight,
	}

	l.IRCanvas = nil
	l.TextCanvas = nil

	return t, nil
}

var temperaturePattern = regexp.MustCompile(`^(-?\d+)\.(\d)([CF])$`)
var emissivityPattern = regexp.MustCompile(`^E:0\.(\d\d)$`)

// OCR recognizes the spot temperature and emissivity strings printed
// on the text canvas, converting Fahrenheit readings to tenths of a
// degree Celsius. Once this returns nil, the text canvas can be
// discarded.
func (t *Thermal) OCR() error {
	if t == nil || t.TextImage == nil {
		return ferror.New(ferror.ReasonNullInput, ferror.SourceThermal)
	}

	temperatureString, err := ocr.LargeString(t.TextImage, temperatureOffsetX, temperatureOffsetY,
		temperaturePitch, temperatureDigits, 0)
	if err != nil {
		return ferror.Wrap(ferror.ReasonCalleeFail, ferror.SourceThermal, err)
	}

	emissivityString, err := ocr.SmallString(t.TextImage, emissivityOffsetX, emissivityOffsetY,
		emissivityPitch, emissivityDigits, 0)
	if err != nil {
		return ferror.Wrap(ferror.ReasonCalleeFail, ferror.SourceThermal, err)
	}

	m := temperaturePattern.FindStringSubmatch(temperatureString)
	if m == nil {
		return ferror.New(ferror.ReasonImageShape, ferror.SourceThermal)
	}
	integer, err := strconv.Atoi(m[1])
	if err != nil {
		return ferror.Wrap(ferror.ReasonImageShape, ferror.SourceThermal, err)
	}
	fractional, err := strconv.Atoi(m[2])
	if err != nil {
		return ferror.Wrap(ferror.ReasonImageShape, ferror.SourceThermal, err)
	}
	if integer < 0 {
		fractional = -fractional
	}

	switch m[3] {
	case "C":
		t.TemperatureSpot = int16(integer*10 + fractional)
	case "F":
		tenths := (integer-32)*10 + fractional
		scaled := tenths * 5
		if scaled%9 >= 5 {
			scaled += 8
		}
		t.TemperatureSpot = int16(scaled / 9)
	default:
		return ferror.New(ferror.ReasonImageShape, ferror.SourceThermal)
	}

	em := emissivityPattern.FindStringSubmatch(emissivityString)
	if em == nil {
		return ferror.New(ferror.ReasonImageShape, ferror.SourceThermal)
	}
	emissivity, err := strconv.Atoi(em[1])
	if err != nil {
		return ferror.Wrap(ferror.ReasonImageShape, ferror.SourceThermal, err)
	}
	if emissivity == 0 || emissivity > 99 {
		return ferror.New(ferror.ReasonImageShape, ferror.SourceThermal)
	}
	t.Emissivity = uint8(emissivity)

	return nil
}

func (t *Thermal) maskAt(x, y int) locator.Detection {
	return t.Mask[y*t.MaskWidth+x]
}

func (t *Thermal) setMask(x, y int, d locator.Detection) {
	t.Mask[y*t.MaskWidth+x] = d
}

// valid reports whether (x+dx, y+dy) lies within the mask and is
// currently classified as image data, the predicate the square
// interpolation kernels sample against.
func (t *Thermal) valid(x, y, dx, dy int) bool {
	px, py := x+dx, y+dy
	if px < 0 || py < 0 || px >= t.MaskWidth || py >= t.MaskHeight {
		return false
	}
	return t.maskAt(px, py) == locator.DetectImage
}

// Process runs the two-pass palette inversion: pass one converts
// every IMAGE pixel's rendered color to a quantized intensity via the
// determined palette and marks unmatched or CROSSHAIR pixels for
// repair; pass two fills those pixels per the chosen interpolation
// mode. Re-running Process on a Thermal with an existing intensity
// image is rejected; destroy and recreate the Thermal first.
func (t *Thermal) Process(interpolation InterpolationMode, quantization QuantizationMode) error {
	if t == nil || t.VisibleImage == nil {
		return ferror.New(ferror.ReasonNullInput, ferror.SourceThermal)
	}
	if interpolation > InterpolationSquareLarge || quantization > QuantizationMedianHigh {
		return ferror.New(ferror.ReasonOutOfRange, ferror.SourceThermal)
	}
	if t.VisibleImage.Width < 1 || t.VisibleImage.Height < 1 {
		return ferror.New(ferror.ReasonOutOfRange, ferror.SourceThermal)
	}
	if t.IntensityImage != nil {
		return ferror.New(ferror.ReasonLeakDetected, ferror.SourceThermal)
	}

	paletteIndex, err := palette.Determine(t.VisibleImage, palette.IgnoreErrors)
	if err != nil {
		return ferror.Wrap(ferror.ReasonCalleeFail, ferror.SourceThermal, err)
	}

	width, height := t.VisibleImage.Width, t.VisibleImage.Height
	img := &Image{
		Width:  width,
		Height: height,
		Mode:   quantization,
		Points: make([]Point, width*height),
	}

	var skipped int
	var medianSum, medianCount uint32
	valueMin, valueMax := uint8(0xff), uint8(0)
	startY := -1

	var cache palette.Cache
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			color := t.VisibleImage.At(x, y)
			mask := t.maskAt(x, y)

			switch mask {
			case locator.DetectImage:
				entry, ferr := palette.FindColor(color, paletteIndex, &cache)
				if ferr != nil {
					t.setMask(x, y, locator.DetectInvalid)
					if startY < 0 {
						startY = y
					}
					skipped++
					continue
				}
				if entry.Width < 1 {
					return ferror.New(ferror.ReasonAssertFail, ferror.SourceThermal)
				}

				medianSum += uint32(entry.Base)
				medianCount++
				if entry.Base > valueMax {
					valueMax = entry.Base
				}
				if entry.Base < valueMin {
					valueMin = entry.Base
				}

				p := img.at(x, y)
				switch quantization {
				case QuantizationExact:
					if entry.Width != 1 {
						return ferror.New(ferror.ReasonImageShape, ferror.SourceThermal)
					}
					p.Value, p.Uncertainty = entry.Base, entry.Width
				case QuantizationFloor:
					p.Value, p.Uncertainty = entry.Base, entry.Width
				case QuantizationCeiling:
					p.Value, p.Uncertainty = entry.Base+entry.Width-1, entry.Width
				case QuantizationMedianLow:
					p.Value, p.Uncertainty = entry.Base+(entry.Width-1)/2, entry.Width
				case QuantizationMedianHigh:
					p.Value, p.Uncertainty = entry.Base+entry.Width/2, entry.Width
				default:
					return ferror.New(ferror.ReasonAssertFail, ferror.SourceThermal)
				}

			case locator.DetectCrosshair:
				if startY < 0 {
					startY = y
				}
				if interpolation == InterpolationZero {
					p := img.at(x, y)
					p.Value, p.Uncertainty = 0, 1
					continue
				}
				skipped++

			default:
				return ferror.New(ferror.ReasonOutOfRange, ferror.SourceThermal)
			}
		}
	}

	if valueMin > valueMax {
		return ferror.New(ferror.ReasonAssertFail, ferror.SourceThermal)
	}
	t.ValueMin, t.ValueMax = valueMin, valueMax
	if medianCount > 0 {
		t.ValueMedian = uint8(medianSum / medianCount)
	}

	if skipped == 0 {
		t.IntensityImage = img
		return nil
	}

	if startY < 0 || medianCount < 1 {
		return ferror.New(ferror.ReasonAssertFail, ferror.SourceThermal)
	}
	valueMed := uint8(medianSum / medianCount)

	for y := startY; y < height; y++ {
		for x := 0; x < width; x++ {
			mask := t.maskAt(x, y)
			if mask == locator.DetectImage {
				continue
			}
			if mask != locator.DetectCrosshair && mask != locator.DetectInvalid {
				return ferror.New(ferror.ReasonAssertFail, ferror.SourceThermal)
			}
			if mask == locator.DetectInvalid {
				t.setMask(x, y, locator.DetectImage)
			}
			skipped--

			p := img.at(x, y)
			switch interpolation {
			case InterpolationZero:
				p.Value, p.Uncertainty = 0, 1
			case InterpolationMin:
				p.Value, p.Uncertainty = valueMin, 1
			case InterpolationMax:
				p.Value, p.Uncertainty = valueMax, 1
			case InterpolationMed:
				p.Value, p.Uncertainty = valueMed, 1
			case InterpolationSquareLarge:
				var sum, count uint32
				for dy := -6; dy <= 6; dy++ {
					for dx := -6; dx <= 6; dx++ {
						if t.valid(x, y, dx, dy) {
							sum += uint32(img.at(x+dx, y+dy).Value)
							count++
						}
					}
				}
				sum2, count2 := squareWeightAccumulate(t, img, x, y, 4)
				sum += sum2
				count += count2
				sum3, count3 := squareAccumulate(t, img, x, y, 2)
				sum += sum3
				count += count3
				if count < 1 {
					return ferror.New(ferror.ReasonImageShape, ferror.SourceThermal)
				}
				p.Value, p.Uncertainty = uint8(sum/count), 1
			case InterpolationSquareWeight:
				sum, count := squareWeightAccumulate(t, img, x, y, 4)
				sum2, count2 := squareAccumulate(t, img, x, y, 2)
				sum += sum2
				count += count2
				if count < 1 {
					return ferror.New(ferror.ReasonImageShape, ferror.SourceThermal)
				}
				p.Value, p.Uncertainty = uint8(sum/count), 1
			case InterpolationSquareSmall:
				sum, count := squareAccumulate(t, img, x, y, 2)
				if count < 1 {
					return ferror.New(ferror.ReasonImageShape, ferror.SourceThermal)
				}
				p.Value, p.Uncertainty = uint8(sum/count), 1
			default:
				return ferror.New(ferror.ReasonAssertFail, ferror.SourceThermal)
			}
		}
	}

	if skipped != 0 {
		return ferror.New(ferror.ReasonAssertFail, ferror.SourceThermal)
	}

	t.IntensityImage = img
	return nil
}

// squareAccumulate sums img's values over the [-radius, radius] square
// around (x, y), skipping out-of-bounds and non-IMAGE pixels.
func squareAccumulate(t *Thermal, img *Image, x, y, radius int) (sum, count uint32) {
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if t.valid(x, y, dx, dy) {
				sum += uint32(img.at(x+dx, y+dy).Value)
				count++
			}
		}
	}
	return
}

// squareWeightAccumulate sums img's values over the [-1, 1] square
// around (x, y), each counted weight times.
func squareWeightAccumulate(t *Thermal, img *Image, x, y int, weight uint32) (sum, count uint32) {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if t.valid(x, y, dx, dy) {
				sum += uint32(img.at(x+dx, y+dy).Value) * weight
				count += weight
			}
		}
	}
	return
}

// Export renders t's intensity image to a fresh canvas using the
// given palette.
func (t *Thermal) Export(index palette.Index) (*canvas.Canvas, error) {
	if t == nil || t.IntensityImage == nil {
		return nil, ferror.New(ferror.ReasonNullInput, ferror.SourceThermal)
	}
	img := t.IntensityImage
	if img.Width < 1 || img.Height < 1 {
		return nil, ferror.New(ferror.ReasonOutOfRange, ferror.SourceThermal)
	}
	if len(palette.Get(index)) < 1 {
		return nil, ferror.New(ferror.ReasonOutOfRange, ferror.SourceThermal)
	}

	out, err := canvas.New(img.Width, img.Height)
	if err != nil {
		return nil, ferror.Wrap(ferror.ReasonCalleeFail, ferror.SourceThermal, err)
	}

	var cache palette.Cache
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			value := img.at(x, y).Value
			entry, ferr := palette.FindValue(value, index, &cache)
			if ferr != nil {
				return nil, ferror.Wrap(ferror.ReasonCalleeFail, ferror.SourceThermal, ferr)
			}
			if entry.Width < 1 {
				return nil, ferror.New(ferror.ReasonAssertFail, ferror.SourceThermal)
			}
			out.Set(x, y, entry.Color)
		}
	}

	return out, nil
}

// crossState tracks the restamp state machine's three states.
type crossState uint8

const (
	crossNone crossState = iota
	crossBorder
	crossFill
)

// Crosshair restamps a border/fill crosshair onto canvas c using t's
// mask: a horizontal pass paints both border caps and the fill
// interior; a vertical pass paints only the top/bottom border caps,
// since the fill interior is already in place. This asymmetry mirrors
// the original implementation and is intentional.
func (t *Thermal) Crosshair(border, fill canvas.Color, c *canvas.Canvas) error {
	if t == nil || c == nil || t.Mask == nil || c.Pixels == nil {
		return ferror.New(ferror.ReasonNullInput, ferror.SourceThermal)
	}
	if t.MaskWidth != c.Width || t.MaskHeight != c.Height || c.Width < 1 || c.Height < 1 {
		return ferror.New(ferror.ReasonOutOfRange, ferror.SourceThermal)
	}

	for y := 0; y < t.MaskHeight; y++ {
		state, length := crossNone, 0
		for x := 0; x < t.MaskWidth; x++ {
			switch t.maskAt(x, y) {
			case locator.DetectImage:
				switch state {
				case crossFill:
					if length > 1 {
						c.Set(x-1, y, border)
					}
					state, length = crossNone, 0
				case crossBorder:
					state, length = crossNone, 0
				}
			case locator.DetectCrosshair:
				switch state {
				case crossBorder:
					state = crossFill
					fallthrough
				case crossFill:
					c.Set(x, y, fill)
					length++
				default:
					c.Set(x, y, border)
					state = crossBorder
					length++
				}
			default:
				return ferror.New(ferror.ReasonOutOfRange, ferror.SourceThermal)
			}
		}
	}

	for x := 0; x < t.MaskWidth; x++ {
		state, length := crossNone, 0
		for y := 0; y < t.MaskHeight; y++ {
			switch t.maskAt(x, y) {
			case locator.DetectImage:
				switch state {
				case crossFill:
					if length > 1 {
						c.Set(x, y-1, border)
					}
					state, length = crossNone, 0
				case crossBorder:
					state, length = crossNone, 0
				}
			case locator.DetectCrosshair:
				switch state {
				case crossBorder:
					state = crossFill
					fallthrough
				case crossFill:
					length++
				default:
					c.Set(x, y, border)
					state = crossBorder
					length++
				}
			default:
				return ferror.New(ferror.ReasonOutOfRange, ferror.SourceThermal)
			}
		}
	}

	return nil
}
