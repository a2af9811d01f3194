// Package locator finds the device crosshair overlay inside a thermal
// screenshot's IR region and classifies individual pixels as belonging
// to the crosshair, to image data, or out of bounds.
package locator

import (
	"flare16x/bitmap"
	"flare16x/canvas"
	"flare16x/ferror"
)

// Model identifies the detected device.
type Model uint8

const (
	ModelTBD Model = iota
	ModelUnknown
	ModelTG165
	ModelTG167
)

func (m Model) String() string {
	switch m {
	case ModelTG165:
		return "TG165"
	case ModelTG167:
		return "TG167"
	case ModelUnknown:
		return "unknown"
	default:
		return "not yet detected"
	}
}

// Detection is the result of Detect for a single pixel.
type Detection uint8

const (
	DetectFail Detection = iota
	DetectBounds
	DetectImage
	DetectCrosshair
	DetectInvalid
)

const (
	ExpectedWidth  = 174
	ExpectedHeight = 220

	textOffsetX, textOffsetY, textWidth, textHeight = 2, 1, 170, 23
	irOffsetX, irOffsetY, irWidth, irHeight          = 12, 25, 150, 175

	crosshairBorderWidth = 4

	tg165CrosshairHeight = 23
	tg165FillWidth        = 7
	tg165CenterWidth      = 5
	tg165CenterHeight     = 5
	tg165CenterOffsetX    = 9
	tg165CenterOffsetY    = 9
	tg165TargetRow        = 11

	tg167CrosshairHeight = 47
	tg167FillWidth        = 14
	tg167CenterWidth      = 17
	tg167CenterHeight     = 17
	tg167CenterOffsetX    = 16
	tg167CenterOffsetY    = 15
	tg167TargetRow        = 23
)

var (
	crosshairBorder = canvas.RGB565(0x00, 0x00, 0x00)
	crosshairFill   = canvas.RGB565(0xff, 0xff, 0xff)
)

// rect is an axis-aligned rectangle relative to the crosshair's origin.
type rect struct{ x, y, w, h int }

// opaqueRects lists the eight crosshair-interior rectangles per model,
// in crosshair-local coordinates, taken directly from the reference
// implementation's per-pixel classifier.
var opaqueRects = map[Model][]rect{
	ModelTG165: {
		{6, 6, 11, 3},
		{0, 10, 6, 3},
		{17, 10, 6, 3},
		{10, 17, 3, 6},
		{6, 9, 3, 8},
		{14, 9, 3, 8},
		{10, 0, 3, 6},
		{9, 14, 5, 3},
	},
	ModelTG167: {
		{13, 12, 23, 3},
		{13, 32, 23, 3},
		{0, 22, 13, 3},
		{36, 22, 13, 3},
		{23, 35, 3, 12},
		{13, 15, 3, 17},
		{33, 15, 3, 17},
		{23, 0, 3, 12},
	},
}

// Locator holds the split screenshot fragments and detected crosshair
// geometry.
type Locator struct {
	TextCanvas *canvas.Canvas
	IRCanvas   *canvas.Canvas

	CrosshairX, CrosshairY               int
	CrosshairWidth, CrosshairHeight      int
	ApertureX, ApertureY                 int
	ApertureWidth, ApertureHeight        int
	Model                                Model
}

// Create splits a full screenshot bitmap into its text and IR fragments.
func Create(screenshot *bitmap.Bitmap) (*Locator, error) {
	if screenshot == nil {
		return nil, ferror.New(ferror.ReasonNullInput, ferror.SourceLocator)
	}
	if screenshot.Width != ExpectedWidth || screenshot.Height != ExpectedHeight {
		return nil, ferror.New(ferror.ReasonImageShape, ferror.SourceLocator)
	}

	full, err := screenshot.Edit(0, 0, ExpectedWidth, ExpectedHeight)
	if err != nil {
		return nil, ferror.Wrap(ferror.ReasonCalleeFail, ferror.SourceLocator, err)
	}

	text, err := full.Sub(textOffsetX, textOffsetY, textWidth, textHeight)
	if err != nil {
		return nil, ferror.Wrap(ferror.ReasonCalleeFail, ferror.SourceLocator, err)
	}
	ir, err := full.Sub(irOffsetX, irOffsetY, irWidth, irHeight)
	if err != nil {
		return nil, ferror.Wrap(ferror.ReasonCalleeFail, ferror.SourceLocator, err)
	}

	return &Locator{TextCanvas: text, IRCanvas: ir}, nil
}

// detection FSM states, mirroring the reference scanner exactly.
type scanState int

const (
	stateStart scanState = iota
	stateBorder1
	stateFill1
	stateBorder2
	stateEye
	stateBorder3
	stateFill2
	stateBorder4
)

// Process scans the IR canvas for the crosshair pattern and, on
// success, fills in the Locator's Model and crosshair/aperture geometry.
func Process(l *Locator) error {
	if l == nil || l.IRCanvas == nil || l.TextCanvas == nil {
		return ferror.New(ferror.ReasonNullInput, ferror.SourceLocator)
	}
	if l.TextCanvas.Width != textWidth || l.TextCanvas.Height != textHeight ||
		l.IRCanvas.Width != irWidth || l.IRCanvas.Height != irHeight {
		return ferror.New(ferror.ReasonOutOfRange, ferror.SourceLocator)
	}

	expectedBorder := crosshairBorderWidth
	expectedFill := tg165FillWidth
	if tg167FillWidth < expectedFill {
		expectedFill = tg167FillWidth
	}
	expectedFill *= 2

	for y := 0; y < l.IRCanvas.Height; y++ {
		actualBorder, actualFill := 0, 0
		for x := 0; x < l.IRCanvas.Width; x++ {
			pixel := l.IRCanvas.At(x, y)
			if pixel == crosshairBorder {
				actualBorder++
			} else if pixel == crosshairFill {
				actualFill++
			}

			if actualBorder < expectedBorder || actualFill < expectedFill {
				continue
			}

			if ok := l.scanLine(y); ok {
				return nil
			}
			break
		}
	}

	l.Model = ModelUnknown
	return ferror.New(ferror.ReasonImageShape, ferror.SourceLocator)
}

// scanLine runs the regex-like FSM search across row y, looking for
// border*fill*border*eye*border*fill*border. It returns true and fills
// in the Locator's geometry on a match.
func (l *Locator) scanLine(y int) bool {
	state := stateStart
	actualBorder, actualFill, actualEye := 0, 0, 0

	for x := 0; x < l.IRCanvas.Width; x++ {
		pixel := l.IRCanvas.At(x, y)

		switch pixel {
		case crosshairBorder:
			switch {
			case state == stateFill1 && actualBorder == 1 &&
				(actualFill == tg165FillWidth || actualFill == tg167FillWidth):
				state = stateBorder2
				actualBorder++
			case state == stateEye && actualBorder == 2 &&
				(actualEye == tg165CenterWidth || actualEye == tg167CenterWidth):
				state = stateBorder3
				actualBorder++
			case state == stateFill2 && actualBorder == 3 &&
				(actualFill == tg165FillWidth*2 || actualFill == tg167FillWidth*2):
				state = stateBorder4
				actualBorder++
			default:
				state = stateBorder1
				actualBorder, actualFill, actualEye = 1, 0, 0
			}
		case crosshairFill:
			switch {
			case state == stateBorder1 && actualBorder == 1:
				state = stateFill1
				actualFill++
			case state == stateBorder3 && actualBorder == 3:
				state = stateFill2
				actualFill++
			case state == stateFill1 || state == stateFill2:
				actualFill++
			default:
				state = stateStart
				actualBorder, actualFill, actualEye = 0, 0, 0
			}
		default:
			switch {
			case state == stateBorder2 && actualBorder == 2:
				state = stateEye
				actualEye++
			case state == stateEye:
				actualEye++
			default:
				state = stateStart
				actualBorder, actualFill, actualEye = 0, 0, 0
			}
		}

		if actualBorder != crosshairBorderWidth {
			continue
		}

		switch {
		case actualFill == tg165FillWidth*2 && actualEye == tg165CenterWidth:
			l.Model = ModelTG165
			l.ApertureWidth, l.ApertureHeight = tg165CenterWidth, tg165CenterHeight
			l.CrosshairHeight = tg165CrosshairHeight
			l.CrosshairWidth = crosshairBorderWidth + tg165CenterWidth + tg165FillWidth*2
			l.CrosshairX = x + 1 - l.CrosshairWidth
			l.CrosshairY = y - tg165TargetRow
			l.ApertureX = l.CrosshairX + tg165CenterOffsetX
			l.ApertureY = l.CrosshairY + tg165CenterOffsetY
			return true
		case actualFill == tg167FillWidth*2 && actualEye == tg167CenterWidth:
			l.Model = ModelTG167
			l.ApertureWidth, l.ApertureHeight = tg167CenterWidth, tg167CenterHeight
			l.CrosshairHeight = tg167CrosshairHeight
			l.CrosshairWidth = crosshairBorderWidth + tg167CenterWidth + tg167FillWidth*2
			l.CrosshairX = x + 1 - l.CrosshairWidth
			l.CrosshairY = y - tg167TargetRow
			l.ApertureX = l.CrosshairX + tg167CenterOffsetX
			l.ApertureY = l.CrosshairY + tg167CenterOffsetY
			return true
		}
	}

	return false
}

func within(x, y, roiX, roiY, roiW, roiH int) bool {
	return x >= roiX && y >= roiY && x < roiX+roiW && y < roiY+roiH
}

// Detect classifies pixel (x, y) of the IR canvas against the detected
// crosshair geometry.
func (l *Locator) Detect(x, y int) Detection {
	if l == nil || l.IRCanvas == nil || l.IRCanvas.Width < 1 || l.IRCanvas.Height < 1 {
		return DetectFail
	}
	if x < 0 || y < 0 || x >= l.IRCanvas.Width || y >= l.IRCanvas.Height {
		return DetectBounds
	}

	switch l.Model {
	case ModelTG165:
		if l.CrosshairHeight != tg165CrosshairHeight ||
			l.CrosshairWidth != crosshairBorderWidth+tg165CenterWidth+tg165FillWidth*2 {
			return DetectFail
		}
		return l.detectAgainst(x, y, ModelTG165)
	case ModelTG167:
		if l.CrosshairHeight != tg167CrosshairHeight ||
			l.CrosshairWidth != crosshairBorderWidth+tg167CenterWidth+tg167FillWidth*2 {
			return DetectFail
		}
		return l.detectAgainst(x, y, ModelTG167)
	case ModelUnknown:
		return DetectImage
	default:
		return DetectFail
	}
}

func (l *Locator) detectAgainst(x, y int, model Model) Detection {
	if !within(x, y, l.CrosshairX, l.CrosshairY, l.CrosshairWidth, l.CrosshairHeight) {
		return DetectImage
	}
	for _, r := range opaqueRects[model] {
		if within(x, y, l.CrosshairX+r.x, l.CrosshairY+r.y, r.w, r.h) {
			return DetectCrosshair
		}
	}
	return DetectImage
}
