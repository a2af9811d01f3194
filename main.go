// Command flare16x reverse-engineers thermal screenshots produced by
// the TG165/TG167 handheld infrared cameras: it locates and removes
// the overlaid crosshair, OCRs the spot temperature and emissivity,
// inverts the rendered color palette back into relative intensities,
// and can re-render the result with any supported palette.
package main

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"flare16x/bitmap"
	"flare16x/canvas"
	"flare16x/locator"
	"flare16x/mangle"
	"flare16x/orient"
	"flare16x/palette"
	"flare16x/parallel"
	"flare16x/thermal"

	"github.com/alecthomas/kong"
)

type cli struct {
	Decode  DecodeCmd  `cmd:"" help:"Decode a single device screenshot into a thermal image"`
	Batch   BatchCmd   `cmd:"" help:"Decode every screenshot in a directory concurrently"`
	Palette PaletteCmd `cmd:"" help:"Export or inspect the fixed device palettes as RIFF .pal files"`
	Sort    SortCmd    `cmd:"" help:"Sort a folder's files into device screenshots and ordinary images"`
}

func main() {
	var c cli
	kctx := kong.Parse(&c,
		kong.Name("flare16x"),
		kong.Description("Reverse-engineer TG165/TG167 thermal camera screenshots."))

	logger := slog.Default()
	if err := kctx.Run(logger); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// decodeFlags is the shared set of pipeline knobs both DecodeCmd and
// BatchCmd expose, embedded anonymously so kong flattens them into
// each command's own flag set.
type decodeFlags struct {
	Palette       string `help:"Output palette to render with." enum:"iron,grayscale,rainbow" default:"iron"`
	Interpolation string `help:"Crosshair-pixel repair strategy." enum:"zero,min,max,med,square_small,square_weight,square_large" default:"square_small"`
	Quantization  string `help:"How a palette entry's value range collapses to one intensity." enum:"exact,floor,ceiling,median_low,median_high" default:"floor"`
	Depth         int    `help:"Output bitmap bit depth." enum:"16,24,32" default:"24"`
	Restamp       bool   `help:"Restamp a fresh crosshair onto the output image." default:"false"`
	Preview       bool   `help:"Also write a PNG preview next to the output bitmap." default:"false"`
	PreviewMax    int    `help:"Max width/height of the preview thumbnail; 0 keeps full size." default:"0"`
	PreviewPalette string `help:"RIFF .pal file to re-quantize the preview against, nearest-match in Oklab space, instead of the exact device palette." optional:""`
	PreviewDither  bool   `help:"Dither the preview when --preview-palette is set." default:"false"`
}

// decodeOptions is decodeFlags resolved into the typed modes the
// pipeline itself takes.
type decodeOptions struct {
	decodeFlags
	interpolation thermal.InterpolationMode
	quantization  thermal.QuantizationMode
	paletteIndex  palette.Index
}

var interpolationModes = map[string]thermal.InterpolationMode{
	"zero":          thermal.InterpolationZero,
	"min":           thermal.InterpolationMin,
	"max":           thermal.InterpolationMax,
	"med":           thermal.InterpolationMed,
	"square_small":  thermal.InterpolationSquareSmall,
	"square_weight": thermal.InterpolationSquareWeight,
	"square_large":  thermal.InterpolationSquareLarge,
}

var quantizationModes = map[string]thermal.QuantizationMode{
	"exact":       thermal.QuantizationExact,
	"floor":       thermal.QuantizationFloor,
	"ceiling":     thermal.QuantizationCeiling,
	"median_low":  thermal.QuantizationMedianLow,
	"median_high": thermal.QuantizationMedianHigh,
}

var paletteIndices = map[string]palette.Index{
	"iron":      palette.Iron,
	"grayscale": palette.Grayscale,
	"rainbow":   palette.Rainbow,
}

func (o *decodeOptions) resolve() error {
	var ok bool
	if o.interpolation, ok = interpolationModes[o.Interpolation]; !ok {
		return fmt.Errorf("unknown interpolation mode %q", o.Interpolation)
	}
	if o.quantization, ok = quantizationModes[o.Quantization]; !ok {
		return fmt.Errorf("unknown quantization mode %q", o.Quantization)
	}
	if o.paletteIndex, ok = paletteIndices[o.Palette]; !ok {
		return fmt.Errorf("unknown palette %q", o.Palette)
	}
	if o.Depth != 16 && o.Depth != 24 && o.Depth != 32 {
		return fmt.Errorf("unsupported bit depth %d", o.Depth)
	}
	return nil
}

// decodeResult is the sidecar JSON payload written next to a decoded
// output bitmap.
type decodeResult struct {
	Model             string `json:"model"`
	Palette           string `json:"palette"`
	TemperatureSpotC  string `json:"temperature_spot_c"`
	EmissivityPercent *uint8 `json:"emissivity_percent,omitempty"`
}

// decodeFile runs the full pipeline over a single screenshot file and
// writes the rendered output bitmap plus a JSON sidecar into outDir.
func decodeFile(logger *slog.Logger, opts decodeOptions, inPath, outDir string) error {
	f, err := os.Open(inPath)
	if err != nil {
		return fmt.Errorf("could not open %q: %w", inPath, err)
	}
	defer f.Close()

	screenshot, err := bitmap.Load(f)
	if err != nil {
		return fmt.Errorf("could not read bitmap %q: %w", inPath, err)
	}

	loc, err := locator.Create(screenshot)
	if err != nil {
		return fmt.Errorf("could not split screenshot %q: %w", inPath, err)
	}
	if err := locator.Process(loc); err != nil {
		logger.Warn("crosshair not recognized, continuing with unknown model", "file", inPath, "error", err)
	}

	th, err := thermal.Create(loc)
	if err != nil {
		return fmt.Errorf("could not create thermal context for %q: %w", inPath, err)
	}

	var temperature string
	var emissivity *uint8
	if err := th.OCR(); err != nil {
		logger.Warn("could not read on-screen display", "file", inPath, "error", err)
		temperature = "unknown"
	} else {
		temperature = fmt.Sprintf("%.1f", float64(th.TemperatureSpot)/10)
		emissivity = &th.Emissivity
	}

	if err := th.Process(opts.interpolation, opts.quantization); err != nil {
		return fmt.Errorf("could not process %q: %w", inPath, err)
	}

	rendered, err := th.Export(opts.paletteIndex)
	if err != nil {
		return fmt.Errorf("could not render %q: %w", inPath, err)
	}

	if opts.Restamp {
		border := canvas.RGB565(0x00, 0x00, 0x00)
		fill := canvas.RGB565(0xff, 0xff, 0xff)
		if err := th.Crosshair(border, fill, rendered); err != nil {
			return fmt.Errorf("could not restamp crosshair for %q: %w", inPath, err)
		}
	}

	base := strings.TrimSuffix(filepath.Base(inPath), filepath.Ext(inPath))
	outPath := filepath.Join(outDir, base+".bmp")
	if err := writeBitmap(rendered, opts.Depth, outPath); err != nil {
		return fmt.Errorf("could not write output %q: %w", outPath, err)
	}

	result := decodeResult{
		Model:             loc.Model.String(),
		Palette:           opts.Palette,
		TemperatureSpotC:  temperature,
		EmissivityPercent: emissivity,
	}
	sidecar, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("could not encode sidecar for %q: %w", inPath, err)
	}
	if err := os.WriteFile(filepath.Join(outDir, base+".json"), sidecar, 0o644); err != nil {
		return fmt.Errorf("could not write sidecar for %q: %w", inPath, err)
	}

	if opts.Preview {
		previewImg := canvasToImage(rendered)

		if opts.PreviewPalette != "" {
			pal, palErr := loadRIFFPalette(opts.PreviewPalette)
			if palErr != nil {
				return fmt.Errorf("could not load preview palette %q: %w", opts.PreviewPalette, palErr)
			}
			previewImg, err = mangle.Preview(logger, previewImg, pal, opts.PreviewDither)
			if err != nil {
				return fmt.Errorf("could not quantize preview for %q: %w", inPath, err)
			}
		}

		if opts.PreviewMax > 0 {
			previewImg, err = mangle.Thumbnail(logger, previewImg, opts.PreviewMax, opts.PreviewMax)
			if err != nil {
				return fmt.Errorf("could not resize preview for %q: %w", inPath, err)
			}
		}
		if err := mangle.Save(previewImg, "png", filepath.Join(outDir, base+".png")); err != nil {
			return fmt.Errorf("could not write preview for %q: %w", inPath, err)
		}
	}

	logger.Info("decoded", "file", inPath, "model", loc.Model, "temperature_c", temperature, "out", outPath)
	return nil
}

// loadRIFFPalette reads the first palette chunk out of a RIFF .pal
// file for use as a preview-quantization target.
func loadRIFFPalette(path string) (color.Palette, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open %q: %w", path, err)
	}
	defer f.Close()

	pals, err := palette.ReadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("could not read RIFF palette %q: %w", path, err)
	}
	if len(pals) == 0 {
		return nil, fmt.Errorf("%q contains no palette chunks", path)
	}
	return pals[0], nil
}

func writeBitmap(c *canvas.Canvas, depth int, outPath string) error {
	var out *bitmap.Bitmap
	var err error
	switch depth {
	case 16:
		out, err = bitmap.New16(c.Width, c.Height)
	case 24:
		out, err = bitmap.New24(c.Width, c.Height)
	case 32:
		out, err = bitmap.New32(c.Width, c.Height)
	default:
		return fmt.Errorf("unsupported bit depth %d", depth)
	}
	if err != nil {
		return err
	}
	if err := bitmap.Merge(c, 0, 0, out); err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()
	return out.Store(f)
}

// canvasToImage converts an RGB565 canvas into a generic image.Image
// for encoders (mangle.Save, PNG previews) that expect one.
func canvasToImage(c *canvas.Canvas) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, c.Width, c.Height))
	for y := 0; y < c.Height; y++ {
		for x := 0; x < c.Width; x++ {
			p := c.At(x, y)
			img.Set(x, y, color.NRGBA{R: p.R(), G: p.G(), B: p.B(), A: 0xff})
		}
	}
	return img
}

type DecodeCmd struct {
	decodeFlags
	In     string `arg:"" help:"Input device screenshot bitmap."`
	OutDir string `help:"Output directory." default:"."`

	opts decodeOptions `kong:"-"`
}

func (c *DecodeCmd) Validate(kctx *kong.Context) error {
	c.opts = decodeOptions{decodeFlags: c.decodeFlags}
	if err := c.opts.resolve(); err != nil {
		return err
	}
	in, err := filepath.Abs(c.In)
	if err != nil {
		return fmt.Errorf("invalid input path %q: %w", c.In, err)
	}
	c.In = in

	outDir, err := filepath.Abs(c.OutDir)
	if err != nil {
		return fmt.Errorf("invalid output directory %q: %w", c.OutDir, err)
	}
	c.OutDir = outDir
	return nil
}

func (c *DecodeCmd) Run(logger *slog.Logger) error {
	if err := os.MkdirAll(c.OutDir, os.ModeDir); err != nil {
		return fmt.Errorf("unable to create output directory %q: %w", c.OutDir, err)
	}
	return decodeFile(logger, c.opts, c.In, c.OutDir)
}

type BatchCmd struct {
	decodeFlags
	Scan    string `help:"Source folder to scan for screenshots." default:"."`
	OutDir  string `help:"Output directory." default:"decoded"`
	Workers int    `help:"Number of concurrent workers; 1 runs synchronously." default:"0" short:"w"`

	opts decodeOptions `kong:"-"`
}

func (c *BatchCmd) Validate(kctx *kong.Context) error {
	c.opts = decodeOptions{decodeFlags: c.decodeFlags}
	if err := c.opts.resolve(); err != nil {
		return err
	}
	scan, err := filepath.Abs(c.Scan)
	if err != nil {
		return fmt.Errorf("invalid scan path %q: %w", c.Scan, err)
	}
	c.Scan = scan

	if !filepath.IsAbs(c.OutDir) {
		c.OutDir = filepath.Join(scan, c.OutDir)
	}
	return nil
}

func (c *BatchCmd) Run(logger *slog.Logger) error {
	if err := os.MkdirAll(c.OutDir, os.ModeDir); err != nil {
		return fmt.Errorf("unable to create output directory %q: %w", c.OutDir, err)
	}

	files, err := os.ReadDir(c.Scan)
	if err != nil {
		return fmt.Errorf("unable to read folder %q: %w", c.Scan, err)
	}

	pool := parallel.Start(c.Workers)

	var processed, errCount atomic.Int64
	for _, file := range files {
		if file.IsDir() || !strings.EqualFold(filepath.Ext(file.Name()), ".bmp") {
			continue
		}

		name := file.Name()
		pool.Do(func() {
			inPath := filepath.Join(c.Scan, name)
			if err := decodeFile(logger, c.opts, inPath, c.OutDir); err != nil {
				errCount.Add(1)
				logger.Error("could not decode file", "file", inPath, "error", err)
				return
			}
			processed.Add(1)
		})
	}
	pool.Wait(true)

	logger.Info("batch stats", "processed", processed.Load(), "errors", errCount.Load())
	if errCount.Load() > 0 {
		return fmt.Errorf("error processing %d files", errCount.Load())
	}
	return nil
}

type PaletteCmd struct {
	Export PaletteExportCmd `cmd:"" help:"Export a fixed palette as a RIFF .pal file"`
	Import PaletteImportCmd `cmd:"" help:"Read a RIFF .pal file and report its colors"`
}

type PaletteExportCmd struct {
	Name  string `arg:"" help:"Palette name." enum:"iron,grayscale,rainbow"`
	Out   string `arg:"" help:"Destination .pal file."`
	Space string `help:"Color space to store entries in; lab round-trips through Oklab for perceptual palette editors." enum:"rgb565,lab" default:"rgb565"`
}

func (c *PaletteExportCmd) Run(logger *slog.Logger) error {
	idx, ok := paletteIndices[c.Name]
	if !ok {
		return fmt.Errorf("unknown palette %q", c.Name)
	}
	entries := palette.Get(idx)

	pal := make(color.Palette, 0, len(entries))
	for _, e := range entries {
		pal = append(pal, color.NRGBA{R: e.Color.R(), G: e.Color.G(), B: e.Color.B(), A: 0xff})
	}

	f, err := os.Create(c.Out)
	if err != nil {
		return fmt.Errorf("could not create %q: %w", c.Out, err)
	}
	defer f.Close()

	var n int64
	if c.Space == "lab" {
		n, err = palette.NewLabPalette(pal).WriteRIFF(f)
	} else {
		n, err = palette.WriteTo(f, []color.Palette{pal})
	}
	if err != nil {
		return fmt.Errorf("could not write RIFF palette: %w", err)
	}
	logger.Info("exported palette", "name", c.Name, "space", c.Space, "colors", n, "out", c.Out)
	return nil
}

type PaletteImportCmd struct {
	In string `arg:"" help:"Source .pal file."`
}

func (c *PaletteImportCmd) Run(logger *slog.Logger) error {
	f, err := os.Open(c.In)
	if err != nil {
		return fmt.Errorf("could not open %q: %w", c.In, err)
	}
	defer f.Close()

	pals, err := palette.ReadFrom(f)
	if err != nil {
		return fmt.Errorf("could not read RIFF palette: %w", err)
	}
	for i, pal := range pals {
		logger.Info("palette chunk", "index", i, "colors", len(pal))
	}
	return nil
}

type SortCmd struct {
	Src  string `arg:"" help:"Source folder to scan."`
	Dst  string `arg:"" help:"Destination folder; device/ and other/ subfolders are created inside it."`
	Move bool   `help:"Move files instead of copying them." default:"false"`
}

func (c *SortCmd) Validate(kctx *kong.Context) error {
	src, err := filepath.Abs(c.Src)
	if err != nil {
		return fmt.Errorf("invalid source path %q: %w", c.Src, err)
	}
	c.Src = src

	if !filepath.IsAbs(c.Dst) {
		c.Dst = filepath.Join(src, c.Dst)
	}
	return nil
}

func (c *SortCmd) Run(logger *slog.Logger) error {
	return orient.Sort(logger, c.Src, c.Dst, c.Move)
}
