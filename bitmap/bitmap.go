// Package bitmap reads and writes the fixed 16/24/32bpp BMP dumps the
// thermal camera firmware emits: a standard 14-byte file header and
// 40-byte BITMAPINFOHEADER, optionally followed by a 12-byte RGB565
// bitfield mask, followed by top-down pixel data.
//
// This is deliberately not golang.org/x/image/bmp: that decoder does
// not support 16-bit BI_BITFIELDS DIBs, which is exactly the format
// the device writes.
package bitmap

import (
	"encoding/binary"
	"io"

	"flare16x/canvas"
	"flare16x/ferror"
)

const (
	headerMagic    = 0x4d42
	headerReserved = 0x0

	compressionRGB       = 0x0
	compressionBitfields = 0x3

	maskRGB565Red   = 0xf800
	maskRGB565Green = 0x07e0
	maskRGB565Blue  = 0x001f

	maxPixels = canvas.MaxPixels

	fileHeaderSize = 14
	dibHeaderSize  = 40
	maskSize       = 12
)

type fileHeader struct {
	Magic          uint16
	FileSize       uint32
	Reserved       uint32
	PayloadOffset  uint32
}

type dibHeader struct {
	Size             uint32
	Width            int32
	Height           int32
	Planes           uint16
	BitCount         uint16
	Compression      uint32
	SizeImage        uint32
	HorPxPerMeter    int32
	VerPxPerMeter    int32
	ColorsUsed       uint32
	ColorsImportant  uint32
}

type maskHeader struct {
	Red, Green, Blue uint32
}

// Bitmap is an in-memory, already top-down-normalized device bitmap.
type Bitmap struct {
	Width, Height int
	BitCount      int
	Compression   uint32
	Stride        int
	Pixels        []byte
}

func strideFor(width, bitCount int) int {
	return ((width*bitCount + 31) &^ 31) >> 3
}

// New16 allocates a blank 16-bit RGB565 BITFIELDS bitmap.
func New16(width, height int) (*Bitmap, error) {
	return newBitmap(width, height, 16, compressionBitfields)
}

// New24 allocates a blank 24-bit RGB888 bitmap.
func New24(width, height int) (*Bitmap, error) {
	return newBitmap(width, height, 24, compressionRGB)
}

// New32 allocates a blank 32-bit RGBA8888 bitmap.
func New32(width, height int) (*Bitmap, error) {
	return newBitmap(width, height, 32, compressionRGB)
}

func newBitmap(width, height, bitCount int, compression uint32) (*Bitmap, error) {
	if width <= 0 || height <= 0 || width*height > maxPixels {
		return nil, ferror.New(ferror.ReasonOutOfRange, ferror.SourceBitmap)
	}
	stride := strideFor(width, bitCount)
	return &Bitmap{
		Width:       width,
		Height:      height,
		BitCount:    bitCount,
		Compression: compression,
		Stride:      stride,
		Pixels:      make([]byte, stride*height),
	}, nil
}

// Load reads a bitmap from r, normalizing bottom-up DIBs to top-down.
func Load(r io.Reader) (*Bitmap, error) {
	var fh fileHeader
	if err := binary.Read(r, binary.LittleEndian, &fh); err != nil {
		return nil, ferror.Wrap(ferror.ReasonIOFail, ferror.SourceBitmap, err)
	}
	if fh.Magic != headerMagic || fh.Reserved != headerReserved || fh.FileSize == 0 ||
		(fh.PayloadOffset != 0x36 && fh.PayloadOffset != 0x42) {
		return nil, ferror.New(ferror.ReasonFormat, ferror.SourceBitmap)
	}

	var dib dibHeader
	if err := binary.Read(r, binary.LittleEndian, &dib); err != nil {
		return nil, ferror.Wrap(ferror.ReasonIOFail, ferror.SourceBitmap, err)
	}
	dibMaskSize := int(fh.PayloadOffset) - fileHeaderSize
	if (dibMaskSize != int(dib.Size)+maskSize && dibMaskSize != int(dib.Size)) ||
		dib.Planes != 1 || dib.Width <= 0 || dib.Height == 0 ||
		int(dib.Width)*abs32(dib.Height) > maxPixels {
		return nil, ferror.New(ferror.ReasonFormat, ferror.SourceBitmap)
	}

	stride := strideFor(int(dib.Width), int(dib.BitCount))

	switch {
	case dib.BitCount == 16 && fh.PayloadOffset == 0x42 && dib.Compression == compressionBitfields:
		var mask maskHeader
		if err := binary.Read(r, binary.LittleEndian, &mask); err != nil {
			return nil, ferror.Wrap(ferror.ReasonIOFail, ferror.SourceBitmap, err)
		}
		if mask.Red != maskRGB565Red || mask.Green != maskRGB565Green || mask.Blue != maskRGB565Blue {
			return nil, ferror.New(ferror.ReasonFormat, ferror.SourceBitmap)
		}
	case dib.BitCount == 24 && fh.PayloadOffset == 0x36 && dib.Compression == compressionRGB:
	case dib.BitCount == 32 && fh.PayloadOffset == 0x36 && dib.Compression == compressionRGB:
	default:
		return nil, ferror.New(ferror.ReasonFormat, ferror.SourceBitmap)
	}

	height := abs32(dib.Height)
	pixelsSize := stride * height
	pixels := make([]byte, pixelsSize)
	if _, err := io.ReadFull(r, pixels); err != nil {
		return nil, ferror.Wrap(ferror.ReasonIOFail, ferror.SourceBitmap, err)
	}

	if dib.Height > 0 {
		pixels = flipRows(pixels, stride, height)
	}

	return &Bitmap{
		Width:       int(dib.Width),
		Height:      height,
		BitCount:    int(dib.BitCount),
		Compression: dib.Compression,
		Stride:      stride,
		Pixels:      pixels,
	}, nil
}

func flipRows(pixels []byte, stride, height int) []byte {
	out := make([]byte, len(pixels))
	for y := 0; y < height; y++ {
		src := pixels[(height-y-1)*stride : (height-y)*stride]
		copy(out[y*stride:(y+1)*stride], src)
	}
	return out
}

func abs32(v int32) int {
	if v < 0 {
		return int(-v)
	}
	return int(v)
}

// Store writes the bitmap out, always as a top-down DIB (negative
// height), matching the device's own canonical orientation.
func (b *Bitmap) Store(w io.Writer) error {
	if b == nil || b.Pixels == nil {
		return ferror.New(ferror.ReasonNullInput, ferror.SourceBitmap)
	}
	if b.Width <= 0 || b.Height <= 0 || b.Stride == 0 ||
		(b.BitCount != 16 && b.BitCount != 24 && b.BitCount != 32) ||
		(b.Compression != compressionRGB && b.Compression != compressionBitfields) ||
		(b.Compression == compressionBitfields && b.BitCount != 16) ||
		(b.Compression == compressionRGB && b.BitCount != 24 && b.BitCount != 32) {
		return ferror.New(ferror.ReasonFormat, ferror.SourceBitmap)
	}

	payloadOffset := uint32(fileHeaderSize + dibHeaderSize)
	if b.Compression == compressionBitfields {
		payloadOffset += maskSize
	}
	fh := fileHeader{
		Magic:         headerMagic,
		FileSize:      payloadOffset + uint32(len(b.Pixels)),
		Reserved:      headerReserved,
		PayloadOffset: payloadOffset,
	}
	dib := dibHeader{
		Size:        dibHeaderSize,
		Width:       int32(b.Width),
		Height:      -int32(b.Height),
		Planes:      1,
		BitCount:    uint16(b.BitCount),
		Compression: b.Compression,
		SizeImage:   uint32(len(b.Pixels)),
	}

	if err := binary.Write(w, binary.LittleEndian, fh); err != nil {
		return ferror.Wrap(ferror.ReasonIOFail, ferror.SourceBitmap, err)
	}
	if err := binary.Write(w, binary.LittleEndian, dib); err != nil {
		return ferror.Wrap(ferror.ReasonIOFail, ferror.SourceBitmap, err)
	}
	if b.Compression == compressionBitfields {
		mask := maskHeader{Red: maskRGB565Red, Green: maskRGB565Green, Blue: maskRGB565Blue}
		if err := binary.Write(w, binary.LittleEndian, mask); err != nil {
			return ferror.Wrap(ferror.ReasonIOFail, ferror.SourceBitmap, err)
		}
	}
	if _, err := w.Write(b.Pixels); err != nil {
		return ferror.Wrap(ferror.ReasonIOFail, ferror.SourceBitmap, err)
	}
	return nil
}

// Edit copies a width x height region starting at (offsetX, offsetY)
// into a fresh RGB565 Canvas, converting 24/32bpp source pixels down.
func (b *Bitmap) Edit(offsetX, offsetY, width, height int) (*canvas.Canvas, error) {
	if b == nil || b.Pixels == nil {
		return nil, ferror.New(ferror.ReasonNullInput, ferror.SourceBitmap)
	}
	if width <= 0 || height <= 0 || offsetX+width > b.Width || offsetY+height > b.Height {
		return nil, ferror.New(ferror.ReasonOutOfRange, ferror.SourceBitmap)
	}

	out, err := canvas.New(width, height)
	if err != nil {
		return nil, err
	}

	switch {
	case b.BitCount == 16 && b.Compression == compressionBitfields:
		for y := 0; y < height; y++ {
			rowOff := (y + offsetY) * b.Stride
			for x := 0; x < width; x++ {
				i := rowOff + (x+offsetX)*2
				v := binary.LittleEndian.Uint16(b.Pixels[i : i+2])
				out.Set(x, y, canvas.Color(v))
			}
		}
	case b.BitCount == 24 && b.Compression == compressionRGB:
		for y := 0; y < height; y++ {
			rowOff := (y + offsetY) * b.Stride
			for x := 0; x < width; x++ {
				i := rowOff + (x+offsetX)*3
				blue, green, red := b.Pixels[i], b.Pixels[i+1], b.Pixels[i+2]
				out.Set(x, y, canvas.RGB565(red, green, blue))
			}
		}
	case b.BitCount == 32 && b.Compression == compressionRGB:
		for y := 0; y < height; y++ {
			rowOff := (y + offsetY) * b.Stride
			for x := 0; x < width; x++ {
				i := rowOff + (x+offsetX)*4
				blue, green, red := b.Pixels[i], b.Pixels[i+1], b.Pixels[i+2]
				out.Set(x, y, canvas.RGB565(red, green, blue))
			}
		}
	default:
		return nil, ferror.New(ferror.ReasonFormat, ferror.SourceBitmap)
	}

	return out, nil
}

// Merge copies a canvas into the bitmap's pixel data at (offsetX,
// offsetY), expanding RGB565 back up for 24/32bpp destinations.
func Merge(c *canvas.Canvas, offsetX, offsetY int, b *Bitmap) error {
	if c == nil || b == nil || c.Pixels == nil || b.Pixels == nil {
		return ferror.New(ferror.ReasonNullInput, ferror.SourceBitmap)
	}
	if c.Width+offsetX > b.Width || c.Height+offsetY > b.Height {
		return ferror.New(ferror.ReasonOutOfRange, ferror.SourceBitmap)
	}

	switch {
	case b.BitCount == 16 && b.Compression == compressionBitfields:
		for y := 0; y < c.Height; y++ {
			rowOff := (y + offsetY) * b.Stride
			for x := 0; x < c.Width; x++ {
				i := rowOff + (x+offsetX)*2
				binary.LittleEndian.PutUint16(b.Pixels[i:i+2], uint16(c.At(x, y)))
			}
		}
	case b.BitCount == 24 && b.Compression == compressionRGB:
		for y := 0; y < c.Height; y++ {
			rowOff := (y + offsetY) * b.Stride
			for x := 0; x < c.Width; x++ {
				p := c.At(x, y)
				i := rowOff + (x+offsetX)*3
				b.Pixels[i] = p.B()
				b.Pixels[i+1] = p.G()
				b.Pixels[i+2] = p.R()
			}
		}
	case b.BitCount == 32 && b.Compression == compressionRGB:
		for y := 0; y < c.Height; y++ {
			rowOff := (y + offsetY) * b.Stride
			for x := 0; x < c.Width; x++ {
				p := c.At(x, y)
				i := rowOff + (x+offsetX)*4
				b.Pixels[i] = p.B()
				b.Pixels[i+1] = p.G()
				b.Pixels[i+2] = p.R()
				b.Pixels[i+3] = 0xff
			}
		}
	default:
		return ferror.New(ferror.ReasonFormat, ferror.SourceBitmap)
	}

	return nil
}
