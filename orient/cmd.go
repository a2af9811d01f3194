// Package orient classifies files as flare16x device screenshot dumps
// or ordinary images, and sorts them into separate destination folders.
package orient

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/vp8l"
	_ "golang.org/x/image/webp"

	"flare16x/bitmap"
)

// Bucket names the destination category Classify assigns a file to.
type Bucket string

const (
	BucketDevice Bucket = "device"
	BucketOther  Bucket = "other"
)

// Classify opens path and decides whether it holds a flare16x device
// screenshot dump or an ordinary image, trying the same general-
// purpose decoder set the teacher registers (gif/jpeg/png plus
// x/image's bmp/tiff/vp8l/webp) before falling back to flare16x's own
// bespoke 16bpp-BITFIELDS bitmap codec, which those decoders don't
// support.
func Classify(path string) (Bucket, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("could not open %q: %w", path, err)
	}
	defer f.Close()

	if _, _, err := image.DecodeConfig(f); err == nil {
		return BucketOther, nil
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("could not rewind %q: %w", path, err)
	}

	if _, err := bitmap.Load(f); err == nil {
		return BucketDevice, nil
	}

	return "", fmt.Errorf("unrecognized file format: %q", path)
}
