package bitmap

import (
	"bytes"
	"testing"

	"flare16x/canvas"
)

func TestStoreLoadRoundTrip16(t *testing.T) {
	bmp, err := New16(8, 4)
	if err != nil {
		t.Fatal(err)
	}
	for i := range bmp.Pixels {
		bmp.Pixels[i] = byte(i)
	}

	var buf bytes.Buffer
	if err := bmp.Store(&buf); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Width != bmp.Width || loaded.Height != bmp.Height || loaded.BitCount != 16 {
		t.Fatalf("geometry mismatch: %+v", loaded)
	}
	if !bytes.Equal(loaded.Pixels, bmp.Pixels) {
		t.Fatalf("pixel data mismatch after round trip")
	}
}

func TestEditMergeRoundTrip(t *testing.T) {
	bmp, err := New16(4, 4)
	if err != nil {
		t.Fatal(err)
	}
	c, err := canvas.New(4, 4)
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			c.Set(x, y, canvas.RGB565(uint8(x*16), uint8(y*16), 0x80))
		}
	}
	if err := Merge(c, 0, 0, bmp); err != nil {
		t.Fatal(err)
	}

	edited, err := bmp.Edit(0, 0, 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if edited.At(x, y) != c.At(x, y) {
				t.Fatalf("pixel (%d,%d) mismatch: got %#x want %#x", x, y, edited.At(x, y), c.At(x, y))
			}
		}
	}
}

func TestLoadRejectsBadMagic(t *testing.T) {
	buf := bytes.NewBuffer(make([]byte, fileHeaderSize))
	if _, err := Load(buf); err == nil {
		t.Fatal("expected an error for a zeroed header")
	}
}
