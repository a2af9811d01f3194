package canvas

import "testing"

func TestRGB565RoundTrip(t *testing.T) {
	c := RGB565(0xf8, 0xfc, 0xf8)
	if c.R() != 0xf8 || c.G() != 0xfc || c.B() != 0xf8 {
		t.Fatalf("round trip mismatch: got r=%#x g=%#x b=%#x", c.R(), c.G(), c.B())
	}
}

func TestSubAndBlit(t *testing.T) {
	c, err := New(4, 4)
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			c.Set(x, y, Color(y*4+x))
		}
	}

	sub, err := c.Sub(1, 1, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if sub.At(0, 0) != c.At(1, 1) || sub.At(1, 1) != c.At(2, 2) {
		t.Fatalf("sub-canvas did not copy the expected region")
	}

	dst, err := New(4, 4)
	if err != nil {
		t.Fatal(err)
	}
	if err := dst.Blit(sub, 2, 2); err != nil {
		t.Fatal(err)
	}
	if dst.At(2, 2) != c.At(1, 1) {
		t.Fatalf("blit did not place the sub-canvas at the requested offset")
	}
}

func TestBlitClipsOutOfBoundsRegion(t *testing.T) {
	c, err := New(4, 4)
	if err != nil {
		t.Fatal(err)
	}

	src, err := New(3, 3)
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			src.Set(x, y, Color(0x100+y*3+x))
		}
	}

	if err := c.Blit(src, 2, 2); err != nil {
		t.Fatalf("blit past the edge should clip, not error: %v", err)
	}
	if c.At(2, 2) != src.At(0, 0) || c.At(3, 3) != src.At(1, 1) {
		t.Fatalf("clipped region did not land at the expected offset")
	}

	if err := c.Blit(src, -1, -1); err != nil {
		t.Fatalf("blit before the edge should clip, not error: %v", err)
	}
	if c.At(0, 0) != src.At(1, 1) {
		t.Fatalf("negative-offset clip did not align source correctly")
	}
}

func TestNewRejectsInvalidSize(t *testing.T) {
	if _, err := New(0, 1); err == nil {
		t.Fatal("expected an error for zero width")
	}
	if _, err := New(1<<13, 1<<13); err == nil {
		t.Fatal("expected an error for an oversized canvas")
	}
}
