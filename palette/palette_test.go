package palette

import (
	"testing"

	"flare16x/canvas"
)

func TestFindValueUsesCacheOnRepeatedLookup(t *testing.T) {
	var cache Cache
	e, err := FindValue(10, Grayscale, &cache)
	if err != nil {
		t.Fatal(err)
	}
	if e.Base != 8 || e.Width != 4 {
		t.Fatalf("unexpected entry for value 10: %+v", e)
	}
	if cache.length != 1 {
		t.Fatalf("expected the lookup to populate the cache, got length %d", cache.length)
	}

	// Second lookup for the same value should be served from the cache
	// without changing its contents.
	e2, err := FindValue(10, Grayscale, &cache)
	if err != nil {
		t.Fatal(err)
	}
	if e2 != e {
		t.Fatalf("cached lookup returned a different entry: %+v vs %+v", e2, e)
	}
}

func TestCacheIsRoundRobinNotLRU(t *testing.T) {
	var cache Cache
	// fill the cache with four distinct entries
	for _, v := range []uint8{2, 10, 20, 30} {
		if _, err := FindValue(v, Grayscale, &cache); err != nil {
			t.Fatal(err)
		}
	}
	if cache.length != cacheSize {
		t.Fatalf("expected the cache to be full, got length %d", cache.length)
	}
	first := cache.entries[0]

	// a fifth distinct lookup evicts slot 0 regardless of how recently
	// the other three slots were used.
	if _, err := FindValue(40, Grayscale, &cache); err != nil {
		t.Fatal(err)
	}
	if cache.entries[0] == first {
		t.Fatalf("expected slot 0 to be evicted by round-robin, it was not")
	}
}

func TestFindColorMissReturnsError(t *testing.T) {
	var cache Cache
	if _, err := FindColor(canvas.Color(0x1234), Grayscale, &cache); err == nil {
		t.Fatal("expected an error for a color absent from the palette")
	}
}

func TestDetermineIdentifiesGrayscaleImage(t *testing.T) {
	c, err := canvas.New(8, 8)
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < c.Height; y++ {
		for x := 0; x < c.Width; x++ {
			c.Set(x, y, grayscaleTable[x%len(grayscaleTable)].Color)
		}
	}

	idx, err := Determine(c, IgnoreErrors)
	if err != nil {
		t.Fatal(err)
	}
	if idx != Grayscale {
		t.Fatalf("expected Grayscale, got %v", idx)
	}
}

func TestDetermineFailsOnAmbiguousImage(t *testing.T) {
	c, err := canvas.New(1, 1)
	if err != nil {
		t.Fatal(err)
	}
	c.Set(0, 0, canvas.Color(0x1234))

	if _, err := Determine(c, IgnoreErrors); err == nil {
		t.Fatal("expected an error when no palette matches any pixel")
	}
}
