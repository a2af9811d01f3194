// Package palette implements the three fixed thermal colormaps the
// device can render with (IRON, GRAYSCALE, RAINBOW), color/value lookup
// against them, and determining which one a rendered image used.
package palette

import (
	"flare16x/canvas"
	"flare16x/ferror"
)

// Index identifies one of the fixed palettes.
type Index uint8

const (
	Unknown Index = iota
	Iron
	Grayscale
	Rainbow

	Min   = Iron
	Max   = Rainbow
	Count = int(Max)
)

func (i Index) String() string {
	switch i {
	case Iron:
		return "iron"
	case Grayscale:
		return "grayscale"
	case Rainbow:
		return "rainbow"
	default:
		return "unknown"
	}
}

// IgnoreErrors disables the error budget in Determine.
const IgnoreErrors = 0xffff

// Entry is a single contiguous value range mapped to one RGB565 color.
type Entry struct {
	Base  uint8
	Width uint8
	Color canvas.Color
}

// contains reports whether value falls in [Base, Base+Width).
func (e Entry) contains(value uint8) bool {
	return e.Base <= value && int(e.Base)+int(e.Width) > int(value)
}

// Get returns the fixed table for index, or nil if index names no
// known palette.
func Get(index Index) []Entry {
	switch index {
	case Iron:
		return ironTable
	case Grayscale:
		return grayscaleTable
	case Rainbow:
		return rainbowTable
	default:
		return nil
	}
}

// cacheSize is the number of entries held by a Cache. It is a literal
// 4-slot round-robin, not an LRU: once full, the next miss evicts
// whichever slot the index cursor currently points at regardless of recency, which
// is how the original behaves. Do not "improve" this into an LRU.
const cacheSize = 4

// Cache accelerates repeated lookups against a single palette. A Cache
// must not be reused across different palettes — reinitialize with a
// fresh Cache instead.
type Cache struct {
	entries [cacheSize]Entry
	length  int
	index   int
}

func (c *Cache) insert(e Entry) {
	if c.length < cacheSize {
		c.index = 0
		c.entries[c.length] = e
		c.length++
		return
	}
	c.entries[c.index] = e
	c.index++
	if c.index >= c.length {
		c.index = 0
	}
}

// FindColor looks up the entry matching an exact RGB565 color, checking
// the cache before falling back to a linear scan of the palette table.
func FindColor(color canvas.Color, index Index, cache *Cache) (Entry, error) {
	if cache == nil {
		return Entry{}, ferror.New(ferror.ReasonNullInput, ferror.SourcePalettes)
	}
	table := Get(index)
	if table == nil {
		return Entry{}, ferror.New(ferror.ReasonOutOfRange, ferror.SourcePalettes)
	}

	for i := 0; i < cache.length; i++ {
		if cache.entries[i].Color == color {
			return cache.entries[i], nil
		}
	}
	for _, e := range table {
		if e.Color == color {
			cache.insert(e)
			return e, nil
		}
	}
	return Entry{}, ferror.New(ferror.ReasonImageShape, ferror.SourcePalettes)
}

// FindValue looks up the entry whose [Base, Base+Width) range contains
// value, checking the cache before falling back to a linear scan.
func FindValue(value uint8, index Index, cache *Cache) (Entry, error) {
	if cache == nil {
		return Entry{}, ferror.New(ferror.ReasonNullInput, ferror.SourcePalettes)
	}
	table := Get(index)
	if table == nil {
		return Entry{}, ferror.New(ferror.ReasonOutOfRange, ferror.SourcePalettes)
	}

	for i := 0; i < cache.length; i++ {
		if cache.entries[i].contains(value) {
			return cache.entries[i], nil
		}
	}
	for _, e := range table {
		if e.contains(value) {
			cache.insert(e)
			return e, nil
		}
	}
	return Entry{}, ferror.New(ferror.ReasonImageShape, ferror.SourcePalettes)
}

var (
	crosshairBorder = canvas.RGB565(0x00, 0x00, 0x00)
	crosshairFill   = canvas.RGB565(0xff, 0xff, 0xff)
)

// Determine analyzes c and returns whichever fixed palette its pixels
// match most often, tallying per-pixel color hits (skipping the
// crosshair's pure black/white) and requiring a unique winner.
//
// maxErrors bounds how many pixels may match no known palette before
// Determine gives up early; pass IgnoreErrors to never give up early.
func Determine(c *canvas.Canvas, maxErrors int) (Index, error) {
	if c == nil || c.Pixels == nil {
		return Unknown, ferror.New(ferror.ReasonNullInput, ferror.SourcePalettes)
	}
	if c.Width == 0 || c.Height == 0 {
		return Unknown, ferror.New(ferror.ReasonOutOfRange, ferror.SourcePalettes)
	}

	counts := make([]int, Count)
	caches := make([]Cache, Count)

	for y := 0; y < c.Height; y++ {
		for x := 0; x < c.Width; x++ {
			p := c.At(x, y)
			if p == crosshairBorder || p == crosshairFill {
				continue
			}

			matched := false
			for idx := Min; idx <= Max; idx++ {
				slot := int(idx - Min)
				if _, err := FindColor(p, idx, &caches[slot]); err == nil {
					counts[slot]++
					matched = true
				}
			}

			if !matched {
				if maxErrors == IgnoreErrors {
					continue
				}
				maxErrors--
				if maxErrors < 1 {
					return Unknown, ferror.New(ferror.ReasonImageShape, ferror.SourcePalettes)
				}
			}
		}
	}

	highest, highestCount, tied := Unknown, 0, false
	for i := 0; i < Count; i++ {
		idx := Index(i) + Min
		switch {
		case counts[i] > highestCount:
			highestCount = counts[i]
			highest = idx
			tied = false
		case counts[i] == highestCount:
			tied = true
		}
	}

	if highest == Unknown || tied {
		return highest, ferror.New(ferror.ReasonImageShape, ferror.SourcePalettes)
	}
	return highest, nil
}
