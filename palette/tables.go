package palette

import "flare16x/canvas"

// grayscaleTable is decoded byte-for-byte from the device's own raw
// palette dump (four bytes per entry: base, width, color low byte,
// color high byte), 64 entries of width 4; the first 63 cover values
// 0-251 in steps of 4. The final entry's base of 0 rather than the
// expected 252 is preserved exactly as dumped, so values 252-255 have
// no entry and FindValue fails for them. The final entry is unreachable from FindValue
// (entry 0 always wins the value range [0,4) first) but still lets
// FindColor map the pure-white RGB565 color back to a value, which is
// likely why the device firmware keeps it despite the apparent
// discontinuity.
var grayscaleTable = []Entry{
	{0, 4, 0x0000}, {4, 4, 0x0020}, {8, 4, 0x0841}, {12, 4, 0x0861},
	{16, 4, 0x1082}, {20, 4, 0x10a2}, {24, 4, 0x18c3}, {28, 4, 0x18e3},
	{32, 4, 0x2104}, {36, 4, 0x2124}, {40, 4, 0x2945}, {44, 4, 0x2965},
	{48, 4, 0x3186}, {52, 4, 0x31a6}, {56, 4, 0x39c7}, {60, 4, 0x39e7},
	{64, 4, 0x4208}, {68, 4, 0x4228}, {72, 4, 0x4a49}, {76, 4, 0x4a69},
	{80, 4, 0x528a}, {84, 4, 0x52aa}, {88, 4, 0x5acb}, {92, 4, 0x5aeb},
	{96, 4, 0x630c}, {100, 4, 0x632c}, {104, 4, 0x6b4d}, {108, 4, 0x6b6d},
	{112, 4, 0x738e}, {116, 4, 0x73ae}, {120, 4, 0x7bcf}, {124, 4, 0x7bef},
	{128, 4, 0x8410}, {132, 4, 0x8430}, {136, 4, 0x8c51}, {140, 4, 0x8c71},
	{144, 4, 0x9492}, {148, 4, 0x94b2}, {152, 4, 0x9cd3}, {156, 4, 0x9cf3},
	{160, 4, 0xa514}, {164, 4, 0xa534}, {168, 4, 0xad55}, {172, 4, 0xad75},
	{176, 4, 0xb596}, {180, 4, 0xb5b6}, {184, 4, 0xbdd7}, {188, 4, 0xbdf7},
	{192, 4, 0xc618}, {196, 4, 0xc638}, {200, 4, 0xce59}, {204, 4, 0xce79},
	{208, 4, 0xd69a}, {212, 4, 0xd6ba}, {216, 4, 0xdedb}, {220, 4, 0xdefb},
	{224, 4, 0xe71c}, {228, 4, 0xe73c}, {232, 4, 0xef5d}, {236, 4, 0xef7d},
	{240, 4, 0xf79e}, {244, 4, 0xf7be}, {248, 4, 0xffdf}, {0, 4, 0xffff},
}

// ironTable and rainbowTable are not present anywhere in the retrieval
// pack (only the grayscale dump survived) and are synthesized here:
// 16 entries each, disjoint [base, base+16) ranges spanning 0-255,
// unique RGB565 colors, built from a hand-picked gradient rather than
// recovered device data. See DESIGN.md for the rationale.
var ironTable = buildGradient([16][3]uint8{
	{0, 0, 0}, {20, 0, 45}, {50, 0, 85}, {80, 0, 110},
	{110, 0, 115}, {140, 0, 95}, {170, 10, 70}, {195, 35, 40},
	{215, 65, 20}, {228, 95, 10}, {237, 125, 5}, {245, 155, 0},
	{250, 182, 0}, {253, 205, 30}, {255, 228, 95}, {255, 255, 255},
})

var rainbowTable = buildGradient([16][3]uint8{
	{0, 0, 30}, {0, 0, 110}, {0, 20, 180}, {0, 70, 220},
	{0, 130, 220}, {0, 170, 180}, {0, 190, 120}, {0, 200, 60},
	{40, 210, 0}, {120, 215, 0}, {190, 210, 0}, {230, 180, 0},
	{245, 140, 0}, {250, 90, 0}, {250, 40, 0}, {230, 0, 0},
})

func buildGradient(stops [16][3]uint8) []Entry {
	const width = 16
	entries := make([]Entry, len(stops))
	for i, s := range stops {
		entries[i] = Entry{
			Base:  uint8(i * width),
			Width: width,
			Color: canvas.RGB565(s[0], s[1], s[2]),
		}
	}
	return entries
}
