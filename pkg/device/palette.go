package device

// Palette is an ordered set of gray levels a screen can display.
// A nil Palette passes gray values through unchanged.
type Palette []uint8

// Built-in palettes for e-ink screens.
var (
	// Palette4 is the 2-bit palette of the first Kindle.
	Palette4 = Palette{0x00, 0x55, 0xaa, 0xff}

	// Palette15 is the palette of the Kindle 2, which lacks 0xee.
	Palette15 = Palette{
		0x00, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77,
		0x88, 0x99, 0xaa, 0xbb, 0xcc, 0xdd, 0xff,
	}

	// Palette16 is the 4-bit palette used by every later e-ink screen.
	Palette16 = Palette{
		0x00, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77,
		0x88, 0x99, 0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff,
	}
)

// Nearest maps v to the closest palette level. Ties go to the darker level.
// With no palette v is returned unchanged.
func (p Palette) Nearest(v uint8) uint8 {
	if len(p) == 0 {
		return v
	}
	best := p[0]
	bestDist := absDiff(v, best)
	for _, level := range p[1:] {
		d := absDiff(v, level)
		if d < bestDist || (d == bestDist && level < best) {
			best, bestDist = level, d
		}
	}
	return best
}

// Contains reports whether v is one of the palette levels.
func (p Palette) Contains(v uint8) bool {
	for _, level := range p {
		if level == v {
			return true
		}
	}
	return false
}

// Lookup returns a 256-entry table mapping every gray value to its nearest
// level, for use in per-pixel loops.
func (p Palette) Lookup() [256]uint8 {
	var lut [256]uint8
	for i := range lut {
		lut[i] = p.Nearest(uint8(i))
	}
	return lut
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
