package mesh

import (
	"fmt"
	"math"
	"strconv"
)

// Palette maps a material index to an RGBA color in [0, 1].
type Palette [256][4]float32

// ParseHexColor parses "#RRGGBB" or "#RRGGBBAA".
func ParseHexColor(hex string) ([4]float32, error) {
	if len(hex) == 0 || hex[0] != '#' {
		return [4]float32{}, fmt.Errorf("invalid hex color %q", hex)
	}
	h := hex[1:]
	if len(h) != 6 && len(h) != 8 {
		return [4]float32{}, fmt.Errorf("invalid hex color length %q", hex)
	}
	var ch [4]uint64
	ch[3] = 255
	for i := 0; i < len(h)/2; i++ {
		v, err := strconv.ParseUint(h[2*i:2*i+2], 16, 8)
		if err != nil {
			return [4]float32{}, fmt.Errorf("invalid hex color %q: %w", hex, err)
		}
		ch[i] = v
	}
	return [4]float32{float32(ch[0]) / 255, float32(ch[1]) / 255, float32(ch[2]) / 255, float32(ch[3]) / 255}, nil
}

// DefaultPalette spreads hues over the material indices. Index 0 is a
// neutral grey.
func DefaultPalette() *Palette {
	var p Palette
	p[0] = [4]float32{0.6, 0.6, 0.6, 1}
	for i := 1; i < len(p); i++ {
		hue := math.Mod(float64(i)*137.508, 360)
		light := 0.45 + 0.15*float64(i%3)
		r, g, b := hsl(hue, 0.65, light)
		p[i] = [4]float32{float32(r), float32(g), float32(b), 1}
	}
	return &p
}

// NewPalette starts from DefaultPalette and overrides the first len(hexes)
// entries.
func NewPalette(hexes []string) (*Palette, error) {
	if len(hexes) > 256 {
		return nil, fmt.Errorf("palette has %d colors, at most 256 allowed", len(hexes))
	}
	p := DefaultPalette()
	for i, h := range hexes {
		c, err := ParseHexColor(h)
		if err != nil {
			return nil, fmt.Errorf("palette entry %d: %w", i, err)
		}
		p[i] = c
	}
	return p, nil
}

func hsl(h, s, l float64) (r, g, b float64) {
	c := (1 - math.Abs(2*l-1)) * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := l - c/2
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return r + m, g + m, b + m
}
