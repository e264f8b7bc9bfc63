// Package preset holds the fixed table of named colours and the sRGB/CIE-xy
// conversion helpers used to display them.
package preset

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"huebctl/internal/bulb"
)

// ErrUnknown is wrapped by Resolve for names missing from the table.
var ErrUnknown = errors.New("unknown preset")

// colours maps preset names to CIE 1931 xy coordinates, tuned for Hue bulbs.
var colours = map[string]bulb.XY{
	"red":        {X: 0.68, Y: 0.31},
	"green":      {X: 0.17, Y: 0.70},
	"blue":       {X: 0.15, Y: 0.06},
	"yellow":     {X: 0.44, Y: 0.52},
	"orange":     {X: 0.58, Y: 0.40},
	"purple":     {X: 0.27, Y: 0.12},
	"pink":       {X: 0.50, Y: 0.25},
	"cyan":       {X: 0.15, Y: 0.35},
	"warm_white": {X: 0.46, Y: 0.41},
	"cool_white": {X: 0.31, Y: 0.32},
}

// Resolve returns the xy pair for a preset name.
func Resolve(name string) (bulb.XY, error) {
	xy, ok := colours[name]
	if !ok {
		return bulb.XY{}, fmt.Errorf("%q: %w", name, ErrUnknown)
	}
	return xy, nil
}

// Names returns all preset names, sorted.
func Names() []string {
	names := make([]string, 0, len(colours))
	for name := range colours {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RGBToXY converts an sRGB colour (components 0-255) to CIE xy.
func RGBToXY(r, g, b int) bulb.XY {
	rf := gammaExpand(float64(r) / 255.0)
	gf := gammaExpand(float64(g) / 255.0)
	bf := gammaExpand(float64(b) / 255.0)

	x := rf*0.4124564 + gf*0.3575761 + bf*0.1804375
	y := rf*0.2126729 + gf*0.7151522 + bf*0.0721750
	z := rf*0.0193339 + gf*0.1191920 + bf*0.9503041

	total := x + y + z
	if total == 0 {
		// D65 white point for pure black.
		return bulb.XY{X: 0.31271, Y: 0.32902}
	}
	return bulb.XY{X: x / total, Y: y / total}
}

// XYToRGB converts CIE xy plus a relative brightness in (0, 1] back to an
// approximate sRGB colour for display.
func XYToRGB(xy bulb.XY, brightness float64) (r, g, b int) {
	if xy.Y <= 0 {
		return 0, 0, 0
	}

	yy := brightness
	xx := (yy / xy.Y) * xy.X
	zz := (yy / xy.Y) * (1.0 - xy.X - xy.Y)

	rf := xx*3.2404542 - yy*1.5371385 - zz*0.4985314
	gf := -xx*0.9692660 + yy*1.8760108 + zz*0.0415560
	bf := xx*0.0556434 - yy*0.2040259 + zz*1.0572252

	return clamp255(gammaCompress(rf)), clamp255(gammaCompress(gf)), clamp255(gammaCompress(bf))
}

func gammaExpand(c float64) float64 {
	if c > 0.04045 {
		return math.Pow((c+0.055)/1.055, 2.4)
	}
	return c / 12.92
}

func gammaCompress(c float64) float64 {
	if c <= 0.0031308 {
		return 12.92 * c
	}
	return 1.055*math.Pow(c, 1/2.4) - 0.055
}

func clamp255(c float64) int {
	v := int(c * 255)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
