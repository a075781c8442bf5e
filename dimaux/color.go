package dimaux

import (
	"image/color"

	math "github.com/chewxy/math32"
	"github.com/soypat/dimview/dataset"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/glgl/math/ms1"
)

// classPalette holds the colors of the first classes.
var classPalette = [...]color.RGBA{
	{R: 255, A: 255},         // red
	{G: 255, A: 255},         // green
	{B: 255, A: 255},         // blue
	{R: 255, G: 255, A: 255}, // yellow
	{G: 255, B: 255, A: 255}, // cyan
	{R: 255, B: 255, A: 255}, // magenta
}

var unclassified = color.RGBA{R: 160, G: 160, B: 160, A: 255}

// ClassColor returns the color of a class label. The first six classes are
// red, green, blue, yellow, cyan and magenta. Further classes get hues spread by
// the golden ratio. Labels without an integral class are gray.
func ClassColor(label dataset.Value) color.RGBA {
	class, ok := label.Class()
	switch {
	case !ok || class < 0:
		return unclassified
	case class < len(classPalette):
		return classPalette[class]
	}
	const goldenRatioConjugate = 0.618033988749895
	h := float32(class-len(classPalette)) * goldenRatioConjugate
	h -= math.Floor(h)
	c := rgbToC(hsvToRGB(h, 0.75, 0.95))
	return color.RGBA{R: uint8(c >> 16), G: uint8(c >> 8), B: uint8(c), A: 255}
}

// ClassColorVec returns [ClassColor] as normalized RGB components.
func ClassColorVec(label dataset.Value) ms3.Vec {
	c := ClassColor(label)
	return ms3.Vec{X: float32(c.R) / math.MaxUint8, Y: float32(c.G) / math.MaxUint8, Z: float32(c.B) / math.MaxUint8}
}

// rgbToC converts r, g, and b values on the range of 0.0 to 1.0 to a
// 24 bit RGB value stored in the least significant bits of a uint32. The inputs
// are clamped to the range of 0.0 to 1.0
func rgbToC(r, g, b float32) (c uint32) {
	return uint32(ms1.Clamp(r, 0, 1)*math.MaxUint8)<<16 |
		uint32(ms1.Clamp(g, 0, 1)*math.MaxUint8)<<8 |
		uint32(ms1.Clamp(b, 0, 1)*math.MaxUint8)
}

// hsvToRGB converts hue, saturation and brightness values on the range of 0.0
// to 1.0 to RGB floating point values on the range of 0.0 to 1.0
func hsvToRGB(h, s, v float32) (r, g, b float32) {
	var (
		c = s * v
		x = c * (1 - math.Abs(math.Mod(h*6, 2)-1))
		m = v - c
	)
	switch {
	case h <= 1.0/6:
		r, g, b = c, x, 0
	case h <= 2.0/6:
		r, g, b = x, c, 0
	case h <= 3.0/6:
		r, g, b = 0, c, x
	case h <= 4.0/6:
		r, g, b = 0, x, c
	case h <= 5.0/6:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return r + m, g + m, b + m
}
