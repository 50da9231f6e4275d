package postprocess

import (
	"image/color"

	"github.com/chewxy/math32"
)

// ConvertBGRA8 copies a BGRA8 image with the given row pitch into RGBA
// pixels.
func ConvertBGRA8(data []byte, bytesPerRow, width, height int) []color.RGBA {
	out := make([]color.RGBA, max(width*height, 0))
	for y := range height {
		row := data[y*bytesPerRow:]
		dst := out[y*width : (y+1)*width]
		for x := range dst {
			o := x * 4
			dst[x] = color.RGBA{R: row[o+2], G: row[o+1], B: row[o], A: row[o+3]}
		}
	}
	return out
}

// ConvertRGBA8 copies an RGBA8 image with the given row pitch.
func ConvertRGBA8(data []byte, bytesPerRow, width, height int) []color.RGBA {
	out := make([]color.RGBA, max(width*height, 0))
	for y := range height {
		row := data[y*bytesPerRow:]
		dst := out[y*width : (y+1)*width]
		for x := range dst {
			o := x * 4
			dst[x] = color.RGBA{R: row[o], G: row[o+1], B: row[o+2], A: row[o+3]}
		}
	}
	return out
}

// FlipGreen inverts the green channel, converting normal maps between the
// Y-up and Y-down conventions.
func FlipGreen(pixels []color.RGBA) {
	for i := range pixels {
		pixels[i].G = 255 - pixels[i].G
	}
}

// SetAlphaOpaque forces every pixel's alpha to 255.
func SetAlphaOpaque(pixels []color.RGBA) {
	for i := range pixels {
		pixels[i].A = 255
	}
}

// CopyRedToAlpha moves the red channel into alpha. Used when a scalar
// property is baked into the alpha channel of a combined texture.
func CopyRedToAlpha(pixels []color.RGBA) {
	for i := range pixels {
		pixels[i].A = pixels[i].R
	}
}

// IsUniform reports whether all pixels share one color and returns it.
func IsUniform(pixels []color.RGBA) (color.RGBA, bool) {
	if len(pixels) == 0 {
		return color.RGBA{}, false
	}
	first := pixels[0]
	for _, c := range pixels[1:] {
		if c != first {
			return color.RGBA{}, false
		}
	}
	return first, true
}

// ApplyGamma raises the color channels of linearly stored pixels to
// 1/gamma, as a display with that gamma would encode them. Alpha is left
// unchanged. Non-positive gamma is a no-op.
func ApplyGamma(pixels []color.RGBA, gamma float32) {
	if gamma <= 0 || len(pixels) == 0 {
		return
	}
	var lut [256]uint8
	for i := range lut {
		lut[i] = quantize(math32.Pow(float32(i)/255, 1/gamma) * 255)
	}
	for i := range pixels {
		p := &pixels[i]
		p.R, p.G, p.B = lut[p.R], lut[p.G], lut[p.B]
	}
}
