package postprocess

import (
	"encoding/binary"
	"image/color"
	"runtime"

	"github.com/chewxy/math32"
	"github.com/x448/float16"
	"golang.org/x/sync/errgroup"
)

// MinEmissive is the brightest channel value below which an emissive bake
// is treated as black.
const MinEmissive = 0.01

// halfPixelSize is the size of an RGBA16Float texel.
const halfPixelSize = 8

var (
	halfOne  = float16.Fromfloat32(1)
	halfZero = float16.Fromfloat32(0)
)

// halfPixel reads the RGBA16Float texel at offset.
func halfPixel(data []byte, offset int) [4]float16.Float16 {
	return [4]float16.Float16{
		float16.Frombits(binary.LittleEndian.Uint16(data[offset:])),
		float16.Frombits(binary.LittleEndian.Uint16(data[offset+2:])),
		float16.Frombits(binary.LittleEndian.Uint16(data[offset+4:])),
		float16.Frombits(binary.LittleEndian.Uint16(data[offset+6:])),
	}
}

// isHalfHole reports whether a texel holds the magenta clear color.
func isHalfHole(p [4]float16.Float16) bool {
	return p[0] == halfOne && p[1] == halfZero && p[2] == halfOne && p[3] == halfOne
}

// EncodeEmissive quantizes an RGBA16Float image into 8-bit texels relative
// to its brightest channel.
//
// The returned scale is that brightest value: a consumer reconstructs the
// original range as texel/255*scale. Holes are written as Hole. Images whose
// brightest channel is at most MinEmissive encode as black with scale 1.
func EncodeEmissive(data []byte, bytesPerRow, width, height int) ([]color.RGBA, float32) {
	out := make([]color.RGBA, width*height)
	if width <= 0 || height <= 0 {
		return out, 1
	}

	globalMax := maxEmissive(data, bytesPerRow, width, height)

	scale := float32(0)
	if globalMax > MinEmissive {
		scale = 255 / globalMax
	}

	forRows(height, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			src := y * bytesPerRow
			dst := out[y*width : (y+1)*width]
			for x := range dst {
				p := halfPixel(data, src+x*halfPixelSize)
				if isHalfHole(p) {
					dst[x] = Hole
					continue
				}
				dst[x] = color.RGBA{
					R: quantize(p[0].Float32() * scale),
					G: quantize(p[1].Float32() * scale),
					B: quantize(p[2].Float32() * scale),
					A: 255,
				}
			}
		}
	})

	if scale == 0 {
		return out, 1
	}
	return out, globalMax
}

// maxEmissive returns the largest color channel of all covered texels.
func maxEmissive(data []byte, bytesPerRow, width, height int) float32 {
	workers := min(height, runtime.GOMAXPROCS(0))
	partial := make([]float32, workers)
	rowsPer := (height + workers - 1) / workers

	var g errgroup.Group
	for w := range workers {
		y0 := w * rowsPer
		y1 := min(y0+rowsPer, height)
		if y0 >= y1 {
			break
		}
		g.Go(func() error {
			m := float32(0)
			for y := y0; y < y1; y++ {
				src := y * bytesPerRow
				for x := range width {
					p := halfPixel(data, src+x*halfPixelSize)
					if isHalfHole(p) {
						continue
					}
					m = math32.Max(m, math32.Max(p[0].Float32(), math32.Max(p[1].Float32(), p[2].Float32())))
				}
			}
			partial[w] = m
			return nil
		})
	}
	_ = g.Wait()

	globalMax := float32(0)
	for _, m := range partial {
		globalMax = math32.Max(globalMax, m)
	}
	return globalMax
}

// quantize rounds half away from zero and clamps to a byte.
func quantize(v float32) uint8 {
	if math32.IsNaN(v) || v <= 0 {
		return 0
	}
	r := math32.Floor(v + 0.5)
	if r >= 255 {
		return 255
	}
	return uint8(r)
}

// forRows splits [0, height) into contiguous bands processed concurrently.
func forRows(height int, fn func(y0, y1 int)) {
	workers := max(min(height, runtime.GOMAXPROCS(0)), 1)
	rowsPer := (height + workers - 1) / workers

	var g errgroup.Group
	for w := range workers {
		y0 := w * rowsPer
		y1 := min(y0+rowsPer, height)
		if y0 >= y1 {
			break
		}
		g.Go(func() error {
			fn(y0, y1)
			return nil
		})
	}
	_ = g.Wait()
}

// DecodeEmissive reverses EncodeEmissive for one channel value.
func DecodeEmissive(v uint8, scale float32) float32 {
	return float32(v) / 255 * scale
}
