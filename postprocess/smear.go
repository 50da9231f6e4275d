// Package postprocess turns raw read-back pixels into bake results: it
// converts device formats, fills texels that no triangle covered and
// encodes HDR emissive data into 8-bit pixels.
package postprocess

import (
	"image/color"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Hole is the color of texels that were never rasterized. It matches the
// clear color of bake render targets.
var Hole = color.RGBA{R: 255, G: 0, B: 255, A: 255}

// Black replaces holes that remain after a bounded smear.
var Black = color.RGBA{A: 255}

// Smear dilates covered texels into neighboring holes, in place.
//
// Every iteration replaces each hole that touches a covered texel with the
// average of its covered 3x3 neighbors. maxIterations <= 0 runs until no
// hole remains; otherwise at most maxIterations+1 passes run and holes
// left after them become opaque black. A buffer with a single covered color is filled with it
// directly and an all-hole buffer is zeroed.
func Smear(pixels []color.RGBA, width, height, maxIterations int) {
	smear(pixels, width, height, maxIterations, false)
}

// SmearAndShrink smears until no hole remains. When the result is a single
// color it is collapsed to one texel and the new buffer and size are
// returned.
func SmearAndShrink(pixels []color.RGBA, width, height int) ([]color.RGBA, int, int) {
	return smear(pixels, width, height, 0, true)
}

func smear(pixels []color.RGBA, width, height, maxIterations int, canShrink bool) ([]color.RGBA, int, int) {
	if width <= 0 || height <= 0 || len(pixels) != width*height {
		return pixels, width, height
	}

	single, ok := singleColor(pixels)
	if !ok {
		clear(pixels)
		return pixels, width, height
	}
	if single != nil {
		if canShrink {
			return []color.RGBA{*single}, 1, 1
		}
		for i := range pixels {
			pixels[i] = *single
		}
		return pixels, width, height
	}

	s := newSmearer(pixels, width, height)
	rows := s.initialRows()
	for iter := 0; len(rows) > 0 && (maxIterations <= 0 || iter <= maxIterations); iter++ {
		rows = s.step(rows)
	}

	if len(rows) > 0 {
		for i, c := range pixels {
			if c == Hole {
				pixels[i] = Black
			}
		}
	}
	return pixels, width, height
}

// singleColor scans for covered texels. It reports ok=false when there are
// none, and returns the color when exactly one distinct color is present.
func singleColor(pixels []color.RGBA) (*color.RGBA, bool) {
	var first *color.RGBA
	for i := range pixels {
		c := &pixels[i]
		if *c == Hole {
			continue
		}
		if first == nil {
			first = c
			continue
		}
		if *c != *first {
			return nil, true
		}
	}
	if first == nil {
		return nil, false
	}
	found := *first
	return &found, true
}

// smearer keeps a copy of the image padded with a one texel hole border so
// neighborhood reads need no bounds checks.
type smearer struct {
	pixels    []color.RGBA
	scratch   []color.RGBA
	width     int
	height    int
	stride    int
	completed []bool
	remaining []int
}

func newSmearer(pixels []color.RGBA, width, height int) *smearer {
	stride := width + 2
	s := &smearer{
		pixels:    pixels,
		scratch:   make([]color.RGBA, stride*(height+2)),
		width:     width,
		height:    height,
		stride:    stride,
		completed: make([]bool, height+2),
	}
	for i := range s.scratch {
		s.scratch[i] = Hole
	}
	for y := 1; y <= height; y++ {
		copy(s.scratch[y*stride+1:], pixels[(y-1)*width:y*width])
	}
	s.completed[0] = true
	s.completed[height+1] = true
	return s
}

// initialRows marks hole-free rows completed and returns the padded indices
// of rows with a hole next to a covered texel.
func (s *smearer) initialRows() []int {
	var rows []int
	for y := 1; y <= s.height; y++ {
		hasHole, borders := false, false
		for x := 1; x <= s.width; x++ {
			if s.scratch[y*s.stride+x] != Hole {
				continue
			}
			hasHole = true
			if s.bordersCovered(x, y) {
				borders = true
				break
			}
		}
		switch {
		case !hasHole:
			s.completed[y] = true
		case borders:
			rows = append(rows, y)
		}
	}
	return rows
}

func (s *smearer) bordersCovered(x, y int) bool {
	for dy := -1; dy <= 1; dy++ {
		base := (y+dy)*s.stride + x
		for dx := -1; dx <= 1; dx++ {
			if s.scratch[base+dx] != Hole {
				return true
			}
		}
	}
	return false
}

// boxSample averages the covered texels around (x, y) with integer
// division. It returns Hole when none is covered.
func (s *smearer) boxSample(x, y int) color.RGBA {
	var r, g, b, a, n int
	for dy := -1; dy <= 1; dy++ {
		base := (y+dy)*s.stride + x
		for dx := -1; dx <= 1; dx++ {
			c := s.scratch[base+dx]
			if c == Hole {
				continue
			}
			r += int(c.R)
			g += int(c.G)
			b += int(c.B)
			a += int(c.A)
			n++
		}
	}
	if n == 0 {
		return Hole
	}
	return color.RGBA{R: uint8(r / n), G: uint8(g / n), B: uint8(b / n), A: uint8(a / n)}
}

// step runs one dilation pass over rows and returns the next work list.
func (s *smearer) step(rows []int) []int {
	if cap(s.remaining) < len(rows) {
		s.remaining = make([]int, len(rows))
	}
	remaining := s.remaining[:len(rows)]

	workers := min(len(rows), runtime.GOMAXPROCS(0))
	perWorker := (len(rows) + workers - 1) / workers

	var g errgroup.Group
	for w := range workers {
		start := w * perWorker
		end := min(start+perWorker, len(rows))
		if start >= end {
			break
		}
		g.Go(func() error {
			for i := start; i < end; i++ {
				remaining[i] = s.fillRow(rows[i])
			}
			return nil
		})
	}
	_ = g.Wait()

	for i, y := range rows {
		if remaining[i] == 0 {
			s.completed[y] = true
		}
		copy(s.scratch[y*s.stride+1:], s.pixels[(y-1)*s.width:y*s.width])
	}

	next := make([]int, 0, len(rows)+2)
	prev := -1
	for i, y := range rows {
		if !s.completed[y-1] && prev < y-1 {
			prev = y - 1
			next = append(next, y-1)
		}
		if !s.completed[y] && remaining[i] > 0 && prev < y {
			prev = y
			next = append(next, y)
		}
		if !s.completed[y+1] && prev < y+1 {
			prev = y + 1
			next = append(next, y+1)
		}
	}
	return next
}

// fillRow replaces the holes of padded row y that have covered neighbors
// and returns how many holes are left in it.
func (s *smearer) fillRow(y int) int {
	left := 0
	row := s.pixels[(y-1)*s.width : y*s.width]
	for x := 1; x <= s.width; x++ {
		if row[x-1] != Hole {
			continue
		}
		if c := s.boxSample(x, y); c != Hole {
			row[x-1] = c
		} else {
			left++
		}
	}
	return left
}
