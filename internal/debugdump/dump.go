// Package debugdump writes intermediate bake results to disk as BMP files.
//
// Dumps are diagnostic only. Alpha is dropped so every dump is a plain 24-bit
// bitmap that any viewer opens, whatever the baked alpha policy was.
package debugdump

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/image/bmp"
)

// Dumper writes bitmaps into a directory. It is safe for concurrent use.
type Dumper struct {
	dir string

	once   sync.Once
	dirErr error
}

// New returns a Dumper writing into dir. The directory is created on the
// first Write.
func New(dir string) *Dumper {
	return &Dumper{dir: dir}
}

// Dir returns the output directory.
func (d *Dumper) Dir() string { return d.dir }

// Path returns the file a dump of (material, index, property) is written to.
func (d *Dumper) Path(material string, index int, property string) string {
	name := fmt.Sprintf("%s-%d-%s.bmp", sanitize(material), index, sanitize(property))
	return filepath.Join(d.dir, name)
}

// Write encodes a width x height buffer and writes it to Path.
func (d *Dumper) Write(material string, index int, property string, pixels []color.RGBA, width, height int) error {
	if width <= 0 || height <= 0 || len(pixels) < width*height {
		return fmt.Errorf("debugdump: %d pixels for %dx%d", len(pixels), width, height)
	}
	d.once.Do(func() {
		d.dirErr = os.MkdirAll(d.dir, 0o755)
	})
	if d.dirErr != nil {
		return fmt.Errorf("debugdump: %w", d.dirErr)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		row := img.Pix[y*img.Stride:]
		for x, p := range pixels[y*width : (y+1)*width] {
			row[x*4+0] = p.R
			row[x*4+1] = p.G
			row[x*4+2] = p.B
			row[x*4+3] = 255
		}
	}

	path := d.Path(material, index, property)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("debugdump: %w", err)
	}
	if err := bmp.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("debugdump: encode %s: %w", path, err)
	}
	return f.Close()
}

// sanitize keeps file names inside the dump directory.
func sanitize(s string) string {
	if s == "" {
		return "unnamed"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, s)
}
