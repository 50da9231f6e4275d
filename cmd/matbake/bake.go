package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"

	"github.com/gogpu/bake"
)

// bakeBatch runs the bake command.
func bakeBatch(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 1 {
		return errors.New("bake: expected exactly one batch file")
	}
	f, err := os.Open(ctx.Args().First())
	if err != nil {
		return err
	}
	batch, err := ReadBatch(f)
	f.Close()
	if err != nil {
		return err
	}
	if out := ctx.String("out"); out != "" {
		batch.Output = out
	}
	if dev := ctx.String("device"); dev != "" {
		batch.Device = dev
	}

	jobs, sources, err := batch.Jobs()
	if err != nil {
		return err
	}

	dev, err := openDevice(batch.Device)
	if err != nil {
		return err
	}
	opts := []bake.Option{
		bake.WithMaxTextureSize(batch.MaxTextureSize),
		bake.WithProxyCaching(!ctx.Bool("no-cache")),
		bake.WithDebugDir(batch.DebugDir),
		bake.WithWorkers(batch.Workers),
	}
	if batch.PipelineDepth > 0 {
		opts = append(opts, bake.WithPipelineDepth(batch.PipelineDepth))
	}
	if dev != nil {
		opts = append(opts, bake.WithDevice(dev))
		defer dev.Close()
	}

	b, err := bake.New(opts...)
	if err != nil {
		return err
	}
	defer b.Close()

	outputs, err := b.Bake(context.Background(), jobs, sources)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(batch.Output, 0o755); err != nil {
		return err
	}
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Material", "Property", "Size", "Constant", "Emissive scale", "File"})

	written := 0
	for i, out := range outputs {
		name := jobs[i].Material.Name()
		for _, p := range out.Properties {
			if len(p.Pixels) == 0 {
				table.Append([]string{name, p.Property.String(), "-", "-", "-", "skipped"})
				continue
			}
			file := filepath.Join(batch.Output, fileName(name, p.Property))
			if err := writePNG(file, p); err != nil {
				return err
			}
			written++

			constant := "-"
			if p.IsConstant {
				c := p.ConstantValue
				constant = fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
			}
			table.Append([]string{
				name,
				p.Property.String(),
				fmt.Sprintf("%dx%d", p.Size.Width, p.Size.Height),
				constant,
				fmt.Sprintf("%.3g", p.EmissiveScale),
				file,
			})
		}
	}
	st := b.Stats()
	table.SetFooter([]string{"", "", "", "", "written", fmt.Sprint(written)})
	table.Render()
	fmt.Print(buf.String())
	fmt.Printf("%d submissions, %d max in flight, %d shader proxies (%d hits, %d misses)\n",
		st.Submissions, st.MaxInFlight, st.Shaders.Proxies, st.Shaders.Hits, st.Shaders.Misses)
	return nil
}

// writePNG encodes a baked property. Constant properties are written as a
// single texel.
func writePNG(path string, p bake.PropertyOutput) error {
	w, h, pixels := p.Size.Width, p.Size.Height, p.Pixels
	if p.IsConstant {
		w, h, pixels = 1, 1, pixels[:1]
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i, c := range pixels {
		o := i * 4
		img.Pix[o+0] = c.R
		img.Pix[o+1] = c.G
		img.Pix[o+2] = c.B
		img.Pix[o+3] = c.A
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
