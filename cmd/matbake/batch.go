package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/gogpu/bake"
	"github.com/gogpu/bake/material"
	"github.com/gogpu/bake/mesh"
)

// Batch is the TOML description of a bake run.
//
//	output = "out"
//	device = "software"
//
//	[[material]]
//	id = "brick"
//	blend = "Opaque"
//	border_smear = true
//	inputs = { BaseColor = [0.6, 0.2, 0.1], Roughness = [0.8] }
//
//	  [[material.property]]
//	  name = "BaseColor"
//	  width = 256
//	  height = 256
type Batch struct {
	Output         string `toml:"output"`
	Device         string `toml:"device"`
	MaxTextureSize int    `toml:"max_texture_size"`
	PipelineDepth  int    `toml:"pipeline_depth"`
	Workers        int    `toml:"workers"`
	DebugDir       string `toml:"debug_dir"`

	Materials []MaterialEntry `toml:"material"`
}

// MaterialEntry is one material of a batch.
type MaterialEntry struct {
	ID               string               `toml:"id"`
	Name             string               `toml:"name"`
	Parent           string               `toml:"parent"`
	Blend            string               `toml:"blend"`
	BorderSmear      bool                 `toml:"border_smear"`
	WorldSpaceNormal bool                 `toml:"world_space_normal"`
	ShadingModel     string               `toml:"shading_model"`
	Inputs           map[string][]float32 `toml:"inputs"`
	TexCoordBox      []float32            `toml:"uv_box"`
	Properties       []PropertyEntry      `toml:"property"`
}

// PropertyEntry requests one property.
type PropertyEntry struct {
	Name   string `toml:"name"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
}

// ReadBatch decodes a batch file. Unknown keys are rejected so typos do not
// silently fall back to defaults.
func ReadBatch(r io.Reader) (*Batch, error) {
	var b Batch
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&b); err != nil {
		return nil, fmt.Errorf("batch: %w", err)
	}
	if b.Output == "" {
		b.Output = "."
	}
	if b.Device == "" {
		b.Device = "software"
	}
	return &b, nil
}

// Jobs converts the batch into bake jobs and their sources. Materials may
// name an earlier material as parent to inherit its inputs.
func (b *Batch) Jobs() ([]bake.Job, []*bake.MeshSource, error) {
	byID := make(map[string]*material.Graph, len(b.Materials))
	jobs := make([]bake.Job, 0, len(b.Materials))
	sources := make([]*bake.MeshSource, 0, len(b.Materials))

	for i, e := range b.Materials {
		if e.ID == "" {
			return nil, nil, fmt.Errorf("batch: material %d has no id", i)
		}
		if _, dup := byID[e.ID]; dup {
			return nil, nil, fmt.Errorf("batch: duplicate material id %q", e.ID)
		}
		m, err := e.material(byID)
		if err != nil {
			return nil, nil, err
		}
		byID[e.ID] = m

		blend := material.BlendOpaque
		if e.Blend != "" {
			var ok bool
			if blend, ok = material.ParseBlendMode(e.Blend); !ok {
				return nil, nil, fmt.Errorf("batch: material %q: unknown blend mode %q", e.ID, e.Blend)
			}
		}

		job := bake.Job{Material: m, BlendMode: blend, BorderSmear: e.BorderSmear}
		for _, p := range e.Properties {
			job.Properties = append(job.Properties, bake.PropertySize{
				Property: material.ParseProperty(p.Name),
				Size:     bake.Size{Width: p.Width, Height: p.Height},
			})
		}
		jobs = append(jobs, job)

		src, err := e.source()
		if err != nil {
			return nil, nil, err
		}
		sources = append(sources, src)
	}
	return jobs, sources, nil
}

func (e *MaterialEntry) material(byID map[string]*material.Graph) (*material.Graph, error) {
	name := e.Name
	if name == "" {
		name = e.ID
	}

	var m *material.Graph
	if e.Parent != "" {
		parent, ok := byID[e.Parent]
		if !ok {
			return nil, fmt.Errorf("batch: material %q: parent %q must be listed before it", e.ID, e.Parent)
		}
		m = material.NewInstance(material.ID(e.ID), name, parent)
	} else {
		sm, err := parseShadingModel(e.ShadingModel)
		if err != nil {
			return nil, fmt.Errorf("batch: material %q: %w", e.ID, err)
		}
		m = material.New(material.ID(e.ID), name).
			SetTangentSpaceNormal(!e.WorldSpaceNormal).
			SetShadingModel(sm)
	}

	for key, v := range e.Inputs {
		if len(v) == 0 || len(v) > 4 {
			return nil, fmt.Errorf("batch: material %q input %s: want 1 to 4 values, got %d", e.ID, key, len(v))
		}
		var c material.Constant
		if len(v) == 1 {
			c = material.Scalar(v[0])
		} else {
			c.V = material.Value{0, 0, 0, 1}
			copy(c.V[:], v)
		}
		m.SetInput(material.ParseProperty(key), c)
	}
	return m, nil
}

// parseShadingModel resolves a shading model name. The empty name is
// DefaultLit.
func parseShadingModel(s string) (material.ShadingModel, error) {
	if s == "" {
		return material.ShadingDefaultLit, nil
	}
	for v := range 256 {
		m := material.ShadingModelFromValue(uint8(v))
		name := material.ShadingModelName(m)
		if name == "Unknown" {
			break
		}
		if strings.EqualFold(name, s) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown shading model %q", s)
}

func (e *MaterialEntry) source() (*bake.MeshSource, error) {
	switch len(e.TexCoordBox) {
	case 0:
		return nil, nil
	case 4:
		box := e.TexCoordBox
		return &bake.MeshSource{TexCoordBox: mesh.Box{
			Min: [2]float32{box[0], box[1]},
			Max: [2]float32{box[2], box[3]},
		}}, nil
	}
	return nil, fmt.Errorf("batch: material %q: uv_box needs 4 values", e.ID)
}

// fileName returns the PNG name of a baked property.
func fileName(materialName string, p material.Property) string {
	name := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ' ' {
			return '_'
		}
		return r
	}, materialName)
	return fmt.Sprintf("%s_%s.png", name, p)
}
