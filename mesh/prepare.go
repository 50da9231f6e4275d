package mesh

import (
	"github.com/gogpu/bake/gpu"
)

// Items holds the geometry of one source for each target size it is baked
// at.
type Items map[Size]*gpu.Geometry

// Prepare builds geometry for every distinct non-empty size. It is safe to
// call concurrently for different sources.
func Prepare(src *Source, sizes []Size) (Items, error) {
	items := make(Items, len(sizes))
	for _, size := range sizes {
		if size.IsEmpty() {
			continue
		}
		if _, ok := items[size]; ok {
			continue
		}
		g, err := Build(src, size)
		if err != nil {
			return nil, err
		}
		items[size] = g
	}
	return items, nil
}

// VertexCount returns the total number of vertices across all sizes.
func (it Items) VertexCount() int {
	n := 0
	for _, g := range it {
		n += len(g.Vertices)
	}
	return n
}
