package gpu

// MinPooledBufferSize is the smallest transient buffer worth recycling.
// Smaller allocations are cheap enough to make directly.
const MinPooledBufferSize = 256 * 1024

// smallestFit returns the index of the smallest size that holds want and is
// less than twice as large, or -1.
func smallestFit(n int, sizeAt func(int) uint64, want uint64) int {
	best := -1
	var bestSize uint64
	for i := range n {
		size := sizeAt(i)
		if size >= want && (best < 0 || size < bestSize) {
			best, bestSize = i, size
		}
	}
	if best >= 0 && bestSize >= want*2 {
		return -1
	}
	return best
}

// BufferPool recycles large transient buffers.
//
// Buffers above MinPooledBufferSize are kept on release and handed out
// again to any request they fit without being twice as large. BufferPool
// is not safe for concurrent use.
type BufferPool[B any] struct {
	sizeOf func(B) uint64
	free   []B
}

// NewBufferPool creates a pool that measures buffers with sizeOf.
func NewBufferPool[B any](sizeOf func(B) uint64) *BufferPool[B] {
	return &BufferPool[B]{sizeOf: sizeOf}
}

// Get returns a recycled buffer of at least size bytes.
func (p *BufferPool[B]) Get(size uint64) (B, bool) {
	var zero B
	if size <= MinPooledBufferSize {
		return zero, false
	}
	i := smallestFit(len(p.free), func(i int) uint64 { return p.sizeOf(p.free[i]) }, size)
	if i < 0 {
		return zero, false
	}
	b := p.free[i]
	last := len(p.free) - 1
	p.free[i] = p.free[last]
	p.free[last] = zero
	p.free = p.free[:last]
	return b, true
}

// Put offers b back to the pool. It reports false when b is too small to be
// pooled; the caller then owns its destruction.
func (p *BufferPool[B]) Put(b B) bool {
	if p.sizeOf(b) <= MinPooledBufferSize {
		return false
	}
	p.free = append(p.free, b)
	return true
}

// Len returns the number of pooled buffers.
func (p *BufferPool[B]) Len() int { return len(p.free) }

// Drain empties the pool and returns its buffers for destruction.
func (p *BufferPool[B]) Drain() []B {
	out := p.free
	p.free = nil
	return out
}
