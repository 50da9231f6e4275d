// Package shader synthesizes and caches the programs that render a single
// material property.
//
// A proxy is created per (material, property, blend mode). Its WGSL module
// writes the property value as the fragment color; its CPU evaluator does
// the same for devices that rasterize in software. Compilation runs on a
// worker pool so it overlaps geometry preparation.
package shader

import (
	"sync"
	"sync/atomic"

	"github.com/gogpu/bake/gpu"
	"github.com/gogpu/bake/internal/cache"
	"github.com/gogpu/bake/internal/parallel"
	"github.com/gogpu/bake/material"
)

// DefaultModuleCacheSize bounds the number of distinct compiled modules
// kept for reuse across proxies.
const DefaultModuleCacheSize = 512

// Cache owns shader proxies.
//
// GetOrCreate is safe for concurrent use. Invalidate and Clear destroy
// device programs and must run on the render goroutine while no draw that
// uses the affected proxies is pending.
type Cache struct {
	device gpu.Device
	pool   *parallel.WorkerPool

	mu      sync.Mutex
	entries map[Key]*Proxy

	// modules deduplicates compilation of identical sources.
	modules *cache.Cache[uint64, *gpu.CompiledShader]

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewCache creates a cache that compiles with dev on pool.
func NewCache(dev gpu.Device, pool *parallel.WorkerPool) *Cache {
	return &Cache{
		device:  dev,
		pool:    pool,
		entries: make(map[Key]*Proxy),
		modules: cache.New[uint64, *gpu.CompiledShader](DefaultModuleCacheSize),
	}
}

// GetOrCreate returns the proxy for (m, p, b). A new proxy starts compiling
// in the background immediately.
func (c *Cache) GetOrCreate(m material.Material, p material.Property, b material.BlendMode) *Proxy {
	key := Key{Material: m.ID(), Property: p.Key(), Blend: b}

	c.mu.Lock()
	if proxy, ok := c.entries[key]; ok {
		c.mu.Unlock()
		c.hits.Add(1)
		return proxy
	}
	proxy := newProxy(m, p, b)
	proxy.compiled = parallel.Async(c.pool, func() compileResult {
		return c.compile(proxy)
	})
	c.entries[key] = proxy
	c.mu.Unlock()

	c.misses.Add(1)
	logger().Debug("shader proxy created", "label", proxy.label)
	return proxy
}

func (c *Cache) compile(p *Proxy) compileResult {
	hash := cache.StringHash(p.wgsl)
	if mod, ok := c.modules.Get(hash); ok && mod.WGSL == p.wgsl {
		return compileResult{shader: mod}
	}
	mod, err := c.device.CompileShader(gpu.ShaderSource{Label: p.label, WGSL: p.wgsl})
	if err != nil {
		logger().Warn("shader compile failed", "label", p.label, "err", err)
		return compileResult{err: err}
	}
	c.modules.Set(hash, mod)
	return compileResult{shader: mod}
}

// FinishCompilation blocks until every proxy has compiled.
func (c *Cache) FinishCompilation() {
	c.mu.Lock()
	proxies := make([]*Proxy, 0, len(c.entries))
	for _, p := range c.entries {
		proxies = append(proxies, p)
	}
	c.mu.Unlock()

	for _, p := range proxies {
		_ = p.FinishCompilation()
	}
}

// Invalidate destroys every proxy whose material, or any material in its
// parent chain, has the given ID. It returns the number of proxies removed.
func (c *Cache) Invalidate(id material.ID) int {
	c.mu.Lock()
	var removed []*Proxy
	for k, p := range c.entries {
		if material.DependsOn(p.material, id) {
			removed = append(removed, p)
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()

	for _, p := range removed {
		p.release(c.device)
	}
	if len(removed) > 0 {
		logger().Debug("shader proxies invalidated", "material", id, "count", len(removed))
	}
	return len(removed)
}

// Clear destroys every proxy.
func (c *Cache) Clear() {
	c.mu.Lock()
	entries := c.entries
	c.entries = make(map[Key]*Proxy)
	c.mu.Unlock()

	for _, p := range entries {
		p.release(c.device)
	}
	c.modules.Clear()
}

// Len returns the number of cached proxies.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats holds proxy lookup counters.
type Stats struct {
	Proxies int
	Hits    uint64
	Misses  uint64

	// ModuleHits counts compilations served from identical sources.
	ModuleHits uint64
	Modules    int
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	mods := c.modules.Stats()
	return Stats{
		Proxies:    c.Len(),
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
		ModuleHits: mods.Hits,
		Modules:    mods.Len,
	}
}
