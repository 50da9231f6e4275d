package bake

import (
	"github.com/gogpu/bake/gpu"
	"github.com/gogpu/bake/pipeline"
)

// Option configures a Baker during creation.
// Use functional options to customize Baker behavior.
//
// Example:
//
//	// CPU rasterization with default settings
//	b, err := bake.New()
//
//	// GPU device with a shallower pipeline
//	dev, _ := wgpu.OpenVulkan()
//	b, err := bake.New(bake.WithDevice(dev), bake.WithPipelineDepth(4))
type Option func(*options)

// options holds optional configuration for Baker creation.
type options struct {
	device         gpu.Device
	pipelineDepth  int
	prepareDepth   int
	maxTextureSize int
	proxyCaching   bool
	debugDir       string
	workers        int
}

// defaultOptions returns the default baker options.
func defaultOptions() options {
	return options{
		pipelineDepth: pipeline.DefaultDepth,
		prepareDepth:  pipeline.DefaultDepth,
		proxyCaching:  true,
	}
}

// WithDevice sets the device the Baker renders with. The Baker does not
// close a device passed in this way.
//
// Without WithDevice a CPU rasterizer from gpu/software is used.
func WithDevice(d gpu.Device) Option {
	return func(o *options) {
		o.device = d
	}
}

// WithPipelineDepth sets how many submissions may be in flight and unread
// at once. Non-positive values keep the default of 16.
func WithPipelineDepth(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.pipelineDepth = n
		}
	}
}

// WithPrepareDepth sets how many jobs ahead geometry is prepared on the
// worker pool. Non-positive values keep the default of 16.
func WithPrepareDepth(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.prepareDepth = n
		}
	}
}

// WithMaxTextureSize caps the width and height of every bake. The device
// limit applies when it is smaller.
func WithMaxTextureSize(n int) Option {
	return func(o *options) {
		o.maxTextureSize = n
	}
}

// WithProxyCaching controls whether shader proxies persist across Bake
// calls. When disabled the cache is cleared after every batch.
func WithProxyCaching(enabled bool) Option {
	return func(o *options) {
		o.proxyCaching = enabled
	}
}

// WithDebugDir enables BMP dumps of every finalized property into dir.
func WithDebugDir(dir string) Option {
	return func(o *options) {
		o.debugDir = dir
	}
}

// WithWorkers sets the size of the worker pool used for shader
// compilation, geometry preparation and finalization. Zero or negative
// uses GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}
