package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// AdapterInfo describes a GPU adapter.
type AdapterInfo struct {
	Name string
	Type gputypes.DeviceType
}

// ListAdapters returns the adapters exposed by a hal backend.
func ListAdapters(backend gputypes.Backend) ([]AdapterInfo, error) {
	instance, err := createInstance(backend)
	if err != nil {
		return nil, err
	}
	defer instance.Destroy()

	adapters := instance.EnumerateAdapters(nil)
	out := make([]AdapterInfo, 0, len(adapters))
	for i := range adapters {
		out = append(out, AdapterInfo{Name: adapters[i].Info.Name, Type: adapters[i].Info.DeviceType})
	}
	return out, nil
}

// Open creates a device on the preferred adapter of a hal backend. Discrete
// and integrated GPUs are preferred over software adapters. The returned
// Device owns the hal instance and device.
func Open(backend gputypes.Backend, opts ...Option) (*Device, error) {
	instance, err := createInstance(backend)
	if err != nil {
		return nil, err
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("wgpu: no GPU adapters found")
	}
	selected := &adapters[0]
	for i := range adapters {
		t := adapters[i].Info.DeviceType
		if t == gputypes.DeviceTypeDiscreteGPU || t == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}

	open, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("wgpu: open device: %w", err)
	}

	d, err := NewFromHal(open.Device, open.Queue, append([]Option{WithName(selected.Info.Name)}, opts...)...)
	if err != nil {
		open.Device.Destroy()
		instance.Destroy()
		return nil, err
	}
	d.instance = instance
	d.owned = true
	return d, nil
}

// OpenVulkan opens the preferred Vulkan adapter.
func OpenVulkan(opts ...Option) (*Device, error) {
	return Open(gputypes.BackendVulkan, opts...)
}

func createInstance(backend gputypes.Backend) (hal.Instance, error) {
	b, ok := hal.GetBackend(backend)
	if !ok {
		return nil, fmt.Errorf("wgpu: backend %v not available", backend)
	}
	instance, err := b.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create instance: %w", err)
	}
	return instance, nil
}
