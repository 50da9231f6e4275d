package main

import (
	"bytes"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"

	"github.com/gogpu/bake"
	"github.com/gogpu/bake/gpu"
	"github.com/gogpu/bake/gpu/wgpu"
)

// listDevices prints the Vulkan adapters a bake can run on.
func listDevices(ctx *cli.Context) error {
	setupLogging(ctx)

	adapters, err := wgpu.ListAdapters(gputypes.BackendVulkan)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"#", "Adapter", "Type"})
	for i, a := range adapters {
		table.Append([]string{fmt.Sprint(i), a.Name, fmt.Sprint(a.Type)})
	}
	table.Render()
	fmt.Printf("\nSystem provides %d Vulkan adapter(s):\n\n%s", len(adapters), buf.String())
	return nil
}

// openDevice returns the device named by the batch. The software device is
// left to bake.New, which then owns it.
func openDevice(name string) (gpu.Device, error) {
	switch name {
	case "software":
		return nil, nil
	case "vulkan":
		d, err := wgpu.OpenVulkan()
		if err != nil {
			return nil, err
		}
		bake.Logger().Info("using GPU adapter", "name", d.Name())
		return d, nil
	}
	return nil, fmt.Errorf("unknown device %q", name)
}
