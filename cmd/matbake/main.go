// Command matbake bakes the materials of a TOML batch file into PNG
// textures.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "matbake"
	app.Usage = "bake material properties into textures"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable debug logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "bake",
			Usage: "bake every material of a batch file",
			Description: `
Read a TOML batch file describing materials and the properties to bake,
render each property and write it as <output>/<material>_<property>.png.

Properties that reduce to a single color are written as 1x1 images. A
summary table lists the size, constant value and emissive scale of every
result.`,
			ArgsUsage: "batch.toml",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "out, o",
					Usage: "output directory, overrides the batch file",
				},
				cli.StringFlag{
					Name:  "device, d",
					Usage: "software or vulkan, overrides the batch file",
				},
				cli.BoolFlag{
					Name:  "no-cache",
					Usage: "disable shader proxy caching",
				},
			},
			Action: bakeBatch,
		},
		{
			Name:   "list-devices",
			Usage:  "list available Vulkan adapters",
			Action: listDevices,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "matbake: %v\n", err)
		os.Exit(1)
	}
}
