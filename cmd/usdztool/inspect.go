package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"

	"github.com/Faultbox/usdz-export/internal/export"
	"github.com/Faultbox/usdz-export/internal/host/memhost"
	"github.com/Faultbox/usdz-export/pkg/usd"
)

var spewConfig *spew.ConfigState

func init() {
	spewConfig = spew.NewDefaultConfig()
	spewConfig.DisableCapacities = true
	spewConfig.DisablePointerAddresses = true
}

func inspectCommand() cli.Command {
	return cli.Command{
		Name:      "inspect",
		Usage:     "show what an export of a scene description would contain",
		ArgsUsage: "<scene.yaml>",
		Flags: []cli.Flag{
			cli.BoolFlag{
				Name:  "usda",
				Usage: "print the usda document instead of tables",
			},
			cli.BoolFlag{
				Name:  "dump",
				Usage: "dump the full export records",
			},
			cli.BoolFlag{
				Name:  "animate",
				Usage: "include sampled transforms",
			},
			cli.BoolFlag{
				Name:  "no-materials",
				Usage: "skip materials",
			},
		},
		Action: runInspect,
	}
}

func runInspect(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("inspect needs exactly one scene file")
	}
	cfg, err := setup(ctx)
	if err != nil {
		return err
	}

	scene, err := memhost.LoadFile(ctx.Args().First())
	if err != nil {
		return err
	}

	tmp, err := os.MkdirTemp("", "usdztool-inspect-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)

	opts := exportOptions(cfg, "")
	opts.BakeAO = false
	stage, err := export.New(scene, nil).BuildStage(opts, tmp)
	if err != nil {
		return err
	}

	switch {
	case ctx.Bool("usda"):
		return usd.NewEncoder(os.Stdout).Encode(stage)
	case ctx.Bool("dump"):
		fmt.Print(spewConfig.Sdump(stage))
		return nil
	}

	if len(stage.Objects) == 0 {
		fmt.Println("Nothing selected")
		return nil
	}
	printObjects(os.Stdout, stage)
	printMeshes(os.Stdout, stage)
	if len(stage.Materials) > 0 {
		printMaterials(os.Stdout, stage)
	}
	return nil
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader(header)
	return table
}

func printObjects(w io.Writer, stage *usd.Stage) {
	fmt.Fprintln(w, "Objects:")
	table := newTable(w, "Object", "Prim", "Parent", "Meshes", "Joints", "Samples")
	for _, root := range stage.Objects {
		root.Walk(func(o *usd.Object, depth int) {
			prim := "Xform"
			joints := "-"
			if o.Skinned() {
				prim = "SkelRoot"
				joints = fmt.Sprintf("%d", len(o.Skeleton.Joints))
			}
			samples := len(o.TimeSamples)
			if o.Animation != nil {
				samples = len(o.Animation.Rotations)
			}
			parent := o.Parent
			if parent == "" {
				parent = "-"
			}
			table.Append([]string{
				strings.Repeat("  ", depth) + o.Name,
				prim,
				parent,
				fmt.Sprintf("%d", len(o.Meshes)),
				joints,
				fmt.Sprintf("%d", samples),
			})
		})
	}
	table.Render()
}

func printMeshes(w io.Writer, stage *usd.Stage) {
	fmt.Fprintln(w, "Meshes:")
	table := newTable(w, "Mesh", "Material", "Faces", "Points", "Normals", "UVs", "Skinned")
	var faces, points int
	for _, root := range stage.Objects {
		root.Walk(func(o *usd.Object, _ int) {
			for _, m := range o.Meshes {
				faces += m.FaceCount()
				points += len(m.Points)
				table.Append([]string{
					m.Name,
					m.Material,
					fmt.Sprintf("%d", m.FaceCount()),
					fmt.Sprintf("%d", len(m.Points)),
					fmt.Sprintf("%d", len(m.Normals)),
					fmt.Sprintf("%d", len(m.UVs)),
					fmt.Sprintf("%t", m.Weights != nil),
				})
			}
		})
	}
	table.SetFooter([]string{"", "TOTAL", fmt.Sprintf("%d", faces), fmt.Sprintf("%d", points), "", "", ""})
	table.Render()
}

func printMaterials(w io.Writer, stage *usd.Stage) {
	fmt.Fprintln(w, "Materials:")
	table := newTable(w, "Material", "Color", "Metallic", "Roughness", "Textures")
	for _, m := range stage.Materials {
		textures := strings.Join(m.Textures(), ", ")
		if textures == "" {
			textures = "-"
		}
		table.Append([]string{
			m.Name,
			usd.Tuple(m.Color[:]...),
			usd.Float(m.Metallic),
			usd.Float(m.Roughness),
			textures,
		})
	}
	table.Render()
}
