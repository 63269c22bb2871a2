package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/tagcache/internal/logger"
	"github.com/samcharles93/tagcache/pkg/cache"
	"github.com/samcharles93/tagcache/pkg/definitions"
	"github.com/samcharles93/tagcache/pkg/geometry"
)

// meshData is everything needed to draw a model or bsp.
type meshData struct {
	Tag       cache.IndexEntry           `json:"tag"`
	Parts     []geometry.Part            `json:"parts"`
	Materials []definitions.MaterialSlot `json:"materials"`
	// Names maps shader index to a display name for the material.
	Names map[int16]string `json:"-"`
}

func meshCmd() *cli.Command {
	var (
		mapName string
		tag     string
		asJSON  bool
	)

	return &cli.Command{
		Name:  "mesh",
		Usage: "Extract the triangles of a render model or structure bsp",
		Flags: []cli.Flag{
			mapFlag(&mapName),
			tagFlag(&tag),
			jsonFlag(&asJSON),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := cache.ParseTagID(tag)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			h, err := openMap(ctx, mapName)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			defer func() { _ = h.Close() }()

			data, err := loadMesh(ctx, h, id)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			if asJSON {
				return printJSON(os.Stdout, data)
			}
			printMeshSummary(os.Stdout, data)
			return nil
		},
	}
}

func loadMesh(ctx context.Context, h *cache.Handle, id cache.TagID) (meshData, error) {
	entry, err := h.IndexByID(id)
	if err != nil {
		return meshData{}, err
	}
	rec, err := definitions.Decode(h, entry)
	if err != nil {
		return meshData{}, err
	}

	var (
		rawID    uint32
		sections []definitions.Section
		slots    []definitions.MaterialSlot
	)
	switch r := rec.(type) {
	case *definitions.RenderModel:
		rawID, sections, slots = r.RawID, r.Sections, definitions.ModelMaterials(h, r)
	case *definitions.StructureBSP:
		rawID, sections, slots = r.GeometryRawID, r.Sections, definitions.BSPMaterials(h, r)
	default:
		return meshData{}, fmt.Errorf("tag %s is %q, want a render model or structure bsp", id, string(entry.Class))
	}

	geom, err := geometry.Load(h, rawID)
	if err != nil {
		return meshData{}, err
	}
	parts, err := geometry.ExtractParts(geom, sections)
	if err != nil {
		return meshData{}, err
	}

	data := meshData{Tag: entry, Parts: parts, Materials: slots, Names: make(map[int16]string)}
	for _, slot := range slots {
		name := fmt.Sprintf("shader_%d", slot.ShaderIndex)
		if slot.Diffuse != nil {
			if bitm, err := h.IndexByID(slot.Diffuse.BitmapTagID); err == nil {
				name = bitm.Filename
			}
		} else if slot.Err != nil {
			logger.FromContext(ctx).Debug("no diffuse map", "shader", slot.Shader.String(), "err", slot.Err)
		}
		data.Names[int16(slot.ShaderIndex)] = name
	}
	return data, nil
}

func printMeshSummary(w io.Writer, data meshData) {
	_, _ = fmt.Fprintf(w, "%s %s %s\n\n", data.Tag.ID, data.Tag.Class, data.Tag.Filename)
	_, _ = fmt.Fprintf(w, "  %-7s %-7s %-6s %8s %9s  %s\n", "section", "submesh", "shader", "vertices", "triangles", "material")
	var verts, tris int
	for _, p := range data.Parts {
		_, _ = fmt.Fprintf(w, "  %-7d %-7d %-6d %8d %9d  %s\n",
			p.Section, p.Submesh, p.ShaderIndex, len(p.Mesh.Vertices), len(p.Mesh.Triangles), materialName(data, p.ShaderIndex))
		verts += len(p.Mesh.Vertices)
		tris += len(p.Mesh.Triangles)
	}
	_, _ = fmt.Fprintf(w, "\n%d part(s), %d vertices, %d triangles\n", len(data.Parts), verts, tris)
}

func materialName(data meshData, shader int16) string {
	if name, ok := data.Names[shader]; ok {
		return name
	}
	return fmt.Sprintf("shader_%d", shader)
}
