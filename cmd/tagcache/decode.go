package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/tagcache/internal/logger"
	"github.com/samcharles93/tagcache/pkg/cache"
	"github.com/samcharles93/tagcache/pkg/definitions"
)

type decodeOutput struct {
	Tag        cache.IndexEntry           `json:"tag"`
	Record     definitions.Record         `json:"record"`
	Materials  []definitions.MaterialSlot `json:"materials,omitempty"`
	References []cache.TagID              `json:"references,omitempty"`
	Dangling   []cache.TagID              `json:"dangling,omitempty"`
}

func decodeCmd() *cli.Command {
	var (
		mapName   string
		tag       string
		materials bool
		refs      bool
	)

	return &cli.Command{
		Name:  "decode",
		Usage: "Decode one tag and print it as JSON",
		Flags: []cli.Flag{
			mapFlag(&mapName),
			tagFlag(&tag),
			&cli.BoolFlag{Name: "materials", Usage: "resolve diffuse maps of model and bsp shaders", Destination: &materials},
			&cli.BoolFlag{Name: "refs", Usage: "list the tags the record references", Destination: &refs},
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

			out, err := decodeTag(ctx, h, id, materials, refs)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			return printJSON(os.Stdout, out)
		},
	}
}

func decodeTag(ctx context.Context, h *cache.Handle, id cache.TagID, materials, refs bool) (decodeOutput, error) {
	log := logger.FromContext(ctx)

	entry, err := h.IndexByID(id)
	if err != nil {
		return decodeOutput{}, err
	}
	rec, err := definitions.Decode(h, entry)
	if err != nil {
		return decodeOutput{}, err
	}
	out := decodeOutput{Tag: entry, Record: rec}

	if materials {
		switch r := rec.(type) {
		case *definitions.RenderModel:
			out.Materials = definitions.ModelMaterials(h, r)
		case *definitions.StructureBSP:
			out.Materials = definitions.BSPMaterials(h, r)
		default:
			log.Warn("--materials only applies to models and bsps", "class", string(entry.Class))
		}
		for _, slot := range out.Materials {
			if slot.Err != nil {
				log.Warn("no diffuse map", "shader", slot.Shader.String(), "err", slot.Err)
			}
		}
	}
	if refs {
		set := definitions.References(rec)
		out.References = tagIDs(set.ToArray())
		out.Dangling = tagIDs(definitions.Dangling(h, set).ToArray())
	}
	return out, nil
}

func tagIDs(ids []uint32) []cache.TagID {
	out := make([]cache.TagID, len(ids))
	for i, id := range ids {
		out[i] = cache.TagID(id)
	}
	return out
}
