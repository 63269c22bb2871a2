package main

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/tagcache/pkg/cache"
	"github.com/samcharles93/tagcache/pkg/definitions"
)

type mapInfo struct {
	Path      string                  `json:"path"`
	Size      int64                   `json:"size"`
	Build     string                  `json:"build"`
	Version   cache.Version           `json:"version"`
	ByteOrder string                  `json:"byte_order"`
	Magic     int32                   `json:"magic"`
	Tags      int                     `json:"tags"`
	Strings   int                     `json:"strings"`
	Resources int                     `json:"resources"`
	Classes   map[cache.ClassCode]int `json:"classes"`

	TagList      []cache.IndexEntry    `json:"tag_list,omitempty"`
	StringList   []cache.StringEntry   `json:"string_list,omitempty"`
	ResourceList []cache.ResourceEntry `json:"resource_list,omitempty"`
}

func inspectCmd() *cli.Command {
	var (
		mapName       string
		class         string
		showTags      bool
		showStrings   bool
		showResources bool
		asJSON        bool
	)

	return &cli.Command{
		Name:  "inspect",
		Usage: "Show the header and tables of a map",
		Flags: []cli.Flag{
			mapFlag(&mapName),
			&cli.BoolFlag{Name: "tags", Usage: "list index entries", Destination: &showTags},
			&cli.StringFlag{Name: "class", Usage: "only list tags of this class (implies --tags)", Destination: &class},
			&cli.BoolFlag{Name: "strings", Usage: "list the string table", Destination: &showStrings},
			&cli.BoolFlag{Name: "resources", Usage: "list raw resources", Destination: &showResources},
			jsonFlag(&asJSON),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			h, err := openMap(ctx, mapName)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			defer func() { _ = h.Close() }()

			info := describeMap(h)
			if showTags || class != "" {
				if class != "" {
					info.TagList = h.Index.ByClass(cache.ClassCode(class))
				} else {
					info.TagList = h.Index.Entries()
				}
			}
			if showStrings {
				info.StringList = h.Strings.Entries()
			}
			if showResources {
				info.ResourceList = h.Resources()
			}

			if asJSON {
				return printJSON(os.Stdout, info)
			}
			printMapInfo(os.Stdout, info)
			return nil
		},
	}
}

func describeMap(h *cache.Handle) mapInfo {
	info := mapInfo{
		Path:      h.Path,
		Size:      h.Reader().Len(),
		Build:     h.Header.Build,
		Version:   h.Version,
		ByteOrder: h.Reader().Order().String(),
		Magic:     h.Magic,
		Tags:      h.Index.Len(),
		Strings:   h.Strings.Len(),
		Resources: len(h.Resources()),
		Classes:   make(map[cache.ClassCode]int),
	}
	for _, e := range h.Index.Entries() {
		info.Classes[e.Class]++
	}
	return info
}

func printMapInfo(w io.Writer, info mapInfo) {
	_, _ = fmt.Fprintf(w, "Map:        %s (%s)\n", info.Path, formatSize(info.Size))
	_, _ = fmt.Fprintf(w, "Build:      %s\n", info.Build)
	_, _ = fmt.Fprintf(w, "Version:    %s\n", info.Version)
	_, _ = fmt.Fprintf(w, "Byte order: %s\n", info.ByteOrder)
	_, _ = fmt.Fprintf(w, "Magic:      0x%08X\n", uint32(info.Magic))
	_, _ = fmt.Fprintf(w, "Tags:       %d\n", info.Tags)
	_, _ = fmt.Fprintf(w, "Strings:    %d\n", info.Strings)
	_, _ = fmt.Fprintf(w, "Resources:  %d\n", info.Resources)

	classes := make([]cache.ClassCode, 0, len(info.Classes))
	for c := range info.Classes {
		classes = append(classes, c)
	}
	slices.SortFunc(classes, func(a, b cache.ClassCode) int {
		return cmp.Or(cmp.Compare(info.Classes[b], info.Classes[a]), cmp.Compare(a, b))
	})
	_, _ = fmt.Fprintf(w, "\nClasses:\n")
	for _, c := range classes {
		mark := ""
		if definitions.Default.Supports(c, info.Version) {
			mark = "  decodable"
		}
		_, _ = fmt.Fprintf(w, "  %-4s %6d%s\n", c, info.Classes[c], mark)
	}

	if len(info.TagList) > 0 {
		_, _ = fmt.Fprintf(w, "\nTags:\n")
		for _, e := range info.TagList {
			_, _ = fmt.Fprintf(w, "  %s  %-4s  0x%08X  %s\n", e.ID, e.Class, e.Offset, e.Filename)
		}
	}
	if len(info.StringList) > 0 {
		_, _ = fmt.Fprintf(w, "\nStrings:\n")
		for _, s := range info.StringList {
			_, _ = fmt.Fprintf(w, "  0x%06X  %s\n", s.ID, s.Text)
		}
	}
	if len(info.ResourceList) > 0 {
		_, _ = fmt.Fprintf(w, "\nResources:\n")
		for _, r := range info.ResourceList {
			_, _ = fmt.Fprintf(w, "  0x%08X  %-5s %10d -> %-10d at 0x%08X\n", r.RawID, r.Codec, r.StoredSize, r.RawSize, r.Offset)
		}
	}
}
