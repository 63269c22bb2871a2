package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/tagcache/pkg/cache"
	"github.com/samcharles93/tagcache/pkg/meta"
)

func metaCmd() *cli.Command {
	var (
		mapName    string
		tag        string
		pluginPath string
		pluginsDir string
		asJSON     bool
	)

	return &cli.Command{
		Name:  "meta",
		Usage: "Read a tag's fields with an XML plugin",
		Flags: []cli.Flag{
			mapFlag(&mapName),
			tagFlag(&tag),
			&cli.StringFlag{Name: "plugin", Usage: "plugin file", Destination: &pluginPath},
			&cli.StringFlag{Name: "plugins-dir", Usage: "directory of <class>.xml plugins", Destination: &pluginsDir},
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

			entry, err := h.IndexByID(id)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			path, err := resolvePlugin(pluginPath, pluginsDir, entry.Class)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			plugin, err := meta.LoadPlugin(path)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			values, err := meta.Read(h, entry, plugin)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			if asJSON {
				return printJSON(os.Stdout, values)
			}
			_, _ = fmt.Fprintf(os.Stdout, "%s %s %s\n", entry.ID, entry.Class, entry.Filename)
			printValues(os.Stdout, values, 1)
			return nil
		},
	}
}

// resolvePlugin prefers an explicit file, then <dir>/<class>.xml.
func resolvePlugin(file, dir string, class cache.ClassCode) (string, error) {
	if file != "" {
		return file, nil
	}
	if dir == "" {
		return "", fmt.Errorf("--plugin or --plugins-dir is required")
	}
	// Class codes may contain characters that are awkward in file names.
	name := strings.NewReplacer("<", "_", ">", "_", "*", "_", "?", "_").Replace(string(class))
	path := filepath.Join(dir, name+".xml")
	if !fileExists(path) {
		return "", fmt.Errorf("no plugin for class %q in %s", string(class), dir)
	}
	return path, nil
}

func printValues(w io.Writer, values []meta.Value, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, v := range values {
		if v.Kind == meta.KindReflexive {
			_, _ = fmt.Fprintf(w, "%s%s [%d]\n", indent, v.Name, len(v.Entries))
			for i, entry := range v.Entries {
				_, _ = fmt.Fprintf(w, "%s  #%d\n", indent, i)
				printValues(w, entry, depth+2)
			}
			continue
		}
		_, _ = fmt.Fprintf(w, "%s%s = %s\n", indent, v.Name, formatValue(v.Value))
	}
}

func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return fmt.Sprintf("%q", x)
	case meta.TagRef:
		if x.ID.IsNull() {
			return "null"
		}
		return fmt.Sprintf("%s %s %s", x.Class, x.ID, x.Filename)
	default:
		return fmt.Sprint(x)
	}
}
