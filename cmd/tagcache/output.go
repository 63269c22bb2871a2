package main

import (
	"context"
	"io"

	"github.com/goccy/go-json"

	"github.com/samcharles93/tagcache/internal/logger"
	"github.com/samcharles93/tagcache/pkg/cache"
)

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}

// openMap resolves name against --maps-path and opens it. Callers close the
// handle.
func openMap(ctx context.Context, name string) (*cache.Handle, error) {
	path, err := resolveMapPath(name, mapsPath)
	if err != nil {
		return nil, err
	}
	h, err := cache.Open(path)
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Debug("opened map",
		"path", path,
		"build", h.Header.Build,
		"version", h.Version.String(),
		"tags", h.Index.Len(),
	)
	return h, nil
}
