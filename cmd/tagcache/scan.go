package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/samcharles93/tagcache/internal/logger"
	"github.com/samcharles93/tagcache/pkg/cache"
	"github.com/samcharles93/tagcache/pkg/definitions"
	"github.com/samcharles93/tagcache/pkg/geometry"
)

type scanOptions struct {
	Geometry bool
	Class    cache.ClassCode
}

// scanResult is the outcome of decoding every supported tag of one map.
type scanResult struct {
	Path     string                  `json:"path"`
	Version  cache.Version           `json:"version"`
	Decoded  int                     `json:"decoded"`
	Skipped  int                     `json:"skipped"`
	Failures map[cache.TagID]string  `json:"failures,omitempty"`
	ByClass  map[cache.ClassCode]int `json:"by_class"`
	Elapsed  time.Duration           `json:"elapsed_ns"`
	Error    string                  `json:"error,omitempty"`

	failed *roaring.Bitmap
}

func (r scanResult) FailedCount() int {
	if r.failed == nil {
		return 0
	}
	return int(r.failed.GetCardinality())
}

func scanCmd() *cli.Command {
	var (
		jobs     int64
		class    string
		withGeom bool
		strict   bool
		asJSON   bool
	)

	return &cli.Command{
		Name:      "scan",
		Usage:     "Decode every supported tag of one or more maps and report failures",
		ArgsUsage: "[map or directory ...]",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:        "jobs",
				Aliases:     []string{"j"},
				Usage:       "maps decoded in parallel",
				Value:       int64(runtime.GOMAXPROCS(0)),
				Destination: &jobs,
			},
			&cli.StringFlag{Name: "class", Usage: "only decode tags of this class", Destination: &class},
			&cli.BoolFlag{Name: "geometry", Usage: "also extract triangles of models and bsps", Destination: &withGeom},
			&cli.BoolFlag{Name: "strict", Usage: "exit non-zero when any tag fails", Destination: &strict},
			jsonFlag(&asJSON),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyScanConfig(cmd, loadedConfig, &jobs)
			if jobs < 1 {
				return cli.Exit("error: --jobs must be at least 1", 1)
			}

			paths, err := resolveScanTargets(cmd.Args().Slice(), mapsPath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if len(paths) == 0 {
				log.Info("no maps found")
				return nil
			}

			start := time.Now()
			opts := scanOptions{Geometry: withGeom, Class: cache.ClassCode(class)}
			results, err := scanMaps(ctx, paths, int(jobs), opts)
			if err != nil {
				return err
			}

			var decoded, failed int
			for _, r := range results {
				decoded += r.Decoded
				failed += r.FailedCount()
				if r.Error != "" {
					failed++
				}
			}
			log.Info("scan finished", "maps", len(results), "decoded", decoded, "failed", failed, "elapsed", time.Since(start))

			if asJSON {
				if err := printJSON(os.Stdout, results); err != nil {
					return err
				}
			} else {
				printScanResults(os.Stdout, results)
			}
			if strict && failed > 0 {
				return cli.Exit(fmt.Sprintf("%d failure(s)", failed), 1)
			}
			return nil
		},
	}
}

// scanMaps decodes each map on its own handle, at most jobs at a time.
// Results keep the order of paths.
func scanMaps(ctx context.Context, paths []string, jobs int, opts scanOptions) ([]scanResult, error) {
	results := make([]scanResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, path := range paths {
		g.Go(func() error {
			r, err := scanMap(gctx, path, opts)
			results[i] = r
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// scanMap only returns an error when ctx is done. Open failures and decode
// failures are recorded on the result.
func scanMap(ctx context.Context, path string, opts scanOptions) (scanResult, error) {
	log := logger.FromContext(ctx).With("map", path)
	start := time.Now()
	res := scanResult{
		Path:    path,
		ByClass: make(map[cache.ClassCode]int),
		failed:  roaring.New(),
	}

	h, err := cache.Open(path)
	if err != nil {
		log.Warn("open failed", "err", err)
		res.Error = err.Error()
		return res, nil
	}
	defer func() { _ = h.Close() }()
	res.Version = h.Version

	fail := func(e cache.IndexEntry, err error) {
		res.failed.Add(uint32(e.ID))
		if res.Failures == nil {
			res.Failures = make(map[cache.TagID]string)
		}
		res.Failures[e.ID] = err.Error()
		log.Debug("tag failed", "tag", e.ID.String(), "class", string(e.Class), "err", err)
	}

	for _, e := range h.Index.Entries() {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if opts.Class != "" && e.Class != opts.Class {
			continue
		}
		if !definitions.Default.Supports(e.Class, h.Version) {
			res.Skipped++
			continue
		}
		rec, err := definitions.Decode(h, e)
		if err != nil {
			fail(e, err)
			continue
		}
		if opts.Geometry {
			if err := extractGeometry(h, rec); err != nil {
				fail(e, err)
				continue
			}
		}
		res.Decoded++
		res.ByClass[e.Class]++
	}

	res.Elapsed = time.Since(start)
	if n := res.FailedCount(); n > 0 {
		log.Warn("tags failed to decode", "failed", n, "decoded", res.Decoded)
	}
	return res, nil
}

func extractGeometry(h *cache.Handle, rec definitions.Record) error {
	var (
		rawID    uint32
		sections []definitions.Section
	)
	switch r := rec.(type) {
	case *definitions.RenderModel:
		rawID, sections = r.RawID, r.Sections
	case *definitions.StructureBSP:
		rawID, sections = r.GeometryRawID, r.Sections
	default:
		return nil
	}
	geom, err := geometry.Load(h, rawID)
	if err != nil {
		return err
	}
	_, err = geometry.ExtractParts(geom, sections)
	return err
}

func printScanResults(w io.Writer, results []scanResult) {
	for _, r := range results {
		if r.Error != "" {
			_, _ = fmt.Fprintf(w, "%s: %s\n", r.Path, r.Error)
			continue
		}
		_, _ = fmt.Fprintf(w, "%s (%s): %d decoded, %d failed, %d skipped in %s\n",
			r.Path, r.Version, r.Decoded, r.FailedCount(), r.Skipped, r.Elapsed.Round(time.Millisecond))
		if r.failed == nil {
			continue
		}
		for _, id := range r.failed.ToArray() {
			_, _ = fmt.Fprintf(w, "  %s: %s\n", cache.TagID(id), r.Failures[cache.TagID(id)])
		}
	}
}
