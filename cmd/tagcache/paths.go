package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samcharles93/tagcache/internal/api"
)

const envMapsDir = api.EnvMapsDir

func resolveMapsDir(flagValue string) string {
	if dir := strings.TrimSpace(flagValue); dir != "" {
		return dir
	}
	return strings.TrimSpace(os.Getenv(envMapsDir))
}

// resolveMapPath accepts a path to a map file, or a name (with or without
// .map) looked up in the maps directory.
func resolveMapPath(name, mapsDir string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("--map is required")
	}
	if strings.ContainsRune(name, filepath.Separator) || fileExists(name) {
		return filepath.Clean(name), nil
	}
	dir := resolveMapsDir(mapsDir)
	if dir == "" {
		return "", fmt.Errorf("map %q is not a file and neither --maps-path nor %s is set", name, envMapsDir)
	}
	for _, cand := range []string{name + api.MapExt, name} {
		p := filepath.Join(dir, cand)
		if fileExists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("map %q not found in %s", name, dir)
}

// resolveScanTargets expands args (files or directories) into map files.
// Without args the maps directory is scanned.
func resolveScanTargets(args []string, mapsDir string) ([]string, error) {
	if len(args) == 0 {
		dir := resolveMapsDir(mapsDir)
		if dir == "" {
			return nil, fmt.Errorf("no maps given and neither --maps-path nor %s is set", envMapsDir)
		}
		args = []string{dir}
	}
	var out []string
	for _, arg := range args {
		st, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !st.IsDir() {
			out = append(out, filepath.Clean(arg))
			continue
		}
		maps, err := api.DiscoverMaps(arg)
		if err != nil {
			return nil, err
		}
		out = append(out, maps...)
	}
	return out, nil
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular()
}

func formatSize(bytes int64) string {
	const (
		kb = 1024
		mb = 1024 * kb
		gb = 1024 * mb
	)
	switch {
	case bytes >= gb:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(gb))
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
