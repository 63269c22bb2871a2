package api

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/samcharles93/tagcache/pkg/cache"
)

// MapExt is the file extension of cache files in a maps directory.
const MapExt = ".map"

// EnvMapsDir is consulted when no maps directory is configured.
const EnvMapsDir = "TAGCACHE_MAPS_DIR"

var ErrMapNotFound = errors.New("map not found")

// HandleProvider gives callers exclusive use of an opened map for the
// duration of fn.
type HandleProvider interface {
	WithHandle(ctx context.Context, name string, fn func(h *cache.Handle) error) error
	ListMaps() ([]string, error)
}

type HandleProviderConfig struct {
	MapsPath string
	// Open defaults to cache.Open.
	Open func(path string) (*cache.Handle, error)
	// OnOpen is called after a map is opened for the first time.
	OnOpen func(name string, h *cache.Handle)
}

// CachedHandleProvider opens each map once and keeps it open. A Handle has a
// single cursor, so every entry carries its own mutex.
type CachedHandleProvider struct {
	cfg   HandleProviderConfig
	mu    sync.Mutex
	cache map[string]*handleEntry
}

type handleEntry struct {
	handle *cache.Handle
	mu     sync.Mutex
}

func NewCachedHandleProvider(cfg HandleProviderConfig) *CachedHandleProvider {
	if cfg.Open == nil {
		cfg.Open = cache.Open
	}
	return &CachedHandleProvider{
		cfg:   cfg,
		cache: make(map[string]*handleEntry),
	}
}

func (p *CachedHandleProvider) WithHandle(ctx context.Context, name string, fn func(h *cache.Handle) error) error {
	path, err := p.resolveMapPath(name)
	if err != nil {
		return err
	}
	entry, err := p.getOrOpen(name, path)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(entry.handle)
}

func (p *CachedHandleProvider) getOrOpen(name, path string) (*handleEntry, error) {
	p.mu.Lock()
	entry, ok := p.cache[path]
	p.mu.Unlock()
	if ok {
		return entry, nil
	}

	h, err := p.cfg.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if existing, ok := p.cache[path]; ok {
		_ = h.Close()
		return existing, nil
	}
	p.cache[path] = &handleEntry{handle: h}
	if p.cfg.OnOpen != nil {
		p.cfg.OnOpen(name, h)
	}
	return p.cache[path], nil
}

// ListMaps returns the map names (file names without extension) in the maps
// directory, sorted.
func (p *CachedHandleProvider) ListMaps() ([]string, error) {
	dir := p.mapsDir()
	if dir == "" {
		return nil, fmt.Errorf("maps-path is not configured")
	}
	paths, err := DiscoverMaps(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(paths))
	for _, path := range paths {
		names = append(names, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	}
	return names, nil
}

// Close closes every opened map, waiting for in-flight users.
func (p *CachedHandleProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	for path, entry := range p.cache {
		entry.mu.Lock()
		errs = append(errs, entry.handle.Close())
		entry.mu.Unlock()
		delete(p.cache, path)
	}
	return errors.Join(errs...)
}

// Names are looked up inside the maps directory only; anything that looks like
// a path is rejected.
func (p *CachedHandleProvider) resolveMapPath(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrMapNotFound, name)
	}
	dir := p.mapsDir()
	if dir == "" {
		return "", fmt.Errorf("maps-path is required to resolve map %q", name)
	}
	if resolved := resolveInDir(dir, name); resolved != "" {
		return resolved, nil
	}
	return "", fmt.Errorf("%w: %q in %s", ErrMapNotFound, name, dir)
}

func (p *CachedHandleProvider) mapsDir() string {
	if dir := strings.TrimSpace(p.cfg.MapsPath); dir != "" {
		return dir
	}
	return strings.TrimSpace(os.Getenv(EnvMapsDir))
}

func resolveInDir(dir, name string) string {
	if !strings.HasSuffix(strings.ToLower(name), MapExt) {
		if cand := filepath.Join(dir, name+MapExt); fileExists(cand) {
			return cand
		}
	}
	if cand := filepath.Join(dir, name); fileExists(cand) {
		return cand
	}
	return ""
}

// DiscoverMaps lists the cache files directly inside dir, sorted by path.
func DiscoverMaps(dir string) ([]string, error) {
	st, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("maps path is not a directory: %s", dir)
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	maps := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), MapExt) {
			continue
		}
		maps = append(maps, filepath.Join(dir, e.Name()))
	}
	slices.Sort(maps)
	return maps, nil
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular()
}
