package cache

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Version selects the field layouts used to decode a file's tags.
// Versions are ordered by release, so ranges compare with < and >.
type Version int

const (
	VersionUnknown Version = iota
	Halo3Retail
	Halo3ODST
	HaloReachRetail
	Halo4Retail
)

var versionNames = map[Version]string{
	VersionUnknown:  "unknown",
	Halo3Retail:     "halo3_retail",
	Halo3ODST:       "halo3_odst",
	HaloReachRetail: "halo_reach_retail",
	Halo4Retail:     "halo4_retail",
}

func (v Version) String() string {
	if s, ok := versionNames[v]; ok {
		return s
	}
	return fmt.Sprintf("version(%d)", int(v))
}

func ParseVersion(s string) (Version, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for v, name := range versionNames {
		if v != VersionUnknown && name == s {
			return v, nil
		}
	}
	return VersionUnknown, fmt.Errorf("unknown version %q", s)
}

// MarshalYAML and UnmarshalYAML use the snake_case names.
func (v Version) MarshalYAML() (any, error) {
	return v.String(), nil
}

func (v *Version) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParseVersion(node.Value)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// MarshalText lets records and API payloads render versions by name.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

type buildTable struct {
	Builds []BuildEntry `yaml:"builds"`
}

// BuildEntry maps a header build string to a Version.
type BuildEntry struct {
	Build   string  `yaml:"build"`
	Version Version `yaml:"version"`
}

//go:embed builds.yaml
var defaultBuilds []byte

var (
	buildsMu sync.RWMutex
	builds   map[string]Version
)

func init() {
	entries, err := ParseBuilds(defaultBuilds)
	if err != nil {
		panic(fmt.Sprintf("cache: embedded build table: %v", err))
	}
	builds = make(map[string]Version, len(entries))
	for _, e := range entries {
		builds[e.Build] = e.Version
	}
}

// ParseBuilds decodes a YAML build table.
func ParseBuilds(raw []byte) ([]BuildEntry, error) {
	var t buildTable
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("parse build table: %w", err)
	}
	for i, e := range t.Builds {
		if strings.TrimSpace(e.Build) == "" {
			return nil, fmt.Errorf("parse build table: entry %d has no build", i)
		}
	}
	return t.Builds, nil
}

// RegisterBuilds adds or replaces build mappings for subsequent opens.
func RegisterBuilds(entries ...BuildEntry) {
	buildsMu.Lock()
	defer buildsMu.Unlock()
	for _, e := range entries {
		builds[strings.TrimSpace(e.Build)] = e.Version
	}
}

// VersionForBuild looks up the Version for a header build string.
func VersionForBuild(build string) (Version, bool) {
	buildsMu.RLock()
	defer buildsMu.RUnlock()
	v, ok := builds[strings.TrimSpace(build)]
	return v, ok
}
