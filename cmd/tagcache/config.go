package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the tagcache configuration file (~/.config/tagcache/config.yaml).
type Config struct {
	MapsDir       string `yaml:"maps_dir"`
	LogLevel      string `yaml:"log_level"`
	LogFormat     string `yaml:"log_format"`
	ServerAddress string `yaml:"server_address"`
	Jobs          *int   `yaml:"jobs"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "tagcache", "config.yaml")
}

// LoadConfig reads the config file at path. A missing file gives a zero
// Config; a malformed one is an error.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	if cfg.Jobs != nil && *cfg.Jobs < 1 {
		return Config{}, fmt.Errorf("config %s: jobs must be at least 1", path)
	}
	return cfg, nil
}

// applyGlobalConfig applies config file defaults to the root flags that were
// not set on the command line or through the environment.
func applyGlobalConfig(c *cli.Command, cfg Config) {
	if cfg.MapsDir != "" && !c.IsSet("maps-path") {
		mapsPath = cfg.MapsDir
	}
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, addr *string) {
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
}

// applyScanConfig applies config file defaults to scan command variables.
func applyScanConfig(c *cli.Command, cfg Config, jobs *int64) {
	if cfg.Jobs != nil && !c.IsSet("jobs") {
		*jobs = int64(*cfg.Jobs)
	}
}
