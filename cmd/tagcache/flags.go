package main

import "github.com/urfave/cli/v3"

var (
	configFile string
	mapsPath   string
	logLevel   string
	logFormat  string
	debug      bool
)

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to config.yaml",
			Value:       configPath(),
			Destination: &configFile,
		},
		&cli.StringFlag{
			Name:        "maps-path",
			Aliases:     []string{"path"},
			Usage:       "directory containing .map files",
			Destination: &mapsPath,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

// mapFlag selects one map by path or by name inside --maps-path.
func mapFlag(dst *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "map",
		Aliases:     []string{"m"},
		Usage:       "map file, or map name in --maps-path",
		Destination: dst,
		Required:    true,
	}
}

func tagFlag(dst *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "tag",
		Aliases:     []string{"t"},
		Usage:       "tag id (0xE1740000 or decimal)",
		Destination: dst,
		Required:    true,
	}
}

func jsonFlag(dst *bool) cli.Flag {
	return &cli.BoolFlag{
		Name:        "json",
		Usage:       "print JSON instead of text",
		Destination: dst,
	}
}
