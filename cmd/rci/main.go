package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/rci/internal/catalog"
	"github.com/standardbeagle/rci/internal/config"
	"github.com/standardbeagle/rci/internal/debug"
	"github.com/standardbeagle/rci/internal/selector"
	"github.com/standardbeagle/rci/internal/version"
)

// loadConfig loads the project configuration, honouring --config and --root
func loadConfig(c *cli.Context) (*config.Config, error) {
	root := c.String("root")
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root path %q: %w", root, err)
	}

	configPath := c.String("config")
	if configPath == "" {
		cfg, err := config.Load(absRoot)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", absRoot, err)
		}
		return cfg, nil
	}

	cfg, err := config.LoadFile(configPath, absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
	}
	// An explicit --root wins over the root written in the file
	if c.IsSet("root") {
		cfg.Project.Root = absRoot
	}
	return cfg, nil
}

// loadSelector reads the catalog the config points at and wraps it in a selector
func loadSelector(cfg *config.Config) (*selector.Selector, error) {
	cat, err := catalog.LoadFiles(cfg.Project.Root, cfg.Catalog.Include, cfg.Catalog.Disable...)
	if err != nil {
		return nil, err
	}
	return selector.New(cat, cfg.Performance.CacheEntries), nil
}

func newApp() *cli.App {
	return &cli.App{
		Name:                   "rci",
		Usage:                  "Select the rules worth matching against a code unit",
		Version:                version.Version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file path (default: <root>/" + config.ConfigFileName + ")",
			},
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Project root directory",
				Value:   ".",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Write debug output to stderr (mcp: to a temp log file)",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("debug") {
				debug.EnableDebug = "true"
				debug.SetDebugOutput(c.App.ErrWriter)
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "query",
				Aliases:   []string{"q"},
				Usage:     "List candidate rules for a set of identifiers",
				ArgsUsage: "IDENT...",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "json",
						Aliases: []string{"j"},
						Usage:   "Output as JSON",
					},
				},
				Action: queryCommand,
			},
			{
				Name:      "scan",
				Usage:     "List candidate rules for every unit in a manifest",
				ArgsUsage: "MANIFEST",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "workers",
						Aliases: []string{"w"},
						Usage:   "Concurrent unit queries (0 = from config)",
					},
					&cli.BoolFlag{
						Name:    "json",
						Aliases: []string{"j"},
						Usage:   "Output as JSON",
					},
				},
				Action: scanCommand,
			},
			{
				Name:      "explain",
				Usage:     "Show a rule's definition",
				ArgsUsage: "RULE",
				Action:    explainCommand,
			},
			{
				Name:   "stats",
				Usage:  "Show catalog and index statistics",
				Action: statsCommand,
			},
			{
				Name:   "check",
				Usage:  "Validate the config and every catalog file",
				Action: checkCommand,
			},
			{
				Name:   "mcp",
				Usage:  "Serve candidate selection over MCP (stdio)",
				Action: mcpCommand,
			},
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}
