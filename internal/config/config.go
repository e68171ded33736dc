package config

import (
	"os"
	"path/filepath"
)

// ConfigFileName is the project configuration file looked up in the project root
const ConfigFileName = ".rci.kdl"

// Defaults used when the config file omits a value
const (
	DefaultCatalogPattern = "rules/**/*.toml"
	DefaultCacheEntries   = 4096
	DefaultDebounceMs     = 200
)

type Config struct {
	Version     int
	Project     Project
	Catalog     Catalog
	Units       Units
	Performance Performance
	Watch       Watch
}

type Project struct {
	Root string
	Name string
}

// Catalog locates rule catalog files relative to the project root
type Catalog struct {
	Include []string // doublestar patterns for catalog TOML files
	Disable []string // rule names left out of the index
}

// Units filters code units from a manifest by path
type Units struct {
	Include []string // empty means every unit
	Exclude []string
}

type Performance struct {
	Workers      int // concurrent unit queries, 0 = auto-detect (NumCPU)
	CacheEntries int // candidate cache capacity, 0 disables the cache
}

type Watch struct {
	Enabled    bool // rebuild the index when catalog files change
	DebounceMs int  // quiet period before a rebuild, 0 = DefaultDebounceMs
}

// Default returns the configuration used when no config file exists
func Default(root string) *Config {
	return &Config{
		Version: 1,
		Project: Project{Root: root, Name: filepath.Base(root)},
		Catalog: Catalog{
			Include: []string{DefaultCatalogPattern},
		},
		Performance: Performance{
			CacheEntries: DefaultCacheEntries,
		},
		Watch: Watch{
			DebounceMs: DefaultDebounceMs,
		},
	}
}

// Load reads .rci.kdl from rootDir (or the working directory when empty),
// falling back to defaults when the file does not exist. The result is
// validated and smart defaults are applied.
func Load(rootDir string) (*Config, error) {
	if rootDir == "" {
		rootDir = "."
	}
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		absRoot = rootDir
	}
	return LoadFile(filepath.Join(absRoot, ConfigFileName), absRoot)
}

// LoadFile reads the config at path. Relative roots inside the file are
// resolved against the file's directory; defaultRoot is used when the file
// does not set one or does not exist.
func LoadFile(path, defaultRoot string) (*Config, error) {
	var cfg *Config
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg = Default(defaultRoot)
	} else {
		cfg, err = LoadKDL(path, defaultRoot)
		if err != nil {
			return nil, err
		}
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
