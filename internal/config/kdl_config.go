package config

import (
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// LoadKDL loads configuration from the KDL file at path
func LoadKDL(path, defaultRoot string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	cfg, err := parseKDL(string(content), defaultRoot)
	if err != nil {
		return nil, err
	}

	// Resolve relative roots against the directory holding the config file
	if !filepath.IsAbs(cfg.Project.Root) {
		cfg.Project.Root = filepath.Join(filepath.Dir(path), cfg.Project.Root)
	}
	cfg.Project.Root = filepath.Clean(cfg.Project.Root)
	if cfg.Project.Name == "" {
		cfg.Project.Name = filepath.Base(cfg.Project.Root)
	}

	return cfg, nil
}

// parseKDL parses rci configuration on top of the defaults
func parseKDL(content, defaultRoot string) (*Config, error) {
	cfg := Default(defaultRoot)
	cfg.Project.Name = ""

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse KDL config: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "version":
			if v, ok := firstIntArg(n); ok {
				cfg.Version = v
			}
		case "project":
			for _, cn := range n.Children { // project { root "." name "foo" }
				assignSimpleString(cn, "root", func(v string) { cfg.Project.Root = v })
				assignSimpleString(cn, "name", func(v string) { cfg.Project.Name = v })
			}
		case "catalog":
			var include []string
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "include":
					include = append(include, collectStringArgs(cn)...)
				case "disable":
					cfg.Catalog.Disable = append(cfg.Catalog.Disable, collectStringArgs(cn)...)
				}
			}
			// An include block replaces the default pattern
			if len(include) > 0 {
				cfg.Catalog.Include = include
			}
		case "units":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "include":
					cfg.Units.Include = append(cfg.Units.Include, collectStringArgs(cn)...)
				case "exclude":
					cfg.Units.Exclude = append(cfg.Units.Exclude, collectStringArgs(cn)...)
				}
			}
		case "performance":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "workers":
					if v, ok := firstIntArg(cn); ok {
						cfg.Performance.Workers = v
					}
				case "cache_entries":
					if v, ok := firstIntArg(cn); ok {
						cfg.Performance.CacheEntries = v
					}
				}
			}
		case "watch":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "enabled":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Watch.Enabled = b
					}
				case "debounce_ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.Watch.DebounceMs = v
					}
				}
			}
		default:
			log.Printf("WARNING: unknown node '%s' in KDL config ignored", nodeName(n))
		}
	}

	return cfg, nil
}

// Helpers over the kdl-go document model
func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		if v != math.Trunc(v) {
			log.Printf("WARNING: '%s' expects an integer, %v truncated to %d", nodeName(n), v, int(v))
		}
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

// collectStringArgs accepts both inline (include "a" "b") and block
// (include { "a"; "b" }) forms.
func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}

	if len(out) == 0 && len(n.Children) > 0 {
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}

	return out
}

func assignSimpleString(n *document.Node, target string, set func(string)) {
	if nodeName(n) == target {
		if s, ok := firstStringArg(n); ok {
			set(s)
		}
	}
}
