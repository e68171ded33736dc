package units

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/rci/internal/debug"
	rcierrors "github.com/standardbeagle/rci/internal/errors"
)

// Unit is one piece of code under analysis together with the identifiers
// observed in it. Identifier extraction happens upstream.
type Unit struct {
	Path        string   `toml:"path" json:"path"`
	Identifiers []string `toml:"identifiers" json:"identifiers"`
}

type manifest struct {
	Units []Unit `toml:"unit"`
}

// ParseManifest decodes a TOML manifest of [[unit]] tables.
func ParseManifest(source string, data []byte) ([]Unit, error) {
	var m manifest
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return nil, rcierrors.NewUnitError("parse", source, err)
	}
	for i, u := range m.Units {
		if u.Path == "" {
			return nil, rcierrors.NewUnitError("parse", source, fmt.Errorf("unit %d has no path", i))
		}
	}
	return m.Units, nil
}

// LoadManifest reads and parses the manifest at path.
func LoadManifest(path string) ([]Unit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, rcierrors.NewUnitError("read", path, err)
	}
	return ParseManifest(path, data)
}

// Filter selects units by path using doublestar patterns. An empty include
// list admits every path not excluded.
type Filter struct {
	Include []string
	Exclude []string
}

// Allows reports whether a unit path passes the filter.
func (f Filter) Allows(path string) bool {
	path = filepath.ToSlash(path)
	for _, pattern := range f.Exclude {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return false
		}
	}
	if len(f.Include) == 0 {
		return true
	}
	for _, pattern := range f.Include {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}
	}
	return false
}

// Apply returns the units that pass the filter, preserving order.
func (f Filter) Apply(units []Unit) []Unit {
	out := make([]Unit, 0, len(units))
	for _, u := range units {
		if f.Allows(u.Path) {
			out = append(out, u)
		}
	}
	return out
}

// Selector is the query side used by Scan.
type Selector interface {
	CandidateNames(identifiers []string) []string
}

// Result lists the candidate rules for one unit.
type Result struct {
	Unit       string   `json:"unit"`
	Candidates []string `json:"candidates"`
}

// Scan queries sel for every unit using at most workers goroutines and
// returns results in input order. It stops early when ctx is cancelled.
func Scan(ctx context.Context, sel Selector, units []Unit, workers int) ([]Result, error) {
	if workers <= 0 {
		workers = 1
	}
	results := make([]Result, len(units))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, u := range units {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = Result{Unit: u.Path, Candidates: sel.CandidateNames(u.Identifiers)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	debug.LogQuery("scanned %d units with %d workers\n", len(units), workers)
	return results, nil
}

// Summary aggregates scan results per rule.
type Summary struct {
	Units          int            `json:"units"`
	UnitsWithRules int            `json:"units_with_rules"`
	RuleUnits      map[string]int `json:"rule_units"` // rule name -> units it is a candidate for
}

// Summarize counts, per rule, the units it was a candidate for.
func Summarize(results []Result) Summary {
	s := Summary{Units: len(results), RuleUnits: make(map[string]int)}
	for _, r := range results {
		if len(r.Candidates) > 0 {
			s.UnitsWithRules++
		}
		for _, name := range r.Candidates {
			s.RuleUnits[name]++
		}
	}
	return s
}
