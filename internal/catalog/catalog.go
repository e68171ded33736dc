package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cespare/xxhash/v2"
	"github.com/hbollon/go-edlib"
	"github.com/pelletier/go-toml/v2"

	"github.com/standardbeagle/rci/internal/candidx"
	"github.com/standardbeagle/rci/internal/debug"
	rcierrors "github.com/standardbeagle/rci/internal/errors"
)

// minSuggestionScore is the Jaro-Winkler similarity below which a rule name
// is not offered as a suggestion
const minSuggestionScore = 0.7

// catalogFile is the on-disk layout of a catalog TOML file
type catalogFile struct {
	Rules []*Rule `toml:"rule"`
}

// Catalog is a validated, immutable set of rules with a frozen candidate index.
type Catalog struct {
	rules       []*Rule // sorted by name
	byName      map[string]*Rule
	index       *candidx.Index[*Rule]
	fingerprint uint64
}

// Parse decodes the rules of one catalog file. source is recorded on every
// rule and used in error messages.
func Parse(source string, data []byte) ([]*Rule, error) {
	var file catalogFile
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&file); err != nil {
		return nil, rcierrors.NewCatalogError("parse", err).WithFile(source)
	}

	for _, r := range file.Rules {
		r.Source = source
		if err := r.validate(); err != nil {
			return nil, rcierrors.NewCatalogError("validate", err).WithFile(source).WithRule(r.Name)
		}
	}
	return file.Rules, nil
}

// FindFiles returns the catalog files under root matching any of the
// doublestar patterns, as sorted slash-separated paths relative to root.
func FindFiles(root string, patterns []string) ([]string, error) {
	fsys := os.DirFS(root)
	seen := make(map[string]struct{})
	var files []string
	for _, pattern := range patterns {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, rcierrors.NewCatalogError("glob", fmt.Errorf("pattern %q: %w", pattern, err))
		}
		for _, m := range matches {
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	slices.Sort(files)
	return files, nil
}

// LoadFiles reads every catalog file under root matching patterns and builds
// a Catalog from them. Rules named in disabled are left out.
func LoadFiles(root string, patterns []string, disabled ...string) (*Catalog, error) {
	files, err := FindFiles(root, patterns)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, rcierrors.NewCatalogError("load",
			fmt.Errorf("no catalog files under %s match %s", root, strings.Join(patterns, ", ")))
	}

	var rules []*Rule
	for _, rel := range files {
		data, err := fs.ReadFile(os.DirFS(root), rel)
		if err != nil {
			return nil, rcierrors.NewCatalogError("read", err).WithFile(rel)
		}
		parsed, err := Parse(filepath.FromSlash(rel), data)
		if err != nil {
			return nil, err
		}
		debug.LogCatalog("%s: %d rules\n", rel, len(parsed))
		rules = append(rules, parsed...)
	}

	return New(rules, disabled...)
}

// New validates rules, drops the disabled ones and freezes the candidate
// index. Names of enabled rules must be unique; disabling a name drops every
// rule carrying it, so it also settles a duplicate. Disabled rules are still
// validated.
func New(rules []*Rule, disabled ...string) (*Catalog, error) {
	off := make(map[string]struct{}, len(disabled))
	for _, name := range disabled {
		off[name] = struct{}{}
	}

	c := &Catalog{byName: make(map[string]*Rule, len(rules))}
	var errs []error
	for _, r := range rules {
		if err := r.validate(); err != nil {
			errs = append(errs, rcierrors.NewCatalogError("validate", err).WithFile(r.Source).WithRule(r.Name))
			continue
		}
		if _, skip := off[r.Name]; skip {
			continue
		}
		if prev, dup := c.byName[r.Name]; dup {
			errs = append(errs, rcierrors.NewCatalogError("register",
				fmt.Errorf("duplicate rule name, first defined in %s", prev.Source)).WithFile(r.Source).WithRule(r.Name))
			continue
		}
		c.byName[r.Name] = r
	}
	if err := rcierrors.NewMultiError(errs).ErrOrNil(); err != nil {
		return nil, err
	}

	b := candidx.NewBuilder[*Rule]()
	for _, r := range c.byName {
		combos := r.Combinations()
		reqs := make([][]string, len(combos))
		for i, combo := range combos {
			reqs[i] = combo
		}
		b.Insert(r, reqs...)
		c.rules = append(c.rules, r)
	}
	slices.SortFunc(c.rules, func(a, b *Rule) int { return strings.Compare(a.Name, b.Name) })

	c.index = b.Freeze()
	c.fingerprint = fingerprint(c.rules)

	stats := c.index.Stats()
	debug.LogCatalog("indexed %d rules: %d nodes, %d combinations, depth %d\n",
		len(c.rules), stats.Nodes, stats.Combinations, stats.MaxDepth)
	return c, nil
}

// fingerprint hashes the canonical content of the rules so two catalogs with
// the same rules compare equal regardless of file layout or order.
func fingerprint(sorted []*Rule) uint64 {
	h := xxhash.New()
	for _, r := range sorted {
		_, _ = h.WriteString(r.Name)
		_, _ = h.WriteString("\x00")
		_, _ = h.WriteString(string(r.Severity))
		for _, c := range r.Combinations() {
			_, _ = h.WriteString("\x01")
			_, _ = h.WriteString(c.Key())
		}
		_, _ = h.WriteString("\x02")
	}
	return h.Sum64()
}

// Index returns the frozen candidate index over the catalog's rules
func (c *Catalog) Index() *candidx.Index[*Rule] {
	return c.index
}

// Rules returns the rules sorted by name
func (c *Catalog) Rules() []*Rule {
	return slices.Clone(c.rules)
}

// Len returns the number of indexed rules
func (c *Catalog) Len() int {
	return len(c.rules)
}

// Lookup finds a rule by exact name
func (c *Catalog) Lookup(name string) (*Rule, bool) {
	r, ok := c.byName[name]
	return r, ok
}

// Fingerprint identifies the catalog's content
func (c *Catalog) Fingerprint() uint64 {
	return c.fingerprint
}

// Suggest returns up to limit rule names most similar to name, best first.
func (c *Catalog) Suggest(name string, limit int) []string {
	if limit <= 0 || name == "" {
		return nil
	}

	type scored struct {
		name  string
		score float32
	}
	var candidates []scored
	lower := strings.ToLower(name)
	for _, r := range c.rules {
		score, err := edlib.StringsSimilarity(lower, strings.ToLower(r.Name), edlib.JaroWinkler)
		if err != nil || score < minSuggestionScore {
			continue
		}
		candidates = append(candidates, scored{r.Name, score})
	}
	slices.SortStableFunc(candidates, func(a, b scored) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		}
		return strings.Compare(a.name, b.name)
	})

	out := make([]string, 0, min(limit, len(candidates)))
	for i := 0; i < len(candidates) && i < limit; i++ {
		out = append(out, candidates[i].name)
	}
	return out
}

// ErrNoRules is returned by callers that require a non-empty catalog
var ErrNoRules = errors.New("catalog has no rules")
