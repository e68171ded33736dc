package catalog

import (
	"errors"
	"fmt"
	"slices"

	"github.com/standardbeagle/rci/internal/candidx"
)

// Severity of a rule's finding
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Rule is one rewrite/lint rule as declared in a catalog file. Requires lists
// alternative identifier combinations; any one of them being present in a
// unit makes the rule a candidate for that unit.
type Rule struct {
	Name        string     `toml:"name" json:"name"`
	Description string     `toml:"description" json:"description,omitempty"`
	Severity    Severity   `toml:"severity" json:"severity"`
	Tags        []string   `toml:"tags" json:"tags,omitempty"`
	Requires    [][]string `toml:"requires" json:"requires"`

	// Source is the catalog file the rule was read from
	Source string `toml:"-" json:"source,omitempty"`
}

// Combinations returns the rule's requirements in canonical form, de-duplicated
// and ordered by key.
func (r *Rule) Combinations() []candidx.Combination {
	seen := make(map[string]struct{}, len(r.Requires))
	out := make([]candidx.Combination, 0, len(r.Requires))
	for _, req := range r.Requires {
		c := candidx.Canonicalize(req...)
		if _, dup := seen[c.Key()]; dup {
			continue
		}
		seen[c.Key()] = struct{}{}
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b candidx.Combination) int {
		return slices.Compare(a, b)
	})
	return out
}

// validate checks a rule read from a file and fills the default severity.
func (r *Rule) validate() error {
	if r.Name == "" {
		return errors.New("rule name cannot be empty")
	}
	switch r.Severity {
	case "":
		r.Severity = SeverityWarning
	case SeverityInfo, SeverityWarning, SeverityError:
	default:
		return fmt.Errorf("unknown severity %q (want info, warning or error)", r.Severity)
	}
	// A rule without requirements could never be selected by the index.
	if len(r.Requires) == 0 {
		return errors.New("rule must declare at least one requires combination")
	}
	for i, req := range r.Requires {
		for _, id := range req {
			if id == "" {
				return fmt.Errorf("requires[%d] contains an empty identifier", i)
			}
		}
	}
	return nil
}
