package candidx

import (
	"slices"
	"strings"
)

// Combination is a set of identifiers in canonical form: strictly ascending,
// no duplicates, ordered by Go string comparison.
type Combination []string

// Canonicalize returns the canonical Combination for ids. The input slice is
// not modified.
func Canonicalize(ids ...string) Combination {
	if len(ids) == 0 {
		return Combination{}
	}
	c := slices.Clone(ids)
	slices.Sort(c)
	return Combination(slices.Compact(c))
}

// IsCanonical reports whether c is strictly ascending.
func (c Combination) IsCanonical() bool {
	for i := 1; i < len(c); i++ {
		if c[i-1] >= c[i] {
			return false
		}
	}
	return true
}

// Contains reports whether id is a member of c. c must be canonical.
func (c Combination) Contains(id string) bool {
	_, ok := slices.BinarySearch(c, id)
	return ok
}

// SubsetOf reports whether every identifier of c is present in other.
// Both combinations must be canonical.
func (c Combination) SubsetOf(other Combination) bool {
	if len(c) > len(other) {
		return false
	}
	j := 0
	for _, id := range c {
		for j < len(other) && other[j] < id {
			j++
		}
		if j == len(other) || other[j] != id {
			return false
		}
		j++
	}
	return true
}

// Key returns a string that is equal for two combinations iff they are equal.
func (c Combination) Key() string {
	if len(c) == 0 {
		return ""
	}
	return "\x01" + strings.Join(c, "\x00")
}

// String renders c as {a, b, c}.
func (c Combination) String() string {
	return "{" + strings.Join(c, ", ") + "}"
}
