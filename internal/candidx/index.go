package candidx

import (
	"iter"
	"slices"
)

// node is an immutable trie node. labels is ascending and parallel to children.
type node[T any] struct {
	labels   []string
	children []*node[T]
	rules    []T
}

func (n *node[T]) lookup(label string) *node[T] {
	if i, ok := slices.BinarySearch(n.labels, label); ok {
		return n.children[i]
	}
	return nil
}

// Stats describes the shape of a frozen Index.
type Stats struct {
	Nodes        int // trie nodes including the root
	Combinations int // nodes with at least one resident rule
	Entries      int // resident rule entries across all nodes
	MaxDepth     int // longest registered combination
}

// Index is the frozen, read-only form of a Builder. It is safe for concurrent
// use by any number of goroutines. The zero value and a nil *Index are empty.
type Index[T any] struct {
	root  *node[T]
	stats Stats
}

// Build constructs an Index from a rule to combinations mapping. Every rule
// must have at least one combination (see Builder.Insert).
func Build[T comparable](requirements map[T][][]string) *Index[T] {
	b := NewBuilder[T]()
	for rule, combos := range requirements {
		b.Insert(rule, combos...)
	}
	return b.Freeze()
}

// Stats returns the shape of the index.
func (ix *Index[T]) Stats() Stats {
	if ix == nil {
		return Stats{}
	}
	return ix.stats
}

// frame is one pending unit of traversal work: a node and the observed
// identifiers still available below it.
type frame[T any] struct {
	n *node[T]
	s []string
}

// Query yields every rule with at least one registered combination that is a
// subset of observed. A rule satisfied through several combinations is
// yielded once per combination. observed must be canonical; use
// QueryIdentifiers for arbitrary input.
//
// At each node the traversal iterates whichever is smaller: the node's
// children, or the observed identifiers that remain.
func (ix *Index[T]) Query(observed Combination) iter.Seq[T] {
	return func(yield func(T) bool) {
		if ix == nil || ix.root == nil {
			return
		}
		stack := []frame[T]{{n: ix.root, s: observed}}
		for len(stack) > 0 {
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			for _, r := range f.n.rules {
				if !yield(r) {
					return
				}
			}
			if len(f.s) == 0 || len(f.n.children) == 0 {
				continue
			}

			// Pushed in descending label order so children pop ascending.
			if len(f.n.children) < len(f.s) {
				for i := len(f.n.labels) - 1; i >= 0; i-- {
					pos, ok := slices.BinarySearch(f.s, f.n.labels[i])
					if !ok {
						continue
					}
					stack = append(stack, frame[T]{n: f.n.children[i], s: f.s[pos+1:]})
				}
				continue
			}
			for i := len(f.s) - 1; i >= 0; i-- {
				if child := f.n.lookup(f.s[i]); child != nil {
					stack = append(stack, frame[T]{n: child, s: f.s[i+1:]})
				}
			}
		}
	}
}

// QueryIdentifiers canonicalizes ids and queries the index with them.
func (ix *Index[T]) QueryIdentifiers(ids ...string) iter.Seq[T] {
	return ix.Query(Canonicalize(ids...))
}

// Candidates collects Query(observed) into a slice. Duplicates are kept.
func (ix *Index[T]) Candidates(observed Combination) []T {
	return slices.Collect(ix.Query(observed))
}

// Combinations yields every registered combination together with the rules
// resident at it, in canonical order of the combinations' paths.
func (ix *Index[T]) Combinations() iter.Seq2[Combination, []T] {
	return func(yield func(Combination, []T) bool) {
		if ix == nil || ix.root == nil {
			return
		}
		var walk func(n *node[T], path Combination) bool
		walk = func(n *node[T], path Combination) bool {
			if len(n.rules) > 0 && !yield(slices.Clone(path), slices.Clone(n.rules)) {
				return false
			}
			for i, child := range n.children {
				if !walk(child, append(path, n.labels[i])) {
					return false
				}
			}
			return true
		}
		walk(ix.root, Combination{})
	}
}

// Unique drains seq and returns its distinct values in first-seen order.
func Unique[T comparable](seq iter.Seq[T]) []T {
	seen := make(map[T]struct{})
	var out []T
	for v := range seq {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
