package candidx

import (
	"maps"
	"slices"
)

// builderNode is a mutable trie node. Children are created lazily, one per
// unique prefix of a registered combination.
type builderNode[T any] struct {
	children map[string]*builderNode[T]
	rules    []T
}

func newBuilderNode[T any]() *builderNode[T] {
	return &builderNode[T]{}
}

func (n *builderNode[T]) child(label string) *builderNode[T] {
	if c, ok := n.children[label]; ok {
		return c
	}
	if n.children == nil {
		n.children = make(map[string]*builderNode[T])
	}
	c := newBuilderNode[T]()
	n.children[label] = c
	return c
}

// Builder accumulates rules and their alternative identifier combinations.
//
// A Builder is not safe for concurrent use. Register every rule from a single
// goroutine, then call Freeze and share the resulting Index.
type Builder[T any] struct {
	root *builderNode[T]
}

// NewBuilder creates an empty Builder.
func NewBuilder[T any]() *Builder[T] {
	return &Builder[T]{root: newBuilderNode[T]()}
}

// Insert registers rule under each of the given combinations. Any single
// combination being observed is enough for the rule to become a candidate.
// Combinations are canonicalized; repeated combinations within one call are
// registered once.
//
// Insert panics if no combinations are given: such a rule could never be
// selected, so the call site is wrong. Pass an empty combination explicitly
// to make a rule a candidate for every query.
func (b *Builder[T]) Insert(rule T, combinations ...[]string) {
	if len(combinations) == 0 {
		panic("candidx: Insert called with no combinations")
	}

	seen := make(map[string]struct{}, len(combinations))
	for _, raw := range combinations {
		combo := Canonicalize(raw...)
		key := combo.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		n := b.root
		for _, id := range combo {
			n = n.child(id)
		}
		n.rules = append(n.rules, rule)
	}
}

// Freeze converts the current tree into an immutable Index. The Index is a
// deep copy: later calls to Insert do not affect it.
func (b *Builder[T]) Freeze() *Index[T] {
	ix := &Index[T]{}
	ix.root = freezeNode(b.root, 0, &ix.stats)
	return ix
}

func freezeNode[T any](bn *builderNode[T], depth int, stats *Stats) *node[T] {
	stats.Nodes++
	if depth > stats.MaxDepth {
		stats.MaxDepth = depth
	}
	n := &node[T]{}
	if len(bn.rules) > 0 {
		n.rules = slices.Clone(bn.rules)
		stats.Combinations++
		stats.Entries += len(bn.rules)
	}
	if len(bn.children) > 0 {
		n.labels = slices.Sorted(maps.Keys(bn.children))
		n.children = make([]*node[T], len(n.labels))
		for i, label := range n.labels {
			n.children[i] = freezeNode(bn.children[label], depth+1, stats)
		}
	}
	return n
}
