// Package candidx implements the rule candidate index: a prefix tree keyed by
// sorted identifier sets that narrows a large rule collection down to the rules
// worth matching against one code unit.
//
// Each rule declares one or more alternative identifier combinations that must
// all appear in a unit before the rule can fire. The index never drops a rule
// whose combination is satisfied; it may yield the same rule more than once.
//
// # Lifecycle
//
// Rules are registered into a Builder once, the Builder is frozen into an
// Index, and the Index is then queried for every unit under analysis:
//
//	b := candidx.NewBuilder[string]()
//	b.Insert("R1", []string{"foo"})
//	b.Insert("R2", []string{"foo", "bar"})
//	b.Insert("R3", []string{"baz"})
//	ix := b.Freeze()
//
//	for rule := range ix.QueryIdentifiers("foo", "bar") {
//		// R1, R2
//	}
//
// # Canonical Order
//
// A combination is stored along a single trie path whose labels ascend in Go
// string order. Combinations that share a prefix share nodes, and a query only
// needs set membership, never permutations.
//
// # Concurrency
//
// A Builder must be used from one goroutine. An Index is immutable and can be
// queried from any number of goroutines without locking.
package candidx
