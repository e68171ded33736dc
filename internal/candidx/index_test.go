package candidx

import (
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exampleIndex() *Index[string] {
	b := NewBuilder[string]()
	b.Insert("R1", []string{"foo"})
	b.Insert("R2", []string{"foo", "bar"})
	b.Insert("R3", []string{"baz"})
	return b.Freeze()
}

func TestIndex_Example(t *testing.T) {
	ix := exampleIndex()

	testCases := []struct {
		observed []string
		want     []string
	}{
		{[]string{"foo"}, []string{"R1"}},
		{[]string{"foo", "bar"}, []string{"R1", "R2"}},
		{[]string{"bar"}, nil},
		{[]string{"baz", "foo", "bar"}, []string{"R1", "R2", "R3"}},
		{nil, nil},
	}

	for _, tc := range testCases {
		t.Run(Canonicalize(tc.observed...).String(), func(t *testing.T) {
			got := slices.Collect(ix.QueryIdentifiers(tc.observed...))
			assert.ElementsMatch(t, tc.want, got)
		})
	}
}

func TestIndex_NoSpuriousMatches(t *testing.T) {
	b := NewBuilder[string]()
	b.Insert("pair", []string{"a", "b"})
	ix := b.Freeze()

	assert.Empty(t, ix.Candidates(Canonicalize("a")))
	assert.Empty(t, ix.Candidates(Canonicalize("b")))
	assert.Empty(t, ix.Candidates(Canonicalize("a", "c")))
	assert.Equal(t, []string{"pair"}, ix.Candidates(Canonicalize("a", "b", "c")))
}

func TestIndex_Multiplicity(t *testing.T) {
	b := NewBuilder[string]()
	b.Insert("either", []string{"size"}, []string{"length"})
	ix := b.Freeze()

	got := ix.Candidates(Canonicalize("size", "length"))
	assert.Equal(t, []string{"either", "either"}, got)
	assert.Equal(t, []string{"either"}, Unique(ix.Query(Canonicalize("size", "length"))))
	assert.Equal(t, []string{"either"}, ix.Candidates(Canonicalize("length")))
}

func TestIndex_DuplicateCombinationInOneInsert(t *testing.T) {
	b := NewBuilder[string]()
	b.Insert("r", []string{"a", "b"}, []string{"b", "a"}, []string{"a", "b", "a"})
	ix := b.Freeze()

	assert.Equal(t, []string{"r"}, ix.Candidates(Canonicalize("a", "b")))
	assert.Equal(t, 1, ix.Stats().Entries)
}

func TestIndex_EmptyQuery(t *testing.T) {
	b := NewBuilder[string]()
	b.Insert("always", []string{})
	b.Insert("foo", []string{"foo"})
	ix := b.Freeze()

	assert.Equal(t, []string{"always"}, ix.Candidates(Combination{}))
	assert.ElementsMatch(t, []string{"always", "foo"}, ix.Candidates(Canonicalize("foo")))
}

func TestIndex_EmptyIndex(t *testing.T) {
	ix := NewBuilder[int]().Freeze()
	assert.Empty(t, ix.Candidates(Canonicalize("a", "b")))
	assert.Empty(t, ix.Candidates(Combination{}))

	var nilIndex *Index[int]
	assert.Empty(t, nilIndex.Candidates(Canonicalize("a")))
	assert.Equal(t, Stats{}, nilIndex.Stats())

	var zero Index[int]
	assert.Empty(t, zero.Candidates(Canonicalize("a")))
}

func TestBuilder_InsertWithoutCombinationsPanics(t *testing.T) {
	b := NewBuilder[string]()
	assert.Panics(t, func() { b.Insert("orphan") })
}

func TestBuilder_FreezeIsACopy(t *testing.T) {
	b := NewBuilder[string]()
	b.Insert("R1", []string{"foo"})
	first := b.Freeze()

	b.Insert("R2", []string{"foo"})
	b.Insert("R3", []string{"foo", "bar"})
	second := b.Freeze()

	observed := Canonicalize("foo", "bar")
	assert.Equal(t, []string{"R1"}, first.Candidates(observed))
	assert.ElementsMatch(t, []string{"R1", "R2", "R3"}, second.Candidates(observed))
	assert.Equal(t, 2, first.Stats().Nodes)
	assert.Equal(t, 4, second.Stats().Nodes) // root, foo, bar, bar/foo
}

func TestIndex_Stats(t *testing.T) {
	b := NewBuilder[string]()
	b.Insert("a", []string{"x", "y", "z"})
	b.Insert("b", []string{"x", "y"})
	b.Insert("c", []string{"x", "y"}, []string{"w"})
	ix := b.Freeze()

	s := ix.Stats()
	assert.Equal(t, 5, s.Nodes) // root, w, x, x/y, x/y/z
	assert.Equal(t, 3, s.Combinations)
	assert.Equal(t, 4, s.Entries)
	assert.Equal(t, 3, s.MaxDepth)
}

func TestIndex_Combinations(t *testing.T) {
	b := NewBuilder[string]()
	b.Insert("a", []string{"y", "x"})
	b.Insert("b", []string{"w"})
	b.Insert("c", []string{"x", "y"})
	ix := b.Freeze()

	var keys []string
	got := make(map[string][]string)
	for combo, rules := range ix.Combinations() {
		keys = append(keys, combo.String())
		got[combo.String()] = rules
	}
	assert.Equal(t, []string{"{w}", "{x, y}"}, keys)
	assert.Equal(t, []string{"a", "c"}, got["{x, y}"])
	assert.Equal(t, []string{"b"}, got["{w}"])
}

func TestIndex_QueryStopsEarly(t *testing.T) {
	b := NewBuilder[int]()
	for i := 0; i < 50; i++ {
		b.Insert(i, []string{"shared"})
	}
	ix := b.Freeze()

	count := 0
	for range ix.QueryIdentifiers("shared") {
		count++
		if count == 3 {
			break
		}
	}
	assert.Equal(t, 3, count)
}

func TestIndex_WideNodeUsesMembership(t *testing.T) {
	// Root has many children, the query has few identifiers, and the other
	// way around one level down.
	b := NewBuilder[string]()
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		b.Insert("single-"+id, []string{id})
	}
	b.Insert("deep", []string{"b", "c", "d", "e", "f", "g"})
	ix := b.Freeze()

	assert.ElementsMatch(t, []string{"single-b", "single-h"}, ix.Candidates(Canonicalize("b", "h")))
	assert.ElementsMatch(t,
		[]string{"single-b", "single-c", "single-d", "single-e", "single-f", "single-g", "deep"},
		ix.Candidates(Canonicalize("b", "c", "d", "e", "f", "g")))
}

func TestBuild(t *testing.T) {
	ix := Build(map[string][][]string{
		"R1": {{"foo"}},
		"R2": {{"foo", "bar"}},
		"R3": {{"baz"}, {"qux"}},
	})

	assert.ElementsMatch(t, []string{"R1", "R2"}, ix.Candidates(Canonicalize("foo", "bar")))
	assert.ElementsMatch(t, []string{"R3"}, ix.Candidates(Canonicalize("qux")))
}

func TestIndex_ConcurrentQueries(t *testing.T) {
	ix := exampleIndex()
	observed := Canonicalize("foo", "bar", "baz")

	var wg sync.WaitGroup
	errs := make(chan []string, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				got := ix.Candidates(observed)
				if len(got) != 3 {
					errs <- got
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for got := range errs {
		require.Failf(t, "unexpected candidates", "%v", got)
	}
}

func TestUnique(t *testing.T) {
	seq := slices.Values([]string{"b", "a", "b", "c", "a"})
	assert.Equal(t, []string{"b", "a", "c"}, Unique(seq))
	assert.Nil(t, Unique(slices.Values([]string(nil))))
}
