package prefixtree

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertSearchExact(t *testing.T) {
	tree := New[int]()
	tree.Insert("Foo::Bar", 1)
	got := tree.Search("Foo::Bar")
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0])
}

func TestInsertOverwrites(t *testing.T) {
	tree := New[string]()
	tree.Insert("A", "first")
	tree.Insert("A", "second")
	got := tree.Search("A")
	require.Len(t, got, 1)
	assert.Equal(t, "second", got[0])
}

func TestSearchPrefixCollectsDescendants(t *testing.T) {
	tree := New[string]()
	tree.Insert("Foo", "Foo")
	tree.Insert("Foo::Bar", "Foo::Bar")
	tree.Insert("Foo::Baz", "Foo::Baz")
	tree.Insert("Quux", "Quux")

	got := tree.Search("Foo")
	sort.Strings(got)
	assert.Equal(t, []string{"Foo", "Foo::Bar", "Foo::Baz"}, got)
}

func TestSearchEmptyPrefixReturnsAll(t *testing.T) {
	tree := New[string]()
	tree.Insert("A", "A")
	tree.Insert("B", "B")
	got := tree.Search("")
	sort.Strings(got)
	assert.Equal(t, []string{"A", "B"}, got)
}

func TestSearchMissingPrefixReturnsNil(t *testing.T) {
	tree := New[int]()
	tree.Insert("A", 1)
	assert.Nil(t, tree.Search("Z"))
}

func TestDeletePrunesEmptyBranches(t *testing.T) {
	tree := New[string]()
	tree.Insert("Foo::Bar", "v")
	tree.Delete("Foo::Bar")

	assert.Nil(t, tree.Search("Foo"))
	assert.Nil(t, tree.Search(""))
	// internal root must have no dangling children left behind
	assert.Empty(t, tree.root.children)
}

func TestDeleteKeepsSiblingBranches(t *testing.T) {
	tree := New[string]()
	tree.Insert("Foo::Bar", "bar")
	tree.Insert("Foo::Baz", "baz")
	tree.Delete("Foo::Bar")

	assert.Nil(t, tree.Search("Foo::Bar"))
	got := tree.Search("Foo::Baz")
	require.Len(t, got, 1)
	assert.Equal(t, "baz", got[0])
}

func TestDeleteKeepsTerminalAncestor(t *testing.T) {
	tree := New[string]()
	tree.Insert("Foo", "ns")
	tree.Insert("Foo::Bar", "member")
	tree.Delete("Foo::Bar")

	got := tree.Search("Foo")
	require.Len(t, got, 1)
	assert.Equal(t, "ns", got[0])
}

func TestDeleteMissingKeyIsNoop(t *testing.T) {
	tree := New[int]()
	tree.Insert("A", 1)
	tree.Delete("B")
	got := tree.Search("A")
	require.Len(t, got, 1)
}
