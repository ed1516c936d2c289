package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopify/symbolindex/internal/entry"
	"github.com/shopify/symbolindex/internal/location"
)

func addConstant(ix *Index, name string) *entry.Entry {
	e := entry.NewConstant(name, testURI, location.Zero, location.Zero, entry.Public)
	ix.Add(e, false)
	return e
}

func TestResolveConstant_AbsoluteReference(t *testing.T) {
	ix := New()
	addModule(ix, "A", []string{"A"})
	addConstant(ix, "A::X")

	resolved := ix.ResolveConstant("::A::X", []string{"A", "B"})
	require.Len(t, resolved, 1)
	assert.Equal(t, "A::X", resolved[0].FullName())
}

func TestResolveConstant_FullQualificationUnderNesting(t *testing.T) {
	ix := New()
	addModule(ix, "A", []string{"A"})
	addModule(ix, "A::B", []string{"A", "B"})
	addConstant(ix, "A::B::X")

	resolved := ix.ResolveConstant("X", []string{"A", "B"})
	require.Len(t, resolved, 1)
	assert.Equal(t, "A::B::X", resolved[0].FullName())
}

func TestResolveConstant_ClimbsEnclosingScopes(t *testing.T) {
	ix := New()
	addModule(ix, "A", []string{"A"})
	addModule(ix, "A::B", []string{"A", "B"})
	addConstant(ix, "A::X")

	resolved := ix.ResolveConstant("X", []string{"A", "B"})
	require.Len(t, resolved, 1)
	assert.Equal(t, "A::X", resolved[0].FullName())
}

// Step 4: ancestor-chain lookup when the constant lives on a superclass.
func TestResolveConstant_AncestorChainFallback(t *testing.T) {
	ix := New()
	addClass(ix, "Base", []string{"Base"}, "::Object", true)
	addConstant(ix, "Base::X")
	addClass(ix, "Derived", []string{"Derived"}, "Base", true)

	resolved := ix.ResolveConstant("X", []string{"Derived"})
	require.Len(t, resolved, 1)
	assert.Equal(t, "Base::X", resolved[0].FullName())
}

func TestResolveConstant_TopLevelFallback(t *testing.T) {
	ix := New()
	addConstant(ix, "TOP")

	resolved := ix.ResolveConstant("TOP", []string{"A", "B"})
	require.Len(t, resolved, 1)
	assert.Equal(t, "TOP", resolved[0].FullName())
}

func TestResolveConstant_Unresolvable(t *testing.T) {
	ix := New()
	assert.Nil(t, ix.ResolveConstant("Ghost", []string{"A"}))
}

// follow_aliased_namespace: a namespace alias mid-path resolves through it.
func TestFollowAliasedNamespace_MidPathAlias(t *testing.T) {
	ix := New()
	addModule(ix, "Real", []string{"Real"})
	addConstant(ix, "Real::Leaf")
	alias := entry.NewUnresolvedConstantAlias("Fake", testURI, location.Zero, location.Zero, "Real", nil)
	ix.Add(alias, false)

	resolved := ix.ResolveConstant("Fake::Leaf", nil)
	require.Len(t, resolved, 1)
	assert.Equal(t, "Real::Leaf", resolved[0].FullName())
	assert.Equal(t, entry.KindConstantAlias, alias.Kind)
}

func TestNonRedundantQualification_AvoidsDoubleQualifying(t *testing.T) {
	nestingParts, leaf := nonRedundantQualification("A::B::Foo", []string{"A", "B"})
	assert.Equal(t, []string{"A", "B"}, nestingParts)
	assert.Equal(t, "Foo", leaf)
}

func TestNonRedundantQualification_UnqualifiedPrependsNesting(t *testing.T) {
	nestingParts, leaf := nonRedundantQualification("Foo", []string{"A", "B"})
	assert.Equal(t, []string{"A", "B"}, nestingParts)
	assert.Equal(t, "Foo", leaf)
}
