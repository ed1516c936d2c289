package reffinder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopify/symbolindex/internal/entry"
	"github.com/shopify/symbolindex/internal/index"
	"github.com/shopify/symbolindex/internal/location"
)

const fileURI entry.URI = "refs.rb"

func TestConstantOccurrence_MatchesTarget(t *testing.T) {
	ix := index.New()
	classEntry := entry.NewClass("A", fileURI, location.Zero, location.Location{StartLine: 1, StartColumn: 6}, []string{"A"}, "::Object", true)
	ix.Add(classEntry, false)

	f := New(fileURI, ix, Target{Kind: TargetConstant, Name: "A"})
	useLoc := location.Location{StartLine: 5, StartColumn: 0}
	f.ConstantOccurrence("A", useLoc, useLoc)

	refs := f.References()
	require.Len(t, refs, 1)
	assert.Equal(t, useLoc, refs[0].Location)
	assert.False(t, refs[0].Declarative)
}

func TestConstantOccurrence_DeclarativeWhenLocationMatchesNameLocation(t *testing.T) {
	ix := index.New()
	nameLoc := location.Location{StartLine: 1, StartColumn: 6}
	classEntry := entry.NewClass("A", fileURI, location.Zero, nameLoc, []string{"A"}, "::Object", true)
	ix.Add(classEntry, false)

	f := New(fileURI, ix, Target{Kind: TargetConstant, Name: "A"})
	f.ConstantOccurrence("A", nameLoc, nameLoc)

	refs := f.References()
	require.Len(t, refs, 1)
	assert.True(t, refs[0].Declarative)
}

func TestConstantOccurrence_FollowsAliasToUltimateTarget(t *testing.T) {
	ix := index.New()
	real := entry.NewClass("Real", fileURI, location.Zero, location.Zero, []string{"Real"}, "::Object", true)
	ix.Add(real, false)
	alias := entry.NewUnresolvedConstantAlias("Fake", fileURI, location.Zero, location.Zero, "Real", nil)
	ix.Add(alias, false)

	f := New(fileURI, ix, Target{Kind: TargetConstant, Name: "Real"})
	useLoc := location.Location{StartLine: 9, StartColumn: 0}
	f.ConstantOccurrence("Fake", useLoc, useLoc)

	refs := f.References()
	require.Len(t, refs, 1)
}

func TestConstantOccurrence_NonMatchingNameProducesNoReference(t *testing.T) {
	ix := index.New()
	ix.Add(entry.NewClass("A", fileURI, location.Zero, location.Zero, []string{"A"}, "::Object", true), false)

	f := New(fileURI, ix, Target{Kind: TargetConstant, Name: "A"})
	f.ConstantOccurrence("B", location.Location{StartLine: 2}, location.Location{StartLine: 2})

	assert.Empty(t, f.References())
}

func TestMethodDefAndCall(t *testing.T) {
	f := New(fileURI, index.New(), Target{Kind: TargetMethod, Name: "foo"})

	defLoc := location.Location{StartLine: 1, StartColumn: 4}
	callLoc := location.Location{StartLine: 10, StartColumn: 2}
	f.MethodDef("A", "foo", defLoc)
	f.MethodCall("foo", callLoc)
	f.MethodDef("A", "bar", location.Location{StartLine: 2})

	refs := f.References()
	require.Len(t, refs, 2)
	assert.True(t, refs[0].Declarative)
	assert.False(t, refs[1].Declarative)
}

func TestInstanceVariableOccurrence_ScopedToOwner(t *testing.T) {
	f := New(fileURI, index.New(), Target{Kind: TargetInstanceVariable, Name: "@count", Owner: "A"})

	writeLoc := location.Location{StartLine: 3}
	readLoc := location.Location{StartLine: 4}
	otherOwnerLoc := location.Location{StartLine: 5}

	f.InstanceVariableOccurrence("A", "@count", writeLoc, true)
	f.InstanceVariableOccurrence("A", "@count", readLoc, false)
	f.InstanceVariableOccurrence("B", "@count", otherOwnerLoc, true)

	refs := f.References()
	require.Len(t, refs, 2)
	assert.True(t, refs[0].Declarative)
	assert.False(t, refs[1].Declarative)
}

func TestEnterLeaveNamespaceTracksCurrentOwner(t *testing.T) {
	f := New(fileURI, index.New(), Target{})
	f.EnterNamespace("A")
	f.EnterNamespace("B")
	assert.Equal(t, "A::B", f.CurrentOwner())
	f.LeaveNamespace()
	assert.Equal(t, "A", f.CurrentOwner())
}
