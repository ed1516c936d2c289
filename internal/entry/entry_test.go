package entry

import (
	"testing"

	"github.com/shopify/symbolindex/internal/location"
	"github.com/stretchr/testify/assert"
)

func TestFullNameForNamespace(t *testing.T) {
	c := NewClass("Bar", "a.rb", location.Zero, location.Zero, []string{"Foo", "Bar"}, "::Object", true)
	assert.Equal(t, "Foo::Bar", c.FullName())
}

func TestFullNameForNonNamespace(t *testing.T) {
	m := NewMethod("foo", "a.rb", location.Zero, location.Zero, "Foo", Public, Signature{})
	assert.Equal(t, "foo", m.FullName())
}

func TestSignatureFormat(t *testing.T) {
	sig := Signature{Parameters: []Parameter{
		NewParameter(Required, "a"),
		NewParameter(Optional, "b"),
		NewParameter(Rest, ""),
		NewParameter(Keyword, "k"),
		NewParameter(KeywordRest, ""),
		NewParameter(Block, ""),
	}}
	assert.Equal(t, "(a, b = ..., *, k:, **, &)", sig.Format())
}

func TestSignatureMatchesArity(t *testing.T) {
	sig := Signature{Parameters: []Parameter{NewParameter(Required, "a"), NewParameter(Optional, "b")}}
	assert.False(t, sig.Matches(0))
	assert.True(t, sig.Matches(1))
	assert.True(t, sig.Matches(2))
	assert.False(t, sig.Matches(3))
}

func TestSignatureMatchesUnboundedRest(t *testing.T) {
	sig := Signature{Parameters: []Parameter{NewParameter(Required, "a"), NewParameter(Rest, "")}}
	assert.True(t, sig.Matches(1))
	assert.True(t, sig.Matches(50))
	assert.False(t, sig.Matches(0))
}

func TestMixinHashChangesWithOps(t *testing.T) {
	c := NewClass("C", "a.rb", location.Zero, location.Zero, []string{"C"}, "::Object", true)
	h1 := c.MixinHash()
	c.MixinOperations = append(c.MixinOperations, MixinOp{Kind: Include, ModuleName: "M"})
	h2 := c.MixinHash()
	assert.NotEqual(t, h1, h2)
}
