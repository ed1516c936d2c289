package rbsadjunct

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopify/symbolindex/internal/entry"
	"github.com/shopify/symbolindex/internal/index"
	"github.com/shopify/symbolindex/internal/location"
)

const fileURI entry.URI = "sig.rb"

func TestApply_AttachesSignatureToMatchingMethod(t *testing.T) {
	ix := index.New()
	ix.Add(entry.NewClass("A", fileURI, location.Zero, location.Zero, []string{"A"}, "::Object", true), false)
	method := entry.NewMethod("foo", fileURI, location.Zero, location.Zero, "A", entry.Public, entry.Signature{
		Parameters: []entry.Parameter{entry.NewParameter(entry.Required, "x")},
	})
	ix.Add(method, false)

	adapter := New(ix)
	sig := entry.Signature{Parameters: []entry.Parameter{entry.NewParameter(entry.Required, "x")}}
	updated := adapter.Apply(Declaration{Owner: "A", Name: "foo", Signature: sig})

	require.Equal(t, 1, updated)
	require.Len(t, method.Signatures, 2)
	assert.Equal(t, sig, method.Signatures[1])
}

func TestApply_NoMatchingOwnerReturnsZero(t *testing.T) {
	ix := index.New()
	ix.Add(entry.NewClass("A", fileURI, location.Zero, location.Zero, []string{"A"}, "::Object", true), false)
	ix.Add(entry.NewMethod("foo", fileURI, location.Zero, location.Zero, "A", entry.Public, entry.Signature{}), false)

	adapter := New(ix)
	updated := adapter.Apply(Declaration{Owner: "B", Name: "foo"})

	assert.Equal(t, 0, updated)
}

func TestApplyAll_SumsUpdates(t *testing.T) {
	ix := index.New()
	ix.Add(entry.NewClass("A", fileURI, location.Zero, location.Zero, []string{"A"}, "::Object", true), false)
	ix.Add(entry.NewMethod("foo", fileURI, location.Zero, location.Zero, "A", entry.Public, entry.Signature{}), false)
	ix.Add(entry.NewMethod("bar", fileURI, location.Zero, location.Zero, "A", entry.Public, entry.Signature{}), false)

	adapter := New(ix)
	total := adapter.ApplyAll([]Declaration{
		{Owner: "A", Name: "foo"},
		{Owner: "A", Name: "bar"},
		{Owner: "Ghost", Name: "baz"},
	})

	assert.Equal(t, 2, total)
}
