package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopify/symbolindex/internal/entry"
	"github.com/shopify/symbolindex/internal/listener"
	"github.com/shopify/symbolindex/internal/location"
)

// classWalkerParser is a test double for Parser: it ignores content
// entirely and drives the listener through one fixed sequence of
// class/method events, enough to exercise IndexSingle/HandleChange end to
// end without a real syntax tree producer.
type classWalkerParser struct{}

func (classWalkerParser) Parse(uri entry.URI, content []byte, enc location.Encoding) (Walker, error) {
	return func(l *listener.Listener) error {
		l.EnterClass("Widget", location.Zero, location.Zero, "::Object", true)
		l.EnterDef("render", location.Zero, location.Zero, false, entry.Signature{})
		l.LeaveDef(false)
		l.LeaveNamespace()
		return nil
	}, nil
}

func TestAddAndGet(t *testing.T) {
	ix := New()
	addClass(ix, "A", []string{"A"}, "::Object", true)

	bucket := ix.Get("A")
	require.Len(t, bucket, 1)
	assert.Equal(t, entry.KindClass, bucket[0].Kind)
	assert.Nil(t, ix.Get("Ghost"))
}

func TestDelete_PrunesEmptyBucketsButKeepsOthers(t *testing.T) {
	ix := New()
	addClass(ix, "A", []string{"A"}, "::Object", true)
	e2 := entry.NewClass("A", "other.rb", location.Zero, location.Zero, []string{"A"}, "::Object", true)
	ix.Add(e2, false)

	ix.Delete(testURI)

	bucket := ix.Get("A")
	require.Len(t, bucket, 1)
	assert.Equal(t, entry.URI("other.rb"), bucket[0].URI)
}

func TestDelete_RemovesRequirePath(t *testing.T) {
	ix := New()
	require.NoError(t, ix.IndexSingle(testURI, []byte(""), classWalkerParser{}, FileOptions{RequirePath: "widget"}))
	require.Equal(t, []entry.URI{testURI}, ix.SearchRequirePaths("widget"))

	ix.Delete(testURI)
	assert.Empty(t, ix.SearchRequirePaths("widget"))
}

func TestFirstUnqualifiedConst(t *testing.T) {
	ix := New()
	addModule(ix, "A", []string{"A"})
	addConstant(ix, "A::Leaf")

	bucket := ix.FirstUnqualifiedConst("Leaf")
	require.Len(t, bucket, 1)
	assert.Equal(t, "A::Leaf", bucket[0].FullName())
}

func TestIndexSingle_PopulatesFromWalker(t *testing.T) {
	ix := New()
	require.NoError(t, ix.IndexSingle(testURI, []byte("ignored"), classWalkerParser{}, FileOptions{}))

	widget := ix.Get("Widget")
	require.Len(t, widget, 1)
	methods := ix.ResolveMethod("render", "Widget", false)
	require.Len(t, methods, 1)
}

func TestIndexSingle_MissingFileIsSilentlySkipped(t *testing.T) {
	ix := New()
	err := ix.IndexSingle("/no/such/file.rb", nil, classWalkerParser{}, FileOptions{})
	require.NoError(t, err)
	assert.Empty(t, ix.IndexingErrors())
}

func TestHandleChange_ReplacesPriorEntries(t *testing.T) {
	ix := New()
	require.NoError(t, ix.IndexSingle(testURI, []byte(""), classWalkerParser{}, FileOptions{}))
	require.NoError(t, ix.HandleChange(testURI, []byte(""), classWalkerParser{}, FileOptions{}))

	bucket := ix.Get("Widget")
	require.Len(t, bucket, 1)
}

func TestIndexAll_ProcessesEveryFileAndReportsFullProgress(t *testing.T) {
	ix := New()
	uris := []entry.URI{"a.rb", "b.rb", "c.rb"}
	var reported []int
	err := ix.IndexAll(uris, nil, classWalkerParser{}, FileOptions{}, func(processed, total int) bool {
		reported = append(reported, processed)
		assert.Equal(t, 3, total)
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, reported)

	// classWalkerParser emits an identically named "Widget" class per file;
	// each uri keeps its own entry in the shared name bucket.
	widget := ix.Get("Widget")
	require.Len(t, widget, 3)
}

func TestIndexAll_StopsAtNextBoundaryWhenProgressReturnsFalse(t *testing.T) {
	ix := New()
	uris := []entry.URI{"a.rb", "b.rb", "c.rb"}
	seen := 0
	err := ix.IndexAll(uris, nil, classWalkerParser{}, FileOptions{}, func(processed, total int) bool {
		seen++
		return seen < 2
	})
	require.NoError(t, err)
	assert.Equal(t, 2, seen)

	// Partial work is retained: the first two files are still indexed even
	// though iteration halted before the third (spec.md §5).
	widget := ix.Get("Widget")
	require.Len(t, widget, 2)
	assert.NotContains(t, []entry.URI{widget[0].URI, widget[1].URI}, entry.URI("c.rb"))
}

func TestIndexAll_EmptyIsANoOp(t *testing.T) {
	ix := New()
	called := false
	err := ix.IndexAll(nil, nil, classWalkerParser{}, FileOptions{}, func(int, int) bool {
		called = true
		return true
	})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestPrefixSearch_NoNesting(t *testing.T) {
	ix := New()
	addModule(ix, "Abc", []string{"Abc"})
	addModule(ix, "Abd", []string{"Abd"})
	addModule(ix, "Xyz", []string{"Xyz"})

	results := ix.PrefixSearch("Ab", nil)
	names := make([]string, len(results))
	for i, e := range results {
		names[i] = e.FullName()
	}
	assert.ElementsMatch(t, []string{"Abc", "Abd"}, names)
}

func TestPrefixSearch_ClimbsNestingFromDeepest(t *testing.T) {
	ix := New()
	addModule(ix, "A", []string{"A"})
	addModule(ix, "A::B", []string{"A", "B"})
	addConstant(ix, "A::Target")

	results := ix.PrefixSearch("Target", []string{"A", "B"})
	require.Len(t, results, 1)
	assert.Equal(t, "A::Target", results[0].FullName())
}

func TestFuzzySearch_NilQueryReturnsAllNonSingleton(t *testing.T) {
	ix := New()
	addClass(ix, "Widget", []string{"Widget"}, "::Object", true)

	all := ix.FuzzySearch(nil)
	found := false
	for _, e := range all {
		if e.FullName() == "Widget" {
			found = true
		}
		assert.NotEqual(t, entry.KindSingletonClass, e.Kind)
	}
	assert.True(t, found)
}

func TestFuzzySearch_MatchesCloseSpelling(t *testing.T) {
	ix := New()
	addClass(ix, "Widget", []string{"Widget"}, "::Object", true)

	query := "Widgt"
	results := ix.FuzzySearch(&query)
	require.NotEmpty(t, results)
	assert.Equal(t, "Widget", results[0].FullName())
}

func TestFuzzySearch_NoMatchBelowThreshold(t *testing.T) {
	ix := New()
	addClass(ix, "Widget", []string{"Widget"}, "::Object", true)

	query := "CompletelyUnrelatedName"
	results := ix.FuzzySearch(&query)
	for _, e := range results {
		assert.NotEqual(t, "Widget", e.FullName())
	}
}
