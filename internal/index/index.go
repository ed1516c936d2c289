// Package index implements the central symbol store (spec.md §4.4): a
// name-keyed map of Entry buckets, a file-keyed reverse map for deletion, a
// require-path trie, and lazily populated/invalidated ancestor and alias
// caches. It is single-threaded and holds no locks; every exported method
// must be serialized by the caller (spec.md §5). Grounded on the teacher's
// central mutable store (internal/indexing/master_index.go: name-keyed
// maps, explicit cache invalidation) and internal/core/symbol.go
// (definitions/references maps keyed by name), stripped of all
// concurrency machinery since spec.md §5 mandates none.
package index

import (
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"

	"github.com/shopify/symbolindex/internal/entry"
	"github.com/shopify/symbolindex/internal/enhancement"
	"github.com/shopify/symbolindex/internal/idxerrors"
	"github.com/shopify/symbolindex/internal/listener"
	"github.com/shopify/symbolindex/internal/location"
	"github.com/shopify/symbolindex/internal/prefixtree"
)

// IncludedHookFunc runs when a singleton scope linearizes its attached
// class, letting registered hooks add mixin operations before mixin
// linearization proceeds (spec.md §4.4.3 step 6).
type IncludedHookFunc func(ix *Index, namespaceFullName string)

// Walker is supplied by the caller and must invoke l's exported methods in
// depth-first source order with matching enter/leave pairs. The concrete
// syntax tree producer and its dispatcher are external collaborators
// (spec.md §1/§6); Index never constructs or imports one.
type Walker func(l *listener.Listener) error

// Parser turns file content into a Walker. Like Walker itself, this is the
// seam at which the external CST producer plugs in.
type Parser interface {
	Parse(uri entry.URI, content []byte, encoding location.Encoding) (Walker, error)
}

// FileOptions configures one index_single/handle_change call.
type FileOptions struct {
	Encoding               location.Encoding
	CollectComments        bool
	CommentSource          listener.CommentSource
	ExcludedMagicComments  []string
	RequirePath            string // optional logical require path for this file
}

// Index is the central, single-owner symbol store.
type Index struct {
	entries        map[string][]*entry.Entry
	entriesTree    *prefixtree.PrefixTree[[]*entry.Entry]
	nameOrder      []string
	filesToEntries map[entry.URI][]*entry.Entry

	requirePaths     *prefixtree.PrefixTree[entry.URI]
	uriToRequirePath map[entry.URI]string

	ancestors map[string][]string

	includedHooks map[string][]IncludedHookFunc
	enhancements  []enhancement.Enhancement

	indexingErrors []*idxerrors.IndexingError

	log *slog.Logger
}

// New constructs an empty Index and seeds the four bootstrap namespaces
// (BasicObject, Object, Module, Class) that every linearization ultimately
// bottoms out at (spec.md §8 scenario 1 assumes "Object is known", the way
// a real deployment would seed them from core-library stub files — an
// external collaborator this module does not implement). Grounded on
// internal/indexing/master_index.go's explicit-constructor-no-globals shape
// (spec.md §9: "Global mutable state... should be a single process-owned
// object with an explicit constructor").
func New() *Index {
	ix := &Index{
		entries:          make(map[string][]*entry.Entry),
		entriesTree:      prefixtree.New[[]*entry.Entry](),
		filesToEntries:   make(map[entry.URI][]*entry.Entry),
		requirePaths:     prefixtree.New[entry.URI](),
		uriToRequirePath: make(map[entry.URI]string),
		ancestors:        make(map[string][]string),
		includedHooks:    make(map[string][]IncludedHookFunc),
		log:              slog.New(slog.NewTextHandler(os.Stderr, nil)),
	}
	ix.seedBuiltins()
	return ix
}

func (ix *Index) seedBuiltins() {
	const builtin entry.URI = "<builtin>"
	basicObject := entry.NewClass("BasicObject", builtin, location.Zero, location.Zero, []string{"BasicObject"}, "", false)
	object := entry.NewClass("Object", builtin, location.Zero, location.Zero, []string{"Object"}, "::BasicObject", true)
	module := entry.NewClass("Module", builtin, location.Zero, location.Zero, []string{"Module"}, "::Object", true)
	class := entry.NewClass("Class", builtin, location.Zero, location.Zero, []string{"Class"}, "::Module", true)
	for _, e := range []*entry.Entry{basicObject, object, module, class} {
		ix.Add(e, false)
	}
}

// Add pushes entry e into entries[name], files_to_entries[uri], and
// (unless skipPrefixTree) entries_tree, keyed uniformly by e.FullName()
// (the spec's data model defines a namespace's own "name" field as its
// joined nesting; our Entry splits that into Name/FullName(), so every
// index-level keying operation uses FullName()).
func (ix *Index) Add(e *entry.Entry, skipPrefixTree bool) {
	key := e.FullName()
	if _, seen := ix.entries[key]; !seen {
		ix.nameOrder = append(ix.nameOrder, key)
	}
	ix.entries[key] = append(ix.entries[key], e)
	ix.filesToEntries[e.URI] = append(ix.filesToEntries[e.URI], e)
	if !skipPrefixTree {
		ix.entriesTree.Insert(key, ix.entries[key])
	}
}

// Delete removes every entry discovered in uri, pruning empty name buckets
// from both entries and entries_tree, and removes the file's require-path
// entry. The ancestors cache is untouched here; handle_change decides that.
func (ix *Index) Delete(uri entry.URI) {
	removed := ix.filesToEntries[uri]
	delete(ix.filesToEntries, uri)

	touched := make(map[string]bool, len(removed))
	for _, e := range removed {
		touched[e.FullName()] = true
	}
	for key := range touched {
		bucket := ix.entries[key]
		kept := bucket[:0:0]
		for _, e := range bucket {
			if e.URI != uri {
				kept = append(kept, e)
			}
		}
		if len(kept) == 0 {
			delete(ix.entries, key)
			ix.entriesTree.Delete(key)
			ix.removeFromNameOrder(key)
		} else {
			ix.entries[key] = kept
			ix.entriesTree.Insert(key, kept)
		}
	}

	if path, ok := ix.uriToRequirePath[uri]; ok {
		ix.requirePaths.Delete(path)
		delete(ix.uriToRequirePath, uri)
	}
}

func (ix *Index) removeFromNameOrder(key string) {
	for i, k := range ix.nameOrder {
		if k == key {
			ix.nameOrder = append(ix.nameOrder[:i], ix.nameOrder[i+1:]...)
			return
		}
	}
}

// IndexSingle parses source (reading it from disk when nil — the one
// blocking call spec.md §5 permits) and runs the listener over it,
// replacing uri's prior entries. Missing files and directories are
// silently skipped (spec.md §7 "IO absent/directory"); parse failures are
// recorded as IndexingErrors and do not abort indexing.
func (ix *Index) IndexSingle(uri entry.URI, source []byte, parser Parser, opts FileOptions) error {
	if source == nil {
		data, err := os.ReadFile(string(uri))
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			if info, statErr := os.Stat(string(uri)); statErr == nil && info.IsDir() {
				return nil
			}
			ix.log.Warn("index_single: read failed", "uri", string(uri), "err", err)
			ix.indexingErrors = append(ix.indexingErrors, idxerrors.NewIndexingError(string(uri), "index_single", err))
			return nil
		}
		source = data
	}

	walk, err := parser.Parse(uri, source, opts.Encoding)
	if err != nil {
		ix.log.Warn("index_single: parse failed", "uri", string(uri), "err", err)
		ix.indexingErrors = append(ix.indexingErrors, idxerrors.NewIndexingError(string(uri), "parse", err))
		return nil
	}

	l := listener.New(uri, listener.Options{
		CollectComments:       opts.CollectComments,
		CommentSource:         opts.CommentSource,
		ExcludedMagicComments: opts.ExcludedMagicComments,
		Enhancements:          ix.enhancements,
	})
	if err := walk(l); err != nil {
		ix.log.Warn("index_single: walk failed", "uri", string(uri), "err", err)
		ix.indexingErrors = append(ix.indexingErrors, idxerrors.NewIndexingError(string(uri), "walk", err))
		return nil
	}

	ix.Delete(uri)
	for _, e := range l.Entries() {
		ix.Add(e, false)
	}
	ix.indexingErrors = append(ix.indexingErrors, l.IndexingErrors()...)

	if opts.RequirePath != "" {
		ix.requirePaths.Insert(opts.RequirePath, uri)
		ix.uriToRequirePath[uri] = opts.RequirePath
	}
	return nil
}

// ProgressFunc is invoked by IndexAll at ~1% increments of files processed
// (spec.md §5). Returning false halts iteration at the next file boundary;
// every file indexed before that point is retained, since bulk indexing
// performs no rollback.
type ProgressFunc func(processed, total int) bool

// SourceFunc supplies pre-read file content for one IndexAll member, or nil
// to let IndexSingle read the file from disk itself.
type SourceFunc func(uri entry.URI) []byte

// IndexAll runs IndexSingle over every uri in order, reporting progress at
// ~1% increments via progress (which may be nil). It is the bulk counterpart
// to IndexSingle described in spec.md §5; like IndexSingle, an individual
// file's I/O or parse failure is recorded as an IndexingError and does not
// abort the remaining files. Grounded on the teacher's indexing-progress
// reporting (internal/mcp/index_management_tools.go's FilesProcessed/
// TotalFiles counters), stripped of its goroutine/channel machinery since
// spec.md §5 runs this single-threaded and cooperative.
func (ix *Index) IndexAll(uris []entry.URI, source SourceFunc, parser Parser, opts FileOptions, progress ProgressFunc) error {
	total := len(uris)
	if total == 0 {
		return nil
	}
	lastPct := -1
	for i, uri := range uris {
		var content []byte
		if source != nil {
			content = source(uri)
		}
		if err := ix.IndexSingle(uri, content, parser, opts); err != nil {
			return err
		}
		if progress == nil {
			continue
		}
		processed := i + 1
		pct := processed * 100 / total
		if pct == lastPct {
			continue
		}
		lastPct = pct
		if !progress(processed, total) {
			return nil
		}
	}
	return nil
}

// HandleChange is delete(uri) + index_single(uri), with one post-step: if
// any namespace's (mixin_operations, parent_class) hash changed between the
// two runs, the entire ancestors cache is cleared (spec.md §4.4, invariant
// I3). Finer invalidation is deliberately not attempted.
func (ix *Index) HandleChange(uri entry.URI, source []byte, parser Parser, opts FileOptions) error {
	before := ix.namespaceHashSnapshot()
	ix.Delete(uri)
	if err := ix.IndexSingle(uri, source, parser, opts); err != nil {
		return err
	}
	after := ix.namespaceHashSnapshot()
	if !hashSnapshotsEqual(before, after) {
		ix.ancestors = make(map[string][]string)
	}
	return nil
}

func (ix *Index) namespaceHashSnapshot() map[string]uint64 {
	snap := make(map[string]uint64, len(ix.entries))
	for key, bucket := range ix.entries {
		var h uint64
		any := false
		for _, e := range bucket {
			if e.IsNamespace() {
				h ^= e.MixinHash()
				any = true
			}
		}
		if any {
			snap[key] = h
		}
	}
	return snap
}

func hashSnapshotsEqual(a, b map[string]uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

// Get strips a single leading "::" and returns the bucket at full_name, or
// nil if no such bucket exists.
func (ix *Index) Get(fullName string) []*entry.Entry {
	return ix.entries[strings.TrimPrefix(fullName, "::")]
}

// FirstUnqualifiedConst returns the first bucket (in name-insertion order)
// whose key ends with name.
func (ix *Index) FirstUnqualifiedConst(name string) []*entry.Entry {
	for _, key := range ix.nameOrder {
		if strings.HasSuffix(key, name) {
			if bucket := ix.entries[key]; len(bucket) > 0 {
				return bucket
			}
		}
	}
	return nil
}

// PrefixSearch performs a trie lookup for query; when nesting is non-empty,
// the prefix nesting[0..i]+"::"+query is tried at each enclosing scope from
// deepest to top-level, concatenated and de-duplicated.
func (ix *Index) PrefixSearch(query string, nesting []string) []*entry.Entry {
	if len(nesting) == 0 {
		return flattenBuckets(ix.entriesTree.Search(query))
	}
	seen := make(map[*entry.Entry]bool)
	var out []*entry.Entry
	for i := len(nesting); i >= 0; i-- {
		full := query
		if i > 0 {
			full = strings.Join(nesting[:i], "::") + "::" + query
		}
		for _, e := range flattenBuckets(ix.entriesTree.Search(full)) {
			if !seen[e] {
				seen[e] = true
				out = append(out, e)
			}
		}
	}
	return out
}

// SearchRequirePaths performs a trie lookup over require paths, returning
// the URIs registered under paths matching query as a prefix.
func (ix *Index) SearchRequirePaths(query string) []entry.URI {
	return ix.requirePaths.Search(query)
}

func flattenBuckets(buckets [][]*entry.Entry) []*entry.Entry {
	var out []*entry.Entry
	for _, b := range buckets {
		out = append(out, b...)
	}
	return out
}

// FuzzySearch returns all non-singleton entries when query is nil, or
// entries whose normalized (colons stripped, lower-cased) name has
// Jaro-Winkler similarity >= 0.7 to the normalized query, sorted by
// descending similarity. Grounded on internal/semantic/fuzzy_matcher.go's
// use of github.com/hbollon/go-edlib for the same algorithm.
func (ix *Index) FuzzySearch(query *string) []*entry.Entry {
	var candidates []*entry.Entry
	for _, bucket := range ix.entries {
		for _, e := range bucket {
			if e.Kind == entry.KindSingletonClass {
				continue
			}
			candidates = append(candidates, e)
		}
	}
	if query == nil {
		return candidates
	}

	type scored struct {
		e     *entry.Entry
		score float64
	}
	normQuery := normalizeFuzzy(*query)
	var matches []scored
	for _, e := range candidates {
		sim, err := edlib.StringsSimilarity(normalizeFuzzy(e.FullName()), normQuery, edlib.JaroWinkler)
		if err != nil {
			continue
		}
		if sim >= 0.7 {
			matches = append(matches, scored{e, sim})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })
	out := make([]*entry.Entry, len(matches))
	for i, m := range matches {
		out[i] = m.e
	}
	return out
}

func normalizeFuzzy(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, "::", ""))
}

// RegisterEnhancement adds enh to the set notified on every call node seen
// by subsequent IndexSingle/HandleChange calls.
func (ix *Index) RegisterEnhancement(enh enhancement.Enhancement) {
	ix.enhancements = append(ix.enhancements, enh)
}

// RegisterIncludedHook registers fn under moduleName. Hooks are looked up by
// the attached namespace's full name: fn runs, with the singleton's full
// name, each time a singleton class attached to moduleName is linearized
// (spec.md §4.4.3 step 6). The modules a namespace includes are not
// consulted when choosing which hooks run.
func (ix *Index) RegisterIncludedHook(moduleName string, fn IncludedHookFunc) {
	ix.includedHooks[moduleName] = append(ix.includedHooks[moduleName], fn)
}

// IndexingErrors returns every IndexingError recorded so far.
func (ix *Index) IndexingErrors() []*idxerrors.IndexingError {
	return ix.indexingErrors
}
