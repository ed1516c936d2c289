// Constant resolution (spec.md §4.4.1/§4.4.2): direct-or-aliased lookup,
// follow_aliased_namespace, and the depth-by-depth nesting walk. Grounded
// on the same internal/indexing/master_index.go name-keyed map design as
// index.go, specialized here to alias chasing with a seen-names cycle
// guard (spec.md §9).
package index

import (
	"strings"

	"github.com/shopify/symbolindex/internal/entry"
	"github.com/shopify/symbolindex/internal/idxerrors"
)

// ResolveConstant implements spec.md §4.4.1: given a name (possibly
// "::"-prefixed) and a lexical nesting, return the bucket of entries it
// refers to, or nil if nothing resolves. Resolving an UnresolvedConstantAlias
// along the way mutates it in place into a ConstantAlias (invariant I4); the
// mutation is observed by every other holder of the same *Entry pointer, so
// entries and entries_tree never fall out of sync (invariant I2).
func (ix *Index) ResolveConstant(name string, nesting []string) []*entry.Entry {
	return ix.resolveConstantSeen(name, nesting, map[string]bool{})
}

func (ix *Index) resolveConstantSeen(name string, nesting []string, seen map[string]bool) []*entry.Entry {
	if strings.HasPrefix(name, "::") {
		// step 1: absolute reference, no nesting climb applies.
		return ix.directOrAliasedLookup(strings.TrimPrefix(name, "::"), seen)
	}

	// step 2: full qualification under the entire nesting.
	full := name
	if len(nesting) > 0 {
		full = strings.Join(nesting, "::") + "::" + name
	}
	if res := ix.directOrAliasedLookup(full, seen); len(res) > 0 {
		return res
	}

	// step 3: walk enclosing lexical scopes from deepest to depth 1.
	for i := len(nesting) - 1; i >= 1; i-- {
		candidate := strings.Join(nesting[:i], "::") + "::" + name
		if res := ix.directOrAliasedLookup(candidate, seen); len(res) > 0 {
			return res
		}
	}

	// step 4: ancestor chain of the non-redundant qualification's namespace
	// part.
	nestingParts, leaf := nonRedundantQualification(name, nesting)
	if len(nestingParts) > 0 {
		nsKey := strings.Join(nestingParts, "::")
		if nsBucket := ix.directOrAliasedLookup(nsKey, seen); len(nsBucket) > 0 {
			nsFull := ultimateName(nsBucket[0])
			for _, anc := range ix.LinearizedAncestorsOf(nsFull) {
				if res := ix.directOrAliasedLookup(anc+"::"+leaf, seen); len(res) > 0 {
					return res
				}
			}
		}
	}

	// step 5: top-level, name alone.
	if res := ix.directOrAliasedLookup(name, seen); len(res) > 0 {
		return res
	}

	// step 6.
	return nil
}

// nonRedundantQualification implements spec.md §4.4.1's "non-redundant
// qualification": an unqualified name is simply prepended with nesting; a
// qualified name that already overlaps the current nesting (e.g. nesting
// ["A","B"] and name "A::B::Foo") is kept as-is rather than prepended again,
// avoiding paths like "A::B::A::B::Foo".
func nonRedundantQualification(name string, nesting []string) (nestingParts []string, leaf string) {
	parts := strings.Split(name, "::")
	leaf = parts[len(parts)-1]
	if len(parts) == 1 {
		return append([]string{}, nesting...), leaf
	}

	nestingSet := make(map[string]bool, len(nesting))
	for _, n := range nesting {
		nestingSet[n] = true
	}
	idx := 0
	for idx < len(parts)-1 && nestingSet[parts[idx]] {
		idx++
	}
	if idx == 0 {
		full := append([]string{}, nesting...)
		full = append(full, parts[:len(parts)-1]...)
		return full, leaf
	}
	return append([]string{}, parts[:len(parts)-1]...), leaf
}

// directOrAliasedLookup tries key directly, falling back to
// follow_aliased_namespace when no bucket exists at that exact key. Every
// UnresolvedConstantAlias found in the resulting bucket is resolved (lazily,
// in place) before the bucket is returned.
func (ix *Index) directOrAliasedLookup(key string, seen map[string]bool) []*entry.Entry {
	bucket, ok := ix.entries[key]
	if !ok {
		resolvedKey, err := ix.followAliasedNamespace(key, seen)
		if err != nil {
			return nil
		}
		bucket, ok = ix.entries[resolvedKey]
		if !ok {
			return nil
		}
	}
	for _, e := range bucket {
		if e.Kind == entry.KindUnresolvedConstantAlias {
			ix.resolveAliasEntry(e, seen)
		}
	}
	return bucket
}

// followAliasedNamespace implements spec.md §4.4.2: for a multi-segment
// name, walk segments right-to-left testing each prefix as a possible
// constant alias; on a hit, substitute the prefix with the alias's resolved
// target and prepend the remaining suffix. Returns UnresolvableAlias when a
// candidate prefix resolves to a still-unresolvable alias; callers treat
// this as "no match".
func (ix *Index) followAliasedNamespace(name string, seen map[string]bool) (string, error) {
	parts := strings.Split(name, "::")
	for i := len(parts) - 2; i >= 0; i-- {
		prefix := strings.Join(parts[:i+1], "::")
		suffix := strings.Join(parts[i+1:], "::")
		bucket := ix.directOrAliasedLookup(prefix, seen)
		if len(bucket) == 0 {
			continue
		}
		switch e := bucket[0]; e.Kind {
		case entry.KindConstantAlias:
			return e.Target + "::" + suffix, nil
		case entry.KindUnresolvedConstantAlias:
			return "", idxerrors.NewUnresolvableAliasError(name)
		default:
			// e.FullName() is the bucket's real key, which differs from the
			// written prefix when the prefix itself was reached through an alias.
			return e.FullName() + "::" + suffix, nil
		}
	}
	return "", idxerrors.NewUnresolvableAliasError(name)
}

// resolveAliasEntry resolves e (an UnresolvedConstantAlias) in place,
// recursively chasing its target under its stored nesting snapshot. A name
// already present in seen breaks a cycle: e is left unresolved rather than
// mutated (spec.md §8: "Circular alias X = Y; Y = X: both remain
// UnresolvedConstantAlias"). The replacement Target is the *ultimate*
// (fully flattened) target name, matching "resolve_constant(alias.name, [])
// returns the alias's ultimate target... alias.target == target.name".
func (ix *Index) resolveAliasEntry(e *entry.Entry, seen map[string]bool) {
	if seen[e.Name] {
		return
	}
	nextSeen := withSeen(seen, e.Name)
	target := ix.resolveConstantSeen(e.Target, e.AliasNesting, nextSeen)
	if len(target) == 0 {
		return
	}
	t0 := target[0]
	if t0.Kind == entry.KindUnresolvedConstantAlias {
		return
	}
	e.Kind = entry.KindConstantAlias
	e.Target = ultimateName(t0)
}

// ultimateName returns e's own fully qualified name, or (for an
// already-resolved ConstantAlias) the name it was flattened to.
func ultimateName(e *entry.Entry) string {
	if e.Kind == entry.KindConstantAlias {
		return e.Target
	}
	return e.FullName()
}

func withSeen(seen map[string]bool, name string) map[string]bool {
	next := make(map[string]bool, len(seen)+1)
	for k := range seen {
		next[k] = true
	}
	next[name] = true
	return next
}

// resolveSimple resolves name under nesting to a single fully qualified
// name, used internally by linearization to resolve mixin module names and
// superclass names. Returns "" when nothing resolves.
func (ix *Index) resolveSimple(name string, nesting []string) string {
	res := ix.resolveConstantSeen(name, nesting, map[string]bool{})
	if len(res) == 0 {
		return ""
	}
	return ultimateName(res[0])
}

// FirstUnresolvedOrAliasedName is a small debugging helper exposing what
// directOrAliasedLookup would do for name. It returns the direct bucket's
// name when one exists; otherwise it follows aliased prefixes, which
// resolves any UnresolvedConstantAlias met on the way in place.
func (ix *Index) FirstUnresolvedOrAliasedName(name string) (string, bool) {
	if bucket, ok := ix.entries[name]; ok && len(bucket) > 0 {
		return bucket[0].FullName(), true
	}
	resolved, err := ix.followAliasedNamespace(name, map[string]bool{})
	if err != nil {
		return "", false
	}
	return resolved, true
}
