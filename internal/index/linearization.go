// Ancestor linearization and method resolution (spec.md §4.4.3/§4.4.4), plus
// the constant/method completion candidate queries (§4.4.5). Grounded on
// internal/core/universal_graph.go's cached, hash-invalidated adjacency
// computation (here specialized to the fixed
// prepend/self/include/superclass order spec.md §4.4.3 mandates) and
// internal/core/symbol.go's owner-scoped member lookup.
package index

import (
	"regexp"
	"sort"
	"strings"

	"github.com/shopify/symbolindex/internal/entry"
	"github.com/shopify/symbolindex/internal/location"
)

var singletonSuffixRE = regexp.MustCompile(`::<Class:[^>]*>$`)

// parseSingletonLevels strips trailing "::<Class:...>" segments from name,
// repeatedly, returning how many were stripped and the name of the
// ultimate attached namespace.
func parseSingletonLevels(name string) (levels int, attached string) {
	attached = name
	for {
		loc := singletonSuffixRE.FindStringIndex(attached)
		if loc == nil {
			break
		}
		attached = attached[:loc[0]]
		levels++
	}
	return levels, attached
}

func lastSegment(full string) string {
	parts := strings.Split(full, "::")
	return parts[len(parts)-1]
}

func singletonNameOf(base string, levels int) string {
	name := base
	for i := 0; i < levels; i++ {
		name = name + "::<Class:" + lastSegment(name) + ">"
	}
	return name
}

// ExistingOrNewSingletonClass returns the (possibly newly materialized)
// SingletonClass entry attached to attachedFullName (spec.md §4.4,
// invariant I5). A freshly created entry shares the attached namespace's
// file origin.
func (ix *Index) ExistingOrNewSingletonClass(attachedFullName string) *entry.Entry {
	full := singletonNameOf(attachedFullName, 1)
	if bucket := ix.entries[full]; len(bucket) > 0 {
		return bucket[0]
	}
	nesting := append(strings.Split(attachedFullName, "::"), "<Class:"+lastSegment(attachedFullName)+">")
	var uri entry.URI
	if attachedBucket := ix.entries[attachedFullName]; len(attachedBucket) > 0 {
		uri = attachedBucket[0].URI
	}
	e := entry.NewSingletonClass(full, uri, location.Zero, location.Zero, nesting, attachedFullName)
	ix.Add(e, false)
	return e
}

// LinearizedAncestorsOf implements spec.md §4.4.3: the ordered dispatch
// chain (prepends, self, includes in reverse insertion order, superclass)
// for name. The result is cached in ix.ancestors; the cache entry is seeded
// with []string{name} before recursion begins so that cyclic source code
// (a module that indirectly includes itself) terminates with a well-defined
// partial result instead of overflowing the stack (spec.md §9).
func (ix *Index) LinearizedAncestorsOf(name string) []string {
	if cached, ok := ix.ancestors[name]; ok {
		return cached
	}

	levels, attached := parseSingletonLevels(name)
	bucket := ix.entries[name]
	if len(bucket) == 0 && levels > 0 {
		if attachedBucket := ix.entries[attached]; len(attachedBucket) > 0 {
			ix.ExistingOrNewSingletonClass(attached)
			bucket = ix.entries[name]
		}
	}
	if len(bucket) == 0 {
		return nil // NonExistingNamespace (spec.md §7): surfaced as nil.
	}

	baseline := bucket[0].Nesting
	for _, e := range bucket {
		if e.Kind == entry.KindConstantAlias {
			if aliased := ix.entries[e.Target]; len(aliased) > 0 {
				bucket = aliased
				baseline = bucket[0].Nesting
			}
			break
		}
	}

	ancestors := []string{name}
	ix.ancestors[name] = ancestors // eager cache write breaks cycles

	if levels > 0 {
		for _, hook := range ix.includedHooks[attached] {
			hook(ix, name)
		}
		bucket = ix.entries[name]
	}

	selfIndex := 0
	prependedCount := 0

	for _, e := range bucket {
		if !e.IsNamespace() {
			continue
		}
		for _, op := range e.MixinOperations {
			moduleFull := ix.resolveSimple(op.ModuleName, baseline)
			if moduleFull == "" {
				continue // unresolvable mixin target is skipped, not fatal
			}
			modAncestors := ix.LinearizedAncestorsOf(moduleFull)
			if len(modAncestors) == 0 {
				continue
			}

			switch op.Kind {
			case entry.Prepend:
				overlapLimit := prependedCount
				if overlapLimit > len(ancestors) {
					overlapLimit = len(ancestors)
				}
				alreadyPrepended := ancestors[:overlapLimit]
				uniq := filterNotPresent(modAncestors, alreadyPrepended)
				insertAt := len(modAncestors) - len(uniq)
				if insertAt < 0 {
					insertAt = 0
				}
				if insertAt > len(ancestors) {
					insertAt = len(ancestors)
				}
				ancestors = insertSlice(ancestors, insertAt, uniq)
				prependedCount += len(modAncestors) // duplicates included
				selfIndex += len(uniq)
			default: // Include (extend is modelled as Include on a singleton)
				insertAt := selfIndex + 1
				if insertAt > len(ancestors) {
					insertAt = len(ancestors)
				}
				uniq := filterNotPresent(modAncestors, ancestors)
				ancestors = insertSlice(ancestors, insertAt, uniq)
			}
		}
	}

	ancestors = ix.appendSuperclass(ancestors, name, levels, attached, bucket)
	ix.ancestors[name] = ancestors
	return ancestors
}

func (ix *Index) appendSuperclass(ancestors []string, name string, levels int, attached string, bucket []*entry.Entry) []string {
	if levels == 0 {
		for _, e := range bucket {
			if e.Kind == entry.KindClass && e.HasParentClass {
				parentFull := ix.resolveSimple(e.ParentClass, e.Nesting)
				if parentFull == "" || parentFull == name {
					return ancestors // unresolvable or self-inheritance guard
				}
				return append(ancestors, ix.LinearizedAncestorsOf(parentFull)...)
			}
		}
		return ancestors // Module: no superclass step
	}
	return ix.appendSingletonSuper(ancestors, attached, levels)
}

// appendSingletonSuper implements the singleton half of spec.md §4.4.3 step
// 8: a class singleton's chain climbs through its attached class's own
// superclass chain (each level re-singletonized) until it bottoms out at
// BasicObject, where it joins Class's own singleton chain; a module
// singleton joins Module's singleton chain directly.
func (ix *Index) appendSingletonSuper(ancestors []string, attached string, levels int) []string {
	attachedBucket := ix.entries[attached]
	if len(attachedBucket) == 0 {
		return ancestors
	}
	attachedEntry := attachedBucket[0]

	if attachedEntry.Kind == entry.KindClass {
		if attachedEntry.HasParentClass {
			parentFull := ix.resolveSimple(attachedEntry.ParentClass, attachedEntry.Nesting)
			if parentFull != "" && parentFull != attached {
				return append(ancestors, ix.LinearizedAncestorsOf(singletonNameOf(parentFull, levels))...)
			}
		}
		return append(ancestors, ix.LinearizedAncestorsOf(singletonNameOf("Class", levels))...)
	}
	return append(ancestors, ix.LinearizedAncestorsOf(singletonNameOf("Module", levels))...)
}

func filterNotPresent(candidates, existing []string) []string {
	present := make(map[string]bool, len(existing))
	for _, e := range existing {
		present[e] = true
	}
	var out []string
	for _, c := range candidates {
		if !present[c] {
			out = append(out, c)
		}
	}
	return out
}

func insertSlice(base []string, at int, items []string) []string {
	if len(items) == 0 {
		return base
	}
	out := make([]string, 0, len(base)+len(items))
	out = append(out, base[:at]...)
	out = append(out, items...)
	out = append(out, base[at:]...)
	return out
}

// ResolveMethod implements spec.md §4.4.4: the entries that would be
// dispatched to at runtime for name on receiver, walking receiver's
// linearized ancestors in order and returning the first owner with a
// matching member. inheritedOnly skips the receiver's own namespace.
func (ix *Index) ResolveMethod(name, receiver string, inheritedOnly bool) []*entry.Entry {
	return ix.resolveMethodSeen(name, receiver, inheritedOnly, map[string]bool{})
}

func (ix *Index) resolveMethodSeen(name, receiver string, inheritedOnly bool, seen map[string]bool) []*entry.Entry {
	bucket := ix.entries[name]
	if len(bucket) == 0 {
		return nil
	}
	ancestors := ix.LinearizedAncestorsOf(receiver)
	if len(ancestors) == 0 {
		return nil
	}
	for i, anc := range ancestors {
		if inheritedOnly && i == 0 {
			continue
		}
		var owned []*entry.Entry
		for _, e := range bucket {
			if e.IsMember() && e.Owner == anc {
				owned = append(owned, e)
			}
		}
		if len(owned) == 0 {
			continue
		}
		return ix.resolveMemberAliases(owned, receiver, seen)
	}
	return nil
}

// resolveMemberAliases resolves any UnresolvedMethodAlias in owned, in
// place, the same way resolveAliasEntry resolves constant aliases: a name
// already present in seen breaks a cycle and the alias is left unresolved.
func (ix *Index) resolveMemberAliases(owned []*entry.Entry, receiver string, seen map[string]bool) []*entry.Entry {
	out := make([]*entry.Entry, 0, len(owned))
	for _, e := range owned {
		if e.Kind != entry.KindUnresolvedMethodAlias {
			out = append(out, e)
			continue
		}
		if seen[e.NewName] {
			out = append(out, e)
			continue
		}
		target := ix.resolveMethodSeen(e.OldName, receiver, false, withSeen(seen, e.NewName))
		if len(target) == 0 {
			out = append(out, e)
			continue
		}
		e.Kind = entry.KindMethodAlias
		e.ResolvedAlias = target[0]
		out = append(out, e)
	}
	return out
}

// ConstantCompletionCandidates implements spec.md §4.4.5: the union of
// entries matching nesting::name via prefix, entries matching name at each
// ancestor of nesting's deepest resolvable chain, and entries matching name
// at top level, deduplicated.
func (ix *Index) ConstantCompletionCandidates(name string, nesting []string) []*entry.Entry {
	seen := make(map[*entry.Entry]bool)
	var out []*entry.Entry
	add := func(entries []*entry.Entry) {
		for _, e := range entries {
			if !seen[e] {
				seen[e] = true
				out = append(out, e)
			}
		}
	}

	if strings.HasPrefix(name, "::") {
		add(flattenBuckets(ix.entriesTree.Search(strings.TrimPrefix(name, "::"))))
		return out
	}

	full := name
	if len(nesting) > 0 {
		full = strings.Join(nesting, "::") + "::" + name
	}
	add(flattenBuckets(ix.entriesTree.Search(full)))

	if len(nesting) > 0 {
		if nsBucket := ix.directOrAliasedLookup(strings.Join(nesting, "::"), map[string]bool{}); len(nsBucket) > 0 {
			nsFull := ultimateName(nsBucket[0])
			for _, anc := range ix.LinearizedAncestorsOf(nsFull) {
				add(flattenBuckets(ix.entriesTree.Search(anc + "::" + name)))
			}
		}
	}

	add(flattenBuckets(ix.entriesTree.Search(name)))
	return out
}

// MethodCompletionCandidates implements spec.md §4.4.5: candidates whose
// owner lies in receiver's linearized ancestor chain, keeping only the
// shadowing (lowest ancestor index) entry per method name.
func (ix *Index) MethodCompletionCandidates(name *string, receiver string) []*entry.Entry {
	var candidates []*entry.Entry
	if name == nil {
		for _, key := range ix.nameOrder {
			candidates = append(candidates, ix.entries[key]...)
		}
	} else {
		candidates = flattenBuckets(ix.entriesTree.Search(*name))
	}

	ancestors := ix.LinearizedAncestorsOf(receiver)
	ancIndex := make(map[string]int, len(ancestors))
	for i, a := range ancestors {
		if _, ok := ancIndex[a]; !ok {
			ancIndex[a] = i
		}
	}

	type shadowed struct {
		e   *entry.Entry
		idx int
	}
	best := make(map[string]shadowed)
	for _, e := range candidates {
		if !e.IsMember() {
			continue
		}
		resolved := e
		if e.Kind == entry.KindUnresolvedMethodAlias {
			r := ix.resolveMemberAliases([]*entry.Entry{e}, receiver, map[string]bool{})
			if len(r) == 0 {
				continue
			}
			resolved = r[0]
		}
		idx, ok := ancIndex[resolved.Owner]
		if !ok {
			continue
		}
		if cur, exists := best[resolved.Name]; !exists || idx < cur.idx {
			best[resolved.Name] = shadowed{resolved, idx}
		}
	}

	out := make([]*entry.Entry, 0, len(best))
	for _, s := range best {
		out = append(out, s.e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ResolveInstanceVariable returns every InstanceVariable entry named var
// owned by owner.
func (ix *Index) ResolveInstanceVariable(varName, owner string) []*entry.Entry {
	var out []*entry.Entry
	for _, e := range ix.entries[varName] {
		if e.Kind == entry.KindInstanceVariable && e.HasVarOwner && e.VarOwner == owner {
			out = append(out, e)
		}
	}
	return out
}

// InstanceVariableCompletionCandidates returns instance variables owned by
// owner whose name starts with prefix.
func (ix *Index) InstanceVariableCompletionCandidates(prefix, owner string) []*entry.Entry {
	var out []*entry.Entry
	for _, e := range flattenBuckets(ix.entriesTree.Search(prefix)) {
		if e.Kind == entry.KindInstanceVariable && e.HasVarOwner && e.VarOwner == owner {
			out = append(out, e)
		}
	}
	return out
}
