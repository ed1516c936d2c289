// Package rbsadjunct implements the RBS adjunct adapter (spec.md §2,
// "Adapter that feeds type-signature declarations into the index"). The RBS
// parser itself is an external collaborator spec.md explicitly places out
// of scope ("specified only via the interfaces it calls"); this package is
// that interface: a small adapter that takes an already-parsed
// (owner, method, Signature) triple and layers it onto the matching Method
// or Accessor entries already in the Index, modeling an overload overlay
// (entry.Entry.Signatures is a slice for exactly this reason).
//
// Grounded on the teacher's internal/symbollinker adapters
// (go_resolver.go, php_resolver.go, python_resolver.go): one small adapter
// type per external signal source, each calling into the shared index/
// resolver rather than owning its own store.
package rbsadjunct

import "github.com/shopify/symbolindex/internal/entry"

// MemberStore is the subset of Index's surface this adapter depends on.
type MemberStore interface {
	Get(fullName string) []*entry.Entry
}

// Declaration is one RBS signature declaration: owner's method named Name
// accepts Signature's parameter shape. Owner is the fully qualified
// namespace name (e.g. "Foo::Bar"); Name is the bare method name.
type Declaration struct {
	Owner     string
	Name      string
	Signature entry.Signature
}

// Adapter feeds Declarations into an Index's existing Method/Accessor
// entries. It owns no state of its own; every call resolves against the
// store supplied to New.
type Adapter struct {
	store MemberStore
}

// New constructs an Adapter that layers declarations onto store.
func New(store MemberStore) *Adapter {
	return &Adapter{store: store}
}

// Apply attaches decl's Signature to every Method/Accessor entry in the
// store whose Owner and Name match decl. It returns the number of entries
// updated; zero means no matching member existed yet (the RBS declaration
// arrived for a method the index hasn't seen, or never will — e.g. a
// signature for a method defined in a file outside the indexed set), which
// callers may choose to surface as an IndexingError but which this adapter
// treats as a normal, non-fatal outcome.
func (a *Adapter) Apply(decl Declaration) int {
	bucket := a.store.Get(decl.Name)
	updated := 0
	for _, e := range bucket {
		if (e.Kind != entry.KindMethod && e.Kind != entry.KindAccessor) || e.Owner != decl.Owner {
			continue
		}
		e.Signatures = append(e.Signatures, decl.Signature)
		updated++
	}
	return updated
}

// ApplyAll applies every declaration in decls, returning the total number
// of entries updated across all of them.
func (a *Adapter) ApplyAll(decls []Declaration) int {
	total := 0
	for _, decl := range decls {
		total += a.Apply(decl)
	}
	return total
}
