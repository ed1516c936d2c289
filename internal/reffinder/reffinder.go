// Package reffinder implements the reference finder (spec.md §4.5): a
// second, independent walking pass over a single file's syntax tree that
// consults an already-built Index rather than re-deriving scope from
// scratch. Grounded on the teacher's internal/core/reference_tracker.go
// (a separate pass that looks up symbols in a pre-built store instead of
// tracking them itself), stripped of that file's multi-language symbol-ID
// machinery and concurrency, since spec.md §5 runs the whole index
// single-threaded and this walker's target is fixed to one
// (kind, name) pair per call.
package reffinder

import (
	"strings"

	"github.com/shopify/symbolindex/internal/entry"
	"github.com/shopify/symbolindex/internal/location"
)

// TargetKind selects which family of occurrence the Finder is collecting
// references for.
type TargetKind int

const (
	TargetConstant TargetKind = iota
	TargetMethod
	TargetInstanceVariable
)

// Target identifies what the Finder is looking for. Name is the fully
// qualified constant name for TargetConstant, the bare method/ivar name for
// TargetMethod and TargetInstanceVariable. Owner additionally scopes
// TargetInstanceVariable to one namespace (instance variables with the same
// name on different classes are distinct bindings).
type Target struct {
	Kind  TargetKind
	Name  string
	Owner string
}

// Reference is one occurrence of Target's binding.
type Reference struct {
	URI         entry.URI
	Location    location.Location
	Declarative bool
}

// Resolver is the subset of Index's query surface the Finder depends on;
// *index.Index satisfies it, so this package does not import internal/index.
type Resolver interface {
	ResolveConstant(name string, nesting []string) []*entry.Entry
}

// Walker is supplied by the caller and must invoke f's exported methods in
// depth-first source order with matching enter/leave pairs, mirroring
// internal/index.Walker. The concrete syntax tree producer and its
// dispatcher are external collaborators; this package never constructs one.
type Walker func(f *Finder) error

// Finder walks one file looking for references to a single Target. It
// tracks its own nesting stack independently of any listener instance, so
// the namespaces it sees agree with how the Index resolves names even
// across separate passes.
type Finder struct {
	uri     entry.URI
	ix      Resolver
	target  Target
	nesting []string

	references []Reference
}

// New constructs a Finder that will collect references to target found
// while walking uri, resolving constants against ix.
func New(uri entry.URI, ix Resolver, target Target) *Finder {
	return &Finder{uri: uri, ix: ix, target: target}
}

// References returns every Reference discovered so far.
func (f *Finder) References() []Reference {
	return f.references
}

// EnterNamespace pushes name onto the nesting stack; name is the namespace's
// own bare identifier, the way a class/module declaration's constant path
// segments are walked one at a time.
func (f *Finder) EnterNamespace(name string) {
	f.nesting = append(f.nesting, name)
}

// LeaveNamespace pops the most recently entered namespace.
func (f *Finder) LeaveNamespace() {
	if len(f.nesting) > 0 {
		f.nesting = f.nesting[:len(f.nesting)-1]
	}
}

// ConstantOccurrence is called for every constant read/write, constant
// target (including multi-write and path targets), and every segment of a
// class/module declaration's constant path. writtenName is the name exactly
// as it appears in source (possibly "::"-qualified); loc spans the whole
// reference, nameLoc the bare identifier token. An occurrence is declarative
// when nameLoc lands exactly on the resolved entry's own NameLocation in the
// same file, which lets the Finder recognize a definition site without
// duplicating the Index's own bookkeeping of which location created which
// entry.
func (f *Finder) ConstantOccurrence(writtenName string, loc, nameLoc location.Location) {
	if f.target.Kind != TargetConstant {
		return
	}
	resolved := f.ix.ResolveConstant(writtenName, append([]string{}, f.nesting...))
	for _, e := range resolved {
		if ultimateFullName(e) != f.target.Name {
			continue
		}
		f.references = append(f.references, Reference{
			URI:         f.uri,
			Location:    loc,
			Declarative: e.URI == f.uri && nameLoc == e.NameLocation,
		})
		return
	}
}

// ultimateFullName mirrors internal/index's alias flattening: a resolved
// ConstantAlias is compared by its target, not its own binding name, so a
// reference to an alias still counts as a reference to what it ultimately
// names.
func ultimateFullName(e *entry.Entry) string {
	if e.Kind == entry.KindConstantAlias {
		return e.Target
	}
	return e.FullName()
}

// MethodDef is called on a method definition. declarative is always true;
// the Finder records it whenever name matches the target's name. owner is
// not compared: a method Target carries no owner, since cross-file type
// inference for the receiver is out of scope (spec.md's Non-goals).
func (f *Finder) MethodDef(owner, name string, nameLoc location.Location) {
	if f.target.Kind != TargetMethod || name != f.target.Name {
		return
	}
	f.references = append(f.references, Reference{URI: f.uri, Location: nameLoc, Declarative: true})
}

// MethodCall is called on a method call site (non-declarative by
// definition); name is the called method's bare name as written.
func (f *Finder) MethodCall(name string, loc location.Location) {
	if f.target.Kind != TargetMethod || name != f.target.Name {
		return
	}
	f.references = append(f.references, Reference{URI: f.uri, Location: loc, Declarative: false})
}

// InstanceVariableOccurrence is called for every instance-variable read or
// write; isWrite marks the assigning forms, which record as declarative
// (spec.md §4.5: "Instance-variable targets record declarative status for
// every form that assigns").
func (f *Finder) InstanceVariableOccurrence(owner, name string, loc location.Location, isWrite bool) {
	if f.target.Kind != TargetInstanceVariable || name != f.target.Name || owner != f.target.Owner {
		return
	}
	f.references = append(f.references, Reference{URI: f.uri, Location: loc, Declarative: isWrite})
}

// CurrentOwner renders the nesting stack the way the Index keys namespaces,
// used by callers constructing the owner field of an instance-variable
// Target from the Finder's own view of scope.
func (f *Finder) CurrentOwner() string {
	return strings.Join(f.nesting, "::")
}
