// Package entry defines the sealed Entry taxonomy: every declarable thing
// the index tracks (namespaces, constants, aliases, methods, variables,
// parameters, signatures). Following the teacher's tagged-union-via-struct
// pattern (internal/types/symbol_types.go), variants are not separate Go
// types; a single Entry carries a Kind discriminant plus the header fields
// common to every variant and the payload fields specific to its Kind.
// Pattern matching on Kind replaces the source language's is_a? checks.
package entry

import (
	"strings"

	"github.com/shopify/symbolindex/internal/location"
)

// Visibility is shared by every Entry kind.
type Visibility int

const (
	Public Visibility = iota
	Protected
	Private
)

func (v Visibility) String() string {
	switch v {
	case Protected:
		return "protected"
	case Private:
		return "private"
	default:
		return "public"
	}
}

// URI is an opaque, printable file identifier. Two URIs are equal iff their
// string forms are equal.
type URI string

// Kind discriminates which variant of the taxonomy an Entry represents.
type Kind int

const (
	KindModule Kind = iota
	KindClass
	KindSingletonClass
	KindConstant
	KindUnresolvedConstantAlias
	KindConstantAlias
	KindMethod
	KindAccessor
	KindMethodAlias
	KindUnresolvedMethodAlias
	KindInstanceVariable
	KindClassVariable
	KindGlobalVariable
)

func (k Kind) String() string {
	switch k {
	case KindModule:
		return "Module"
	case KindClass:
		return "Class"
	case KindSingletonClass:
		return "SingletonClass"
	case KindConstant:
		return "Constant"
	case KindUnresolvedConstantAlias:
		return "UnresolvedConstantAlias"
	case KindConstantAlias:
		return "ConstantAlias"
	case KindMethod:
		return "Method"
	case KindAccessor:
		return "Accessor"
	case KindMethodAlias:
		return "MethodAlias"
	case KindUnresolvedMethodAlias:
		return "UnresolvedMethodAlias"
	case KindInstanceVariable:
		return "InstanceVariable"
	case KindClassVariable:
		return "ClassVariable"
	case KindGlobalVariable:
		return "GlobalVariable"
	default:
		return "Unknown"
	}
}

// MixinKind distinguishes include/prepend/extend.
type MixinKind int

const (
	Include MixinKind = iota
	Prepend
	Extend
)

// MixinOp is one include/prepend/extend edge from a namespace to a module,
// in source order. Duplicates are allowed and meaningful (§4.4.3).
type MixinOp struct {
	Kind       MixinKind
	ModuleName string
}

// ParamKind enumerates the eight parameter forms the taxonomy models.
type ParamKind int

const (
	Required ParamKind = iota
	Optional
	Keyword
	OptionalKeyword
	Rest
	KeywordRest
	Block
	Forwarding
)

// Parameter is one entry in a Signature's parameter list.
type Parameter struct {
	Kind ParamKind
	Name string // display name; anonymous rest/kwrest/block use a synthesized default
}

func anonymousName(k ParamKind) string {
	switch k {
	case Rest:
		return "*"
	case KeywordRest:
		return "**"
	case Block:
		return "&"
	case Forwarding:
		return "..."
	default:
		return ""
	}
}

// NewParameter builds a Parameter, substituting the anonymous display form
// for rest/keyword-rest/block parameters declared without an explicit name.
func NewParameter(kind ParamKind, name string) Parameter {
	if name == "" {
		name = anonymousName(kind)
	}
	return Parameter{Kind: kind, Name: name}
}

// Signature is an ordered parameter list belonging to a Method or Accessor.
// Multiple signatures on one Member model overload overlays layered in by
// sidecar type information (e.g. the RBS adjunct).
type Signature struct {
	Parameters []Parameter
}

// Format renders the signature the way a hover tooltip would, e.g.
// "(a, b = ..., *rest, key:, **kwrest, &blk)".
func (s Signature) Format() string {
	parts := make([]string, 0, len(s.Parameters))
	for _, p := range s.Parameters {
		switch p.Kind {
		case Required:
			parts = append(parts, p.Name)
		case Optional:
			parts = append(parts, p.Name+" = ...")
		case Keyword:
			parts = append(parts, p.Name+":")
		case OptionalKeyword:
			parts = append(parts, p.Name+": ...")
		case Rest:
			parts = append(parts, "*"+strings.TrimPrefix(p.Name, "*"))
		case KeywordRest:
			parts = append(parts, "**"+strings.TrimPrefix(p.Name, "**"))
		case Block:
			parts = append(parts, "&"+strings.TrimPrefix(p.Name, "&"))
		case Forwarding:
			parts = append(parts, "...")
		}
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// arity returns the minimum and maximum number of positional arguments this
// signature accepts; max is -1 when a Rest parameter makes it unbounded.
func (s Signature) arity() (min int, max int) {
	for _, p := range s.Parameters {
		switch p.Kind {
		case Required:
			min++
			if max != -1 {
				max++
			}
		case Optional:
			if max != -1 {
				max++
			}
		case Rest:
			max = -1
		}
	}
	return min, max
}

// Matches reports whether a call with argCount positional arguments could
// dispatch to this signature, by arity alone. This is a conservative
// approximation; full keyword-argument and block matching is out of scope
// (spec.md's Non-goals exclude full semantic type inference).
func (s Signature) Matches(argCount int) bool {
	min, max := s.arity()
	if argCount < min {
		return false
	}
	return max == -1 || argCount <= max
}

// Entry is the single, flat representation of every taxonomy variant.
// Fields not meaningful for a given Kind are left at their zero value.
type Entry struct {
	Kind         Kind
	Name         string
	URI          URI
	Location     location.Location
	NameLocation location.Location
	Comments     string
	HasComments  bool
	Visibility   Visibility

	// Namespace (Module, Class, SingletonClass)
	Nesting         []string
	MixinOperations []MixinOp
	ParentClass     string // Class only, as written; "" + HasParentClass=false means none
	HasParentClass  bool
	Attached        string // SingletonClass only: the attached namespace's full name

	// Constant / alias
	Target      string   // UnresolvedConstantAlias (as written) / ConstantAlias (fully qualified)
	AliasNesting []string // UnresolvedConstantAlias: nesting snapshot at the alias site

	// Member (Method, Accessor, MethodAlias, UnresolvedMethodAlias)
	Owner         string // owning namespace's full name
	Signatures    []Signature
	ResolvedAlias *Entry // MethodAlias: the target Member this alias was resolved to
	NewName       string // UnresolvedMethodAlias
	OldName       string // UnresolvedMethodAlias

	// Variables
	VarOwner    string // InstanceVariable/ClassVariable: owning namespace; unused for globals
	HasVarOwner bool
}

// FullName returns nesting.join("::") for namespace entries, or Name for
// every other kind (whose Name is already the binding's own identifier).
func (e *Entry) FullName() string {
	if e.IsNamespace() {
		return strings.Join(e.Nesting, "::")
	}
	return e.Name
}

func (e *Entry) IsNamespace() bool {
	return e.Kind == KindModule || e.Kind == KindClass || e.Kind == KindSingletonClass
}

func (e *Entry) IsMember() bool {
	switch e.Kind {
	case KindMethod, KindAccessor, KindMethodAlias, KindUnresolvedMethodAlias:
		return true
	default:
		return false
	}
}

func (e *Entry) IsConstantLike() bool {
	switch e.Kind {
	case KindConstant, KindUnresolvedConstantAlias, KindConstantAlias:
		return true
	default:
		return false
	}
}

// MixinHash computes a stable identity for (MixinOperations, ParentClass),
// used by the Index to detect when a namespace's ancestor-relevant shape
// has changed (invariant I3). See hash.go for the xxhash wiring.
func (e *Entry) MixinHash() uint64 {
	return mixinHash(e.MixinOperations, e.ParentClass, e.HasParentClass)
}

// --- constructors, one per variant ---

func NewModule(name string, uri URI, loc, nameLoc location.Location, nesting []string) *Entry {
	return &Entry{Kind: KindModule, Name: name, URI: uri, Location: loc, NameLocation: nameLoc, Nesting: nesting}
}

func NewClass(name string, uri URI, loc, nameLoc location.Location, nesting []string, parentClass string, hasParent bool) *Entry {
	return &Entry{
		Kind: KindClass, Name: name, URI: uri, Location: loc, NameLocation: nameLoc,
		Nesting: nesting, ParentClass: parentClass, HasParentClass: hasParent,
	}
}

func NewSingletonClass(name string, uri URI, loc, nameLoc location.Location, nesting []string, attached string) *Entry {
	return &Entry{
		Kind: KindSingletonClass, Name: name, URI: uri, Location: loc, NameLocation: nameLoc,
		Nesting: nesting, Attached: attached,
	}
}

func NewConstant(name string, uri URI, loc, nameLoc location.Location, visibility Visibility) *Entry {
	return &Entry{Kind: KindConstant, Name: name, URI: uri, Location: loc, NameLocation: nameLoc, Visibility: visibility}
}

func NewUnresolvedConstantAlias(name string, uri URI, loc, nameLoc location.Location, target string, nesting []string) *Entry {
	return &Entry{
		Kind: KindUnresolvedConstantAlias, Name: name, URI: uri, Location: loc, NameLocation: nameLoc,
		Target: target, AliasNesting: nesting,
	}
}

func NewMethod(name string, uri URI, loc, nameLoc location.Location, owner string, visibility Visibility, sig Signature) *Entry {
	return &Entry{
		Kind: KindMethod, Name: name, URI: uri, Location: loc, NameLocation: nameLoc,
		Owner: owner, Visibility: visibility, Signatures: []Signature{sig},
	}
}

func NewAccessor(name string, uri URI, loc, nameLoc location.Location, owner string, visibility Visibility, sig Signature) *Entry {
	return &Entry{
		Kind: KindAccessor, Name: name, URI: uri, Location: loc, NameLocation: nameLoc,
		Owner: owner, Visibility: visibility, Signatures: []Signature{sig},
	}
}

func NewUnresolvedMethodAlias(newName string, uri URI, loc, nameLoc location.Location, owner, oldName string, visibility Visibility) *Entry {
	return &Entry{
		Kind: KindUnresolvedMethodAlias, Name: newName, URI: uri, Location: loc, NameLocation: nameLoc,
		Owner: owner, NewName: newName, OldName: oldName, Visibility: visibility,
	}
}

func NewInstanceVariable(name string, uri URI, loc, nameLoc location.Location, owner string, hasOwner bool) *Entry {
	return &Entry{Kind: KindInstanceVariable, Name: name, URI: uri, Location: loc, NameLocation: nameLoc, VarOwner: owner, HasVarOwner: hasOwner}
}

func NewClassVariable(name string, uri URI, loc, nameLoc location.Location, owner string, hasOwner bool) *Entry {
	return &Entry{Kind: KindClassVariable, Name: name, URI: uri, Location: loc, NameLocation: nameLoc, VarOwner: owner, HasVarOwner: hasOwner}
}

func NewGlobalVariable(name string, uri URI, loc, nameLoc location.Location) *Entry {
	return &Entry{Kind: KindGlobalVariable, Name: name, URI: uri, Location: loc, NameLocation: nameLoc}
}

// VisibilityScope tracks the listener's current default visibility while
// walking one file, including whether module_function is active.
type VisibilityScope struct {
	Visibility Visibility
	ModuleFunc bool
}
