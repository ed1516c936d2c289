// Package listener implements the Declaration listener (spec.md §4.3): a
// per-file object that turns a depth-first stream of syntax-tree events
// into Entry objects. Rather than a registration table keyed by node tag
// (no concrete parser/dispatcher ships with this module — the CST producer
// is an external collaborator per spec.md §1/§6), the listener exposes one
// exported method per node kind it cares about; an external dispatcher
// calls these synchronously in source order with matching enter/leave
// pairs, mirroring the "explicit visitor table mapping node tags to
// handler functions on the listener state" called for in spec.md §9.
//
// Grounded on the teacher's per-file extractor design
// (internal/symbollinker/extractor.go, internal/symbollinker/go_extractor.go):
// a single stateful object holding scope stacks, fed one node event at a
// time by an external walker.
package listener

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopify/symbolindex/internal/entry"
	"github.com/shopify/symbolindex/internal/enhancement"
	"github.com/shopify/symbolindex/internal/idxerrors"
	"github.com/shopify/symbolindex/internal/location"
)

// CommentSource answers, for a zero-based source line, whether that line is
// a comment and (if so) its body with the leading "#" and one optional
// following space already stripped.
type CommentSource interface {
	CommentAt(line int) (text string, ok bool)
}

// AccessorKind distinguishes attr_reader/attr_writer/attr_accessor.
type AccessorKind int

const (
	AccessorReader AccessorKind = iota
	AccessorWriter
	AccessorAccessor
)

// ArgKind distinguishes how a call argument's text was spelled; the
// listener treats symbol and string arguments identically.
type ArgKind int

const (
	ArgSymbol ArgKind = iota
	ArgString
	ArgConstantRef
)

// CallArg is one positional argument to a recognized call node.
type CallArg struct {
	Kind ArgKind
	Text string
}

// ReceiverKind distinguishes the three receiver forms §4.3 cares about.
type ReceiverKind int

const (
	ReceiverNone ReceiverKind = iota
	ReceiverSelf
	ReceiverConstant
)

// CallInfo describes one call node for OnCallEnter/OnCallLeave.
type CallInfo struct {
	Name             string
	Receiver         ReceiverKind
	ReceiverConstant string // set when Receiver == ReceiverConstant
	Args             []CallArg
	Location         location.Location
	NameLocation     location.Location
}

// RHSKind tells ConstantWrite what the assignment's right-hand side is.
type RHSKind int

const (
	// RHSOther is any right-hand side that is not itself a constant
	// reference: a literal, a method call, a non-constant variable, etc.
	RHSOther RHSKind = iota
	// RHSConstantRef is a bare constant read, a constant path (A::B), or a
	// nested constant assignment — all of which produce an
	// UnresolvedConstantAlias per spec.md §4.3.
	RHSConstantRef
)

// Options configures a Listener for one file.
type Options struct {
	CollectComments       bool
	CommentSource         CommentSource // required when CollectComments is true
	ExcludedMagicComments []string      // substring prefixes; compiled into an anchored regex
	Enhancements          []enhancement.Enhancement
}

// Listener consumes node events for exactly one file and accumulates the
// Entry objects and indexing errors produced along the way.
type Listener struct {
	uri entry.URI

	collectCommentsEnabled bool
	commentSource          CommentSource
	excludedMagic          *regexp.Regexp
	enhancements           []enhancement.Enhancement

	stack                   []string // written namespace names, innermost last
	ownerStack              []*entry.Entry
	visibilityStack         []entry.VisibilityScope
	visibilityDepthAtEnter  []int
	defDepth                int

	singletons map[string]*entry.Entry // full name -> entry, merged in place within this file

	entries        []*entry.Entry
	indexingErrors []*idxerrors.IndexingError
}

// New creates a Listener for uri. Top-level code is modeled as owned by a
// virtual "Object" namespace that is never itself emitted as an entry (the
// Index is expected to seed the real Object/BasicObject/Module/Class
// entries once, at construction, the way a core-library stub file would).
func New(uri entry.URI, opts Options) *Listener {
	root := &entry.Entry{Kind: entry.KindClass, Name: "Object", Nesting: []string{"Object"}, HasParentClass: true, ParentClass: "::BasicObject"}

	l := &Listener{
		uri:                    uri,
		collectCommentsEnabled: opts.CollectComments,
		commentSource:          opts.CommentSource,
		enhancements:           opts.Enhancements,
		ownerStack:             []*entry.Entry{root},
		visibilityStack:        []entry.VisibilityScope{{Visibility: entry.Public}},
		singletons:             make(map[string]*entry.Entry),
	}
	if len(opts.ExcludedMagicComments) > 0 {
		l.excludedMagic = compileExcludedMagicComments(opts.ExcludedMagicComments)
	}
	return l
}

func compileExcludedMagicComments(prefixes []string) *regexp.Regexp {
	parts := make([]string, len(prefixes))
	for i, p := range prefixes {
		parts[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile("^(?:" + strings.Join(parts, "|") + ")")
}

// Entries returns every Entry emitted so far, in source (emission) order.
func (l *Listener) Entries() []*entry.Entry {
	return l.entries
}

// IndexingErrors returns enhancement failures captured during this file's
// walk; it never aborts indexing (spec.md §7).
func (l *Listener) IndexingErrors() []*idxerrors.IndexingError {
	return l.indexingErrors
}

func (l *Listener) addEntry(e *entry.Entry) {
	l.entries = append(l.entries, e)
}

func (l *Listener) currentOwner() *entry.Entry {
	return l.ownerStack[len(l.ownerStack)-1]
}

func (l *Listener) currentVisibility() entry.VisibilityScope {
	return l.visibilityStack[len(l.visibilityStack)-1]
}

// CurrentOwner implements enhancement.Context.
func (l *Listener) CurrentOwner() string { return l.currentOwner().FullName() }

// CurrentNesting implements enhancement.Context.
func (l *Listener) CurrentNesting() []string {
	return append([]string{}, l.stack...)
}

// fullyQualify implements spec.md §4.3's "Fully qualifying a written name".
func (l *Listener) fullyQualify(name string) string {
	if strings.HasPrefix(name, "::") {
		return strings.TrimPrefix(name, "::")
	}
	full := name
	if len(l.stack) > 0 {
		full = strings.Join(l.stack, "::") + "::" + name
	}
	return strings.TrimPrefix(full, "::")
}

// deriveNesting implements spec.md §4.3's "derive the actual nesting"
// algorithm: scan stack+[name] right to left for the first segment that
// begins with "::" (an absolute reset point), strip "::" prefixes, and
// flatten any compact ("A::B") segments into bare path components.
func deriveNesting(stack []string, name string) []string {
	combined := make([]string, 0, len(stack)+1)
	combined = append(combined, stack...)
	combined = append(combined, name)

	resetIdx := -1
	for i := len(combined) - 1; i >= 0; i-- {
		if strings.HasPrefix(combined[i], "::") {
			resetIdx = i
			break
		}
	}
	kept := combined
	if resetIdx >= 0 {
		kept = combined[resetIdx:]
	}

	out := make([]string, 0, len(kept))
	for i, seg := range kept {
		if i == 0 {
			seg = strings.TrimPrefix(seg, "::")
		}
		out = append(out, strings.Split(seg, "::")...)
	}
	return out
}

// defaultParentClass implements the two root-class exceptions from §4.3:
// reopening Object keeps ::BasicObject, reopening BasicObject keeps no
// parent, and everything else defaults to ::Object.
func defaultParentClass(fullName string) (parent string, has bool) {
	switch fullName {
	case "Object":
		return "::BasicObject", true
	case "BasicObject":
		return "", false
	default:
		return "::Object", true
	}
}

func singletonFullName(ownerFullName string) (nesting []string, full string) {
	parts := strings.Split(ownerFullName, "::")
	leaf := parts[len(parts)-1]
	nesting = append(append([]string{}, parts...), "<Class:"+leaf+">")
	full = strings.Join(nesting, "::")
	return nesting, full
}

// singletonForName returns the (possibly newly created) SingletonClass
// entry attached to ownerFullName, merging into an already-emitted entry
// from earlier in this same file rather than duplicating it (spec.md §4.3:
// "a pre-existing singleton-class entry with the same full name is
// updated in place").
func (l *Listener) singletonForName(ownerFullName string) *entry.Entry {
	nesting, full := singletonFullName(ownerFullName)
	if existing, ok := l.singletons[full]; ok {
		return existing
	}
	e := entry.NewSingletonClass(full, l.uri, location.Zero, location.Zero, nesting, ownerFullName)
	l.singletons[full] = e
	l.addEntry(e)
	return e
}

func (l *Listener) pushNamespaceScope(e *entry.Entry, writtenName string) {
	l.visibilityDepthAtEnter = append(l.visibilityDepthAtEnter, len(l.visibilityStack))
	l.stack = append(l.stack, writtenName)
	l.ownerStack = append(l.ownerStack, e)
	l.visibilityStack = append(l.visibilityStack, entry.VisibilityScope{Visibility: entry.Public})
}

// LeaveNamespace pops the stacks pushed by EnterClass/EnterModule/
// EnterSingletonClassSelf/EnterSingletonClassExpr, discarding any visibility
// scopes a bare public/protected/private statement pushed inside the body.
func (l *Listener) LeaveNamespace() {
	n := len(l.visibilityDepthAtEnter)
	depth := l.visibilityDepthAtEnter[n-1]
	l.visibilityDepthAtEnter = l.visibilityDepthAtEnter[:n-1]
	l.visibilityStack = l.visibilityStack[:depth]
	l.stack = l.stack[:len(l.stack)-1]
	l.ownerStack = l.ownerStack[:len(l.ownerStack)-1]
}

// EnterClass emits a Class entry. hasParentClass is false when the class
// has no explicit superclass, letting defaultParentClass apply.
func (l *Listener) EnterClass(name string, loc, nameLoc location.Location, parentClass string, hasParentClass bool) *entry.Entry {
	nesting := deriveNesting(l.stack, name)
	full := strings.Join(nesting, "::")
	if !hasParentClass {
		parentClass, hasParentClass = defaultParentClass(full)
	}
	e := entry.NewClass(name, l.uri, loc, nameLoc, nesting, parentClass, hasParentClass)
	l.attachComments(e, loc.StartLine)
	l.addEntry(e)
	l.pushNamespaceScope(e, name)
	return e
}

// EnterModule emits a Module entry.
func (l *Listener) EnterModule(name string, loc, nameLoc location.Location) *entry.Entry {
	nesting := deriveNesting(l.stack, name)
	e := entry.NewModule(name, l.uri, loc, nameLoc, nesting)
	l.attachComments(e, loc.StartLine)
	l.addEntry(e)
	l.pushNamespaceScope(e, name)
	return e
}

// EnterSingletonClassSelf handles "class << self": the synthetic name is
// <Class:L> where L is the leaf of the enclosing namespace.
func (l *Listener) EnterSingletonClassSelf(loc, nameLoc location.Location) *entry.Entry {
	owner := l.currentOwner()
	return l.enterSingletonClass(owner.FullName(), loc, nameLoc)
}

// EnterSingletonClassExpr handles "class << Expr" for an explicit
// expression/constant attachment point.
func (l *Listener) EnterSingletonClassExpr(exprText string, loc, nameLoc location.Location) *entry.Entry {
	owner := l.currentOwner()
	_ = owner
	return l.enterSingletonClassNamed(exprText, loc, nameLoc)
}

func (l *Listener) enterSingletonClass(ownerFullName string, loc, nameLoc location.Location) *entry.Entry {
	nesting, full := singletonFullName(ownerFullName)
	return l.mergeOrCreateSingleton(full, nesting, ownerFullName, loc, nameLoc)
}

// enterSingletonClassNamed builds "<Class:exprText>" directly as the
// written synthetic segment, for the "class << Expr" form where Expr is not
// necessarily the enclosing namespace's own leaf name.
func (l *Listener) enterSingletonClassNamed(exprText string, loc, nameLoc location.Location) *entry.Entry {
	seg := "<Class:" + exprText + ">"
	nesting := deriveNesting(l.stack, seg)
	full := strings.Join(nesting, "::")
	return l.mergeOrCreateSingleton(full, nesting, exprText, loc, nameLoc)
}

func (l *Listener) mergeOrCreateSingleton(full string, nesting []string, attached string, loc, nameLoc location.Location) *entry.Entry {
	if e, ok := l.singletons[full]; ok {
		e.Location = loc
		e.NameLocation = nameLoc
		l.mergeComments(e, loc.StartLine)
		l.pushNamespaceScope(e, nesting[len(nesting)-1])
		return e
	}
	e := entry.NewSingletonClass(full, l.uri, loc, nameLoc, nesting, attached)
	l.attachComments(e, loc.StartLine)
	l.singletons[full] = e
	l.addEntry(e)
	l.pushNamespaceScope(e, nesting[len(nesting)-1])
	return e
}

// EnterDef emits a Method entry. When receiverSelf is true the method is
// owned by the current owner's singleton class instead of the owner
// itself, and that singleton is pushed onto the owner stack for the
// duration of the method body. When the active visibility scope has
// module_function set, the instance-method copy is marked private and a
// public singleton copy is also emitted.
func (l *Listener) EnterDef(name string, loc, nameLoc location.Location, receiverSelf bool, sig entry.Signature) *entry.Entry {
	owner := l.currentOwner()
	vis := l.currentVisibility()

	var primary *entry.Entry
	if receiverSelf {
		singleton := l.singletonForName(owner.FullName())
		primary = entry.NewMethod(name, l.uri, loc, nameLoc, singleton.FullName(), entry.Public, sig)
		l.attachComments(primary, loc.StartLine)
		l.addEntry(primary)
		l.ownerStack = append(l.ownerStack, singleton)
	} else {
		primary = entry.NewMethod(name, l.uri, loc, nameLoc, owner.FullName(), vis.Visibility, sig)
		l.attachComments(primary, loc.StartLine)
		l.addEntry(primary)
		if vis.ModuleFunc {
			primary.Visibility = entry.Private
			singleton := l.singletonForName(owner.FullName())
			pub := entry.NewMethod(name, l.uri, loc, nameLoc, singleton.FullName(), entry.Public, sig)
			l.addEntry(pub)
		}
	}
	l.defDepth++
	return primary
}

// LeaveDef pops the singleton-class owner pushed by a receiver-self def.
func (l *Listener) LeaveDef(receiverSelf bool) {
	if receiverSelf {
		l.ownerStack = l.ownerStack[:len(l.ownerStack)-1]
	}
	l.defDepth--
}

// AttrDeclaration emits Accessor entries for attr_reader/attr_writer/
// attr_accessor calls (attr_accessor emits two entries per name).
func (l *Listener) AttrDeclaration(kind AccessorKind, names []string, loc, nameLoc location.Location) {
	owner := l.currentOwner()
	vis := l.currentVisibility().Visibility
	for _, name := range names {
		if kind == AccessorReader || kind == AccessorAccessor {
			e := entry.NewAccessor(name, l.uri, loc, nameLoc, owner.FullName(), vis, entry.Signature{})
			l.addEntry(e)
		}
		if kind == AccessorWriter || kind == AccessorAccessor {
			sig := entry.Signature{Parameters: []entry.Parameter{entry.NewParameter(entry.Required, name)}}
			e := entry.NewAccessor(name+"=", l.uri, loc, nameLoc, owner.FullName(), vis, sig)
			l.addEntry(e)
		}
	}
}

// MixinCall appends MixinOps in argument order. An Extend is modelled as
// Include on the singleton class of the target (current owner, unless
// receiverFullName names another already-fully-qualified constant).
func (l *Listener) MixinCall(kind entry.MixinKind, moduleNames []string, receiverFullName string) {
	ownerFullName := receiverFullName
	if ownerFullName == "" {
		ownerFullName = l.currentOwner().FullName()
	}
	if kind == entry.Extend {
		singleton := l.singletonForName(ownerFullName)
		for _, m := range moduleNames {
			singleton.MixinOperations = append(singleton.MixinOperations, entry.MixinOp{Kind: entry.Include, ModuleName: m})
		}
		return
	}
	target := l.currentOwner()
	if receiverFullName != "" {
		// Mixin call against an explicit receiver targets that receiver's
		// own namespace entry if one was already emitted in this file;
		// otherwise it is recorded against the current owner, since a
		// cross-file receiver cannot be resolved from a single-file pass.
		for _, e := range l.entries {
			if e.IsNamespace() && e.FullName() == receiverFullName {
				target = e
				break
			}
		}
	}
	for _, m := range moduleNames {
		target.MixinOperations = append(target.MixinOperations, entry.MixinOp{Kind: kind, ModuleName: m})
	}
}

// PushVisibility implements a bare public/protected/private statement.
func (l *Listener) PushVisibility(v entry.Visibility) {
	l.visibilityStack = append(l.visibilityStack, entry.VisibilityScope{Visibility: v})
}

// MarkMethodsPrivate implements "private :a, :b" — marks already-emitted
// instance methods of the current owner private in place.
func (l *Listener) MarkMethodsPrivate(names []string) {
	owner := l.currentOwner()
	for _, name := range names {
		for _, e := range l.entries {
			if e.Kind == entry.KindMethod && e.Owner == owner.FullName() && e.Name == name {
				e.Visibility = entry.Private
			}
		}
	}
}

// PrivateClassMethod marks already-emitted singleton methods private.
func (l *Listener) PrivateClassMethod(names []string) {
	owner := l.currentOwner()
	singleton := l.singletonForName(owner.FullName())
	for _, name := range names {
		for _, e := range l.entries {
			if e.Kind == entry.KindMethod && e.Owner == singleton.FullName() && e.Name == name {
				e.Visibility = entry.Private
			}
		}
	}
}

// ModuleFunctionDeclaration implements bare "module_function": subsequent
// defs in this scope get a public singleton copy and a private instance copy.
func (l *Listener) ModuleFunctionDeclaration() {
	top := &l.visibilityStack[len(l.visibilityStack)-1]
	top.ModuleFunc = true
}

// ModuleFunctionNames implements "module_function :a, :b" against
// already-emitted instance methods.
func (l *Listener) ModuleFunctionNames(names []string) {
	owner := l.currentOwner()
	for _, name := range names {
		var found *entry.Entry
		for _, e := range l.entries {
			if e.Kind == entry.KindMethod && e.Owner == owner.FullName() && e.Name == name {
				found = e
				break
			}
		}
		if found == nil {
			continue
		}
		found.Visibility = entry.Private
		singleton := l.singletonForName(owner.FullName())
		var sig entry.Signature
		if len(found.Signatures) > 0 {
			sig = found.Signatures[0]
		}
		pub := entry.NewMethod(name, l.uri, found.Location, found.NameLocation, singleton.FullName(), entry.Public, sig)
		l.addEntry(pub)
	}
}

// AliasMethod emits an UnresolvedMethodAlias, owned by the current owner,
// for both "alias_method(new, old)" calls and the "alias new old" keyword
// form.
func (l *Listener) AliasMethod(newName, oldName string, loc, nameLoc location.Location) *entry.Entry {
	owner := l.currentOwner()
	e := entry.NewUnresolvedMethodAlias(newName, l.uri, loc, nameLoc, owner.FullName(), oldName, l.currentVisibility().Visibility)
	l.attachComments(e, loc.StartLine)
	l.addEntry(e)
	return e
}

// ConstantWrite emits a Constant or an UnresolvedConstantAlias depending on
// rhsKind, covering all 8 plain/path × =/||=/&&=/op= variants, multi-write
// targets, and multi-write constant targets alike: callers invoke this once
// per target regardless of which syntactic form produced it.
func (l *Listener) ConstantWrite(name string, loc, nameLoc location.Location, rhsKind RHSKind, rhsText string) *entry.Entry {
	full := l.fullyQualify(name)
	var e *entry.Entry
	if rhsKind == RHSConstantRef {
		e = entry.NewUnresolvedConstantAlias(full, l.uri, loc, nameLoc, rhsText, append([]string{}, l.stack...))
	} else {
		e = entry.NewConstant(full, l.uri, loc, nameLoc, l.currentVisibility().Visibility)
	}
	l.attachComments(e, loc.StartLine)
	l.addEntry(e)
	return e
}

// PrivateConstant locates the referenced constant in the current namespace
// only (no inheritance lookup) and sets its visibility to private.
func (l *Listener) PrivateConstant(name string) {
	owner := l.currentOwner()
	target := owner.FullName() + "::" + name
	for _, e := range l.entries {
		if e.IsConstantLike() && e.Name == target {
			e.Visibility = entry.Private
		}
	}
}

// InstanceVariableWrite emits an InstanceVariable entry. Instance variables
// written directly in a class body (defDepth == 0) are owned by the
// current owner's singleton class; inside a def they are owned by whatever
// the owner stack currently holds (the singleton for a receiver-self def,
// the class itself for a plain instance def).
func (l *Listener) InstanceVariableWrite(name string, loc, nameLoc location.Location) {
	if name == "" || name == "@" {
		return
	}
	owner := l.currentOwner()
	ownerName := owner.FullName()
	if l.defDepth == 0 {
		ownerName = l.singletonForName(owner.FullName()).FullName()
	}
	e := entry.NewInstanceVariable(name, l.uri, loc, nameLoc, ownerName, true)
	l.addEntry(e)
}

// ClassVariableWrite emits a ClassVariable entry, reattaching to the first
// enclosing non-singleton owner when the current scope is a singleton.
func (l *Listener) ClassVariableWrite(name string, loc, nameLoc location.Location) {
	if name == "" || name == "@@" {
		return
	}
	owner := l.firstNonSingletonOwner()
	e := entry.NewClassVariable(name, l.uri, loc, nameLoc, owner.FullName(), true)
	l.addEntry(e)
}

func (l *Listener) firstNonSingletonOwner() *entry.Entry {
	for i := len(l.ownerStack) - 1; i >= 0; i-- {
		if l.ownerStack[i].Kind != entry.KindSingletonClass {
			return l.ownerStack[i]
		}
	}
	return l.ownerStack[0]
}

// GlobalVariableWrite emits a GlobalVariable entry; globals have no owner.
func (l *Listener) GlobalVariableWrite(name string, loc, nameLoc location.Location) {
	if name == "" || name == "$" {
		return
	}
	e := entry.NewGlobalVariable(name, l.uri, loc, nameLoc)
	l.addEntry(e)
}

// OnCallEnter implements the "structured pattern-matching on the method
// name" behavior of spec.md §4.3's Call nodes, and always notifies
// registered enhancements first regardless of whether the name is
// recognized.
func (l *Listener) OnCallEnter(call CallInfo) {
	l.notifyEnhancements(call, true)

	names := argTexts(call.Args)
	switch call.Name {
	case "private_constant":
		for _, n := range names {
			l.PrivateConstant(n)
		}
	case "attr_reader":
		l.AttrDeclaration(AccessorReader, names, call.Location, call.NameLocation)
	case "attr_writer":
		l.AttrDeclaration(AccessorWriter, names, call.Location, call.NameLocation)
	case "attr_accessor":
		l.AttrDeclaration(AccessorAccessor, names, call.Location, call.NameLocation)
	case "include":
		l.MixinCall(entry.Include, names, l.receiverName(call))
	case "prepend":
		l.MixinCall(entry.Prepend, names, l.receiverName(call))
	case "extend":
		l.MixinCall(entry.Extend, names, l.receiverName(call))
	case "public":
		if len(call.Args) == 0 {
			l.PushVisibility(entry.Public)
		}
	case "protected":
		if len(call.Args) == 0 {
			l.PushVisibility(entry.Protected)
		} else {
			l.MarkMethodsPrivate(names) // protected-with-args is out of scope beyond instance-method lookup parity with private
		}
	case "private":
		if len(call.Args) == 0 {
			l.PushVisibility(entry.Private)
		} else {
			l.MarkMethodsPrivate(names)
		}
	case "private_class_method":
		l.PrivateClassMethod(names)
	case "module_function":
		if len(call.Args) == 0 {
			l.ModuleFunctionDeclaration()
		} else {
			l.ModuleFunctionNames(names)
		}
	case "alias_method":
		if len(call.Args) == 2 {
			l.AliasMethod(call.Args[0].Text, call.Args[1].Text, call.Location, call.NameLocation)
		}
	}
}

// OnCallLeave only notifies enhancements; no call name is handled on leave.
func (l *Listener) OnCallLeave(call CallInfo) {
	l.notifyEnhancements(call, false)
}

func (l *Listener) receiverName(call CallInfo) string {
	if call.Receiver == ReceiverConstant {
		return l.fullyQualify(call.ReceiverConstant)
	}
	return ""
}

func argTexts(args []CallArg) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = a.Text
	}
	return out
}

func (l *Listener) notifyEnhancements(call CallInfo, enter bool) {
	if len(l.enhancements) == 0 {
		return
	}
	ev := enhancement.CallEvent{Name: call.Name, Args: argTexts(call.Args)}
	for _, enh := range l.enhancements {
		l.safeNotify(enh, ev, enter)
	}
}

func (l *Listener) safeNotify(enh enhancement.Enhancement, ev enhancement.CallEvent, enter bool) {
	defer func() {
		if r := recover(); r != nil {
			err := idxerrors.NewIndexingError(string(l.uri), "enhancement", panicError{r}).WithRecoverable(true)
			l.indexingErrors = append(l.indexingErrors, err)
		}
	}()
	if enter {
		enh.OnCallNodeEnter(l, ev)
	} else {
		enh.OnCallNodeLeave(l, ev)
	}
}

type panicError struct{ v interface{} }

func (p panicError) Error() string { return "panic: " + formatPanic(p.v) }

func formatPanic(v interface{}) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	if s, ok := v.(string); ok {
		return s
	}
	return "unknown panic"
}

// attachComments collects and attaches the comment block preceding
// declStartLine, per spec.md §4.3's comment-collection algorithm.
func (l *Listener) attachComments(e *entry.Entry, declStartLine int) {
	if text, ok := l.collectComments(declStartLine); ok {
		e.Comments = text
		e.HasComments = true
	}
}

func (l *Listener) mergeComments(e *entry.Entry, declStartLine int) {
	text, ok := l.collectComments(declStartLine)
	if !ok {
		return
	}
	if e.HasComments {
		e.Comments = e.Comments + "\n" + text
	} else {
		e.Comments = text
		e.HasComments = true
	}
}

// collectComments implements spec.md §4.3's algorithm: start one line above
// the declaration; if that line is not a comment, drop one more line (to
// allow a single blank line between sigil comments and the declaration);
// then walk upward while every next line is a comment, skipping excluded
// magic comments and invalid-encoding comments, and assemble the result in
// source order.
func (l *Listener) collectComments(declStartLine int) (string, bool) {
	if !l.collectCommentsEnabled || l.commentSource == nil {
		return "", false
	}
	line := declStartLine - 1
	text, ok := l.commentSource.CommentAt(line)
	if !ok {
		line--
		text, ok = l.commentSource.CommentAt(line)
		if !ok {
			return "", false
		}
	}

	var collected []string
	for ok {
		if l.isUsableComment(text) {
			collected = append(collected, text)
		}
		line--
		text, ok = l.commentSource.CommentAt(line)
	}
	if len(collected) == 0 {
		return "", false
	}
	for i, j := 0, len(collected)-1; i < j; i, j = i+1, j-1 {
		collected[i], collected[j] = collected[j], collected[i]
	}
	return strings.Join(collected, "\n"), true
}

func (l *Listener) isUsableComment(text string) bool {
	if !utf8.ValidString(text) {
		return false
	}
	if l.excludedMagic != nil && l.excludedMagic.MatchString(text) {
		return false
	}
	return true
}
