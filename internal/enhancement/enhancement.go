// Package enhancement defines the plugin interface external code uses to
// observe call nodes as the Declaration listener walks a file (spec.md
// §4.3/§6). Grounded on the teacher's plugin-registry shape
// (internal/mcp/tools.go registers independent handlers against a shared
// dispatch point); here the dispatch point is the listener's call-node
// event instead of an MCP tool call.
package enhancement

// CallEvent is the call node an Enhancement is being notified about.
type CallEvent struct {
	Name string
	Args []string
}

// Context exposes the listener state an Enhancement may need without
// giving it access to mutate that state directly.
type Context interface {
	CurrentOwner() string
	CurrentNesting() []string
}

// Enhancement observes call nodes during indexing. A panic from either
// method is recovered by the caller and recorded as a non-fatal
// IndexingError (spec.md §7); it never interrupts indexing of the rest of
// the file.
type Enhancement interface {
	OnCallNodeEnter(ctx Context, call CallEvent)
	OnCallNodeLeave(ctx Context, call CallEvent)
}
