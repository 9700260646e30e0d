// Package backend defines the contract between the lifetime tree and the
// rendering backend that mirrors it.
//
// The dom package drives a Backend as an opaque sink: it is told to create
// visual nodes, insert them under one another, and detach them. It never
// inspects how the backend renders. Incoming UI events travel the other
// direction, through listener callbacks registered with Listen.
package backend

// Ref is an opaque reference to a visual node owned by the backend. Refs are
// comparable; the dom package holds exactly one Ref per logical node and
// detaches it exactly once during teardown.
type Ref any

// Event is a UI event delivered by the backend to a registered listener.
type Event struct {
	// Name is the event name as known to the backend (e.g. "click").
	Name string
	// Data carries backend-specific event details.
	Data map[string]any
}

// Backend mirrors structural changes onto a real rendering tree.
//
// All methods are synchronous from the caller's point of view: when Detach
// returns, the visual subtree is no longer part of the rendered tree and
// teardown may proceed to running destructors. Detach is idempotent;
// detaching an already-detached ref is a no-op. The other methods report
// unknown refs as errors.
type Backend interface {
	// CreateVisual creates a detached visual node of the given kind.
	CreateVisual(kind string) (Ref, error)

	// Insert places child under parent at the given child index. A nil
	// parent inserts at the top level of the rendered tree.
	Insert(parent, child Ref, index int) error

	// Detach removes the ref and its visual subtree from the rendered tree.
	Detach(ref Ref) error

	// SetText replaces the text content of the ref.
	SetText(ref Ref, text string) error

	// SetAttr sets an attribute on the ref.
	SetAttr(ref Ref, key, value string) error

	// RemoveAttr removes an attribute from the ref.
	RemoveAttr(ref Ref, key string) error

	// Listen registers fn for the named event on ref. The returned function
	// unregisters the listener and may be called more than once.
	Listen(ref Ref, event string, fn func(Event)) (func(), error)
}
