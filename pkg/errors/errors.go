// Package errors provides structured error handling for the anchor library.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// Kind identifies the category of an error.
type Kind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown Kind = iota
	// KindStructure indicates a tree-shape violation, such as inserting a
	// node that already has a parent.
	KindStructure
	// KindLifecycle indicates an operation on a node whose teardown has
	// already run.
	KindLifecycle
	// KindBackend indicates a failure reported by the rendering backend.
	KindBackend
	// KindParse indicates a scene or wire message parsing failure.
	KindParse
	// KindPanic indicates a recovered panic.
	KindPanic
)

func (k Kind) String() string {
	switch k {
	case KindStructure:
		return "structure"
	case KindLifecycle:
		return "lifecycle"
	case KindBackend:
		return "backend"
	case KindParse:
		return "parse"
	case KindPanic:
		return "panic"
	default:
		return "unknown"
	}
}

// Sentinel causes matched with errors.Is.
var (
	// ErrAlreadyParented reports an attempt to insert a node that still has
	// a live parent edge elsewhere.
	ErrAlreadyParented = stderrors.New("node already has a parent")
	// ErrUseAfterRemoval reports an attempt to mutate or attach data to a
	// node after its teardown has begun.
	ErrUseAfterRemoval = stderrors.New("node has been removed")
	// ErrStaleRef reports a backend operation against a reference the
	// backend no longer knows.
	ErrStaleRef = stderrors.New("unknown backend reference")
)

// TreeError represents a structured error in the anchor library.
type TreeError struct {
	// Op is the operation that failed (e.g., "dom.AppendChild").
	Op string
	// Kind categorizes the error.
	Kind Kind
	// Node is the identifier of the node involved, if known.
	Node string
	// Err is the underlying error.
	Err error
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *TreeError) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("%s [%s] node=%s: %v", e.Op, e.Kind, e.Node, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
}

func (e *TreeError) Unwrap() error {
	return e.Err
}

// AlreadyParented builds a structure error for op against node.
func AlreadyParented(op, node string) *TreeError {
	return &TreeError{Op: op, Kind: KindStructure, Node: node, Err: ErrAlreadyParented, Timestamp: time.Now()}
}

// UseAfterRemoval builds a lifecycle error for op against node.
func UseAfterRemoval(op, node string) *TreeError {
	return &TreeError{Op: op, Kind: KindLifecycle, Node: node, Err: ErrUseAfterRemoval, Timestamp: time.Now()}
}

// Backend wraps a backend adapter failure. Backend failures during teardown
// propagate rather than being swallowed; the post-order teardown invariant
// cannot be kept if detachment is unreliable.
func Backend(op, node string, err error) *TreeError {
	return &TreeError{Op: op, Kind: KindBackend, Node: node, Err: err, Timestamp: time.Now()}
}

// IsAlreadyParented reports whether err is, or wraps, ErrAlreadyParented.
func IsAlreadyParented(err error) bool {
	return stderrors.Is(err, ErrAlreadyParented)
}

// IsUseAfterRemoval reports whether err is, or wraps, ErrUseAfterRemoval.
func IsUseAfterRemoval(err error) bool {
	return stderrors.Is(err, ErrUseAfterRemoval)
}

// PanicError represents a recovered panic.
type PanicError struct {
	// Op is the operation that panicked (e.g., "dom.Remove").
	Op string
	// Value is the value passed to panic().
	Value any
	// StackTrace contains the call stack at the time of the panic.
	StackTrace string
	// Timestamp is when the panic occurred.
	Timestamp time.Time
}

func (e *PanicError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// ErrorHandler receives errors reported by the anchor library.
type ErrorHandler interface {
	// HandleError is called when an error occurs.
	HandleError(err *TreeError)
	// HandlePanic is called when a panic is recovered.
	HandlePanic(err *PanicError)
}
