// Package dom provides the ownership tree that binds application data to the
// lifetime of visual elements.
//
// A Node is one element in a logical tree that mirrors an external rendering
// tree through a backend.Backend. Nodes own their children, a single backend
// reference, and an ordered list of attached scope.Values. When a node is
// removed, directly or because an ancestor was removed, its subtree is torn
// down: each node's backend reference is detached first, then descendants are
// finalized post-order, and each node's attachments are released in reverse
// attachment order.
//
// # Core Types
//
// Tree is the process-wide entry point. It owns the root nodes and the
// backend, and serializes teardown: removals requested while a teardown is
// already running (for example from an attachment destructor) are queued and
// processed in request order before the outer call returns.
//
// Node is created detached with Tree.NewNode, becomes Live once reachable
// from a root, and transitions to Removed when teardown begins. Removed is
// terminal: attachment and mutation operations on a Removed node fail with
// ErrUseAfterRemoval, and removal of an already-Removed node is a no-op.
//
// Handle and Weak are the two reference flavors. A Handle is shared
// ownership: while any strong handle is held, the node's attachments outlive
// its removal from the tree and are released when the last handle is
// released. A Weak observes a node without extending its lifetime and
// resolves to absent from the moment teardown begins.
//
// # Attachments
//
// Own binds arbitrary data to a node:
//
//	node.Own(func(n *dom.Node) scope.Value {
//	    return scope.Func(func() { conn.Close() })
//	})
//
// Attachments are released last-in-first-out, after the node's backend
// reference has been detached, so later attachments may depend on earlier
// ones and no destructor can reach the rendered tree.
//
// # Events
//
// On registers a backend event listener whose callback captures only a weak
// handle; firing an event after the node was removed is a defined no-op. The
// listener registration itself is stored as an attachment, so it is
// unregistered during teardown.
package dom
