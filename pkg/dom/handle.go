package dom

import "github.com/go-anchor/anchor/pkg/errors"

// Handle is a strong, shared-ownership reference to a node. While a node has
// outstanding handles, removal from the tree still detaches its backend
// reference immediately, but the node's attachments are not released until
// the last handle is gone. Handles are how application code keeps a node's
// data alive past its life in the visual tree.
type Handle struct {
	node *Node
}

// Retain takes a strong handle on the node. Retaining a removed node fails;
// its teardown may already have released the attachments a handle would be
// guarding.
func (n *Node) Retain() (*Handle, error) {
	if n.state == StateRemoved {
		return nil, errors.UseAfterRemoval("dom.Retain", n.id.String())
	}
	n.strong++
	return &Handle{node: n}, nil
}

// Node returns the referenced node, or nil after the handle was released.
func (h *Handle) Node() *Node {
	return h.node
}

// Clone takes an additional strong handle on the same node.
func (h *Handle) Clone() *Handle {
	if h.node == nil {
		return &Handle{}
	}
	h.node.strong++
	return &Handle{node: h.node}
}

// Release drops the handle. Releasing the last handle on a node that was
// already removed runs the node's deferred attachment release. Release is
// idempotent per handle.
func (h *Handle) Release() {
	n := h.node
	if n == nil {
		return
	}
	h.node = nil
	n.strong--
	if n.strong > 0 || n.state != StateRemoved || n.finalized {
		return
	}
	t := n.tree
	if t.removing {
		n.finalize()
		return
	}
	// Destructors may request removals of other nodes; drain them here the
	// same way Remove does. Errors have no caller to land on, so they go to
	// the global handler.
	err := t.exec(func() error {
		n.finalize()
		return nil
	})
	if err != nil {
		if te, ok := err.(*errors.TreeError); ok {
			errors.Report(te)
		} else {
			errors.Report(&errors.TreeError{Op: "dom.Release", Kind: errors.KindBackend, Node: n.id.String(), Err: err})
		}
	}
}

// Weak is a non-owning reference to a node. It never extends the node's
// lifetime; parent backlinks and event-callback captures use weak handles so
// they cannot keep removed subtrees alive.
type Weak struct {
	node *Node
}

// Weak returns a weak handle to the node.
func (n *Node) Weak() Weak {
	return Weak{node: n}
}

// Get resolves the weak handle. From the moment the node's teardown begins,
// Get reports absent for every subsequent resolution; that is an expected
// outcome, not an error, and callers treat it as "do nothing".
func (w Weak) Get() (*Node, bool) {
	if w.node == nil || w.node.state == StateRemoved {
		return nil, false
	}
	return w.node, true
}
