package dom

import (
	"fmt"
	"slices"

	"github.com/oklog/ulid/v2"

	"github.com/go-anchor/anchor/pkg/backend"
	"github.com/go-anchor/anchor/pkg/errors"
	"github.com/go-anchor/anchor/pkg/scope"
)

// NodeID is the opaque stable identity of a node. It is useful for debugging
// and equality, not for ordering.
type NodeID [16]byte

func newNodeID() NodeID {
	return NodeID(ulid.Make())
}

func (id NodeID) String() string {
	return ulid.ULID(id).String()
}

// State describes where a node is in its lifecycle.
type State int

const (
	// StateDetached is the initial state: the node exists but is not yet
	// reachable from a root.
	StateDetached State = iota
	// StateLive means the node is reachable from a root.
	StateLive
	// StateRemoved means teardown has begun. The transition is monotonic;
	// a Removed node never becomes Live again.
	StateRemoved
)

func (s State) String() string {
	switch s {
	case StateDetached:
		return "detached"
	case StateLive:
		return "live"
	case StateRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Node is one element in the logical tree. A node strongly owns its ordered
// children and its attachments; the parent link is a non-owning backlink.
// Nodes are not safe for concurrent use: all tree mutation happens on one
// goroutine, in response to application calls or backend events.
type Node struct {
	id       NodeID
	kind     string
	tree     *Tree
	ref      backend.Ref
	parent   *Node
	children []*Node
	attached []scope.Value
	state    State

	// strong counts external strong handles. While it is nonzero,
	// finalization is deferred past removal.
	strong    int
	finalized bool
}

// ID returns the node's stable identity.
func (n *Node) ID() NodeID {
	return n.id
}

// Kind returns the visual kind the node was created with.
func (n *Node) Kind() string {
	return n.kind
}

// State returns the node's lifecycle state.
func (n *Node) State() State {
	return n.state
}

// Parent returns the owning parent, or nil for roots and detached nodes.
func (n *Node) Parent() *Node {
	return n.parent
}

// Children returns a copy of the ordered child list.
func (n *Node) Children() []*Node {
	return append([]*Node(nil), n.children...)
}

// Ref returns the node's backend reference. Reading backend state from a
// removed node fails: teardown has already detached the reference.
func (n *Node) Ref() (backend.Ref, error) {
	if n.state == StateRemoved {
		return nil, errors.UseAfterRemoval("dom.Ref", n.id.String())
	}
	return n.ref, nil
}

// SetText replaces the node's text content on the backend.
func (n *Node) SetText(text string) error {
	const op = "dom.SetText"
	if n.state == StateRemoved {
		return errors.UseAfterRemoval(op, n.id.String())
	}
	if err := n.tree.backend.SetText(n.ref, text); err != nil {
		return errors.Backend(op, n.id.String(), err)
	}
	return nil
}

// SetAttr sets an attribute on the node's visual.
func (n *Node) SetAttr(key, value string) error {
	const op = "dom.SetAttr"
	if n.state == StateRemoved {
		return errors.UseAfterRemoval(op, n.id.String())
	}
	if err := n.tree.backend.SetAttr(n.ref, key, value); err != nil {
		return errors.Backend(op, n.id.String(), err)
	}
	return nil
}

// RemoveAttr removes an attribute from the node's visual.
func (n *Node) RemoveAttr(key string) error {
	const op = "dom.RemoveAttr"
	if n.state == StateRemoved {
		return errors.UseAfterRemoval(op, n.id.String())
	}
	if err := n.tree.backend.RemoveAttr(n.ref, key); err != nil {
		return errors.Backend(op, n.id.String(), err)
	}
	return nil
}

// Own binds a produced value to the node's lifetime. The producer runs once
// with access to the node (for example to read its backend reference for a
// closure); the result is stored and released exactly once at teardown,
// never early. Attachments accumulate and are released last-in-first-out.
func (n *Node) Own(produce func(*Node) scope.Value) error {
	if n.state == StateRemoved {
		return errors.UseAfterRemoval("dom.Own", n.id.String())
	}
	v := produce(n)
	if v != nil {
		n.attached = append(n.attached, v)
	}
	return nil
}

// OwnValue binds already-constructed values to the node's lifetime.
func (n *Node) OwnValue(vs ...scope.Value) error {
	if n.state == StateRemoved {
		return errors.UseAfterRemoval("dom.OwnValue", n.id.String())
	}
	for _, v := range vs {
		if v != nil {
			n.attached = append(n.attached, v)
		}
	}
	return nil
}

// On registers a backend event listener bound to the node's lifetime. The
// callback captures only a weak handle, so a listener that outlives the node
// on the backend side degrades to a no-op. The registration is stored as an
// attachment and unregistered at teardown.
func (n *Node) On(event string, fn func(*Node, backend.Event)) error {
	const op = "dom.On"
	if n.state == StateRemoved {
		return errors.UseAfterRemoval(op, n.id.String())
	}
	w := n.Weak()
	unlisten, err := n.tree.backend.Listen(n.ref, event, func(ev backend.Event) {
		defer errors.Recover("dom.event:" + event)
		node, ok := w.Get()
		if !ok {
			return
		}
		fn(node, ev)
	})
	if err != nil {
		return errors.Backend(op, n.id.String(), err)
	}
	n.attached = append(n.attached, scope.Func(unlisten))
	return nil
}

// Append inserts children at the end of the node's child list, mirroring the
// insertion to the backend. Children must be parentless and not removed.
func (n *Node) Append(children ...*Node) error {
	return n.splice("dom.Append", len(n.children), 0, children)
}

// Splice removes `remove` children starting at offset and inserts `add` in
// their place. Removed children are torn down; they do not survive to be
// reinserted elsewhere.
func (n *Node) Splice(offset, remove int, add []*Node) error {
	return n.splice("dom.Splice", offset, remove, add)
}

// Clear removes and tears down all children.
func (n *Node) Clear() error {
	return n.splice("dom.Clear", 0, len(n.children), nil)
}

// Replace substitutes the node in its parent with zero or more replacements.
// The node itself is torn down.
func (n *Node) Replace(with ...*Node) error {
	const op = "dom.Replace"
	p := n.parent
	if p == nil {
		return &errors.TreeError{
			Op:   op,
			Kind: errors.KindStructure,
			Node: n.id.String(),
			Err:  fmt.Errorf("node has no parent"),
		}
	}
	idx := slices.Index(p.children, n)
	return p.splice(op, idx, 1, with)
}

func (n *Node) splice(op string, offset, remove int, add []*Node) error {
	if n.state == StateRemoved {
		return errors.UseAfterRemoval(op, n.id.String())
	}
	if offset < 0 || remove < 0 || offset+remove > len(n.children) {
		return &errors.TreeError{
			Op:   op,
			Kind: errors.KindStructure,
			Node: n.id.String(),
			Err:  fmt.Errorf("splice bounds [%d,%d) outside %d children", offset, offset+remove, len(n.children)),
		}
	}
	for i, c := range add {
		if c.tree != n.tree {
			return &errors.TreeError{
				Op:   op,
				Kind: errors.KindStructure,
				Node: c.id.String(),
				Err:  fmt.Errorf("node belongs to a different tree"),
			}
		}
		if c == n || n.hasAncestor(c) {
			return &errors.TreeError{
				Op:   op,
				Kind: errors.KindStructure,
				Node: c.id.String(),
				Err:  fmt.Errorf("insertion would create a cycle"),
			}
		}
		if c.state == StateRemoved {
			return errors.UseAfterRemoval(op, c.id.String())
		}
		if c.parent != nil || slices.Contains(n.tree.roots, c) || slices.Contains(add[:i], c) {
			return errors.AlreadyParented(op, c.id.String())
		}
	}

	if remove > 0 {
		removed := append([]*Node(nil), n.children[offset:offset+remove]...)
		err := n.tree.exec(func() error {
			for _, c := range removed {
				if err := n.tree.removeNow(c); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	for i, c := range add {
		if err := n.tree.backend.Insert(n.ref, c.ref, offset+i); err != nil {
			return errors.Backend(op, c.id.String(), err)
		}
		c.parent = n
		n.children = slices.Insert(n.children, offset+i, c)
		if n.state == StateLive {
			markLive(c)
		}
	}
	return nil
}

func (n *Node) hasAncestor(candidate *Node) bool {
	for cur := n.parent; cur != nil; cur = cur.parent {
		if cur == candidate {
			return true
		}
	}
	return false
}

// Remove tears down the node and its entire subtree: the backend reference
// is detached, descendants are torn down post-order, and attachments are
// released in reverse attachment order. Removing an already-removed node is
// a no-op, so overlapping removals from cascades are tolerated.
//
// When called from inside a running teardown (for example from an
// attachment destructor), the removal is queued and processed, in request
// order, before the outer removal returns.
func (n *Node) Remove() error {
	t := n.tree
	if n.state == StateRemoved {
		return nil
	}
	if t.removing {
		t.pending = append(t.pending, n)
		return nil
	}
	return t.exec(func() error {
		return t.removeNow(n)
	})
}

// finalize releases the node's attachments, unless external strong handles
// still defer it. Release order is last-attached-first.
func (n *Node) finalize() {
	if n.strong > 0 || n.finalized {
		return
	}
	n.finalized = true
	att := n.attached
	n.attached = nil
	for i := len(att) - 1; i >= 0; i-- {
		att[i].Release()
	}
}

// markLive flags a newly reachable subtree.
func markLive(n *Node) {
	if n.state != StateDetached {
		return
	}
	n.state = StateLive
	for _, c := range n.children {
		markLive(c)
	}
}
