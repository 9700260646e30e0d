package dom

import (
	"fmt"
	"slices"

	"github.com/go-anchor/anchor/pkg/backend"
	"github.com/go-anchor/anchor/pkg/errors"
)

// Tree is the process-wide entry point to the ownership tree. It owns the
// root nodes and the rendering backend. Exactly one Tree is expected per
// program, but it is passed explicitly rather than living in a package-level
// singleton. A Tree is confined to one goroutine.
type Tree struct {
	backend backend.Backend
	roots   []*Node

	// removing is set while a teardown is in progress. Removals requested
	// during that window land in pending and are drained in order.
	removing bool
	pending  []*Node
}

// NewTree creates a tree driving the given backend.
func NewTree(b backend.Backend) *Tree {
	if b == nil {
		panic("dom: NewTree called with nil backend")
	}
	return &Tree{backend: b}
}

// Backend returns the rendering backend the tree drives.
func (t *Tree) Backend() backend.Backend {
	return t.backend
}

// Roots returns a copy of the current root nodes.
func (t *Tree) Roots() []*Node {
	return append([]*Node(nil), t.roots...)
}

// NewNode creates a detached node wrapping a freshly created backend visual
// of the given kind. The node stays detached until inserted under a live
// parent or installed as a root.
func (t *Tree) NewNode(kind string) (*Node, error) {
	ref, err := t.backend.CreateVisual(kind)
	if err != nil {
		return nil, errors.Backend("dom.NewNode", "", err)
	}
	return &Node{id: newNodeID(), kind: kind, tree: t, ref: ref}, nil
}

// SetRoot replaces the root subtree. Any previous roots are torn down in
// full before the new nodes are installed and marked live. Passing no nodes
// clears the tree.
func (t *Tree) SetRoot(nodes ...*Node) error {
	const op = "dom.SetRoot"
	for i, nd := range nodes {
		if nd.tree != t {
			return &errors.TreeError{
				Op:   op,
				Kind: errors.KindStructure,
				Node: nd.id.String(),
				Err:  fmt.Errorf("node belongs to a different tree"),
			}
		}
		if nd.state == StateRemoved {
			return errors.UseAfterRemoval(op, nd.id.String())
		}
		if nd.parent != nil || slices.Contains(t.roots, nd) || slices.Contains(nodes[:i], nd) {
			return errors.AlreadyParented(op, nd.id.String())
		}
	}

	if len(t.roots) > 0 {
		old := append([]*Node(nil), t.roots...)
		err := t.exec(func() error {
			for _, r := range old {
				if err := t.removeNow(r); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	for i, nd := range nodes {
		if err := t.backend.Insert(nil, nd.ref, i); err != nil {
			return errors.Backend(op, nd.id.String(), err)
		}
		t.roots = append(t.roots, nd)
		markLive(nd)
	}
	return nil
}

// exec runs f with the teardown queue open, then drains removals that were
// requested while f ran. Re-entrant calls run f directly; the outermost call
// owns the drain.
func (t *Tree) exec(f func() error) error {
	if t.removing {
		return f()
	}
	t.removing = true
	defer func() {
		t.removing = false
		t.pending = nil
	}()
	if err := f(); err != nil {
		return err
	}
	for len(t.pending) > 0 {
		next := t.pending[0]
		t.pending = t.pending[1:]
		if err := t.removeNow(next); err != nil {
			return err
		}
	}
	return nil
}

// removeNow unlinks n from its parent or the root list and tears it down.
func (t *Tree) removeNow(n *Node) error {
	if n.state == StateRemoved {
		return nil
	}
	t.unlink(n)
	return t.teardown(n)
}

func (t *Tree) unlink(n *Node) {
	if n.parent != nil {
		if i := slices.Index(n.parent.children, n); i >= 0 {
			n.parent.children = slices.Delete(n.parent.children, i, i+1)
		}
		n.parent = nil
		return
	}
	if i := slices.Index(t.roots, n); i >= 0 {
		t.roots = slices.Delete(t.roots, i, i+1)
	}
}

// teardown runs the removal protocol on a subtree whose top node is already
// unlinked. Per node: mark Removed, detach the backend reference, recurse
// into children, then release attachments. Marking first makes weak handles
// resolve absent for the whole teardown, including inside destructors; the
// backend detach before recursion removes the subtree from the rendered
// tree in one step, so no destructor observes an intermediate visual state.
func (t *Tree) teardown(n *Node) error {
	if n.state == StateRemoved {
		return nil
	}
	n.state = StateRemoved
	if err := t.backend.Detach(n.ref); err != nil {
		return errors.Backend("dom.Remove", n.id.String(), err)
	}
	children := n.children
	n.children = nil
	for _, c := range children {
		c.parent = nil
		if err := t.teardown(c); err != nil {
			return err
		}
	}
	n.finalize()
	return nil
}
