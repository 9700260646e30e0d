package dom

import (
	"testing"

	"github.com/go-anchor/anchor/pkg/backend"
	"github.com/go-anchor/anchor/pkg/backend/memory"
	"github.com/go-anchor/anchor/pkg/errors"
	"github.com/go-anchor/anchor/pkg/scope"
)

func newTestTree(t *testing.T) (*Tree, *memory.Backend) {
	t.Helper()
	b := memory.New()
	return NewTree(b), b
}

func mustNode(t *testing.T, tree *Tree, kind string) *Node {
	t.Helper()
	n, err := tree.NewNode(kind)
	if err != nil {
		t.Fatalf("NewNode(%q): %v", kind, err)
	}
	return n
}

func TestNewNode_StartsDetached(t *testing.T) {
	tree, _ := newTestTree(t)
	n := mustNode(t, tree, "div")

	if n.State() != StateDetached {
		t.Errorf("expected detached, got %v", n.State())
	}
	if n.Parent() != nil {
		t.Error("expected no parent")
	}
}

func TestSetRoot_MarksSubtreeLive(t *testing.T) {
	tree, _ := newTestTree(t)
	root := mustNode(t, tree, "div")
	child := mustNode(t, tree, "span")

	// Built while detached; liveness arrives with the root installation.
	if err := root.Append(child); err != nil {
		t.Fatalf("append: %v", err)
	}
	if child.State() != StateDetached {
		t.Fatalf("expected child detached before rooting, got %v", child.State())
	}

	if err := tree.SetRoot(root); err != nil {
		t.Fatalf("set root: %v", err)
	}
	if root.State() != StateLive || child.State() != StateLive {
		t.Errorf("expected live subtree, got root=%v child=%v", root.State(), child.State())
	}
}

func TestAppend_UnderLiveParent_MarksLive(t *testing.T) {
	tree, _ := newTestTree(t)
	root := mustNode(t, tree, "div")
	tree.SetRoot(root)

	child := mustNode(t, tree, "span")
	if err := root.Append(child); err != nil {
		t.Fatalf("append: %v", err)
	}
	if child.State() != StateLive {
		t.Errorf("expected live child, got %v", child.State())
	}
}

func TestAppend_AlreadyParented(t *testing.T) {
	tree, _ := newTestTree(t)
	a := mustNode(t, tree, "div")
	b := mustNode(t, tree, "div")
	child := mustNode(t, tree, "span")
	tree.SetRoot(a, b)

	if err := a.Append(child); err != nil {
		t.Fatalf("first append: %v", err)
	}
	err := b.Append(child)
	if !errors.IsAlreadyParented(err) {
		t.Errorf("expected AlreadyParented, got %v", err)
	}
	// No silent re-parenting.
	if child.Parent() != a {
		t.Error("expected child to stay under its first parent")
	}
}

func TestAppend_CycleRejected(t *testing.T) {
	tree, _ := newTestTree(t)
	root := mustNode(t, tree, "div")
	child := mustNode(t, tree, "div")
	tree.SetRoot(root)
	root.Append(child)

	if err := child.Append(child); err == nil {
		t.Error("expected self-append to fail")
	}

	// root is already child's ancestor, but it is also parented (as a
	// root), so either check may fire; it must not succeed.
	if err := child.Append(root); err == nil {
		t.Error("expected ancestor-append to fail")
	}
}

func TestAppend_DifferentTreeRejected(t *testing.T) {
	treeA, _ := newTestTree(t)
	treeB, _ := newTestTree(t)
	a := mustNode(t, treeA, "div")
	b := mustNode(t, treeB, "div")
	treeA.SetRoot(a)

	if err := a.Append(b); err == nil {
		t.Error("expected cross-tree append to fail")
	}
}

func TestRemove_RunsDestructorOnce(t *testing.T) {
	tree, b := newTestTree(t)
	root := mustNode(t, tree, "div")
	child := mustNode(t, tree, "span")
	tree.SetRoot(root)
	root.Append(child)

	count := 0
	child.OwnValue(scope.Func(func() { count++ }))

	if err := root.Remove(); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if count != 1 {
		t.Errorf("expected destructor to run once, ran %d times", count)
	}
	if root.State() != StateRemoved || child.State() != StateRemoved {
		t.Errorf("expected both removed, got root=%v child=%v", root.State(), child.State())
	}
	if b.Render() != "" {
		t.Errorf("expected empty backend tree, got %q", b.Render())
	}
}

func TestRemove_Idempotent(t *testing.T) {
	tree, _ := newTestTree(t)
	a := mustNode(t, tree, "div")
	b := mustNode(t, tree, "span")
	tree.SetRoot(a)
	a.Append(b)

	count := 0
	b.OwnValue(scope.Func(func() { count++ }))

	// Cascade removes b; a direct removal afterwards is a no-op.
	if err := a.Remove(); err != nil {
		t.Fatalf("remove a: %v", err)
	}
	if err := b.Remove(); err != nil {
		t.Fatalf("remove b after cascade: %v", err)
	}

	if count != 1 {
		t.Errorf("expected destructor to run once, ran %d times", count)
	}
}

func TestTeardown_PostOrderAndDetachFirst(t *testing.T) {
	tree, b := newTestTree(t)
	root := mustNode(t, tree, "div")
	mid := mustNode(t, tree, "div")
	leaf := mustNode(t, tree, "span")
	tree.SetRoot(root)
	root.Append(mid)
	mid.Append(leaf)

	rootRef, _ := root.Ref()
	midRef, _ := mid.Ref()
	leafRef, _ := leaf.Ref()

	var drops []string
	attach := func(n *Node, name string, ref backend.Ref) {
		n.OwnValue(scope.Func(func() {
			if !b.Detached(ref) {
				t.Errorf("%s destructor ran before its backend detach", name)
			}
			drops = append(drops, name)
		}))
	}
	attach(root, "root", rootRef)
	attach(mid, "mid", midRef)
	attach(leaf, "leaf", leafRef)

	if err := root.Remove(); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if len(drops) != 3 || drops[0] != "leaf" || drops[1] != "mid" || drops[2] != "root" {
		t.Errorf("expected post-order drops [leaf mid root], got %v", drops)
	}
}

func TestAttachments_LIFO(t *testing.T) {
	tree, _ := newTestTree(t)
	n := mustNode(t, tree, "div")
	tree.SetRoot(n)

	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		n.OwnValue(scope.Func(func() { order = append(order, i) }))
	}

	n.Remove()

	if len(order) != 3 || order[0] != 3 || order[1] != 2 || order[2] != 1 {
		t.Errorf("expected LIFO release [3 2 1], got %v", order)
	}
}

func TestOwn_AfterRemoval_Fails(t *testing.T) {
	tree, _ := newTestTree(t)
	n := mustNode(t, tree, "div")
	tree.SetRoot(n)
	n.Remove()

	err := n.Own(func(*Node) scope.Value {
		t.Error("producer must not run on a removed node")
		return nil
	})
	if !errors.IsUseAfterRemoval(err) {
		t.Errorf("expected UseAfterRemoval, got %v", err)
	}
	if err := n.OwnValue(scope.Func(func() {})); !errors.IsUseAfterRemoval(err) {
		t.Errorf("expected UseAfterRemoval, got %v", err)
	}
}

func TestMutators_AfterRemoval_Fail(t *testing.T) {
	tree, _ := newTestTree(t)
	n := mustNode(t, tree, "div")
	tree.SetRoot(n)
	n.Remove()

	if err := n.SetText("x"); !errors.IsUseAfterRemoval(err) {
		t.Errorf("SetText: expected UseAfterRemoval, got %v", err)
	}
	if err := n.SetAttr("k", "v"); !errors.IsUseAfterRemoval(err) {
		t.Errorf("SetAttr: expected UseAfterRemoval, got %v", err)
	}
	if _, err := n.Ref(); !errors.IsUseAfterRemoval(err) {
		t.Errorf("Ref: expected UseAfterRemoval, got %v", err)
	}
}

func TestWeak_AbsentAfterRemoval(t *testing.T) {
	tree, _ := newTestTree(t)
	n := mustNode(t, tree, "div")
	tree.SetRoot(n)

	w := n.Weak()
	if _, ok := w.Get(); !ok {
		t.Fatal("expected weak handle to resolve before removal")
	}

	n.Remove()

	for i := 0; i < 3; i++ {
		if _, ok := w.Get(); ok {
			t.Fatal("expected weak handle to stay absent after removal")
		}
	}
}

func TestOn_EventAfterRemoval_NoOp(t *testing.T) {
	tree, b := newTestTree(t)
	n := mustNode(t, tree, "button")
	tree.SetRoot(n)
	ref, _ := n.Ref()

	fired := 0
	if err := n.On("click", func(node *Node, ev backend.Event) {
		fired++
	}); err != nil {
		t.Fatalf("on: %v", err)
	}

	b.Fire(ref, "click", nil)
	if fired != 1 {
		t.Fatalf("expected 1 delivery before removal, got %d", fired)
	}

	n.Remove()

	// The registration was torn down with the node; the orphaned native
	// event no longer reaches the callback.
	b.Fire(ref, "click", nil)
	if fired != 1 {
		t.Errorf("expected no delivery after removal, got %d", fired)
	}
}

func TestOn_StaleWeakGuard(t *testing.T) {
	tree, b := newTestTree(t)
	n := mustNode(t, tree, "button")
	tree.SetRoot(n)
	ref, _ := n.Ref()

	// Keep a raw registration alive past the node, the way a backend with
	// asynchronous unlisten delivery might. The weak capture must turn the
	// callback into a no-op.
	w := n.Weak()
	fired := 0
	b.Listen(ref, "click", func(ev backend.Event) {
		if _, ok := w.Get(); !ok {
			return
		}
		fired++
	})

	n.Remove()
	b.Fire(ref, "click", nil)

	if fired != 0 {
		t.Errorf("expected stale callback to be a no-op, fired %d times", fired)
	}
}

func TestDestructor_RemovingOtherNode_Queued(t *testing.T) {
	tree, _ := newTestTree(t)
	root := mustNode(t, tree, "div")
	a := mustNode(t, tree, "div")
	b := mustNode(t, tree, "div")
	tree.SetRoot(root)
	root.Append(a, b)

	var drops []string
	b.OwnValue(scope.Func(func() { drops = append(drops, "b") }))
	a.OwnValue(scope.Func(func() {
		drops = append(drops, "a")
		// Removal of a sibling from inside a destructor: queued and
		// processed before the outer Remove returns.
		if err := b.Remove(); err != nil {
			t.Errorf("queued remove: %v", err)
		}
		if b.State() == StateRemoved {
			t.Error("queued removal must not run inside the destructor")
		}
	}))

	if err := a.Remove(); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if b.State() != StateRemoved {
		t.Fatal("expected queued removal to complete before Remove returned")
	}
	if len(drops) != 2 || drops[0] != "a" || drops[1] != "b" {
		t.Errorf("expected drops [a b], got %v", drops)
	}
}

func TestSplice_RemovesAndInserts(t *testing.T) {
	tree, b := newTestTree(t)
	root := mustNode(t, tree, "ul")
	tree.SetRoot(root)

	one := mustNode(t, tree, "li")
	two := mustNode(t, tree, "li")
	three := mustNode(t, tree, "li")
	root.Append(one, two, three)

	repl := mustNode(t, tree, "li")
	if err := root.Splice(1, 1, []*Node{repl}); err != nil {
		t.Fatalf("splice: %v", err)
	}

	if two.State() != StateRemoved {
		t.Error("expected spliced-out child to be torn down")
	}
	want := "ul#1[li#2 li#5 li#4]"
	if got := b.Render(); got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestSplice_Bounds(t *testing.T) {
	tree, _ := newTestTree(t)
	root := mustNode(t, tree, "div")
	tree.SetRoot(root)

	if err := root.Splice(0, 1, nil); err == nil {
		t.Error("expected bounds error")
	}
	if err := root.Splice(-1, 0, nil); err == nil {
		t.Error("expected bounds error for negative offset")
	}
}

func TestReplace(t *testing.T) {
	tree, b := newTestTree(t)
	root := mustNode(t, tree, "div")
	old := mustNode(t, tree, "span")
	tree.SetRoot(root)
	root.Append(old)

	count := 0
	old.OwnValue(scope.Func(func() { count++ }))

	first := mustNode(t, tree, "p")
	second := mustNode(t, tree, "p")
	if err := old.Replace(first, second); err != nil {
		t.Fatalf("replace: %v", err)
	}

	if count != 1 {
		t.Errorf("expected replaced node's destructor once, got %d", count)
	}
	if old.State() != StateRemoved {
		t.Error("expected replaced node removed")
	}
	want := "div#1[p#3 p#4]"
	if got := b.Render(); got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}

	// A parentless node cannot be replaced.
	loose := mustNode(t, tree, "div")
	if err := loose.Replace(); err == nil {
		t.Error("expected replace without parent to fail")
	}
}

func TestClear(t *testing.T) {
	tree, b := newTestTree(t)
	root := mustNode(t, tree, "div")
	tree.SetRoot(root)
	c1 := mustNode(t, tree, "span")
	c2 := mustNode(t, tree, "span")
	root.Append(c1, c2)

	if err := root.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if c1.State() != StateRemoved || c2.State() != StateRemoved {
		t.Error("expected children torn down")
	}
	if got := b.Render(); got != "div#1" {
		t.Errorf("Render() = %q, want %q", got, "div#1")
	}
}
