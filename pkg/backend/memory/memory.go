// Package memory implements an in-memory rendering backend.
//
// The memory backend keeps a visual tree of plain structs and records every
// structural operation in a journal. It exists for tests and demos: tests
// assert on the journal to check operation ordering, and on Render to check
// the resulting tree shape. Events are synthesized with Fire.
package memory

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/go-anchor/anchor/pkg/backend"
	"github.com/go-anchor/anchor/pkg/errors"
)

// Backend is an in-memory implementation of backend.Backend.
// All methods are safe for concurrent use.
type Backend struct {
	mu      sync.Mutex
	nextID  int
	roots   []*visual
	journal []string
}

type visual struct {
	id        int
	kind      string
	text      string
	attrs     map[string]string
	parent    *visual
	children  []*visual
	detached  bool
	listeners map[string][]*listener
	nextLID   int
}

type listener struct {
	id int
	fn func(backend.Event)
}

// New creates an empty memory backend.
func New() *Backend {
	return &Backend{}
}

func (v *visual) label() string {
	return fmt.Sprintf("%s#%d", v.kind, v.id)
}

func (b *Backend) lookup(r backend.Ref) (*visual, error) {
	v, ok := r.(*visual)
	if !ok || v == nil {
		return nil, fmt.Errorf("memory: %w: %v", errors.ErrStaleRef, r)
	}
	return v, nil
}

func (b *Backend) log(format string, args ...any) {
	b.journal = append(b.journal, fmt.Sprintf(format, args...))
}

// CreateVisual creates a detached visual node of the given kind.
func (b *Backend) CreateVisual(kind string) (backend.Ref, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	v := &visual{id: b.nextID, kind: kind}
	b.log("create %s", v.label())
	return v, nil
}

// Insert places child under parent at the given index. A nil parent inserts
// at the top level.
func (b *Backend) Insert(parent, child backend.Ref, index int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, err := b.lookup(child)
	if err != nil {
		return err
	}
	b.unlink(c)
	c.detached = false

	if parent == nil {
		b.roots = insertAt(b.roots, c, index)
		c.parent = nil
		b.log("insert %s at root[%d]", c.label(), index)
		return nil
	}

	p, err := b.lookup(parent)
	if err != nil {
		return err
	}
	p.children = insertAt(p.children, c, index)
	c.parent = p
	b.log("insert %s under %s[%d]", c.label(), p.label(), index)
	return nil
}

// Detach removes the ref and its visual subtree from the rendered tree.
// Detaching an already-detached ref is a no-op.
func (b *Backend) Detach(ref backend.Ref) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	v, err := b.lookup(ref)
	if err != nil {
		return err
	}
	if v.detached {
		return nil
	}
	b.unlink(v)
	v.detached = true
	b.log("detach %s", v.label())
	return nil
}

// SetText replaces the text content of the ref.
func (b *Backend) SetText(ref backend.Ref, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	v, err := b.lookup(ref)
	if err != nil {
		return err
	}
	v.text = text
	b.log("text %s %q", v.label(), text)
	return nil
}

// SetAttr sets an attribute on the ref.
func (b *Backend) SetAttr(ref backend.Ref, key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	v, err := b.lookup(ref)
	if err != nil {
		return err
	}
	if v.attrs == nil {
		v.attrs = make(map[string]string)
	}
	v.attrs[key] = value
	b.log("attr %s %s=%q", v.label(), key, value)
	return nil
}

// RemoveAttr removes an attribute from the ref.
func (b *Backend) RemoveAttr(ref backend.Ref, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	v, err := b.lookup(ref)
	if err != nil {
		return err
	}
	delete(v.attrs, key)
	b.log("unattr %s %s", v.label(), key)
	return nil
}

// Listen registers fn for the named event on ref.
func (b *Backend) Listen(ref backend.Ref, event string, fn func(backend.Event)) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	v, err := b.lookup(ref)
	if err != nil {
		return nil, err
	}
	if v.listeners == nil {
		v.listeners = make(map[string][]*listener)
	}
	v.nextLID++
	l := &listener{id: v.nextLID, fn: fn}
	v.listeners[event] = append(v.listeners[event], l)
	b.log("listen %s %s", v.label(), event)

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		ls := v.listeners[event]
		for i, cur := range ls {
			if cur.id == l.id {
				v.listeners[event] = append(ls[:i:i], ls[i+1:]...)
				b.log("unlisten %s %s", v.label(), event)
				return
			}
		}
	}, nil
}

// Fire synthesizes the named event on ref, invoking registered listeners in
// registration order. Firing on a ref with no listeners is a no-op.
func (b *Backend) Fire(ref backend.Ref, event string, data map[string]any) error {
	b.mu.Lock()
	v, err := b.lookup(ref)
	if err != nil {
		b.mu.Unlock()
		return err
	}
	ls := append([]*listener(nil), v.listeners[event]...)
	b.mu.Unlock()

	ev := backend.Event{Name: event, Data: data}
	for _, l := range ls {
		l.fn(ev)
	}
	return nil
}

// Detached reports whether Detach has been called on ref.
func (b *Backend) Detached(ref backend.Ref) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, err := b.lookup(ref)
	if err != nil {
		return false
	}
	return v.detached
}

// Rendered reports whether ref is currently reachable from the top level.
func (b *Backend) Rendered(ref backend.Ref) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, err := b.lookup(ref)
	if err != nil {
		return false
	}
	for v.parent != nil {
		v = v.parent
	}
	for _, r := range b.roots {
		if r == v {
			return true
		}
	}
	return false
}

// Text returns the text content of ref.
func (b *Backend) Text(ref backend.Ref) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, err := b.lookup(ref)
	if err != nil {
		return "", err
	}
	return v.text, nil
}

// Attr returns the value of an attribute on ref.
func (b *Backend) Attr(ref backend.Ref, key string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, err := b.lookup(ref)
	if err != nil {
		return "", false, err
	}
	val, ok := v.attrs[key]
	return val, ok, nil
}

// Journal returns a copy of the recorded operation log.
func (b *Backend) Journal() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.journal...)
}

// ResetJournal clears the recorded operation log.
func (b *Backend) ResetJournal() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.journal = nil
}

// Render returns a compact string form of the rendered tree, for test
// assertions. Example: div#1(class=app)[span#2["hi"]]
func (b *Backend) Render() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	parts := make([]string, 0, len(b.roots))
	for _, r := range b.roots {
		parts = append(parts, render(r))
	}
	return strings.Join(parts, " ")
}

func render(v *visual) string {
	var sb strings.Builder
	sb.WriteString(v.label())
	if len(v.attrs) > 0 {
		keys := make([]string, 0, len(v.attrs))
		for k := range v.attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString("(")
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(" ")
			}
			fmt.Fprintf(&sb, "%s=%s", k, v.attrs[k])
		}
		sb.WriteString(")")
	}
	if v.text == "" && len(v.children) == 0 {
		return sb.String()
	}
	sb.WriteString("[")
	if v.text != "" {
		fmt.Fprintf(&sb, "%q", v.text)
	}
	for i, c := range v.children {
		if i > 0 || v.text != "" {
			sb.WriteString(" ")
		}
		sb.WriteString(render(c))
	}
	sb.WriteString("]")
	return sb.String()
}

func (b *Backend) unlink(v *visual) {
	if v.parent != nil {
		v.parent.children = removeFrom(v.parent.children, v)
		v.parent = nil
		return
	}
	b.roots = removeFrom(b.roots, v)
}

func insertAt(s []*visual, v *visual, index int) []*visual {
	if index < 0 || index > len(s) {
		index = len(s)
	}
	s = append(s, nil)
	copy(s[index+1:], s[index:])
	s[index] = v
	return s
}

func removeFrom(s []*visual, v *visual) []*visual {
	for i, cur := range s {
		if cur == v {
			return append(s[:i:i], s[i+1:]...)
		}
	}
	return s
}
