package dom

import (
	"fmt"
	"slices"

	"github.com/go-anchor/anchor/pkg/errors"
)

// Entry is implemented by composite values that expose a representative
// node, so they can be managed by a Container.
type Entry interface {
	Node() *Node
}

// Container pairs a slice of entries with a node: edits to the slice are
// mirrored onto the node's children, keeping data and visuals in one order.
//
// The container assumes it is the only writer of the node's child list.
// Bypassing it, by calling Append or Splice on the node directly, puts the
// two out of sync and the mapping between indexes and children is no longer
// guaranteed.
type Container[T Entry] struct {
	entries []T
	node    *Node
}

// NewContainer creates a container managing the children of node.
func NewContainer[T Entry](node *Node) *Container[T] {
	return &Container[T]{node: node}
}

// Node returns the container's node, which also makes containers nestable
// as entries of other containers.
func (c *Container[T]) Node() *Node {
	return c.node
}

// Len returns the number of entries.
func (c *Container[T]) Len() int {
	return len(c.entries)
}

// Get returns the entry at index i.
func (c *Container[T]) Get(i int) (T, bool) {
	var zero T
	if i < 0 || i >= len(c.entries) {
		return zero, false
	}
	return c.entries[i], true
}

// First returns the first entry.
func (c *Container[T]) First() (T, bool) {
	return c.Get(0)
}

// Last returns the last entry.
func (c *Container[T]) Last() (T, bool) {
	return c.Get(len(c.entries) - 1)
}

// Entries returns a copy of the entry slice.
func (c *Container[T]) Entries() []T {
	return append([]T(nil), c.entries...)
}

// Push appends an entry.
func (c *Container[T]) Push(entry T) error {
	if err := c.node.Append(entry.Node()); err != nil {
		return err
	}
	c.entries = append(c.entries, entry)
	return nil
}

// Extend appends several entries.
func (c *Container[T]) Extend(entries ...T) error {
	for _, e := range entries {
		if err := c.Push(e); err != nil {
			return err
		}
	}
	return nil
}

// Insert places an entry at index i.
func (c *Container[T]) Insert(i int, entry T) error {
	if i < 0 || i > len(c.entries) {
		return c.boundsErr("dom.Container.Insert", i)
	}
	if err := c.node.Splice(i, 0, []*Node{entry.Node()}); err != nil {
		return err
	}
	c.entries = slices.Insert(c.entries, i, entry)
	return nil
}

// Splice removes `remove` entries at offset and inserts `add` in their
// place. Removed entries' nodes are torn down; the entries themselves are
// returned for inspection.
func (c *Container[T]) Splice(offset, remove int, add ...T) ([]T, error) {
	if offset < 0 || remove < 0 || offset+remove > len(c.entries) {
		return nil, c.boundsErr("dom.Container.Splice", offset)
	}
	nodes := make([]*Node, len(add))
	for i, e := range add {
		nodes[i] = e.Node()
	}
	if err := c.node.Splice(offset, remove, nodes); err != nil {
		return nil, err
	}
	removed := append([]T(nil), c.entries[offset:offset+remove]...)
	c.entries = slices.Delete(c.entries, offset, offset+remove)
	c.entries = slices.Insert(c.entries, offset, add...)
	return removed, nil
}

// Remove tears down the entry at index i and returns it.
func (c *Container[T]) Remove(i int) (T, error) {
	var zero T
	removed, err := c.Splice(i, 1)
	if err != nil {
		return zero, err
	}
	return removed[0], nil
}

// Pop removes the last entry. The boolean is false when the container is
// empty.
func (c *Container[T]) Pop() (T, bool, error) {
	var zero T
	if len(c.entries) == 0 {
		return zero, false, nil
	}
	e, err := c.Remove(len(c.entries) - 1)
	if err != nil {
		return zero, false, err
	}
	return e, true, nil
}

// Clear tears down all entries.
func (c *Container[T]) Clear() error {
	if err := c.node.Clear(); err != nil {
		return err
	}
	c.entries = nil
	return nil
}

func (c *Container[T]) boundsErr(op string, i int) error {
	return &errors.TreeError{
		Op:   op,
		Kind: errors.KindStructure,
		Node: c.node.id.String(),
		Err:  fmt.Errorf("index %d outside %d entries", i, len(c.entries)),
	}
}
