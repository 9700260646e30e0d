// Package remote implements a rendering backend whose real tree lives on
// the other side of a connection.
//
// Every structural call is mirrored as a JSON command message to a frontend
// process that owns the actual visuals; UI events travel back as EVENT
// messages and are routed to listeners registered through Listen. The
// protocol is a small command vocabulary with one JSON object per message:
//
//	{"command":"CREATE","ref":"n1","kind":"div"}
//	{"command":"INSERT","ref":"n2","parent":"n1","index":0}
//	{"command":"DETACH","ref":"n1"}
//	{"command":"EVENT","listener":"l1","event":"click","data":{...}}
//
// Refs are allocated locally, so structural calls do not wait for the
// frontend: Detach is acknowledged by local bookkeeping and is therefore
// synchronous and idempotent from the tree's point of view.
package remote

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/go-anchor/anchor/pkg/backend"
	"github.com/go-anchor/anchor/pkg/errors"
)

type message struct {
	Command  string         `json:"command"`
	Ref      string         `json:"ref,omitempty"`
	Parent   string         `json:"parent,omitempty"`
	Index    int            `json:"index,omitempty"`
	Kind     string         `json:"kind,omitempty"`
	Text     string         `json:"text,omitempty"`
	Key      string         `json:"key,omitempty"`
	Value    string         `json:"value,omitempty"`
	Event    string         `json:"event,omitempty"`
	Listener string         `json:"listener,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

type listenerEntry struct {
	ref   string
	event string
	fn    func(backend.Event)
}

// Backend implements backend.Backend over a Transport.
type Backend struct {
	mu           sync.Mutex
	tr           Transport
	err          error
	nextRef      int
	nextListener int
	refs         map[string]bool
	detached     map[string]bool
	listeners    map[string]*listenerEntry
}

// New creates a remote backend on the given transport. Call Run to start
// delivering incoming events.
func New(tr Transport) *Backend {
	return &Backend{
		tr:        tr,
		refs:      make(map[string]bool),
		detached:  make(map[string]bool),
		listeners: make(map[string]*listenerEntry),
	}
}

// fatal records the first transport failure and closes the connection.
// Later calls keep returning the same error.
func (b *Backend) fatal(err error) error {
	if b.err == nil {
		b.err = err
		b.tr.Close()
	}
	return b.err
}

func (b *Backend) send(msg message) error {
	if b.err != nil {
		return b.err
	}
	buf, err := json.Marshal(msg)
	if err != nil {
		return b.fatal(fmt.Errorf("remote: encode %s: %w", msg.Command, err))
	}
	if err := b.tr.Send(buf); err != nil {
		return b.fatal(fmt.Errorf("remote: send %s: %w", msg.Command, err))
	}
	return nil
}

func (b *Backend) lookup(r backend.Ref) (string, error) {
	ref, ok := r.(string)
	if !ok || !b.refs[ref] {
		return "", fmt.Errorf("remote: %w: %v", errors.ErrStaleRef, r)
	}
	return ref, nil
}

// CreateVisual allocates a ref and tells the frontend to create a visual of
// the given kind.
func (b *Backend) CreateVisual(kind string) (backend.Ref, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextRef++
	ref := fmt.Sprintf("n%d", b.nextRef)
	if err := b.send(message{Command: "CREATE", Ref: ref, Kind: kind}); err != nil {
		return nil, err
	}
	b.refs[ref] = true
	return ref, nil
}

// Insert mirrors a structural insertion. A nil parent inserts at the top
// level of the frontend tree.
func (b *Backend) Insert(parent, child backend.Ref, index int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, err := b.lookup(child)
	if err != nil {
		return err
	}
	var p string
	if parent != nil {
		if p, err = b.lookup(parent); err != nil {
			return err
		}
	}
	delete(b.detached, c)
	return b.send(message{Command: "INSERT", Ref: c, Parent: p, Index: index})
}

// Detach removes the ref's subtree from the frontend tree. Exactly one
// DETACH message is sent per ref, no matter how often Detach is called.
func (b *Backend) Detach(ref backend.Ref) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, err := b.lookup(ref)
	if err != nil {
		return err
	}
	if b.detached[r] {
		return nil
	}
	if err := b.send(message{Command: "DETACH", Ref: r}); err != nil {
		return err
	}
	b.detached[r] = true
	return nil
}

// SetText mirrors a text update.
func (b *Backend) SetText(ref backend.Ref, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, err := b.lookup(ref)
	if err != nil {
		return err
	}
	return b.send(message{Command: "TEXT", Ref: r, Text: text})
}

// SetAttr mirrors an attribute update.
func (b *Backend) SetAttr(ref backend.Ref, key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, err := b.lookup(ref)
	if err != nil {
		return err
	}
	return b.send(message{Command: "ATTR", Ref: r, Key: key, Value: value})
}

// RemoveAttr mirrors an attribute removal.
func (b *Backend) RemoveAttr(ref backend.Ref, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, err := b.lookup(ref)
	if err != nil {
		return err
	}
	return b.send(message{Command: "UNATTR", Ref: r, Key: key})
}

// Listen registers fn for the named event on ref and tells the frontend to
// start delivering it.
func (b *Backend) Listen(ref backend.Ref, event string, fn func(backend.Event)) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, err := b.lookup(ref)
	if err != nil {
		return nil, err
	}
	b.nextListener++
	id := fmt.Sprintf("l%d", b.nextListener)
	if err := b.send(message{Command: "LISTEN", Ref: r, Event: event, Listener: id}); err != nil {
		return nil, err
	}
	b.listeners[id] = &listenerEntry{ref: r, event: event, fn: fn}

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.listeners[id]; !ok {
			return
		}
		delete(b.listeners, id)
		b.send(message{Command: "UNLISTEN", Listener: id})
	}, nil
}

// Run reads incoming messages and dispatches events until the transport
// closes. Listener callbacks run on this goroutine; the tree driven by this
// backend must be mutated from here, keeping the single-threaded model.
// Run returns nil on a clean close.
func (b *Backend) Run() error {
	for {
		buf, err := b.tr.Receive()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			b.mu.Lock()
			defer b.mu.Unlock()
			return b.fatal(fmt.Errorf("remote: receive: %w", err))
		}
		b.dispatch(buf)
	}
}

func (b *Backend) dispatch(buf []byte) {
	var msg message
	if err := json.Unmarshal(buf, &msg); err != nil {
		errors.Report(&errors.TreeError{Op: "remote.Run", Kind: errors.KindParse, Err: err})
		return
	}
	if msg.Command != "EVENT" {
		errors.Report(&errors.TreeError{
			Op:   "remote.Run",
			Kind: errors.KindParse,
			Err:  fmt.Errorf("unexpected inbound command %q", msg.Command),
		})
		return
	}

	b.mu.Lock()
	entry := b.listeners[msg.Listener]
	b.mu.Unlock()
	if entry == nil {
		// Event for a listener removed in the meantime; in-flight messages
		// of this kind are expected around teardown.
		return
	}
	entry.fn(backend.Event{Name: msg.Event, Data: msg.Data})
}

// Close shuts the transport down. Structural calls after Close fail.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return nil
	}
	b.err = fmt.Errorf("remote: closed")
	return b.tr.Close()
}
