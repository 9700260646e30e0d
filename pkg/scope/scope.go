// Package scope provides type-erased owned values.
//
// A Value holds arbitrary application data (a closure, a buffer, a
// subscription handle) opaquely, so that values of different types can live
// in one collection. The primary use is storing guard values that do nothing
// while alive but run some code when released. The dom package stores Values
// on nodes and releases them during teardown.
package scope

import "io"

// Value is an opaque owned value. Release runs the value's cleanup and is
// called exactly once by the holder when the owning scope ends. Value
// implementations in this package tolerate repeated Release calls; cleanup
// still runs only once.
type Value interface {
	Release()
}

type funcValue struct {
	f func()
}

func (v *funcValue) Release() {
	if v.f == nil {
		return
	}
	f := v.f
	v.f = nil
	f()
}

// Func wraps a closure that runs when the value is released.
func Func(f func()) Value {
	return &funcValue{f: f}
}

type keepValue struct {
	v any
}

func (k *keepValue) Release() {
	v := k.v
	k.v = nil
	switch t := v.(type) {
	case Value:
		t.Release()
	case io.Closer:
		t.Close()
	}
}

// Keep holds an arbitrary value for the lifetime of the scope. If the value
// implements Value it is released, and if it implements io.Closer it is
// closed; otherwise the reference is simply dropped.
func Keep(v any) Value {
	return &keepValue{v: v}
}

type groupValue struct {
	vs []Value
}

func (g *groupValue) Release() {
	vs := g.vs
	g.vs = nil
	for i := len(vs) - 1; i >= 0; i-- {
		vs[i].Release()
	}
}

// Group combines several values into one. Members are released in reverse
// order, so later members may depend on earlier ones.
func Group(vs ...Value) Value {
	return &groupValue{vs: vs}
}
