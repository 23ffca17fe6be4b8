// Package weakref provides weak references and an owner-keyed weak map.
//
// A Ref never keeps its target alive. A Map keyed by Refs drops an entry
// once the key object is collected: reads skip dead keys immediately, and a
// runtime cleanup removes the entry itself shortly after collection.
package weakref

import (
	"runtime"
	"weak"
)

// Ref is a type-erased weak reference.
//
// Two Refs compare equal if and only if they were made from the same
// pointer, so Refs can be used as map keys.
type Ref interface {
	// Value returns the referenced object, or nil once it has been collected.
	// The returned value keeps the object alive only as long as the caller
	// holds it.
	Value() any

	// Alive reports whether the referenced object is still reachable.
	Alive() bool

	// onCollect arranges for fn to run after the referent is collected.
	onCollect(fn func(Ref)) (runtime.Cleanup, bool)
}

// pointerRef is the Ref implementation for *T.
type pointerRef[T any] struct {
	p weak.Pointer[T]
}

// Make returns a weak reference to p. It returns nil if p is nil.
func Make[T any](p *T) Ref {
	if p == nil {
		return nil
	}
	return pointerRef[T]{p: weak.Make(p)}
}

// Value returns the referenced *T as any, or nil if it was collected.
func (r pointerRef[T]) Value() any {
	if v := r.p.Value(); v != nil {
		return v
	}
	return nil
}

// Alive reports whether the referent is still reachable.
func (r pointerRef[T]) Alive() bool {
	return r.p.Value() != nil
}

func (r pointerRef[T]) onCollect(fn func(Ref)) (runtime.Cleanup, bool) {
	v := r.p.Value()
	if v == nil {
		return runtime.Cleanup{}, false
	}
	// The cleanup argument holds only the weak pointer, never v.
	return runtime.AddCleanup(v, fn, Ref(r)), true
}

// Resolve returns the typed referent of r, or nil if r is dead or refers to
// a different type.
func Resolve[T any](r Ref) *T {
	if r == nil {
		return nil
	}
	pr, ok := r.(pointerRef[T])
	if !ok {
		return nil
	}
	return pr.p.Value()
}
