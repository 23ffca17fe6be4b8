package signal

import (
	"fmt"
	"reflect"
	"weak"

	"github.com/dshills/sigslot/internal/weakref"
)

// SlotKind identifies how a slot holds its target.
type SlotKind int

const (
	// KindWeakFunction slots hold a *Function weakly and vanish once it is
	// collected.
	KindWeakFunction SlotKind = iota

	// KindStrongValue slots hold lambdas, partials, raw Go functions and
	// foreign callables strongly.
	KindStrongValue

	// KindBoundMethod slots hold an owner weakly and the method strongly.
	KindBoundMethod
)

// String returns a human-readable kind name.
func (k SlotKind) String() string {
	switch k {
	case KindWeakFunction:
		return "weak-function"
	case KindStrongValue:
		return "strong-value"
	case KindBoundMethod:
		return "bound-method"
	default:
		return "unknown"
	}
}

// Slot is a classified callable, ready to be stored by a Signal or an
// EventSocket.
type Slot struct {
	kind SlotKind
	sig  Signature

	// KindWeakFunction
	fn weak.Pointer[Function]

	// KindStrongValue, and the wrapped function of KindWeakFunction
	value Callable
	key   any

	// KindBoundMethod
	owner  weakref.Ref
	method ownedCallable
	code   uintptr
}

// Kind returns the slot kind.
func (s *Slot) Kind() SlotKind {
	return s.kind
}

// Signature returns the parameter list the slot was classified with.
func (s *Slot) Signature() Signature {
	return s.sig
}

// Alive reports whether the slot's target can still be invoked.
func (s *Slot) Alive() bool {
	switch s.kind {
	case KindWeakFunction:
		return s.fn.Value() != nil
	case KindBoundMethod:
		return s.owner.Alive()
	default:
		if e, ok := s.value.(Expiring); ok {
			return !e.Expired()
		}
		return true
	}
}

// Classify turns v into a Slot. It fails with ErrNotCallable if v cannot be
// invoked, and with ErrNilOwner or ErrInvalidParams if a wrapper is
// malformed.
func Classify(v any) (Slot, error) {
	switch c := v.(type) {
	case nil:
		return Slot{}, ErrNotCallable

	case *PartialFunc:
		if c == nil {
			return Slot{}, ErrNotCallable
		}
		sig, err := c.Signature()
		if err != nil {
			return Slot{}, err
		}
		return Slot{kind: KindStrongValue, sig: sig, value: c, key: c}, nil

	case *Function:
		if c == nil {
			return Slot{}, ErrNotCallable
		}
		sig, err := c.Signature()
		if err != nil {
			return Slot{}, err
		}
		if c.strong {
			return Slot{kind: KindStrongValue, sig: sig, value: c, key: c}, nil
		}
		return Slot{kind: KindWeakFunction, sig: sig, fn: weak.Make(c), key: c.key(sig)}, nil

	case ownedCallable:
		if reflect.ValueOf(c).IsNil() {
			return Slot{}, ErrNotCallable
		}
		sig, err := c.Signature()
		if err != nil {
			return Slot{}, err
		}
		owner := c.ownerRef()
		if !owner.Alive() {
			return Slot{}, fmt.Errorf("%w: method owner was collected", ErrNotCallable)
		}
		return Slot{kind: KindBoundMethod, sig: sig, owner: owner, method: c, code: c.methodKey()}, nil

	case Callable:
		sig, err := c.Signature()
		if err != nil {
			return Slot{}, err
		}
		return Slot{kind: KindStrongValue, sig: sig, value: c, key: foreignKey(c)}, nil
	}

	rv, err := funcValue(v)
	if err != nil {
		return Slot{}, err
	}
	sig, err := signatureOf(rv.Type(), 0, nil)
	if err != nil {
		return Slot{}, err
	}
	return Slot{
		kind:  KindStrongValue,
		sig:   sig,
		value: Lambda(v),
		key:   funcKey{typ: rv.Type(), ptr: rv.Pointer()},
	}, nil
}

// foreignKey returns the identity of a callable defined outside this
// package, or nil if it has none.
func foreignKey(c Callable) any {
	if k, ok := c.(SlotKeyer); ok {
		return k.SlotKey()
	}
	if reflect.TypeOf(c).Comparable() {
		return c
	}
	return nil
}

// sameAs reports whether two slots refer to the same target.
func (s *Slot) sameAs(o *Slot) bool {
	if s.kind != o.kind {
		return false
	}
	switch s.kind {
	case KindBoundMethod:
		return s.owner == o.owner && s.code == o.code
	default:
		return s.key != nil && s.key == o.key
	}
}

// invoke calls the slot with a vector bound to its own signature. It
// returns errCollected if the target is gone.
func (s *Slot) invoke(args []any) ([]any, error) {
	switch s.kind {
	case KindWeakFunction:
		f := s.fn.Value()
		if f == nil {
			return nil, errCollected
		}
		return f.Invoke(args)
	case KindBoundMethod:
		owner := s.owner.Value()
		if owner == nil {
			return nil, errCollected
		}
		return s.method.invokeOn(owner, args)
	default:
		if !s.Alive() {
			return nil, errCollected
		}
		return s.value.Invoke(args)
	}
}
