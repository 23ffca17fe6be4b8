package signal

import (
	"fmt"
	"reflect"

	"github.com/dshills/sigslot/internal/weakref"
)

// Callable is a slot target whose parameter list can be inspected.
//
// Invoke receives one value per parameter of Signature, in order, already
// converted to the parameter types; a variadic parameter receives a []any.
// Implementations outside this package are classified as strong values and
// may implement SlotKeyer to control duplicate detection.
type Callable interface {
	Signature() (Signature, error)
	Invoke(args []any) ([]any, error)
}

// SlotKeyer is implemented by callables that supply their own identity for
// duplicate detection. The key must be comparable.
type SlotKeyer interface {
	SlotKey() any
}

// Expiring is implemented by callables that can outlive their target, such
// as functions of a closed interpreter. An expired callable is dropped and
// skipped like a collected weak slot.
type Expiring interface {
	Expired() bool
}

// ownedCallable is implemented by method slots, which are stored against a
// weakly held owner.
type ownedCallable interface {
	Callable
	ownerRef() weakref.Ref
	methodKey() uintptr
	invokeOn(owner any, args []any) ([]any, error)
}

// Function wraps a Go function as a slot.
//
// A Function created by Func is referenced weakly by the signals it is
// connected to: keep the *Function reachable for as long as the connection
// should last. A Function created by Lambda is held strongly.
type Function struct {
	fn     any
	params []Param
	strong bool
}

// Func wraps a free function. Parameter names and defaults are declared by
// params in order.
func Func(fn any, params ...Param) *Function {
	return &Function{fn: fn, params: params}
}

// Lambda wraps an anonymous function. Lambdas are held strongly, so a
// function literal passed straight to Connect stays connected.
func Lambda(fn any, params ...Param) *Function {
	return &Function{fn: fn, params: params, strong: true}
}

// Signature returns the function's signature.
func (f *Function) Signature() (Signature, error) {
	rv, err := funcValue(f.fn)
	if err != nil {
		return Signature{}, err
	}
	return signatureOf(rv.Type(), 0, f.params)
}

// Invoke calls the function with a bound argument vector.
func (f *Function) Invoke(args []any) ([]any, error) {
	rv, err := funcValue(f.fn)
	if err != nil {
		return nil, err
	}
	sig, err := signatureOf(rv.Type(), 0, f.params)
	if err != nil {
		return nil, err
	}
	return callFunc(rv, reflect.Value{}, sig, args), nil
}

// funcKey identifies a raw Go function value by its code pointer.
type funcKey struct {
	typ reflect.Type
	ptr uintptr
}

// wrapperKey identifies the function a Func wraps, so two wrappers of the
// same function with the same declarations are one slot.
type wrapperKey struct {
	fn  funcKey
	sig string
}

func (f *Function) key(sig Signature) wrapperKey {
	rv := reflect.ValueOf(f.fn)
	return wrapperKey{fn: funcKey{typ: rv.Type(), ptr: rv.Pointer()}, sig: sig.String()}
}

// BoundMethod binds a method to an owner that is held weakly. Once the owner
// is collected the slot behaves as if it were never connected.
type BoundMethod[T any] struct {
	owner  weakref.Ref
	fn     any
	params []Param
}

// Method binds fn to owner. fn is a method expression such as (*T).Handle or
// T.Handle, or any function whose first parameter is *T or T. Names in
// params describe the parameters after the receiver.
func Method[T any](owner *T, fn any, params ...Param) *BoundMethod[T] {
	return &BoundMethod[T]{owner: weakref.Make(owner), fn: fn, params: params}
}

// ClassMethod binds fn to a class. The class takes the place of the
// receiver, so fn's first parameter is *Class.
func ClassMethod(cls *Class, fn any, params ...Param) *BoundMethod[Class] {
	return Method(cls, fn, params...)
}

// Owner returns the bound owner, or nil once it has been collected.
func (m *BoundMethod[T]) Owner() *T {
	return weakref.Resolve[T](m.owner)
}

// unbound validates fn and reports whether it takes the owner by value.
func (m *BoundMethod[T]) unbound() (reflect.Value, bool, error) {
	rv, err := funcValue(m.fn)
	if err != nil {
		return reflect.Value{}, false, err
	}
	typ := rv.Type()
	if typ.NumIn() == 0 {
		return reflect.Value{}, false, fmt.Errorf("%w: %s takes no receiver", ErrNotCallable, typ)
	}
	switch typ.In(0) {
	case reflect.TypeFor[*T]():
		return rv, false, nil
	case reflect.TypeFor[T]():
		return rv, true, nil
	}
	return reflect.Value{}, false, fmt.Errorf("%w: %s does not take %s as receiver",
		ErrNotCallable, typ, reflect.TypeFor[*T]())
}

// Signature returns the method's signature without the receiver.
func (m *BoundMethod[T]) Signature() (Signature, error) {
	if m.owner == nil {
		return Signature{}, ErrNilOwner
	}
	rv, _, err := m.unbound()
	if err != nil {
		return Signature{}, err
	}
	return signatureOf(rv.Type(), 1, m.params)
}

// Invoke calls the method on its owner. It does nothing if the owner has
// been collected.
func (m *BoundMethod[T]) Invoke(args []any) ([]any, error) {
	owner := m.Owner()
	if owner == nil {
		return nil, nil
	}
	return m.invokeOn(owner, args)
}

func (m *BoundMethod[T]) ownerRef() weakref.Ref {
	return m.owner
}

func (m *BoundMethod[T]) methodKey() uintptr {
	rv, err := funcValue(m.fn)
	if err != nil {
		return 0
	}
	return rv.Pointer()
}

func (m *BoundMethod[T]) invokeOn(owner any, args []any) ([]any, error) {
	typed, ok := owner.(*T)
	if !ok || typed == nil {
		return nil, errCollected
	}
	rv, byValue, err := m.unbound()
	if err != nil {
		return nil, err
	}
	sig, err := signatureOf(rv.Type(), 1, m.params)
	if err != nil {
		return nil, err
	}
	recv := reflect.ValueOf(typed)
	if byValue {
		recv = recv.Elem()
	}
	return callFunc(rv, recv, sig, args), nil
}

// PartialFunc is a callable with some arguments bound in advance.
type PartialFunc struct {
	target any
	args   []any
	kwargs []boundKeyword
}

type boundKeyword struct {
	name  string
	value any
}

// Partial binds leading positional arguments of target. target is a
// Callable or a Go function value. The bound parameters disappear from the
// partial's signature.
func Partial(target any, args ...any) *PartialFunc {
	return &PartialFunc{target: target, args: args}
}

// Bind binds a parameter by name. The parameter stays in the signature as a
// keyword-only parameter whose default is value; positional parameters after
// it become keyword-only as well. Bind returns p.
func (p *PartialFunc) Bind(name string, value any) *PartialFunc {
	p.kwargs = append(p.kwargs, boundKeyword{name: name, value: value})
	return p
}

// plan resolves the target and computes the partial's signature and the
// converted leading arguments.
func (p *PartialFunc) plan() (Callable, Signature, []any, error) {
	target, err := asCallable(p.target)
	if err != nil {
		return nil, Signature{}, nil, err
	}
	tsig, err := target.Signature()
	if err != nil {
		return nil, Signature{}, nil, err
	}

	k := len(p.args)
	if k > len(tsig.Params) {
		return nil, Signature{}, nil, fmt.Errorf("%w: %d bound arguments for %d parameters",
			ErrInvalidParams, k, len(tsig.Params))
	}
	prefix := make([]any, k)
	for i, a := range p.args {
		param := tsig.Params[i]
		if param.Kind != Positional {
			return nil, Signature{}, nil, fmt.Errorf("%w: cannot bind %s parameter %q by position",
				ErrInvalidParams, param.Kind, param.Name)
		}
		v, err := convertValue(a, param.Type)
		if err != nil {
			return nil, Signature{}, nil, fmt.Errorf("%w: bound argument %q: %v", ErrInvalidParams, param.Name, err)
		}
		prefix[i] = v
	}

	sig := Signature{
		Params:  append([]Param(nil), tsig.Params[k:]...),
		Results: tsig.Results,
	}
	for _, bk := range p.kwargs {
		idx := -1
		for i, param := range sig.Params {
			if param.Name == bk.name {
				idx = i
				break
			}
		}
		if idx < 0 || sig.Params[idx].Kind == Variadic {
			return nil, Signature{}, nil, fmt.Errorf("%w: cannot bind %q by keyword", ErrInvalidParams, bk.name)
		}
		if _, err := convertValue(bk.value, sig.Params[idx].Type); err != nil {
			return nil, Signature{}, nil, fmt.Errorf("%w: bound keyword %q: %v", ErrInvalidParams, bk.name, err)
		}
		sig.Params[idx].HasDefault = true
		sig.Params[idx].Default = bk.value
		for i := idx; i < len(sig.Params); i++ {
			if sig.Params[i].Kind == Positional {
				sig.Params[i].Kind = Keyword
			}
		}
	}
	return target, sig, prefix, nil
}

// Signature returns the signature left after binding.
func (p *PartialFunc) Signature() (Signature, error) {
	_, sig, _, err := p.plan()
	return sig, err
}

// Invoke calls the target with the bound arguments followed by args.
func (p *PartialFunc) Invoke(args []any) ([]any, error) {
	target, _, prefix, err := p.plan()
	if err != nil {
		return nil, err
	}
	full := make([]any, 0, len(prefix)+len(args))
	full = append(full, prefix...)
	full = append(full, args...)
	return target.Invoke(full)
}

// asCallable turns a Callable or a Go function value into a Callable.
func asCallable(v any) (Callable, error) {
	switch c := v.(type) {
	case nil:
		return nil, ErrNotCallable
	case Callable:
		return c, nil
	}
	if _, err := funcValue(v); err != nil {
		return nil, err
	}
	return Lambda(v), nil
}
