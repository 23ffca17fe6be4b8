package signal

import (
	"fmt"
	"reflect"
)

// Declare returns the contract described by the function type F.
//
//	sig, err := signal.Declare[func(value int) int](signal.Arg("value"))
func Declare[F any](params ...Param) (Signature, error) {
	typ := reflect.TypeFor[F]()
	if typ.Kind() != reflect.Func {
		return Signature{}, fmt.Errorf("%w: %s", ErrNotCallable, typ)
	}
	return signatureOf(typ, 0, params)
}

// MustDeclare is like Declare but panics on error. It is meant for
// package-level contracts.
func MustDeclare[F any](params ...Param) Signature {
	sig, err := Declare[F](params...)
	if err != nil {
		panic(err)
	}
	return sig
}

// ContractOf returns the contract described by fn's type. fn is never
// called.
func ContractOf(fn any, params ...Param) (Signature, error) {
	return Introspect(fn, params...)
}

// MethodContract returns the contract described by a method expression of
// T, such as (*Buffer).TextChanged. The receiver is not part of the
// contract and the method is never called, so its body is usually empty.
func MethodContract[T any](method any, params ...Param) (Signature, error) {
	rv, err := funcValue(method)
	if err != nil {
		return Signature{}, err
	}
	typ := rv.Type()
	if typ.NumIn() == 0 || (typ.In(0) != reflect.TypeFor[*T]() && typ.In(0) != reflect.TypeFor[T]()) {
		return Signature{}, fmt.Errorf("%w: %s is not a method of %s",
			ErrInvalidParams, typ, reflect.TypeFor[T]())
	}
	return signatureOf(typ, 1, params)
}

// contractFor resolves the contract argument of DefineSignal and
// DefineSocket: a Signature, or a method expression of T.
func contractFor[T any](contract any, params []Param) (Signature, error) {
	if sig, ok := contract.(Signature); ok {
		if len(params) > 0 {
			return Signature{}, fmt.Errorf("%w: parameters given with a declared signature", ErrInvalidParams)
		}
		return sig, nil
	}
	return MethodContract[T](contract, params...)
}
