package signal

import (
	"fmt"
	"reflect"
	"slices"
)

var errorType = reflect.TypeFor[error]()

// Introspect returns the signature of the Go function fn. Go does not record
// parameter names, so they are taken from params in order; parameters not
// covered get the names arg0, arg1, and so on. Types always come from fn.
func Introspect(fn any, params ...Param) (Signature, error) {
	rv, err := funcValue(fn)
	if err != nil {
		return Signature{}, err
	}
	return signatureOf(rv.Type(), 0, params)
}

// funcValue returns fn as a callable reflect.Value.
func funcValue(fn any) (reflect.Value, error) {
	if fn == nil {
		return reflect.Value{}, ErrNotCallable
	}
	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func || rv.IsNil() {
		return reflect.Value{}, fmt.Errorf("%w: %T", ErrNotCallable, fn)
	}
	return rv, nil
}

// signatureOf builds a Signature from a function type, ignoring the first
// skip parameters (receivers and the like).
func signatureOf(typ reflect.Type, skip int, decl []Param) (Signature, error) {
	if typ.Kind() != reflect.Func {
		return Signature{}, fmt.Errorf("%w: %s", ErrNotCallable, typ)
	}
	n := typ.NumIn() - skip
	if n < 0 {
		return Signature{}, fmt.Errorf("%w: %s has no receiver parameter", ErrInvalidParams, typ)
	}
	if len(decl) > n {
		return Signature{}, fmt.Errorf("%w: %d declarations for %d parameters of %s",
			ErrInvalidParams, len(decl), n, typ)
	}

	sig := Signature{Params: make([]Param, n)}
	seen := make(map[string]bool, n)
	keywordSeen := false
	for i := range n {
		p := Param{Kind: Positional}
		if i < len(decl) {
			p = decl[i]
		}
		if p.Name == "" {
			p.Name = fmt.Sprintf("arg%d", i)
		}
		if seen[p.Name] {
			return Signature{}, fmt.Errorf("%w: duplicate parameter %q", ErrInvalidParams, p.Name)
		}
		seen[p.Name] = true

		goType := typ.In(skip + i)
		if typ.IsVariadic() && i == n-1 {
			if p.HasDefault {
				return Signature{}, fmt.Errorf("%w: variadic parameter %q cannot have a default",
					ErrInvalidParams, p.Name)
			}
			p.Kind = Variadic
			p.Type = goType.Elem()
		} else {
			if p.Kind == Variadic {
				return Signature{}, fmt.Errorf("%w: parameter %q is not variadic", ErrInvalidParams, p.Name)
			}
			p.Type = goType
		}

		switch p.Kind {
		case Keyword:
			keywordSeen = true
		case Positional:
			if keywordSeen {
				return Signature{}, fmt.Errorf("%w: positional parameter %q follows a keyword-only parameter",
					ErrInvalidParams, p.Name)
			}
		}

		if p.HasDefault {
			if _, err := convertValue(p.Default, p.Type); err != nil {
				return Signature{}, fmt.Errorf("%w: default for %q: %v", ErrInvalidParams, p.Name, err)
			}
		}
		sig.Params[i] = p
	}

	if typ.NumOut() > 0 {
		sig.Results = make([]reflect.Type, typ.NumOut())
		for i := range typ.NumOut() {
			sig.Results[i] = typ.Out(i)
		}
	}
	return sig, nil
}

// splitArgs separates a trailing Kwargs value from positional arguments.
func splitArgs(args []any) ([]any, Kwargs) {
	if len(args) == 0 {
		return nil, nil
	}
	if kw, ok := args[len(args)-1].(Kwargs); ok {
		return args[:len(args)-1], kw
	}
	return args, nil
}

// bind maps positional and keyword arguments onto the parameters of sig.
// The result holds one converted value per parameter; a variadic parameter
// receives a []any of its converted elements.
func bind(sig Signature, args []any, kw Kwargs) ([]any, error) {
	out := make([]any, len(sig.Params))
	filled := make([]bool, len(sig.Params))
	vi := sig.variadic()

	var positional []int
	for i, p := range sig.Params {
		if p.Kind == Positional {
			positional = append(positional, i)
		}
	}

	var rest []any
	for i, a := range args {
		if i < len(positional) {
			out[positional[i]] = a
			filled[positional[i]] = true
			continue
		}
		if vi < 0 {
			return nil, &ArgumentError{
				Reason: fmt.Sprintf("takes %d positional arguments but %d were given", len(positional), len(args)),
			}
		}
		rest = append(rest, a)
	}

	names := make([]string, 0, len(kw))
	for name := range kw {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		idx := slices.IndexFunc(sig.Params, func(p Param) bool {
			return p.Name == name && p.Kind != Variadic
		})
		if idx < 0 {
			return nil, &ArgumentError{Param: name, Reason: "unexpected keyword argument"}
		}
		if filled[idx] {
			return nil, &ArgumentError{Param: name, Reason: "multiple values for argument"}
		}
		out[idx] = kw[name]
		filled[idx] = true
	}

	for i, p := range sig.Params {
		if p.Kind == Variadic {
			converted := make([]any, len(rest))
			for j, r := range rest {
				v, err := convertValue(r, p.Type)
				if err != nil {
					return nil, &ArgumentError{Param: p.Name, Reason: err.Error()}
				}
				converted[j] = v
			}
			out[i] = converted
			continue
		}
		if !filled[i] {
			if !p.HasDefault {
				return nil, &ArgumentError{Param: p.Name, Reason: "missing required argument"}
			}
			out[i] = p.Default
		}
		v, err := convertValue(out[i], p.Type)
		if err != nil {
			return nil, &ArgumentError{Param: p.Name, Reason: err.Error()}
		}
		out[i] = v
	}
	return out, nil
}

// Convert converts v to type t the way arguments are converted before a
// slot runs. Bridges use it for values coming back from foreign callables.
func Convert(v any, t reflect.Type) (any, error) {
	return convertValue(v, t)
}

// convertValue converts v to type t. A nil t accepts any value. Numeric
// values convert between numeric kinds as long as no precision is lost.
func convertValue(v any, t reflect.Type) (any, error) {
	if t == nil {
		return v, nil
	}
	if v == nil {
		if nillable(t.Kind()) {
			return reflect.Zero(t).Interface(), nil
		}
		return nil, fmt.Errorf("nil is not a valid %s", t)
	}

	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		return v, nil
	}
	if numeric(rv.Kind()) && numeric(t.Kind()) {
		if flipsSign(rv, t) {
			return nil, fmt.Errorf("%v does not fit %s", v, t)
		}
		c := rv.Convert(t)
		if c.Convert(rv.Type()).Interface() == v {
			return c.Interface(), nil
		}
		return nil, fmt.Errorf("%v does not fit %s", v, t)
	}
	return nil, fmt.Errorf("%T is not assignable to %s", v, t)
}

// reflectArg turns a bound value into a call argument of type t.
func reflectArg(v any, t reflect.Type) reflect.Value {
	if v == nil {
		return reflect.Zero(t)
	}
	return reflect.ValueOf(v)
}

// callFunc invokes fn with an optional leading receiver and a bound argument
// vector produced by bind.
func callFunc(fn reflect.Value, recv reflect.Value, sig Signature, bound []any) []any {
	typ := fn.Type()
	in := make([]reflect.Value, 0, typ.NumIn())
	skip := 0
	if recv.IsValid() {
		in = append(in, recv)
		skip = 1
	}
	for i, p := range sig.Params {
		if p.Kind == Variadic {
			for _, r := range bound[i].([]any) {
				in = append(in, reflectArg(r, p.Type))
			}
			continue
		}
		in = append(in, reflectArg(bound[i], typ.In(skip+i)))
	}

	outs := fn.Call(in)
	results := make([]any, len(outs))
	for i, o := range outs {
		results[i] = o.Interface()
	}
	return results
}

// splitError separates a trailing error result from the values.
func splitError(types []reflect.Type, outs []any) ([]any, error) {
	if len(types) == 0 || len(outs) != len(types) || types[len(types)-1] != errorType {
		return outs, nil
	}
	last := len(outs) - 1
	err, _ := outs[last].(error)
	return outs[:last], err
}

func nillable(k reflect.Kind) bool {
	switch k {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map,
		reflect.Pointer, reflect.Slice, reflect.UnsafePointer:
		return true
	}
	return false
}

// flipsSign reports whether converting rv to t would change its sign, which
// the round-trip check misses between integer kinds of the same width.
func flipsSign(rv reflect.Value, t reflect.Type) bool {
	switch {
	case signed(rv.Kind()) && unsigned(t.Kind()):
		return rv.Int() < 0
	case unsigned(rv.Kind()) && signed(t.Kind()):
		return rv.Convert(t).Int() < 0
	case floating(rv.Kind()) && unsigned(t.Kind()):
		return rv.Float() < 0
	}
	return false
}

func signed(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func unsigned(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uintptr
}

func floating(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

func numeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
