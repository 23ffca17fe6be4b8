package signal

import (
	"fmt"
	"reflect"
	"strings"
)

// ParamKind describes how an argument is bound to a parameter.
type ParamKind int

const (
	// Positional parameters are filled by position or by keyword.
	Positional ParamKind = iota

	// Keyword parameters are filled only by keyword (or by default).
	Keyword

	// Variadic is the trailing parameter collecting surplus positional values.
	Variadic
)

// String returns a human-readable kind name.
func (k ParamKind) String() string {
	switch k {
	case Positional:
		return "positional"
	case Keyword:
		return "keyword"
	case Variadic:
		return "variadic"
	default:
		return "unknown"
	}
}

// Param describes one formal parameter of a callable.
type Param struct {
	// Name is the parameter name used for matching and keyword binding.
	Name string

	// Kind is the binding kind.
	Kind ParamKind

	// Type is the parameter's type annotation; nil means unannotated.
	// For variadic parameters it is the element type.
	Type reflect.Type

	// HasDefault reports whether Default is used when no argument is given.
	HasDefault bool

	// Default is the value bound when the argument is omitted.
	Default any
}

// Arg declares a required parameter filled by position or keyword.
func Arg(name string) Param {
	return Param{Name: name, Kind: Positional}
}

// OptArg declares a parameter with a default value.
func OptArg(name string, def any) Param {
	return Param{Name: name, Kind: Positional, HasDefault: true, Default: def}
}

// KwArg declares a keyword-only parameter without a default.
func KwArg(name string) Param {
	return Param{Name: name, Kind: Keyword}
}

// OptKwArg declares a keyword-only parameter with a default value.
func OptKwArg(name string, def any) Param {
	return Param{Name: name, Kind: Keyword, HasDefault: true, Default: def}
}

// String formats the parameter as "name type", "*name type" for keyword-only
// and "name ...type" for variadic parameters, followed by "=default".
func (p Param) String() string {
	var b strings.Builder
	if p.Kind == Keyword {
		b.WriteByte('*')
	}
	b.WriteString(p.Name)
	if p.Type != nil {
		b.WriteByte(' ')
		if p.Kind == Variadic {
			b.WriteString("...")
		}
		b.WriteString(p.Type.String())
	} else if p.Kind == Variadic {
		b.WriteString(" ...")
	}
	if p.HasDefault {
		fmt.Fprintf(&b, "=%v", p.Default)
	}
	return b.String()
}

// Kwargs carries keyword arguments. Passed as the last argument to Emit or
// Call, its entries are bound to parameters by name.
type Kwargs map[string]any

// Signature is the formal parameter list and result types of a callable.
// It never includes a receiver parameter.
type Signature struct {
	Params  []Param
	Results []reflect.Type
}

// String formats the signature as "(a int, b string) -> (int)".
func (s Signature) String() string {
	parts := make([]string, len(s.Params))
	for i, p := range s.Params {
		parts[i] = p.String()
	}
	out := "(" + strings.Join(parts, ", ") + ")"
	if len(s.Results) > 0 {
		res := make([]string, len(s.Results))
		for i, r := range s.Results {
			res[i] = r.String()
		}
		out += " -> (" + strings.Join(res, ", ") + ")"
	}
	return out
}

// Names returns the parameter names in order.
func (s Signature) Names() []string {
	names := make([]string, len(s.Params))
	for i, p := range s.Params {
		names[i] = p.Name
	}
	return names
}

// Param returns the parameter with the given name.
func (s Signature) Param(name string) (Param, bool) {
	for _, p := range s.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// variadic returns the index of the variadic parameter, or -1.
func (s Signature) variadic() int {
	for i, p := range s.Params {
		if p.Kind == Variadic {
			return i
		}
	}
	return -1
}
