package signal

import (
	"fmt"
	"slices"
)

// Matches reports whether candidate may be connected to a contract
// declaring declared. Parameters are compared by name, kind and type;
// defaults are ignored. A candidate may add parameters the contract lacks
// as long as each has a default. With withResults set, the result types
// must also be equal.
func Matches(declared, candidate Signature, withResults bool) bool {
	return Explain(declared, candidate, withResults) == ""
}

// Explain returns the first reason candidate does not match declared, or
// the empty string if it does.
func Explain(declared, candidate Signature, withResults bool) string {
	if withResults && !slices.Equal(declared.Results, candidate.Results) {
		return fmt.Sprintf("results %v, want %v", candidate.Results, declared.Results)
	}
	if sameParams(declared.Params, candidate.Params) {
		return ""
	}

	shared := make([]Param, 0, len(candidate.Params))
	extra := 0
	for _, p := range candidate.Params {
		if _, ok := declared.Param(p.Name); ok {
			shared = append(shared, p)
			continue
		}
		if !p.HasDefault {
			return fmt.Sprintf("parameter %q is not in the contract and has no default", p.Name)
		}
		extra++
	}
	if extra == 0 {
		return firstDifference(declared.Params, candidate.Params)
	}
	if !sameParams(declared.Params, shared) {
		return firstDifference(declared.Params, shared)
	}
	return ""
}

// sameParams compares canonical forms: name, kind and type.
func sameParams(a, b []Param) bool {
	return slices.EqualFunc(a, b, func(x, y Param) bool {
		return x.Name == y.Name && x.Kind == y.Kind && x.Type == y.Type
	})
}

func firstDifference(declared, candidate []Param) string {
	for i, d := range declared {
		if i >= len(candidate) {
			return fmt.Sprintf("missing parameter %q", d.Name)
		}
		c := candidate[i]
		switch {
		case c.Name != d.Name:
			return fmt.Sprintf("parameter %d is %q, want %q", i, c.Name, d.Name)
		case c.Kind != d.Kind:
			return fmt.Sprintf("parameter %q is %s, want %s", d.Name, c.Kind, d.Kind)
		case c.Type != d.Type:
			return fmt.Sprintf("parameter %q has type %v, want %v", d.Name, c.Type, d.Type)
		}
	}
	if len(candidate) > len(declared) {
		return fmt.Sprintf("unexpected parameter %q", candidate[len(declared)].Name)
	}
	return "parameters differ"
}

// project maps a vector bound against declared onto target, whose
// signature matches declared. Parameters only target has take their
// defaults.
func project(declared Signature, bound []any, target Signature) ([]any, error) {
	if sameParams(declared.Params, target.Params) {
		return bound, nil
	}
	out := make([]any, len(target.Params))
	for i, p := range target.Params {
		if j := slices.IndexFunc(declared.Params, func(d Param) bool { return d.Name == p.Name }); j >= 0 {
			out[i] = bound[j]
			continue
		}
		if !p.HasDefault {
			return nil, &ArgumentError{Param: p.Name, Reason: "missing required argument"}
		}
		v, err := convertValue(p.Default, p.Type)
		if err != nil {
			return nil, &ArgumentError{Param: p.Name, Reason: err.Error()}
		}
		out[i] = v
	}
	return out, nil
}
