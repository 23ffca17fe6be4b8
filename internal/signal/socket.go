package signal

import (
	"errors"
	"fmt"
)

// EventSocket is a unicast delegate: it holds at most one slot and returns
// that slot's result. An empty socket, or one whose bound owner has been
// collected, does nothing when called.
//
// EventSocket is not safe for concurrent use.
type EventSocket struct {
	contract Signature
	slot     *Slot
}

// NewSocket creates an empty EventSocket with the given contract. Result
// types are part of the contract.
func NewSocket(contract Signature) *EventSocket {
	return &EventSocket{contract: contract}
}

// Contract returns the declared parameters and results.
func (e *EventSocket) Contract() Signature {
	return e.contract
}

// Set binds slot, replacing the current binding. A nil slot clears the
// socket. On error the current binding is kept.
func (e *EventSocket) Set(slot any) error {
	if slot == nil {
		e.slot = nil
		return nil
	}
	sl, err := Classify(slot)
	if err != nil {
		return err
	}
	if reason := Explain(e.contract, sl.sig, true); reason != "" {
		return &MismatchError{Declared: e.contract, Candidate: sl.sig, Reason: reason}
	}
	e.slot = &sl
	return nil
}

// IsSet reports whether a live slot is bound.
func (e *EventSocket) IsSet() bool {
	return e.slot != nil && e.slot.Alive()
}

// Call invokes the bound slot with args, a trailing Kwargs argument being
// bound by name. It returns nil when the socket is empty or the contract
// has no results, the value itself for a single result, and a []any for
// several. A trailing error result is returned as the error.
func (e *EventSocket) Call(args ...any) (any, error) {
	if !e.IsSet() {
		return nil, nil
	}
	sl := e.slot

	pos, kw := splitArgs(args)
	bound, err := bind(e.contract, pos, kw)
	if err != nil {
		return nil, err
	}
	in, err := project(e.contract, bound, sl.sig)
	if err != nil {
		return nil, err
	}
	outs, err := sl.invoke(in)
	if errors.Is(err, errCollected) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	vals, err := splitError(sl.sig.Results, outs)
	switch len(vals) {
	case 0:
		return nil, err
	case 1:
		return vals[0], err
	default:
		return vals, err
	}
}

// CallAs calls e and asserts the result to R. The boolean is false when
// the socket was empty or returned nothing.
func CallAs[R any](e *EventSocket, args ...any) (R, bool, error) {
	var zero R
	v, err := e.Call(args...)
	if err != nil {
		return zero, false, err
	}
	if v == nil {
		return zero, false, nil
	}
	r, ok := v.(R)
	if !ok {
		return zero, false, fmt.Errorf("socket result is %T, not %T", v, zero)
	}
	return r, true, nil
}
