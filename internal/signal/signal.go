package signal

import (
	"errors"
	"fmt"
	"slices"

	"github.com/dshills/sigslot/internal/weakref"
)

// Signal is a multicast dispatcher. Slots are checked against the contract
// when connected and run in-line, in connection order, when the signal is
// emitted: plain slots first, then bound methods.
//
// Signal is not safe for concurrent use.
type Signal struct {
	contract Signature
	slots    []*Slot
	methods  *weakref.Map[*Slot]
	blocked  bool
}

// New creates a Signal with the given contract.
func New(contract Signature) *Signal {
	return &Signal{
		contract: contract,
		methods:  weakref.NewMap[*Slot](),
	}
}

// Contract returns the declared parameter list.
func (s *Signal) Contract() Signature {
	return s.contract
}

// Connect adds slot. It returns an error wrapping ErrNotCallable if slot
// cannot be invoked, or a *MismatchError if its parameters do not match the
// contract; in both cases nothing changes. Connecting a slot that is
// already connected does nothing. A bound method replaces any method
// previously connected for the same owner.
func (s *Signal) Connect(slot any) error {
	sl, err := Classify(slot)
	if err != nil {
		return err
	}
	if reason := Explain(s.contract, sl.sig, false); reason != "" {
		return &MismatchError{Declared: s.contract, Candidate: sl.sig, Reason: reason}
	}

	if sl.kind == KindBoundMethod {
		if cur, ok := s.methods.Load(sl.owner); ok && cur.sameAs(&sl) {
			return nil
		}
		if !s.methods.Store(sl.owner, &sl) {
			return fmt.Errorf("%w: method owner was collected", ErrNotCallable)
		}
		return nil
	}

	s.prune()
	if slices.ContainsFunc(s.slots, sl.sameAs) {
		return nil
	}
	s.slots = append(s.slots, &sl)
	return nil
}

// Disconnect removes slot. Values that are not callable, or not connected,
// are ignored.
func (s *Signal) Disconnect(slot any) {
	sl, err := Classify(slot)
	if err != nil {
		return
	}
	if sl.kind == KindBoundMethod {
		if cur, ok := s.methods.Load(sl.owner); ok && cur.sameAs(&sl) {
			s.methods.Delete(sl.owner)
		}
		return
	}
	s.slots = slices.DeleteFunc(s.slots, sl.sameAs)
}

// IsConnected reports whether slot is connected.
func (s *Signal) IsConnected(slot any) bool {
	sl, err := Classify(slot)
	if err != nil {
		return false
	}
	if sl.kind == KindBoundMethod {
		cur, ok := s.methods.Load(sl.owner)
		return ok && cur.sameAs(&sl)
	}
	i := slices.IndexFunc(s.slots, sl.sameAs)
	return i >= 0 && s.slots[i].Alive()
}

// Emit calls every connected slot with args. A trailing Kwargs argument is
// bound by name. Emit does nothing while the signal is blocked.
//
// Arguments are bound against the contract before any slot runs; a failure
// is returned as an *ArgumentError. A slot returning a non-nil error as its
// last result stops delivery and that error is returned. Panics propagate.
// Slots connected or disconnected during Emit are seen by the next call.
func (s *Signal) Emit(args ...any) error {
	if s.blocked {
		return nil
	}
	pos, kw := splitArgs(args)
	bound, err := bind(s.contract, pos, kw)
	if err != nil {
		return err
	}

	s.prune()
	targets := slices.Clone(s.slots)
	s.methods.Range(func(_ any, sl *Slot) bool {
		targets = append(targets, sl)
		return true
	})

	for _, sl := range targets {
		in, err := project(s.contract, bound, sl.sig)
		if err != nil {
			return err
		}
		outs, err := sl.invoke(in)
		if errors.Is(err, errCollected) {
			continue
		}
		if err != nil {
			return err
		}
		if _, err := splitError(sl.sig.Results, outs); err != nil {
			return err
		}
	}
	return nil
}

// Clear disconnects every slot.
func (s *Signal) Clear() {
	s.slots = nil
	s.methods.Clear()
}

// Blocked reports whether emission is suppressed.
func (s *Signal) Blocked() bool {
	return s.blocked
}

// SetBlocked suppresses or resumes emission. Connected slots are kept.
func (s *Signal) SetBlocked(blocked bool) {
	s.blocked = blocked
}

// Len returns the number of live slots.
func (s *Signal) Len() int {
	s.prune()
	return len(s.slots) + s.methods.Len()
}

// prune drops slots whose target was collected or has expired.
func (s *Signal) prune() {
	s.slots = slices.DeleteFunc(s.slots, func(sl *Slot) bool {
		return !sl.Alive()
	})
}
