package signal

import (
	"fmt"

	"github.com/dshills/sigslot/internal/weakref"
)

// Attribute is a named, per-owner member of a Class.
type Attribute interface {
	// Name returns the attribute name.
	Name() string

	// Doc returns the attribute's documentation.
	Doc() string

	// Get returns the attribute's value for owner.
	Get(owner any) (any, error)

	// Set assigns the attribute's value for owner.
	Set(owner any, value any) error

	// Delete removes the attribute's value for owner.
	Delete(owner any) error
}

// SignalDescriptor declares a signal on owners of type T. Each owner gets its
// own Signal on first access; it is released together with the owner.
type SignalDescriptor[T any] struct {
	name      string
	doc       string
	contract  Signature
	instances *weakref.Map[*Signal]
}

// DefineSignal declares a signal named name. contract is a Signature or a
// method expression of T whose parameters (after the receiver) form the
// contract. It panics if the contract is invalid.
//
//	func (*Buffer) TextChanged(text string) {}
//
//	var textChanged = signal.DefineSignal[Buffer]("text_changed",
//		(*Buffer).TextChanged, signal.Arg("text"))
func DefineSignal[T any](name string, contract any, params ...Param) *SignalDescriptor[T] {
	sig, err := contractFor[T](contract, params)
	if err != nil {
		panic(fmt.Sprintf("signal %q: %v", name, err))
	}
	return &SignalDescriptor[T]{
		name:      name,
		contract:  sig,
		instances: weakref.NewMap[*Signal](),
	}
}

// WithDoc sets the documentation string and returns d.
func (d *SignalDescriptor[T]) WithDoc(doc string) *SignalDescriptor[T] {
	d.doc = doc
	return d
}

// Name returns the signal name.
func (d *SignalDescriptor[T]) Name() string { return d.name }

// Doc returns the documentation string.
func (d *SignalDescriptor[T]) Doc() string { return d.doc }

// Contract returns the declared parameter list.
func (d *SignalDescriptor[T]) Contract() Signature { return d.contract }

// For returns owner's Signal, creating it on first use. A nil owner gets a
// fresh Signal that is not remembered.
func (d *SignalDescriptor[T]) For(owner *T) *Signal {
	s, _ := d.instances.LoadOrStore(weakref.Make(owner), func() *Signal {
		return New(d.contract)
	})
	return s
}

// Realized reports whether owner's Signal has been created.
func (d *SignalDescriptor[T]) Realized(owner *T) bool {
	_, ok := d.instances.Load(weakref.Make(owner))
	return ok
}

// Live returns the number of owners with a realized Signal.
func (d *SignalDescriptor[T]) Live() int {
	return d.instances.Len()
}

// Get returns owner's *Signal.
func (d *SignalDescriptor[T]) Get(owner any) (any, error) {
	o, err := ownerOf[T](owner)
	if err != nil {
		return nil, err
	}
	return d.For(o), nil
}

// Set always fails: signals are connected to, never assigned.
func (d *SignalDescriptor[T]) Set(owner any, value any) error {
	return fmt.Errorf("%w %q", ErrReadOnlySignal, d.name)
}

// Delete always fails.
func (d *SignalDescriptor[T]) Delete(owner any) error {
	return fmt.Errorf("%w %q", ErrCannotDelete, d.name)
}

// SocketDescriptor declares an event socket on owners of type T.
type SocketDescriptor[T any] struct {
	name      string
	doc       string
	contract  Signature
	instances *weakref.Map[*EventSocket]
}

// DefineSocket declares an event socket named name. contract is as for
// DefineSignal; its result types are part of the contract. It panics if
// the contract is invalid.
func DefineSocket[T any](name string, contract any, params ...Param) *SocketDescriptor[T] {
	sig, err := contractFor[T](contract, params)
	if err != nil {
		panic(fmt.Sprintf("socket %q: %v", name, err))
	}
	return &SocketDescriptor[T]{
		name:      name,
		contract:  sig,
		instances: weakref.NewMap[*EventSocket](),
	}
}

// WithDoc sets the documentation string and returns d.
func (d *SocketDescriptor[T]) WithDoc(doc string) *SocketDescriptor[T] {
	d.doc = doc
	return d
}

// Name returns the socket name.
func (d *SocketDescriptor[T]) Name() string { return d.name }

// Doc returns the documentation string.
func (d *SocketDescriptor[T]) Doc() string { return d.doc }

// Contract returns the declared parameters and results.
func (d *SocketDescriptor[T]) Contract() Signature { return d.contract }

// For returns owner's EventSocket, creating it on first use. A nil owner
// gets a fresh socket that is not remembered.
func (d *SocketDescriptor[T]) For(owner *T) *EventSocket {
	s, _ := d.instances.LoadOrStore(weakref.Make(owner), func() *EventSocket {
		return NewSocket(d.contract)
	})
	return s
}

// Realized reports whether owner's EventSocket has been created.
func (d *SocketDescriptor[T]) Realized(owner *T) bool {
	_, ok := d.instances.Load(weakref.Make(owner))
	return ok
}

// Live returns the number of owners with a realized EventSocket.
func (d *SocketDescriptor[T]) Live() int {
	return d.instances.Len()
}

// Get returns owner's *EventSocket.
func (d *SocketDescriptor[T]) Get(owner any) (any, error) {
	o, err := ownerOf[T](owner)
	if err != nil {
		return nil, err
	}
	return d.For(o), nil
}

// Set binds value to owner's socket; nil clears it.
func (d *SocketDescriptor[T]) Set(owner any, value any) error {
	o, err := ownerOf[T](owner)
	if err != nil {
		return err
	}
	if err := d.For(o).Set(value); err != nil {
		return fmt.Errorf("socket %q: %w", d.name, err)
	}
	return nil
}

// Delete always fails. Assign nil to clear the binding instead.
func (d *SocketDescriptor[T]) Delete(owner any) error {
	return fmt.Errorf("%w %q", ErrCannotDelete, d.name)
}

func ownerOf[T any](owner any) (*T, error) {
	o, ok := owner.(*T)
	if !ok || o == nil {
		var want *T
		return nil, fmt.Errorf("%w: %T, want %T", ErrOwnerType, owner, want)
	}
	return o, nil
}
