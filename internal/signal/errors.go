package signal

import "errors"

// Sentinel errors for signals, sockets and descriptors.
var (
	// ErrNotCallable is returned when a connected or assigned value cannot be
	// invoked as a slot.
	ErrNotCallable = errors.New("value is not callable")

	// ErrSignatureMismatch is returned when a slot's parameters do not match
	// the declared contract.
	ErrSignatureMismatch = errors.New("callable signature does not match the contract")

	// ErrReadOnlySignal is returned when assigning to a signal attribute.
	ErrReadOnlySignal = errors.New("can't assign to signal")

	// ErrCannotDelete is returned when deleting a signal or socket attribute.
	ErrCannotDelete = errors.New("can't delete attribute")

	// ErrNoAttribute is returned when a class has no attribute with a name.
	ErrNoAttribute = errors.New("no such attribute")

	// ErrOwnerType is returned when a descriptor is used with an owner of the
	// wrong type.
	ErrOwnerType = errors.New("owner has wrong type")

	// ErrArguments is returned when emission or call arguments cannot be
	// bound to the parameter list.
	ErrArguments = errors.New("invalid arguments")

	// ErrNilOwner is returned when a method slot is bound to a nil owner.
	ErrNilOwner = errors.New("owner cannot be nil")

	// ErrInvalidParams is returned when parameter declarations do not fit
	// the function they describe.
	ErrInvalidParams = errors.New("invalid parameter declarations")

	// errCollected reports a slot whose target was collected before the call.
	errCollected = errors.New("slot target was collected")
)

// MismatchError describes a rejected slot.
type MismatchError struct {
	// Declared is the contract the slot was checked against.
	Declared Signature

	// Candidate is the slot's signature.
	Candidate Signature

	// Reason is the first difference found.
	Reason string
}

// Error implements the error interface.
func (e *MismatchError) Error() string {
	return ErrSignatureMismatch.Error() + ": " + e.Reason +
		" (declared " + e.Declared.String() + ", got " + e.Candidate.String() + ")"
}

// Is allows errors.Is to match MismatchError with ErrSignatureMismatch.
func (e *MismatchError) Is(target error) bool {
	return target == ErrSignatureMismatch
}

// ArgumentError describes arguments that could not be bound to a parameter.
type ArgumentError struct {
	// Param is the parameter name, empty when the problem is not tied to one.
	Param string

	// Reason explains the failure.
	Reason string
}

// Error implements the error interface.
func (e *ArgumentError) Error() string {
	if e.Param == "" {
		return ErrArguments.Error() + ": " + e.Reason
	}
	return ErrArguments.Error() + ": " + e.Param + ": " + e.Reason
}

// Is allows errors.Is to match ArgumentError with ErrArguments.
func (e *ArgumentError) Is(target error) bool {
	return target == ErrArguments
}
