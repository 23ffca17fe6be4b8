package luabind

import "errors"

// Errors for Lua host operations.
var (
	// ErrClosed is returned when operating on a closed host.
	ErrClosed = errors.New("lua host is closed")

	// ErrUnknownLibrary is returned when an option names a Lua library the
	// host does not offer.
	ErrUnknownLibrary = errors.New("unknown lua library")

	// ErrScript is returned when a Lua chunk or a Lua slot fails.
	ErrScript = errors.New("lua script failed")

	// ErrNoContract is returned when a Lua function is assigned to an
	// attribute that does not declare a contract.
	ErrNoContract = errors.New("attribute has no contract")
)
