// Package luabind lets Lua scripts connect to signals and fill sockets.
//
// A Host owns one gopher-lua state. Go code exposes an owner under a global
// name together with the signal.Class describing it; scripts then use the
// class attributes with field syntax:
//
//	buf.text_changed:connect(function(text, version)
//		print("now at version", version)
//	end)
//
//	buf.on_validate = function(text)
//		return #text < 80
//	end
//
// A Lua function becomes a slot whose parameter names are read from its
// prototype and matched against the contract by name, the same way a Go
// function with declared parameter names is. Parameters the contract does
// not know must come last and are passed nil; a vararg function receives
// the contract's parameters it does not name.
//
// Connections made by a script do not keep the host or the exposed owners
// alive. Once the host is closed or collected its slots expire and are
// dropped by the signals and sockets that held them.
//
// Signals offer connect, disconnect, emit, clear, block, blocked and len.
// Sockets offer set, call and is_set, and can be called directly; Go code
// publishes commands to scripts by storing a socket with SetGlobal.
// kwargs{...} marks a trailing table as keyword arguments for emit and
// call. print writes to the host logger.
//
// Errors from Go (a rejected slot, a read-only attribute) are raised as Lua
// errors; errors from scripts surface in Go wrapped in ErrScript.
package luabind
