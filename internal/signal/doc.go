// Package signal provides typed, in-process callback dispatch: multicast
// signals, unicast event sockets, and the per-owner descriptors that expose
// them.
//
// # Overview
//
// A Signal calls every connected slot when emitted and discards their
// results. An EventSocket holds at most one slot and returns its result.
// Both check slots against a contract when they are connected or assigned,
// so a mismatched slot is rejected up front rather than failing at
// emission time.
//
//	                 ┌───────────────────────┐
//	                 │ SignalDescriptor[T]   │  one per owner type
//	                 │ SocketDescriptor[T]   │
//	                 └──────────┬────────────┘
//	                            │ For(owner) (weak owner map)
//	                            ▼
//	      ┌──────────────┐            ┌──────────────┐
//	      │    Signal    │            │ EventSocket  │  one per owner
//	      └──────┬───────┘            └──────┬───────┘
//	             │ Connect / Set             │
//	             ▼                           ▼
//	      ┌──────────────────────────────────────────┐
//	      │ Classify → Slot    Matches(contract, …)  │
//	      └──────────────────────────────────────────┘
//
// # Contracts
//
// A contract is a Signature: named parameters with kinds, types and
// defaults, plus result types. Go functions do not carry parameter names,
// so names and defaults are declared alongside the function:
//
//	func (*Buffer) TextChanged(text string, cursor int) {}
//
//	var textChanged = signal.DefineSignal[Buffer]("text_changed",
//		(*Buffer).TextChanged, signal.Arg("text"), signal.Arg("cursor"))
//
// The contract method is never called. Its receiver is not part of the
// contract.
//
// # Slots
//
// Five callable shapes are accepted, each with its own ownership:
//
//   - Func wraps a free function and is held weakly. The caller keeps the
//     *Function alive for as long as the connection should last.
//   - Method binds a method expression to an owner that is held weakly. The
//     slot disappears when the owner is collected.
//   - ClassMethod binds a function to a Class in place of an owner.
//   - Lambda, or a bare Go func value, is held strongly. A lambda that
//     captures an owner keeps that owner alive while connected.
//   - Partial pre-binds arguments of another callable and is held strongly.
//
// A slot matches a contract when its parameters have the same names, kinds
// and types in the same order. A slot may declare extra parameters if each
// has a default. Event sockets also compare result types.
//
// # Emission
//
// Emit binds its arguments to the contract once. Positional values come
// first and a trailing Kwargs carries keyword values. It then runs the
// plain slots in connection order, followed by bound methods. Slots are
// snapshotted first, so connecting or disconnecting from inside a slot
// takes effect on the next Emit. A slot that returns a non-nil error stops
// delivery. Panics are not recovered.
//
// # Concurrency
//
// Signals and sockets are meant for single-goroutine use and do no
// locking. Only the owner maps are synchronized, because the runtime prunes
// them from its cleanup goroutine.
package signal
