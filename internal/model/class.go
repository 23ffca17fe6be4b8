package model

import "github.com/dshills/sigslot/internal/signal"

// Contract methods. Their bodies are never run; only their parameter and
// result types matter.

func (*Buffer) textChangedContract(text string, version int) {}

func (*Buffer) renamedContract(from, to string) {}

func (*Buffer) closedContract(name string) {}

func (*Buffer) validateContract(text string) bool { return false }

func (*Buffer) formatContract(text string) string { return "" }

var (
	textChanged = signal.DefineSignal[Buffer]("text_changed", (*Buffer).textChangedContract,
		signal.Arg("text"), signal.Arg("version")).
		WithDoc("Emitted after the text changes, with the new text and version.")

	renamed = signal.DefineSignal[Buffer]("renamed", (*Buffer).renamedContract,
		signal.Arg("old"), signal.Arg("new")).
		WithDoc("Emitted after Rename with the previous and the new name.")

	closed = signal.DefineSignal[Buffer]("closed", (*Buffer).closedContract,
		signal.Arg("name")).
		WithDoc("Emitted once when the buffer is closed.")

	onValidate = signal.DefineSocket[Buffer]("on_validate", (*Buffer).validateContract,
		signal.Arg("text")).
		WithDoc("Returns false to reject text passed to SetText.")

	onFormat = signal.DefineSocket[Buffer]("on_format", (*Buffer).formatContract,
		signal.Arg("text")).
		WithDoc("Rewrites text passed to SetText before it is stored.")
)

// BufferClass describes the signals and sockets of a Buffer.
var BufferClass = signal.NewClass[Buffer]("Buffer",
	textChanged, renamed, closed, onValidate, onFormat)

// TextChanged returns the buffer's text_changed signal.
func (b *Buffer) TextChanged() *signal.Signal { return textChanged.For(b) }

// Renamed returns the buffer's renamed signal.
func (b *Buffer) Renamed() *signal.Signal { return renamed.For(b) }

// Closed returns the buffer's closed signal.
func (b *Buffer) Closed() *signal.Signal { return closed.For(b) }

// OnValidate returns the buffer's on_validate socket.
func (b *Buffer) OnValidate() *signal.EventSocket { return onValidate.For(b) }

// OnFormat returns the buffer's on_format socket.
func (b *Buffer) OnFormat() *signal.EventSocket { return onFormat.For(b) }
