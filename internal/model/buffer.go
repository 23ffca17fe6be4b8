package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rivo/uniseg"
	"golang.org/x/text/unicode/norm"

	"github.com/dshills/sigslot/internal/signal"
)

// Errors returned by buffer operations.
var (
	ErrRejected = errors.New("text rejected by validator")
	ErrClosed   = errors.New("buffer is closed")
)

// Buffer is a named piece of text that announces its changes through
// signals and consults sockets before accepting new text.
//
// A Buffer is not safe for concurrent use.
type Buffer struct {
	id      uuid.UUID
	name    string
	text    string
	version int
	crlf    bool
	done    bool
}

// Option configures a Buffer.
type Option func(*Buffer)

// WithText sets the initial text. It does not emit text_changed.
func WithText(text string) Option {
	return func(b *Buffer) {
		b.text = b.normalize(text)
	}
}

// WithCRLF stores line endings as \r\n instead of \n.
func WithCRLF() Option {
	return func(b *Buffer) {
		b.crlf = true
	}
}

// NewBuffer creates an empty buffer named name.
func NewBuffer(name string, opts ...Option) *Buffer {
	b := &Buffer{
		id:   uuid.New(),
		name: name,
	}
	for _, opt := range opts {
		opt(b)
	}
	// WithText may run before WithCRLF.
	b.text = b.normalize(b.text)
	return b
}

// ID returns the buffer's unique identifier.
func (b *Buffer) ID() uuid.UUID { return b.id }

// Name returns the buffer name.
func (b *Buffer) Name() string { return b.name }

// Text returns the current text.
func (b *Buffer) Text() string { return b.text }

// Version is incremented on every accepted change.
func (b *Buffer) Version() int { return b.version }

// Len returns the length of the text in grapheme clusters.
func (b *Buffer) Len() int {
	return uniseg.GraphemeClusterCount(b.text)
}

// Lines returns the number of lines. An empty buffer has one line.
func (b *Buffer) Lines() int {
	return strings.Count(b.text, b.eol()) + 1
}

// IsClosed reports whether Close has been called.
func (b *Buffer) IsClosed() bool { return b.done }

// SetText replaces the buffer contents.
//
// The validate socket, if set, may veto the text; the format socket, if set,
// may rewrite it. text_changed is emitted when the stored text actually
// changes. An error from a socket or a slot is returned as is.
func (b *Buffer) SetText(text string) error {
	if b.done {
		return ErrClosed
	}
	text = b.normalize(text)

	if onValidate.Realized(b) {
		ok, set, err := signal.CallAs[bool](onValidate.For(b), text)
		if err != nil {
			return fmt.Errorf("validate: %w", err)
		}
		if set && !ok {
			return fmt.Errorf("%w: %q", ErrRejected, text)
		}
	}
	if onFormat.Realized(b) {
		formatted, set, err := signal.CallAs[string](onFormat.For(b), text)
		if err != nil {
			return fmt.Errorf("format: %w", err)
		}
		if set {
			text = b.normalize(formatted)
		}
	}

	if text == b.text {
		return nil
	}
	b.text = text
	b.version++
	if textChanged.Realized(b) {
		return textChanged.For(b).Emit(b.text, b.version)
	}
	return nil
}

// Append adds text at the end of the buffer.
func (b *Buffer) Append(text string) error {
	return b.SetText(b.text + text)
}

// Rename changes the buffer name and emits renamed.
func (b *Buffer) Rename(name string) error {
	if b.done {
		return ErrClosed
	}
	if name == b.name {
		return nil
	}
	old := b.name
	b.name = name
	if renamed.Realized(b) {
		return renamed.For(b).Emit(old, name)
	}
	return nil
}

// Close marks the buffer closed and emits closed. Closing twice is a no-op.
func (b *Buffer) Close() error {
	if b.done {
		return nil
	}
	b.done = true
	if closed.Realized(b) {
		return closed.For(b).Emit(b.name)
	}
	return nil
}

func (b *Buffer) eol() string {
	if b.crlf {
		return "\r\n"
	}
	return "\n"
}

// normalize converts text to NFC and the buffer's line ending style.
func (b *Buffer) normalize(s string) string {
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	if b.crlf {
		s = strings.ReplaceAll(s, "\n", "\r\n")
	}
	return s
}
