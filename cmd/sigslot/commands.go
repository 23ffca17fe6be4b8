package main

import (
	"fmt"

	"github.com/dshills/sigslot/internal/luabind"
	"github.com/dshills/sigslot/internal/model"
	"github.com/dshills/sigslot/internal/signal"
)

// Contracts of the buffer commands published to scripts.
var (
	textCommand  = signal.MustDeclare[func(text string) error](signal.Arg("text"))
	nameCommand  = signal.MustDeclare[func(name string) error](signal.Arg("name"))
	plainCommand = signal.MustDeclare[func() error]()
	textQuery    = signal.MustDeclare[func() string]()
)

// command is a global function scripts call to drive the buffer.
type command struct {
	name     string
	doc      string
	contract signal.Signature
	slot     func(b *model.Buffer) *signal.Function
}

var commands = []command{
	{"set_text", "Replace the buffer text.", textCommand, func(b *model.Buffer) *signal.Function {
		return signal.Lambda(b.SetText, signal.Arg("text"))
	}},
	{"append", "Append to the buffer text.", textCommand, func(b *model.Buffer) *signal.Function {
		return signal.Lambda(b.Append, signal.Arg("text"))
	}},
	{"rename", "Rename the buffer.", nameCommand, func(b *model.Buffer) *signal.Function {
		return signal.Lambda(b.Rename, signal.Arg("name"))
	}},
	{"close", "Close the buffer.", plainCommand, func(b *model.Buffer) *signal.Function {
		return signal.Lambda(b.Close)
	}},
	{"text", "Return the buffer text.", textQuery, func(b *model.Buffer) *signal.Function {
		return signal.Lambda(b.Text)
	}},
}

// publish stores one socket per command as a global of h, each filled with
// the command bound to buf.
func publish(h *luabind.Host, buf *model.Buffer) error {
	for _, c := range commands {
		s := signal.NewSocket(c.contract)
		if err := s.Set(c.slot(buf)); err != nil {
			return fmt.Errorf("command %s: %w", c.name, err)
		}
		if err := h.SetGlobal(c.name, s); err != nil {
			return err
		}
	}
	return nil
}
