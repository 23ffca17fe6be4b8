package luabind

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"weak"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/sigslot/internal/signal"
)

var errorType = reflect.TypeFor[error]()

// luaSlot adapts a Lua function to signal.Callable.
//
// Parameter names come from the function's prototype. A name found in the
// contract takes that parameter's kind and type; any other name becomes an
// optional keyword parameter defaulting to nil and must come after the
// contract's. A vararg function also receives every contract parameter it
// does not name. Result types are adopted from the contract, and Lua
// results are converted to them.
//
// The function stays in its host's table. A slot refers to the host weakly,
// so a connection never keeps the Lua state, or the owners exposed in it,
// alive. The slot expires when the host is closed or collected.
type luaSlot struct {
	h   weak.Pointer[Host]
	id  uint64
	sig signal.Signature
	err error
}

// slotKey identifies a Lua function within one host.
type slotKey struct {
	h  weak.Pointer[Host]
	id uint64
}

func (h *Host) newSlot(fn *lua.LFunction, contract signal.Signature) *luaSlot {
	id, ok := h.ids[fn]
	if !ok {
		h.nextID++
		id = h.nextID
		h.ids[fn] = id
		h.fns[id] = fn
	}
	sig, err := luaSignature(fn, contract)
	return &luaSlot{h: h.self, id: id, sig: sig, err: err}
}

func luaSignature(fn *lua.LFunction, contract signal.Signature) (signal.Signature, error) {
	sig := signal.Signature{Results: contract.Results}
	if fn.IsG || fn.Proto == nil {
		sig.Params = contract.Params
		return sig, nil
	}

	proto := fn.Proto
	n := min(int(proto.NumParameters), len(proto.DbgLocals))
	named := make(map[string]bool, n)
	extra := ""
	for _, local := range proto.DbgLocals[:n] {
		named[local.Name] = true
		if p, ok := contract.Param(local.Name); ok {
			if extra != "" {
				return signal.Signature{}, fmt.Errorf("%w: parameter %q follows extra parameter %q",
					signal.ErrSignatureMismatch, local.Name, extra)
			}
			sig.Params = append(sig.Params, p)
			continue
		}
		if extra == "" {
			extra = local.Name
		}
		sig.Params = append(sig.Params, signal.Param{
			Name:       local.Name,
			Kind:       signal.Keyword,
			HasDefault: true,
		})
	}
	if proto.IsVarArg != 0 {
		for _, p := range contract.Params {
			if !named[p.Name] {
				sig.Params = append(sig.Params, p)
			}
		}
	}
	return sig, nil
}

// Signature returns the slot's parameter list.
func (s *luaSlot) Signature() (signal.Signature, error) {
	return s.sig, s.err
}

// SlotKey identifies the slot by its Lua function, so connecting the same
// function twice is a no-op and disconnecting it works.
func (s *luaSlot) SlotKey() any {
	return slotKey{h: s.h, id: s.id}
}

// Expired reports whether the host has been closed or collected.
func (s *luaSlot) Expired() bool {
	h := s.h.Value()
	return h == nil || h.closed
}

// Invoke calls the Lua function.
func (s *luaSlot) Invoke(args []any) ([]any, error) {
	h := s.h.Value()
	if h == nil || h.closed {
		return nil, ErrClosed
	}
	fn := h.fns[s.id]
	L := h.L

	release := h.bind(context.Background())
	defer release()

	L.Push(fn)
	nargs := 0
	for i, p := range s.sig.Params {
		if p.Kind == signal.Variadic {
			rest, _ := args[i].([]any)
			for _, r := range rest {
				L.Push(h.toLua(r))
				nargs++
			}
			continue
		}
		L.Push(h.toLua(args[i]))
		nargs++
	}

	nret := len(s.sig.Results)
	if err := L.PCall(nargs, nret, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScript, err)
	}
	rets := make([]lua.LValue, nret)
	for i := range nret {
		rets[i] = L.Get(i - nret)
	}
	L.Pop(nret)

	outs := make([]any, nret)
	for i, t := range s.sig.Results {
		if t == errorType {
			if err := luaError(rets[i]); err != nil {
				outs[i] = err
			}
			continue
		}
		v, err := signal.Convert(h.toGo(rets[i]), t)
		if err != nil {
			return nil, fmt.Errorf("%w: result %d: %v", ErrScript, i+1, err)
		}
		outs[i] = v
	}
	return outs, nil
}

// luaError maps a Lua value in an error result position: nil and false
// mean success, anything else is the error message.
func luaError(lv lua.LValue) error {
	if lv == lua.LNil || lv == lua.LFalse {
		return nil
	}
	return errors.New(lv.String())
}
