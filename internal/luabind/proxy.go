package luabind

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/sigslot/internal/signal"
)

// Metatable names.
const (
	objectType = "sigslot.object"
	signalType = "sigslot.signal"
	socketType = "sigslot.socket"
	kwargsType = "sigslot.kwargs"
)

// object is the userdata payload of an exposed owner.
type object struct {
	cls   *signal.Class
	owner any
}

// contracted is implemented by the signal and socket descriptors.
type contracted interface {
	Contract() signal.Signature
}

func (h *Host) registerTypes() {
	L := h.L

	mt := L.NewTypeMetatable(objectType)
	L.SetField(mt, "__index", L.NewFunction(h.objectIndex))
	L.SetField(mt, "__newindex", L.NewFunction(h.objectNewIndex))
	L.SetField(mt, "__tostring", L.NewFunction(func(L *lua.LState) int {
		o := checkObject(L, 1)
		L.Push(lua.LString(fmt.Sprintf("%s: %p", o.cls.Name(), o.owner)))
		return 1
	}))

	mt = L.NewTypeMetatable(signalType)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"connect":    h.signalConnect,
		"disconnect": h.signalDisconnect,
		"emit":       h.signalEmit,
		"clear":      h.signalClear,
		"block":      h.signalBlock,
		"blocked":    h.signalBlocked,
		"len":        h.signalLen,
	}))

	mt = L.NewTypeMetatable(socketType)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"set":    h.socketSet,
		"call":   h.socketCall,
		"is_set": h.socketIsSet,
	}))
	L.SetField(mt, "__call", L.NewFunction(h.socketCall))

	L.NewTypeMetatable(kwargsType)
}

func (h *Host) newObject(cls *signal.Class, owner any) *lua.LUserData {
	return h.newProxy(objectType, &object{cls: cls, owner: owner})
}

func (h *Host) newProxy(typ string, v any) *lua.LUserData {
	ud := h.L.NewUserData()
	ud.Value = v
	h.L.SetMetatable(ud, h.L.GetTypeMetatable(typ))
	return ud
}

func checkObject(L *lua.LState, n int) *object {
	if o, ok := L.CheckUserData(n).Value.(*object); ok {
		return o
	}
	L.ArgError(n, "object expected")
	return nil
}

func checkSignal(L *lua.LState) *signal.Signal {
	if s, ok := L.CheckUserData(1).Value.(*signal.Signal); ok {
		return s
	}
	L.ArgError(1, "signal expected")
	return nil
}

func checkSocket(L *lua.LState) *signal.EventSocket {
	if s, ok := L.CheckUserData(1).Value.(*signal.EventSocket); ok {
		return s
	}
	L.ArgError(1, "socket expected")
	return nil
}

// raise logs err and turns it into a Lua error. It does not return.
func (h *Host) raise(L *lua.LState, fields logrus.Fields, err error) {
	h.log.WithFields(fields).WithError(err).Warn("script call rejected")
	L.RaiseError("%s", err.Error())
}

// obj.name
func (h *Host) objectIndex(L *lua.LState) int {
	o := checkObject(L, 1)
	name := L.CheckString(2)
	v, err := o.cls.Get(o.owner, name)
	if err != nil {
		h.raise(L, logrus.Fields{"attribute": name}, err)
		return 0
	}
	L.Push(h.toLua(v))
	return 1
}

// obj.name = value
func (h *Host) objectNewIndex(L *lua.LState) int {
	o := checkObject(L, 1)
	name := L.CheckString(2)
	fields := logrus.Fields{"attribute": name}

	attr, ok := o.cls.Lookup(name)
	if !ok {
		h.raise(L, fields, fmt.Errorf("%w: %s.%s", signal.ErrNoAttribute, o.cls.Name(), name))
		return 0
	}
	var contract signal.Signature
	if c, ok := attr.(contracted); ok {
		contract = c.Contract()
	} else if _, isFn := L.Get(3).(*lua.LFunction); isFn {
		h.raise(L, fields, fmt.Errorf("%w: %s", ErrNoContract, name))
		return 0
	}

	if err := attr.Set(o.owner, h.slotValue(L.Get(3), contract)); err != nil {
		h.raise(L, fields, err)
		return 0
	}
	h.log.WithFields(fields).Debug("attribute assigned")
	return 0
}

// slotValue turns a Lua value into something Connect or Set accepts: a
// Lua function becomes a slot for contract, nil stays nil and anything
// else is converted as a plain value.
func (h *Host) slotValue(lv lua.LValue, contract signal.Signature) any {
	if fn, ok := lv.(*lua.LFunction); ok {
		return h.newSlot(fn, contract)
	}
	return h.toGo(lv)
}

// sig:connect(fn)
func (h *Host) signalConnect(L *lua.LState) int {
	s := checkSignal(L)
	if err := s.Connect(h.slotValue(L.CheckAny(2), s.Contract())); err != nil {
		h.raise(L, logrus.Fields{"op": "connect"}, err)
		return 0
	}
	h.log.WithField("slots", s.Len()).Debug("lua slot connected")
	return 0
}

// sig:disconnect(fn)
func (h *Host) signalDisconnect(L *lua.LState) int {
	s := checkSignal(L)
	s.Disconnect(h.slotValue(L.CheckAny(2), s.Contract()))
	return 0
}

// sig:emit(...)
func (h *Host) signalEmit(L *lua.LState) int {
	s := checkSignal(L)
	if err := s.Emit(h.args(L, 2)...); err != nil {
		h.raise(L, logrus.Fields{"op": "emit"}, err)
	}
	return 0
}

// sig:clear()
func (h *Host) signalClear(L *lua.LState) int {
	checkSignal(L).Clear()
	return 0
}

// sig:block(flag)
func (h *Host) signalBlock(L *lua.LState) int {
	checkSignal(L).SetBlocked(L.OptBool(2, true))
	return 0
}

// sig:blocked()
func (h *Host) signalBlocked(L *lua.LState) int {
	L.Push(lua.LBool(checkSignal(L).Blocked()))
	return 1
}

// sig:len()
func (h *Host) signalLen(L *lua.LState) int {
	L.Push(lua.LNumber(checkSignal(L).Len()))
	return 1
}

// sock:set(fn or nil)
func (h *Host) socketSet(L *lua.LState) int {
	s := checkSocket(L)
	if err := s.Set(h.slotValue(L.Get(2), s.Contract())); err != nil {
		h.raise(L, logrus.Fields{"op": "set"}, err)
	}
	return 0
}

// sock:call(...) and sock(...) return the slot's results.
func (h *Host) socketCall(L *lua.LState) int {
	s := checkSocket(L)
	v, err := s.Call(h.args(L, 2)...)
	if err != nil {
		h.raise(L, logrus.Fields{"op": "call"}, err)
		return 0
	}
	if v == nil {
		return 0
	}
	if vals, ok := v.([]any); ok && resultCount(s.Contract()) > 1 {
		for _, e := range vals {
			L.Push(h.toLua(e))
		}
		return len(vals)
	}
	L.Push(h.toLua(v))
	return 1
}

// sock:is_set()
func (h *Host) socketIsSet(L *lua.LState) int {
	L.Push(lua.LBool(checkSocket(L).IsSet()))
	return 1
}

// kwargs{name = value, ...} marks a table as keyword arguments for emit and
// call.
func (h *Host) kwargs(L *lua.LState) int {
	t := L.CheckTable(1)
	kw := make(signal.Kwargs)
	var bad error
	t.ForEach(func(k, v lua.LValue) {
		key, ok := k.(lua.LString)
		if !ok {
			bad = errors.New("kwargs keys must be strings")
			return
		}
		kw[string(key)] = h.toGo(v)
	})
	if bad != nil {
		L.ArgError(1, bad.Error())
		return 0
	}
	L.Push(h.newProxy(kwargsType, kw))
	return 1
}

// args converts the Lua arguments from index start on.
func (h *Host) args(L *lua.LState, start int) []any {
	top := L.GetTop()
	if top < start {
		return nil
	}
	out := make([]any, 0, top-start+1)
	for i := start; i <= top; i++ {
		out = append(out, h.toGo(L.Get(i)))
	}
	return out
}

func resultCount(sig signal.Signature) int {
	n := len(sig.Results)
	if n > 0 && sig.Results[n-1] == errorType {
		n--
	}
	return n
}
