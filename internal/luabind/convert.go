package luabind

import (
	"fmt"
	"reflect"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/sigslot/internal/signal"
)

// toGo converts a Lua value to a Go value. Integral numbers become int64,
// other numbers float64. Proxies resolve to the Go value they wrap.
func (h *Host) toGo(lv lua.LValue) any {
	return h.toGoVisited(lv, make(map[*lua.LTable]bool))
}

func (h *Host) toGoVisited(lv lua.LValue, visited map[*lua.LTable]bool) any {
	switch v := lv.(type) {
	case nil:
		return nil
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if visited[v] {
			return nil
		}
		visited[v] = true
		return h.tableToGo(v, visited)
	case *lua.LUserData:
		if o, ok := v.Value.(*object); ok {
			return o.owner
		}
		return v.Value
	default:
		return nil
	}
}

// tableToGo converts a sequence to []any and any other table to
// map[string]any.
func (h *Host) tableToGo(t *lua.LTable, visited map[*lua.LTable]bool) any {
	n := t.Len()
	count := 0
	t.ForEach(func(_, _ lua.LValue) { count++ })

	if n > 0 && n == count {
		arr := make([]any, n)
		for i := 1; i <= n; i++ {
			arr[i-1] = h.toGoVisited(t.RawGetInt(i), visited)
		}
		return arr
	}

	m := make(map[string]any, count)
	t.ForEach(func(k, v lua.LValue) {
		m[k.String()] = h.toGoVisited(v, visited)
	})
	return m
}

// toLua converts a Go value to a Lua value. Signals and sockets become
// proxies with their methods attached.
func (h *Host) toLua(v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return val
	case bool:
		return lua.LBool(val)
	case string:
		return lua.LString(val)
	case []byte:
		return lua.LString(val)
	case int:
		return lua.LNumber(val)
	case int8:
		return lua.LNumber(val)
	case int16:
		return lua.LNumber(val)
	case int32:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case uint:
		return lua.LNumber(val)
	case uint8:
		return lua.LNumber(val)
	case uint16:
		return lua.LNumber(val)
	case uint32:
		return lua.LNumber(val)
	case uint64:
		return lua.LNumber(val)
	case float32:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case error:
		return lua.LString(val.Error())
	case fmt.Stringer:
		return lua.LString(val.String())
	case *signal.Signal:
		return h.newProxy(signalType, val)
	case *signal.EventSocket:
		return h.newProxy(socketType, val)
	case []any:
		t := h.L.NewTable()
		for i, e := range val {
			t.RawSetInt(i+1, h.toLua(e))
		}
		return t
	case map[string]any:
		t := h.L.NewTable()
		for k, e := range val {
			t.RawSetString(k, h.toLua(e))
		}
		return t
	}
	return h.reflectToLua(v)
}

// reflectToLua handles slices, maps and pointers of other types. Anything
// else is passed through as plain userdata.
func (h *Host) reflectToLua(v any) lua.LValue {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		t := h.L.NewTable()
		for i := range rv.Len() {
			t.RawSetInt(i+1, h.toLua(rv.Index(i).Interface()))
		}
		return t
	case reflect.Map:
		t := h.L.NewTable()
		iter := rv.MapRange()
		for iter.Next() {
			t.RawSet(h.toLua(iter.Key().Interface()), h.toLua(iter.Value().Interface()))
		}
		return t
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return lua.LNil
		}
	}
	ud := h.L.NewUserData()
	ud.Value = v
	return ud
}
