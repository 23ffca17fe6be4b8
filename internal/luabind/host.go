package luabind

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"
	"weak"

	"github.com/sirupsen/logrus"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/sigslot/internal/signal"
)

// DefaultTimeout bounds a single script run or a single Lua slot call made
// from Go.
const DefaultTimeout = 5 * time.Second

// DefaultLibraries are the Lua libraries opened when none are configured.
var DefaultLibraries = []string{"base", "table", "string", "math"}

// libraries lists the libraries a host may open. io, os, debug and package
// are deliberately absent.
var libraries = map[string]struct {
	name string
	open lua.LGFunction
}{
	"base":      {lua.BaseLibName, lua.OpenBase},
	"table":     {lua.TabLibName, lua.OpenTable},
	"string":    {lua.StringLibName, lua.OpenString},
	"math":      {lua.MathLibName, lua.OpenMath},
	"coroutine": {lua.CoroutineLibName, lua.OpenCoroutine},
}

// Host runs Lua scripts against Go owners exposed through their signal
// classes.
//
// gopher-lua's LState is not goroutine-safe. A Host, and every signal a
// script has connected to, must be used from one goroutine.
type Host struct {
	L *lua.LState

	log     logrus.FieldLogger
	timeout time.Duration
	libs    []string
	closed  bool

	self weak.Pointer[Host]

	// Lua functions handed out as slots, by id.
	fns    map[uint64]*lua.LFunction
	ids    map[*lua.LFunction]uint64
	nextID uint64
}

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the logger used for script output and diagnostics.
func WithLogger(log logrus.FieldLogger) Option {
	return func(h *Host) {
		h.log = log
	}
}

// WithTimeout sets the time limit for a script run or a slot call. Zero
// disables the limit.
func WithTimeout(d time.Duration) Option {
	return func(h *Host) {
		h.timeout = d
	}
}

// WithLibraries selects the Lua libraries to open.
func WithLibraries(names ...string) Option {
	return func(h *Host) {
		h.libs = names
	}
}

// New creates a Host with a fresh Lua state.
func New(opts ...Option) (*Host, error) {
	h := &Host{
		log:     logrus.StandardLogger(),
		timeout: DefaultTimeout,
		libs:    DefaultLibraries,
		fns:     make(map[uint64]*lua.LFunction),
		ids:     make(map[*lua.LFunction]uint64),
	}
	h.self = weak.Make(h)
	for _, opt := range opts {
		opt(h)
	}

	h.L = lua.NewState(lua.Options{SkipOpenLibs: true})
	if err := h.openLibraries(); err != nil {
		h.L.Close()
		return nil, err
	}
	h.installGlobals()
	h.registerTypes()
	return h, nil
}

func (h *Host) openLibraries() error {
	for _, name := range h.libs {
		lib, ok := libraries[name]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownLibrary, name)
		}
		err := h.L.CallByParam(lua.P{
			Fn:      h.L.NewFunction(lib.open),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name))
		if err != nil {
			return fmt.Errorf("open %s: %w", name, err)
		}
	}
	return nil
}

// installGlobals routes print to the logger and adds the kwargs helper.
func (h *Host) installGlobals() {
	h.L.SetGlobal("print", h.L.NewFunction(func(L *lua.LState) int {
		parts := make([]string, L.GetTop())
		for i := range parts {
			parts[i] = L.ToStringMeta(L.Get(i + 1)).String()
		}
		h.log.WithField("source", "lua").Info(strings.Join(parts, "\t"))
		return 0
	}))
	h.L.SetGlobal("kwargs", h.L.NewFunction(h.kwargs))
}

// Expose makes owner available to scripts as the global name. Attributes
// of cls are read and assigned with the usual field syntax.
func (h *Host) Expose(name string, cls *signal.Class, owner any) error {
	if h.closed {
		return ErrClosed
	}
	if reflect.TypeOf(owner) != cls.OwnerType() {
		return fmt.Errorf("%w: %T is not %s", signal.ErrOwnerType, owner, cls.OwnerType())
	}
	h.L.SetGlobal(name, h.newObject(cls, owner))
	h.log.WithFields(logrus.Fields{"global": name, "class": cls.Name()}).Debug("exposed owner")
	return nil
}

// SetGlobal converts v and stores it as the global name. Signals and
// sockets become proxies; a socket proxy can be called like a function.
func (h *Host) SetGlobal(name string, v any) error {
	if h.closed {
		return ErrClosed
	}
	h.L.SetGlobal(name, h.toLua(v))
	return nil
}

// DoString runs a Lua chunk.
func (h *Host) DoString(ctx context.Context, code string) error {
	return h.run(ctx, "<string>", func() error {
		return h.L.DoString(code)
	})
}

// DoFile runs a Lua file.
func (h *Host) DoFile(ctx context.Context, path string) error {
	return h.run(ctx, path, func() error {
		return h.L.DoFile(path)
	})
}

func (h *Host) run(ctx context.Context, chunk string, fn func() error) (err error) {
	if h.closed {
		return ErrClosed
	}
	log := h.log.WithField("chunk", chunk)

	release := h.bind(ctx)
	defer release()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: lua panic: %v", ErrScript, chunk, r)
		}
		if err != nil {
			log.WithError(err).Warn("script failed")
		}
	}()

	start := time.Now()
	if err := fn(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrScript, chunk, err)
	}
	log.WithField("elapsed", time.Since(start)).Debug("script finished")
	return nil
}

// bind attaches a deadline to the Lua state unless one is already in
// effect, and returns the function that detaches it.
func (h *Host) bind(ctx context.Context) func() {
	if h.L.Context() != nil {
		return func() {}
	}
	cancel := func() {}
	if h.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
	}
	h.L.SetContext(ctx)
	return func() {
		h.L.RemoveContext()
		cancel()
	}
}

// Close releases the Lua state. Slots created by scripts expire and are
// dropped by the signals and sockets holding them.
func (h *Host) Close() error {
	if h.closed {
		return nil
	}
	h.L.Close()
	h.L = nil
	h.fns = nil
	h.ids = nil
	h.closed = true
	return nil
}

// IsClosed reports whether Close has been called.
func (h *Host) IsClosed() bool {
	return h.closed
}
