package signal

import (
	"errors"
	"math"
	"runtime"
	"testing"
)

var valueContract = MustDeclare[func(value int)](Arg("value"))

// recorder collects the values its slots receive.
type recorder struct {
	name   string
	values []int
}

func (r *recorder) Record(value int) {
	r.values = append(r.values, value)
}

func (r *recorder) RecordTwice(value int) {
	r.values = append(r.values, value, value)
}

func (r *recorder) slot() *Function {
	return Func(func(value int) {
		r.values = append(r.values, value)
	}, Arg("value"))
}

func TestSignal_ScenarioIdempotentConnect(t *testing.T) {
	sig := New(valueContract)
	rec := &recorder{}
	g := rec.slot()

	if err := sig.Connect(g); err != nil {
		t.Fatalf("Connect() failed: %v", err)
	}
	if err := sig.Emit(42); err != nil {
		t.Fatalf("Emit() failed: %v", err)
	}
	if len(rec.values) != 1 || rec.values[0] != 42 {
		t.Fatalf("expected [42], got %v", rec.values)
	}

	if err := sig.Connect(g); err != nil {
		t.Fatalf("second Connect() failed: %v", err)
	}
	rec.values = nil
	if err := sig.Emit(7); err != nil {
		t.Fatalf("Emit() failed: %v", err)
	}
	if len(rec.values) != 1 || rec.values[0] != 7 {
		t.Errorf("expected exactly one call with 7, got %v", rec.values)
	}
	if sig.Len() != 1 {
		t.Errorf("expected 1 slot, got %d", sig.Len())
	}
	runtime.KeepAlive(g)
}

func TestSignal_ConnectDisconnectSymmetry(t *testing.T) {
	rec := &recorder{name: "owner"}
	fn := rec.slot()
	lambda := Lambda(func(value int) {}, Arg("value"))
	raw := func(arg0 int) {}
	partial := Partial(Lambda(func(prefix string, value int) {}, Arg("prefix"), Arg("value")), "p")
	method := Method(rec, (*recorder).Record, Arg("value"))

	tests := []struct {
		name string
		slot any
	}{
		{"function", fn},
		{"lambda", lambda},
		{"partial", partial},
		{"method", method},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := New(valueContract)
			if err := sig.Connect(Lambda(func(value int) {}, Arg("value"))); err != nil {
				t.Fatalf("Connect() failed: %v", err)
			}
			before := sig.Len()

			if err := sig.Connect(tt.slot); err != nil {
				t.Fatalf("Connect() failed: %v", err)
			}
			if !sig.IsConnected(tt.slot) {
				t.Error("expected slot to be connected")
			}
			sig.Disconnect(tt.slot)
			if sig.IsConnected(tt.slot) {
				t.Error("expected slot to be disconnected")
			}
			if sig.Len() != before {
				t.Errorf("expected %d slots after disconnect, got %d", before, sig.Len())
			}
		})
	}

	t.Run("raw func", func(t *testing.T) {
		sig := New(MustDeclare[func(int)]())
		if err := sig.Connect(raw); err != nil {
			t.Fatalf("Connect() failed: %v", err)
		}
		if err := sig.Connect(raw); err != nil {
			t.Fatalf("Connect() failed: %v", err)
		}
		if sig.Len() != 1 {
			t.Errorf("expected raw func to be deduplicated, got %d slots", sig.Len())
		}
		sig.Disconnect(raw)
		if sig.Len() != 0 {
			t.Errorf("expected 0 slots, got %d", sig.Len())
		}
	})
	runtime.KeepAlive(fn)
}

func TestSignal_DefensiveDisconnect(t *testing.T) {
	sig := New(valueContract)
	rec := &recorder{}
	g := rec.slot()
	if err := sig.Connect(g); err != nil {
		t.Fatalf("Connect() failed: %v", err)
	}

	sig.Disconnect(nil)
	sig.Disconnect(42)
	sig.Disconnect("not callable")
	sig.Disconnect((*Function)(nil))
	sig.Disconnect(Lambda(func(value int) {}, Arg("value")))
	sig.Disconnect(Method(&recorder{}, (*recorder).Record, Arg("value")))

	if sig.Len() != 1 {
		t.Errorf("expected 1 slot, got %d", sig.Len())
	}
	if err := sig.Emit(1); err != nil {
		t.Fatalf("Emit() failed: %v", err)
	}
	if len(rec.values) != 1 {
		t.Errorf("expected slot to still be called, got %v", rec.values)
	}
	runtime.KeepAlive(g)
}

// connectDetached connects a function slot that is unreachable once this
// returns.
func connectDetached(t *testing.T, sig *Signal, calls *int) {
	t.Helper()
	fn := Func(func(value int) { *calls++ }, Arg("value"))
	if err := sig.Connect(fn); err != nil {
		t.Fatalf("Connect() failed: %v", err)
	}
}

func TestSignal_WeakFunctionVanishes(t *testing.T) {
	sig := New(valueContract)
	calls := 0
	connectDetached(t, sig, &calls)

	runtime.GC()

	if err := sig.Emit(1); err != nil {
		t.Fatalf("Emit() failed: %v", err)
	}
	if calls != 0 {
		t.Errorf("expected collected slot not to be called, got %d calls", calls)
	}
	if sig.Len() != 0 {
		t.Errorf("expected 0 live slots, got %d", sig.Len())
	}
}

// connectDetachedOwner connects a method of an owner that is unreachable
// once this returns.
func connectDetachedOwner(t *testing.T, sig *Signal) {
	t.Helper()
	owner := &recorder{name: "detached"}
	if err := sig.Connect(Method(owner, (*recorder).Record, Arg("value"))); err != nil {
		t.Fatalf("Connect() failed: %v", err)
	}
}

func TestSignal_BoundMethodOwnerCollected(t *testing.T) {
	sig := New(valueContract)
	connectDetachedOwner(t, sig)
	if sig.Len() != 1 {
		t.Fatalf("expected 1 slot before GC, got %d", sig.Len())
	}

	runtime.GC()

	if sig.Len() != 0 {
		t.Errorf("expected 0 slots after GC, got %d", sig.Len())
	}
	if err := sig.Emit(1); err != nil {
		t.Errorf("Emit() failed: %v", err)
	}
}

func TestSignal_LambdaHeldStrongly(t *testing.T) {
	sig := New(valueContract)
	calls := 0
	if err := sig.Connect(Lambda(func(value int) { calls++ }, Arg("value"))); err != nil {
		t.Fatalf("Connect() failed: %v", err)
	}

	runtime.GC()

	if err := sig.Emit(1); err != nil {
		t.Fatalf("Emit() failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected lambda to survive GC, got %d calls", calls)
	}
}

func TestSignal_SignatureGate(t *testing.T) {
	tests := []struct {
		name    string
		slot    any
		wantErr bool
	}{
		{"exact", Lambda(func(value int) {}, Arg("value")), false},
		{"missing parameter", Lambda(func() {}), true},
		{"renamed parameter", Lambda(func(v int) {}, Arg("v")), true},
		{"retyped parameter", Lambda(func(value string) {}, Arg("value")), true},
		{"keyword-only parameter", Lambda(func(value int) {}, KwArg("value")), true},
		{"extra required parameter", Lambda(func(value int, extra int) {}, Arg("value"), Arg("extra")), true},
		{"extra defaulted keyword", Lambda(func(value int, kiwi string) {}, Arg("value"), OptKwArg("kiwi", "green")), false},
		{"extra defaulted positional", Lambda(func(value int, scale int) {}, Arg("value"), OptArg("scale", 2)), false},
		{"extra default but retyped shared", Lambda(func(value string, kiwi int) {}, Arg("value"), OptKwArg("kiwi", 1)), true},
		{"results ignored", Lambda(func(value int) int { return value }, Arg("value")), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := New(valueContract)
			err := sig.Connect(tt.slot)
			if tt.wantErr {
				if !errors.Is(err, ErrSignatureMismatch) {
					t.Errorf("expected ErrSignatureMismatch, got %v", err)
				}
				var mismatch *MismatchError
				if !errors.As(err, &mismatch) || mismatch.Reason == "" {
					t.Errorf("expected *MismatchError with a reason, got %v", err)
				}
				if sig.Len() != 0 {
					t.Errorf("expected rejected slot not to be stored, got %d slots", sig.Len())
				}
				return
			}
			if err != nil {
				t.Errorf("Connect() failed: %v", err)
			}
		})
	}
}

func TestSignal_ConnectNotCallable(t *testing.T) {
	sig := New(valueContract)
	for _, v := range []any{nil, 42, "text", (*Function)(nil), Func(42)} {
		if err := sig.Connect(v); !errors.Is(err, ErrNotCallable) {
			t.Errorf("Connect(%T) expected ErrNotCallable, got %v", v, err)
		}
	}
	if sig.Len() != 0 {
		t.Errorf("expected no slots, got %d", sig.Len())
	}
}

func TestSignal_ConnectNilOwner(t *testing.T) {
	sig := New(valueContract)
	err := sig.Connect(Method[recorder](nil, (*recorder).Record, Arg("value")))
	if !errors.Is(err, ErrNilOwner) {
		t.Errorf("expected ErrNilOwner, got %v", err)
	}
}

func TestSignal_Block(t *testing.T) {
	sig := New(valueContract)
	calls := 0
	sig.Connect(Lambda(func(value int) { calls++ }, Arg("value")))

	sig.SetBlocked(true)
	if !sig.Blocked() {
		t.Error("expected signal to be blocked")
	}
	if err := sig.Emit(1); err != nil {
		t.Fatalf("Emit() failed: %v", err)
	}
	if calls != 0 {
		t.Errorf("expected no calls while blocked, got %d", calls)
	}

	sig.SetBlocked(false)
	if err := sig.Emit(1); err != nil {
		t.Fatalf("Emit() failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected delivery to resume, got %d calls", calls)
	}
}

func TestSignal_Clear(t *testing.T) {
	sig := New(valueContract)
	rec := &recorder{}
	sig.Connect(Lambda(func(value int) {}, Arg("value")))
	sig.Connect(Method(rec, (*recorder).Record, Arg("value")))

	sig.Clear()
	sig.Clear()

	if sig.Len() != 0 {
		t.Errorf("expected 0 slots after Clear(), got %d", sig.Len())
	}
	if err := sig.Emit(3); err != nil {
		t.Fatalf("Emit() failed: %v", err)
	}
	if len(rec.values) != 0 {
		t.Errorf("expected no calls after Clear(), got %v", rec.values)
	}
}

func TestSignal_DeliveryOrder(t *testing.T) {
	sig := New(valueContract)
	var order []string
	rec := &recorder{}

	sig.Connect(Method(rec, func(r *recorder, value int) { order = append(order, "method") }, Arg("value")))
	sig.Connect(Lambda(func(value int) { order = append(order, "first") }, Arg("value")))
	sig.Connect(Lambda(func(value int) { order = append(order, "second") }, Arg("value")))

	if err := sig.Emit(0); err != nil {
		t.Fatalf("Emit() failed: %v", err)
	}
	want := []string{"first", "second", "method"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("expected %v, got %v", want, order)
			break
		}
	}
}

func TestSignal_MethodReplacesSameOwner(t *testing.T) {
	sig := New(valueContract)
	rec := &recorder{}

	sig.Connect(Method(rec, (*recorder).Record, Arg("value")))
	sig.Connect(Method(rec, (*recorder).RecordTwice, Arg("value")))
	if sig.Len() != 1 {
		t.Fatalf("expected 1 slot, got %d", sig.Len())
	}

	sig.Emit(5)
	if len(rec.values) != 2 {
		t.Errorf("expected the second method to replace the first, got %v", rec.values)
	}

	sig.Disconnect(Method(rec, (*recorder).Record, Arg("value")))
	if sig.Len() != 1 {
		t.Errorf("expected disconnect of a replaced method to be a no-op, got %d slots", sig.Len())
	}
}

func TestSignal_ValueReceiverMethod(t *testing.T) {
	type counter struct {
		name  string
		total *int
	}
	total := 0
	c := &counter{name: "c", total: &total}

	sig := New(valueContract)
	err := sig.Connect(Method(c, func(c counter, value int) { *c.total += value }, Arg("value")))
	if err != nil {
		t.Fatalf("Connect() failed: %v", err)
	}
	sig.Emit(4)
	if total != 4 {
		t.Errorf("expected 4, got %d", total)
	}
}

func TestSignal_EmitErrorAbortsDelivery(t *testing.T) {
	sig := New(valueContract)
	boom := errors.New("boom")
	later := 0

	sig.Connect(Lambda(func(value int) error { return boom }, Arg("value")))
	sig.Connect(Lambda(func(value int) { later++ }, Arg("value")))

	if err := sig.Emit(1); !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
	if later != 0 {
		t.Errorf("expected delivery to stop, got %d later calls", later)
	}
}

func TestSignal_EmitPanicPropagates(t *testing.T) {
	sig := New(valueContract)
	sig.Connect(Lambda(func(value int) { panic("slot failed") }, Arg("value")))

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic to propagate")
		}
	}()
	sig.Emit(1)
}

func TestSignal_EmitArguments(t *testing.T) {
	contract := MustDeclare[func(value int, label string)](Arg("value"), OptKwArg("label", "none"))
	sig := New(contract)

	var gotValue int
	var gotLabel string
	sig.Connect(Lambda(func(value int, label string) {
		gotValue, gotLabel = value, label
	}, Arg("value"), KwArg("label")))

	tests := []struct {
		name      string
		args      []any
		wantValue int
		wantLabel string
		wantErr   bool
	}{
		{"positional", []any{3}, 3, "none", false},
		{"keyword", []any{Kwargs{"value": 4, "label": "x"}}, 4, "x", false},
		{"mixed", []any{5, Kwargs{"label": "y"}}, 5, "y", false},
		{"lossless float", []any{6.0}, 6, "none", false},
		{"lossy float", []any{6.5}, 0, "", true},
		{"wrong type", []any{"7"}, 0, "", true},
		{"missing", nil, 0, "", true},
		{"too many", []any{1, 2}, 0, "", true},
		{"keyword-only passed positionally", []any{1, "x"}, 0, "", true},
		{"unknown keyword", []any{1, Kwargs{"colour": "red"}}, 0, "", true},
		{"duplicate", []any{1, Kwargs{"value": 2}}, 0, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotValue, gotLabel = 0, ""
			err := sig.Emit(tt.args...)
			if tt.wantErr {
				if !errors.Is(err, ErrArguments) {
					t.Errorf("expected ErrArguments, got %v", err)
				}
				if gotValue != 0 || gotLabel != "" {
					t.Error("expected no slot to run on bad arguments")
				}
				return
			}
			if err != nil {
				t.Fatalf("Emit() failed: %v", err)
			}
			if gotValue != tt.wantValue || gotLabel != tt.wantLabel {
				t.Errorf("expected (%d, %q), got (%d, %q)", tt.wantValue, tt.wantLabel, gotValue, gotLabel)
			}
		})
	}
}

func TestSignal_EmitNumericSign(t *testing.T) {
	sig := New(MustDeclare[func(count uint, delta int32)](Arg("count"), Arg("delta")))
	var gotCount uint
	var gotDelta int32
	sig.Connect(Lambda(func(count uint, delta int32) {
		gotCount, gotDelta = count, delta
	}, Arg("count"), Arg("delta")))

	tests := []struct {
		name    string
		args    []any
		wantErr bool
	}{
		{"fits", []any{3, -2}, false},
		{"negative to unsigned", []any{-1, 0}, true},
		{"negative int64 to unsigned", []any{int64(-1), 0}, true},
		{"negative float to unsigned", []any{-1.0, 0}, true},
		{"large unsigned to signed", []any{1, uint32(math.MaxUint32)}, true},
		{"unsigned to signed", []any{uint8(1), uint64(5)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotCount, gotDelta = 0, 0
			err := sig.Emit(tt.args...)
			if tt.wantErr {
				if !errors.Is(err, ErrArguments) {
					t.Errorf("expected ErrArguments, got %v", err)
				}
				if gotCount != 0 || gotDelta != 0 {
					t.Errorf("expected no slot to run, got (%d, %d)", gotCount, gotDelta)
				}
				return
			}
			if err != nil {
				t.Fatalf("Emit() failed: %v", err)
			}
			if gotCount == 0 {
				t.Error("expected slot to run")
			}
		})
	}
}

var wrappedCalls int

func countWrapped(value int) {
	wrappedCalls++
}

// connectWrapper connects a Func wrapper of countWrapped that is unreachable
// once this returns.
func connectWrapper(t *testing.T, sig *Signal) {
	t.Helper()
	if err := sig.Connect(Func(countWrapped, Arg("value"))); err != nil {
		t.Fatalf("Connect() failed: %v", err)
	}
}

func TestSignal_FuncWrappersOfSameFunction(t *testing.T) {
	wrappedCalls = 0
	sig := New(valueContract)
	first := Func(countWrapped, Arg("value"))
	second := Func(countWrapped, Arg("value"))

	if err := sig.Connect(first); err != nil {
		t.Fatalf("Connect() failed: %v", err)
	}
	if err := sig.Connect(second); err != nil {
		t.Fatalf("Connect() failed: %v", err)
	}
	if sig.Len() != 1 {
		t.Fatalf("expected 1 slot, got %d", sig.Len())
	}
	if err := sig.Emit(7); err != nil {
		t.Fatalf("Emit() failed: %v", err)
	}
	if wrappedCalls != 1 {
		t.Errorf("expected 1 call, got %d", wrappedCalls)
	}
	if !sig.IsConnected(second) {
		t.Error("expected second wrapper to report connected")
	}

	sig.Disconnect(second)
	if sig.Len() != 0 {
		t.Errorf("expected 0 slots after Disconnect, got %d", sig.Len())
	}
	runtime.KeepAlive(first)
	runtime.KeepAlive(second)
}

func TestSignal_FuncWrapperReplacesCollected(t *testing.T) {
	wrappedCalls = 0
	sig := New(valueContract)
	connectWrapper(t, sig)
	runtime.GC()

	held := Func(countWrapped, Arg("value"))
	if err := sig.Connect(held); err != nil {
		t.Fatalf("Connect() failed: %v", err)
	}
	if err := sig.Emit(1); err != nil {
		t.Fatalf("Emit() failed: %v", err)
	}
	if wrappedCalls != 1 {
		t.Errorf("expected 1 call through the held wrapper, got %d", wrappedCalls)
	}
	runtime.KeepAlive(held)
}

// expiring is a foreign callable that can be switched off.
type expiring struct {
	calls   int
	expired bool
}

func (e *expiring) Signature() (Signature, error) { return valueContract, nil }

func (e *expiring) Invoke(args []any) ([]any, error) {
	e.calls++
	return nil, nil
}

func (e *expiring) Expired() bool { return e.expired }

func TestSignal_ExpiredCallableDropped(t *testing.T) {
	sig := New(valueContract)
	slot := &expiring{}
	if err := sig.Connect(slot); err != nil {
		t.Fatalf("Connect() failed: %v", err)
	}
	if err := sig.Emit(1); err != nil {
		t.Fatalf("Emit() failed: %v", err)
	}

	slot.expired = true
	if err := sig.Emit(2); err != nil {
		t.Fatalf("Emit() failed: %v", err)
	}
	if slot.calls != 1 {
		t.Errorf("expected 1 call before expiry, got %d", slot.calls)
	}
	if sig.Len() != 0 {
		t.Errorf("expected expired slot to be dropped, got %d", sig.Len())
	}

	sock := NewSocket(valueContract)
	live := &expiring{}
	if err := sock.Set(live); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	live.expired = true
	if sock.IsSet() {
		t.Error("expected socket with expired slot to report unset")
	}
	if v, err := sock.Call(3); v != nil || err != nil {
		t.Errorf("expected (nil, nil), got (%v, %v)", v, err)
	}
}

func TestSignal_ExtraDefaultsFilled(t *testing.T) {
	sig := New(valueContract)
	var got []any
	sig.Connect(Lambda(func(value int, kiwi string) {
		got = append(got, value, kiwi)
	}, Arg("value"), OptKwArg("kiwi", "green")))

	sig.Emit(9)
	if len(got) != 2 || got[0] != 9 || got[1] != "green" {
		t.Errorf("expected [9 green], got %v", got)
	}
}

func TestSignal_Variadic(t *testing.T) {
	sig := New(MustDeclare[func(values ...int)](Arg("values")))
	sum := 0
	sig.Connect(Lambda(func(values ...int) {
		for _, v := range values {
			sum += v
		}
	}, Arg("values")))

	if err := sig.Emit(1, 2, 3); err != nil {
		t.Fatalf("Emit() failed: %v", err)
	}
	if sum != 6 {
		t.Errorf("expected 6, got %d", sum)
	}
}

func TestSignal_ReentrantConnect(t *testing.T) {
	sig := New(valueContract)
	late := 0
	lateSlot := Lambda(func(value int) { late++ }, Arg("value"))
	sig.Connect(Lambda(func(value int) {
		sig.Connect(lateSlot)
	}, Arg("value")))

	sig.Emit(1)
	if late != 0 {
		t.Errorf("expected slot connected during Emit to wait for the next Emit, got %d calls", late)
	}
	sig.Emit(1)
	if late != 1 {
		t.Errorf("expected 1 call on the next Emit, got %d", late)
	}
}

func TestSignal_ClassMethod(t *testing.T) {
	cls := NewClass[recorder]("Recorder")
	var seen []string
	sig := New(valueContract)

	err := sig.Connect(ClassMethod(cls, func(c *Class, value int) {
		seen = append(seen, c.Name())
	}, Arg("value")))
	if err != nil {
		t.Fatalf("Connect() failed: %v", err)
	}
	sig.Emit(1)
	if len(seen) != 1 || seen[0] != "Recorder" {
		t.Errorf("expected [Recorder], got %v", seen)
	}
	runtime.KeepAlive(cls)
}

func TestSignal_Partial(t *testing.T) {
	var gotPrefix string
	var gotValue, gotScale int
	target := Lambda(func(prefix string, value int, scale int) {
		gotPrefix, gotValue, gotScale = prefix, value, scale
	}, Arg("prefix"), Arg("value"), Arg("scale"))

	p := Partial(target, "p:").Bind("scale", 10)
	ps, err := p.Signature()
	if err != nil {
		t.Fatalf("Signature() failed: %v", err)
	}
	if got := ps.String(); got != "(value int, *scale int=10)" {
		t.Errorf("unexpected partial signature %s", got)
	}

	sig := New(valueContract)
	if err := sig.Connect(p); err != nil {
		t.Fatalf("Connect() failed: %v", err)
	}
	if err := sig.Emit(2); err != nil {
		t.Fatalf("Emit() failed: %v", err)
	}
	if gotPrefix != "p:" || gotValue != 2 || gotScale != 10 {
		t.Errorf("expected (p:, 2, 10), got (%s, %d, %d)", gotPrefix, gotValue, gotScale)
	}
}

func TestPartial_Invalid(t *testing.T) {
	target := Lambda(func(value int) {}, Arg("value"))
	tests := []struct {
		name string
		p    *PartialFunc
	}{
		{"too many arguments", Partial(target, 1, 2)},
		{"wrong type", Partial(target, "x")},
		{"unknown keyword", Partial(target).Bind("missing", 1)},
		{"not callable", Partial(42)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Classify(tt.p); err == nil {
				t.Error("expected classification to fail")
			}
		})
	}
}
