package signal

import (
	"errors"
	"runtime"
	"testing"
)

var doubleContract = MustDeclare[func(value int) int](Arg("value"))

type doubler struct {
	name  string
	calls []int
}

func (d *doubler) Double(value int) int {
	d.calls = append(d.calls, value)
	return value * 2
}

func TestEventSocket_ScenarioMethod(t *testing.T) {
	sock := NewSocket(doubleContract)
	d := &doubler{name: "d"}

	if err := sock.Set(Method(d, (*doubler).Double, Arg("value"))); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	got, err := sock.Call(5)
	if err != nil {
		t.Fatalf("Call() failed: %v", err)
	}
	if got != 10 {
		t.Errorf("expected 10, got %v", got)
	}

	if err := sock.Set(nil); err != nil {
		t.Fatalf("Set(nil) failed: %v", err)
	}
	got, err = sock.Call(5)
	if err != nil || got != nil {
		t.Errorf("expected (nil, nil) from an empty socket, got (%v, %v)", got, err)
	}
	if sock.IsSet() {
		t.Error("expected socket to be empty")
	}
	runtime.KeepAlive(d)
}

func TestEventSocket_Empty(t *testing.T) {
	sock := NewSocket(doubleContract)
	if sock.IsSet() {
		t.Error("expected new socket to be empty")
	}
	got, err := sock.Call("not even an int")
	if err != nil || got != nil {
		t.Errorf("expected empty socket to ignore its arguments, got (%v, %v)", got, err)
	}
	if err := sock.Set(nil); err != nil {
		t.Errorf("clearing an empty socket failed: %v", err)
	}
}

func TestEventSocket_Replace(t *testing.T) {
	sock := NewSocket(doubleContract)
	sock.Set(Lambda(func(value int) int { return value + 1 }, Arg("value")))
	sock.Set(Lambda(func(value int) int { return value + 100 }, Arg("value")))

	got, err := sock.Call(1)
	if err != nil {
		t.Fatalf("Call() failed: %v", err)
	}
	if got != 101 {
		t.Errorf("expected the second slot to replace the first, got %v", got)
	}
}

func TestEventSocket_SetRejects(t *testing.T) {
	tests := []struct {
		name string
		slot any
		want error
	}{
		{"not callable", 42, ErrNotCallable},
		{"nil function", (*Function)(nil), ErrNotCallable},
		{"missing result", Lambda(func(value int) {}, Arg("value")), ErrSignatureMismatch},
		{"wrong result type", Lambda(func(value int) string { return "" }, Arg("value")), ErrSignatureMismatch},
		{"extra result", Lambda(func(value int) (int, error) { return 0, nil }, Arg("value")), ErrSignatureMismatch},
		{"wrong parameter", Lambda(func(v int) int { return v }, Arg("v")), ErrSignatureMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sock := NewSocket(doubleContract)
			keep := Lambda(func(value int) int { return -1 }, Arg("value"))
			if err := sock.Set(keep); err != nil {
				t.Fatalf("Set() failed: %v", err)
			}

			if err := sock.Set(tt.slot); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			got, _ := sock.Call(1)
			if got != -1 {
				t.Errorf("expected previous binding to survive a failed Set, got %v", got)
			}
		})
	}
}

// bindDetachedOwner binds a method of an owner that is unreachable once this
// returns.
func bindDetachedOwner(t *testing.T, sock *EventSocket) {
	t.Helper()
	d := &doubler{name: "detached"}
	if err := sock.Set(Method(d, (*doubler).Double, Arg("value"))); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
}

func TestEventSocket_OwnerCollected(t *testing.T) {
	sock := NewSocket(doubleContract)
	bindDetachedOwner(t, sock)
	if !sock.IsSet() {
		t.Fatal("expected socket to be set before GC")
	}

	runtime.GC()

	if sock.IsSet() {
		t.Error("expected socket to be empty once the owner is collected")
	}
	got, err := sock.Call(5)
	if err != nil || got != nil {
		t.Errorf("expected (nil, nil), got (%v, %v)", got, err)
	}
}

func TestEventSocket_ErrorResult(t *testing.T) {
	contract := MustDeclare[func(text string) (int, error)](Arg("text"))
	sock := NewSocket(contract)
	bad := errors.New("bad text")

	sock.Set(Lambda(func(text string) (int, error) {
		if text == "" {
			return 0, bad
		}
		return len(text), nil
	}, Arg("text")))

	got, err := sock.Call("abc")
	if err != nil || got != 3 {
		t.Errorf("expected (3, nil), got (%v, %v)", got, err)
	}
	_, err = sock.Call("")
	if !errors.Is(err, bad) {
		t.Errorf("expected bad text error, got %v", err)
	}
}

func TestEventSocket_MultipleResults(t *testing.T) {
	contract := MustDeclare[func(value int) (int, string)](Arg("value"))
	sock := NewSocket(contract)
	sock.Set(Lambda(func(value int) (int, string) { return value, "ok" }, Arg("value")))

	got, err := sock.Call(4)
	if err != nil {
		t.Fatalf("Call() failed: %v", err)
	}
	vals, ok := got.([]any)
	if !ok || len(vals) != 2 || vals[0] != 4 || vals[1] != "ok" {
		t.Errorf("expected [4 ok], got %#v", got)
	}
}

func TestEventSocket_Arguments(t *testing.T) {
	sock := NewSocket(doubleContract)
	sock.Set(Lambda(func(value int) int { return value }, Arg("value")))

	if _, err := sock.Call(); !errors.Is(err, ErrArguments) {
		t.Errorf("expected ErrArguments, got %v", err)
	}
	got, err := sock.Call(Kwargs{"value": 8})
	if err != nil || got != 8 {
		t.Errorf("expected (8, nil), got (%v, %v)", got, err)
	}
}

func TestCallAs(t *testing.T) {
	sock := NewSocket(doubleContract)

	v, ok, err := CallAs[int](sock, 3)
	if err != nil || ok || v != 0 {
		t.Errorf("expected (0, false, nil) from an empty socket, got (%d, %v, %v)", v, ok, err)
	}

	d := &doubler{}
	sock.Set(Method(d, (*doubler).Double, Arg("value")))
	v, ok, err = CallAs[int](sock, 3)
	if err != nil || !ok || v != 6 {
		t.Errorf("expected (6, true, nil), got (%d, %v, %v)", v, ok, err)
	}

	if _, _, err := CallAs[string](sock, 3); err == nil {
		t.Error("expected an error for the wrong result type")
	}
	runtime.KeepAlive(d)
}
