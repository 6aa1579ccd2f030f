package runtime

import (
	"testing"

	"github.com/ecmavm/engine/internal/object"
)

// fakeInvoker backs this file's iterator-protocol tests: it dispatches a
// Call to whichever Go closure was registered for that exact function
// object, enough to drive IteratorNext/IteratorClose without a real VM.
type fakeInvoker struct {
	calls map[*object.Object]func(this object.Value, args []object.Value) (object.Value, *EcmaError)
}

func newFakeInvoker() *fakeInvoker {
	return &fakeInvoker{calls: make(map[*object.Object]func(object.Value, []object.Value) (object.Value, *EcmaError))}
}

func (f *fakeInvoker) Call(fn *object.Object, this object.Value, args []object.Value) (object.Value, *EcmaError) {
	return f.calls[fn](this, args)
}

func (f *fakeInvoker) Construct(fn *object.Object, args []object.Value, newTarget *object.Object) (object.Value, *EcmaError) {
	panic("not used by these tests")
}

func (f *fakeInvoker) register(name string, impl func(object.Value, []object.Value) (object.Value, *EcmaError)) *object.Object {
	fn := object.NewFunction(nil, nil, nil, name, 0)
	f.calls[fn] = impl
	return fn
}

func iteratorResult(value object.Value, done bool) object.Value {
	o := object.NewObject(nil)
	o.DefineRaw(object.StringKey("value"), object.DataSlot(value, true, true, true))
	o.DefineRaw(object.StringKey("done"), object.DataSlot(object.Bool(done), true, true, true))
	return object.FromObject(o)
}

// TestIteratorCloseCalledOnAbruptExit covers Testable Property 6 for the
// abrupt-exit half: IteratorClose must call .return() when the loop is
// exiting early (completionErr set or a caller-initiated break) and the
// iterator hasn't already reported done.
func TestIteratorCloseCalledOnAbruptExit(t *testing.T) {
	inv := newFakeInvoker()
	returnCalled := false
	returnFn := inv.register("return", func(this object.Value, args []object.Value) (object.Value, *EcmaError) {
		returnCalled = true
		return iteratorResult(object.Undefined, true), nil
	})

	iterObj := object.NewObject(nil)
	iterObj.DefineRaw(object.StringKey("return"), object.DataSlot(object.FromObject(returnFn), true, true, true))
	iterState := object.FromObject(iterObj)

	r := &Realm{Invoker: inv}
	if err := IteratorClose(r, iterState, nil); err != nil {
		t.Fatalf("IteratorClose: %v", err)
	}
	if !returnCalled {
		t.Fatal("expected .return() to be called on abrupt exit")
	}
}

// TestIteratorCloseSkippedWithoutReturnMethod covers the other half: an
// iterator with no .return method is left alone rather than erroring.
func TestIteratorCloseSkippedWithoutReturnMethod(t *testing.T) {
	iterObj := object.NewObject(nil)
	iterState := object.FromObject(iterObj)

	r := &Realm{Invoker: newFakeInvoker()}
	if err := IteratorClose(r, iterState, nil); err != nil {
		t.Fatalf("IteratorClose with no .return: %v", err)
	}
}

// TestIteratorCloseSuppressesReturnThrowDuringExistingThrow covers the
// "a throw from return() during an already-throwing completion is
// suppressed in favor of the original" rule.
func TestIteratorCloseSuppressesReturnThrowDuringExistingThrow(t *testing.T) {
	inv := newFakeInvoker()
	r := &Realm{Invoker: inv}
	returnFn := inv.register("return", func(this object.Value, args []object.Value) (object.Value, *EcmaError) {
		return object.Undefined, r.TypeError("return() blew up")
	})
	iterObj := object.NewObject(nil)
	iterObj.DefineRaw(object.StringKey("return"), object.DataSlot(object.FromObject(returnFn), true, true, true))
	iterState := object.FromObject(iterObj)

	original := r.ReferenceError("original failure")
	got := IteratorClose(r, iterState, original)
	if got != original {
		t.Fatalf("expected the original completion error to survive, got %v", got)
	}
}

// TestIteratorNextReadsValueAndDone covers the normal per-step protocol
// IteratorClose's "did not report done: true" condition depends on.
func TestIteratorNextReadsValueAndDone(t *testing.T) {
	inv := newFakeInvoker()
	calls := 0
	nextFn := inv.register("next", func(this object.Value, args []object.Value) (object.Value, *EcmaError) {
		calls++
		if calls == 1 {
			return iteratorResult(object.Int32(1), false), nil
		}
		return iteratorResult(object.Undefined, true), nil
	})
	iterObj := object.NewObject(nil)
	iterObj.DefineRaw(object.StringKey("next"), object.DataSlot(object.FromObject(nextFn), true, true, true))
	iterState := object.FromObject(iterObj)

	r := &Realm{Invoker: inv}
	val, done, err := IteratorNext(r, iterState)
	if err != nil || done || val.AsInt32() != 1 {
		t.Fatalf("first next(): val=%v done=%v err=%v", val, done, err)
	}
	val, done, err = IteratorNext(r, iterState)
	if err != nil || !done {
		t.Fatalf("second next(): val=%v done=%v err=%v", val, done, err)
	}
}
