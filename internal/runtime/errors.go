// Package runtime implements the semantic operations spec.md 4.F assigns a
// name but not a home: coercion, equality, arithmetic, property access, name
// resolution through a scope chain, function/class invocation plumbing,
// private-member brand checks, and the iteration protocol. Grounded on
// funxy's evaluator package domain split (expressions_operators.go,
// objects_equal.go, environment.go, ...), one file per concern rather than
// a single monolith, the way funxy itself spreads builtins_bytes.go,
// builtins_io.go, builtins_csv.go, ... across many small files.
//
// Every fallible operation here returns a Go error (for a host-side failure)
// or an *EcmaError (for a script-level thrown value) rather than panicking;
// package vm is the only layer that turns an *EcmaError into actual
// exception-table unwinding.
package runtime

import (
	"fmt"

	"github.com/ecmavm/engine/internal/object"
)

// EcmaError carries a script-level thrown value up through Go call frames.
// It is not itself a completion record — package vm's dispatch loop is
// responsible for converting one into a pending-throw and consulting the
// descriptor's exception table — but every runtime helper that can trigger
// user code (a getter, a valueOf/toString method, an iterator's next()) must
// be able to report a throw without panicking, so this is the currency used
// throughout this package.
type EcmaError struct {
	Value object.Value
}

func (e *EcmaError) Error() string {
	if e == nil {
		return "<nil EcmaError>"
	}
	return describeThrown(e.Value)
}

func describeThrown(v object.Value) string {
	if v.IsObject() && v.AsObject().Kind == object.KindError {
		ed := v.AsObject().ErrorData
		if ed != nil {
			return ed.ErrorKind + ": " + ed.Message
		}
	}
	if v.IsString() {
		return v.AsString()
	}
	return "uncaught exception"
}

// Invoker is the callback surface package runtime needs into package vm,
// broken out as an interface to avoid the runtime<->vm import cycle: runtime
// implements the language semantics, vm implements the bytecode dispatch
// loop, and plenty of runtime semantics (a getter, Array.prototype.map's
// callback, a generator's next()) need to actually run script code. Realm
// is constructed with a concrete *vm.VM satisfying this interface once that
// package exists.
type Invoker interface {
	// Call invokes fn with the given this-binding and arguments. newTarget
	// is object.Undefined for an ordinary call.
	Call(fn *object.Object, this object.Value, args []object.Value) (object.Value, *EcmaError)
	// Construct invokes fn as `new fn(...args)`, with newTarget distinct
	// from fn itself when called through a derived class's super().
	Construct(fn *object.Object, args []object.Value, newTarget *object.Object) (object.Value, *EcmaError)
}

// Realm bundles the process-wide (well, per-engine-instance) state runtime
// operations need beyond the two values they're directly operating on: the
// intrinsic prototypes a coercion or property lookup falls back to, and the
// Invoker used to run script-defined getters/methods. Grounded on spec.md
// 5's "execution-context-scoped global state" design note generalized to a
// single struct threaded explicitly through this package's functions, rather
// than package-level globals, since nothing here is supposed to be process-
// wide the way the Symbol registry and class cache are (see spec.md 5).
type Realm struct {
	Global *object.Object

	ObjectProto   *object.Object
	FunctionProto *object.Object
	ArrayProto    *object.Object
	StringProto   *object.Object
	NumberProto   *object.Object
	BooleanProto  *object.Object
	SymbolProto    *object.Object
	BigIntProto    *object.Object
	IteratorProto  *object.Object
	GeneratorProto *object.Object
	PromiseProto   *object.Object
	ErrorProto     *object.Object
	RegExpProto    *object.Object
	MapProto       *object.Object
	SetProto       *object.Object
	WeakMapProto   *object.Object
	WeakSetProto   *object.Object
	DateProto      *object.Object
	ArrayBufferProto *object.Object

	// ErrorProtos maps an error kind ("TypeError", "RangeError", ...) to
	// its prototype object, each chained to ErrorProto. Populated by the
	// stdlib bootstrap; NewError degrades to constructing a plain error
	// object with a nil prototype if a kind isn't registered yet, so this
	// package stays usable before that bootstrap runs (e.g. from tests).
	ErrorProtos map[string]*object.Object

	Invoker Invoker

	// microtasks is the promise-reaction queue spec.md 5 names ("a
	// microtask queue ([]PromiseReaction), drained per §5"): package vm's
	// RunProgram drains it after each top-level call completes (spec.md
	// §5's "micro-tasks are drained after each top-level call completes,
	// in FIFO order"), so a reaction scheduled by one top-level script run
	// never leaks into the next.
	microtasks []func()

	// UnhandledRejection, if set, is called with a Promise's rejection
	// value when it settles with no rejection handler ever attached,
	// per spec.md §5's "unhandled promise rejections are surfaced to a
	// host hook; if unset, they are reported to the error reporter".
	UnhandledRejection func(object.Value)
}

// EnqueueMicrotask schedules fn to run during the next DrainMicrotasks
// call, per spec.md 5's microtask-queue ordering guarantee (FIFO).
func (r *Realm) EnqueueMicrotask(fn func()) {
	r.microtasks = append(r.microtasks, fn)
}

// DrainMicrotasks runs every microtask queued so far, including ones a
// running microtask itself enqueues, until the queue is empty.
func (r *Realm) DrainMicrotasks() {
	for len(r.microtasks) > 0 {
		fn := r.microtasks[0]
		r.microtasks = r.microtasks[1:]
		fn()
	}
}

// NewError builds a thrown Error-kind object of the given kind ("TypeError",
// "RangeError", "ReferenceError", "SyntaxError", "EvalError", "URIError"),
// matching the ErrorData shape object.go defines.
func (r *Realm) NewError(kind, format string, args ...interface{}) *EcmaError {
	msg := fmt.Sprintf(format, args...)
	var proto *object.Object
	if r != nil && r.ErrorProtos != nil {
		proto = r.ErrorProtos[kind]
	}
	if proto == nil && r != nil {
		proto = r.ErrorProto
	}
	o := object.NewObjectWithKind(proto, object.KindError, "Error")
	o.ErrorData = &object.ErrorData{ErrorKind: kind, Message: msg}
	o.DefineRaw(object.StringKey("message"), object.DataSlot(object.String(msg), true, false, true))
	o.DefineRaw(object.StringKey("name"), object.DataSlot(object.String(kind), true, false, true))
	return &EcmaError{Value: object.FromObject(o)}
}

func (r *Realm) TypeError(format string, args ...interface{}) *EcmaError {
	return r.NewError("TypeError", format, args...)
}

func (r *Realm) RangeError(format string, args ...interface{}) *EcmaError {
	return r.NewError("RangeError", format, args...)
}

func (r *Realm) ReferenceError(format string, args ...interface{}) *EcmaError {
	return r.NewError("ReferenceError", format, args...)
}

func (r *Realm) SyntaxError(format string, args ...interface{}) *EcmaError {
	return r.NewError("SyntaxError", format, args...)
}
