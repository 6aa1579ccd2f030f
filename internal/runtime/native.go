package runtime

import "github.com/ecmavm/engine/internal/object"

// NativeFunc is a Go-implemented function body, stored in a function
// object's FunctionData.Descriptor in place of a *bytecode.Descriptor for
// the intrinsics that have no script source to compile: globals.go's
// Object/Array/String/console methods, Function.prototype.call/apply/bind's
// own plumbing, and Generator.prototype.next/throw/return (package vm).
// Grounded on funxy's evaluator.Builtin (object_functions.go), which wraps a
// Go func behind the same Object interface every script-defined function
// implements; here the wrapping happens inside the one Function kind
// instead of a separate Builtin object kind, since object.FunctionData's
// Descriptor field was already documented as opaque interface{} storage.
type NativeFunc struct {
	Call func(r *Realm, this object.Value, args []object.Value) (object.Value, *EcmaError)

	// Construct is nil for a native function that cannot be used with `new`
	// (most of them); NewNativeFunction marks such a function IsArrow so
	// object.IsConstructor's ordinary "arrows are never constructors" rule
	// reports it correctly without package object needing to know about
	// NativeFunc at all (it cannot import package runtime).
	Construct func(r *Realm, args []object.Value, newTarget *object.Object) (object.Value, *EcmaError)
}

// NewNativeFunction builds a callable function object backed by fn rather
// than compiled bytecode, installing the `name`/`length` properties every
// function object carries per spec.md 4.B.
func NewNativeFunction(proto *object.Object, name string, length int, fn NativeFunc) *object.Object {
	o := object.NewFunction(proto, fn, nil, name, length)
	if fn.Construct == nil {
		o.Function.IsArrow = true
	}
	o.DefineRaw(object.StringKey("name"), object.DataSlot(object.String(name), false, false, true))
	o.DefineRaw(object.StringKey("length"), object.DataSlot(object.Int32(int32(length)), false, false, true))
	return o
}

// AsNative reports whether fn's body is a NativeFunc and returns it,
// letting package vm's Call/Construct dispatch to it before falling through
// to the bytecode-driven path.
func AsNative(fn *object.Object) (NativeFunc, bool) {
	if fn.Kind != object.KindFunction {
		return NativeFunc{}, false
	}
	nf, ok := fn.Function.Descriptor.(NativeFunc)
	return nf, ok
}
