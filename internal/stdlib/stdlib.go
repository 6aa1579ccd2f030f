// Package stdlib implements spec.md's Host-surface standard-library globals
// (component table row H): the Object/Function/Array/String/Number/Boolean/
// Symbol/BigInt/Iterator prototypes, the Error hierarchy, Math, and the
// global object's console/parseInt/parseFloat/isNaN/isFinite bindings.
// Grounded on funxy's internal/evaluator/builtins_*.go domain split (one
// file per builtin family — builtins_bytes.go, builtins_io.go,
// builtins_csv.go, ...), generalized from funxy's "map[string]*Builtin"
// registration model (a Builtin wraps a Go func behind the evaluator's
// Object interface) to installing real property slots on prototype
// objects, since here a function IS a property-map object rather than a
// separate Builtin kind package object defines (see runtime/native.go).
package stdlib

import (
	"github.com/ecmavm/engine/internal/object"
	"github.com/ecmavm/engine/internal/runtime"
)

type nativeFn = func(r *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError)

// method installs a writable, configurable, non-enumerable native method
// named name on proto, matching every built-in method's attributes per
// spec.md 4.B ("implementation-defined built-ins are writable/configurable,
// non-enumerable").
func method(r *runtime.Realm, proto *object.Object, name string, length int, fn nativeFn) {
	f := runtime.NewNativeFunction(r.FunctionProto, name, length, runtime.NativeFunc{Call: fn})
	proto.DefineRaw(object.StringKey(name), object.DataSlot(object.FromObject(f), true, false, true))
}

func symMethod(r *runtime.Realm, proto *object.Object, sym *object.Symbol, name string, length int, fn nativeFn) {
	f := runtime.NewNativeFunction(r.FunctionProto, name, length, runtime.NativeFunc{Call: fn})
	proto.DefineRaw(object.SymKey(sym), object.DataSlot(object.FromObject(f), true, false, true))
}

// accessor installs a get-only accessor property (description, size, ...).
func accessor(r *runtime.Realm, proto *object.Object, name string, get nativeFn) {
	g := runtime.NewNativeFunction(r.FunctionProto, "get "+name, 0, runtime.NativeFunc{Call: get})
	proto.DefineRaw(object.StringKey(name), object.AccessorSlot(g, nil, false, true))
}

func value(proto *object.Object, name string, v object.Value) {
	proto.DefineRaw(object.StringKey(name), object.DataSlot(v, true, false, true))
}

func arg(args []object.Value, i int) object.Value {
	if i < len(args) {
		return args[i]
	}
	return object.Undefined
}

// newConstructor builds a named, constructible function object with both
// a Call and a Construct body (the "called as a function coerces, called
// with new creates a wrapper object" pattern every built-in wrapper
// constructor shares), wiring the standard .prototype/.constructor cross
// link per spec.md 4.B.
func newConstructor(r *runtime.Realm, name string, length int, call, construct nativeFn, proto *object.Object) *object.Object {
	ctor := runtime.NewNativeFunction(r.FunctionProto, name, length, runtime.NativeFunc{
		Call: call,
		Construct: func(rt *runtime.Realm, args []object.Value, newTarget *object.Object) (object.Value, *runtime.EcmaError) {
			return construct(rt, object.Undefined, args)
		},
	})
	ctor.DefineRaw(object.StringKey("prototype"), object.DataSlot(object.FromObject(proto), false, false, false))
	proto.DefineRaw(object.StringKey("constructor"), object.DataSlot(object.FromObject(ctor), true, false, true))
	return ctor
}

// Bootstrap builds a fresh Realm's intrinsic prototypes, the Error
// hierarchy, Math, and the global object, wiring invoker in as the Realm's
// Invoker (package vm's *VM satisfies runtime.Invoker). Package vm's
// globals.go calls this once per VM, then fills in the one prototype this
// package can't build itself (GeneratorProto, which needs the VM's own
// resumeGenerator closures).
func Bootstrap(invoker runtime.Invoker) *runtime.Realm {
	r := &runtime.Realm{ErrorProtos: make(map[string]*object.Object)}
	r.Invoker = invoker

	objectProto := object.NewObject(nil)
	r.ObjectProto = objectProto

	functionProto := object.NewFunction(objectProto, runtime.NativeFunc{
		Call: func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
			return object.Undefined, nil
		},
	}, nil, "", 0)
	r.FunctionProto = functionProto

	installObjectProto(r, objectProto)
	installFunctionProto(r, functionProto)

	r.ArrayProto = object.NewArray(objectProto)
	installArrayProto(r, r.ArrayProto)

	r.StringProto = object.NewObjectWithKind(objectProto, object.KindPlain, "String")
	installStringProto(r, r.StringProto)

	r.NumberProto = object.NewObjectWithKind(objectProto, object.KindPlain, "Number")
	installNumberProto(r, r.NumberProto)

	r.BooleanProto = object.NewObjectWithKind(objectProto, object.KindPlain, "Boolean")
	installBooleanProto(r, r.BooleanProto)

	r.SymbolProto = object.NewObjectWithKind(objectProto, object.KindPlain, "Symbol")
	installSymbolProto(r, r.SymbolProto)

	r.BigIntProto = object.NewObjectWithKind(objectProto, object.KindPlain, "BigInt")
	installBigIntProto(r, r.BigIntProto)

	r.IteratorProto = object.NewObject(objectProto)
	symMethod(r, r.IteratorProto, object.SymIterator, "[Symbol.iterator]", 0, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		return this, nil
	})

	installErrorProtos(r, objectProto)

	r.RegExpProto = object.NewObjectWithKind(objectProto, object.KindPlain, "RegExp")
	installRegExpProto(r, r.RegExpProto)

	r.MapProto = object.NewObjectWithKind(objectProto, object.KindPlain, "Map")
	r.SetProto = object.NewObjectWithKind(objectProto, object.KindPlain, "Set")
	r.WeakMapProto = object.NewObjectWithKind(objectProto, object.KindPlain, "WeakMap")
	r.WeakSetProto = object.NewObjectWithKind(objectProto, object.KindPlain, "WeakSet")
	installCollectionProtos(r)

	r.DateProto = object.NewObjectWithKind(objectProto, object.KindPlain, "Date")
	installDateProto(r, r.DateProto)

	r.PromiseProto = object.NewObjectWithKind(objectProto, object.KindPlain, "Promise")
	installPromiseProto(r, r.PromiseProto)

	r.Global = object.NewObject(objectProto)
	installGlobal(r, r.Global)

	return r
}
