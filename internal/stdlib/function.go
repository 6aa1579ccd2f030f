package stdlib

import (
	"github.com/ecmavm/engine/internal/object"
	"github.com/ecmavm/engine/internal/runtime"
)

// installFunctionProto implements Function.prototype.call/apply/bind/
// toString, grounded on funxy's total absence of first-class bound
// functions — built from object/function.go's BoundFunction machinery
// (NewBoundFunction, BoundLength/BoundName) that object package already
// exposes for exactly this purpose.
func installFunctionProto(r *runtime.Realm, proto *object.Object) {
	method(r, proto, "call", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		if !this.IsObject() || !object.IsCallable(this.AsObject()) {
			return object.Undefined, rt.TypeError("not a function")
		}
		var callArgs []object.Value
		if len(args) > 1 {
			callArgs = args[1:]
		}
		return runtime.Call(rt, this, arg(args, 0), callArgs)
	})
	method(r, proto, "apply", 2, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		if !this.IsObject() || !object.IsCallable(this.AsObject()) {
			return object.Undefined, rt.TypeError("not a function")
		}
		callArgs, err := spreadArrayLike(rt, arg(args, 1))
		if err != nil {
			return object.Undefined, err
		}
		return runtime.Call(rt, this, arg(args, 0), callArgs)
	})
	method(r, proto, "bind", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		if !this.IsObject() || !object.IsCallable(this.AsObject()) {
			return object.Undefined, rt.TypeError("not a function")
		}
		var boundArgs []object.Value
		if len(args) > 1 {
			boundArgs = args[1:]
		}
		target := this.AsObject()
		bound := object.NewBoundFunction(rt.FunctionProto, target, arg(args, 0), boundArgs)
		bound.DefineRaw(object.StringKey("name"), object.DataSlot(object.String(bound.BoundName()), false, false, true))
		bound.DefineRaw(object.StringKey("length"), object.DataSlot(object.Int32(int32(bound.BoundLength())), false, false, true))
		return object.FromObject(bound), nil
	})
	method(r, proto, "toString", 0, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		name := ""
		if this.IsObject() {
			name = object.FunctionName(this.AsObject())
		}
		return object.String("function " + name + "() { [native code] }"), nil
	})
}

// spreadArrayLike reads an array-like's "length" and indexed own
// properties, per Function.prototype.apply's argument list construction
// (an arguments object, a real array, or any other array-like all work).
func spreadArrayLike(r *runtime.Realm, v object.Value) ([]object.Value, *runtime.EcmaError) {
	if v.IsNullOrUndefined() {
		return nil, nil
	}
	if !v.IsObject() {
		return nil, r.TypeError("CreateListFromArrayLike called on non-object")
	}
	obj := v.AsObject()
	lenVal := runtime.GetProperty(r, v, object.StringKey("length"))
	n, err := runtime.ToUint32(r, lenVal)
	if err != nil {
		return nil, err
	}
	out := make([]object.Value, n)
	for i := uint32(0); i < n; i++ {
		out[i] = runtime.GetProperty(r, object.FromObject(obj), object.IndexKey(i))
	}
	return out, nil
}
