package stdlib

import (
	"github.com/ecmavm/engine/internal/object"
	"github.com/ecmavm/engine/internal/runtime"
)

func thisBoolean(this object.Value) bool {
	if this.IsBoolean() {
		return this.AsBoolean()
	}
	if this.IsObject() {
		if prim, ok := runtime.PrimitiveValueOf(this.AsObject()); ok && prim.IsBoolean() {
			return prim.AsBoolean()
		}
	}
	return false
}

func installBooleanProto(r *runtime.Realm, proto *object.Object) {
	method(r, proto, "toString", 0, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		if thisBoolean(this) {
			return object.String("true"), nil
		}
		return object.String("false"), nil
	})
	method(r, proto, "valueOf", 0, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		return object.Bool(thisBoolean(this)), nil
	})
}

func installBooleanConstructor(r *runtime.Realm, global *object.Object) {
	call := func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		return object.Bool(runtime.ToBoolean(arg(args, 0))), nil
	}
	construct := func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		v, err := call(rt, this, args)
		if err != nil {
			return object.Undefined, err
		}
		return object.FromObject(mustBox(rt, v)), nil
	}
	ctor := newConstructor(r, "Boolean", 1, call, construct, r.BooleanProto)
	global.DefineRaw(object.StringKey("Boolean"), object.DataSlot(object.FromObject(ctor), true, false, true))
}
