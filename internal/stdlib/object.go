package stdlib

import (
	"github.com/ecmavm/engine/internal/object"
	"github.com/ecmavm/engine/internal/runtime"
)

// installObjectProto implements Object.prototype per spec.md 4.B: every
// object (save those explicitly created with a null prototype) inherits
// these. Grounded on funxy's evaluator having no analogous "every value is
// secretly an object" concept — built directly from the standard method
// set spec.md names as part of the object model.
func installObjectProto(r *runtime.Realm, proto *object.Object) {
	method(r, proto, "toString", 0, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		tag := "Object"
		if this.IsObject() {
			tag = this.AsObject().ClassName
		} else if this.IsNullOrUndefined() {
			if this.IsNull() {
				tag = "Null"
			} else {
				tag = "Undefined"
			}
		}
		return object.String("[object " + tag + "]"), nil
	})
	method(r, proto, "valueOf", 0, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		return this, nil
	})
	method(r, proto, "hasOwnProperty", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		obj, err := runtime.ToObject(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		key, kerr := runtime.ToPropertyKey(rt, arg(args, 0))
		if kerr != nil {
			return object.Undefined, kerr
		}
		return object.Bool(obj.HasOwn(key)), nil
	})
	method(r, proto, "isPrototypeOf", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		v := arg(args, 0)
		if !v.IsObject() || !this.IsObject() {
			return object.False, nil
		}
		self := this.AsObject()
		for cur := v.AsObject().GetPrototype(); cur != nil; cur = cur.GetPrototype() {
			if cur == self {
				return object.True, nil
			}
		}
		return object.False, nil
	})
	method(r, proto, "propertyIsEnumerable", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		obj, err := runtime.ToObject(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		key, kerr := runtime.ToPropertyKey(rt, arg(args, 0))
		if kerr != nil {
			return object.Undefined, kerr
		}
		slot := obj.GetOwn(key)
		return object.Bool(slot != nil && slot.Enumerable), nil
	})
}

// installObjectConstructor builds the global Object function: called as a
// function or with `new`, Object(v) boxes a primitive and passes an object
// through unchanged (Object() with no args creates a plain object), plus
// the well-known static methods (keys/values/entries/assign/freeze/
// isFrozen/getPrototypeOf/setPrototypeOf/create/getOwnPropertyNames).
func installObjectConstructor(r *runtime.Realm, global *object.Object) {
	body := func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		v := arg(args, 0)
		if v.IsNullOrUndefined() || len(args) == 0 {
			return object.FromObject(object.NewObject(rt.ObjectProto)), nil
		}
		if v.IsObject() {
			return v, nil
		}
		boxed, err := runtime.ToObject(rt, v)
		if err != nil {
			return object.Undefined, err
		}
		return object.FromObject(boxed), nil
	}
	ctor := newConstructor(r, "Object", 1, body, body, r.ObjectProto)

	method(r, ctor, "keys", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		obj, err := runtime.ToObject(rt, arg(args, 0))
		if err != nil {
			return object.Undefined, err
		}
		keys := obj.OwnKeys(false, false)
		out := make([]object.Value, len(keys))
		for i, k := range keys {
			out[i] = object.String(k.String())
		}
		return object.FromObject(runtime.NewArrayFromValues(rt, out)), nil
	})
	method(r, ctor, "values", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		obj, err := runtime.ToObject(rt, arg(args, 0))
		if err != nil {
			return object.Undefined, err
		}
		keys := obj.OwnKeys(false, false)
		out := make([]object.Value, len(keys))
		for i, k := range keys {
			out[i] = runtime.GetProperty(rt, object.FromObject(obj), k)
		}
		return object.FromObject(runtime.NewArrayFromValues(rt, out)), nil
	})
	method(r, ctor, "entries", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		obj, err := runtime.ToObject(rt, arg(args, 0))
		if err != nil {
			return object.Undefined, err
		}
		keys := obj.OwnKeys(false, false)
		out := make([]object.Value, len(keys))
		for i, k := range keys {
			pair := runtime.NewArrayFromValues(rt, []object.Value{object.String(k.String()), runtime.GetProperty(rt, object.FromObject(obj), k)})
			out[i] = object.FromObject(pair)
		}
		return object.FromObject(runtime.NewArrayFromValues(rt, out)), nil
	})
	method(r, ctor, "assign", 2, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		if len(args) == 0 {
			return object.Undefined, rt.TypeError("Cannot convert undefined or null to object")
		}
		target, err := runtime.ToObject(rt, args[0])
		if err != nil {
			return object.Undefined, err
		}
		for _, src := range args[1:] {
			if src.IsNullOrUndefined() {
				continue
			}
			srcObj, serr := runtime.ToObject(rt, src)
			if serr != nil {
				return object.Undefined, serr
			}
			for _, k := range srcObj.OwnKeys(true, false) {
				v := runtime.GetProperty(rt, object.FromObject(srcObj), k)
				if _, serr := runtime.SetProperty(rt, object.FromObject(target), k, v); serr != nil {
					return object.Undefined, serr
				}
			}
		}
		return object.FromObject(target), nil
	})
	method(r, ctor, "freeze", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		v := arg(args, 0)
		if v.IsObject() {
			obj := v.AsObject()
			obj.PreventExtensions()
			for _, k := range obj.OwnKeys(true, false) {
				if slot := obj.GetOwn(k); slot != nil {
					slot.Writable = false
					slot.Configurable = false
				}
			}
		}
		return v, nil
	})
	method(r, ctor, "isFrozen", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		v := arg(args, 0)
		if !v.IsObject() {
			return object.True, nil
		}
		obj := v.AsObject()
		if obj.IsExtensible() {
			return object.False, nil
		}
		for _, k := range obj.OwnKeys(true, false) {
			if slot := obj.GetOwn(k); slot != nil && (slot.Writable || slot.Configurable) {
				return object.False, nil
			}
		}
		return object.True, nil
	})
	method(r, ctor, "getPrototypeOf", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		obj, err := runtime.ToObject(rt, arg(args, 0))
		if err != nil {
			return object.Undefined, err
		}
		proto := obj.GetPrototype()
		if proto == nil {
			return object.Null, nil
		}
		return object.FromObject(proto), nil
	})
	method(r, ctor, "setPrototypeOf", 2, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		v := arg(args, 0)
		if !v.IsObject() {
			return v, nil
		}
		p := arg(args, 1)
		var proto *object.Object
		if p.IsObject() {
			proto = p.AsObject()
		} else if !p.IsNull() {
			return object.Undefined, rt.TypeError("Object prototype may only be an Object or null")
		}
		if !v.AsObject().SetPrototype(proto) {
			return object.Undefined, rt.TypeError("cyclic __proto__ value")
		}
		return v, nil
	})
	method(r, ctor, "create", 2, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		p := arg(args, 0)
		var proto *object.Object
		if p.IsObject() {
			proto = p.AsObject()
		} else if !p.IsNull() {
			return object.Undefined, rt.TypeError("Object prototype may only be an Object or null")
		}
		o := object.NewObject(proto)
		if props := arg(args, 1); props.IsObject() {
			applyPropertyDescriptors(rt, o, props.AsObject())
		}
		return object.FromObject(o), nil
	})
	method(r, ctor, "defineProperty", 3, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		v := arg(args, 0)
		if !v.IsObject() {
			return object.Undefined, rt.TypeError("Object.defineProperty called on non-object")
		}
		key, kerr := runtime.ToPropertyKey(rt, arg(args, 1))
		if kerr != nil {
			return object.Undefined, kerr
		}
		desc := arg(args, 2)
		if !desc.IsObject() {
			return object.Undefined, rt.TypeError("Property description must be an object")
		}
		defineOneProperty(rt, v.AsObject(), key, desc.AsObject())
		return v, nil
	})
	method(r, ctor, "getOwnPropertyNames", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		obj, err := runtime.ToObject(rt, arg(args, 0))
		if err != nil {
			return object.Undefined, err
		}
		keys := obj.OwnKeys(false, true)
		out := make([]object.Value, len(keys))
		for i, k := range keys {
			out[i] = object.String(k.String())
		}
		return object.FromObject(runtime.NewArrayFromValues(rt, out)), nil
	})

	global.DefineRaw(object.StringKey("Object"), object.DataSlot(object.FromObject(ctor), true, false, true))
}

// applyPropertyDescriptors implements Object.create's second-argument
// fan-out: one defineOneProperty call per own enumerable key of props.
func applyPropertyDescriptors(r *runtime.Realm, target, props *object.Object) {
	for _, k := range props.OwnKeys(true, false) {
		descSlot := props.GetOwn(k)
		if descSlot == nil || descSlot.IsAccessor || !descSlot.Value.IsObject() {
			continue
		}
		defineOneProperty(r, target, k, descSlot.Value.AsObject())
	}
}

// defineOneProperty is a pragmatic (non-spec-validating) reading of a
// property descriptor object's value/writable/enumerable/configurable/get/
// set fields, installed with object.DefineRaw — Object.defineProperty's
// full attribute-transition validation (object.go's own doc comment defers
// that to "runtime.DefineOwnProperty") is not yet built; this stdlib layer
// only needs "build a slot from a descriptor", not reject an invalid
// transition against an existing non-configurable slot.
func defineOneProperty(r *runtime.Realm, target *object.Object, key object.PropertyKey, desc *object.Object) {
	getSlot := desc.GetOwn(object.StringKey("get"))
	setSlot := desc.GetOwn(object.StringKey("set"))
	if getSlot != nil || setSlot != nil {
		var get, set *object.Object
		if getSlot != nil && getSlot.Value.IsObject() {
			get = getSlot.Value.AsObject()
		}
		if setSlot != nil && setSlot.Value.IsObject() {
			set = setSlot.Value.AsObject()
		}
		target.DefineRaw(key, object.AccessorSlot(get, set, boolField(desc, "enumerable"), boolField(desc, "configurable")))
		return
	}
	v := object.Undefined
	if vs := desc.GetOwn(object.StringKey("value")); vs != nil {
		v = vs.Value
	}
	target.DefineRaw(key, object.DataSlot(v, boolField(desc, "writable"), boolField(desc, "enumerable"), boolField(desc, "configurable")))
}

func boolField(desc *object.Object, name string) bool {
	slot := desc.GetOwn(object.StringKey(name))
	if slot == nil {
		return false
	}
	return runtime.ToBoolean(slot.Value)
}
