package runtime

import (
	"github.com/ecmavm/engine/internal/object"
)

// GetProperty implements the standard [[Get]] algorithm for an arbitrary
// receiver value: primitives are boxed just long enough to walk their
// wrapper prototype (spec.md 4.B "reading a property off a primitive boxes
// it transiently"), arrays special-case "length", strings special-case
// "length" and index access without needing to box, and Proxy objects
// forward to their handler's get trap per spec.md 4.B. Returns
// object.NotFound only to report a Go-level plumbing absence (receiver is
// nil); a script-observable absent property is object.Undefined, matching
// ordinary [[Get]] semantics.
func GetProperty(r *Realm, receiver object.Value, key object.PropertyKey) object.Value {
	if receiver.IsString() && !key.IsSymbol() {
		if key.String() == "length" {
			return object.Int32(int32(len([]rune(receiver.AsString()))))
		}
		if key.IsIndex() {
			runes := []rune(receiver.AsString())
			idx := key.Index()
			if idx < uint32(len(runes)) {
				return object.String(string(runes[idx]))
			}
			return object.Undefined
		}
	}

	var obj *object.Object
	switch {
	case receiver.IsObject():
		obj = receiver.AsObject()
	case receiver.IsNullOrUndefined():
		return object.Undefined
	default:
		wrapped, err := ToObject(r, receiver)
		if err != nil {
			return object.Undefined
		}
		obj = wrapped
	}
	if obj == nil {
		return object.NotFound
	}

	if obj.Kind == object.KindArray && !key.IsSymbol() && key.String() == "length" {
		return object.Int32(int32(obj.ArrayLength))
	}

	if obj.Kind == object.KindTypedArray && !key.IsSymbol() {
		if key.IsIndex() {
			v, ok := getTypedArrayElement(obj.TypedArrayView, key.Index())
			if ok {
				return v
			}
			return object.Undefined
		}
		if v, ok := typedArrayNamedProperty(obj.TypedArrayView, key.String()); ok {
			return v
		}
	}

	if obj.Kind == object.KindProxy {
		return getPropertyViaProxy(r, obj, key, receiver)
	}

	slot, _ := obj.Lookup(key)
	if slot == nil {
		return object.Undefined
	}
	if slot.IsAccessor {
		if slot.Get == nil {
			return object.Undefined
		}
		v, err := r.Invoker.Call(slot.Get, receiver, nil)
		if err != nil {
			return object.Undefined
		}
		return v
	}
	return slot.Value
}

// GetPropertyChecked is GetProperty's fallible form, used where a getter
// throw must propagate to script rather than silently read as undefined
// (ordinary member-expression evaluation in the VM).
func GetPropertyChecked(r *Realm, receiver object.Value, key object.PropertyKey) (object.Value, *EcmaError) {
	var obj *object.Object
	switch {
	case receiver.IsObject():
		obj = receiver.AsObject()
	case receiver.IsNullOrUndefined():
		return object.Undefined, r.TypeError("Cannot read properties of %s (reading '%s')", receiver.TypeName(), key.String())
	default:
		wrapped, err := ToObject(r, receiver)
		if err != nil {
			return object.Undefined, err
		}
		obj = wrapped
	}

	if receiver.IsString() && !key.IsSymbol() {
		if key.String() == "length" {
			return object.Int32(int32(len([]rune(receiver.AsString())))), nil
		}
		if key.IsIndex() {
			runes := []rune(receiver.AsString())
			idx := key.Index()
			if idx < uint32(len(runes)) {
				return object.String(string(runes[idx])), nil
			}
			return object.Undefined, nil
		}
	}

	if obj.Kind == object.KindArray && !key.IsSymbol() && key.String() == "length" {
		return object.Int32(int32(obj.ArrayLength)), nil
	}

	if obj.Kind == object.KindTypedArray && !key.IsSymbol() {
		if key.IsIndex() {
			v, ok := getTypedArrayElement(obj.TypedArrayView, key.Index())
			if ok {
				return v, nil
			}
			return object.Undefined, nil
		}
		if v, ok := typedArrayNamedProperty(obj.TypedArrayView, key.String()); ok {
			return v, nil
		}
	}

	if obj.Kind == object.KindProxy {
		return getPropertyViaProxyChecked(r, obj, key, receiver)
	}

	slot, _ := obj.Lookup(key)
	if slot == nil {
		return object.Undefined, nil
	}
	if slot.IsAccessor {
		if slot.Get == nil {
			return object.Undefined, nil
		}
		return r.Invoker.Call(slot.Get, receiver, nil)
	}
	return slot.Value, nil
}

func getPropertyViaProxy(r *Realm, proxy *object.Object, key object.PropertyKey, receiver object.Value) object.Value {
	v, err := getPropertyViaProxyChecked(r, proxy, key, receiver)
	if err != nil {
		return object.Undefined
	}
	return v
}

func getPropertyViaProxyChecked(r *Realm, proxy *object.Object, key object.PropertyKey, receiver object.Value) (object.Value, *EcmaError) {
	if proxy.Proxy.Revoked {
		return object.Undefined, r.TypeError("Cannot perform 'get' on a proxy that has been revoked")
	}
	handler := proxy.Proxy.Handler
	target := proxy.Proxy.Target
	trap := GetProperty(r, object.FromObject(handler), object.StringKey("get"))
	if !trap.IsObject() || !object.IsCallable(trap.AsObject()) {
		return GetPropertyChecked(r, object.FromObject(target), key)
	}
	return r.Invoker.Call(trap.AsObject(), object.FromObject(handler), []object.Value{
		object.FromObject(target), propertyKeyValue(key), receiver,
	})
}

// propertyKeyValue converts a PropertyKey back into the script-visible
// value a trap receives: a string for string/index keys, the Symbol value
// itself for symbol keys.
func propertyKeyValue(key object.PropertyKey) object.Value {
	if key.IsSymbol() {
		return object.SymbolValue(key.Symbol())
	}
	return object.String(key.String())
}

// SetProperty implements the standard [[Set]] algorithm, returning whether
// the assignment succeeded (false covers both a failed non-strict silent
// no-op and an attribute that rejects the write; strict-mode callers turn a
// false return into a TypeError themselves, since only they know whether
// they're in strict mode).
func SetProperty(r *Realm, receiver object.Value, key object.PropertyKey, value object.Value) (bool, *EcmaError) {
	if !receiver.IsObject() {
		if receiver.IsNullOrUndefined() {
			return false, r.TypeError("Cannot set properties of %s (setting '%s')", receiver.TypeName(), key.String())
		}
		return false, nil // writes to a boxed primitive are discarded, not errors
	}
	obj := receiver.AsObject()

	if obj.Kind == object.KindProxy {
		return setPropertyViaProxy(r, obj, key, value, receiver)
	}

	if obj.Kind == object.KindArray && !key.IsSymbol() && key.String() == "length" {
		n, err := ToUint32(r, value)
		if err != nil {
			return false, err
		}
		return obj.SetArrayLength(n), nil
	}

	if obj.Kind == object.KindTypedArray && !key.IsSymbol() && key.IsIndex() {
		return setTypedArrayElement(r, obj.TypedArrayView, key.Index(), value)
	}

	slot, owner := obj.Lookup(key)
	if slot != nil && slot.IsAccessor {
		if slot.Set == nil {
			return false, nil
		}
		_, err := r.Invoker.Call(slot.Set, receiver, []object.Value{value})
		return err == nil, err
	}
	if slot != nil && owner == obj {
		if !slot.Writable {
			return false, nil
		}
		slot.Value = value
		if obj.Kind == object.KindArray && key.IsIndex() && key.Index() >= obj.ArrayLength {
			obj.ArrayLength = key.Index() + 1
		}
		return true, nil
	}
	// inherited data property, or no property at all: create an own
	// writable/enumerable/configurable data property on obj, unless an
	// inherited non-writable data property (or an inherited accessor with
	// no setter, handled above) shadows it.
	if slot != nil && !slot.Writable {
		return false, nil
	}
	if !obj.IsExtensible() {
		return false, nil
	}
	obj.DefineRaw(key, object.DataSlot(value, true, true, true))
	return true, nil
}

func setPropertyViaProxy(r *Realm, proxy *object.Object, key object.PropertyKey, value, receiver object.Value) (bool, *EcmaError) {
	if proxy.Proxy.Revoked {
		return false, r.TypeError("Cannot perform 'set' on a proxy that has been revoked")
	}
	handler := proxy.Proxy.Handler
	target := proxy.Proxy.Target
	trap := GetProperty(r, object.FromObject(handler), object.StringKey("set"))
	if !trap.IsObject() || !object.IsCallable(trap.AsObject()) {
		return SetProperty(r, object.FromObject(target), key, value)
	}
	result, err := r.Invoker.Call(trap.AsObject(), object.FromObject(handler), []object.Value{
		object.FromObject(target), propertyKeyValue(key), value, receiver,
	})
	if err != nil {
		return false, err
	}
	return ToBoolean(result), nil
}

// HasProperty implements the standard [[HasProperty]] algorithm (the `in`
// operator and for-in enumeration's ownership check), forwarding through a
// Proxy's has trap.
func HasProperty(r *Realm, obj *object.Object, key object.PropertyKey) (bool, *EcmaError) {
	if obj.Kind == object.KindProxy {
		if obj.Proxy.Revoked {
			return false, r.TypeError("Cannot perform 'has' on a proxy that has been revoked")
		}
		trap := GetProperty(r, object.FromObject(obj.Proxy.Handler), object.StringKey("has"))
		if trap.IsObject() && object.IsCallable(trap.AsObject()) {
			result, err := r.Invoker.Call(trap.AsObject(), object.FromObject(obj.Proxy.Handler), []object.Value{
				object.FromObject(obj.Proxy.Target), propertyKeyValue(key),
			})
			if err != nil {
				return false, err
			}
			return ToBoolean(result), nil
		}
		return HasProperty(r, obj.Proxy.Target, key)
	}
	return obj.Has(key), nil
}

// DeleteProperty implements [[Delete]], forwarding through a Proxy's
// deleteProperty trap.
func DeleteProperty(r *Realm, obj *object.Object, key object.PropertyKey) (bool, *EcmaError) {
	if obj.Kind == object.KindProxy {
		if obj.Proxy.Revoked {
			return false, r.TypeError("Cannot perform 'deleteProperty' on a proxy that has been revoked")
		}
		trap := GetProperty(r, object.FromObject(obj.Proxy.Handler), object.StringKey("deleteProperty"))
		if trap.IsObject() && object.IsCallable(trap.AsObject()) {
			result, err := r.Invoker.Call(trap.AsObject(), object.FromObject(obj.Proxy.Handler), []object.Value{
				object.FromObject(obj.Proxy.Target), propertyKeyValue(key),
			})
			if err != nil {
				return false, err
			}
			return ToBoolean(result), nil
		}
		return DeleteProperty(r, obj.Proxy.Target, key)
	}
	return obj.Delete(key), nil
}
