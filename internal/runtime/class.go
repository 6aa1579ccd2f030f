package runtime

import "github.com/ecmavm/engine/internal/object"

// FieldInitializer is one entry of FunctionData.Fields (object.go's
// "instance field initializer thunks (class.go)" comment): a class field's
// compiled arrow-function thunk, paired with the key it assigns on
// construction. Exactly one of Key/Private is set.
type FieldInitializer struct {
	Key     object.PropertyKey
	Private *PrivateName
	Thunk   *object.Object // nil for a field with no initializer ("= undefined")
}

// InitializeInstanceFields runs a class's field initializers against a
// freshly created (or, for a derived class, freshly super()-returned)
// instance, in declaration order, per spec.md 4.F's class instantiation
// order: base class fields run immediately after [[Prototype]] is wired up,
// derived class fields run immediately after super() returns.
func InitializeInstanceFields(r *Realm, instance *object.Object, fields []*FieldInitializer) *EcmaError {
	for _, f := range fields {
		val := object.Undefined
		if f.Thunk != nil {
			v, err := r.Invoker.Call(f.Thunk, object.FromObject(instance), nil)
			if err != nil {
				return err
			}
			val = v
		}
		if f.Private != nil {
			DefinePrivateField(instance, f.Private, val)
		} else {
			instance.DefineRaw(f.Key, object.DataSlot(val, true, true, true))
		}
	}
	return nil
}

// NewInstance implements the "OrdinaryCreateFromConstructor" step of
// [[Construct]]: build a new plain object whose [[Prototype]] is
// newTarget's own "prototype" property (falling back to the realm's
// Object.prototype if that property isn't itself an object, matching the
// spec's documented fallback), with no Kind-specific internal slots yet —
// a derived class further along in construction may still turn this into
// something more specific (e.g. extending Array) once the VM's class
// machinery handles exotic derived bases, which is out of scope for this
// layer.
func NewInstance(r *Realm, newTarget *object.Object) *object.Object {
	protoVal := GetProperty(r, object.FromObject(newTarget), object.StringKey("prototype"))
	proto := r.ObjectProto
	if protoVal.IsObject() {
		proto = protoVal.AsObject()
	}
	return object.NewObject(proto)
}

// CheckSuperNotAlreadyCalled implements the derived-constructor invariant
// that calling super() a second time is a ReferenceError.
func CheckSuperNotAlreadyCalled(r *Realm, superCalled bool) *EcmaError {
	if superCalled {
		return r.ReferenceError("Super constructor may only be called once")
	}
	return nil
}

// ValidateConstructorReturn implements a constructor's special return-value
// rule: returning an object overrides `this` entirely; returning anything
// else (including explicitly returning a primitive) keeps `this`.
func ValidateConstructorReturn(returned object.Value, this object.Value) object.Value {
	if returned.IsObject() {
		return returned
	}
	return this
}
