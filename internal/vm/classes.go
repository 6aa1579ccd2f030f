package vm

import (
	"github.com/ecmavm/engine/internal/bytecode"
	"github.com/ecmavm/engine/internal/object"
	"github.com/ecmavm/engine/internal/runtime"
	"github.com/ecmavm/engine/internal/scope"
)

// Class-member storage flags, mirroring internal/compiler/classes.go's
// private (unexported-to-that-package) constants of the same name and bit
// positions — the two packages privately agree on this encoding the same
// way funxy's compiler and VM agree on every other opcode operand shape
// nowhere else documented.
const (
	classFlagStatic  = 1 << 0
	classFlagGetter  = 1 << 1
	classFlagSetter  = 1 << 2
	classFlagField   = 1 << 3
	classFlagPrivate = 1 << 4
)

// privateTableOf lazily builds the per-class-evaluation
// `map[string]*runtime.PrivateName` a constructor's private members resolve
// `#name` strings through — see object.FunctionData.DeclaringClass's doc
// comment for why identity (not name) is what a private member keys by.
// Stashed on the constructor's Object.Extra field, which FunctionData
// itself leaves unused (object.go's Extra comment: "opaque per-kind
// payloads owned by a higher layer").
func privateTableOf(ctor *object.Object) map[string]*runtime.PrivateName {
	if table, ok := ctor.Extra.(map[string]*runtime.PrivateName); ok {
		return table
	}
	table := make(map[string]*runtime.PrivateName)
	ctor.Extra = table
	return table
}

// classDef implements CLASS_DEF: build the class constructor object and its
// prototype, wiring the prototype chain to superClass when present, per
// internal/compiler/classes.go's compileClass (pushes [super, ctor], names
// the class, emits CLASS_DEF).
func (v *VM) classDef(frame *Frame, name string, super, ctorVal object.Value) (object.Value, *runtime.EcmaError) {
	var superClass *object.Object
	protoParent := v.realm.ObjectProto
	ctorProtoParent := v.realm.FunctionProto
	if !super.IsNullOrUndefined() {
		if !super.IsObject() || !object.IsConstructor(super.AsObject()) {
			return object.Undefined, v.realm.TypeError("Class extends value is not a constructor")
		}
		superClass = super.AsObject()
		ctorProtoParent = superClass
		if protoVal := runtime.GetProperty(v.realm, super, object.StringKey("prototype")); protoVal.IsObject() {
			protoParent = protoVal.AsObject()
		} else if protoVal.IsNull() {
			protoParent = nil
		}
	}

	proto := object.NewObject(protoParent)

	var ctor *object.Object
	if ctorVal.IsObject() {
		ctor = ctorVal.AsObject()
	} else {
		ctor = v.defaultConstructor(name, superClass)
	}
	ctor.SetPrototype(ctorProtoParent)
	ctor.Function.Name = name
	ctor.Function.IsClassCtor = true
	ctor.Function.SuperClass = superClass
	ctor.Function.HomeObject = proto
	ctor.Function.DeclaringClass = ctor
	ctor.DefineRaw(object.StringKey("name"), object.DataSlot(object.String(name), false, false, true))
	ctor.DefineRaw(object.StringKey("prototype"), object.DataSlot(object.FromObject(proto), false, false, false))
	proto.DefineRaw(object.StringKey("constructor"), object.DataSlot(object.FromObject(ctor), true, false, true))

	return object.FromObject(ctor), nil
}

// defaultConstructor synthesizes the constructor body a class without an
// explicit `constructor(...)` member gets: an empty body for a base class,
// or `constructor(...args) { super(...args); }` for a derived one — built
// as a tiny hand-assembled Descriptor rather than routed through
// internal/compiler, since there is no source to compile.
func (v *VM) defaultConstructor(name string, superClass *object.Object) *object.Object {
	desc := bytecode.NewDescriptor(name)
	desc.IsClassCtor = true
	if superClass == nil {
		desc.EmitOp(bytecode.OpUndef)
		desc.EmitOp(bytecode.OpReturn)
	} else {
		desc.HasRest = true
		idx := desc.AddString("%rest")
		desc.EmitOp1(bytecode.OpRegStr1, byte(idx))
		desc.EmitOp(bytecode.OpGetVar)
		desc.EmitOp(bytecode.OpSuperCallSpread)
		desc.EmitOp(bytecode.OpPop)
		desc.EmitOp(bytecode.OpUndef)
		desc.EmitOp(bytecode.OpReturn)
	}
	fn := object.NewFunction(v.realm.FunctionProto, desc, nil, name, 0)
	fn.Function.IsClassCtor = true
	return fn
}

// classStorage implements CLASS_STORAGE: install one member (method,
// accessor, or field initializer) onto the class under construction,
// inferring "is the key on the stack or in the register" purely from
// whether the pending string register is set, per compileClassMember's
// emission order (value; flags via emitIndex; key via either emitName or a
// computed expression push).
func (v *VM) classStorage(frame *Frame) *runtime.EcmaError {
	flags, _ := frame.takeRegInd()

	var key object.PropertyKey
	var privateName string
	isPrivate := flags&classFlagPrivate != 0

	if name, ok := frame.takeRegStr(); ok {
		if isPrivate {
			privateName = name
		} else {
			key = object.StringKey(name)
		}
	} else {
		computed := frame.pop()
		pk, err := runtime.ToPropertyKey(v.realm, computed)
		if err != nil {
			return err
		}
		key = pk
	}

	value := frame.pop()
	ctorVal := frame.peek(0)
	ctor := ctorVal.AsObject()

	isStatic := flags&classFlagStatic != 0
	target := ctor.GetOwn(object.StringKey("prototype")).Value.AsObject()
	if isStatic {
		target = ctor
	}

	if valFn, ok := funcOf(value); ok {
		valFn.Function.HomeObject = target
		valFn.Function.DeclaringClass = ctor
	}

	switch {
	case flags&classFlagField != 0:
		fi := &runtime.FieldInitializer{Key: key}
		if isPrivate {
			pn := v.internPrivateName(ctor, privateName)
			fi.Private = pn
		}
		if value.IsObject() {
			fi.Thunk = value.AsObject()
		}
		if isStatic {
			val := object.Undefined
			if fi.Thunk != nil {
				v2, err := v.realm.Invoker.Call(fi.Thunk, ctorVal, nil)
				if err != nil {
					return err
				}
				val = v2
			}
			if isPrivate {
				runtime.DefinePrivateField(ctor, fi.Private, val)
			} else {
				ctor.DefineRaw(key, object.DataSlot(val, true, true, true))
			}
		} else {
			ctor.Function.Fields = append(ctor.Function.Fields, fi)
		}

	case flags&(classFlagGetter|classFlagSetter) != 0:
		fn := value.AsObject()
		if isPrivate {
			pn := v.internPrivateName(ctor, privateName)
			pn.IsAccessor = true
			if flags&classFlagGetter != 0 {
				pn.Get = fn
			} else {
				pn.Set = fn
			}
		} else {
			mergeAccessor(target, key, flags&classFlagGetter != 0, fn)
		}

	default: // ordinary method
		if isPrivate {
			pn := v.internPrivateName(ctor, privateName)
			pn.IsMethod = true
			pn.Get = value.AsObject()
		} else {
			target.DefineRaw(key, object.DataSlot(value, true, false, true))
		}
	}

	return nil
}

func (v *VM) internPrivateName(ctor *object.Object, name string) *runtime.PrivateName {
	table := privateTableOf(ctor)
	pn, ok := table[name]
	if !ok {
		pn = runtime.NewPrivateName(name)
		table[name] = pn
	}
	return pn
}

func funcOf(v object.Value) (*object.Object, bool) {
	if !v.IsObject() {
		return nil, false
	}
	o := v.AsObject()
	if o.Kind != object.KindFunction {
		return nil, false
	}
	return o, true
}

// resolvePrivateName maps a `#name` string back to the *runtime.PrivateName
// the lexically enclosing class body created for it, per
// object.FunctionData.DeclaringClass's doc comment. Resolution walks to the
// nearest non-arrow activation since an arrow nested in a method has no
// DeclaringClass of its own but must still see the enclosing method's.
func (v *VM) resolvePrivateName(frame *Frame, name string) (*runtime.PrivateName, *runtime.EcmaError) {
	act := scope.NearestNonArrowActivation(frame.scope)
	if act == nil || act.Function == nil || act.Function.Function == nil || act.Function.Function.DeclaringClass == nil {
		return nil, v.realm.NewError("SyntaxError", "Private field '%s' must be declared in an enclosing class", name)
	}
	return v.internPrivateName(act.Function.Function.DeclaringClass, name), nil
}

func (v *VM) definePrivate(frame *Frame, obj object.Value, name string, val object.Value) *runtime.EcmaError {
	pn, err := v.resolvePrivateName(frame, name)
	if err != nil {
		return err
	}
	if !obj.IsObject() {
		return v.realm.TypeError("Cannot define private field '%s' on a non-object", name)
	}
	runtime.DefinePrivateField(obj.AsObject(), pn, val)
	return nil
}

// getSuperProp/setSuperProp implement GETSUPERPROP/SETSUPERPROP: resolve
// starting from the current method's home object's prototype
// (Activation.SuperBase), not from a popped receiver, with `this` supplied
// implicitly — runtime.GetPropertyChecked can't be reused directly since it
// assumes the receiver and lookup-start object are the same object.
func (v *VM) getSuperProp(frame *Frame, key object.PropertyKey) (object.Value, *runtime.EcmaError) {
	act := scope.NearestNonArrowActivation(frame.scope)
	if act == nil || act.SuperBase == nil {
		return object.Undefined, v.realm.SyntaxError("'super' keyword is only valid inside a class method")
	}
	slot, _ := act.SuperBase.Lookup(key)
	if slot == nil {
		return object.Undefined, nil
	}
	if slot.IsAccessor {
		if slot.Get == nil {
			return object.Undefined, nil
		}
		return v.realm.Invoker.Call(slot.Get, act.This, nil)
	}
	return slot.Value, nil
}

func (v *VM) setSuperProp(frame *Frame, key object.PropertyKey, val object.Value) *runtime.EcmaError {
	act := scope.NearestNonArrowActivation(frame.scope)
	if act == nil || act.SuperBase == nil {
		return v.realm.SyntaxError("'super' keyword is only valid inside a class method")
	}
	slot, _ := act.SuperBase.Lookup(key)
	if slot != nil && slot.IsAccessor {
		if slot.Set == nil {
			if frame.isStrict() {
				return v.realm.TypeError("Cannot set property %s which has only a getter", key.String())
			}
			return nil
		}
		_, err := v.realm.Invoker.Call(slot.Set, act.This, []object.Value{val})
		return err
	}
	if act.This.IsObject() {
		act.This.AsObject().DefineRaw(key, object.DataSlot(val, true, true, true))
	}
	return nil
}

// superCall implements SUPER_CALL/SUPER_CALL_SPREAD/DEFAULT_CTOR_SUPER_CALL:
// construct the parent class (resolved from the currently executing
// constructor's own SuperClass, not a popped callee, per spec.md 4.F),
// install the result as `this`, mark super-called, and run this class's own
// instance field initializers now that `this` exists.
func (v *VM) superCall(frame *Frame, args []object.Value) (object.Value, *runtime.EcmaError) {
	act := frame.activation
	if act == nil || frame.fn == nil || frame.fn.Function == nil || frame.fn.Function.SuperClass == nil {
		return object.Undefined, v.realm.SyntaxError("'super' keyword is only valid inside a derived class constructor")
	}
	if err := runtime.CheckSuperNotAlreadyCalled(v.realm, act.SuperCalled); err != nil {
		return object.Undefined, err
	}
	newTarget := frame.fn
	if act.NewTarget.IsObject() {
		newTarget = act.NewTarget.AsObject()
	}
	instanceVal, err := runtime.Construct(v.realm, object.FromObject(frame.fn.Function.SuperClass), args, newTarget)
	if err != nil {
		return object.Undefined, err
	}
	act.This = instanceVal
	act.SuperCalled = true
	if instanceVal.IsObject() {
		if err := runtime.InitializeInstanceFields(v.realm, instanceVal.AsObject(), fieldsOf(frame.fn.Function)); err != nil {
			return object.Undefined, err
		}
	}
	return instanceVal, nil
}
