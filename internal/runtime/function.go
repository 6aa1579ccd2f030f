package runtime

import "github.com/ecmavm/engine/internal/object"

// Call implements the plumbing around an ordinary call site that package
// vm's dispatch loop shouldn't have to duplicate at every CALL/CALL_METHOD/
// CALL_SPREAD opcode: unwrapping a bound function's stored this/args before
// forwarding to its target (composing correctly however many times
// Function.prototype.bind was chained), and rejecting a call to a
// non-callable value with the TypeError script expects rather than a Go
// nil-pointer panic.
func Call(r *Realm, callee object.Value, this object.Value, args []object.Value) (object.Value, *EcmaError) {
	if !callee.IsObject() {
		return object.Undefined, r.TypeError("%s is not a function", describeForCallError(callee))
	}
	fn := callee.AsObject()
	switch fn.Kind {
	case object.KindFunction:
		return r.Invoker.Call(fn, this, args)
	case object.KindBoundFunction:
		boundArgs := append(append([]object.Value(nil), fn.BoundFunction.BoundArgs...), args...)
		return Call(r, object.FromObject(fn.BoundFunction.Target), fn.BoundFunction.BoundThis, boundArgs)
	case object.KindProxy:
		return callViaProxy(r, fn, this, args)
	default:
		return object.Undefined, r.TypeError("%s is not a function", describeForCallError(callee))
	}
}

func describeForCallError(v object.Value) string {
	if v.IsObject() {
		return v.AsObject().ClassName
	}
	return v.TypeName()
}

func callViaProxy(r *Realm, proxy *object.Object, this object.Value, args []object.Value) (object.Value, *EcmaError) {
	if proxy.Proxy.Revoked {
		return object.Undefined, r.TypeError("Cannot perform 'apply' on a proxy that has been revoked")
	}
	if !object.IsCallable(proxy.Proxy.Target) {
		return object.Undefined, r.TypeError("proxy target is not a function")
	}
	trap := GetProperty(r, object.FromObject(proxy.Proxy.Handler), object.StringKey("apply"))
	if !trap.IsObject() || !object.IsCallable(trap.AsObject()) {
		return Call(r, object.FromObject(proxy.Proxy.Target), this, args)
	}
	argArray := NewArrayFromValues(r, args)
	return r.Invoker.Call(trap.AsObject(), object.FromObject(proxy.Proxy.Handler), []object.Value{
		object.FromObject(proxy.Proxy.Target), this, object.FromObject(argArray),
	})
}

// Construct implements the plumbing around `new`: bound-function
// construction forwards to the target with the bound args prepended (the
// bound this-value is discarded — a constructor call supplies its own this
// via NewTarget, per spec.md 4.B), and a Proxy forwards to its construct
// trap.
func Construct(r *Realm, callee object.Value, args []object.Value, newTarget *object.Object) (object.Value, *EcmaError) {
	if !callee.IsObject() || !object.IsConstructor(callee.AsObject()) {
		return object.Undefined, r.TypeError("%s is not a constructor", describeForCallError(callee))
	}
	fn := callee.AsObject()
	switch fn.Kind {
	case object.KindFunction:
		return r.Invoker.Construct(fn, args, newTarget)
	case object.KindBoundFunction:
		boundArgs := append(append([]object.Value(nil), fn.BoundFunction.BoundArgs...), args...)
		target := fn.BoundFunction.Target
		nt := newTarget
		if nt == fn {
			nt = target
		}
		return Construct(r, object.FromObject(target), boundArgs, nt)
	case object.KindProxy:
		return constructViaProxy(r, fn, args, newTarget)
	default:
		return object.Undefined, r.TypeError("%s is not a constructor", describeForCallError(callee))
	}
}

func constructViaProxy(r *Realm, proxy *object.Object, args []object.Value, newTarget *object.Object) (object.Value, *EcmaError) {
	if proxy.Proxy.Revoked {
		return object.Undefined, r.TypeError("Cannot perform 'construct' on a proxy that has been revoked")
	}
	trap := GetProperty(r, object.FromObject(proxy.Proxy.Handler), object.StringKey("construct"))
	if !trap.IsObject() || !object.IsCallable(trap.AsObject()) {
		return Construct(r, object.FromObject(proxy.Proxy.Target), args, newTarget)
	}
	argArray := NewArrayFromValues(r, args)
	result, err := r.Invoker.Call(trap.AsObject(), object.FromObject(proxy.Proxy.Handler), []object.Value{
		object.FromObject(proxy.Proxy.Target), object.FromObject(argArray), object.FromObject(newTarget),
	})
	if err != nil {
		return object.Undefined, err
	}
	if !result.IsObject() {
		return object.Undefined, r.TypeError("proxy construct trap returned a non-object")
	}
	return result, nil
}

// NewArrayFromValues builds an Array object from a Go slice, used both by
// the proxy-trap plumbing above (which needs to hand a real arguments array
// to a trap function) and by the VM's rest-parameter/spread machinery.
func NewArrayFromValues(r *Realm, values []object.Value) *object.Object {
	arr := object.NewArray(r.ArrayProto)
	for i, v := range values {
		arr.SetIndex(uint32(i), v)
	}
	return arr
}

// PrepareThis implements OrdinaryCallBindThis' non-strict leg (strict-mode
// functions use the this-value verbatim, including undefined): a
// null/undefined this-value resolves to the global object, and a primitive
// this-value is boxed, matching every non-arrow, non-strict function call.
func PrepareThis(r *Realm, strict bool, this object.Value) object.Value {
	if strict {
		return this
	}
	if this.IsNullOrUndefined() {
		return object.FromObject(r.Global)
	}
	if !this.IsObject() {
		boxed, err := ToObject(r, this)
		if err != nil {
			return this
		}
		return object.FromObject(boxed)
	}
	return this
}

// BuildArgumentsObject implements the (non-strict, non-arrow) `arguments`
// exotic object's construction: an Arguments-kind object with indexed
// elements for each passed argument, a length property, and
// Symbol.iterator delegated to Array.prototype's, per spec.md 3's
// Activation.Arguments field ("lazily created; nil until first
// referenced").
func BuildArgumentsObject(r *Realm, args []object.Value) *object.Object {
	o := object.NewObjectWithKind(r.ObjectProto, object.KindArguments, "Arguments")
	for i, v := range args {
		o.DefineRaw(object.IndexKey(uint32(i)), object.DataSlot(v, true, true, true))
	}
	o.DefineRaw(object.StringKey("length"), object.DataSlot(object.Int32(int32(len(args))), true, false, true))
	iterMethod := GetProperty(r, object.FromObject(r.ArrayProto), object.SymKey(object.SymIterator))
	if iterMethod.IsObject() {
		o.DefineRaw(object.SymKey(object.SymIterator), object.DataSlot(iterMethod, true, false, true))
	}
	return o
}
