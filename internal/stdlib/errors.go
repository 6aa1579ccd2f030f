package stdlib

import (
	"github.com/ecmavm/engine/internal/object"
	"github.com/ecmavm/engine/internal/runtime"
)

var errorKinds = []string{"TypeError", "RangeError", "ReferenceError", "SyntaxError", "EvalError", "URIError", "AggregateError"}

// installErrorProtos builds Error.prototype and one subclass prototype per
// errorKinds entry, each chained to Error.prototype, populating
// r.ErrorProtos so runtime.Realm.NewError (thrown by every other stdlib
// file's TypeError/RangeError/... calls) finds a real prototype instead of
// falling back to a bare one. Grounded on funxy's evaluator error values,
// which carry a single flat kind string rather than a prototype chain;
// generalized here into the real Error/TypeError/... hierarchy spec.md 4.B
// names. Constructors are wired onto the Global object separately by
// installErrorConstructors, once Global itself exists.
func installErrorProtos(r *runtime.Realm, objectProto *object.Object) {
	errorProto := object.NewObjectWithKind(objectProto, object.KindPlain, "Error")
	r.ErrorProto = errorProto
	errorProto.DefineRaw(object.StringKey("name"), object.DataSlot(object.String("Error"), true, false, true))
	errorProto.DefineRaw(object.StringKey("message"), object.DataSlot(object.String(""), true, false, true))
	method(r, errorProto, "toString", 0, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		if !this.IsObject() {
			return object.String("Error"), nil
		}
		name := "Error"
		if v := runtime.GetProperty(rt, this, object.StringKey("name")); !v.IsUndefined() {
			if s, serr := runtime.ToString(rt, v); serr == nil {
				name = s
			}
		}
		msg := ""
		if v := runtime.GetProperty(rt, this, object.StringKey("message")); !v.IsUndefined() {
			if s, serr := runtime.ToString(rt, v); serr == nil {
				msg = s
			}
		}
		if msg == "" {
			return object.String(name), nil
		}
		if name == "" {
			return object.String(msg), nil
		}
		return object.String(name + ": " + msg), nil
	})

	r.ErrorProtos["Error"] = errorProto

	for _, kind := range errorKinds {
		proto := object.NewObjectWithKind(errorProto, object.KindPlain, kind)
		proto.DefineRaw(object.StringKey("name"), object.DataSlot(object.String(kind), true, false, true))
		r.ErrorProtos[kind] = proto
	}
}

// installErrorConstructors wires Error plus every errorKinds subclass
// constructor onto global, called once Global exists (installGlobal).
func installErrorConstructors(r *runtime.Realm, global *object.Object) {
	installOneErrorConstructor(r, global, "Error", r.ErrorProto)
	for _, kind := range errorKinds {
		installOneErrorConstructor(r, global, kind, r.ErrorProtos[kind])
	}
}

func installOneErrorConstructor(r *runtime.Realm, global *object.Object, name string, proto *object.Object) {
	build := func(rt *runtime.Realm, args []object.Value) (object.Value, *runtime.EcmaError) {
		o := object.NewObjectWithKind(proto, object.KindError, name)
		msg := ""
		if len(args) > 0 && !args[0].IsUndefined() {
			s, err := runtime.ToString(rt, args[0])
			if err != nil {
				return object.Undefined, err
			}
			msg = s
		}
		o.ErrorData = &object.ErrorData{ErrorKind: name, Message: msg}
		if msg != "" {
			o.DefineRaw(object.StringKey("message"), object.DataSlot(object.String(msg), true, false, true))
		}
		o.DefineRaw(object.StringKey("stack"), object.DataSlot(object.String(name+": "+msg), true, false, true))
		return object.FromObject(o), nil
	}
	ctor := runtime.NewNativeFunction(r.FunctionProto, name, 1, runtime.NativeFunc{
		Call: func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
			return build(rt, args)
		},
		Construct: func(rt *runtime.Realm, args []object.Value, newTarget *object.Object) (object.Value, *runtime.EcmaError) {
			return build(rt, args)
		},
	})
	ctor.DefineRaw(object.StringKey("prototype"), object.DataSlot(object.FromObject(proto), false, false, false))
	proto.DefineRaw(object.StringKey("constructor"), object.DataSlot(object.FromObject(ctor), true, false, true))
	global.DefineRaw(object.StringKey(name), object.DataSlot(object.FromObject(ctor), true, false, true))
}
