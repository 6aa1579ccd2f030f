package stdlib

import (
	"github.com/ecmavm/engine/internal/object"
	"github.com/ecmavm/engine/internal/runtime"
)

func thisSymbol(r *runtime.Realm, this object.Value) (*object.Symbol, *runtime.EcmaError) {
	if this.IsSymbol() {
		return this.AsSymbol(), nil
	}
	if this.IsObject() {
		if prim, ok := runtime.PrimitiveValueOf(this.AsObject()); ok && prim.IsSymbol() {
			return prim.AsSymbol(), nil
		}
	}
	return nil, r.TypeError("Symbol.prototype method called on incompatible receiver")
}

// installSymbolProto implements Symbol.prototype.toString/valueOf plus a
// description getter, grounded on object/symbol.go's own uuid-backed
// identity design note (description is purely informational, never part
// of identity).
func installSymbolProto(r *runtime.Realm, proto *object.Object) {
	method(r, proto, "toString", 0, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		sym, err := thisSymbol(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		return object.String("Symbol(" + sym.Description + ")"), nil
	})
	method(r, proto, "valueOf", 0, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		sym, err := thisSymbol(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		return object.SymbolValue(sym), nil
	})
	accessor(r, proto, "description", func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		sym, err := thisSymbol(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		return object.String(sym.Description), nil
	})
}

// installSymbolConstructor builds the Symbol function: Symbol("desc")
// creates a unique symbol (never constructible with `new`, per spec.md
// 4.B), plus Symbol.iterator/asyncIterator/... well-known symbol statics
// and Symbol.for/Symbol.keyFor, grounded on the process-wide registry
// object/symbol.go already exposes.
func installSymbolConstructor(r *runtime.Realm, global *object.Object) {
	fn := runtime.NewNativeFunction(r.FunctionProto, "Symbol", 0, runtime.NativeFunc{
		Call: func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
			desc := ""
			if len(args) > 0 && !args[0].IsUndefined() {
				s, err := runtime.ToString(rt, args[0])
				if err != nil {
					return object.Undefined, err
				}
				desc = s
			}
			return object.SymbolValue(object.NewSymbol(desc)), nil
		},
	})
	fn.DefineRaw(object.StringKey("prototype"), object.DataSlot(object.FromObject(r.SymbolProto), false, false, false))

	value(fn, "iterator", object.SymbolValue(object.SymIterator))
	value(fn, "asyncIterator", object.SymbolValue(object.SymAsyncIterator))
	value(fn, "hasInstance", object.SymbolValue(object.SymHasInstance))
	value(fn, "toPrimitive", object.SymbolValue(object.SymToPrimitive))
	value(fn, "toStringTag", object.SymbolValue(object.SymToStringTag))
	value(fn, "species", object.SymbolValue(object.SymSpecies))
	value(fn, "unscopables", object.SymbolValue(object.SymUnscopables))

	method(r, fn, "for", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		key, err := runtime.ToString(rt, arg(args, 0))
		if err != nil {
			return object.Undefined, err
		}
		return object.SymbolValue(object.SymbolFor(key)), nil
	})
	method(r, fn, "keyFor", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		v := arg(args, 0)
		if !v.IsSymbol() {
			return object.Undefined, rt.TypeError("not a symbol")
		}
		key, ok := object.SymbolKeyFor(v.AsSymbol())
		if !ok {
			return object.Undefined, nil
		}
		return object.String(key), nil
	})

	global.DefineRaw(object.StringKey("Symbol"), object.DataSlot(object.FromObject(fn), true, false, true))
}
