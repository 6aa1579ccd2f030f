package stdlib

import (
	"math/big"

	"github.com/ecmavm/engine/internal/object"
	"github.com/ecmavm/engine/internal/runtime"
)

func thisBigInt(r *runtime.Realm, this object.Value) (*big.Int, *runtime.EcmaError) {
	if this.IsBigInt() {
		return this.AsBigInt(), nil
	}
	if this.IsObject() {
		if prim, ok := runtime.PrimitiveValueOf(this.AsObject()); ok && prim.IsBigInt() {
			return prim.AsBigInt(), nil
		}
	}
	return nil, r.TypeError("BigInt.prototype method called on incompatible receiver")
}

// installBigIntProto implements BigInt.prototype.toString/valueOf. There is
// no analog in funxy (which has no arbitrary-precision integer kind at all),
// so this is grounded directly on Go's math/big formatting, the same library
// the object package's Value already uses to hold a BigInt's payload.
func installBigIntProto(r *runtime.Realm, proto *object.Object) {
	method(r, proto, "toString", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		b, err := thisBigInt(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		base := 10
		if len(args) > 0 && !args[0].IsUndefined() {
			rv, rerr := runtime.ToIntegerOrInfinity(rt, args[0])
			if rerr != nil {
				return object.Undefined, rerr
			}
			base = int(rv)
		}
		return object.String(b.Text(base)), nil
	})
	method(r, proto, "valueOf", 0, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		b, err := thisBigInt(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		return object.BigInt(b), nil
	})
}

// installBigIntConstructor builds the global BigInt function: BigInt(x)
// converts a number or numeric string to a BigInt value; BigInt is never
// constructible with `new` (throws TypeError), per spec.md 4.A.
func installBigIntConstructor(r *runtime.Realm, global *object.Object) {
	fn := runtime.NewNativeFunction(r.FunctionProto, "BigInt", 1, runtime.NativeFunc{
		Call: func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
			v := arg(args, 0)
			switch {
			case v.IsBigInt():
				return v, nil
			case v.IsNumber():
				f := v.NumberValue()
				if f != float64(int64(f)) {
					return object.Undefined, rt.RangeError("The number %v cannot be converted to a BigInt because it is not an integer", f)
				}
				return object.BigInt(big.NewInt(int64(f))), nil
			case v.IsString():
				b, ok := new(big.Int).SetString(v.AsString(), 10)
				if !ok {
					return object.Undefined, rt.SyntaxError("Cannot convert %s to a BigInt", v.AsString())
				}
				return object.BigInt(b), nil
			case v.IsBoolean():
				if v.AsBoolean() {
					return object.BigInt(big.NewInt(1)), nil
				}
				return object.BigInt(big.NewInt(0)), nil
			default:
				return object.Undefined, rt.TypeError("Cannot convert value to a BigInt")
			}
		},
		Construct: func(rt *runtime.Realm, args []object.Value, newTarget *object.Object) (object.Value, *runtime.EcmaError) {
			return object.Undefined, rt.TypeError("BigInt is not a constructor")
		},
	})
	fn.DefineRaw(object.StringKey("prototype"), object.DataSlot(object.FromObject(r.BigIntProto), false, false, false))
	r.BigIntProto.DefineRaw(object.StringKey("constructor"), object.DataSlot(object.FromObject(fn), true, false, true))

	global.DefineRaw(object.StringKey("BigInt"), object.DataSlot(object.FromObject(fn), true, false, true))
}
