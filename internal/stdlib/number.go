package stdlib

import (
	"math"
	"strconv"

	"github.com/ecmavm/engine/internal/object"
	"github.com/ecmavm/engine/internal/runtime"
)

func nan() float64 { return math.NaN() }

func thisNumber(r *runtime.Realm, this object.Value) (float64, *runtime.EcmaError) {
	if this.IsNumber() {
		return this.NumberValue(), nil
	}
	if this.IsObject() {
		if prim, ok := runtime.PrimitiveValueOf(this.AsObject()); ok && prim.IsNumber() {
			return prim.NumberValue(), nil
		}
	}
	return 0, r.TypeError("Number.prototype method called on incompatible receiver")
}

// installNumberProto implements Number.prototype, grounded on funxy's
// Integer/Float numeric kinds generalized to this engine's boxed-Number
// wrapper object (object/coerce.go's ToObject case), which funxy has no
// analog for since funxy's numbers are never implicitly boxed.
func installNumberProto(r *runtime.Realm, proto *object.Object) {
	method(r, proto, "toString", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		n, err := thisNumber(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		radix := 10
		if len(args) > 0 && !args[0].IsUndefined() {
			rv, rerr := runtime.ToIntegerOrInfinity(rt, args[0])
			if rerr != nil {
				return object.Undefined, rerr
			}
			radix = int(rv)
		}
		if radix == 10 {
			return object.String(runtime.NumberToString(n)), nil
		}
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return object.String(runtime.NumberToString(n)), nil
		}
		return object.String(strconv.FormatInt(int64(n), radix)), nil
	})
	method(r, proto, "valueOf", 0, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		n, err := thisNumber(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		return runtime.NormalizeNumber(n), nil
	})
	method(r, proto, "toFixed", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		n, err := thisNumber(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		digits := 0
		if len(args) > 0 && !args[0].IsUndefined() {
			d, derr := runtime.ToIntegerOrInfinity(rt, args[0])
			if derr != nil {
				return object.Undefined, derr
			}
			digits = int(d)
		}
		return object.String(strconv.FormatFloat(n, 'f', digits, 64)), nil
	})
	method(r, proto, "toPrecision", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		n, err := thisNumber(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		if len(args) == 0 || args[0].IsUndefined() {
			return object.String(runtime.NumberToString(n)), nil
		}
		p, perr := runtime.ToIntegerOrInfinity(rt, args[0])
		if perr != nil {
			return object.Undefined, perr
		}
		return object.String(strconv.FormatFloat(n, 'g', int(p), 64)), nil
	})
}

// installNumberConstructor builds the global Number function plus its
// well-known static constants (MAX_SAFE_INTEGER, EPSILON, ...) and
// isInteger/isFinite/isNaN/parseFloat/parseInt statics.
func installNumberConstructor(r *runtime.Realm, global *object.Object) {
	call := func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		if len(args) == 0 {
			return object.Int32(0), nil
		}
		n, err := runtime.ToNumber(rt, args[0])
		if err != nil {
			return object.Undefined, err
		}
		return runtime.NormalizeNumber(n), nil
	}
	construct := func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		v, err := call(rt, this, args)
		if err != nil {
			return object.Undefined, err
		}
		return object.FromObject(mustBox(rt, v)), nil
	}
	ctor := newConstructor(r, "Number", 1, call, construct, r.NumberProto)

	value(ctor, "MAX_SAFE_INTEGER", object.Float64(9007199254740991))
	value(ctor, "MIN_SAFE_INTEGER", object.Float64(-9007199254740991))
	value(ctor, "MAX_VALUE", object.Float64(math.MaxFloat64))
	value(ctor, "MIN_VALUE", object.Float64(5e-324))
	value(ctor, "EPSILON", object.Float64(2.220446049250313e-16))
	value(ctor, "POSITIVE_INFINITY", object.Float64(math.Inf(1)))
	value(ctor, "NEGATIVE_INFINITY", object.Float64(math.Inf(-1)))
	value(ctor, "NaN", object.Float64(nan()))

	method(r, ctor, "isInteger", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		v := arg(args, 0)
		if !v.IsNumber() {
			return object.False, nil
		}
		f := v.NumberValue()
		return object.Bool(!math.IsNaN(f) && !math.IsInf(f, 0) && f == math.Trunc(f)), nil
	})
	method(r, ctor, "isFinite", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		v := arg(args, 0)
		if !v.IsNumber() {
			return object.False, nil
		}
		f := v.NumberValue()
		return object.Bool(!math.IsNaN(f) && !math.IsInf(f, 0)), nil
	})
	method(r, ctor, "isNaN", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		v := arg(args, 0)
		return object.Bool(v.IsNumber() && math.IsNaN(v.NumberValue())), nil
	})
	method(r, ctor, "parseFloat", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		return globalParseFloat(rt, args)
	})
	method(r, ctor, "parseInt", 2, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		return globalParseInt(rt, args)
	})

	global.DefineRaw(object.StringKey("Number"), object.DataSlot(object.FromObject(ctor), true, false, true))
}
