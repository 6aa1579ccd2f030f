package stdlib

import (
	"math"
	"math/rand"

	"github.com/ecmavm/engine/internal/object"
	"github.com/ecmavm/engine/internal/runtime"
)

// installMath builds the Math namespace object, grounded on funxy's
// builtins_math.go domain file (a single flat "map[string]*Builtin" of Go
// math-package wrappers), generalized here into a plain property-map
// object with the standard constants/methods spec.md's Math module names.
func installMath(r *runtime.Realm, global *object.Object) {
	m := object.NewObject(r.ObjectProto)

	value(m, "PI", object.Float64(math.Pi))
	value(m, "E", object.Float64(math.E))
	value(m, "LN2", object.Float64(math.Ln2))
	value(m, "LN10", object.Float64(math.Log(10)))
	value(m, "LOG2E", object.Float64(1/math.Ln2))
	value(m, "LOG10E", object.Float64(1/math.Log(10)))
	value(m, "SQRT2", object.Float64(math.Sqrt2))
	value(m, "SQRT1_2", object.Float64(math.Sqrt(0.5)))

	unary := func(name string, fn func(float64) float64) {
		method(r, m, name, 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
			n, err := runtime.ToNumber(rt, arg(args, 0))
			if err != nil {
				return object.Undefined, err
			}
			return runtime.NormalizeNumber(fn(n)), nil
		})
	}

	unary("abs", math.Abs)
	unary("floor", math.Floor)
	unary("ceil", math.Ceil)
	unary("trunc", math.Trunc)
	unary("sqrt", math.Sqrt)
	unary("cbrt", math.Cbrt)
	unary("sign", func(f float64) float64 {
		switch {
		case math.IsNaN(f):
			return math.NaN()
		case f > 0:
			return 1
		case f < 0:
			return -1
		default:
			return f
		}
	})
	unary("round", func(f float64) float64 {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return f
		}
		return math.Floor(f + 0.5)
	})
	unary("log", math.Log)
	unary("log2", math.Log2)
	unary("log10", math.Log10)
	unary("exp", math.Exp)
	unary("sin", math.Sin)
	unary("cos", math.Cos)
	unary("tan", math.Tan)
	unary("asin", math.Asin)
	unary("acos", math.Acos)
	unary("atan", math.Atan)
	unary("sinh", math.Sinh)
	unary("cosh", math.Cosh)
	unary("tanh", math.Tanh)

	method(r, m, "pow", 2, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		base, err := runtime.ToNumber(rt, arg(args, 0))
		if err != nil {
			return object.Undefined, err
		}
		exp, err := runtime.ToNumber(rt, arg(args, 1))
		if err != nil {
			return object.Undefined, err
		}
		return runtime.NormalizeNumber(math.Pow(base, exp)), nil
	})
	method(r, m, "atan2", 2, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		y, err := runtime.ToNumber(rt, arg(args, 0))
		if err != nil {
			return object.Undefined, err
		}
		x, err := runtime.ToNumber(rt, arg(args, 1))
		if err != nil {
			return object.Undefined, err
		}
		return runtime.NormalizeNumber(math.Atan2(y, x)), nil
	})
	method(r, m, "hypot", 2, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		sum := 0.0
		for _, a := range args {
			n, err := runtime.ToNumber(rt, a)
			if err != nil {
				return object.Undefined, err
			}
			sum += n * n
		}
		return runtime.NormalizeNumber(math.Sqrt(sum)), nil
	})
	method(r, m, "min", 2, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		return minMax(rt, args, true)
	})
	method(r, m, "max", 2, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		return minMax(rt, args, false)
	})
	method(r, m, "random", 0, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		return object.Float64(rand.Float64()), nil
	})

	global.DefineRaw(object.StringKey("Math"), object.DataSlot(object.FromObject(m), true, false, true))
}

func minMax(rt *runtime.Realm, args []object.Value, wantMin bool) (object.Value, *runtime.EcmaError) {
	if len(args) == 0 {
		if wantMin {
			return object.Float64(math.Inf(1)), nil
		}
		return object.Float64(math.Inf(-1)), nil
	}
	best, err := runtime.ToNumber(rt, args[0])
	if err != nil {
		return object.Undefined, err
	}
	for _, a := range args[1:] {
		n, err := runtime.ToNumber(rt, a)
		if err != nil {
			return object.Undefined, err
		}
		if math.IsNaN(n) {
			return object.Float64(math.NaN()), nil
		}
		if (wantMin && n < best) || (!wantMin && n > best) {
			best = n
		}
	}
	if math.IsNaN(best) {
		return object.Float64(math.NaN()), nil
	}
	return runtime.NormalizeNumber(best), nil
}
