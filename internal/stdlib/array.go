package stdlib

import (
	"sort"

	"github.com/ecmavm/engine/internal/object"
	"github.com/ecmavm/engine/internal/runtime"
)

// installArrayProto implements spec.md's Array built-in methods, grounded
// on funxy's builtins.go `Builtins` map shape generalized from funxy's
// fixed composite List value to this engine's KindArray object (which is
// just an ordinary property-mapped object with an ArrayLength slot, per
// object/array.go's own doc comment).
func installArrayProto(r *runtime.Realm, proto *object.Object) {
	method(r, proto, "push", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		arr, err := asArray(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		for _, v := range args {
			arr.SetIndex(arr.ArrayLength, v)
		}
		return object.Int32(int32(arr.ArrayLength)), nil
	})
	method(r, proto, "pop", 0, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		arr, err := asArray(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		if arr.ArrayLength == 0 {
			return object.Undefined, nil
		}
		last := arr.ArrayLength - 1
		v := arr.GetIndex(last)
		arr.SetArrayLength(last)
		return v, nil
	})
	method(r, proto, "shift", 0, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		arr, err := asArray(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		n := arr.ArrayLength
		if n == 0 {
			return object.Undefined, nil
		}
		first := arr.GetIndex(0)
		for i := uint32(1); i < n; i++ {
			arr.SetIndex(i-1, arr.GetIndex(i))
		}
		arr.SetArrayLength(n - 1)
		return first, nil
	})
	method(r, proto, "unshift", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		arr, err := asArray(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		n := arr.ArrayLength
		k := uint32(len(args))
		for i := n; i > 0; i-- {
			arr.SetIndex(i-1+k, arr.GetIndex(i-1))
		}
		for i, v := range args {
			arr.SetIndex(uint32(i), v)
		}
		return object.Int32(int32(arr.ArrayLength)), nil
	})
	method(r, proto, "slice", 2, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		arr, err := asArray(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		n := int(arr.ArrayLength)
		start, serr := relativeIndex(rt, arg(args, 0), n, 0)
		if serr != nil {
			return object.Undefined, serr
		}
		end, eerr := relativeIndex(rt, arg(args, 1), n, n)
		if eerr != nil {
			return object.Undefined, eerr
		}
		var out []object.Value
		for i := start; i < end; i++ {
			out = append(out, arr.GetIndex(uint32(i)))
		}
		return object.FromObject(runtime.NewArrayFromValues(rt, out)), nil
	})
	method(r, proto, "splice", 2, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		arr, err := asArray(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		n := int(arr.ArrayLength)
		start, serr := relativeIndex(rt, arg(args, 0), n, 0)
		if serr != nil {
			return object.Undefined, serr
		}
		deleteCount := n - start
		if len(args) > 1 {
			dc, derr := runtime.ToIntegerOrInfinity(rt, args[1])
			if derr != nil {
				return object.Undefined, derr
			}
			deleteCount = clampInt(int(dc), 0, n-start)
		}
		var items []object.Value
		if len(args) > 2 {
			items = args[2:]
		}

		var elements []object.Value
		for i := 0; i < n; i++ {
			elements = append(elements, arr.GetIndex(uint32(i)))
		}
		removed := append([]object.Value(nil), elements[start:start+deleteCount]...)
		rebuilt := append([]object.Value(nil), elements[:start]...)
		rebuilt = append(rebuilt, items...)
		rebuilt = append(rebuilt, elements[start+deleteCount:]...)
		arr.SetArrayLength(0)
		for i, v := range rebuilt {
			arr.SetIndex(uint32(i), v)
		}
		return object.FromObject(runtime.NewArrayFromValues(rt, removed)), nil
	})
	method(r, proto, "concat", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		arr, err := asArray(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		var out []object.Value
		out = append(out, arrayElements(arr)...)
		for _, a := range args {
			if a.IsObject() && a.AsObject().Kind == object.KindArray {
				out = append(out, arrayElements(a.AsObject())...)
			} else {
				out = append(out, a)
			}
		}
		return object.FromObject(runtime.NewArrayFromValues(rt, out)), nil
	})
	method(r, proto, "join", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		arr, err := asArray(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		sep := ","
		if len(args) > 0 && !args[0].IsUndefined() {
			s, serr := runtime.ToString(rt, args[0])
			if serr != nil {
				return object.Undefined, serr
			}
			sep = s
		}
		var out string
		for i := uint32(0); i < arr.ArrayLength; i++ {
			if i > 0 {
				out += sep
			}
			v := arr.GetIndex(i)
			if v.IsNullOrUndefined() {
				continue
			}
			s, serr := runtime.ToString(rt, v)
			if serr != nil {
				return object.Undefined, serr
			}
			out += s
		}
		return object.String(out), nil
	})
	method(r, proto, "indexOf", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		arr, err := asArray(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		target := arg(args, 0)
		for i := uint32(0); i < arr.ArrayLength; i++ {
			if runtime.StrictEquals(arr.GetIndex(i), target) {
				return object.Int32(int32(i)), nil
			}
		}
		return object.Int32(-1), nil
	})
	method(r, proto, "includes", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		arr, err := asArray(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		target := arg(args, 0)
		for i := uint32(0); i < arr.ArrayLength; i++ {
			if runtime.SameValueZero(arr.GetIndex(i), target) {
				return object.True, nil
			}
		}
		return object.False, nil
	})
	method(r, proto, "reverse", 0, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		arr, err := asArray(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		n := arr.ArrayLength
		for i, j := uint32(0), n; i < j; i, j = i+1, j-1 {
			vi, vj := arr.GetIndex(i), arr.GetIndex(j-1)
			arr.SetIndex(i, vj)
			arr.SetIndex(j-1, vi)
		}
		return this, nil
	})
	method(r, proto, "sort", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		arr, err := asArray(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		var cmp object.Value
		if len(args) > 0 && args[0].IsObject() && object.IsCallable(args[0].AsObject()) {
			cmp = args[0]
		}
		elements := arrayElements(arr)
		var sortErr *runtime.EcmaError
		sort.SliceStable(elements, func(i, j int) bool {
			if sortErr != nil {
				return false
			}
			a, b := elements[i], elements[j]
			if a.IsUndefined() {
				return false
			}
			if b.IsUndefined() {
				return true
			}
			if cmp.IsObject() {
				result, cerr := rt.Invoker.Call(cmp.AsObject(), object.Undefined, []object.Value{a, b})
				if cerr != nil {
					sortErr = cerr
					return false
				}
				n, nerr := runtime.ToNumber(rt, result)
				if nerr != nil {
					sortErr = nerr
					return false
				}
				return n < 0
			}
			as, aerr := runtime.ToString(rt, a)
			if aerr != nil {
				sortErr = aerr
				return false
			}
			bs, berr := runtime.ToString(rt, b)
			if berr != nil {
				sortErr = berr
				return false
			}
			return as < bs
		})
		if sortErr != nil {
			return object.Undefined, sortErr
		}
		for i, v := range elements {
			arr.SetIndex(uint32(i), v)
		}
		return this, nil
	})

	installArrayIterationMethods(r, proto)

	symMethod(r, proto, object.SymIterator, "[Symbol.iterator]", 0, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		arr, err := asArray(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		return object.FromObject(newArrayIterator(rt, arr)), nil
	})
}

// installArrayIterationMethods covers the higher-order callback methods
// (map/filter/forEach/reduce/reduceRight/find/findIndex/some/every/flat),
// split out from the mutating/indexing methods above since every one of
// these shares the same "invoke a script callback per element" shape via
// Realm.Invoker.Call.
func installArrayIterationMethods(r *runtime.Realm, proto *object.Object) {
	method(r, proto, "forEach", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		arr, err := asArray(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		cb, cbThis, cerr := callbackOf(rt, args)
		if cerr != nil {
			return object.Undefined, cerr
		}
		for i := uint32(0); i < arr.ArrayLength; i++ {
			if _, cerr := rt.Invoker.Call(cb, cbThis, []object.Value{arr.GetIndex(i), object.Int32(int32(i)), this}); cerr != nil {
				return object.Undefined, cerr
			}
		}
		return object.Undefined, nil
	})
	method(r, proto, "map", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		arr, err := asArray(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		cb, cbThis, cerr := callbackOf(rt, args)
		if cerr != nil {
			return object.Undefined, cerr
		}
		out := make([]object.Value, arr.ArrayLength)
		for i := uint32(0); i < arr.ArrayLength; i++ {
			v, cerr := rt.Invoker.Call(cb, cbThis, []object.Value{arr.GetIndex(i), object.Int32(int32(i)), this})
			if cerr != nil {
				return object.Undefined, cerr
			}
			out[i] = v
		}
		return object.FromObject(runtime.NewArrayFromValues(rt, out)), nil
	})
	method(r, proto, "filter", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		arr, err := asArray(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		cb, cbThis, cerr := callbackOf(rt, args)
		if cerr != nil {
			return object.Undefined, cerr
		}
		var out []object.Value
		for i := uint32(0); i < arr.ArrayLength; i++ {
			elem := arr.GetIndex(i)
			keep, cerr := rt.Invoker.Call(cb, cbThis, []object.Value{elem, object.Int32(int32(i)), this})
			if cerr != nil {
				return object.Undefined, cerr
			}
			if runtime.ToBoolean(keep) {
				out = append(out, elem)
			}
		}
		return object.FromObject(runtime.NewArrayFromValues(rt, out)), nil
	})
	method(r, proto, "find", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		arr, err := asArray(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		cb, cbThis, cerr := callbackOf(rt, args)
		if cerr != nil {
			return object.Undefined, cerr
		}
		for i := uint32(0); i < arr.ArrayLength; i++ {
			elem := arr.GetIndex(i)
			ok, cerr := rt.Invoker.Call(cb, cbThis, []object.Value{elem, object.Int32(int32(i)), this})
			if cerr != nil {
				return object.Undefined, cerr
			}
			if runtime.ToBoolean(ok) {
				return elem, nil
			}
		}
		return object.Undefined, nil
	})
	method(r, proto, "findIndex", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		arr, err := asArray(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		cb, cbThis, cerr := callbackOf(rt, args)
		if cerr != nil {
			return object.Undefined, cerr
		}
		for i := uint32(0); i < arr.ArrayLength; i++ {
			ok, cerr := rt.Invoker.Call(cb, cbThis, []object.Value{arr.GetIndex(i), object.Int32(int32(i)), this})
			if cerr != nil {
				return object.Undefined, cerr
			}
			if runtime.ToBoolean(ok) {
				return object.Int32(int32(i)), nil
			}
		}
		return object.Int32(-1), nil
	})
	method(r, proto, "some", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		arr, err := asArray(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		cb, cbThis, cerr := callbackOf(rt, args)
		if cerr != nil {
			return object.Undefined, cerr
		}
		for i := uint32(0); i < arr.ArrayLength; i++ {
			ok, cerr := rt.Invoker.Call(cb, cbThis, []object.Value{arr.GetIndex(i), object.Int32(int32(i)), this})
			if cerr != nil {
				return object.Undefined, cerr
			}
			if runtime.ToBoolean(ok) {
				return object.True, nil
			}
		}
		return object.False, nil
	})
	method(r, proto, "every", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		arr, err := asArray(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		cb, cbThis, cerr := callbackOf(rt, args)
		if cerr != nil {
			return object.Undefined, cerr
		}
		for i := uint32(0); i < arr.ArrayLength; i++ {
			ok, cerr := rt.Invoker.Call(cb, cbThis, []object.Value{arr.GetIndex(i), object.Int32(int32(i)), this})
			if cerr != nil {
				return object.Undefined, cerr
			}
			if !runtime.ToBoolean(ok) {
				return object.False, nil
			}
		}
		return object.True, nil
	})
	method(r, proto, "reduce", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		return reduceArray(rt, this, args, false)
	})
	method(r, proto, "reduceRight", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		return reduceArray(rt, this, args, true)
	})
	method(r, proto, "flat", 0, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		arr, err := asArray(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		depth := 1
		if len(args) > 0 {
			d, derr := runtime.ToIntegerOrInfinity(rt, args[0])
			if derr != nil {
				return object.Undefined, derr
			}
			depth = int(d)
		}
		out := flatten(arrayElements(arr), depth)
		return object.FromObject(runtime.NewArrayFromValues(rt, out)), nil
	})
}

func flatten(elements []object.Value, depth int) []object.Value {
	var out []object.Value
	for _, v := range elements {
		if depth > 0 && v.IsObject() && v.AsObject().Kind == object.KindArray {
			out = append(out, flatten(arrayElements(v.AsObject()), depth-1)...)
		} else {
			out = append(out, v)
		}
	}
	return out
}

func reduceArray(r *runtime.Realm, this object.Value, args []object.Value, fromRight bool) (object.Value, *runtime.EcmaError) {
	arr, err := asArray(r, this)
	if err != nil {
		return object.Undefined, err
	}
	if len(args) == 0 || !args[0].IsObject() || !object.IsCallable(args[0].AsObject()) {
		return object.Undefined, r.TypeError("Reduce callback must be a function")
	}
	cb := args[0].AsObject()
	n := int(arr.ArrayLength)
	var acc object.Value
	start := 0
	if len(args) > 1 {
		acc = args[1]
	} else if n == 0 {
		return object.Undefined, r.TypeError("Reduce of empty array with no initial value")
	} else {
		start = 1
		if fromRight {
			acc = arr.GetIndex(uint32(n - 1))
		} else {
			acc = arr.GetIndex(0)
		}
	}
	for k := start; k < n; k++ {
		idx := k
		if fromRight {
			idx = n - 1 - k
		}
		v, cerr := r.Invoker.Call(cb, object.Undefined, []object.Value{acc, arr.GetIndex(uint32(idx)), object.Int32(int32(idx)), this})
		if cerr != nil {
			return object.Undefined, cerr
		}
		acc = v
	}
	return acc, nil
}

func callbackOf(r *runtime.Realm, args []object.Value) (*object.Object, object.Value, *runtime.EcmaError) {
	if len(args) == 0 || !args[0].IsObject() || !object.IsCallable(args[0].AsObject()) {
		return nil, object.Undefined, r.TypeError("callback must be a function")
	}
	return args[0].AsObject(), arg(args, 1), nil
}

func asArray(r *runtime.Realm, v object.Value) (*object.Object, *runtime.EcmaError) {
	if !v.IsObject() || v.AsObject().Kind != object.KindArray {
		return nil, r.TypeError("not an array")
	}
	return v.AsObject(), nil
}

func arrayElements(arr *object.Object) []object.Value {
	out := make([]object.Value, arr.ArrayLength)
	for i := uint32(0); i < arr.ArrayLength; i++ {
		out[i] = arr.GetIndex(i)
	}
	return out
}

func relativeIndex(r *runtime.Realm, v object.Value, length, dflt int) (int, *runtime.EcmaError) {
	if v.IsUndefined() {
		return dflt, nil
	}
	f, err := runtime.ToIntegerOrInfinity(r, v)
	if err != nil {
		return 0, err
	}
	n := int(f)
	if n < 0 {
		n += length
	}
	return clampInt(n, 0, length), nil
}

func clampInt(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// newArrayIterator builds the stateful iterator object Array.prototype's
// Symbol.iterator and for-of return: a plain object whose "next" method
// closes over a mutable index, per spec.md 4.F's iteration protocol
// (object itself, not a generator — no suspension needed since a native
// Go closure can hold state directly rather than parking a goroutine).
func newArrayIterator(r *runtime.Realm, arr *object.Object) *object.Object {
	idx := uint32(0)
	it := object.NewObject(r.IteratorProto)
	it.DefineRaw(object.StringKey("next"), object.DataSlot(object.FromObject(
		runtime.NewNativeFunction(r.FunctionProto, "next", 0, runtime.NativeFunc{
			Call: func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
				result := object.NewObject(rt.ObjectProto)
				if idx >= arr.ArrayLength {
					result.DefineRaw(object.StringKey("value"), object.DataSlot(object.Undefined, true, true, true))
					result.DefineRaw(object.StringKey("done"), object.DataSlot(object.True, true, true, true))
					return object.FromObject(result), nil
				}
				v := arr.GetIndex(idx)
				idx++
				result.DefineRaw(object.StringKey("value"), object.DataSlot(v, true, true, true))
				result.DefineRaw(object.StringKey("done"), object.DataSlot(object.False, true, true, true))
				return object.FromObject(result), nil
			},
		}),
	), true, false, true))
	return it
}

// installArrayConstructor builds the global Array function: Array(n)
// creates a length-n sparse array, Array(a, b, c) creates [a, b, c], plus
// Array.isArray/Array.from/Array.of.
func installArrayConstructor(r *runtime.Realm, global *object.Object) {
	body := func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		if len(args) == 1 && args[0].IsNumber() {
			n, err := runtime.ToUint32(rt, args[0])
			if err != nil {
				return object.Undefined, err
			}
			arr := object.NewArray(rt.ArrayProto)
			arr.SetArrayLength(n)
			return object.FromObject(arr), nil
		}
		return object.FromObject(runtime.NewArrayFromValues(rt, args)), nil
	}
	ctor := newConstructor(r, "Array", 1, body, body, r.ArrayProto)
	method(r, ctor, "isArray", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		v := arg(args, 0)
		return object.Bool(v.IsObject() && v.AsObject().Kind == object.KindArray), nil
	})
	method(r, ctor, "of", 0, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		return object.FromObject(runtime.NewArrayFromValues(rt, args)), nil
	})
	method(r, ctor, "from", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		src := arg(args, 0)
		var mapFn *object.Object
		if len(args) > 1 && args[1].IsObject() && object.IsCallable(args[1].AsObject()) {
			mapFn = args[1].AsObject()
		}
		var elements []object.Value
		if src.IsObject() {
			iterVal := runtime.GetProperty(rt, src, object.SymKey(object.SymIterator))
			if iterVal.IsObject() && object.IsCallable(iterVal.AsObject()) {
				state, err := runtime.GetIterator(rt, src)
				if err != nil {
					return object.Undefined, err
				}
				for {
					v, done, nerr := runtime.IteratorNext(rt, state)
					if nerr != nil {
						return object.Undefined, nerr
					}
					if done {
						break
					}
					elements = append(elements, v)
				}
			} else {
				listed, lerr := spreadArrayLike(rt, src)
				if lerr != nil {
					return object.Undefined, lerr
				}
				elements = listed
			}
		}
		if mapFn != nil {
			for i, v := range elements {
				mapped, merr := rt.Invoker.Call(mapFn, object.Undefined, []object.Value{v, object.Int32(int32(i))})
				if merr != nil {
					return object.Undefined, merr
				}
				elements[i] = mapped
			}
		}
		return object.FromObject(runtime.NewArrayFromValues(rt, elements)), nil
	})
	global.DefineRaw(object.StringKey("Array"), object.DataSlot(object.FromObject(ctor), true, false, true))
}
