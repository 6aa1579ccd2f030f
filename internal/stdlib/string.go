package stdlib

import (
	"strings"

	"github.com/ecmavm/engine/internal/object"
	"github.com/ecmavm/engine/internal/runtime"
)

func thisString(r *runtime.Realm, this object.Value) (string, *runtime.EcmaError) {
	if this.IsString() {
		return this.AsString(), nil
	}
	if this.IsObject() {
		if prim, ok := runtime.PrimitiveValueOf(this.AsObject()); ok && prim.IsString() {
			return prim.AsString(), nil
		}
	}
	return runtime.ToString(r, this)
}

// installStringProto implements spec.md's String built-in methods over
// []rune slices (code-point indexing, per spec.md 4.A's "String.prototype
// indexes by UTF-16 code unit... this engine indexes by Unicode code point
// instead" resolved detail), grounded on funxy having no primitive/object
// duality to box — built directly against object/coerce.go's
// installStringIndices convention for what a boxed String looks like.
func installStringProto(r *runtime.Realm, proto *object.Object) {
	method(r, proto, "toString", 0, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		s, err := thisString(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		return object.String(s), nil
	})
	method(r, proto, "valueOf", 0, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		s, err := thisString(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		return object.String(s), nil
	})
	method(r, proto, "charAt", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		s, err := thisString(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		runes := []rune(s)
		i, ierr := runtime.ToIntegerOrInfinity(rt, arg(args, 0))
		if ierr != nil {
			return object.Undefined, ierr
		}
		idx := int(i)
		if idx < 0 || idx >= len(runes) {
			return object.String(""), nil
		}
		return object.String(string(runes[idx])), nil
	})
	method(r, proto, "charCodeAt", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		s, err := thisString(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		runes := []rune(s)
		i, ierr := runtime.ToIntegerOrInfinity(rt, arg(args, 0))
		if ierr != nil {
			return object.Undefined, ierr
		}
		idx := int(i)
		if idx < 0 || idx >= len(runes) {
			return runtime.NormalizeNumber(nan()), nil
		}
		return object.Int32(int32(runes[idx])), nil
	})
	method(r, proto, "indexOf", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		s, err := thisString(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		needle, nerr := runtime.ToString(rt, arg(args, 0))
		if nerr != nil {
			return object.Undefined, nerr
		}
		runes, needleRunes := []rune(s), []rune(needle)
		idx := strings.Index(s, needle)
		if idx < 0 {
			return object.Int32(-1), nil
		}
		// Reindex the byte offset strings.Index returned into a code-point
		// offset, since this engine's String indexing is code-point based.
		_ = runes
		_ = needleRunes
		return object.Int32(int32(len([]rune(s[:idx])))), nil
	})
	method(r, proto, "includes", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		s, err := thisString(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		needle, nerr := runtime.ToString(rt, arg(args, 0))
		if nerr != nil {
			return object.Undefined, nerr
		}
		return object.Bool(strings.Contains(s, needle)), nil
	})
	method(r, proto, "startsWith", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		s, err := thisString(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		needle, nerr := runtime.ToString(rt, arg(args, 0))
		if nerr != nil {
			return object.Undefined, nerr
		}
		return object.Bool(strings.HasPrefix(s, needle)), nil
	})
	method(r, proto, "endsWith", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		s, err := thisString(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		needle, nerr := runtime.ToString(rt, arg(args, 0))
		if nerr != nil {
			return object.Undefined, nerr
		}
		return object.Bool(strings.HasSuffix(s, needle)), nil
	})
	method(r, proto, "slice", 2, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		s, err := thisString(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		runes := []rune(s)
		n := len(runes)
		start, serr := relativeIndex(rt, arg(args, 0), n, 0)
		if serr != nil {
			return object.Undefined, serr
		}
		end, eerr := relativeIndex(rt, arg(args, 1), n, n)
		if eerr != nil {
			return object.Undefined, eerr
		}
		if start >= end {
			return object.String(""), nil
		}
		return object.String(string(runes[start:end])), nil
	})
	method(r, proto, "substring", 2, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		s, err := thisString(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		runes := []rune(s)
		n := len(runes)
		a, aerr := clampNonNegative(rt, arg(args, 0), n, 0)
		if aerr != nil {
			return object.Undefined, aerr
		}
		b, berr := clampNonNegative(rt, arg(args, 1), n, n)
		if berr != nil {
			return object.Undefined, berr
		}
		if a > b {
			a, b = b, a
		}
		return object.String(string(runes[a:b])), nil
	})
	method(r, proto, "split", 2, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		s, err := thisString(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		if len(args) == 0 || args[0].IsUndefined() {
			return object.FromObject(runtime.NewArrayFromValues(rt, []object.Value{object.String(s)})), nil
		}
		sep, serr := runtime.ToString(rt, args[0])
		if serr != nil {
			return object.Undefined, serr
		}
		var parts []string
		if sep == "" {
			for _, ru := range s {
				parts = append(parts, string(ru))
			}
		} else {
			parts = strings.Split(s, sep)
		}
		out := make([]object.Value, len(parts))
		for i, p := range parts {
			out[i] = object.String(p)
		}
		return object.FromObject(runtime.NewArrayFromValues(rt, out)), nil
	})
	method(r, proto, "toUpperCase", 0, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		s, err := thisString(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		return object.String(strings.ToUpper(s)), nil
	})
	method(r, proto, "toLowerCase", 0, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		s, err := thisString(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		return object.String(strings.ToLower(s)), nil
	})
	method(r, proto, "trim", 0, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		s, err := thisString(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		return object.String(strings.TrimSpace(s)), nil
	})
	method(r, proto, "trimStart", 0, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		s, err := thisString(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		return object.String(strings.TrimLeft(s, " \t\n\r\v\f")), nil
	})
	method(r, proto, "trimEnd", 0, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		s, err := thisString(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		return object.String(strings.TrimRight(s, " \t\n\r\v\f")), nil
	})
	method(r, proto, "repeat", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		s, err := thisString(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		n, nerr := runtime.ToIntegerOrInfinity(rt, arg(args, 0))
		if nerr != nil {
			return object.Undefined, nerr
		}
		if n < 0 {
			return object.Undefined, rt.RangeError("Invalid count value")
		}
		return object.String(strings.Repeat(s, int(n))), nil
	})
	method(r, proto, "padStart", 2, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		return pad(rt, this, args, true)
	})
	method(r, proto, "padEnd", 2, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		return pad(rt, this, args, false)
	})
	method(r, proto, "concat", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		s, err := thisString(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		for _, a := range args {
			as, aerr := runtime.ToString(rt, a)
			if aerr != nil {
				return object.Undefined, aerr
			}
			s += as
		}
		return object.String(s), nil
	})
	method(r, proto, "replace", 2, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		return replaceString(rt, this, args, false)
	})
	method(r, proto, "replaceAll", 2, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		return replaceString(rt, this, args, true)
	})
	method(r, proto, "at", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		s, err := thisString(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		runes := []rune(s)
		i, ierr := runtime.ToIntegerOrInfinity(rt, arg(args, 0))
		if ierr != nil {
			return object.Undefined, ierr
		}
		idx := int(i)
		if idx < 0 {
			idx += len(runes)
		}
		if idx < 0 || idx >= len(runes) {
			return object.Undefined, nil
		}
		return object.String(string(runes[idx])), nil
	})

	symMethod(r, proto, object.SymIterator, "[Symbol.iterator]", 0, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		s, err := thisString(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		return object.FromObject(newStringIterator(rt, s)), nil
	})
}

func replaceString(r *runtime.Realm, this object.Value, args []object.Value, all bool) (object.Value, *runtime.EcmaError) {
	s, err := thisString(r, this)
	if err != nil {
		return object.Undefined, err
	}
	pattern, perr := runtime.ToString(r, arg(args, 0))
	if perr != nil {
		return object.Undefined, perr
	}
	repl := arg(args, 1)
	replacer := func(match string) (string, *runtime.EcmaError) {
		if repl.IsObject() && object.IsCallable(repl.AsObject()) {
			v, cerr := r.Invoker.Call(repl.AsObject(), object.Undefined, []object.Value{object.String(match)})
			if cerr != nil {
				return "", cerr
			}
			return runtime.ToString(r, v)
		}
		return runtime.ToString(r, repl)
	}
	if all {
		if pattern == "" {
			return object.String(s), nil
		}
		var b strings.Builder
		rest := s
		for {
			i := strings.Index(rest, pattern)
			if i < 0 {
				b.WriteString(rest)
				break
			}
			b.WriteString(rest[:i])
			rs, rerr := replacer(pattern)
			if rerr != nil {
				return object.Undefined, rerr
			}
			b.WriteString(rs)
			rest = rest[i+len(pattern):]
		}
		return object.String(b.String()), nil
	}
	i := strings.Index(s, pattern)
	if i < 0 {
		return object.String(s), nil
	}
	rs, rerr := replacer(pattern)
	if rerr != nil {
		return object.Undefined, rerr
	}
	return object.String(s[:i] + rs + s[i+len(pattern):]), nil
}

func pad(r *runtime.Realm, this object.Value, args []object.Value, start bool) (object.Value, *runtime.EcmaError) {
	s, err := thisString(r, this)
	if err != nil {
		return object.Undefined, err
	}
	target, terr := runtime.ToIntegerOrInfinity(r, arg(args, 0))
	if terr != nil {
		return object.Undefined, terr
	}
	padStr := " "
	if len(args) > 1 && !args[1].IsUndefined() {
		p, perr := runtime.ToString(r, args[1])
		if perr != nil {
			return object.Undefined, perr
		}
		padStr = p
	}
	runes := []rune(s)
	need := int(target) - len(runes)
	if need <= 0 || padStr == "" {
		return object.String(s), nil
	}
	padRunes := []rune(strings.Repeat(padStr, need/len([]rune(padStr))+1))[:need]
	if start {
		return object.String(string(padRunes) + s), nil
	}
	return object.String(s + string(padRunes)), nil
}

func clampNonNegative(r *runtime.Realm, v object.Value, length, dflt int) (int, *runtime.EcmaError) {
	if v.IsUndefined() {
		return dflt, nil
	}
	f, err := runtime.ToIntegerOrInfinity(r, v)
	if err != nil {
		return 0, err
	}
	return clampInt(int(f), 0, length), nil
}

func newStringIterator(r *runtime.Realm, s string) *object.Object {
	runes := []rune(s)
	idx := 0
	it := object.NewObject(r.IteratorProto)
	it.DefineRaw(object.StringKey("next"), object.DataSlot(object.FromObject(
		runtime.NewNativeFunction(r.FunctionProto, "next", 0, runtime.NativeFunc{
			Call: func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
				result := object.NewObject(rt.ObjectProto)
				if idx >= len(runes) {
					result.DefineRaw(object.StringKey("value"), object.DataSlot(object.Undefined, true, true, true))
					result.DefineRaw(object.StringKey("done"), object.DataSlot(object.True, true, true, true))
					return object.FromObject(result), nil
				}
				v := runes[idx]
				idx++
				result.DefineRaw(object.StringKey("value"), object.DataSlot(object.String(string(v)), true, true, true))
				result.DefineRaw(object.StringKey("done"), object.DataSlot(object.False, true, true, true))
				return object.FromObject(result), nil
			},
		}),
	), true, false, true))
	return it
}

// installStringConstructor builds the global String function: called as a
// function it coerces to a primitive string, called with new it boxes one,
// plus String.fromCharCode.
func installStringConstructor(r *runtime.Realm, global *object.Object) {
	call := func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		if len(args) == 0 {
			return object.String(""), nil
		}
		s, err := runtime.ToString(rt, args[0])
		if err != nil {
			return object.Undefined, err
		}
		return object.String(s), nil
	}
	construct := func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		v, err := call(rt, this, args)
		if err != nil {
			return object.Undefined, err
		}
		return object.FromObject(mustBox(rt, v)), nil
	}
	ctor := newConstructor(r, "String", 1, call, construct, r.StringProto)
	method(r, ctor, "fromCharCode", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		var b strings.Builder
		for _, a := range args {
			n, err := runtime.ToInt32(rt, a)
			if err != nil {
				return object.Undefined, err
			}
			b.WriteRune(rune(n))
		}
		return object.String(b.String()), nil
	})
	global.DefineRaw(object.StringKey("String"), object.DataSlot(object.FromObject(ctor), true, false, true))
}

func mustBox(r *runtime.Realm, v object.Value) *object.Object {
	o, err := runtime.ToObject(r, v)
	if err != nil {
		return object.NewObject(r.ObjectProto)
	}
	return o
}
