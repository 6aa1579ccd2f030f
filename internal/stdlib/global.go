package stdlib

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ecmavm/engine/internal/object"
	"github.com/ecmavm/engine/internal/runtime"
)

// installGlobal assembles the global object: globalThis, console, the bare
// parseInt/parseFloat/isNaN/isFinite functions, and every other file's
// install*Constructor/install* entry point. Grounded on funxy's
// evaluator.NewGlobalEnvironment, which likewise registers every builtin
// family into one shared top-level scope.
func installGlobal(r *runtime.Realm, global *object.Object) {
	global.DefineRaw(object.StringKey("globalThis"), object.DataSlot(object.FromObject(global), true, false, true))

	installObjectConstructor(r, global)
	installArrayConstructor(r, global)
	installStringConstructor(r, global)
	installNumberConstructor(r, global)
	installBooleanConstructor(r, global)
	installSymbolConstructor(r, global)
	installBigIntConstructor(r, global)
	installErrorConstructors(r, global)
	installRegExpConstructor(r, global)
	installCollectionConstructors(r, global)
	installDateConstructor(r, global)
	installPromiseConstructor(r, global)
	installMath(r, global)
	installConsole(r, global)
	installJSON(r, global)
	installYAML(r, global)
	installGRPC(r, global)
	installArrayBufferConstructor(r, global)
	installTypedArrayConstructors(r, global)

	method(r, global, "parseInt", 2, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		return globalParseInt(rt, args)
	})
	method(r, global, "parseFloat", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		return globalParseFloat(rt, args)
	})
	method(r, global, "isNaN", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		n, err := runtime.ToNumber(rt, arg(args, 0))
		if err != nil {
			return object.Undefined, err
		}
		return object.Bool(n != n), nil
	})
	method(r, global, "isFinite", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		n, err := runtime.ToNumber(rt, arg(args, 0))
		if err != nil {
			return object.Undefined, err
		}
		return object.Bool(!isNaNOrInf(n)), nil
	})
}

func isNaNOrInf(f float64) bool {
	return f != f || f > 1.797693134862315708145274237317043567981e+308 || f < -1.797693134862315708145274237317043567981e+308
}

// globalParseInt backs both the bare parseInt global and Number.parseInt,
// per spec.md 4.A's note that they share one implementation.
func globalParseInt(r *runtime.Realm, args []object.Value) (object.Value, *runtime.EcmaError) {
	s, err := runtime.ToString(r, arg(args, 0))
	if err != nil {
		return object.Undefined, err
	}
	s = strings.TrimSpace(s)
	radix := 10
	if len(args) > 1 && !args[1].IsUndefined() {
		rv, rerr := runtime.ToIntegerOrInfinity(r, args[1])
		if rerr != nil {
			return object.Undefined, rerr
		}
		radix = int(rv)
	}
	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}
	if radix == 0 {
		radix = 10
	}
	if (radix == 16 || radix == 0) && (strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")) {
		s = s[2:]
		radix = 16
	}
	end := 0
	for end < len(s) {
		_, err := strconv.ParseInt(s[:end+1], radix, 64)
		if err != nil {
			if _, ok := validDigit(s[end], radix); !ok {
				break
			}
		}
		end++
	}
	for end > 0 {
		if _, ok := validDigit(s[end-1], radix); ok {
			break
		}
		end--
	}
	if end == 0 {
		return object.Float64(nan()), nil
	}
	n, convErr := strconv.ParseInt(s[:end], radix, 64)
	if convErr != nil {
		return object.Float64(nan()), nil
	}
	if negative {
		n = -n
	}
	return runtime.NormalizeNumber(float64(n)), nil
}

func validDigit(b byte, radix int) (int, bool) {
	var d int
	switch {
	case b >= '0' && b <= '9':
		d = int(b - '0')
	case b >= 'a' && b <= 'z':
		d = int(b-'a') + 10
	case b >= 'A' && b <= 'Z':
		d = int(b-'A') + 10
	default:
		return 0, false
	}
	if d >= radix {
		return 0, false
	}
	return d, true
}

// globalParseFloat backs both the bare parseFloat global and
// Number.parseFloat.
func globalParseFloat(r *runtime.Realm, args []object.Value) (object.Value, *runtime.EcmaError) {
	s, err := runtime.ToString(r, arg(args, 0))
	if err != nil {
		return object.Undefined, err
	}
	s = strings.TrimSpace(s)
	end := len(s)
	for end > 0 {
		if _, perr := strconv.ParseFloat(s[:end], 64); perr == nil {
			break
		}
		end--
	}
	if end == 0 {
		return object.Float64(nan()), nil
	}
	f, perr := strconv.ParseFloat(s[:end], 64)
	if perr != nil {
		return object.Float64(nan()), nil
	}
	return runtime.NormalizeNumber(f), nil
}

// installConsole builds console.log/error/warn/info/debug, each writing a
// space-joined, display-formatted rendering of its arguments to stdout or
// stderr. Grounded on funxy's builtins_io.go Print/Println family, which
// likewise formats each argument before joining with a single space.
func installConsole(r *runtime.Realm, global *object.Object) {
	c := object.NewObject(r.ObjectProto)
	logTo := func(w *os.File) nativeFn {
		return func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
			parts := make([]string, len(args))
			for i, a := range args {
				parts[i] = inspect(rt, a, 0, make(map[*object.Object]bool))
			}
			fmt.Fprintln(w, strings.Join(parts, " "))
			return object.Undefined, nil
		}
	}
	method(r, c, "log", 0, logTo(os.Stdout))
	method(r, c, "info", 0, logTo(os.Stdout))
	method(r, c, "debug", 0, logTo(os.Stdout))
	method(r, c, "warn", 0, logTo(os.Stderr))
	method(r, c, "error", 0, logTo(os.Stderr))
	global.DefineRaw(object.StringKey("console"), object.DataSlot(object.FromObject(c), true, false, true))
}

// inspect renders v the way a console would: strings unquoted at top level,
// arrays/objects shown structurally up to a bounded depth, with a seen-set
// guarding against circular references.
func inspect(r *runtime.Realm, v object.Value, depth int, seen map[*object.Object]bool) string {
	switch {
	case v.IsString():
		if depth == 0 {
			return v.AsString()
		}
		return "'" + v.AsString() + "'"
	case v.IsUndefined():
		return "undefined"
	case v.IsNull():
		return "null"
	case v.IsBoolean():
		if v.AsBoolean() {
			return "true"
		}
		return "false"
	case v.IsNumber():
		return runtime.NumberToString(v.NumberValue())
	case v.IsBigInt():
		return v.AsBigInt().String() + "n"
	case v.IsSymbol():
		return "Symbol(" + v.AsSymbol().Description + ")"
	case v.IsObject():
		o := v.AsObject()
		if seen[o] {
			return "[Circular]"
		}
		if depth > 4 {
			return "[Object]"
		}
		if o.Kind == object.KindFunction {
			name := ""
			if o.Function != nil {
				name = o.Function.Name
			}
			if name == "" {
				name = "anonymous"
			}
			return "[Function: " + name + "]"
		}
		seen[o] = true
		defer delete(seen, o)
		if o.Kind == object.KindArray {
			parts := make([]string, o.ArrayLength)
			for i := uint32(0); i < o.ArrayLength; i++ {
				slot, _ := o.Lookup(object.IndexKey(i))
				if slot == nil {
					parts[i] = "<1 empty item>"
					continue
				}
				parts[i] = inspect(r, slot.Value, depth+1, seen)
			}
			return "[ " + strings.Join(parts, ", ") + " ]"
		}
		if o.Kind == object.KindError && o.ErrorData != nil {
			if o.ErrorData.Message == "" {
				return o.ErrorData.ErrorKind
			}
			return o.ErrorData.ErrorKind + ": " + o.ErrorData.Message
		}
		keys := o.OwnKeys(false, false)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			slot, _ := o.Lookup(k)
			val := object.Undefined
			if slot != nil {
				val = slot.Value
			}
			parts = append(parts, k.String()+": "+inspect(r, val, depth+1, seen))
		}
		return "{ " + strings.Join(parts, ", ") + " }"
	default:
		return ""
	}
}
