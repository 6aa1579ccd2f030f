package runtime

import (
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/ecmavm/engine/internal/object"
)

// ToBoolean never fails and never calls user code, per the standard
// ToBoolean algorithm's closed set of falsy kinds.
func ToBoolean(v object.Value) bool {
	switch v.Kind() {
	case object.KindUndefined, object.KindNull:
		return false
	case object.KindBoolean:
		return v.AsBoolean()
	case object.KindInt32:
		return v.AsInt32() != 0
	case object.KindFloat64:
		f := v.AsFloat64()
		return f != 0 && !math.IsNaN(f)
	case object.KindBigInt:
		return v.AsBigInt().Sign() != 0
	case object.KindString:
		return v.AsString() != ""
	default:
		return true // symbol or object
	}
}

// Hint selects which conversion ToPrimitive prefers when an object defines
// neither an overriding @@toPrimitive method nor only one of valueOf/
// toString.
type Hint int

const (
	HintDefault Hint = iota
	HintNumber
	HintString
)

// ToPrimitive implements the standard OrdinaryToPrimitive/ToPrimitive
// algorithm: an object consults @@toPrimitive first, then falls back to
// trying valueOf/toString (or toString/valueOf, for HintString) in order,
// accepting the first result that isn't itself an object. Every other Value
// kind is already primitive and returned unchanged.
func ToPrimitive(r *Realm, v object.Value, hint Hint) (object.Value, *EcmaError) {
	if !v.IsObject() {
		return v, nil
	}

	if exotic := GetProperty(r, v, object.SymKey(object.SymToPrimitive)); exotic.IsObject() {
		if object.IsCallable(exotic.AsObject()) {
			hintStr := "default"
			switch hint {
			case HintNumber:
				hintStr = "number"
			case HintString:
				hintStr = "string"
			}
			result, err := r.Invoker.Call(exotic.AsObject(), v, []object.Value{object.String(hintStr)})
			if err != nil {
				return object.Undefined, err
			}
			if result.IsObject() {
				return object.Undefined, r.TypeError("Cannot convert object to primitive value")
			}
			return result, nil
		}
	}

	methods := [2]string{"valueOf", "toString"}
	if hint == HintString {
		methods = [2]string{"toString", "valueOf"}
	}
	for _, name := range methods {
		m := GetProperty(r, v, object.StringKey(name))
		if m.IsObject() && object.IsCallable(m.AsObject()) {
			result, err := r.Invoker.Call(m.AsObject(), v, nil)
			if err != nil {
				return object.Undefined, err
			}
			if !result.IsObject() {
				return result, nil
			}
		}
	}
	return object.Undefined, r.TypeError("Cannot convert object to primitive value")
}

// ToNumber implements the standard ToNumber algorithm. BigInt and Symbol
// inputs raise a TypeError (a BigInt never converts to a Number
// implicitly); callers that must accept a BigInt operand call ToNumeric
// instead.
func ToNumber(r *Realm, v object.Value) (float64, *EcmaError) {
	switch v.Kind() {
	case object.KindUndefined:
		return math.NaN(), nil
	case object.KindNull:
		return 0, nil
	case object.KindBoolean:
		if v.AsBoolean() {
			return 1, nil
		}
		return 0, nil
	case object.KindInt32, object.KindFloat64:
		return v.NumberValue(), nil
	case object.KindBigInt:
		return 0, r.TypeError("Cannot convert a BigInt value to a number")
	case object.KindString:
		return stringToNumber(v.AsString()), nil
	case object.KindSymbol:
		return 0, r.TypeError("Cannot convert a Symbol value to a number")
	case object.KindObject:
		prim, err := ToPrimitive(r, v, HintNumber)
		if err != nil {
			return 0, err
		}
		return ToNumber(r, prim)
	default:
		return math.NaN(), nil
	}
}

// stringToNumber implements StringToNumber: trim whitespace, treat an empty
// result as 0, recognize Infinity/-Infinity/hex/octal/binary prefixes, fall
// back to NaN on any parse failure.
func stringToNumber(s string) float64 {
	t := strings.TrimSpace(s)
	if t == "" {
		return 0
	}
	switch t {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	lower := strings.ToLower(t)
	neg := false
	body := lower
	if strings.HasPrefix(body, "+") {
		body = body[1:]
	} else if strings.HasPrefix(body, "-") {
		neg = true
		body = body[1:]
	}
	var base int
	switch {
	case strings.HasPrefix(body, "0x"):
		base = 16
	case strings.HasPrefix(body, "0o"):
		base = 8
	case strings.HasPrefix(body, "0b"):
		base = 2
	}
	if base != 0 {
		n, err := strconv.ParseUint(body[2:], base, 64)
		if err != nil {
			return math.NaN()
		}
		f := float64(n)
		if neg {
			f = -f
		}
		return f
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// ToNumeric implements ToNumeric: like ToNumber but preserves a BigInt
// operand instead of throwing, so arithmetic.go's operator dispatch can tell
// the two numeric kinds apart before picking which algorithm to run.
func ToNumeric(r *Realm, v object.Value) (object.Value, *EcmaError) {
	prim := v
	if v.IsObject() {
		p, err := ToPrimitive(r, v, HintNumber)
		if err != nil {
			return object.Undefined, err
		}
		prim = p
	}
	if prim.IsBigInt() {
		return prim, nil
	}
	f, err := ToNumber(r, prim)
	if err != nil {
		return object.Undefined, err
	}
	return object.Float64(f), nil
}

// ToString implements the standard ToString algorithm, consulting
// @@toPrimitive/toString/valueOf for objects via ToPrimitive(hint=string).
func ToString(r *Realm, v object.Value) (string, *EcmaError) {
	switch v.Kind() {
	case object.KindUndefined:
		return "undefined", nil
	case object.KindNull:
		return "null", nil
	case object.KindBoolean:
		if v.AsBoolean() {
			return "true", nil
		}
		return "false", nil
	case object.KindInt32, object.KindFloat64:
		return NumberToString(v.NumberValue()), nil
	case object.KindBigInt:
		return v.AsBigInt().String(), nil
	case object.KindString:
		return v.AsString(), nil
	case object.KindSymbol:
		return "", r.TypeError("Cannot convert a Symbol value to a string")
	case object.KindObject:
		prim, err := ToPrimitive(r, v, HintString)
		if err != nil {
			return "", err
		}
		return ToString(r, prim)
	default:
		return "", nil
	}
}

// NumberToString implements Number::toString(10), the formatting ECMAScript
// requires (distinct from Go's %v/strconv defaults around NaN/Infinity/-0
// and exponent thresholds).
func NumberToString(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	if abs := math.Abs(f); abs >= 1e21 || abs < 1e-6 {
		mant, exp, _ := strings.Cut(strconv.FormatFloat(f, 'e', -1, 64), "e")
		return mant + "e" + exp[:1] + strings.TrimLeft(exp[1:], "0")
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ToObject implements ToObject: wraps a primitive in its corresponding
// wrapper object, or throws for null/undefined (the only inputs with no
// valid object form).
func ToObject(r *Realm, v object.Value) (*object.Object, *EcmaError) {
	switch v.Kind() {
	case object.KindUndefined, object.KindNull:
		return nil, r.TypeError("Cannot convert undefined or null to object")
	case object.KindObject:
		return v.AsObject(), nil
	case object.KindBoolean:
		o := object.NewObjectWithKind(r.BooleanProto, object.KindPlain, "Boolean")
		o.SetAssociated(primitiveWrapperKey, v)
		return o, nil
	case object.KindInt32, object.KindFloat64:
		o := object.NewObjectWithKind(r.NumberProto, object.KindPlain, "Number")
		o.SetAssociated(primitiveWrapperKey, v)
		return o, nil
	case object.KindString:
		o := object.NewObjectWithKind(r.StringProto, object.KindPlain, "String")
		o.SetAssociated(primitiveWrapperKey, v)
		installStringIndices(o, v.AsString())
		return o, nil
	case object.KindSymbol:
		o := object.NewObjectWithKind(r.SymbolProto, object.KindPlain, "Symbol")
		o.SetAssociated(primitiveWrapperKey, v)
		return o, nil
	case object.KindBigInt:
		o := object.NewObjectWithKind(r.BigIntProto, object.KindPlain, "BigInt")
		o.SetAssociated(primitiveWrapperKey, v)
		return o, nil
	default:
		return nil, r.TypeError("Cannot convert value to object")
	}
}

// primitiveWrapperKey tags a boxed primitive's Associated-map entry holding
// its underlying value (read back by valueOf/toString on the wrapper
// prototypes, and by propaccess.go's String-index special case).
var primitiveWrapperKey = &struct{ name string }{"primitiveWrapper"}

// PrimitiveValueOf returns the primitive a ToObject boxing wrapped, for
// Number.prototype.valueOf/toString, String.prototype.valueOf, and
// Boolean.prototype.valueOf (package vm's globals.go) to read back without
// needing to know the Associated-map key ToObject tagged it with.
func PrimitiveValueOf(o *object.Object) (object.Value, bool) {
	return o.GetAssociated(primitiveWrapperKey)
}

func installStringIndices(o *object.Object, s string) {
	runes := []rune(s)
	for i, ch := range runes {
		o.DefineRaw(object.IndexKey(uint32(i)), object.DataSlot(object.String(string(ch)), false, true, false))
	}
	o.DefineRaw(object.StringKey("length"), object.DataSlot(object.Int32(int32(len(runes))), false, false, false))
}

// ToInt32/ToUint32 implement the standard modular-reduction conversions used
// by the bitwise operators.
func ToInt32(r *Realm, v object.Value) (int32, *EcmaError) {
	n, err := ToNumeric(r, v)
	if err != nil {
		return 0, err
	}
	if n.IsBigInt() {
		return 0, r.TypeError("Cannot convert a BigInt value to a number")
	}
	return toInt32(n.NumberValue()), nil
}

func ToUint32(r *Realm, v object.Value) (uint32, *EcmaError) {
	n, err := ToInt32(r, v)
	if err != nil {
		return 0, err
	}
	return uint32(n), nil
}

func toInt32(f float64) int32 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f == 0 {
		return 0
	}
	m := math.Mod(math.Trunc(f), 4294967296)
	if m < 0 {
		m += 4294967296
	}
	if m >= 2147483648 {
		m -= 4294967296
	}
	return int32(m)
}

// ToIntegerOrInfinity implements ToIntegerOrInfinity, used throughout the
// Array/String builtins for length/index arguments.
func ToIntegerOrInfinity(r *Realm, v object.Value) (float64, *EcmaError) {
	f, err := ToNumber(r, v)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) {
		return 0, nil
	}
	if math.IsInf(f, 0) {
		return f, nil
	}
	return math.Trunc(f), nil
}

// ToBigInt implements the (considerably narrower) ToBigInt coercion: only
// BigInt, boolean, and well-formed numeric strings convert; a Number input
// is rejected per the spec's "implicit Number<->BigInt mixing is always a
// TypeError" rule, enforced consistently by arithmetic.go.
func ToBigInt(r *Realm, v object.Value) (*big.Int, *EcmaError) {
	prim := v
	if v.IsObject() {
		p, err := ToPrimitive(r, v, HintNumber)
		if err != nil {
			return nil, err
		}
		prim = p
	}
	switch prim.Kind() {
	case object.KindBigInt:
		return prim.AsBigInt(), nil
	case object.KindBoolean:
		if prim.AsBoolean() {
			return big.NewInt(1), nil
		}
		return big.NewInt(0), nil
	case object.KindString:
		s := strings.TrimSpace(prim.AsString())
		if s == "" {
			return big.NewInt(0), nil
		}
		n, ok := new(big.Int).SetString(s, 0)
		if !ok {
			return nil, r.SyntaxError("Cannot convert %s to a BigInt", s)
		}
		return n, nil
	default:
		return nil, r.TypeError("Cannot convert to a BigInt")
	}
}

// TypeOf implements the `typeof` operator's one refinement Value.TypeName
// can't make on its own: a callable object (KindFunction/KindBoundFunction,
// or a Proxy whose target is callable) reports "function" rather than
// "object".
func TypeOf(v object.Value) string {
	if v.IsObject() {
		o := v.AsObject()
		if object.IsCallable(o) {
			return "function"
		}
		if o.Kind == object.KindProxy && o.Proxy != nil && !o.Proxy.Revoked && object.IsCallable(o.Proxy.Target) {
			return "function"
		}
	}
	return v.TypeName()
}
