package runtime

import (
	"math"
	"math/big"

	"github.com/ecmavm/engine/internal/object"
)

// Add implements the `+` operator, the one arithmetic operator with a
// string-concatenation special case: both operands go through ToPrimitive
// first, and if either primitive is a string the other is stringified and
// the two are concatenated; otherwise ToNumeric on both and add according to
// whichever numeric kind they share (mixing Number and BigInt throws, per
// the spec's "no implicit Number<->BigInt arithmetic" rule).
func Add(r *Realm, a, b object.Value) (object.Value, *EcmaError) {
	pa, err := ToPrimitive(r, a, HintDefault)
	if err != nil {
		return object.Undefined, err
	}
	pb, err := ToPrimitive(r, b, HintDefault)
	if err != nil {
		return object.Undefined, err
	}
	if pa.IsString() || pb.IsString() {
		sa, err := ToString(r, pa)
		if err != nil {
			return object.Undefined, err
		}
		sb, err := ToString(r, pb)
		if err != nil {
			return object.Undefined, err
		}
		return object.String(sa + sb), nil
	}
	return numericBinOp(r, pa, pb, func(x, y float64) float64 { return x + y },
		func(x, y *big.Int) *big.Int { return new(big.Int).Add(x, y) })
}

// numericBinOp implements the "ToNumeric both sides, require the same
// numeric kind, dispatch to the float64 or *big.Int operation" shape every
// arithmetic operator but Add and string concatenation shares.
func numericBinOp(r *Realm, a, b object.Value, floatOp func(x, y float64) float64, bigOp func(x, y *big.Int) *big.Int) (object.Value, *EcmaError) {
	na, err := ToNumeric(r, a)
	if err != nil {
		return object.Undefined, err
	}
	nb, err := ToNumeric(r, b)
	if err != nil {
		return object.Undefined, err
	}
	if na.IsBigInt() != nb.IsBigInt() {
		return object.Undefined, r.TypeError("Cannot mix BigInt and other types, use explicit conversions")
	}
	if na.IsBigInt() {
		if bigOp == nil {
			return object.Undefined, r.TypeError("unsupported BigInt operation")
		}
		return object.BigInt(bigOp(na.AsBigInt(), nb.AsBigInt())), nil
	}
	return NormalizeNumber(floatOp(na.NumberValue(), nb.NumberValue())), nil
}

// NormalizeNumber narrows a float64 result back to Int32 when it represents
// one exactly, keeping the engine's Int32/Float64 split (spec.md 4.A) from
// leaking every arithmetic result into the heavier Float64 form.
func NormalizeNumber(f float64) object.Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return object.Float64(f)
	}
	if f == 0 && math.Signbit(f) {
		return object.Float64(f) // preserve -0, which Int32 cannot represent
	}
	if f == math.Trunc(f) && f >= math.MinInt32 && f <= math.MaxInt32 {
		return object.Int32(int32(f))
	}
	return object.Float64(f)
}

func Sub(r *Realm, a, b object.Value) (object.Value, *EcmaError) {
	return numericBinOp(r, a, b, func(x, y float64) float64 { return x - y },
		func(x, y *big.Int) *big.Int { return new(big.Int).Sub(x, y) })
}

func Mul(r *Realm, a, b object.Value) (object.Value, *EcmaError) {
	return numericBinOp(r, a, b, func(x, y float64) float64 { return x * y },
		func(x, y *big.Int) *big.Int { return new(big.Int).Mul(x, y) })
}

func Div(r *Realm, a, b object.Value) (object.Value, *EcmaError) {
	na, err := ToNumeric(r, a)
	if err != nil {
		return object.Undefined, err
	}
	nb, err := ToNumeric(r, b)
	if err != nil {
		return object.Undefined, err
	}
	if na.IsBigInt() != nb.IsBigInt() {
		return object.Undefined, r.TypeError("Cannot mix BigInt and other types, use explicit conversions")
	}
	if na.IsBigInt() {
		if nb.AsBigInt().Sign() == 0 {
			return object.Undefined, r.RangeError("Division by zero")
		}
		return object.BigInt(new(big.Int).Quo(na.AsBigInt(), nb.AsBigInt())), nil
	}
	return NormalizeNumber(na.NumberValue() / nb.NumberValue()), nil
}

func Mod(r *Realm, a, b object.Value) (object.Value, *EcmaError) {
	na, err := ToNumeric(r, a)
	if err != nil {
		return object.Undefined, err
	}
	nb, err := ToNumeric(r, b)
	if err != nil {
		return object.Undefined, err
	}
	if na.IsBigInt() != nb.IsBigInt() {
		return object.Undefined, r.TypeError("Cannot mix BigInt and other types, use explicit conversions")
	}
	if na.IsBigInt() {
		if nb.AsBigInt().Sign() == 0 {
			return object.Undefined, r.RangeError("Division by zero")
		}
		return object.BigInt(new(big.Int).Rem(na.AsBigInt(), nb.AsBigInt())), nil
	}
	return NormalizeNumber(math.Mod(na.NumberValue(), nb.NumberValue())), nil
}

func Pow(r *Realm, a, b object.Value) (object.Value, *EcmaError) {
	na, err := ToNumeric(r, a)
	if err != nil {
		return object.Undefined, err
	}
	nb, err := ToNumeric(r, b)
	if err != nil {
		return object.Undefined, err
	}
	if na.IsBigInt() != nb.IsBigInt() {
		return object.Undefined, r.TypeError("Cannot mix BigInt and other types, use explicit conversions")
	}
	if na.IsBigInt() {
		if nb.AsBigInt().Sign() < 0 {
			return object.Undefined, r.RangeError("Exponent must be non-negative")
		}
		return object.BigInt(new(big.Int).Exp(na.AsBigInt(), nb.AsBigInt(), nil)), nil
	}
	return NormalizeNumber(math.Pow(na.NumberValue(), nb.NumberValue())), nil
}

func Neg(r *Realm, a object.Value) (object.Value, *EcmaError) {
	na, err := ToNumeric(r, a)
	if err != nil {
		return object.Undefined, err
	}
	if na.IsBigInt() {
		return object.BigInt(new(big.Int).Neg(na.AsBigInt())), nil
	}
	return NormalizeNumber(-na.NumberValue()), nil
}

func UnaryPlus(r *Realm, a object.Value) (object.Value, *EcmaError) {
	if a.IsBigInt() {
		return object.Undefined, r.TypeError("Cannot convert a BigInt value to a number")
	}
	f, err := ToNumber(r, a)
	if err != nil {
		return object.Undefined, err
	}
	return NormalizeNumber(f), nil
}

// --- Bitwise operators: ToInt32/ToUint32 both sides (BigInt uses its own
// two's-complement-free bitwise algorithms over arbitrary width instead). ---

func bitwiseBinOp(r *Realm, a, b object.Value, intOp func(x, y int32) int32, bigOp func(x, y *big.Int) *big.Int) (object.Value, *EcmaError) {
	na, err := ToNumeric(r, a)
	if err != nil {
		return object.Undefined, err
	}
	nb, err := ToNumeric(r, b)
	if err != nil {
		return object.Undefined, err
	}
	if na.IsBigInt() != nb.IsBigInt() {
		return object.Undefined, r.TypeError("Cannot mix BigInt and other types, use explicit conversions")
	}
	if na.IsBigInt() {
		return object.BigInt(bigOp(na.AsBigInt(), nb.AsBigInt())), nil
	}
	ia, ib := toInt32(na.NumberValue()), toInt32(nb.NumberValue())
	return object.Int32(intOp(ia, ib)), nil
}

func BAnd(r *Realm, a, b object.Value) (object.Value, *EcmaError) {
	return bitwiseBinOp(r, a, b, func(x, y int32) int32 { return x & y },
		func(x, y *big.Int) *big.Int { return new(big.Int).And(x, y) })
}

func BOr(r *Realm, a, b object.Value) (object.Value, *EcmaError) {
	return bitwiseBinOp(r, a, b, func(x, y int32) int32 { return x | y },
		func(x, y *big.Int) *big.Int { return new(big.Int).Or(x, y) })
}

func BXor(r *Realm, a, b object.Value) (object.Value, *EcmaError) {
	return bitwiseBinOp(r, a, b, func(x, y int32) int32 { return x ^ y },
		func(x, y *big.Int) *big.Int { return new(big.Int).Xor(x, y) })
}

func BNot(r *Realm, a object.Value) (object.Value, *EcmaError) {
	na, err := ToNumeric(r, a)
	if err != nil {
		return object.Undefined, err
	}
	if na.IsBigInt() {
		return object.BigInt(new(big.Int).Not(na.AsBigInt())), nil
	}
	return object.Int32(^toInt32(na.NumberValue())), nil
}

func Shl(r *Realm, a, b object.Value) (object.Value, *EcmaError) {
	ia, err := ToInt32(r, a)
	if err != nil {
		return object.Undefined, err
	}
	ub, err := ToUint32(r, b)
	if err != nil {
		return object.Undefined, err
	}
	return object.Int32(ia << (ub & 31)), nil
}

func Shr(r *Realm, a, b object.Value) (object.Value, *EcmaError) {
	ia, err := ToInt32(r, a)
	if err != nil {
		return object.Undefined, err
	}
	ub, err := ToUint32(r, b)
	if err != nil {
		return object.Undefined, err
	}
	return object.Int32(ia >> (ub & 31)), nil
}

func UShr(r *Realm, a, b object.Value) (object.Value, *EcmaError) {
	ua, err := ToUint32(r, a)
	if err != nil {
		return object.Undefined, err
	}
	ub, err := ToUint32(r, b)
	if err != nil {
		return object.Undefined, err
	}
	return object.Int32(int32(ua >> (ub & 31))), nil
}

// CompareResult mirrors the standard Abstract Relational Comparison's
// three-valued result (less/not-less/undefined), since NaN makes every
// relational operator false without either side being "greater".
type CompareResult int

const (
	CompareLess CompareResult = iota
	CompareNotLess
	CompareUndefined
)

// Compare implements the Abstract Relational Comparison algorithm
// underlying <, <=, >, >=; leftFirst controls evaluation order only insofar
// as ToPrimitive side effects are concerned (spec.md leaves genuine
// evaluation order to the caller, which has already evaluated both operand
// expressions before calling this).
func Compare(r *Realm, a, b object.Value) (CompareResult, *EcmaError) {
	pa, err := ToPrimitive(r, a, HintNumber)
	if err != nil {
		return CompareUndefined, err
	}
	pb, err := ToPrimitive(r, b, HintNumber)
	if err != nil {
		return CompareUndefined, err
	}
	if pa.IsString() && pb.IsString() {
		sa, sb := pa.AsString(), pb.AsString()
		if sa < sb {
			return CompareLess, nil
		}
		return CompareNotLess, nil
	}
	if pa.IsBigInt() || pb.IsBigInt() {
		return compareMixedBigInt(r, pa, pb)
	}
	na, err := ToNumber(r, pa)
	if err != nil {
		return CompareUndefined, err
	}
	nb, err := ToNumber(r, pb)
	if err != nil {
		return CompareUndefined, err
	}
	if math.IsNaN(na) || math.IsNaN(nb) {
		return CompareUndefined, nil
	}
	if na < nb {
		return CompareLess, nil
	}
	return CompareNotLess, nil
}

func compareMixedBigInt(r *Realm, pa, pb object.Value) (CompareResult, *EcmaError) {
	if pa.IsBigInt() && pb.IsBigInt() {
		if pa.AsBigInt().Cmp(pb.AsBigInt()) < 0 {
			return CompareLess, nil
		}
		return CompareNotLess, nil
	}
	var bi *big.Int
	var f float64
	biIsLeft := pa.IsBigInt()
	if biIsLeft {
		bi = pa.AsBigInt()
		nf, err := ToNumber(r, pb)
		if err != nil {
			return CompareUndefined, err
		}
		f = nf
	} else {
		bi = pb.AsBigInt()
		nf, err := ToNumber(r, pa)
		if err != nil {
			return CompareUndefined, err
		}
		f = nf
	}
	if math.IsNaN(f) {
		return CompareUndefined, nil
	}
	bf := new(big.Float).SetInt(bi)
	cmp := bf.Cmp(big.NewFloat(f))
	if biIsLeft {
		if cmp < 0 {
			return CompareLess, nil
		}
		return CompareNotLess, nil
	}
	if cmp > 0 {
		return CompareLess, nil
	}
	return CompareNotLess, nil
}

// LessThan/LessOrEqual/GreaterThan/GreaterOrEqual build on Compare, folding
// its undefined result to false per the standard `<`/`<=`/`>`/`>=`
// algorithms (each defined directly in terms of Compare with the operands
// possibly swapped).
func LessThan(r *Realm, a, b object.Value) (bool, *EcmaError) {
	res, err := Compare(r, a, b)
	if err != nil {
		return false, err
	}
	return res == CompareLess, nil
}

func GreaterThan(r *Realm, a, b object.Value) (bool, *EcmaError) {
	res, err := Compare(r, b, a)
	if err != nil {
		return false, err
	}
	return res == CompareLess, nil
}

func LessOrEqual(r *Realm, a, b object.Value) (bool, *EcmaError) {
	res, err := Compare(r, b, a)
	if err != nil {
		return false, err
	}
	return res == CompareNotLess, nil
}

func GreaterOrEqual(r *Realm, a, b object.Value) (bool, *EcmaError) {
	res, err := Compare(r, a, b)
	if err != nil {
		return false, err
	}
	return res == CompareNotLess, nil
}

// InstanceOf implements the `instanceof` operator's default algorithm:
// consult @@hasInstance if the right-hand side defines one (classes/
// functions may override it), otherwise OrdinaryHasInstance (walk the
// left operand's prototype chain for the right-hand side's .prototype).
func InstanceOf(r *Realm, value object.Value, ctor object.Value) (bool, *EcmaError) {
	if !ctor.IsObject() {
		return false, r.TypeError("Right-hand side of 'instanceof' is not an object")
	}
	hasInstance := GetProperty(r, ctor, object.SymKey(object.SymHasInstance))
	if hasInstance.IsObject() && object.IsCallable(hasInstance.AsObject()) {
		result, err := r.Invoker.Call(hasInstance.AsObject(), ctor, []object.Value{value})
		if err != nil {
			return false, err
		}
		return ToBoolean(result), nil
	}
	if !object.IsCallable(ctor.AsObject()) {
		return false, r.TypeError("Right-hand side of 'instanceof' is not callable")
	}
	if !value.IsObject() {
		return false, nil
	}
	protoVal := GetProperty(r, ctor, object.StringKey("prototype"))
	if !protoVal.IsObject() {
		return false, r.TypeError("Function has non-object prototype in instanceof check")
	}
	proto := protoVal.AsObject()
	for cur := value.AsObject().GetPrototype(); cur != nil; cur = cur.GetPrototype() {
		if cur == proto {
			return true, nil
		}
	}
	return false, nil
}

// In implements the `in` operator: key in obj.
func In(r *Realm, key object.Value, obj object.Value) (bool, *EcmaError) {
	if !obj.IsObject() {
		return false, r.TypeError("Cannot use 'in' operator to search for '%s' in non-object", key.TypeName())
	}
	pk, err := toPropertyKey(r, key)
	if err != nil {
		return false, err
	}
	return HasProperty(r, obj.AsObject(), pk)
}

// toPropertyKey implements ToPropertyKey: a Symbol passes through as-is,
// everything else is ToString'd.
func toPropertyKey(r *Realm, v object.Value) (object.PropertyKey, *EcmaError) {
	if v.IsSymbol() {
		return object.SymKey(v.AsSymbol()), nil
	}
	s, err := ToString(r, v)
	if err != nil {
		return object.PropertyKey{}, err
	}
	return object.StringKey(s), nil
}

// ToPropertyKey exports toPropertyKey for use outside this file (member
// expression evaluation in the VM needs it for computed keys).
func ToPropertyKey(r *Realm, v object.Value) (object.PropertyKey, *EcmaError) {
	return toPropertyKey(r, v)
}
