package runtime

import (
	"math"
	"math/big"
	"strings"

	"github.com/ecmavm/engine/internal/object"
)

// StrictEquals implements the === algorithm. Never calls user code, so it
// cannot fail.
func StrictEquals(a, b object.Value) bool {
	if a.Kind() != b.Kind() {
		// the one same-kind exception the spec carves out: Int32 and
		// Float64 are both "number" and compare by numeric value.
		if a.IsNumber() && b.IsNumber() {
			return a.NumberValue() == b.NumberValue()
		}
		return false
	}
	switch a.Kind() {
	case object.KindUndefined, object.KindNull:
		return true
	case object.KindBoolean:
		return a.AsBoolean() == b.AsBoolean()
	case object.KindInt32, object.KindFloat64:
		return a.NumberValue() == b.NumberValue()
	case object.KindBigInt:
		return a.AsBigInt().Cmp(b.AsBigInt()) == 0
	case object.KindString:
		return a.AsString() == b.AsString()
	case object.KindSymbol:
		return a.AsSymbol() == b.AsSymbol()
	case object.KindObject:
		return a.AsObject() == b.AsObject()
	default:
		return false
	}
}

// SameValue implements the SameValue algorithm (Object.is): like
// StrictEquals but distinguishes +0/-0 and treats NaN as equal to itself.
func SameValue(a, b object.Value) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	switch a.Kind() {
	case object.KindInt32, object.KindFloat64:
		af, bf := a.NumberValue(), b.NumberValue()
		if math.IsNaN(af) && math.IsNaN(bf) {
			return true
		}
		if af == 0 && bf == 0 {
			return math.Signbit(af) == math.Signbit(bf)
		}
		return af == bf
	default:
		return StrictEquals(a, b)
	}
}

// SameValueZero implements SameValueZero (used by Array.prototype.includes,
// Map/Set key comparison): like SameValue but +0 and -0 compare equal.
func SameValueZero(a, b object.Value) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	if a.IsNumber() {
		af, bf := a.NumberValue(), b.NumberValue()
		if math.IsNaN(af) && math.IsNaN(bf) {
			return true
		}
		return af == bf
	}
	return StrictEquals(a, b)
}

// Equals implements the abstract equality (==) algorithm, which can invoke
// user code via ToPrimitive when one operand is an object.
func Equals(r *Realm, a, b object.Value) (bool, *EcmaError) {
	if a.Kind() == b.Kind() {
		return StrictEquals(a, b), nil
	}
	if a.IsNullOrUndefined() && b.IsNullOrUndefined() {
		return true, nil
	}
	if a.IsNullOrUndefined() || b.IsNullOrUndefined() {
		return false, nil
	}
	if a.IsNumber() && b.IsBigInt() {
		return numberBigIntEqual(a.NumberValue(), b.AsBigInt()), nil
	}
	if a.IsBigInt() && b.IsNumber() {
		return numberBigIntEqual(b.NumberValue(), a.AsBigInt()), nil
	}
	if a.IsNumber() && b.IsString() {
		bn, err := ToNumber(r, b)
		if err != nil {
			return false, err
		}
		return a.NumberValue() == bn, nil
	}
	if a.IsString() && b.IsNumber() {
		an, err := ToNumber(r, a)
		if err != nil {
			return false, err
		}
		return an == b.NumberValue(), nil
	}
	if a.IsBigInt() && b.IsString() {
		bn, ok := parseBigIntString(b.AsString())
		if !ok {
			return false, nil
		}
		return a.AsBigInt().Cmp(bn) == 0, nil
	}
	if a.IsString() && b.IsBigInt() {
		an, ok := parseBigIntString(a.AsString())
		if !ok {
			return false, nil
		}
		return an.Cmp(b.AsBigInt()) == 0, nil
	}
	if a.IsBoolean() {
		return Equals(r, object.Float64(boolToFloat(a.AsBoolean())), b)
	}
	if b.IsBoolean() {
		return Equals(r, a, object.Float64(boolToFloat(b.AsBoolean())))
	}
	if (a.IsNumber() || a.IsString() || a.IsBigInt() || a.IsSymbol()) && b.IsObject() {
		prim, err := ToPrimitive(r, b, HintDefault)
		if err != nil {
			return false, err
		}
		return Equals(r, a, prim)
	}
	if a.IsObject() && (b.IsNumber() || b.IsString() || b.IsBigInt() || b.IsSymbol()) {
		prim, err := ToPrimitive(r, a, HintDefault)
		if err != nil {
			return false, err
		}
		return Equals(r, prim, b)
	}
	return false, nil
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// numberBigIntEqual compares a float against a BigInt exactly: NaN,
// Infinity, and any non-integral float are never equal to a BigInt, per the
// abstract equality algorithm's explicit BigInt/Number comparison step.
func numberBigIntEqual(f float64, b *big.Int) bool {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return false
	}
	asBig, ok := new(big.Float).SetFloat64(f).Int(nil)
	if !ok {
		return false
	}
	return asBig.Cmp(b) == 0
}

// parseBigIntString implements the StringToBigInt algorithm used by the
// BigInt/String equality comparison: whitespace-trimmed, empty means zero,
// any non-integral content fails rather than coercing through Number.
func parseBigIntString(s string) (*big.Int, bool) {
	t := strings.TrimSpace(s)
	if t == "" {
		return big.NewInt(0), true
	}
	n, ok := new(big.Int).SetString(t, 0)
	if !ok {
		return nil, false
	}
	return n, true
}
