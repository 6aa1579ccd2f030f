// Package object implements the runtime value and object/property model:
// tagged primitive values, the NOT_FOUND and TDZ sentinels, and the
// property-map/prototype object representation every other layer of the
// engine builds on.
package object

import (
	"math"
	"math/big"
)

// Kind discriminates the closed union of value kinds. Dispatch on Value is
// always a switch over Kind rather than a Go type assertion chain, per the
// "sum-type destructuring instead of instanceof chains" design note.
type Kind uint8

const (
	KindUndefined Kind = iota
	KindNull
	KindBoolean
	KindInt32
	KindFloat64
	KindBigInt
	KindString
	KindSymbol
	KindObject

	// Sentinels. Never constructible from script; a Value of either kind
	// escaping to script-observable position is always a bug.
	KindNotFound
	KindTDZ
)

// Value is a stack-allocated tagged union, sized to avoid heap allocation
// for the common primitive cases (bool/int32/float64). Larger payloads
// (BigInt, string, symbol, object) are held by pointer/reference.
type Value struct {
	kind Kind
	bits uint64 // bool (0/1), int32, or float64 bits
	str  string
	big  *big.Int
	sym  *Symbol
	obj  *Object
}

var (
	Undefined = Value{kind: KindUndefined}
	Null      = Value{kind: KindNull}
	NotFound  = Value{kind: KindNotFound}
	TDZ       = Value{kind: KindTDZ}
	True      = Value{kind: KindBoolean, bits: 1}
	False     = Value{kind: KindBoolean, bits: 0}
)

func Bool(b bool) Value {
	if b {
		return True
	}
	return False
}

func Int32(i int32) Value {
	return Value{kind: KindInt32, bits: uint64(uint32(i))}
}

func Float64(f float64) Value {
	return Value{kind: KindFloat64, bits: math.Float64bits(f)}
}

func BigInt(b *big.Int) Value {
	return Value{kind: KindBigInt, big: b}
}

func String(s string) Value {
	return Value{kind: KindString, str: s}
}

func SymbolValue(s *Symbol) Value {
	return Value{kind: KindSymbol, sym: s}
}

func FromObject(o *Object) Value {
	if o == nil {
		return Undefined
	}
	return Value{kind: KindObject, obj: o}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsUndefined() bool { return v.kind == KindUndefined }
func (v Value) IsNull() bool      { return v.kind == KindNull }
func (v Value) IsNullOrUndefined() bool {
	return v.kind == KindUndefined || v.kind == KindNull
}
func (v Value) IsBoolean() bool { return v.kind == KindBoolean }
func (v Value) IsInt32() bool   { return v.kind == KindInt32 }
func (v Value) IsFloat64() bool { return v.kind == KindFloat64 }
func (v Value) IsNumber() bool  { return v.kind == KindInt32 || v.kind == KindFloat64 }
func (v Value) IsBigInt() bool  { return v.kind == KindBigInt }
func (v Value) IsString() bool  { return v.kind == KindString }
func (v Value) IsSymbol() bool  { return v.kind == KindSymbol }
func (v Value) IsObject() bool  { return v.kind == KindObject }
func (v Value) IsNotFound() bool { return v.kind == KindNotFound }
func (v Value) IsTDZ() bool     { return v.kind == KindTDZ }

func (v Value) AsBoolean() bool { return v.bits == 1 }
func (v Value) AsInt32() int32  { return int32(uint32(v.bits)) }
func (v Value) AsFloat64() float64 {
	if v.kind == KindInt32 {
		return float64(v.AsInt32())
	}
	return math.Float64frombits(v.bits)
}
func (v Value) AsBigInt() *big.Int { return v.big }
func (v Value) AsString() string   { return v.str }
func (v Value) AsSymbol() *Symbol  { return v.sym }
func (v Value) AsObject() *Object  { return v.obj }

// NumberValue returns the float64 value of any numeric-kind Value
// (Int32 or Float64), the fast path callers use before falling back to
// the full ToNumeric coercion in package runtime.
func (v Value) NumberValue() float64 {
	switch v.kind {
	case KindInt32:
		return float64(v.AsInt32())
	case KindFloat64:
		return v.AsFloat64()
	default:
		return math.NaN()
	}
}

// TypeName implements the `typeof` operator per spec.md 4.A, except for the
// "function" refinement, which requires knowing the object's Kind and is
// resolved by the caller (runtime.TypeOf) since Value alone can't tell a
// callable object apart from a plain one without dereferencing obj.Kind.
func (v Value) TypeName() string {
	switch v.kind {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "object"
	case KindBoolean:
		return "boolean"
	case KindInt32, KindFloat64:
		return "number"
	case KindBigInt:
		return "bigint"
	case KindString:
		return "string"
	case KindSymbol:
		return "symbol"
	case KindObject:
		return "object"
	default:
		return "undefined"
	}
}
