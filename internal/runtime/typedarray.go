package runtime

import (
	"math"

	"github.com/ecmavm/engine/internal/object"
)

// TypedArrayElementSize returns the byte width of one element of kind, for
// host/stdlib code (e.g. a constructor sizing a fresh backing buffer)
// that needs it outside this package.
func TypedArrayElementSize(kind object.TypedArrayKind) int {
	return typedArrayElemSize(kind)
}

// typedArrayElemSize returns the byte width of one element of kind, per
// spec.md 4.B's TypedArray element-kind table.
func typedArrayElemSize(kind object.TypedArrayKind) int {
	switch kind {
	case object.TAInt8, object.TAUint8, object.TAUint8Clamped:
		return 1
	case object.TAInt16, object.TAUint16:
		return 2
	case object.TAInt32, object.TAUint32, object.TAFloat32:
		return 4
	case object.TAFloat64, object.TABigInt64, object.TABigUint64:
		return 8
	}
	return 1
}

// getTypedArrayElement decodes the idx-th element of view out of its
// backing buffer, little-endian (matching every mainstream engine's native
// byte order for TypedArray storage). ok is false for an out-of-bounds idx,
// per the integer-indexed exotic object's [[Get]] returning undefined
// rather than throwing.
func getTypedArrayElement(view *object.TypedArrayData, idx uint32) (object.Value, bool) {
	if idx >= uint32(view.Length) {
		return object.Undefined, false
	}
	size := typedArrayElemSize(view.ElemKind)
	off := view.ByteOffset + int(idx)*size
	buf := view.Buffer.Buffer.Bytes
	if off+size > len(buf) {
		return object.Undefined, false
	}
	b := buf[off : off+size]
	switch view.ElemKind {
	case object.TAInt8:
		return object.Int32(int32(int8(b[0]))), true
	case object.TAUint8, object.TAUint8Clamped:
		return object.Int32(int32(b[0])), true
	case object.TAInt16:
		return object.Int32(int32(int16(uint16(b[0]) | uint16(b[1])<<8))), true
	case object.TAUint16:
		return object.Int32(int32(uint16(b[0]) | uint16(b[1])<<8)), true
	case object.TAInt32:
		return object.Int32(int32(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24)), true
	case object.TAUint32:
		return object.Float64(float64(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24)), true
	case object.TAFloat32:
		bits := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
		return NormalizeNumber(float64(math.Float32frombits(bits))), true
	case object.TAFloat64:
		var bits uint64
		for i := 0; i < 8; i++ {
			bits |= uint64(b[i]) << (8 * i)
		}
		return NormalizeNumber(math.Float64frombits(bits)), true
	}
	return object.Undefined, false
}

// setTypedArrayElement encodes value into the idx-th element of view, per
// the element kind's conversion rule (ToInt32/ToUint32-style wraparound for
// the integer kinds, clamped for Uint8Clamped). A silently ignored
// out-of-range write (ok == false) matches the integer-indexed exotic
// object's [[Set]] no-op-on-out-of-bounds behavior rather than throwing.
func setTypedArrayElement(r *Realm, view *object.TypedArrayData, idx uint32, value object.Value) (bool, *EcmaError) {
	if idx >= uint32(view.Length) {
		return false, nil
	}
	n, err := ToNumber(r, value)
	if err != nil {
		return false, err
	}
	size := typedArrayElemSize(view.ElemKind)
	off := view.ByteOffset + int(idx)*size
	buf := view.Buffer.Buffer.Bytes
	if off+size > len(buf) {
		return false, nil
	}
	b := buf[off : off+size]
	switch view.ElemKind {
	case object.TAInt8, object.TAUint8:
		b[0] = byte(int64(n))
	case object.TAUint8Clamped:
		clamped := n
		if clamped < 0 {
			clamped = 0
		} else if clamped > 255 {
			clamped = 255
		}
		b[0] = byte(math.Round(clamped))
	case object.TAInt16, object.TAUint16:
		v := uint16(int64(n))
		b[0], b[1] = byte(v), byte(v>>8)
	case object.TAInt32, object.TAUint32:
		v := uint32(int64(n))
		b[0], b[1], b[2], b[3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
	case object.TAFloat32:
		v := math.Float32bits(float32(n))
		b[0], b[1], b[2], b[3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
	case object.TAFloat64:
		v := math.Float64bits(n)
		for i := 0; i < 8; i++ {
			b[i] = byte(v >> (8 * i))
		}
	}
	return true, nil
}

// typedArrayNamedProperty answers the TypedArray own-property names that
// aren't backed by an ordinary property slot: length (element count),
// byteLength/byteOffset (in bytes), and buffer (the backing ArrayBuffer
// object). Returns ok == false for any other name, leaving the caller to
// fall through to ordinary property lookup (a user-added expando, or a
// prototype method).
func typedArrayNamedProperty(view *object.TypedArrayData, name string) (object.Value, bool) {
	switch name {
	case "length":
		return object.Int32(int32(view.Length)), true
	case "byteLength":
		return object.Int32(int32(view.Length * typedArrayElemSize(view.ElemKind))), true
	case "byteOffset":
		return object.Int32(int32(view.ByteOffset)), true
	case "buffer":
		return object.FromObject(view.Buffer), true
	}
	return object.Undefined, false
}
