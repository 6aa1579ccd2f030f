// ArrayBuffer and the eight numeric TypedArray constructors (Int8Array
// through Float64Array), grounded on funxy's internal/evaluator/
// builtins_bytes.go Bytes family: that package exposes exactly these
// fixed-width-integer/float encode-decode operations (bytesEncodeInt/
// bytesDecodeInt/bytesEncodeFloat/bytesDecodeFloat, little/big-endian
// aware) against an opaque byte blob, generalized here into the standard
// ECMA-262 ArrayBuffer-plus-typed-view model this engine's object package
// already has storage for (object.KindArrayBuffer/KindTypedArray) but had
// no script-facing constructors for.
package stdlib

import (
	"github.com/ecmavm/engine/internal/object"
	"github.com/ecmavm/engine/internal/runtime"
)

func installArrayBufferConstructor(r *runtime.Realm, global *object.Object) {
	proto := object.NewObject(r.ObjectProto)
	accessor(r, proto, "byteLength", func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		o, err := thisArrayBuffer(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		return object.Int32(int32(len(o.Buffer.Bytes))), nil
	})
	method(r, proto, "slice", 2, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		o, err := thisArrayBuffer(rt, this)
		if err != nil {
			return object.Undefined, err
		}
		n := len(o.Buffer.Bytes)
		start, end, serr := sliceBounds(rt, args, n)
		if serr != nil {
			return object.Undefined, serr
		}
		out := make([]byte, end-start)
		copy(out, o.Buffer.Bytes[start:end])
		return object.FromObject(newArrayBuffer(rt, out)), nil
	})
	r.ArrayBufferProto = proto

	ctor := newConstructor(r, "ArrayBuffer", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		n, err := runtime.ToUint32(rt, arg(args, 0))
		if err != nil {
			return object.Undefined, err
		}
		return object.FromObject(newArrayBuffer(rt, make([]byte, n))), nil
	}, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		n, err := runtime.ToUint32(rt, arg(args, 0))
		if err != nil {
			return object.Undefined, err
		}
		return object.FromObject(newArrayBuffer(rt, make([]byte, n))), nil
	}, proto)
	method(r, ctor, "isView", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
		v := arg(args, 0)
		return object.Bool(v.IsObject() && v.AsObject().Kind == object.KindTypedArray), nil
	})
	global.DefineRaw(object.StringKey("ArrayBuffer"), object.DataSlot(object.FromObject(ctor), true, false, true))
}

func newArrayBuffer(r *runtime.Realm, data []byte) *object.Object {
	o := object.NewObjectWithKind(r.ArrayBufferProto, object.KindArrayBuffer, "ArrayBuffer")
	o.Buffer = &object.BufferData{Bytes: data}
	return o
}

func thisArrayBuffer(r *runtime.Realm, this object.Value) (*object.Object, *runtime.EcmaError) {
	if !this.IsObject() || this.AsObject().Kind != object.KindArrayBuffer {
		return nil, r.TypeError("not an ArrayBuffer")
	}
	return this.AsObject(), nil
}

func sliceBounds(r *runtime.Realm, args []object.Value, length int) (int, int, *runtime.EcmaError) {
	start := 0
	end := length
	if len(args) > 0 && !args[0].IsUndefined() {
		n, err := runtime.ToIntegerOrInfinity(r, args[0])
		if err != nil {
			return 0, 0, err
		}
		start = normalizeSliceIndex(n, length)
	}
	if len(args) > 1 && !args[1].IsUndefined() {
		n, err := runtime.ToIntegerOrInfinity(r, args[1])
		if err != nil {
			return 0, 0, err
		}
		end = normalizeSliceIndex(n, length)
	}
	if end < start {
		end = start
	}
	return start, end, nil
}

func normalizeSliceIndex(n float64, length int) int {
	i := int(n)
	if n < 0 {
		i = length + int(n)
	}
	if i < 0 {
		return 0
	}
	if i > length {
		return length
	}
	return i
}

// typedArraySpec describes one of the eight numeric TypedArray
// constructors: its script-visible name and the element kind/width it
// views its backing ArrayBuffer as.
type typedArraySpec struct {
	name     string
	elemKind object.TypedArrayKind
}

var typedArraySpecs = []typedArraySpec{
	{"Int8Array", object.TAInt8},
	{"Uint8Array", object.TAUint8},
	{"Uint8ClampedArray", object.TAUint8Clamped},
	{"Int16Array", object.TAInt16},
	{"Uint16Array", object.TAUint16},
	{"Int32Array", object.TAInt32},
	{"Uint32Array", object.TAUint32},
	{"Float32Array", object.TAFloat32},
	{"Float64Array", object.TAFloat64},
}

// installTypedArrayConstructors wires every typedArraySpec as a global
// constructor: new Int32Array(length), new Int32Array(arrayLike), or
// new Int32Array(buffer, byteOffset?, length?), matching the three
// overload shapes spec.md 4.B's TypedArray family carries over from
// ECMA-262. Each constructor shares the element-kind-specific byte-size
// logic in internal/runtime/typedarray.go for actually reading/writing
// through its view.
func installTypedArrayConstructors(r *runtime.Realm, global *object.Object) {
	for _, spec := range typedArraySpecs {
		spec := spec
		proto := object.NewObject(r.ObjectProto)
		method(r, proto, "fill", 1, func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
			view, err := thisTypedArray(rt, this)
			if err != nil {
				return object.Undefined, err
			}
			fillVal := arg(args, 0)
			for i := uint32(0); i < uint32(view.Length); i++ {
				if _, serr := runtime.SetProperty(rt, this, object.IndexKey(i), fillVal); serr != nil {
					return object.Undefined, serr
				}
			}
			return this, nil
		})
		body := func(rt *runtime.Realm, this object.Value, args []object.Value) (object.Value, *runtime.EcmaError) {
			return newTypedArrayFromArgs(rt, spec.elemKind, proto, args)
		}
		ctor := newConstructor(r, spec.name, 1, body, body, proto)
		value(ctor, "BYTES_PER_ELEMENT", object.Int32(int32(runtime.TypedArrayElementSize(spec.elemKind))))
		global.DefineRaw(object.StringKey(spec.name), object.DataSlot(object.FromObject(ctor), true, false, true))
	}
}

func thisTypedArray(r *runtime.Realm, this object.Value) (*object.TypedArrayData, *runtime.EcmaError) {
	if !this.IsObject() || this.AsObject().Kind != object.KindTypedArray {
		return nil, r.TypeError("not a TypedArray")
	}
	return this.AsObject().TypedArrayView, nil
}

func newTypedArrayFromArgs(r *runtime.Realm, kind object.TypedArrayKind, proto *object.Object, args []object.Value) (object.Value, *runtime.EcmaError) {
	elemSize := runtime.TypedArrayElementSize(kind)
	first := arg(args, 0)

	var buf *object.Object
	var byteOffset, length int

	switch {
	case first.IsObject() && first.AsObject().Kind == object.KindArrayBuffer:
		buf = first.AsObject()
		if len(args) > 1 && !args[1].IsUndefined() {
			n, err := runtime.ToUint32(r, args[1])
			if err != nil {
				return object.Undefined, err
			}
			byteOffset = int(n)
		}
		avail := len(buf.Buffer.Bytes) - byteOffset
		if avail < 0 {
			return object.Undefined, r.RangeError("byteOffset out of bounds")
		}
		if len(args) > 2 && !args[2].IsUndefined() {
			n, err := runtime.ToUint32(r, args[2])
			if err != nil {
				return object.Undefined, err
			}
			length = int(n)
		} else {
			length = avail / elemSize
		}
		if byteOffset+length*elemSize > len(buf.Buffer.Bytes) {
			return object.Undefined, r.RangeError("typed array length out of bounds for buffer")
		}
	case first.IsObject() && first.AsObject().Kind == object.KindArray:
		src := first.AsObject()
		length = int(src.ArrayLength)
		buf = newArrayBuffer(r, make([]byte, length*elemSize))
		o := object.NewObjectWithKind(proto, object.KindTypedArray, "TypedArray")
		o.TypedArrayView = &object.TypedArrayData{Buffer: buf, ElemKind: kind, ByteOffset: 0, Length: length}
		for i := uint32(0); i < uint32(length); i++ {
			elem := runtime.GetProperty(r, object.FromObject(src), object.IndexKey(i))
			if _, err := runtime.SetProperty(r, object.FromObject(o), object.IndexKey(i), elem); err != nil {
				return object.Undefined, err
			}
		}
		return object.FromObject(o), nil
	case first.IsUndefined():
		length = 0
		buf = newArrayBuffer(r, make([]byte, 0))
	default:
		n, err := runtime.ToUint32(r, first)
		if err != nil {
			return object.Undefined, err
		}
		length = int(n)
		buf = newArrayBuffer(r, make([]byte, length*elemSize))
	}

	o := object.NewObjectWithKind(proto, object.KindTypedArray, "TypedArray")
	o.TypedArrayView = &object.TypedArrayData{Buffer: buf, ElemKind: kind, ByteOffset: byteOffset, Length: length}
	return object.FromObject(o), nil
}
